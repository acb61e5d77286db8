package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Action string

const (
	ActionShowLogin              Action = "show-login"
	ActionShowSignup             Action = "show-signup"
	ActionLogout                 Action = "logout"
	ActionShowCreateMenu         Action = "show-create-menu"
	ActionCloseModal             Action = "close-modal"
	ActionShowCharacterModal     Action = "show-character-modal"
	ActionShowMediaModal         Action = "show-media-modal"
	ActionShowFilterModal        Action = "show-filter-modal"
	ActionResetFilters           Action = "reset-filters"
	ActionClearAllFilters        Action = "clear-all-filters"
	ActionNavigateHome           Action = "navigate-home"
	ActionViewMedia              Action = "view-media"
	ActionDeleteMedia            Action = "delete-media"
	ActionDeleteCharacter        Action = "delete-character"
	ActionClearSearch            Action = "clear-search"
	ActionShowEditCharacterModal Action = "show-edit-character-modal"
	ActionShowEditMediaModal     Action = "show-edit-media-modal"
	ActionToggleSelectMode       Action = "toggle-select-mode"
	ActionToggleSelectItem       Action = "toggle-select-item"
	ActionDeleteSelected         Action = "delete-selected"
	ActionLoadMore               Action = "load-more"
	ActionShowChangePassword     Action = "show-change-password"
	ActionDeleteAccount          Action = "delete-account"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrMissingID     = errors.New("action requires a valid id")
)

// actions lists every action and whether it targets an item.
var actions = map[Action]bool{
	ActionShowLogin:              false,
	ActionShowSignup:             false,
	ActionLogout:                 false,
	ActionShowCreateMenu:         false,
	ActionCloseModal:             false,
	ActionShowCharacterModal:     false,
	ActionShowMediaModal:         false,
	ActionShowFilterModal:        false,
	ActionResetFilters:           false,
	ActionClearAllFilters:        false,
	ActionNavigateHome:           false,
	ActionViewMedia:              true,
	ActionDeleteMedia:            true,
	ActionDeleteCharacter:        true,
	ActionClearSearch:            false,
	ActionShowEditCharacterModal: true,
	ActionShowEditMediaModal:     true,
	ActionToggleSelectMode:       false,
	ActionToggleSelectItem:       true,
	ActionDeleteSelected:         false,
	ActionLoadMore:               false,
	ActionShowChangePassword:     false,
	ActionDeleteAccount:          false,
}

func ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(s))
	if _, ok := actions[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// NeedsID reports whether the action targets a single item.
func (a Action) NeedsID() bool {
	return actions[a]
}

type Command struct {
	Action Action
	ID     uuid.UUID
}

// ParseCommand parses the action tag and, when the action needs one, the
// id of its target.
func ParseCommand(action, id string) (Command, error) {
	a, err := ParseAction(action)
	if err != nil {
		return Command{}, err
	}

	cmd := Command{Action: a}
	if !a.NeedsID() {
		return cmd, nil
	}

	cmd.ID, err = uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Command{}, fmt.Errorf("%w: %s", ErrMissingID, a)
	}

	return cmd, nil
}
