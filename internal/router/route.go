// Package router maps URL fragments to pages, owns the modal stack and
// dispatches the actions of the browser shell.
package router

import (
	"strings"

	"github.com/google/uuid"
)

type Page string

const (
	PageLanding          Page = "landing"
	PageGallery          Page = "gallery"
	PageCharacterList    Page = "characters"
	PageCharacterProfile Page = "character"
	PageSettings         Page = "settings"
)

type Route struct {
	Page        Page
	CharacterID uuid.UUID
}

// Resolve maps a fragment to a route. Anonymous users always land on the
// landing page; unknown fragments and malformed character ids fall back
// to the gallery.
func Resolve(fragment string, authenticated bool) Route {
	if !authenticated {
		return Route{Page: PageLanding}
	}

	path := strings.TrimPrefix(strings.TrimPrefix(fragment, "#"), "/")

	switch {
	case path == "characters":
		return Route{Page: PageCharacterList}
	case path == "settings":
		return Route{Page: PageSettings}
	case strings.HasPrefix(path, "character/"):
		id, err := uuid.Parse(strings.Trim(strings.TrimPrefix(path, "character/"), "/"))
		if err != nil {
			return Route{Page: PageGallery}
		}
		return Route{Page: PageCharacterProfile, CharacterID: id}
	default:
		return Route{Page: PageGallery}
	}
}

// IsHome reports whether fragment is one of the bare gallery fragments.
// Navigating to them resets filters and search.
func IsHome(fragment string) bool {
	switch fragment {
	case "", "#", "#/", "/":
		return true
	}
	return false
}
