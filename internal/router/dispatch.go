package router

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"boltvault/internal/domain/models"
	"boltvault/internal/events"
	"boltvault/internal/gateway"
	"boltvault/internal/lib/logger/sl"
)

type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

type Toast struct {
	Message string    `json:"message"`
	Kind    ToastKind `json:"type"`
}

// Result tells the browser shell what to update. Empty fields leave the
// corresponding part of the page alone; ModalChanged with an empty Modal
// closes the modal container.
type Result struct {
	HTML         template.HTML `json:"html,omitempty"`
	Modal        template.HTML `json:"modal,omitempty"`
	ModalChanged bool          `json:"modal_changed"`
	Toast        *Toast        `json:"toast,omitempty"`
	Redirect     string        `json:"redirect,omitempty"`
	SignedOut    bool          `json:"signed_out,omitempty"`
}

func info(msg string) *Toast    { return &Toast{Message: msg, Kind: ToastInfo} }
func success(msg string) *Toast { return &Toast{Message: msg, Kind: ToastSuccess} }

func failure(prefix string, err error) *Toast {
	msg := gateway.Message(err)
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	return &Toast{Message: msg, Kind: ToastError}
}

// Dispatch runs one action. Errors never escape: they are logged and
// reported as an error toast.
func (r *Router) Dispatch(ctx context.Context, cmd Command) Result {
	const op = "router.Router.Dispatch"

	log := r.log.With(
		slog.String("op", op),
		slog.String("action", string(cmd.Action)),
	)

	switch cmd.Action {
	case ActionShowLogin:
		r.modals.Clear()
		return r.openModal(ctx, Modal{Kind: ModalLogin})

	case ActionShowSignup:
		r.modals.Clear()
		return r.openModal(ctx, Modal{Kind: ModalSignup})

	case ActionLogout:
		return r.signOut(ctx, log, false)

	case ActionShowCreateMenu:
		return r.openModal(ctx, Modal{Kind: ModalCreateMenu})

	case ActionCloseModal:
		r.modals.Dismiss()
		return r.modalResult(ctx)

	case ActionShowCharacterModal:
		return r.replaceCreateMenu(ctx, Modal{Kind: ModalCharacter})

	case ActionShowMediaModal:
		return r.replaceCreateMenu(ctx, Modal{Kind: ModalMedia})

	case ActionShowFilterModal:
		if r.modals.Open(ModalFilter) {
			return Result{}
		}
		return r.openModal(ctx, Modal{Kind: ModalFilter})

	case ActionResetFilters, ActionClearAllFilters:
		html := r.ApplyFilters(ctx, models.FilterSpec{})
		return Result{HTML: html, ModalChanged: true}

	case ActionNavigateHome:
		return Result{HTML: r.Navigate(ctx, ""), ModalChanged: true, Redirect: "#"}

	case ActionViewMedia:
		return r.openModal(ctx, Modal{Kind: ModalViewer, ID: cmd.ID})

	case ActionDeleteMedia:
		if err := r.gw.DeleteMedia(ctx, cmd.ID); err != nil {
			log.Error("failed to delete media", sl.Err(err))
			return Result{Toast: failure("Error deleting post", err)}
		}
		return Result{
			HTML:         r.DataChanged(ctx),
			ModalChanged: true,
			Toast:        info("Media post deleted successfully."),
		}

	case ActionDeleteCharacter:
		if err := r.gw.DeleteCharacter(ctx, cmd.ID); err != nil {
			log.Error("failed to delete character", sl.Err(err))
			return Result{Toast: failure("Error deleting character", err)}
		}
		if s := r.gw.CurrentUser(ctx); s != nil {
			r.bus.Publish(events.Data(s.UserID).From(r.origin))
		}
		return Result{
			HTML:         r.Navigate(ctx, ""),
			ModalChanged: true,
			Toast:        info("Character deleted successfully."),
			Redirect:     "#",
		}

	case ActionClearSearch:
		return Result{HTML: r.showGallery(ctx, func() error { return r.gallery.ClearSearch(ctx) })}

	case ActionShowEditCharacterModal:
		return r.openModal(ctx, Modal{Kind: ModalEditCharacter, ID: cmd.ID})

	case ActionShowEditMediaModal:
		return r.openModal(ctx, Modal{Kind: ModalEditMedia, ID: cmd.ID})

	case ActionToggleSelectMode:
		r.gallery.ToggleSelectMode()
		return Result{HTML: r.Render(ctx)}

	case ActionToggleSelectItem:
		r.gallery.ToggleItemSelection(cmd.ID)
		return Result{HTML: r.Render(ctx)}

	case ActionDeleteSelected:
		n := len(r.gallery.Snapshot().Selected)
		if err := r.gallery.DeleteSelected(ctx); err != nil {
			log.Error("failed to delete selection", sl.Err(err))
			return Result{Toast: failure("Error deleting posts", err)}
		}
		if s := r.gw.CurrentUser(ctx); s != nil {
			r.bus.Publish(events.Data(s.UserID).From(r.origin))
		}
		return Result{HTML: r.Render(ctx), Toast: info(deletedMessage(n))}

	case ActionLoadMore:
		if _, err := r.gallery.LoadMore(ctx); err != nil {
			log.Error("failed to load more", sl.Err(err))
			return Result{Toast: failure("Error loading media", err)}
		}
		return Result{HTML: r.Render(ctx)}

	case ActionShowChangePassword:
		return r.openModal(ctx, Modal{Kind: ModalChangePassword})

	case ActionDeleteAccount:
		if err := r.gw.DeleteAccount(ctx); err != nil {
			log.Error("failed to delete account", sl.Err(err))
			return Result{Toast: failure("Error deleting account", err)}
		}
		return r.signOut(ctx, log, true)
	}

	log.Warn("unhandled action")
	return Result{Toast: &Toast{Message: "Unknown action.", Kind: ToastError}}
}

// Submitted finishes a successful form submit: the modal closes, every
// view of the user refreshes and msg is shown.
func (r *Router) Submitted(ctx context.Context, msg string) Result {
	return Result{HTML: r.DataChanged(ctx), ModalChanged: true, Toast: success(msg)}
}

// SignedIn switches the workspace to the authenticated views.
func (r *Router) SignedIn(ctx context.Context) Result {
	if s := r.gw.CurrentUser(ctx); s != nil {
		r.bus.Publish(events.Auth(s.UserID, true).From(r.origin))
	}
	return Result{HTML: r.AuthChanged(ctx, true), ModalChanged: true, Redirect: "#"}
}

func (r *Router) signOut(ctx context.Context, log *slog.Logger, accountDeleted bool) Result {
	s := r.gw.CurrentUser(ctx)
	if s != nil {
		var err error
		if accountDeleted {
			err = r.sessions.RevokeAll(ctx, *s)
		} else {
			err = r.sessions.Logout(ctx, *s)
		}
		if err != nil && !accountDeleted {
			log.Error("failed to end session", sl.Err(err))
			return Result{Toast: failure("Error logging out", err)}
		}
		if err != nil {
			log.Warn("failed to revoke sessions of deleted account", sl.Err(err))
		}

		r.bus.Publish(events.Auth(s.UserID, false).From(r.origin))
	}

	msg := "You have been logged out."
	if accountDeleted {
		msg = "Your account has been deleted."
	}

	return Result{
		HTML:         r.AuthChanged(ctx, false),
		ModalChanged: true,
		Toast:        info(msg),
		Redirect:     "#",
		SignedOut:    true,
	}
}

func (r *Router) openModal(ctx context.Context, m Modal) Result {
	r.modals.Push(m)
	return r.modalResult(ctx)
}

// replaceCreateMenu swaps the create menu for m, or opens m on top.
func (r *Router) replaceCreateMenu(ctx context.Context, m Modal) Result {
	if top, ok := r.modals.Top(); ok && top.Kind == ModalCreateMenu {
		r.modals.Replace(m)
		return r.modalResult(ctx)
	}
	return r.openModal(ctx, m)
}

func (r *Router) modalResult(ctx context.Context) Result {
	const op = "router.Router.modalResult"

	html, err := r.ModalHTML(ctx)
	if err != nil {
		r.log.Error("failed to render modal", slog.String("op", op), sl.Err(err))

		// the failed modal is gone; show whatever is below it
		below, _ := r.ModalHTML(ctx)
		return Result{Modal: below, ModalChanged: true, Toast: failure("Error loading", err)}
	}

	return Result{Modal: html, ModalChanged: true}
}

func deletedMessage(n int) string {
	if n == 1 {
		return "1 media post deleted successfully."
	}
	return fmt.Sprintf("%d media posts deleted successfully.", n)
}
