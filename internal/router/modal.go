package router

import (
	"sync"

	"github.com/google/uuid"
)

type ModalKind string

const (
	ModalLogin          ModalKind = "login"
	ModalSignup         ModalKind = "signup"
	ModalCreateMenu     ModalKind = "create-menu"
	ModalCharacter      ModalKind = "character"
	ModalMedia          ModalKind = "media"
	ModalFilter         ModalKind = "filter"
	ModalViewer         ModalKind = "viewer"
	ModalEditCharacter  ModalKind = "edit-character"
	ModalEditMedia      ModalKind = "edit-media"
	ModalChangePassword ModalKind = "change-password"
)

type Modal struct {
	Kind ModalKind
	ID   uuid.UUID
}

// ModalStack holds the open modals; only the top one is shown.
type ModalStack struct {
	mu    sync.Mutex
	items []Modal
}

func (s *ModalStack) Push(m Modal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, m)
}

func (s *ModalStack) Pop() (Modal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return Modal{}, false
	}

	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, true
}

func (s *ModalStack) Top() (Modal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return Modal{}, false
	}
	return s.items[len(s.items)-1], true
}

// Dismiss closes the top modal and reports whether one was open.
func (s *ModalStack) Dismiss() bool {
	_, ok := s.Pop()
	return ok
}

// Replace swaps the top modal for m, or pushes m on an empty stack.
func (s *ModalStack) Replace(m Modal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		s.items = append(s.items, m)
		return
	}
	s.items[len(s.items)-1] = m
}

// Open reports whether a modal of kind k is anywhere on the stack.
func (s *ModalStack) Open(k ModalKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.items {
		if m.Kind == k {
			return true
		}
	}
	return false
}

func (s *ModalStack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

func (s *ModalStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
