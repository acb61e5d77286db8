package gallery

import (
	"strings"

	"boltvault/internal/domain/models"
)

// Query is what the gallery currently shows: either a filtered listing or
// a search. Holding exactly one value keeps the two mutually exclusive.
type Query interface {
	Active() bool
	isQuery()
}

// FilterQuery lists media page by page under Spec.
type FilterQuery struct {
	Spec models.FilterSpec
}

// SearchQuery runs the backend search for Term, unpaginated.
type SearchQuery struct {
	Term string
}

func (q FilterQuery) Active() bool { return q.Spec.Active() }
func (q SearchQuery) Active() bool { return true }

func (FilterQuery) isQuery() {}
func (SearchQuery) isQuery() {}

// searchOrClear returns a SearchQuery for term, or an empty FilterQuery
// when term is blank.
func searchOrClear(term string) Query {
	term = strings.TrimSpace(term)
	if term == "" {
		return FilterQuery{}
	}
	return SearchQuery{Term: term}
}

type EmptyState string

const (
	EmptyNone      EmptyState = "none"
	EmptyLogin     EmptyState = "login"
	EmptyGallery   EmptyState = "empty-gallery"
	EmptyNoResults EmptyState = "no-results"
)

// EmptyStateFor picks the message for an empty listing. Active filters or
// search always win over the account state.
func EmptyStateFor(authenticated, active bool, count int) EmptyState {
	switch {
	case count > 0:
		return EmptyNone
	case active:
		return EmptyNoResults
	case authenticated:
		return EmptyGallery
	default:
		return EmptyLogin
	}
}
