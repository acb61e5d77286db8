package models

import "github.com/google/uuid"

type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByName      SortField = "name"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// FilterSpec constrains and orders a media listing. Zero fields mean "no
// constraint".
type FilterSpec struct {
	SortBy                SortField     `json:"sortBy,omitempty" form:"sortBy" validate:"omitempty,oneof=created_at name"`
	SortDirection         SortDirection `json:"sortDirection,omitempty" form:"sortDirection" validate:"omitempty,oneof=asc desc"`
	FilterByType          MediaType     `json:"filterByType,omitempty" form:"filterByType" validate:"omitempty,oneof=image video"`
	FilterByCharacter     *uuid.UUID    `json:"filterByCharacter,omitempty" form:"filterByCharacter"`
	FilterByCharacterName string        `json:"filterByCharacterName,omitempty" form:"filterByCharacterName"`
	FilterByTag           string        `json:"filterByTag,omitempty" form:"filterByTag" validate:"max=64"`
}

// Active reports whether any field is set.
func (f FilterSpec) Active() bool {
	return f.SortBy != "" ||
		f.SortDirection != "" ||
		f.FilterByType != "" ||
		f.FilterByCharacter != nil ||
		f.FilterByTag != ""
}

// Order returns the effective sort, newest first by default.
func (f FilterSpec) Order() (SortField, SortDirection) {
	field := f.SortBy
	if field != SortByName {
		field = SortByCreatedAt
	}

	dir := SortDesc
	if f.SortDirection == SortAsc {
		dir = SortAsc
	}

	return field, dir
}
