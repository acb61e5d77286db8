package request

import "github.com/google/uuid"

type BatchDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

type ListMediaRequest struct {
	SortBy            string `query:"sortBy" validate:"omitempty,oneof=created_at name"`
	SortDirection     string `query:"sortDirection" validate:"omitempty,oneof=asc desc"`
	FilterByType      string `query:"filterByType" validate:"omitempty,oneof=image video"`
	FilterByCharacter string `query:"filterByCharacter" validate:"omitempty,uuid"`
	FilterByTag       string `query:"filterByTag" validate:"max=64"`
	Page              int    `query:"page" validate:"min=0"`
}
