// Package form turns raw modal input into validated drafts.
package form

import (
	"context"
	"strings"

	"boltvault/internal/domain/models"
	"boltvault/internal/gateway"

	"github.com/google/uuid"
)

const (
	MsgFileRequired      = "Please select a file to upload"
	MsgURLRequired       = "Media URL is required"
	MsgEmbedRequired     = "Embed Code is required"
	MsgTitleRequired     = "Post Title is required"
	MsgCharacterRequired = "Please select a character."
	MsgInvalidType       = "Please choose image or video"
	MsgInvalidCharacter  = "Unknown character"
)

// UploadFunc stores a picked file and returns it as an upload source.
type UploadFunc func(ctx context.Context, file models.FileUpload) (models.UploadSource, error)

// MediaForm holds the inputs of the create and edit media modals. Only the
// inputs of the active Kind are ever kept; switching kind drops the rest.
type MediaForm struct {
	kind models.SourceKind

	CharacterID string
	Name        string
	Tags        string

	// upload
	file     *models.FileUpload
	existing *models.UploadSource

	// link
	url       string
	mediaType models.MediaType

	// embed
	embedCode      string
	embedThumbnail string
}

// NewMediaForm returns an empty form on the upload tab.
func NewMediaForm() *MediaForm {
	return &MediaForm{kind: models.SourceUpload}
}

// EditMediaForm returns a form prefilled from an existing item.
func EditMediaForm(item models.MediaItem) *MediaForm {
	f := &MediaForm{
		Name: item.Name,
		Tags: strings.Join(item.Tags, ", "),
	}
	if item.CharacterID != nil {
		f.CharacterID = item.CharacterID.String()
	}

	switch src := item.Source().(type) {
	case models.UploadSource:
		f.kind = models.SourceUpload
		f.existing = &src
	case models.LinkSource:
		f.kind = models.SourceLink
		f.url = src.URL
		f.mediaType = src.Type
	case models.EmbedSource:
		f.kind = models.SourceEmbed
		f.embedCode = src.Code
		f.embedThumbnail = src.ThumbnailURL
	}

	return f
}

func (f *MediaForm) Kind() models.SourceKind {
	return f.kind
}

// SetKind switches the active tab and clears the inputs of every other
// kind. Unknown kinds are ignored.
func (f *MediaForm) SetKind(k models.SourceKind) {
	if !k.Valid() {
		return
	}

	f.kind = k

	if k != models.SourceUpload {
		f.file = nil
		f.existing = nil
	}
	if k != models.SourceLink {
		f.url = ""
		f.mediaType = ""
	}
	if k != models.SourceEmbed {
		f.embedCode = ""
		f.embedThumbnail = ""
	}
}

// SetFile picks a file on the upload tab.
func (f *MediaForm) SetFile(file *models.FileUpload) {
	f.SetKind(models.SourceUpload)
	f.file = file
}

// SetLink fills the link tab.
func (f *MediaForm) SetLink(url string, t models.MediaType) {
	f.SetKind(models.SourceLink)
	f.url = strings.TrimSpace(url)
	f.mediaType = t
}

// SetEmbed fills the embed tab.
func (f *MediaForm) SetEmbed(code, thumbnailURL string) {
	f.SetKind(models.SourceEmbed)
	f.embedCode = strings.TrimSpace(code)
	f.embedThumbnail = strings.TrimSpace(thumbnailURL)
}

// PendingFile returns the file that Build would upload, if any.
func (f *MediaForm) PendingFile() *models.FileUpload {
	if f.kind != models.SourceUpload {
		return nil
	}
	return f.file
}

// Validate checks the inputs without touching the backend.
func (f *MediaForm) Validate() error {
	if strings.TrimSpace(f.CharacterID) == "" {
		return gateway.NewValidationError("character_id", MsgCharacterRequired)
	}
	if _, err := uuid.Parse(strings.TrimSpace(f.CharacterID)); err != nil {
		return gateway.NewValidationError("character_id", MsgInvalidCharacter)
	}

	if strings.TrimSpace(f.Name) == "" {
		return gateway.NewValidationError("name", MsgTitleRequired)
	}

	switch f.kind {
	case models.SourceUpload:
		if f.file == nil && f.existing == nil {
			return gateway.NewValidationError("file", MsgFileRequired)
		}
	case models.SourceLink:
		if f.url == "" {
			return gateway.NewValidationError("url", MsgURLRequired)
		}
		if !f.mediaType.Valid() {
			return gateway.NewValidationError("type", MsgInvalidType)
		}
	case models.SourceEmbed:
		if f.embedCode == "" {
			return gateway.NewValidationError("embed_code", MsgEmbedRequired)
		}
	}

	return nil
}

// Build validates the form and returns a draft with exactly one source.
// A newly picked file is stored through upload first; nothing is uploaded
// when validation fails.
func (f *MediaForm) Build(ctx context.Context, upload UploadFunc) (models.MediaDraft, error) {
	if err := f.Validate(); err != nil {
		return models.MediaDraft{}, err
	}

	characterID := uuid.MustParse(strings.TrimSpace(f.CharacterID))
	draft := models.MediaDraft{
		CharacterID: &characterID,
		Name:        strings.TrimSpace(f.Name),
		Tags:        ParseTags(f.Tags),
	}

	switch f.kind {
	case models.SourceUpload:
		if f.file == nil {
			draft.Source = *f.existing
			break
		}

		src, err := upload(ctx, *f.file)
		if err != nil {
			return models.MediaDraft{}, err
		}
		draft.Source = src
	case models.SourceLink:
		draft.Source = models.LinkSource{URL: f.url, Type: f.mediaType}
	case models.SourceEmbed:
		draft.Source = models.EmbedSource{Code: f.embedCode, ThumbnailURL: f.embedThumbnail}
	}

	return draft, nil
}

// ParseTags splits a comma separated list, trims every entry, drops empty
// ones and keeps the first occurrence of duplicates.
func ParseTags(raw string) []string {
	tags := []string{}
	seen := make(map[string]struct{})

	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	return tags
}
