package models

import (
	"io"
	"time"

	"github.com/google/uuid"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

func (t MediaType) Valid() bool {
	return t == MediaTypeImage || t == MediaTypeVideo
}

// MediaItem is a single post in the gallery. Exactly one source kind is
// active at a time, see Source and SetSource.
type MediaItem struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	CharacterID  *uuid.UUID `json:"character_id" db:"character_id"`
	Name         string     `json:"name" db:"name"`
	URL          string     `json:"url" db:"url"` // embed markup when IsEmbed
	Type         MediaType  `json:"type" db:"type"`
	IsEmbed      bool       `json:"is_embed" db:"is_embed"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	StoragePath  *string    `json:"storage_path" db:"storage_path"`
	Tags         []string   `json:"tags" db:"tags"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`

	Character *Character `json:"character,omitempty" db:"-"`
}

type SourceKind string

const (
	SourceUpload SourceKind = "upload"
	SourceLink   SourceKind = "link"
	SourceEmbed  SourceKind = "embed"
)

func (k SourceKind) Valid() bool {
	switch k {
	case SourceUpload, SourceLink, SourceEmbed:
		return true
	}
	return false
}

// MediaSource is one of UploadSource, LinkSource or EmbedSource.
type MediaSource interface {
	Kind() SourceKind
	isMediaSource()
}

// UploadSource is a file that lives in the object store.
type UploadSource struct {
	StoragePath  string
	URL          string
	Type         MediaType
	ThumbnailURL string
}

// LinkSource points at a file hosted elsewhere.
type LinkSource struct {
	URL  string
	Type MediaType
}

// EmbedSource is externally hosted markup, e.g. an iframe snippet.
type EmbedSource struct {
	Code         string
	ThumbnailURL string
}

func (UploadSource) Kind() SourceKind { return SourceUpload }
func (LinkSource) Kind() SourceKind   { return SourceLink }
func (EmbedSource) Kind() SourceKind  { return SourceEmbed }

func (UploadSource) isMediaSource() {}
func (LinkSource) isMediaSource()   {}
func (EmbedSource) isMediaSource()  {}

// Source reports the active source of the item.
func (m *MediaItem) Source() MediaSource {
	switch {
	case m.IsEmbed:
		return EmbedSource{Code: m.URL, ThumbnailURL: m.ThumbnailURL}
	case m.StoragePath != nil:
		return UploadSource{
			StoragePath:  *m.StoragePath,
			URL:          m.URL,
			Type:         m.Type,
			ThumbnailURL: m.ThumbnailURL,
		}
	default:
		return LinkSource{URL: m.URL, Type: m.Type}
	}
}

// SetSource replaces the source of the item and clears every field of the
// previous kind. It returns the storage path owned by the previous source
// when the new source no longer references it, "" otherwise.
func (m *MediaItem) SetSource(src MediaSource) (released string) {
	var prev string
	if m.StoragePath != nil {
		prev = *m.StoragePath
	}

	m.URL = ""
	m.Type = ""
	m.IsEmbed = false
	m.ThumbnailURL = ""
	m.StoragePath = nil

	switch s := src.(type) {
	case UploadSource:
		path := s.StoragePath
		m.StoragePath = &path
		m.URL = s.URL
		m.Type = s.Type
		m.ThumbnailURL = s.ThumbnailURL
	case LinkSource:
		m.URL = s.URL
		m.Type = s.Type
	case EmbedSource:
		m.IsEmbed = true
		m.URL = s.Code
		m.Type = MediaTypeVideo
		m.ThumbnailURL = s.ThumbnailURL
	}

	if prev != "" && (m.StoragePath == nil || *m.StoragePath != prev) {
		return prev
	}

	return ""
}

// MediaDraft is the user editable part of a media item.
type MediaDraft struct {
	CharacterID *uuid.UUID
	Name        string
	Tags        []string
	Source      MediaSource
}

// Apply copies the draft onto m and returns the storage path that the
// previous source owned and no longer uses.
func (d MediaDraft) Apply(m *MediaItem) (released string) {
	m.CharacterID = d.CharacterID
	m.Name = d.Name
	m.Tags = d.Tags
	if m.Tags == nil {
		m.Tags = []string{}
	}

	return m.SetSource(d.Source)
}

// FileUpload is a file picked for upload that has not reached the object
// store yet.
type FileUpload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// MediaPage is one page of a filtered listing.
type MediaPage struct {
	Items   []MediaItem `json:"items"`
	HasMore bool        `json:"has_more"`
	Total   int         `json:"total"`
}
