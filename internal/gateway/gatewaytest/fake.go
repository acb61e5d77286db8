// Package gatewaytest provides an in-memory Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"boltvault/internal/domain/models"
	"boltvault/internal/gateway"
	"boltvault/internal/storage"

	"github.com/google/uuid"
)

// Fake implements gateway.Gateway over in-memory slices. Errors set in
// Fail are returned by the named method; Before hooks run at the start of
// the named method without holding the lock.
type Fake struct {
	mu sync.Mutex

	Size int

	Characters []models.Character
	Media      []models.MediaItem
	Files      map[string][]byte
	Profiles   map[uuid.UUID]models.Profile

	Fail   map[string]error
	Before map[string]func(ctx context.Context)
	calls  map[string]int
	now    time.Time
}

var _ gateway.Gateway = (*Fake)(nil)

func New(pageSize int) *Fake {
	return &Fake{
		Size:     pageSize,
		Files:    map[string][]byte{},
		Profiles: map[uuid.UUID]models.Profile{},
		Fail:     map[string]error{},
		Before:   map[string]func(ctx context.Context){},
		calls:    map[string]int{},
		now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Calls returns how many times method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// SetFail sets or clears the error returned by method.
func (f *Fake) SetFail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Fail, method)
		return
	}
	f.Fail[method] = err
}

// SetBefore installs a hook run when method is entered.
func (f *Fake) SetBefore(method string, hook func(ctx context.Context)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hook == nil {
		delete(f.Before, method)
		return
	}
	f.Before[method] = hook
}

// AddMedia seeds an item owned by userID with increasing creation times.
func (f *Fake) AddMedia(userID uuid.UUID, item models.MediaItem) models.MediaItem {
	f.mu.Lock()
	defer f.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.UserID = userID
	if item.Type == "" {
		item.Type = models.MediaTypeImage
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	f.now = f.now.Add(time.Minute)
	item.CreatedAt = f.now

	f.Media = append(f.Media, item)
	return item
}

// AddCharacter seeds a character owned by userID.
func (f *Fake) AddCharacter(userID uuid.UUID, name string) models.Character {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := models.Character{ID: uuid.New(), UserID: userID, Name: name, CreatedAt: f.now}
	f.Characters = append(f.Characters, c)
	return c
}

func (f *Fake) enter(ctx context.Context, method string) (*models.Session, error) {
	f.mu.Lock()
	f.calls[method]++
	hook := f.Before[method]
	f.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}

	f.mu.Lock()
	err := f.Fail[method]
	f.mu.Unlock()

	if err != nil {
		return gateway.SessionFrom(ctx), &gateway.RemoteError{Op: "gatewaytest." + method, Message: err.Error(), Err: err}
	}

	return gateway.SessionFrom(ctx), nil
}

func (f *Fake) mustSession(ctx context.Context, method string) (*models.Session, error) {
	s, err := f.enter(ctx, method)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, &gateway.AuthRequiredError{Op: "gatewaytest." + method}
	}
	return s, nil
}

func notFound(method string) error {
	return &gateway.RemoteError{Op: "gatewaytest." + method, Message: "The requested item was not found.", Err: storage.ErrNotFound}
}

func (f *Fake) PageSize() int {
	return f.Size
}

func (f *Fake) CurrentUser(ctx context.Context) *models.Session {
	return gateway.SessionFrom(ctx)
}

func (f *Fake) ListCharacters(ctx context.Context) ([]models.Character, error) {
	s, err := f.enter(ctx, "ListCharacters")
	if err != nil {
		return nil, err
	}

	out := []models.Character{}
	if s == nil {
		return out, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.Characters {
		if c.UserID == s.UserID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (f *Fake) GetCharacter(ctx context.Context, id uuid.UUID) (models.Character, error) {
	s, err := f.mustSession(ctx, "GetCharacter")
	if err != nil {
		return models.Character{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.Characters {
		if c.ID == id && c.UserID == s.UserID {
			return c, nil
		}
	}

	return models.Character{}, notFound("GetCharacter")
}

func (f *Fake) CreateCharacter(ctx context.Context, in models.CharacterInput) (models.Character, error) {
	s, err := f.mustSession(ctx, "CreateCharacter")
	if err != nil {
		return models.Character{}, err
	}

	c := models.Character{ID: uuid.New(), UserID: s.UserID, Name: in.Name, Bio: in.Bio, ProfilePictureURL: in.ProfilePictureURL}

	f.mu.Lock()
	f.Characters = append(f.Characters, c)
	f.mu.Unlock()

	return c, nil
}

func (f *Fake) UpdateCharacter(ctx context.Context, id uuid.UUID, in models.CharacterInput) (models.Character, error) {
	s, err := f.mustSession(ctx, "UpdateCharacter")
	if err != nil {
		return models.Character{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i, c := range f.Characters {
		if c.ID == id && c.UserID == s.UserID {
			c.Name, c.Bio, c.ProfilePictureURL = in.Name, in.Bio, in.ProfilePictureURL
			f.Characters[i] = c
			return c, nil
		}
	}

	return models.Character{}, notFound("UpdateCharacter")
}

// DeleteCharacter removes the character and unassigns its media.
func (f *Fake) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	s, err := f.mustSession(ctx, "DeleteCharacter")
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.Characters[:0]
	found := false
	for _, c := range f.Characters {
		if c.ID == id && c.UserID == s.UserID {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	f.Characters = kept

	if !found {
		return notFound("DeleteCharacter")
	}

	for i := range f.Media {
		if f.Media[i].CharacterID != nil && *f.Media[i].CharacterID == id {
			f.Media[i].CharacterID = nil
		}
	}

	return nil
}

func (f *Fake) ListMedia(ctx context.Context, spec models.FilterSpec, page int) (models.MediaPage, error) {
	s, err := f.enter(ctx, "ListMedia")
	if err != nil {
		return models.MediaPage{}, err
	}
	if s == nil {
		return models.MediaPage{Items: []models.MediaItem{}}, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	matched := []models.MediaItem{}
	for _, m := range f.Media {
		if m.UserID != s.UserID {
			continue
		}
		if spec.FilterByType != "" && m.Type != spec.FilterByType {
			continue
		}
		if spec.FilterByCharacter != nil && (m.CharacterID == nil || *m.CharacterID != *spec.FilterByCharacter) {
			continue
		}
		if spec.FilterByTag != "" && !contains(m.Tags, spec.FilterByTag) {
			continue
		}
		matched = append(matched, f.withCharacter(m))
	}

	field, dir := spec.Order()
	sort.SliceStable(matched, func(i, j int) bool {
		var less bool
		if field == models.SortByName {
			less = matched[i].Name < matched[j].Name
		} else {
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if dir == models.SortDesc {
			if field == models.SortByName {
				return matched[i].Name > matched[j].Name
			}
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return less
	})

	if page < 0 {
		page = 0
	}
	total := len(matched)
	start := page * f.Size
	if start > total {
		start = total
	}
	end := start + f.Size
	if end > total {
		end = total
	}

	return models.MediaPage{
		Items:   append([]models.MediaItem{}, matched[start:end]...),
		Total:   total,
		HasMore: (page+1)*f.Size < total,
	}, nil
}

func (f *Fake) SearchMedia(ctx context.Context, term string) ([]models.MediaItem, error) {
	s, err := f.enter(ctx, "SearchMedia")
	if err != nil {
		return nil, err
	}

	out := []models.MediaItem{}
	term = strings.TrimSpace(term)
	if s == nil || term == "" {
		return out, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	needle := strings.ToLower(term)
	for _, m := range f.Media {
		if m.UserID != s.UserID {
			continue
		}
		m = f.withCharacter(m)
		switch {
		case strings.Contains(strings.ToLower(m.Name), needle),
			contains(m.Tags, term),
			m.Character != nil && strings.Contains(strings.ToLower(m.Character.Name), needle):
			out = append(out, m)
		}
	}

	return out, nil
}

func (f *Fake) ListMediaByCharacter(ctx context.Context, characterID uuid.UUID) ([]models.MediaItem, error) {
	s, err := f.mustSession(ctx, "ListMediaByCharacter")
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.MediaItem{}
	for _, m := range f.Media {
		if m.UserID == s.UserID && m.CharacterID != nil && *m.CharacterID == characterID {
			out = append(out, f.withCharacter(m))
		}
	}

	return out, nil
}

func (f *Fake) UniqueTags(ctx context.Context) ([]string, error) {
	s, err := f.enter(ctx, "UniqueTags")
	if err != nil {
		return nil, err
	}

	tags := []string{}
	if s == nil {
		return tags, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	seen := map[string]bool{}
	for _, m := range f.Media {
		if m.UserID != s.UserID {
			continue
		}
		for _, t := range m.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)

	return tags, nil
}

func (f *Fake) GetMedia(ctx context.Context, id uuid.UUID) (models.MediaItem, error) {
	s, err := f.mustSession(ctx, "GetMedia")
	if err != nil {
		return models.MediaItem{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, m := range f.Media {
		if m.ID == id && m.UserID == s.UserID {
			return f.withCharacter(m), nil
		}
	}

	return models.MediaItem{}, notFound("GetMedia")
}

func (f *Fake) CreateMedia(ctx context.Context, draft models.MediaDraft) (models.MediaItem, error) {
	s, err := f.mustSession(ctx, "CreateMedia")
	if err != nil {
		return models.MediaItem{}, err
	}

	item := models.MediaItem{}
	draft.Apply(&item)

	return f.AddMedia(s.UserID, item), nil
}

func (f *Fake) UpdateMedia(ctx context.Context, id uuid.UUID, draft models.MediaDraft) (models.MediaItem, error) {
	s, err := f.mustSession(ctx, "UpdateMedia")
	if err != nil {
		return models.MediaItem{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for i, m := range f.Media {
		if m.ID == id && m.UserID == s.UserID {
			if released := draft.Apply(&m); released != "" {
				delete(f.Files, released)
			}
			f.Media[i] = m
			return m, nil
		}
	}

	return models.MediaItem{}, notFound("UpdateMedia")
}

func (f *Fake) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	s, err := f.mustSession(ctx, "DeleteMedia")
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.remove(s.UserID, map[uuid.UUID]bool{id: true}) {
		return notFound("DeleteMedia")
	}

	return nil
}

func (f *Fake) DeleteMediaBatch(ctx context.Context, ids []uuid.UUID) error {
	s, err := f.mustSession(ctx, "DeleteMediaBatch")
	if err != nil {
		return err
	}

	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.remove(s.UserID, set)

	return nil
}

func (f *Fake) UploadFile(ctx context.Context, filename string, r io.Reader) (gateway.Upload, error) {
	s, err := f.mustSession(ctx, "UploadFile")
	if err != nil {
		return gateway.Upload{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return gateway.Upload{}, err
	}

	path := fmt.Sprintf("%s/%s_%s", s.UserID, uuid.NewString(), filename)

	f.mu.Lock()
	f.Files[path] = data
	f.mu.Unlock()

	return gateway.Upload{URL: "http://files.test/" + path, StoragePath: path, Type: models.MediaTypeImage}, nil
}

func (f *Fake) DeleteStoredFile(ctx context.Context, path string) error {
	if _, err := f.mustSession(ctx, "DeleteStoredFile"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.Files, path)
	return nil
}

func (f *Fake) GetProfile(ctx context.Context) (models.Profile, error) {
	s, err := f.mustSession(ctx, "GetProfile")
	if err != nil {
		return models.Profile{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.Profiles[s.UserID]
	if !ok {
		p = models.Profile{UserID: s.UserID}
	}
	return p, nil
}

func (f *Fake) UpdateProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	s, err := f.mustSession(ctx, "UpdateProfile")
	if err != nil {
		return models.Profile{}, err
	}

	p.UserID = s.UserID

	f.mu.Lock()
	f.Profiles[s.UserID] = p
	f.mu.Unlock()

	return p, nil
}

func (f *Fake) DeleteAccount(ctx context.Context) error {
	s, err := f.mustSession(ctx, "DeleteAccount")
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	all := map[uuid.UUID]bool{}
	for _, m := range f.Media {
		if m.UserID == s.UserID {
			all[m.ID] = true
		}
	}
	f.remove(s.UserID, all)

	kept := f.Characters[:0]
	for _, c := range f.Characters {
		if c.UserID != s.UserID {
			kept = append(kept, c)
		}
	}
	f.Characters = kept
	delete(f.Profiles, s.UserID)

	return nil
}

// remove deletes the user's items in ids together with their files.
func (f *Fake) remove(userID uuid.UUID, ids map[uuid.UUID]bool) bool {
	kept := f.Media[:0]
	removed := false
	for _, m := range f.Media {
		if m.UserID == userID && ids[m.ID] {
			removed = true
			if m.StoragePath != nil {
				delete(f.Files, *m.StoragePath)
			}
			continue
		}
		kept = append(kept, m)
	}
	f.Media = kept

	return removed
}

func (f *Fake) withCharacter(m models.MediaItem) models.MediaItem {
	m.Character = nil
	if m.CharacterID == nil {
		return m
	}
	for _, c := range f.Characters {
		if c.ID == *m.CharacterID {
			c := c
			m.Character = &c
			break
		}
	}
	return m
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
