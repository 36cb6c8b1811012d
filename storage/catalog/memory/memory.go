// Package memory is an in-process catalog for development and tests. Data is
// lost on restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hsarchitect/folio/storage/catalog"
)

type state struct {
	mu sync.RWMutex

	now func() time.Time

	nextID     int64
	projects   map[int64]catalog.Project
	types      map[int64]catalog.ProjectType
	categories map[int64]catalog.Category
	links      map[int64]map[int64]bool
	studio     map[catalog.StudioType]catalog.Studio
	media      map[int64]catalog.MediaAsset
	users      map[string]catalog.User

	// failInsert lets tests exercise persistence failures.
	failInsert error
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store is an in-memory catalog. The zero value is not usable; call New.
type Store struct {
	st *state
}

func New() *Store {
	return &Store{st: &state{
		now:        time.Now,
		projects:   map[int64]catalog.Project{},
		types:      map[int64]catalog.ProjectType{},
		categories: map[int64]catalog.Category{},
		links:      map[int64]map[int64]bool{},
		studio:     map[catalog.StudioType]catalog.Studio{},
		media:      map[int64]catalog.MediaAsset{},
		users:      map[string]catalog.User{},
	}}
}

// Catalog exposes the store through the catalog handle used by the server.
func (s *Store) Catalog() *catalog.Catalog {
	return catalog.New(
		&projects{s.st},
		&projectTypes{s.st},
		&categories{s.st},
		&studio{s.st},
		&media{s.st},
		&users{s.st},
		nil,
		nil,
	)
}

// FailInserts makes every subsequent media batch insert return err. Pass nil to reset.
func (s *Store) FailInserts(err error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	s.st.failInsert = err
}

func contains(field *string, q string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), q)
}

func ptrValue[T any](v any) (*T, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case T:
		return &x, nil
	case *T:
		return x, nil
	default:
		return nil, fmt.Errorf("unexpected value type %T", v)
	}
}

type projects struct{ st *state }

func (p *projects) List(_ context.Context, filter catalog.ProjectFilter) ([]catalog.Project, error) {
	p.st.mu.RLock()
	defer p.st.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Query))
	out := []catalog.Project{}
	for _, pr := range p.st.projects {
		if q != "" && !strings.Contains(strings.ToLower(pr.Title), q) && !contains(pr.Location, q) && !contains(pr.Scope, q) {
			continue
		}
		if filter.Status != "" && pr.Status != filter.Status {
			continue
		}
		if filter.ProjectTypeID > 0 && (pr.ProjectTypeID == nil || *pr.ProjectTypeID != filter.ProjectTypeID) {
			continue
		}
		out = append(out, pr)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	limit := filter.Limit
	if limit <= 0 || limit > catalog.AdminProjectLimit {
		limit = catalog.AdminProjectLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (p *projects) ListPublished(ctx context.Context, limit int) ([]catalog.Project, error) {
	if limit <= 0 || limit > catalog.PublicProjectLimit {
		limit = catalog.PublicProjectLimit
	}
	return p.List(ctx, catalog.ProjectFilter{Status: catalog.StatusPublished, Limit: limit})
}

func (p *projects) Get(_ context.Context, id int64, publishedOnly bool) (*catalog.Project, error) {
	p.st.mu.RLock()
	defer p.st.mu.RUnlock()

	pr, ok := p.st.projects[id]
	if !ok || (publishedOnly && pr.Status != catalog.StatusPublished) {
		return nil, catalog.ErrNotFound
	}
	return &pr, nil
}

func (p *projects) Exists(_ context.Context, id int64) (bool, error) {
	p.st.mu.RLock()
	defer p.st.mu.RUnlock()

	_, ok := p.st.projects[id]
	return ok, nil
}

func (p *projects) Create(_ context.Context, pr *catalog.Project) (int64, error) {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()

	if pr.ProjectTypeID != nil {
		if _, ok := p.st.types[*pr.ProjectTypeID]; !ok {
			return 0, catalog.ErrInvalidReference
		}
	}

	rec := *pr
	rec.ID = p.st.id()
	rec.CreatedAt = p.st.now()
	rec.UpdatedAt = nil
	if rec.Status == "" {
		rec.Status = catalog.StatusDraft
	}
	p.st.projects[rec.ID] = rec

	return rec.ID, nil
}

func (p *projects) Update(_ context.Context, id int64, patch catalog.Patch) error {
	if len(patch) == 0 {
		return catalog.ErrNothingToUpdate
	}

	p.st.mu.Lock()
	defer p.st.mu.Unlock()

	pr, ok := p.st.projects[id]
	if !ok {
		return catalog.ErrNotFound
	}

	for _, a := range patch {
		if !catalog.ProjectColumns[a.Column] {
			return fmt.Errorf("column %q cannot be updated", a.Column)
		}
		if err := applyProject(p.st, &pr, a); err != nil {
			return err
		}
	}

	now := p.st.now()
	pr.UpdatedAt = &now
	p.st.projects[id] = pr

	return nil
}

func applyProject(st *state, pr *catalog.Project, a catalog.Assignment) error {
	var err error
	switch a.Column {
	case "title":
		title, ok := a.Value.(string)
		if !ok {
			return fmt.Errorf("title must be a string")
		}
		pr.Title = title
	case "status":
		status, ok := a.Value.(string)
		if !ok {
			return fmt.Errorf("status must be a string")
		}
		pr.Status = status
	case "location":
		pr.Location, err = ptrValue[string](a.Value)
	case "description":
		pr.Description, err = ptrValue[string](a.Value)
	case "scope":
		pr.Scope, err = ptrValue[string](a.Value)
	case "area":
		pr.Area, err = ptrValue[string](a.Value)
	case "year":
		pr.Year, err = ptrValue[int64](a.Value)
	case "project_type_id":
		pr.ProjectTypeID, err = ptrValue[int64](a.Value)
		if err == nil && pr.ProjectTypeID != nil {
			if _, ok := st.types[*pr.ProjectTypeID]; !ok {
				return catalog.ErrInvalidReference
			}
		}
	}
	return err
}

func (p *projects) Delete(_ context.Context, id int64) ([]string, error) {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()

	if _, ok := p.st.projects[id]; !ok {
		return nil, catalog.ErrNotFound
	}

	rows := mediaFor(p.st, id)
	seen := map[string]bool{}
	keys := []string{}
	for _, m := range rows {
		for _, k := range m.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		delete(p.st.media, m.ID)
	}

	delete(p.st.projects, id)
	delete(p.st.links, id)

	return keys, nil
}

func (p *projects) SetCategories(_ context.Context, id int64, categoryIDs []int64) error {
	p.st.mu.Lock()
	defer p.st.mu.Unlock()

	if _, ok := p.st.projects[id]; !ok {
		return catalog.ErrNotFound
	}

	set := map[int64]bool{}
	for _, cid := range categoryIDs {
		if cid <= 0 {
			continue
		}
		if _, ok := p.st.categories[cid]; !ok {
			return catalog.ErrInvalidReference
		}
		set[cid] = true
	}
	p.st.links[id] = set

	return nil
}

func (p *projects) Categories(_ context.Context, id int64) ([]catalog.Category, error) {
	p.st.mu.RLock()
	defer p.st.mu.RUnlock()

	out := []catalog.Category{}
	for cid := range p.st.links[id] {
		out = append(out, p.st.categories[cid])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

type projectTypes struct{ st *state }

func (t *projectTypes) List(_ context.Context, query string) ([]catalog.ProjectType, error) {
	t.st.mu.RLock()
	defer t.st.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := []catalog.ProjectType{}
	for _, pt := range t.st.types {
		if q == "" || strings.Contains(strings.ToLower(pt.Name), q) {
			out = append(out, pt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (t *projectTypes) ListAll(_ context.Context) ([]catalog.ProjectType, error) {
	t.st.mu.RLock()
	defer t.st.mu.RUnlock()

	out := make([]catalog.ProjectType, 0, len(t.st.types))
	for _, pt := range t.st.types {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (t *projectTypes) nameTaken(name string, except int64) bool {
	for _, pt := range t.st.types {
		if pt.ID != except && strings.EqualFold(pt.Name, name) {
			return true
		}
	}
	return false
}

func (t *projectTypes) Create(_ context.Context, name string) (*catalog.ProjectType, error) {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()

	if t.nameTaken(name, 0) {
		return nil, catalog.ErrConflict
	}

	pt := catalog.ProjectType{ID: t.st.id(), Name: name}
	t.st.types[pt.ID] = pt

	return &pt, nil
}

func (t *projectTypes) Rename(_ context.Context, id int64, name string) error {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()

	pt, ok := t.st.types[id]
	if !ok {
		return catalog.ErrNotFound
	}
	if t.nameTaken(name, id) {
		return catalog.ErrConflict
	}

	pt.Name = name
	t.st.types[id] = pt

	return nil
}

func (t *projectTypes) Delete(_ context.Context, id int64) error {
	t.st.mu.Lock()
	defer t.st.mu.Unlock()

	if _, ok := t.st.types[id]; !ok {
		return catalog.ErrNotFound
	}
	for _, pr := range t.st.projects {
		if pr.ProjectTypeID != nil && *pr.ProjectTypeID == id {
			return catalog.ErrInUse
		}
	}

	delete(t.st.types, id)
	return nil
}

type categories struct{ st *state }

func (c *categories) List(_ context.Context) ([]catalog.Category, error) {
	c.st.mu.RLock()
	defer c.st.mu.RUnlock()

	out := make([]catalog.Category, 0, len(c.st.categories))
	for _, cat := range c.st.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (c *categories) Create(_ context.Context, name string) (*catalog.Category, error) {
	c.st.mu.Lock()
	defer c.st.mu.Unlock()

	for _, cat := range c.st.categories {
		if strings.EqualFold(cat.Name, name) {
			return nil, catalog.ErrConflict
		}
	}

	cat := catalog.Category{ID: c.st.id(), Name: name}
	c.st.categories[cat.ID] = cat

	return &cat, nil
}

func (c *categories) Delete(_ context.Context, id int64) error {
	c.st.mu.Lock()
	defer c.st.mu.Unlock()

	if _, ok := c.st.categories[id]; !ok {
		return catalog.ErrNotFound
	}
	for _, set := range c.st.links {
		if set[id] {
			return catalog.ErrInUse
		}
	}

	delete(c.st.categories, id)
	return nil
}

type studio struct{ st *state }

func (s *studio) Get(_ context.Context, t catalog.StudioType) (*catalog.Studio, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()

	row, ok := s.st.studio[t]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &row, nil
}

func (s *studio) Upsert(_ context.Context, t catalog.StudioType, description *string) (*catalog.Studio, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	row, ok := s.st.studio[t]
	if !ok {
		row = catalog.Studio{ID: s.st.id(), Type: t}
	}
	now := s.st.now()
	row.Description = description
	row.UpdatedAt = &now
	s.st.studio[t] = row

	return &row, nil
}

func (s *studio) UpdateDescription(_ context.Context, t catalog.StudioType, description *string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	row, ok := s.st.studio[t]
	if !ok {
		return catalog.ErrNotFound
	}
	now := s.st.now()
	row.Description = description
	row.UpdatedAt = &now
	s.st.studio[t] = row

	return nil
}

func (s *studio) Delete(_ context.Context, t catalog.StudioType) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.st.studio[t]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.st.studio, t)
	return nil
}

type media struct{ st *state }

func mediaFor(st *state, parentID int64) []catalog.MediaAsset {
	out := []catalog.MediaAsset{}
	for _, m := range st.media {
		if m.ParentID == parentID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// InsertBatch is all or nothing: either every row is stored or none is.
func (m *media) InsertBatch(_ context.Context, rows []catalog.MediaAsset) ([]catalog.MediaAsset, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	m.st.mu.Lock()
	defer m.st.mu.Unlock()

	if m.st.failInsert != nil {
		return nil, m.st.failInsert
	}

	keys := map[string]bool{}
	for _, existing := range m.st.media {
		keys[existing.StorageKey] = true
	}
	for _, r := range rows {
		if _, ok := m.st.projects[r.ParentID]; !ok {
			return nil, catalog.ErrNotFound
		}
		if keys[r.StorageKey] {
			return nil, catalog.ErrConflict
		}
		keys[r.StorageKey] = true
	}

	out := slices.Clone(rows)
	now := m.st.now()
	for i := range out {
		out[i].ID = m.st.id()
		out[i].CreatedAt = now
		m.st.media[out[i].ID] = out[i]
	}

	return out, nil
}

func (m *media) Patch(_ context.Context, parentID, id int64, patch catalog.Patch) error {
	if len(patch) == 0 {
		return catalog.ErrNothingToUpdate
	}

	m.st.mu.Lock()
	defer m.st.mu.Unlock()

	row, ok := m.st.media[id]
	if !ok || row.ParentID != parentID {
		return catalog.ErrNotFound
	}

	for _, a := range patch {
		switch a.Column {
		case "alt":
			alt, err := ptrValue[string](a.Value)
			if err != nil {
				return err
			}
			row.Alt = alt
		case "sort_order":
			order, ok := a.Value.(int64)
			if !ok {
				return fmt.Errorf("sort_order must be an integer")
			}
			row.SortOrder = order
		default:
			return fmt.Errorf("column %q cannot be updated", a.Column)
		}
	}
	m.st.media[id] = row

	return nil
}

func (m *media) Delete(_ context.Context, parentID, id int64) (*catalog.MediaAsset, error) {
	m.st.mu.Lock()
	defer m.st.mu.Unlock()

	row, ok := m.st.media[id]
	if !ok || row.ParentID != parentID {
		return nil, catalog.ErrNotFound
	}
	delete(m.st.media, id)

	return &row, nil
}

func (m *media) List(_ context.Context, parentID int64) ([]catalog.MediaAsset, error) {
	m.st.mu.RLock()
	defer m.st.mu.RUnlock()

	return mediaFor(m.st, parentID), nil
}

func (m *media) Covers(_ context.Context, parentIDs []int64) (map[int64]catalog.MediaAsset, error) {
	m.st.mu.RLock()
	defer m.st.mu.RUnlock()

	covers := map[int64]catalog.MediaAsset{}
	for _, pid := range parentIDs {
		if _, done := covers[pid]; done {
			continue
		}
		for _, row := range mediaFor(m.st, pid) {
			if row.Kind == catalog.MediaImage {
				covers[pid] = row
				break
			}
		}
	}

	return covers, nil
}

func (m *media) KeysForParent(_ context.Context, parentID int64) ([]string, error) {
	m.st.mu.RLock()
	defer m.st.mu.RUnlock()

	rows := mediaFor(m.st, parentID)
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	seen := map[string]bool{}
	keys := []string{}
	for _, row := range rows {
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	return keys, nil
}

type users struct{ st *state }

func (u *users) ByEmail(_ context.Context, email string) (*catalog.User, error) {
	u.st.mu.RLock()
	defer u.st.mu.RUnlock()

	user, ok := u.st.users[strings.ToLower(email)]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &user, nil
}

func (u *users) UpsertAdmin(_ context.Context, email, passwordHash string) (int64, error) {
	u.st.mu.Lock()
	defer u.st.mu.Unlock()

	key := strings.ToLower(email)
	user, ok := u.st.users[key]
	if !ok {
		user = catalog.User{ID: u.st.id(), Email: email}
	}
	user.PasswordHash = passwordHash
	user.IsAdmin = true
	u.st.users[key] = user

	return user.ID, nil
}
