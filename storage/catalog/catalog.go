// Package catalog holds the portfolio's relational records: projects and their
// media, project types, categories, studio copy and admin users.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrInUse            = errors.New("referenced by other records")
	ErrInvalidReference = errors.New("references a missing record")
	ErrNothingToUpdate  = errors.New("nothing to update")
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

const (
	PublicProjectLimit = 100
	AdminProjectLimit  = 200
)

type Project struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Location      *string    `json:"location"`
	Description   *string    `json:"description,omitempty"`
	ProjectTypeID *int64     `json:"project_type_id"`
	Scope         *string    `json:"scope"`
	Year          *int64     `json:"year"`
	Status        string     `json:"status"`
	Area          *string    `json:"area"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type ProjectFilter struct {
	Query         string
	Status        string
	ProjectTypeID int64
	Limit         int
}

type ProjectType struct {
	ID   int64  `json:"id"`
	Name string `json:"project_type"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type StudioType string

const (
	StudioProfile     StudioType = "profile"
	StudioPhilosophy  StudioType = "philosophy"
	StudioAchievement StudioType = "achievement"
)

func ParseStudioType(s string) (StudioType, bool) {
	switch t := StudioType(strings.ToLower(strings.TrimSpace(s))); t {
	case StudioProfile, StudioPhilosophy, StudioAchievement:
		return t, true
	}
	return "", false
}

type Studio struct {
	ID          int64      `json:"id"`
	Type        StudioType `json:"type"`
	Description *string    `json:"description"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaAsset is one stored rendition attached to a project. BaseKey and
// Variant are kept as separate columns; StorageKey is derived from them at
// insert time and never re-parsed.
type MediaAsset struct {
	ID              int64     `json:"id"`
	ParentID        int64     `json:"project_id"`
	Kind            MediaKind `json:"type"`
	BaseKey         string    `json:"base_key"`
	Variant         string    `json:"variant,omitempty"`
	StorageKey      string    `json:"file_path"`
	ThumbKey        *string   `json:"thumb_path"`
	MimeType        string    `json:"mime_type"`
	Alt             *string   `json:"alt"`
	SortOrder       int64     `json:"sort_order"`
	DurationSeconds *float64  `json:"duration"`
	Width           int       `json:"width,omitempty"`
	Height          int       `json:"height,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Keys lists every object-store key backing the asset, without duplicates.
func (m MediaAsset) Keys() []string {
	keys := []string{}
	if m.StorageKey != "" {
		keys = append(keys, m.StorageKey)
	}
	if m.ThumbKey != nil && *m.ThumbKey != "" && *m.ThumbKey != m.StorageKey {
		keys = append(keys, *m.ThumbKey)
	}
	return keys
}

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsAdmin      bool
}

// Assignment sets one column. Patches keep the caller's field order so the
// generated UPDATE statement is deterministic.
type Assignment struct {
	Column string
	Value  any
}

type Patch []Assignment

func (p Patch) Set(column string, value any) Patch {
	return append(p, Assignment{Column: column, Value: value})
}

func (p Patch) validate(allowed map[string]bool) error {
	if len(p) == 0 {
		return ErrNothingToUpdate
	}
	for _, a := range p {
		if !allowed[a.Column] {
			return fmt.Errorf("column %q cannot be updated", a.Column)
		}
	}
	return nil
}

var (
	ProjectColumns = map[string]bool{
		"title": true, "location": true, "description": true, "project_type_id": true,
		"scope": true, "year": true, "status": true, "area": true,
	}
	MediaColumns = map[string]bool{"alt": true, "sort_order": true}
)

type ProjectStore interface {
	List(ctx context.Context, filter ProjectFilter) ([]Project, error)
	ListPublished(ctx context.Context, limit int) ([]Project, error)
	Get(ctx context.Context, id int64, publishedOnly bool) (*Project, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, p *Project) (int64, error)
	Update(ctx context.Context, id int64, patch Patch) error
	// Delete removes the project and its media rows, returning the object keys
	// those rows referenced.
	Delete(ctx context.Context, id int64) ([]string, error)
	SetCategories(ctx context.Context, id int64, categoryIDs []int64) error
	Categories(ctx context.Context, id int64) ([]Category, error)
}

type ProjectTypeStore interface {
	List(ctx context.Context, query string) ([]ProjectType, error)
	ListAll(ctx context.Context) ([]ProjectType, error)
	Create(ctx context.Context, name string) (*ProjectType, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

type CategoryStore interface {
	List(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, name string) (*Category, error)
	Delete(ctx context.Context, id int64) error
}

type StudioStore interface {
	Get(ctx context.Context, t StudioType) (*Studio, error)
	Upsert(ctx context.Context, t StudioType, description *string) (*Studio, error)
	UpdateDescription(ctx context.Context, t StudioType, description *string) error
	Delete(ctx context.Context, t StudioType) error
}

type MediaStore interface {
	// InsertBatch writes every row in one statement and returns them with ids assigned.
	InsertBatch(ctx context.Context, rows []MediaAsset) ([]MediaAsset, error)
	Patch(ctx context.Context, parentID, id int64, patch Patch) error
	// Delete removes one row scoped to its parent and returns it for key cleanup.
	Delete(ctx context.Context, parentID, id int64) (*MediaAsset, error)
	List(ctx context.Context, parentID int64) ([]MediaAsset, error)
	// Covers returns the first image (by sort order) of each listed parent.
	Covers(ctx context.Context, parentIDs []int64) (map[int64]MediaAsset, error)
	KeysForParent(ctx context.Context, parentID int64) ([]string, error)
}

type UserStore interface {
	ByEmail(ctx context.Context, email string) (*User, error)
	UpsertAdmin(ctx context.Context, email, passwordHash string) (int64, error)
}

// Catalog bundles every store behind one handle.
type Catalog struct {
	Projects   ProjectStore
	Types      ProjectTypeStore
	Categories CategoryStore
	Studio     StudioStore
	Media      MediaStore
	Users      UserStore

	ping  func(ctx context.Context) error
	close func() error
}

func New(projects ProjectStore, types ProjectTypeStore, categories CategoryStore, studio StudioStore, media MediaStore, users UserStore, ping func(context.Context) error, closeFn func() error) *Catalog {
	return &Catalog{
		Projects:   projects,
		Types:      types,
		Categories: categories,
		Studio:     studio,
		Media:      media,
		Users:      users,
		ping:       ping,
		close:      closeFn,
	}
}

func (c *Catalog) Ping(ctx context.Context) error {
	if c.ping == nil {
		return nil
	}
	return c.ping(ctx)
}

func (c *Catalog) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}
