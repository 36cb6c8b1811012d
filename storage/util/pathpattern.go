package util

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// maxSlugLength keeps generated object keys well inside provider limits.
const maxSlugLength = 80

// KeyPattern represents a configurable pattern for generating object keys.
// It supports placeholders that get replaced with actual values:
//   - {parent}    - owning record id (e.g. "42"), "0" when there is none
//   - {timestamp} - upload time in unix milliseconds
//   - {index}     - position of the file within its batch
//   - {year}      - 4-digit year (e.g. "2026")
//   - {month}     - 2-digit month (e.g. "01")
//   - {slug}      - slug of the original filename without its extension
//   - {uuid}      - random UUID, for patterns that must never collide
//
// Example patterns:
//   - "projects/{parent}/{timestamp}-{index}-{slug}" → "projects/42/1767225600000-0-front-view"
//   - "studio/{year}/{month}/{uuid}-{slug}" → "studio/2026/01/5f0c…-team"
type KeyPattern struct {
	pattern string
}

// KeyInput carries the values a KeyPattern is filled from.
type KeyInput struct {
	Parent   int64
	Time     time.Time
	Index    int
	Filename string
}

// NewKeyPattern creates a new KeyPattern from a template string.
func NewKeyPattern(pattern string) *KeyPattern {
	return &KeyPattern{pattern: pattern}
}

func (p *KeyPattern) String() string { return p.pattern }

// Generate produces a base key. Variant suffixes are appended by the caller
// and stored separately so the base is never parsed back out.
func (p *KeyPattern) Generate(in KeyInput) (string, error) {
	if !strings.Contains(p.pattern, "{slug}") {
		return "", fmt.Errorf("key pattern %q has no {slug} placeholder", p.pattern)
	}

	ts := in.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	r := strings.NewReplacer(
		"{parent}", strconv.FormatInt(in.Parent, 10),
		"{timestamp}", strconv.FormatInt(ts.UnixMilli(), 10),
		"{index}", strconv.Itoa(in.Index),
		"{year}", fmt.Sprintf("%04d", ts.Year()),
		"{month}", fmt.Sprintf("%02d", ts.Month()),
		"{slug}", FilenameSlug(in.Filename),
		"{uuid}", uuidFor(p.pattern),
	)

	key := path.Clean(r.Replace(p.pattern))
	if key == "." || strings.HasPrefix(key, "/") || key == ".." || strings.HasPrefix(key, "../") {
		return "", fmt.Errorf("key pattern %q does not produce a relative key", p.pattern)
	}

	return key, nil
}

func uuidFor(pattern string) string {
	if !strings.Contains(pattern, "{uuid}") {
		return ""
	}
	return uuid.NewString()
}

// FilenameSlug turns an uploaded filename into a safe key segment. The
// extension is dropped since the stored rendition may use a different one.
func FilenameSlug(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	s := slug.Make(base)
	if len(s) > maxSlugLength {
		s = strings.Trim(s[:maxSlugLength], "-")
	}
	if s == "" {
		return "file"
	}

	return s
}

// DefaultProjectPattern returns the default pattern for project media.
func DefaultProjectPattern() *KeyPattern {
	return NewKeyPattern("projects/{parent}/{timestamp}-{index}-{slug}")
}

// DefaultStudioPattern returns the default pattern for studio media.
func DefaultStudioPattern() *KeyPattern {
	return NewKeyPattern("studio/{timestamp}-{index}-{slug}")
}
