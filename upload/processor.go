// Package upload turns one multipart request into a set of stored media
// renditions plus a per-file error report.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hsarchitect/folio/media"
	"github.com/hsarchitect/folio/storage/catalog"
	"github.com/hsarchitect/folio/storage/objects"
	storageutil "github.com/hsarchitect/folio/storage/util"
)

const cleanupTimeout = 30 * time.Second

// Item describes one stored rendition. Commit functions may set ID.
type Item struct {
	ID       int64             `json:"id,omitempty"`
	Filename string            `json:"filename"`
	Kind     catalog.MediaKind `json:"type"`
	BaseKey  string            `json:"-"`
	Variant  string            `json:"-"`
	Key      string            `json:"file_path"`
	ThumbKey *string           `json:"thumb_path"`
	MimeType string            `json:"mime_type"`
	Size     int64             `json:"size"`
	Width    int               `json:"width,omitempty"`
	Height   int               `json:"height,omitempty"`
	URL      string            `json:"file_url"`
	ThumbURL *string           `json:"thumb_url"`
}

// Keys lists the object keys backing the item.
func (it Item) Keys() []string {
	keys := []string{it.Key}
	if it.ThumbKey != nil && *it.ThumbKey != it.Key {
		keys = append(keys, *it.ThumbKey)
	}
	return keys
}

// Asset converts the item into the record persisted for parentID.
func (it Item) Asset(parentID int64) catalog.MediaAsset {
	return catalog.MediaAsset{
		ParentID:   parentID,
		Kind:       it.Kind,
		BaseKey:    it.BaseKey,
		Variant:    it.Variant,
		StorageKey: it.Key,
		ThumbKey:   it.ThumbKey,
		MimeType:   it.MimeType,
		Width:      it.Width,
		Height:     it.Height,
	}
}

// CommitFunc persists the succeeded items of a batch. It is called at most
// once, after every file has settled, and only when at least one succeeded.
type CommitFunc func(ctx context.Context, items []Item) error

// Batch describes one upload request.
type Batch struct {
	ParentID int64
	Pattern  *storageutil.KeyPattern
	Policy   Policy
	Commit   CommitFunc
}

// Outcome lists every file part exactly once, either in Uploaded or in Errors.
type Outcome struct {
	Uploaded []Item      `json:"uploaded"`
	Errors   []FileError `json:"errors,omitempty"`

	// Files is the number of file parts seen.
	Files int `json:"-"`
	// Aborted holds the strict-policy code that failed the batch, if any.
	Aborted Code `json:"-"`
	// Truncated is set when the request body cap cut the stream short. Files that
	// settled before the cap are kept; parts after it were never read.
	Truncated bool `json:"truncated,omitempty"`

	// Committed reports whether the commit function ran and succeeded.
	Committed bool `json:"-"`
}

// Processor runs upload batches against one object store.
type Processor struct {
	store   objects.Store
	opts    media.Options
	metrics *Metrics
	now     func() time.Time
}

type Option func(*Processor)

func WithMetrics(m *Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(store objects.Store, opts media.Options, options ...Option) *Processor {
	p := &Processor{store: store, opts: opts, now: time.Now}
	for _, o := range options {
		o(p)
	}
	return p
}

func (p *Processor) Store() objects.Store { return p.store }

type slot struct {
	index    int
	filename string
	mimeType string

	item *Item
	err  *FileError
}

func (s *slot) fail(code Code, msg string) {
	s.item = nil
	s.err = &FileError{Filename: s.filename, Code: code, Message: msg}
}

// Process consumes the multipart stream. Per-file failures are reported in the
// outcome. Reaching the body cap after a file part was seen ends the stream but
// keeps the settled files, unless the policy is strict. The returned error is
// non-nil only when the stream itself broke, in which case nothing has been
// committed and every stored object was removed.
func (p *Processor) Process(ctx context.Context, mr *multipart.Reader, b Batch) (*Outcome, error) {
	start := p.now()
	policy := b.Policy.withDefaults()
	pattern := b.Pattern
	if pattern == nil {
		pattern = storageutil.DefaultProjectPattern()
	}

	batchCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	var (
		g         errgroup.Group
		slots     []*slot
		accepted  int
		aborted   Code
		streamErr error
		truncated bool
	)
	g.SetLimit(policy.MaxFiles)

	// stop ends the stream on a read error and reports whether it was the body cap
	// cutting a lenient batch short.
	stop := func(err error) bool {
		err = classifyStreamError(err)
		if errors.Is(err, ErrBodyTooLarge) && !policy.Strict && len(slots) > 0 {
			truncated = true
			return true
		}
		streamErr = err
		return false
	}

	trip := func(code Code) {
		if policy.Strict && aborted == "" {
			aborted = code
			abort(abortError{code: code})
		}
	}

	for streamErr == nil && !truncated {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stop(err)
			break
		}

		if part.FileName() == "" {
			if err := drain(part); err != nil {
				stop(err)
			}
			continue
		}

		s := &slot{index: len(slots), filename: part.FileName(), mimeType: declaredType(part.Header.Get("Content-Type"))}
		slots = append(slots, s)

		switch {
		case aborted != "":
			s.fail(CodeBatchAborted, "batch aborted by another file")
		case !policy.acceptsField(part.FormName()):
			s.fail(CodeValidation, fmt.Sprintf("unexpected file field %q", part.FormName()))
		case !policy.Accepts(s.mimeType):
			s.fail(CodeUnsupportedType, unsupportedMessage(s.mimeType))
		case accepted >= policy.MaxFiles:
			s.fail(CodeTooManyFiles, fmt.Sprintf("at most %d files per upload", policy.MaxFiles))
			trip(CodeTooManyFiles)
		default:
			accepted++
			data, err := readBounded(part, policy.MaxFileSize)
			switch {
			case errors.Is(err, errFileTooLarge):
				s.fail(CodeFileTooLarge, fmt.Sprintf("file exceeds %d bytes", policy.MaxFileSize))
				trip(CodeFileTooLarge)
			case err != nil:
				if stop(err) {
					s.fail(CodeBodyTooLarge, "request body limit reached while reading this file")
				} else {
					s.fail(CodeBatchAborted, "upload interrupted")
				}
				continue
			default:
				g.Go(func() error {
					p.run(batchCtx, b.ParentID, pattern, start, s, data)
					return nil
				})
			}
		}

		// A slot handed to a task belongs to it; a drain error only ends the stream.
		if err := drain(part); err != nil {
			stop(err)
		}
	}

	if streamErr != nil {
		abort(streamErr)
	}
	_ = g.Wait()

	logger := zerolog.Ctx(ctx)
	out := &Outcome{Files: len(slots), Aborted: aborted, Truncated: truncated}

	if streamErr != nil || aborted != "" {
		p.discard(ctx, slots)
	}

	if streamErr == nil && aborted == "" {
		items := succeeded(slots)
		if len(items) > 0 && b.Commit != nil {
			if err := b.Commit(ctx, items); err != nil {
				keys := itemKeys(items)
				logger.Error().Err(err).Int64("parent_id", b.ParentID).Strs("orphan_keys", keys).
					Msg("persisting upload batch failed; removing orphaned objects")
				p.remove(ctx, keys)
				for _, s := range slots {
					if s.item != nil {
						s.fail(CodePersist, "saving media record failed")
					}
				}
			} else {
				out.Committed = true
				// Commit may have assigned ids.
				i := 0
				for _, s := range slots {
					if s.item != nil {
						*s.item = items[i]
						i++
					}
				}
			}
		}
	}

	for _, s := range slots {
		if s.item != nil {
			out.Uploaded = append(out.Uploaded, *s.item)
		} else if s.err != nil {
			out.Errors = append(out.Errors, *s.err)
		}
	}
	if out.Uploaded == nil {
		out.Uploaded = []Item{}
	}

	result := "ok"
	switch {
	case streamErr != nil:
		result = "malformed"
	case aborted != "":
		result = "aborted"
	case truncated:
		result = "truncated"
	case len(out.Uploaded) == 0:
		result = "failed"
	case len(out.Errors) > 0:
		result = "partial"
	}
	p.metrics.observe(out, result, p.now().Sub(start))

	logger.Debug().Int64("parent_id", b.ParentID).Int("files", out.Files).Int("uploaded", len(out.Uploaded)).
		Int("failed", len(out.Errors)).Bool("truncated", truncated).Str("result", result).Msg("upload batch settled")

	if streamErr != nil {
		return out, streamErr
	}
	return out, nil
}

// run transcodes and stores one file. It owns s until it returns.
func (p *Processor) run(ctx context.Context, parentID int64, pattern *storageutil.KeyPattern, stamp time.Time, s *slot, data []byte) {
	logger := zerolog.Ctx(ctx).With().Str("filename", s.filename).Logger()

	if ctx.Err() != nil {
		s.fail(CodeBatchAborted, "batch aborted by another file")
		return
	}

	var (
		res     *media.Result
		kind    catalog.MediaKind
		variant string
		err     error
	)
	if media.IsVideo(s.mimeType) {
		kind = catalog.MediaVideo
		res, err = media.CheckVideo(data)
		if err != nil {
			s.fail(CodeUnsupportedType, "content is not a valid mp4 video")
			return
		}
		variant = res.Extension
	} else {
		kind = catalog.MediaImage
		res, err = media.Transcode(ctx, data, p.opts)
		if err != nil {
			if ctx.Err() != nil {
				s.fail(CodeBatchAborted, "batch aborted by another file")
				return
			}
			logger.Warn().Err(err).Msg("image transcode failed")
			s.fail(CodeImageProcess, "image could not be processed")
			return
		}
		variant = p.opts.Variant()
	}

	base, err := pattern.Generate(storageutil.KeyInput{Parent: parentID, Time: stamp, Index: s.index, Filename: s.filename})
	if err != nil {
		logger.Error().Err(err).Msg("object key generation failed")
		s.fail(CodeUpload, "upload failed")
		return
	}
	key := base + variant

	if err := p.store.Put(ctx, key, bytes.NewReader(res.Data), int64(len(res.Data)), res.ContentType); err != nil {
		if ctx.Err() != nil {
			s.fail(CodeBatchAborted, "batch aborted by another file")
			return
		}
		logger.Error().Err(err).Str("key", key).Msg("object upload failed")
		s.fail(CodeUpload, "upload failed")
		return
	}

	item := &Item{
		Filename: s.filename,
		Kind:     kind,
		BaseKey:  base,
		Variant:  variant,
		Key:      key,
		MimeType: res.ContentType,
		Size:     int64(len(res.Data)),
		Width:    res.Width,
		Height:   res.Height,
		URL:      p.store.PublicURL(key),
	}
	if kind == catalog.MediaImage {
		thumb := key
		thumbURL := item.URL
		item.ThumbKey = &thumb
		item.ThumbURL = &thumbURL
	}

	s.item = item
}

// discard removes objects of files that finished before the batch was aborted.
func (p *Processor) discard(ctx context.Context, slots []*slot) {
	var keys []string
	for _, s := range slots {
		if s.item != nil {
			keys = append(keys, s.item.Keys()...)
			s.fail(CodeBatchAborted, "batch aborted by another file")
		}
	}
	p.remove(ctx, keys)
}

func (p *Processor) remove(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := p.store.Remove(cctx, keys); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("best-effort object removal failed")
	}
}

func succeeded(slots []*slot) []Item {
	var items []Item
	for _, s := range slots {
		if s.item != nil {
			items = append(items, *s.item)
		}
	}
	return items
}

func itemKeys(items []Item) []string {
	var keys []string
	for _, it := range items {
		keys = append(keys, it.Keys()...)
	}
	return keys
}

// readBounded reads at most limit bytes. One extra byte is probed so an
// oversized file is detected without buffering it.
func readBounded(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

func drain(part *multipart.Part) error {
	_, err := io.Copy(io.Discard, part)
	return err
}

func classifyStreamError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

func unsupportedMessage(contentType string) string {
	if contentType == "" {
		return "missing content type"
	}
	return fmt.Sprintf("type %q is not accepted", contentType)
}
