// Package handlertest provides an in-memory FolioState and request helpers for
// handler tests.
package handlertest

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/mail"
	"github.com/hsarchitect/folio/media"
	"github.com/hsarchitect/folio/rebuild"
	"github.com/hsarchitect/folio/server/auth"
	"github.com/hsarchitect/folio/server/middleware"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/storage/catalog/memory"
	"github.com/hsarchitect/folio/storage/objects"
	storageutil "github.com/hsarchitect/folio/storage/util"
	"github.com/hsarchitect/folio/upload"
)

const BaseURL = "https://cdn.example.org/media"

// Store keeps objects in memory.
type Store struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Removed []string
	PutErr  error
}

func (s *Store) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.Objects[key] = data
	return nil
}

func (s *Store) Remove(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.Objects, k)
		s.Removed = append(s.Removed, k)
	}
	return nil
}

func (s *Store) PublicURL(key string) string { return objects.JoinURL(BaseURL, key) }

func (s *Store) Check(context.Context) error { return nil }

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}

// Trigger records rebuild requests.
type Trigger struct {
	mu    sync.Mutex
	Calls []rebuild.Request
}

func (t *Trigger) Name() string { return "test" }

func (t *Trigger) Trigger(_ context.Context, req rebuild.Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, req)
	return nil
}

// Mailer records sent messages.
type Mailer struct {
	Sent []mail.Message
	Err  error
}

func (m *Mailer) Send(_ context.Context, msg mail.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

type Inbox struct {
	Count int
	Err   error
}

func (i *Inbox) Unread(context.Context) (int, error) { return i.Count, i.Err }

// Env bundles a FolioState with the fakes behind it.
type Env struct {
	State   *state.FolioState
	Memory  *memory.Store
	Store   *Store
	Trigger *Trigger
	Mailer  *Mailer
	Inbox   *Inbox
}

func Config() *config.Config {
	return &config.Config{
		Server: config.Server{
			Limits: config.ServerLimits{
				MaxJsonBody: 1 << 20,
				MaxFileSize: 5 << 20,
				MaxFiles:    3,
			},
		},
		Auth: config.Auth{JwtSecret: "handler-test-secret-value", JwtTTL: time.Hour},
		Media: config.Media{
			TargetWidth:          1600,
			Quality:              78,
			AcceptedMimePrefixes: []string{"image/", "video/mp4"},
		},
	}
}

// New builds an Env with a one-hour rebuild debounce, so triggers only fire on Close.
func New(t *testing.T) *Env {
	t.Helper()

	cfg := Config()
	mem := memory.New()
	store := &Store{Objects: map[string][]byte{}}
	trig := &Trigger{}
	sched := rebuild.NewScheduler(trig, time.Hour)
	t.Cleanup(func() { _ = sched.Close(context.Background()) })

	env := &Env{
		Memory:  mem,
		Store:   store,
		Trigger: trig,
		Mailer:  &Mailer{},
		Inbox:   &Inbox{},
	}
	env.State = &state.FolioState{
		Cfg:               cfg,
		ProjectKeyPattern: storageutil.DefaultProjectPattern(),
		StudioKeyPattern:  storageutil.DefaultStudioPattern(),
		Catalog:           mem.Catalog(),
		Objects:           store,
		Processor:         upload.NewProcessor(store, media.Options{TargetWidth: cfg.Media.TargetWidth, Quality: cfg.Media.Quality}),
		Rebuild:           sched,
		Tokens:            auth.NewTokens(cfg.Auth),
		Cache:             middleware.NewResponseCache(16, time.Minute),
		Mailer:            env.Mailer,
		Inbox:             env.Inbox,
	}
	return env
}

// Pending returns the project ids awaiting a rebuild.
func (e *Env) Pending() []int64 {
	return e.State.Rebuild.Pending()
}

// AdminToken issues a valid admin bearer token.
func (e *Env) AdminToken(t *testing.T) string {
	t.Helper()
	signed, _, err := e.State.Tokens.Issue(1, "admin@example.org", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return signed
}

// JSON builds a request with a JSON body.
func JSON(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, target, r)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.RemoteAddr = "192.0.2.1:1234"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// File is one multipart file part.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Multipart builds a multipart request body from files and plain fields.
func Multipart(t *testing.T, method, target string, fields map[string]string, files ...File) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	for _, f := range files {
		field := f.Field
		if field == "" {
			field = "files"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+strings.ReplaceAll(f.Name, `"`, "")+`"`)
		if f.ContentType != "" {
			h.Set("Content-Type", f.ContentType)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		_, _ = part.Write(f.Data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(method, target, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// PNG encodes a solid w x h image.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 120, G: 90, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// MP4 returns bytes that sniff as an mp4 container.
func MP4() []byte {
	data := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypmp42\x00\x00\x00\x00mp42isom")...)
	return append(data, make([]byte, 64)...)
}

// Decode unmarshals a response body into v.
func Decode(t *testing.T, body *bytes.Buffer, v any) {
	t.Helper()
	if err := json.Unmarshal(body.Bytes(), v); err != nil {
		t.Fatalf("invalid response body %q: %v", body.String(), err)
	}
}
