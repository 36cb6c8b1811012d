package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hsarchitect/folio/media"
	"github.com/hsarchitect/folio/server"
	"github.com/hsarchitect/folio/server/handler/handlertest"
	"github.com/hsarchitect/folio/storage/catalog"
	"github.com/hsarchitect/folio/storage/objects"
	"github.com/hsarchitect/folio/upload"
)

// harness drives the full router against whichever catalog and object store
// the test swaps into the state.
type harness struct {
	t     *testing.T
	env   *handlertest.Env
	h     http.Handler
	token string
}

func newHarness(t *testing.T, cat *catalog.Catalog, store objects.Store) *harness {
	t.Helper()

	env := handlertest.New(t)
	if cat != nil {
		env.State.Catalog = cat
	}
	if store != nil {
		env.State.Objects = store
		env.State.Processor = upload.NewProcessor(store, media.Options{
			TargetWidth: env.State.Cfg.Media.TargetWidth,
			Quality:     env.State.Cfg.Media.Quality,
		})
	}

	return &harness{
		t:     t,
		env:   env,
		h:     server.NewRouter(env.State, zerolog.Nop(), nil),
		token: "Bearer " + env.AdminToken(t),
	}
}

func (h *harness) do(req *http.Request, admin bool) *httptest.ResponseRecorder {
	if admin {
		req.Header.Set("Authorization", h.token)
	}
	rr := httptest.NewRecorder()
	h.h.ServeHTTP(rr, req)
	return rr
}

func (h *harness) json(method, target string, body any, want int) *bytes.Buffer {
	h.t.Helper()
	rr := h.do(handlertest.JSON(h.t, method, target, body), true)
	if rr.Code != want {
		h.t.Fatalf("%s %s: expected %d, got %d: %s", method, target, want, rr.Code, rr.Body.String())
	}
	return rr.Body
}

type uploaded struct {
	Uploaded []struct {
		ID         int64   `json:"id"`
		StorageKey string  `json:"file_path"`
		ThumbKey   *string `json:"thumb_path"`
	} `json:"uploaded"`
}

// exerciseCatalog runs the admin and public flows end to end and returns the
// object keys the uploaded media ended up under.
func exerciseCatalog(h *harness) []string {
	t := h.t
	t.Helper()

	var pt catalog.ProjectType
	handlertest.Decode(t, h.json(http.MethodPost, "/project-types", map[string]any{"project_type": "Residential"}, http.StatusCreated), &pt)
	h.json(http.MethodPost, "/project-types", map[string]any{"project_type": "Residential"}, http.StatusConflict)

	var cat catalog.Category
	handlertest.Decode(t, h.json(http.MethodPost, "/categories", map[string]any{"name": "Interior"}, http.StatusCreated), &cat)

	var created struct {
		ID int64 `json:"id"`
	}
	handlertest.Decode(t, h.json(http.MethodPost, "/projects/admin", map[string]any{
		"title":           "Courtyard House",
		"project_type_id": pt.ID,
		"description":     "<p>A house around a <em>garden</em></p>",
		"year":            2023,
	}, http.StatusCreated), &created)
	projectPath := fmt.Sprintf("/projects/admin/%d", created.ID)

	h.json(http.MethodPut, projectPath+"/categories", map[string]any{"category_ids": []int64{cat.ID}}, http.StatusNoContent)
	h.json(http.MethodPatch, projectPath, map[string]any{"status": "published"}, http.StatusNoContent)

	req := handlertest.Multipart(t, http.MethodPost, projectPath+"/media", nil,
		handlertest.File{Name: "front.png", ContentType: "image/png", Data: handlertest.PNG(t, 2400, 1200)},
		handlertest.File{Name: "walk.mp4", ContentType: "video/mp4", Data: handlertest.MP4()},
	)
	rr := h.do(req, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var up uploaded
	handlertest.Decode(t, rr.Body, &up)
	if len(up.Uploaded) != 2 {
		t.Fatalf("expected two uploaded items, got %s", rr.Body.String())
	}

	h.json(http.MethodPatch, fmt.Sprintf("%s/media/%d", projectPath, up.Uploaded[0].ID), map[string]any{"alt": "Street facade"}, http.StatusNoContent)

	rr = h.do(handlertest.JSON(t, http.MethodGet, "/projects/public", nil), false)
	var list []struct {
		ID      int64  `json:"id"`
		Excerpt string `json:"excerpt"`
		Cover   *struct {
			Alt *string `json:"alt"`
		} `json:"cover"`
	}
	handlertest.Decode(t, rr.Body, &list)
	if len(list) != 1 || list[0].Excerpt != "A house around a garden" || list[0].Cover == nil || list[0].Cover.Alt == nil {
		t.Fatalf("unexpected public list %s", rr.Body.String())
	}

	rr = h.do(handlertest.JSON(t, http.MethodGet, fmt.Sprintf("/projects/public/%d", created.ID), nil), false)
	var detail struct {
		Media      []json.RawMessage  `json:"media"`
		Categories []catalog.Category `json:"categories"`
	}
	handlertest.Decode(t, rr.Body, &detail)
	if len(detail.Media) != 2 || len(detail.Categories) != 1 {
		t.Fatalf("unexpected public detail %s", rr.Body.String())
	}

	h.json(http.MethodDelete, fmt.Sprintf("/project-types/%d", pt.ID), nil, http.StatusConflict)
	h.json(http.MethodDelete, fmt.Sprintf("/categories/%d", cat.ID), nil, http.StatusConflict)

	h.json(http.MethodPut, "/studio/admin/profile", map[string]any{"description": "<p>Studio</p>"}, http.StatusOK)
	h.json(http.MethodPatch, "/studio/admin/profile", map[string]any{"description": "<p>Studio!</p>"}, http.StatusNoContent)

	var keys []string
	for _, it := range up.Uploaded {
		keys = append(keys, it.StorageKey)
		if it.ThumbKey != nil && *it.ThumbKey != it.StorageKey {
			keys = append(keys, *it.ThumbKey)
		}
	}

	h.json(http.MethodDelete, projectPath, nil, http.StatusNoContent)
	h.json(http.MethodDelete, fmt.Sprintf("/project-types/%d", pt.ID), nil, http.StatusNoContent)

	return keys
}
