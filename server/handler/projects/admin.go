package projects

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hsarchitect/folio/server/body"
	"github.com/hsarchitect/folio/server/handler/common"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/server/util"
	"github.com/hsarchitect/folio/storage/catalog"
)

var validate = validator.New()

type createdResponse struct {
	ID int64 `json:"id"`
}

var nullableText = []string{"location", "description", "scope", "area"}

// HandleAdminList lists projects of any status, filtered by q, status and
// project_type_id.
func HandleAdminList(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, _, ok := util.QueryInt(r, "project_type_id")
		if !ok {
			resp.WriteValidationError(w, "invalid project_type_id")
			return
		}

		q := r.URL.Query()
		filter := catalog.ProjectFilter{
			Query:         strings.TrimSpace(q.Get("q")),
			Status:        strings.TrimSpace(q.Get("status")),
			ProjectTypeID: typeID,
			Limit:         catalog.AdminProjectLimit,
		}

		items, err := st.Catalog.Projects.List(r.Context(), filter)
		if err != nil {
			common.LogAndWriteError(w, r, "list projects", "project", err)
			return
		}

		resp.WriteOK(w, items)
	}
}

func HandleAdminGet(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeDetail(st, w, r, false)
	}
}

// HandleCreate creates a project. Only the title is required; status defaults to draft.
func HandleCreate(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}

		title := fields.Trimmed("title")
		if title == "" {
			resp.WriteValidationError(w, "title is required")
			return
		}

		p := &catalog.Project{Title: title, Status: fields.Trimmed("status")}
		if p.Status == "" {
			p.Status = catalog.StatusDraft
		}
		if msg := validStatus(p.Status); msg != "" {
			resp.WriteValidationError(w, msg)
			return
		}

		texts := map[string]**string{
			"location": &p.Location, "description": &p.Description, "scope": &p.Scope, "area": &p.Area,
		}
		for _, key := range nullableText {
			v, ok := fields.NullableString(key)
			if !ok {
				resp.WriteValidationError(w, fmt.Sprintf("%s must be a string", key))
				return
			}
			*texts[key] = v
		}

		var msg string
		if p.ProjectTypeID, msg = nullableInt(fields, "project_type_id"); msg != "" {
			resp.WriteValidationError(w, msg)
			return
		}
		if p.Year, msg = nullableInt(fields, "year"); msg != "" {
			resp.WriteValidationError(w, msg)
			return
		}

		id, err := st.Catalog.Projects.Create(r.Context(), p)
		if err != nil {
			common.LogAndWriteError(w, r, "create project", "project", err)
			return
		}

		st.Touched(id)
		resp.WriteCreated(w, "", createdResponse{ID: id})
	}
}

// HandleUpdate applies any subset of the project fields present in the body.
func HandleUpdate(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := util.IDParam(r, "id")
		if !ok {
			resp.WriteValidationError(w, "invalid id")
			return
		}

		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}

		patch, msg := buildPatch(fields)
		if msg != "" {
			resp.WriteValidationError(w, msg)
			return
		}

		if err := st.Catalog.Projects.Update(r.Context(), id, patch); err != nil {
			common.LogAndWriteError(w, r, "update project", "project", err)
			return
		}

		st.Touched(id)
		resp.WriteNoContent(w)
	}
}

func buildPatch(fields body.Fields) (catalog.Patch, string) {
	var patch catalog.Patch

	if fields.Has("title") {
		title := fields.Trimmed("title")
		if title == "" {
			return nil, "title cannot be empty"
		}
		patch = patch.Set("title", title)
	}
	for _, key := range nullableText {
		if !fields.Has(key) {
			continue
		}
		v, ok := fields.NullableString(key)
		if !ok {
			return nil, fmt.Sprintf("%s must be a string", key)
		}
		patch = patch.Set(key, v)
	}
	for _, key := range []string{"project_type_id", "year"} {
		if !fields.Has(key) {
			continue
		}
		v, msg := nullableInt(fields, key)
		if msg != "" {
			return nil, msg
		}
		patch = patch.Set(key, v)
	}
	if fields.Has("status") {
		status := fields.Trimmed("status")
		if msg := validStatus(status); msg != "" {
			return nil, msg
		}
		patch = patch.Set("status", status)
	}

	return patch, ""
}

func nullableInt(fields body.Fields, key string) (*int64, string) {
	v, ok := fields.NullableInt(key)
	if !ok {
		return nil, fmt.Sprintf("%s must be an integer", key)
	}
	return v, ""
}

func validStatus(status string) string {
	if err := validate.Var(status, "required,oneof=draft published"); err != nil {
		return "status must be draft or published"
	}
	return ""
}

// HandleDelete removes a project with its media rows, then the objects they referenced.
func HandleDelete(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := util.IDParam(r, "id")
		if !ok {
			resp.WriteValidationError(w, "invalid id")
			return
		}

		keys, err := st.Catalog.Projects.Delete(r.Context(), id)
		if err != nil {
			common.LogAndWriteError(w, r, "delete project", "project", err)
			return
		}

		common.RemoveObjects(r, st.Objects, keys)
		st.Touched(id)
		resp.WriteNoContent(w)
	}
}

// HandleSetCategories replaces the project's category assignment.
func HandleSetCategories(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := util.IDParam(r, "id")
		if !ok {
			resp.WriteValidationError(w, "invalid id")
			return
		}

		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}

		ids, ok := fields.IntSlice("category_ids")
		if !ok {
			resp.WriteValidationError(w, "category_ids must be a list of integers")
			return
		}

		if err := st.Catalog.Projects.SetCategories(r.Context(), id, ids); err != nil {
			common.LogAndWriteError(w, r, "set project categories", "project", err)
			return
		}

		st.Touched(id)
		resp.WriteNoContent(w)
	}
}
