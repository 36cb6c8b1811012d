// Package taxonomy serves project types and categories.
package taxonomy

import (
	"net/http"
	"strings"

	"github.com/hsarchitect/folio/server/body"
	"github.com/hsarchitect/folio/server/handler/common"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/server/util"
)

const typeField = "project_type"

// HandlePublicTypes lists every project type in creation order.
func HandlePublicTypes(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := st.Catalog.Types.ListAll(r.Context())
		if err != nil {
			common.LogAndWriteError(w, r, "list project types", "project type", err)
			return
		}
		resp.WriteOK(w, types)
	}
}

// HandleAdminTypes lists project types by name, optionally filtered by q.
func HandleAdminTypes(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := st.Catalog.Types.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
		if err != nil {
			common.LogAndWriteError(w, r, "list project types", "project type", err)
			return
		}
		resp.WriteOK(w, types)
	}
}

func HandleCreateType(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}

		name := fields.Trimmed(typeField)
		if name == "" {
			resp.WriteValidationError(w, "project_type is required")
			return
		}

		pt, err := st.Catalog.Types.Create(r.Context(), name)
		if err != nil {
			common.LogAndWriteError(w, r, "create project type", "project type", err)
			return
		}

		st.Touched()
		resp.WriteCreated(w, "", pt)
	}
}

func HandleRenameType(st *state.FolioState) http.HandlerFunc {
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
		if !fields.Has(typeField) {
			resp.WriteValidationError(w, "nothing to update")
			return
		}

		name := fields.Trimmed(typeField)
		if name == "" {
			resp.WriteValidationError(w, "project_type cannot be empty")
			return
		}

		if err := st.Catalog.Types.Rename(r.Context(), id, name); err != nil {
			common.LogAndWriteError(w, r, "rename project type", "project type", err)
			return
		}

		st.Touched()
		resp.WriteNoContent(w)
	}
}

// HandleDeleteType refuses with 409 while any project still uses the type.
func HandleDeleteType(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := util.IDParam(r, "id")
		if !ok {
			resp.WriteValidationError(w, "invalid id")
			return
		}

		if err := st.Catalog.Types.Delete(r.Context(), id); err != nil {
			common.LogAndWriteError(w, r, "delete project type", "project type", err)
			return
		}

		st.Touched()
		resp.WriteNoContent(w)
	}
}
