// Package studio serves the studio copy blocks: profile, philosophy and achievement.
package studio

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hsarchitect/folio/server/body"
	"github.com/hsarchitect/folio/server/handler/common"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/storage/catalog"
)

func studioType(w http.ResponseWriter, r *http.Request) (catalog.StudioType, bool) {
	t, ok := catalog.ParseStudioType(chi.URLParam(r, "type"))
	if !ok {
		resp.WriteValidationError(w, "invalid type")
	}
	return t, ok
}

func HandleGet(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := studioType(w, r)
		if !ok {
			return
		}

		row, err := st.Catalog.Studio.Get(r.Context(), t)
		if err != nil {
			common.LogAndWriteError(w, r, "get studio", "studio entry", err)
			return
		}
		resp.WriteOK(w, row)
	}
}

// HandlePut creates or replaces the entry and returns it. A missing
// description stores null.
func HandlePut(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := studioType(w, r)
		if !ok {
			return
		}

		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}
		desc, ok := fields.NullableString("description")
		if !ok {
			resp.WriteValidationError(w, "description must be a string")
			return
		}

		row, err := st.Catalog.Studio.Upsert(r.Context(), t, desc)
		if err != nil {
			common.LogAndWriteError(w, r, "save studio", "studio entry", err)
			return
		}

		st.Touched()
		resp.WriteOK(w, row)
	}
}

func HandlePatch(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := studioType(w, r)
		if !ok {
			return
		}

		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}
		if !fields.Has("description") {
			resp.WriteValidationError(w, "nothing to update")
			return
		}
		desc, ok := fields.NullableString("description")
		if !ok {
			resp.WriteValidationError(w, "description must be a string")
			return
		}

		if err := st.Catalog.Studio.UpdateDescription(r.Context(), t, desc); err != nil {
			common.LogAndWriteError(w, r, "update studio", "studio entry", err)
			return
		}

		st.Touched()
		resp.WriteNoContent(w)
	}
}

func HandleDelete(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := studioType(w, r)
		if !ok {
			return
		}

		if err := st.Catalog.Studio.Delete(r.Context(), t); err != nil {
			common.LogAndWriteError(w, r, "delete studio", "studio entry", err)
			return
		}

		st.Touched()
		resp.WriteNoContent(w)
	}
}
