package taxonomy

import (
	"net/http"

	"github.com/hsarchitect/folio/server/body"
	"github.com/hsarchitect/folio/server/handler/common"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/server/util"
)

func HandleListCategories(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := st.Catalog.Categories.List(r.Context())
		if err != nil {
			common.LogAndWriteError(w, r, "list categories", "category", err)
			return
		}
		resp.WriteOK(w, cats)
	}
}

func HandleCreateCategory(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}

		name := fields.Trimmed("name")
		if name == "" {
			resp.WriteValidationError(w, "name is required")
			return
		}

		cat, err := st.Catalog.Categories.Create(r.Context(), name)
		if err != nil {
			common.LogAndWriteError(w, r, "create category", "category", err)
			return
		}

		st.Touched()
		resp.WriteCreated(w, "", cat)
	}
}

// HandleDeleteCategory refuses with 409 while the category is assigned to a project.
func HandleDeleteCategory(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := util.IDParam(r, "id")
		if !ok {
			resp.WriteValidationError(w, "invalid id")
			return
		}

		if err := st.Catalog.Categories.Delete(r.Context(), id); err != nil {
			common.LogAndWriteError(w, r, "delete category", "category", err)
			return
		}

		st.Touched()
		resp.WriteNoContent(w)
	}
}
