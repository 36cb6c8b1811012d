package projects

import (
	"net/http"

	"github.com/hsarchitect/folio/server/body"
	"github.com/hsarchitect/folio/server/handler/common"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/server/util"
	"github.com/hsarchitect/folio/storage/catalog"
)

func mediaIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	projectID, ok := util.IDParam(r, "id")
	if !ok {
		resp.WriteValidationError(w, "invalid id")
		return 0, 0, false
	}
	mediaID, ok := util.IDParam(r, "mediaId")
	if !ok {
		resp.WriteValidationError(w, "invalid id")
		return 0, 0, false
	}
	return projectID, mediaID, true
}

// HandleMediaPatch updates alt text and sort order of one media row. A
// non-numeric sort_order is stored as 0.
func HandleMediaPatch(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, mediaID, ok := mediaIDs(w, r)
		if !ok {
			return
		}

		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}

		var patch catalog.Patch
		if fields.Has("alt") {
			alt, ok := fields.NullableString("alt")
			if !ok {
				resp.WriteValidationError(w, "alt must be a string")
				return
			}
			patch = patch.Set("alt", alt)
		}
		if fields.Has("sort_order") {
			patch = patch.Set("sort_order", fields.IntOrZero("sort_order"))
		}

		if err := st.Catalog.Media.Patch(r.Context(), projectID, mediaID, patch); err != nil {
			common.LogAndWriteError(w, r, "update media", "media", err)
			return
		}

		st.Touched(projectID)
		resp.WriteNoContent(w)
	}
}

// HandleMediaDelete removes one media row and then its objects.
func HandleMediaDelete(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, mediaID, ok := mediaIDs(w, r)
		if !ok {
			return
		}

		asset, err := st.Catalog.Media.Delete(r.Context(), projectID, mediaID)
		if err != nil {
			common.LogAndWriteError(w, r, "delete media", "media", err)
			return
		}

		common.RemoveObjects(r, st.Objects, asset.Keys())
		st.Touched(projectID)
		resp.WriteNoContent(w)
	}
}
