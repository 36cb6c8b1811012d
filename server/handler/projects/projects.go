// Package projects serves the portfolio's projects: the published listing for
// the public site and the admin CRUD behind it.
package projects

import (
	"net/http"

	"github.com/hsarchitect/folio/server/handler/common"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/server/util"
	"github.com/hsarchitect/folio/storage/catalog"
)

const excerptLength = 180

type mediaView struct {
	catalog.MediaAsset
	URL      string  `json:"file_url"`
	ThumbURL *string `json:"thumb_url"`
}

type listItem struct {
	catalog.Project
	Excerpt string     `json:"excerpt"`
	Cover   *mediaView `json:"cover"`
}

type detail struct {
	catalog.Project
	Media      []mediaView        `json:"media"`
	Categories []catalog.Category `json:"categories"`
}

func view(st *state.FolioState, m catalog.MediaAsset) mediaView {
	v := mediaView{MediaAsset: m, URL: st.URL(m.StorageKey)}
	if m.ThumbKey != nil {
		thumb := st.URL(*m.ThumbKey)
		v.ThumbURL = &thumb
	}
	return v
}

// HandlePublicList lists published projects, newest first, each with its cover
// image and a plain-text excerpt of the description.
func HandlePublicList(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := st.Catalog.Projects.ListPublished(r.Context(), catalog.PublicProjectLimit)
		if err != nil {
			common.LogAndWriteError(w, r, "list projects", "project", err)
			return
		}

		ids := make([]int64, len(items))
		for i := range items {
			ids[i] = items[i].ID
		}
		covers, err := st.Catalog.Media.Covers(r.Context(), ids)
		if err != nil {
			common.LogAndWriteError(w, r, "list project covers", "project", err)
			return
		}

		out := make([]listItem, len(items))
		for i, p := range items {
			item := listItem{Project: p}
			if p.Description != nil {
				item.Excerpt = util.Excerpt(*p.Description, excerptLength)
			}
			item.Description = nil
			if c, ok := covers[p.ID]; ok {
				v := view(st, c)
				item.Cover = &v
			}
			out[i] = item
		}

		resp.WriteOK(w, out)
	}
}

// HandlePublicGet returns one published project with its ordered media.
func HandlePublicGet(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeDetail(st, w, r, true)
	}
}

func writeDetail(st *state.FolioState, w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	id, ok := util.IDParam(r, "id")
	if !ok {
		resp.WriteValidationError(w, "invalid id")
		return
	}

	p, err := st.Catalog.Projects.Get(r.Context(), id, publishedOnly)
	if err != nil {
		common.LogAndWriteError(w, r, "get project", "project", err)
		return
	}

	assets, err := st.Catalog.Media.List(r.Context(), id)
	if err != nil {
		common.LogAndWriteError(w, r, "list project media", "project", err)
		return
	}

	cats, err := st.Catalog.Projects.Categories(r.Context(), id)
	if err != nil {
		common.LogAndWriteError(w, r, "list project categories", "project", err)
		return
	}

	out := detail{Project: *p, Media: make([]mediaView, len(assets)), Categories: cats}
	for i, m := range assets {
		out.Media[i] = view(st, m)
	}

	resp.WriteOK(w, out)
}
