package upload

import (
	"context"
	"errors"
	"net/http"

	"github.com/hsarchitect/folio/server/handler/common"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/server/util"
	"github.com/hsarchitect/folio/storage/catalog"
	"github.com/hsarchitect/folio/upload"
)

type studioMediaResponse struct {
	Data      []studioMediaItem  `json:"data"`
	Errors    []upload.FileError `json:"errors,omitempty"`
	Truncated bool               `json:"truncated,omitempty"`
}

type studioMediaItem struct {
	URL      string  `json:"url"`
	ThumbURL *string `json:"thumb_url"`
}

func policy(st *state.FolioState, maxFiles int, prefixes []string) upload.Policy {
	limits := st.Cfg.Server.Limits
	if prefixes == nil {
		prefixes = st.Cfg.Media.AcceptedMimePrefixes
	}
	return upload.Policy{
		MaxFiles:         maxFiles,
		MaxFileSize:      int64(limits.MaxFileSize),
		AcceptedPrefixes: prefixes,
		Strict:           limits.StrictUploads,
	}
}

// HandleProjectMediaUpload streams a multipart batch into the object store and
// records every stored file against the project in one insert.
func HandleProjectMediaUpload(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := util.IDParam(r, "id")
		if !ok {
			resp.WriteValidationError(w, "invalid project id")
			return
		}

		exists, err := st.Catalog.Projects.Exists(r.Context(), projectID)
		if err != nil {
			common.LogAndWriteError(w, r, "upload media", "project", err)
			return
		}
		if !exists {
			resp.WriteNotFound(w, "project not found")
			return
		}

		p := policy(st, st.Cfg.Server.Limits.MaxFiles, nil)
		mr, ok := util.MultipartReader(w, r, p.MaxFiles, p.MaxFileSize)
		if !ok {
			return
		}

		commit := func(ctx context.Context, items []upload.Item) error {
			rows := make([]catalog.MediaAsset, len(items))
			for i := range items {
				rows[i] = items[i].Asset(projectID)
			}
			saved, err := st.Catalog.Media.InsertBatch(ctx, rows)
			if err != nil {
				return err
			}
			for i := range items {
				items[i].ID = saved[i].ID
			}
			return nil
		}

		out, err := st.Processor.Process(r.Context(), mr, upload.Batch{
			ParentID: projectID,
			Pattern:  st.ProjectKeyPattern,
			Policy:   p,
			Commit:   commit,
		})
		if !writeBatchFailure(w, r, out, err) {
			return
		}

		st.Touched(projectID)
		resp.WriteCreated(w, "", out)
	}
}

// HandleStudioMediaUpload stores a single studio image. No catalog rows are written;
// the caller keeps the returned URL in studio copy.
func HandleStudioMediaUpload(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := policy(st, 1, []string{"image/"})
		mr, ok := util.MultipartReader(w, r, p.MaxFiles, p.MaxFileSize)
		if !ok {
			return
		}

		out, err := st.Processor.Process(r.Context(), mr, upload.Batch{
			Pattern: st.StudioKeyPattern,
			Policy:  p,
		})
		if !writeBatchFailure(w, r, out, err) {
			return
		}

		data := make([]studioMediaItem, len(out.Uploaded))
		for i, it := range out.Uploaded {
			data[i] = studioMediaItem{URL: it.URL, ThumbURL: it.ThumbURL}
		}

		st.Touched()
		resp.WriteCreated(w, "", studioMediaResponse{Data: data, Errors: out.Errors, Truncated: out.Truncated})
	}
}

// writeBatchFailure writes the response for batches that stored nothing and
// reports whether the caller should go on to write a success response.
func writeBatchFailure(w http.ResponseWriter, r *http.Request, out *upload.Outcome, err error) bool {
	switch {
	case errors.Is(err, upload.ErrBodyTooLarge):
		resp.WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
		return false
	case err != nil:
		util.ForRequest(r).Warnf("upload stream failed: %v", err)
		resp.WriteValidationError(w, "malformed multipart body")
		return false
	case out.Files == 0:
		resp.WriteValidationError(w, "no files uploaded")
		return false
	case out.Aborted == upload.CodeFileTooLarge:
		resp.WriteError(w, http.StatusRequestEntityTooLarge, "upload_failed", "a file exceeds the size limit", out.Errors)
		return false
	case out.Aborted != "":
		resp.WriteError(w, http.StatusBadRequest, "upload_failed", "batch rejected", out.Errors)
		return false
	case len(out.Uploaded) == 0 && out.Truncated:
		resp.WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", out.Errors)
		return false
	case len(out.Uploaded) == 0:
		status := http.StatusBadRequest
		if allPersistFailures(out.Errors) {
			status = http.StatusInternalServerError
		}
		resp.WriteError(w, status, "upload_failed", "no file could be stored", out.Errors)
		return false
	}
	return true
}

func allPersistFailures(errs []upload.FileError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if e.Code != upload.CodePersist {
			return false
		}
	}
	return true
}
