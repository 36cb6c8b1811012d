package util

import (
	"mime/multipart"
	"net/http"

	"github.com/hsarchitect/folio/server/resp"
)

const (
	// multipartOverhead is the allowance for part headers and boundaries on top of the file bodies.
	multipartOverhead = 1 << 20
	// rejectedPartAllowance is how many full-size parts beyond maxFiles may be
	// drained (unsupported types, excess files) and still be reported by name.
	rejectedPartAllowance = 10
)

// MultipartReader validates the content type and returns a streaming reader over the
// request body. The body is capped so that a batch of maxFiles full-size files fits
// along with rejectedPartAllowance rejected ones; past the cap the processor keeps
// what already settled and marks the outcome truncated.
func MultipartReader(w http.ResponseWriter, r *http.Request, maxFiles int, maxFileSize int64) (*multipart.Reader, bool) {
	if _, ok := RequireMultipartContentType(w, r); !ok {
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, BodyLimit(maxFiles, maxFileSize))

	mr, err := r.MultipartReader()
	if err != nil {
		resp.WriteValidationError(w, "Invalid multipart body")
		return nil, false
	}

	return mr, true
}

// BodyLimit is the request body cap for a batch of maxFiles files of at most maxFileSize bytes.
func BodyLimit(maxFiles int, maxFileSize int64) int64 {
	return int64(maxFiles+rejectedPartAllowance)*(maxFileSize+1) + multipartOverhead
}
