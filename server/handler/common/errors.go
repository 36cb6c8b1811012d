package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/util"
	"github.com/hsarchitect/folio/storage/catalog"
)

// LogAndWriteError maps catalog errors to client responses. Unknown errors are
// logged with request context and reported as 500.
func LogAndWriteError(w http.ResponseWriter, r *http.Request, op, subject string, err error) {
	rl := util.ForRequest(r)

	switch {
	case errors.Is(err, catalog.ErrNotFound):
		resp.WriteNotFound(w, fmt.Sprintf("%s not found", subject))
	case errors.Is(err, catalog.ErrConflict):
		resp.WriteConflict(w, fmt.Sprintf("%s already exists", subject))
	case errors.Is(err, catalog.ErrInUse):
		resp.WriteConflict(w, fmt.Sprintf("%s is in use", subject))
	case errors.Is(err, catalog.ErrInvalidReference):
		resp.WriteValidationError(w, "referenced record does not exist")
	case errors.Is(err, catalog.ErrNothingToUpdate):
		resp.WriteValidationError(w, "nothing to update")
	default:
		rl.Errorf("%s failed: %v", op, err)
		resp.WriteInternalServerError(w, fmt.Sprintf("%s failed", op))
		return
	}

	rl.Debugf("%s rejected: %v", op, err)
}
