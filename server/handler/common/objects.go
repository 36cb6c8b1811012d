package common

import (
	"context"
	"net/http"
	"time"

	"github.com/hsarchitect/folio/server/util"
	"github.com/hsarchitect/folio/storage/objects"
)

const removeTimeout = 30 * time.Second

// RemoveObjects deletes keys from the store after their records are gone.
// Failures are logged; the records are already deleted so the request succeeds.
func RemoveObjects(r *http.Request, store objects.Store, keys []string) {
	if len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), removeTimeout)
	defer cancel()

	if err := store.Remove(ctx, keys); err != nil {
		util.ForRequest(r).Zerolog().Warn().Err(err).Strs("keys", keys).Msg("object cleanup failed")
	}
}
