package state

import (
	"github.com/hsarchitect/folio/config"
	"github.com/hsarchitect/folio/mail"
	"github.com/hsarchitect/folio/rebuild"
	"github.com/hsarchitect/folio/server/auth"
	"github.com/hsarchitect/folio/server/middleware"
	"github.com/hsarchitect/folio/storage/catalog"
	"github.com/hsarchitect/folio/storage/objects"
	"github.com/hsarchitect/folio/storage/util"
	"github.com/hsarchitect/folio/upload"
)

// FolioState is the process-wide set of collaborators shared by the handlers.
type FolioState struct {
	Cfg *config.Config

	ProjectKeyPattern *util.KeyPattern
	StudioKeyPattern  *util.KeyPattern

	Catalog   *catalog.Catalog
	Objects   objects.Store
	Processor *upload.Processor
	Rebuild   *rebuild.Scheduler
	Tokens    *auth.Tokens
	Cache     *middleware.ResponseCache
	Mailer    mail.Sender
	Inbox     mail.Inbox
}

// Touched records that public content changed. Cached reads are dropped and a
// site rebuild is scheduled for the given projects, or for the whole site when
// none are given.
func (s *FolioState) Touched(projectIDs ...int64) {
	s.Cache.Purge()
	if s.Rebuild == nil {
		return
	}
	if len(projectIDs) == 0 {
		s.Rebuild.ScheduleSite()
		return
	}
	for _, id := range projectIDs {
		s.Rebuild.Schedule(id)
	}
}

// URL resolves an object key to its public URL.
func (s *FolioState) URL(key string) string {
	return s.Objects.PublicURL(key)
}
