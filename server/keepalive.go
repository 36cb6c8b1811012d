package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/hsarchitect/folio/server/state"
)

const keepAliveTimeout = 30 * time.Second

// startKeepAlive pings the catalog and the object store on schedule so idle
// hosted backends are not paused. An empty schedule disables it.
func startKeepAlive(st *state.FolioState, schedule string, logger zerolog.Logger) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { keepAlive(st, logger) }); err != nil {
		return nil, fmt.Errorf("invalid keep-alive schedule %q: %w", schedule, err)
	}
	c.Start()

	return c, nil
}

func keepAlive(st *state.FolioState, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), keepAliveTimeout)
	defer cancel()

	ok := true
	if err := st.Catalog.Ping(ctx); err != nil {
		ok = false
		logger.Warn().Err(err).Msg("keep-alive: catalog ping failed")
	}
	if err := st.Objects.Check(ctx); err != nil {
		ok = false
		logger.Warn().Err(err).Msg("keep-alive: object store check failed")
	}
	if ok {
		logger.Debug().Msg("keep-alive ok")
	}
}
