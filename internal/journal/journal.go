package journal

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/widesurf/hft-sync/internal/logger"
	"github.com/widesurf/hft-sync/internal/model"
	"github.com/widesurf/hft-sync/internal/store"
)

const (
	_flushIntervalDefault = 1 * time.Minute
	_finalFlushTimeout    = 5 * time.Second
)

// Journal copies the live execution feed and account snapshots into
// Postgres. It only writes; the store never reads back from it.
type Journal struct {
	db     *sqlx.DB
	store  *store.Store
	every  time.Duration
	now    func() time.Time
	logger logger.Logger

	mu          sync.Mutex
	written     map[string]struct{}
	lastAccount *model.Account
}

func New(db *sqlx.DB, st *store.Store, every time.Duration, logger logger.Logger) *Journal {
	if every <= 0 {
		every = _flushIntervalDefault
	}
	return &Journal{
		db:      db,
		store:   st,
		every:   every,
		now:     time.Now,
		logger:  logger,
		written: make(map[string]struct{}),
	}
}

// Run flushes every interval and once more on shutdown.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), _finalFlushTimeout)
			defer cancel()
			if err := j.Flush(flushCtx); err != nil {
				j.logger.Errorf("%s: error flushing journal on shutdown", err)
			}
			return nil
		case <-time.After(j.every):
			if err := j.Flush(ctx); err != nil {
				j.logger.Errorf("%s: error flushing journal", err)
			}
		}
	}
}
