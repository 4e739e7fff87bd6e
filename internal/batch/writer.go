package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/cache"
)

// DefaultWriteTimeout bounds one background cache write.
const DefaultWriteTimeout = 5 * time.Second

// Entry is one translation to cache.
type Entry struct {
	Text        string
	Translation string
}

// Writer populates the cache off the request path. Writes run on their own
// context so they outlive the request; pending writes may be lost at exit.
type Writer struct {
	cache   *cache.Cache
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewWriter(c *cache.Cache, timeout time.Duration, log *zap.Logger) *Writer {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{cache: c, timeout: timeout, log: log}
}

// Store caches entries in the background and returns immediately.
func (w *Writer) Store(provider, src, tgt string, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		for _, e := range entries {
			if ctx.Err() != nil {
				w.log.Debug("cache writes abandoned", zap.Error(ctx.Err()))
				return
			}
			w.cache.Store(ctx, provider, src, tgt, e.Text, e.Translation, 0)
		}
	}()
}

// Wait blocks until every dispatched write finished or ctx is done.
func (w *Writer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
