package provider

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultItemTimeout bounds a single relay call when no timeout is configured.
const DefaultItemTimeout = 30 * time.Second

type relayOptions struct {
	itemTimeout time.Duration
}

// RelayOption configures a relay backend.
type RelayOption func(*relayOptions)

// WithItemTimeout bounds each per-text call. Values <= 0 keep the default.
func WithItemTimeout(d time.Duration) RelayOption {
	return func(o *relayOptions) {
		if d > 0 {
			o.itemTimeout = d
		}
	}
}

func newRelayOptions(opts []RelayOption) relayOptions {
	o := relayOptions{itemTimeout: DefaultItemTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type translateFunc func(ctx context.Context, text, src, tgt string) (string, error)

// relayBatch issues one call per text concurrently and waits for all of
// them. A failed call leaves the source text at its index.
func relayBatch(ctx context.Context, log *zap.Logger, timeout time.Duration, texts []string, src, tgt string, translate translateFunc) []string {
	out := make([]string, len(texts))
	var wg sync.WaitGroup
	for i, text := range texts {
		i, text := i, text
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			translated, err := translate(callCtx, text, src, tgt)
			if err != nil {
				log.Warn("batch item failed, returning source text", zap.Int("index", i), zap.Error(err))
				out[i] = text
				return
			}
			out[i] = translated
		}()
	}
	wg.Wait()
	return out
}
