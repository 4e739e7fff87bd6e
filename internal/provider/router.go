package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/lang"
)

// DefaultTimeout bounds every call the router makes when none is configured.
const DefaultTimeout = 30 * time.Second

// Router owns the process-wide active provider and puts a deadline on every
// call made to it.
type Router struct {
	provider Provider
	timeout  time.Duration
	log      *zap.Logger
}

func NewRouter(p Provider, timeout time.Duration, log *zap.Logger) *Router {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{provider: p, timeout: timeout, log: log.Named("router")}
}

// Name is the active provider's name.
func (r *Router) Name() string {
	return r.provider.Name()
}

// EchoesFailures reports whether the active provider is a relay that returns
// source text for failed batch items.
func (r *Router) EchoesFailures() bool {
	e, ok := r.provider.(Echoer)
	return ok && e.EchoesFailures()
}

func (r *Router) Provider() Provider {
	return r.provider
}

func (r *Router) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.provider.Initialize(ctx); err != nil {
		return err
	}
	r.log.Info("provider ready", zap.String("provider", r.Name()), zap.Int("pairs", len(r.Pairs())))
	return nil
}

func (r *Router) Pairs() []lang.Pair {
	return r.provider.SupportedLanguagePairs()
}

// Supports reports whether the active provider translates src into tgt.
// Identity pairs are never supported.
func (r *Router) Supports(src, tgt string) bool {
	if src == "" || src == tgt {
		return false
	}
	return lang.Contains(r.Pairs(), src, tgt)
}

func (r *Router) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.provider.Translate(ctx, text, src, tgt)
	if err != nil {
		return "", r.wrap(ctx, err)
	}
	return out, nil
}

// TranslateBatch calls the provider once for all texts. A result whose length
// differs from the input is an error.
func (r *Router) TranslateBatch(ctx context.Context, texts []string, src, tgt string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.provider.TranslateBatch(ctx, texts, src, tgt)
	if err != nil {
		return nil, r.wrap(ctx, err)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%s returned %d translations for %d texts", r.Name(), len(out), len(texts))
	}
	return out, nil
}

// wrap turns deadline and cancellation failures into a TransportError.
func (r *Router) wrap(ctx context.Context, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Provider: r.Name(), Err: err}
	}
	return err
}
