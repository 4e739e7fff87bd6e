// Package provider adapts machine translation backends to a single interface.
//
// Two kinds of backend exist. Relay backends (LibreTranslate, DeepL) call a
// remote HTTP API once per text and echo the source text for items that
// fail, so a batch never fails as a whole. Local backends hand a whole batch
// to an inference engine and fail the batch if the engine fails.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/lang"
)

// Backend identifiers accepted by New.
const (
	Libre  = "LIBRE"
	Marian = "MARIAN"
	NLLB   = "NLLB"
	DeepL  = "DEEPL"
)

var (
	// ErrInitialization means the backend is unreachable or its model files are missing.
	ErrInitialization = errors.New("provider initialization failed")
	// ErrBackendUnavailable means the provider was used before Initialize succeeded.
	ErrBackendUnavailable = errors.New("translation backend unavailable")
	// ErrUnsupportedPair means the backend cannot translate between the two languages.
	ErrUnsupportedPair = errors.New("unsupported language pair")
)

// TransportError is a failed or timed out call to a backend.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: backend call failed: %v", strings.ToLower(e.Provider), e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Provider is a translation backend.
type Provider interface {
	Name() string
	// Initialize connects to the backend or loads its models. It returns an
	// error wrapping ErrInitialization on failure.
	Initialize(ctx context.Context) error
	Translate(ctx context.Context, text, src, tgt string) (string, error)
	// TranslateBatch returns one translation per text, in input order, or an error.
	TranslateBatch(ctx context.Context, texts []string, src, tgt string) ([]string, error)
	SupportedLanguagePairs() []lang.Pair
}

// Echoer is implemented by relay backends whose batch calls return the source
// text in place of a failed item, so an output equal to its input may be a
// failure rather than a translation.
type Echoer interface {
	EchoesFailures() bool
}

// Settings holds what New needs to build any of the backends.
type Settings struct {
	LibreURL     string
	DeepLAuthKey string
	ModelDir     string
	Device       string
	Threads      int
	InferenceURL string
	// ItemTimeout bounds each per-text call made by relay backends.
	ItemTimeout time.Duration
}

// New builds the backend named by kind (LIBRE, MARIAN, NLLB or DEEPL).
func New(kind string, s Settings, log *zap.Logger) (Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	relayOpts := []RelayOption{WithItemTimeout(s.ItemTimeout)}

	switch strings.ToUpper(strings.TrimSpace(kind)) {
	case Libre, "":
		return NewLibre(s.LibreURL, log, relayOpts...), nil
	case DeepL:
		return NewDeepL(s.DeepLAuthKey, log, relayOpts...), nil
	case Marian, NLLB:
		var model Model = MarianModel{}
		if strings.EqualFold(kind, NLLB) {
			model = NLLBModel{}
		}
		engine := NewHTTPEngine(s.InferenceURL, s.ItemTimeout)
		return NewLocal(model, engine, LocalConfig{
			ModelDir: s.ModelDir,
			Device:   s.Device,
			Threads:  s.Threads,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", kind)
	}
}

func copyPairs(pairs []lang.Pair) []lang.Pair {
	out := make([]lang.Pair, len(pairs))
	copy(out, pairs)
	return out
}
