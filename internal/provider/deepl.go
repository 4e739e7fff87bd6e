package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bounoable/deepl"
	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/lang"
)

var deeplLanguages = []string{"ar", "es", "fr", "en"}

// DeepLClient is the part of *deepl.Client used by DeepLProvider.
type DeepLClient interface {
	Translate(
		ctx context.Context,
		text string,
		targetLang deepl.Language,
		opts ...deepl.TranslateOption,
	) (string, deepl.Language, error)
}

// DeepLProvider relays translations to the DeepL API, one call per text.
type DeepLProvider struct {
	client     DeepLClient
	configured bool
	opts       relayOptions
	log        *zap.Logger

	mu    sync.RWMutex
	ready bool
	pairs []lang.Pair
}

// NewDeepL builds a provider on a *deepl.Client for authKey.
func NewDeepL(authKey string, log *zap.Logger, opts ...RelayOption) *DeepLProvider {
	p := NewDeepLWithClient(deepl.New(authKey), log, opts...)
	p.configured = authKey != ""
	return p
}

// NewDeepLWithClient does the same as NewDeepL but uses an existing client.
func NewDeepLWithClient(client DeepLClient, log *zap.Logger, opts ...RelayOption) *DeepLProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeepLProvider{
		client:     client,
		configured: true,
		opts:       newRelayOptions(opts),
		log:        log.Named("deepl"),
	}
}

func (p *DeepLProvider) Name() string {
	return DeepL
}

func (p *DeepLProvider) EchoesFailures() bool { return true }

func (p *DeepLProvider) Initialize(context.Context) error {
	if !p.configured {
		return fmt.Errorf("%w: deepl auth key not configured", ErrInitialization)
	}

	var pairs []lang.Pair
	for _, src := range deeplLanguages {
		for _, tgt := range deeplLanguages {
			if src != tgt {
				pairs = append(pairs, lang.NewPair(src, tgt, "DeepL"))
			}
		}
	}

	p.mu.Lock()
	p.pairs = pairs
	p.ready = true
	p.mu.Unlock()

	p.log.Info("initialized", zap.Int("pairs", len(pairs)))
	return nil
}

func (p *DeepLProvider) isReady() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// deeplTarget maps a target code to DeepL's; plain EN is deprecated as a target.
func deeplTarget(code string) deepl.Language {
	if code == "en" {
		return deepl.Language("EN-US")
	}
	return deepl.Language(strings.ToUpper(code))
}

func (p *DeepLProvider) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	if !p.isReady() {
		return "", ErrBackendUnavailable
	}
	translated, _, err := p.client.Translate(ctx, text, deeplTarget(tgt),
		deepl.SourceLang(deepl.Language(strings.ToUpper(src))),
		deepl.PreserveFormatting(true),
	)
	if err != nil {
		return "", &TransportError{Provider: DeepL, Err: err}
	}
	return translated, nil
}

// TranslateBatch has the same per-item fallback as LibreProvider.TranslateBatch.
func (p *DeepLProvider) TranslateBatch(ctx context.Context, texts []string, src, tgt string) ([]string, error) {
	if !p.isReady() {
		return nil, ErrBackendUnavailable
	}
	return relayBatch(ctx, p.log, p.opts.itemTimeout, texts, src, tgt, p.Translate), nil
}

func (p *DeepLProvider) SupportedLanguagePairs() []lang.Pair {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyPairs(p.pairs)
}
