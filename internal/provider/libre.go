package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/lang"
)

// DefaultLibreURL is used when no LibreTranslate address is configured.
const DefaultLibreURL = "http://libre:5000"

var libreSources = []string{"ar", "es", "fr"}

// LibreProvider relays translations to a LibreTranslate server.
type LibreProvider struct {
	baseURL string
	http    *resty.Client
	opts    relayOptions
	log     *zap.Logger

	mu    sync.RWMutex
	ready bool
	pairs []lang.Pair
}

func NewLibre(baseURL string, log *zap.Logger, opts ...RelayOption) *LibreProvider {
	if baseURL == "" {
		baseURL = DefaultLibreURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	o := newRelayOptions(opts)
	baseURL = strings.TrimRight(baseURL, "/")
	return &LibreProvider{
		baseURL: baseURL,
		http:    resty.New().SetBaseURL(baseURL).SetTimeout(o.itemTimeout),
		opts:    o,
		log:     log.Named("libre"),
	}
}

func (p *LibreProvider) Name() string {
	return Libre
}

func (p *LibreProvider) EchoesFailures() bool { return true }

// Initialize checks that the server answers /languages and builds the pair
// list: every source translates to English and to the other sources.
func (p *LibreProvider) Initialize(ctx context.Context) error {
	var languages []struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	resp, err := p.http.R().SetContext(ctx).SetResult(&languages).Get("/languages")
	if err != nil {
		return fmt.Errorf("%w: libre %s: %v", ErrInitialization, p.baseURL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: libre %s: %s", ErrInitialization, p.baseURL, resp.Status())
	}

	var pairs []lang.Pair
	for _, src := range libreSources {
		pairs = append(pairs, lang.NewPair(src, "en", ""))
		for _, tgt := range libreSources {
			if tgt != src {
				pairs = append(pairs, lang.NewPair(src, tgt, ""))
			}
		}
	}

	p.mu.Lock()
	p.pairs = pairs
	p.ready = true
	p.mu.Unlock()

	p.log.Info("initialized", zap.String("url", p.baseURL), zap.Int("server_languages", len(languages)), zap.Int("pairs", len(pairs)))
	return nil
}

func (p *LibreProvider) isReady() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// Translate sends one text to /translate. A response without translatedText
// yields the input unchanged.
func (p *LibreProvider) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	if !p.isReady() {
		return "", ErrBackendUnavailable
	}

	var result struct {
		TranslatedText *string `json:"translatedText"`
	}
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"q":      text,
			"source": src,
			"target": tgt,
			"format": "text",
		}).
		SetResult(&result).
		Post("/translate")
	if err != nil {
		return "", &TransportError{Provider: Libre, Err: err}
	}
	if resp.IsError() {
		return "", &TransportError{Provider: Libre, Err: fmt.Errorf("status %s: %s", resp.Status(), resp.String())}
	}
	if result.TranslatedText == nil {
		return text, nil
	}
	return *result.TranslatedText, nil
}

// TranslateBatch translates every text with its own call. Items whose call
// fails keep their source text; the batch itself only fails when the
// provider is not initialized.
func (p *LibreProvider) TranslateBatch(ctx context.Context, texts []string, src, tgt string) ([]string, error) {
	if !p.isReady() {
		return nil, ErrBackendUnavailable
	}
	return relayBatch(ctx, p.log, p.opts.itemTimeout, texts, src, tgt, p.Translate), nil
}

func (p *LibreProvider) SupportedLanguagePairs() []lang.Pair {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyPairs(p.pairs)
}
