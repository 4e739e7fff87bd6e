package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/lang"
)

// DefaultModelDir is where model directories are looked up when none is configured.
const DefaultModelDir = "/models"

// Model describes one family of CTranslate2 models: where its files live,
// which pairs it serves and how texts are framed for it.
type Model interface {
	Name() string
	// Load inspects modelDir and returns the pairs whose model files exist.
	Load(modelDir string, log *zap.Logger) ([]lang.Pair, error)
	// Path is the model directory used for src -> tgt.
	Path(modelDir, src, tgt string) string
	// Encode frames one input text. TargetPrefix is the forced first target token, if any.
	Encode(text, src string) string
	TargetPrefix(tgt string) string
	// Decode cleans one engine output.
	Decode(text, tgt string) string
}

// MarianModel uses one OPUS-MT model directory per language pair.
type MarianModel struct{}

var marianPairs = [][2]string{
	{"ar", "en"},
	{"es", "en"},
	{"fr", "en"},
	{"en", "es"},
	{"en", "fr"},
}

func (MarianModel) Name() string { return Marian }

func (m MarianModel) Load(modelDir string, log *zap.Logger) ([]lang.Pair, error) {
	var pairs []lang.Pair
	for _, p := range marianPairs {
		path := m.Path(modelDir, p[0], p[1])
		if !isDir(path) {
			log.Warn("model not found", zap.String("path", path))
			continue
		}
		pairs = append(pairs, lang.NewPair(p[0], p[1], "OPUS-MT"))
		log.Info("found model", zap.String("model", filepath.Base(path)))
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no Marian models in %s", modelDir)
	}
	return pairs, nil
}

func (MarianModel) Path(modelDir, src, tgt string) string {
	return filepath.Join(modelDir, fmt.Sprintf("opus-mt-%s-%s", src, tgt))
}

func (MarianModel) Encode(text, _ string) string { return text }
func (MarianModel) TargetPrefix(string) string   { return "" }
func (MarianModel) Decode(text, _ string) string { return strings.TrimSpace(text) }

// NLLBModel uses a single multilingual NLLB-200 model with language tags.
type NLLBModel struct{}

const (
	nllbModelName = "nllb-200-1.3B"
	nllbTokenizer = "sentencepiece.model"
)

var nllbTags = map[string]string{
	"ar": "arb_Arab",
	"es": "spa_Latn",
	"fr": "fra_Latn",
	"en": "eng_Latn",
}

var nllbLanguages = []string{"ar", "es", "fr", "en"}

func (NLLBModel) Name() string { return NLLB }

func (m NLLBModel) Load(modelDir string, log *zap.Logger) ([]lang.Pair, error) {
	path := m.Path(modelDir, "", "")
	if !isDir(path) {
		return nil, fmt.Errorf("NLLB model not found at %s", path)
	}
	if _, err := os.Stat(filepath.Join(path, nllbTokenizer)); err != nil {
		return nil, fmt.Errorf("NLLB tokenizer: %w", err)
	}

	var pairs []lang.Pair
	for _, src := range nllbLanguages {
		for _, tgt := range nllbLanguages {
			if src != tgt {
				pairs = append(pairs, lang.NewPair(src, tgt, "NLLB-200"))
			}
		}
	}
	log.Info("found model", zap.String("model", nllbModelName))
	return pairs, nil
}

func (NLLBModel) Path(modelDir, _, _ string) string {
	return filepath.Join(modelDir, nllbModelName)
}

func nllbTag(code string) string {
	if tag, ok := nllbTags[code]; ok {
		return tag
	}
	return code
}

func (NLLBModel) Encode(text, src string) string {
	return nllbTag(src) + " " + text
}

func (NLLBModel) TargetPrefix(tgt string) string {
	return nllbTag(tgt)
}

func (NLLBModel) Decode(text, tgt string) string {
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimPrefix(text, nllbTag(tgt)))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// LocalConfig selects where models are read from and how they run.
type LocalConfig struct {
	ModelDir string
	Device   string
	Threads  int
}

// LocalProvider translates whole batches through an inference Engine.
type LocalProvider struct {
	model  Model
	engine Engine
	cfg    LocalConfig
	log    *zap.Logger

	mu    sync.RWMutex
	ready bool
	pairs []lang.Pair
}

func NewLocal(model Model, engine Engine, cfg LocalConfig, log *zap.Logger) *LocalProvider {
	if cfg.ModelDir == "" {
		cfg.ModelDir = DefaultModelDir
	}
	if cfg.Device == "" {
		cfg.Device = "cpu"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalProvider{
		model:  model,
		engine: engine,
		cfg:    cfg,
		log:    log.Named(strings.ToLower(model.Name())),
	}
}

func (p *LocalProvider) Name() string {
	return p.model.Name()
}

// computeType picks int8 quantization on CPU and half precision elsewhere.
func (p *LocalProvider) computeType() string {
	if p.cfg.Device == "cpu" {
		return "int8"
	}
	return "float16"
}

func (p *LocalProvider) Initialize(ctx context.Context) error {
	pairs, err := p.model.Load(p.cfg.ModelDir, p.log)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	if err := p.engine.Ping(ctx); err != nil {
		return fmt.Errorf("%w: inference engine: %v", ErrInitialization, err)
	}

	p.mu.Lock()
	p.pairs = pairs
	p.ready = true
	p.mu.Unlock()

	p.log.Info("initialized",
		zap.Int("pairs", len(pairs)),
		zap.String("device", p.cfg.Device),
		zap.String("compute_type", p.computeType()))
	return nil
}

func (p *LocalProvider) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	out, err := p.TranslateBatch(ctx, []string{text}, src, tgt)
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// TranslateBatch sends all texts to the engine in one request. Any engine
// failure fails the whole batch.
func (p *LocalProvider) TranslateBatch(ctx context.Context, texts []string, src, tgt string) ([]string, error) {
	p.mu.RLock()
	ready, pairs := p.ready, p.pairs
	p.mu.RUnlock()

	if !ready {
		return nil, ErrBackendUnavailable
	}
	if !lang.Contains(pairs, src, tgt) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrUnsupportedPair, src, tgt)
	}
	if len(texts) == 0 {
		return []string{}, nil
	}

	req := EngineRequest{
		ModelPath:    p.model.Path(p.cfg.ModelDir, src, tgt),
		Device:       p.cfg.Device,
		ComputeType:  p.computeType(),
		Threads:      p.cfg.Threads,
		TargetPrefix: p.model.TargetPrefix(tgt),
		Texts:        make([]string, len(texts)),
	}
	for i, text := range texts {
		req.Texts[i] = p.model.Encode(text, src)
	}

	out, err := p.engine.TranslateBatch(ctx, req)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &TransportError{Provider: p.Name(), Err: err}
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%s: engine returned %d translations for %d texts", strings.ToLower(p.Name()), len(out), len(texts))
	}
	for i := range out {
		out[i] = p.model.Decode(out[i], tgt)
	}
	return out, nil
}

func (p *LocalProvider) SupportedLanguagePairs() []lang.Pair {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyPairs(p.pairs)
}
