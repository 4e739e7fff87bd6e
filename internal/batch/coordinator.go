// Package batch translates ordered lists of segments through the cache and
// the active provider.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/cache"
	"github.com/bmore/mtgateway/internal/metrics"
	"github.com/bmore/mtgateway/internal/quality"
	"github.com/bmore/mtgateway/internal/segment"
	"github.com/bmore/mtgateway/internal/textnorm"
)

const (
	// DefaultMaxBatch is the largest accepted number of segments per request.
	DefaultMaxBatch = 500
	// DefaultMaxTextLength is the longest accepted text, in runes.
	DefaultMaxTextLength = 5000
)

// Translator is the provider side of the coordinator; *provider.Router
// implements it.
type Translator interface {
	Name() string
	Supports(src, tgt string) bool
	Translate(ctx context.Context, text, src, tgt string) (string, error)
	TranslateBatch(ctx context.Context, texts []string, src, tgt string) ([]string, error)
}

// echoer is implemented by translators whose failed batch items come back
// as the source text.
type echoer interface {
	EchoesFailures() bool
}

type Config struct {
	MaxBatch int
	// MaxTextLength is the longest accepted text or segment, in runes.
	MaxTextLength int
	// MaxSegmentLength is the longest text sent to the provider as one item.
	// Longer misses are chunked and the translated chunks joined back.
	MaxSegmentLength int
}

type Request struct {
	Segments []string
	Src      string
	Tgt      string
}

type Result struct {
	Segments []string
	// CachedCount is the number of non-empty segments served from the cache.
	// Empty segments are passed through and counted in neither.
	CachedCount int
	// Degraded counts translated segments that came back equal to their
	// normalized source.
	Degraded int
	// Quality holds one report per segment when checks are enabled, nil for
	// empty segments.
	Quality []*quality.Report
}

type Single struct {
	Text    string
	Cached  bool
	Quality *quality.Report
}

type Option func(*Coordinator)

// WithQuality runs advisory checks on every result.
func WithQuality(c *quality.Checker) Option {
	return func(co *Coordinator) {
		co.checker = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(co *Coordinator) {
		co.metrics = m
	}
}

// WithWriter replaces the default background cache writer.
func WithWriter(w *Writer) Option {
	return func(co *Coordinator) {
		co.writer = w
	}
}

type Coordinator struct {
	translator Translator
	cache      *cache.Cache
	writer     *Writer
	checker    *quality.Checker
	metrics    *metrics.Metrics
	cfg        Config
	log        *zap.Logger
}

func New(t Translator, c *cache.Cache, cfg Config, log *zap.Logger, opts ...Option) *Coordinator {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	if cfg.MaxSegmentLength <= 0 {
		cfg.MaxSegmentLength = segment.DefaultMaxSegmentLength
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = DefaultMaxTextLength
	}
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = cache.New(nil, 0, log)
	}
	co := &Coordinator{
		translator: t,
		cache:      c,
		cfg:        cfg,
		log:        log.Named("batch"),
	}
	for _, opt := range opts {
		opt(co)
	}
	if co.writer == nil {
		co.writer = NewWriter(c, 0, co.log)
	}
	return co
}

// Writer returns the background cache writer so callers can drain it.
func (c *Coordinator) Writer() *Writer {
	return c.writer
}

func (c *Coordinator) MaxBatch() int {
	return c.cfg.MaxBatch
}

func (c *Coordinator) checkLength(text string) error {
	if n := utf8.RuneCountInString(text); n > c.cfg.MaxTextLength {
		return invalid(ErrTextTooLong,
			fmt.Sprintf("text of %d characters exceeds the limit of %d", n, c.cfg.MaxTextLength))
	}
	return nil
}

// cacheEchoes reports whether a result equal to its source may be cached.
// Relay backends echo failed items, so theirs are not.
func (c *Coordinator) cacheEchoes() bool {
	e, ok := c.translator.(echoer)
	return !ok || !e.EchoesFailures()
}

func (c *Coordinator) checkPair(src, tgt string) error {
	if !c.translator.Supports(src, tgt) {
		return invalid(ErrUnsupportedLanguagePair,
			fmt.Sprintf("language pair %s -> %s not supported by %s", src, tgt, c.translator.Name()))
	}
	return nil
}

// Validate checks a batch request without touching the cache or provider.
func (c *Coordinator) Validate(req Request) error {
	if err := c.checkPair(req.Src, req.Tgt); err != nil {
		return err
	}
	if len(req.Segments) > c.cfg.MaxBatch {
		return invalid(ErrBatchTooLarge,
			fmt.Sprintf("batch of %d segments exceeds the limit of %d", len(req.Segments), c.cfg.MaxBatch))
	}
	empty := true
	for i, s := range req.Segments {
		if err := c.checkLength(s); err != nil {
			return invalid(ErrTextTooLong, fmt.Sprintf("segment %d: %s", i, err))
		}
		if strings.TrimSpace(s) != "" {
			empty = false
		}
	}
	if empty {
		return invalid(ErrEmptyBatch, "no non-empty segments provided")
	}
	return nil
}

type miss struct {
	index      int
	source     string
	normalized string
	// start and count locate the miss's chunks in the provider input.
	start, count int
}

// TranslateBatch returns one translation per segment in input order. Cache
// hits are served directly; all misses go to the provider in a single call.
func (c *Coordinator) TranslateBatch(ctx context.Context, req Request) (*Result, error) {
	if err := c.Validate(req); err != nil {
		return nil, err
	}
	name := c.translator.Name()
	c.metrics.ObserveBatch(len(req.Segments))

	out := make([]string, len(req.Segments))
	var misses []miss
	hits := 0
	for i, seg := range req.Segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		if translated, ok := c.cache.Lookup(ctx, name, req.Src, req.Tgt, seg); ok {
			c.metrics.CacheLookup(true)
			out[i] = translated
			hits++
			continue
		}
		c.metrics.CacheLookup(false)
		misses = append(misses, miss{index: i, source: seg, normalized: textnorm.Normalize(seg)})
	}

	res := &Result{Segments: out, CachedCount: hits}
	if len(misses) > 0 {
		var texts []string
		for j := range misses {
			parts := c.chunk(misses[j].normalized)
			misses[j].start, misses[j].count = len(texts), len(parts)
			texts = append(texts, parts...)
		}

		started := time.Now()
		translated, err := c.translator.TranslateBatch(ctx, texts, req.Src, req.Tgt)
		if err != nil {
			return nil, fmt.Errorf("translate %d segments: %w", len(misses), err)
		}
		c.metrics.ObserveTranslation(name, req.Src, req.Tgt, len(texts), time.Since(started))

		cacheEchoes := c.cacheEchoes()
		entries := make([]Entry, 0, len(misses))
		for _, m := range misses {
			result := strings.Join(translated[m.start:m.start+m.count], " ")
			out[m.index] = result
			if result == m.normalized {
				res.Degraded++
				if !cacheEchoes {
					continue
				}
			}
			entries = append(entries, Entry{Text: m.source, Translation: result})
		}
		c.writer.Store(name, req.Src, req.Tgt, entries)
	}

	if c.checker != nil {
		res.Quality = make([]*quality.Report, len(out))
		for i, seg := range req.Segments {
			if strings.TrimSpace(seg) != "" {
				res.Quality[i] = c.checker.Check(seg, out[i], req.Src, req.Tgt)
			}
		}
	}

	c.log.Debug("batch translated",
		zap.String("provider", name),
		zap.Int("segments", len(req.Segments)),
		zap.Int("cached", res.CachedCount),
		zap.Int("degraded", res.Degraded))
	return res, nil
}

// Translate translates one text, consulting the cache first.
func (c *Coordinator) Translate(ctx context.Context, text, src, tgt string) (*Single, error) {
	if strings.TrimSpace(text) == "" {
		return nil, invalid(ErrEmptyText, "text must not be empty")
	}
	if err := c.checkLength(text); err != nil {
		return nil, err
	}
	if err := c.checkPair(src, tgt); err != nil {
		return nil, err
	}
	name := c.translator.Name()

	res := &Single{}
	if translated, ok := c.cache.Lookup(ctx, name, src, tgt, text); ok {
		c.metrics.CacheLookup(true)
		res.Text, res.Cached = translated, true
	} else {
		c.metrics.CacheLookup(false)
		normalized := textnorm.Normalize(text)
		started := time.Now()

		var err error
		if parts := c.chunk(normalized); len(parts) > 1 {
			var translated []string
			translated, err = c.translator.TranslateBatch(ctx, parts, src, tgt)
			res.Text = strings.Join(translated, " ")
		} else {
			res.Text, err = c.translator.Translate(ctx, normalized, src, tgt)
		}
		if err != nil {
			return nil, fmt.Errorf("translate: %w", err)
		}
		c.metrics.ObserveTranslation(name, src, tgt, 1, time.Since(started))

		if res.Text != normalized || c.cacheEchoes() {
			c.writer.Store(name, src, tgt, []Entry{{Text: text, Translation: res.Text}})
		}
	}

	if c.checker != nil {
		res.Quality = c.checker.Check(text, res.Text, src, tgt)
	}
	return res, nil
}

func (c *Coordinator) chunk(text string) []string {
	if utf8.RuneCountInString(text) <= c.cfg.MaxSegmentLength {
		return []string{text}
	}
	if parts := segment.Chunk(text, c.cfg.MaxSegmentLength); len(parts) > 0 {
		return parts
	}
	return []string{text}
}
