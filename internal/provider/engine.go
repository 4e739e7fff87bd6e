package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultInferenceURL is the CTranslate2 sidecar address used when none is configured.
const DefaultInferenceURL = "http://inference:8001"

// EngineRequest is one batch for the inference engine.
type EngineRequest struct {
	ModelPath    string   `json:"model_path"`
	Device       string   `json:"device"`
	ComputeType  string   `json:"compute_type"`
	Threads      int      `json:"threads"`
	TargetPrefix string   `json:"target_prefix,omitempty"`
	Texts        []string `json:"texts"`
}

// Engine runs model inference for a LocalProvider.
type Engine interface {
	Ping(ctx context.Context) error
	// TranslateBatch returns one decoded output per request text.
	TranslateBatch(ctx context.Context, req EngineRequest) ([]string, error)
}

// HTTPEngine talks to an inference sidecar over HTTP.
type HTTPEngine struct {
	http *resty.Client
}

func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	if baseURL == "" {
		baseURL = DefaultInferenceURL
	}
	if timeout <= 0 {
		timeout = DefaultItemTimeout
	}
	return &HTTPEngine{
		http: resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(timeout),
	}
}

func (e *HTTPEngine) Ping(ctx context.Context) error {
	resp, err := e.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("inference health: %s", resp.Status())
	}
	return nil
}

func (e *HTTPEngine) TranslateBatch(ctx context.Context, req EngineRequest) ([]string, error) {
	var result struct {
		Translations []string `json:"translations"`
	}
	resp, err := e.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/translate_batch")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("inference translate: %s: %s", resp.Status(), resp.String())
	}
	return result.Translations, nil
}
