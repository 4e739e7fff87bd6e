package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/bmore/mtgateway/internal/lang"
)

type fakeEngine struct {
	pingErr error
	run     func(req EngineRequest) ([]string, error)
	reqs    []EngineRequest
}

func (e *fakeEngine) Ping(context.Context) error { return e.pingErr }

func (e *fakeEngine) TranslateBatch(_ context.Context, req EngineRequest) ([]string, error) {
	e.reqs = append(e.reqs, req)
	return e.run(req)
}

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
	}
}

func nllbDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mkdirs(t, dir, nllbModelName)
	require.NoError(t, os.WriteFile(filepath.Join(dir, nllbModelName, nllbTokenizer), []byte("spm"), 0o644))
	return dir
}

func TestMarianModel_Load(t *testing.T) {
	dir := t.TempDir()
	mkdirs(t, dir, "opus-mt-es-en", "opus-mt-en-fr", "opus-mt-de-en")

	pairs, err := MarianModel{}.Load(dir, zap.NewNop())
	require.NoError(t, err)
	want := []lang.Pair{
		{Source: "es", Target: "en", Name: "es -> en (OPUS-MT)"},
		{Source: "en", Target: "fr", Name: "en -> fr (OPUS-MT)"},
	}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}

	_, err = MarianModel{}.Load(t.TempDir(), zap.NewNop())
	assert.Error(t, err)
}

func TestNLLBModel_Load(t *testing.T) {
	pairs, err := NLLBModel{}.Load(nllbDir(t), zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, pairs, 12)
	assert.True(t, lang.Contains(pairs, "ar", "es"))

	missingTokenizer := t.TempDir()
	mkdirs(t, missingTokenizer, nllbModelName)
	_, err = NLLBModel{}.Load(missingTokenizer, zap.NewNop())
	assert.Error(t, err)

	_, err = NLLBModel{}.Load(t.TempDir(), zap.NewNop())
	assert.Error(t, err)
}

func TestNLLBModel_Framing(t *testing.T) {
	m := NLLBModel{}
	assert.Equal(t, "spa_Latn hola", m.Encode("hola", "es"))
	assert.Equal(t, "eng_Latn", m.TargetPrefix("en"))
	assert.Equal(t, "hello", m.Decode("eng_Latn hello", "en"))
	assert.Equal(t, "hello", m.Decode("hello", "en"))
	assert.Equal(t, "xx_Test hi", m.Encode("hi", "xx_Test"))
}

func TestLocal_InitializeFailures(t *testing.T) {
	engine := &fakeEngine{}
	p := NewLocal(MarianModel{}, engine, LocalConfig{ModelDir: t.TempDir()}, zaptest.NewLogger(t))
	assert.ErrorIs(t, p.Initialize(context.Background()), ErrInitialization)

	engine = &fakeEngine{pingErr: errors.New("connection refused")}
	p = NewLocal(NLLBModel{}, engine, LocalConfig{ModelDir: nllbDir(t)}, zaptest.NewLogger(t))
	assert.ErrorIs(t, p.Initialize(context.Background()), ErrInitialization)

	_, err := p.TranslateBatch(context.Background(), []string{"hola"}, "es", "en")
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestLocal_TranslateBatchNLLB(t *testing.T) {
	dir := nllbDir(t)
	engine := &fakeEngine{run: func(req EngineRequest) ([]string, error) {
		out := make([]string, len(req.Texts))
		for i, text := range req.Texts {
			out[i] = req.TargetPrefix + " " + strings.ToUpper(strings.TrimPrefix(text, "spa_Latn "))
		}
		return out, nil
	}}
	p := NewLocal(NLLBModel{}, engine, LocalConfig{ModelDir: dir}, zaptest.NewLogger(t))
	require.NoError(t, p.Initialize(context.Background()))
	assert.Equal(t, NLLB, p.Name())

	out, err := p.TranslateBatch(context.Background(), []string{"hola", "adiós"}, "es", "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"HOLA", "ADIÓS"}, out)

	require.Len(t, engine.reqs, 1)
	req := engine.reqs[0]
	assert.Equal(t, []string{"spa_Latn hola", "spa_Latn adiós"}, req.Texts)
	assert.Equal(t, "eng_Latn", req.TargetPrefix)
	assert.Equal(t, filepath.Join(dir, nllbModelName), req.ModelPath)
	assert.Equal(t, "cpu", req.Device)
	assert.Equal(t, "int8", req.ComputeType)
	assert.Equal(t, 4, req.Threads)

	single, err := p.Translate(context.Background(), "hola", "es", "en")
	require.NoError(t, err)
	assert.Equal(t, "HOLA", single)
}

func TestLocal_TranslateBatchFailures(t *testing.T) {
	dir := t.TempDir()
	mkdirs(t, dir, "opus-mt-es-en")

	engine := &fakeEngine{}
	p := NewLocal(MarianModel{}, engine, LocalConfig{ModelDir: dir, Device: "cuda"}, zaptest.NewLogger(t))
	require.NoError(t, p.Initialize(context.Background()))
	assert.Equal(t, "float16", p.computeType())

	_, err := p.TranslateBatch(context.Background(), []string{"bonjour"}, "fr", "en")
	assert.ErrorIs(t, err, ErrUnsupportedPair)
	assert.Empty(t, engine.reqs)

	engine.run = func(EngineRequest) ([]string, error) { return nil, errors.New("out of memory") }
	_, err = p.TranslateBatch(context.Background(), []string{"hola", "adiós"}, "es", "en")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, Marian, te.Provider)

	engine.run = func(EngineRequest) ([]string, error) { return []string{"hello"}, nil }
	_, err = p.TranslateBatch(context.Background(), []string{"hola", "adiós"}, "es", "en")
	assert.Error(t, err)
}

func TestHTTPEngine(t *testing.T) {
	var got EngineRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /translate_batch", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":["hello","goodbye"]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := NewHTTPEngine(srv.URL, 0)
	require.NoError(t, e.Ping(context.Background()))

	req := EngineRequest{ModelPath: "/models/opus-mt-es-en", Device: "cpu", ComputeType: "int8", Threads: 2, Texts: []string{"hola", "adiós"}}
	out, err := e.TranslateBatch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "goodbye"}, out)
	assert.Equal(t, req, got)
}

func TestHTTPEngine_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewHTTPEngine(srv.URL, 0)
	assert.Error(t, e.Ping(context.Background()))
	_, err := e.TranslateBatch(context.Background(), EngineRequest{Texts: []string{"hola"}})
	assert.Error(t, err)
}
