package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

func vectorizerServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/languages", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"languages":["ja","en"]}`))
	})
	mux.HandleFunc("/vectorize", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		out := map[string][]float32{}
		for k := range body {
			if k != "lang" {
				out[k] = []float32{1, 0}
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, vectorizerURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := fmt.Sprintf(`http:
  port: 8080
engine:
  type: opensearch2
vectorizer:
  url: %q
  dimension: 2
semantic:
  default_languages: [en]
`, vectorizerURL)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	err := app.Run(append([]string{"vecquery-cli", "--env", "test", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	cfgPath := writeConfig(t, vectorizerServer(t).URL)

	out, err := run(t, "--config", cfgPath, "build", "--lang", "ja", "--role", "guest", "semantic:aaa")
	require.NoError(t, err)

	var got buildOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.BuildID)
	assert.Contains(t, out, "content_ja_vector")
	assert.Contains(t, out, `"guest"`)
}

func TestBuildCommand_Lexical(t *testing.T) {
	cfgPath := writeConfig(t, "")

	out, err := run(t, "--config", cfgPath, "build", "--default-field", "title", "aaa")
	require.NoError(t, err)
	assert.NotContains(t, out, "script_score")
	assert.Contains(t, out, "title")
}

func TestBuildCommand_RequiresQuery(t *testing.T) {
	cfgPath := writeConfig(t, "")

	_, err := run(t, "--config", cfgPath, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query argument is required")
}

func TestBuildCommand_InvalidQuery(t *testing.T) {
	cfgPath := writeConfig(t, "")

	_, err := run(t, "--config", cfgPath, "build", "sort:xxx")
	require.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestLanguagesCommand(t *testing.T) {
	cfgPath := writeConfig(t, vectorizerServer(t).URL)

	out, err := run(t, "--config", cfgPath, "languages")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "ja"}, strings.Fields(out))
}

func TestEngineCommand(t *testing.T) {
	cfgPath := writeConfig(t, "")

	out, err := run(t, "--config", cfgPath, "engine")
	require.NoError(t, err)
	assert.Contains(t, out, "engine: opensearch2")
	assert.Contains(t, out, "semantic: false")
}

func TestCacheCommands_CacheDisabled(t *testing.T) {
	cfgPath := writeConfig(t, vectorizerServer(t).URL)

	_, err := run(t, "--config", cfgPath, "cache", "show", "--lang", "en", "aaa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	_, err = run(t, "--config", cfgPath, "cache", "evict", "--lang", "en", "aaa")
	require.Error(t, err)
}

func TestCacheShow_LangIsRequired(t *testing.T) {
	cfgPath := writeConfig(t, "")

	_, err := run(t, "--config", cfgPath, "cache", "show", "aaa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lang")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "engine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
