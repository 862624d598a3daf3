package llm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrompt(t *testing.T) {
	funcs := template.FuncMap{"join": strings.Join}
	p, err := ParsePrompt("dash", `Types: {{ join .Types ", " }}`, funcs)
	require.NoError(t, err)

	out, err := p.Render(map[string]any{"Types": []string{"price_ticker", "candlestick_chart"}})
	require.NoError(t, err)
	assert.Equal(t, "Types: price_ticker, candlestick_chart", out)
	assert.Len(t, p.Digest(), 64)

	_, err = p.Render(map[string]any{})
	assert.Error(t, err, "missing key must fail")

	_, err = ParsePrompt("bad", "{{ .Unclosed", nil)
	assert.Error(t, err)
}

func TestLoadPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("hello {{ .Name }}"), 0o600))

	p, err := LoadPrompt(path, nil)
	require.NoError(t, err)
	out, err := p.Render(struct{ Name string }{"desk"})
	require.NoError(t, err)
	assert.Equal(t, "hello desk", out)

	_, err = LoadPrompt(filepath.Join(t.TempDir(), "missing.tmpl"), nil)
	assert.Error(t, err)
	_, err = LoadPrompt(" ", nil)
	assert.Error(t, err)
}
