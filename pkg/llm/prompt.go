package llm

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// PromptTemplate is a parsed text/template with a digest of its source, so
// logs can tell which prompt revision produced a reply.
type PromptTemplate struct {
	name   string
	tmpl   *template.Template
	digest string
}

// ParsePrompt parses text under name. Missing keys fail rendering.
func ParsePrompt(name, text string, funcs template.FuncMap) (*PromptTemplate, error) {
	tmpl := template.New(name).Option("missingkey=error")
	if len(funcs) > 0 {
		tmpl = tmpl.Funcs(funcs)
	}
	if _, err := tmpl.Parse(text); err != nil {
		return nil, fmt.Errorf("parse prompt %q: %w", name, err)
	}
	sum := sha256.Sum256([]byte(text))
	return &PromptTemplate{name: name, tmpl: tmpl, digest: hex.EncodeToString(sum[:])}, nil
}

// LoadPrompt parses the template file at path.
func LoadPrompt(path string, funcs template.FuncMap) (*PromptTemplate, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("prompt path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt %q: %w", path, err)
	}
	return ParsePrompt(path, string(data), funcs)
}

// Render executes the template.
func (p *PromptTemplate) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", p.name, err)
	}
	return buf.String(), nil
}

// Digest is the sha256 of the template source.
func (p *PromptTemplate) Digest() string {
	return p.digest
}
