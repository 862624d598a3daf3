// Package dashboard turns chat messages into dashboard widget layouts.
package dashboard

import (
	"context"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/pkg/llm"
)

const (
	TypePriceTicker      = "price_ticker"
	TypeCandlestickChart = "candlestick_chart"

	defaultCurrency  = "CAD"
	defaultTimeframe = "1d"
	temperature      = 0.7
)

// knownSymbols are picked out of free text in this order.
var knownSymbols = []string{"BTC", "ETH", "LTC", "MSTR"}

const systemPrompt = `You are an AI assistant for a trading dashboard. Help users create and modify dashboard components based on their requests.
Available component types:
- Price tickers
- Candlestick charts
- Volume charts
- Portfolio performance
- News feeds
- Custom metrics
{{- if .Symbols }}
Known symbols: {{ join .Symbols ", " }}.
{{- end }}
Prices are quoted in {{ .Currency }}.`

// Widget is one generated component, ready to render.
type Widget struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// Reply is the generator output for one chat message.
type Reply struct {
	Message    string
	Components []Widget
}

// layout is the strict schema requested from the model.
type layout struct {
	Message string         `json:"message" description:"short reply shown to the user"`
	Widgets []layoutWidget `json:"widgets"`
}

type layoutWidget struct {
	Type      string   `json:"type" enum:"price_ticker,candlestick_chart"`
	Symbols   []string `json:"symbols" description:"upper-case tickers such as BTC"`
	Timeframe string   `json:"timeframe" description:"candle interval, e.g. 1d"`
	Currency  string   `json:"currency"`
}

// Generator asks the LLM for a layout and falls back to keyword mapping.
type Generator struct {
	client llm.ChatClient
	prompt *llm.PromptTemplate
	model  string
	newID  func() string
}

// NewGenerator builds a generator. A nil client maps the user message
// directly with keywords.
func NewGenerator(client llm.ChatClient, model string) (*Generator, error) {
	prompt, err := llm.ParsePrompt("dashboard-system", systemPrompt, template.FuncMap{"join": strings.Join})
	if err != nil {
		return nil, err
	}
	return &Generator{
		client: client,
		prompt: prompt,
		model:  model,
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// PromptDigest identifies the rendered system prompt template.
func (g *Generator) PromptDigest() string {
	return g.prompt.Digest()
}

// Generate produces widgets for message.
func (g *Generator) Generate(ctx context.Context, message string) (*Reply, error) {
	logger := logx.WithContext(ctx)
	if g.client == nil {
		return g.fromText(message, message), nil
	}

	system, err := g.prompt.Render(map[string]any{
		"Symbols":  knownSymbols,
		"Currency": defaultCurrency,
	})
	if err != nil {
		return nil, err
	}
	t := temperature
	req := &llm.ChatRequest{
		Model:       g.model,
		Temperature: &t,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: message},
		},
	}

	var out layout
	if err := g.client.ChatStructured(ctx, req, &out); err == nil && len(out.Widgets) > 0 {
		return g.fromLayout(message, out), nil
	} else if err != nil {
		logger.Slowf("structured layout failed, falling back to keywords: %v", err)
	}

	resp, err := g.client.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	text := resp.Text()
	return g.fromText(text, text), nil
}

func (g *Generator) fromLayout(message string, out layout) *Reply {
	reply := &Reply{Message: out.Message, Components: make([]Widget, 0, len(out.Widgets))}
	if strings.TrimSpace(reply.Message) == "" {
		reply.Message = message
	}
	for _, w := range out.Widgets {
		symbols := normalizeSymbols(w.Symbols)
		currency := strings.ToUpper(strings.TrimSpace(w.Currency))
		if currency == "" {
			currency = defaultCurrency
		}
		switch w.Type {
		case TypePriceTicker:
			reply.Components = append(reply.Components, g.priceTicker(symbols, currency))
		case TypeCandlestickChart:
			timeframe := strings.TrimSpace(w.Timeframe)
			if timeframe == "" {
				timeframe = defaultTimeframe
			}
			reply.Components = append(reply.Components, g.candlestick(symbols, timeframe, currency))
		}
	}
	return reply
}

// fromText maps keywords in text to widgets; message is echoed back.
func (g *Generator) fromText(message, text string) *Reply {
	lower := strings.ToLower(text)
	symbols := ExtractSymbols(text)
	components := make([]Widget, 0, 2)
	if strings.Contains(lower, "price") || strings.Contains(lower, "ticker") {
		components = append(components, g.priceTicker(symbols, defaultCurrency))
	}
	if strings.Contains(lower, "chart") {
		components = append(components, g.candlestick(symbols, defaultTimeframe, defaultCurrency))
	}
	return &Reply{Message: message, Components: components}
}

func (g *Generator) priceTicker(symbols []string, currency string) Widget {
	return Widget{
		ID:   g.newID(),
		Type: TypePriceTicker,
		Config: map[string]any{
			"symbols":  symbols,
			"currency": currency,
		},
	}
}

func (g *Generator) candlestick(symbols []string, timeframe, currency string) Widget {
	return Widget{
		ID:   g.newID(),
		Type: TypeCandlestickChart,
		Config: map[string]any{
			"symbols":   symbols,
			"timeframe": timeframe,
			"currency":  currency,
		},
	}
}

// ExtractSymbols returns the known tickers mentioned in text.
func ExtractSymbols(text string) []string {
	upper := strings.ToUpper(text)
	out := make([]string, 0, len(knownSymbols))
	for _, sym := range knownSymbols {
		if strings.Contains(upper, sym) {
			out = append(out, sym)
		}
	}
	return out
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
