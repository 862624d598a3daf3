package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard-api/pkg/llm"
)

type fakeChat struct {
	structured    *layout
	structuredErr error
	reply         string
	chatErr       error

	lastRequest *llm.ChatRequest
	chatCalls   int
}

func (f *fakeChat) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.chatCalls++
	f.lastRequest = req
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &llm.ChatResponse{Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, Content: f.reply}}}}, nil
}

func (f *fakeChat) ChatStructured(_ context.Context, req *llm.ChatRequest, target any) error {
	f.lastRequest = req
	if f.structuredErr != nil {
		return f.structuredErr
	}
	if f.structured != nil {
		*target.(*layout) = *f.structured
	}
	return nil
}

func (f *fakeChat) Close() error { return nil }

func newTestGenerator(t *testing.T, client llm.ChatClient) *Generator {
	t.Helper()
	g, err := NewGenerator(client, "gpt-4o-mini")
	require.NoError(t, err)
	n := 0
	g.newID = func() string {
		n++
		return fmt.Sprintf("w%d", n)
	}
	return g
}

func TestGenerateWithoutClient(t *testing.T) {
	g := newTestGenerator(t, nil)
	reply, err := g.Generate(context.Background(), "Add a BTC price ticker and an eth chart")
	require.NoError(t, err)
	assert.Equal(t, "Add a BTC price ticker and an eth chart", reply.Message)
	require.Len(t, reply.Components, 2)

	assert.Equal(t, Widget{ID: "w1", Type: TypePriceTicker, Config: map[string]any{
		"symbols": []string{"BTC", "ETH"}, "currency": "CAD",
	}}, reply.Components[0])
	assert.Equal(t, Widget{ID: "w2", Type: TypeCandlestickChart, Config: map[string]any{
		"symbols": []string{"BTC", "ETH"}, "timeframe": "1d", "currency": "CAD",
	}}, reply.Components[1])
}

func TestGenerateNoKeywords(t *testing.T) {
	g := newTestGenerator(t, nil)
	reply, err := g.Generate(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Empty(t, reply.Components)
}

func TestGenerateStructured(t *testing.T) {
	fake := &fakeChat{structured: &layout{
		Message: "Added a chart",
		Widgets: []layoutWidget{
			{Type: TypeCandlestickChart, Symbols: []string{"mstr", "MSTR", " "}, Timeframe: "4h"},
			{Type: "news_feed"},
		},
	}}
	g := newTestGenerator(t, fake)
	reply, err := g.Generate(context.Background(), "chart MSTR")
	require.NoError(t, err)

	assert.Equal(t, "Added a chart", reply.Message)
	require.Len(t, reply.Components, 1)
	assert.Equal(t, map[string]any{"symbols": []string{"MSTR"}, "timeframe": "4h", "currency": "CAD"}, reply.Components[0].Config)
	assert.Equal(t, 0, fake.chatCalls)

	require.NotNil(t, fake.lastRequest)
	require.Len(t, fake.lastRequest.Messages, 2)
	assert.Contains(t, fake.lastRequest.Messages[0].Content, "AI assistant for a trading dashboard")
	assert.Contains(t, fake.lastRequest.Messages[0].Content, "BTC, ETH, LTC, MSTR")
	assert.InDelta(t, 0.7, *fake.lastRequest.Temperature, 1e-9)
}

func TestGenerateFallsBackToKeywords(t *testing.T) {
	fake := &fakeChat{
		structuredErr: errors.New("schema not supported"),
		reply:         "Sure, here is a LTC ticker.",
	}
	g := newTestGenerator(t, fake)
	reply, err := g.Generate(context.Background(), "show litecoin")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.chatCalls)
	assert.Equal(t, "Sure, here is a LTC ticker.", reply.Message)
	require.Len(t, reply.Components, 1)
	assert.Equal(t, TypePriceTicker, reply.Components[0].Type)
	assert.Equal(t, []string{"LTC"}, reply.Components[0].Config["symbols"])
}

func TestGenerateChatError(t *testing.T) {
	fake := &fakeChat{structuredErr: errors.New("bad"), chatErr: errors.New("upstream down")}
	g := newTestGenerator(t, fake)
	_, err := g.Generate(context.Background(), "price")
	require.Error(t, err)
}

func TestExtractSymbols(t *testing.T) {
	assert.Equal(t, []string{"BTC", "MSTR"}, ExtractSymbols("mstr vs btc"))
	assert.Empty(t, ExtractSymbols("doge"))
}

func TestPromptDigestStable(t *testing.T) {
	a := newTestGenerator(t, nil)
	b := newTestGenerator(t, nil)
	assert.Equal(t, a.PromptDigest(), b.PromptDigest())
	assert.Len(t, a.PromptDigest(), 64)
}
