package hyperliquid

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"

	"tradeboard-api/pkg/market"
)

// This test uses go-vcr to record/replay a real metaAndAssetCtxs call.
// It skips by default if cassette is absent and RECORD_CASSETTES != 1.
func TestAdapter_FetchQuote_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "hyperliquid_info")
	if _, err := os.Stat(cassette + ".yaml"); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s", cassette)
		}
		err := os.MkdirAll(filepath.Dir(cassette), 0o755)
		assert.NoError(t, err, "mkdir cassettes dir should succeed")
	}

	r, err := recorder.New(cassette)
	assert.NoError(t, err, "recorder.New should not error")
	assert.NotNil(t, r, "recorder should not be nil")
	defer func() { _ = r.Stop() }()

	adapter := NewAdapter(WithClientOptions(WithHTTPClient(&http.Client{Transport: r})))
	ctx := context.Background()
	raw, err := adapter.FetchQuote(ctx, "btc")
	assert.NoError(t, err, "FetchQuote should not error")
	if assert.NotNil(t, raw, "quote should not be nil") {
		quote := market.Normalize(ctx, raw, nil)
		assert.NotEmpty(t, quote.Native, "native id should not be empty")
		assert.Greater(t, quote.MarkPrice, 0.0, "mark price should be positive")
	}
}
