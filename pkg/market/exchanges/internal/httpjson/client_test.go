package httpjson

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"tradeboard-api/pkg/market"
)

func envelope(status int, body gjson.Result) (gjson.Result, error) {
	if code := body.Get("code").Int(); code != 0 {
		if code == 404 {
			return gjson.Result{}, market.ErrSymbolNotFound
		}
		return gjson.Result{}, fmt.Errorf("code %d", code)
	}
	return body.Get("data"), nil
}

func TestClientGet(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("id") {
		case "ok":
			fmt.Fprint(w, `{"code":0,"data":{"price":"1.5"}}`)
		case "missing":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":404}`)
		case "rejected":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":51000}`)
		case "html":
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `<html>bad gateway</html>`)
		}
	}))
	defer server.Close()

	client := NewClient("demo", server.URL+"/", 0, 2, envelope)
	client.SetHTTPClient(server.Client())
	ctx := context.Background()

	data, err := client.Get(ctx, "/v1/thing", url.Values{"id": {"ok"}})
	require.NoError(t, err)
	assert.Equal(t, "1.5", data.Get("price").String())

	calls.Store(0)
	_, err = client.Get(ctx, "/v1/thing", url.Values{"id": {"missing"}})
	assert.True(t, errors.Is(err, market.ErrSymbolNotFound))
	assert.Equal(t, int32(1), calls.Load())

	calls.Store(0)
	_, err = client.Get(ctx, "/v1/thing", url.Values{"id": {"html"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http status 502")
	assert.Equal(t, int32(3), calls.Load())
	var statusErr *market.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)

	calls.Store(0)
	_, err = client.Get(ctx, "/v1/thing", url.Values{"id": {"rejected"}})
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Status)
	assert.Contains(t, err.Error(), "code 51000")
	assert.Equal(t, int32(1), calls.Load())
}
