package api_client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/config"
	errs "github.com/NastyaGoryachaya/exchange-rates-bot/internal/errors"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, key string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClientWithHTTP(config.RatesAPIConfig{BaseURL: srv.URL + "/api", AccessKey: key}, srv.Client())
}

func TestLatest_Success(t *testing.T) {
	var gotPath, gotBase, gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBase = r.URL.Query().Get("base")
		gotKey = r.URL.Query().Get("access_key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"eur":0.92,"CAD":1.35,"USD":1}}`))
	}, "secret")

	snap, err := c.Latest(context.Background(), "usd")
	require.NoError(t, err)
	require.Equal(t, "/api/latest", gotPath)
	require.Equal(t, "USD", gotBase)
	require.Equal(t, "secret", gotKey)
	require.Equal(t, "USD", snap.Base)
	require.Len(t, snap.Rates, 3)
	require.InDelta(t, 0.92, snap.Rates["EUR"], 1e-9)
	require.InDelta(t, 1.35, snap.Rates["CAD"], 1e-9)
}

func TestLatest_StatusCodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}, "")

	_, err := c.Latest(context.Background(), "USD")
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrRemoteFetch))
	require.Contains(t, err.Error(), "unexpected status 503")
}

func TestLatest_ProviderErrorObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":101,"info":"You have not supplied an API Access Key."}}`))
	}, "")

	_, err := c.Latest(context.Background(), "USD")
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrRemoteFetch))
	require.Contains(t, err.Error(), "You have not supplied an API Access Key.")
}

func TestLatest_JSONDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{"))
	}, "")

	_, err := c.Latest(context.Background(), "USD")
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrRemoteFetch))
	require.Contains(t, err.Error(), "decoding response")
}

func TestLatest_BaseURLParseError(t *testing.T) {
	c := NewClientWithHTTP(config.RatesAPIConfig{BaseURL: "http://::1]"}, &http.Client{})
	_, err := c.Latest(context.Background(), "USD")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid base URL")
}

func TestHistory_Success(t *testing.T) {
	var (
		gotPath string
		q       map[string]string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		q = map[string]string{
			"start_at": r.URL.Query().Get("start_at"),
			"end_at":   r.URL.Query().Get("end_at"),
			"base":     r.URL.Query().Get("base"),
			"symbols":  r.URL.Query().Get("symbols"),
		}
		_, _ = w.Write([]byte(`{"rates":{"2024-03-02":{"eur":0.91},"2024-03-01":{"EUR":0.9}},"base":"USD"}`))
	}, "")

	from := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)
	h, err := c.History(context.Background(), from, to, "usd", "eur")
	require.NoError(t, err)
	require.Equal(t, "/api/history", gotPath)
	require.Equal(t, map[string]string{
		"start_at": "2024-03-01",
		"end_at":   "2024-03-08",
		"base":     "USD",
		"symbols":  "EUR",
	}, q)
	require.Equal(t, "EUR", h.Symbol)
	require.Len(t, h.Days, 2)
	require.InDelta(t, 0.91, h.Days["2024-03-02"]["EUR"], 1e-9)
}

func TestHistory_ProviderErrorVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Symbols 'XYZ' are invalid for date 2024-03-01."}`))
	}, "")

	_, err := c.History(context.Background(), time.Now(), time.Now(), "USD", "XYZ")
	require.Error(t, err)

	var perr *errs.ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "Symbols 'XYZ' are invalid for date 2024-03-01.", perr.Message)
}

// Объект в поле error пересылается целиком, без выборки полей
func TestHistory_ProviderErrorObjectVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error": {"code": 101, "info": "Invalid access key."}}`))
	}, "")

	_, err := c.History(context.Background(), time.Now(), time.Now(), "USD", "EUR")
	require.Error(t, err)

	var perr *errs.ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, `{"code":101,"info":"Invalid access key."}`, perr.Message)
}

func TestHistory_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClientWithHTTP(config.RatesAPIConfig{BaseURL: url}, &http.Client{Timeout: time.Second})
	_, err := c.History(context.Background(), time.Now(), time.Now(), "USD", "EUR")
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrRemoteFetch))
}
