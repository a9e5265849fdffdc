package api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/config"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/domain"
	errs "github.com/NastyaGoryachaya/exchange-rates-bot/internal/errors"
)

const historyDateLayout = "2006-01-02"

type Client struct {
	cfg        config.RatesAPIConfig
	httpClient *http.Client
}

// latestResponse - ответ эндпоинта latest
type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
	Error json.RawMessage    `json:"error"`
}

// historyResponse - ответ эндпоинта history: дата -> код -> курс
type historyResponse struct {
	Base  string                        `json:"base"`
	Rates map[string]map[string]float64 `json:"rates"`
	Error json.RawMessage               `json:"error"`
}

// NewClient - Создаёт клиента API курсов валют.
func NewClient(cfg config.RatesAPIConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// NewClientWithHTTP - клиент с готовым http.Client (тесты, общий транспорт)
func NewClientWithHTTP(cfg config.RatesAPIConfig, httpClient *http.Client) *Client {
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Latest - текущий снимок курсов относительно base
func (c *Client) Latest(ctx context.Context, base string) (domain.RateSnapshot, error) {
	q := url.Values{}
	q.Set("base", strings.ToUpper(base))

	var data latestResponse
	status, err := c.get(ctx, "latest", q, &data)
	if err != nil {
		return domain.RateSnapshot{}, err
	}
	if msg := errorMessage(data.Error); msg != "" {
		return domain.RateSnapshot{}, fmt.Errorf("%w: provider error: %s", errs.ErrRemoteFetch, msg)
	}
	if status != http.StatusOK {
		return domain.RateSnapshot{}, fmt.Errorf("%w: unexpected status %d", errs.ErrRemoteFetch, status)
	}

	snap := domain.RateSnapshot{
		Base:  strings.ToUpper(data.Base),
		Rates: make(map[string]float64, len(data.Rates)),
	}
	if snap.Base == "" {
		snap.Base = strings.ToUpper(base)
	}
	for code, rate := range data.Rates {
		snap.Rates[strings.ToUpper(code)] = rate
	}
	return snap, nil
}

// History - дневные курсы symbol относительно base за [from, to].
// Если провайдер вернул поле error, возвращается *errs.ProviderError с его текстом.
func (c *Client) History(ctx context.Context, from, to time.Time, base, symbol string) (domain.History, error) {
	base, symbol = strings.ToUpper(base), strings.ToUpper(symbol)

	q := url.Values{}
	q.Set("start_at", from.Format(historyDateLayout))
	q.Set("end_at", to.Format(historyDateLayout))
	q.Set("base", base)
	q.Set("symbols", symbol)

	var data historyResponse
	status, err := c.get(ctx, "history", q, &data)
	if err != nil {
		return domain.History{}, err
	}
	if msg := errorMessage(data.Error); msg != "" {
		return domain.History{}, &errs.ProviderError{Message: msg}
	}
	if status != http.StatusOK {
		return domain.History{}, fmt.Errorf("%w: unexpected status %d", errs.ErrRemoteFetch, status)
	}

	days := make(map[string]map[string]float64, len(data.Rates))
	for date, rates := range data.Rates {
		day := make(map[string]float64, len(rates))
		for code, rate := range rates {
			day[strings.ToUpper(code)] = rate
		}
		days[date] = day
	}
	return domain.History{Base: base, Symbol: symbol, Days: days}, nil
}

// get - GET {base_url}/{path}?query; тело декодируется и при статусе != 200,
// потому что провайдер кладёт туда поле error.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) (int, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid base URL: %v", errs.ErrRemoteFetch, err)
	}
	u = u.JoinPath(path)
	if c.cfg.AccessKey != "" {
		q.Set("access_key", c.cfg.AccessKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: creating request: %v", errs.ErrRemoteFetch, err)
	}

	req.Header.Set("Accept", "application/json")

	ua := c.cfg.UserAgent
	if ua == "" {
		ua = "exchange-rates-bot/1.0"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: request failed: %w", errs.ErrRemoteFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: reading response: %w", errs.ErrRemoteFetch, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, fmt.Errorf("%w: unexpected status %d", errs.ErrRemoteFetch, resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("%w: decoding response: %w", errs.ErrRemoteFetch, err)
	}
	return resp.StatusCode, nil
}

// errorMessage - поле error бывает строкой или объектом; объект отдаётся как компактный JSON
func errorMessage(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
