package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/config"
)

// Размер картинки графика, px
const (
	Width  = 600
	Height = 300
)

// LineChart - данные для линейного графика
type LineChart struct {
	Title        string
	DatasetLabel string
	Labels       []string
	Values       []float64
}

// Client - рендерер графиков через QuickChart (chart.js v2 конфиг)
type Client struct {
	cfg        config.ChartConfig
	httpClient *http.Client
}

func NewClient(cfg config.ChartConfig) *Client {
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

// URL - ссылка на картинку графика. По умолчанию строится локально без сети;
// при short_url конфиг отправляется в /chart/create и возвращается короткая ссылка.
func (c *Client) URL(ctx context.Context, lc LineChart) (string, error) {
	cfgJSON, err := json.Marshal(buildConfig(lc))
	if err != nil {
		return "", fmt.Errorf("marshal chart config: %w", err)
	}
	if c.cfg.ShortURL {
		return c.shortURL(ctx, cfgJSON)
	}

	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid chart base URL: %w", err)
	}
	u = u.JoinPath("chart")

	q := url.Values{}
	q.Set("c", string(cfgJSON))
	q.Set("w", strconv.Itoa(Width))
	q.Set("h", strconv.Itoa(Height))
	q.Set("devicePixelRatio", "1")
	q.Set("f", "png")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) shortURL(ctx context.Context, cfgJSON []byte) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid chart base URL: %w", err)
	}
	u = u.JoinPath("chart", "create")

	payload, err := json.Marshal(createRequest{
		Chart:            cfgJSON,
		Width:            Width,
		Height:           Height,
		DevicePixelRatio: 1,
		Format:           "png",
	})
	if err != nil {
		return "", fmt.Errorf("marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed: %s", resp.Status)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if !out.Success || out.URL == "" {
		return "", errors.New("chart service returned no url")
	}
	return out.URL, nil
}

type createRequest struct {
	Chart            json.RawMessage `json:"chart"`
	Width            int             `json:"width"`
	Height           int             `json:"height"`
	DevicePixelRatio float64         `json:"devicePixelRatio"`
	Format           string          `json:"format"`
}

type createResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// --- chart.js v2 ---

type chartConfig struct {
	Type    string       `json:"type"`
	Data    chartData    `json:"data"`
	Options chartOptions `json:"options"`
}

type chartData struct {
	Labels   []string  `json:"labels"`
	Datasets []dataset `json:"datasets"`
}

type dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

type chartOptions struct {
	Legend struct {
		Labels font `json:"labels"`
	} `json:"legend"`
	Title struct {
		Display  bool   `json:"display"`
		Text     string `json:"text"`
		FontSize int    `json:"fontSize"`
	} `json:"title"`
	Scales struct {
		YAxes []axis `json:"yAxes"`
		XAxes []axis `json:"xAxes"`
	} `json:"scales"`
}

type font struct {
	FontSize   int    `json:"fontSize,omitempty"`
	FontStyle  string `json:"fontStyle,omitempty"`
	FontFamily string `json:"fontFamily,omitempty"`
}

type axis struct {
	Ticks font `json:"ticks"`
}

func buildConfig(lc LineChart) chartConfig {
	cfg := chartConfig{
		Type: "line",
		Data: chartData{
			Labels:   lc.Labels,
			Datasets: []dataset{{Label: lc.DatasetLabel, Data: lc.Values}},
		},
	}
	cfg.Options.Legend.Labels = font{FontSize: 10, FontStyle: "bold"}
	cfg.Options.Title.Display = true
	cfg.Options.Title.Text = lc.Title
	cfg.Options.Title.FontSize = 20
	cfg.Options.Scales.YAxes = []axis{{Ticks: font{FontFamily: "Mono"}}}
	cfg.Options.Scales.XAxes = []axis{{Ticks: font{FontFamily: "Sans-Serif"}}}
	return cfg
}
