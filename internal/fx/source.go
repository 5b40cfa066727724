package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// LatestResponse is the exchangerate-api v6 "latest" payload.
type LatestResponse struct {
	Result             string                     `json:"result"`
	BaseCode           string                     `json:"base_code"`
	TimeLastUpdateUnix int64                      `json:"time_last_update_unix"`
	ConversionRates    map[string]decimal.Decimal `json:"conversion_rates"`
	ErrorType          string                     `json:"error-type,omitempty"`
}

// HTTPSource fetches complete rate tables from an exchangerate-api
// compatible endpoint: GET {baseURL}/latest/{base}.
type HTTPSource struct {
	client  *retryablehttp.Client
	baseURL string
}

func NewHTTPSource(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}

	return &HTTPSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *HTTPSource) Name() string { return s.baseURL }

func (s *HTTPSource) Fetch(ctx context.Context, base domain.Currency) (Snapshot, error) {
	url := fmt.Sprintf("%s/latest/%s", s.baseURL, base)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("Fetch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("Fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Snapshot{}, fmt.Errorf("Fetch: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload LatestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Snapshot{}, fmt.Errorf("Fetch: decode: %w", err)
	}
	if payload.Result != "success" {
		return Snapshot{}, fmt.Errorf("Fetch: result=%s error-type=%s", payload.Result, payload.ErrorType)
	}
	if domain.Currency(payload.BaseCode) != base {
		return Snapshot{}, fmt.Errorf("Fetch: asked for base %s, got %s", base, payload.BaseCode)
	}

	rates := make(map[domain.Currency]decimal.Decimal, len(payload.ConversionRates))
	for code, rate := range payload.ConversionRates {
		rates[domain.Currency(code)] = rate
	}

	updated := time.Now().UTC()
	if payload.TimeLastUpdateUnix > 0 {
		updated = time.Unix(payload.TimeLastUpdateUnix, 0).UTC()
	}

	return Snapshot{
		Base:      base,
		Rates:     rates,
		UpdatedAt: updated,
		Source:    s.baseURL,
	}, nil
}
