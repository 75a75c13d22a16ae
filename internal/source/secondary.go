package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fundweb/fundsync/internal/domain"
)

// SecondaryClient queries the legacy fund gateway, a narrower HTTP view
// of the same logical data used when the primary store rejects us.
// Retries with exponential backoff on 429.
type SecondaryClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewSecondaryClient creates a new gateway client.
func NewSecondaryClient(baseURL string, maxRetries int, baseDelay time.Duration) *SecondaryClient {
	return &SecondaryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

type fundsResponse struct {
	Records []domain.RawRecord `json:"records"`
}

type rankingsResponse struct {
	Rankings []struct {
		FundID    string `json:"fund_id"`
		FinalRank int    `json:"final_rank"`
	} `json:"rankings"`
}

// QueryFunds returns all fund records known to the gateway. Ranks are
// not embedded; fetch them separately via QueryRanks.
func (c *SecondaryClient) QueryFunds(ctx context.Context) ([]domain.RawRecord, error) {
	var resp fundsResponse
	if err := c.getJSON(ctx, "/v1/funds", &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// QueryRanks returns the gateway's fund_id -> final_rank mapping.
func (c *SecondaryClient) QueryRanks(ctx context.Context) (map[string]int, error) {
	var resp rankingsResponse
	if err := c.getJSON(ctx, "/v1/rankings", &resp); err != nil {
		return nil, err
	}
	ranks := make(map[string]int, len(resp.Rankings))
	for _, r := range resp.Rankings {
		ranks[r.FundID] = r.FinalRank
	}
	return ranks, nil
}

// get performs a GET request with retry on 429.
func (c *SecondaryClient) get(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path

	var lastErr error
	for attempt := range c.maxRetries + 1 {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("HTTP 429 at %s (attempt %d/%d)", url, attempt+1, c.maxRetries+1)
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(body))
	}

	return nil, lastErr
}

// getJSON performs a GET request and unmarshals the JSON response.
func (c *SecondaryClient) getJSON(ctx context.Context, path string, dest any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing JSON from %s: %w", path, err)
	}
	return nil
}
