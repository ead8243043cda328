package flyer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Flyer verification API. Flyer delivers its own
// user-facing explanation on deny, so callers only get the verdict.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) doRequest(ctx context.Context, endpoint string, body interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s%s", c.BaseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api error: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	return respBody, nil
}

// Check reports whether the user has passed Flyer's tasks. A false result
// means Flyer already messaged the user with what to do.
func (c *Client) Check(ctx context.Context, userID int64, languageCode string) (bool, error) {
	reqBody := CheckRequest{
		Key:          c.APIKey,
		UserID:       userID,
		LanguageCode: languageCode,
	}

	resp, err := c.doRequest(ctx, "/check", reqBody)
	if err != nil {
		return false, err
	}

	var result CheckResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if result.Error != "" {
		return false, fmt.Errorf("api error: %s", result.Error)
	}

	return result.Skip, nil
}
