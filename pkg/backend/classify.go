package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
)

type ClassifyRequest struct {
	Question string `json:"question"`
}

type ClassifyResponse struct {
	Category    *types.Category `json:"category,omitempty"`
	RawResponse string          `json:"rawResponse,omitempty"`
}

// ClassifyClient talks to the question-category classification service.
// Callers treat any failure as "no category"; classification never blocks
// the main turn.
type ClassifyClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewClassifyClient(baseURL string, logger *Logger.Logger) *ClassifyClient {
	return &ClassifyClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *ClassifyClient) Classify(ctx context.Context, question string) (*ClassifyResponse, error) {
	body, err := json.Marshal(ClassifyRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("failed to encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify service returned status %d", resp.StatusCode)
	}

	var out ClassifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode classify response: %w", err)
	}
	return &out, nil
}
