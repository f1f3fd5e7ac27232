package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gangnameyes/docent/pkg/Logger"
)

type NarrateRequest struct {
	UserInput string `json:"userInput"`
	SessionID string `json:"sessionId,omitempty"`
	RowIndex  int    `json:"rowIndex,omitempty"`
}

type NarrateResponse struct {
	ThinkingText string `json:"thinkingText,omitempty"`
}

// NarrateClient asks the narration service for a short interim "thinking"
// phrase. The result is cosmetic only; the caller always holds a
// deterministic fallback and discards late replies.
type NarrateClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewNarrateClient(baseURL string, logger *Logger.Logger) *NarrateClient {
	return &NarrateClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (n *NarrateClient) Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode narrate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", n.baseURL+"/narrate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("narrate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("narrate service returned status %d", resp.StatusCode)
	}

	var out NarrateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode narrate response: %w", err)
	}
	return &out, nil
}
