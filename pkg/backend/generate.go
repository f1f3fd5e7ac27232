package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
)

// GenerationRequest is the wire contract of the answer-generation service.
type GenerationRequest struct {
	Question         string                   `json:"question"`
	SystemPrompt     string                   `json:"systemPrompt"`
	History          []HistoryEntry           `json:"history"`
	RowIndex         int                      `json:"rowIndex,omitempty"`
	SessionID        string                   `json:"sessionId,omitempty"`
	MessageNumber    int                      `json:"messageNumber,omitempty"`
	Feedback         types.FeedbackPreference `json:"feedbackPreference,omitempty"`
	OnboardingOption string                   `json:"onboardingOption,omitempty"`
}

// HistoryEntry carries user turns verbatim but each prior assistant turn
// compressed to at most two extracted keywords, bounding prompt growth
// across the turn budget.
type HistoryEntry struct {
	Role    types.Role `json:"role"`
	Content string     `json:"content"`
}

type GenerationResponse struct {
	Answer    string            `json:"answer,omitempty"`
	Tokens    *types.TokenUsage `json:"tokens,omitempty"`
	Hits      []json.RawMessage `json:"hits,omitempty"`
	RowIndex  int               `json:"rowIndex,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// GenerateClient talks to the answer-generation service.
type GenerateClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewGenerateClient(baseURL string, timeout time.Duration, logger *Logger.Logger) *GenerateClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GenerateClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (g *GenerateClient) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.Errorf("generation service error (status %d): %s", resp.StatusCode, string(responseBody))
		return nil, fmt.Errorf("generation service returned status %d", resp.StatusCode)
	}

	var genResp GenerationResponse
	if err := json.Unmarshal(responseBody, &genResp); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if genResp.Error != "" {
		return nil, fmt.Errorf("generation service: %s", genResp.Error)
	}
	if genResp.Answer == "" {
		return nil, fmt.Errorf("generation service returned empty answer")
	}

	return &genResp, nil
}
