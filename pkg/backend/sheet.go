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

// LogRequest appends or updates one conversation row in the spreadsheet-like
// store. When RowIndex is set the service updates the existing row instead of
// appending a new one.
type LogRequest struct {
	SessionID     string `json:"sessionId,omitempty"`
	MessageNumber int    `json:"messageNumber"`
	UserMessage   string `json:"userMessage"`
	AIMessage     string `json:"aiMessage"`
	RowIndex      int    `json:"rowIndex,omitempty"`
	Timestamp     string `json:"timestamp"`
	SystemPrompt  string `json:"systemPrompt"`
}

type LogResponse struct {
	RowIndex  int    `json:"rowIndex"`
	SessionID string `json:"sessionId"`
}

type tokenCell struct {
	Total int `json:"total"`
}

// SheetClient talks to the logging boundary. The store is non-transactional;
// token accrual is a plain read-modify-write with no compare-and-swap, so
// concurrent writers can under-count under adversarial timing. At-least-once
// is the contract, exactness is not.
type SheetClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewSheetClient(baseURL string, logger *Logger.Logger) *SheetClient {
	return &SheetClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (s *SheetClient) Append(ctx context.Context, req LogRequest) (*LogResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode log request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/log", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("log request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("log service returned status %d", resp.StatusCode)
	}

	var out LogResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode log response: %w", err)
	}
	return &out, nil
}

// ReadTokens fetches the current token total for a row.
func (s *SheetClient) ReadTokens(ctx context.Context, sessionID string, rowIndex int) (int, error) {
	url := fmt.Sprintf("%s/tokens?sessionId=%s&rowIndex=%d", s.baseURL, sessionID, rowIndex)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("token read failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("token read returned status %d", resp.StatusCode)
	}

	var cell tokenCell
	if err := json.NewDecoder(resp.Body).Decode(&cell); err != nil {
		return 0, fmt.Errorf("failed to decode token cell: %w", err)
	}
	return cell.Total, nil
}

// WriteTokens overwrites the token total for a row.
func (s *SheetClient) WriteTokens(ctx context.Context, sessionID string, rowIndex int, total int) error {
	body, err := json.Marshal(tokenCell{Total: total})
	if err != nil {
		return fmt.Errorf("failed to encode token cell: %w", err)
	}

	url := fmt.Sprintf("%s/tokens?sessionId=%s&rowIndex=%d", s.baseURL, sessionID, rowIndex)
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token write returned status %d", resp.StatusCode)
	}
	return nil
}
