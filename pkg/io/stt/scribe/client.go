package scribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/io/stt"
)

// Client sends one finalized WAV buffer to the speech-to-text service and
// returns its transcription verdict. A false Success with Details set is a
// normal outcome (e.g. the utterance was too short), not a transport error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewClient(baseURL string, logger *Logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Transcribe implements stt.Transcriber.
func (c *Client) Transcribe(ctx context.Context, wavData []byte) (*stt.Result, error) {
	if len(wavData) == 0 {
		return nil, fmt.Errorf("no audio data provided")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio_file", "utterance.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Errorf("stt service error (status %d): %s", resp.StatusCode, string(responseBody))
		return nil, fmt.Errorf("stt service returned status %d", resp.StatusCode)
	}

	var result stt.Result
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stt response: %w", err)
	}

	c.logger.Debugf("stt result success=%v text=%q details=%q", result.Success, result.Text, result.Details)
	return &result, nil
}
