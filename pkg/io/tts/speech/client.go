package speech

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

// Prepared is one synthesized narration clip. The preparation service may
// rewrite the display text into speakable form before synthesis, which is
// why token usage can come back with the audio.
type Prepared struct {
	Audio       []byte            `json:"-"`
	ContentType string            `json:"-"`
	SpokenText  string            `json:"spokenText,omitempty"`
	Tokens      *types.TokenUsage `json:"tokens,omitempty"`
}

type prepareRequest struct {
	Text string `json:"text"`
}

type prepareMeta struct {
	SpokenText string            `json:"spokenText,omitempty"`
	Tokens     *types.TokenUsage `json:"tokens,omitempty"`
}

// Client talks to the text-to-speech preparation service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *Logger.Logger
}

func NewClient(baseURL string, logger *Logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Prepare rewrites and synthesizes one narration text. The audio body is
// returned raw; rewrite metadata rides in the X-Speech-Meta header.
func (c *Client) Prepare(ctx context.Context, text string) (*Prepared, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	body, err := json.Marshal(prepareRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts http %d (dur=%s)", resp.StatusCode, time.Since(start))
	}

	audio := new(bytes.Buffer)
	if _, err := audio.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read tts audio: %w", err)
	}

	prepared := &Prepared{
		Audio:       audio.Bytes(),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if meta := resp.Header.Get("X-Speech-Meta"); meta != "" {
		var pm prepareMeta
		if err := json.Unmarshal([]byte(meta), &pm); err == nil {
			prepared.SpokenText = pm.SpokenText
			prepared.Tokens = pm.Tokens
		}
	}
	return prepared, nil
}
