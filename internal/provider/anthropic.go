package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// Anthropic is the primary provider: a streaming messages-API client.
type Anthropic struct {
	apiKey string
	model  string
	client *http.Client
	apiURL string
}

func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
		apiURL: anthropicURL,
	}
}

// SetTestTransport points the client at a test server.
func (c *Anthropic) SetTestTransport(url string) {
	c.apiURL = url
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// streamEvent is one SSE data payload in the streaming protocol. Only
// content_block_delta events carry text; everything else is framing.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

// Complete sends a single non-streaming call and returns the full text.
func (c *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response content")
	}
	return apiResp.Content[0].Text, nil
}

// Stream opens a streaming call and returns the canonical delta stream. The
// returned stream is fed by a goroutine that owns the response body.
func (c *Anthropic) Stream(ctx context.Context, req Request) (*Stream, error) {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return nil, err
	}

	s := newStream(16)
	go func() {
		defer resp.Body.Close()
		s.closeWith(decodeSSE(resp.Body, s.deltas))
	}()
	return s, nil
}

// post issues the HTTP call and maps non-200 statuses to *APIError before
// any body is handed to the caller.
func (c *Anthropic) post(ctx context.Context, req Request, stream bool) (*http.Response, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  req.Messages,
		Stream:    stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode, Type: "api_error", Message: string(respBody)}
		var errResp anthropicErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Type != "" {
			apiErr.Type = errResp.Error.Type
			apiErr.Message = errResp.Error.Message
		}
		return nil, apiErr
	}
	return resp, nil
}

// decodeSSE reads the event stream and forwards text deltas until the
// upstream closes. message_stop ends the stream cleanly.
func decodeSSE(r io.Reader, deltas chan<- string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var evt streamEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			continue // non-JSON keepalives are ignorable
		}
		switch evt.Type {
		case "content_block_delta":
			if evt.Delta.Text != "" {
				deltas <- evt.Delta.Text
			}
		case "message_stop":
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}
