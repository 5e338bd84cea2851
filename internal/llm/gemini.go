package llm

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"sleepadvice/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	_ Generator = (*GeminiClient)(nil)
	_ Streamer  = (*GeminiClient)(nil)
)

const (
	DefaultModel           = "gemma-3-1b-it"
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 512

	finishReasonMaxTokens = "MAX_TOKENS"
	snippetLimit          = 300
	errorBodyLimit        = 64 * 1024
	maxEventSize          = 1 << 20
)

// GeminiClient streams completions from the Generative Language REST API.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	temperature     float64
	maxOutputTokens int
	httpClient      *http.Client
	logger          *slog.Logger
}

// NewGeminiClient fails with ErrMissingCredential before touching the network
// when no API key is configured.
func NewGeminiClient(cfg config.GeminiConfig, httpClient *http.Client, logger *slog.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingCredential
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if logger != nil && !IsKnownModel(model) {
		logger.Info("unknown gemini model, sending as is", slog.String("model", model))
	}
	return &GeminiClient{
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		model:           model,
		temperature:     DefaultTemperature,
		maxOutputTokens: DefaultMaxOutputTokens,
		httpClient:      httpClient,
		logger:          logger,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return Collect(c.Stream(ctx, prompt))
}

func (c *GeminiClient) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}

		resp, err := c.open(ctx, prompt)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		var fragments int
		var finishReason string
		err = readEvents(resp.Body, func(data []byte) (bool, error) {
			var chunk generateResponse
			if err := json.Unmarshal(data, &chunk); err != nil {
				return false, &TransportError{Op: "gemini stream", Err: fmt.Errorf("decode event: %w", err)}
			}
			if chunk.Error != nil {
				return false, &TransportError{Op: "gemini stream", StatusCode: chunk.Error.Code, Body: singleLine(chunk.Error.Message)}
			}
			if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
				return false, &TransportError{Op: "gemini stream", Body: "prompt blocked: " + chunk.PromptFeedback.BlockReason}
			}
			for _, cand := range chunk.Candidates {
				if cand.FinishReason != "" {
					finishReason = cand.FinishReason
				}
				for _, part := range cand.Content.Parts {
					if part.Text == "" {
						continue
					}
					fragments++
					if !yield(part.Text, nil) {
						return false, nil
					}
				}
			}
			return true, nil
		})
		if err != nil {
			var te *TransportError
			if !errors.As(err, &te) {
				err = &TransportError{Op: "gemini stream", Err: err}
			}
			yield("", err)
			return
		}

		if c.logger != nil {
			c.logger.Debug("gemini stream finished",
				slog.String("model", c.model),
				slog.Int("fragments", fragments),
				slog.String("finish_reason", finishReason))
			if finishReason == finishReasonMaxTokens {
				c.logger.Info("gemini response truncated at output cap", slog.Int("max_output_tokens", c.maxOutputTokens))
			}
		}
	}
}

func (c *GeminiClient) open(ctx context.Context, prompt string) (*http.Response, error) {
	body := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: generationConfig{
			Temperature:      c.temperature,
			MaxOutputTokens:  c.maxOutputTokens,
			ResponseMIMEType: "text/plain",
		},
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-goog-api-key", c.apiKey)

	if c.logger != nil {
		c.logger.Debug("gemini stream started", slog.String("model", c.model), slog.Int("prompt_bytes", len(prompt)))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "gemini request", Err: err}
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &TransportError{
			Op:         "gemini request",
			StatusCode: resp.StatusCode,
			Body:       errorMessage(body),
		}
	}
	return resp, nil
}

// errorMessage extracts error.message from an API error body, falling back
// to the raw body on one line.
func errorMessage(body []byte) string {
	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return singleLine(parsed.Error.Message)
	}
	msg := singleLine(string(body))
	if len(msg) > snippetLimit {
		msg = msg[:snippetLimit]
	}
	return msg
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// readEvents splits a server-sent event stream and hands each event's data
// to fn. fn returns false to stop early.
func readEvents(r io.Reader, fn func(data []byte) (bool, error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var data []byte
	dispatch := func() (bool, error) {
		if len(data) == 0 {
			return true, nil
		}
		payload := data
		data = nil
		return fn(payload)
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			cont, err := dispatch()
			if err != nil || !cont {
				return err
			}
			continue
		}
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		value := bytes.TrimPrefix(line[len("data:"):], []byte(" "))
		if len(data) > 0 {
			data = append(data, '\n')
		}
		data = append(data, value...)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	_, err := dispatch()
	return err
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
