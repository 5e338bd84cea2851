package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepadvice/internal/config"
)

func sseEvent(text string) string {
	return fmt.Sprintf("data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":%q}]}}]}\n\n", text)
}

func newTestClient(t *testing.T, srv *httptest.Server) *GeminiClient {
	t.Helper()
	client, err := NewGeminiClient(config.GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   DefaultModel,
	}, srv.Client(), nil)
	require.NoError(t, err)
	return client
}

func TestNewGeminiClientRequiresCredential(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := NewGeminiClient(config.GeminiConfig{APIKey: "  ", BaseURL: srv.URL}, srv.Client(), nil)
	require.ErrorIs(t, err, ErrMissingCredential)
	require.Zero(t, calls.Load())
}

func TestGenerateConcatenatesFragments(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemma-3-1b-it:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseEvent("  Hello, "))
		io.WriteString(w, sseEvent("world.\n"))
		io.WriteString(w, `data: {"candidates":[{"content":{"parts":[]},"finishReason":"STOP"}]}`+"\n\n")
	}))
	defer srv.Close()

	advice, err := newTestClient(t, srv).Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	require.Equal(t, "Hello, world.", advice)

	require.Len(t, got.Contents, 1)
	require.Equal(t, "user", got.Contents[0].Role)
	require.Equal(t, "prompt text", got.Contents[0].Parts[0].Text)
	require.Equal(t, DefaultTemperature, got.GenerationConfig.Temperature)
	require.Equal(t, DefaultMaxOutputTokens, got.GenerationConfig.MaxOutputTokens)
	require.Equal(t, "text/plain", got.GenerationConfig.ResponseMIMEType)
}

func TestGenerateMaxTokensIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseEvent("cut"))
		io.WriteString(w, `data: {"candidates":[{"content":{"parts":[{"text":" off"}]},"finishReason":"MAX_TOKENS"}]}`+"\n\n")
	}))
	defer srv.Close()

	advice, err := newTestClient(t, srv).Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "cut off", advice)
}

func TestGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"API key not valid"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "p")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, http.StatusForbidden, te.StatusCode)
	require.Contains(t, te.Error(), "API key not valid")
}

func TestGenerateStatusErrorIsOneLine(t *testing.T) {
	bodies := map[string]string{
		"pretty json": "{\n  \"error\": {\n    \"code\": 400,\n    \"message\": \"API key not valid.\\nPlease pass a valid API key.\",\n    \"status\": \"INVALID_ARGUMENT\"\n  }\n}\n",
		"plain text":  "<html>\n<body>\n  Bad Gateway\n</body>\n</html>\n",
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Generate(context.Background(), "p")
			var te *TransportError
			require.ErrorAs(t, err, &te)
			require.Equal(t, http.StatusBadRequest, te.StatusCode)
			require.NotContains(t, err.Error(), "\n")
		})
	}
}

func TestErrorMessagePrefersAPIMessage(t *testing.T) {
	body := []byte("{\n  \"error\": {\n    \"code\": 400,\n    \"message\": \"API key not valid.\"\n  }\n}")
	require.Equal(t, "API key not valid.", errorMessage(body))
	require.Equal(t, "Bad Gateway", errorMessage([]byte("\n  Bad\n\tGateway \n")))
	require.Len(t, errorMessage([]byte(strings.Repeat("x", 1000))), snippetLimit)
}

func TestUnknownModelDoesNotWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	_, err := NewGeminiClient(config.GeminiConfig{APIKey: "k", Model: "my-tuned-model"}, nil, logger)
	require.NoError(t, err)
	require.Empty(t, buf.String())
}

func TestGenerateErrorEventDiscardsPartialText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseEvent("partial "))
		io.WriteString(w, `data: {"error":{"code":500,"message":"internal","status":"INTERNAL"}}`+"\n\n")
	}))
	defer srv.Close()

	advice, err := newTestClient(t, srv).Generate(context.Background(), "p")
	require.Empty(t, advice)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, 500, te.StatusCode)
}

func TestGenerateMalformedEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {not json\n\n")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "p")
	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestGenerateConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, srv)
	srv.Close()

	_, err := client.Generate(context.Background(), "p")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.Zero(t, te.StatusCode)
}

func TestStreamIsSingleUse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, sseEvent("once"))
	}))
	defer srv.Close()

	seq := newTestClient(t, srv).Stream(context.Background(), "p")
	first, err := Collect(seq)
	require.NoError(t, err)
	require.Equal(t, "once", first)

	_, err = Collect(seq)
	require.ErrorIs(t, err, ErrStreamConsumed)
	require.EqualValues(t, 1, calls.Load())
}

func TestStreamStopsEarly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseEvent("a"))
		io.WriteString(w, sseEvent("b"))
		io.WriteString(w, sseEvent("c"))
	}))
	defer srv.Close()

	var seen []string
	for fragment, err := range newTestClient(t, srv).Stream(context.Background(), "p") {
		require.NoError(t, err)
		seen = append(seen, fragment)
		if len(seen) == 2 {
			break
		}
	}
	require.Equal(t, []string{"a", "b"}, seen)
}

func TestReadEventsJoinsMultilineData(t *testing.T) {
	stream := ": comment\nevent: message\ndata: one\ndata: two\n\ndata: three"
	var events []string
	err := readEvents(strings.NewReader(stream), func(data []byte) (bool, error) {
		events = append(events, string(data))
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"one\ntwo", "three"}, events)
}
