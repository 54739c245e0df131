package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/tmkit/taskmaster/internal/audit"
)

const messageReply = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-test",
  "content": [{"type": "text", "text": %q}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 12, "output_tokens": 7}
}`

func newTestServer(t *testing.T, failures int, status int, text string) (*httptest.Server, *int32, *[]byte) {
	t.Helper()
	var calls int32
	var lastBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		lastBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if int(n) <= failures {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"type":"error","error":{"type":"api_error","message":"try again"}}`)
			return
		}
		fmt.Fprintf(w, messageReply, text)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &lastBody
}

func newTestClient(t *testing.T, baseURL string, auditLog *audit.Log) *Anthropic {
	t.Helper()
	c, err := NewAnthropic(Options{
		APIKey:         "test-key",
		Model:          "claude-test",
		MaxRetries:     3,
		BaseURL:        baseURL,
		InitialBackoff: time.Millisecond,
		Audit:          auditLog,
	})
	require.NoError(t, err)
	return c
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	_, err := NewAnthropic(Options{APIKey: "  "})
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestGenerate(t *testing.T) {
	srv, calls, body := newTestServer(t, 0, 0, `{"title":"x"}`)
	log := audit.New(filepath.Join(t.TempDir(), audit.FileName))
	c := newTestClient(t, srv.URL, log)

	resp, err := c.Generate(context.Background(), Request{
		Kind: KindAddTask, System: "sys", Prompt: "make a task", TaskID: "4", MaxTokens: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, resp.Text)
	assert.Equal(t, int64(12), resp.InputTokens)
	assert.Equal(t, int64(7), resp.OutputTokens)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	sent := gjson.ParseBytes(*body)
	assert.Equal(t, "claude-test", sent.Get("model").String())
	assert.Equal(t, int64(100), sent.Get("max_tokens").Int())
	assert.Equal(t, "sys", sent.Get("system.0.text").String())
	assert.Equal(t, "make a task", sent.Get("messages.0.content.0.text").String())

	entries, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "llm_call", entries[0].Kind)
	assert.Equal(t, "add-task", entries[0].Actor)
	assert.Equal(t, "4", entries[0].TaskID)
	assert.Equal(t, "make a task", entries[0].Prompt)
	assert.Empty(t, entries[0].Error)
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	srv, calls, _ := newTestServer(t, 2, http.StatusInternalServerError, "ok")
	c := newTestClient(t, srv.URL, nil)

	resp, err := c.Generate(context.Background(), Request{Kind: KindUpdateTask, Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestGenerateGivesUp(t *testing.T) {
	srv, calls, _ := newTestServer(t, 100, http.StatusServiceUnavailable, "never")
	log := audit.New(filepath.Join(t.TempDir(), audit.FileName))
	c := newTestClient(t, srv.URL, log)

	_, err := c.Generate(context.Background(), Request{Kind: KindParsePRD, Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 4 attempts")
	assert.Equal(t, int32(4), atomic.LoadInt32(calls))

	entries, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].Error)
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	srv, calls, _ := newTestServer(t, 100, http.StatusBadRequest, "never")
	c := newTestClient(t, srv.URL, nil)

	_, err := c.Generate(context.Background(), Request{Kind: KindAddTask, Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-retryable")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(context.DeadlineExceeded))
	assert.False(t, isRetryable(errors.New("plain")))
}
