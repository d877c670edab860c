package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/course-extractor/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(context.Background(), "test-key", "gemini-test", nil, WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestGenerateReturnsCandidateText(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"  {\"courses\":[]}  "}]}}]}`)
	})

	out, err := c.Generate(context.Background(), llm.GenerateRequest{System: "sys", Prompt: "timetable", Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, `{"courses":[]}`, out)
	assert.Contains(t, body, "systemInstruction")
	assert.Equal(t, "gemini:gemini-test", c.Name())
}

func TestGenerateMarksAuthErrorsPermanent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`)
	})

	_, err := c.Generate(context.Background(), llm.GenerateRequest{Prompt: "timetable"})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrPermanent)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"bad key", genai.APIError{Code: 401}, true},
		{"unknown model", fmt.Errorf("call: %w", genai.APIError{Code: 404}), true},
		{"rate limited", genai.APIError{Code: 429}, false},
		{"server error", genai.APIError{Code: 503}, false},
		{"transport", errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(tc.err)
			assert.Contains(t, err.Error(), tc.err.Error())
			assert.Equal(t, tc.permanent, errors.Is(err, llm.ErrPermanent))
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "", nil)
	assert.Error(t, err)
}
