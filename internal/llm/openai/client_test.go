package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/course-extractor/internal/llm"
)

func TestGenerateSendsChatCompletion(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"courses\":[]}  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "m", JSONMode: true}, nil)
	out, err := c.Generate(context.Background(), llm.GenerateRequest{System: "sys", Prompt: "user", Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, `{"courses":[]}`, out)

	assert.Equal(t, "m", got["model"])
	assert.InDelta(t, 0.1, got["temperature"], 1e-6)
	assert.NotNil(t, got["response_format"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
}

func TestGenerateClassifiesStatusErrors(t *testing.T) {
	status := http.StatusUnauthorized
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)

	_, err := c.Generate(context.Background(), llm.GenerateRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrPermanent))

	status = http.StatusServiceUnavailable
	_, err = c.Generate(context.Background(), llm.GenerateRequest{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, llm.ErrPermanent))
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).Generate(context.Background(), llm.GenerateRequest{})
	assert.Error(t, err)
}
