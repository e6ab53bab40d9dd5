package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	val    string
	err    error
	onCall func()
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		&fakeGetter{val: `{"token":"gm-test-key"}`},
		"/travel-assistant",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func candidateBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(b)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "/travel-assistant")
	require.Error(t, err)

	_, err = NewClient(&fakeGetter{}, " ")
	require.Error(t, err)
}

func TestGenerate_HappyPath_FixedBodyContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "gm-test-key", r.URL.Query().Get("key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"maxOutputTokens":8192`)
		require.Contains(t, string(body), `"temperature":0.9`)
		require.Contains(t, string(body), `"topP":1`)
		require.Contains(t, string(body), `"HARM_CATEGORY_DANGEROUS_CONTENT"`)
		require.Contains(t, string(body), `BLOCK_MEDIUM_AND_ABOVE`)

		w.WriteHeader(200)
		_, _ = w.Write([]byte(candidateBody("• pack light")))
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv).Generate(context.Background(), "trip to Pune", "")
	require.NoError(t, err)
	require.Equal(t, "• pack light", text)
}

func TestGenerate_SystemPromptPrepended(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 1)
		gotPrompt = req.Contents[0].Parts[0].Text
		w.WriteHeader(200)
		_, _ = w.Write([]byte(candidateBody("ok")))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "trip to Pune", "You are a travel assistant.")
	require.NoError(t, err)
	require.Equal(t, "You are a travel assistant.\n\nUser Query: trip to Pune", gotPrompt)
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "hello", "")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerate_EmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(candidateBody("")))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "hello", "")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerate_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "hello", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestGenerate_EmptyQuery(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":"k"}`}, "/travel-assistant")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "  ", "")
	require.Error(t, err)
}

func TestResolveAPIKey_CachedAcrossCalls(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: `{"token":"gm-key"}`, onCall: func() { calls++ }}
	c, err := NewClient(g, "/travel-assistant")
	require.NoError(t, err)

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "gm-key", key)

	_, _ = c.resolveAPIKey(context.Background())
	_, _ = c.resolveAPIKey(context.Background())
	require.Equal(t, 1, calls, "SSM must only be called once per process lifetime")
}

func TestGenerate_CustomModelPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-exp:generateContent", r.URL.Path)
		w.WriteHeader(200)
		_, _ = w.Write([]byte(candidateBody("ok")))
	}))
	defer srv.Close()

	c, err := NewClient(
		&fakeGetter{val: `{"token":"k"}`},
		"/travel-assistant",
		WithBaseURL(srv.URL),
		WithModel("gemini-exp"),
	)
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "hello", "")
	require.NoError(t, err)
}
