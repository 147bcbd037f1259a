package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoForwardsKeyQueryAndBody(t *testing.T) {
	var gotPath, gotQuery, gotKey, gotBody, gotMethod, gotType string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get(HeaderAPIKey)
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer upstream.Close()

	c := NewClient(Config{BaseURL: upstream.URL + "/", APIKey: "secret"})
	resp, err := c.Do(context.Background(), Request{
		Method:   http.MethodPost,
		Path:     "/api/rules",
		RawQuery: "feed_key=acme&rule_type=pricing",
		Body:     []byte(`{"priority":0}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/rules", gotPath)
	assert.Equal(t, "feed_key=acme&rule_type=pricing", gotQuery)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, `{"priority":0}`, gotBody)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.IsSuccess())

	var out struct{ ID int }
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, 1, out.ID)
}

func TestDoReturnsNon2xxWithoutError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "feed not found", http.StatusNotFound)
	}))
	defer upstream.Close()

	c := NewClient(Config{BaseURL: upstream.URL, APIKey: "k"})
	resp, err := c.Do(context.Background(), Request{Path: "/api/feeds"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.IsSuccess())
	assert.Contains(t, string(resp.Body), "feed not found")
}

func TestDoCustomKeyHeader(t *testing.T) {
	var got string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(HeaderTypesenseAPIKey)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	c := NewClient(Config{BaseURL: upstream.URL, APIKey: "ts", KeyHeader: HeaderTypesenseAPIKey})
	_, err := c.Do(context.Background(), Request{Path: "/health"})
	require.NoError(t, err)
	assert.Equal(t, "ts", got)
}

func TestDoConfigurationErrors(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost"}).Do(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient(Config{APIKey: "k"}).Do(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	assert.False(t, NewClient(Config{}).Configured())
	assert.True(t, NewClient(Config{BaseURL: "http://x", APIKey: "k"}).Configured())
	assert.True(t, NewClient(Config{APIKey: "k"}).HasAPIKey())
	assert.False(t, NewClient(Config{BaseURL: "http://x"}).HasAPIKey())
}

func TestDoNetworkFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	c := NewClient(Config{BaseURL: url, APIKey: "k", Timeout: time.Second})
	_, err := c.Do(context.Background(), Request{Path: "/api/feeds"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingAPIKey))
}

func TestDoHonoursContext(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k", RateLimit: 0.001, RateBurst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Do(ctx, Request{Path: "/api/feeds"})
	assert.Error(t, err)
}
