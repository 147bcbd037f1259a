package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/cache"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "tok", WithCache(cache.New(64, time.Minute))), srv
}

func TestListFeedsSendsTokenAndDecodes(t *testing.T) {
	var auth string
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/feeds", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":1,"key":"acme","label":"Acme","collection":"products","enabled":true}]`)
	})

	feeds, err := c.ListFeeds(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "acme", feeds[0].Key)
	assert.Equal(t, "Bearer tok", auth)
}

func TestDataWrapperIsUnwrapped(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"id":"s1","name":"nightly","cron":"0 0 * * *"}],"count":1}`)
	})

	schedules, err := c.ListSchedules(context.Background())
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "0 0 * * *", schedules[0].Cron)
}

func TestAPIErrorEnvelope(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":"Failed to fetch workers","details":"upstream timeout"}`)
	})

	_, err := c.ListWorkers(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Failed to fetch workers", apiErr.Message)
	assert.Equal(t, "upstream timeout", apiErr.Details)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestNotFoundWrapsSentinel(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such rule", http.StatusNotFound)
	})

	err := c.DeleteRule(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "no such rule", apiErr.Details)
}

func TestGetFeedAcceptsObjectOrList(t *testing.T) {
	for name, body := range map[string]string{
		"list":   `[{"key":"other"},{"key":"acme","label":"Acme"}]`,
		"object": `{"key":"acme","label":"Acme"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "acme", r.URL.Query().Get("key"))
				_, _ = io.WriteString(w, body)
			})
			feed, err := c.GetFeed(context.Background(), "acme")
			require.NoError(t, err)
			assert.Equal(t, "Acme", feed.Label)
		})
	}

	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	_, err := c.GetFeed(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListsAreCachedAndMutationsInvalidate(t *testing.T) {
	var gets, posts atomic.Int32
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/schedules":
			gets.Add(1)
			_, _ = io.WriteString(w, `[]`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/scheduler/monitoring":
			_, _ = io.WriteString(w, `{"queue":{"pending":1}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/schedules/execute":
			posts.Add(1)
			assert.Equal(t, "s1", r.URL.Query().Get("id"))
			_, _ = io.WriteString(w, `{"job_id":"j1","status":"queued"}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	_, err := c.ListSchedules(ctx)
	require.NoError(t, err)
	_, err = c.ListSchedules(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), gets.Load())

	_, err = c.MonitoringSnapshot(ctx)
	require.NoError(t, err)
	_, ok := c.Cache().Get(KeyMonitoring)
	require.True(t, ok)

	exec, err := c.ExecuteSchedule(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", exec.ScheduleID)
	assert.Equal(t, "j1", exec.JobID)

	_, ok = c.Cache().Get(KeySchedules)
	assert.False(t, ok)
	_, ok = c.Cache().Get(KeyMonitoring)
	assert.False(t, ok)

	_, err = c.ListSchedules(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), gets.Load())
}

func TestExecuteScheduleFailureKeepsCache(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"Failed to execute schedule","details":"busy"}`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})
	ctx := context.Background()

	_, err := c.ListSchedules(ctx)
	require.NoError(t, err)

	_, err = c.ExecuteSchedule(ctx, "s1")
	require.Error(t, err)

	_, ok := c.Cache().Get(KeySchedules)
	assert.True(t, ok)
}

func TestRuleStoreRoundTrip(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.Method {
		case http.MethodPost:
			assert.JSONEq(t, `{"feed_key":"acme","rule_type":"pricing","priority":0,"enabled":true,"config":{"max_price":100}}`, string(body))
			_, _ = io.WriteString(w, `{"id":55,"feed_key":"acme","rule_type":"pricing","priority":0,"enabled":true,"config":{"max_price":100}}`)
		case http.MethodPatch:
			assert.Equal(t, "55", r.URL.Query().Get("id"))
			assert.JSONEq(t, `{"priority":3}`, string(body))
			_, _ = io.WriteString(w, `{"id":55,"priority":3}`)
		}
	})
	ctx := context.Background()

	created, err := c.CreateRule(ctx, models.RuleInput{
		FeedKey: "acme", RuleType: models.RuleTypePricing, Enabled: true,
		Config: map[string]any{"max_price": 100},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(55), created.ID)

	p := 3
	updated, err := c.UpdateRule(ctx, 55, models.RuleUpdate{Priority: &p})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Priority)
}

func TestFetchHeadersQuery(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "acme", q.Get("feedKey"))
		assert.Equal(t, "t1", q.Get("tenant_id"))
		assert.Equal(t, "true", q.Get("save"))
		_, _ = io.WriteString(w, `{"feedKey":"acme","headers":["sku","price"],"saved":true}`)
	})

	h, err := c.FetchHeaders(context.Background(), "acme", "t1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "price"}, h.Headers)
	assert.True(t, h.Saved)
}

func TestCollectionLastUpdateEscapesName(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/collections/products%20eu/last-update", r.URL.EscapedPath())
		_, _ = io.WriteString(w, `{"last_update":"2026-01-02T03:04:05Z"}`)
	})

	u, err := c.CollectionLastUpdate(context.Background(), "products eu")
	require.NoError(t, err)
	assert.Equal(t, "products eu", u.Name)
	require.NotNil(t, u.LastUpdate)
	assert.Equal(t, 2026, u.LastUpdate.Year())
}
