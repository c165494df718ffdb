package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScraperClient_CreateJob(t *testing.T) {
	var got ScrapeJobRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/jobs", r.URL.Path)
		assert.Equal(t, "k-1", r.Header.Get("X-API-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"job_id":"job-1","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewScraperClient(config.ScraperConfig{BaseURL: srv.URL, APIKey: "k-1", Timeout: 2 * time.Second}, zap.NewNop())
	job, err := c.CreateJob(context.Background(), ScrapeJobRequest{
		PropertyID:  "prop-1",
		JobType:     "expedia",
		RequestedBy: "u1",
		ExpediaID:   strPtr("E-9"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"job-1","status":"queued"}`, string(job))

	assert.Equal(t, "prop-1", got.PropertyID)
	assert.Equal(t, "E-9", *got.ExpediaID)
	assert.Nil(t, got.AgodaID)
}

func TestScraperClient_ErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewScraperClient(config.ScraperConfig{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())
	_, err := c.CreateJob(context.Background(), ScrapeJobRequest{PropertyID: "prop-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, 1, calls, "no retries")
}

func TestScraperClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewScraperClient(config.ScraperConfig{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())
	_, err := c.CreateJob(context.Background(), ScrapeJobRequest{PropertyID: "prop-1"})
	assert.Error(t, err)
}
