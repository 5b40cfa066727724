package fx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const latestUSD = `{
	"result": "success",
	"base_code": "USD",
	"time_last_update_unix": 1735689601,
	"conversion_rates": {"USD": 1, "EUR": 0.9215, "GBP": 0.7954, "JPY": 157.2}
}`

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/USD", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(latestUSD))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", time.Second, logging.Discard())
	snap, err := src.Fetch(context.Background(), "USD")
	require.NoError(t, err)

	assert.Equal(t, "USD", string(snap.Base))
	assert.Len(t, snap.Rates, 4)
	assert.True(t, snap.Rates["EUR"].Equal(dec("0.9215")))
	assert.Equal(t, time.Unix(1735689601, 0).UTC(), snap.UpdatedAt)
	assert.Equal(t, srv.URL, snap.Source)

	table, err := NewTable(snap)
	require.NoError(t, err)
	conv, err := table.Convert(dec("100"), "USD", "GBP")
	require.NoError(t, err)
	assert.True(t, conv.Converted.Equal(dec("79.54")))
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(latestUSD))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, time.Second, logging.Discard())
	_, err := src.Fetch(context.Background(), "USD")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSourceRejects(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"result":"error","error-type":"unsupported-code"}`},
		{name: "error result", status: http.StatusOK, body: `{"result":"error","error-type":"invalid-key"}`},
		{name: "wrong base", status: http.StatusOK, body: `{"result":"success","base_code":"EUR","conversion_rates":{"EUR":1}}`},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			src := NewHTTPSource(srv.URL, time.Second, logging.Discard())
			_, err := src.Fetch(context.Background(), "USD")
			require.Error(t, err)
		})
	}
}
