package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPromAPI(t *testing.T, handler http.HandlerFunc) *PromAPI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewPromAPI(PromAPIConfig{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	return client
}

func TestPromAPI_QueryVector(t *testing.T) {
	client := newTestPromAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/query", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("query"))

		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {
				"resultType": "vector",
				"result": [
					{"metric": {"service": "analysis-api"}, "value": [1756000000, "0.231"]},
					{"metric": {"service": "rider-api"}, "value": [1756000000, "0.087"]}
				]
			}
		}`))
	})

	samples, err := client.QueryVector(context.Background(), `histogram_quantile(0.95, sum by (le, service) (rate(http_request_duration_seconds_bucket[5m])))`)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "analysis-api", samples[0].Labels["service"])
	assert.Equal(t, 0.231, samples[0].Value)
	assert.Equal(t, 0.087, samples[1].Value)
}

func TestPromAPI_queryErrors(t *testing.T) {
	tests := map[string]struct {
		handler http.HandlerFunc
		wantErr error
	}{
		"api error status": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"status":"error","error":"parse error"}`))
			},
			wantErr: ErrQuery,
		},
		"non-vector result": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"matrix","result":[]}}`))
			},
			wantErr: ErrQuery,
		},
		"non-numeric value": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[0,"NaN-ish"]}]}}`))
			},
			wantErr: ErrQuery,
		},
		"garbage body": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>proxy error</html>`))
			},
			wantErr: ErrQuery,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestPromAPI(t, test.handler)

			_, err := client.QueryVector(context.Background(), "up")
			assert.ErrorIs(t, err, test.wantErr)
		})
	}
}

func TestPromAPI_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client, err := NewPromAPI(PromAPIConfig{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.QueryVector(context.Background(), "up")
	assert.ErrorIs(t, err, ErrUnavailable)
}
