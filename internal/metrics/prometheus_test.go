package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesInsightCollectors(t *testing.T) {
	Init()
	Init()

	BackendRequestsTotal.WithLabelValues("stats", "200").Inc()
	UploadsTotal.WithLabelValues("success").Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "insight_backend_requests_total")
	assert.Contains(t, string(body), "insight_uploads_total")
	assert.GreaterOrEqual(t, testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("stats", "200")), 1.0)
}
