package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dto "github.com/prometheus/client_model/go"
	"github.com/wfunc/impostor/models"
)

func value(t *testing.T, metric prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, metric.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestRecorderCounters(t *testing.T) {
	m := NewMonitor("impostor", prometheus.NewRegistry())

	m.RoomCreated()
	m.PlayerJoined()
	m.PlayerJoined()
	m.RoundStarted()
	m.RoundFinished(models.WinnerVillagers)
	m.VoteCast("revote")
	m.OperationFailed("vote")

	metrics := m.Metrics()
	assert.Equal(t, 1.0, value(t, metrics.RoomsCreated))
	assert.Equal(t, 2.0, value(t, metrics.PlayersJoined))
	assert.Equal(t, 1.0, value(t, metrics.RoundsStarted))
	assert.Equal(t, 1.0, value(t, metrics.RoundsFinished.WithLabelValues("villagers")))
	assert.Equal(t, 1.0, value(t, metrics.VotesCast.WithLabelValues("revote")))
	assert.Equal(t, 1.0, value(t, metrics.OperationErrors.WithLabelValues("vote")))
}

func TestGauges(t *testing.T) {
	m := NewMonitor("impostor", prometheus.NewRegistry())
	m.IncOnlinePlayers()
	m.IncOnlinePlayers()
	m.DecOnlinePlayers()
	m.SetActiveRooms(4)

	assert.Equal(t, 1.0, value(t, m.Metrics().OnlinePlayers))
	assert.Equal(t, 4.0, value(t, m.Metrics().ActiveRooms))
}

func TestHandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMonitor("impostor", prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `impostor_http_request_duration_seconds_count{method="GET",route="/ping",status="200"} 1`), body)
}
