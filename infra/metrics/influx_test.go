package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/fleetcore/core/metrics"
)

type lineServer struct {
	mu   sync.Mutex
	body string
	srv  *httptest.Server
}

func newLineServer(t *testing.T) *lineServer {
	ls := &lineServer{}
	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.body = strings.TrimSpace(string(data))
		ls.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *lineServer) last() string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.body
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSinkRecordVehicleState(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: ls.srv.URL, Token: "tok", Org: "org", Bucket: "bucket"})
	now := time.Now()
	require.NoError(t, sink.RecordVehicleState(coremetrics.VehicleStateEvent{
		Vehicle: "agv-1", State: "EXECUTING", Position: "P2", Connected: true, CommandsExecuted: 3, Context: "position", Time: now,
	}))
	want := write.NewPointWithMeasurement("vehicle_state").
		AddTag("vehicle", "agv-1").
		AddTag("context", "position").
		AddField("state", "EXECUTING").
		AddField("position", "P2").
		AddField("connected", true).
		AddField("loaded", false).
		AddField("commands_executed", 3).
		SetTime(now)
	assert.Equal(t, line(want), ls.last())
}

func TestInfluxSinkRecordRouteAndCommand(t *testing.T) {
	ls := newLineServer(t)
	sink := NewInfluxSink(InfluxConfig{URL: ls.srv.URL + "/api/v2/write", Org: "org", Bucket: "bucket"})
	now := time.Now()

	require.NoError(t, sink.RecordRoute(coremetrics.RouteEvent{Vehicle: "agv-1", Operation: "MOVE", Destination: "P3", Steps: 2, Cost: 2000, Time: now}))
	want := write.NewPointWithMeasurement("route_assigned").
		AddTag("vehicle", "agv-1").
		AddTag("operation", "MOVE").
		AddTag("destination", "P3").
		AddField("steps", 2).
		AddField("cost", int64(2000)).
		SetTime(now)
	assert.Equal(t, line(want), ls.last())

	require.NoError(t, sink.RecordCommand(coremetrics.CommandEvent{Vehicle: "agv-1", Operation: "NOP", Destination: "P2", Index: 0, Time: now}))
	want = write.NewPointWithMeasurement("command_executed").
		AddTag("vehicle", "agv-1").
		AddTag("operation", "NOP").
		AddTag("destination", "P2").
		AddField("index", 0).
		SetTime(now)
	assert.Equal(t, line(want), ls.last())
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	assert.IsType(t, coremetrics.NopSink{}, sink)
	assert.True(t, called)
}
