package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"tarediiran-industries.com/gtfs-board/internal/transit"
)

// 2025-03-10 07:04:00 UTC, 08:04:00 in Madrid
const estimatedUnix = 1741590240

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (buffer *syncBuffer) Write(p []byte) (int, error) {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return buffer.buf.Write(p)
}

func (buffer *syncBuffer) String() string {
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	return buffer.buf.String()
}

func newServers(t *testing.T) (api *httptest.Server, feed *httptest.Server) {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/api/stations", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]transit.Station{
			{StopID: "71801", Name: "Barcelona-Sants", Lat: 41.379, Lon: 2.14},
		})
	})
	router.Get("/api/station/{stop_id}/scheduled", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]transit.ScheduledTrain{
			{TripID: "T1", StopID: chi.URLParam(r, "stop_id"), Destination: "Sant Vicenç", Line: "R2S", Scheduled: "08:01:00"},
			{TripID: "T2", StopID: chi.URLParam(r, "stop_id"), Destination: "Lleida", Line: "R14", Scheduled: "08:10:00"},
		})
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","database":"connected"}`))
	})
	api = httptest.NewServer(router)
	t.Cleanup(api.Close)

	payload, err := proto.Marshal(&gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{{
			Id: proto.String("e1"),
			TripUpdate: &gtfs.TripUpdate{
				Trip: &gtfs.TripDescriptor{TripId: proto.String("T1")},
				StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{{
					StopId:  proto.String("71801"),
					Arrival: &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(estimatedUnix)},
				}},
			},
		}},
	})
	require.NoError(t, err)
	feed = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(feed.Close)

	return api, feed
}

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	root := NewRootCmd(&GtfsCtlApp{})
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(&syncBuffer{})
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestStationsCmd(t *testing.T) {
	api, feed := newServers(t)

	out, err := run(t, context.Background(), "stations", "--api", api.URL, "--feed", feed.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "STOP_ID")
	assert.Contains(t, out, "Barcelona-Sants")
	assert.Contains(t, out, "41.37900")
}

func TestBoardCmdOnce(t *testing.T) {
	api, feed := newServers(t)

	out, err := run(t, context.Background(), "board", "71801", "--api", api.URL, "--feed", feed.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Station: Barcelona-Sants (71801)")

	lines := strings.Split(out, "\n")
	var realtime, scheduled string
	for _, line := range lines {
		if strings.HasPrefix(line, "Sant Vicenç") {
			realtime = line
		}
		if strings.HasPrefix(line, "Lleida") {
			scheduled = line
		}
	}
	assert.Contains(t, realtime, "08:04:00")
	assert.Contains(t, realtime, transit.StatusRealtime)
	assert.Contains(t, scheduled, "08:10:00")
	assert.Contains(t, scheduled, transit.StatusScheduled)
	assert.Contains(t, out, "Last real-time data update: ")
	assert.NotContains(t, out, "Last real-time data update: N/A")
}

func TestBoardCmdWatch(t *testing.T) {
	api, feed := newServers(t)
	ctx, cancel := context.WithCancel(context.Background())

	out := &syncBuffer{}
	root := NewRootCmd(&GtfsCtlApp{})
	root.SetArgs([]string{"board", "71801", "--watch", "--api", api.URL, "--feed", feed.URL})
	root.SetOut(out)
	root.SetErr(&syncBuffer{})

	errs := make(chan error, 1)
	go func() { errs <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Last real-time data update")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("board --watch did not stop after cancellation")
	}
}

func TestBoardCmdRequiresStopID(t *testing.T) {
	_, err := run(t, context.Background(), "board")
	assert.Error(t, err)
}

func TestFeedCmd(t *testing.T) {
	api, feed := newServers(t)

	out, err := run(t, context.Background(), "feed", "--api", api.URL, "--feed", feed.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "TRIP_ID")
	assert.Regexp(t, `T1\s+71801\s+08:04:00`, out)

	out, err = run(t, context.Background(), "feed", "--raw", "--api", api.URL, "--feed", feed.URL)
	require.NoError(t, err)
	// protojson output spacing is deliberately unstable
	assert.Regexp(t, `"tripId":\s+"T1"`, out)
	assert.Regexp(t, `"gtfsRealtimeVersion":\s+"2.0"`, out)
}

func TestHealthCmd(t *testing.T) {
	api, feed := newServers(t)

	out, err := run(t, context.Background(), "health", "--api", api.URL, "--feed", feed.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)

	api.Close()
	_, err = run(t, context.Background(), "health", "--api", api.URL, "--feed", feed.URL)
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, context.Background(), "stations", "--api", "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ApiBaseUrl")
}
