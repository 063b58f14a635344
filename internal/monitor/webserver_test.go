package monitor

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/colortrack/internal/config"
	"github.com/banshee-data/colortrack/internal/db"
	"github.com/banshee-data/colortrack/internal/feed"
	"github.com/banshee-data/colortrack/internal/input"
	"github.com/banshee-data/colortrack/internal/mailbox"
	"github.com/banshee-data/colortrack/internal/tracker"
)

type stubLoop struct{ stats tracker.Stats }

func (s stubLoop) Stats() tracker.Stats { return s.stats }

type stubFeed struct{ stats feed.Stats }

func (s stubFeed) Stats() feed.Stats { return s.stats }

type stubHistory struct {
	recs []db.LocationRecord
	err  error
}

func (h stubHistory) RecentLocations(limit int) ([]db.LocationRecord, error) {
	if len(h.recs) > limit {
		return h.recs[len(h.recs)-limit:], h.err
	}
	return h.recs, h.err
}

func newTestMux(t *testing.T, src Sources) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewWebServer(src).AttachRoutes(mux)
	return mux
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	// debug routes only answer loopback callers
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func history() stubHistory {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var recs []db.LocationRecord
	recs = append(recs, db.LocationRecord{X: -1, Y: -1, RecordedAt: t0})
	for i := 1; i <= 20; i++ {
		recs = append(recs, db.LocationRecord{
			ID: int64(i), X: 300 + i, Y: 240 - i, Width: 640, Height: 480, MiddleInc: 16,
			RecordedAt: t0.Add(time.Duration(i) * 100 * time.Millisecond),
		})
	}
	return stubHistory{recs: recs}
}

func TestStatus(t *testing.T) {
	mb := mailbox.New()
	mb.Publish(mailbox.Location{X: 320, Y: 240, Width: 640, Height: 480, MiddleInc: 16})
	mux := newTestMux(t, Sources{
		Mailbox: mb,
		Runtime: config.NewRuntimeConfig(640, 10, false, true),
		Loop:    stubLoop{tracker.Stats{State: "running", Frames: 42}},
		Feed:    stubFeed{feed.Stats{Running: true, ActiveStreams: 2}},
	})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.NotNil(t, st.Location)
	assert.Equal(t, 320, st.Location.X)
	assert.Equal(t, 640, st.Runtime.Width)
	assert.True(t, st.Runtime.FlipY)
	require.NotNil(t, st.Loop)
	assert.Equal(t, uint64(42), st.Loop.Frames)
	require.NotNil(t, st.Feed)
	assert.Equal(t, 2, st.Feed.ActiveStreams)
	assert.Equal(t, uint64(1), st.Mailbox.Publishes)
}

func TestStatus_NothingPublished(t *testing.T) {
	mux := newTestMux(t, Sources{Mailbox: mailbox.New(), Runtime: config.NewRuntimeConfig(400, 15, false, false)})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"location":null`)
	assert.NotContains(t, rec.Body.String(), `"loop"`)
}

func TestCommand(t *testing.T) {
	q := input.NewQueue(1)
	mux := newTestMux(t, Sources{Mailbox: mailbox.New(), Runtime: config.NewRuntimeConfig(400, 15, false, false), Commands: q})

	req := httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(`{"command":"width-up"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(mux, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	cmd, ok := q.Poll()
	assert.True(t, ok)
	assert.Equal(t, input.WidthUp, cmd)

	form := url.Values{"command": {"reset"}}
	req = httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusAccepted, serve(mux, req).Code)

	// queue of one is now full
	req = httptest.NewRequest(http.MethodPost, "/api/command?command=quit", nil)
	assert.Equal(t, http.StatusTooManyRequests, serve(mux, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/command?command=fly", nil)
	assert.Equal(t, http.StatusBadRequest, serve(mux, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(mux, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/command", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(mux, req).Code)
}

func TestCommand_Disabled(t *testing.T) {
	mux := newTestMux(t, Sources{Mailbox: mailbox.New(), Runtime: config.NewRuntimeConfig(400, 15, false, false)})
	req := httptest.NewRequest(http.MethodPost, "/api/command?command=reset", nil)
	assert.Equal(t, http.StatusServiceUnavailable, serve(mux, req).Code)
}

func TestPositionsChart(t *testing.T) {
	mux := newTestMux(t, Sources{Mailbox: mailbox.New(), Runtime: config.NewRuntimeConfig(640, 10, false, false), History: history()})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/debug/positions?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "10 points")
	assert.Contains(t, rec.Body.String(), "640x480")
}

func TestPositionsPlot(t *testing.T) {
	mux := newTestMux(t, Sources{Mailbox: mailbox.New(), Runtime: config.NewRuntimeConfig(640, 10, false, false), History: history()})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/debug/positions.png", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	assert.NoError(t, err)
}

func TestPositionsHistoryError(t *testing.T) {
	mux := newTestMux(t, Sources{
		Mailbox: mailbox.New(),
		Runtime: config.NewRuntimeConfig(640, 10, false, false),
		History: stubHistory{err: errors.New("disk gone")},
	})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/debug/positions", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk gone")
}

func TestLocated(t *testing.T) {
	got := located(history().recs)
	assert.Len(t, got, 20)
	assert.Equal(t, 301, got[0].X)
}

func TestPositionsPlot_Empty(t *testing.T) {
	p, err := positionsPlot(nil)
	require.NoError(t, err)
	assert.Equal(t, "Tracked position", p.Title.Text)
}
