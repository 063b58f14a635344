// Package monitor exposes the tracker's live status and controls over HTTP,
// plus debug charts of recent positions.
package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"tailscale.com/tsweb"

	"github.com/banshee-data/colortrack/internal/config"
	"github.com/banshee-data/colortrack/internal/db"
	"github.com/banshee-data/colortrack/internal/feed"
	"github.com/banshee-data/colortrack/internal/input"
	"github.com/banshee-data/colortrack/internal/mailbox"
	"github.com/banshee-data/colortrack/internal/tracker"
	"github.com/banshee-data/colortrack/internal/version"
)

// LoopStats reports tracking loop activity.
type LoopStats interface {
	Stats() tracker.Stats
}

// FeedStats reports feed service activity.
type FeedStats interface {
	Stats() feed.Stats
}

// CommandSink accepts operator commands for the loop.
type CommandSink interface {
	Push(input.Command) bool
}

// History provides recent logged positions.
type History interface {
	RecentLocations(limit int) ([]db.LocationRecord, error)
}

// Sources are the components the monitor reports on. Loop, Feed, Commands
// and History may be nil.
type Sources struct {
	Mailbox  *mailbox.Mailbox
	Runtime  *config.RuntimeConfig
	Loop     LoopStats
	Feed     FeedStats
	Commands CommandSink
	History  History
}

// WebServer serves the monitor routes on a caller-owned mux.
type WebServer struct {
	src Sources
}

func NewWebServer(src Sources) *WebServer {
	return &WebServer{src: src}
}

// AttachRoutes mounts /api/status, /api/command and the /debug/ charts.
func (ws *WebServer) AttachRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", ws.handleStatus)
	mux.HandleFunc("POST /api/command", ws.handleCommand)

	debug := tsweb.Debugger(mux)
	debug.KVFunc("Version", func() any { return version.String() })
	debug.KVFunc("Position", func() any {
		loc, ok := ws.src.Mailbox.Peek()
		if !ok {
			return "none"
		}
		return loc.String()
	})
	if ws.src.Feed != nil {
		debug.KVFunc("Feed streams", func() any { return ws.src.Feed.Stats().ActiveStreams })
	}
	if ws.src.History != nil {
		debug.HandleFunc("positions", "Recent positions (chart)", ws.handlePositionsChart)
		debug.HandleFunc("positions.png", "Recent positions (PNG)", ws.handlePositionsPlot)
	}
}

// Status is the /api/status document.
type Status struct {
	Version  string                 `json:"version"`
	Location *mailbox.Location      `json:"location"`
	Runtime  config.RuntimeSnapshot `json:"runtime"`
	Loop     *tracker.Stats         `json:"loop,omitempty"`
	Feed     *feed.Stats            `json:"feed,omitempty"`
	Mailbox  mailbox.Stats          `json:"mailbox"`
}

func (ws *WebServer) status() Status {
	st := Status{
		Version: version.String(),
		Runtime: ws.src.Runtime.Snapshot(),
		Mailbox: ws.src.Mailbox.Stats(),
	}
	if loc, ok := ws.src.Mailbox.Peek(); ok {
		st.Location = &loc
	}
	if ws.src.Loop != nil {
		s := ws.src.Loop.Stats()
		st.Loop = &s
	}
	if ws.src.Feed != nil {
		s := ws.src.Feed.Stats()
		st.Feed = &s
	}
	return st
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.status())
}

type commandRequest struct {
	Command string `json:"command"`
}

// handleCommand accepts {"command": "<name>"} or a "command" form value.
func (ws *WebServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	if ws.src.Commands == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "commands are not enabled")
		return
	}

	var name string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req commandRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
			return
		}
		name = req.Command
	} else {
		name = r.FormValue("command")
	}

	cmd, err := input.Parse(name)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ws.src.Commands.Push(cmd) {
		ws.writeJSONError(w, http.StatusTooManyRequests, "command queue full")
		return
	}
	log.Printf("[Monitor] Queued command %s", cmd)
	ws.writeJSON(w, http.StatusAccepted, map[string]string{"queued": cmd.String()})
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[Monitor] JSON encoding error: %v", err)
	}
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	ws.writeJSON(w, status, map[string]string{"error": msg})
}
