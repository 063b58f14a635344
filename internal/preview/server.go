// Package preview serves the annotated tracking frame over HTTP and saves
// snapshots to disk.
package preview

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"image"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// Server publishes the latest frame at /image.jpg with a refreshing page at
// /. The same mux carries the monitor and admin routes.
type Server struct {
	addr string
	mux  *http.ServeMux

	mu       sync.Mutex
	frame    image.Image
	width    int
	height   int
	frames   bool
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a preview server on addr. An empty addr disables it.
func NewServer(addr string) *Server {
	return &Server{addr: addr, mux: http.NewServeMux()}
}

// Enabled reports whether the server has an address to listen on.
func (s *Server) Enabled() bool { return s != nil && s.addr != "" }

// ServeMux exposes the mux for additional routes. Routes may be added
// before or after Start.
func (s *Server) ServeMux() *http.ServeMux { return s.mux }

// Start binds the listener and serves in the background. Calling Start on a
// started or disabled server does nothing.
func (s *Server) Start() error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("preview listen on %s: %w", s.addr, err)
	}
	s.listener = lis
	s.srv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		log.Printf("[Preview] HTTP server listening on %s", lis.Addr())
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Preview] HTTP server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ServeFrames sets up frame serving for a w x h stream. It is idempotent:
// repeated calls only update the advertised size.
func (s *Server) ServeFrames(w, h int) error {
	if !s.Enabled() {
		return nil
	}
	s.mu.Lock()
	s.width, s.height = w, h
	first := !s.frames
	if first {
		s.frames = true
		s.mux.HandleFunc("GET /image.jpg", s.handleImage)
		s.mux.HandleFunc("GET /{$}", s.handleIndex)
	}
	s.mu.Unlock()

	if first {
		log.Printf("[Preview] Serving %dx%d frames", w, h)
	}
	return s.Start()
}

// SetCurrentFrame replaces the frame served at /image.jpg.
func (s *Server) SetCurrentFrame(img image.Image) {
	if !s.Enabled() {
		return
	}
	s.mu.Lock()
	s.frame = img
	s.mu.Unlock()
}

// Stop shuts the HTTP server down, forcing it closed if in-flight requests
// do not finish within five seconds.
func (s *Server) Stop() {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.mu.Unlock()
	if srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Preview] HTTP server shutdown error: %v", err)
		if err := srv.Close(); err != nil {
			log.Printf("[Preview] HTTP server force close error: %v", err)
		}
	}
	<-done
	log.Printf("[Preview] HTTP server stopped")
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	frame := s.frame
	s.mu.Unlock()

	if frame == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	if err := imaging.Encode(w, frame, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		log.Printf("[Preview] encode frame: %v", err)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>colortrack</title></head>
<body style="margin:0;background:#111">
<img id="frame" src="/image.jpg" width="{{.Width}}" height="{{.Height}}">
<script>
setInterval(function () {
  document.getElementById("frame").src = "/image.jpg?t=" + Date.now();
}, 100);
</script>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := struct{ Width, Height int }{s.width, s.height}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		log.Printf("[Preview] render index: %v", err)
	}
}
