// Package feed streams tracked positions to remote consumers over gRPC.
//
// Every connected consumer gets its own mailbox subscription, so each
// stream blocks independently and sees the most recent position published
// since its last send.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/banshee-data/colortrack/internal/feed/pb"
	"github.com/banshee-data/colortrack/internal/mailbox"
	"github.com/banshee-data/colortrack/internal/version"
)

// Server implements pb.LocationServer on top of a Mailbox.
type Server struct {
	mb         *mailbox.Mailbox
	maxClients int
	identity   string

	// base is cancelled by shutdown; every stream context derives from it.
	base       context.Context
	cancelBase context.CancelFunc

	active        atomic.Int32
	totalStreams  atomic.Uint64
	registrations atomic.Uint64
	sent          atomic.Uint64

	clientsMu sync.RWMutex
	clients   map[string]ClientInfo
}

// ClientInfo describes one active stream.
type ClientInfo struct {
	ID        string    `json:"id"`
	Info      string    `json:"info"`
	Connected time.Time `json:"connected"`
	Sent      uint64    `json:"sent"`
}

// NewServer creates a Server. maxClients <= 0 means unlimited streams.
func NewServer(mb *mailbox.Mailbox, maxClients int) *Server {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	base, cancel := context.WithCancel(context.Background())
	return &Server{
		mb:         mb,
		maxClients: maxClients,
		identity:   fmt.Sprintf("%s colortrack %s", host, version.Version),
		base:       base,
		cancelBase: cancel,
		clients:    make(map[string]ClientInfo),
	}
}

// RegisterClient acknowledges a consumer. No per-client state is kept.
func (s *Server) RegisterClient(ctx context.Context, in pb.ClientInfo) (pb.ServerInfo, error) {
	s.registrations.Add(1)
	log.Printf("[Feed] Client registered: %q", in.Info)
	return pb.ServerInfo{Info: s.identity}, nil
}

// GetLocations streams every fresh location until the client disconnects or
// the server shuts down.
func (s *Server) GetLocations(in pb.ClientInfo, stream pb.LocationSender) error {
	if n := s.active.Add(1); s.maxClients > 0 && int(n) > s.maxClients {
		s.active.Add(-1)
		return status.Errorf(codes.ResourceExhausted, "too many location streams (max %d)", s.maxClients)
	}
	defer s.active.Add(-1)
	s.totalStreams.Add(1)

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()
	stop := context.AfterFunc(s.base, cancel)
	defer stop()

	id := uuid.NewString()
	sub := s.mb.Subscribe(id)
	defer sub.Close()

	s.clientsMu.Lock()
	s.clients[id] = ClientInfo{ID: id, Info: in.Info, Connected: time.Now()}
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, id)
		s.clientsMu.Unlock()
	}()

	log.Printf("[Feed] Stream %s opened for %q", id, in.Info)

	for {
		loc, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, mailbox.ErrClosed) || s.base.Err() != nil {
				log.Printf("[Feed] Stream %s closed by server shutdown", id)
				return nil
			}
			log.Printf("[Feed] Stream %s ended: %v", id, err)
			return err
		}

		if err := stream.Send(toWire(loc)); err != nil {
			log.Printf("[Feed] Stream %s send failed: %v", id, err)
			return err
		}
		s.sent.Add(1)
		s.clientsMu.Lock()
		if c, ok := s.clients[id]; ok {
			c.Sent++
			s.clients[id] = c
		}
		s.clientsMu.Unlock()
	}
}

// shutdown ends every in-flight stream. Streams opened afterwards end
// immediately.
func (s *Server) shutdown() {
	s.cancelBase()
}

// Clients returns the active streams.
func (s *Server) Clients() []ClientInfo {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	out := make([]ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out
}

func toWire(l mailbox.Location) pb.Location {
	return pb.Location{
		X:         int32(l.X),
		Y:         int32(l.Y),
		Width:     int32(l.Width),
		Height:    int32(l.Height),
		MiddleInc: int32(l.MiddleInc),
	}
}

func fromWire(l pb.Location) mailbox.Location {
	return mailbox.Location{
		X:         int(l.X),
		Y:         int(l.Y),
		Width:     int(l.Width),
		Height:    int(l.Height),
		MiddleInc: int(l.MiddleInc),
	}
}
