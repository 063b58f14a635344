package feed

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"

	"github.com/banshee-data/colortrack/internal/feed/pb"
	"github.com/banshee-data/colortrack/internal/mailbox"
)

// ErrAlreadyRunning is returned by Start on a running or stopped Service.
var ErrAlreadyRunning = errors.New("feed service already started")

// Config holds configuration for the feed gRPC server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "[::]:50051")
	ListenAddr string

	// MaxClients is the maximum number of concurrent location streams
	MaxClients int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "[::]:50051",
		MaxClients: 16,
	}
}

// Service owns the gRPC server and listener for a Server.
type Service struct {
	config   Config
	server   *Server
	grpc     *grpc.Server
	listener net.Listener

	started atomic.Bool
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewService creates a Service streaming from mb.
func NewService(cfg Config, mb *mailbox.Mailbox) *Service {
	return &Service{
		config: cfg,
		server: NewServer(mb, cfg.MaxClients),
	}
}

// Start binds the listener and serves in the background. A bind failure is
// returned to the caller.
func (s *Service) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	log.Printf("[Feed] Attempting to bind to %s...", s.config.ListenAddr)
	lis, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = lis

	s.grpc = grpc.NewServer()
	pb.RegisterLocationServer(s.grpc, s.server)
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("[Feed] gRPC server listening on %s", lis.Addr())
		if err := s.grpc.Serve(lis); err != nil && s.running.Load() {
			log.Printf("[Feed] gRPC server error: %v", err)
		}
	}()

	return nil
}

// Stop ends all streams, stops the gRPC server and unbinds the listener.
// It is safe to call more than once.
func (s *Service) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.server.shutdown()
	s.grpc.GracefulStop()
	s.listener.Close()

	s.wg.Wait()
	log.Printf("[Feed] gRPC server stopped")
}

// Addr returns the bound address, or nil before Start.
func (s *Service) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stats is a point-in-time view of the feed.
type Stats struct {
	Running       bool         `json:"running"`
	Address       string       `json:"address"`
	ActiveStreams int          `json:"active_streams"`
	TotalStreams  uint64       `json:"total_streams"`
	Registrations uint64       `json:"registrations"`
	Sent          uint64       `json:"sent"`
	Clients       []ClientInfo `json:"clients"`
}

func (s *Service) Stats() Stats {
	st := Stats{
		Running:       s.running.Load(),
		ActiveStreams: int(s.server.active.Load()),
		TotalStreams:  s.server.totalStreams.Load(),
		Registrations: s.server.registrations.Load(),
		Sent:          s.server.sent.Load(),
		Clients:       s.server.Clients(),
	}
	if addr := s.Addr(); addr != nil {
		st.Address = addr.String()
	}
	sort.Slice(st.Clients, func(i, j int) bool {
		return st.Clients[i].Connected.Before(st.Clients[j].Connected)
	})
	return st
}
