package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// Queries is the session surface the control server exposes. Implementations
// must be safe for concurrent use; each connection is served on its own
// goroutine.
type Queries interface {
	ControlStats() (StatsResult, error)
	ControlNext(count int, record bool) (NextResult, error)
	ControlCorpus() (CorpusResult, error)
}

// Server listens on a Unix socket and answers requests against a session
// while another process holds its database open.
type Server struct {
	queries  Queries
	listener net.Listener
	sockPath string
	started  time.Time
	logger   *slog.Logger

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a control server answering from queries.
func NewServer(queries Queries, sockPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		queries:    queries,
		sockPath:   sockPath,
		logger:     logger.With(slog.String("component", "socket")),
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. A socket file nobody answers on
// is stale and gets removed before binding.
func (s *Server) Start() error {
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("control socket already served at %s", s.sockPath)
		}
		s.logger.Debug("removing stale socket", slog.String("path", s.sockPath))
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener, waits for open connections and removes the
// socket file. Idempotent.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh is closed when a client sends a shutdown request.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB max message

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	s.logger.Debug("request", slog.String("method", req.Method))
	switch req.Method {
	case MethodHealth:
		return s.handleHealth(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	case MethodStats:
		return s.handleStats(req)
	case MethodNext:
		return s.handleNext(req)
	case MethodCorpus:
		return s.handleCorpus(req)
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

func (s *Server) handleHealth(req Request) Response {
	st, err := s.queries.ControlStats()
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{
		ID: req.ID,
		Result: HealthResult{
			Status:    "ok",
			SessionID: st.SessionID,
			Corpus:    st.Corpus,
			Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		},
	}
}

func (s *Server) handleStats(req Request) Response {
	st, err := s.queries.ControlStats()
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: st}
}

func (s *Server) handleNext(req Request) Response {
	// Re-marshal params to decode into NextParams
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return Response{ID: req.ID, Error: "invalid next params"}
	}
	var params NextParams
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid next params"}
	}

	if params.Count > MaxNextCount {
		return Response{ID: req.ID, Error: fmt.Sprintf("count %d exceeds limit %d", params.Count, MaxNextCount)}
	}

	result, err := s.queries.ControlNext(params.Count, params.Record)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleCorpus(req Request) Response {
	result, err := s.queries.ControlCorpus()
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("marshal response", slog.Any("error", err))
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
