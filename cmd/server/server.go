package main

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jmolero/ComandaDB"
	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/db"
)

// Server is a TCP line server that exposes the ComandaDB engine. Each line
// is a JSON request; plain SQL lines fall back to a query.
type Server struct {
	listener   net.Listener
	instance   *ComandaDB.Instance
	identity   core.Identity
	authConfig *AuthConfig
	engine     *db.Engine
	logger     *zap.Logger
	tlsEnabled bool
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewServer creates a server that commits under the given default identity.
func NewServer(instance *ComandaDB.Instance, identity core.Identity) *Server {
	return &Server{
		instance: instance,
		identity: identity,
		engine:   instance.Engine(identity),
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
}

// NewServerWithAuth creates a server that requires clients to authenticate
// before executing statements. Commits carry the authenticated identity.
func NewServerWithAuth(instance *ComandaDB.Instance, authConfig *AuthConfig) *Server {
	identity := core.Identity{Name: "ComandaDB Server", Email: "server@comanda.local"}
	server := NewServer(instance, identity)
	server.authConfig = authConfig
	return server
}

// SetLogger replaces the server's logger. The default is a no-op logger.
func (s *Server) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.logger.Info("server listening", zap.String("addr", listener.Addr().String()))

	go s.acceptLoop()
	return nil
}

// StartTLS begins listening with TLS using the given certificate pair.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.tlsEnabled = true

	s.logger.Info("server listening", zap.String("addr", listener.Addr().String()), zap.Bool("tls", true))

	go s.acceptLoop()
	return nil
}

// TLSEnabled reports whether the server is serving TLS connections.
func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Warn("accept error", zap.Error(err))
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.logger.Info("client connected", zap.String("remote", remote))

	state := &ConnectionState{}
	engine := s.engine
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("read error", zap.String("remote", remote), zap.Error(err))
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if lower == "quit" || lower == "exit" {
			s.logger.Info("client disconnected", zap.String("remote", remote))
			return
		}

		var response Response
		if strings.HasPrefix(strings.ToUpper(line), "AUTH ") {
			response = s.handleAuth(line, state)
			if state.IsAuthenticated() {
				engine = s.instance.Engine(*state.Identity())
			}
		} else if s.authConfig != nil && s.authConfig.Enabled && !state.IsAuthenticated() {
			response = Response{Success: false, Error: "authentication required"}
		} else {
			response = s.execute(engine, line)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			s.logger.Error("failed to encode response", zap.Error(err))
			continue
		}

		if _, err := conn.Write(data); err != nil {
			s.logger.Warn("write error", zap.String("remote", remote), zap.Error(err))
			return
		}
	}
}

// execute decodes one request line and runs it against the engine. Lines
// that are not JSON objects are treated as bare queries.
func (s *Server) execute(engine *db.Engine, line string) Response {
	req := Request{Op: "query", SQL: line}
	if strings.HasPrefix(line, "{") {
		decoded, err := DecodeRequest([]byte(line))
		if err != nil {
			return Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}
		}
		req = decoded
	}

	var result db.Result
	switch strings.ToLower(req.Op) {
	case "query", "":
		result = engine.Query(req.SQL, req.Params...)
	case "get":
		result = engine.Get(req.SQL, req.Params...)
	case "run":
		result = engine.Run(req.SQL, req.Params...)
	default:
		return Response{Success: false, Error: fmt.Sprintf("unknown op: %s", req.Op)}
	}

	response := Response{
		Success: result.Success,
		Type:    req.Op,
		Error:   result.Error,
	}
	if response.Type == "" {
		response.Type = "query"
	}
	if result.Data != nil {
		data, err := json.Marshal(result.Data)
		if err != nil {
			return Response{Success: false, Error: fmt.Sprintf("failed to encode result: %v", err)}
		}
		response.Data = data
	}
	return response
}
