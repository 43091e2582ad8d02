package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/ironsheep/stencil-tools-mcp/internal/imaging"
	"github.com/ironsheep/stencil-tools-mcp/internal/session"
)

// ServerName is reported to clients during the initialize handshake.
const ServerName = "stencil-tools-mcp"

// Server handles MCP protocol communication
type Server struct {
	cfg   Config
	cache *imaging.ImageCache

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(cfg Config) *Server {
	return &Server{
		cfg:      cfg,
		cache:    imaging.NewImageCache(cfg.MaxDimension),
		sessions: make(map[string]*session.Session),
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	defer s.Close()
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads newline-delimited requests from r and writes responses to w
// until r is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Tool arguments may carry whole curve sets; allow long lines.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("Failed to parse request: %v", err)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				log.Printf("Failed to encode response: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// Close stops every editing session and empties the source cache.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, path)
	}
	s.cache.Clear()
}

// forget stops the editing session for path, if any, and drops the cached
// source so the next use reads the file again.
func (s *Server) forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[path]; ok {
		sess.Close()
		delete(s.sessions, path)
	}
	s.cache.Evict(path)
}

// Standard JSON-RPC error codes.
const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeToolFailed     = -32000
)

// handleRequest routes a request to its handler. Notifications get no
// response.
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return resultResponse(req.ID, struct{}{})
	}
	return s.errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), "")
}

func resultResponse(id interface{}, result interface{}) *MCPResponse {
	return &MCPResponse{JSONRPC: "2.0", ID: id, Result: result}
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      serverInfo             `json:"serverInfo"`
}

// handleInitialize answers the handshake. Only the tools capability is
// advertised.
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return resultResponse(req.ID, initializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities:    map[string]interface{}{"tools": struct{}{}},
		ServerInfo:      serverInfo{Name: ServerName, Version: s.cfg.Version},
	})
}

// session returns the editing session for path, loading the source and
// creating the session on first use.
func (s *Server) session(path string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[path]; ok {
		return sess, nil
	}

	src, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(src.Pixels, s.cfg.Settings, session.WithDebounce(s.cfg.Debounce))
	if err != nil {
		return nil, fmt.Errorf("failed to start session for %s: %w", path, err)
	}
	s.sessions[path] = sess
	return sess, nil
}
