// Package gateway exposes the tool broker over HTTP and WebSocket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"toolbroker/internal/broker"
	"toolbroker/internal/domain"
	"toolbroker/internal/wire"
)

// ErrInvalidPort is returned when gateway port is not in 0..65535.
var ErrInvalidPort = errors.New("gateway port must be 0-65535")

// maxBodyBytes caps the size of a POST /v1/invoke body.
const maxBodyBytes = 1 << 20

// ErrAmbiguousBody is returned when an invoke body sets more than one call form.
var ErrAmbiguousBody = errors.New("set only one of requests, toolCalls or message")

// InvokeRequest is the body of POST /v1/invoke. Calls arrive in one of three
// forms: broker requests, an OpenAI tool_calls array, or an Anthropic
// assistant message carrying tool_use blocks.
type InvokeRequest struct {
	Requests  []domain.ToolCallRequest `json:"requests,omitempty"`
	ToolCalls []wire.OpenAIToolCall    `json:"toolCalls,omitempty"`
	Message   *domain.Message          `json:"message,omitempty"`
	Context   map[string]any           `json:"context,omitempty"`
}

// InvokeResponse is the body answering POST /v1/invoke. ToolMessages is set
// for the toolCalls form and Message for the message form.
type InvokeResponse struct {
	Results      []domain.ToolCallResult  `json:"results"`
	ToolMessages []wire.OpenAIToolMessage `json:"toolMessages,omitempty"`
	Message      *domain.Message          `json:"message,omitempty"`
}

// calls converts the request to broker requests.
func (in InvokeRequest) calls() ([]domain.ToolCallRequest, error) {
	forms := 0
	for _, set := range []bool{in.Requests != nil, in.ToolCalls != nil, in.Message != nil} {
		if set {
			forms++
		}
	}
	if forms > 1 {
		return nil, ErrAmbiguousBody
	}
	switch {
	case in.ToolCalls != nil:
		return wire.FromOpenAIToolCalls(in.ToolCalls), nil
	case in.Message != nil:
		return wire.FromToolUseBlocks(*in.Message)
	default:
		return in.Requests, nil
	}
}

// Option is a functional option for configuring Server.
type Option func(*Server)

// WithLogger sets a structured logger. If l is nil it is ignored and the
// default slog logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server serves tool definitions and batch invocations, optionally behind
// Bearer token auth.
type Server struct {
	cfg         *domain.GatewayConfig
	invoker     *broker.Invoker
	logger      *slog.Logger
	server      *http.Server
	addr        string
	addrMu      sync.RWMutex
	listenErr   error
	listenErrMu sync.Mutex
	listener    net.Listener
	authToken   atomic.Pointer[string]
}

// NewServer builds a gateway server from config. Port 0 means pick a random port.
// Returns ErrInvalidPort if port is not in 0..65535. Panics if inv is nil.
func NewServer(cfg *domain.GatewayConfig, inv *broker.Invoker, opts ...Option) (*Server, error) {
	if inv == nil {
		panic("gateway: invoker must not be nil")
	}
	if cfg == nil {
		cfg = &domain.GatewayConfig{Port: 8080}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, ErrInvalidPort
	}
	s := &Server{cfg: cfg, invoker: inv}
	s.SetAuthToken(cfg.AuthToken)
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/v1/tools", s.handleTools)
	mux.HandleFunc("/v1/invoke", s.handleInvoke)
	mux.HandleFunc("/ws", s.HandleWS)
	s.server = &http.Server{
		Handler:           BearerAuthFunc(s.AuthToken, "/healthz")(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// SetAuthToken replaces the bearer token required by the server. An empty
// token disables auth. Safe to call while serving.
func (s *Server) SetAuthToken(token string) {
	s.authToken.Store(&token)
}

// AuthToken returns the bearer token currently required.
func (s *Server) AuthToken() string {
	if p := s.authToken.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Addr returns the bound address (e.g. "127.0.0.1:8080") after Run has started. Empty before Run.
func (s *Server) Addr() string {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// ListenErr returns the error from the initial Listen in Run(), if any.
func (s *Server) ListenErr() error {
	s.listenErrMu.Lock()
	defer s.listenErrMu.Unlock()
	return s.listenErr
}

// Handler returns the HTTP handler used by the server. For testing without binding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, wire.OpenAITools(s.invoker.Definitions()))
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in InvokeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	reqs, err := in.calls()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	results := s.invoker.InvokeAll(r.Context(), reqs, domain.NewToolContext(in.Context))
	resp := InvokeResponse{Results: results}
	switch {
	case in.ToolCalls != nil:
		resp.ToolMessages = wire.ToOpenAIToolMessages(results)
	case in.Message != nil:
		msg, err := wire.ToToolResultMessage(results)
		if err != nil {
			http.Error(w, "encode tool results", http.StatusInternalServerError)
			return
		}
		resp.Message = &msg
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsonMarshal(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// netListen is the function used to listen; tests may replace it to force Listen errors.
var netListen = func(network, address string) (net.Listener, error) {
	return net.Listen(network, address)
}

// Run listens on the configured port and serves until shutdown is closed. Returns nil when shutdown.
func (s *Server) Run(shutdown <-chan struct{}) error {
	addr := ":" + strconv.Itoa(s.cfg.Port)
	ln, err := netListen("tcp", addr)
	if err != nil {
		s.listenErrMu.Lock()
		s.listenErr = err
		s.listenErrMu.Unlock()
		return err
	}
	s.addrMu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.addrMu.Unlock()
	s.log().Info("gateway listening", "addr", s.Addr(), "auth", s.AuthToken() != "")

	done := make(chan error, 1)
	go func() {
		done <- s.server.Serve(ln)
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = serverShutdown(s.server, ctx)
	if err != nil {
		return err
	}
	<-done
	s.log().Info("gateway stopped")
	return nil
}

// serverShutdown is the function used to shut down the server; tests may replace it.
var serverShutdown = func(srv *http.Server, ctx context.Context) error {
	return srv.Shutdown(ctx)
}
