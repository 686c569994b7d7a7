package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/056xyz/StableCoin/native/oracle"
	"github.com/056xyz/StableCoin/native/vault"
	"github.com/056xyz/StableCoin/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server exposes the vault engine over JSON-RPC 2.0.
type Server struct {
	engine       *vault.Engine
	feeds        *oracle.Manual
	authToken    string
	limiter      *clientLimiters
	metrics      *observability.RPCMetrics
	vaultMetrics *observability.EngineMetrics
}

// NewServer builds a server around the engine. The bearer token guarding
// mutating methods is read from STABLE_RPC_TOKEN.
func NewServer(engine *vault.Engine) *Server {
	return &Server{
		engine:       engine,
		authToken:    strings.TrimSpace(os.Getenv("STABLE_RPC_TOKEN")),
		limiter:      newClientLimiters(rate.Limit(50), 100),
		metrics:      observability.RPC(),
		vaultMetrics: observability.Engine(),
	}
}

// clientLimiters holds one token bucket per caller so a noisy client cannot
// exhaust the budget for everyone else. Callers are keyed by remote host.
type clientLimiters struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	clients map[string]*rate.Limiter
}

const maxTrackedClients = 10_000

func newClientLimiters(r rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{rate: r, burst: burst, clients: make(map[string]*rate.Limiter)}
}

func (c *clientLimiters) allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.clients[key]
	if !ok {
		if len(c.clients) >= maxTrackedClients {
			c.clients = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(c.rate, c.burst)
		c.clients[key] = lim
	}
	return lim.Allow()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetAuthToken overrides the bearer token required for mutating methods.
func (s *Server) SetAuthToken(token string) {
	s.authToken = strings.TrimSpace(token)
}

// SetManualFeeds enables the stable_setPrice method against the given manual
// price source.
func (s *Server) SetManualFeeds(feeds *oracle.Manual) {
	s.feeds = feeds
}

// Router assembles the HTTP surface: the JSON-RPC endpoint plus health and
// metrics probes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodPost, "/", otelhttp.NewHandler(http.HandlerFunc(s.handle), "rpc"))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle decodes the envelope and routes to the per-method handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	status := http.StatusOK
	method := ""
	defer func() {
		s.metrics.Observe(method, status, time.Since(started))
	}()

	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	if !s.limiter.allow(clientKey(r)) {
		status = http.StatusTooManyRequests
		s.metrics.RecordThrottle("rate_limit")
		writeError(w, status, nil, codeRateLimited, "too many requests", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status = http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		status = http.StatusBadRequest
		writeError(w, status, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		status = http.StatusBadRequest
		writeError(w, status, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		status = http.StatusBadRequest
		writeError(w, status, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		status = http.StatusBadRequest
		writeError(w, status, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	method = req.Method

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	switch req.Method {
	case "stable_deposit":
		s.withAuth(sw, r, req, s.handleDeposit)
	case "stable_mint":
		s.withAuth(sw, r, req, s.handleMint)
	case "stable_redeem":
		s.withAuth(sw, r, req, s.handleRedeem)
	case "stable_burn":
		s.withAuth(sw, r, req, s.handleBurn)
	case "stable_depositAndMint":
		s.withAuth(sw, r, req, s.handleDepositAndMint)
	case "stable_burnAndRedeem":
		s.withAuth(sw, r, req, s.handleBurnAndRedeem)
	case "stable_liquidate":
		s.withAuth(sw, r, req, s.handleLiquidate)
	case "stable_setPrice":
		s.withAuth(sw, r, req, s.handleSetPrice)
	case "stable_getAccount":
		s.handleGetAccount(sw, req)
	case "stable_getHealthFactor":
		s.handleGetHealthFactor(sw, req)
	case "stable_getCollateralTokens":
		s.handleGetCollateralTokens(sw, req)
	case "stable_getCollateralBalance":
		s.handleGetCollateralBalance(sw, req)
	case "stable_getUsdValue":
		s.handleGetUsdValue(sw, req)
	case "stable_getTokenAmountFromUsd":
		s.handleGetTokenAmountFromUsd(sw, req)
	case "stable_getParameters":
		s.handleGetParameters(sw, req)
	default:
		writeError(sw, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
	}
	status = sw.status
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

type handlerFunc func(w http.ResponseWriter, req *RPCRequest)

func (s *Server) withAuth(w http.ResponseWriter, r *http.Request, req *RPCRequest, next handlerFunc) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	next(w, req)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}
