package toolserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// maxRequestBodySize bounds a JSON-RPC request body (1MB).
const maxRequestBodySize = 1 << 20

const RPCPath = "/rpc"

// Server serves the tools of a registry. Network tools are called through
// the server's invoker so the caller sees upstream flakiness only once the
// retries are spent.
type Server struct {
	registry tools.Registry
	invoker  *retry.Invoker
	config   tools.ToolConfig
}

type ServerOption func(*Server)

func WithInvoker(inv *retry.Invoker) ServerOption {
	return func(s *Server) { s.invoker = inv }
}

func WithToolConfig(c tools.ToolConfig) ServerOption {
	return func(s *Server) { s.config = c }
}

func NewServer(reg tools.Registry, opts ...ServerOption) *Server {
	s := &Server{
		registry: reg,
		invoker:  retry.NewInvoker(),
		config:   tools.DefaultToolConfig(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP routes: POST /rpc and GET /health.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(requestLogger)
	r.Post(RPCPath, s.handleRPC)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("toolserver: request")
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, Response{JSONRPC: JSONRPCVersion, Error: &RPCError{Code: CodeParseError, Message: err.Error()}})
		return
	}
	if req.JSONRPC != JSONRPCVersion || req.Method == "" {
		writeResponse(w, Response{JSONRPC: JSONRPCVersion, ID: req.ID, Error: &RPCError{Code: CodeInvalidRequest, Message: "invalid request"}})
		return
	}

	var (
		result any
		rpcErr *RPCError
	)
	switch req.Method {
	case MethodListTools:
		result = s.listTools()
	case MethodCallTool:
		result, rpcErr = s.callTool(r.Context(), req.Params)
	default:
		rpcErr = &RPCError{Code: CodeMethodNotFound, Message: "unknown method " + req.Method}
	}

	resp := Response{JSONRPC: JSONRPCVersion, ID: req.ID, Error: rpcErr}
	if rpcErr == nil {
		b, err := json.Marshal(result)
		if err != nil {
			resp.Error = &RPCError{Code: CodeInternalError, Message: err.Error()}
		} else {
			resp.Result = b
		}
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warn().Err(err).Msg("toolserver: could not write response")
	}
}

func (s *Server) listTools() *ListToolsResult {
	specs := s.config.FilterTools(s.registry.List())
	res := &ListToolsResult{Tools: make([]ToolDescriptor, 0, len(specs))}
	for _, spec := range specs {
		schema, err := json.Marshal(spec.Schema())
		if err != nil {
			log.Warn().Err(err).Str("tool", spec.Name).Msg("toolserver: could not render schema")
			continue
		}
		res.Tools = append(res.Tools, ToolDescriptor{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: schema,
			Network:     spec.Network,
		})
	}
	return res
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *RPCError) {
	var params CallToolParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}
	if !s.config.IsToolAllowed(params.Name) {
		return nil, &RPCError{Code: CodeMethodNotFound, Message: (&tools.UnknownToolError{Name: params.Name}).Error()}
	}
	tool, err := s.registry.Lookup(params.Name)
	if err != nil {
		return nil, &RPCError{Code: CodeMethodNotFound, Message: err.Error()}
	}
	args, err := s.registry.Validate(params.Name, params.Arguments)
	if err != nil {
		return nil, &RPCError{Code: CodeInvalidParams, Message: err.Error()}
	}

	if s.config.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ExecutionTimeout)
		defer cancel()
	}

	var out any
	if tool.Spec.Network {
		out, err = s.invoker.Invoke(ctx, func(ctx context.Context) (any, error) {
			return tool.Impl(ctx, args)
		})
	} else {
		out, err = tool.Impl(ctx, args)
	}
	if err != nil {
		log.Warn().Err(err).Str("tool", params.Name).Msg("toolserver: tool failed")
		return &CallToolResult{
			Content: []Content{{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}

	res, err := Envelope(out)
	if err != nil {
		return nil, &RPCError{Code: CodeInternalError, Message: errors.Wrap(err, "could not encode result").Error()}
	}
	return res, nil
}

// Envelope wraps a tool result with its JSON text rendering.
func Envelope(v any) (*CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &CallToolResult{
		Structured: v,
		Content:    []Content{{Type: "text", Text: string(b)}},
	}, nil
}
