// Package toolserver exposes a tool registry over HTTP JSON-RPC and
// registers the tools of a remote server into a local registry.
package toolserver

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	JSONRPCVersion = "2.0"

	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object. It is also returned by the client.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("tool server error %d: %s", e.Code, e.Message)
}

// ToolDescriptor is one entry of a tools/list result.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Network     bool            `json:"network,omitempty"`
}

type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the envelope a tool result travels in: the structured
// value plus its text rendering.
type CallToolResult struct {
	Structured any       `json:"structuredContent,omitempty"`
	Content    []Content `json:"content"`
	IsError    bool      `json:"isError,omitempty"`
}

// StructuredContent and Text let the result normalizer unwrap the envelope.
func (r *CallToolResult) StructuredContent() any {
	return r.Structured
}

func (r *CallToolResult) Text() string {
	var parts []string
	for _, c := range r.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}
