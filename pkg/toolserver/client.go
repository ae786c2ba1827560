package toolserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/go-go-golems/wayfinder/pkg/providers"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ToolError is a tool failure reported by the remote server.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return "remote tool " + e.Tool + " failed: " + e.Message
}

// Client talks to a tool server.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Int64
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient accepts the server base URL, with or without the /rpc suffix.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	endpoint := strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(endpoint, RPCPath) {
		endpoint += RPCPath
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	id, _ := json.Marshal(c.nextID.Add(1))
	req := Request{JSONRPC: JSONRPCVersion, ID: id, Method: method}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return errors.Wrap(err, "failed to marshal params")
		}
		req.Params = b
	}

	var resp Response
	if err := providers.PostJSON(ctx, c.httpClient, c.endpoint, nil, req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return errors.Wrapf(err, "could not decode %s result", method)
	}
	return nil
}

func (c *Client) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	var res ListToolsResult
	if err := c.call(ctx, MethodListTools, nil, &res); err != nil {
		return nil, err
	}
	return res.Tools, nil
}

// CallTool returns the result envelope. A result flagged as an error is
// returned as *ToolError.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	var res CallToolResult
	if err := c.call(ctx, MethodCallTool, CallToolParams{Name: name, Arguments: args}, &res); err != nil {
		return nil, err
	}
	if res.IsError {
		return nil, &ToolError{Tool: name, Message: res.Text()}
	}
	return &res, nil
}

type inputSchema struct {
	Properties map[string]struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"properties"`
	Required []string `json:"required"`
}

// SpecFromDescriptor rebuilds a ToolSpec from a tools/list entry. Arguments
// follow the order of the schema's required list. Remote tools are always
// network tools.
func SpecFromDescriptor(d ToolDescriptor) (tools.ToolSpec, error) {
	spec := tools.ToolSpec{Name: d.Name, Description: d.Description, Network: true}
	if len(d.InputSchema) == 0 {
		return spec, nil
	}
	var schema inputSchema
	if err := json.Unmarshal(d.InputSchema, &schema); err != nil {
		return spec, errors.Wrapf(err, "invalid input schema for %s", d.Name)
	}
	for _, name := range schema.Required {
		p, ok := schema.Properties[name]
		if !ok {
			return spec, errors.Errorf("required argument %s of %s has no schema", name, d.Name)
		}
		t := tools.ArgType(p.Type)
		switch t {
		case tools.ArgString, tools.ArgNumber, tools.ArgInteger, tools.ArgBoolean:
		default:
			return spec, errors.Errorf("argument %s of %s has unsupported type %q", name, d.Name, p.Type)
		}
		spec.Args = append(spec.Args, tools.ArgSpec{Name: name, Type: t, Description: p.Description})
	}
	return spec, nil
}

// RegisterRemoteTools lists the server's tools and registers each of them in
// reg. The registered implementations return the raw result envelope.
func RegisterRemoteTools(ctx context.Context, reg tools.Registry, c *Client) ([]tools.ToolSpec, error) {
	descriptors, err := c.ListTools(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not list remote tools")
	}

	specs := make([]tools.ToolSpec, 0, len(descriptors))
	for _, d := range descriptors {
		spec, err := SpecFromDescriptor(d)
		if err != nil {
			return nil, err
		}
		name := spec.Name
		impl := func(ctx context.Context, args map[string]any) (any, error) {
			return c.CallTool(ctx, name, args)
		}
		if err := reg.Register(spec, impl); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
		log.Debug().Str("tool", name).Str("endpoint", c.endpoint).Msg("toolserver: registered remote tool")
	}
	return specs, nil
}
