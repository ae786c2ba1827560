package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/wayfinder/pkg/inference/normalize"
	"github.com/go-go-golems/wayfinder/pkg/inference/planner"
	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/inference/toolloop"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/go-go-golems/wayfinder/pkg/providers/weather"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

// newToolServer serves the weather tools backed by a fake Open-Meteo that
// answers with the given statuses in order, then 200.
func newToolServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			return
		}
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":15.0,"weathercode":3}}`))
	}))
	t.Cleanup(upstream.Close)

	reg := tools.NewInMemoryRegistry()
	require.NoError(t, weather.Register(reg, weather.NewClient(weather.WithBaseURL(upstream.URL))))

	srv := httptest.NewServer(NewServer(reg, WithInvoker(retry.NewInvoker(retry.WithSleeper(noSleep)))).Handler())
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestListTools(t *testing.T) {
	srv, _ := newToolServer(t)
	descs, err := NewClient(srv.URL).ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, descs, 2)

	byName := map[string]ToolDescriptor{}
	for _, d := range descs {
		byName[d.Name] = d
	}
	require.True(t, byName["get_weather"].Network)

	spec, err := SpecFromDescriptor(byName["get_weather"])
	require.NoError(t, err)
	require.Equal(t, []string{"lat", "lon"}, spec.ArgNames())
	require.Equal(t, tools.ArgNumber, spec.Args[0].Type)
	require.True(t, spec.Network)

	spec, err = SpecFromDescriptor(byName["convert_c_to_f"])
	require.NoError(t, err)
	require.Equal(t, weather.ConvertCToFSpec.Description, spec.Description)
	require.True(t, spec.Network)
}

func TestCallTool_EnvelopeNormalizes(t *testing.T) {
	srv, _ := newToolServer(t)
	c := NewClient(srv.URL + "/rpc")

	res, err := c.CallTool(context.Background(), "convert_c_to_f", map[string]any{"c": 20})
	require.NoError(t, err)
	require.Equal(t, 68.0, res.StructuredContent())
	require.Equal(t, "68", res.Text())
	require.Equal(t, 68.0, normalize.Normalize(res))

	res, err = c.CallTool(context.Background(), "get_weather", map[string]any{"lat": 51.5, "lon": -0.12})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"temperature": 15.0, "code": 3.0, "conditions": "Overcast"}, normalize.Normalize(res))
}

func TestCallTool_ServerRetriesUpstream(t *testing.T) {
	srv, hits := newToolServer(t, http.StatusServiceUnavailable, http.StatusTooManyRequests)
	_, err := NewClient(srv.URL).CallTool(context.Background(), "get_weather", map[string]any{"lat": 1, "lon": 2})
	require.NoError(t, err)
	require.Equal(t, int32(3), hits.Load())
}

func TestCallTool_Errors(t *testing.T) {
	srv, _ := newToolServer(t, http.StatusNotFound)
	c := NewClient(srv.URL)
	ctx := context.Background()

	_, err := c.CallTool(ctx, "teleport", nil)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, CodeMethodNotFound, rpcErr.Code)

	_, err = c.CallTool(ctx, "convert_c_to_f", map[string]any{})
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, CodeInvalidParams, rpcErr.Code)
	require.Contains(t, rpcErr.Message, "c")

	_, err = c.CallTool(ctx, "get_weather", map[string]any{"lat": 1, "lon": 2})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	require.Equal(t, "get_weather", toolErr.Tool)
	require.Contains(t, toolErr.Message, "404")
	require.Equal(t, retry.Fatal, retry.DefaultClassifier(err))
}

func TestServer_ProtocolErrors(t *testing.T) {
	srv, _ := newToolServer(t)

	post := func(body string) Response {
		resp, err := http.Post(srv.URL+RPCPath, "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var r Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
		return r
	}

	require.Equal(t, CodeParseError, post(`{nope`).Error.Code)
	require.Equal(t, CodeInvalidRequest, post(`{"jsonrpc":"1.0","method":"tools/list"}`).Error.Code)

	r := post(`{"jsonrpc":"2.0","id":7,"method":"tools/unknown"}`)
	require.Equal(t, CodeMethodNotFound, r.Error.Code)
	require.JSONEq(t, `7`, string(r.ID))

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_AllowedTools(t *testing.T) {
	reg := tools.NewInMemoryRegistry()
	require.NoError(t, weather.Register(reg, weather.NewClient()))
	srv := httptest.NewServer(NewServer(reg, WithToolConfig(tools.DefaultToolConfig().WithAllowedTools([]string{"convert_c_to_f"}))).Handler())
	defer srv.Close()

	c := NewClient(srv.URL)
	descs, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, descs, 1)
	require.Equal(t, "convert_c_to_f", descs[0].Name)

	_, err = c.CallTool(context.Background(), "get_weather", map[string]any{"lat": 1, "lon": 2})
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, CodeMethodNotFound, rpcErr.Code)
}

func TestSpecFromDescriptor_Invalid(t *testing.T) {
	_, err := SpecFromDescriptor(ToolDescriptor{Name: "x", InputSchema: json.RawMessage(`{"properties":{},"required":["a"]}`)})
	require.Error(t, err)
	_, err = SpecFromDescriptor(ToolDescriptor{Name: "x", InputSchema: json.RawMessage(`{"properties":{"a":{"type":"object"}},"required":["a"]}`)})
	require.Error(t, err)

	spec, err := SpecFromDescriptor(ToolDescriptor{Name: "x"})
	require.NoError(t, err)
	require.Empty(t, spec.Args)
}

func TestLoop_WithRemoteTools(t *testing.T) {
	srv, _ := newToolServer(t)
	reg := tools.NewInMemoryRegistry()
	specs, err := RegisterRemoteTools(context.Background(), reg, NewClient(srv.URL))
	require.NoError(t, err)
	require.Len(t, specs, 2)

	loop := toolloop.New(
		toolloop.WithPlanner(planner.NewScriptedText(
			"Thought: weather first\nAction: get_weather\nArgs: {\"lat\": 51.5, \"lon\": -0.12}",
			"Thought: now convert\nAction: convert_c_to_f\nArgs: {\"c\": 15.0}",
			"Final: Overcast (59.0 °F)",
		)),
		toolloop.WithRegistry(reg),
		toolloop.WithInvoker(retry.NewInvoker(retry.WithSleeper(noSleep))),
	)
	ep, err := loop.Run(context.Background(), "weather in London?")
	require.NoError(t, err)
	require.Equal(t, toolloop.StatusCompleted, ep.Status)

	obs, ok := ep.LastObservation("convert_c_to_f")
	require.True(t, ok)
	require.Equal(t, 59.0, obs.Value)
	obs, ok = ep.LastObservation("get_weather")
	require.True(t, ok)
	require.Equal(t, "Overcast", obs.Value.(map[string]any)["conditions"])
}
