package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ironsheep/card-scanner/internal/detection"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// connect attaches an in-memory MCP client to s.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := s.mcp.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "card-scanner-test", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cache == nil {
		t.Fatal("New() did not initialize cache")
	}
	if s.mcp == nil {
		t.Fatal("New() did not build the MCP server")
	}
	if s.detect.Threshold != detection.DefaultThreshold {
		t.Errorf("default threshold: got %d, want %d", s.detect.Threshold, detection.DefaultThreshold)
	}
	if s.detect.Logger == nil {
		t.Error("detection logger should default to the server logger")
	}
}

func TestNew_WithOptions(t *testing.T) {
	logger := discardLogger()
	opts := detection.DefaultOptions()
	opts.Threshold = 120
	opts.RequireFrameSpan = true

	s := New(WithDetectionOptions(opts), WithLogger(logger))

	if s.logger != logger {
		t.Error("WithLogger was not applied")
	}
	if s.detect.Threshold != 120 || !s.detect.RequireFrameSpan {
		t.Errorf("WithDetectionOptions was not applied: %+v", s.detect)
	}
	if s.detect.Logger != logger {
		t.Error("detection logger should follow WithLogger")
	}
}

func TestInitialize(t *testing.T) {
	cs := connect(t, New(WithLogger(discardLogger())))

	res := cs.InitializeResult()
	if res == nil || res.ServerInfo == nil {
		t.Fatal("missing initialize result")
	}
	if res.ServerInfo.Name != ServerName {
		t.Errorf("serverInfo.name: got %v", res.ServerInfo.Name)
	}
	if res.ServerInfo.Version != ServerVersion {
		t.Errorf("serverInfo.version: got %v", res.ServerInfo.Version)
	}
	if res.Capabilities == nil || res.Capabilities.Tools == nil {
		t.Error("server should advertise the tools capability")
	}

	if err := cs.Ping(context.Background(), nil); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestListTools(t *testing.T) {
	cs := connect(t, New(WithLogger(discardLogger())))

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	defs := GetToolDefinitions()
	if len(res.Tools) != len(defs) {
		t.Fatalf("expected %d tools, got %d", len(defs), len(res.Tools))
	}
	for i, tool := range res.Tools {
		if tool.Name != defs[i].Name {
			t.Errorf("tool %d: got %s, want %s", i, tool.Name, defs[i].Name)
		}
		if tool.Description != defs[i].Description {
			t.Errorf("%s: description not advertised", tool.Name)
		}

		schema, ok := tool.InputSchema.(map[string]interface{})
		if !ok {
			t.Fatalf("%s: input schema is %T", tool.Name, tool.InputSchema)
		}
		if schema["type"] != "object" {
			t.Errorf("%s: schema type %v", tool.Name, schema["type"])
		}
		props, _ := schema["properties"].(map[string]interface{})
		if _, ok := props["path"]; !ok {
			t.Errorf("%s: path property missing from advertised schema", tool.Name)
		}
	}
}

// streamSession drives Serve over a pair of pipes, one JSON-RPC message per
// line.
type streamSession struct {
	in   *io.PipeWriter
	out  *json.Decoder
	done chan error
}

// streamResponse is a response as a client reads it off the wire.
type streamResponse struct {
	ID     interface{}     `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func startStream(t *testing.T, s *Server) *streamSession {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(context.Background(), inR, outW)
		outW.Close()
	}()
	t.Cleanup(func() { inW.Close() })

	return &streamSession{in: inW, out: json.NewDecoder(outR), done: done}
}

func (ss *streamSession) send(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(ss.in, line+"\n"); err != nil {
		t.Fatalf("failed to write request: %v", err)
	}
}

func (ss *streamSession) next(t *testing.T) streamResponse {
	t.Helper()
	var resp streamResponse
	if err := ss.out.Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// wait closes the input and returns the session's result.
func (ss *streamSession) wait(t *testing.T) error {
	t.Helper()
	ss.in.Close()
	select {
	case err := <-ss.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func (ss *streamSession) initialize(t *testing.T) {
	t.Helper()
	ss.send(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"card-scanner-test","version":"v0.0.1"}}}`)
	if resp := ss.next(t); resp.Error != nil || resp.ID != float64(1) {
		t.Fatalf("initialize: unexpected response %+v", resp)
	}
	ss.send(t, `{"jsonrpc":"2.0","method":"notifications/initialized","params":{}}`)
}

func TestServe(t *testing.T) {
	ss := startStream(t, New(WithLogger(discardLogger())))
	ss.initialize(t)

	// Unknown notifications are dropped without a response.
	ss.send(t, `{"jsonrpc":"2.0","method":"notifications/bogus","params":{}}`)
	ss.send(t, `{"jsonrpc":"2.0","id":2,"method":"ping","params":{}}`)

	resp := ss.next(t)
	if resp.ID != float64(2) {
		t.Errorf("ping: got ID %v, want 2", resp.ID)
	}
	if resp.Error != nil {
		t.Errorf("ping: unexpected error %+v", resp.Error)
	}

	if err := ss.wait(t); err != nil {
		t.Errorf("Serve should return nil at end of input, got %v", err)
	}
}

func TestServe_DetectsCard(t *testing.T) {
	card := image.Rect(20, 30, 180, 250)
	path := createCardImageFile(t, 200, 280, card)

	ss := startStream(t, New(WithLogger(discardLogger())))
	ss.initialize(t)
	ss.send(t, fmt.Sprintf(`{"jsonrpc":"2.0","id":"detect-1","method":"tools/call","params":{"name":"card_detect_edge","arguments":{"path":%q}}}`, path))

	resp := ss.next(t)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if resp.ID != "detect-1" {
		t.Fatalf("unexpected ID %v", resp.ID)
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.IsError || len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("unexpected result: %s", resp.Result)
	}

	var edge CardEdgeResult
	if err := json.Unmarshal([]byte(result.Content[0].Text), &edge); err != nil {
		t.Fatalf("failed to decode edge result: %v", err)
	}
	want := Rect{X1: 20, Y1: 30, X2: 180, Y2: 250}
	if edge.Bounds != want {
		t.Errorf("bounds: got %+v, want %+v", edge.Bounds, want)
	}

	if err := ss.wait(t); err != nil {
		t.Errorf("Serve: %v", err)
	}
}

func TestServe_MalformedRequestEndsSession(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	ss := startStream(t, New(WithLogger(logger)))
	ss.send(t, `{"jsonrpc":`+"\n"+`not json`)

	select {
	case err := <-ss.done:
		if err == nil {
			t.Error("Serve should report a malformed request")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop on a malformed request")
	}
	if !strings.Contains(logs.String(), "server session ended with error") {
		t.Errorf("expected the session error to be logged, got %q", logs.String())
	}
}
