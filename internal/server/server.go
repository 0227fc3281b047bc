package server

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/ridge/must/v2"

	"github.com/ironsheep/card-scanner/internal/detection"
	"github.com/ironsheep/card-scanner/internal/imaging"
)

// ServerName and ServerVersion are reported in the initialize handshake.
const ServerName = "card-scanner-mcp"

var ServerVersion = "0.1.0"

// Server handles MCP protocol communication
type Server struct {
	cache  *imaging.ImageCache
	detect detection.Options
	logger *slog.Logger

	mcp *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithDetectionOptions sets the defaults used by the card_* tools. Tool
// arguments such as threshold override them per call.
func WithDetectionOptions(opts detection.Options) Option {
	return func(s *Server) {
		s.detect = opts
	}
}

// WithLogger sets the logger for protocol and detection diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new MCP server instance with every card tool registered.
func New(opts ...Option) *Server {
	s := &Server{
		cache:  imaging.NewImageCache(),
		detect: detection.DefaultOptions(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.detect.Logger == nil {
		s.detect.Logger = s.logger
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:    s.logger,
		KeepAlive: time.Second * 30,
	})

	for _, t := range GetToolDefinitions() {
		s.mcp.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: must.OK1(inputSchema(t)),
		}, s.toolHandler(t.Name))
	}
	return s
}

// Run serves MCP requests from stdin, writing responses to stdout, until
// the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Serve runs a single MCP session over newline-delimited JSON read from r
// and written to w. It returns nil when r is exhausted.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	return s.mcp.Run(ctx, &mcp.IOTransport{
		Reader: io.NopCloser(r),
		Writer: nopWriteCloser{w},
	})
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
