package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jpicklyk/task-orchestrator/internal/config"
	"github.com/jpicklyk/task-orchestrator/internal/metrics"
	"github.com/jpicklyk/task-orchestrator/internal/schema"
	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/workflow"
)

// serverVersion is reported in every envelope's metadata.
const serverVersion = "1.0.0"

// workerPoolSize bounds the number of tool handlers running concurrently,
// per spec.md §5 ("a small pool of worker tasks"). Requests beyond this
// limit queue; errgroup.SetLimit blocks Go() until a slot frees.
const workerPoolSize = 8

// Server reads JSON-RPC 2.0 requests line by line from stdin and writes
// responses to stdout, dispatching each request to a tool handler through a
// bounded worker pool. Grounded on the teacher's handleConnection loop
// (internal/rpc/server.go), generalized from length-prefixed framing over a
// Unix socket to line-delimited JSON over stdio.
type Server struct {
	store    storage.Store
	handler  *workflow.Handler
	schema   *schema.Service
	cfg      *config.Config
	recorder *metrics.Recorder
	log      *slog.Logger

	writeMu sync.Mutex
}

// New builds a Server over an already-open store, schema service, config,
// and metrics recorder.
func New(store storage.Store, h *workflow.Handler, schemaSvc *schema.Service, cfg *config.Config, recorder *metrics.Recorder, log *slog.Logger) *Server {
	return &Server{store: store, handler: h, schema: schemaSvc, cfg: cfg, recorder: recorder, log: log}
}

// Run reads requests from in and writes responses to out until in reaches
// EOF or ctx is cancelled, then waits for in-flight handlers to drain
// (spec.md §5 graceful shutdown).
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerPoolSize)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}
		g.Go(func() error {
			resp := s.handleLine(gctx, line)
			s.writeResponse(out, resp)
			return nil
		})
	}

	waitErr := g.Wait()
	if err := scanner.Err(); err != nil {
		return err
	}
	return waitErr
}

func (s *Server) handleLine(ctx context.Context, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{JSONRPC: "2.0", Error: &RPCError{Code: -32700, Message: "parse error: " + err.Error()}}
	}
	if req.Method == "" {
		return Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: -32600, Message: "missing method"}}
	}

	start := time.Now()
	envelope := s.dispatch(ctx, req.Method, req.Params)
	if s.recorder != nil {
		s.recorder.RecordToolLatency(ctx, req.Method, time.Since(start))
	}

	return Response{JSONRPC: "2.0", ID: req.ID, Result: envelope}
}

func (s *Server) writeResponse(out io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response", "error", err)
		return
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := out.Write(data); err != nil {
		s.log.Error("write response", "error", err)
	}
}

func nowMetadata() Metadata {
	return Metadata{Timestamp: time.Now().UTC().Format(time.RFC3339), Version: serverVersion}
}

func ok(data any) *Envelope {
	return &Envelope{Success: true, Data: data, Metadata: nowMetadata()}
}

func okMessage(message string, data any) *Envelope {
	return &Envelope{Success: true, Message: message, Data: data, Metadata: nowMetadata()}
}

func fail(err error) *Envelope {
	return &Envelope{Success: false, Error: toToolError(err), Metadata: nowMetadata()}
}

func failCode(code ErrorCode, message string) *Envelope {
	return &Envelope{Success: false, Error: &ToolError{Code: code, Message: message}, Metadata: nowMetadata()}
}
