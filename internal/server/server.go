// Package server implements the request-framing layer: a single-shot
// JSON request/response over a connected stream socket, dispatched to
// the memory index engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/nocturnewell/mnemo/internal/embedding"
	"github.com/nocturnewell/mnemo/internal/engine"
	"github.com/nocturnewell/mnemo/internal/protocol"
)

// maxRequestBytes bounds a single request: read up to 64 KiB,
// terminated early by client half-close.
const maxRequestBytes = 64 * 1024

// defaultTopK is used when /search omits top_k.
const defaultTopK = 5

// defaultMaxInFlight bounds concurrent connection handlers independent
// of the listener's own accept backlog.
const defaultMaxInFlight = 256

// Server owns a listener, the engine it fronts, and the embedder used to
// vectorize content/query fields before calling the engine.
type Server struct {
	ln       net.Listener
	engine   *engine.Engine
	embedder embedding.Embedder
	sem      *semaphore.Weighted

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New wraps an already-open listener. maxInFlight bounds concurrent
// connection handlers; 0 selects defaultMaxInFlight.
func New(ln net.Listener, eng *engine.Engine, embedder embedding.Embedder, maxInFlight int64) *Server {
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxInFlight
	}
	return &Server{
		ln:       ln,
		engine:   eng,
		embedder: embedder,
		sem:      semaphore.NewWeighted(maxInFlight),
	}
}

// Serve accepts connections until the listener is closed or ctx is
// canceled, handling each on its own goroutine bounded by the in-flight
// semaphore. It returns once no more handlers are running.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.wg.Wait()
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		if err := s.sem.Acquire(ctx, 1); err != nil {
			conn.Close()
			s.wg.Wait()
			return nil
		}

		log.Printf("server: accepted connection from %s", conn.RemoteAddr())
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.handle(ctx, conn)
		}()
	}
}

// Close closes the listener, preventing new connections; callers should
// still call Serve's returned error/nil and then wg-drain by relying on
// Serve's own blocking behavior.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.ln.Close() })
	return err
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	raw, err := io.ReadAll(io.LimitReader(conn, maxRequestBytes+1))
	if err != nil {
		log.Printf("server: read: %v", err)
		return
	}
	if len(raw) > maxRequestBytes {
		s.writeError(conn, fmt.Errorf("server: request exceeds %d bytes", maxRequestBytes))
		return
	}

	var req protocol.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.writeError(conn, fmt.Errorf("server: decode request: %w", err))
		return
	}

	resp, err := s.dispatch(ctx, req)
	if err != nil {
		log.Printf("server: dispatch %s: %v", req.Endpoint, err)
		s.writeError(conn, err)
		return
	}
	s.write(conn, resp)
}

func (s *Server) dispatch(ctx context.Context, req protocol.Request) (any, error) {
	switch req.Endpoint {
	case protocol.EndpointAdd:
		return s.handleAdd(ctx, req.Params)
	case protocol.EndpointSearch:
		return s.handleSearch(ctx, req.Params)
	case protocol.EndpointUpdate:
		return s.handleUpdate(ctx, req.Params)
	case protocol.EndpointRemove:
		return s.handleRemove(req.Params)
	case protocol.EndpointUpdatePreference:
		return s.handleUpdatePreference(req.Params)
	case protocol.EndpointGetPreference:
		return s.handleGetPreference(req.Params)
	default:
		return nil, fmt.Errorf("server: unknown endpoint: %s", req.Endpoint)
	}
}

func (s *Server) handleAdd(ctx context.Context, raw json.RawMessage) (any, error) {
	var p protocol.AddParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("server: add: decode params: %w", err)
	}
	if p.Content == "" {
		return nil, fmt.Errorf("server: add: content must not be empty: %w", engine.ErrInvalidArgument)
	}

	vec, err := s.embedder.Embed(ctx, p.Content)
	if err != nil {
		return nil, fmt.Errorf("server: add: embed: %w", err)
	}

	id, err := s.engine.Add(engine.Memory{ID: p.ID, Content: p.Content, Category: p.Category, Embedding: vec})
	if err != nil {
		return nil, err
	}
	return protocol.AddResponse{Success: true, ID: id}, nil
}

func (s *Server) handleSearch(ctx context.Context, raw json.RawMessage) (any, error) {
	var p protocol.SearchParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("server: search: decode params: %w", err)
	}
	if p.Query == "" {
		return nil, fmt.Errorf("server: search: query must not be empty: %w", engine.ErrInvalidArgument)
	}
	topK := p.TopK
	if topK == 0 {
		topK = defaultTopK
	}

	vec, err := s.embedder.Embed(ctx, p.Query)
	if err != nil {
		return nil, fmt.Errorf("server: search: embed: %w", err)
	}

	results, err := s.engine.Search(vec, topK)
	if err != nil {
		return nil, err
	}
	return protocol.SearchResponse{Success: true, Results: results}, nil
}

func (s *Server) handleUpdate(ctx context.Context, raw json.RawMessage) (any, error) {
	var p protocol.UpdateParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("server: update: decode params: %w", err)
	}
	if p.ID == "" || p.Content == "" {
		return nil, fmt.Errorf("server: update: id and content must not be empty: %w", engine.ErrInvalidArgument)
	}

	vec, err := s.embedder.Embed(ctx, p.Content)
	if err != nil {
		return nil, fmt.Errorf("server: update: embed: %w", err)
	}

	if err := s.engine.Update(p.ID, p.Content, vec); err != nil {
		return nil, err
	}
	return protocol.OKResponse{Success: true}, nil
}

func (s *Server) handleRemove(raw json.RawMessage) (any, error) {
	var p protocol.RemoveParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("server: remove: decode params: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("server: remove: id must not be empty: %w", engine.ErrInvalidArgument)
	}
	if err := s.engine.Remove(p.ID); err != nil {
		return nil, err
	}
	return protocol.OKResponse{Success: true}, nil
}

func (s *Server) handleUpdatePreference(raw json.RawMessage) (any, error) {
	var p protocol.UpdatePreferenceParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("server: update_preference: decode params: %w", err)
	}
	if p.Key == "" {
		return nil, fmt.Errorf("server: update_preference: key must not be empty: %w", engine.ErrInvalidArgument)
	}
	if err := s.engine.PutPreference(p.Key, p.Value); err != nil {
		return nil, err
	}
	return protocol.OKResponse{Success: true}, nil
}

func (s *Server) handleGetPreference(raw json.RawMessage) (any, error) {
	var p protocol.GetPreferenceParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("server: get_preference: decode params: %w", err)
	}
	if p.Key == "" {
		return nil, fmt.Errorf("server: get_preference: key must not be empty: %w", engine.ErrInvalidArgument)
	}
	value, err := s.engine.GetPreference(p.Key)
	if err != nil {
		return nil, err
	}
	return protocol.GetPreferenceResponse{Success: true, Value: value}, nil
}

func (s *Server) write(conn net.Conn, v any) {
	if err := json.NewEncoder(conn).Encode(v); err != nil {
		log.Printf("server: write response: %v", err)
	}
}

func (s *Server) writeError(conn net.Conn, err error) {
	s.write(conn, protocol.NewErrorResponse(err))
}
