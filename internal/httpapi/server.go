// Package httpapi serves cursors over HTTP. A client opens a cursor on a
// named key space, drives it with operation codes, and closes it.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zhangyunhao116/skipmap"

	"github.com/Giulio2002/mdbcursor"
)

const (
	contentTypeJSON          = "application/json"
	defaultPort              = 8080
	defaultReadHeaderTimeout = time.Second
	defaultShutdownTimeout   = time.Second * 5
	maxBodyBytes             = 1 << 20
)

var errNoCursor = errors.New("no such cursor")

// Options configures a Server. Zero values select defaults.
type Options struct {
	Port              int
	BatchSize         int
	ReadHeaderTimeout time.Duration
}

// handle is an open cursor. mu serialises operations on it; a cursor is
// never used by two requests at once.
type handle struct {
	mu     sync.Mutex
	space  string
	cur    *mdbcursor.Cursor
	closed bool
}

// Server exposes key spaces and the cursors opened on them.
type Server struct {
	spaces  map[string]mdbcursor.KeySpace
	handles *skipmap.FuncMap[uint64, *handle]
	nextID  atomic.Uint64
	opts    Options

	httpServer *http.Server
	URL        string
	addr       string
}

// NewServer creates a server over spaces. The map must not be modified
// afterwards.
func NewServer(spaces map[string]mdbcursor.KeySpace, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = defaultPort
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = mdbcursor.DefaultBatchSize
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	port := strconv.Itoa(opts.Port)
	return &Server{
		spaces: spaces,
		handles: skipmap.NewFunc[uint64, *handle](func(a, b uint64) bool {
			return a < b
		}),
		opts: opts,
		URL:  "http://localhost:" + port,
		addr: ":" + port,
	}
}

// Start listens in the background.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	slog.Info("HTTP server started", "addr", s.URL)
	return nil
}

// Stop shuts the listener down and closes every open cursor.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}
	s.CloseAll()
	return nil
}

// CloseAll closes every open cursor.
func (s *Server) CloseAll() {
	s.handles.Range(func(id uint64, _ *handle) bool {
		s.closeHandle(id)
		return true
	})
}

// OpenCursors returns the number of open cursors.
func (s *Server) OpenCursors() int {
	return s.handles.Len()
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/ops", s.handleOps)
	r.Get("/spaces", s.handleSpaces)
	r.Post("/spaces/{space}/cursors", s.handleOpen)
	r.Post("/cursors/{id}/get", s.handleGet)
	r.Delete("/cursors/{id}", s.handleClose)

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err)
	}
}

// writeError maps cursor errors onto statuses: NotFound is 404 and
// InvalidArgument is 400.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var e *mdbcursor.Error
	if !errors.As(err, &e) {
		s.writeJSON(w, http.StatusInternalServerError, newErrorResponse(err.Error(), 0))
		return
	}
	status := http.StatusBadRequest
	if e.Code == mdbcursor.ErrNotFound {
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, newErrorResponse(err.Error(), int(e.Code)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleOps(w http.ResponseWriter, _ *http.Request) {
	ops := mdbcursor.Ops()
	out := make([]OpInfo, 0, len(ops))
	for _, op := range ops {
		out = append(out, OpInfo{
			Code:     op.Code(),
			Name:     op.String(),
			Args:     op.Args().String(),
			Category: op.Category().String(),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSpaces(w http.ResponseWriter, _ *http.Request) {
	out := make([]SpaceInfo, 0, len(s.spaces))
	for name, ks := range s.spaces {
		out = append(out, SpaceInfo{Name: name, DupSort: ks.Flags()&mdbcursor.DupSort != 0})
	}
	slices.SortFunc(out, func(a, b SpaceInfo) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "space")
	ks, ok := s.spaces[name]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, newErrorResponse(fmt.Sprintf("no such space %q", name), 0))
		return
	}

	cur, err := mdbcursor.OpenCursor(ks)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := cur.SetBatchSize(s.opts.BatchSize); err != nil {
		cur.Close()
		s.writeError(w, err)
		return
	}

	id := s.nextID.Add(1)
	s.handles.Store(id, &handle{space: name, cur: cur})
	slog.Debug("cursor opened", "cursor", id, "space", name)
	s.writeJSON(w, http.StatusCreated, CursorResponse{Cursor: id, Space: name})
}

func (s *Server) lookup(r *http.Request) (uint64, *handle, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, nil, errNoCursor
	}
	h, ok := s.handles.Load(id)
	if !ok {
		return id, nil, errNoCursor
	}
	return id, h, nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, h, err := s.lookup(r)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, newErrorResponse(err.Error(), 0))
		return
	}

	var req GetRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse(err.Error(), int(mdbcursor.ErrInvalidArgument)))
		return
	}
	if !req.Op.Set {
		s.writeJSON(w, http.StatusBadRequest, newErrorResponse("missing op", int(mdbcursor.ErrInvalidArgument)))
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.writeJSON(w, http.StatusNotFound, newErrorResponse(errNoCursor.Error(), 0))
		return
	}
	res, err := h.cur.Apply(req.Op.Op, req.Key, req.Value)
	h.mu.Unlock()

	slog.Debug("cursor op", "cursor", id, "op", req.Op.Op, "error", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, GetResponse{Key: res.Key, Value: res.Value, Batch: res.Batch})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.lookup(r)
	if err != nil || !s.closeHandle(id) {
		s.writeJSON(w, http.StatusNotFound, newErrorResponse(errNoCursor.Error(), 0))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// closeHandle removes and closes the cursor, waiting for an operation in
// flight on it. It reports whether the handle existed.
func (s *Server) closeHandle(id uint64) bool {
	h, ok := s.handles.LoadAndDelete(id)
	if !ok {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		h.cur.Close()
		h.cur = nil
	}
	slog.Debug("cursor closed", "cursor", id, "space", h.space)
	return true
}
