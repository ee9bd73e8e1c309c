// Package testsupport provides fixtures and an in-process fake of the
// dashboard backend for contract tests.
package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// FilePart describes an uploaded multipart file.
type FilePart struct {
	FileName    string
	ContentType string
	Size        int
}

// Request is an upsert call captured by the backend.
type Request struct {
	Entity      string
	ContentType string
	Header      http.Header
	Fields      map[string][]string
	Files       map[string]FilePart
	JSON        map[string]any
}

// Multipart reports whether the request body was multipart/form-data.
func (r Request) Multipart() bool {
	return strings.HasPrefix(r.ContentType, "multipart/")
}

// Has reports whether key was present in the body.
func (r Request) Has(key string) bool {
	if _, ok := r.Fields[key]; ok {
		return true
	}
	if _, ok := r.Files[key]; ok {
		return true
	}
	_, ok := r.JSON[key]
	return ok
}

// Reply is a canned upsert response.
type Reply struct {
	Status int
	Body   any
}

// Backend is a chi-routed fake of the dashboard REST API.
type Backend struct {
	mu      sync.Mutex
	records map[string]map[string]map[string]any
	lists   map[string][]map[string]any
	upserts []Request
	gets    int
	replies []Reply
	failing map[string]int
	token   string
	release chan struct{}
	arrived chan struct{}
	server  *httptest.Server
}

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithRecord seeds a record served by GET /<entity>/getbyid/<id>.
func WithRecord(entity, id string, record map[string]any) BackendOption {
	return func(b *Backend) {
		if b.records[entity] == nil {
			b.records[entity] = make(map[string]map[string]any)
		}
		b.records[entity][id] = record
	}
}

// WithList seeds the items served by GET /<entity>/all.
func WithList(entity string, items []map[string]any) BackendOption {
	return func(b *Backend) {
		b.lists[entity] = items
	}
}

// WithFailingList makes GET /<entity>/all answer with status.
func WithFailingList(entity string, status int) BackendOption {
	return func(b *Backend) {
		b.failing[entity] = status
	}
}

// WithReplies queues upsert responses, consumed in order. Once exhausted the
// backend answers 200.
func WithReplies(replies ...Reply) BackendOption {
	return func(b *Backend) {
		b.replies = append(b.replies, replies...)
	}
}

// WithBearer rejects requests that lack the given bearer token.
func WithBearer(token string) BackendOption {
	return func(b *Backend) {
		b.token = token
	}
}

// WithHeldUpserts makes every upsert wait until Release is called.
func WithHeldUpserts() BackendOption {
	return func(b *Backend) {
		b.release = make(chan struct{})
		b.arrived = make(chan struct{}, 16)
	}
}

// NewBackend starts the fake and registers its shutdown with t.
func NewBackend(t testing.TB, opts ...BackendOption) *Backend {
	t.Helper()
	b := &Backend{
		records: make(map[string]map[string]map[string]any),
		lists:   make(map[string][]map[string]any),
		failing: make(map[string]int),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	r := chi.NewRouter()
	r.Use(b.authenticate)
	r.Get("/{entity}/getbyid/{id}", b.getByID)
	r.Get("/{entity}/all", b.list)
	r.Post("/{entity}/upsert", b.upsert)

	b.server = httptest.NewServer(r)
	t.Cleanup(func() {
		b.Release()
		b.server.Close()
	})
	return b
}

// URL returns the base URL of the fake.
func (b *Backend) URL() string {
	return b.server.URL
}

// Upserts returns the captured upsert calls.
func (b *Backend) Upserts() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.upserts...)
}

// Gets returns how many record fetches were served.
func (b *Backend) Gets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

// Arrived returns a channel that receives once per held upsert.
func (b *Backend) Arrived() <-chan struct{} {
	return b.arrived
}

// Release lets held upserts complete. Safe to call more than once.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.release == nil {
		return
	}
	select {
	case <-b.release:
	default:
		close(b.release)
	}
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.token != "" && r.Header.Get("Authorization") != "Bearer "+b.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) getByID(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	id := chi.URLParam(r, "id")

	b.mu.Lock()
	b.gets++
	record, ok := b.records[entity][id]
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"ResponseMsg": "Record not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": record})
}

func (b *Backend) list(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	b.mu.Lock()
	items := b.lists[entity]
	status, failing := b.failing[entity]
	b.mu.Unlock()
	if failing {
		writeJSON(w, status, map[string]string{"ResponseMsg": "Could not load " + entity})
		return
	}
	if items == nil {
		items = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (b *Backend) upsert(w http.ResponseWriter, r *http.Request) {
	req, err := capture(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"ResponseMsg": err.Error()})
		return
	}

	b.mu.Lock()
	b.upserts = append(b.upserts, req)
	release := b.release
	arrived := b.arrived
	var reply *Reply
	if len(b.replies) > 0 {
		next := b.replies[0]
		b.replies = b.replies[1:]
		reply = &next
	}
	b.mu.Unlock()

	if release != nil {
		arrived <- struct{}{}
		<-release
	}

	if reply != nil {
		writeJSON(w, reply.Status, reply.Body)
		return
	}

	id := req.value("id")
	if id == "" {
		id = uuid.NewString()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ResponseMsg": "Saved successfully",
		"data":        map[string]any{"id": id},
	})
}

func (r Request) value(key string) string {
	if values := r.Fields[key]; len(values) > 0 {
		return values[0]
	}
	if raw, ok := r.JSON[key]; ok && raw != nil {
		return fmt.Sprint(raw)
	}
	return ""
}

func capture(r *http.Request) (Request, error) {
	req := Request{
		Entity:      chi.URLParam(r, "entity"),
		ContentType: r.Header.Get("Content-Type"),
		Header:      r.Header.Clone(),
		Fields:      map[string][]string{},
		Files:       map[string]FilePart{},
	}
	mediaType, _, err := mime.ParseMediaType(req.ContentType)
	if err != nil {
		return req, fmt.Errorf("bad content type: %w", err)
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return req, fmt.Errorf("bad multipart body: %w", err)
		}
		for key, values := range r.MultipartForm.Value {
			req.Fields[key] = values
		}
		for key, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			header := headers[0]
			file, err := header.Open()
			if err != nil {
				return req, err
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return req, err
			}
			req.Files[key] = FilePart{
				FileName:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        len(data),
			}
		}
	case "application/json":
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req.JSON); err != nil {
			return req, fmt.Errorf("bad json body: %w", err)
		}
	default:
		return req, fmt.Errorf("unsupported content type %s", mediaType)
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
