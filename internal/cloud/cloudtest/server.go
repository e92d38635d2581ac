package cloudtest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// DefaultToken is the bearer token issued and expected by Server.
const DefaultToken = "ya29.test-access-token"

// File is one object stored by the fake Drive.
type File struct {
	ID       string
	Name     string
	Parent   string
	MimeType string
	Content  []byte
	Modified time.Time
	Trashed  bool
}

// Endpoint selects a fake endpoint for FailOn.
type Endpoint int

const (
	EndpointToken Endpoint = iota
	EndpointList
	EndpointUpload
	EndpointDownload
)

type failure struct {
	status int
	body   string
}

// Server fakes the OAuth token endpoint and the subset of the Drive v3 files
// API used by the backup repository.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	failures   map[Endpoint]failure
	files      map[string]*File
	seq        int
	clock      time.Time
	calls      []string
	assertions []string
}

var (
	parentRe = regexp.MustCompile(`'([^']+)' in parents`)
	prefixRe = regexp.MustCompile(`name contains '([^']+)'`)
)

// NewServer starts a fake server that is closed with the test.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		failures: make(map[Endpoint]failure),
		files:    make(map[string]*File),
		clock:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("GET /drive/v3/files", s.authorized(s.handleList))
	mux.HandleFunc("GET /drive/v3/files/{id}", s.authorized(s.handleDownload))
	mux.HandleFunc("POST /upload/drive/v3/files", s.authorized(s.handleCreate))
	mux.HandleFunc("PATCH /upload/drive/v3/files/{id}", s.authorized(s.handleReplace))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// TokenURL is the token endpoint to put into service-account keys.
func (s *Server) TokenURL() string {
	return s.URL + "/token"
}

// AddFile seeds a file and returns its id.
func (s *Server) AddFile(name, parent string, content []byte, modified time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := fmt.Sprintf("file-%d", s.seq)
	s.files[id] = &File{ID: id, Name: name, Parent: parent, MimeType: "application/json", Content: content, Modified: modified}
	return id
}

// Trash marks a file as trashed.
func (s *Server) Trash(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[id]; ok {
		f.Trashed = true
	}
}

// Files returns copies of the non-trashed files in parent, in id order.
func (s *Server) Files(parent string) []File {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []File
	for _, f := range s.files {
		if f.Parent == parent && !f.Trashed {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Calls returns "METHOD /path" for every request received so far.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Assertions returns every assertion presented to the token endpoint.
func (s *Server) Assertions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.assertions...)
}

func (s *Server) record(r *http.Request) {
	s.mu.Lock()
	s.calls = append(s.calls, r.Method+" "+r.URL.Path)
	s.mu.Unlock()
}

func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// FailOn makes ep answer with status and body until cleared with status 0.
func (s *Server) FailOn(ep Endpoint, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, ep)
		return
	}
	s.failures[ep] = failure{status: status, body: body}
}

func (s *Server) fail(w http.ResponseWriter, ep Endpoint) bool {
	s.mu.Lock()
	f, ok := s.failures[ep]
	s.mu.Unlock()
	if !ok {
		return false
	}
	http.Error(w, f.body, f.status)
	return true
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		if r.Header.Get("Authorization") != "Bearer "+DefaultToken {
			http.Error(w, `{"error":{"code":401,"message":"Request had invalid authentication credentials."}}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		http.Error(w, "unexpected content type", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("grant_type") != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
		http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.assertions = append(s.assertions, r.PostForm.Get("assertion"))
	s.mu.Unlock()

	if s.fail(w, EndpointToken) {
		return
	}

	writeJSON(w, map[string]any{
		"access_token": DefaultToken,
		"token_type":   "Bearer",
		"expires_in":   3599,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.fail(w, EndpointList) {
		return
	}

	q := r.URL.Query()
	query := q.Get("q")
	if !strings.Contains(query, "trashed=false") || !strings.Contains(query, "mimeType='application/json'") {
		http.Error(w, "unexpected query: "+query, http.StatusBadRequest)
		return
	}
	if q.Get("orderBy") != "modifiedTime desc" {
		http.Error(w, "unexpected orderBy", http.StatusBadRequest)
		return
	}

	var parent, prefix string
	if m := parentRe.FindStringSubmatch(query); m != nil {
		parent = m[1]
	}
	if m := prefixRe.FindStringSubmatch(query); m != nil {
		prefix = m[1]
	}

	s.mu.Lock()
	var matched []*File
	for _, f := range s.files {
		if f.Trashed || f.Parent != parent || f.MimeType != "application/json" || !strings.Contains(f.Name, prefix) {
			continue
		}
		matched = append(matched, f)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Modified.After(matched[j].Modified) })

	out := make([]map[string]string, 0, len(matched))
	for _, f := range matched {
		out = append(out, fileJSON(f))
	}
	s.mu.Unlock()

	writeJSON(w, map[string]any{"files": out})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("alt") != "media" {
		http.Error(w, "alt=media required", http.StatusBadRequest)
		return
	}
	if s.fail(w, EndpointDownload) {
		return
	}

	s.mu.Lock()
	f, ok := s.files[r.PathValue("id")]
	var file File
	if ok {
		file = *f
	}
	s.mu.Unlock()
	if !ok || file.Trashed {
		http.Error(w, `{"error":{"code":404,"message":"File not found"}}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", file.MimeType)
	_, _ = w.Write(file.Content)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("uploadType") != "multipart" {
		http.Error(w, "uploadType=multipart required", http.StatusBadRequest)
		return
	}
	if s.fail(w, EndpointUpload) {
		return
	}

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/related" {
		http.Error(w, "multipart/related required", http.StatusBadRequest)
		return
	}

	mr := multipart.NewReader(r.Body, params["boundary"])

	metaPart, err := mr.NextPart()
	if err != nil {
		http.Error(w, "missing metadata part", http.StatusBadRequest)
		return
	}
	var meta struct {
		Name     string   `json:"name"`
		Parents  []string `json:"parents"`
		MimeType string   `json:"mimeType"`
	}
	if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
		http.Error(w, "bad metadata: "+err.Error(), http.StatusBadRequest)
		return
	}

	mediaPart, err := mr.NextPart()
	if err != nil {
		http.Error(w, "missing media part", http.StatusBadRequest)
		return
	}
	if ct := mediaPart.Header.Get("Content-Type"); ct != "application/json" {
		http.Error(w, "unexpected media content type: "+ct, http.StatusBadRequest)
		return
	}
	content, err := io.ReadAll(mediaPart)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	parent := ""
	if len(meta.Parents) > 0 {
		parent = meta.Parents[0]
	}

	s.mu.Lock()
	s.seq++
	f := &File{
		ID:       fmt.Sprintf("file-%d", s.seq),
		Name:     meta.Name,
		Parent:   parent,
		MimeType: meta.MimeType,
		Content:  content,
		Modified: s.tick(),
	}
	s.files[f.ID] = f
	out := fileJSON(f)
	s.mu.Unlock()

	writeJSON(w, out)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("uploadType") != "media" {
		http.Error(w, "uploadType=media required", http.StatusBadRequest)
		return
	}
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "application/json required", http.StatusBadRequest)
		return
	}
	if s.fail(w, EndpointUpload) {
		return
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	f, ok := s.files[r.PathValue("id")]
	if !ok {
		s.mu.Unlock()
		http.Error(w, `{"error":{"code":404,"message":"File not found"}}`, http.StatusNotFound)
		return
	}
	f.Content = content
	f.Modified = s.tick()
	out := fileJSON(f)
	s.mu.Unlock()

	writeJSON(w, out)
}

func fileJSON(f *File) map[string]string {
	return map[string]string{
		"id":           f.ID,
		"name":         f.Name,
		"modifiedTime": f.Modified.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
