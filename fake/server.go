package fake

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/testlabtools/tarhdr/compress"
	"github.com/testlabtools/tarhdr/tar"
)

type FakeHandlers struct {
	GetArchive http.HandlerFunc

	NotFound http.HandlerFunc
}

// FakeServer serves archives over HTTP for tests.
type FakeServer struct {
	mux    *http.ServeMux
	server *httptest.Server

	Handlers *FakeHandlers

	// Failures is the number of requests answered with a 503 before
	// archives are served.
	Failures int

	mu       sync.Mutex
	archives map[string][]byte
	requests int
}

func (s *FakeServer) Close() {
	s.server.Close()
}

// URL returns the address the archive with the given name is served at.
func (s *FakeServer) URL(name string) string {
	return s.server.URL + "/archives/" + name
}

// Requests returns the number of archive requests received so far.
func (s *FakeServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// AddRaw serves data unchanged under name.
func (s *FakeServer) AddRaw(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[name] = data
}

// AddArchive builds a tarball of files, compresses it with codec and serves
// it under name.
func (s *FakeServer) AddArchive(t *testing.T, name string, files map[string][]byte, codec compress.Codec) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := tar.Create(files, &buf); err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}

	var out bytes.Buffer
	if err := compress.Compress(&buf, &out, codec); err != nil {
		t.Fatalf("failed to compress archive: %v", err)
	}

	s.AddRaw(name, out.Bytes())

	return out.Bytes()
}

func NewServer(t *testing.T, l *slog.Logger) *FakeServer {
	t.Helper()

	assert := assert.New(t)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)

	fs := &FakeServer{
		mux:    mux,
		server: server,

		archives: make(map[string][]byte),
	}

	log := func(handler *http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			l.Info("got fake request", "method", r.Method, "url", r.URL)
			(*handler)(w, r)
		}
	}

	h := &FakeHandlers{}
	fs.Handlers = h

	h.GetArchive = func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.requests++
		fail := fs.requests <= fs.Failures
		data, ok := fs.archives[r.PathValue("name")]
		fs.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/x-tar")
		w.WriteHeader(http.StatusOK)
		_, err := w.Write(data)
		assert.NoError(err)
	}

	mux.HandleFunc("GET /archives/{name}", log(&h.GetArchive))

	h.NotFound = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	mux.HandleFunc("/", log(&h.NotFound))

	return fs
}
