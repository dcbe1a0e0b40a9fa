package publer

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, handler http.Handler) *Session {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewSession(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestSessionHeaders(t *testing.T) {
	var got http.Header
	r := chi.NewRouter()
	r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
		got = req.Header.Clone()
		w.Write([]byte(`{}`))
	})
	s := newTestSession(t, r)

	_, err := s.Request(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/ping"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer-API test-key", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "publer-go/"+Version, got.Get("User-Agent"))
	assert.NotEmpty(t, got.Get("X-Request-Id"))
	assert.Empty(t, got.Get("Publer-Workspace-Id"), "no workspace header when unscoped")
}

func TestSessionWorkspaceSwitch(t *testing.T) {
	var seen []string
	r := chi.NewRouter()
	r.Get("/posts", func(w http.ResponseWriter, req *http.Request) {
		seen = append(seen, req.Header.Get("Publer-Workspace-Id"))
		w.Write([]byte(`[]`))
	})
	s := newTestSession(t, r)
	ctx := context.Background()

	s.SetWorkspace("w1")
	_, err := s.Request(ctx, RequestSpec{Method: http.MethodGet, Path: "/posts"})
	require.NoError(t, err)

	s.SetWorkspace("w2")
	_, err = s.Request(ctx, RequestSpec{Method: http.MethodGet, Path: "/posts"})
	require.NoError(t, err)

	assert.Equal(t, []string{"w1", "w2"}, seen)
	assert.Equal(t, "w2", s.Workspace())
}

func TestSessionClassifiesErrors(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/posts/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors": ["post not found"]}`))
	})
	s := newTestSession(t, r)

	_, err := s.Request(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/posts/missing"})
	require.Error(t, err)

	assert.True(t, IsKind(err, ErrNotFound))
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 404, ae.Status)
	assert.Equal(t, "post not found", ae.Message)
	assert.Equal(t, []string{"post not found"}, ae.FieldErrors)
}

func TestSessionRateLimitHeaderWins(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/posts", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errors": ["rate limited"], "retry_after": 99}`))
	})
	s := newTestSession(t, r)

	_, err := s.Request(context.Background(), RequestSpec{
		Method: http.MethodPost, Path: "/posts", JSON: map[string]string{"text": "hi"},
	})
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, ErrRateLimited, ae.Kind)
	assert.Equal(t, 7, ae.RetryAfter)
}

func TestSessionEmptyBody(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/posts/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s := newTestSession(t, r)

	raw, err := s.Request(context.Background(), RequestSpec{Method: http.MethodDelete, Path: "/posts/1"})
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestSessionInvalidJSONIsTransport(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/posts", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	})
	s := newTestSession(t, r)

	_, err := s.Request(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/posts"})
	assert.True(t, IsKind(err, ErrTransport))
}

func TestSessionMultipart(t *testing.T) {
	type part struct {
		field, name, contentType, body string
	}
	var (
		parts     []part
		fields    map[string][]string
		handleErr error
	)
	r := chi.NewRouter()
	r.Post("/media", func(w http.ResponseWriter, req *http.Request) {
		mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			handleErr = fmt.Errorf("content type %q: %w", req.Header.Get("Content-Type"), err)
			http.Error(w, "bad content type", http.StatusBadRequest)
			return
		}

		mr := multipart.NewReader(req.Body, params["boundary"])
		fields = map[string][]string{}
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				handleErr = err
				http.Error(w, "bad part", http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(p)
			if err != nil {
				handleErr = err
				http.Error(w, "bad part body", http.StatusBadRequest)
				return
			}
			if p.FileName() == "" {
				fields[p.FormName()] = append(fields[p.FormName()], string(data))
				continue
			}
			parts = append(parts, part{
				field:       p.FormName(),
				name:        p.FileName(),
				contentType: p.Header.Get("Content-Type"),
				body:        string(data),
			})
		}
		w.Write([]byte(`{"id": "m1", "type": "image", "url": "https://cdn.example/m1.png"}`))
	})
	s := newTestSession(t, r)

	_, err := s.Request(context.Background(), RequestSpec{
		Method: http.MethodPost,
		Path:   "/media",
		Fields: map[string]string{"title": "Sunset"},
		Files: []FormFile{{
			Field:       "file",
			Name:        "sunset.png",
			ContentType: "image/png",
			Data:        []byte("pngbytes"),
		}},
	})
	require.NoError(t, err)
	require.NoError(t, handleErr)

	assert.Equal(t, []string{"Sunset"}, fields["title"])
	require.Len(t, parts, 1)
	assert.Equal(t, part{"file", "sunset.png", "image/png", "pngbytes"}, parts[0])
}

func TestSessionConflictingBodies(t *testing.T) {
	s := newTestSession(t, chi.NewRouter())

	_, err := s.Request(context.Background(), RequestSpec{
		Method: http.MethodPost,
		Path:   "/media",
		JSON:   map[string]string{"url": "x"},
		Files:  []FormFile{{Field: "file", Name: "a", Data: []byte("b")}},
	})
	require.ErrorIs(t, err, ErrConflictingBodies)
	assert.Equal(t, ErrorKind(""), KindOf(err), "lifecycle errors are not APIErrors")
}

func TestSessionClosed(t *testing.T) {
	s := newTestSession(t, chi.NewRouter())
	s.Close()

	_, err := s.Request(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/posts"})
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionConnectionRefused(t *testing.T) {
	s, err := NewSession(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Request(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/posts"})
	assert.True(t, IsKind(err, ErrTransport))
}
