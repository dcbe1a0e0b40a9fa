package publer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/publer-community/publer-go/internal/httpx"
	"github.com/publer-community/publer-go/internal/logutil"
)

var (
	// ErrSessionClosed reports use of a Session after Close. A lifecycle
	// violation, not an APIError.
	ErrSessionClosed = errors.New("publer: session is closed")

	// ErrConflictingBodies reports a RequestSpec carrying both a JSON and
	// a multipart body. A programming error, not an APIError.
	ErrConflictingBodies = errors.New("publer: request cannot carry both a JSON and a multipart body")
)

// FormFile is one file part of a multipart upload.
type FormFile struct {
	// Field is the multipart form field name.
	Field string

	// Name is the file name reported to the server.
	Name string

	// ContentType of the file. Empty defaults to application/octet-stream.
	ContentType string

	Data []byte
}

// RequestSpec describes one API request. It is constructed per call and
// not retained.
type RequestSpec struct {
	Method string

	// Path is the endpoint path relative to the base URL. A missing
	// leading slash is added.
	Path string

	// Query parameters. Repeated keys are allowed for array-style
	// parameters.
	Query url.Values

	// JSON is marshaled as the request body. Mutually exclusive with
	// Fields/Files.
	JSON any

	// Fields and Files form a multipart body.
	Fields map[string]string
	Files  []FormFile
}

func (r RequestSpec) hasMultipart() bool {
	return len(r.Fields) > 0 || len(r.Files) > 0
}

// Session owns one authenticated connection abstraction to the Publer API:
// the base URL, the credential, the workspace scope, and the underlying
// HTTP client. It is safe for concurrent use; requests issued sequentially
// by one caller observe program order.
type Session struct {
	baseURL   string
	apiKey    string
	userAgent string
	transport *httpx.Client
	log       *slog.Logger

	// workspace is replaced atomically by SetWorkspace. Requests already
	// building their headers are not retroactively updated; that race is
	// accepted and documented on SetWorkspace.
	workspace atomic.Pointer[string]
	closed    atomic.Bool
}

// NewSession creates a Session from cfg. The credential is mandatory.
func NewSession(cfg Config) (*Session, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Session{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		userAgent: "publer-go/" + Version,
		transport: httpx.New(httpx.Config{
			Timeout:          cfg.Timeout,
			ConnectTimeout:   cfg.ConnectTimeout,
			MaxResponseBytes: cfg.MaxResponseBytes,
		}),
		log: logutil.NoopIfNil(cfg.Logger),
	}
	if cfg.WorkspaceID != "" {
		s.SetWorkspace(cfg.WorkspaceID)
	}
	return s, nil
}

// SetWorkspace scopes all subsequent requests to the given workspace via
// the Publer-Workspace-Id header. The replacement is atomic; requests
// already in flight keep the scope they started with.
func (s *Session) SetWorkspace(workspaceID string) {
	s.workspace.Store(&workspaceID)
}

// Workspace returns the current workspace scope, or "" when unscoped.
func (s *Session) Workspace() string {
	if p := s.workspace.Load(); p != nil {
		return *p
	}
	return ""
}

// Request issues one HTTP request and decodes the response.
//
// A 2xx response is returned as the decoded JSON value (nil for an empty
// body); the caller unwraps endpoint-specific envelopes. Any status >= 400
// returns the classified *APIError; connection, timeout, and JSON-decode
// failures return an *APIError of kind ErrTransport.
func (s *Session) Request(ctx context.Context, spec RequestSpec) (any, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if spec.JSON != nil && spec.hasMultipart() {
		return nil, ErrConflictingBodies
	}

	req, err := s.buildRequest(ctx, spec)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.transport.Do(req)
	if err != nil {
		s.log.Debug("request failed",
			"method", spec.Method, "path", spec.Path, "error", err)
		return nil, transportError(fmt.Sprintf("%s %s", spec.Method, spec.Path), err)
	}

	body, err := s.transport.ReadBody(resp)
	if err != nil {
		return nil, transportError("reading response body", err)
	}

	s.log.Debug("request",
		"method", spec.Method,
		"path", spec.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", req.Header.Get("X-Request-Id"))

	if resp.StatusCode >= 400 {
		return nil, Classify(resp.StatusCode, resp.Header, body)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, transportError("response is not valid JSON", err)
	}
	return decoded, nil
}

func (s *Session) buildRequest(ctx context.Context, spec RequestSpec) (*http.Request, error) {
	path := spec.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	endpoint := s.baseURL + path
	if len(spec.Query) > 0 {
		endpoint += "?" + spec.Query.Encode()
	}

	var body io.Reader
	contentType := "application/json"
	switch {
	case spec.hasMultipart():
		buf, ct, err := encodeMultipart(spec.Fields, spec.Files)
		if err != nil {
			return nil, fmt.Errorf("publer: encoding multipart body: %w", err)
		}
		body, contentType = buf, ct
	case spec.JSON != nil:
		encoded, err := json.Marshal(spec.JSON)
		if err != nil {
			return nil, fmt.Errorf("publer: encoding request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("publer: building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer-API "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if ws := s.Workspace(); ws != "" {
		req.Header.Set("Publer-Workspace-Id", ws)
	}
	return req, nil
}

func encodeMultipart(fields map[string]string, files []FormFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}
	for _, f := range files {
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Close releases the underlying connection pool. Requests issued after
// Close fail with ErrSessionClosed.
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.transport.CloseIdleConnections()
	}
}
