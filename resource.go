package publer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"
)

// service is the base embedded by every resource group. It holds a
// non-owning reference to the Session; its lifetime is the Session's.
type service struct {
	session *Session
}

func (s *service) get(ctx context.Context, path string, query url.Values) (any, error) {
	return s.session.Request(ctx, RequestSpec{Method: http.MethodGet, Path: path, Query: query})
}

func (s *service) post(ctx context.Context, path string, body any) (any, error) {
	return s.session.Request(ctx, RequestSpec{Method: http.MethodPost, Path: path, JSON: body})
}

func (s *service) postMultipart(ctx context.Context, path string, fields map[string]string, files []FormFile) (any, error) {
	return s.session.Request(ctx, RequestSpec{Method: http.MethodPost, Path: path, Fields: fields, Files: files})
}

func (s *service) put(ctx context.Context, path string, body any) (any, error) {
	return s.session.Request(ctx, RequestSpec{Method: http.MethodPut, Path: path, JSON: body})
}

func (s *service) delete(ctx context.Context, path string) (any, error) {
	return s.session.Request(ctx, RequestSpec{Method: http.MethodDelete, Path: path})
}

// record is implemented by every typed API record. validate runs after the
// permissive decode and enforces required fields only; optional fields
// default to absent, never to a sentinel.
type record interface {
	validate() error
}

func missingField(name string) error {
	return fmt.Errorf("missing required field %q", name)
}

// collection unwraps a list response. The API wraps most collections in an
// envelope object under a named key, but some endpoints return the bare
// array; a few use alternate keys, hence the variadic list. Returns false
// when v is an object carrying none of the keys (or is not a collection
// shape at all) so callers can pick their endpoint's fallback.
func collection(v any, keys ...string) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []any:
		return t, true
	case map[string]any:
		for _, key := range keys {
			inner, ok := t[key]
			if !ok {
				continue
			}
			if arr, ok := inner.([]any); ok {
				return arr, true
			}
			return []any{inner}, true
		}
		return nil, false
	default:
		return nil, false
	}
}

// records unwraps a collection with the general fallback: when the envelope
// key is absent the whole response is treated as a one-element collection.
func records(v any, keys ...string) []any {
	items, ok := collection(v, keys...)
	if !ok {
		return []any{v}
	}
	return items
}

// decodeRecord decodes one raw JSON value into a typed record. Numeric ids
// are coerced to strings and RFC 3339 strings to time.Time. A missing
// required field fails with an invalid_request APIError.
func decodeRecord[T record](raw any) (T, error) {
	var out T

	obj, ok := raw.(map[string]any)
	if !ok {
		return out, &APIError{
			Kind:    ErrInvalidRequest,
			Message: fmt.Sprintf("expected a record object, got %T", raw),
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return out, fmt.Errorf("publer: building record decoder: %w", err)
	}
	if err := dec.Decode(obj); err != nil {
		return out, &APIError{
			Kind:    ErrInvalidRequest,
			Message: fmt.Sprintf("decoding %T record", out),
			cause:   err,
		}
	}
	if err := out.validate(); err != nil {
		return out, &APIError{
			Kind:    ErrInvalidRequest,
			Message: fmt.Sprintf("invalid %T record: %v", out, err),
			cause:   err,
		}
	}
	return out, nil
}

// decodeRecords decodes each element of a collection. With skipNonObject
// set, elements that are not objects are discarded instead of failing the
// call; some analytics endpoints mix error strings into result arrays
// (a documented per-endpoint quirk, not a general rule).
func decodeRecords[T record](items []any, skipNonObject bool) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, raw := range items {
		if _, ok := raw.(map[string]any); !ok && skipNonObject {
			continue
		}
		rec, err := decodeRecord[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
