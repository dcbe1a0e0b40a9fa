package publer

import (
	"context"
	"mime"
	"net/url"
	"path/filepath"
	"strconv"
	"time"
)

// MediaService accesses the media library endpoints.
type MediaService struct {
	service
}

// Media is a file in the Publer media library.
type Media struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Type         string     `json:"type"` // image, video, gif, document
	URL          string     `json:"url"`
	ThumbnailURL string     `json:"thumbnail_url"`
	Size         *int64     `json:"size"` // bytes
	Width        *int       `json:"width"`
	Height       *int       `json:"height"`
	Duration     *float64   `json:"duration"` // seconds, videos only
	CreatedAt    *time.Time `json:"created_at"`
	WorkspaceID  string     `json:"workspace_id"`
}

func (m Media) validate() error {
	if m.ID == "" {
		return missingField("id")
	}
	if m.Type == "" {
		return missingField("type")
	}
	if m.URL == "" {
		return missingField("url")
	}
	return nil
}

// MediaUpload supplies the bytes and metadata of an upload.
type MediaUpload struct {
	// Name is the file name; its extension also drives the MIME type
	// guess when ContentType is empty.
	Name string

	// ContentType overrides the extension-based MIME type guess.
	ContentType string

	Data []byte

	// Title is an optional library title.
	Title string
}

// UploadResult captures the API's either/or response to an upload: a
// Media record when the server processed the file synchronously, or a
// JobRef when it queued a processing job. Exactly one field is set.
type UploadResult struct {
	Media *Media
	Job   *JobRef
}

// MediaListOptions paginates List.
type MediaListOptions struct {
	Limit  int // default 50
	Offset int
}

// List returns media library entries.
func (s *MediaService) List(ctx context.Context, opts *MediaListOptions) ([]Media, error) {
	limit, offset := 50, 0
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		offset = opts.Offset
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	raw, err := s.get(ctx, "/media", query)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Media](records(raw, "media"), false)
}

// Get returns one media entry by id.
func (s *MediaService) Get(ctx context.Context, mediaID string) (*Media, error) {
	raw, err := s.get(ctx, "/media/"+mediaID, nil)
	if err != nil {
		return nil, err
	}
	m, err := decodeRecord[Media](raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Upload sends file bytes as multipart form data.
func (s *MediaService) Upload(ctx context.Context, up MediaUpload) (*UploadResult, error) {
	contentType := up.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(up.Name))
	}
	var fields map[string]string
	if up.Title != "" {
		fields = map[string]string{"title": up.Title}
	}
	files := []FormFile{{
		Field:       "file",
		Name:        up.Name,
		ContentType: contentType,
		Data:        up.Data,
	}}

	raw, err := s.postMultipart(ctx, "/media", fields, files)
	if err != nil {
		return nil, err
	}
	return decodeUploadResult(raw)
}

// UploadFromURL asks the server to fetch media from a URL.
func (s *MediaService) UploadFromURL(ctx context.Context, mediaURL, title string) (*UploadResult, error) {
	body := map[string]any{"url": mediaURL}
	if title != "" {
		body["title"] = title
	}
	raw, err := s.post(ctx, "/media", body)
	if err != nil {
		return nil, err
	}
	return decodeUploadResult(raw)
}

// Delete removes a media entry.
func (s *MediaService) Delete(ctx context.Context, mediaID string) error {
	_, err := s.delete(ctx, "/media/"+mediaID)
	return err
}

func decodeUploadResult(raw any) (*UploadResult, error) {
	obj, _ := raw.(map[string]any)
	if _, async := obj["job_id"]; async {
		ref, err := decodeRecord[JobRef](raw)
		if err != nil {
			return nil, err
		}
		return &UploadResult{Job: &ref}, nil
	}
	m, err := decodeRecord[Media](raw)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Media: &m}, nil
}
