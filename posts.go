package publer

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// PostsService accesses the post endpoints.
type PostsService struct {
	service
}

// Post is a scheduled, drafted, or published post.
type Post struct {
	ID          string           `json:"id"`
	Text        string           `json:"text"`
	State       string           `json:"state"` // scheduled, published, draft, failed, ...
	ScheduledAt *time.Time       `json:"scheduled_at"`
	PublishedAt *time.Time       `json:"published_at"`
	CreatedAt   *time.Time       `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at"`
	Accounts    []string         `json:"accounts"`
	Media       []map[string]any `json:"media"`
	Link        string           `json:"link"`
	WorkspaceID string           `json:"workspace_id"`
	CreatedBy   string           `json:"created_by"`
	Metadata    map[string]any   `json:"metadata"`
}

func (p Post) validate() error {
	if p.ID == "" {
		return missingField("id")
	}
	if p.State == "" {
		return missingField("state")
	}
	return nil
}

// PostInput is the body of Create and Update. Zero fields are omitted from
// the request.
type PostInput struct {
	Text        string   `json:"text,omitempty"`
	Accounts    []string `json:"accounts,omitempty"`
	ScheduledAt string   `json:"scheduled_at,omitempty"` // ISO 8601
	MediaURLs   []string `json:"media_urls,omitempty"`
	MediaIDs    []string `json:"media_ids,omitempty"`
	Link        string   `json:"link,omitempty"`
	State       string   `json:"state,omitempty"` // scheduled or draft; Create defaults to scheduled
}

// PostListOptions filters List.
type PostListOptions struct {
	State  string // scheduled, published, draft, failed
	From   string // ISO 8601 lower bound
	To     string // ISO 8601 upper bound
	Limit  int    // default 50
	Offset int
}

// Create submits a post. Creation is asynchronous on the server: the
// returned JobRef identifies the processing job, which WaitForJob can
// drive to completion.
func (s *PostsService) Create(ctx context.Context, in PostInput) (*JobRef, error) {
	if in.State == "" {
		in.State = "scheduled"
	}
	raw, err := s.post(ctx, "/posts", in)
	if err != nil {
		return nil, err
	}
	ref, err := decodeRecord[JobRef](raw)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CreateBulk submits multiple posts in one asynchronous job. An empty
// state defaults to scheduled and applies to every post.
func (s *PostsService) CreateBulk(ctx context.Context, state string, posts []PostInput) (*JobRef, error) {
	if state == "" {
		state = "scheduled"
	}
	body := map[string]any{
		"bulk": map[string]any{"state": state, "posts": posts},
	}
	raw, err := s.post(ctx, "/posts", body)
	if err != nil {
		return nil, err
	}
	ref, err := decodeRecord[JobRef](raw)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// List returns posts matching opts.
func (s *PostsService) List(ctx context.Context, opts *PostListOptions) ([]Post, error) {
	limit, offset := 50, 0
	query := url.Values{}
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		offset = opts.Offset
		if opts.State != "" {
			query.Set("state", opts.State)
		}
		if opts.From != "" {
			query.Set("from", opts.From)
		}
		if opts.To != "" {
			query.Set("to", opts.To)
		}
	}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	raw, err := s.get(ctx, "/posts", query)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Post](records(raw, "posts"), false)
}

// Get returns one post by id.
func (s *PostsService) Get(ctx context.Context, postID string) (*Post, error) {
	raw, err := s.get(ctx, "/posts/"+postID, nil)
	if err != nil {
		return nil, err
	}
	p, err := decodeRecord[Post](raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update modifies an existing post and returns the updated record.
func (s *PostsService) Update(ctx context.Context, postID string, in PostInput) (*Post, error) {
	raw, err := s.put(ctx, "/posts/"+postID, in)
	if err != nil {
		return nil, err
	}
	p, err := decodeRecord[Post](raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a post. The API's confirmation body is discarded.
func (s *PostsService) Delete(ctx context.Context, postID string) error {
	_, err := s.delete(ctx, "/posts/"+postID)
	return err
}
