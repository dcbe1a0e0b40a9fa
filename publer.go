// Package publer is a typed Go client for the Publer social media
// publishing API.
//
// A Client owns one authenticated Session and exposes the API's resource
// groups as typed services:
//
//	client, err := publer.New(publer.Config{APIKey: "key"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	workspaces, err := client.Workspaces.List(ctx)
//
// Several write operations are asynchronous on the server and return a
// JobRef; WaitForJob polls the job until it reaches a terminal state:
//
//	ref, err := client.Posts.Create(ctx, publer.PostInput{
//		Text:     "Hello world",
//		Accounts: []string{"account_123"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	job, err := client.WaitForJob(ctx, ref.JobID)
//
// Failures from the API are *APIError values carrying a stable ErrorKind;
// callers branch with KindOf or IsKind. The library never retries failed
// requests on its own; on rate limiting the APIError carries the server's
// retry-after hint.
package publer

import "context"

// Version is reported in the User-Agent header of every request.
const Version = "0.1.0"

// Client is the composition root: one Session plus one service per
// resource group, all constructed eagerly.
type Client struct {
	session *Session

	Workspaces *WorkspacesService
	Accounts   *AccountsService
	Posts      *PostsService
	Media      *MediaService
	Analytics  *AnalyticsService
}

// New constructs a Client from cfg. Only the API key is mandatory; every
// other field has a default. The environment is not consulted; use
// NewFromEnv for that.
func New(cfg Config) (*Client, error) {
	session, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithSession(session), nil
}

// NewFromEnv fills cfg gaps from the PUBLER_* environment variables and
// constructs a Client. Explicit cfg fields win over the environment.
func NewFromEnv(cfg Config) (*Client, error) {
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	return New(cfg)
}

// NewWithSession wraps an existing Session.
func NewWithSession(s *Session) *Client {
	c := &Client{session: s}
	c.Workspaces = &WorkspacesService{service{session: s}}
	c.Accounts = &AccountsService{service{session: s}}
	c.Posts = &PostsService{service{session: s}}
	c.Media = &MediaService{service{session: s}}
	c.Analytics = &AnalyticsService{service{session: s}}
	return c
}

// Session exposes the underlying session for advanced use (raw requests,
// custom pollers).
func (c *Client) Session() *Session { return c.session }

// SetWorkspace scopes all subsequent requests to the given workspace.
func (c *Client) SetWorkspace(workspaceID string) {
	c.session.SetWorkspace(workspaceID)
}

// JobStatus fetches a single snapshot of an asynchronous job without
// polling.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobRecord, error) {
	return fetchJob(ctx, c.session, jobID)
}

// WaitForJob polls the job at the default cadence until it completes,
// fails, or the default timeout elapses. Construct a Poller directly to
// control interval and timeout.
func (c *Client) WaitForJob(ctx context.Context, jobID string) (*JobRecord, error) {
	return NewPoller(c.session).WaitContext(ctx, jobID)
}

// Close releases the underlying connection resources. The Client must not
// be used afterwards.
func (c *Client) Close() {
	c.session.Close()
}
