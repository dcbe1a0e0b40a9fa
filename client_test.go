package publer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient wires a Client to a fake API.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestWorkspacesList(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/workspaces", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"workspaces": [
			{"id": "w1", "name": "Main", "members_count": 4},
			{"id": 22, "name": "Side"}
		]}`))
	})
	c := newTestClient(t, r)

	ws, err := c.Workspaces.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, "w1", ws[0].ID)
	assert.Equal(t, "22", ws[1].ID)
	require.NotNil(t, ws[0].MembersCount)
	assert.Equal(t, 4, *ws[0].MembersCount)
	assert.Nil(t, ws[1].MembersCount)
}

func TestAccountsListWorkspaceFilter(t *testing.T) {
	var gotQuery string
	r := chi.NewRouter()
	r.Get("/accounts", func(w http.ResponseWriter, req *http.Request) {
		gotQuery = req.URL.Query().Get("workspace_id")
		w.Write([]byte(`{"accounts": [{"id": "a1", "name": "Brand", "type": "facebook"}]}`))
	})
	c := newTestClient(t, r)

	accounts, err := c.Accounts.List(context.Background(), &AccountListOptions{WorkspaceID: "w1"})
	require.NoError(t, err)
	assert.Equal(t, "w1", gotQuery)
	require.Len(t, accounts, 1)
	assert.Equal(t, "facebook", accounts[0].Type)
}

func TestPostsCreateReturnsJob(t *testing.T) {
	var gotBody map[string]any
	r := chi.NewRouter()
	r.Post("/posts", func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&gotBody)
		w.Write([]byte(`{"job_id": "job_77"}`))
	})
	c := newTestClient(t, r)

	ref, err := c.Posts.Create(context.Background(), PostInput{
		Text:     "Hello",
		Accounts: []string{"a1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "job_77", ref.JobID)
	assert.Equal(t, "scheduled", gotBody["state"], "state defaults to scheduled")
	assert.Equal(t, "Hello", gotBody["text"])
	assert.NotContains(t, gotBody, "link", "zero fields are omitted")
}

func TestPostsCreateBulk(t *testing.T) {
	var gotBody map[string]any
	r := chi.NewRouter()
	r.Post("/posts", func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&gotBody)
		w.Write([]byte(`{"job_id": "job_78"}`))
	})
	c := newTestClient(t, r)

	ref, err := c.Posts.CreateBulk(context.Background(), "", []PostInput{
		{Text: "one", Accounts: []string{"a1"}},
		{Text: "two", Accounts: []string{"a1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "job_78", ref.JobID)

	bulk, ok := gotBody["bulk"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "scheduled", bulk["state"])
	assert.Len(t, bulk["posts"], 2)
}

func TestPostsListPagination(t *testing.T) {
	var gotQuery map[string]string
	r := chi.NewRouter()
	r.Get("/posts", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		gotQuery = map[string]string{
			"state": q.Get("state"), "limit": q.Get("limit"), "offset": q.Get("offset"),
		}
		w.Write([]byte(`{"posts": [{"id": "p1", "state": "scheduled"}]}`))
	})
	c := newTestClient(t, r)

	posts, err := c.Posts.List(context.Background(), &PostListOptions{
		State: "scheduled", Limit: 10, Offset: 20,
	})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, map[string]string{"state": "scheduled", "limit": "10", "offset": "20"}, gotQuery)

	_, err = c.Posts.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "50", gotQuery["limit"], "nil options fall back to the default page size")
}

func TestPostsUpdateAndDelete(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/posts/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"id": "p1", "state": "scheduled", "text": "updated"}`))
	})
	r.Delete("/posts/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	p, err := c.Posts.Update(ctx, "p1", PostInput{Text: "updated"})
	require.NoError(t, err)
	assert.Equal(t, "updated", p.Text)

	require.NoError(t, c.Posts.Delete(ctx, "p1"))
}

func TestMediaUploadSyncAndAsync(t *testing.T) {
	async := false
	r := chi.NewRouter()
	r.Post("/media", func(w http.ResponseWriter, req *http.Request) {
		if async {
			w.Write([]byte(`{"job_id": "job_m1"}`))
			return
		}
		w.Write([]byte(`{"id": "m1", "type": "image", "url": "https://cdn.example/m1.png", "size": 8}`))
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	up := MediaUpload{Name: "sunset.png", Data: []byte("pngbytes")}
	res, err := c.Media.Upload(ctx, up)
	require.NoError(t, err)
	require.NotNil(t, res.Media)
	assert.Nil(t, res.Job)
	assert.Equal(t, "m1", res.Media.ID)
	require.NotNil(t, res.Media.Size)
	assert.Equal(t, int64(8), *res.Media.Size)

	async = true
	res, err = c.Media.Upload(ctx, up)
	require.NoError(t, err)
	assert.Nil(t, res.Media)
	require.NotNil(t, res.Job)
	assert.Equal(t, "job_m1", res.Job.JobID)
}

func TestMediaUploadFromURL(t *testing.T) {
	var gotBody map[string]any
	r := chi.NewRouter()
	r.Post("/media", func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&gotBody)
		w.Write([]byte(`{"job_id": "job_m2"}`))
	})
	c := newTestClient(t, r)

	res, err := c.Media.UploadFromURL(context.Background(), "https://pics.example/x.jpg", "X")
	require.NoError(t, err)
	require.NotNil(t, res.Job)
	assert.Equal(t, "https://pics.example/x.jpg", gotBody["url"])
	assert.Equal(t, "X", gotBody["title"])
}

func TestClientWaitForJob(t *testing.T) {
	calls := 0
	r := chi.NewRouter()
	r.Post("/posts", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"job_id": "job_1"}`))
	})
	r.Get("/job_status/{id}", func(w http.ResponseWriter, req *http.Request) {
		calls++
		if calls < 2 {
			w.Write([]byte(`{"job_id": "job_1", "status": "processing"}`))
			return
		}
		w.Write([]byte(`{"job_id": "job_1", "status": "completed", "payload": {"post_id": "p5"}}`))
	})
	c := newTestClient(t, r)
	ctx := context.Background()

	ref, err := c.Posts.Create(ctx, PostInput{Text: "hi", Accounts: []string{"a1"}})
	require.NoError(t, err)

	// One direct snapshot, then drive to completion.
	rec, err := c.JobStatus(ctx, ref.JobID)
	require.NoError(t, err)
	assert.Equal(t, JobProcessing, rec.Status)

	p := NewPoller(c.Session())
	p.Interval = 0
	rec, err = p.WaitContext(ctx, ref.JobID)
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, rec.Status)
	assert.Equal(t, "p5", rec.Payload["post_id"])
}
