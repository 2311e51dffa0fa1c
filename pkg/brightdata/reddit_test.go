package brightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
)

// snapshotServer simulates the dataset trigger/poll/download protocol.
type snapshotServer struct {
	readyAfter   int    // progress polls before status flips to ready
	status       string // terminal status, defaults to ready
	snapshotBody string // raw JSON served for the snapshot download

	triggerCalls  atomic.Int32
	progressCalls atomic.Int32
	triggerQuery  map[string]string
	triggerBody   []byte
}

func (s *snapshotServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets/v3/trigger", func(w http.ResponseWriter, r *http.Request) {
		s.triggerCalls.Add(1)
		s.triggerQuery = map[string]string{}
		for k := range r.URL.Query() {
			s.triggerQuery[k] = r.URL.Query().Get(k)
		}
		s.triggerBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"snapshot_id": "snap-1"}`)
	})
	mux.HandleFunc("/datasets/v3/progress/snap-1", func(w http.ResponseWriter, r *http.Request) {
		n := int(s.progressCalls.Add(1))
		status := s.status
		if status == "" {
			status = "ready"
		}
		if n <= s.readyAfter {
			status = "running"
		}
		fmt.Fprintf(w, `{"status": %q}`, status)
	})
	mux.HandleFunc("/datasets/v3/snapshot/snap-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, s.snapshotBody)
	})
	return mux
}

func TestRedditSearchNormalizesPosts(t *testing.T) {
	srv := &snapshotServer{
		readyAfter: 1,
		snapshotBody: `[
			{"title": "Great thread", "url": "https://reddit.com/r/golang/1", "upvotes": 10},
			"not an object",
			{"title": "Another", "url": "https://reddit.com/r/golang/2"}
		]`,
	}
	c := testClient(t, srv.handler())

	results, err := c.RedditSearch(context.Background(), "golang", "gd_search")
	if err != nil {
		t.Fatalf("RedditSearch() error = %v", err)
	}

	if results.TotalFound != 2 || len(results.ParsedPosts) != 2 {
		t.Fatalf("results = %+v, want 2 parsed posts with malformed entry dropped", results)
	}
	if results.ParsedPosts[0].URL != "https://reddit.com/r/golang/1" {
		t.Errorf("first post = %+v", results.ParsedPosts[0])
	}

	if srv.triggerQuery["dataset_id"] != "gd_search" {
		t.Errorf("trigger dataset_id = %q, want gd_search", srv.triggerQuery["dataset_id"])
	}
	if srv.triggerQuery["type"] != "discover_new" || srv.triggerQuery["discover_by"] != "keyword" {
		t.Errorf("trigger query = %v, want keyword discovery", srv.triggerQuery)
	}
	if !strings.Contains(string(srv.triggerBody), `"keyword":"golang"`) {
		t.Errorf("trigger body = %s, want keyword", srv.triggerBody)
	}
	if got := srv.progressCalls.Load(); got < 2 {
		t.Errorf("progress polls = %d, want at least 2 (running then ready)", got)
	}
}

func TestRedditSearchNonListSnapshot(t *testing.T) {
	srv := &snapshotServer{snapshotBody: `{"error": "no results"}`}
	c := testClient(t, srv.handler())

	results, err := c.RedditSearch(context.Background(), "golang", "gd_search")
	if err != nil {
		t.Fatalf("RedditSearch() error = %v", err)
	}
	if results.TotalFound != 0 || len(results.ParsedPosts) != 0 {
		t.Errorf("results = %+v, want empty", results)
	}
}

func TestRedditSearchSnapshotFailed(t *testing.T) {
	srv := &snapshotServer{status: "failed"}
	c := testClient(t, srv.handler())

	if _, err := c.RedditSearch(context.Background(), "golang", "gd_search"); err == nil {
		t.Fatal("RedditSearch() should fail when the snapshot fails")
	}
}

func TestRedditSearchPollExhaustion(t *testing.T) {
	srv := &snapshotServer{readyAfter: 100} // never ready within 3 attempts
	c := testClient(t, srv.handler())

	_, err := c.RedditSearch(context.Background(), "golang", "gd_search")
	if err == nil {
		t.Fatal("RedditSearch() should time out when polling is exhausted")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestRedditSearchMissingDatasetID(t *testing.T) {
	srv := &snapshotServer{}
	c := testClient(t, srv.handler())

	if _, err := c.RedditSearch(context.Background(), "golang", ""); err == nil {
		t.Fatal("RedditSearch() should fail without a dataset id")
	}
	if got := srv.triggerCalls.Load(); got != 0 {
		t.Errorf("trigger calls = %d, want 0 before validation", got)
	}
}

func TestRedditPostRetrievalNormalizesComments(t *testing.T) {
	srv := &snapshotServer{
		snapshotBody: `[
			{"comment_id": "c1", "comment": "works great", "date_posted": "2024-05-01"},
			42,
			{"comment_id": "c2", "comment": "avoid", "date_posted": "2024-05-02"}
		]`,
	}
	c := testClient(t, srv.handler())

	results, err := c.RedditPostRetrieval(context.Background(), []string{"u1", "u2"}, "gd_comments")
	if err != nil {
		t.Fatalf("RedditPostRetrieval() error = %v", err)
	}
	if results.TotalRetrieved != 2 {
		t.Fatalf("results = %+v, want 2 comments with malformed entry dropped", results)
	}
	if results.Comments[0].Content != "works great" || results.Comments[0].CommentID != "c1" {
		t.Errorf("first comment = %+v", results.Comments[0])
	}

	var body []map[string]any
	if err := json.Unmarshal(srv.triggerBody, &body); err != nil {
		t.Fatalf("trigger body: %v", err)
	}
	if len(body) != 2 || body[0]["url"] != "u1" || body[1]["url"] != "u2" {
		t.Errorf("trigger body = %v, want one entry per url", body)
	}
}

func TestRedditPostRetrievalEmptyURLsSkipsProvider(t *testing.T) {
	srv := &snapshotServer{}
	c := testClient(t, srv.handler())

	results, err := c.RedditPostRetrieval(context.Background(), nil, "gd_comments")
	if err != nil {
		t.Fatalf("RedditPostRetrieval() error = %v", err)
	}
	if results != nil {
		t.Errorf("results = %+v, want nil for empty url list", results)
	}
	if got := srv.triggerCalls.Load(); got != 0 {
		t.Errorf("trigger calls = %d, want 0", got)
	}
}

func TestRedditPostRetrievalMissingDatasetID(t *testing.T) {
	srv := &snapshotServer{}
	c := testClient(t, srv.handler())

	if _, err := c.RedditPostRetrieval(context.Background(), []string{"u1"}, ""); err == nil {
		t.Fatal("RedditPostRetrieval() should fail without a comments dataset id")
	}
}
