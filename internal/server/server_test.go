package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmylchreest/htmlblocks/pkg/converter"
	"github.com/jmylchreest/htmlblocks/pkg/media"
	"github.com/jmylchreest/htmlblocks/pkg/settings"
)

type fakePosts struct {
	marked []int
	err    error
}

func (f *fakePosts) MarkDraft(_ context.Context, postID int) error {
	f.marked = append(f.marked, postID)
	return f.err
}

func newTestServer(t *testing.T, posts PostMarker) *httptest.Server {
	t.Helper()
	persister := media.PersisterFunc(func(_ context.Context, url string, _ int, _ string) (media.Attachment, error) {
		return media.Attachment{ID: 1, HTML: `<img src="/media/a.png" alt=""/>`}, nil
	})
	conv := converter.New(settings.Static(settings.Default()), persister)
	auth := NewTokenAuthorizer(map[string][]string{
		"admin":  {AnyPost},
		"editor": {"5"},
		"viewer": {},
	})
	srv := New(conv, auth, posts, Config{MaxBodyBytes: 1024})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, token, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+ConvertPath, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestHandleConvert_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		token  string
		body   string
		status int
		code   string
	}{
		{"no token", "", `{"html":"<p>x</p>"}`, http.StatusForbidden, CodeForbidden},
		{"unknown token", "nope", `{"html":"<p>x</p>"}`, http.StatusForbidden, CodeForbidden},
		{"bad json", "admin", `{"html":`, http.StatusBadRequest, CodeInvalidRequest},
		{"bad post id", "admin", `{"html":"<p>x</p>","post_id":"abc"}`, http.StatusBadRequest, CodeInvalidRequest},
		{"nan threshold", "admin", `{"html":"<p>x</p>","score_threshold":"NaN"}`, http.StatusBadRequest, CodeInvalidRequest},
		{"empty html", "admin", `{"html":"   "}`, http.StatusBadRequest, CodeEmpty},
		{"missing html", "admin", `{}`, http.StatusBadRequest, CodeEmpty},
		{"persist without post", "admin", `{"html":"<p>x</p>","persist_media":true}`, http.StatusBadRequest, CodePostRequired},
		{"cannot edit post", "editor", `{"html":"<p>x</p>","post_id":6}`, http.StatusForbidden, CodeCannotEdit},
		{"viewer cannot edit", "viewer", `{"html":"<p>x</p>","post_id":1}`, http.StatusForbidden, CodeCannotEdit},
		{"body too large", "admin", `{"html":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge, CodeTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, ts, tt.token, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			var e errorBody
			if err := json.Unmarshal(body, &e); err != nil {
				t.Fatalf("error body is not JSON: %s", body)
			}
			if e.Code != tt.code || e.Status != tt.status || e.Message == "" {
				t.Errorf("error body = %+v, want code %s", e, tt.code)
			}
		})
	}
}

func TestHandleConvert_Success(t *testing.T) {
	posts := &fakePosts{}
	ts := newTestServer(t, posts)

	resp, body := post(t, ts, "editor",
		`{"html":"<div class=\"col\"><p>Hello world</p></div><div class=\"col\"><p>Bye now</p></div>","post_id":"5","column_detection":"on","score_threshold":"0.5"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.StatusCode, body)
	}

	var got struct {
		Blocks          string  `json:"blocks"`
		ColumnDetection bool    `json:"column_detection"`
		StripAttributes bool    `json:"strip_attributes"`
		ScoreThreshold  float64 `json:"score_threshold"`
		Stats           struct {
			ColumnsFormed int `json:"columns_formed"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if !strings.Contains(got.Blocks, "<!-- wp:columns -->") {
		t.Errorf("blocks = %q, want columns", got.Blocks)
	}
	if !got.ColumnDetection || !got.StripAttributes || got.ScoreThreshold != 0.5 {
		t.Errorf("unexpected options %+v", got)
	}
	if got.Stats.ColumnsFormed != 1 {
		t.Errorf("columns_formed = %d", got.Stats.ColumnsFormed)
	}
	if len(posts.marked) != 0 {
		t.Errorf("post marked without persisting: %v", posts.marked)
	}
}

func TestHandleConvert_PersistMarksDraft(t *testing.T) {
	posts := &fakePosts{}
	ts := newTestServer(t, posts)

	resp, body := post(t, ts, "admin",
		`{"html":"<img src=\"https://x.test/a.png\">","post_id":9,"persist_media":1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.StatusCode, body)
	}
	if len(posts.marked) != 1 || posts.marked[0] != 9 {
		t.Errorf("marked = %v, want [9]", posts.marked)
	}
	if !strings.Contains(string(body), `\"id\":1`) {
		t.Errorf("expected persisted image metadata, got %s", body)
	}
}

func TestHandleConvert_MarkDraftFailureIsWarning(t *testing.T) {
	posts := &fakePosts{err: errors.New("db locked")}
	ts := newTestServer(t, posts)

	resp, body := post(t, ts, "admin",
		`{"html":"<img src=\"https://x.test/a.png\">","post_id":9,"persist_media":"yes"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d (%s)", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "post status not updated") {
		t.Errorf("expected warning in body, got %s", body)
	}
}

func TestHandler_MethodAndHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + ConvertPath)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET convert status = %d, want 405", resp.StatusCode)
	}

	resp, err = ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	srv := New(converter.New(nil, nil), AllowAll{}, nil, Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("ListenAndServe() error = %v", err)
	}
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"score_threshold": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q: %v", rec.Body.String(), err)
	}
	if body.Code != CodeInternal {
		t.Errorf("code = %q, want %q", body.Code, CodeInternal)
	}
}
