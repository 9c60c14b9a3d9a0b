package vk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"WallRelay/internal/domain"
)

const wallPayload = `{"response":{"count":3,"items":[
 {"id":12,"from_id":-1,"owner_id":-1,"date":1700000300,"marked_as_ads":0,"is_pinned":1,"text":"pinned"},
 {"id":11,"from_id":-1,"owner_id":-1,"date":1700000200,"marked_as_ads":0,"text":"hello","attachments":[
   {"type":"link","link":{"title":"Site","url":"http://site"}},
   {"type":"photo","photo":{"id":5,"album_id":-7,"photo_75":"http://p/75","photo_604":"http://p/604","photo_1280":"http://p/1280","text":""}},
   {"type":"video","video":{"id":9,"owner_id":-1,"title":"clip","platform":"YouTube"}},
   {"type":"doc","doc":{"id":1}}
 ]},
 {"id":10,"from_id":42,"owner_id":-1,"date":1700000100,"marked_as_ads":1,"text":"ad"}
]}}`

func TestFetchWallDecodesPosts(t *testing.T) {
	t.Parallel()

	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/method/wall.get" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(wallPayload))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, Token: "secret", GroupID: -1})
	posts, err := client.FetchWall(context.Background())
	if err != nil {
		t.Fatalf("FetchWall error: %v", err)
	}

	for _, param := range []string{"v=5.64", "owner_id=-1", "access_token=secret", "count=5"} {
		if !strings.Contains(gotQuery, param) {
			t.Fatalf("query %q is missing %s", gotQuery, param)
		}
	}

	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	if !posts[0].IsPinned || posts[1].IsPinned {
		t.Fatalf("pinned flags decoded incorrectly")
	}
	if !posts[2].IsAd || posts[2].AuthorID != 42 {
		t.Fatalf("unexpected ad post: %+v", posts[2])
	}

	hello := posts[1]
	if hello.ID != 11 || hello.CreatedAt != 1700000200 || hello.AuthorID != -1 || hello.Text != "hello" {
		t.Fatalf("unexpected post: %+v", hello)
	}
	if len(hello.Attachments) != 3 {
		t.Fatalf("expected unknown attachments to be dropped, got %d", len(hello.Attachments))
	}

	link, ok := hello.Attachments[0].(domain.Link)
	if !ok || link.Title != "Site" || link.URL != "http://site" {
		t.Fatalf("unexpected link: %#v", hello.Attachments[0])
	}

	photo, ok := hello.Attachments[1].(domain.Photo)
	if !ok || len(photo.Variants) != 3 || photo.Variants[604] != "http://p/604" {
		t.Fatalf("unexpected photo: %#v", hello.Attachments[1])
	}

	video, ok := hello.Attachments[2].(domain.Video)
	if !ok || video.OwnerID != -1 || video.VideoID != 9 || !video.HasExternalPlayer {
		t.Fatalf("unexpected video: %#v", hello.Attachments[2])
	}
}

func TestFetchWallMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		reason string
	}{
		{"not json", "<html>Bad Gateway</html>", reasonInvalid},
		{"api error", `{"error":{"error_code":5,"error_msg":"User authorization failed"}}`, reasonEmpty},
		{"no items", `{"response":{"count":0}}`, reasonEmpty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewClient(Options{BaseURL: server.URL, GroupID: -1}).FetchWall(context.Background())

			var malformed *domain.MalformedFeedError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedFeedError, got %v", err)
			}
			if malformed.Reason != tc.reason {
				t.Fatalf("unexpected reason %q", malformed.Reason)
			}
			if string(malformed.Body) != tc.body {
				t.Fatalf("raw body not preserved: %q", malformed.Body)
			}
		})
	}
}

func TestFetchWallEmptyItemsIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"count":0,"items":[]}}`))
	}))
	defer server.Close()

	posts, err := NewClient(Options{BaseURL: server.URL}).FetchWall(context.Background())
	if err != nil || len(posts) != 0 {
		t.Fatalf("unexpected result: %v, %v", posts, err)
	}
}

func TestFetchWallStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(Options{BaseURL: server.URL}).FetchWall(context.Background())
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}

	var malformed *domain.MalformedFeedError
	if errors.As(err, &malformed) {
		t.Fatalf("status errors are transport failures, not malformed feeds")
	}
}

func TestFetchPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != userAgent {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("<html>video</html>"))
	}))
	defer server.Close()

	body, err := NewClient(Options{}).FetchPage(context.Background(), server.URL+"/video-1_2")
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}
	if string(body) != "<html>video</html>" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestFlagUnmarshal(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"1": true, "0": false, "true": true, "false": false, "null": false, "2": true,
		`"1"`: true, `"0"`: false, `""`: false, `"true"`: true,
	}
	for raw, want := range cases {
		var f flag
		if err := f.UnmarshalJSON([]byte(raw)); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if bool(f) != want {
			t.Fatalf("flag %s = %v, want %v", raw, f, want)
		}
	}

	var f flag
	if err := f.UnmarshalJSON([]byte(`"yes"`)); err == nil {
		t.Fatalf("expected error for non-numeric flag")
	}
}

func TestDecodeWallQuotedFlags(t *testing.T) {
	t.Parallel()

	body := []byte(`{"response":{"items":[` +
		`{"id":1,"from_id":-1,"date":10,"is_pinned":"1","text":"pinned"},` +
		`{"id":2,"from_id":-1,"date":9,"marked_as_ads":"0","text":"plain"}]}}`)

	posts, err := decodeWall(body)
	if err != nil {
		t.Fatalf("decodeWall error: %v", err)
	}
	if len(posts) != 2 || !posts[0].IsPinned || posts[1].IsAd {
		t.Fatalf("quoted flags decoded incorrectly: %+v", posts)
	}
}
