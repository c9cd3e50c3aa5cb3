package gdrive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"repairdesk/internal/backup"
	"repairdesk/internal/kv"
)

type staticAuth struct {
	client   *http.Client
	signOuts int
}

func (s *staticAuth) Client(context.Context) (*http.Client, error) { return s.client, nil }
func (s *staticAuth) Authenticated(context.Context) bool           { return true }
func (s *staticAuth) SignOut(context.Context) error                { s.signOuts++; return nil }
func (s *staticAuth) Email(context.Context) string                 { return "shop@example.com" }

func newTestRemote(t *testing.T, handler http.HandlerFunc) *Remote {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRemote(&staticAuth{client: srv.Client()}, "folder-1", option.WithEndpoint(srv.URL+"/"))
}

func TestListFiltersByPrefix(t *testing.T) {
	var gotQuery string
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		gotQuery = req.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"files":[
			{"id":"1","name":"DeepMobileCRM_Backup_2026-03-14T09-30-00.000Z.json","modifiedTime":"2026-03-14T09:30:00Z","size":"120"},
			{"id":"2","name":"Copy of DeepMobileCRM_Backup_x.json","modifiedTime":"2026-03-13T09:30:00Z"}
		]}`)
	})

	snaps, err := r.List(context.Background(), "DeepMobileCRM_Backup_")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 1 || snaps[0].ID != "1" {
		t.Fatalf("snapshots = %+v", snaps)
	}
	if snaps[0].Size != 120 || !snaps[0].ModifiedTime.Equal(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("snapshot = %+v", snaps[0])
	}
	want := "name contains 'DeepMobileCRM_Backup_' and mimeType='application/json' and trashed=false and 'folder-1' in parents"
	if gotQuery != want {
		t.Fatalf("query = %q\nwant   %q", gotQuery, want)
	}
}

func TestUnauthorizedResponseMapsToErrUnauthorized(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	})

	err := r.Delete(context.Background(), "abc")
	if !errors.Is(err, backup.ErrUnauthorized) {
		t.Fatalf("Delete error = %v, want ErrUnauthorized", err)
	}
}

func TestDownload(t *testing.T) {
	r := newTestRemote(t, func(w http.ResponseWriter, req *http.Request) {
		if !strings.HasSuffix(req.URL.Path, "/files/abc") || req.URL.Query().Get("alt") != "media" {
			http.NotFound(w, req)
			return
		}
		fmt.Fprint(w, `{"customers":[]}`)
	})

	data, err := r.Download(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != `{"customers":[]}` {
		t.Fatalf("data = %s", data)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"api 401", &googleapi.Error{Code: 401}, true},
		{"api 403", &googleapi.Error{Code: 403}, false},
		{"refresh failure", &oauth2.RetrieveError{}, true},
		{"transport", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(classify(tt.err), backup.ErrUnauthorized); got != tt.want {
				t.Errorf("classify(%v) unauthorized = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery(`it's`); got != `it\'s` {
		t.Fatalf("escapeQuery = %s", got)
	}
}

func seedToken(t *testing.T, store kv.Store, tok *oauth2.Token) {
	t.Helper()
	if err := kv.PutJSON(context.Background(), store, KeyToken, tok); err != nil {
		t.Fatal(err)
	}
}

func TestUserAuthSession(t *testing.T) {
	ctx := context.Background()
	var revoked string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/userinfo":
			if req.Header.Get("Authorization") != "Bearer access-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"email": "shop@example.com"})
		case "/revoke":
			_ = req.ParseForm()
			revoked = req.Form.Get("token")
		}
	}))
	defer srv.Close()

	store := kv.NewMemoryStore()
	a := NewUserAuth(OAuthConfig{ClientID: "id"}, store)
	a.userInfoURL = srv.URL + "/userinfo"
	a.revokeURL = srv.URL + "/revoke"

	if a.Authenticated(ctx) {
		t.Fatal("authenticated without a token")
	}
	if _, err := a.Client(ctx); !errors.Is(err, backup.ErrUnauthorized) {
		t.Fatalf("Client error = %v, want ErrUnauthorized", err)
	}

	tok := &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", Expiry: time.Now().Add(time.Hour)}
	seedToken(t, store, tok)
	if !a.Authenticated(ctx) {
		t.Fatal("not authenticated with a stored token")
	}

	email, err := a.fetchEmail(ctx, tok)
	if err != nil || email != "shop@example.com" {
		t.Fatalf("fetchEmail = %q, %v", email, err)
	}

	if err := a.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if revoked != "refresh-1" {
		t.Fatalf("revoked %q, want refresh-1", revoked)
	}
	if a.Authenticated(ctx) {
		t.Fatal("still authenticated after sign out")
	}
}

type sequenceSource struct {
	tokens []string
	n      int
}

func (s *sequenceSource) Token() (*oauth2.Token, error) {
	tok := &oauth2.Token{AccessToken: s.tokens[s.n]}
	if s.n < len(s.tokens)-1 {
		s.n++
	}
	return tok, nil
}

func TestPersistingSourceSavesNewTokens(t *testing.T) {
	var saved []string
	p := &persistingSource{
		base: &sequenceSource{tokens: []string{"a", "a", "b"}},
		save: func(_ context.Context, tok *oauth2.Token) error {
			saved = append(saved, tok.AccessToken)
			return nil
		},
		ctx:  context.Background(),
		last: "a",
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Token(); err != nil {
			t.Fatal(err)
		}
	}
	if len(saved) != 1 || saved[0] != "b" {
		t.Fatalf("saved = %v, want [b]", saved)
	}
}
