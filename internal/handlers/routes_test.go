package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/assist"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/memstore"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/services"
)

type stubGateway struct{}

func (stubGateway) Upload(_ context.Context, localPath string, kind media.Kind) (media.Asset, error) {
	_ = os.Remove(localPath)
	key := uuid.NewString()
	return media.Asset{URL: "https://cdn.test/" + key, Key: key, Kind: kind}, nil
}

func (stubGateway) Remove(context.Context, media.Asset) error { return nil }

type stubAssistant struct {
	result assist.Result
	err    error
}

func (s stubAssistant) Correct(context.Context, string, string) (assist.Result, error) {
	return s.result, s.err
}

type testServer struct {
	router http.Handler
}

func newTestServer(t *testing.T, opts ...func(*Dependencies)) *testServer {
	t.Helper()
	store := memstore.New()
	manager := auth.NewManager(auth.Config{
		AccessSecret:  []byte("access"),
		RefreshSecret: []byte("refresh"),
	}, store.Sessions())
	svc := services.New(services.Deps{
		Users:     store.Users(),
		Videos:    store.Videos(),
		Comments:  store.Comments(),
		Tweets:    store.Tweets(),
		Playlists: store.Playlists(),
		Relations: store.Relations(),
		Tokens:    manager,
		Media:     stubGateway{},
	})
	deps := Dependencies{
		Services:    svc,
		Assistant:   stubAssistant{result: assist.Result{Title: "Fixed", Description: "Better", Processed: true}},
		Uploads:     Uploads{Dir: t.TempDir(), MaxBytes: 1 << 20},
		CORSOrigins: []string{"http://localhost:3000"},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testServer{router: NewRouter(deps)}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, token)
}

func (s *testServer) send(t *testing.T, req *http.Request, token string) (int, apiResponse) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", resp.Data, err)
	}
	return out
}

type session struct {
	ID    string
	Token string
}

func (s *testServer) signUp(t *testing.T, username string) session {
	t.Helper()
	code, resp := s.do(t, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": username,
		"email":    username + "@x.com",
		"password": "secret1",
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, code, resp.Message)
	}
	code, resp = s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": username,
		"password": "secret1",
	})
	if code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, code, resp.Message)
	}
	out := decodeData[struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		AccessToken string `json:"accessToken"`
	}](t, resp)
	return session{ID: out.User.ID, Token: out.AccessToken}
}

func (s *testServer) publish(t *testing.T, owner session, title string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", title)
	_ = mw.WriteField("description", "about "+title)
	for field, name := range map[string]string{"videoFile": "clip.mp4", "thumbnail": "thumb.png"} {
		part, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write([]byte("bytes"))
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, resp := s.send(t, req, owner.Token)
	if code != http.StatusCreated {
		t.Fatalf("publish: %d %s", code, resp.Message)
	}
	return decodeData[struct {
		ID string `json:"id"`
	}](t, resp).ID
}

func TestRegisterAndLoginFlow(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": "Ada", "email": "ada@x.com", "password": "secret1",
	})
	if code != http.StatusCreated || !resp.Success {
		t.Fatalf("expected 201, got %d %s", code, resp.Message)
	}
	if strings.Contains(string(resp.Data), "secret1") || strings.Contains(string(resp.Data), "password") {
		t.Fatalf("response leaks credentials: %s", resp.Data)
	}

	code, _ = s.do(t, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": "ada", "email": "other@x.com", "password": "secret1",
	})
	if code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", code)
	}

	code, resp = s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": "ada@x.com", "password": "wrong",
	})
	if code != http.StatusUnauthorized || resp.Success {
		t.Fatalf("expected 401, got %d", code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader(`{"username":"ada","password":"secret1"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.HttpOnly && c.Value != ""
	}
	if !cookies[accessTokenCookie] || !cookies[refreshTokenCookie] {
		t.Fatalf("expected httpOnly session cookies, got %v", rec.Result().Cookies())
	}

	// The access token cookie alone authenticates.
	me := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	for _, c := range rec.Result().Cookies() {
		me.AddCookie(c)
	}
	code, resp = s.send(t, me, "")
	if code != http.StatusOK {
		t.Fatalf("expected cookie auth to work, got %d %s", code, resp.Message)
	}
}

func TestRefreshRotation(t *testing.T) {
	s := newTestServer(t)
	s.signUp(t, "ada")

	_, resp := s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"username": "ada", "password": "secret1"})
	first := decodeData[struct {
		RefreshToken string `json:"refreshToken"`
	}](t, resp).RefreshToken

	code, _ := s.do(t, http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{"refreshToken": first})
	if code != http.StatusOK {
		t.Fatalf("expected refresh to succeed, got %d", code)
	}
	code, _ = s.do(t, http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{"refreshToken": first})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected rotated token to be rejected, got %d", code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users/current-user"},
		{http.MethodPost, "/api/v1/likes/toggle/v/" + uuid.NewString()},
		{http.MethodPost, "/api/v1/tweets"},
		{http.MethodPatch, "/api/v1/videos/" + uuid.NewString() + "/views"},
		{http.MethodPost, "/api/v1/ai/grammar-correct"},
	} {
		code, _ := s.do(t, tc.method, tc.path, "", nil)
		if code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, code)
		}
	}

	code, _ := s.do(t, http.MethodGet, "/api/v1/users/current-user", "garbage", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected invalid token to be rejected, got %d", code)
	}
}

func TestLikeToggleAndVideoView(t *testing.T) {
	s := newTestServer(t)
	owner := s.signUp(t, "owner")
	fan := s.signUp(t, "fan")
	videoID := s.publish(t, owner, "first")

	code, resp := s.do(t, http.MethodPost, "/api/v1/likes/toggle/v/"+videoID, fan.Token, nil)
	if code != http.StatusOK || !decodeData[map[string]bool](t, resp)["active"] {
		t.Fatalf("expected like to be active, got %d %s", code, resp.Data)
	}

	code, resp = s.do(t, http.MethodGet, "/api/v1/videos/"+videoID, fan.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("video view: %d", code)
	}
	view := decodeData[struct {
		LikesCount int64 `json:"likesCount"`
		IsLiked    bool  `json:"isLiked"`
		Owner      struct {
			Username string `json:"username"`
		} `json:"owner"`
	}](t, resp)
	if view.LikesCount != 1 || !view.IsLiked || view.Owner.Username != "owner" {
		t.Fatalf("unexpected view %+v", view)
	}

	// Anonymous viewers see counts but never isLiked.
	_, resp = s.do(t, http.MethodGet, "/api/v1/videos/"+videoID, "", nil)
	if anon := decodeData[map[string]any](t, resp); anon["isLiked"] != false {
		t.Fatalf("expected anonymous isLiked=false, got %v", anon["isLiked"])
	}

	code, resp = s.do(t, http.MethodGet, "/api/v1/likes/check/v/"+videoID, fan.Token, nil)
	if code != http.StatusOK || !decodeData[map[string]bool](t, resp)["isLiked"] {
		t.Fatalf("expected liked check, got %d %s", code, resp.Data)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	owner := s.signUp(t, "owner")
	intruder := s.signUp(t, "intruder")
	videoID := s.publish(t, owner, "mine")

	tests := []struct {
		name    string
		method  string
		path    string
		token   string
		body    any
		status  int
		message string
	}{
		{name: "malformed id", method: http.MethodGet, path: "/api/v1/videos/not-an-id", status: http.StatusBadRequest, message: "Invalid video ID"},
		{name: "missing video", method: http.MethodGet, path: "/api/v1/videos/" + uuid.NewString(), status: http.StatusNotFound, message: "Video not found"},
		{name: "self subscribe", method: http.MethodPost, path: "/api/v1/subscriptions/c/" + owner.ID + "/toggle", token: owner.Token, status: http.StatusBadRequest, message: "You cannot subscribe to yourself"},
		{name: "foreign video", method: http.MethodDelete, path: "/api/v1/videos/" + videoID, token: intruder.Token, status: http.StatusForbidden},
		{name: "blank comment", method: http.MethodPost, path: "/api/v1/comments/" + videoID, token: intruder.Token, body: map[string]string{"content": "  "}, status: http.StatusBadRequest},
		{name: "bad json", method: http.MethodPost, path: "/api/v1/tweets", token: owner.Token, body: "not an object", status: http.StatusBadRequest},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nope", status: http.StatusNotFound, message: "Route not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, resp := s.do(t, tc.method, tc.path, tc.token, tc.body)
			if code != tc.status || resp.Success {
				t.Fatalf("expected %d, got %d (%s)", tc.status, code, resp.Message)
			}
			if tc.message != "" && resp.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, resp.Message)
			}
		})
	}
}

func TestPlaylistRoutes(t *testing.T) {
	s := newTestServer(t)
	owner := s.signUp(t, "owner")
	videoID := s.publish(t, owner, "clip")

	code, resp := s.do(t, http.MethodPost, "/api/v1/playlists", owner.Token, map[string]string{"name": "mix"})
	if code != http.StatusCreated {
		t.Fatalf("create playlist: %d %s", code, resp.Message)
	}
	playlistID := decodeData[struct {
		ID string `json:"id"`
	}](t, resp).ID

	for i := 0; i < 2; i++ {
		code, resp = s.do(t, http.MethodPatch, "/api/v1/playlists/add/"+videoID+"/"+playlistID, owner.Token, nil)
		if code != http.StatusOK {
			t.Fatalf("add video: %d %s", code, resp.Message)
		}
	}

	_, resp = s.do(t, http.MethodGet, "/api/v1/playlists/"+playlistID, "", nil)
	view := decodeData[struct {
		TotalVideos int `json:"totalVideos"`
	}](t, resp)
	if view.TotalVideos != 1 {
		t.Fatalf("expected idempotent add, got %d videos", view.TotalVideos)
	}

	_, resp = s.do(t, http.MethodGet, "/api/v1/playlists/user/"+owner.ID, "", nil)
	if got := decodeData[[]map[string]any](t, resp); len(got) != 1 {
		t.Fatalf("expected one playlist, got %v", got)
	}
}

func TestDashboardAndPagination(t *testing.T) {
	s := newTestServer(t)
	owner := s.signUp(t, "owner")
	for i := 0; i < 3; i++ {
		id := s.publish(t, owner, uuid.NewString())
		if code, _ := s.do(t, http.MethodPatch, "/api/v1/videos/"+id+"/views", "", nil); code != http.StatusUnauthorized {
			t.Fatalf("anonymous view increment: expected 401, got %d", code)
		}
		if code, _ := s.do(t, http.MethodPatch, "/api/v1/videos/"+id+"/views", owner.Token, nil); code != http.StatusOK {
			t.Fatalf("increment views: %d", code)
		}
	}

	code, resp := s.do(t, http.MethodGet, "/api/v1/dashboard/stats/"+owner.ID, "", nil)
	if code != http.StatusOK {
		t.Fatalf("stats: %d", code)
	}
	stats := decodeData[map[string]int64](t, resp)
	if stats["totalVideos"] != 3 || stats["totalViews"] != 3 || stats["totalSubscribers"] != 0 {
		t.Fatalf("unexpected stats %v", stats)
	}

	_, resp = s.do(t, http.MethodGet, "/api/v1/videos?page=2&limit=2&sortType=asc", "", nil)
	page := decodeData[struct {
		Items      []map[string]any `json:"items"`
		TotalCount int64            `json:"totalCount"`
		Page       int              `json:"page"`
	}](t, resp)
	if page.TotalCount != 3 || len(page.Items) != 1 || page.Page != 2 {
		t.Fatalf("unexpected page %+v", page)
	}

	code, resp = s.do(t, http.MethodGet, "/api/v1/videos?page=9223372036854775807&limit=10", "", nil)
	if code != http.StatusOK {
		t.Fatalf("huge page: expected 200, got %d (%s)", code, resp.Message)
	}
	page = decodeData[struct {
		Items      []map[string]any `json:"items"`
		TotalCount int64            `json:"totalCount"`
		Page       int              `json:"page"`
	}](t, resp)
	if page.TotalCount != 3 || len(page.Items) != 0 {
		t.Fatalf("expected an empty page past the end, got %+v", page)
	}
}

func TestGrammarCorrect(t *testing.T) {
	s := newTestServer(t)
	user := s.signUp(t, "writer")

	code, resp := s.do(t, http.MethodPost, "/api/v1/ai/grammar-correct", user.Token, map[string]string{"title": "helo"})
	if code != http.StatusOK || resp.Message != "Text corrected successfully" {
		t.Fatalf("unexpected response %d %s", code, resp.Message)
	}

	failing := newTestServer(t, func(d *Dependencies) {
		d.Assistant = stubAssistant{err: assist.ErrUnavailable}
	})
	writer := failing.signUp(t, "writer")
	code, _ = failing.do(t, http.MethodPost, "/api/v1/ai/grammar-correct", writer.Token, map[string]string{"title": "helo"})
	if code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) {
		d.LoginLimiter = middleware.NewIPRateLimiter(1, time.Hour, 1, time.Hour)
	})

	body := map[string]string{"username": "nobody", "password": "secret1"}
	if code, _ := s.do(t, http.MethodPost, "/api/v1/users/login", "", body); code != http.StatusUnauthorized {
		t.Fatalf("expected first attempt to reach the service, got %d", code)
	}
	if code, _ := s.do(t, http.MethodPost, "/api/v1/users/login", "", body); code != http.StatusTooManyRequests {
		t.Fatalf("expected second attempt to be limited, got %d", code)
	}
}
