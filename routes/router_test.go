package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/repositories"
	"github.com/yatube/yatube/utils"
)

// thirteen posts leave this many on the second page
const postsOnLastPage = 3

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type testApp struct {
	router    *gin.Engine
	db        *gorm.DB
	repos     *repositories.Repositories
	store     *utils.MemoryCache
	mediaRoot string
}

type envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func newTestApp(t *testing.T, mutate ...func(*config.AppConfig)) *testApp {
	t.Helper()
	dir := t.TempDir()
	cfg := config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		DBDriver:           "sqlite",
		SQLitePath:         filepath.Join(dir, "test.db"),
		CacheBackend:       "memory",
		MediaRoot:          filepath.Join(dir, "media"),
		RateLimitPerMinute: 1000,
		LogLevel:           "silent",
		AdminUsernames:     []string{"root"},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	cfg = config.Set(cfg)
	utils.SetRedis(nil)

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := utils.NewMemoryCache()
	return &testApp{
		router:    SetupRouter(db, store),
		db:        db,
		repos:     repositories.New(db),
		store:     store,
		mediaRoot: cfg.MediaRoot,
	}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// user creates an account and returns it with a bearer token.
func (a *testApp) user(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	u := &models.User{Username: username}
	if err := a.repos.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := utils.GenerateToken(u.ID, u.Username, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return u, token
}

func (a *testApp) group(t *testing.T, title, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: title, Slug: slug}
	if err := a.repos.Groups.Create(context.Background(), g); err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}

func (a *testApp) post(t *testing.T, author *models.User, text string, group *models.Group) *models.Post {
	t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	if err := a.repos.Posts.Create(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func (a *testApp) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := a.db.Model(model).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func get(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func postForm(path, token string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func postMultipart(t *testing.T, path, token string, fields map[string]string, filename string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(file)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func postsOf(t *testing.T, env envelope) []map[string]interface{} {
	t.Helper()
	raw, ok := env.Data["posts"].([]interface{})
	if !ok {
		t.Fatalf("no posts in %v", env.Data)
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.(map[string]interface{}))
	}
	return out
}

func TestRootAndHealth(t *testing.T) {
	app := newTestApp(t)

	w := app.do(get("/", ""))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/posts/" {
		t.Fatalf("root: %d %q", w.Code, w.Header().Get("Location"))
	}
	if w := app.do(get("/health", "")); w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	if w := app.do(get("/nowhere/", "")); w.Code != http.StatusNotFound {
		t.Fatalf("unknown route: %d", w.Code)
	}
}

func TestFeedsPaginate(t *testing.T) {
	app := newTestApp(t)
	author, _ := app.user(t, "leo")
	group := app.group(t, "Cats", "cats")
	for i := 0; i < 13; i++ {
		app.post(t, author, fmt.Sprintf("post number %d", i), group)
	}

	for _, path := range []string{"/posts/", "/posts/group/cats/", "/posts/profile/leo/"} {
		first := decode(t, app.do(get(path, "")))
		if n := len(postsOf(t, first)); n != utils.PostsPerPage {
			t.Fatalf("%s page 1: %d posts", path, n)
		}
		second := decode(t, app.do(get(path+"?page=2", "")))
		if n := len(postsOf(t, second)); n != postsOnLastPage {
			t.Fatalf("%s page 2: %d posts", path, n)
		}
		past := decode(t, app.do(get(path+"?page=99", "")))
		if n := len(postsOf(t, past)); n != postsOnLastPage {
			t.Fatalf("%s page 99: %d posts", path, n)
		}
		if number := past.Data["page_obj"].(map[string]interface{})["number"]; number != float64(2) {
			t.Fatalf("%s page 99 resolved to page %v", path, number)
		}
	}

	env := decode(t, app.do(get("/posts/", "")))
	if env.Data["view"] != "posts/index.html" {
		t.Fatalf("view %v", env.Data["view"])
	}
	newest := postsOf(t, env)[0]
	if newest["text"] != "post number 12" {
		t.Fatalf("newest first, got %v", newest["text"])
	}
	pageObj := env.Data["page_obj"].(map[string]interface{})
	if pageObj["num_pages"].(float64) != 2 || pageObj["has_next"] != true {
		t.Fatalf("page_obj %v", pageObj)
	}
}

func TestIndexCachedUntilCleared(t *testing.T) {
	app := newTestApp(t)
	author, _ := app.user(t, "leo")
	p := app.post(t, author, "soon deleted", nil)

	if body := app.do(get("/posts/", "")).Body.String(); !strings.Contains(body, "soon deleted") {
		t.Fatalf("post missing from index: %s", body)
	}
	if err := app.repos.Posts.Delete(context.Background(), p.ID); err != nil {
		t.Fatal(err)
	}

	w := app.do(get("/posts/", ""))
	if !strings.Contains(w.Body.String(), "soon deleted") || w.Header().Get("X-Cache") != "HIT" {
		t.Fatal("index not served from cache after delete")
	}

	_ = app.store.Clear(context.Background())
	if body := app.do(get("/posts/", "")).Body.String(); strings.Contains(body, "soon deleted") {
		t.Fatal("deleted post still shown after cache clear")
	}
}

func TestGroupIsolation(t *testing.T) {
	app := newTestApp(t)
	author, _ := app.user(t, "leo")
	cats := app.group(t, "Cats", "cats")
	app.group(t, "Dogs", "dogs")
	app.post(t, author, "about cats", cats)

	if n := len(postsOf(t, decode(t, app.do(get("/posts/group/cats/", ""))))); n != 1 {
		t.Fatalf("cats: %d posts", n)
	}
	if n := len(postsOf(t, decode(t, app.do(get("/posts/group/dogs/", ""))))); n != 0 {
		t.Fatalf("dogs: %d posts", n)
	}
	if w := app.do(get("/posts/group/birds/", "")); w.Code != http.StatusNotFound {
		t.Fatalf("missing group: %d", w.Code)
	}
}

func TestProfileAndDetail(t *testing.T) {
	app := newTestApp(t)
	author, _ := app.user(t, "leo")
	reader, readerToken := app.user(t, "ann")
	p := app.post(t, author, "hello world", nil)
	app.post(t, author, "second", nil)
	_ = app.repos.Comments.Create(context.Background(), &models.Comment{PostID: p.ID, AuthorID: reader.ID, Text: "first comment"})

	env := decode(t, app.do(get("/posts/profile/leo/", readerToken)))
	if env.Data["posts_number"].(float64) != 2 || env.Data["following"] != false {
		t.Fatalf("profile %v", env.Data)
	}
	if _, err := app.repos.Follows.Follow(context.Background(), reader.ID, author.ID); err != nil {
		t.Fatal(err)
	}
	env = decode(t, app.do(get("/posts/profile/leo/", readerToken)))
	if env.Data["following"] != true {
		t.Fatal("following flag not set")
	}
	env = decode(t, app.do(get("/posts/profile/leo/", "")))
	if env.Data["following"] != false {
		t.Fatal("anonymous viewer follows someone")
	}

	env = decode(t, app.do(get(fmt.Sprintf("/posts/%d/", p.ID), "")))
	post := env.Data["post"].(map[string]interface{})
	if post["text"] != "hello world" || env.Data["posts_number"].(float64) != 2 {
		t.Fatalf("detail %v", env.Data)
	}
	comments := env.Data["comments"].([]interface{})
	if len(comments) != 1 || comments[0].(map[string]interface{})["text"] != "first comment" {
		t.Fatalf("comments %v", comments)
	}
	if _, ok := env.Data["form"]; !ok {
		t.Fatal("detail has no comment form")
	}

	for _, path := range []string{"/posts/999/", "/posts/abc/", "/posts/profile/nobody/"} {
		if w := app.do(get(path, "")); w.Code != http.StatusNotFound {
			t.Fatalf("%s: %d", path, w.Code)
		}
	}
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)
	author, _ := app.user(t, "leo")
	p := app.post(t, author, "text", nil)

	cases := []*http.Request{
		get("/posts/create/", ""),
		get("/posts/follow/", ""),
		get(fmt.Sprintf("/posts/%d/edit/", p.ID), ""),
		get("/posts/profile/leo/follow/", ""),
		postForm(fmt.Sprintf("/posts/%d/comment/", p.ID), "", url.Values{"text": {"hi"}}),
	}
	for _, req := range cases {
		w := app.do(req)
		want := "/auth/login/?next=" + url.QueryEscape(req.URL.RequestURI())
		if w.Code != http.StatusFound || w.Header().Get("Location") != want {
			t.Fatalf("%s %s: %d %q", req.Method, req.URL, w.Code, w.Header().Get("Location"))
		}
	}
	if n := app.count(t, &models.Comment{}); n != 0 {
		t.Fatalf("anonymous comment stored")
	}
}

func TestCreatePostWithImage(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "leo")
	group := app.group(t, "Cats", "cats")

	env := decode(t, app.do(get("/posts/create/", token)))
	if env.Data["view"] != "posts/create_post.html" || env.Data["is_edit"] != false {
		t.Fatalf("create form %v", env.Data)
	}

	req := postMultipart(t, "/posts/create/", token,
		map[string]string{"text": "picture post", "group": fmt.Sprint(group.ID)}, "small.gif", smallGIF)
	w := app.do(req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/posts/profile/leo/" {
		t.Fatalf("create: %d %q %s", w.Code, w.Header().Get("Location"), w.Body.String())
	}

	var posts []models.Post
	app.db.Find(&posts)
	if len(posts) != 1 {
		t.Fatalf("%d posts stored", len(posts))
	}
	got := posts[0]
	if got.Text != "picture post" || got.GroupID == nil || *got.GroupID != group.ID {
		t.Fatalf("stored post %+v", got)
	}
	if !strings.HasPrefix(got.Image, "posts/") {
		t.Fatalf("image %q", got.Image)
	}
	if _, err := os.Stat(filepath.Join(app.mediaRoot, filepath.FromSlash(got.Image))); err != nil {
		t.Fatalf("image file: %v", err)
	}

	served := app.do(get("/media/"+got.Image, ""))
	if served.Code != http.StatusOK || !bytes.Equal(served.Body.Bytes(), smallGIF) {
		t.Fatalf("media not served: %d", served.Code)
	}
}

func TestCreatePostInvalid(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "leo")

	w := app.do(postForm("/posts/create/", token, url.Values{"text": {"  "}}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	env := decode(t, w)
	errs := env.Data["errors"].(map[string]interface{})
	if _, ok := errs["text"]; !ok {
		t.Fatalf("errors %v", errs)
	}

	w = app.do(postForm("/posts/create/", token, url.Values{"text": {"ok"}, "group": {"404"}}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown group status %d", w.Code)
	}

	w = app.do(postMultipart(t, "/posts/create/", token, map[string]string{"text": "fake"}, "fake.gif", []byte("not an image at all")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non image status %d", w.Code)
	}

	if n := app.count(t, &models.Post{}); n != 0 {
		t.Fatalf("%d posts stored from invalid forms", n)
	}
}

func TestEditPost(t *testing.T) {
	app := newTestApp(t)
	author, token := app.user(t, "leo")
	group := app.group(t, "Cats", "cats")
	p := app.post(t, author, "original", group)

	env := decode(t, app.do(get(fmt.Sprintf("/posts/%d/edit/", p.ID), token)))
	form := env.Data["form"].(map[string]interface{})
	if env.Data["is_edit"] != true || form["text"] != "original" {
		t.Fatalf("edit form %v", env.Data)
	}

	path := fmt.Sprintf("/posts/%d/edit/", p.ID)
	w := app.do(postForm(path, token, url.Values{"text": {"edited"}, "group": {fmt.Sprint(group.ID)}}))
	if w.Code != http.StatusFound || w.Header().Get("Location") != fmt.Sprintf("/posts/%d/", p.ID) {
		t.Fatalf("edit: %d %q", w.Code, w.Header().Get("Location"))
	}

	got, err := app.repos.Posts.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "edited" || got.AuthorID != author.ID || got.GroupID == nil || got.PubDate.Unix() != p.PubDate.Unix() {
		t.Fatalf("edited post %+v", got)
	}
	if n := app.count(t, &models.Post{}); n != 1 {
		t.Fatalf("%d posts after edit", n)
	}

	w = app.do(postForm(path, token, url.Values{"text": {""}}))
	if w.Code != http.StatusBadRequest || decode(t, w).Data["is_edit"] != true {
		t.Fatalf("invalid edit: %d", w.Code)
	}
	if w := app.do(get("/posts/999/edit/", token)); w.Code != http.StatusNotFound {
		t.Fatalf("missing post edit: %d", w.Code)
	}
}

func TestEditOwnership(t *testing.T) {
	app := newTestApp(t)
	author, _ := app.user(t, "leo")
	_, otherToken := app.user(t, "ann")
	p := app.post(t, author, "original", nil)
	path := fmt.Sprintf("/posts/%d/edit/", p.ID)

	// any signed-in user may edit by default
	if w := app.do(postForm(path, otherToken, url.Values{"text": {"by ann"}})); w.Code != http.StatusFound {
		t.Fatalf("default edit: %d", w.Code)
	}

	strict := newTestApp(t, func(c *config.AppConfig) { c.EnforceEditOwnership = true })
	author, _ = strict.user(t, "leo")
	_, otherToken = strict.user(t, "ann")
	p = strict.post(t, author, "original", nil)
	path = fmt.Sprintf("/posts/%d/edit/", p.ID)
	if w := strict.do(postForm(path, otherToken, url.Values{"text": {"by ann"}})); w.Code != http.StatusForbidden {
		t.Fatalf("enforced edit: %d", w.Code)
	}
}

func TestAddComment(t *testing.T) {
	app := newTestApp(t)
	author, token := app.user(t, "leo")
	p := app.post(t, author, "commented", nil)
	path := fmt.Sprintf("/posts/%d/comment/", p.ID)
	detail := fmt.Sprintf("/posts/%d/", p.ID)

	w := app.do(postForm(path, token, url.Values{"text": {"great post"}}))
	if w.Code != http.StatusFound || w.Header().Get("Location") != detail {
		t.Fatalf("comment: %d %q", w.Code, w.Header().Get("Location"))
	}
	if n := app.count(t, &models.Comment{}); n != 1 {
		t.Fatalf("%d comments", n)
	}
	if !strings.Contains(app.do(get(detail, "")).Body.String(), "great post") {
		t.Fatal("comment not on detail page")
	}

	w = app.do(postForm(path, token, url.Values{"text": {""}}))
	if w.Code != http.StatusFound || w.Header().Get("Location") != detail {
		t.Fatalf("invalid comment: %d", w.Code)
	}
	if n := app.count(t, &models.Comment{}); n != 1 {
		t.Fatalf("invalid comment stored, %d comments", n)
	}

	if w := app.do(postForm("/posts/999/comment/", token, url.Values{"text": {"x"}})); w.Code != http.StatusNotFound {
		t.Fatalf("comment on missing post: %d", w.Code)
	}
}

func TestFollowFlow(t *testing.T) {
	app := newTestApp(t)
	author, authorToken := app.user(t, "leo")
	_, readerToken := app.user(t, "ann")
	_, strangerToken := app.user(t, "bob")
	app.post(t, author, "for my followers", nil)

	for i := 0; i < 2; i++ {
		w := app.do(get("/posts/profile/leo/follow/", readerToken))
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/posts/follow/" {
			t.Fatalf("follow: %d %q", w.Code, w.Header().Get("Location"))
		}
	}
	if n := app.count(t, &models.Follow{}); n != 1 {
		t.Fatalf("%d follow rows after double follow", n)
	}

	// self-follow is skipped
	app.do(get("/posts/profile/leo/follow/", authorToken))
	if n := app.count(t, &models.Follow{}); n != 1 {
		t.Fatalf("self follow stored")
	}

	if n := len(postsOf(t, decode(t, app.do(get("/posts/follow/", readerToken))))); n != 1 {
		t.Fatalf("follower feed has %d posts", n)
	}
	if n := len(postsOf(t, decode(t, app.do(get("/posts/follow/", strangerToken))))); n != 0 {
		t.Fatalf("stranger feed has %d posts", n)
	}

	// unfollowing someone not followed changes nothing
	if w := app.do(get("/posts/profile/leo/unfollow/", strangerToken)); w.Code != http.StatusFound {
		t.Fatalf("silent unfollow: %d", w.Code)
	}
	if n := app.count(t, &models.Follow{}); n != 1 {
		t.Fatalf("%d follow rows", n)
	}

	app.do(get("/posts/profile/leo/unfollow/", readerToken))
	if n := app.count(t, &models.Follow{}); n != 0 {
		t.Fatalf("%d follow rows after unfollow", n)
	}

	if w := app.do(get("/posts/profile/nobody/follow/", readerToken)); w.Code != http.StatusNotFound {
		t.Fatalf("follow missing author: %d", w.Code)
	}
}

func TestSignupLoginLogout(t *testing.T) {
	app := newTestApp(t)

	w := app.do(postForm("/auth/signup/", "", url.Values{
		"username": {"leo"}, "email": {"leo@example.com"}, "password": {"longenough"}, "confirm": {"longenough"},
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}
	if len(w.Result().Cookies()) == 0 {
		t.Fatal("signup set no cookie")
	}

	w = app.do(postForm("/auth/signup/", "", url.Values{
		"username": {"leo"}, "password": {"longenough"}, "confirm": {"longenough"},
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: %d", w.Code)
	}

	if w := app.do(postForm("/auth/login/", "", url.Values{"username": {"leo"}, "password": {"wrong-pass"}})); w.Code != http.StatusBadRequest {
		t.Fatalf("bad password: %d", w.Code)
	}

	w = app.do(postForm("/auth/login/", "", url.Values{"username": {"leo"}, "password": {"longenough"}, "next": {"/posts/create/"}}))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/posts/create/" {
		t.Fatalf("login with next: %d %q", w.Code, w.Header().Get("Location"))
	}

	w = app.do(postForm("/auth/login/", "", url.Values{"username": {"leo"}, "password": {"longenough"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d", w.Code)
	}
	token, _ := decode(t, w).Data["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	if w := app.do(get("/posts/follow/", token)); w.Code != http.StatusOK {
		t.Fatalf("token rejected: %d", w.Code)
	}

	logout := postForm("/auth/logout/", token, url.Values{})
	if w := app.do(logout); w.Code != http.StatusOK {
		t.Fatalf("logout: %d", w.Code)
	}
	if w := app.do(get("/posts/follow/", token)); w.Code != http.StatusFound {
		t.Fatalf("revoked token still accepted: %d", w.Code)
	}

	env := decode(t, app.do(get("/auth/login/?next=/posts/follow/", "")))
	if env.Data["view"] != "users/login.html" {
		t.Fatalf("login form %v", env.Data)
	}
}

func TestOAuthRejectsUnknownState(t *testing.T) {
	app := newTestApp(t, func(c *config.AppConfig) {
		c.GitHubClientID = "id"
		c.GitHubClientSecret = "secret"
	})

	w := app.do(get("/auth/oauth/github/login/", ""))
	if w.Code != http.StatusFound || !strings.HasPrefix(w.Header().Get("Location"), "https://github.com/login/oauth/authorize") {
		t.Fatalf("oauth redirect: %d %q", w.Code, w.Header().Get("Location"))
	}
	if w := app.do(get("/auth/oauth/github/callback/?code=x&state=forged", "")); w.Code != http.StatusBadRequest {
		t.Fatalf("forged state: %d", w.Code)
	}
	if w := app.do(get("/auth/oauth/gitlab/login/", "")); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown provider: %d", w.Code)
	}
}

func TestAdminActions(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.user(t, "root")
	author, userToken := app.user(t, "leo")

	form := url.Values{"title": {"Cats"}, "slug": {"cats"}, "description": {"all about cats"}}
	if w := app.do(postForm("/admin/groups/", userToken, form)); w.Code != http.StatusForbidden {
		t.Fatalf("non admin: %d", w.Code)
	}
	if w := app.do(postForm("/admin/groups/", adminToken, form)); w.Code != http.StatusCreated {
		t.Fatalf("create group: %d %s", w.Code, w.Body.String())
	}
	if w := app.do(postForm("/admin/groups/", adminToken, form)); w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate slug: %d", w.Code)
	}
	if w := app.do(get("/posts/group/cats/", "")); w.Code != http.StatusOK {
		t.Fatalf("new group page: %d", w.Code)
	}

	p := app.post(t, author, "to remove", nil)
	if body := app.do(get("/posts/", "")).Body.String(); !strings.Contains(body, "to remove") {
		t.Fatal("post missing from index")
	}
	path := fmt.Sprintf("/admin/posts/%d/delete/", p.ID)
	if w := app.do(postForm(path, adminToken, url.Values{})); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if body := app.do(get("/posts/", "")).Body.String(); strings.Contains(body, "to remove") {
		t.Fatal("moderated post still on the cached index")
	}
	if w := app.do(get(fmt.Sprintf("/posts/%d/", p.ID), "")); w.Code != http.StatusNotFound {
		t.Fatalf("deleted post still visible: %d", w.Code)
	}
	if w := app.do(postForm(path, adminToken, url.Values{})); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", w.Code)
	}
}

func TestSignupCannotShadowAdmin(t *testing.T) {
	app := newTestApp(t)
	app.user(t, "root")

	w := app.do(postForm("/auth/signup/", "", url.Values{
		"username": {"ROOT"}, "password": {"longenough"}, "confirm": {"longenough"},
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w).Data["token"].(string)

	form := url.Values{"title": {"Mine"}, "slug": {"mine"}}
	if w := app.do(postForm("/admin/groups/", token, form)); w.Code != http.StatusForbidden {
		t.Fatalf("look-alike admin: %d", w.Code)
	}
	if n := app.count(t, &models.Group{}); n != 0 {
		t.Fatalf("%d groups created", n)
	}
}

func TestUploadStoredUnderSniffedType(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "leo")

	polyglot := append(append([]byte{}, smallGIF...), []byte("<html><script>alert(1)</script></html>")...)
	w := app.do(postMultipart(t, "/posts/create/", token, map[string]string{"text": "sneaky"}, "evil.html", polyglot))
	if w.Code != http.StatusFound {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	var post models.Post
	if err := app.db.First(&post).Error; err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(post.Image) != ".gif" {
		t.Fatalf("stored as %q", post.Image)
	}
	served := app.do(get("/media/"+post.Image, ""))
	if ct := served.Header().Get("Content-Type"); ct != "image/gif" {
		t.Fatalf("served as %q", ct)
	}

	w = app.do(postMultipart(t, "/posts/create/", token, map[string]string{"text": "vector"}, "pic.svg",
		[]byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("svg upload: %d", w.Code)
	}
}

func TestPostTextStoredAsSubmitted(t *testing.T) {
	app := newTestApp(t)
	author, token := app.user(t, "leo")

	if w := app.do(postForm("/posts/create/", token, url.Values{"text": {"Tom & Jerry <3"}})); w.Code != http.StatusFound {
		t.Fatalf("create: %d", w.Code)
	}
	var post models.Post
	if err := app.db.First(&post).Error; err != nil {
		t.Fatal(err)
	}
	if post.Text != "Tom & Jerry <3" || post.AuthorID != author.ID {
		t.Fatalf("stored text %q", post.Text)
	}

	detail := fmt.Sprintf("/posts/%d/", post.ID)
	app.do(postForm(detail+"comment/", token, url.Values{"text": {"a < b && c"}}))
	env := decode(t, app.do(get(detail, "")))
	shown := env.Data["post"].(map[string]interface{})
	if shown["text"] != "Tom & Jerry <3" || shown["text_html"] != "Tom &amp; Jerry &lt;3" {
		t.Fatalf("presented %v / %v", shown["text"], shown["text_html"])
	}
	comment := env.Data["comments"].([]interface{})[0].(map[string]interface{})
	if comment["text"] != "a < b && c" {
		t.Fatalf("comment %v", comment["text"])
	}

	w := app.do(postForm(detail+"edit/", token, url.Values{"text": {"Tom & Jerry <3 again"}}))
	if w.Code != http.StatusFound {
		t.Fatalf("edit: %d", w.Code)
	}
	got, _ := app.repos.Posts.GetByID(context.Background(), post.ID)
	if got.Text != "Tom & Jerry <3 again" {
		t.Fatalf("edited text %q", got.Text)
	}
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	app := newTestApp(t)
	w := app.do(postForm("/auth/signup/", "", url.Values{
		"username": {"leo"}, "password": {"longenough"}, "confirm": {"longenough"},
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d", w.Code)
	}

	for _, next := range []string{`/\evil.example`, "//evil.example", "https://evil.example/"} {
		w := app.do(postForm("/auth/login/", "", url.Values{"username": {"leo"}, "password": {"longenough"}, "next": {next}}))
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/posts/" {
			t.Fatalf("next %q: %d %q", next, w.Code, w.Header().Get("Location"))
		}
	}
}
