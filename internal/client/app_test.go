package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/coursepilot/internal/adapter/ai"
	"github.com/arturoeanton/coursepilot/internal/adapter/store"
	"github.com/arturoeanton/coursepilot/internal/client/authgate"
	"github.com/arturoeanton/coursepilot/internal/client/browser"
	"github.com/arturoeanton/coursepilot/internal/client/storage"
	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/handler"
	"github.com/arturoeanton/coursepilot/internal/middleware"
	"github.com/arturoeanton/coursepilot/internal/port"
	"github.com/arturoeanton/coursepilot/internal/service"
)

type stubProvider struct{}

func (stubProvider) ProviderName() string       { return "github" }
func (stubProvider) AuthURL(state string) string { return "https://github.test/authorize?state=" + state }
func (stubProvider) ExchangeCode(context.Context, string) (*domain.TokenPair, error) {
	return &domain.TokenPair{AccessToken: "at"}, nil
}
func (stubProvider) GetUserProfile(context.Context, string) (*domain.User, error) {
	return &domain.User{Email: "ada@x.io", Name: "Ada", Provider: domain.ProviderGitHub, ProviderID: "1"}, nil
}

// newAPIServer runs the real course API on an httptest server.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewMemoryStore()
	authSvc := service.NewAuthService(port.AuthProviderRegistry{"github": stubProvider{}}, st,
		middleware.JWTConfig{Secret: "s", Issuer: "coursepilot", ExpiresIn: time.Hour}, middleware.NewDenylist())
	app := handler.NewApp(handler.Deps{
		AppName:     "test",
		FrontendURL: "http://app.test",
		Auth:        authSvc,
		Courses:     service.NewCourseService(ai.NewOutlineGenerator(), st),
		Store:       st,
	})
	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv
}

// oauthLanding walks the provider callback and returns the in-app URL the
// browser would land on.
func oauthLanding(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := noFollow.Get(srv.URL + "/api/auth/github/callback?code=c&state=github:s")
	require.NoError(t, err)
	resp.Body.Close()

	u, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth/callback", u.Path)
	return u.RequestURI()
}

func newApp(t *testing.T, srv *httptest.Server, start string) (*App, *storage.Memory, *browser.Location) {
	t.Helper()
	tokens := storage.NewMemory("")
	loc := browser.NewLocation(start)
	app := New(Config{
		APIURL:   srv.URL + "/api",
		Tokens:   tokens,
		Location: loc,
		External: &browser.Recorder{},
	})
	return app, tokens, loc
}

func TestApp_LoginCreateProgressLogout(t *testing.T) {
	srv := newAPIServer(t)
	app, tokens, loc := newApp(t, srv, oauthLanding(t, srv))
	ctx := context.Background()

	s, err := app.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.AuthAuthenticated, s.Status)
	assert.Equal(t, "Ada", s.User.Name)
	landed := loc.Current()
	assert.Equal(t, "/dashboard", landed.Path)
	assert.Empty(t, landed.Query().Get("token"))

	d, err := app.Guard(ctx, func(u domain.User) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, authgate.Allow, d)

	w := app.NewWizard()
	w.SetSubject("Distributed systems")
	require.NoError(t, w.Next())
	w.SetCategory("Technology")
	require.NoError(t, w.Next())
	require.NoError(t, w.SetDifficulty(domain.DifficultyAdvanced))
	course, err := w.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/course/"+course.ID, loc.Current().Path)

	listing := app.Progress.Courses()
	require.Len(t, listing, 1)
	assert.Equal(t, course.ID, listing[0].ID)

	for i, l := range course.Lessons[:2] {
		got, err := app.Progress.MarkComplete(ctx, course.ID, l.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PercentComplete(i+1, len(course.Lessons)), got.Progress.PercentComplete)
		assert.NoError(t, got.CheckProgress())
	}

	courses, err := app.Progress.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, courses[0].Progress.PercentComplete)

	app.Logout(ctx)
	assert.Equal(t, domain.AuthAnonymous, app.Session.Session().Status)
	tok, err := tokens.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Empty(t, app.Progress.Courses())
}

func TestApp_ExpiredTokenRedirectsToLogin(t *testing.T) {
	srv := newAPIServer(t)
	app, tokens, loc := newApp(t, srv, oauthLanding(t, srv))
	ctx := context.Background()

	_, err := app.Start(ctx)
	require.NoError(t, err)

	// The server-side session ends but the client still holds the token.
	require.NoError(t, app.Auth.Logout(ctx))
	loc.Navigate("/course/whatever")

	_, err = app.Progress.Fetch(ctx, "whatever")
	require.ErrorIs(t, err, port.ErrAuthExpired)
	assert.Equal(t, "/login", loc.Current().Path)
	tok, _ := tokens.Load(ctx)
	assert.Empty(t, tok)
}

func TestApp_StaleStoredTokenResolvesAnonymous(t *testing.T) {
	srv := newAPIServer(t)
	tokens := storage.NewMemory("garbage")
	loc := browser.NewLocation("/dashboard")
	app := New(Config{APIURL: srv.URL + "/api", Tokens: tokens, Location: loc, External: &browser.Recorder{}})
	ctx := context.Background()

	s, err := app.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AuthAnonymous, s.Status)

	d, err := app.Guard(ctx, func(domain.User) error {
		t.Fatal("render must not run for anonymous sessions")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, authgate.RedirectToLogin, d)
	assert.Equal(t, "/login", loc.Current().Path)
}

func TestApp_ProgressPatchResetsCompletion(t *testing.T) {
	srv := newAPIServer(t)
	app, _, _ := newApp(t, srv, oauthLanding(t, srv))
	ctx := context.Background()

	_, err := app.Start(ctx)
	require.NoError(t, err)

	course, err := app.Courses.Generate(ctx, domain.GenerateInput{
		Subject: "Compilers", Category: "Programming", Difficulty: domain.DifficultyBeginner,
	})
	require.NoError(t, err)
	_, err = app.Progress.Fetch(ctx, course.ID)
	require.NoError(t, err)

	done, err := app.Progress.MarkComplete(ctx, course.ID, course.Lessons[0].ID)
	require.NoError(t, err)
	require.Len(t, done.Progress.CompletedLessons, 1)

	cur := course.Lessons[0].ID
	kept, err := app.Progress.UpdateProgress(ctx, course.ID, domain.ProgressPatch{CurrentLessonID: &cur})
	require.NoError(t, err)
	assert.Len(t, kept.Progress.CompletedLessons, 1, "absent completedLessons leaves completion alone")

	reset, err := app.Progress.UpdateProgress(ctx, course.ID, domain.ProgressPatch{CompletedLessons: []string{}})
	require.NoError(t, err)
	assert.Empty(t, reset.Progress.CompletedLessons)
	assert.Equal(t, 0, reset.Progress.PercentComplete)
	assert.NoError(t, reset.CheckProgress())
}
