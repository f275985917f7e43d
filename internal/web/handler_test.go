// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Membergate Contributors

package web_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/membergate/membergate/internal/auth"
	"github.com/membergate/membergate/internal/auth/memstore"
	"github.com/membergate/membergate/internal/auth/mocks"
	"github.com/membergate/membergate/internal/web"
)

const sessionTTL = time.Hour

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable session clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	handler http.Handler
	service *auth.Service
	users   auth.UserRepository
	clock   *fakeClock
}

func newFixture(t *testing.T, users auth.UserRepository, opts ...web.Option) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	manager, err := auth.NewSessionManager(memstore.NewSessionRepository(), sessionTTL,
		auth.WithClock(clock.Now),
		auth.WithSessionLogger(discardLogger()))
	require.NoError(t, err)
	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	service, err := auth.NewService(users, manager, hasher, auth.WithLogger(discardLogger()))
	require.NoError(t, err)

	opts = append([]web.Option{web.WithHandlerLogger(discardLogger())}, opts...)
	h, err := web.NewHandler(service, opts...)
	require.NoError(t, err)

	return &fixture{handler: h.Routes(), service: service, users: users, clock: clock}
}

func newMemFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, memstore.NewUserRepository())
}

// browser carries the session cookie between requests.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func (f *fixture) browser(t *testing.T) *browser {
	return &browser{t: t, handler: f.handler}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}

	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name != web.DefaultCookieName {
			continue
		}
		if c.MaxAge < 0 {
			b.cookie = nil
		} else {
			b.cookie = c
		}
	}
	return rec
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil)
}

func (b *browser) register(username, email, password string) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, "/submitUser", url.Values{
		"username": {username}, "email": {email}, "password": {password},
	})
}

func (b *browser) login(email, password string) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, "/loggingin", url.Values{
		"email": {email}, "password": {password},
	})
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, location, rec.Header().Get("Location"))
}

func privilegeOf(t *testing.T, users auth.UserRepository, email string) auth.Privilege {
	t.Helper()
	found, err := users.FindByField(context.Background(), auth.FieldEmail, email)
	require.NoError(t, err)
	require.Len(t, found, 1)
	return found[0].Privilege
}

func TestHandler_AliceScenario(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	alice := f.browser(t)
	rec := alice.register("alice", "alice@x.com", "pw12345")
	assertRedirect(t, rec, "/")
	require.NotNil(t, alice.cookie)
	assert.True(t, alice.cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, alice.cookie.SameSite)
	assert.Equal(t, int(sessionTTL.Seconds()), alice.cookie.MaxAge)

	home := alice.get("/")
	assert.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Hello, alice!")
	assert.Equal(t, auth.PrivilegeStandard, privilegeOf(t, f.users, "alice@x.com"))

	visitor := f.browser(t)
	rec = visitor.login("alice@x.com", "wrongpw")
	assertRedirect(t, rec, "/login?failed=1")
	assert.Nil(t, visitor.cookie)
	assert.NotContains(t, visitor.get("/").Body.String(), "Hello, alice")

	rec = visitor.login("alice@x.com", "pw12345")
	assertRedirect(t, rec, "/")
	require.NotNil(t, visitor.cookie)
	assert.Contains(t, visitor.get("/members").Body.String(), "Hello, alice.")

	rec = visitor.get("/promote?email=" + url.QueryEscape("alice@x.com"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, auth.PrivilegeStandard, privilegeOf(t, f.users, "alice@x.com"))

	root := f.browser(t)
	assertRedirect(t, root.register("root", "root@x.com", "rootpw"), "/")
	require.NoError(t, f.service.AssignPrivilege(ctx, "root@x.com", auth.PrivilegeAdmin))

	rec = root.get("/promote?email=" + url.QueryEscape("alice@x.com"))
	assertRedirect(t, rec, "/admin")
	assert.Equal(t, auth.PrivilegeAdmin, privilegeOf(t, f.users, "alice@x.com"))

	// alice's existing session passes the fresh store check
	listing := visitor.get("/admin")
	assert.Equal(t, http.StatusOK, listing.Code)
	assert.Contains(t, listing.Body.String(), "root@x.com")
}

func TestHandler_DuplicateRegistration(t *testing.T) {
	f := newMemFixture(t)

	assertRedirect(t, f.browser(t).register("alice", "alice@x.com", "pw12345"), "/")

	second := f.browser(t)
	assertRedirect(t, second.register("alice", "other@x.com", "pw12345"), "/createUser?exists=1")
	assert.Nil(t, second.cookie)
	assertRedirect(t, second.register("bob", "alice@x.com", "pw12345"), "/createUser?exists=1")

	all, err := f.users.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	page := second.get("/createUser?exists=1")
	assert.Contains(t, page.Body.String(), "already registered")
}

func TestHandler_InvalidRegistration(t *testing.T) {
	f := newMemFixture(t)
	b := f.browser(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{"non alphanumeric username", url.Values{"username": {"al ice"}, "email": {"a@x.com"}, "password": {"pw"}}},
		{"long password", url.Values{"username": {"alice"}, "email": {"a@x.com"}, "password": {strings.Repeat("p", 21)}}},
		{"bad email", url.Values{"username": {"alice"}, "email": {"not-an-email"}, "password": {"pw"}}},
		{"missing field", url.Values{"username": {"alice"}, "password": {"pw"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := b.do(http.MethodPost, "/submitUser", tt.form)
			assertRedirect(t, rec, "/createUser?invalid=1")
		})
	}

	page := b.get("/createUser?invalid=1")
	assert.Contains(t, page.Body.String(), "Invalid input")
}

func TestHandler_InjectionNeverReachesStore(t *testing.T) {
	// The mock has no expectations: any repository call fails the test.
	users := mocks.NewMockUserRepository(t)
	f := newFixture(t, users)
	b := f.browser(t)

	t.Run("lookup operator", func(t *testing.T) {
		q := url.Values{"user[$ne]": {"name"}}
		rec := b.get("/nosql-injection?" + q.Encode())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "NoSQL injection attack was detected")
	})

	t.Run("lookup array", func(t *testing.T) {
		q := url.Values{"user[]": {"a", "b"}}
		rec := b.get("/nosql-injection?" + q.Encode())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("lookup too long", func(t *testing.T) {
		q := url.Values{"user": {strings.Repeat("a", 21)}}
		rec := b.get("/nosql-injection?" + q.Encode())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("register operator", func(t *testing.T) {
		rec := b.do(http.MethodPost, "/submitUser", url.Values{
			"username[$ne]": {"x"}, "email": {"a@x.com"}, "password": {"pw"},
		})
		assertRedirect(t, rec, "/createUser?invalid=1")
	})

	t.Run("login operator", func(t *testing.T) {
		rec := b.do(http.MethodPost, "/loggingin", url.Values{
			"email[$gt]": {""}, "password": {"pw"},
		})
		assertRedirect(t, rec, "/login?failed=1")
	})

	users.AssertNotCalled(t, "FindByField", mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "FindByEitherOf", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestHandler_Lookup(t *testing.T) {
	f := newMemFixture(t)
	b := f.browser(t)

	rec := b.get("/nosql-injection")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No user provided")

	rec = b.get("/nosql-injection?user=bob")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello bob")

	q := url.Values{"user": {"<script>"}}
	rec = b.get("/nosql-injection?" + q.Encode())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestHandler_AnonymousGates(t *testing.T) {
	f := newMemFixture(t)
	b := f.browser(t)

	assertRedirect(t, b.get("/members"), "/")
	assertRedirect(t, b.get("/admin"), "/login")
	assertRedirect(t, b.get("/promote?email=a%40x.com"), "/login")
	assertRedirect(t, b.get("/demote?email=a%40x.com"), "/login")
}

func TestHandler_ExpiredSessionIsAnonymous(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	admin := f.browser(t)
	assertRedirect(t, admin.register("root", "root@x.com", "rootpw"), "/")
	require.NoError(t, f.service.AssignPrivilege(ctx, "root@x.com", auth.PrivilegeAdmin))
	assert.Equal(t, http.StatusOK, admin.get("/admin").Code)

	f.clock.Advance(sessionTTL)

	rec := admin.get("/admin")
	assertRedirect(t, rec, "/login")
	assert.Nil(t, admin.cookie, "stale cookie is cleared")
	assertRedirect(t, admin.get("/members"), "/")
}

func TestHandler_Logout(t *testing.T) {
	f := newMemFixture(t)
	b := f.browser(t)

	assertRedirect(t, b.register("alice", "alice@x.com", "pw12345"), "/")
	stolen := *b.cookie

	assertRedirect(t, b.get("/logout"), "/")
	assert.Nil(t, b.cookie)
	assertRedirect(t, b.get("/members"), "/")

	// the old token is dead server-side too
	replay := f.browser(t)
	replay.cookie = &stolen
	assertRedirect(t, replay.get("/members"), "/")

	// anonymous logout is a no-op
	assertRedirect(t, f.browser(t).get("/logout"), "/")
}

func TestHandler_LoginReplacesSession(t *testing.T) {
	f := newMemFixture(t)
	b := f.browser(t)

	assertRedirect(t, b.register("alice", "alice@x.com", "pw12345"), "/")
	first := *b.cookie

	assertRedirect(t, b.login("alice@x.com", "pw12345"), "/")
	require.NotNil(t, b.cookie)
	assert.NotEqual(t, first.Value, b.cookie.Value)

	old := f.browser(t)
	old.cookie = &first
	assertRedirect(t, old.get("/members"), "/")
}

func TestHandler_PromoteDemote(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	root := f.browser(t)
	assertRedirect(t, root.register("root", "root@x.com", "rootpw"), "/")
	require.NoError(t, f.service.AssignPrivilege(ctx, "root@x.com", auth.PrivilegeAdmin))
	assertRedirect(t, f.browser(t).register("bob", "bob@x.com", "bobpw"), "/")

	// demote on a never-promoted user is a no-op
	assertRedirect(t, root.get("/demote?email=bob%40x.com"), "/admin")
	assert.Equal(t, auth.PrivilegeStandard, privilegeOf(t, f.users, "bob@x.com"))

	assertRedirect(t, root.get("/promote?email=bob%40x.com"), "/admin")
	assertRedirect(t, root.get("/promote?email=bob%40x.com"), "/admin")
	assert.Equal(t, auth.PrivilegeAdmin, privilegeOf(t, f.users, "bob@x.com"))

	assertRedirect(t, root.get("/demote?email=bob%40x.com"), "/admin")
	assert.Equal(t, auth.PrivilegeStandard, privilegeOf(t, f.users, "bob@x.com"))

	// unknown and malformed targets return to the listing
	assertRedirect(t, root.get("/promote?email=ghost%40x.com"), "/admin")
	assertRedirect(t, root.get("/promote?email%5B%24ne%5D=x"), "/admin")

	listing := root.get("/admin")
	assert.Equal(t, http.StatusOK, listing.Code)
	assert.Contains(t, listing.Body.String(), "bob@x.com")
	assert.NotContains(t, listing.Body.String(), "$2a$")
}

func TestHandler_DemotionTakesEffectImmediately(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()

	b := f.browser(t)
	assertRedirect(t, b.register("root", "root@x.com", "rootpw"), "/")
	require.NoError(t, f.service.AssignPrivilege(ctx, "root@x.com", auth.PrivilegeAdmin))
	assert.Equal(t, http.StatusOK, b.get("/admin").Code)

	require.NoError(t, f.service.AssignPrivilege(ctx, "root@x.com", auth.PrivilegeStandard))
	assert.Equal(t, http.StatusForbidden, b.get("/admin").Code)
}

func TestHandler_StoreFailureRendersGenericError(t *testing.T) {
	users := mocks.NewMockUserRepository(t)
	users.On("FindByEitherOf", mock.Anything, auth.FieldUsername, "alice", auth.FieldEmail, "alice@x.com").
		Return(nil, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	f := newFixture(t, users)

	rec := f.browser(t).register("alice", "alice@x.com", "pw12345")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong")
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestHandler_NotFound(t *testing.T) {
	f := newMemFixture(t)
	b := f.browser(t)

	for _, target := range []string{"/nope", "/cats/1", "/admin/extra"} {
		rec := b.get(target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Page not found")
	}

	rec := b.do(http.MethodDelete, "/login", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_SecureCookieAndName(t *testing.T) {
	f := newFixture(t, memstore.NewUserRepository(),
		web.WithCookie(web.CookieConfig{Name: "sid", Secure: true}))

	req := httptest.NewRequest(http.MethodPost, "/submitUser", strings.NewReader(url.Values{
		"username": {"alice"}, "email": {"alice@x.com"}, "password": {"pw12345"},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
	assert.Len(t, cookies[0].Value, auth.SessionTokenBytes*2)
}

type recordingRenderer struct {
	mu    sync.Mutex
	views []web.View
}

func (r *recordingRenderer) Render(w io.Writer, view web.View, _ any) error {
	r.mu.Lock()
	r.views = append(r.views, view)
	r.mu.Unlock()
	_, err := io.WriteString(w, string(view))
	return err
}

func TestHandler_CustomRenderer(t *testing.T) {
	renderer := &recordingRenderer{}
	f := newFixture(t, memstore.NewUserRepository(), web.WithRenderer(renderer))
	b := f.browser(t)

	assert.Equal(t, "home", b.get("/").Body.String())
	assert.Equal(t, "login", b.get("/login").Body.String())
	assert.Equal(t, "not_found", b.get("/missing").Body.String())
	assert.Equal(t, []web.View{web.ViewHome, web.ViewLogin, web.ViewNotFound}, renderer.views)
}

type failingRenderer struct{}

func (failingRenderer) Render(io.Writer, web.View, any) error {
	return errors.New("template exploded")
}

func TestHandler_RenderFailure(t *testing.T) {
	f := newFixture(t, memstore.NewUserRepository(), web.WithRenderer(failingRenderer{}))

	rec := f.browser(t).get("/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestNewHandler_RequiresService(t *testing.T) {
	_, err := web.NewHandler(nil)
	assert.Error(t, err)
}
