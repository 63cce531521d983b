package nestapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(f *fakeNest, store SessionStore) *Live {
	return NewLiveClient().
		WithLoginURL(f.loginURL()).
		WithRetryDelay(0).
		WithSessionStore(store)
}

func TestLoginPersistsSession(t *testing.T) {
	f := newFakeNest(t)
	store := &memStore{}

	sess, err := newTestClient(f, store).Login(context.Background(), Credentials{Username: "me@example.com", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, f.srv.URL, sess.TransportURL)
	assert.Equal(t, "42", sess.UserID)
	assert.Equal(t, "tok-123", sess.AccessToken)

	require.Equal(t, 1, store.saves)
	assert.JSONEq(t, f.loginResponse(), string(store.sess.Raw))

	assert.Equal(t, 1, f.loginCalls)
	assert.Equal(t, map[string]string{"username": "me@example.com", "password": "secret"}, f.loginForm)
	assert.Equal(t, "Nest/1.1.0.10 CFNetwork/548.0.4", f.loginHeader.Get("User-Agent"))
	assert.Equal(t, "1", f.loginHeader.Get("X-nl-protocol-version"))
	assert.Empty(t, f.loginHeader.Get("Authorization"))
}

func TestLoginRetriesNetworkFailureOnce(t *testing.T) {
	f := newFakeNest(t)
	flaky := &flakyTransport{failures: 1}

	sess, err := newTestClient(f, &memStore{}).WithTransport(flaky).
		Login(context.Background(), Credentials{Username: "me@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "42", sess.UserID)

	assert.Equal(t, 2, flaky.calls)
	assert.Equal(t, 1, f.loginCalls)
}

func TestLoginGivesUpAfterOneRetry(t *testing.T) {
	f := newFakeNest(t)
	flaky := &flakyTransport{failures: 10}
	store := &memStore{}

	_, err := newTestClient(f, store).WithTransport(flaky).
		Login(context.Background(), Credentials{Username: "me@example.com", Password: "secret"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)

	assert.Equal(t, 2, flaky.calls)
	assert.Equal(t, 0, f.loginCalls)
	assert.Equal(t, 0, store.saves)
}

func TestLoginRetriesServerErrorOnce(t *testing.T) {
	f := newFakeNest(t)
	f.loginStatus = http.StatusServiceUnavailable

	_, err := newTestClient(f, &memStore{}).
		Login(context.Background(), Credentials{Username: "me@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, 2, f.loginCalls)
}

func TestLoginBadCredentialsNotRetried(t *testing.T) {
	f := newFakeNest(t)
	store := &memStore{}

	_, err := newTestClient(f, store).
		Login(context.Background(), Credentials{Username: "me@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	assert.NotErrorIs(t, err, ErrNetwork)

	assert.Equal(t, 1, f.loginCalls)
	assert.Equal(t, 0, store.saves)
}

func TestLoginPromptsOnceForMissingCredentials(t *testing.T) {
	f := newFakeNest(t)
	flaky := &flakyTransport{failures: 1}
	p := &fakePrompter{username: "me@example.com", password: "secret"}

	_, err := newTestClient(f, &memStore{}).WithTransport(flaky).WithPrompter(p).
		Login(context.Background(), Credentials{})
	require.NoError(t, err)

	assert.Equal(t, 1, p.usernameCalls)
	assert.Equal(t, 1, p.passwordCalls)
	assert.Equal(t, "secret", f.loginForm["password"])
}

func TestLoginPromptsOnlyForMissingField(t *testing.T) {
	f := newFakeNest(t)
	p := &fakePrompter{password: "secret"}

	_, err := newTestClient(f, &memStore{}).WithPrompter(p).
		Login(context.Background(), Credentials{Username: "me@example.com"})
	require.NoError(t, err)

	assert.Equal(t, 0, p.usernameCalls)
	assert.Equal(t, 1, p.passwordCalls)
}

func TestLoginWithoutCredentialsOrPrompter(t *testing.T) {
	f := newFakeNest(t)

	_, err := newTestClient(f, &memStore{}).Login(context.Background(), Credentials{Username: "me@example.com"})
	assert.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 0, f.loginCalls)
}

func TestLoginMalformedResponse(t *testing.T) {
	f := newFakeNest(t)
	f.userID = ""

	_, err := newTestClient(f, &memStore{}).
		Login(context.Background(), Credentials{Username: "me@example.com", Password: "secret"})
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, 1, f.loginCalls)
}

func TestRestoreWithoutCache(t *testing.T) {
	f := newFakeNest(t)

	_, err := newTestClient(f, &memStore{}).Restore(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 0, f.userCalls)
}

func TestRestoreProbesCachedSession(t *testing.T) {
	f := newFakeNest(t)
	store := &memStore{sess: f.session()}

	sess, err := newTestClient(f, store).Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", sess.UserID)

	assert.Equal(t, 1, f.userCalls)
	assert.Equal(t, "Basic tok-123", f.userHeader.Get("Authorization"))
	assert.Equal(t, "42", f.userHeader.Get("X-nl-user-id"))
	assert.Equal(t, "Nest/1.1.0.10 CFNetwork/548.0.4", f.userHeader.Get("User-Agent"))
}

func TestRestoreRejectedSession(t *testing.T) {
	f := newFakeNest(t)
	stale := f.session()
	stale.AccessToken = "expired"

	_, err := newTestClient(f, &memStore{sess: stale}).Restore(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestAuthenticateMissingCacheLogsInOnce(t *testing.T) {
	f := newFakeNest(t)
	store := &memStore{}

	sess, err := Authenticate(context.Background(), newTestClient(f, store),
		Credentials{Username: "me@example.com", Password: ""})
	require.Error(t, err, "no prompter and no password")
	assert.Nil(t, sess)
	assert.Equal(t, 0, f.loginCalls)

	p := &fakePrompter{password: "secret"}
	sess, err = Authenticate(context.Background(), newTestClient(f, store).WithPrompter(p),
		Credentials{Username: "me@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "42", sess.UserID)
	assert.Equal(t, 1, f.loginCalls)
	assert.Equal(t, 0, f.userCalls)
}

func TestAuthenticateReusesValidCache(t *testing.T) {
	f := newFakeNest(t)
	store := &memStore{sess: f.session()}

	_, err := Authenticate(context.Background(), newTestClient(f, store), Credentials{})
	require.NoError(t, err)

	assert.Equal(t, 0, f.loginCalls)
	assert.Equal(t, 1, f.userCalls)
}

func TestAuthenticateStaleCacheLogsIn(t *testing.T) {
	f := newFakeNest(t)
	stale := f.session()
	stale.AccessToken = "expired"
	store := &memStore{sess: stale}
	p := &fakePrompter{username: "me@example.com", password: "secret"}

	sess, err := Authenticate(context.Background(), newTestClient(f, store).WithPrompter(p), Credentials{})
	require.NoError(t, err)

	assert.Equal(t, "tok-123", sess.AccessToken)
	assert.Equal(t, 1, f.loginCalls)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "tok-123", store.sess.AccessToken)
}

func TestAuthenticateExplicitCredentialsSkipCache(t *testing.T) {
	f := newFakeNest(t)
	store := &memStore{sess: f.session()}

	_, err := Authenticate(context.Background(), newTestClient(f, store),
		Credentials{Username: "me@example.com", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.loginCalls)
	assert.Equal(t, 0, f.userCalls)
}

func TestAuthenticateUsernameOnlySkipsCache(t *testing.T) {
	f := newFakeNest(t)
	cached := f.session()
	cached.UserID = "cached-user"
	store := &memStore{sess: cached}
	p := &fakePrompter{password: "secret"}

	sess, err := Authenticate(context.Background(), newTestClient(f, store).WithPrompter(p),
		Credentials{Username: "me@example.com"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.loginCalls)
	assert.Equal(t, 0, f.userCalls)
	assert.Equal(t, 0, p.usernameCalls)
	assert.Equal(t, 1, p.passwordCalls)
	assert.Equal(t, f.userID, sess.UserID)
	assert.Equal(t, "me@example.com", f.loginForm["username"])
}
