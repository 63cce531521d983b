package nestapi

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/jake-scott/nestctl/internal/pkg/session"
)

const testStatus = `{
	"user": {"42": {"name": "me"}},
	"structure": {
		"struct1": {"name": "Home", "away": false, "devices": ["device.AAA", "device.BBB"]}
	},
	"shared": {
		"AAA": {"name": "Hallway", "current_temperature": 20.5, "target_temperature": 21.0},
		"BBB": {"name": "Bedroom", "current_temperature": 18.25, "target_temperature": 19.5}
	},
	"device": {
		"AAA": {"current_humidity": 45, "leaf": true, "fan_mode": "auto"},
		"BBB": {"current_humidity": 50, "leaf": false, "fan_mode": "on"}
	}
}`

type recordedPut struct {
	Context string
	ID      string
	Body    string
	Header  http.Header
}

// fakeNest emulates the login, status and put endpoints
type fakeNest struct {
	mu  sync.Mutex
	srv *httptest.Server

	username, password, token, userID string

	loginStatus int
	userStatus  int
	putStatus   int
	status      string
	contentType string

	loginCalls  int
	userCalls   int
	loginForm   map[string]string
	loginHeader http.Header
	userHeader  http.Header
	puts        []recordedPut
}

func newFakeNest(t *testing.T) *fakeNest {
	f := &fakeNest{
		username:    "me@example.com",
		password:    "secret",
		token:       "tok-123",
		userID:      "42",
		status:      testStatus,
		contentType: "application/json",
	}

	r := mux.NewRouter()
	r.HandleFunc("/user/login", f.login).Methods(http.MethodPost)
	r.HandleFunc("/v2/mobile/user.{userid}", f.user).Methods(http.MethodGet)
	r.HandleFunc("/v2/put/{context:[a-z]+}.{id}", f.put).Methods(http.MethodPost)

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeNest) loginURL() string {
	return f.srv.URL + "/user/login"
}

func (f *fakeNest) loginResponse() string {
	return `{"urls":{"transport_url":"` + f.srv.URL + `"},"userid":"` + f.userID + `","access_token":"` + f.token + `","email":"` + f.username + `"}`
}

func (f *fakeNest) session() *session.Session {
	sess, err := session.FromLoginResponse([]byte(f.loginResponse()))
	if err != nil {
		panic(err)
	}
	return sess
}

func (f *fakeNest) login(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loginCalls++
	f.loginHeader = r.Header.Clone()
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.loginForm = map[string]string{
		"username": r.PostForm.Get("username"),
		"password": r.PostForm.Get("password"),
	}

	if f.loginStatus != 0 {
		http.Error(w, `{"error":"failed"}`, f.loginStatus)
		return
	}
	if f.loginForm["username"] != f.username || f.loginForm["password"] != f.password {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"access_denied","error_description":"login failed"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(f.loginResponse()))
}

func (f *fakeNest) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Basic "+f.token &&
		r.Header.Get("X-nl-user-id") == f.userID
}

func (f *fakeNest) user(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.userCalls++
	f.userHeader = r.Header.Clone()

	if f.userStatus != 0 {
		http.Error(w, "unavailable", f.userStatus)
		return
	}
	if !f.authorized(r) || mux.Vars(r)["userid"] != f.userID {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", f.contentType)
	w.Write([]byte(f.status))
}

func (f *fakeNest) put(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := ioutil.ReadAll(r.Body)
	vars := mux.Vars(r)
	f.puts = append(f.puts, recordedPut{
		Context: vars["context"],
		ID:      vars["id"],
		Body:    string(body),
		Header:  r.Header.Clone(),
	})

	if f.putStatus != 0 {
		http.Error(w, "rejected", f.putStatus)
		return
	}
	if !f.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// memStore is an in-memory SessionStore
type memStore struct {
	sess  *session.Session
	saves int
}

func (m *memStore) Load() (*session.Session, bool) {
	return m.sess, m.sess != nil
}

func (m *memStore) Save(sess *session.Session) error {
	m.sess = sess
	m.saves++
	return nil
}

type fakePrompter struct {
	username, password string
	usernameCalls      int
	passwordCalls      int
}

func (p *fakePrompter) Username() (string, error) {
	p.usernameCalls++
	return p.username, nil
}

func (p *fakePrompter) Password() (string, error) {
	p.passwordCalls++
	return p.password, nil
}

// flakyTransport fails the first n requests with a transport error
type flakyTransport struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (ft *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ft.mu.Lock()
	ft.calls++
	fail := ft.calls <= ft.failures
	ft.mu.Unlock()

	if fail {
		if r.Body != nil {
			r.Body.Close()
		}
		return nil, errConnRefused
	}

	return http.DefaultTransport.RoundTrip(r)
}

type netError string

func (e netError) Error() string { return string(e) }

const errConnRefused = netError("dial tcp: connection refused")
