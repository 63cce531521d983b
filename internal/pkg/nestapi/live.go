package nestapi

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/go-openapi/runtime/middleware/header"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/jake-scott/nestctl/internal/pkg/logging"
	"github.com/jake-scott/nestctl/internal/pkg/session"
	"github.com/jake-scott/nestctl/pkg/transport"
)

const (
	DefaultLoginURL = "https://home.nest.com/user/login"

	userAgent       = "Nest/1.1.0.10 CFNetwork/548.0.4"
	protocolVersion = "1"

	protocolVersionHeader = "X-nl-protocol-version"
	userIDHeader          = "X-nl-user-id"

	// Nest expects the access token in a Basic authorization header
	tokenType = "Basic"

	defaultRetryDelay = time.Second
)

type Live struct {
	loginURL    string
	base        http.RoundTripper
	timeout     time.Duration
	retryDelay  time.Duration
	logRequests bool
	store       SessionStore
	prompter    CredentialPrompter
}

func NewLiveClient() *Live {
	return &Live{
		loginURL:   DefaultLoginURL,
		retryDelay: defaultRetryDelay,
	}
}

func (c *Live) WithLoginURL(u string) *Live {
	nc := *c
	nc.loginURL = u
	return &nc
}

// WithTimeout bounds each backend request.  Zero leaves requests to the
// transport defaults.
func (c *Live) WithTimeout(d time.Duration) *Live {
	nc := *c
	nc.timeout = d
	return &nc
}

func (c *Live) WithRetryDelay(d time.Duration) *Live {
	nc := *c
	nc.retryDelay = d
	return &nc
}

func (c *Live) WithTransport(rt http.RoundTripper) *Live {
	nc := *c
	nc.base = rt
	return &nc
}

func (c *Live) WithLogRequests(enabled bool) *Live {
	nc := *c
	nc.logRequests = enabled
	return &nc
}

func (c *Live) WithSessionStore(store SessionStore) *Live {
	nc := *c
	nc.store = store
	return &nc
}

func (c *Live) WithPrompter(p CredentialPrompter) *Live {
	nc := *c
	nc.prompter = p
	return &nc
}

func (c *Live) makeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}

	var cancel context.CancelFunc = func() {}
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	return ctx, cancel
}

func (c *Live) roundTripper(extra http.Header) http.RoundTripper {
	hdr := http.Header{}
	hdr.Set("User-Agent", userAgent)
	hdr.Set(protocolVersionHeader, protocolVersion)
	for k, v := range extra {
		hdr[k] = v
	}

	return transport.Chain(c.base,
		transport.NewHeaderMw(hdr),
		transport.NewLoggingMw(c.logRequests),
	)
}

// client for unauthenticated requests
func (c *Live) anonClient() *http.Client {
	return &http.Client{Transport: c.roundTripper(nil)}
}

// client that presents the session's token and user ID
func (c *Live) sessionClient(sess *session.Session) *http.Client {
	extra := http.Header{}
	extra.Set(userIDHeader, sess.UserID)

	token := &oauth2.Token{
		AccessToken: sess.AccessToken,
		TokenType:   tokenType,
	}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   c.roundTripper(extra),
		},
	}
}

// checkResponse turns a non-2xx reply into an error of the right kind.
// authKind is the kind reported for client errors that reject the caller.
func checkResponse(ctx context.Context, resp *http.Response, authKind error) error {
	err := googleapi.CheckResponse(resp)
	if err == nil {
		return nil
	}

	code := resp.StatusCode
	if gerr, ok := err.(*googleapi.Error); ok {
		code = gerr.Code
		logging.Logger(ctx).Debugf("HTTP %d response: %s", gerr.Code, strings.TrimSpace(gerr.Body))
	}

	statusErr := errors.Errorf("HTTP %d %s", code, http.StatusText(code))
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return newError(ErrAuth, statusErr)
	case code >= 500:
		return newError(ErrNetwork, statusErr)
	case code >= 400:
		return newError(authKind, statusErr)
	default:
		return newError(ErrProtocol, statusErr)
	}
}

func isJSONContentType(h http.Header) bool {
	if h.Get("Content-Type") == "" {
		return true
	}

	value, _ := header.ParseValueAndParams(h, "Content-Type")
	switch {
	case value == "application/json", value == "text/json":
		return true
	case strings.HasSuffix(value, "+json"):
		return true
	}

	return false
}

// readJSONBody returns the body of a successful reply, which must be JSON
func readJSONBody(resp *http.Response) ([]byte, error) {
	if !isJSONContentType(resp.Header) {
		return nil, newError(ErrProtocol, errors.Errorf("expected a JSON response, got %s", resp.Header.Get("Content-Type")))
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrNetwork, errors.Wrap(err, "reading response body"))
	}

	return body, nil
}

func drain(resp *http.Response) {
	io.Copy(ioutil.Discard, resp.Body)
	resp.Body.Close()
}
