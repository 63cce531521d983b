package nestapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"

	"github.com/jake-scott/nestctl/internal/pkg/logging"
	"github.com/jake-scott/nestctl/internal/pkg/session"
)

// A network failure during login is retried this many times
const maxLoginRetries = 1

// Login exchanges credentials for a session and caches it.  Missing
// credentials are prompted for once, before the first attempt.  A network
// failure is retried once; rejected credentials are not retried.
func (c *Live) Login(ctx context.Context, creds Credentials) (*session.Session, error) {
	creds, err := c.completeCredentials(creds)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	var sess *session.Session
	attempt := 0
	op := func() error {
		attempt++
		s, err := c.loginOnce(ctx, form)
		if err != nil {
			if errors.Is(err, ErrNetwork) {
				return err
			}
			return backoff.Permanent(err)
		}

		sess = s
		return nil
	}

	notify := func(err error, d time.Duration) {
		logging.Logger(ctx).WithError(err).Warnf("login attempt %d failed, retrying in %s", attempt, d)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), maxLoginRetries),
		ctx,
	)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, errors.Wrap(err, "logging in")
	}

	logging.Logger(ctx).Debugf("logged in as user %s after %d attempt(s)", sess.UserID, attempt)

	if c.store != nil {
		if err := c.store.Save(sess); err != nil {
			logging.Logger(ctx).WithError(err).Warn("caching session")
		}
	}

	return sess, nil
}

func (c *Live) completeCredentials(creds Credentials) (Credentials, error) {
	if creds.Username != "" && creds.Password != "" {
		return creds, nil
	}

	if c.prompter == nil {
		return creds, newError(ErrAuth, errors.New("username and password are required"))
	}

	if creds.Username == "" {
		u, err := c.prompter.Username()
		if err != nil {
			return creds, errors.Wrap(err, "prompting for username")
		}
		creds.Username = u
	}

	if creds.Password == "" {
		p, err := c.prompter.Password()
		if err != nil {
			return creds, errors.Wrap(err, "prompting for password")
		}
		creds.Password = p
	}

	if creds.Username == "" || creds.Password == "" {
		return creds, newError(ErrAuth, errors.New("username and password are required"))
	}

	return creds, nil
}

func (c *Live) loginOnce(ctx context.Context, form url.Values) (*session.Session, error) {
	ctx, cancel := c.makeContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "building login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.anonClient().Do(req)
	if err != nil {
		return nil, newError(ErrNetwork, err)
	}
	defer drain(resp)

	// any other client error means the credentials were refused
	if err := checkResponse(ctx, resp, ErrAuth); err != nil {
		return nil, err
	}

	body, err := readJSONBody(resp)
	if err != nil {
		return nil, err
	}

	sess, err := session.FromLoginResponse(body)
	if err != nil {
		return nil, newError(ErrProtocol, err)
	}

	return sess, nil
}

// Restore loads the cached session and checks the service still accepts
// it.  ErrNoSession means there was nothing cached.
func (c *Live) Restore(ctx context.Context) (*session.Session, error) {
	if c.store == nil {
		return nil, newError(ErrNoSession, nil)
	}

	sess, ok := c.store.Load()
	if !ok {
		return nil, newError(ErrNoSession, nil)
	}

	if _, err := c.getUser(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "validating cached session")
	}

	return sess, nil
}

// Authenticate returns a usable session.  Any explicitly supplied
// credential skips the cache; otherwise a cached session is tried before
// logging in.
func Authenticate(ctx context.Context, api NestAPI, creds Credentials) (*session.Session, error) {
	if creds.Username != "" || creds.Password != "" {
		return api.Login(ctx, creds)
	}

	sess, err := api.Restore(ctx)
	if err == nil {
		return sess, nil
	}

	if errors.Is(err, ErrNoSession) {
		logging.Logger(ctx).Debug("no cached session, logging in")
	} else {
		logging.Logger(ctx).WithError(err).Info("cached session not usable, logging in")
	}

	return api.Login(ctx, creds)
}
