package nestapi

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/jake-scott/nestctl/internal/pkg/logging"
	"github.com/jake-scott/nestctl/internal/pkg/session"
)

func putURL(sess *session.Session, mctx MutationContext, resourceID string) string {
	return strings.TrimRight(sess.TransportURL, "/") + "/v2/put/" + mctx.String() + "." + url.PathEscape(resourceID)
}

// Put sends a serialized partial update to one resource.  It is not
// retried; the service merges the named fields.
func (c *Live) Put(ctx context.Context, sess *session.Session, mctx MutationContext, resourceID string, body []byte) error {
	if resourceID == "" {
		return newError(ErrPut, errors.Errorf("no %s id to send update to", mctx))
	}

	ctx, cancel := c.makeContext(ctx)
	defer cancel()

	u := putURL(sess, mctx, resourceID)
	logging.Logger(ctx).Debugf("put %s: %s", u, body)

	// the /v2/put endpoint only accepts POST
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return newError(ErrPut, errors.Wrap(err, "building put request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.sessionClient(sess).Do(req)
	if err != nil {
		return newError(ErrPut, newError(ErrNetwork, err))
	}
	defer drain(resp)

	if err := checkResponse(ctx, resp, ErrProtocol); err != nil {
		return newError(ErrPut, err)
	}

	return nil
}

// Apply sends a mutation to the resource it addresses on the given device
func (c *Live) Apply(ctx context.Context, sess *session.Session, id DeviceIdentity, m Mutation) error {
	body, err := m.Body()
	if err != nil {
		return newError(ErrPut, errors.Wrap(err, "encoding update"))
	}

	return c.Put(ctx, sess, m.Context, m.ResourceID(id), body)
}
