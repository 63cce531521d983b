package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jake-scott/nestctl/internal/pkg/logging"
)

// Wrapper around an io.ReadCloser that logs every read as a string
type loggingReader struct {
	io.ReadCloser
	ctx context.Context
}

func newLoggingReader(ctx context.Context, rc io.ReadCloser) io.ReadCloser {
	return loggingReader{
		ReadCloser: rc,
		ctx:        ctx,
	}
}

func (lr loggingReader) Read(b []byte) (size int, err error) {
	size, err = lr.ReadCloser.Read(b)
	if size > 0 {
		logging.Logger(lr.ctx).Debugf("read %d bytes: --:--%s--:--", size, b[:size])
	}

	return size, err
}

type LoggingRt struct {
	logRequests bool
	next        http.RoundTripper
}

// NewLoggingMw returns a middleware that tags each request with an ID and
// writes an audit entry once the response headers arrive.  With
// logRequests set, headers and bodies are logged at debug level.
func NewLoggingMw(logRequests bool) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewLogging(logRequests, next)
	}
}

func NewLogging(logRequests bool, next http.RoundTripper) *LoggingRt {
	return &LoggingRt{logRequests: logRequests, next: next}
}

func (rt *LoggingRt) RoundTrip(r *http.Request) (*http.Response, error) {
	reqID := uuid.New().String()
	startTime := time.Now()

	ctx := logging.WithRequestID(r.Context(), reqID)
	r = r.WithContext(ctx)

	if rt.logRequests {
		// the Authorization header carries the session token
		hdr := r.Header.Clone()
		if hdr.Get("Authorization") != "" {
			hdr.Set("Authorization", "<redacted>")
		}
		logging.Logger(ctx).Debugf("request headers: %+v", hdr)
		if r.Body != nil && r.GetBody != nil {
			if body, err := r.GetBody(); err == nil {
				b, _ := io.ReadAll(body)
				body.Close()
				logging.Logger(ctx).Debugf("request body: %s", redactForm(r, b))
			}
		}
	}

	resp, err := rt.next.RoundTrip(r)

	fields := logrus.Fields{
		"entrytype": "audit",
		"method":    r.Method,
		"host":      r.URL.Host,
		"path":      r.URL.Path,
		"start":     startTime.Format(time.RFC3339Nano),
		"duration":  time.Since(startTime),
	}

	if err != nil {
		logging.Logger(ctx).WithFields(fields).WithError(err).Debug("request failed")
		return nil, err
	}

	fields["status"] = resp.StatusCode
	logging.Logger(ctx).WithFields(fields).Debug(http.StatusText(resp.StatusCode))

	if rt.logRequests {
		logging.Logger(ctx).Debugf("response headers: %+v", resp.Header)
		resp.Body = newLoggingReader(ctx, resp.Body)
	}

	return resp, nil
}

// the login form carries the password
func redactForm(r *http.Request, body []byte) []byte {
	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		return []byte("<form redacted>")
	}
	return body
}
