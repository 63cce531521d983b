package nestapi

import (
	"context"

	"github.com/jake-scott/nestctl/internal/pkg/session"
)

// Credentials for the Nest account.  Empty fields are prompted for.
type Credentials struct {
	Username string
	Password string
}

// CredentialPrompter asks the user for missing credentials
type CredentialPrompter interface {
	Username() (string, error)
	Password() (string, error)
}

// SessionStore caches a session between invocations
type SessionStore interface {
	Load() (*session.Session, bool)
	Save(sess *session.Session) error
}

type NestAPI interface {
	Login(ctx context.Context, creds Credentials) (*session.Session, error)
	Restore(ctx context.Context) (*session.Session, error)
	FetchStatus(ctx context.Context, sess *session.Session) (*StatusDocument, error)
	Put(ctx context.Context, sess *session.Session, mctx MutationContext, resourceID string, body []byte) error
	Apply(ctx context.Context, sess *session.Session, id DeviceIdentity, m Mutation) error
}
