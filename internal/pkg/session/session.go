package session

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Session is an authenticated connection to the Nest transport service
type Session struct {
	TransportURL string
	UserID       string
	AccessToken  string

	// The login response exactly as received; this is what gets cached
	Raw json.RawMessage
}

// The subset of the login response that we need
type loginResponse struct {
	URLs struct {
		TransportURL string `json:"transport_url"`
	} `json:"urls"`
	UserID      string `json:"userid"`
	AccessToken string `json:"access_token"`
}

func hashOf(s string) string {
	sum := sha1.Sum([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// obfuscate the token when stringified
func (s Session) String() string {
	return fmt.Sprintf("TransportURL [%s] UserID [%s] AccessToken [%s]",
		s.TransportURL, s.UserID, hashOf(s.AccessToken))
}

// FromLoginResponse builds a session from the body of a login response
func FromLoginResponse(raw []byte) (*Session, error) {
	var lr loginResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return nil, errors.Wrap(err, "decoding login response")
	}

	var missing []string
	if lr.URLs.TransportURL == "" {
		missing = append(missing, "urls.transport_url")
	}
	if lr.UserID == "" {
		missing = append(missing, "userid")
	}
	if lr.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("login response has no %v", missing)
	}

	return &Session{
		TransportURL: lr.URLs.TransportURL,
		UserID:       lr.UserID,
		AccessToken:  lr.AccessToken,
		Raw:          append(json.RawMessage(nil), raw...),
	}, nil
}
