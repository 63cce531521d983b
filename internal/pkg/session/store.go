package session

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/jake-scott/nestctl/internal/pkg/logging"
)

// DefaultPath is where the session is cached unless configured otherwise
const DefaultPath = "~/.config/nest/.session"

// Store caches the raw login response on disk
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a store on the OS filesystem.  A leading ~ in path is
// expanded to the user's home directory.
func NewStore(path string) (*Store, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding session file path %s", path)
	}

	return &Store{fs: afero.NewOsFs(), path: expanded}, nil
}

// WithFs returns a copy of the store that uses fs
func (s *Store) WithFs(fs afero.Fs) *Store {
	ns := *s
	ns.fs = fs
	return &ns
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the cached session.  A missing or unusable cache is not an
// error: the caller just has to log in.
func (s *Store) Load() (*Session, bool) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Logger(nil).WithError(err).Warnf("reading session file %s", s.path)
		} else {
			logging.Logger(nil).Debugf("no session file at %s", s.path)
		}
		return nil, false
	}

	sess, err := FromLoginResponse(data)
	if err != nil {
		logging.Logger(nil).WithError(err).Debugf("ignoring unusable session file %s", s.path)
		return nil, false
	}

	return sess, true
}

// Save replaces the cached session.  The file is written next to the
// target and renamed into place so a reader never sees a partial file.
func (s *Store) Save(sess *Session) error {
	if sess == nil || len(sess.Raw) == 0 {
		return errors.New("no login response to save")
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0700); err != nil {
		return errors.Wrapf(err, "creating session directory %s", dir)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".session-*.tmp")
	if err != nil {
		return errors.Wrapf(err, "creating temporary session file in %s", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(sess.Raw); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return errors.Wrapf(err, "writing session file %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return errors.Wrapf(err, "syncing session file %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return errors.Wrapf(err, "closing session file %s", tmpName)
	}

	// contains an access token
	if err := s.fs.Chmod(tmpName, 0600); err != nil {
		s.fs.Remove(tmpName)
		return errors.Wrapf(err, "setting permissions on %s", tmpName)
	}

	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName)
		return errors.Wrapf(err, "renaming session file into place at %s", s.path)
	}

	logging.Logger(nil).Debugf("saved session to %s", s.path)
	return nil
}
