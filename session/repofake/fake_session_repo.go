package repofake

import (
	"slices"
	"sync"

	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
	"github.com/jrsteele09/go-spotify-mcp/session"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	session *session.Session
	saves   int
	saveErr error
	lock    sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

// NewFakeSessionRepoWith returns a repo pre-populated with s.
func NewFakeSessionRepoWith(s *session.Session) *FakeSessionRepo {
	r := &FakeSessionRepo{}
	r.session = clone(s)
	return r
}

func (r *FakeSessionRepo) Load() (*session.Session, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.session == nil {
		return nil, errors.ErrSessionNotFound
	}
	return clone(r.session), nil
}

func (r *FakeSessionRepo) Save(s *session.Session) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.session = clone(s)
	r.saves++
	return nil
}

func (r *FakeSessionRepo) Delete() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.session = nil
	return nil
}

// SetSaveError makes subsequent saves fail with err.
func (r *FakeSessionRepo) SetSaveError(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.saveErr = err
}

func (r *FakeSessionRepo) Saves() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.saves
}

func clone(s *session.Session) *session.Session {
	if s == nil {
		return nil
	}
	c := *s
	c.GrantedScopes = slices.Clone(s.GrantedScopes)
	return &c
}
