package session

// Repo persists the session between process runs. Load returns
// errors.ErrSessionNotFound when nothing is cached.
type Repo interface {
	Load() (*Session, error)
	Save(s *Session) error
	Delete() error
}
