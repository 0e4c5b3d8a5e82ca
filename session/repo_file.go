package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-spotify-mcp/internal/errors"
)

var _ Repo = (*FileRepo)(nil)

// FileRepo caches the session as a JSON token file. The layout is the token
// response plus an absolute expires_at, the same shape spotipy writes to its
// ".cache" file, so an existing cache can be reused.
type FileRepo struct {
	path string
}

type cachedToken struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
}

func NewFileRepo(path string) *FileRepo {
	return &FileRepo{path: path}
}

func (r *FileRepo) Path() string {
	return r.path
}

func (r *FileRepo) Load() (*Session, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("[session FileRepo.Load] read %s: %w", r.path, err)
	}

	var ct cachedToken
	if err := json.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("[session FileRepo.Load] decode %s: %w", r.path, err)
	}
	if ct.AccessToken == "" && ct.RefreshToken == "" {
		return nil, errors.ErrSessionNotFound
	}

	return &Session{
		AccessToken:   ct.AccessToken,
		RefreshToken:  ct.RefreshToken,
		ExpiresAt:     time.Unix(ct.ExpiresAt, 0),
		GrantedScopes: strings.Fields(ct.Scope),
	}, nil
}

func (r *FileRepo) Save(s *Session) error {
	if s == nil {
		return fmt.Errorf("[session FileRepo.Save] session is required")
	}
	ct := cachedToken{
		AccessToken:  s.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(s.ExpiresAt).Seconds()),
		Scope:        strings.Join(s.GrantedScopes, " "),
		ExpiresAt:    s.ExpiresAt.Unix(),
		RefreshToken: s.RefreshToken,
	}
	if ct.ExpiresIn < 0 {
		ct.ExpiresIn = 0
	}
	data, err := json.Marshal(ct)
	if err != nil {
		return fmt.Errorf("[session FileRepo.Save] encode: %w", err)
	}
	if err := writeFileAtomic(r.path, data, 0o600); err != nil {
		return fmt.Errorf("[session FileRepo.Save] %w", err)
	}
	return nil
}

func (r *FileRepo) Delete() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[session FileRepo.Delete] %w", err)
	}
	return nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it over path.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
