package strava

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ErrNotAuthenticated is returned when no stored token exists.
var ErrNotAuthenticated = errors.New("strava: not authenticated")

// storedToken is the on-disk token document, shaped like the token
// endpoint's response.
type storedToken struct {
	TokenType    string `json:"token_type,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// LoadToken reads the token stored at path.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotAuthenticated, "no token at %s", path)
		}
		return nil, errors.Wrapf(err, "failed to read token %s", path)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrapf(err, "failed to parse token %s", path)
	}
	if st.AccessToken == "" && st.RefreshToken == "" {
		return nil, errors.Wrapf(ErrNotAuthenticated, "empty token at %s", path)
	}

	tok := &oauth2.Token{
		TokenType:    st.TokenType,
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
	}
	if st.ExpiresAt > 0 {
		tok.Expiry = time.Unix(st.ExpiresAt, 0)
	}
	return tok, nil
}

// SaveToken writes tok to path, creating the directory if needed.
func SaveToken(path string, tok *oauth2.Token) error {
	st := storedToken{
		TokenType:    tok.TokenType,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		st.ExpiresAt = tok.Expiry.Unix()
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create token directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(err, "failed to write token %s", path)
	}
	return nil
}

// savingSource persists every token its source hands out for the first time.
type savingSource struct {
	src  oauth2.TokenSource
	path string
	log  *logrus.Entry

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, errors.Wrap(err, "failed to refresh strava token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			return nil, err
		}
		s.log.WithField("expires", tok.Expiry).Info("Stored refreshed token")
		s.last = tok.AccessToken
	}
	return tok, nil
}
