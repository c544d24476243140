// Package strava downloads the athlete's activity list into the local cache
// that every other command reads.
package strava

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/matt-g-everett/trailcast/config"
)

const (
	// Access tokens this close to expiry are refreshed before use.
	refreshMargin = 5 * time.Minute
	scope         = "read,activity:read_all"
)

// ErrUnauthorized is returned when the API rejects the access token.
var ErrUnauthorized = errors.New("strava: unauthorized")

// Athlete is the authenticated athlete's profile.
type Athlete struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// Name returns the athlete's display name.
func (a Athlete) Name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// OAuthConfig builds the OAuth2 client configuration. The client ID and
// secret fall back to STRAVA_CLIENT_ID and STRAVA_CLIENT_SECRET.
func OAuthConfig(cfg config.Config) *oauth2.Config {
	id, secret := cfg.Strava.ClientID, cfg.Strava.ClientSecret
	if id == "" {
		id = os.Getenv("STRAVA_CLIENT_ID")
	}
	if secret == "" {
		secret = os.Getenv("STRAVA_CLIENT_SECRET")
	}
	return &oauth2.Config{
		ClientID:     id,
		ClientSecret: secret,
		RedirectURL:  cfg.Strava.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.Strava.AuthURL,
			TokenURL:  cfg.Strava.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthURL returns the page the athlete visits to grant read access.
func AuthURL(cfg config.Config) string {
	return OAuthConfig(cfg).AuthCodeURL("trailcast",
		oauth2.SetAuthURLParam("scope", scope),
		oauth2.SetAuthURLParam("approval_prompt", "force"))
}

// Exchange trades an authorization code for a token and stores it.
func Exchange(ctx context.Context, cfg config.Config, code string) (*oauth2.Token, error) {
	tok, err := OAuthConfig(cfg).Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange authorization code")
	}
	if err := SaveToken(cfg.Strava.TokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Client calls the activity API with a stored, automatically refreshed token.
type Client struct {
	base      string
	http      *http.Client
	perPage   int
	pageDelay time.Duration
	log       *logrus.Entry
}

// NewClient loads the stored token and returns a Client whose requests
// refresh and persist it as needed.
func NewClient(ctx context.Context, cfg config.Config) (*Client, error) {
	tok, err := LoadToken(cfg.Strava.TokenFile)
	if err != nil {
		return nil, err
	}

	log := logrus.WithField("component", "strava")
	// The refresher starts without an access token so it always goes to the
	// token endpoint when asked.
	refresher := OAuthConfig(cfg).TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	src := &savingSource{
		src:  oauth2.ReuseTokenSourceWithExpiry(tok, refresher, refreshMargin),
		path: cfg.Strava.TokenFile,
		log:  log,
		last: tok.AccessToken,
	}

	return &Client{
		base:      strings.TrimRight(cfg.Strava.BaseURL, "/"),
		http:      oauth2.NewClient(ctx, src),
		perPage:   cfg.Strava.PerPage,
		pageDelay: cfg.Strava.PageDelay,
		log:       log,
	}, nil
}

// Athlete fetches the authenticated athlete.
func (c *Client) Athlete(ctx context.Context) (Athlete, error) {
	var a Athlete
	err := c.get(ctx, "/athlete", nil, &a)
	return a, err
}

// Activities fetches one page of the athlete's activities. Pages start at 1.
func (c *Client) Activities(ctx context.Context, page int) ([]json.RawMessage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.perPage))

	var acts []json.RawMessage
	err := c.get(ctx, "/athlete/activities", q, &acts)
	return acts, err
}

// AllActivities pages through the activity list until a short or empty page,
// calling progress with the running total after each page.
func (c *Client) AllActivities(ctx context.Context, progress func(count int)) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for page := 1; ; page++ {
		c.log.WithField("page", page).Debug("Fetching activities")
		acts, err := c.Activities(ctx, page)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", page)
		}
		all = append(all, acts...)
		if progress != nil && len(acts) > 0 {
			progress(len(all))
		}
		if len(acts) < c.perPage {
			return all, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to build request for %s", path)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.Wrapf(ErrUnauthorized, "GET %s", path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return errors.Errorf("GET %s: %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s", path)
	}
	return nil
}

// WriteCache stores acts at path as an indented JSON array.
func WriteCache(path string, acts []json.RawMessage) error {
	if acts == nil {
		acts = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(acts, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode activities")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create cache directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write activities %s", path)
	}
	return nil
}
