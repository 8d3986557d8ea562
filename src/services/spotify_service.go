package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pigstyle/records/backend/src/logger"
	"golang.org/x/oauth2"
)

const spotifyAPIURL = "https://api.spotify.com/v1"

var spotifyEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

const spotifyTokenCacheKey = "spotify:token"

// SpotifyService keeps a store playlist in sync with inventory: newly
// arrived or just-sold records get their tracks appended. Uses the
// authorization-code flow since playlist writes need a user grant.
type SpotifyService struct {
	oauthCfg   *oauth2.Config
	playlistID string
	apiURL     string
	tokens     *cache.Cache
}

func NewSpotifyService(clientID, clientSecret, redirectURL, playlistID string, tokens *cache.Cache) *SpotifyService {
	return &SpotifyService{
		oauthCfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"playlist-modify-public", "playlist-modify-private"},
			Endpoint:     spotifyEndpoint,
		},
		playlistID: playlistID,
		apiURL:     spotifyAPIURL,
		tokens:     tokens,
	}
}

// SetAPIURL points the client at a test server.
func (s *SpotifyService) SetAPIURL(u string) { s.apiURL = u }

func (s *SpotifyService) Configured() bool {
	return s.oauthCfg.ClientID != "" && s.oauthCfg.ClientSecret != "" && s.playlistID != ""
}

// AuthURL returns the Spotify consent page URL for the operator to visit.
func (s *SpotifyService) AuthURL(state string) string {
	return s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// HandleCallback exchanges the authorization code and stores the token.
func (s *SpotifyService) HandleCallback(ctx context.Context, code string) error {
	token, err := s.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("spotify code exchange failed: %w", err)
	}
	s.tokens.Set(spotifyTokenCacheKey, token, cache.NoExpiration)
	logger.L.Info("Spotify authorization completed", "expiry", token.Expiry)
	return nil
}

func (s *SpotifyService) client(ctx context.Context) (*http.Client, error) {
	cached, found := s.tokens.Get(spotifyTokenCacheKey)
	if !found {
		return nil, fmt.Errorf("spotify not authorized, visit the auth URL first")
	}
	token, ok := cached.(*oauth2.Token)
	if !ok {
		return nil, fmt.Errorf("spotify token cache holds unexpected type")
	}
	// TokenSource refreshes transparently; persist the refreshed token.
	src := s.oauthCfg.TokenSource(ctx, token)
	refreshed, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("spotify token refresh failed: %w", err)
	}
	if refreshed.AccessToken != token.AccessToken {
		s.tokens.Set(spotifyTokenCacheKey, refreshed, cache.NoExpiration)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(refreshed)), nil
}

// SearchTrack finds the best-matching track URI for an artist and title.
func (s *SpotifyService) SearchTrack(ctx context.Context, artist, title string) (string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf("artist:%s album:%s", artist, title))
	q.Set("type", "track")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("spotify search failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify search status %d", resp.StatusCode)
	}

	var result struct {
		Tracks struct {
			Items []struct {
				URI  string `json:"uri"`
				Name string `json:"name"`
			} `json:"items"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Tracks.Items) == 0 {
		return "", fmt.Errorf("no spotify track found for %s - %s", artist, title)
	}
	return result.Tracks.Items[0].URI, nil
}

// AddToPlaylist appends track URIs to the store playlist.
func (s *SpotifyService) AddToPlaylist(ctx context.Context, trackURIs []string) error {
	if len(trackURIs) == 0 {
		return nil
	}
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(`{"uris":["%s"]}`, strings.Join(trackURIs, `","`))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.apiURL+"/playlists/"+s.playlistID+"/tracks", strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("spotify playlist add failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify playlist add status %d", resp.StatusCode)
	}
	logger.L.Info("Added tracks to store playlist", "count", len(trackURIs), "playlistID", s.playlistID)
	return nil
}

// SyncRecord looks up a record's track and appends it to the playlist,
// best-effort. Callers log but do not fail the surrounding operation.
func (s *SpotifyService) SyncRecord(ctx context.Context, artist, title string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	uri, err := s.SearchTrack(ctx, artist, title)
	if err != nil {
		return err
	}
	return s.AddToPlaylist(ctx, []string{uri})
}
