// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/spotauth/internal/shared"
)

const (
	// DefaultBaseURL is the Spotify Web API root.
	DefaultBaseURL = "https://api.spotify.com/v1"

	playlistPageSize = 50
	trackPageSize    = 100
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	URI         string `json:"uri"`
}

// Owner is the user a playlist belongs to.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for
// unavailable items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// page is a Spotify paging object.
type page[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	URI         string              `json:"uri"`
}

// SpotifyClient calls the Web API with a bearer token from a [TokenProvider].
type SpotifyClient struct {
	baseURL    string
	host       string
	httpClient *http.Client
	tokens     TokenProvider
	limiter    *rate.Limiter
	observer   RequestObserver
}

// ClientOption configures a [SpotifyClient].
type ClientOption func(*SpotifyClient)

// WithHTTPClient replaces [http.DefaultClient].
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *SpotifyClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit caps outgoing requests per second with a burst of one. Zero or less disables the limit.
func WithRateLimit(rps float64) ClientOption {
	return func(c *SpotifyClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
		}
	}
}

// WithRequestObserver reports each request to o.
func WithRequestObserver(o RequestObserver) ClientOption {
	return func(c *SpotifyClient) { c.observer = o }
}

// NewSpotifyClient creates a client for baseURL (DefaultBaseURL when empty).
func NewSpotifyClient(baseURL string, tokens TokenProvider, opts ...ClientOption) (*SpotifyClient, error) {
	if tokens == nil {
		return nil, fmt.Errorf("%w: token provider", shared.ErrMissingConfig)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: api_url %q", shared.ErrInvalidConfig, baseURL)
	}

	c := &SpotifyClient{
		baseURL:    baseURL,
		host:       u.Host,
		httpClient: http.DefaultClient,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the name of the service.
func (c *SpotifyClient) Name() string { return "Spotify" }

// Me returns the current user's profile.
func (c *SpotifyClient) Me(ctx context.Context) (*User, error) {
	var su SpotifyUser
	if err := c.getJSON(ctx, "/me", &su); err != nil {
		return nil, err
	}
	return &User{
		ID:          su.ID,
		DisplayName: su.DisplayName,
		Email:       su.Email,
		Country:     su.Country,
		Product:     su.Product,
		Followers:   su.Followers.Total,
	}, nil
}

// Playlists returns up to limit of the current user's playlists, following pagination.
// A limit of zero or less returns all of them.
func (c *SpotifyClient) Playlists(ctx context.Context, limit int) ([]Playlist, error) {
	size := playlistPageSize
	if limit > 0 && limit < size {
		size = limit
	}

	var playlists []Playlist
	next := fmt.Sprintf("/me/playlists?limit=%d", size)

	for next != "" {
		var p page[SpotifySimplePlaylist]
		if err := c.getJSON(ctx, next, &p); err != nil {
			return nil, err
		}

		for _, sp := range p.Items {
			playlists = append(playlists, Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				Owner:       ownerName(sp.Owner),
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			})
			if limit > 0 && len(playlists) >= limit {
				return playlists, nil
			}
		}

		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}

	return playlists, nil
}

// PlaylistTracks returns every track of a playlist, skipping unavailable items.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	var tracks []Track
	next := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), trackPageSize)

	for next != "" {
		var p page[SpotifyPlaylistTrack]
		if err := c.getJSON(ctx, next, &p); err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
			}
			return nil, err
		}

		for _, item := range p.Items {
			if item.Track == nil || item.Track.Name == "" {
				continue
			}
			tracks = append(tracks, Track{
				ID:       item.Track.ID,
				Title:    item.Track.Name,
				Artist:   joinArtists(item.Track.Artists),
				Album:    item.Track.Album.Name,
				Duration: time.Duration(item.Track.DurationMS) * time.Millisecond,
				AddedAt:  item.AddedAt,
			})
		}

		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}

	return tracks, nil
}

func ownerName(o Owner) string {
	if o.DisplayName != "" {
		return o.DisplayName
	}
	return o.ID
}
