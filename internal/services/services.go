package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenProvider supplies a current bearer token.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// TokenProviderFunc adapts a function to [TokenProvider].
type TokenProviderFunc func(ctx context.Context) (*oauth2.Token, error)

func (f TokenProviderFunc) Token(ctx context.Context) (*oauth2.Token, error) { return f(ctx) }

// RequestObserver is told about every completed API request.
type RequestObserver interface {
	ObserveRequest(endpoint string, status int, elapsed time.Duration)
}

// User is the signed-in account.
type User struct {
	ID          string
	DisplayName string
	Email       string
	Country     string
	Product     string
	Followers   int
}

// Greeting is the name to greet the user by, falling back to the ID.
func (u User) Greeting() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// Playlist represents a playlist in the user's library
type Playlist struct {
	ID          string
	Name        string
	Description string
	Owner       string
	TrackCount  int
	Public      bool
}

// Track represents a track within a playlist
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
	AddedAt  string
}

// joinArtists joins artist names with ", ".
func joinArtists(artists []SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}
