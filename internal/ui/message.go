package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/spotauth/internal/services"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgUserFetched MsgKind = iota
	MsgPlaylistsFetched
	MsgTracksFetched
	MsgTokenRefreshed
)

type userFetched struct {
	user *services.User
	err  error
}

type playlistsFetched struct {
	playlists []services.Playlist
	err       error
}

type tracksFetched struct {
	playlist services.Playlist
	tracks   []services.Track
	err      error
}

// userFetchedMsg is the constructor for [MsgUserFetched]
func userFetchedMsg(user *services.User, err error) Msg {
	return Msg{kind: MsgUserFetched, data: userFetched{user, err}}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []services.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(playlist services.Playlist, tracks []services.Track, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksFetched{playlist, tracks, err}}
}

// tokenRefreshedMsg is the constructor for [MsgTokenRefreshed]
func tokenRefreshedMsg(err error) Msg {
	return Msg{kind: MsgTokenRefreshed, data: err}
}
