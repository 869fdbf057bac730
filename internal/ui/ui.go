package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/spotauth/internal/services"
	"github.com/desertthunder/spotauth/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
)

// Library is the data the browser displays.
type Library interface {
	Me(ctx context.Context) (*services.User, error)
	Playlists(ctx context.Context, limit int) ([]services.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]services.Track, error)
}

// Refresher forces a token refresh.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	library      Library
	refresher    Refresher
	limit        int
	width        int
	height       int
	user         *services.User
	playlistList list.Model
	trackList    list.Model
	selected     services.Playlist
	loading      bool
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. limit caps the number of playlists loaded (0 for all).
func NewModel(ctx context.Context, library Library, refresher Refresher, limit int) *Model {
	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		library:      library,
		refresher:    refresher,
		limit:        limit,
		playlistList: newList("Playlists", nil, 0, 0),
		trackList:    newList("Tracks", nil, 0, 0),
		loading:      true,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init fetches the user profile and playlists.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchUser(), m.fetchPlaylists())
}

// View returns the current view state.
func (m *Model) View() string {
	var b strings.Builder

	if m.user != nil {
		b.WriteString(styles.title.Render(fmt.Sprintf("Hello, %s!", m.user.Greeting())))
		b.WriteString("\n")
	}

	switch m.view {
	case TrackListView:
		b.WriteString(m.trackList.View())
	default:
		b.WriteString(m.playlistList.View())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if m.filtering() {
			return m.updateLists(msg)
		}
		switch m.view {
		case TrackListView:
			return m.handleTrackListKeys(msg)
		default:
			return m.handlePlaylistListKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgUserFetched:
		data := msg.data.(userFetched)
		if data.err != nil {
			m.setError(data.err)
			return m, nil
		}
		m.user = data.user

	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		m.loading = false
		if data.err != nil {
			m.setError(data.err)
			return m, nil
		}
		items := make([]list.Item, len(data.playlists))
		for i, pl := range data.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = newList("Playlists", items, m.width, m.height)
		m.err = nil
		m.status = fmt.Sprintf("%d playlists", len(items))

	case MsgTracksFetched:
		data := msg.data.(tracksFetched)
		m.loading = false
		if data.err != nil {
			m.setError(data.err)
			m.view = PlaylistListView
			return m, nil
		}
		items := make([]list.Item, len(data.tracks))
		for i, tr := range data.tracks {
			items[i] = trackItem{track: tr}
		}
		m.selected = data.playlist
		m.trackList = newList(fmt.Sprintf("Tracks in '%s'", data.playlist.Name), items, m.width, m.height)
		m.view = TrackListView
		m.err = nil
		m.status = fmt.Sprintf("%d tracks", len(items))

	case MsgTokenRefreshed:
		if err, _ := msg.data.(error); err != nil {
			m.setError(err)
			return m, nil
		}
		m.err = nil
		m.status = "Token refreshed."
		return m, m.reload()
	}

	return m, nil
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.refreshToken()
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.loading = true
			return m, m.fetchTracks(pl.playlist)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.refreshToken()
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		m.status = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) filtering() bool {
	switch m.view {
	case TrackListView:
		return m.trackList.FilterState() == list.Filtering
	default:
		return m.playlistList.FilterState() == list.Filtering
	}
}

func (m *Model) setError(err error) {
	m.err = err
	m.status = ""
}

func (m *Model) reload() tea.Cmd {
	m.loading = true
	if m.view == TrackListView {
		return m.fetchTracks(m.selected)
	}
	return m.fetchPlaylists()
}

func (m *Model) fetchUser() tea.Cmd {
	return func() tea.Msg {
		user, err := m.library.Me(m.ctx)
		return userFetchedMsg(user, err)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.library.Playlists(m.ctx, m.limit)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchTracks(pl services.Playlist) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.library.PlaylistTracks(m.ctx, pl.ID)
		return tracksFetchedMsg(pl, tracks, err)
	}
}

func (m *Model) refreshToken() tea.Cmd {
	if m.refresher == nil {
		return nil
	}
	m.status = "Refreshing token..."
	return func() tea.Msg {
		return tokenRefreshedMsg(m.refresher.Refresh(m.ctx))
	}
}

func (m *Model) renderStatus() string {
	switch {
	case m.err != nil && errors.Is(m.err, shared.ErrUnauthorized):
		return styles.err.Render("Unauthorized. Run `spotauth login` to sign in again.")
	case m.err != nil && errors.Is(m.err, shared.ErrNotAuthenticated):
		return styles.err.Render("Not signed in. Run `spotauth login` first.")
	case m.err != nil && errors.Is(m.err, shared.ErrNoRefreshToken):
		return styles.warn.Render("No refresh token stored. Run `spotauth login` again.")
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.loading:
		return styles.help.Render("Loading...")
	case m.status != "":
		return styles.ok.Render(m.status)
	default:
		return ""
	}
}

func (m *Model) renderHelp() string {
	var keys []key.Binding
	switch m.view {
	case TrackListView:
		keys = []key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.refresh, m.keys.quit}
	default:
		keys = []key.Binding{m.keys.up, m.keys.down, m.keys.enter, m.keys.refresh, m.keys.quit}
	}
	return m.help.ShortHelpView(keys)
}
