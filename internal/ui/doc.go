// Package ui implements an interactive playlist browser using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [PlaylistListView] : Browse the signed-in user's playlists
//  2. [TrackListView] : Tracks of the selected playlist
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Every fetch runs as a [tea.Cmd] so the token is renewed by the [Library] before the request goes out.
//
// An unauthorized response is shown with a hint to run the login command. Pressing r forces a token
// refresh through the [Refresher] and reloads the current view.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
