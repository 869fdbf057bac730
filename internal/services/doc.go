// Package services implements the Spotify Web API calls that consume the stored access token.
//
// # Token Source
//
// [SpotifyClient] never touches the token record directly. It asks a [TokenProvider]
// (the auth manager in practice) for a bearer token before each request, which renews
// the record when it has expired.
//
// # Rate Limiting
//
// Requests wait on a [rate.Limiter] built from the configured requests per second.
// Zero disables the limit.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrUnauthorized] : the API rejected the token with 401, sign in again
//   - [shared.ErrPlaylistNotFound] : playlist ID not found
//   - [shared.ErrAPIRequest] : any other non-2xx response or transport failure
//
// # API Mappings
//
// Responses decode into the Spotify* wire types and are mapped to [User], [Playlist] and [Track]
// for display. Playlist items whose track is null (local files, removed episodes) are dropped.
package services
