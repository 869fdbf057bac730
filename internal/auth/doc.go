// Package auth owns the persisted Spotify token record and its PKCE lifecycle.
//
// A [Manager] builds the authorization redirect, exchanges the returned code,
// refreshes silently and clears the record. State is never held in memory between
// calls; every operation reads a snapshot from the injected [store.Store] and
// writes back in a single atomic Set or Delete, so a failed request leaves the
// record exactly as it was.
//
// The record moves between four states, reported by [Record.State]:
//
//	LoggedOut --BeginLogin--> PendingAuthorization --CompleteLogin--> Authenticated
//	Authenticated --time--> Expired --Refresh--> Authenticated
//	any --Logout--> LoggedOut
package auth
