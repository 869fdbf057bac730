// Package server provides HTTP routing, middleware, and the loopback listener used during sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Callback Handler
//
// [CallbackHandler] receives the authorization redirect on the configured redirect URI.
// It checks the state parameter, hands the code to an [Exchanger] and sends the outcome through a channel.
//
// It only processes one callback, so an authorization code is consumed at most once per sign-in.
//
// # Listener
//
// [Listen] binds the address before returning, so a port conflict is reported immediately,
// and [Server.Shutdown] stops it with a grace period. The login command runs one for the
// callback; the watch command runs one for /metrics and /healthz.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
