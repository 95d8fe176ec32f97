// Package server provides HTTP routing, middleware, and the handlers behind `vibemix serve` and `vibemix spotify auth`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are the stock middleware.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// hands them to a [TokenSink] (the Spotify session, which persists them) and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Cover Hosting
//
// [CoverHandler] serves the durable cover images written by the file store, so playlist covers
// outlive the short-lived URLs returned by the image generator.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
