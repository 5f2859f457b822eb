// Package api hosts HTTP handlers that front the jukebot JSON API.
//
// The handlers assembled by Handler coordinate request validation, identity
// resolution, and response shaping while delegating persistence to
// storage.Repository implementations injected at construction time. Identity
// is resolved once per request by the middleware in internal/server through
// auth.Resolver; handlers gate themselves with a single capability-level
// comparison and must not re-derive credentials.
//
// Server-rendered pages reach the same handlers through InternalClient,
// which carries a single-use local request token instead of a browser
// session. New routes should preserve the middleware contract by avoiding
// duplicate authentication work.
package api
