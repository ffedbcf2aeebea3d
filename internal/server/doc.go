// Package server is the HTTP surface of the roomchat relay: configuration,
// the WebSocket endpoint with its origin allowlist, health and read-only room
// introspection endpoints, the built-in chat page, and the hub that tracks
// live sessions for graceful shutdown.
package server
