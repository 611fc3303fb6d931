// ABOUTME: Package doc for the server orchestrator
// ABOUTME: Describes component wiring and listener setup

// Package server assembles the verse-gateway from its parts: it loads the
// participant roster, picks an agent backend, wires the session registry to
// the websocket hub, and runs the HTTP server over a TCP or tsnet listener
// until the context is canceled.
package server
