// Package input turns an asynchronous, unreliable client reply stream into a
// value the synchronous-looking turn loop can await.
//
// A Gateway holds at most one pending input request: a single-resolution,
// buffered channel raced against a deadline timer and the session context.
// Exactly one of {reply, timeout, cancellation} wins; losing paths are inert
// and every exit clears the pending request, so a stale wait can never be
// resolved twice or linger past teardown.
//
// State machine per session:
//
//	NoPendingRequest -> AwaitingInput -> {Resolved, TimedOut, Cancelled} -> NoPendingRequest
package input
