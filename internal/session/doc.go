// Package session manages the lifecycle of per-client conversations.
//
// # Overview
//
// The Registry maps client identifiers to Sessions and exposes the four
// entry points the transport layer is allowed to call:
//
//   - OnConnect(clientID): create a fresh session, replacing any prior one
//   - OnDisconnect(clientID): remove and tear down the session
//   - OnStartRequested(clientID, topic): begin a conversation
//   - OnReplyReceived(clientID, text): route a reply to the pending wait
//
// # Session lifecycle
//
//	Idle -> Running -> Idle   (loops; one conversation at a time)
//	Idle -> torn down         (terminal, on disconnect or replacement)
//
// A session has a running conversation task if and only if its status is
// Running. Starting while Running is rejected with a user notice and no
// state change. Cleanup is idempotent: it cancels the task, awaits its
// settlement (bounded), and resolves any pending input wait so nothing
// leaks.
//
// # Failure containment
//
// Every error or panic from the conversation task is caught at the session
// boundary and converted into exactly one terminal client notice. Nothing
// propagates far enough to take down the registry.
package session
