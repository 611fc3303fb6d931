// Package conversation implements the turn-taking loop at the heart of the
// gateway.
//
// # Overview
//
// A Loop owns an ordered, append-only message history and a fixed participant
// list. Speakers are selected by strict round-robin; each turn either
// delegates to the human input gateway (HumanInput) or to a Generator
// (AutoGenerate). Every produced message is appended to history and, with two
// exceptions, broadcast through the Sink in append order.
//
// The exceptions: empty content from the human participant (a no-op reply the
// client should not be echoed), and a participant's own end-of-conversation
// token, which terminates the loop without being shown.
//
// # Termination
//
// A conversation ends when
//
//   - a participant produces its EndToken (trimmed, case-insensitive),
//   - the round counter reaches MaxRounds (normal completion, a bounded
//     resource safety valve), or
//   - the context is cancelled.
//
// # Collaborators
//
// The loop is assembled from explicit interfaces rather than subclass hooks:
// a Sink for broadcasting, an InputSource for human turns, and a Generator
// for automated turns. This keeps the loop testable without any transport.
package conversation
