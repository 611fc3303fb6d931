// Package ws is the duplex client transport: a websocket hub that assigns
// each connection an opaque client identifier, implements the outbound
// message channel, and routes inbound frames to the session lifecycle entry
// points. The core is protocol-agnostic behind channel.Channel; this package
// is the only place that knows about websockets or frame formats.
package ws
