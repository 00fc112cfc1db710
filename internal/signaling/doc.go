// Package signaling implements the relay's wire protocol: the JSON message
// envelope, the per-type router, and the WebSocket gateway that feeds it.
//
// The router never interprets negotiation payloads. Offers, answers and
// candidates are forwarded as the original frame bytes so protocol fields the
// relay does not model survive the hop unchanged.
package signaling
