// Package protocol defines the wire messages exchanged with the remote
// streaming synthesis service: session setup, the outbound priming frame and
// text turn, and extraction of audio payloads and turn-completion signals
// from inbound server messages.
package protocol
