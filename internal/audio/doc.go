// Package audio implements the byte-level audio pipeline: float-to-PCM16
// encoding, in-order reassembly of base64 audio chunks delivered by a
// streaming synthesis session, and wrapping of the finished PCM payload
// in a playable WAV container.
package audio
