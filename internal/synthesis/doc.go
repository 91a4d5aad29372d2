// Package synthesis orchestrates speech synthesis over a remote streaming
// session: it opens one session per request, primes it with a short silent
// PCM burst, forwards the text turn, reassembles the returned audio chunks
// into a WAV resource, and keeps finished resources addressable in memory
// until they expire.
package synthesis
