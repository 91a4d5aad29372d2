// Package server implements the HTTP API the browser client talks to:
// synthesis requests, retrieval of produced WAV resources, voice uploads,
// and monitoring/management endpoints.
package server
