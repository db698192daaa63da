// Package connection is the bloombuddy-cli HTTP client.
//
// It speaks the server's JSON envelope, attaches Basic or Bearer
// credentials and turns error envelopes into *APIError values.
package connection
