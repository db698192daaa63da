// Package httpserver provides the BloomBuddy HTTP/HTTPS server.
//
// It uses net/http with the method-aware ServeMux. Every route is wrapped
// in a middleware chain (request id, panic recovery, rate limiting, access
// log, bearer authentication) assembled in NewRouter.
package httpserver
