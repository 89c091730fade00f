// Package httputil provides HTTP handler utilities: the platform's JSON
// response envelopes, request decoding, and common middleware.
package httputil
