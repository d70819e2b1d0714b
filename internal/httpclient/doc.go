// Package httpclient builds the HTTP capability injected into the engine:
// a configured *http.Client and a RequestBuilder that stamps out one
// *http.Request per attempt.
//
// The client owns every transport-level policy the run configuration
// expresses: per-request timeout, keep-alive and compression toggles,
// proxying, and opt-in HTTP/2. The engine itself never touches transport
// settings; it only calls Do.
package httpclient
