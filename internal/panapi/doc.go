// Package panapi is a typed client for the cloud drive open API used by the
// upload pipeline.
//
// # Overview
//
// Every call goes through one request path that:
//  1. makes sure a bearer token is present and not about to expire, exchanging
//     the signed credentials for a new one when needed;
//  2. sends the request with a per-call timeout and decodes the
//     {code, message, data} envelope, where code 0 means success;
//  3. retries transient transport failures (timeouts, refused or reset
//     connections, HTTP 429 and 5xx) with capped exponential backoff and
//     jitter;
//  4. on an authorization failure re-exchanges the token once and repeats
//     the request once. A second rejection is reported as common.ErrAuth.
//
// Application-level failures (code != 0) are returned as *APIError and are
// never retried.
//
// Slice content does not go through the API host: PutSlice streams one byte
// range to a pre-signed URL using the same retry policy and a longer timeout.
package panapi
