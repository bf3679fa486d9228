// Package credential signs token requests for the open API and keeps
// secret material out of logs.
//
// The signature is HMAC-SHA256 over the canonical string
//
//	accessKey=<accessKey>&nonce=<nonce>&timestamp=<timestamp>
//
// keyed with the secret key, hex-encoded in upper case. Timestamps are
// milliseconds since the epoch; nonces are microsecond epoch values made
// unique per Signer.
package credential
