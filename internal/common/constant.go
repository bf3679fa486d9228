// Package common contains shared constants and sentinel errors used across
// isoshare components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on API calls.
	AuthorizationHeaderName = "Authorization"

	// PlatformHeaderName identifies the client platform to the open API.
	PlatformHeaderName = "Platform"

	// PlatformHeaderValue is the only platform the open API accepts.
	PlatformHeaderValue = "open_platform"

	// BearerPrefix precedes the access token in AuthorizationHeaderName.
	BearerPrefix = "Bearer "
)
