// File: utils/constants.go
package utils

// Gin context keys shared by middleware and handlers.
const (
	ViewerIDKey  = "viewerID"
	SessionIDKey = "sessionID"
)

// SessionHeader carries the client session id used for the session feed tier.
const SessionHeader = "X-Session-ID"
