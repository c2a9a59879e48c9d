package gate

import (
	"errors"
	"time"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidSignature     = errors.New("invalid request signature")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
)

// RequestMeta is everything the gate inspects about an inbound request. It
// never sees or alters the request's business payload beyond hashing it for
// the signature check.
type RequestMeta struct {
	KeyID     string
	APIKey    string
	Signature string
	Body      []byte
	Endpoint  string
	ClientIP  string
	Timestamp time.Time
}

// Credential is a registered API caller. SigningSecret is the HMAC key for
// payload signatures; an empty SigningSecret disables the signature check
// for that caller.
type Credential struct {
	KeyID         string
	APIKey        string
	SigningSecret string
	Active        bool
}
