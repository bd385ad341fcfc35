package service

import (
	"time"
)

// TokenTypeBearer is the scheme clients put in front of an access token.
const TokenTypeBearer = "bearer"

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any // Non-registered claims passed to Issue.
}

// AccessToken is what a successful login hands back to the client.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
}

// TokenService defines the interface for generating and validating JWTs.
// This abstracts the details of token creation from the use cases.
type TokenService interface {
	// Issue signs claims with an expiry of now + ttl.
	Issue(claims map[string]any, ttl time.Duration) (string, error)

	// IssueAccessToken issues a token for subject using the configured access TTL.
	IssueAccessToken(subject string) (*AccessToken, error)

	// Verify checks signature, algorithm and expiry. Every failure is reported
	// as the same invalid-token error.
	Verify(token string) (*Claims, error)

	// AccessTokenTTL returns the configured lifetime of access tokens.
	AccessTokenTTL() time.Duration
}
