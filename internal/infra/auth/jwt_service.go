package auth

import (
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"accounts/config"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
)

var signingMethods = map[string]*jwt.SigningMethodHMAC{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret    []byte                 // Secret key for signing and verifying tokens.
	method    *jwt.SigningMethodHMAC // Configured HMAC algorithm.
	accessTTL time.Duration          // Time-to-live for access tokens.
	parser    *jwt.Parser
	now       func() time.Time
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token service instance.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg == nil || cfg.Auth == nil || cfg.Auth.SecretKey == "" {
		return nil, errors.New("jwt secret must be provided")
	}

	alg := cfg.Auth.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := signingMethods[alg]
	if !ok {
		return nil, errors.Errorf("unsupported jwt algorithm %q", alg)
	}

	ttl := cfg.Auth.AccessTokenTTL()
	if ttl <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}

	return &jwtService{
		secret:    []byte(cfg.Auth.SecretKey),
		method:    method,
		accessTTL: ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
		now: time.Now,
	}, nil
}

// Issue signs a copy of claims with iat and exp set.
func (s *jwtService) Issue(claims map[string]any, ttl time.Duration) (string, error) {
	now := s.now()

	mapClaims := jwt.MapClaims{}
	maps.Copy(mapClaims, claims)
	mapClaims["iat"] = now.Unix()          // Issued At
	mapClaims["exp"] = now.Add(ttl).Unix() // Expiration Time

	token := jwt.NewWithClaims(s.method, mapClaims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// IssueAccessToken creates an access token for subject, the user's ID in decimal.
func (s *jwtService) IssueAccessToken(subject string) (*service.AccessToken, error) {
	expiresAt := s.now().Add(s.accessTTL)

	signed, err := s.Issue(map[string]any{"sub": subject}, s.accessTTL)
	if err != nil {
		return nil, err
	}

	return &service.AccessToken{
		Token:     signed,
		TokenType: service.TokenTypeBearer,
		ExpiresAt: time.Unix(expiresAt.Unix(), 0),
	}, nil
}

// Verify parses tokenString and returns its claims.
func (s *jwtService) Verify(tokenString string) (*service.Claims, error) {
	mapClaims := jwt.MapClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, mapClaims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domainerrors.ErrInvalidToken
	}

	subject, err := mapClaims.GetSubject()
	if err != nil {
		return nil, domainerrors.ErrInvalidToken
	}

	claims := &service.Claims{
		Subject: subject,
		Extra:   map[string]any{},
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	for key, value := range mapClaims {
		switch key {
		case "sub", "exp", "iat":
		default:
			claims.Extra[key] = value
		}
	}

	return claims, nil
}

// AccessTokenTTL returns the configured duration for access tokens.
func (s *jwtService) AccessTokenTTL() time.Duration {
	return s.accessTTL
}
