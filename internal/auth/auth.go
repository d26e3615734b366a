// Package auth verifies the bearer tokens that carry caller identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"food-kart/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims of an access token. Subject holds the user id;
// business_id is set for business staff.
type Claims struct {
	Roles      []string `json:"roles"`
	BusinessID string   `json:"business_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens issued by the identity provider.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier creates a verifier. An empty issuer skips the iss check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses and validates a token and returns the identity it carries.
func (v *Verifier) Verify(token string) (model.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	identity := model.Identity{UserID: userID, Roles: claims.Roles}
	if claims.BusinessID != "" {
		businessID, err := uuid.Parse(claims.BusinessID)
		if err != nil {
			return model.Identity{}, fmt.Errorf("%w: business_id is not a uuid", ErrInvalidToken)
		}
		identity.BusinessID = &businessID
	}

	return identity, nil
}

// Issue signs a token for a user. Used by tooling and tests; production
// tokens come from the identity provider.
func (v *Verifier) Issue(userID uuid.UUID, roles []string, ttl time.Duration) (string, error) {
	return v.IssueIdentity(model.Identity{UserID: userID, Roles: roles}, ttl)
}

// IssueIdentity signs a token carrying every field of the identity.
func (v *Verifier) IssueIdentity(identity model.Identity, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Roles: identity.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if identity.BusinessID != nil {
		claims.BusinessID = identity.BusinessID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
