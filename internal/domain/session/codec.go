package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCookie is returned when a session cookie fails verification.
var ErrInvalidCookie = errors.New("invalid session cookie")

// cookieIssuer identifies tokens minted by this gateway.
const cookieIssuer = "estoque-gate"

// cookieClaims is the payload of the signed session cookie. The cookie
// carries only the session ID plus a few display claims; the server-side
// record stays authoritative for everything.
type cookieClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Matricula string `json:"mat,omitempty"`
	Role      string `json:"rol,omitempty"`
}

// Codec signs and verifies session cookies as HS256 JWTs.
type Codec struct {
	secret []byte
}

// NewCodec creates a cookie codec with the given signing secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Encode mints a signed cookie value for a session. The cookie expires with
// the session record.
func (c *Codec) Encode(sess *Session) (string, error) {
	claims := cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cookieIssuer,
			Subject:   sess.Token.User.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		SessionID: sess.ID,
		Matricula: sess.Token.User.Matricula,
		Role:      string(sess.Token.User.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, nil
}

// Decode verifies a cookie value and returns the embedded session ID.
// Returns ErrInvalidCookie for anything that does not verify, including
// expired cookies and wrong signing algorithms.
func (c *Codec) Decode(value string) (string, error) {
	var claims cookieClaims
	_, err := jwt.ParseWithClaims(value, &claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if claims.SessionID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SessionID, nil
}
