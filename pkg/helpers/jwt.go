package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenTTL is the fixed lifetime of every issued token.
const AccessTokenTTL = 60 * time.Minute

// JWTManager issues and validates HS256 tokens whose subject is a username.
type JWTManager struct {
	Secret []byte
	TTL    time.Duration

	now func() time.Time
}

func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{Secret: []byte(secret), TTL: AccessTokenTTL, now: time.Now}
}

// Claims carries the username in Subject and the session id in ID (jti).
type Claims struct {
	jwt.RegisteredClaims
}

func (c *Claims) Username() string  { return c.Subject }
func (c *Claims) SessionID() string { return c.ID }

// IssuedToken is a signed token together with the session it belongs to.
type IssuedToken struct {
	Value     string
	SessionID string
	ExpiresAt time.Time
}

// IssueToken signs a token for username under a fresh session id.
func (m *JWTManager) IssueToken(username string) (IssuedToken, error) {
	now := m.clock()
	exp := now.Add(m.TTL)
	sid := uuid.NewString()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        sid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Value: s, SessionID: sid, ExpiresAt: exp}, nil
}

func (m *JWTManager) GenerateToken(username string) (string, error) {
	tok, err := m.IssueToken(username)
	return tok.Value, err
}

// ValidateToken reports whether token is well-formed, unexpired, correctly
// signed and bound to username.
func (m *JWTManager) ValidateToken(token, username string) bool {
	claims, err := m.Parse(token)
	if err != nil {
		return false
	}
	return claims.Subject == username
}

func (m *JWTManager) ExtractUsername(token string) (string, error) {
	claims, err := m.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (m *JWTManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithTimeFunc(m.clock), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func (m *JWTManager) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}
