package token

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired wraps ErrInvalidToken so that callers matching
	// the broader class still catch expiry.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// Claims is the JWT payload for both access and refresh tokens.
type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Config holds the signing material for the codec. Previous keys are
// optional; when set, verification falls back to them so that tokens
// issued before a key rotation stay valid until they expire.
type Config struct {
	PrivateKeyLatest  *rsa.PrivateKey
	PublicKeyLatest   *rsa.PublicKey
	PublicKeyPrevious *rsa.PublicKey
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
}

// Codec issues and verifies RS256 session tokens.
type Codec struct {
	cfg Config
	now func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if cfg.PrivateKeyLatest == nil || cfg.PublicKeyLatest == nil {
		return nil, errors.New("token: missing latest keypair")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 60 * time.Minute
	}
	return &Codec{cfg: cfg, now: time.Now}, nil
}

// WithClock overrides the codec's clock. Used in tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// IssueAccess signs a new access token for the given user.
func (c *Codec) IssueAccess(userID int64) (string, error) {
	return c.issue(userID, TypeAccess, c.cfg.AccessTTL)
}

// IssueRefresh signs a new refresh token for the given user.
func (c *Codec) IssueRefresh(userID int64) (string, error) {
	return c.issue(userID, TypeRefresh, c.cfg.RefreshTTL)
}

func (c *Codec) issue(userID int64, tokenType string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			// A unique ID keeps two tokens issued within the same
			// second from serializing identically, so rotation always
			// produces a new refresh token.
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.cfg.PrivateKeyLatest)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Verify checks the token against the latest public key, then the
// previous one. A token whose signature checks out under either key
// but whose "type" claim does not match wantType is rejected outright
// rather than retried under the other key.
func (c *Codec) Verify(tokenString, wantType string) (*Claims, error) {
	keys := []*rsa.PublicKey{c.cfg.PublicKeyLatest}
	if c.cfg.PublicKeyPrevious != nil {
		keys = append(keys, c.cfg.PublicKeyPrevious)
	}

	var lastErr error
	for _, key := range keys {
		claims, err := c.parseWith(tokenString, key)
		switch {
		case err == nil:
			if claims.TokenType != wantType {
				return nil, ErrInvalidToken
			}
			return claims, nil
		case errors.Is(err, ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = ErrInvalidToken
	}
	return nil, lastErr
}

// Subject extracts the user id from verified claims.
func Subject(claims *Claims) (int64, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func (c *Codec) parseWith(tokenString string, key *rsa.PublicKey) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return key, nil
		},
		jwt.WithTimeFunc(c.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateKeypair creates an ephemeral RSA keypair. Development only;
// tokens do not survive a restart.
func GenerateKeypair() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}
