package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hsarchitect/folio/config"
)

// PasswordCost is the bcrypt cost used for stored admin passwords.
const PasswordCost = 12

const defaultTTL = 7 * 24 * time.Hour

type claimsKeyType struct{}

var claimsKey = claimsKeyType{}

var (
	ErrEmptyToken   = errors.New("received empty token")
	ErrInvalidToken = errors.New("invalid access token")
	ErrNoSecret     = errors.New("jwt secret not configured")
)

// Claims is the payload carried by an access token.
type Claims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject, or 0 when it is not numeric.
func (c *Claims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (c *Claims) String() string {
	return fmt.Sprintf("Claims{sub=%v, email=%v, role=%v}", c.Subject, c.Email, c.Role)
}

// Tokens issues and verifies HS256 access tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(cfg config.Auth) *Tokens {
	ttl := cfg.JwtTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Tokens{secret: []byte(cfg.JwtSecret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the given user.
func (t *Tokens) Issue(userID int64, email string, role Role) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}

	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify parses and validates a token, returning its claims.
func (t *Tokens) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ExtractBearerToken extracts a Bearer token from an Authorization header value.
// Returns an empty string if the header is not present, malformed, or not a Bearer token.
func ExtractBearerToken(auth string) string {
	if auth == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// HashPassword hashes a plain password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func AddClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func GetClaims(ctx context.Context) *Claims {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok {
		return nil
	}

	return claims
}
