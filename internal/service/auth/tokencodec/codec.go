package tokencodec

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/blogauth/internal/apperrors"
	"github.com/nkiryanov/blogauth/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 14 * 24 * time.Hour
	defaultSigningMethod   = "HS256"
)

// Value of the 'typ' claim of refresh tokens. Access tokens have no 'typ'
const TypeRefresh = "refresh"

// Claims of a successfully parsed token
type Claims struct {
	Subject   int64
	Type      string
	ID        string // jti, set on refresh tokens only
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c Claims) IsRefresh() bool {
	return c.Type == TypeRefresh
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Type string `json:"typ,omitempty"`
}

// Codec config with sensible defaults
type Config struct {
	// Secret key to sign tokens with
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Clock. time.Now if not set
	Now func() time.Time
}

// Codec mints and parses signed tokens
// Safe for concurrent use: all fields are read only after New
type Codec struct {
	key        []byte
	alg        jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func New(cfg Config) (*Codec, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg := jwt.GetSigningMethod(cfg.Alg)
	if _, ok := alg.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing method %q is not supported", cfg.Alg)
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field <= 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Codec{
		key:        []byte(cfg.SecretKey),
		alg:        alg,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

// Now returns current time of the codec clock truncated to seconds
// Token timestamps have second precision, so everything comparing against them should use it
func (c *Codec) Now() time.Time {
	return c.now().Truncate(time.Second)
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// MintAccess issues access token for the user
// Same user and time always give the same token
func (c *Codec) MintAccess(userID int64, now time.Time) (models.IssuedToken, error) {
	return c.mint(userID, now, c.accessTTL, "", "")
}

// MintRefresh issues refresh token for the user
// Every call gives a unique token even for the same user and time
func (c *Codec) MintRefresh(userID int64, now time.Time) (models.IssuedToken, error) {
	return c.mint(userID, now, c.refreshTTL, TypeRefresh, uuid.NewString())
}

func (c *Codec) mint(userID int64, now time.Time, ttl time.Duration, typ string, jti string) (models.IssuedToken, error) {
	now = now.Truncate(time.Second)
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(c.alg, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type: typ,
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Parse verifies the token signature and expiry and returns its claims
// Errors are always one of apperrors.ErrTokenMalformed, ErrTokenSignatureInvalid, ErrTokenExpired
func (c *Codec) Parse(token string) (Claims, error) {
	claims := &tokenClaims{}

	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) {
			return c.key, nil
		},
		jwt.WithValidMethods([]string{c.alg.Alg()}),
		jwt.WithTimeFunc(c.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, classify(err)
	}

	subject, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("subject %q is not a user id: %w", claims.Subject, apperrors.ErrTokenMalformed)
	}

	parsed := Claims{
		Subject: subject,
		Type:    claims.Type,
		ID:      claims.ID,
	}
	if claims.IssuedAt != nil {
		parsed.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		parsed.ExpiresAt = claims.ExpiresAt.Time
	}

	return parsed, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", apperrors.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", apperrors.ErrTokenSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrTokenMalformed, err)
	}
}
