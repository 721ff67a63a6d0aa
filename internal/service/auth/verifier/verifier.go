package verifier

import (
	"fmt"

	"github.com/nkiryanov/blogauth/internal/apperrors"
	"github.com/nkiryanov/blogauth/internal/service/auth/tokencodec"
)

type codec interface {
	Parse(token string) (tokencodec.Claims, error)
}

// Verifier answers whether a string is a usable access token
// It never touches storage, so it is cheap enough to run on every request
type Verifier struct {
	codec codec
}

func New(c codec) *Verifier {
	return &Verifier{codec: c}
}

// Check parses access token and returns its claims
// Refresh tokens are rejected with apperrors.ErrTokenTypeMismatch
func (v *Verifier) Check(token string) (tokencodec.Claims, error) {
	if token == "" {
		return tokencodec.Claims{}, fmt.Errorf("empty token: %w", apperrors.ErrTokenMalformed)
	}

	claims, err := v.codec.Parse(token)
	if err != nil {
		return tokencodec.Claims{}, err
	}

	if claims.IsRefresh() {
		return tokencodec.Claims{}, fmt.Errorf("refresh token used as access: %w", apperrors.ErrTokenTypeMismatch)
	}

	return claims, nil
}

func (v *Verifier) ValidateAccess(token string) bool {
	_, err := v.Check(token)
	return err == nil
}

func (v *Verifier) ExtractSubject(token string) (int64, bool) {
	claims, err := v.Check(token)
	if err != nil {
		return 0, false
	}
	return claims.Subject, true
}
