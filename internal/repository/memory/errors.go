package memory

import (
	"errors"
	"fmt"

	"github.com/nkiryanov/blogauth/internal/apperrors"
)

var (
	errNotFound       = fmt.Errorf("repo error: %w", apperrors.ErrRefreshTokenNotFound)
	errDuplicateToken = errors.New("repo error: refresh token already exists")
)
