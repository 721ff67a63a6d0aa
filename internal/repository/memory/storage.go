package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/nkiryanov/blogauth/internal/apperrors"
	"github.com/nkiryanov/blogauth/internal/models"
	"github.com/nkiryanov/blogauth/internal/repository"
)

type state struct {
	mu         sync.Mutex
	lastUserID int64
	users      map[int64]models.User
	tokens     map[string]models.RefreshToken // by token hash
}

func (s *state) snapshot() (int64, map[int64]models.User, map[string]models.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUserID, maps.Clone(s.users), maps.Clone(s.tokens)
}

func (s *state) restore(lastUserID int64, users map[int64]models.User, tokens map[string]models.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUserID, s.users, s.tokens = lastUserID, users, tokens
}

// Storage keeps everything in process memory
// Transactions are serialized. A call made outside InTx is a transaction of its own,
// so it waits for a running transaction and is never undone by its rollback
type Storage struct {
	state *state
	txMu  *sync.Mutex
	inTx  bool
}

func NewStorage() repository.Storage {
	return &Storage{
		state: &state{
			users:  make(map[int64]models.User),
			tokens: make(map[string]models.RefreshToken),
		},
		txMu: &sync.Mutex{},
	}
}

func (s *Storage) User() repository.UserRepo {
	return &UserRepo{state: s.state, txMu: s.implicitTx()}
}

func (s *Storage) Refresh() repository.RefreshTokenRepo {
	return &RefreshTokenRepo{state: s.state, txMu: s.implicitTx()}
}

// Lock repo calls have to take; nil inside InTx where it is held already
func (s *Storage) implicitTx() *sync.Mutex {
	if s.inTx {
		return nil
	}
	return s.txMu
}

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Nested transaction behaves like a savepoint
	if !s.inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}

	lastUserID, users, tokens := s.state.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.state.restore(lastUserID, users, tokens)
			panic(p)
		}
		if err != nil {
			s.state.restore(lastUserID, users, tokens)
		}
	}()

	return fn(&Storage{state: s.state, txMu: s.txMu, inTx: true})
}

// lock takes the transaction lock when txMu is set, then the state lock
func lock(txMu *sync.Mutex, st *state) func() {
	if txMu != nil {
		txMu.Lock()
	}
	st.mu.Lock()

	return func() {
		st.mu.Unlock()
		if txMu != nil {
			txMu.Unlock()
		}
	}
}

type UserRepo struct {
	state *state
	txMu  *sync.Mutex
}

func (r *UserRepo) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	defer lock(r.txMu, r.state)()

	for _, existing := range r.state.users {
		if existing.Username == u.Username {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	r.state.lastUserID++
	u.ID = r.state.lastUserID
	u.CreatedAt = time.Now()
	r.state.users[u.ID] = u

	return u, nil
}

func (r *UserRepo) GetUserByID(ctx context.Context, userID int64) (models.User, error) {
	defer lock(r.txMu, r.state)()

	u, ok := r.state.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	defer lock(r.txMu, r.state)()

	for _, u := range r.state.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

type RefreshTokenRepo struct {
	state *state
	txMu  *sync.Mutex
}

func (r *RefreshTokenRepo) Save(ctx context.Context, tokenString string, token models.RefreshToken) (models.RefreshToken, error) {
	defer lock(r.txMu, r.state)()

	token.TokenHash = models.HashToken(tokenString)
	if _, ok := r.state.tokens[token.TokenHash]; ok {
		return models.RefreshToken{}, errDuplicateToken
	}

	r.state.tokens[token.TokenHash] = token
	return token, nil
}

func (r *RefreshTokenRepo) FindActive(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	defer lock(r.txMu, r.state)()

	token, ok := r.state.tokens[models.HashToken(tokenString)]
	if !ok || token.Revoked {
		return models.RefreshToken{}, errNotFound
	}
	return token, nil
}

func (r *RefreshTokenRepo) Get(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	defer lock(r.txMu, r.state)()

	token, ok := r.state.tokens[models.HashToken(tokenString)]
	if !ok {
		return models.RefreshToken{}, errNotFound
	}
	return token, nil
}

func (r *RefreshTokenRepo) Revoke(ctx context.Context, tokenString string, at time.Time) (bool, error) {
	defer lock(r.txMu, r.state)()

	hash := models.HashToken(tokenString)
	token, ok := r.state.tokens[hash]
	if !ok || token.Revoked {
		return false, nil
	}

	token.Revoked = true
	token.RevokedAt = &at
	r.state.tokens[hash] = token
	return true, nil
}

func (r *RefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	defer lock(r.txMu, r.state)()

	var count int64
	for hash, token := range r.state.tokens {
		if token.UserID != userID || token.Revoked {
			continue
		}
		token.Revoked = true
		token.RevokedAt = &at
		r.state.tokens[hash] = token
		count++
	}
	return count, nil
}
