// Package repository provides an in-memory implementation of every domain
// repository plus a TransactionManager that rolls back on error.
package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"portal/internal/domain/entity"
	"portal/internal/domain/repository"

	"github.com/google/uuid"
)

// Store is a goroutine-safe in-memory database.
type Store struct {
	mu sync.Mutex

	users    map[uuid.UUID]entity.User
	accounts map[uuid.UUID]entity.OAuthAccount
	sessions map[uuid.UUID]entity.Session
	tokens   map[uuid.UUID]entity.OneTimeToken

	// Failures injects an error for an operation, keyed like "SessionRepo.Create".
	Failures map[string]error
	// Locks counts AcquireSessionMutex calls.
	Locks int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]entity.User),
		accounts: make(map[uuid.UUID]entity.OAuthAccount),
		sessions: make(map[uuid.UUID]entity.Session),
		tokens:   make(map[uuid.UUID]entity.OneTimeToken),
		Failures: make(map[string]error),
	}
}

func (s *Store) fail(op string) error {
	return s.Failures[op]
}

// Execute runs fn and reverts the writes it made when it returns an error.
// Writes committed by concurrent transactions are left alone.
func (s *Store) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	scope := txScope{s: s, log: &undoLog{}}
	if err := fn(scope); err != nil {
		s.mu.Lock()
		scope.log.revert()
		s.mu.Unlock()

		return err
	}

	return nil
}

// undoLog holds the inverse of every write made by one transaction.
type undoLog struct{ steps []func() }

func (l *undoLog) revert() {
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
}

func (l *undoLog) remember(restore func()) {
	if l != nil {
		l.steps = append(l.steps, restore)
	}
}

// put and remove must be called with Store.mu held.
func put[V any](l *undoLog, m map[uuid.UUID]V, id uuid.UUID, v V) {
	prev, existed := m[id]
	l.remember(func() {
		if existed {
			m[id] = prev
		} else {
			delete(m, id)
		}
	})
	m[id] = v
}

func remove[V any](l *undoLog, m map[uuid.UUID]V, id uuid.UUID) {
	prev, existed := m[id]
	if !existed {
		return
	}
	l.remember(func() { m[id] = prev })
	delete(m, id)
}

type txScope struct {
	s   *Store
	log *undoLog
}

func (t txScope) UserRepo() repository.UserRepository { return userRepo{t.s, t.log} }
func (t txScope) OAuthAccountRepo() repository.OAuthAccountRepository {
	return accountRepo{t.s, t.log}
}
func (t txScope) SessionRepo() repository.SessionRepository    { return sessionRepo{t.s, t.log} }
func (t txScope) TokenRepo() repository.OneTimeTokenRepository { return tokenRepo{t.s, t.log} }

func (s *Store) UserRepo() repository.UserRepository                 { return userRepo{s: s} }
func (s *Store) OAuthAccountRepo() repository.OAuthAccountRepository { return accountRepo{s: s} }
func (s *Store) SessionRepo() repository.SessionRepository           { return sessionRepo{s: s} }
func (s *Store) TokenRepo() repository.OneTimeTokenRepository        { return tokenRepo{s: s} }

// Users returns a copy of every stored user.
func (s *Store) Users() []entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return values(s.users)
}

// Accounts returns a copy of every stored oauth link.
func (s *Store) Accounts() []entity.OAuthAccount {
	s.mu.Lock()
	defer s.mu.Unlock()

	return values(s.accounts)
}

// Sessions returns a copy of every stored session.
func (s *Store) Sessions() []entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return values(s.sessions)
}

// Tokens returns a copy of every stored one-time token.
func (s *Store) Tokens() []entity.OneTimeToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	return values(s.tokens)
}

// PutUser stores u as-is, assigning an ID when missing.
func (s *Store) PutUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = *u
}

// PutSession stores sess as-is, assigning an ID when missing.
func (s *Store) PutSession(sess *entity.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	s.sessions[sess.ID] = *sess
}

// PutToken stores t as-is, assigning an ID when missing.
func (s *Store) PutToken(t *entity.OneTimeToken) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	s.tokens[t.ID] = *t
}

func values[K comparable, V any](m map[K]V) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}

	return out
}

type userRepo struct {
	s  *Store
	tx *undoLog
}

func (r userRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("UserRepo.FindByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return &u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("UserRepo.FindByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r userRepo) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("UserRepo.Create"); err != nil {
		return err
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}

	now := time.Now()
	user.ID = uuid.New()
	user.CreatedAt, user.UpdatedAt = now, now
	put(r.tx, r.s.users, user.ID, *user)

	return nil
}

func (r userRepo) Update(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("UserRepo.Update"); err != nil {
		return err
	}
	if _, ok := r.s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	put(r.tx, r.s.users, user.ID, *user)

	return nil
}

func (r userRepo) List(_ context.Context, offset, limit int) ([]*entity.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("UserRepo.List"); err != nil {
		return nil, 0, err
	}
	all := values(r.s.users)
	slices.SortFunc(all, func(a, b entity.User) int { return a.CreatedAt.Compare(b.CreatedAt) })

	out := make([]*entity.User, 0, limit)
	for i := offset; i < len(all) && len(out) < limit; i++ {
		u := all[i]
		out = append(out, &u)
	}

	return out, int64(len(all)), nil
}

func (r userRepo) AcquireSessionMutex(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return repository.ErrUserNotFound
	}
	r.s.Locks++

	return nil
}

type accountRepo struct {
	s  *Store
	tx *undoLog
}

func (r accountRepo) CreateIfNotExists(_ context.Context, account *entity.OAuthAccount) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("OAuthAccountRepo.CreateIfNotExists"); err != nil {
		return false, err
	}
	for _, a := range r.s.accounts {
		if a.Provider == account.Provider && a.ProviderAccountID == account.ProviderAccountID {
			return false, nil
		}
	}

	account.ID = uuid.New()
	account.CreatedAt = time.Now()
	put(r.tx, r.s.accounts, account.ID, *account)

	return true, nil
}

func (r accountRepo) FindByProviderAccount(_ context.Context, provider entity.ProviderType, providerAccountID string) (*entity.OAuthAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.accounts {
		if a.Provider == provider && a.ProviderAccountID == providerAccountID {
			return &a, nil
		}
	}

	return nil, repository.ErrOAuthAccountNotFound
}

func (r accountRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]*entity.OAuthAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.OAuthAccount
	for _, a := range r.s.accounts {
		if a.UserID == userID {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *entity.OAuthAccount) int { return a.CreatedAt.Compare(b.CreatedAt) })

	return out, nil
}

type sessionRepo struct {
	s  *Store
	tx *undoLog
}

func (r sessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("SessionRepo.Create"); err != nil {
		return err
	}
	session.ID = uuid.New()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	put(r.tx, r.s.sessions, session.ID, *session)

	return nil
}

func (r sessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash {
			return &sess, nil
		}
	}

	return nil, repository.ErrSessionNotFound
}

func (r sessionRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}

	return &sess, nil
}

func (r sessionRepo) ListActiveByUserID(_ context.Context, userID uuid.UUID, now time.Time) ([]*entity.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Session
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && !sess.IsExpired(now) {
			out = append(out, &sess)
		}
	}
	slices.SortFunc(out, func(a, b *entity.Session) int { return b.CreatedAt.Compare(a.CreatedAt) })

	return out, nil
}

func (r sessionRepo) CountActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	active, err := r.ListActiveByUserID(ctx, userID, now)

	return len(active), err
}

func (r sessionRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	remove(r.tx, r.s.sessions, id)

	return nil
}

func (r sessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash {
			remove(r.tx, r.s.sessions, id)

			return nil
		}
	}

	return repository.ErrSessionNotFound
}

func (r sessionRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			remove(r.tx, r.s.sessions, id)
		}
	}

	return nil
}

func (r sessionRepo) DeleteByUserIDExcept(_ context.Context, userID, keepID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, sess := range r.s.sessions {
		if sess.UserID == userID && id != keepID {
			remove(r.tx, r.s.sessions, id)
			n++
		}
	}

	return n, nil
}

func (r sessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, sess := range r.s.sessions {
		if sess.IsExpired(now) {
			remove(r.tx, r.s.sessions, id)
			n++
		}
	}

	return n, nil
}

type tokenRepo struct {
	s  *Store
	tx *undoLog
}

func (r tokenRepo) Create(_ context.Context, token *entity.OneTimeToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.fail("TokenRepo.Create"); err != nil {
		return err
	}
	token.ID = uuid.New()
	put(r.tx, r.s.tokens, token.ID, *token)

	return nil
}

func (r tokenRepo) FindByHash(_ context.Context, purpose entity.TokenPurpose, tokenHash string) (*entity.OneTimeToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.tokens {
		if t.Purpose == purpose && t.TokenHash == tokenHash {
			return &t, nil
		}
	}

	return nil, repository.ErrTokenNotFound
}

func (r tokenRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[id]; !ok {
		return repository.ErrTokenNotFound
	}
	remove(r.tx, r.s.tokens, id)

	return nil
}

func (r tokenRepo) DeleteByUserID(_ context.Context, userID uuid.UUID, purpose entity.TokenPurpose) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, t := range r.s.tokens {
		if t.UserID == userID && t.Purpose == purpose {
			remove(r.tx, r.s.tokens, id)
		}
	}

	return nil
}

func (r tokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.tokens {
		if t.IsExpired(now) {
			remove(r.tx, r.s.tokens, id)
			n++
		}
	}

	return n, nil
}
