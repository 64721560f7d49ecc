package impl

import (
	"context"
	"testing"
	"time"

	"portal/internal/domain/entity"
	domainerrors "portal/internal/domain/errors"
	"portal/internal/errors"
	"portal/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(f *fixture, email string, role entity.Role) *entity.User {
	user := &entity.User{Email: email, Name: "Test", Role: role, CreatedAt: time.Now()}
	f.store.PutUser(user)

	return user
}

func TestSessionService_IssueAlwaysCreatesFreshSession(t *testing.T) {
	f := newFixture(t, 0)
	user := seedUser(f, "ada@example.com", entity.RoleUser)
	client := entity.ClientContext{UserAgent: "test-agent", Device: entity.DeviceMobile, IPAddress: "203.0.113.9"}

	first, err := f.sessions.Issue(context.Background(), user.Identity(), client, entity.AuthMethodPassword)
	require.NoError(t, err)
	second, err := f.sessions.Issue(context.Background(), user.Identity(), client, entity.AuthMethodPassword)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)
	assert.Len(t, first.Token, 2*util.DefaultTokenBytes)

	stored := f.store.Sessions()
	require.Len(t, stored, 2)
	for _, sess := range stored {
		assert.NotEqual(t, first.Token, sess.TokenHash, "raw token must never be stored")
		assert.Equal(t, entity.RoleUser, sess.Role)
		assert.Equal(t, entity.DeviceMobile, sess.Device)
		assert.Equal(t, "203.0.113.9", sess.IPAddress)
	}
	assert.Equal(t, util.HashTokenValue(first.Token), first.Session.TokenHash)
}

func TestSessionService_IssueRejectsIncompleteIdentity(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.sessions.Issue(context.Background(), entity.UserIdentity{ID: uuid.New()}, entity.ClientContext{}, entity.AuthMethodPassword)
	require.Error(t, err)
	assert.Empty(t, f.store.Sessions())
}

func TestSessionService_SessionLimit(t *testing.T) {
	f := newFixture(t, 2)
	user := seedUser(f, "ada@example.com", entity.RoleUser)

	for range 2 {
		_, err := f.sessions.Issue(context.Background(), user.Identity(), entity.ClientContext{}, entity.AuthMethodPassword)
		require.NoError(t, err)
	}

	_, err := f.sessions.Issue(context.Background(), user.Identity(), entity.ClientContext{}, entity.AuthMethodPassword)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionLimitExceeded))
	assert.Len(t, f.store.Sessions(), 2)
	assert.Equal(t, 3, f.store.Locks)
}

func TestSessionService_Validate(t *testing.T) {
	f := newFixture(t, 0)
	user := seedUser(f, "ada@example.com", entity.RoleUser)

	issued, err := f.sessions.Issue(context.Background(), user.Identity(), entity.ClientContext{}, entity.AuthMethodGitHub)
	require.NoError(t, err)

	session, err := f.sessions.Validate(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	_, err = f.sessions.Validate(context.Background(), "")
	assert.True(t, errors.Is(err, domainerrors.ErrUnauthenticated))

	_, err = f.sessions.Validate(context.Background(), "deadbeef")
	assert.True(t, errors.Is(err, domainerrors.ErrUnauthenticated))
}

func TestSessionService_ValidateDeletesExpired(t *testing.T) {
	f := newFixture(t, 0)
	user := seedUser(f, "ada@example.com", entity.RoleUser)

	raw := util.CreateTokenValue(0)
	f.store.PutSession(&entity.Session{
		UserID:    user.ID,
		TokenHash: util.HashTokenValue(raw),
		Role:      entity.RoleUser,
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	_, err := f.sessions.Validate(context.Background(), raw)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionExpired))
	assert.Empty(t, f.store.Sessions())
}

func TestSessionService_RevokeChecksOwnership(t *testing.T) {
	f := newFixture(t, 0)
	owner := seedUser(f, "owner@example.com", entity.RoleUser)
	other := seedUser(f, "other@example.com", entity.RoleUser)

	issued, err := f.sessions.Issue(context.Background(), owner.Identity(), entity.ClientContext{}, entity.AuthMethodPassword)
	require.NoError(t, err)

	err = f.sessions.Revoke(context.Background(), other.ID, issued.Session.ID)
	assert.True(t, errors.Is(err, domainerrors.ErrForbidden))
	assert.Len(t, f.store.Sessions(), 1)

	err = f.sessions.Revoke(context.Background(), owner.ID, uuid.New())
	assert.True(t, errors.Is(err, domainerrors.ErrSessionNotFound))

	require.NoError(t, f.sessions.Revoke(context.Background(), owner.ID, issued.Session.ID))
	assert.Empty(t, f.store.Sessions())
}

func TestSessionService_RevokeOthersAndList(t *testing.T) {
	f := newFixture(t, 0)
	user := seedUser(f, "ada@example.com", entity.RoleUser)

	var current *entity.Session
	for range 3 {
		issued, err := f.sessions.Issue(context.Background(), user.Identity(), entity.ClientContext{}, entity.AuthMethodPassword)
		require.NoError(t, err)
		current = issued.Session
	}

	sessions, err := f.sessions.List(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)

	deleted, err := f.sessions.RevokeOthers(context.Background(), user.ID, current.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	sessions, err = f.sessions.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, current.ID, sessions[0].ID)
}

func TestSessionService_CleanupExpired(t *testing.T) {
	f := newFixture(t, 0)
	user := seedUser(f, "ada@example.com", entity.RoleUser)
	past := time.Now().Add(-time.Hour)

	f.store.PutSession(&entity.Session{UserID: user.ID, TokenHash: "a", Role: entity.RoleUser, ExpiresAt: past})
	f.store.PutSession(&entity.Session{UserID: user.ID, TokenHash: "b", Role: entity.RoleUser, ExpiresAt: time.Now().Add(time.Hour)})
	f.store.PutToken(&entity.OneTimeToken{UserID: user.ID, Purpose: entity.TokenPurposePasswordReset, TokenHash: "c", ExpiresAt: past})

	result, err := f.sessions.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Sessions)
	assert.EqualValues(t, 1, result.Tokens)
	assert.Len(t, f.store.Sessions(), 1)
	assert.Empty(t, f.store.Tokens())
}
