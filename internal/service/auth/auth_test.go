package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"valuation-backend/internal/storage"
)

type MockUserStorage struct {
	mock.Mock
}

func (m *MockUserStorage) GetUserByEmail(ctx context.Context, email string) (*storage.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.User), args.Error(1)
}

func newTestService(st UserStorage) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), st, "test-secret", time.Hour)
}

func testUser(t *testing.T, active bool) *storage.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return &storage.User{
		ID:           7,
		OrgShortName: "cev",
		Email:        "valuer@cev.test",
		PasswordHash: string(hash),
		Roles:        []string{"valuer"},
		Permissions:  []string{"reports.write"},
		IsActive:     active,
	}
}

func TestLogin_Success(t *testing.T) {
	st := new(MockUserStorage)
	st.On("GetUserByEmail", mock.Anything, "valuer@cev.test").Return(testUser(t, true), nil)
	s := newTestService(st)

	token, u, err := s.Login(context.Background(), "valuer@cev.test", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.UserID)
	assert.Equal(t, "cev", claims.OrgShortName)
	assert.Equal(t, []string{"valuer"}, claims.Roles)
	assert.Equal(t, []string{"reports.write"}, claims.Permissions)
}

func TestLogin_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		user     *storage.User
		err      error
		password string
	}{
		{name: "unknown email", err: storage.ErrNotFound, password: "s3cret"},
		{name: "wrong password", user: testUser(t, true), password: "nope"},
		{name: "inactive user", user: testUser(t, false), password: "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(MockUserStorage)
			if tt.user != nil {
				st.On("GetUserByEmail", mock.Anything, mock.Anything).Return(tt.user, nil)
			} else {
				st.On("GetUserByEmail", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			_, _, err := newTestService(st).Login(context.Background(), "valuer@cev.test", tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestVerify_Expired(t *testing.T) {
	s := newTestService(nil)
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }

	token, err := s.Issue(testUser(t, true))
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := newTestService(nil).Issue(testUser(t, true))
	require.NoError(t, err)

	other := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, "another", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_CanAccess(t *testing.T) {
	c := &Claims{OrgShortName: "cev", Roles: []string{"valuer"}}
	assert.True(t, c.CanAccess("cev"))
	assert.False(t, c.CanAccess("abc"))

	c.Roles = append(c.Roles, RoleSuperAdmin)
	assert.True(t, c.CanAccess("abc"))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}
