package session

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDirectory_RegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	dir := NewDirectory(st, bcrypt.MinCost, discardLogger())

	registered, err := dir.Register(ctx, RegisterRequest{Name: "Alice", Email: "Alice@X.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.ID)

	// a fresh directory reads the persisted record
	reopened := NewDirectory(st, bcrypt.MinCost, discardLogger())
	profile, err := reopened.Login(ctx, "alice@x.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, profile.ID)
	assert.Equal(t, "Alice", profile.Name)
}

func TestDirectory_Failures(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(store.NewMemoryStore(), bcrypt.MinCost, discardLogger())
	_, err := dir.Register(ctx, RegisterRequest{Name: "Bob", Email: "bob@x.com", Password: "pass"})
	require.NoError(t, err)

	testCases := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "wrong password",
			run: func() error {
				_, err := dir.Login(ctx, "bob@x.com", "nope")
				return err
			},
			wantErr: apperrors.ErrInvalidCredentials,
		},
		{
			name: "unknown email",
			run: func() error {
				_, err := dir.Login(ctx, "carol@x.com", "pass")
				return err
			},
			wantErr: apperrors.ErrInvalidCredentials,
		},
		{
			name: "duplicate email",
			run: func() error {
				_, err := dir.Register(ctx, RegisterRequest{Name: "Bob2", Email: "BOB@x.com", Password: "pass"})
				return err
			},
			wantErr: apperrors.ErrValidation,
		},
		{
			name: "malformed email",
			run: func() error {
				_, err := dir.Register(ctx, RegisterRequest{Name: "Eve", Email: "not-an-email", Password: "pass"})
				return err
			},
			wantErr: apperrors.ErrValidation,
		},
		{
			name: "short password",
			run: func() error {
				_, err := dir.Register(ctx, RegisterRequest{Name: "Eve", Email: "eve@x.com", Password: "pw"})
				return err
			},
			wantErr: apperrors.ErrValidation,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.run(), tc.wantErr)
		})
	}
}

func TestDirectory_SocialLogin(t *testing.T) {
	dir := NewDirectory(store.NewMemoryStore(), bcrypt.MinCost, discardLogger())

	profile, err := dir.SocialLogin(context.Background(), domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "Google User", profile.Name)
	assert.Equal(t, "user@google.com", profile.Email)
}

func TestDirectory_PersistFailure(t *testing.T) {
	st := store.NewMemoryStore()
	st.FailSave = map[string]error{store.RecordDirectory: assert.AnError}
	dir := NewDirectory(st, bcrypt.MinCost, discardLogger())

	_, err := dir.Register(context.Background(), RegisterRequest{Name: "A", Email: "a@x.com", Password: "pass"})
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	_, err = dir.Login(context.Background(), "a@x.com", "pass")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}
