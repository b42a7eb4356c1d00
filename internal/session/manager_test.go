package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Proton-105/ekilore-core/internal/domain"
	apperrors "github.com/Proton-105/ekilore-core/internal/errors"
	"github.com/Proton-105/ekilore-core/internal/session"
	"github.com/Proton-105/ekilore-core/internal/session/mock"
	"github.com/Proton-105/ekilore-core/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func newManager(auth session.Authenticator, st store.Store) *session.Manager {
	return session.NewManager(auth,
		session.WithStore(st),
		session.WithLogger(testLogger()),
		session.WithClock(func() time.Time { return fixedNow }),
		session.WithRetryPolicy(apperrors.RetryPolicy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
	)
}

func assertUserPopulated(t *testing.T, u *domain.User) {
	t.Helper()

	require.NotNil(t, u)
	assert.NotEmpty(t, u.ID)
	assert.True(t, strings.HasPrefix(u.ReferralCode, "USER"), u.ReferralCode)
	assert.Len(t, u.ReferralCode, 12)
	assert.Equal(t, strings.ToUpper(u.ReferralCode), u.ReferralCode)
	assert.True(t, u.MemberSince.Equal(fixedNow))
}

func TestManager_InitialState(t *testing.T) {
	m := newManager(session.NewSimulated(0), nil)

	assert.Equal(t, session.StateAnonymous, m.State())
	assert.False(t, m.IsAuthenticated())
	_, ok := m.CurrentUser()
	assert.False(t, ok)
}

func TestManager_Login(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := newManager(session.NewSimulated(0), st)

	user, err := m.Login(ctx, "taro@example.jp", "secret")
	require.NoError(t, err)
	assertUserPopulated(t, user)
	assert.Equal(t, "ユーザー様", user.Name)
	assert.Equal(t, "taro@example.jp", user.Email)
	assert.NotEmpty(t, user.AvatarURL)

	assert.True(t, m.IsAuthenticated())
	current, ok := m.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, user, current)

	persisted, err := session.LoadSnapshot(ctx, st)
	require.NoError(t, err)
	assert.True(t, persisted.IsAuthenticated)
	assert.Equal(t, user.ID, persisted.User.ID)
}

func TestManager_Register(t *testing.T) {
	m := newManager(session.NewSimulated(0), store.NewMemoryStore())

	user, err := m.Register(context.Background(), session.RegisterRequest{
		Name:         "Alice",
		Email:        "a@x.com",
		Password:     "pw",
		ReferralCode: "REF1",
	})
	require.NoError(t, err)
	assertUserPopulated(t, user)

	current, ok := m.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "Alice", current.Name)
	assert.Equal(t, "REF1", current.ReferredBy)
	assert.True(t, m.IsAuthenticated())
}

func TestManager_RegisterGeneratesDistinctIdentities(t *testing.T) {
	ctx := context.Background()
	m := newManager(session.NewSimulated(0), nil)

	first, err := m.Register(ctx, session.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	second, err := m.Register(ctx, session.RegisterRequest{Name: "B", Email: "b@x.com", Password: "pw"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.ReferralCode, second.ReferralCode)
	assert.Empty(t, second.ReferredBy)

	current, _ := m.CurrentUser()
	assert.Equal(t, second.ID, current.ID)
}

func TestManager_SocialLogin(t *testing.T) {
	testCases := []struct {
		provider domain.Provider
		name     string
		email    string
	}{
		{provider: domain.ProviderGoogle, name: "Google User", email: "user@google.com"},
		{provider: domain.ProviderApple, name: "Apple User", email: "user@apple.com"},
		{provider: domain.ProviderLine, name: "LINE User", email: "user@line.com"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(string(tc.provider), func(t *testing.T) {
			m := newManager(session.NewSimulated(0), nil)

			user, err := m.SocialLogin(context.Background(), tc.provider)
			require.NoError(t, err)
			assertUserPopulated(t, user)
			assert.Equal(t, tc.name, user.Name)
			assert.Equal(t, tc.email, user.Email)
			assert.True(t, m.IsAuthenticated())
		})
	}
}

func TestManager_SocialLoginUnknownProvider(t *testing.T) {
	m := newManager(session.NewSimulated(0), nil)

	_, err := m.SocialLogin(context.Background(), domain.Provider("myspace"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.False(t, m.IsAuthenticated())
}

func TestManager_Logout(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := newManager(session.NewSimulated(0), st)

	require.NoError(t, m.Logout(ctx), "logout while anonymous succeeds")

	_, err := m.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))

	assert.False(t, m.IsAuthenticated())
	_, ok := m.CurrentUser()
	assert.False(t, ok)

	_, err = st.Load(ctx, store.RecordAuth)
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestManager_AuthFailuresLeaveStateUnchanged(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		err     error
		calls   int
		wantErr error
	}{
		{name: "invalid credentials", err: apperrors.NewInvalidCredentialsError(), calls: 1, wantErr: apperrors.ErrInvalidCredentials},
		{name: "provider error", err: apperrors.NewProviderError("idp", errors.New("503")), calls: 1, wantErr: apperrors.ErrProviderError},
		{name: "network failure exhausts retries", err: apperrors.NewNetworkError("login", errors.New("timeout")), calls: 3, wantErr: apperrors.ErrNetworkFailure},
		{name: "plain error becomes provider error", err: errors.New("boom"), calls: 1, wantErr: apperrors.ErrProviderError},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			auth := mock.NewMockAuthenticator(ctrl)
			auth.EXPECT().Login(gomock.Any(), "a@x.com", "pw").Return(session.Profile{}, tc.err).Times(tc.calls)

			st := store.NewMemoryStore()
			m := newManager(auth, st)

			user, err := m.Login(ctx, "a@x.com", "pw")
			assert.Nil(t, user)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.False(t, m.IsAuthenticated())

			_, loadErr := st.Load(ctx, store.RecordAuth)
			assert.ErrorIs(t, loadErr, store.ErrRecordNotFound)
		})
	}
}

func TestManager_FailedLoginKeepsPreviousUser(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	auth := mock.NewMockAuthenticator(ctrl)

	gomock.InOrder(
		auth.EXPECT().Login(gomock.Any(), "first@x.com", "pw").Return(session.Profile{Name: "First"}, nil),
		auth.EXPECT().Login(gomock.Any(), "second@x.com", "bad").Return(session.Profile{}, apperrors.NewInvalidCredentialsError()),
	)

	m := newManager(auth, nil)
	first, err := m.Login(ctx, "first@x.com", "pw")
	require.NoError(t, err)

	_, err = m.Login(ctx, "second@x.com", "bad")
	require.Error(t, err)

	current, ok := m.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, first.ID, current.ID)
}

func TestManager_NetworkFailureRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mock.NewMockAuthenticator(ctrl)

	gomock.InOrder(
		auth.EXPECT().SocialLogin(gomock.Any(), domain.ProviderLine).Return(session.Profile{}, apperrors.NewNetworkError("social", errors.New("reset"))),
		auth.EXPECT().SocialLogin(gomock.Any(), domain.ProviderLine).Return(session.Profile{ID: "line-1", Name: "LINE User"}, nil),
	)

	m := newManager(auth, nil)
	user, err := m.SocialLogin(context.Background(), domain.ProviderLine)
	require.NoError(t, err)
	assert.Equal(t, "line-1", user.ID)
}

func TestManager_CancellationAbortsTransition(t *testing.T) {
	m := newManager(session.NewSimulated(time.Hour), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Login(ctx, "a@x.com", "pw")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, m.IsAuthenticated())
}

func TestManager_CancelledAfterBackendAnswered(t *testing.T) {
	ctrl := gomock.NewController(t)
	auth := mock.NewMockAuthenticator(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, string) (session.Profile, error) {
			cancel()
			return session.Profile{Name: "Late"}, nil
		})

	m := newManager(auth, nil)
	_, err := m.Login(ctx, "a@x.com", "pw")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, m.IsAuthenticated())
}

func TestManager_PersistFailureLeavesStateUnchanged(t *testing.T) {
	st := store.NewMemoryStore()
	st.FailSave = map[string]error{store.RecordAuth: errors.New("disk full")}
	m := newManager(session.NewSimulated(0), st)

	_, err := m.Login(context.Background(), "a@x.com", "pw")
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.False(t, m.IsAuthenticated())
}

func TestManager_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	m := newManager(session.NewSimulated(0), nil)
	user, err := m.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.True(t, snap.IsAuthenticated)

	restored := newManager(session.NewSimulated(0), nil)
	restored.Restore(snap)
	current, ok := restored.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, user.ID, current.ID)

	restored.Restore(session.AuthSnapshot{IsAuthenticated: true})
	assert.False(t, restored.IsAuthenticated(), "authenticated snapshot without a user restores anonymous")
}

func TestManager_TransitionRecorder(t *testing.T) {
	var transitions []string
	session.RegisterTransitionRecorder(func(from, to string) {
		transitions = append(transitions, from+"->"+to)
	})
	defer session.RegisterTransitionRecorder(nil)

	ctx := context.Background()
	m := newManager(session.NewSimulated(0), nil)
	_, err := m.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	_, err = m.SocialLogin(ctx, domain.ProviderApple)
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))
	require.NoError(t, m.Logout(ctx))

	assert.Equal(t, []string{
		"anonymous->authenticated",
		"authenticated->authenticated",
		"authenticated->anonymous",
		"anonymous->anonymous",
	}, transitions)
}
