package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront-admin/internal/auth"
	"storefront-admin/internal/domain"
	"storefront-admin/internal/repository"
	"storefront-admin/internal/repository/sqlite"
)

const testSetupToken = "legacy-setup-secret"

type adminFixture struct {
	db     *sql.DB
	repo   repository.AdminRepository
	tokens auth.TokenService
	svc    AdminService
}

func newAdminFixture(t *testing.T, cfg AdminConfig) *adminFixture {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewAdminRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	tokens, err := auth.NewJWTService("test-secret-key-for-jwt-signing-32-chars", "test")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &adminFixture{
		db:     db,
		repo:   repo,
		tokens: tokens,
		svc:    NewAdminService(repo, auth.NewBcryptHasher(bcrypt.MinCost), tokens, cfg, logger),
	}
}

func (f *adminFixture) count(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM admins`).Scan(&n))
	return n
}

func TestEnsureDefaultAdminCreatesFactoryAccount(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureDefaultAdmin(ctx))

	admin, err := f.repo.FindSingleton(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Username)
	assert.False(t, admin.IsSetup)
	assert.NotEmpty(t, admin.ID)
	assert.NotEqual(t, "admin123", admin.PasswordHash)
	assert.Equal(t, domain.SetupStateDefaultCredentials, admin.State())
}

func TestEnsureDefaultAdminConcurrentSingleton(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.svc.EnsureDefaultAdmin(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, f.count(t))
}

func TestEnsureDefaultAdminIsIdempotent(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureDefaultAdmin(ctx))
	before, err := f.repo.FindSingleton(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.EnsureDefaultAdmin(ctx))
	after, err := f.repo.FindSingleton(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Username, after.Username)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.Equal(t, before.IsSetup, after.IsSetup)

	session, err := f.svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	_, err = f.svc.CompleteRotation(ctx, session.Token, "alice", "secret1")
	require.NoError(t, err)
	rotated, err := f.repo.FindSingleton(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.EnsureDefaultAdmin(ctx))
	again, err := f.repo.FindSingleton(ctx)
	require.NoError(t, err)
	assert.Equal(t, rotated.Username, again.Username)
	assert.Equal(t, rotated.PasswordHash, again.PasswordHash)
	assert.True(t, again.IsSetup)
	assert.Equal(t, 1, f.count(t))
}

func TestCheckSetupStatusExposesDefaultsOnlyBeforeRotation(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	status, err := f.svc.CheckSetupStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.SetupComplete)
	require.NotNil(t, status.DefaultCredentials)
	assert.Equal(t, "admin", status.DefaultCredentials.Username)
	assert.Equal(t, "admin123", status.DefaultCredentials.Password)

	session, err := f.svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	_, err = f.svc.CompleteRotation(ctx, session.Token, "alice", "secret1")
	require.NoError(t, err)

	status, err = f.svc.CheckSetupStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.SetupComplete)
	assert.Nil(t, status.DefaultCredentials)
}

func TestCheckSetupStatusHidesDefaultsWhenConfigured(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{HideDefaultCredentials: true})

	status, err := f.svc.CheckSetupStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.SetupComplete)
	assert.Nil(t, status.DefaultCredentials)
}

func TestLogin(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "default credentials", username: "admin", password: "admin123"},
		{name: "wrong password", username: "admin", password: "admin124", wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "root", password: "admin123", wantErr: ErrInvalidCredentials},
		{name: "case mismatch", username: "Admin", password: "admin123", wantErr: ErrInvalidCredentials},
		{name: "empty fields", username: "", password: "", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := f.svc.Login(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, session.Token)
			assert.Equal(t, "admin", session.Admin.Username)
			assert.False(t, session.Admin.IsSetup)
			assert.True(t, session.Admin.NeedsSetup())
			assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), session.ExpiresAt, time.Minute)
		})
	}
}

func TestVerify(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	view, err := f.svc.Verify(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Admin, *view)

	_, err = f.svc.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.svc.Verify(ctx, session.Token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := f.tokens.Sign(session.Admin.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	orphan, err := f.tokens.Sign("no-such-admin", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, orphan)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCompleteRotation(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	rotated, err := f.svc.CompleteRotation(ctx, session.Token, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", rotated.Admin.Username)
	assert.True(t, rotated.Admin.IsSetup)
	assert.Equal(t, session.Admin.ID, rotated.Admin.ID)
	assert.NotEmpty(t, rotated.Token)

	_, err = f.svc.Login(ctx, "admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	again, err := f.svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.True(t, again.Admin.IsSetup)

	// the pre-rotation token still identifies the same admin
	view, err := f.svc.Verify(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", view.Username)
}

func TestCompleteRotationCanRepeat(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	first, err := f.svc.CompleteRotation(ctx, session.Token, "alice", "secret1")
	require.NoError(t, err)

	second, err := f.svc.CompleteRotation(ctx, first.Token, "bob", "secret2")
	require.NoError(t, err)
	assert.Equal(t, "bob", second.Admin.Username)

	_, err = f.svc.Login(ctx, "alice", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "bob", "secret2")
	assert.NoError(t, err)
}

func TestCompleteRotationRejectsRepeatWhenConfigured(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{RejectRepeatedRotation: true})
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	first, err := f.svc.CompleteRotation(ctx, session.Token, "alice", "secret1")
	require.NoError(t, err)

	_, err = f.svc.CompleteRotation(ctx, first.Token, "bob", "secret2")
	assert.ErrorIs(t, err, ErrAlreadySetup)
}

func TestCompleteRotationFailures(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	session, err := f.svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		newUsername string
		newPassword string
		wantErr     error
	}{
		{name: "no token", token: "", newUsername: "alice", newPassword: "secret1", wantErr: ErrUnauthenticated},
		{name: "bad token", token: "bogus", newUsername: "alice", newPassword: "secret1", wantErr: ErrUnauthenticated},
		{name: "missing username", token: session.Token, newUsername: "", newPassword: "secret1", wantErr: ErrMissingField},
		{name: "blank password", token: session.Token, newUsername: "alice", newPassword: "  ", wantErr: ErrMissingField},
		{name: "password over 72 bytes", token: session.Token, newUsername: "alice", newPassword: strings.Repeat("p", 80), wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CompleteRotation(ctx, tt.token, tt.newUsername, tt.newPassword)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	admin, err := f.repo.FindSingleton(ctx)
	require.NoError(t, err)
	assert.False(t, admin.IsSetup)
	assert.Equal(t, "admin", admin.Username)
}

func TestLegacySetup(t *testing.T) {
	t.Run("empty store creates rotated admin", func(t *testing.T) {
		f := newAdminFixture(t, AdminConfig{SetupToken: testSetupToken})
		ctx := context.Background()

		session, err := f.svc.LegacySetup(ctx, "owner", "pass1", testSetupToken)
		require.NoError(t, err)
		assert.True(t, session.Admin.IsSetup)
		assert.Equal(t, "owner", session.Admin.Username)
		assert.Equal(t, 1, f.count(t))

		_, err = f.svc.Login(ctx, "owner", "pass1")
		assert.NoError(t, err)
	})

	t.Run("default admin is updated in place", func(t *testing.T) {
		f := newAdminFixture(t, AdminConfig{SetupToken: testSetupToken})
		ctx := context.Background()
		require.NoError(t, f.svc.EnsureDefaultAdmin(ctx))
		before, err := f.repo.FindSingleton(ctx)
		require.NoError(t, err)

		session, err := f.svc.LegacySetup(ctx, "owner", "pass1", testSetupToken)
		require.NoError(t, err)
		assert.Equal(t, before.ID, session.Admin.ID)
		assert.Equal(t, 1, f.count(t))

		_, err = f.svc.Login(ctx, "admin", "admin123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong setup token", func(t *testing.T) {
		f := newAdminFixture(t, AdminConfig{SetupToken: testSetupToken})
		_, err := f.svc.LegacySetup(context.Background(), "owner", "pass1", "nope")
		assert.ErrorIs(t, err, ErrInvalidSetupToken)
	})

	t.Run("unconfigured setup token never matches", func(t *testing.T) {
		f := newAdminFixture(t, AdminConfig{})
		_, err := f.svc.LegacySetup(context.Background(), "owner", "pass1", "")
		assert.ErrorIs(t, err, ErrInvalidSetupToken)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newAdminFixture(t, AdminConfig{SetupToken: testSetupToken})
		_, err := f.svc.LegacySetup(context.Background(), "", "pass1", testSetupToken)
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("password longer than bcrypt accepts", func(t *testing.T) {
		f := newAdminFixture(t, AdminConfig{SetupToken: testSetupToken})
		ctx := context.Background()
		_, err := f.svc.LegacySetup(ctx, "owner", strings.Repeat("p", 80), testSetupToken)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Equal(t, 0, f.count(t))

		_, err = f.svc.LegacySetup(ctx, "owner", strings.Repeat("p", 72), testSetupToken)
		assert.NoError(t, err)
	})

	t.Run("rotated admin conflicts regardless of token", func(t *testing.T) {
		f := newAdminFixture(t, AdminConfig{SetupToken: testSetupToken})
		ctx := context.Background()
		session, err := f.svc.Login(ctx, "admin", "admin123")
		require.NoError(t, err)
		_, err = f.svc.CompleteRotation(ctx, session.Token, "alice", "secret1")
		require.NoError(t, err)

		for _, token := range []string{testSetupToken, "wrong", ""} {
			_, err := f.svc.LegacySetup(ctx, "mallory", "pwned", token)
			assert.ErrorIs(t, err, ErrAlreadySetup, "token %q", token)
		}
		_, err = f.svc.Login(ctx, "alice", "secret1")
		assert.NoError(t, err)
	})
}

func TestBootstrapScenario(t *testing.T) {
	f := newAdminFixture(t, AdminConfig{})
	ctx := context.Background()

	status, err := f.svc.CheckSetupStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.SetupComplete)
	assert.Equal(t, &DefaultCredentials{Username: "admin", Password: "admin123"}, status.DefaultCredentials)

	session, err := f.svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.False(t, session.Admin.IsSetup)

	rotated, err := f.svc.CompleteRotation(ctx, session.Token, "shopowner", "mypassword")
	require.NoError(t, err)
	assert.True(t, rotated.Admin.IsSetup)
	assert.NotEmpty(t, rotated.Token)

	_, err = f.svc.Login(ctx, "admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	final, err := f.svc.Login(ctx, "shopowner", "mypassword")
	require.NoError(t, err)
	assert.True(t, final.Admin.IsSetup)
}

type failingAdminRepo struct {
	repository.AdminRepository
	err error
}

func (r failingAdminRepo) FindSingleton(context.Context) (*domain.Admin, error) {
	return nil, r.err
}

func TestStoreFailuresSurfaceAsStoreError(t *testing.T) {
	boom := errors.New("disk on fire")
	tokens, err := auth.NewJWTService("test-secret-key-for-jwt-signing-32-chars", "")
	require.NoError(t, err)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := NewAdminService(failingAdminRepo{err: boom}, auth.NewBcryptHasher(bcrypt.MinCost), tokens, AdminConfig{}, logger)

	_, err = svc.CheckSetupStatus(context.Background())
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, boom)

	_, err = svc.Login(context.Background(), "admin", "admin123")
	assert.ErrorAs(t, err, &storeErr)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
