package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront-admin/internal/auth"
	"storefront-admin/internal/domain"
	"storefront-admin/internal/repository"
)

const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
	DefaultTokenTTL      = 24 * time.Hour

	maxPasswordBytes = 72
)

// AdminConfig tunes the bootstrap and credential rotation behaviour.
type AdminConfig struct {
	DefaultUsername string
	DefaultPassword string
	// SetupToken gates LegacySetup. When empty the legacy path is closed.
	SetupToken string
	TokenTTL   time.Duration
	// HideDefaultCredentials stops CheckSetupStatus from returning the
	// factory username and password to unauthenticated callers.
	HideDefaultCredentials bool
	// RejectRepeatedRotation makes CompleteRotation fail with
	// ErrAlreadySetup once the credentials have been rotated.
	RejectRepeatedRotation bool
}

// AdminView is the public projection of the admin account.
type AdminView struct {
	ID       string
	Username string
	IsSetup  bool
}

// NeedsSetup reports whether the client must still force credential rotation.
func (v AdminView) NeedsSetup() bool {
	return !v.IsSetup
}

type DefaultCredentials struct {
	Username string
	Password string
}

// SetupStatus is returned by CheckSetupStatus. DefaultCredentials is only
// populated while the factory credentials are still active.
type SetupStatus struct {
	SetupComplete      bool
	DefaultCredentials *DefaultCredentials
}

// Session is a freshly issued token together with the admin it identifies.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Admin     AdminView
}

// AdminService drives the admin account through
// uninitialized -> default credentials -> rotated.
type AdminService interface {
	EnsureDefaultAdmin(ctx context.Context) error
	CheckSetupStatus(ctx context.Context) (*SetupStatus, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Verify(ctx context.Context, token string) (*AdminView, error)
	CompleteRotation(ctx context.Context, token, newUsername, newPassword string) (*Session, error)
	LegacySetup(ctx context.Context, username, password, setupToken string) (*Session, error)
}

type adminService struct {
	admins repository.AdminRepository
	hasher auth.Hasher
	tokens auth.TokenService
	cfg    AdminConfig
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewAdminService(admins repository.AdminRepository, hasher auth.Hasher, tokens auth.TokenService, cfg AdminConfig, log logrus.FieldLogger) AdminService {
	if cfg.DefaultUsername == "" {
		cfg.DefaultUsername = DefaultAdminUsername
	}
	if cfg.DefaultPassword == "" {
		cfg.DefaultPassword = DefaultAdminPassword
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	cfg.SetupToken = strings.TrimSpace(cfg.SetupToken)
	if log == nil {
		log = logrus.New()
	}
	return &adminService{
		admins: admins,
		hasher: hasher,
		tokens: tokens,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// EnsureDefaultAdmin creates the factory admin when the store is empty. A
// concurrent creator winning the race is not an error.
func (s *adminService) EnsureDefaultAdmin(ctx context.Context) error {
	_, err := s.admins.FindSingleton(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return storeError("find admin", err)
	}

	hash, err := s.hasher.Hash(s.cfg.DefaultPassword)
	if err != nil {
		return err
	}

	admin := &domain.Admin{
		ID:           uuid.NewString(),
		Username:     s.cfg.DefaultUsername,
		PasswordHash: hash,
		IsSetup:      false,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil
		}
		return storeError("create default admin", err)
	}

	s.log.WithField("username", admin.Username).Warn("default admin account created, credentials must be rotated")
	return nil
}

func (s *adminService) CheckSetupStatus(ctx context.Context) (*SetupStatus, error) {
	if err := s.EnsureDefaultAdmin(ctx); err != nil {
		return nil, err
	}

	admin, err := s.admins.FindSingleton(ctx)
	if err != nil {
		return nil, storeError("find admin", err)
	}

	status := &SetupStatus{SetupComplete: admin.IsSetup}
	if !admin.IsSetup && !s.cfg.HideDefaultCredentials {
		status.DefaultCredentials = &DefaultCredentials{
			Username: s.cfg.DefaultUsername,
			Password: s.cfg.DefaultPassword,
		}
	}
	return status, nil
}

func (s *adminService) Login(ctx context.Context, username, password string) (*Session, error) {
	if err := s.EnsureDefaultAdmin(ctx); err != nil {
		return nil, err
	}
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	admin, err := s.admins.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("find admin by username", err)
	}

	if !s.hasher.Verify(password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(admin)
}

func (s *adminService) Verify(ctx context.Context, token string) (*AdminView, error) {
	admin, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	view := viewOf(admin)
	return &view, nil
}

func (s *adminService) CompleteRotation(ctx context.Context, token, newUsername, newPassword string) (*Session, error) {
	admin, err := s.authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if err := checkCredentials(newUsername, newPassword); err != nil {
		return nil, err
	}
	if admin.IsSetup && s.cfg.RejectRepeatedRotation {
		return nil, ErrAlreadySetup
	}

	from := admin.State()
	if err := s.applyCredentials(admin, newUsername, newPassword); err != nil {
		return nil, err
	}
	if err := s.admins.Save(ctx, admin); err != nil {
		return nil, storeError("save admin", err)
	}

	s.log.WithFields(logrus.Fields{
		"admin_id": admin.ID,
		"username": admin.Username,
		"from":     from,
		"to":       admin.State(),
	}).Info("admin credentials rotated")
	return s.issue(admin)
}

// LegacySetup is the pre-rotation bootstrap path kept for older clients. An
// already rotated admin is reported before the setup token is even checked.
func (s *adminService) LegacySetup(ctx context.Context, username, password, setupToken string) (*Session, error) {
	existing, err := s.admins.FindSingleton(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError("find admin", err)
	}
	if existing != nil && existing.IsSetup {
		return nil, ErrAlreadySetup
	}

	if s.cfg.SetupToken == "" || subtle.ConstantTimeCompare([]byte(setupToken), []byte(s.cfg.SetupToken)) != 1 {
		return nil, ErrInvalidSetupToken
	}
	if err := checkCredentials(username, password); err != nil {
		return nil, err
	}

	if existing == nil {
		admin := &domain.Admin{ID: uuid.NewString()}
		if err := s.applyCredentials(admin, username, password); err != nil {
			return nil, err
		}
		err := s.admins.Create(ctx, admin)
		if err == nil {
			s.log.WithField("username", admin.Username).Info("admin account created via setup token")
			return s.issue(admin)
		}
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return nil, storeError("create admin", err)
		}

		// lost the race against a default-admin bootstrap; update that record instead
		existing, err = s.admins.FindSingleton(ctx)
		if err != nil {
			return nil, storeError("find admin", err)
		}
		if existing.IsSetup {
			return nil, ErrAlreadySetup
		}
	}

	if err := s.applyCredentials(existing, username, password); err != nil {
		return nil, err
	}
	if err := s.admins.Save(ctx, existing); err != nil {
		return nil, storeError("save admin", err)
	}

	s.log.WithField("username", existing.Username).Info("admin account configured via setup token")
	return s.issue(existing)
}

func (s *adminService) authenticate(ctx context.Context, token string) (*domain.Admin, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	admin, err := s.admins.FindByID(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, storeError("find admin by id", err)
	}
	return admin, nil
}

// checkCredentials rejects input the hasher cannot store. bcrypt only reads
// the first 72 bytes of a password and x/crypto refuses anything longer.
func checkCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: username and password required", ErrMissingField)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	return nil
}

func (s *adminService) applyCredentials(admin *domain.Admin, username, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	admin.Username = username
	admin.PasswordHash = hash
	admin.IsSetup = true
	return nil
}

func (s *adminService) issue(admin *domain.Admin) (*Session, error) {
	expiresAt := s.now().Add(s.cfg.TokenTTL)
	token, err := s.tokens.Sign(admin.ID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     viewOf(admin),
	}, nil
}

func viewOf(admin *domain.Admin) AdminView {
	return AdminView{
		ID:       admin.ID,
		Username: admin.Username,
		IsSetup:  admin.IsSetup,
	}
}
