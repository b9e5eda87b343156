package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	pkgAuth "github.com/angelmondragon/siteboss-backend/pkg/auth"
	"github.com/angelmondragon/siteboss-backend/pkg/auth/session"
	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/security"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	accessDeniedMessage       = "access denied"
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*RefreshResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Restore(ctx context.Context, accessToken string) *SessionState
}

type service struct {
	owners      ownerRepository
	workers     workerRepository
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	accessCodes bool
	logg        *logger.Logger
	now         func() time.Time
}

type ownerRepository interface {
	Create(ctx context.Context, owner *models.Owner) error
	FindByMobile(ctx context.Context, mobile string) (*models.Owner, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Owner, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type workerRepository interface {
	FindByMobile(ctx context.Context, mobile string) (*models.Worker, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)
	MobileTaken(ctx context.Context, mobile string) (bool, error)
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID, subject string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	OwnerRepo      ownerRepository
	WorkerRepo     workerRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	// AccessCodes makes workers prove their one-time access code on login.
	AccessCodes bool
	Logger      *logger.Logger
}

// NewService constructs the session service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.OwnerRepo == nil {
		return nil, fmt.Errorf("owner repository is required")
	}
	if params.WorkerRepo == nil {
		return nil, fmt.Errorf("worker repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		owners:      params.OwnerRepo,
		workers:     params.WorkerRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		accessCodes: params.AccessCodes,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// account is a resolved owner or worker ready to be put in a token.
type account struct {
	payload pkgAuth.AccessTokenPayload
	user    *SessionUser
}

func ownerAccount(o *models.Owner) account {
	return account{
		payload: pkgAuth.AccessTokenPayload{
			UserID:  o.ID,
			OwnerID: o.ID,
			Role:    enums.RoleOwner,
			Name:    o.Name,
		},
		user: ownerUser(o),
	}
}

func workerAccount(w *models.Worker) account {
	return account{
		payload: pkgAuth.AccessTokenPayload{
			UserID:    w.ID,
			OwnerID:   w.OwnerID,
			Role:      w.Role,
			ProjectID: w.ProjectID,
			Name:      w.Name,
		},
		user: workerUser(w),
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.Required("name")
	}
	mobile := types.NormalizeMobile(req.Mobile)
	if mobile == "" {
		return nil, pkgerrors.Required("mobile")
	}
	company := strings.TrimSpace(req.CompanyName)
	if company == "" {
		return nil, pkgerrors.Required("company_name")
	}
	if req.Password == "" {
		return nil, pkgerrors.Required("password")
	}

	taken, err := s.workers.MobileTaken(ctx, mobile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check mobile")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "mobile number already registered").
			WithDetails(map[string]string{"mobile": "already registered"})
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	now := s.now()
	owner := &models.Owner{
		Name:                 name,
		Mobile:               mobile,
		CompanyName:          company,
		PasswordHash:         hash,
		NotificationsEnabled: true,
		DefaultView:          enums.DefaultViewDashboard,
		LastLoginAt:          &now,
	}
	if err := s.owners.Create(ctx, owner); err != nil {
		return nil, err
	}
	return s.issue(ctx, ownerAccount(owner), now)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	mobile := types.NormalizeMobile(req.Mobile)
	if mobile == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	owner, err := s.owners.FindByMobile(ctx, mobile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup owner")
	}
	if owner != nil {
		return s.loginOwner(ctx, owner, req.Password)
	}

	worker, err := s.workers.FindByMobile(ctx, mobile)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup worker")
	}
	if worker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, accessDeniedMessage)
	}
	return s.loginWorker(ctx, worker, req.AccessCode)
}

func (s *service) loginOwner(ctx context.Context, owner *models.Owner, password string) (*LoginResponse, error) {
	if password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	valid, err := security.VerifyPassword(password, owner.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	s.upgradePasswordHash(ctx, owner, password)

	now := s.now()
	if err := s.owners.UpdateLastLogin(ctx, owner.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	owner.LastLoginAt = &now
	return s.issue(ctx, ownerAccount(owner), now)
}

// upgradePasswordHash re-encodes the owner's password after a successful
// login when the configured argon2 cost has changed. Failures only log.
func (s *service) upgradePasswordHash(ctx context.Context, owner *models.Owner, password string) {
	if !security.NeedsRehash(owner.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.owners.UpdatePasswordHash(ctx, owner.ID, hash)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithOwnerID(ctx, owner.ID.String()), "auth.password_rehash_failed")
		}
		return
	}
	owner.PasswordHash = hash
}

func (s *service) loginWorker(ctx context.Context, worker *models.Worker, code string) (*LoginResponse, error) {
	if !worker.Active() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !worker.Role.IsWorker() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, accessDeniedMessage)
	}
	if s.accessCodes {
		if worker.AccessCodeHash == nil || strings.TrimSpace(code) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		valid, err := security.VerifyAccessCode(code, *worker.AccessCodeHash)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify access code")
		}
		if !valid {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
	}

	now := s.now()
	if err := s.workers.TouchLogin(ctx, worker.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	worker.LastLoginAt = &now
	return s.issue(ctx, workerAccount(worker), now)
}

func (s *service) issue(ctx context.Context, acct account, now time.Time) (*LoginResponse, error) {
	dashboard, err := access.Route(acct.payload.Role)
	if err != nil {
		return nil, err
	}

	accessID := session.NewAccessID()
	payload := acct.payload
	payload.JTI = accessID
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID, payload.UserID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         acct.user,
		Dashboard:    dashboard,
	}, nil
}

// Refresh rotates the refresh session bound to the presented access token
// and mints a token for the account as it is stored now.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*RefreshResponse, error) {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return nil, err
	}

	rotation, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}
	if rotation.Subject != claims.UserID.String() {
		_ = s.session.Revoke(ctx, rotation.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	acct, err := s.load(ctx, claims.Role, claims.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	if acct == nil {
		_ = s.session.Revoke(ctx, rotation.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, accessDeniedMessage)
	}

	payload := acct.payload
	payload.JTI = rotation.AccessID
	minted, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &RefreshResponse{AccessToken: minted, RefreshToken: rotation.RefreshToken}, nil
}

// Logout revokes the refresh session tied to the presented access token.
// Expired tokens are accepted so a stale client can still sign out.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return err
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *service) Restore(ctx context.Context, accessToken string) *SessionState {
	signedOut := &SessionState{Authenticated: false}
	if strings.TrimSpace(accessToken) == "" {
		return signedOut
	}

	claims, err := pkgAuth.ParseAccessToken(s.jwtCfg, accessToken)
	if err != nil || claims.ID == "" {
		return signedOut
	}
	active, err := s.session.HasSession(ctx, claims.ID)
	if err != nil {
		s.warn(ctx, "auth.restore.session_lookup_failed", err)
		return signedOut
	}
	if !active {
		return signedOut
	}

	acct, err := s.load(ctx, claims.Role, claims.UserID)
	if err != nil {
		s.warn(ctx, "auth.restore.account_lookup_failed", err)
		return signedOut
	}
	if acct == nil {
		return signedOut
	}
	dashboard, err := access.Route(acct.user.Role)
	if err != nil {
		return signedOut
	}
	return &SessionState{Authenticated: true, User: acct.user, Dashboard: &dashboard}
}

func (s *service) sessionClaims(accessToken string) (*pkgAuth.AccessTokenClaims, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

// load re-reads the account behind a token. It returns nil when the account
// no longer exists or can no longer sign in.
func (s *service) load(ctx context.Context, role enums.Role, id uuid.UUID) (*account, error) {
	switch {
	case role == enums.RoleOwner:
		owner, err := s.owners.FindByID(ctx, id)
		if err != nil || owner == nil {
			return nil, err
		}
		acct := ownerAccount(owner)
		return &acct, nil
	case role.IsWorker():
		worker, err := s.workers.FindByID(ctx, id)
		if err != nil || worker == nil {
			return nil, err
		}
		if !worker.Active() || worker.Role != role {
			return nil, nil
		}
		acct := workerAccount(worker)
		return &acct, nil
	default:
		return nil, nil
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
