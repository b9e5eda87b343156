package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	pkgAuth "github.com/angelmondragon/siteboss-backend/pkg/auth"
	"github.com/angelmondragon/siteboss-backend/pkg/auth/session"
	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "siteboss",
	ExpirationMinutes: 30,
}

func TestLoginOwnerWithPassword(t *testing.T) {
	owner := newOwner(t, "+919800000001", "owner-secret")
	svc, sessions := buildTestService(t, []*models.Owner{owner}, nil, true)

	resp, err := svc.Login(context.Background(), LoginRequest{Mobile: "+91 98000 00001", Password: "owner-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.RoleOwner || claims.OwnerID != owner.ID || claims.UserID != owner.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if resp.Dashboard.View != access.ViewOwnerConsole {
		t.Fatalf("expected owner console, got %s", resp.Dashboard.View)
	}
	if resp.User.CompanyName != "Asha Constructions" || resp.User.LastLoginAt == nil {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if sessions.records[claims.ID].token != resp.RefreshToken {
		t.Fatalf("refresh session not stored under jti")
	}
	if sessions.records[claims.ID].subject != owner.ID.String() {
		t.Fatalf("refresh session bound to wrong subject")
	}
}

func TestLoginOwnerUpgradesStalePasswordHash(t *testing.T) {
	owner := newOwner(t, "+919800000001", "owner-secret")
	stale := owner.PasswordHash
	ownerRepo := &stubOwnerRepo{byID: map[uuid.UUID]*models.Owner{owner.ID: owner}}
	svc, err := NewService(ServiceParams{
		OwnerRepo:      ownerRepo,
		WorkerRepo:     &stubWorkerRepo{byID: map[uuid.UUID]*models.Worker{}, owners: ownerRepo},
		SessionManager: &stubSessionManager{records: map[string]stubSession{}},
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 2},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.Login(context.Background(), LoginRequest{Mobile: owner.Mobile, Password: "owner-secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if ownerRepo.rehashed != 1 || owner.PasswordHash == stale {
		t.Fatalf("expected stale hash to be replaced, rehashed=%d", ownerRepo.rehashed)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Mobile: owner.Mobile, Password: "owner-secret"}); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if ownerRepo.rehashed != 1 {
		t.Fatalf("current hash should not be rewritten again, rehashed=%d", ownerRepo.rehashed)
	}
}

func TestLoginOwnerWrongPassword(t *testing.T) {
	owner := newOwner(t, "+919800000001", "owner-secret")
	svc, sessions := buildTestService(t, []*models.Owner{owner}, nil, true)

	_, err := svc.Login(context.Background(), LoginRequest{Mobile: owner.Mobile, Password: "nope"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
	if len(sessions.records) != 0 {
		t.Fatalf("expected no session on failed login")
	}
}

func TestLoginUnknownMobileDenied(t *testing.T) {
	svc, sessions := buildTestService(t, nil, nil, true)

	_, err := svc.Login(context.Background(), LoginRequest{Mobile: "+910000000000", AccessCode: "123-456"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
	if typed := pkgerrors.As(err); typed.Message() != accessDeniedMessage {
		t.Fatalf("expected access denied, got %q", typed.Message())
	}
	if len(sessions.records) != 0 {
		t.Fatalf("expected no session for unknown mobile")
	}
}

func TestLoginWorkerWithAccessCode(t *testing.T) {
	projectID := uuid.New()
	worker := newWorker(t, "+919811111111", "123-456", enums.RoleSupervisor, &projectID)
	svc, _ := buildTestService(t, nil, []*models.Worker{worker}, true)

	resp, err := svc.Login(context.Background(), LoginRequest{Mobile: worker.Mobile, AccessCode: "123 456"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != enums.RoleSupervisor || claims.OwnerID != worker.OwnerID {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ProjectID == nil || *claims.ProjectID != projectID {
		t.Fatalf("expected project claim")
	}
	if resp.Dashboard.View != access.ViewSupervisorSite {
		t.Fatalf("expected supervisor site, got %s", resp.Dashboard.View)
	}
}

func TestLoginWorkerWrongOrMissingCode(t *testing.T) {
	worker := newWorker(t, "+919811111111", "123-456", enums.RoleStoreKeeper, nil)
	svc, _ := buildTestService(t, nil, []*models.Worker{worker}, true)

	_, err := svc.Login(context.Background(), LoginRequest{Mobile: worker.Mobile, AccessCode: "654-321"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.Login(context.Background(), LoginRequest{Mobile: worker.Mobile})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginWorkerWithoutAccessCodes(t *testing.T) {
	worker := newWorker(t, "+919811111111", "123-456", enums.RoleStoreKeeper, nil)
	svc, _ := buildTestService(t, nil, []*models.Worker{worker}, false)

	resp, err := svc.Login(context.Background(), LoginRequest{Mobile: worker.Mobile})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Dashboard.View != access.ViewStoreKeeperDesk {
		t.Fatalf("expected store keeper desk, got %s", resp.Dashboard.View)
	}
}

func TestLoginInactiveWorkerRejected(t *testing.T) {
	worker := newWorker(t, "+919811111111", "123-456", enums.RoleSupervisor, nil)
	worker.Status = enums.WorkerStatusInactive
	svc, sessions := buildTestService(t, nil, []*models.Worker{worker}, false)

	_, err := svc.Login(context.Background(), LoginRequest{Mobile: worker.Mobile})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
	if len(sessions.records) != 0 {
		t.Fatalf("expected no session for inactive worker")
	}
}

func TestRegisterCreatesOwnerSession(t *testing.T) {
	svc, _ := buildTestService(t, nil, nil, true)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:        " Asha ",
		Mobile:      "+91 98000-00009",
		CompanyName: "Asha Constructions",
		Password:    "long-enough",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Role != enums.RoleOwner || resp.User.Name != "Asha" || resp.User.Mobile != "+919800000009" {
		t.Fatalf("unexpected user %+v", resp.User)
	}
	if resp.User.DefaultView == nil || *resp.User.DefaultView != enums.DefaultViewDashboard {
		t.Fatalf("expected dashboard default view")
	}

	login, err := svc.Login(context.Background(), LoginRequest{Mobile: "+919800000009", Password: "long-enough"})
	if err != nil {
		t.Fatalf("login after register: %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Fatalf("expected same owner")
	}
}

func TestRegisterRejectsTakenMobile(t *testing.T) {
	worker := newWorker(t, "+919811111111", "123-456", enums.RoleSupervisor, nil)
	svc, _ := buildTestService(t, nil, []*models.Worker{worker}, true)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:        "Asha",
		Mobile:      worker.Mobile,
		CompanyName: "Asha Constructions",
		Password:    "long-enough",
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestRefreshRotatesSession(t *testing.T) {
	owner := newOwner(t, "+919800000001", "owner-secret")
	svc, sessions := buildTestService(t, []*models.Owner{owner}, nil, true)
	login, err := svc.Login(context.Background(), LoginRequest{Mobile: owner.Mobile, Password: "owner-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	oldClaims, _ := pkgAuth.ParseAccessToken(testJWT, login.AccessToken)

	refreshed, err := svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	newClaims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed: %v", err)
	}
	if newClaims.ID == oldClaims.ID {
		t.Fatalf("expected new jti")
	}
	if _, ok := sessions.records[oldClaims.ID]; ok {
		t.Fatalf("expected old session removed")
	}

	_, err = svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefreshRejectsRevokedWorker(t *testing.T) {
	worker := newWorker(t, "+919811111111", "123-456", enums.RoleSupervisor, nil)
	svc, _ := buildTestService(t, nil, []*models.Worker{worker}, false)
	login, err := svc.Login(context.Background(), LoginRequest{Mobile: worker.Mobile})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	worker.Status = enums.WorkerStatusInactive
	_, err = svc.Refresh(context.Background(), login.AccessToken, login.RefreshToken)
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRestoreRoundTrip(t *testing.T) {
	owner := newOwner(t, "+919800000001", "owner-secret")
	svc, _ := buildTestService(t, []*models.Owner{owner}, nil, true)
	login, err := svc.Login(context.Background(), LoginRequest{Mobile: owner.Mobile, Password: "owner-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	state := svc.Restore(context.Background(), login.AccessToken)
	if !state.Authenticated || state.User.ID != owner.ID {
		t.Fatalf("expected restored owner, got %+v", state)
	}
	if state.Dashboard == nil || state.Dashboard.View != access.ViewOwnerConsole {
		t.Fatalf("expected owner dashboard")
	}

	if err := svc.Logout(context.Background(), login.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if state := svc.Restore(context.Background(), login.AccessToken); state.Authenticated {
		t.Fatalf("expected restore to fail after logout")
	}
}

func TestRestoreNeverFails(t *testing.T) {
	owner := newOwner(t, "+919800000001", "owner-secret")
	svc, sessions := buildTestService(t, []*models.Owner{owner}, nil, true)

	cases := map[string]string{
		"empty":   "",
		"garbage": "not-a-jwt",
	}
	for name, token := range cases {
		if state := svc.Restore(context.Background(), token); state.Authenticated {
			t.Fatalf("%s: expected unauthenticated", name)
		}
	}

	login, err := svc.Login(context.Background(), LoginRequest{Mobile: owner.Mobile, Password: "owner-secret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	sessions.failLookups = errors.New("redis down")
	if state := svc.Restore(context.Background(), login.AccessToken); state.Authenticated {
		t.Fatalf("expected unauthenticated when session store fails")
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
}

func buildTestService(t *testing.T, owners []*models.Owner, workers []*models.Worker, accessCodes bool) (Service, *stubSessionManager) {
	t.Helper()
	ownerRepo := &stubOwnerRepo{byID: map[uuid.UUID]*models.Owner{}}
	for _, o := range owners {
		ownerRepo.byID[o.ID] = o
	}
	workerRepo := &stubWorkerRepo{byID: map[uuid.UUID]*models.Worker{}, owners: ownerRepo}
	for _, w := range workers {
		workerRepo.byID[w.ID] = w
	}
	sessions := &stubSessionManager{records: map[string]stubSession{}}
	svc, err := NewService(ServiceParams{
		OwnerRepo:      ownerRepo,
		WorkerRepo:     workerRepo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		AccessCodes:    accessCodes,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

func newOwner(t *testing.T, mobile, password string) *models.Owner {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.Owner{
		ID:                   uuid.New(),
		Name:                 "Asha Builder",
		Mobile:               mobile,
		CompanyName:          "Asha Constructions",
		PasswordHash:         hash,
		NotificationsEnabled: true,
		DefaultView:          enums.DefaultViewDashboard,
	}
}

func newWorker(t *testing.T, mobile, code string, role enums.Role, projectID *uuid.UUID) *models.Worker {
	t.Helper()
	hash, err := security.HashAccessCode(code, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash code: %v", err)
	}
	return &models.Worker{
		ID:             uuid.New(),
		OwnerID:        uuid.New(),
		ProjectID:      projectID,
		Name:           "Ravi Site",
		Mobile:         mobile,
		Role:           role,
		Status:         enums.WorkerStatusActive,
		AccessCodeHash: &hash,
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

type stubOwnerRepo struct {
	byID     map[uuid.UUID]*models.Owner
	rehashed int
}

func (s *stubOwnerRepo) Create(_ context.Context, owner *models.Owner) error {
	if owner.ID == uuid.Nil {
		owner.ID = uuid.New()
	}
	s.byID[owner.ID] = owner
	return nil
}

func (s *stubOwnerRepo) FindByMobile(_ context.Context, mobile string) (*models.Owner, error) {
	for _, o := range s.byID {
		if o.Mobile == mobile {
			return o, nil
		}
	}
	return nil, nil
}

func (s *stubOwnerRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Owner, error) {
	return s.byID[id], nil
}

func (s *stubOwnerRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if o, ok := s.byID[id]; ok {
		o.LastLoginAt = &at
	}
	return nil
}

func (s *stubOwnerRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.rehashed++
	if o, ok := s.byID[id]; ok {
		o.PasswordHash = hash
	}
	return nil
}

type stubWorkerRepo struct {
	byID   map[uuid.UUID]*models.Worker
	owners *stubOwnerRepo
}

func (s *stubWorkerRepo) FindByMobile(_ context.Context, mobile string) (*models.Worker, error) {
	for _, w := range s.byID {
		if w.Mobile == mobile {
			return w, nil
		}
	}
	return nil, nil
}

func (s *stubWorkerRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Worker, error) {
	return s.byID[id], nil
}

func (s *stubWorkerRepo) MobileTaken(ctx context.Context, mobile string) (bool, error) {
	if w, _ := s.FindByMobile(ctx, mobile); w != nil {
		return true, nil
	}
	o, _ := s.owners.FindByMobile(ctx, mobile)
	return o != nil, nil
}

func (s *stubWorkerRepo) TouchLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if w, ok := s.byID[id]; ok {
		w.LastLoginAt = &at
	}
	return nil
}

type stubSession struct {
	token   string
	subject string
}

type stubSessionManager struct {
	records     map[string]stubSession
	failLookups error
}

func (s *stubSessionManager) Generate(_ context.Context, accessID, subject string) (string, error) {
	token := "refresh-" + uuid.NewString()
	s.records[accessID] = stubSession{token: token, subject: subject}
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error) {
	current, ok := s.records[oldAccessID]
	if !ok || current.token != provided {
		return session.Rotation{}, session.ErrInvalidRefreshToken
	}
	delete(s.records, oldAccessID)
	newID := session.NewAccessID()
	token, _ := s.Generate(ctx, newID, current.subject)
	return session.Rotation{AccessID: newID, RefreshToken: token, Subject: current.subject}, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	delete(s.records, accessID)
	return nil
}

func (s *stubSessionManager) HasSession(_ context.Context, accessID string) (bool, error) {
	if s.failLookups != nil {
		return false, s.failLookups
	}
	_, ok := s.records[accessID]
	return ok, nil
}
