package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/access/accesstest"
	"github.com/angelmondragon/siteboss-backend/pkg/config"
	"github.com/angelmondragon/siteboss-backend/pkg/db/dbtest"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
	"github.com/angelmondragon/siteboss-backend/pkg/security"
)

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func newTestService(t *testing.T, accessCodes bool) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), Options{Password: fastArgon, AccessCodes: accessCodes})
	require.NoError(t, err)
	return svc, conn
}

func seedProject(t *testing.T, conn *gorm.DB, owner access.Actor) uuid.UUID {
	t.Helper()
	project := &models.Project{OwnerID: owner.OwnerID, Name: "Skyline", Location: "Pune", Status: enums.ProjectStatusActive}
	require.NoError(t, conn.Create(project).Error)
	return project.ID
}

func TestCreateIssuesAccessCodeOnce(t *testing.T) {
	svc, conn := newTestService(t, true)
	owner := accesstest.Owner()
	projectID := seedProject(t, conn, owner)

	issued, err := svc.Create(context.Background(), owner, CreateWorkerInput{
		Name:      " Ravi ",
		Mobile:    "+91 98765-43210",
		Role:      "supervisor",
		ProjectID: &projectID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", issued.Worker.Name)
	assert.Equal(t, "+919876543210", issued.Worker.Mobile)
	assert.Equal(t, enums.RoleSupervisor, issued.Worker.Role)
	assert.Equal(t, enums.WorkerStatusActive, issued.Worker.Status)
	assert.True(t, issued.Worker.HasAccessCode)
	require.NotEmpty(t, issued.AccessCode)

	var stored models.Worker
	require.NoError(t, conn.First(&stored, "id = ?", issued.Worker.ID).Error)
	require.NotNil(t, stored.AccessCodeHash)
	assert.NotEqual(t, issued.AccessCode, *stored.AccessCodeHash)
	ok, err := security.VerifyAccessCode(issued.AccessCode, *stored.AccessCodeHash)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := svc.Get(context.Background(), owner, issued.Worker.ID)
	require.NoError(t, err)
	assert.True(t, got.HasAccessCode)
}

func TestCreateWithoutAccessCodes(t *testing.T) {
	svc, _ := newTestService(t, false)

	issued, err := svc.Create(context.Background(), accesstest.Owner(), CreateWorkerInput{
		Name: "Meena", Mobile: "9000000001", Role: "STORE_KEEPER",
	})
	require.NoError(t, err)
	assert.Empty(t, issued.AccessCode)
	assert.False(t, issued.Worker.HasAccessCode)
}

func TestCreateRejectsDuplicateMobile(t *testing.T) {
	svc, conn := newTestService(t, true)
	owner := accesstest.Owner()

	require.NoError(t, conn.Create(&models.Owner{
		Name: "Other", Mobile: "9000000002", PasswordHash: "x", DefaultView: enums.DefaultViewDashboard,
	}).Error)

	_, err := svc.Create(context.Background(), owner, CreateWorkerInput{Name: "A", Mobile: "9000000002", Role: "SUPERVISOR"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Create(context.Background(), owner, CreateWorkerInput{Name: "B", Mobile: "9000000003", Role: "SUPERVISOR"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), owner, CreateWorkerInput{Name: "C", Mobile: "90000 00003", Role: "SUPERVISOR"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t, true)
	owner := accesstest.Owner()
	foreign := uuid.New()

	cases := []struct {
		name  string
		input CreateWorkerInput
		code  pkgerrors.Code
	}{
		{"missing name", CreateWorkerInput{Mobile: "9000000010", Role: "SUPERVISOR"}, pkgerrors.CodeValidation},
		{"missing mobile", CreateWorkerInput{Name: "A", Mobile: "--", Role: "SUPERVISOR"}, pkgerrors.CodeValidation},
		{"owner role", CreateWorkerInput{Name: "A", Mobile: "9000000011", Role: "OWNER"}, pkgerrors.CodeValidation},
		{"unknown project", CreateWorkerInput{Name: "A", Mobile: "9000000012", Role: "SUPERVISOR", ProjectID: &foreign}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, tc.input)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestWorkersCannotManageStaff(t *testing.T) {
	svc, conn := newTestService(t, true)
	owner := accesstest.Owner()
	supervisor := accesstest.Supervisor(owner, seedProject(t, conn, owner))

	_, err := svc.List(context.Background(), supervisor, ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = svc.Create(context.Background(), supervisor, CreateWorkerInput{Name: "A", Mobile: "9000000020", Role: "SUPERVISOR"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestListFiltersByNameRoleAndProject(t *testing.T) {
	svc, conn := newTestService(t, false)
	owner := accesstest.Owner()
	site := seedProject(t, conn, owner)
	ctx := context.Background()

	for _, in := range []CreateWorkerInput{
		{Name: "Ravi Kumar", Mobile: "9100000001", Role: "SUPERVISOR", ProjectID: &site},
		{Name: "Ravina", Mobile: "9100000002", Role: "STORE_KEEPER"},
		{Name: "Meena", Mobile: "9100000003", Role: "STORE_KEEPER", ProjectID: &site},
	} {
		_, err := svc.Create(ctx, owner, in)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, accesstest.Owner(), CreateWorkerInput{Name: "Ravi Other", Mobile: "9100000004", Role: "SUPERVISOR"})
	require.NoError(t, err)

	res, err := svc.List(ctx, owner, ListParams{Query: "rav"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	res, err = svc.List(ctx, owner, ListParams{Role: "store_keeper"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	res, err = svc.List(ctx, owner, ListParams{ProjectID: &site})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	res, err = svc.List(ctx, owner, ListParams{Params: pagination.Params{Limit: 1}})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.NotEmpty(t, res.Cursor)

	_, err = svc.List(ctx, owner, ListParams{Role: "OWNER"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRevokeAndRegenerate(t *testing.T) {
	svc, conn := newTestService(t, true)
	owner := accesstest.Owner()
	ctx := context.Background()

	issued, err := svc.Create(ctx, owner, CreateWorkerInput{Name: "Ravi", Mobile: "9200000001", Role: "SUPERVISOR"})
	require.NoError(t, err)

	revoked, err := svc.Revoke(ctx, owner, issued.Worker.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WorkerStatusInactive, revoked.Status)
	assert.False(t, revoked.HasAccessCode)

	again, err := svc.RegenerateCode(ctx, owner, issued.Worker.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WorkerStatusActive, again.Worker.Status)
	assert.NotEmpty(t, again.AccessCode)

	var stored models.Worker
	require.NoError(t, conn.First(&stored, "id = ?", issued.Worker.ID).Error)
	ok, err := security.VerifyAccessCode(again.AccessCode, *stored.AccessCodeHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Revoke(ctx, accesstest.Owner(), issued.Worker.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

type recordingRevoker struct {
	subjects []string
	err      error
}

func (r *recordingRevoker) RevokeSubject(_ context.Context, subject string) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func TestRevokeAndDeleteEndWorkerSessions(t *testing.T) {
	conn := dbtest.Open(t)
	sessions := &recordingRevoker{}
	svc, err := NewService(NewRepository(conn), Options{Password: fastArgon, AccessCodes: true, Sessions: sessions})
	require.NoError(t, err)
	owner := accesstest.Owner()
	ctx := context.Background()

	revokedWorker, err := svc.Create(ctx, owner, CreateWorkerInput{Name: "Ravi", Mobile: "9200000011", Role: "SUPERVISOR"})
	require.NoError(t, err)
	deletedWorker, err := svc.Create(ctx, owner, CreateWorkerInput{Name: "Asha", Mobile: "9200000012", Role: "STORE_KEEPER"})
	require.NoError(t, err)
	assert.Empty(t, sessions.subjects)

	_, err = svc.Revoke(ctx, owner, revokedWorker.Worker.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, owner, deletedWorker.Worker.ID))
	assert.Equal(t, []string{revokedWorker.Worker.ID.String(), deletedWorker.Worker.ID.String()}, sessions.subjects)

	_, err = svc.Revoke(ctx, accesstest.Owner(), revokedWorker.Worker.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Len(t, sessions.subjects, 2, "no revocation for rows the owner cannot see")

	sessions.err = errors.New("redis down")
	_, err = svc.RegenerateCode(ctx, owner, revokedWorker.Worker.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestRegenerateDisabled(t *testing.T) {
	svc, _ := newTestService(t, false)
	owner := accesstest.Owner()
	issued, err := svc.Create(context.Background(), owner, CreateWorkerInput{Name: "Ravi", Mobile: "9300000001", Role: "SUPERVISOR"})
	require.NoError(t, err)

	_, err = svc.RegenerateCode(context.Background(), owner, issued.Worker.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestUpdateAndDelete(t *testing.T) {
	svc, conn := newTestService(t, false)
	owner := accesstest.Owner()
	site := seedProject(t, conn, owner)
	ctx := context.Background()

	issued, err := svc.Create(ctx, owner, CreateWorkerInput{Name: "Ravi", Mobile: "9400000001", Role: "SUPERVISOR"})
	require.NoError(t, err)

	name := "Ravi K"
	updated, err := svc.Update(ctx, owner, issued.Worker.ID, UpdateWorkerInput{Name: &name, ProjectID: &site})
	require.NoError(t, err)
	assert.Equal(t, "Ravi K", updated.Name)
	require.NotNil(t, updated.ProjectID)
	assert.Equal(t, site, *updated.ProjectID)

	blank := " "
	_, err = svc.Update(ctx, owner, issued.Worker.ID, UpdateWorkerInput{Name: &blank})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.Delete(ctx, owner, issued.Worker.ID))
	_, err = svc.Get(ctx, owner, issued.Worker.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
