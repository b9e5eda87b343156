package issues

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/access/accesstest"
	"github.com/angelmondragon/siteboss-backend/pkg/db/dbtest"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
)

type fixture struct {
	svc   Service
	conn  *gorm.DB
	owner access.Actor
	site  uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(NewRepository(conn), client, emitter)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC) }

	owner := accesstest.Owner()
	project := &models.Project{OwnerID: owner.OwnerID, Name: "Skyline Tower", Location: "Pune", Status: enums.ProjectStatusActive}
	require.NoError(t, conn.Create(project).Error)
	return fixture{svc: svc, conn: conn, owner: owner, site: project.ID}
}

func TestSupervisorReportsIssueOnOwnSite(t *testing.T) {
	f := newFixture(t)
	supervisor := accesstest.Supervisor(f.owner, f.site)
	elsewhere := uuid.New()

	issue, err := f.svc.Create(context.Background(), supervisor, CreateIssueInput{
		Title:     "  Crane cable frayed ",
		Priority:  "high",
		ProjectID: &elsewhere,
	})
	require.NoError(t, err)
	assert.Equal(t, "Crane cable frayed", issue.Title)
	assert.Equal(t, enums.IssuePriorityHigh, issue.Priority)
	assert.Equal(t, enums.IssueStatusOpen, issue.Status)
	assert.Equal(t, "Ravi Site", issue.Reporter)
	assert.Equal(t, "Skyline Tower", issue.SiteName)
	require.NotNil(t, issue.ProjectID)
	assert.Equal(t, f.site, *issue.ProjectID)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventIssueReported, events[0].EventType)
	assert.Equal(t, issue.ID, events[0].AggregateID)
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issue, err := f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "Permit pending"})
	require.NoError(t, err)
	assert.Equal(t, enums.IssuePriorityMedium, issue.Priority)
	assert.Equal(t, unassignedSite, issue.SiteName)
	assert.Equal(t, "Asha Builder", issue.Reporter)

	_, err = f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "  "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "x", Priority: "urgent"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	_, err = f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "x", ProjectID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Create(ctx, accesstest.StoreKeeper(f.owner, f.site), CreateIssueInput{Title: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	var count int64
	require.NoError(t, f.conn.Model(&models.Issue{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestResolveOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issue, err := f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "Leak", ProjectID: &f.site})
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, f.owner, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.IssueStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, 2026, resolved.ResolvedAt.Year())

	_, err = f.svc.Resolve(ctx, f.owner, issue.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.Resolve(ctx, accesstest.Owner(), issue.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestWorkersOnlySeeOwnSite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := &models.Project{OwnerID: f.owner.OwnerID, Name: "Metro Depot", Location: "Pune", Status: enums.ProjectStatusActive}
	require.NoError(t, f.conn.Create(other).Error)

	_, err := f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "A", ProjectID: &f.site})
	require.NoError(t, err)
	foreign, err := f.svc.Create(ctx, f.owner, CreateIssueInput{Title: "B", ProjectID: &other.ID})
	require.NoError(t, err)

	supervisor := accesstest.Supervisor(f.owner, f.site)
	res, err := f.svc.List(ctx, supervisor, ListParams{ProjectID: &other.ID})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "A", res.Items[0].Title)

	_, err = f.svc.Resolve(ctx, supervisor, foreign.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	res, err = f.svc.List(ctx, f.owner, ListParams{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)

	count, err := f.svc.OpenCount(ctx, f.owner, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count.Open)

	count, err = f.svc.OpenCount(ctx, supervisor, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count.Open)

	_, err = f.svc.Resolve(ctx, f.owner, foreign.ID)
	require.NoError(t, err)
	res, err = f.svc.List(ctx, f.owner, ListParams{Status: "open"})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}
