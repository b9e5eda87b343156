package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/access/accesstest"
	"github.com/angelmondragon/siteboss-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func amount(v int64) types.LooseAmount {
	return types.NewLooseAmount(decimal.NewFromInt(v))
}

func TestCreateDefaultsUnit(t *testing.T) {
	svc, _ := newTestService(t)
	owner := accesstest.Owner()
	site := uuid.New()
	keeper := accesstest.StoreKeeper(owner, site)

	item, err := svc.Create(context.Background(), keeper, CreateItemInput{Name: " Cement Bags ", Quantity: amount(40)})
	require.NoError(t, err)
	assert.Equal(t, "Cement Bags", item.Name)
	assert.Equal(t, DefaultUnit, item.Unit)
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(40)))
	require.NotNil(t, item.ProjectID)
	assert.Equal(t, site, *item.ProjectID)

	_, err = svc.Create(context.Background(), keeper, CreateItemInput{Name: ""})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Create(context.Background(), keeper, CreateItemInput{Name: "Sand", Quantity: amount(-1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Create(context.Background(), accesstest.Supervisor(owner, site), CreateItemInput{Name: "Sand"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestAdjustAndUsageFloorAtZero(t *testing.T) {
	svc, _ := newTestService(t)
	owner := accesstest.Owner()
	ctx := context.Background()

	item, err := svc.Create(ctx, owner, CreateItemInput{Name: "Steel Rods", Quantity: amount(10), Unit: "Tons"})
	require.NoError(t, err)

	cases := []struct {
		name string
		run  func() (*ItemDTO, error)
		want int64
	}{
		{"add", func() (*ItemDTO, error) { return svc.Adjust(ctx, owner, item.ID, AdjustInput{Delta: amount(5)}) }, 15},
		{"use", func() (*ItemDTO, error) { return svc.LogUsage(ctx, owner, item.ID, UsageInput{Amount: amount(4)}) }, 11},
		{"overdraw", func() (*ItemDTO, error) { return svc.Adjust(ctx, owner, item.ID, AdjustInput{Delta: amount(-50)}) }, 0},
		{"use empty", func() (*ItemDTO, error) { return svc.LogUsage(ctx, owner, item.ID, UsageInput{Amount: amount(3)}) }, 0},
	}
	for _, tc := range cases {
		got, err := tc.run()
		require.NoError(t, err, tc.name)
		assert.True(t, got.Quantity.Equal(decimal.NewFromInt(tc.want)), "%s: got %s", tc.name, got.Quantity)
		assert.Equal(t, "Tons", got.Unit)
	}

	_, err = svc.Adjust(ctx, owner, item.ID, AdjustInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.LogUsage(ctx, owner, item.ID, UsageInput{Amount: amount(-2)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Adjust(ctx, owner, uuid.New(), AdjustInput{Delta: amount(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestWorkersStayInTheirProject(t *testing.T) {
	svc, _ := newTestService(t)
	owner := accesstest.Owner()
	siteA, siteB := uuid.New(), uuid.New()
	ctx := context.Background()

	a, err := svc.Create(ctx, owner, CreateItemInput{Name: "Bricks", ProjectID: &siteA})
	require.NoError(t, err)
	b, err := svc.Create(ctx, owner, CreateItemInput{Name: "Tiles", ProjectID: &siteB})
	require.NoError(t, err)

	keeper := accesstest.StoreKeeper(owner, siteA)
	res, err := svc.List(ctx, keeper, ListParams{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, a.ID, res.Items[0].ID)

	_, err = svc.LogUsage(ctx, keeper, b.ID, UsageInput{Amount: amount(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(svc.Delete(ctx, keeper, b.ID), pkgerrors.CodeNotFound))

	res, err = svc.List(ctx, owner, ListParams{Query: "TIL"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, b.ID, res.Items[0].ID)

	require.NoError(t, svc.Delete(ctx, keeper, a.ID))
}

func TestReceiveMatchesByNameOrCreates(t *testing.T) {
	svc, conn := newTestService(t)
	owner := accesstest.Owner()
	site := uuid.New()
	ctx := context.Background()

	existing, err := svc.Create(ctx, owner, CreateItemInput{Name: "UltraTech Cement Bags", Quantity: amount(10), ProjectID: &site})
	require.NoError(t, err)

	got, err := svc.ReceiveTx(ctx, conn, owner.OwnerID, &site, "cement", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(60)))

	other := uuid.New()
	created, err := svc.ReceiveTx(ctx, conn, owner.OwnerID, &other, "cement", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, created.ID)
	assert.Equal(t, DefaultUnit, created.Unit)
	assert.Equal(t, "cement", created.Name)
	assert.True(t, created.Quantity.Equal(decimal.NewFromInt(5)))
}
