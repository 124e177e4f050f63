package parts

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox"
	"github.com/angelmondragon/motorshop-backend/pkg/pagination"
)

type countingRecorder struct {
	movements    map[string]int
	insufficient int
}

func (c *countingRecorder) IncMovement(kind string) {
	if c.movements == nil {
		c.movements = map[string]int{}
	}
	c.movements[kind]++
}

func (c *countingRecorder) IncInsufficientStock() { c.insufficient++ }

func newTestService(t *testing.T) (Service, *db.Client, *gorm.DB, *countingRecorder) {
	t.Helper()
	client, conn := dbtest.Client(t, "parts")
	rec := &countingRecorder{}
	svc, err := NewService(NewRepository(conn), client, nil, rec, nil)
	require.NoError(t, err)
	return svc, client, conn, rec
}

func seedPart(t *testing.T, conn *gorm.DB, stock int) *models.Part {
	t.Helper()
	part := &models.Part{
		Code:         "P-" + uuid.NewString()[:8],
		Name:         "Brake pad",
		InitialStock: stock,
		UnitPrice:    decimal.RequireFromString("12.50"),
		Active:       true,
	}
	require.NoError(t, conn.Create(part).Error)
	return part
}

func apply(t *testing.T, client *db.Client, svc Service, input MovementInput) (*models.PartMovement, error) {
	t.Helper()
	var movement *models.PartMovement
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		movement, err = svc.ApplyMovement(context.Background(), tx, input)
		return err
	})
	return movement, err
}

func TestApplyMovementKinds(t *testing.T) {
	svc, client, conn, rec := newTestService(t)
	part := seedPart(t, conn, 10)
	ref := "work_order:abc"

	out, err := apply(t, client, svc, MovementInput{PartID: part.ID, Kind: enums.MovementKindOut, Quantity: 3, Reference: &ref, ActorID: "mech-1"})
	require.NoError(t, err)
	require.Equal(t, 10, out.StockBefore)
	require.Equal(t, 7, out.StockAfter)
	require.Equal(t, &ref, out.Reference)

	in, err := apply(t, client, svc, MovementInput{PartID: part.ID, Kind: enums.MovementKindIn, Quantity: 5, ActorID: "mech-1"})
	require.NoError(t, err)
	require.Equal(t, 12, in.StockAfter)

	adj, err := apply(t, client, svc, MovementInput{PartID: part.ID, Kind: enums.MovementKindAdjust, Quantity: 4, ActorID: "admin"})
	require.NoError(t, err)
	require.Equal(t, 12, adj.StockBefore)
	require.Equal(t, 4, adj.StockAfter)
	require.Equal(t, -8, adj.Delta())

	stock, err := svc.CurrentStock(context.Background(), part.ID)
	require.NoError(t, err)
	require.Equal(t, 4, stock)

	var reloaded models.Part
	require.NoError(t, conn.First(&reloaded, "id = ?", part.ID).Error)
	require.Equal(t, int64(3), reloaded.Version)
	require.Equal(t, 1, rec.movements["OUT"])
	require.Equal(t, 1, rec.movements["IN"])
	require.Equal(t, 1, rec.movements["ADJUST"])
}

func TestApplyMovementInsufficientStockLeavesNoTrace(t *testing.T) {
	svc, client, conn, rec := newTestService(t)
	part := seedPart(t, conn, 2)

	_, err := apply(t, client, svc, MovementInput{PartID: part.ID, Kind: enums.MovementKindOut, Quantity: 3, ActorID: "mech-1"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInsufficientStock))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	require.Equal(t, 1, rec.insufficient)

	stock, err := svc.CurrentStock(context.Background(), part.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stock)

	var count int64
	require.NoError(t, conn.Model(&models.PartMovement{}).Where("part_id = ?", part.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestApplyMovementValidation(t *testing.T) {
	svc, client, conn, _ := newTestService(t)
	part := seedPart(t, conn, 5)

	cases := []struct {
		name  string
		input MovementInput
		want  error
		code  pkgerrors.Code
	}{
		{name: "zero out", input: MovementInput{PartID: part.ID, Kind: enums.MovementKindOut, Quantity: 0, ActorID: "a"}, want: ErrInvalidQuantity, code: pkgerrors.CodeValidation},
		{name: "negative in", input: MovementInput{PartID: part.ID, Kind: enums.MovementKindIn, Quantity: -2, ActorID: "a"}, want: ErrInvalidQuantity, code: pkgerrors.CodeValidation},
		{name: "negative adjust", input: MovementInput{PartID: part.ID, Kind: enums.MovementKindAdjust, Quantity: -1, ActorID: "a"}, want: ErrInvalidQuantity, code: pkgerrors.CodeValidation},
		{name: "unknown part", input: MovementInput{PartID: uuid.New(), Kind: enums.MovementKindIn, Quantity: 1, ActorID: "a"}, want: ErrPartNotFound, code: pkgerrors.CodeNotFound},
		{name: "bad kind", input: MovementInput{PartID: part.ID, Kind: "MOVE", Quantity: 1, ActorID: "a"}, code: pkgerrors.CodeValidation},
		{name: "missing actor", input: MovementInput{PartID: part.ID, Kind: enums.MovementKindIn, Quantity: 1}, code: pkgerrors.CodeValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := apply(t, client, svc, tc.input)
			require.Error(t, err)
			if tc.want != nil {
				require.True(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)
			}
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			require.Equal(t, tc.code, typed.Code())
		})
	}

	stock, err := svc.CurrentStock(context.Background(), part.ID)
	require.NoError(t, err)
	require.Equal(t, 5, stock)
}

func TestApplyMovementAdjustToZero(t *testing.T) {
	svc, client, conn, _ := newTestService(t)
	part := seedPart(t, conn, 5)

	movement, err := apply(t, client, svc, MovementInput{PartID: part.ID, Kind: enums.MovementKindAdjust, Quantity: 0, ActorID: "admin"})
	require.NoError(t, err)
	require.Equal(t, 0, movement.StockAfter)
}

func TestApplyMovementRequiresTransaction(t *testing.T) {
	svc, _, conn, _ := newTestService(t)
	part := seedPart(t, conn, 5)

	_, err := svc.ApplyMovement(context.Background(), nil, MovementInput{PartID: part.ID, Kind: enums.MovementKindIn, Quantity: 1, ActorID: "a"})
	require.Error(t, err)
}

func TestApplyMovementRollsBackWithCaller(t *testing.T) {
	svc, client, conn, _ := newTestService(t)
	part := seedPart(t, conn, 5)
	boom := errors.New("later step failed")

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if _, err := svc.ApplyMovement(context.Background(), tx, MovementInput{PartID: part.ID, Kind: enums.MovementKindOut, Quantity: 2, ActorID: "a"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stock, err := svc.CurrentStock(context.Background(), part.ID)
	require.NoError(t, err)
	require.Equal(t, 5, stock)
}

func TestCompareAndSetStockRejectsStaleVersion(t *testing.T) {
	_, _, conn, _ := newTestService(t)
	part := seedPart(t, conn, 5)
	repo := NewRepository(conn)

	ok, err := repo.CompareAndSetStock(context.Background(), part.ID, part.Version+1, 1)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.CompareAndSetStock(context.Background(), part.ID, part.Version, 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.CompareAndSetStock(context.Background(), part.ID, part.Version, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

type staleRepo struct {
	Repository
}

func (s staleRepo) WithTx(tx *gorm.DB) Repository {
	return staleRepo{Repository: s.Repository.WithTx(tx)}
}

func (staleRepo) CompareAndSetStock(context.Context, uuid.UUID, int64, int) (bool, error) {
	return false, nil
}

func TestApplyMovementSurfacesConcurrentModification(t *testing.T) {
	client, conn := dbtest.Client(t, "parts_stale")
	part := seedPart(t, conn, 5)
	svc, err := NewService(staleRepo{Repository: NewRepository(conn)}, client, nil, nil, nil)
	require.NoError(t, err)

	_, err = apply(t, client, svc, MovementInput{PartID: part.ID, Kind: enums.MovementKindOut, Quantity: 1, ActorID: "a"})
	require.Error(t, err)
	require.True(t, pkgerrors.IsRetryable(err))
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestAdjustRunsInOwnTransaction(t *testing.T) {
	svc, _, conn, _ := newTestService(t)
	part := seedPart(t, conn, 1)

	movement, err := svc.Adjust(context.Background(), MovementInput{PartID: part.ID, Kind: enums.MovementKindIn, Quantity: 9, ActorID: "admin"})
	require.NoError(t, err)
	require.Equal(t, 10, movement.StockAfter)
}

func TestAdjustQueuesOutboxEvent(t *testing.T) {
	client, conn := dbtest.Client(t, "parts_adjust_event")
	svc, err := NewService(NewRepository(conn), client, nil, nil, outbox.NewService(outbox.NewRepository(conn), nil))
	require.NoError(t, err)
	part := seedPart(t, conn, 2)

	_, err = svc.Adjust(context.Background(), MovementInput{PartID: part.ID, Kind: enums.MovementKindAdjust, Quantity: 5, ActorID: "admin"})
	require.NoError(t, err)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventPartStockAdjusted, events[0].EventType)
	require.Equal(t, part.ID, events[0].AggregateID)

	_, err = svc.Adjust(context.Background(), MovementInput{PartID: part.ID, Kind: enums.MovementKindOut, Quantity: 50, ActorID: "admin"})
	require.ErrorIs(t, err, ErrInsufficientStock)
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestListMovementsPaginates(t *testing.T) {
	svc, _, conn, _ := newTestService(t)
	part := seedPart(t, conn, 0)
	for i := 1; i <= 3; i++ {
		_, err := svc.Adjust(context.Background(), MovementInput{PartID: part.ID, Kind: enums.MovementKindIn, Quantity: i, ActorID: "admin"})
		require.NoError(t, err)
	}

	first, err := svc.ListMovements(context.Background(), part.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Movements, 2)
	require.NotEmpty(t, first.NextCursor)
	require.Equal(t, 3, first.Movements[0].Quantity)

	second, err := svc.ListMovements(context.Background(), part.ID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Movements, 1)
	require.Equal(t, 1, second.Movements[0].Quantity)
	require.Empty(t, second.NextCursor)

	_, err = svc.ListMovements(context.Background(), part.ID, pagination.Params{Cursor: "%%%"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestVerifyLedger(t *testing.T) {
	svc, _, conn, _ := newTestService(t)
	part := seedPart(t, conn, 4)
	_, err := svc.Adjust(context.Background(), MovementInput{PartID: part.ID, Kind: enums.MovementKindOut, Quantity: 3, ActorID: "a"})
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), MovementInput{PartID: part.ID, Kind: enums.MovementKindIn, Quantity: 6, ActorID: "a"})
	require.NoError(t, err)

	report, err := svc.VerifyLedger(context.Background(), part.ID)
	require.NoError(t, err)
	require.True(t, report.Balanced())
	require.Equal(t, 7, report.ExpectedStock)
	require.Equal(t, 2, report.MovementCount)

	require.NoError(t, conn.Model(&models.Part{}).Where("id = ?", part.ID).Update("stock_on_hand", 11).Error)
	report, err = svc.VerifyLedger(context.Background(), part.ID)
	require.NoError(t, err)
	require.False(t, report.Balanced())
	require.Equal(t, 11, report.StockOnHand)
}

func TestNewPartStockStartsAtInitialCount(t *testing.T) {
	svc, _, conn, _ := newTestService(t)
	part := &models.Part{
		Code:         "P-" + uuid.NewString()[:8],
		Name:         "Chain kit",
		InitialStock: 0,
		StockOnHand:  5,
		UnitPrice:    decimal.RequireFromString("80.00"),
		Active:       true,
	}
	require.NoError(t, conn.Create(part).Error)

	stock, err := svc.CurrentStock(context.Background(), part.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stock)

	report, err := svc.VerifyLedger(context.Background(), part.ID)
	require.NoError(t, err)
	require.True(t, report.Balanced())
}
