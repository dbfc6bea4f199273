package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	gormlogger "gorm.io/gorm/logger"

	"medical/app/models/record"
	"medical/app/repositories"
	"medical/app/requests"
	"medical/pkg/database"
	"medical/pkg/database/migrations"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newRepositories(t *testing.T) (*repositories.ChargeRepository, *repositories.RefundRepository) {
	t.Helper()

	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "medical.db")), gormlogger.Discard)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(migrations.RegisterTables()...))

	clock := &testClock{now: time.UnixMilli(1_700_000_000_000)}
	return repositories.NewChargeRepository(db, repositories.WithClock(clock.Now)),
		repositories.NewRefundRepository(db, repositories.WithClock(clock.Now))
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func counter(identity string) requests.CounterFields {
	return requests.CounterFields{
		AddressID:            "A1",
		AddressName:          "第一医院",
		WindowID:             "W1",
		WindowName:           "一号窗口",
		Name:                 "张三",
		Age:                  "30",
		Sex:                  "男",
		SocialSecurityNumber: "SS001",
		IdentityCardNumber:   identity,
		Operator:             "op1",
		OperateTime:          "2024-01-01 10:00:00",
	}
}

func chargeEvent(identity, paidUp string) requests.ChargeRequest {
	return requests.ChargeRequest{
		CounterFields: counter(identity),
		Receivable:    dec("100.00"),
		PaidUp:        dec(paidUp),
		Change:        dec("0.00"),
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

var _ Notifier = (*recordingNotifier)(nil)

// fakeChargeStore 按需替换存储行为
type fakeChargeStore struct {
	CreateFn     func(ctx context.Context, rec *record.ChargeRecord) error
	FindFn       func(ctx context.Context, identity string) ([]*record.ChargeRecord, error)
	TransitionFn func(ctx context.Context, rec *record.ChargeRecord, from record.Status) (bool, error)
	calls        int
}

var _ Store[record.ChargeRecord] = (*fakeChargeStore)(nil)

func (f *fakeChargeStore) Create(ctx context.Context, rec *record.ChargeRecord) error {
	f.calls++
	if f.CreateFn != nil {
		return f.CreateFn(ctx, rec)
	}
	return nil
}

func (f *fakeChargeStore) FindPendingByIdentityCard(ctx context.Context, identity string) ([]*record.ChargeRecord, error) {
	f.calls++
	if f.FindFn != nil {
		return f.FindFn(ctx, identity)
	}
	return nil, nil
}

func (f *fakeChargeStore) TransitionStatus(ctx context.Context, rec *record.ChargeRecord, from record.Status) (bool, error) {
	f.calls++
	if f.TransitionFn != nil {
		return f.TransitionFn(ctx, rec, from)
	}
	return true, nil
}

func TestCreatePending(t *testing.T) {
	charges, _ := newRepositories(t)
	notifier := &recordingNotifier{}
	engine := NewChargeEngine(charges, WithNotifier(notifier))
	ctx := context.Background()

	id, err := engine.CreatePending(ctx, chargeEvent("110101199001011234", "100.00"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := charges.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, record.StatusPending, rec.Status)
	assert.Equal(t, rec.CreateTime, rec.UpdateTime)
	assert.Equal(t, "A1", rec.AddressID)
	assert.True(t, rec.PaidUp.Equal(decimal.RequireFromString("100")))

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, record.KindCharge, notifier.notices[0].Kind)
	assert.Equal(t, id, notifier.notices[0].Record.Meta().ID)
}

func TestCreatePending_DuplicatesAllowed(t *testing.T) {
	charges, _ := newRepositories(t)
	engine := NewChargeEngine(charges)
	ctx := context.Background()

	first, err := engine.CreatePending(ctx, chargeEvent("110101199001011234", "100.00"))
	require.NoError(t, err)
	second, err := engine.CreatePending(ctx, chargeEvent("110101199001011234", "100.00"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	pending, err := charges.FindPendingByIdentityCard(ctx, "110101199001011234")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestResolveConfirm_UpdatesPendingInPlace(t *testing.T) {
	charges, _ := newRepositories(t)
	engine := NewChargeEngine(charges)
	ctx := context.Background()
	identity := "110101199001011234"

	id, err := engine.CreatePending(ctx, chargeEvent(identity, "100.00"))
	require.NoError(t, err)
	before, err := charges.GetByID(ctx, id)
	require.NoError(t, err)

	confirm := chargeEvent(identity, "120.00")
	confirm.Change = dec("20.00")
	confirm.Operator = "op2"
	res, err := engine.ResolveConfirm(ctx, confirm)
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, id, res.ID)

	all, err := charges.FindByIdentityCardNumber(ctx, identity)
	require.NoError(t, err)
	require.Len(t, all, 1)

	after := all[0]
	assert.Equal(t, id, after.ID)
	assert.Equal(t, record.StatusConfirmed, after.Status)
	assert.Equal(t, before.CreateTime, after.CreateTime)
	assert.Greater(t, after.UpdateTime, before.UpdateTime)
	assert.Equal(t, "op2", after.Operator)
	assert.True(t, after.PaidUp.Equal(decimal.RequireFromString("120")))
	assert.True(t, after.Change.Equal(decimal.RequireFromString("20")))
}

func TestResolveConfirm_PicksMostRecentPending(t *testing.T) {
	charges, _ := newRepositories(t)
	engine := NewChargeEngine(charges)
	ctx := context.Background()
	identity := "110101199001011234"

	older, err := engine.CreatePending(ctx, chargeEvent(identity, "10.00"))
	require.NoError(t, err)
	newer, err := engine.CreatePending(ctx, chargeEvent(identity, "20.00"))
	require.NoError(t, err)

	res, err := engine.ResolveConfirm(ctx, chargeEvent(identity, "30.00"))
	require.NoError(t, err)
	assert.Equal(t, newer, res.ID)

	rec, err := charges.GetByID(ctx, older)
	require.NoError(t, err)
	assert.Equal(t, record.StatusPending, rec.Status)
	assert.True(t, rec.PaidUp.Equal(decimal.RequireFromString("10")))

	rec, err = charges.GetByID(ctx, newer)
	require.NoError(t, err)
	assert.Equal(t, record.StatusConfirmed, rec.Status)
}

func TestResolveConfirm_TieGoesToLastListed(t *testing.T) {
	a := &record.ChargeRecord{Base: record.Base{ID: "a", Status: record.StatusPending}}
	b := &record.ChargeRecord{Base: record.Base{ID: "b", Status: record.StatusPending}}
	a.CreateTime, b.CreateTime = 10, 10

	got := latest[record.ChargeRecord, *record.ChargeRecord]([]*record.ChargeRecord{a, b})
	assert.Equal(t, "b", got.ID)
}

func TestResolveConfirm_NoPendingInsertsConfirmed(t *testing.T) {
	_, refunds := newRepositories(t)
	engine := NewRefundEngine(refunds)
	ctx := context.Background()

	res, err := engine.ResolveConfirm(ctx, requests.RefundRequest{
		CounterFields:    counter("999999999999999999"),
		Receivable:       dec("50.00"),
		RealRefundAmount: dec("50.00"),
	})
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.NotEmpty(t, res.ID)

	all, err := refunds.FindByIdentityCardNumber(ctx, "999999999999999999")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, res.ID, all[0].ID)
	assert.Equal(t, record.StatusConfirmed, all[0].Status)
	assert.True(t, all[0].RealRefundAmount.Equal(decimal.RequireFromString("50")))
}

func TestResolveConfirm_RepeatedConfirmIsNotIdempotent(t *testing.T) {
	charges, _ := newRepositories(t)
	engine := NewChargeEngine(charges)
	ctx := context.Background()
	identity := "110101199001011234"

	_, err := engine.CreatePending(ctx, chargeEvent(identity, "100.00"))
	require.NoError(t, err)

	first, err := engine.ResolveConfirm(ctx, chargeEvent(identity, "100.00"))
	require.NoError(t, err)
	second, err := engine.ResolveConfirm(ctx, chargeEvent(identity, "100.00"))
	require.NoError(t, err)

	assert.True(t, first.Matched)
	assert.False(t, second.Matched)
	assert.NotEqual(t, first.ID, second.ID)

	confirmed, err := charges.FindConfirmed(ctx)
	require.NoError(t, err)
	assert.Len(t, confirmed, 2)
}

func TestValidationFailureSkipsStore(t *testing.T) {
	store := &fakeChargeStore{}
	notifier := &recordingNotifier{}
	engine := NewChargeEngine(store, WithNotifier(notifier))
	ctx := context.Background()

	event := chargeEvent("110101199001011234", "100.00")
	event.WindowName = "  "

	_, err := engine.CreatePending(ctx, event)
	var verr *requests.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "windowName", verr.Field)

	event = chargeEvent("110101199001011234", "-1")
	_, err = engine.ResolveConfirm(ctx, event)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "paidUp", verr.Field)

	assert.Zero(t, store.calls)
	assert.Empty(t, notifier.notices)
}

func TestStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("connection reset")
	ctx := context.Background()
	event := chargeEvent("110101199001011234", "100.00")

	t.Run("create", func(t *testing.T) {
		engine := NewChargeEngine(&fakeChargeStore{
			CreateFn: func(context.Context, *record.ChargeRecord) error { return boom },
		})
		_, err := engine.CreatePending(ctx, event)
		var serr *StoreError
		require.ErrorAs(t, err, &serr)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, record.KindCharge, serr.Kind)
	})

	t.Run("query", func(t *testing.T) {
		store := &fakeChargeStore{
			FindFn: func(context.Context, string) ([]*record.ChargeRecord, error) { return nil, boom },
		}
		_, err := NewChargeEngine(store).ResolveConfirm(ctx, event)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, store.calls)
	})

	t.Run("update", func(t *testing.T) {
		store := &fakeChargeStore{
			FindFn: func(context.Context, string) ([]*record.ChargeRecord, error) {
				return []*record.ChargeRecord{{Base: record.Base{ID: "p1", Status: record.StatusPending}}}, nil
			},
			TransitionFn: func(context.Context, *record.ChargeRecord, record.Status) (bool, error) {
				return false, boom
			},
		}
		_, err := NewChargeEngine(store).ResolveConfirm(ctx, event)
		var serr *StoreError
		require.ErrorAs(t, err, &serr)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 2, store.calls)
	})
}

func TestStoreCallsAreBounded(t *testing.T) {
	store := &fakeChargeStore{
		FindFn: func(ctx context.Context, _ string) ([]*record.ChargeRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	engine := NewChargeEngine(store, WithStoreTimeout(20*time.Millisecond))

	_, err := engine.ResolveConfirm(context.Background(), chargeEvent("110101199001011234", "1.00"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// blockingNotifier 阻塞到 ctx 结束，记录收到的 ctx 状态
type blockingNotifier struct {
	hadDeadline bool
	err         error
}

func (n *blockingNotifier) Notify(ctx context.Context, _ Notice) {
	_, n.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	n.err = ctx.Err()
}

func TestNotifyIsBoundedAndDetachedFromRequest(t *testing.T) {
	charges, _ := newRepositories(t)
	notifier := &blockingNotifier{}
	engine := NewChargeEngine(charges, WithNotifier(notifier), WithNotifyTimeout(30*time.Millisecond))

	// 通知阻塞时，接口最多等待 notifyTimeout
	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	id, err := engine.CreatePending(ctx, chargeEvent("110101199001011234", "1.00"))
	cancel()
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, notifier.hadDeadline)
	assert.ErrorIs(t, notifier.err, context.DeadlineExceeded)

	res, err := engine.ResolveConfirm(context.Background(), chargeEvent("110101199001011234", "1.00"))
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.ErrorIs(t, notifier.err, context.DeadlineExceeded)
}

func TestResolveConfirm_MatchesPaddedIdentityCard(t *testing.T) {
	charges, _ := newRepositories(t)
	engine := NewChargeEngine(charges)
	ctx := context.Background()

	click := chargeEvent(" 110101199001011234 ", "1.00")
	click.Name = "张三 "
	id, err := engine.CreatePending(ctx, click)
	require.NoError(t, err)

	rec, err := charges.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "110101199001011234", rec.IdentityCardNumber)
	assert.Equal(t, "张三", rec.Name)

	res, err := engine.ResolveConfirm(ctx, chargeEvent("110101199001011234", "1.00"))
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, id, res.ID)

	pending, err := charges.FindPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// barrierStore 让两个确认请求都读到同一条待确认记录后再写
type barrierStore struct {
	Store[record.ChargeRecord]
	ready *sync.WaitGroup
}

func (b *barrierStore) FindPendingByIdentityCard(ctx context.Context, identity string) ([]*record.ChargeRecord, error) {
	list, err := b.Store.FindPendingByIdentityCard(ctx, identity)
	b.ready.Done()
	b.ready.Wait()
	return list, err
}

func TestConcurrentConfirmsOneWinsOneConflicts(t *testing.T) {
	charges, _ := newRepositories(t)
	ctx := context.Background()
	identity := "110101199001011234"

	pendingID, err := NewChargeEngine(charges).CreatePending(ctx, chargeEvent(identity, "100.00"))
	require.NoError(t, err)

	ready := &sync.WaitGroup{}
	ready.Add(2)
	engine := NewChargeEngine(&barrierStore{Store: charges, ready: ready})

	var wg sync.WaitGroup
	results := make([]Resolution, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.ResolveConfirm(ctx, chargeEvent(identity, "100.00"))
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for i := range errs {
		var cerr *ConflictError
		switch {
		case errs[i] == nil:
			wins++
			assert.Equal(t, pendingID, results[i].ID)
		case errors.As(errs[i], &cerr):
			conflicts++
			assert.Equal(t, pendingID, cerr.ID)
		default:
			t.Fatalf("unexpected error: %v", errs[i])
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	all, err := charges.FindByIdentityCardNumber(ctx, identity)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, record.StatusConfirmed, all[0].Status)
}

func TestConcurrentConfirmsUnderLoad(t *testing.T) {
	charges, _ := newRepositories(t)
	ctx := context.Background()
	identity := "110101199001011234"
	engine := NewChargeEngine(charges)

	pendingID, err := engine.CreatePending(ctx, chargeEvent(identity, "100.00"))
	require.NoError(t, err)

	const workers = 16
	var (
		wg                      sync.WaitGroup
		mu                      sync.Mutex
		matched, inserted, lost int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := engine.ResolveConfirm(ctx, chargeEvent(identity, "100.00"))

			mu.Lock()
			defer mu.Unlock()
			var cerr *ConflictError
			switch {
			case err == nil && res.Matched:
				matched++
				assert.Equal(t, pendingID, res.ID)
			case err == nil:
				inserted++
			case errors.As(err, &cerr):
				lost++
			default:
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, matched)
	assert.Equal(t, workers, matched+inserted+lost)

	all, err := charges.FindByIdentityCardNumber(ctx, identity)
	require.NoError(t, err)
	assert.Len(t, all, 1+inserted)
	for _, rec := range all {
		assert.Equal(t, record.StatusConfirmed, rec.Status)
	}
}

func TestIndependentIdentitiesUnderLoad(t *testing.T) {
	charges, _ := newRepositories(t)
	engine := NewChargeEngine(charges)
	ctx := context.Background()

	const patients = 20
	var wg sync.WaitGroup
	for i := 0; i < patients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity := fmt.Sprintf("1101011990010%05d", i)
			id, err := engine.CreatePending(ctx, chargeEvent(identity, "100.00"))
			assert.NoError(t, err)
			res, err := engine.ResolveConfirm(ctx, chargeEvent(identity, "100.00"))
			assert.NoError(t, err)
			assert.True(t, res.Matched)
			assert.Equal(t, id, res.ID)
		}(i)
	}
	wg.Wait()

	confirmed, err := charges.FindConfirmed(ctx)
	require.NoError(t, err)
	assert.Len(t, confirmed, patients)

	pending, err := charges.FindPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
