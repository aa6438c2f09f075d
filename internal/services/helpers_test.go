package services

import (
	"context"
	"testing"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories/memory"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	store       *memory.Store
	users       repositories.UserRepository
	collections repositories.CollectionRepository
	vouchers    repositories.VoucherRepository
	txs         repositories.PointTransactionRepository
	sessions    *SessionRegistry
	ledger      *LedgerService
	engine      *CollectionService
	clock       time.Time
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	policy      CollectorPoolPolicy
	users       repositories.UserRepository
	collections repositories.CollectionRepository
	vouchers    repositories.VoucherRepository
	txs         repositories.PointTransactionRepository
}

func withPolicy(p CollectorPoolPolicy) fixtureOption {
	return func(c *fixtureConfig) { c.policy = p }
}

func withUsers(wrap func(repositories.UserRepository) repositories.UserRepository) fixtureOption {
	return func(c *fixtureConfig) { c.users = wrap(c.users) }
}

func withCollections(wrap func(repositories.CollectionRepository) repositories.CollectionRepository) fixtureOption {
	return func(c *fixtureConfig) { c.collections = wrap(c.collections) }
}

func withVouchers(wrap func(repositories.VoucherRepository) repositories.VoucherRepository) fixtureOption {
	return func(c *fixtureConfig) { c.vouchers = wrap(c.vouchers) }
}

func withTransactions(wrap func(repositories.PointTransactionRepository) repositories.PointTransactionRepository) fixtureOption {
	return func(c *fixtureConfig) { c.txs = wrap(c.txs) }
}

func newFixture(t testing.TB, opts ...fixtureOption) *fixture {
	t.Helper()

	store := memory.New()
	cfg := &fixtureConfig{
		policy:      PoolCity,
		users:       store.Users(),
		collections: store.Collections(),
		vouchers:    store.Vouchers(),
		txs:         store.PointTransactions(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	f := &fixture{
		store:       store,
		users:       cfg.users,
		collections: cfg.collections,
		vouchers:    cfg.vouchers,
		txs:         cfg.txs,
		sessions:    NewSessionRegistry(),
		clock:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	locker := NewKeyedMutex()
	f.ledger = NewLedgerService(cfg.users, cfg.vouchers, cfg.txs, locker, f.sessions, nil, time.Second)
	f.ledger.now = f.now
	f.engine = NewCollectionService(cfg.collections, f.ledger, locker, cfg.policy, time.Second).WithHistory(store.CollectionEvents())
	f.engine.now = f.now
	return f
}

func (f *fixture) now() time.Time { return f.clock }

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) customer(t testing.TB, email string, points int) *models.User {
	t.Helper()
	u := &models.User{
		Email:     email,
		FirstName: "Customer",
		Role:      models.RoleCustomer,
		Address:   models.Address{Street: "12 Avenue Hassan II", City: "Rabat", PostalCode: "10000"},
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	if points > 0 {
		updated, err := f.store.Users().AdjustPoints(context.Background(), email, points)
		require.NoError(t, err)
		u = updated
	}
	return u.Clone()
}

func (f *fixture) collector(t testing.TB, email, city string) *models.User {
	t.Helper()
	u := &models.User{
		Email:   email,
		Role:    models.RoleCollector,
		Address: models.Address{Street: "1 Rue du Port", City: city},
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u.Clone()
}

func (f *fixture) balance(t testing.TB, email string) int {
	t.Helper()
	u, err := f.store.Users().FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return u.Points
}

func items(weights ...int) []models.WasteItem {
	types := []models.WasteType{models.WastePlastic, models.WasteGlass, models.WastePaper, models.WasteMetal}
	out := make([]models.WasteItem, len(weights))
	for i, w := range weights {
		out[i] = models.WasteItem{Type: types[i%len(types)], EstimatedWeight: w}
	}
	return out
}

func input(wasteItems []models.WasteItem) CreateCollectionInput {
	return CreateCollectionInput{
		WasteItems:    wasteItems,
		Address:       models.Address{Street: "12 Avenue Hassan II", City: "rabat ", PostalCode: "10000"},
		ScheduledDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		ScheduledTime: "10:00",
	}
}

func intPtr(v int) *int { return &v }

func actuals(stored []models.WasteItem, weights ...int) StatusUpdate {
	out := make([]models.WasteItem, len(weights))
	for i, w := range weights {
		out[i] = models.WasteItem{Type: stored[i].Type, ActualWeight: intPtr(w)}
	}
	return StatusUpdate{WasteItems: out}
}

// mustCreate creates a collection and fails the test on error
func (f *fixture) mustCreate(t testing.TB, owner *models.User, wasteItems []models.WasteItem) *models.Collection {
	t.Helper()
	c, err := f.engine.CreateCollection(context.Background(), owner, input(wasteItems))
	require.NoError(t, err)
	return c
}

// failingUsers fails AdjustPoints when fail returns true
type failingUsers struct {
	repositories.UserRepository
	fail func(delta int) bool
}

func (r *failingUsers) AdjustPoints(ctx context.Context, email string, delta int) (*models.User, error) {
	if r.fail(delta) {
		return nil, errStorage
	}
	return r.UserRepository.AdjustPoints(ctx, email, delta)
}

// failingCollections fails Update calls that move a collection into status
type failingCollections struct {
	repositories.CollectionRepository
	status models.CollectionStatus
}

func (r *failingCollections) Update(ctx context.Context, c *models.Collection) error {
	if c.Status == r.status {
		return errStorage
	}
	return r.CollectionRepository.Update(ctx, c)
}

type failingVouchers struct {
	repositories.VoucherRepository
}

func (r *failingVouchers) Create(context.Context, *models.Voucher) error { return errStorage }

type failingTransactions struct {
	repositories.PointTransactionRepository
}

func (r *failingTransactions) Create(context.Context, *models.PointTransaction) error {
	return errStorage
}

func (r *failingTransactions) ExistsForCollection(context.Context, primitive.ObjectID) (bool, error) {
	return false, nil
}

var errStorage = &storageError{}

type storageError struct{}

func (*storageError) Error() string { return "storage unavailable" }
