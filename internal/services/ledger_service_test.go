package services

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"pgregory.net/rapid"
)

func TestRedeemVoucher(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 250)
	ctx := context.Background()

	res, err := f.ledger.RedeemVoucher(ctx, owner, 200)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Balance)
	assert.Equal(t, 50, f.balance(t, owner.Email))
	assert.Nil(t, res.DuplicateOf)

	v := res.Voucher
	assert.Equal(t, owner.Email, v.OwnerEmail)
	assert.Equal(t, 200, v.PointsCost)
	assert.Equal(t, 120, v.MonetaryValue)
	assert.False(t, v.IsUsed)
	assert.Equal(t, f.clock.Add(30*24*time.Hour), v.ExpiresAt)
	assert.Regexp(t, `^BON-[0-9A-F]{6}$`, v.Code)

	history, err := f.ledger.PointsHistory(ctx, owner)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.PointDebit, history[0].Kind)
	assert.Equal(t, 200, history[0].Points)
	assert.Equal(t, v.ID, *history[0].VoucherID)
	assert.Equal(t, 50, history[0].BalanceAfter)
}

func TestRedeemWithInsufficientPoints(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 80)
	ctx := context.Background()

	_, err := f.ledger.RedeemVoucher(ctx, owner, 100)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, 80, f.balance(t, owner.Email))

	vouchers, err := f.ledger.ListVouchers(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, vouchers)
}

func TestRedeemRejectsUnknownOptionAndCollectors(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 1000)
	karim := f.collector(t, "karim@recycle.ma", "Rabat")
	ctx := context.Background()

	_, err := f.ledger.RedeemVoucher(ctx, owner, 150)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.RedeemVoucher(ctx, karim, 100)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.ledger.RedeemVoucher(ctx, nil, 100)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, 1000, f.balance(t, owner.Email))
}

func TestRedeemFlagsDuplicateOffer(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 300)
	ctx := context.Background()

	first, err := f.ledger.RedeemVoucher(ctx, owner, 100)
	require.NoError(t, err)

	second, err := f.ledger.RedeemVoucher(ctx, owner, 100)
	require.NoError(t, err, "duplicates warn, they do not block")
	require.NotNil(t, second.DuplicateOf)
	assert.Equal(t, first.Voucher.ID, second.DuplicateOf.ID)

	third, err := f.ledger.RedeemVoucher(ctx, owner, 100)
	require.NoError(t, err)
	assert.NotNil(t, third.DuplicateOf)
	assert.Equal(t, 0, third.Balance)
}

func TestFindDuplicateVoucherIgnoresUsedAndExpired(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 200)
	ctx := context.Background()
	opt := models.DefaultVoucherCatalog[0]

	res, err := f.ledger.RedeemVoucher(ctx, owner, opt.PointsCost)
	require.NoError(t, err)

	dup, err := f.ledger.FindDuplicateVoucher(ctx, owner.Email, opt)
	require.NoError(t, err)
	require.NotNil(t, dup)

	dup, err = f.ledger.FindDuplicateVoucher(ctx, owner.Email, models.DefaultVoucherCatalog[1])
	require.NoError(t, err)
	assert.Nil(t, dup, "different offer")

	_, err = f.ledger.UseVoucher(ctx, owner, res.Voucher.ID)
	require.NoError(t, err)
	dup, err = f.ledger.FindDuplicateVoucher(ctx, owner.Email, opt)
	require.NoError(t, err)
	assert.Nil(t, dup, "used voucher")

	_, err = f.ledger.RedeemVoucher(ctx, owner, opt.PointsCost)
	require.NoError(t, err)
	f.advance(models.VoucherValidity)
	dup, err = f.ledger.FindDuplicateVoucher(ctx, owner.Email, opt)
	require.NoError(t, err)
	assert.Nil(t, dup, "expired voucher")
}

func TestRedeemCompensatesWhenDebitFails(t *testing.T) {
	f := newFixture(t, withUsers(func(r repositories.UserRepository) repositories.UserRepository {
		return &failingUsers{UserRepository: r, fail: func(delta int) bool { return delta < 0 }}
	}))
	owner := f.customer(t, "amina@example.com", 500)
	ctx := context.Background()

	_, err := f.ledger.RedeemVoucher(ctx, owner, 100)
	require.ErrorIs(t, err, ErrPersistence)

	assert.Equal(t, 500, f.balance(t, owner.Email))
	vouchers, err := f.store.Vouchers().FindByOwner(ctx, owner.Email)
	require.NoError(t, err)
	assert.Empty(t, vouchers, "voucher must be removed when the debit fails")
}

func TestRedeemDoesNotDebitWhenVoucherFails(t *testing.T) {
	f := newFixture(t, withVouchers(func(r repositories.VoucherRepository) repositories.VoucherRepository {
		return &failingVouchers{VoucherRepository: r}
	}))
	owner := f.customer(t, "amina@example.com", 500)

	_, err := f.ledger.RedeemVoucher(context.Background(), owner, 500)
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 500, f.balance(t, owner.Email))
}

func TestConcurrentRedemptionsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 500)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.ledger.RedeemVoucher(context.Background(), owner, 100)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, f.balance(t, owner.Email))
	vouchers, err := f.store.Vouchers().FindByOwner(context.Background(), owner.Email)
	require.NoError(t, err)
	assert.Len(t, vouchers, 5)
}

func TestRedemptionIsAllOrNothing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		start := rapid.IntRange(0, 1200).Draw(rt, "start")
		owner := f.customer(t, "amina@example.com", start)
		ctx := context.Background()

		balance := start
		issued := 0
		for _, cost := range rapid.SliceOfN(rapid.SampledFrom([]int{100, 200, 500}), 1, 6).Draw(rt, "costs") {
			_, err := f.ledger.RedeemVoucher(ctx, owner, cost)
			if err == nil {
				balance -= cost
				issued++
			} else if KindOf(err) != KindInsufficientPoints || balance >= cost {
				rt.Fatalf("unexpected error %v with balance %d for cost %d", err, balance, cost)
			}
		}

		if got := f.balance(t, owner.Email); got != balance || got < 0 {
			rt.Fatalf("balance %d, expected %d", got, balance)
		}
		vouchers, err := f.store.Vouchers().FindByOwner(ctx, owner.Email)
		require.NoError(rt, err)
		if len(vouchers) != issued {
			rt.Fatalf("%d vouchers for %d successful redemptions", len(vouchers), issued)
		}
	})
}

func TestCreditCollectionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 0)
	ctx := context.Background()
	c := &models.Collection{
		ID:            primitive.NewObjectID(),
		CustomerEmail: owner.Email,
		Status:        models.CollectionStatusCompleted,
		WasteItems: []models.WasteItem{
			{Type: models.WasteMetal, EstimatedWeight: 1000, ActualWeight: intPtr(3000)},
		},
	}

	points, err := f.ledger.CreditCollection(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 15, points)

	points, err = f.ledger.CreditCollection(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 0, points)
	assert.Equal(t, 15, f.balance(t, owner.Email))

	c.Status = models.CollectionStatusRejected
	_, err = f.ledger.CreditCollection(ctx, c)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCreditRevertsWhenHistoryWriteFails(t *testing.T) {
	f := newFixture(t, withTransactions(func(r repositories.PointTransactionRepository) repositories.PointTransactionRepository {
		return &failingTransactions{PointTransactionRepository: r}
	}))
	owner := f.customer(t, "amina@example.com", 0)
	c := &models.Collection{
		ID:            primitive.NewObjectID(),
		CustomerEmail: owner.Email,
		Status:        models.CollectionStatusCompleted,
		WasteItems:    []models.WasteItem{{Type: models.WastePlastic, ActualWeight: intPtr(5000)}},
	}

	_, err := f.ledger.CreditCollection(context.Background(), c)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 0, f.balance(t, owner.Email))
}

func TestBalanceChangesReachTheSession(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 300)
	session := f.sessions.Open(owner)
	updates, stop := session.Subscribe()
	defer stop()

	_, err := f.ledger.RedeemVoucher(context.Background(), owner, 100)
	require.NoError(t, err)

	select {
	case u := <-updates:
		require.NotNil(t, u)
		assert.Equal(t, 200, u.Points)
	case <-time.After(time.Second):
		t.Fatal("no session update after redemption")
	}
	assert.Equal(t, 200, session.Current().Points)
}

func TestUseVoucher(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 200)
	other := f.customer(t, "youssef@example.com", 0)
	ctx := context.Background()

	res, err := f.ledger.RedeemVoucher(ctx, owner, 100)
	require.NoError(t, err)

	_, err = f.ledger.UseVoucher(ctx, other, res.Voucher.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	used, err := f.ledger.UseVoucher(ctx, owner, res.Voucher.ID)
	require.NoError(t, err)
	assert.True(t, used.IsUsed)
	require.NotNil(t, used.UsedAt)

	_, err = f.ledger.UseVoucher(ctx, owner, res.Voucher.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	expiring, err := f.ledger.RedeemVoucher(ctx, owner, 100)
	require.NoError(t, err)
	f.advance(models.VoucherValidity + time.Second)
	_, err = f.ledger.UseVoucher(ctx, owner, expiring.Voucher.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.ledger.UseVoucher(ctx, owner, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireVouchersAndListing(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 300)
	ctx := context.Background()

	_, err := f.ledger.RedeemVoucher(ctx, owner, 100)
	require.NoError(t, err)
	f.advance(24 * time.Hour)
	_, err = f.ledger.RedeemVoucher(ctx, owner, 200)
	require.NoError(t, err)

	n, err := f.ledger.ExpireVouchers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.advance(models.VoucherValidity - 12*time.Hour)
	list, err := f.ledger.ListVouchers(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].Expired, "newest still valid")
	assert.True(t, list[1].Expired, "listing reports expiry before the sweep runs")

	n, err = f.ledger.ExpireVouchers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPointsSummary(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 0)
	ctx := context.Background()
	c := &models.Collection{
		ID:            primitive.NewObjectID(),
		CustomerEmail: owner.Email,
		Status:        models.CollectionStatusCompleted,
		WasteItems:    []models.WasteItem{{Type: models.WasteMetal, ActualWeight: intPtr(40000)}},
	}
	_, err := f.ledger.CreditCollection(ctx, c)
	require.NoError(t, err)
	_, err = f.ledger.RedeemVoucher(ctx, owner, 100)
	require.NoError(t, err)

	summary, err := f.ledger.PointsSummary(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, PointsSummary{Balance: 100, TotalEarned: 200, TotalSpent: 100}, *summary)
}

func TestCatalogDefaultsAndCopies(t *testing.T) {
	f := newFixture(t)
	catalog := f.ledger.Catalog()
	require.Len(t, catalog, 3)
	catalog[0].PointsCost = 1
	assert.Equal(t, 100, f.ledger.Catalog()[0].PointsCost)
}

func TestCreditCollectionRefusesNegativePoints(t *testing.T) {
	f := newFixture(t)
	owner := f.customer(t, "amina@example.com", 50)
	c := &models.Collection{
		ID:            primitive.NewObjectID(),
		CustomerEmail: owner.Email,
		Status:        models.CollectionStatusCompleted,
		WasteItems:    []models.WasteItem{{Type: models.WastePlastic, ActualWeight: intPtr(math.MaxInt - 2999)}},
	}

	_, err := f.ledger.CreditCollection(context.Background(), c)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 50, f.balance(t, owner.Email))

	paid, err := f.txs.ExistsForCollection(context.Background(), c.ID)
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestRedeemCompensatesWhenDebitRecordFails(t *testing.T) {
	f := newFixture(t, withTransactions(func(r repositories.PointTransactionRepository) repositories.PointTransactionRepository {
		return &failingTransactions{PointTransactionRepository: r}
	}))
	owner := f.customer(t, "amina@example.com", 500)
	ctx := context.Background()

	_, err := f.ledger.RedeemVoucher(ctx, owner, 100)
	require.ErrorIs(t, err, ErrPersistence)

	assert.Equal(t, 500, f.balance(t, owner.Email))
	vouchers, err := f.store.Vouchers().FindByOwner(ctx, owner.Email)
	require.NoError(t, err)
	assert.Empty(t, vouchers)
}
