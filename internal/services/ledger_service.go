package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/metrics"
	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"github.com/ArowuTest/recyclehub-backend/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RedeemResult is the outcome of a successful redemption. DuplicateOf is set
// when the customer already held an active voucher for the same offer.
type RedeemResult struct {
	Voucher     *models.Voucher `json:"voucher"`
	Balance     int             `json:"balance"`
	DuplicateOf *models.Voucher `json:"duplicateOf,omitempty"`
}

// PointsSummary is a customer's balance with lifetime totals
type PointsSummary struct {
	Balance     int `json:"balance"`
	TotalEarned int `json:"totalEarned"`
	TotalSpent  int `json:"totalSpent"`
}

// LedgerService owns every change to a user's point balance and the vouchers
// bought with it.
type LedgerService struct {
	userRepo    repositories.UserRepository
	voucherRepo repositories.VoucherRepository
	txRepo      repositories.PointTransactionRepository
	locker      Locker
	sessions    *SessionRegistry
	catalog     []models.VoucherOption
	timeout     time.Duration
	now         func() time.Time
}

// NewLedgerService creates a LedgerService. An empty catalog falls back to the default one.
func NewLedgerService(
	userRepo repositories.UserRepository,
	voucherRepo repositories.VoucherRepository,
	txRepo repositories.PointTransactionRepository,
	locker Locker,
	sessions *SessionRegistry,
	catalog []models.VoucherOption,
	timeout time.Duration,
) *LedgerService {
	if len(catalog) == 0 {
		catalog = models.DefaultVoucherCatalog
	}
	return &LedgerService{
		userRepo:    userRepo,
		voucherRepo: voucherRepo,
		txRepo:      txRepo,
		locker:      locker,
		sessions:    sessions,
		catalog:     catalog,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Catalog returns the voucher options on offer
func (s *LedgerService) Catalog() []models.VoucherOption {
	out := make([]models.VoucherOption, len(s.catalog))
	copy(out, s.catalog)
	return out
}

func (s *LedgerService) option(pointsCost int) (models.VoucherOption, bool) {
	for _, opt := range s.catalog {
		if opt.PointsCost == pointsCost {
			return opt, true
		}
	}
	return models.VoucherOption{}, false
}

func (s *LedgerService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// CreditCollection credits the customer of a completed collection. A
// collection is paid at most once; a second call is a no-op returning 0.
func (s *LedgerService) CreditCollection(ctx context.Context, collection *models.Collection) (int, error) {
	if collection.Status != models.CollectionStatusCompleted {
		return 0, newError(KindInvalidTransition, "only completed collections earn points")
	}
	points := ComputePoints(collection.WasteItems)
	if points < 0 {
		return 0, newError(KindValidation, "collection %s computes to %d points", collection.ID.Hex(), points)
	}

	unlock, err := s.locker.Lock(ctx, customerLockKey(collection.CustomerEmail))
	if err != nil {
		return 0, &Error{Kind: KindPersistence, Message: "failed to lock customer", Err: err}
	}
	defer unlock()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	paid, err := s.txRepo.ExistsForCollection(ctx, collection.ID)
	if err != nil {
		return 0, gatewayError("point transactions", err)
	}
	if paid {
		slog.Warn("Collection already credited, skipping", "collectionId", collection.ID.Hex())
		return 0, nil
	}

	user, err := s.userRepo.AdjustPoints(ctx, collection.CustomerEmail, points)
	if err != nil {
		slog.Error("CreditCollection: Failed to credit points", "error", err, "collectionId", collection.ID.Hex(), "points", points)
		return 0, gatewayError("customer", err)
	}

	collectionID := collection.ID
	tx := &models.PointTransaction{
		UserEmail:    user.Email,
		Kind:         models.PointCredit,
		Points:       points,
		CollectionID: &collectionID,
		BalanceAfter: user.Points,
		CreatedAt:    s.now(),
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		// Undo the balance change so the credit can be retried cleanly
		if _, undoErr := s.userRepo.AdjustPoints(ctx, user.Email, -points); undoErr != nil {
			slog.Error("CreditCollection: CRITICAL: Failed to revert credit", "error", undoErr, "email", user.Email, "points", points)
		}
		if errors.Is(err, repositories.ErrDuplicate) {
			return 0, nil
		}
		return 0, gatewayError("point transaction", err)
	}

	metrics.RecordPoints("credit", points)
	s.sessions.Refresh(user)
	slog.Info("Points credited", "email", user.Email, "collectionId", collection.ID.Hex(), "points", points, "balance", user.Points)
	return points, nil
}

// FindDuplicateVoucher returns an active voucher the customer already holds
// for the same offer, or nil.
func (s *LedgerService) FindDuplicateVoucher(ctx context.Context, email string, opt models.VoucherOption) (*models.Voucher, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	vouchers, err := s.voucherRepo.FindByOwner(ctx, email)
	if err != nil {
		return nil, gatewayError("vouchers", err)
	}
	now := s.now()
	for _, v := range vouchers {
		if v.SameOffer(opt) && v.ActiveAt(now) {
			return v, nil
		}
	}
	return nil, nil
}

// RedeemVoucher exchanges pointsCost points for a new voucher. The voucher is
// written before the debit and removed again if the debit fails, so either
// both happen or neither does.
func (s *LedgerService) RedeemVoucher(ctx context.Context, actor *models.User, pointsCost int) (*RedeemResult, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !actor.IsCustomer() {
		return nil, newError(KindForbidden, "only customers can redeem vouchers")
	}
	opt, ok := s.option(pointsCost)
	if !ok {
		return nil, newError(KindValidation, "no voucher costs %d points", pointsCost)
	}

	unlock, err := s.locker.Lock(ctx, customerLockKey(actor.Email))
	if err != nil {
		return nil, &Error{Kind: KindPersistence, Message: "failed to lock customer", Err: err}
	}
	defer unlock()

	duplicate, err := s.FindDuplicateVoucher(ctx, actor.Email, opt)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.userRepo.FindByEmail(ctx, actor.Email)
	if err != nil {
		return nil, gatewayError("customer", err)
	}
	if user.Points < opt.PointsCost {
		return nil, newError(KindInsufficientPoints, "balance of %d points does not cover %d", user.Points, opt.PointsCost)
	}

	now := s.now()
	voucher := &models.Voucher{
		OwnerEmail:    user.Email,
		Code:          utils.GenerateVoucherCode(),
		PointsCost:    opt.PointsCost,
		MonetaryValue: opt.MonetaryValue,
		Label:         opt.Label,
		CreatedAt:     now,
		ExpiresAt:     now.Add(models.VoucherValidity),
	}
	if err := s.voucherRepo.Create(ctx, voucher); err != nil {
		slog.Error("RedeemVoucher: Failed to create voucher", "error", err, "email", user.Email)
		return nil, gatewayError("voucher", err)
	}

	updated, err := s.userRepo.AdjustPoints(ctx, user.Email, -opt.PointsCost)
	if err != nil {
		if delErr := s.voucherRepo.Delete(ctx, voucher.ID); delErr != nil {
			slog.Error("RedeemVoucher: CRITICAL: Failed to delete voucher after failed debit", "error", delErr, "voucherId", voucher.ID.Hex())
		}
		if errors.Is(err, repositories.ErrInsufficientBalance) {
			return nil, newError(KindInsufficientPoints, "balance does not cover %d points", opt.PointsCost)
		}
		return nil, gatewayError("customer balance", err)
	}

	voucherID := voucher.ID
	tx := &models.PointTransaction{
		UserEmail:    updated.Email,
		Kind:         models.PointDebit,
		Points:       opt.PointsCost,
		VoucherID:    &voucherID,
		BalanceAfter: updated.Points,
		CreatedAt:    now,
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		slog.Error("RedeemVoucher: Failed to record debit transaction", "error", err, "voucherId", voucher.ID.Hex())
		// Refund and drop the voucher so the ledger and the balance stay in step
		if _, undoErr := s.userRepo.AdjustPoints(ctx, updated.Email, opt.PointsCost); undoErr != nil {
			slog.Error("RedeemVoucher: CRITICAL: Failed to refund debit", "error", undoErr, "email", updated.Email, "points", opt.PointsCost)
		}
		if delErr := s.voucherRepo.Delete(ctx, voucher.ID); delErr != nil {
			slog.Error("RedeemVoucher: CRITICAL: Failed to delete voucher after failed debit record", "error", delErr, "voucherId", voucher.ID.Hex())
		}
		return nil, gatewayError("point transaction", err)
	}

	metrics.RecordPoints("debit", opt.PointsCost)
	metrics.RecordVoucherIssued()
	s.sessions.Refresh(updated)
	slog.Info("Voucher issued", "email", updated.Email, "voucherId", voucher.ID.Hex(), "cost", opt.PointsCost, "balance", updated.Points)

	return &RedeemResult{Voucher: voucher, Balance: updated.Points, DuplicateOf: duplicate}, nil
}

// ListVouchers returns the customer's vouchers, newest first
func (s *LedgerService) ListVouchers(ctx context.Context, actor *models.User) ([]*models.Voucher, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	vouchers, err := s.voucherRepo.FindByOwner(ctx, actor.Email)
	if err != nil {
		return nil, gatewayError("vouchers", err)
	}
	now := s.now()
	for _, v := range vouchers {
		if !v.IsUsed && !now.Before(v.ExpiresAt) {
			v.Expired = true
		}
	}
	return vouchers, nil
}

// UseVoucher marks an owned, active voucher as used
func (s *LedgerService) UseVoucher(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.Voucher, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	unlock, err := s.locker.Lock(ctx, customerLockKey(actor.Email))
	if err != nil {
		return nil, &Error{Kind: KindPersistence, Message: "failed to lock customer", Err: err}
	}
	defer unlock()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	voucher, err := s.voucherRepo.FindByID(ctx, id)
	if err != nil {
		return nil, gatewayError("voucher", err)
	}
	if voucher.OwnerEmail != actor.Email {
		return nil, newError(KindForbidden, "voucher belongs to another customer")
	}
	now := s.now()
	if voucher.IsUsed {
		return nil, newError(KindInvalidTransition, "voucher %s was already used", voucher.Code)
	}
	if !voucher.ActiveAt(now) {
		return nil, newError(KindInvalidTransition, "voucher %s expired on %s", voucher.Code, voucher.ExpiresAt.Format(time.RFC3339))
	}

	voucher.IsUsed = true
	voucher.UsedAt = &now
	if err := s.voucherRepo.Update(ctx, voucher); err != nil {
		return nil, gatewayError("voucher", err)
	}
	return voucher, nil
}

// PointsHistory returns the user's point transactions, newest first
func (s *LedgerService) PointsHistory(ctx context.Context, actor *models.User) ([]*models.PointTransaction, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	txs, err := s.txRepo.FindByUserEmail(ctx, actor.Email)
	if err != nil {
		return nil, gatewayError("point transactions", err)
	}
	return txs, nil
}

// PointsSummary returns the current balance with lifetime earned and spent totals
func (s *LedgerService) PointsSummary(ctx context.Context, actor *models.User) (*PointsSummary, error) {
	txs, err := s.PointsHistory(ctx, actor)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()
	user, err := s.userRepo.FindByEmail(ctx, actor.Email)
	if err != nil {
		return nil, gatewayError("user", err)
	}

	summary := &PointsSummary{Balance: user.Points}
	for _, tx := range txs {
		switch tx.Kind {
		case models.PointCredit:
			summary.TotalEarned += tx.Points
		case models.PointDebit:
			summary.TotalSpent += tx.Points
		}
	}
	return summary, nil
}

// ExpireVouchers flags every unused voucher past its expiry
func (s *LedgerService) ExpireVouchers(ctx context.Context) (int64, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	n, err := s.voucherRepo.ExpireBefore(ctx, s.now())
	if err != nil {
		slog.Error("ExpireVouchers: sweep failed", "error", err)
		return 0, gatewayError("vouchers", err)
	}
	metrics.RecordVouchersExpired(n)
	if n > 0 {
		slog.Info("Vouchers expired", "count", n)
	}
	return n, nil
}
