package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/metrics"
	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CollectorPoolPolicy decides which pending collections a collector sees
type CollectorPoolPolicy string

const (
	// PoolAll shows every pending collection to every collector
	PoolAll CollectorPoolPolicy = "all"
	// PoolCity shows a collector only pending collections in their own city
	PoolCity CollectorPoolPolicy = "city"
)

// ParseCollectorPoolPolicy accepts "all" or "city", case-insensitively
func ParseCollectorPoolPolicy(s string) (CollectorPoolPolicy, error) {
	switch CollectorPoolPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PoolAll:
		return PoolAll, nil
	case PoolCity, "":
		return PoolCity, nil
	}
	return "", newError(KindValidation, "unknown collector pool policy %q", s)
}

// CreateCollectionInput is what a customer supplies to request a pickup
type CreateCollectionInput struct {
	WasteItems    []models.WasteItem `json:"wasteItems" binding:"required"`
	Address       models.Address     `json:"address"`
	ScheduledDate time.Time          `json:"scheduledDate" binding:"required"`
	ScheduledTime string             `json:"scheduledTime" binding:"required"`
	Notes         string             `json:"notes,omitempty"`
	Photos        []string           `json:"photos,omitempty"`
}

// StatusUpdate carries the only fields a status change may set. Completion
// reads the actual weight of each item, in the same order as the stored
// items; rejection reads the reason. Everything else is ignored.
type StatusUpdate struct {
	WasteItems      []models.WasteItem `json:"wasteItems,omitempty"`
	RejectionReason string             `json:"rejectionReason,omitempty"`
}

// StatusResult is the outcome of a status change
type StatusResult struct {
	Collection     *models.Collection `json:"collection"`
	PointsCredited int                `json:"pointsCredited"`
	Warnings       []string           `json:"warnings,omitempty"`
}

// CollectionService runs the collection lifecycle
type CollectionService struct {
	collectionRepo repositories.CollectionRepository
	history        repositories.CollectionEventRepository
	ledger         *LedgerService
	locker         Locker
	poolPolicy     CollectorPoolPolicy
	timeout        time.Duration
	now            func() time.Time
}

// NewCollectionService creates a CollectionService
func NewCollectionService(
	collectionRepo repositories.CollectionRepository,
	ledger *LedgerService,
	locker Locker,
	poolPolicy CollectorPoolPolicy,
	timeout time.Duration,
) *CollectionService {
	if poolPolicy == "" {
		poolPolicy = PoolCity
	}
	return &CollectionService{
		collectionRepo: collectionRepo,
		ledger:         ledger,
		locker:         locker,
		poolPolicy:     poolPolicy,
		timeout:        timeout,
		now:            time.Now,
	}
}

// WithHistory records every lifecycle change in repo
func (s *CollectionService) WithHistory(repo repositories.CollectionEventRepository) *CollectionService {
	s.history = repo
	return s
}

// record appends a history event. The transition it describes is already
// stored, so a failure here is only logged.
func (s *CollectionService) record(c *models.Collection, from models.CollectionStatus, actorEmail, note string) {
	if s.history == nil {
		return
	}
	ctx, cancel := s.bounded(context.Background())
	defer cancel()
	if err := s.history.Append(ctx, models.NewCollectionEvent(c, from, actorEmail, note, c.UpdatedAt)); err != nil {
		slog.Warn("Failed to record collection event", "error", err, "collectionId", c.ID.Hex(), "to", c.Status)
	}
}

func (s *CollectionService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *CollectionService) lock(ctx context.Context, key string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, &Error{Kind: KindPersistence, Message: "failed to acquire " + key, Err: err}
	}
	return unlock, nil
}

func (s *CollectionService) pendingOf(ctx context.Context, customerEmail string) ([]*models.Collection, error) {
	pending, err := s.collectionRepo.Find(ctx, models.CollectionFilter{
		CustomerEmail: customerEmail,
		Statuses:      []models.CollectionStatus{models.CollectionStatusPending},
	})
	if err != nil {
		return nil, gatewayError("pending collections", err)
	}
	return pending, nil
}

// CreateCollection stores a new PENDING collection for the acting customer
func (s *CollectionService) CreateCollection(ctx context.Context, actor *models.User, in CreateCollectionInput) (*models.Collection, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !actor.IsCustomer() {
		return nil, newError(KindForbidden, "only customers can request collections")
	}
	total, err := checkWeights(in.WasteItems)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Address.Street) == "" || strings.TrimSpace(in.Address.City) == "" {
		return nil, newError(KindValidation, "a pickup address with street and city is required")
	}
	if in.ScheduledDate.IsZero() {
		return nil, newError(KindValidation, "a scheduled date is required")
	}

	unlock, err := s.lock(ctx, customerLockKey(actor.Email))
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	pending, err := s.pendingOf(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	if err := checkPendingQuota(pending, primitive.NilObjectID, total); err != nil {
		slog.Warn("Collection request refused", "email", actor.Email, "error", err)
		return nil, err
	}

	now := s.now()
	items := make([]models.WasteItem, len(in.WasteItems))
	for i, item := range in.WasteItems {
		item.ActualWeight = nil
		items[i] = item
	}
	collection := &models.Collection{
		CustomerEmail:        actor.Email,
		WasteItems:           items,
		TotalEstimatedWeight: total,
		Status:               models.CollectionStatusPending,
		Address:              in.Address,
		ScheduledDate:        in.ScheduledDate,
		ScheduledTime:        in.ScheduledTime,
		Notes:                in.Notes,
		Photos:               in.Photos,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.collectionRepo.Create(ctx, collection); err != nil {
		slog.Error("CreateCollection: Failed to persist collection", "error", err, "email", actor.Email)
		return nil, gatewayError("collection", err)
	}

	metrics.RecordTransition(string(models.CollectionStatusPending))
	s.record(collection, "", actor.Email, "")
	slog.Info("Collection requested", "collectionId", collection.ID.Hex(), "email", actor.Email, "weight", total)
	return collection, nil
}

// ListVisibleCollections returns a customer's own collections, or for a
// collector the pending pool plus their own jobs in flight.
func (s *CollectionService) ListVisibleCollections(ctx context.Context, viewer *models.User) ([]*models.Collection, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	if viewer.IsCustomer() {
		own, err := s.collectionRepo.Find(ctx, models.CollectionFilter{CustomerEmail: viewer.Email})
		if err != nil {
			return nil, gatewayError("collections", err)
		}
		return own, nil
	}
	if !viewer.IsCollector() {
		return nil, newError(KindForbidden, "unknown role %q", viewer.Role)
	}

	pool, err := s.collectionRepo.Find(ctx, models.CollectionFilter{
		Statuses: []models.CollectionStatus{models.CollectionStatusPending},
	})
	if err != nil {
		return nil, gatewayError("collections", err)
	}
	mine, err := s.collectionRepo.Find(ctx, models.CollectionFilter{
		CollectorEmail: viewer.Email,
		Statuses:       []models.CollectionStatus{models.CollectionStatusOccupied, models.CollectionStatusInProgress},
	})
	if err != nil {
		return nil, gatewayError("collections", err)
	}

	visible := make([]*models.Collection, 0, len(pool)+len(mine))
	for _, c := range pool {
		if s.inPool(viewer, c) {
			visible = append(visible, c)
		}
	}
	visible = append(visible, mine...)
	sort.SliceStable(visible, func(i, j int) bool { return visible[i].CreatedAt.After(visible[j].CreatedAt) })
	return visible, nil
}

// inPool applies the pool policy to a pending collection
func (s *CollectionService) inPool(collector *models.User, c *models.Collection) bool {
	if c.Status != models.CollectionStatusPending {
		return false
	}
	return s.poolPolicy == PoolAll || collector.Address.SameCity(c.Address)
}

// GetCollection returns one collection the viewer may see
func (s *CollectionService) GetCollection(ctx context.Context, viewer *models.User, id primitive.ObjectID) (*models.Collection, error) {
	if viewer == nil {
		return nil, ErrNotAuthenticated
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	c, err := s.collectionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, gatewayError("collection", err)
	}
	switch {
	case c.CustomerEmail == viewer.Email:
	case viewer.IsCollector() && c.CollectorEmail == viewer.Email:
	case viewer.IsCollector() && s.inPool(viewer, c):
	default:
		return nil, newError(KindForbidden, "collection %s is not visible to you", id.Hex())
	}
	return c, nil
}

// CollectionHistory returns the status changes of a collection the viewer may see, oldest first
func (s *CollectionService) CollectionHistory(ctx context.Context, viewer *models.User, id primitive.ObjectID) ([]*models.CollectionEvent, error) {
	if _, err := s.GetCollection(ctx, viewer, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []*models.CollectionEvent{}, nil
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	events, err := s.history.FindByCollection(ctx, id)
	if err != nil {
		return nil, gatewayError("collection history", err)
	}
	return events, nil
}

// UpdateCollectionStatus moves a collection through the state machine
func (s *CollectionService) UpdateCollectionStatus(
	ctx context.Context,
	actor *models.User,
	id primitive.ObjectID,
	to models.CollectionStatus,
	update StatusUpdate,
) (*StatusResult, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !to.Valid() {
		return nil, newError(KindValidation, "unknown status %q", to)
	}

	unlock, err := s.lock(ctx, collectionLockKey(id.Hex()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	loadCtx, cancel := s.bounded(ctx)
	current, err := s.collectionRepo.FindByID(loadCtx, id)
	cancel()
	if err != nil {
		return nil, gatewayError("collection", err)
	}

	effect := Transition(current.Status, to)
	if effect == EffectDenied {
		return nil, newError(KindInvalidTransition, "cannot move collection from %s to %s", current.Status, to)
	}
	if !actor.IsCollector() {
		return nil, newError(KindForbidden, "only collectors can change a collection's status")
	}
	if current.CollectorEmail != "" && current.CollectorEmail != actor.Email {
		return nil, newError(KindForbidden, "collection is assigned to another collector")
	}
	if current.Status == models.CollectionStatusPending && !s.inPool(actor, current) {
		return nil, newError(KindForbidden, "collection is outside your pickup area")
	}

	now := s.now()
	next := current.Clone()
	next.Status = to
	next.UpdatedAt = now
	var warnings []string

	switch effect {
	case EffectAccept:
		next.CollectorEmail = actor.Email
	case EffectStart:
	case EffectComplete:
		items, err := completedItems(current.WasteItems, update.WasteItems)
		if err != nil {
			return nil, err
		}
		total := ActualTotal(items)
		next.WasteItems = items
		next.TotalActualWeight = &total
		next.CompletedAt = &now
		warnings = WeightWarnings(items)
	case EffectReject:
		reason := strings.TrimSpace(update.RejectionReason)
		if reason == "" {
			return nil, newError(KindValidation, "a rejection reason is required")
		}
		next.RejectionReason = reason
	}

	saveCtx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.collectionRepo.Update(saveCtx, next); err != nil {
		slog.Error("UpdateCollectionStatus: Failed to persist transition", "error", err, "collectionId", id.Hex(), "to", to)
		if errors.Is(err, repositories.ErrVersionConflict) {
			return nil, &Error{Kind: KindPersistence, Message: "collection changed concurrently, reload and retry", Err: err}
		}
		return nil, gatewayError("collection", err)
	}

	result := &StatusResult{Collection: next, Warnings: warnings}
	if effect == EffectComplete {
		points, err := s.ledger.CreditCollection(ctx, next)
		if err != nil {
			s.revert(current, next)
			return nil, &Error{Kind: KindPersistence, Message: "failed to credit points, completion was rolled back", Err: err}
		}
		result.PointsCredited = points
	}

	metrics.RecordTransition(string(to))
	s.record(next, current.Status, actor.Email, next.RejectionReason)
	slog.Info("Collection status changed", "collectionId", id.Hex(), "from", current.Status, "to", to, "collector", actor.Email)
	return result, nil
}

// revert restores the record that was in place before a transition whose
// side effect failed.
func (s *CollectionService) revert(prior, applied *models.Collection) {
	ctx, cancel := s.bounded(context.Background())
	defer cancel()

	restore := prior.Clone()
	restore.Version = applied.Version
	if err := s.collectionRepo.Update(ctx, restore); err != nil {
		slog.Error("UpdateCollectionStatus: CRITICAL: Failed to roll back completion", "error", err, "collectionId", prior.ID.Hex())
	}
}

// completedItems copies the actual weights from the update onto the stored items
func completedItems(stored, reported []models.WasteItem) ([]models.WasteItem, error) {
	if len(reported) != len(stored) {
		return nil, newError(KindValidation, "expected actual weights for %d items, got %d", len(stored), len(reported))
	}
	items := make([]models.WasteItem, len(stored))
	for i, item := range stored {
		r := reported[i]
		if r.Type != "" && r.Type != item.Type {
			return nil, newError(KindValidation, "item %d: expected type %s, got %s", i, item.Type, r.Type)
		}
		if r.ActualWeight == nil || *r.ActualWeight <= 0 {
			return nil, newError(KindValidation, "item %d: a positive actual weight is required", i)
		}
		if *r.ActualWeight > MaxItemActualWeight {
			return nil, newError(KindValidation, "item %d: actual weight %d g is above the %d g limit", i, *r.ActualWeight, MaxItemActualWeight)
		}
		w := *r.ActualWeight
		item.ActualWeight = &w
		if item.Photos != nil {
			item.Photos = append([]string(nil), item.Photos...)
		}
		items[i] = item
	}
	return items, nil
}

// applyPatch merges an owner edit into a copy of the collection. Status,
// ownership, assignment and lifecycle timestamps are never taken from the patch.
func applyPatch(c *models.Collection, patch models.CollectionPatch) *models.Collection {
	out := c.Clone()
	if patch.WasteItems != nil {
		out.WasteItems = make([]models.WasteItem, len(patch.WasteItems))
		for i, item := range patch.WasteItems {
			item.ActualWeight = nil
			out.WasteItems[i] = item
		}
		out.TotalEstimatedWeight = models.EstimatedTotal(out.WasteItems)
	}
	if patch.Address != nil {
		out.Address = *patch.Address
	}
	if patch.ScheduledDate != nil {
		out.ScheduledDate = *patch.ScheduledDate
	}
	if patch.ScheduledTime != nil {
		out.ScheduledTime = *patch.ScheduledTime
	}
	if patch.Notes != nil {
		out.Notes = *patch.Notes
	}
	if patch.Photos != nil {
		out.Photos = append([]string(nil), patch.Photos...)
	}
	return out
}

// UpdateCollection applies the owner's edit to a PENDING collection
func (s *CollectionService) UpdateCollection(ctx context.Context, actor *models.User, id primitive.ObjectID, patch models.CollectionPatch) (*models.Collection, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}

	unlockCollection, err := s.lock(ctx, collectionLockKey(id.Hex()))
	if err != nil {
		return nil, err
	}
	defer unlockCollection()
	unlockCustomer, err := s.lock(ctx, customerLockKey(actor.Email))
	if err != nil {
		return nil, err
	}
	defer unlockCustomer()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	current, err := s.collectionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, gatewayError("collection", err)
	}
	if current.CustomerEmail != actor.Email {
		return nil, newError(KindInvalidTransition, "only the owning customer can edit a collection")
	}
	if current.Status != models.CollectionStatusPending {
		return nil, newError(KindInvalidTransition, "collection is %s and can no longer be edited", current.Status)
	}

	next := applyPatch(current, patch)
	if _, err := checkWeights(next.WasteItems); err != nil {
		return nil, err
	}
	if strings.TrimSpace(next.Address.Street) == "" || strings.TrimSpace(next.Address.City) == "" {
		return nil, newError(KindValidation, "a pickup address with street and city is required")
	}

	pending, err := s.pendingOf(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	if err := checkPendingQuota(pending, id, next.TotalEstimatedWeight); err != nil {
		return nil, err
	}

	next.UpdatedAt = s.now()
	if err := s.collectionRepo.Update(ctx, next); err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return nil, &Error{Kind: KindPersistence, Message: "collection changed concurrently, reload and retry", Err: err}
		}
		return nil, gatewayError("collection", err)
	}
	return next, nil
}

// DeleteCollection removes a PENDING collection on its owner's request
func (s *CollectionService) DeleteCollection(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	if actor == nil {
		return ErrNotAuthenticated
	}

	unlock, err := s.lock(ctx, collectionLockKey(id.Hex()))
	if err != nil {
		return err
	}
	defer unlock()

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	current, err := s.collectionRepo.FindByID(ctx, id)
	if err != nil {
		return gatewayError("collection", err)
	}
	if current.CustomerEmail != actor.Email || current.Status != models.CollectionStatusPending {
		return newError(KindForbidden, "only the owner can delete a pending collection")
	}
	if err := s.collectionRepo.Delete(ctx, id); err != nil {
		return gatewayError("collection", err)
	}
	slog.Info("Collection deleted", "collectionId", id.Hex(), "email", actor.Email)
	return nil
}
