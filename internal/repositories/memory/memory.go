// Package memory is an in-memory implementation of the repository interfaces.
// It is safe for concurrent use and backs the local single-process mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every record collection behind one lock
type Store struct {
	mu           sync.RWMutex
	users        map[string]models.User
	collections  map[primitive.ObjectID]*models.Collection
	vouchers     map[primitive.ObjectID]models.Voucher
	transactions []models.PointTransaction
	events       []models.CollectionEvent
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:       make(map[string]models.User),
		collections: make(map[primitive.ObjectID]*models.Collection),
		vouchers:    make(map[primitive.ObjectID]models.Voucher),
	}
}

// Users returns the user repository view of the store
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Collections returns the collection repository view of the store
func (s *Store) Collections() *CollectionRepository { return &CollectionRepository{s: s} }

// Vouchers returns the voucher repository view of the store
func (s *Store) Vouchers() *VoucherRepository { return &VoucherRepository{s: s} }

// PointTransactions returns the point transaction repository view of the store
func (s *Store) PointTransactions() *PointTransactionRepository {
	return &PointTransactionRepository{s: s}
}

// CollectionEvents returns the collection history view of the store
func (s *Store) CollectionEvents() *CollectionEventRepository {
	return &CollectionEventRepository{s: s}
}

var (
	_ repositories.UserRepository             = (*UserRepository)(nil)
	_ repositories.CollectionRepository       = (*CollectionRepository)(nil)
	_ repositories.VoucherRepository          = (*VoucherRepository)(nil)
	_ repositories.PointTransactionRepository = (*PointTransactionRepository)(nil)
	_ repositories.CollectionEventRepository  = (*CollectionEventRepository)(nil)
)

// UserRepository -------------------------------------------------------------

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.Email]; exists {
		return repositories.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.Email] = *user
	return nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[user.Email]
	if !ok {
		return repositories.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	next := *user
	next.ID = stored.ID
	next.Role = stored.Role
	next.Points = stored.Points
	next.CreatedAt = stored.CreatedAt
	r.s.users[user.Email] = next
	return nil
}

func (r *UserRepository) AdjustPoints(_ context.Context, email string, delta int) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if u.Points+delta < 0 {
		return nil, repositories.ErrInsufficientBalance
	}
	u.Points += delta
	u.UpdatedAt = time.Now()
	r.s.users[email] = u
	return &u, nil
}

func (r *UserRepository) FindByRole(_ context.Context, role models.Role) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := []*models.User{}
	for _, u := range r.s.users {
		if u.Role == role {
			u := u
			users = append(users, &u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// CollectionRepository -------------------------------------------------------

type CollectionRepository struct{ s *Store }

func (r *CollectionRepository) Create(_ context.Context, c *models.Collection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	} else if _, exists := r.s.collections[c.ID]; exists {
		return repositories.ErrDuplicate
	}
	c.Version = 1
	r.s.collections[c.ID] = c.Clone()
	return nil
}

func (r *CollectionRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Collection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.collections[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CollectionRepository) Update(_ context.Context, c *models.Collection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.collections[c.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if stored.Version != c.Version {
		return repositories.ErrVersionConflict
	}
	c.Version++
	r.s.collections[c.ID] = c.Clone()
	return nil
}

func (r *CollectionRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.collections[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.collections, id)
	return nil
}

func (r *CollectionRepository) Find(_ context.Context, f models.CollectionFilter) ([]*models.Collection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Collection{}
	for _, c := range r.s.collections {
		if f.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// VoucherRepository ----------------------------------------------------------

type VoucherRepository struct{ s *Store }

func (r *VoucherRepository) Create(_ context.Context, v *models.Voucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.vouchers {
		if existing.Code == v.Code {
			return repositories.ErrDuplicate
		}
	}
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	r.s.vouchers[v.ID] = *v
	return nil
}

func (r *VoucherRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.vouchers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &v, nil
}

func (r *VoucherRepository) FindByOwner(_ context.Context, ownerEmail string) ([]*models.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.Voucher{}
	for _, v := range r.s.vouchers {
		if v.OwnerEmail == ownerEmail {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *VoucherRepository) Update(_ context.Context, v *models.Voucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.vouchers[v.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.s.vouchers[v.ID] = *v
	return nil
}

func (r *VoucherRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.vouchers, id)
	return nil
}

func (r *VoucherRepository) ExpireBefore(_ context.Context, t time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, v := range r.s.vouchers {
		if !v.IsUsed && !v.Expired && !v.ExpiresAt.After(t) {
			v.Expired = true
			r.s.vouchers[id] = v
			n++
		}
	}
	return n, nil
}

// PointTransactionRepository -------------------------------------------------

type PointTransactionRepository struct{ s *Store }

func (r *PointTransactionRepository) Create(_ context.Context, tx *models.PointTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if tx.CollectionID != nil {
		for _, existing := range r.s.transactions {
			if existing.CollectionID != nil && *existing.CollectionID == *tx.CollectionID {
				return repositories.ErrDuplicate
			}
		}
	}
	tx.ID = primitive.NewObjectID()
	r.s.transactions = append(r.s.transactions, *tx)
	return nil
}

func (r *PointTransactionRepository) FindByUserEmail(_ context.Context, email string) ([]*models.PointTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.PointTransaction{}
	for i := len(r.s.transactions) - 1; i >= 0; i-- {
		tx := r.s.transactions[i]
		if tx.UserEmail == email {
			out = append(out, &tx)
		}
	}
	return out, nil
}

func (r *PointTransactionRepository) ExistsForCollection(_ context.Context, collectionID primitive.ObjectID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, tx := range r.s.transactions {
		if tx.CollectionID != nil && *tx.CollectionID == collectionID {
			return true, nil
		}
	}
	return false, nil
}

// CollectionEventRepository --------------------------------------------------

type CollectionEventRepository struct{ s *Store }

func (r *CollectionEventRepository) Append(_ context.Context, event *models.CollectionEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	event.ID = primitive.NewObjectID()
	r.s.events = append(r.s.events, *event)
	return nil
}

func (r *CollectionEventRepository) FindByCollection(_ context.Context, collectionID primitive.ObjectID) ([]*models.CollectionEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*models.CollectionEvent{}
	for _, e := range r.s.events {
		if e.CollectionID == collectionID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}
