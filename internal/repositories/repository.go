package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a compare-and-swap update lost a race
	ErrVersionConflict = errors.New("record was modified concurrently")
	// ErrInsufficientBalance is returned when a point adjustment would drop below the floor
	ErrInsufficientBalance = errors.New("insufficient point balance")
	// ErrDuplicate is returned when a unique key already exists
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// AdjustPoints atomically adds delta to the balance. It fails with
	// ErrInsufficientBalance when the result would be negative.
	AdjustPoints(ctx context.Context, email string, delta int) (*models.User, error)
	FindByRole(ctx context.Context, role models.Role) ([]*models.User, error)
}

// CollectionRepository defines the interface for collection data operations
type CollectionRepository interface {
	// Create assigns an ID when absent and stores the record at version 1
	Create(ctx context.Context, collection *models.Collection) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Collection, error)
	// Update stores the record only if the stored version equals collection.Version,
	// then bumps the version. It returns ErrVersionConflict otherwise.
	Update(ctx context.Context, collection *models.Collection) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Find(ctx context.Context, filter models.CollectionFilter) ([]*models.Collection, error)
}

// VoucherRepository defines the interface for voucher data operations
type VoucherRepository interface {
	Create(ctx context.Context, voucher *models.Voucher) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Voucher, error)
	FindByOwner(ctx context.Context, ownerEmail string) ([]*models.Voucher, error)
	Update(ctx context.Context, voucher *models.Voucher) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ExpireBefore flags unused vouchers whose expiry is before t and returns how many changed
	ExpireBefore(ctx context.Context, t time.Time) (int64, error)
}

// PointTransactionRepository defines the interface for point transaction operations
type PointTransactionRepository interface {
	Create(ctx context.Context, transaction *models.PointTransaction) error
	FindByUserEmail(ctx context.Context, email string) ([]*models.PointTransaction, error)
	ExistsForCollection(ctx context.Context, collectionID primitive.ObjectID) (bool, error)
}

// CollectionEventRepository stores the status history of collections
type CollectionEventRepository interface {
	Append(ctx context.Context, event *models.CollectionEvent) error
	// FindByCollection returns the events of one collection, oldest first
	FindByCollection(ctx context.Context, collectionID primitive.ObjectID) ([]*models.CollectionEvent, error)
}
