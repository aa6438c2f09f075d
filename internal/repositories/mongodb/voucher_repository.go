package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure VoucherRepository implements the interface
var _ repositories.VoucherRepository = (*VoucherRepository)(nil)

// VoucherRepository handles MongoDB operations for Voucher
type VoucherRepository struct {
	collection *mongo.Collection
}

// NewVoucherRepository creates a new VoucherRepository
func NewVoucherRepository(db *mongo.Database) *VoucherRepository {
	return &VoucherRepository{
		collection: db.Collection("vouchers"),
	}
}

// EnsureIndexes creates the owner lookup index and the unique code index
func (r *VoucherRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerEmail", Value: 1}}},
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

// Create inserts a new voucher
func (r *VoucherRepository) Create(ctx context.Context, v *models.Voucher) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, v)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindByID finds a voucher by ID
func (r *VoucherRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Voucher, error) {
	var v models.Voucher
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FindByOwner lists a user's vouchers, newest first
func (r *VoucherRepository) FindByOwner(ctx context.Context, ownerEmail string) ([]*models.Voucher, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"ownerEmail": ownerEmail}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var vouchers []*models.Voucher
	if err = cursor.All(ctx, &vouchers); err != nil {
		return nil, err
	}
	if vouchers == nil {
		vouchers = []*models.Voucher{}
	}
	return vouchers, nil
}

// Update replaces a voucher
func (r *VoucherRepository) Update(ctx context.Context, v *models.Voucher) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": v.ID}, v)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Delete removes a voucher by ID
func (r *VoucherRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ExpireBefore flags every unused, unflagged voucher that expired before t
func (r *VoucherRepository) ExpireBefore(ctx context.Context, t time.Time) (int64, error) {
	filter := bson.M{
		"isUsed":    false,
		"expired":   false,
		"expiresAt": bson.M{"$lte": t},
	}
	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"expired": true}})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
