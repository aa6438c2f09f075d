package mongodb

import (
	"context"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure PointTransactionRepository implements the interface
var _ repositories.PointTransactionRepository = (*PointTransactionRepository)(nil)

// PointTransactionRepository handles MongoDB operations for PointTransaction
type PointTransactionRepository struct {
	collection *mongo.Collection
}

// NewPointTransactionRepository creates a new PointTransactionRepository
func NewPointTransactionRepository(db *mongo.Database) *PointTransactionRepository {
	return &PointTransactionRepository{
		collection: db.Collection("point_transactions"),
	}
}

// EnsureIndexes makes credits unique per collection so a completion is never paid twice
func (r *PointTransactionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			Keys: bson.D{{Key: "collectionId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"collectionId": bson.M{"$exists": true}}),
		},
	})
	return err
}

// Create inserts a new point transaction record
func (r *PointTransactionRepository) Create(ctx context.Context, transaction *models.PointTransaction) error {
	transaction.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, transaction)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindByUserEmail finds all point transactions for a user, newest first
func (r *PointTransactionRepository) FindByUserEmail(ctx context.Context, email string) ([]*models.PointTransaction, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userEmail": email}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var transactions []*models.PointTransaction
	if err = cursor.All(ctx, &transactions); err != nil {
		return nil, err
	}

	// Return empty slice instead of nil if no documents found
	if transactions == nil {
		transactions = []*models.PointTransaction{}
	}
	return transactions, nil
}

// ExistsForCollection reports whether a credit was already recorded for the collection
func (r *PointTransactionRepository) ExistsForCollection(ctx context.Context, collectionID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"collectionId": collectionID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
