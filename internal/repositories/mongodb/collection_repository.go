package mongodb

import (
	"context"
	"errors"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure CollectionRepository implements the interface
var _ repositories.CollectionRepository = (*CollectionRepository)(nil)

// CollectionRepository handles MongoDB operations for Collection
type CollectionRepository struct {
	collection *mongo.Collection
}

// NewCollectionRepository creates a new CollectionRepository
func NewCollectionRepository(db *mongo.Database) *CollectionRepository {
	return &CollectionRepository{
		collection: db.Collection("collections"),
	}
}

// EnsureIndexes creates the indexes used by the listing filters
func (r *CollectionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customerEmail", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "collectorEmail", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

// Create inserts a new collection at version 1
func (r *CollectionRepository) Create(ctx context.Context, c *models.Collection) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.Version = 1
	_, err := r.collection.InsertOne(ctx, c)
	return err
}

// FindByID finds a collection by ID
func (r *CollectionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Collection, error) {
	var c models.Collection
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update replaces the stored document when its version still matches
func (r *CollectionRepository) Update(ctx context.Context, c *models.Collection) error {
	expected := c.Version
	next := *c
	next.Version = expected + 1

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": c.ID, "version": expected}, &next)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": c.ID})
		if err != nil {
			return err
		}
		if count == 0 {
			return repositories.ErrNotFound
		}
		return repositories.ErrVersionConflict
	}
	c.Version = next.Version
	return nil
}

// Delete removes a collection by ID
func (r *CollectionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Find lists collections matching the filter, newest first
func (r *CollectionRepository) Find(ctx context.Context, f models.CollectionFilter) ([]*models.Collection, error) {
	filter := bson.M{}
	if f.CustomerEmail != "" {
		filter["customerEmail"] = f.CustomerEmail
	}
	if f.CollectorEmail != "" {
		filter["collectorEmail"] = f.CollectorEmail
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var collections []*models.Collection
	if err = cursor.All(ctx, &collections); err != nil {
		return nil, err
	}
	if collections == nil {
		collections = []*models.Collection{}
	}
	return collections, nil
}
