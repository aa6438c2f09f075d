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

var _ repositories.CollectionEventRepository = (*EventRepository)(nil)

// EventRepository stores collection status history in the "collection_events" collection
type EventRepository struct {
	collection *mongo.Collection
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{
		collection: db.Collection("collection_events"),
	}
}

// EnsureIndexes creates the lookup index used by FindByCollection
func (r *EventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "collectionId", Value: 1}, {Key: "at", Value: 1}},
	})
	return err
}

// Append inserts an event
func (r *EventRepository) Append(ctx context.Context, event *models.CollectionEvent) error {
	event.ID = primitive.NewObjectID()
	_, err := r.collection.InsertOne(ctx, event)
	return err
}

// FindByCollection returns a collection's events, oldest first
func (r *EventRepository) FindByCollection(ctx context.Context, collectionID primitive.ObjectID) ([]*models.CollectionEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"collectionId": collectionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*models.CollectionEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.CollectionEvent{}
	}
	return events, nil
}
