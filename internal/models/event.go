package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CollectionEvent records one status change of a collection
type CollectionEvent struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CollectionID primitive.ObjectID `bson:"collectionId" json:"collectionId"`
	From         CollectionStatus   `bson:"from,omitempty" json:"from,omitempty"` // empty for the creation event
	To           CollectionStatus   `bson:"to" json:"to"`
	ActorEmail   string             `bson:"actorEmail" json:"actorEmail"`
	Note         string             `bson:"note,omitempty" json:"note,omitempty"`
	At           time.Time          `bson:"at" json:"at"`
}

// NewCollectionEvent creates an event for a transition performed by actor
func NewCollectionEvent(c *Collection, from CollectionStatus, actorEmail, note string, at time.Time) *CollectionEvent {
	return &CollectionEvent{
		CollectionID: c.ID,
		From:         from,
		To:           c.Status,
		ActorEmail:   actorEmail,
		Note:         note,
		At:           at,
	}
}
