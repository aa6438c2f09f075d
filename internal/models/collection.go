package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WasteType is the kind of recyclable material in a waste item
type WasteType string

const (
	WastePlastic WasteType = "PLASTIC"
	WasteGlass   WasteType = "GLASS"
	WastePaper   WasteType = "PAPER"
	WasteMetal   WasteType = "METAL"
)

// Valid reports whether t is one of the known waste types
func (t WasteType) Valid() bool {
	switch t {
	case WastePlastic, WasteGlass, WastePaper, WasteMetal:
		return true
	}
	return false
}

// CollectionStatus is the lifecycle state of a collection request
type CollectionStatus string

const (
	CollectionStatusPending    CollectionStatus = "PENDING"
	CollectionStatusOccupied   CollectionStatus = "OCCUPIED"
	CollectionStatusInProgress CollectionStatus = "IN_PROGRESS"
	CollectionStatusCompleted  CollectionStatus = "COMPLETED"
	CollectionStatusRejected   CollectionStatus = "REJECTED"
)

// Terminal reports whether no transition may leave this status
func (s CollectionStatus) Terminal() bool {
	return s == CollectionStatusCompleted || s == CollectionStatusRejected
}

// Valid reports whether s is a known status
func (s CollectionStatus) Valid() bool {
	switch s {
	case CollectionStatusPending, CollectionStatusOccupied, CollectionStatusInProgress,
		CollectionStatusCompleted, CollectionStatusRejected:
		return true
	}
	return false
}

// WasteItem is one typed, weighed portion of a collection. Weights are grams.
type WasteItem struct {
	Type            WasteType `bson:"type" json:"type"`
	EstimatedWeight int       `bson:"estimatedWeight" json:"estimatedWeight"`
	ActualWeight    *int      `bson:"actualWeight,omitempty" json:"actualWeight,omitempty"`
	Photos          []string  `bson:"photos,omitempty" json:"photos,omitempty"`
}

// Collection is a customer's pickup request and its lifecycle record
type Collection struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CustomerEmail        string             `bson:"customerEmail" json:"customerEmail"`
	CollectorEmail       string             `bson:"collectorEmail,omitempty" json:"collectorEmail,omitempty"`
	WasteItems           []WasteItem        `bson:"wasteItems" json:"wasteItems"`
	TotalEstimatedWeight int                `bson:"totalEstimatedWeight" json:"totalEstimatedWeight"`
	TotalActualWeight    *int               `bson:"totalActualWeight,omitempty" json:"totalActualWeight,omitempty"`
	Status               CollectionStatus   `bson:"status" json:"status"`
	Address              Address            `bson:"address" json:"address"`
	ScheduledDate        time.Time          `bson:"scheduledDate" json:"scheduledDate"`
	ScheduledTime        string             `bson:"scheduledTime" json:"scheduledTime"`
	Photos               []string           `bson:"photos,omitempty" json:"photos,omitempty"`
	Notes                string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
	CompletedAt          *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	RejectionReason      string             `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	Version              int                `bson:"version" json:"version"`
}

// Clone returns a deep copy so callers can mutate it without touching stored state
func (c *Collection) Clone() *Collection {
	if c == nil {
		return nil
	}
	out := *c
	out.WasteItems = make([]WasteItem, len(c.WasteItems))
	for i, item := range c.WasteItems {
		out.WasteItems[i] = item
		if item.ActualWeight != nil {
			w := *item.ActualWeight
			out.WasteItems[i].ActualWeight = &w
		}
		if item.Photos != nil {
			out.WasteItems[i].Photos = append([]string(nil), item.Photos...)
		}
	}
	if c.Photos != nil {
		out.Photos = append([]string(nil), c.Photos...)
	}
	if c.TotalActualWeight != nil {
		w := *c.TotalActualWeight
		out.TotalActualWeight = &w
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// EstimatedTotal sums the estimated weights of the given items
func EstimatedTotal(items []WasteItem) int {
	total := 0
	for _, item := range items {
		total += item.EstimatedWeight
	}
	return total
}

// CollectionPatch lists the fields the owning customer may edit while the
// collection is pending. Nil fields are left untouched.
type CollectionPatch struct {
	WasteItems    []WasteItem `json:"wasteItems,omitempty"`
	Address       *Address    `json:"address,omitempty"`
	ScheduledDate *time.Time  `json:"scheduledDate,omitempty"`
	ScheduledTime *string     `json:"scheduledTime,omitempty"`
	Notes         *string     `json:"notes,omitempty"`
	Photos        []string    `json:"photos,omitempty"`
}

// CollectionFilter narrows a collection listing. Empty fields match everything.
type CollectionFilter struct {
	Statuses       []CollectionStatus
	CustomerEmail  string
	CollectorEmail string
}

// Matches reports whether c satisfies the filter
func (f CollectionFilter) Matches(c *Collection) bool {
	if f.CustomerEmail != "" && c.CustomerEmail != f.CustomerEmail {
		return false
	}
	if f.CollectorEmail != "" && c.CollectorEmail != f.CollectorEmail {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if c.Status == s {
			return true
		}
	}
	return false
}
