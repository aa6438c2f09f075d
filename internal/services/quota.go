package services

import (
	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// MaxCollectionWeight caps one collection and the sum of a customer's pending ones, in grams
	MaxCollectionWeight = 10000
	// MaxPendingCollections caps how many pending collections a customer may hold
	MaxPendingCollections = 3
	// MaxItemActualWeight bounds a single weighed item at pickup, in grams
	MaxItemActualWeight = 10 * MaxCollectionWeight
)

// checkWeights validates the items of a single collection and returns their estimated total
func checkWeights(items []models.WasteItem) (int, error) {
	if len(items) == 0 {
		return 0, newError(KindValidation, "a collection needs at least one waste item")
	}
	total := 0
	for i, item := range items {
		if !item.Type.Valid() {
			return 0, newError(KindValidation, "item %d: unknown waste type %q", i, item.Type)
		}
		if item.EstimatedWeight <= 0 {
			return 0, newError(KindValidation, "item %d: estimated weight must be positive", i)
		}
		// each term is at most MaxCollectionWeight so the running sum cannot wrap
		if item.EstimatedWeight > MaxCollectionWeight || total+item.EstimatedWeight > MaxCollectionWeight {
			return 0, newError(KindWeightExceeded, "collection weighs more than the maximum of %d g", MaxCollectionWeight)
		}
		total += item.EstimatedWeight
	}
	return total, nil
}

// checkPendingQuota is the single quota rule for create and edit. pending is
// the customer's PENDING collections, exclude the one being edited (zero for
// create) and addWeight the estimated total about to be held.
func checkPendingQuota(pending []*models.Collection, exclude primitive.ObjectID, addWeight int) error {
	count, existing := 0, 0
	for _, c := range pending {
		if c.Status != models.CollectionStatusPending || (!exclude.IsZero() && c.ID == exclude) {
			continue
		}
		count++
		existing += c.TotalEstimatedWeight
	}
	if count >= MaxPendingCollections {
		return newError(KindQuotaExceeded, "you already have %d pending collections, the maximum is %d", count, MaxPendingCollections)
	}
	if existing+addWeight > MaxCollectionWeight {
		return newError(KindWeightExceeded,
			"pending collections already total %d g, adding %d g would exceed %d g",
			existing, addWeight, MaxCollectionWeight)
	}
	return nil
}
