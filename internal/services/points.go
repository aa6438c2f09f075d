package services

import (
	"fmt"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
)

// PointRates is the number of points earned per kilogram of actual weight
var PointRates = map[models.WasteType]int{
	models.WastePlastic: 2,
	models.WasteGlass:   1,
	models.WastePaper:   1,
	models.WasteMetal:   5,
}

// weightDeviationPercent is how far an actual weight may drift from the estimate before a warning
const weightDeviationPercent = 20

// ComputePoints returns floor(sum(actual grams / 1000 * rate)). Items without
// an actual weight contribute nothing.
func ComputePoints(items []models.WasteItem) int {
	milli := 0
	for _, item := range items {
		if item.ActualWeight == nil {
			continue
		}
		milli += *item.ActualWeight * PointRates[item.Type]
	}
	return milli / 1000
}

// ActualTotal sums the actual weights of the items
func ActualTotal(items []models.WasteItem) int {
	total := 0
	for _, item := range items {
		if item.ActualWeight != nil {
			total += *item.ActualWeight
		}
	}
	return total
}

// WeightWarnings lists items whose actual weight deviates from the estimate by more than 20%
func WeightWarnings(items []models.WasteItem) []string {
	var warnings []string
	for i, item := range items {
		if item.ActualWeight == nil || item.EstimatedWeight <= 0 {
			continue
		}
		diff := *item.ActualWeight - item.EstimatedWeight
		if diff < 0 {
			diff = -diff
		}
		if diff*100 > item.EstimatedWeight*weightDeviationPercent {
			warnings = append(warnings, fmt.Sprintf(
				"item %d (%s): actual weight %d g differs from estimate %d g by more than %d%%",
				i, item.Type, *item.ActualWeight, item.EstimatedWeight, weightDeviationPercent))
		}
	}
	return warnings
}
