// Package selection applies the tiered acceptance policy to scored news.
package selection

import "github.com/kodjooo/content-from-rss/internal/models"

const (
	// MinResult is the target size: band descent stops once reached.
	MinResult = 3
	// MaxResult caps the publish set.
	MaxResult = 5
)

// tiers are consumed highest first; anything below the last band is
// never selected.
var tiers = []int{10, 9, 8}

// Select picks the publish set. Bands fill from the highest score down,
// keeping each band's original relative order. Descent stops as soon as
// MinResult items are collected, so a full top band suppresses lower ones.
func Select(ranked []models.RankedNews) []models.RankedNews {
	var result []models.RankedNews

	for _, tier := range tiers {
		if len(result) >= MinResult {
			break
		}
		for _, item := range ranked {
			if item.Score != tier {
				continue
			}
			result = append(result, item)
			if len(result) >= MaxResult {
				return result
			}
		}
	}

	return result
}
