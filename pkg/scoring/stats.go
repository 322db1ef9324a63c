// Package scoring reduces collections of prompt scores into reporting statistics.
package scoring

import (
	"fmt"
	"sort"

	"github.com/noah-isme/promptvault-api/pkg/ai"
)

// TopTagLimit bounds the number of tags reported in ScoringStats.TopTags.
const TopTagLimit = 20

// Averages holds the arithmetic mean of each score dimension.
type Averages struct {
	Clarity    float64 `json:"clarity"`
	Structure  float64 `json:"structure"`
	Usefulness float64 `json:"usefulness"`
	Overall    float64 `json:"overall"`
}

// Distributions holds one width-2 histogram per score dimension, keyed by
// bucket label such as "1-2" or "9-10".
type Distributions struct {
	Clarity    map[string]int `json:"clarity"`
	Structure  map[string]int `json:"structure"`
	Usefulness map[string]int `json:"usefulness"`
	Overall    map[string]int `json:"overall"`
}

// TagCount is a tag and the number of times it was suggested.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ScoringStats is a read-only aggregate over a collection of scores.
type ScoringStats struct {
	TotalEvaluated       int            `json:"total_evaluated"`
	Averages             Averages       `json:"averages"`
	Distributions        Distributions  `json:"distributions"`
	TopTags              []TagCount     `json:"top_tags"`
	CategoryDistribution map[string]int `json:"category_distribution"`
}

// BucketLabel returns the histogram bucket for a score value.
func BucketLabel(value int) string {
	k := floorDiv(value-1, 2)
	return fmt.Sprintf("%d-%d", 2*k+1, 2*k+2)
}

// CalculateScoringStats aggregates scores. Input is trusted to be validated;
// an empty collection yields zero averages and empty collections.
func CalculateScoringStats(scores []ai.PromptScore) ScoringStats {
	stats := ScoringStats{
		TotalEvaluated: len(scores),
		Distributions: Distributions{
			Clarity:    map[string]int{},
			Structure:  map[string]int{},
			Usefulness: map[string]int{},
			Overall:    map[string]int{},
		},
		TopTags:              []TagCount{},
		CategoryDistribution: map[string]int{},
	}
	if len(scores) == 0 {
		return stats
	}

	var sum struct{ clarity, structure, usefulness, overall int }
	tagCounts := map[string]int{}
	tagOrder := []string{}

	for _, score := range scores {
		sum.clarity += score.Clarity
		sum.structure += score.Structure
		sum.usefulness += score.Usefulness
		sum.overall += score.Overall

		stats.Distributions.Clarity[BucketLabel(score.Clarity)]++
		stats.Distributions.Structure[BucketLabel(score.Structure)]++
		stats.Distributions.Usefulness[BucketLabel(score.Usefulness)]++
		stats.Distributions.Overall[BucketLabel(score.Overall)]++

		for _, tag := range score.SuggestedTags {
			if _, seen := tagCounts[tag]; !seen {
				tagOrder = append(tagOrder, tag)
			}
			tagCounts[tag]++
		}

		stats.CategoryDistribution[string(score.Category)]++
	}

	count := float64(len(scores))
	stats.Averages = Averages{
		Clarity:    float64(sum.clarity) / count,
		Structure:  float64(sum.structure) / count,
		Usefulness: float64(sum.usefulness) / count,
		Overall:    float64(sum.overall) / count,
	}

	ranked := make([]TagCount, 0, len(tagOrder))
	for _, tag := range tagOrder {
		ranked = append(ranked, TagCount{Tag: tag, Count: tagCounts[tag]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > TopTagLimit {
		ranked = ranked[:TopTagLimit]
	}
	stats.TopTags = ranked

	return stats
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
