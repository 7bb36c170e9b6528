package aggregate

import (
	"math"

	"github.com/neosense/neosense/pkg/report"
)

// Completeness derives per-field and overall completeness from the metric
// records. Fields missing total or null counts are skipped. The overall
// figure is records-weighted: computed over the summed counts, not an average
// of the per-field percentages.
func Completeness(fields map[string]report.FieldMetrics) report.CompletenessSummary {
	summary := report.CompletenessSummary{
		FieldLevelCompleteness: map[string]report.FieldCompleteness{},
	}

	var totalRecords, totalNulls int64

	for field, metrics := range fields {
		if metrics.TotalRecords == nil || metrics.NullCount == nil {
			continue
		}

		total := *metrics.TotalRecords
		nulls := *metrics.NullCount

		summary.FieldLevelCompleteness[field] = report.FieldCompleteness{
			TotalCount:             total,
			NullCount:              nulls,
			CompletenessPercentage: ratioPercent(total-nulls, total),
		}

		totalRecords += total
		totalNulls += nulls
	}

	summary.OverallCompletenessPercentage = ratioPercent(totalRecords-totalNulls, totalRecords)
	summary.TotalFieldsAnalyzed = len(summary.FieldLevelCompleteness)

	return summary
}

// Uniqueness derives per-field uniqueness and duplicate counts. Fields
// missing total or unique counts are skipped.
func Uniqueness(fields map[string]report.FieldMetrics) map[string]report.FieldUniqueness {
	summary := make(map[string]report.FieldUniqueness)

	for field, metrics := range fields {
		if metrics.TotalRecords == nil || metrics.UniqueValues == nil {
			continue
		}

		total := *metrics.TotalRecords
		unique := *metrics.UniqueValues

		summary[field] = report.FieldUniqueness{
			TotalRecords:         total,
			UniqueValues:         unique,
			UniquenessPercentage: ratioPercent(unique, total),
			DuplicateRecords:     total - unique,
		}
	}

	return summary
}

// ratioPercent is part/whole as a percentage rounded to two decimals, 0 when
// the whole is zero.
func ratioPercent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}

	return math.Round(float64(part)/float64(whole)*10000) / 100
}
