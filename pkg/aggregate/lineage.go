package aggregate

import (
	"fmt"
	"strings"

	"github.com/neosense/neosense/pkg/report"
)

// ParsePattern splits a lineage string of the form
// (:SourceLabel)-[:RELATIONSHIP_TYPE]->(:TargetLabel) into its parts.
// Strings missing either delimiter are malformed and reported as such.
func ParsePattern(pattern string) (source, relType, target string, ok bool) {
	head, rest, found := strings.Cut(pattern, "-[")
	if !found {
		return "", "", "", false
	}

	rel, tail, found := strings.Cut(rest, "]->(")
	if !found {
		return "", "", "", false
	}

	source = strings.TrimPrefix(strings.Trim(head, "()"), ":")
	relType = strings.TrimPrefix(rel, ":")
	target = strings.TrimPrefix(strings.TrimSuffix(tail, ")"), ":")

	return source, relType, target, true
}

// GroupPatterns groups well-formed lineage patterns by relationship type.
// Malformed patterns are skipped, not counted and not errored.
func GroupPatterns(patterns []string) report.RelationshipPatterns {
	grouped := report.RelationshipPatterns{
		Patterns:                   []string{},
		PatternsByRelationshipType: map[string][]string{},
	}

	for _, pattern := range patterns {
		_, relType, _, ok := ParsePattern(pattern)
		if !ok {
			continue
		}

		grouped.Patterns = append(grouped.Patterns, pattern)
		grouped.PatternsByRelationshipType[relType] = append(
			grouped.PatternsByRelationshipType[relType], pattern)
	}

	grouped.TotalPatterns = len(grouped.Patterns)
	grouped.UniqueRelationshipTypes = len(grouped.PatternsByRelationshipType)

	return grouped
}

// PotentialFlows enumerates "L1 -> R -> L2" for every ordered pair of
// distinct labels and every relationship type, in nested-loop order (outer
// over L1, middle over L2, inner over R), truncated to limit entries. This is
// a structural upper bound, not a verified traversal.
func PotentialFlows(labels, relTypes []string, limit int) []string {
	flows := make([]string, 0, limit)

	for _, source := range labels {
		for _, target := range labels {
			if source == target {
				continue
			}

			for _, relType := range relTypes {
				flows = append(flows, fmt.Sprintf("%s -> %s -> %s", source, relType, target))
				if len(flows) == limit {
					return flows
				}
			}
		}
	}

	return flows
}
