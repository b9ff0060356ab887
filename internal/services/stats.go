package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// LabelCount is the number of nodes with one label combination, or of
// relationships with one type.
type LabelCount struct {
	Name  string
	Count int64
}

// GraphStats holds the counts reported by the stats command.
type GraphStats struct {
	Nodes         []LabelCount
	Relationships []LabelCount
}

// TotalNodes sums the node counts.
func (s *GraphStats) TotalNodes() int64 { return sum(s.Nodes) }

// TotalRelationships sums the relationship counts.
func (s *GraphStats) TotalRelationships() int64 { return sum(s.Relationships) }

func sum(counts []LabelCount) int64 {
	var n int64
	for _, c := range counts {
		n += c.Count
	}
	return n
}

// CollectStats counts nodes per label and relationships per type. Both
// lists are sorted by descending count, then name.
func CollectStats(ctx context.Context, client graphload.GraphClient) (*GraphStats, error) {
	nodes, err := countRows(ctx, client, queryNodeCounts)
	if err != nil {
		return nil, fmt.Errorf("failed to count nodes: %w", err)
	}
	rels, err := countRows(ctx, client, queryRelationshipCounts)
	if err != nil {
		return nil, fmt.Errorf("failed to count relationships: %w", err)
	}
	return &GraphStats{Nodes: nodes, Relationships: rels}, nil
}

func countRows(ctx context.Context, client graphload.GraphClient, query string) ([]LabelCount, error) {
	res, err := client.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]int64)
	for _, row := range res.Rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("unexpected result row %v", row)
		}
		n, err := toCount(row[1])
		if err != nil {
			return nil, err
		}
		merged[labelName(row[0])] += n
	}

	out := make([]LabelCount, 0, len(merged))
	for name, n := range merged {
		out = append(out, LabelCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// labelName renders a label list or type. FalkorDB returns native values;
// AGE returns agtype text such as ["Person"] or "KNOWS".
func labelName(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = labelName(p)
		}
		return strings.Join(parts, ":")
	case []byte:
		return labelName(string(x))
	case string:
		s := strings.TrimSpace(x)
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			inner := strings.TrimSpace(s[1 : len(s)-1])
			if inner == "" {
				return ""
			}
			parts := strings.Split(inner, ",")
			for i := range parts {
				parts[i] = labelName(parts[i])
			}
			return strings.Join(parts, ":")
		}
		if unq, err := strconv.Unquote(s); err == nil {
			return unq
		}
		return s
	default:
		return fmt.Sprint(x)
	}
}

func toCount(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case []byte:
		return toCount(string(x))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("count %q is not an integer", x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("count has unexpected type %T", v)
	}
}
