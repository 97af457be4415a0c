package astradb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

type DistinctOptions struct {
	Timeout *TimeoutOptions
}

// Distinct returns the unique values found at a dotted key path across
// every matching document, in first-seen order. Arrays along the path are
// flattened one level, so distinct("tags") over tag arrays yields the
// individual tags.
func (c *Collection) Distinct(ctx context.Context, key string, filter Filter, opts *DistinctOptions) ([]interface{}, error) {
	if opts == nil {
		opts = &DistinctOptions{}
	}

	parts := strings.Split(key, ".")

	// Only the root field is needed; project everything else away.
	cursor := c.Find(filter, &FindOptions{
		Projection: Projection{parts[0]: 1},
		Timeout:    opts.Timeout,
	})

	seen := make(map[string]struct{})
	var values []interface{}

	err := cursor.ForEach(ctx, func(doc Document) (bool, error) {
		for _, v := range extractPathValues(doc, parts) {
			k := dedupKey(v)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			values = append(values, v)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

// extractPathValues resolves a dotted path against a document. Numeric path
// segments index into arrays; any other segment applied to an array maps
// across its elements. A terminal array is flattened one level.
func extractPathValues(v interface{}, parts []string) []interface{} {
	if len(parts) == 0 {
		if arr, ok := v.([]interface{}); ok {
			return arr
		}
		if v == nil {
			return nil
		}
		return []interface{}{v}
	}

	part := parts[0]
	switch tv := v.(type) {
	case map[string]interface{}:
		child, ok := tv[part]
		if !ok {
			return nil
		}
		return extractPathValues(child, parts[1:])
	case []interface{}:
		if idx, err := strconv.Atoi(part); err == nil {
			if idx < 0 || idx >= len(tv) {
				return nil
			}
			return extractPathValues(tv[idx], parts[1:])
		}

		var out []interface{}
		for _, el := range tv {
			out = append(out, extractPathValues(el, parts)...)
		}
		return out
	}

	return nil
}

// dedupKey builds a deep-stable serialization of a value so that
// structurally equal composites deduplicate while values of different
// types never collide.
func dedupKey(v interface{}) string {
	switch tv := v.(type) {
	case nil:
		return "null"
	case bool:
		return fmt.Sprintf("b:%t", tv)
	case string:
		return "s:" + tv
	case int64:
		return fmt.Sprintf("n:%d", tv)
	case float64:
		return fmt.Sprintf("n:%v", tv)
	case time.Time:
		return fmt.Sprintf("d:%d", tv.UnixMilli())
	case uuid.UUID:
		return "u:" + tv.String()
	case map[string]interface{}:
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		var sb strings.Builder
		sb.WriteString("o:{")
		for _, k := range keys {
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(":")
			sb.WriteString(dedupKey(tv[k]))
			sb.WriteString(",")
		}
		sb.WriteString("}")
		return sb.String()
	case []interface{}:
		var sb strings.Builder
		sb.WriteString("a:[")
		for _, el := range tv {
			sb.WriteString(dedupKey(el))
			sb.WriteString(",")
		}
		sb.WriteString("]")
		return sb.String()
	default:
		b, err := json.Marshal(tv)
		if err != nil {
			return fmt.Sprintf("x:%v", tv)
		}
		return "j:" + string(b)
	}
}
