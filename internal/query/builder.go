package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// OrderClause represents a single column ordering directive.
type OrderClause struct {
	Column    string // Validated column name.
	Direction string // "ASC" or "DESC".
}

// String returns the SQL fragment for this order clause, e.g. "created_at DESC".
func (o OrderClause) String() string {
	return o.Column + " " + o.Direction
}

// ParseOrder parses an order string like "price_per_night desc, room_number"
// and keeps only columns present in allowed. The map translates the public
// sort key to the SQL column. An empty or unusable input yields def.
func ParseOrder(order string, allowed map[string]string, def string) (string, error) {
	order = strings.TrimSpace(order)
	if order == "" {
		return def, nil
	}

	var clauses []OrderClause
	for _, part := range strings.Split(order, ",") {
		tokens := strings.Fields(part)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) > 2 {
			return "", fmt.Errorf("invalid order clause %q: expected 'column [asc|desc]'", part)
		}
		if err := ValidateIdentifier(tokens[0]); err != nil {
			return "", fmt.Errorf("invalid order column: %w", err)
		}
		col, ok := allowed[strings.ToLower(tokens[0])]
		if !ok {
			return "", fmt.Errorf("cannot sort by %q", tokens[0])
		}

		dir := "ASC"
		if len(tokens) == 2 {
			switch d := strings.ToUpper(tokens[1]); d {
			case "ASC", "DESC":
				dir = d
			default:
				return "", fmt.Errorf("invalid order direction %q: must be asc or desc", tokens[1])
			}
		}
		clauses = append(clauses, OrderClause{Column: col, Direction: dir})
	}

	if len(clauses) == 0 {
		return def, nil
	}
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", "), nil
}

// Page is a validated limit/offset pair.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset from URL query values, clamping limit to
// [1, MaxLimit] and offset to >= 0.
func ParsePage(values url.Values) Page {
	p := Page{Limit: DefaultLimit}
	if n, err := strconv.Atoi(values.Get("limit")); err == nil {
		p.Limit = clampInt(n, 1, MaxLimit)
	}
	if n, err := strconv.Atoi(values.Get("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// SQL returns the LIMIT/OFFSET suffix. Both values are integers so they are
// inlined rather than bound.
func (p Page) SQL() string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
