package query

import "strconv"

// ClampPage normalizes a page number into [1, MaxPage].
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

// ParsePage reads a page parameter. Anything non-numeric becomes page 1.
func ParsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return ClampPage(n)
}

// ParseLimit reads a limit parameter, falling back to def when the
// value is missing, malformed or non-positive.
func ParseLimit(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// ParseFilters collects the indexed filter triples
// filter_field_N / filter_operator_N / filter_value_N starting at N=0.
// Collection stops at the first N where either the field or the
// operator is absent, so a gap hides everything after it. Order is
// preserved.
func ParseFilters(get func(string) string) []Filter {
	var filters []Filter
	for i := 0; ; i++ {
		n := strconv.Itoa(i)
		field := get("filter_field_" + n)
		op := get("filter_operator_" + n)
		if field == "" || op == "" {
			break
		}
		filters = append(filters, Filter{
			Field:    field,
			Operator: op,
			Value:    get("filter_value_" + n),
		})
	}
	return filters
}
