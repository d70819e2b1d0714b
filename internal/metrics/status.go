package metrics

import "sort"

// StatusRow is one aggregated status-code count prepared for display.
type StatusRow struct {
	Code  int
	Count int64
}

// FlattenStatusCodes converts a status-code map into rows sorted by
// descending count, then by code for stability.
func FlattenStatusCodes(codes map[int]int64) []StatusRow {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusRow, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusRow{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// ErrorRow is one aggregated error-kind count prepared for display.
type ErrorRow struct {
	Kind  ErrorKind
	Count int
}

// FlattenErrorKinds converts the error histogram into rows sorted by
// descending count, then by kind.
func FlattenErrorKinds(errs map[ErrorKind]int) []ErrorRow {
	if len(errs) == 0 {
		return nil
	}
	rows := make([]ErrorRow, 0, len(errs))
	for kind, count := range errs {
		rows = append(rows, ErrorRow{Kind: kind, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
