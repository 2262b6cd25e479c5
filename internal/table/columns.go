package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseColumns parses a 1-based column list such as "3,4,10:5:100".
// Items are single numbers, inclusive ranges "a:b" or stepped ranges
// "a:step:b". The result is sorted and free of duplicates.
func ParseColumns(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty column list", ErrInvalidColumns)
	}

	seen := make(map[int]struct{})
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		parts := strings.Split(item, ":")
		nums := make([]int, len(parts))
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("%w: bad item %q", ErrInvalidColumns, item)
			}
			nums[i] = n
		}

		var start, step, end int
		switch len(nums) {
		case 1:
			start, step, end = nums[0], 1, nums[0]
		case 2:
			start, step, end = nums[0], 1, nums[1]
		case 3:
			start, step, end = nums[0], nums[1], nums[2]
		default:
			return nil, fmt.Errorf("%w: bad item %q", ErrInvalidColumns, item)
		}

		switch {
		case start < 1 || end < 1:
			return nil, fmt.Errorf("%w: columns start at 1, got %q", ErrInvalidColumns, item)
		case step < 1:
			return nil, fmt.Errorf("%w: step must be positive in %q", ErrInvalidColumns, item)
		case end < start:
			return nil, fmt.Errorf("%w: reversed range %q", ErrInvalidColumns, item)
		}
		for c := start; c <= end; c += step {
			seen[c] = struct{}{}
		}
	}

	cols := make([]int, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols, nil
}

// ParseDelimiter accepts exactly one ASCII character.
func ParseDelimiter(s string) (byte, error) {
	if len(s) != 1 || s[0] > 127 {
		return 0, fmt.Errorf("delimiter should be exactly one ASCII character, got %q", s)
	}
	return s[0], nil
}
