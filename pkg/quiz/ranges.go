package quiz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRange is wrapped by every id-range parsing error.
var ErrInvalidRange = errors.New("invalid id range")

// RangeError reports the token that made an id-range string invalid.
type RangeError struct {
	Token  string
	Reason string
}

func (e *RangeError) Error() string {
	return e.Reason
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// IDRange is an inclusive interval of link ids, 1 <= Start <= End.
type IDRange struct {
	Start int64
	End   int64
}

// Contains reports whether id lies within the range.
func (r IDRange) Contains(id int64) bool {
	return id >= r.Start && id <= r.End
}

func (r IDRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParseIDRanges parses comma separated "start-end" tokens such as
// "1-10,240-300". Blank input means no restriction and yields nil. Any
// invalid token rejects the whole string.
func ParseIDRanges(s string) ([]IDRange, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var ranges []IDRange
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		r, err := parseIDRange(token)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func parseIDRange(token string) (IDRange, error) {
	startStr, endStr, ok := strings.Cut(token, "-")
	if !ok {
		return IDRange{}, &RangeError{
			Token:  token,
			Reason: fmt.Sprintf("invalid range format: %s. Expected format: start-end", token),
		}
	}

	start, errStart := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	end, errEnd := strconv.ParseInt(strings.TrimSpace(endStr), 10, 64)
	if errStart != nil || errEnd != nil {
		return IDRange{}, &RangeError{
			Token:  token,
			Reason: fmt.Sprintf("invalid range format: %s. Expected format: start-end with integer values", token),
		}
	}

	if start > end {
		return IDRange{}, &RangeError{
			Token:  token,
			Reason: fmt.Sprintf("invalid range: %d-%d. Start must be less than or equal to end", start, end),
		}
	}
	if start <= 0 || end <= 0 {
		return IDRange{}, &RangeError{
			Token:  token,
			Reason: fmt.Sprintf("invalid range: %d-%d. IDs must be positive", start, end),
		}
	}
	return IDRange{Start: start, End: end}, nil
}

// FormatIDRanges renders ranges the way they are shown back to the user,
// e.g. "1-10, 240-300".
func FormatIDRanges(ranges []IDRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
