package stay

import "fmt"

// Range is the half-open interval of nights [From, To). A guest arriving on From and
// leaving on To occupies every date d with From <= d < To.
type Range struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// ParseRange parses both ends. It does not check ordering; see Validate.
func ParseRange(from, to string) (Range, error) {
	f, err := ParseDate(from)
	if err != nil {
		return Range{}, fmt.Errorf("from: %w", err)
	}
	t, err := ParseDate(to)
	if err != nil {
		return Range{}, fmt.Errorf("to: %w", err)
	}
	return Range{From: f, To: t}, nil
}

// Nights is the number of dates covered; 0 for empty or inverted ranges.
func (r Range) Nights() int {
	n := r.From.DaysUntil(r.To)
	if n < 0 {
		return 0
	}
	return n
}

func (r Range) Empty() bool { return !r.From.Before(r.To) }

func (r Range) Inverted() bool { return r.To.Before(r.From) }

func (r Range) Contains(d Date) bool {
	return !d.Before(r.From) && d.Before(r.To)
}

func (r Range) Overlaps(o Range) bool {
	return r.From.Before(o.To) && o.From.Before(r.To)
}

// Dates lists every covered date in order.
func (r Range) Dates() []Date {
	n := r.Nights()
	out := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.From.AddDays(i))
	}
	return out
}

func (r Range) String() string {
	return r.From.String() + ".." + r.To.String()
}
