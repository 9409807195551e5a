package grid

// SeatType describes one grade of seating: a human-readable label and a
// price.  Prices are stored in cents to avoid floating point arithmetic,
// matching how the booking service stores them.
type SeatType struct {
	Label      string `json:"label"`
	PriceCents uint32 `json:"price_cents"`
}

// GradeRange assigns a grade key to an inclusive range of zero-based rows.
// Ranges are evaluated in order and the first match wins, so a layout may
// carve exceptions out of a broad range by listing the exception first.
type GradeRange struct {
	Grade   string `json:"grade"`
	FromRow int    `json:"from_row"`
	ToRow   int    `json:"to_row"`
}

// Layout is the immutable description of a hall's seat map for one
// schedule.  It is fetched once when the seat-selection view mounts and
// never changes for the lifetime of a Grid built from it.
type Layout struct {
	Rows      int                 `json:"rows"`
	Cols      int                 `json:"cols"`
	SeatTypes map[string]SeatType `json:"seat_types"`
	Grades    []GradeRange        `json:"grades"`
	Disabled  []WireSeat          `json:"disabled"`
}

// Contains reports whether the seat lies inside the layout's bounds.
func (l *Layout) Contains(s Seat) bool {
	return s.Row >= 0 && s.Row < l.Rows && s.Col >= 0 && s.Col < l.Cols
}

// GradeOf resolves the grade key for a seat from the ordered grade ranges.
// The second return value is false for seats outside the layout or rows not
// covered by any range.
func (l *Layout) GradeOf(s Seat) (string, bool) {
	if !l.Contains(s) {
		return "", false
	}
	for _, g := range l.Grades {
		if s.Row >= g.FromRow && s.Row <= g.ToRow {
			return g.Grade, true
		}
	}
	return "", false
}

// PriceOf returns the price in cents for a seat, derived from its grade.
func (l *Layout) PriceOf(s Seat) (uint32, bool) {
	grade, ok := l.GradeOf(s)
	if !ok {
		return 0, false
	}
	st, ok := l.SeatTypes[grade]
	if !ok {
		return 0, false
	}
	return st.PriceCents, true
}
