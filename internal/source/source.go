package source

import (
	"fmt"
	"time"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/state"
)

// Batch is an ordered set of raw rows from one fetched file. Rows are flat
// field-value mappings keyed by the register's column names.
type Batch struct {
	SourceFile string
	Rows       []map[string]string
}

// Month identifies one monthly register file.
type Month struct {
	Year  int
	Month time.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%d-%02d", m.Year, int(m.Month))
}

// MonthsToUpdate lists the monthly files an incremental run should fetch:
// every month after the last covered sale date, up to and including the
// current month. With no usable coverage date it reaches back two months,
// which the bulk archive always overlaps.
func MonthsToUpdate(st *state.State, now time.Time) []Month {
	if st == nil {
		return nil
	}

	last := st.MaxSaleDateCovered
	if last.IsZero() {
		last = now.AddDate(0, -2, 0)
	}

	cur := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var months []Month
	for !cur.After(end) {
		months = append(months, Month{Year: cur.Year(), Month: cur.Month()})
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}
