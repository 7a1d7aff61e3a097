package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/atharva-patade/Ireland-Property-Price-Register-Analysis/internal/state"
)

func TestMonthsToUpdate_NilState(t *testing.T) {
	assert.Nil(t, MonthsToUpdate(nil, time.Now()))
}

func TestMonthsToUpdate_GapSinceLastCoverage(t *testing.T) {
	st := &state.State{
		MaxSaleDateCovered: time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
	}
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	months := MonthsToUpdate(st, now)

	assert.Equal(t, []Month{
		{Year: 2024, Month: time.April},
		{Year: 2024, Month: time.May},
		{Year: 2024, Month: time.June},
	}, months)
}

func TestMonthsToUpdate_AlreadyCurrent(t *testing.T) {
	st := &state.State{
		MaxSaleDateCovered: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, MonthsToUpdate(st, now))
}

func TestMonthsToUpdate_YearBoundary(t *testing.T) {
	st := &state.State{
		MaxSaleDateCovered: time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC),
	}
	now := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	months := MonthsToUpdate(st, now)

	assert.Equal(t, []Month{
		{Year: 2023, Month: time.December},
		{Year: 2024, Month: time.January},
	}, months)
}

func TestMonthsToUpdate_ZeroCoverageFallsBackTwoMonths(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	months := MonthsToUpdate(&state.State{}, now)

	assert.Equal(t, []Month{
		{Year: 2024, Month: time.May},
		{Year: 2024, Month: time.June},
	}, months)
}

func TestMonthString(t *testing.T) {
	assert.Equal(t, "2024-03", Month{Year: 2024, Month: time.March}.String())
}
