package util

import (
	"testing"
	"time"
)

func TestPreviousMonth(t *testing.T) {
	tests := []struct {
		year, month   int
		wantY, wantM int
	}{
		{2025, 1, 2024, 12},
		{2025, 6, 2025, 5},
	}
	for _, tt := range tests {
		y, m := PreviousMonth(tt.year, tt.month)
		if y != tt.wantY || m != tt.wantM {
			t.Errorf("PreviousMonth(%d,%d) = %d,%d want %d,%d", tt.year, tt.month, y, m, tt.wantY, tt.wantM)
		}
	}
}

func TestLocalNoon(t *testing.T) {
	got := LocalNoon(2024, time.January, 15)
	if got.Hour() != 12 || got.Day() != 15 {
		t.Errorf("LocalNoon = %v, want hour 12 day 15", got)
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 3 {
		t.Errorf("DaysBetween = %d, want 3", got)
	}
}
