package latch

import (
	"testing"
	"time"
)

func TestLatchSetAndCheckSameDay(t *testing.T) {
	store := Open(t.TempDir())
	l := store.Latch("morning-rollover-prompted")
	now := time.Date(2026, time.September, 1, 8, 30, 0, 0, time.UTC)

	if l.IsSetToday(now) {
		t.Fatal("fresh latch must not read as set")
	}
	l.SetToday(now)
	if !l.IsSetToday(now) {
		t.Fatal("latch must read as set on the same calendar day")
	}
}

func TestLatchResetsAtMidnight(t *testing.T) {
	store := Open(t.TempDir())
	l := store.Latch("evening-rollover-prompted")
	today := time.Date(2026, time.September, 1, 22, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	l.SetToday(today)
	if l.IsSetToday(tomorrow) {
		t.Fatal("yesterday's value must not count as set today")
	}
}

func TestLatchClear(t *testing.T) {
	store := Open(t.TempDir())
	l := store.Latch("morning-celebration-shown")
	now := time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)

	l.SetToday(now)
	l.Clear()
	if l.IsSetToday(now) {
		t.Fatal("cleared latch must not read as set")
	}
}

func TestLatchesAreIndependentPerKeyAndUser(t *testing.T) {
	store := Open(t.TempDir())
	now := time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)

	morning1, celebration1, evening1 := store.ForUser(1)
	morning2, _, _ := store.ForUser(2)

	morning1.SetToday(now)
	if celebration1.IsSetToday(now) || evening1.IsSetToday(now) {
		t.Fatal("setting one flag must not set the others")
	}
	if morning2.IsSetToday(now) {
		t.Fatal("flags must be scoped per user")
	}
}

func TestLatchSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)

	Open(dir).Latch("morning-rollover-prompted").SetToday(now)
	if !Open(dir).Latch("morning-rollover-prompted").IsSetToday(now) {
		t.Fatal("latch must persist across store reopens")
	}
}
