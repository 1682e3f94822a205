// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"testing"
	"time"
)

func TestNewFakeClock_ZeroUsesReference(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestFakeClock_AdvanceAndSet(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Errorf("after Advance Now() = %v", got)
	}

	c.Set(start)
	if got := c.Now(); !got.Equal(start) {
		t.Errorf("after Set Now() = %v", got)
	}
}

func TestFakeClock_Step(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	c.SetStep(2 * time.Second)
	first := c.Now()
	second := c.Now()
	if d := second.Sub(first); d != 2*time.Second {
		t.Errorf("step between readings = %v, want 2s", d)
	}
}
