package opentime

import "testing"

func TestRescaleExactness(t *testing.T) {
	t24 := FromFrames(24, NewRational(24, 1))

	at48, exact := t24.Rescale(NewRational(48, 1))
	if !exact || at48.Value != 48 {
		t.Fatalf("24@24 should be 48@48 exactly, got %v exact=%v", at48, exact)
	}

	at25, exact := FromFrames(1, NewRational(24, 1)).Rescale(NewRational(25, 1))
	if exact {
		t.Fatalf("1@24 has no exact 25fps frame, got %v", at25)
	}
}

func TestSecondsRational(t *testing.T) {
	half := FromFrames(12, NewRational(24, 1))
	if !half.SecondsRational().Equal(NewRational(1, 2)) {
		t.Fatalf("12@24 should be 1/2s, got %v", half.SecondsRational())
	}
}

func TestAddSubAcrossRates(t *testing.T) {
	a := FromFrames(24, NewRational(24, 1))
	b := FromFrames(50, NewRational(50, 1))
	sum := a.Add(b)
	if sum.Value != 48 || !sum.Rate.Equal(NewRational(24, 1)) {
		t.Fatalf("1s + 1s should be 48@24, got %v", sum)
	}
	if diff := sum.Sub(b); diff.Value != 24 {
		t.Fatalf("unexpected difference: %v", diff)
	}
}

func TestRangeClampComposesTrims(t *testing.T) {
	rate := NewRational(24, 1)
	outer := NewRange(10, 100, rate)
	inner := NewRange(0, 200, rate)

	clamped := inner.Clamp(outer)
	if clamped.Start.Value != 10 || clamped.Duration.Value != 100 {
		t.Fatalf("unexpected clamp: %+v", clamped)
	}

	disjoint := NewRange(500, 10, rate).Clamp(outer)
	if disjoint.Duration.Value != 0 {
		t.Fatalf("disjoint clamp should collapse to zero duration: %+v", disjoint)
	}
}

func TestCumulativeStarts(t *testing.T) {
	rate := NewRational(24, 1)
	starts := CumulativeStarts([]int64{24, 12, 48}, rate)
	want := []int64{0, 24, 36}
	for i, s := range starts {
		if s.Value != want[i] {
			t.Fatalf("start[%d] = %d, want %d", i, s.Value, want[i])
		}
	}
}
