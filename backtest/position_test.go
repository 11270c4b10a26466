package backtest

import (
	"errors"
	"testing"
)

func TestPositionOpenFromFlat(t *testing.T) {
	var p Position
	if err := p.ApplyFill(SideBuy, 2, 100.5); err != nil {
		t.Fatal(err)
	}
	if p.Contracts != 2 || p.AvgPrice != 100.5 {
		t.Fatalf("got %+v, want contracts=2 avg=100.5", p)
	}
}

func TestPositionVWAPOnAdd(t *testing.T) {
	var p Position
	if err := p.ApplyFill(SideBuy, 1, 100); err != nil {
		t.Fatal(err)
	}
	if err := p.ApplyFill(SideBuy, 3, 104); err != nil {
		t.Fatal(err)
	}
	if p.Contracts != 4 {
		t.Fatalf("contracts = %d, want 4", p.Contracts)
	}
	want := (1*100.0 + 3*104.0) / 4
	if p.AvgPrice != want {
		t.Fatalf("avg = %v, want %v", p.AvgPrice, want)
	}
}

func TestPositionPartialReductionKeepsAvg(t *testing.T) {
	var p Position
	if err := p.ApplyFill(SideSell, 5, 200); err != nil {
		t.Fatal(err)
	}
	if err := p.ApplyFill(SideBuy, 2, 190); err != nil {
		t.Fatal(err)
	}
	if p.Contracts != -3 || p.AvgPrice != 200 {
		t.Fatalf("got %+v, want contracts=-3 avg=200", p)
	}
}

func TestPositionExactCloseResetsAvg(t *testing.T) {
	var p Position
	if err := p.ApplyFill(SideBuy, 3, 150); err != nil {
		t.Fatal(err)
	}
	if err := p.ApplyFill(SideSell, 3, 155); err != nil {
		t.Fatal(err)
	}
	if p.Contracts != 0 || p.AvgPrice != 0 {
		t.Fatalf("got %+v, want flat with avg=0", p)
	}
}

func TestPositionFlipOpensAtFillPrice(t *testing.T) {
	var p Position
	if err := p.ApplyFill(SideSell, 2, 100); err != nil {
		t.Fatal(err)
	}
	if err := p.ApplyFill(SideBuy, 3, 98.2); err != nil {
		t.Fatal(err)
	}
	if p.Contracts != 1 || p.AvgPrice != 98.2 {
		t.Fatalf("got %+v, want contracts=1 avg=98.2", p)
	}
}

func TestPositionInvalidSide(t *testing.T) {
	var p Position
	err := p.ApplyFill(Side("HOLD"), 1, 100)
	if !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("err = %v, want ErrInvalidSide", err)
	}
}

// The flatness invariant must hold across arbitrary fill sequences.
func TestPositionFlatnessInvariant(t *testing.T) {
	fills := []struct {
		side  Side
		size  int
		price float64
	}{
		{SideBuy, 2, 100},
		{SideSell, 1, 101},
		{SideSell, 1, 102},
		{SideSell, 3, 103},
		{SideBuy, 3, 104},
		{SideBuy, 4, 105},
		{SideSell, 4, 106},
	}
	var p Position
	for i, f := range fills {
		if err := p.ApplyFill(f.side, f.size, f.price); err != nil {
			t.Fatal(err)
		}
		if p.Contracts == 0 && p.AvgPrice != 0 {
			t.Fatalf("after fill %d: flat position with avg=%v", i, p.AvgPrice)
		}
		if p.Contracts != 0 && p.AvgPrice == 0 {
			t.Fatalf("after fill %d: open position with avg=0", i)
		}
	}
	if p.Contracts != 0 {
		t.Fatalf("expected flat at end, got %+v", p)
	}
}
