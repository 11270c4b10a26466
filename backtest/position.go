package backtest

// Position holds the signed contract count (+long, -short) and the VWAP
// entry price of the currently open exposure. AvgPrice is meaningful only
// while Contracts != 0 and resets to 0 when the position goes flat.
//
// The execution engine owns the one mutable Position per run; strategies
// only ever see value copies.
type Position struct {
	Contracts int
	AvgPrice  float64
}

// ApplyFill mutates the position for one fill.
//
//   - flat: the fill opens a fresh position at the fill price
//   - same sign: VWAP-weighted average, contracts accumulate
//   - partial reduction: contracts shrink, avg price unchanged
//   - exact close: flat, avg price reset
//   - overshoot: the residual is a fresh position opened at the fill price
func (p *Position) ApplyFill(side Side, size int, price float64) error {
	var signed int
	switch side {
	case SideBuy:
		signed = size
	case SideSell:
		signed = -size
	default:
		return ErrInvalidSide
	}

	if p.Contracts == 0 {
		p.Contracts = signed
		p.AvgPrice = price
		if p.Contracts == 0 {
			p.AvgPrice = 0
		}
		return nil
	}

	next := p.Contracts + signed

	// Adding to an existing position on the same side.
	if (p.Contracts > 0 && signed > 0) || (p.Contracts < 0 && signed < 0) {
		total := absInt(p.Contracts) + size
		p.AvgPrice = (float64(absInt(p.Contracts))*p.AvgPrice + float64(size)*price) / float64(total)
		p.Contracts = next
		return nil
	}

	// Reducing but keeping the same side exposure.
	if next != 0 && sameSign(p.Contracts, next) {
		p.Contracts = next
		return nil
	}

	if next == 0 {
		p.Contracts = 0
		p.AvgPrice = 0
		return nil
	}

	// Flipped to the opposite side.
	p.Contracts = next
	p.AvgPrice = price
	return nil
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sameSign(a, b int) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
