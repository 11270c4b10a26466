package backtest

// Strategy is the decision capability plugged into the Backtester. Init is
// called once before the replay and may precompute per-bar indicator
// arrays from the series. OnBar is called once per bar (except the last,
// which has no next open to execute against) and returns zero or more
// market orders for the next bar's open.
//
// OnBar must only reference data at index i or earlier. The engine cannot
// enforce that; implementations are responsible for not peeking ahead.
type Strategy interface {
	Name() string
	Init(series *Series) error
	OnBar(i int, bar Bar, pos Position) []Order
}
