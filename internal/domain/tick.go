package domain

// ChartTick is a discrete one-second price observation. The feed emits at
// most one tick per wall-clock second so downstream charts stay stable.
type ChartTick struct {
	Time  int64 // Unix timestamp (seconds)
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// FlatTick builds the tick shape for a second where only one price was seen.
func FlatTick(ts int64, price float64) ChartTick {
	return ChartTick{Time: ts, Open: price, High: price, Low: price, Close: price}
}
