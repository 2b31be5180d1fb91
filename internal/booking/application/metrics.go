package application

// Metrics receives booking flow counters.
type Metrics interface {
	FlowTransition(state string)
	SeatMapFallback()
	PaymentOutcome(method, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) FlowTransition(string)         {}
func (nopMetrics) SeatMapFallback()              {}
func (nopMetrics) PaymentOutcome(string, string) {}
