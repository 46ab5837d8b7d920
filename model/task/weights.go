package task

// Weights configure the priority score of a task.
type Weights struct {
	Impact  float64 `json:"impact" yaml:"impact"`
	Urgency float64 `json:"urgency" yaml:"urgency"`
	Effort  float64 `json:"effort" yaml:"effort"`
	Risk    float64 `json:"risk" yaml:"risk"`
}

// DefaultWeights reward impact and urgency and penalize effort and risk.
func DefaultWeights() Weights {
	return Weights{Impact: 0.4, Urgency: 0.3, Effort: -0.2, Risk: -0.1}
}

// IsZero reports whether no weight is set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Score computes the priority of t.
func (w Weights) Score(t *Task) float64 {
	return float64(t.Impact)*w.Impact +
		float64(t.Urgency)*w.Urgency +
		float64(t.Effort)*w.Effort +
		float64(t.Risk)*w.Risk
}
