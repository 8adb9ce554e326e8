package model

// MetricsDelta is a set of additive counter increments applied to a campaign
// in a single write. All counters touched by one response event are coalesced
// into one delta so concurrent responses cannot lose updates.
type MetricsDelta struct {
	ResponseCount              int `json:"response_count,omitempty"`
	PositiveHandoffCount       int `json:"positive_handoff_count,omitempty"`
	NeutralHandoffCount        int `json:"neutral_handoff_count,omitempty"`
	NegativeHandoffCount       int `json:"negative_handoff_count,omitempty"`
	PositiveResponseCount      int `json:"positive_response_count,omitempty"`
	NeutralResponseCount       int `json:"neutral_response_count,omitempty"`
	NegativeResponseCount      int `json:"negative_response_count,omitempty"`
	FirstResponsePositiveCount int `json:"first_response_positive_count,omitempty"`
	FirstResponseNeutralCount  int `json:"first_response_neutral_count,omitempty"`
	FirstResponseNegativeCount int `json:"first_response_negative_count,omitempty"`
}

// IsZero reports whether the delta carries no increments at all.
func (d MetricsDelta) IsZero() bool {
	return d == MetricsDelta{}
}

// Attributes returns the non-zero counters keyed by their storage attribute
// name, in a stable form suitable for building an ADD update expression.
func (d MetricsDelta) Attributes() map[string]int {
	m := make(map[string]int)
	add := func(name string, v int) {
		if v != 0 {
			m[name] = v
		}
	}
	add("response_count", d.ResponseCount)
	add("positive_handoff_count", d.PositiveHandoffCount)
	add("neutral_handoff_count", d.NeutralHandoffCount)
	add("negative_handoff_count", d.NegativeHandoffCount)
	add("positive_response_count", d.PositiveResponseCount)
	add("neutral_response_count", d.NeutralResponseCount)
	add("negative_response_count", d.NegativeResponseCount)
	add("first_response_positive_count", d.FirstResponsePositiveCount)
	add("first_response_neutral_count", d.FirstResponseNeutralCount)
	add("first_response_negative_count", d.FirstResponseNegativeCount)
	return m
}

// AddResponse bumps the sentiment-specific response counter.
func (d *MetricsDelta) AddResponse(s Sentiment) {
	switch s {
	case SentimentPositive:
		d.PositiveResponseCount++
	case SentimentNegative:
		d.NegativeResponseCount++
	default:
		d.NeutralResponseCount++
	}
}

// AddFirstResponse bumps the total response counter plus the matching
// first-response sentiment bucket.
func (d *MetricsDelta) AddFirstResponse(s Sentiment) {
	d.ResponseCount++
	switch s {
	case SentimentPositive:
		d.FirstResponsePositiveCount++
	case SentimentNegative:
		d.FirstResponseNegativeCount++
	default:
		d.FirstResponseNeutralCount++
	}
}

// AddHandoff bumps the sentiment-matched handoff counter.
func (d *MetricsDelta) AddHandoff(s Sentiment) {
	switch s {
	case SentimentPositive:
		d.PositiveHandoffCount++
	case SentimentNegative:
		d.NegativeHandoffCount++
	default:
		d.NeutralHandoffCount++
	}
}
