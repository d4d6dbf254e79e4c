package retrieval

import (
	"math"
	"time"
)

const (
	decayScaleDays  = 365.0
	decayOffsetDays = 365.0
)

// LinearDecay is the recency multiplier for a document ageDays old. Documents
// enacted within the offset keep full weight; past it the weight falls by
// half per scale and bottoms out at zero.
func LinearDecay(ageDays float64) float64 {
	age := math.Abs(ageDays)
	excess := math.Max(0, age-decayOffsetDays)
	return math.Max(0, 1-(1-decayFactor)*excess/decayScaleDays)
}

// AgeDays is the distance between enactedAt and now in days. A zero
// enactedAt yields zero, matching the index which gives documents without
// an enactment date full recency weight.
func AgeDays(enactedAt, now time.Time) float64 {
	if enactedAt.IsZero() {
		return 0
	}
	return now.Sub(enactedAt).Hours() / 24
}

// Composite is the ranking score the index computes for a document: the
// arithmetic mean of text relevance, recency and authority.
func Composite(text float64, enactedAt time.Time, docType DocumentType, now time.Time) float64 {
	return (text + LinearDecay(AgeDays(enactedAt, now)) + docType.AuthorityWeight()) / signalCount
}
