package types

// Segment identifies the customer segment a user or template belongs to.
type Segment string

const (
	SegmentB2C Segment = "B2C"
	SegmentB2B Segment = "B2B"
)

// Valid reports whether the segment is one of the known values.
func (s Segment) Valid() bool {
	return s == SegmentB2C || s == SegmentB2B
}

// MembershipStatus represents the lifecycle state of a membership.
type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "active"
	MembershipStatusExpired   MembershipStatus = "expired"
	MembershipStatusSuspended MembershipStatus = "suspended"
)

// FeatureType identifies a metered feature.
type FeatureType string

const (
	FeatureConversation FeatureType = "conversation"
	FeatureAnalysis     FeatureType = "analysis"
)

// Valid reports whether the feature is one of the metered features.
func (f FeatureType) Valid() bool {
	return f == FeatureConversation || f == FeatureAnalysis
}

// DefaultCurrency is the currency recorded on payment records. The gateway
// is currency-less; this is a labelling default, not a conversion.
const DefaultCurrency = "USD"
