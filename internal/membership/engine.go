// Package membership implements the lifecycle and usage-metering engine:
// expiry transitions, eligibility search across a user's memberships, quota
// validation and deduction, and membership construction from plan templates.
package membership

import (
	"fmt"
	"time"

	"tutorpass/internal/types"
)

// EffectiveStatus computes the status a membership should report at the given
// instant without mutating it. Only active memberships age into expired;
// suspended memberships keep their status past the expiry timestamp.
func EffectiveStatus(m *types.Membership, now time.Time) types.MembershipStatus {
	if m.Status == types.MembershipStatusActive && now.After(m.ExpiresAt) {
		return types.MembershipStatusExpired
	}
	return m.Status
}

// Refresh applies the effective status to the membership in place and reports
// whether anything changed. Idempotent: a second call at the same instant is
// always a no-op.
func Refresh(m *types.Membership, now time.Time) bool {
	effective := EffectiveStatus(m, now)
	if effective == m.Status {
		return false
	}
	m.Status = effective
	return true
}

// ValidateUsage reports whether the membership can cover one unit of the
// feature right now. It refreshes expiry first, so a stale active status is
// never trusted. A nil limit means unlimited.
func ValidateUsage(m *types.Membership, feature types.FeatureType, now time.Time) bool {
	Refresh(m, now)
	if m.Status != types.MembershipStatusActive {
		return false
	}

	limit, ok := m.Limits.For(feature)
	if !ok {
		return false
	}
	if limit == nil {
		return true
	}
	return m.Usage.For(feature) < *limit
}

// UsageReason explains why a membership cannot cover the feature. It assumes
// ValidateUsage already returned false for the same membership and feature.
func UsageReason(m *types.Membership, feature types.FeatureType) string {
	limit, ok := m.Limits.For(feature)
	if !ok || limit == nil || *limit == 0 {
		return "Feature not available"
	}
	return fmt.Sprintf("Usage limit reached (%d/%d)", m.Usage.For(feature), *limit)
}

// FindUsable scans memberships in storage order and returns the first one
// that is active after refresh and passes quota validation for the feature.
// Returns nil when none qualifies. Linear scan; per-user membership counts
// are expected to stay small.
func FindUsable(memberships []*types.Membership, feature types.FeatureType, now time.Time) *types.Membership {
	for _, m := range memberships {
		if ValidateUsage(m, feature, now) {
			return m
		}
	}
	return nil
}

// FirstActive returns the first membership in storage order that is active
// after refresh, regardless of quota. Used to attribute a denial reason when
// no membership passes the full eligibility check.
func FirstActive(memberships []*types.Membership, now time.Time) *types.Membership {
	for _, m := range memberships {
		Refresh(m, now)
		if m.Status == types.MembershipStatusActive {
			return m
		}
	}
	return nil
}

// Deduct charges one unit of the feature. Callers must have run ValidateUsage
// for the same membership, feature, and instant immediately beforehand, with
// no interleaving mutation possible in between.
func Deduct(m *types.Membership, feature types.FeatureType) {
	switch feature {
	case types.FeatureConversation:
		m.Usage.Conversation++
	case types.FeatureAnalysis:
		m.Usage.Analysis++
	}
}

// FromTemplate constructs a fresh active membership for the user from a plan
// template. Name and limits are copied from the template; the customer
// segment is copied from the user, not the template. Usage starts at zero.
func FromTemplate(id string, user *types.User, tpl *types.Template, now time.Time) *types.Membership {
	templateID := tpl.ID
	m := &types.Membership{
		ID:         id,
		UserID:     user.ID,
		Name:       tpl.Name,
		TemplateID: &templateID,
		Segment:    user.Segment,
		CreatedAt:  now,
		ExpiresAt:  now.AddDate(0, 0, tpl.DurationDays),
		Status:     types.MembershipStatusActive,
		Limits:     tpl.Limits,
	}
	return m.Clone()
}
