package membership

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorpass/internal/types"
)

func ptr(v int) *int { return &v }

func activeMembership(expiresAt time.Time, convLimit *int, convUsed int) *types.Membership {
	return &types.Membership{
		ID:        "m-1",
		UserID:    "u-1",
		Name:      "Basic",
		Segment:   types.SegmentB2C,
		CreatedAt: expiresAt.AddDate(0, 0, -30),
		ExpiresAt: expiresAt,
		Status:    types.MembershipStatusActive,
		Limits:    types.FeatureLimits{Conversation: convLimit, Analysis: ptr(3)},
		Usage:     types.FeatureUsage{Conversation: convUsed},
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("active before expiry stays active", func(t *testing.T) {
		m := activeMembership(now.Add(time.Hour), ptr(10), 0)
		assert.Equal(t, types.MembershipStatusActive, EffectiveStatus(m, now))
	})

	t.Run("active past expiry reports expired", func(t *testing.T) {
		m := activeMembership(now.Add(-time.Hour), ptr(10), 0)
		assert.Equal(t, types.MembershipStatusExpired, EffectiveStatus(m, now))
	})

	t.Run("active at exact expiry instant stays active", func(t *testing.T) {
		m := activeMembership(now, ptr(10), 0)
		assert.Equal(t, types.MembershipStatusActive, EffectiveStatus(m, now))
	})

	t.Run("suspended past expiry stays suspended", func(t *testing.T) {
		m := activeMembership(now.Add(-time.Hour), ptr(10), 0)
		m.Status = types.MembershipStatusSuspended
		assert.Equal(t, types.MembershipStatusSuspended, EffectiveStatus(m, now))
	})

	t.Run("does not mutate the membership", func(t *testing.T) {
		m := activeMembership(now.Add(-time.Hour), ptr(10), 0)
		EffectiveStatus(m, now)
		assert.Equal(t, types.MembershipStatusActive, m.Status)
	})
}

func TestRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("applies the expiry transition", func(t *testing.T) {
		m := activeMembership(now.Add(-time.Minute), ptr(10), 0)
		changed := Refresh(m, now)
		assert.True(t, changed)
		assert.Equal(t, types.MembershipStatusExpired, m.Status)
	})

	t.Run("no change before expiry", func(t *testing.T) {
		m := activeMembership(now.Add(time.Minute), ptr(10), 0)
		assert.False(t, Refresh(m, now))
		assert.Equal(t, types.MembershipStatusActive, m.Status)
	})

	t.Run("idempotent", func(t *testing.T) {
		m := activeMembership(now.Add(-time.Minute), ptr(10), 0)
		require.True(t, Refresh(m, now))
		assert.False(t, Refresh(m, now))
		assert.Equal(t, types.MembershipStatusExpired, m.Status)
	})
}

func TestValidateUsage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(24 * time.Hour)

	t.Run("active with remaining quota", func(t *testing.T) {
		m := activeMembership(later, ptr(10), 9)
		assert.True(t, ValidateUsage(m, types.FeatureConversation, now))
	})

	t.Run("quota exhausted", func(t *testing.T) {
		m := activeMembership(later, ptr(10), 10)
		assert.False(t, ValidateUsage(m, types.FeatureConversation, now))
	})

	t.Run("nil limit means unlimited", func(t *testing.T) {
		m := activeMembership(later, nil, 0)
		for i := 0; i < 1000; i++ {
			m.Usage.Conversation++
		}
		assert.True(t, ValidateUsage(m, types.FeatureConversation, now))
	})

	t.Run("expired membership is refreshed and rejected", func(t *testing.T) {
		m := activeMembership(now.Add(-time.Hour), ptr(10), 0)
		assert.False(t, ValidateUsage(m, types.FeatureConversation, now))
		assert.Equal(t, types.MembershipStatusExpired, m.Status)
	})

	t.Run("suspended membership is rejected", func(t *testing.T) {
		m := activeMembership(later, ptr(10), 0)
		m.Status = types.MembershipStatusSuspended
		assert.False(t, ValidateUsage(m, types.FeatureConversation, now))
	})

	t.Run("unknown feature is rejected", func(t *testing.T) {
		m := activeMembership(later, ptr(10), 0)
		assert.False(t, ValidateUsage(m, types.FeatureType("video"), now))
	})
}

func TestUsageReason(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("exhausted quota names the counts", func(t *testing.T) {
		m := activeMembership(now.Add(time.Hour), ptr(10), 10)
		assert.Equal(t, "Usage limit reached (10/10)", UsageReason(m, types.FeatureConversation))
	})

	t.Run("zero limit reads as unavailable", func(t *testing.T) {
		m := activeMembership(now.Add(time.Hour), ptr(0), 0)
		assert.Equal(t, "Feature not available", UsageReason(m, types.FeatureConversation))
	})

	t.Run("unknown feature reads as unavailable", func(t *testing.T) {
		m := activeMembership(now.Add(time.Hour), ptr(10), 10)
		assert.Equal(t, "Feature not available", UsageReason(m, types.FeatureType("video")))
	})
}

func TestFindUsable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(24 * time.Hour)

	t.Run("returns first eligible in storage order", func(t *testing.T) {
		exhausted := activeMembership(later, ptr(10), 10)
		exhausted.ID = "m-exhausted"
		eligible := activeMembership(later, ptr(10), 3)
		eligible.ID = "m-eligible"
		second := activeMembership(later, ptr(10), 0)
		second.ID = "m-second"

		got := FindUsable([]*types.Membership{exhausted, eligible, second}, types.FeatureConversation, now)
		require.NotNil(t, got)
		assert.Equal(t, "m-eligible", got.ID)
	})

	t.Run("skips expired and suspended", func(t *testing.T) {
		expired := activeMembership(now.Add(-time.Hour), ptr(10), 0)
		suspended := activeMembership(later, ptr(10), 0)
		suspended.Status = types.MembershipStatusSuspended

		got := FindUsable([]*types.Membership{expired, suspended}, types.FeatureConversation, now)
		assert.Nil(t, got)
	})

	t.Run("nil when the user holds nothing", func(t *testing.T) {
		assert.Nil(t, FindUsable(nil, types.FeatureConversation, now))
	})
}

func TestDeduct(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := activeMembership(now.Add(time.Hour), ptr(10), 4)
	m.Usage.Analysis = 1

	Deduct(m, types.FeatureConversation)
	assert.Equal(t, 5, m.Usage.Conversation)
	assert.Equal(t, 1, m.Usage.Analysis)

	Deduct(m, types.FeatureAnalysis)
	assert.Equal(t, 5, m.Usage.Conversation)
	assert.Equal(t, 2, m.Usage.Analysis)
}

func TestFromTemplate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	price := 19.99
	tpl := &types.Template{
		ID:           "tpl-1",
		Name:         "Premium",
		Segment:      types.SegmentB2C,
		DurationDays: 60,
		Limits:       types.FeatureLimits{Conversation: ptr(20), Analysis: ptr(5)},
		Price:        &price,
		Active:       true,
	}
	user := &types.User{ID: "u-1", Name: "John", Email: "john@example.com", Segment: types.SegmentB2B}

	m := FromTemplate("m-new", user, tpl, now)

	assert.Equal(t, "m-new", m.ID)
	assert.Equal(t, "u-1", m.UserID)
	assert.Equal(t, "Premium", m.Name)
	require.NotNil(t, m.TemplateID)
	assert.Equal(t, "tpl-1", *m.TemplateID)
	// Segment comes from the user, not the template.
	assert.Equal(t, types.SegmentB2B, m.Segment)
	assert.Equal(t, now, m.CreatedAt)
	assert.Equal(t, now.AddDate(0, 0, 60), m.ExpiresAt)
	assert.Equal(t, types.MembershipStatusActive, m.Status)
	assert.Equal(t, types.FeatureUsage{}, m.Usage)
	require.NotNil(t, m.Limits.Conversation)
	assert.Equal(t, 20, *m.Limits.Conversation)
}
