package store

import (
	"time"

	"tutorpass/internal/types"
)

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func strPtr(v string) *string       { return &v }

// Seed returns the default catalog used when no snapshot exists: three plan
// templates, two users, and one active membership per user.
func Seed() *Snapshot {
	now := time.Now().UTC()

	basic := &types.Template{
		ID:           "basic-b2c",
		Name:         "Basic",
		Segment:      types.SegmentB2C,
		DurationDays: 30,
		Limits: types.FeatureLimits{
			Conversation: intPtr(10),
			Analysis:     intPtr(3),
		},
		Price:  floatPtr(9.99),
		Active: true,
	}
	premium := &types.Template{
		ID:           "premium-b2c",
		Name:         "Premium",
		Segment:      types.SegmentB2C,
		DurationDays: 60,
		Limits: types.FeatureLimits{
			Conversation: intPtr(20),
			Analysis:     intPtr(5),
		},
		Price:  floatPtr(19.99),
		Active: true,
	}
	team := &types.Template{
		ID:           "team-b2b",
		Name:         "Team",
		Segment:      types.SegmentB2B,
		DurationDays: 90,
		Active:       true,
	}

	john := &types.User{
		ID:      "user-1",
		Name:    "John Doe",
		Email:   "john.doe@example.com",
		Segment: types.SegmentB2C,
	}
	jane := &types.User{
		ID:        "user-2",
		Name:      "Jane Smith",
		Email:     "jane.smith@example.com",
		Segment:   types.SegmentB2B,
		CompanyID: strPtr("company-1"),
	}

	return &Snapshot{
		Users:     []*types.User{john, jane},
		Templates: []*types.Template{basic, premium, team},
		Memberships: []*types.Membership{
			seedMembership("membership-1", john.ID, basic, now),
			seedMembership("membership-2", jane.ID, team, now),
		},
	}
}

func seedMembership(id, userID string, tpl *types.Template, now time.Time) *types.Membership {
	m := &types.Membership{
		ID:         id,
		UserID:     userID,
		Name:       tpl.Name,
		TemplateID: strPtr(tpl.ID),
		Segment:    tpl.Segment,
		CreatedAt:  now,
		ExpiresAt:  now.AddDate(0, 0, tpl.DurationDays),
		Status:     types.MembershipStatusActive,
		Limits:     tpl.Limits,
	}
	return m.Clone()
}
