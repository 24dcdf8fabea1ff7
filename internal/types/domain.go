// Package types defines the shared domain model for the TutorPass membership
// platform: users, plan templates, memberships, and the error taxonomy used
// across the engine, stores, and HTTP handlers.
package types

import "time"

// FeatureLimits holds the per-feature quota bounds of a template or
// membership. A nil entry means the feature is unlimited.
type FeatureLimits struct {
	Conversation *int `json:"conversation"`
	Analysis     *int `json:"analysis"`
}

// For returns the bound for the given feature and whether the feature is one
// of the metered features. A nil bound with ok=true means unlimited.
func (l FeatureLimits) For(feature FeatureType) (limit *int, ok bool) {
	switch feature {
	case FeatureConversation:
		return l.Conversation, true
	case FeatureAnalysis:
		return l.Analysis, true
	default:
		return nil, false
	}
}

// FeatureUsage holds the consumed units per metered feature. Counters start
// at zero and only ever increase while the membership exists.
type FeatureUsage struct {
	Conversation int `json:"conversation"`
	Analysis     int `json:"analysis"`
}

// For returns the consumed count for the given feature. Unknown features
// report zero.
func (u FeatureUsage) For(feature FeatureType) int {
	switch feature {
	case FeatureConversation:
		return u.Conversation
	case FeatureAnalysis:
		return u.Analysis
	default:
		return 0
	}
}

// Template is a purchasable or admin-assignable plan definition. Templates
// are catalog data: memberships copy name and limits at creation and are not
// re-linked when a template changes or is deleted.
type Template struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Segment      Segment       `json:"customer_type"`
	DurationDays int           `json:"duration_days"`
	Limits       FeatureLimits `json:"limits"`
	// Price is set for B2C templates; B2B templates are settled out of band.
	Price  *float64 `json:"price"`
	Active bool     `json:"is_active"`
}

// User is an identity in the directory. Deleting a user does not cascade to
// its memberships; dangling references are permitted.
type User struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Segment Segment `json:"customer_type"`
	// CompanyID is expected for B2B users but not enforced.
	CompanyID *string `json:"company_id,omitempty"`
}

// PaymentInfo records the settled purchase backing a membership.
type PaymentInfo struct {
	Method        string  `json:"payment_method"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	TransactionID string  `json:"transaction_id"`
}

// Membership is a concrete, time-bounded grant of quota to one user.
//
// Status is derived-but-cached: storage may hold a stale "active" for a
// membership whose expiry has passed. Readers must apply the engine's refresh
// before trusting it. Suspended memberships are never auto-expired.
type Membership struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// Name is copied from the template at creation (or supplied directly).
	Name string `json:"name"`
	// TemplateID is nil for directly created memberships, and may dangle
	// after a template is deleted.
	TemplateID *string          `json:"template_id"`
	Segment    Segment          `json:"customer_type"`
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
	Status     MembershipStatus `json:"status"`
	Limits     FeatureLimits    `json:"limits"`
	Usage      FeatureUsage     `json:"usage"`
	Payment    *PaymentInfo     `json:"payment_info,omitempty"`
}

// Clone returns a deep copy so store snapshots cannot be mutated through
// returned records.
func (m *Membership) Clone() *Membership {
	if m == nil {
		return nil
	}
	c := *m
	c.TemplateID = clonePtr(m.TemplateID)
	c.Limits.Conversation = clonePtr(m.Limits.Conversation)
	c.Limits.Analysis = clonePtr(m.Limits.Analysis)
	if m.Payment != nil {
		p := *m.Payment
		c.Payment = &p
	}
	return &c
}

// Clone returns a deep copy of the template.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	c := *t
	c.Price = clonePtr(t.Price)
	c.Limits.Conversation = clonePtr(t.Limits.Conversation)
	c.Limits.Analysis = clonePtr(t.Limits.Analysis)
	return &c
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.CompanyID = clonePtr(u.CompanyID)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
