package membership

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tutorpass/internal/external"
	"tutorpass/internal/store"
	"tutorpass/internal/types"
)

const reasonNoActiveMembership = "No active membership"

// UsageDecision is the answer to a usage check: whether one unit of the
// feature can be consumed, which membership would cover it, and, when denied,
// a human-readable reason.
type UsageDecision struct {
	CanUse     bool
	Reason     string
	Membership *types.Membership
}

// Service orchestrates the metering engine over the repositories and the
// payment gateway. A single service-wide mutex serializes every operation so
// the search-validate-deduct sequence can never interleave with another
// mutation and overshoot a quota.
type Service struct {
	mu      sync.Mutex
	reg     store.Registry
	gateway external.PaymentGateway
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceOption is a functional option for configuring a Service.
type ServiceOption func(*Service)

// WithClock overrides the service's time source. Intended for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires a Service over the given registry and payment gateway.
func NewService(reg store.Registry, gateway external.PaymentGateway, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		reg:     reg,
		gateway: gateway,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMembershipInput carries the fields for direct membership creation.
// Direct creation does not verify the user or template references; dangling
// ids are permitted by the data model.
type CreateMembershipInput struct {
	UserID     string
	Name       string
	TemplateID *string
	Segment    types.Segment
	ExpiresAt  time.Time
	Status     types.MembershipStatus
	Limits     types.FeatureLimits
	Payment    *types.PaymentInfo
}

// CreateMembership creates a membership directly from the given fields.
func (s *Service) CreateMembership(ctx context.Context, in CreateMembershipInput) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := in.Status
	if status == "" {
		status = types.MembershipStatusActive
	}

	m := &types.Membership{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		Name:       in.Name,
		TemplateID: in.TemplateID,
		Segment:    in.Segment,
		CreatedAt:  s.now(),
		ExpiresAt:  in.ExpiresAt,
		Status:     status,
		Limits:     in.Limits,
		Payment:    in.Payment,
	}
	if err := s.reg.Memberships().Create(ctx, m); err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

// GetMembership fetches a membership by id, refreshing its expiry first.
// A transition surfaced by the refresh is written back before returning.
func (s *Service) GetMembership(ctx context.Context, id string) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.reg.Memberships().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.persistIfRefreshed(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMemberships returns all memberships, each refreshed.
func (s *Service) ListMemberships(ctx context.Context) ([]*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listRefreshed(ctx, func() ([]*types.Membership, error) {
		return s.reg.Memberships().List(ctx)
	})
}

// DeleteMembership removes a membership by id.
func (s *Service) DeleteMembership(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Memberships().Delete(ctx, id)
}

// ListByUser returns all memberships held by the user, each refreshed.
// Fails with a not-found error if the user is unknown.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.reg.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.listRefreshed(ctx, func() ([]*types.Membership, error) {
		return s.reg.Memberships().ListByUser(ctx, userID)
	})
}

// ListActiveByUser returns the user's memberships that are active after
// refresh, in storage order.
func (s *Service) ListActiveByUser(ctx context.Context, userID string) ([]*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.reg.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}
	all, err := s.listRefreshed(ctx, func() ([]*types.Membership, error) {
		return s.reg.Memberships().ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	active := make([]*types.Membership, 0, len(all))
	for _, m := range all {
		if m.Status == types.MembershipStatusActive {
			active = append(active, m)
		}
	}
	return active, nil
}

// CheckUsage reports whether the user can consume one unit of the feature
// right now, without charging anything. When denied, the reason names the
// exhausted quota of the user's first active membership, or states that no
// active membership exists.
func (s *Service) CheckUsage(ctx context.Context, userID string, feature types.FeatureType) (*UsageDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memberships, err := s.userMembershipsRefreshed(ctx, userID)
	if err != nil {
		return nil, err
	}

	if m := FindUsable(memberships, feature, s.now()); m != nil {
		return &UsageDecision{CanUse: true, Membership: m.Clone()}, nil
	}

	if active := FirstActive(memberships, s.now()); active != nil {
		return &UsageDecision{CanUse: false, Reason: UsageReason(active, feature)}, nil
	}
	return &UsageDecision{CanUse: false, Reason: reasonNoActiveMembership}, nil
}

// RecordUsage charges exactly one unit of the feature against the first
// eligible membership. The search, validation, and increment all happen under
// the service mutex, so two concurrent calls can never both pass validation
// against the same remaining unit.
func (s *Service) RecordUsage(ctx context.Context, userID string, feature types.FeatureType) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memberships, err := s.userMembershipsRefreshed(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := FindUsable(memberships, feature, now)
	if m == nil {
		if FirstActive(memberships, now) != nil {
			return nil, types.NewAppError(types.ErrCodeQuotaExceeded, "usage limit exceeded", nil)
		}
		return nil, types.NewAppError(types.ErrCodeNotFoundMembership, "no active membership", nil)
	}

	Deduct(m, feature)
	if err := s.reg.Memberships().Update(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Debug("usage recorded",
		slog.String("membership_id", m.ID),
		slog.String("user_id", userID),
		slog.String("feature", string(feature)),
	)
	return m.Clone(), nil
}

// StartConversation finds a conversation-eligible membership for the user and
// charges one conversation unit against it.
func (s *Service) StartConversation(ctx context.Context, userID string) (*types.Membership, error) {
	return s.RecordUsage(ctx, userID, types.FeatureConversation)
}

// Assign creates a membership for the user from the template on behalf of an
// admin. B2B templates cannot be assigned to B2C users; the reverse direction
// is permitted.
func (s *Service) Assign(ctx context.Context, userID, templateID, assignedBy string) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.reg.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.reg.Templates().GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if user.Segment == types.SegmentB2C && tpl.Segment != types.SegmentB2C {
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidSegment,
			"cannot assign B2B template to B2C customer",
			nil,
		)
	}

	m := FromTemplate(uuid.NewString(), user, tpl, s.now())
	if err := s.reg.Memberships().Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("membership assigned",
		slog.String("membership_id", m.ID),
		slog.String("user_id", userID),
		slog.String("template_id", templateID),
		slog.String("assigned_by", assignedBy),
	)
	return m.Clone(), nil
}

// PaymentInput carries the fields of a plan purchase request.
type PaymentInput struct {
	UserID        string
	TemplateID    string
	PaymentMethod string
	Amount        float64
}

// Pay processes a plan purchase: segment and price checks, a gateway charge,
// then membership construction with the payment record attached. The user's
// segment must exactly match the template's. For B2C purchases the template
// must carry a price and the amount must equal it exactly; no rounding
// tolerance is applied.
func (s *Service) Pay(ctx context.Context, in PaymentInput) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.reg.Users().GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.reg.Templates().GetByID(ctx, in.TemplateID)
	if err != nil {
		return nil, err
	}

	if user.Segment != tpl.Segment {
		return nil, types.NewAppError(
			types.ErrCodeValidationSegmentMismatch,
			fmt.Sprintf("template is for %s customers only", tpl.Segment),
			nil,
		)
	}
	if !tpl.Active {
		return nil, types.NewAppError(types.ErrCodeConflictTemplateInactive, "template is not active", nil)
	}
	if user.Segment == types.SegmentB2C {
		if tpl.Price == nil {
			return nil, types.NewAppError(types.ErrCodeValidationPriceMissing, "template price not set", nil)
		}
		if in.Amount != *tpl.Price {
			return nil, types.NewAppError(types.ErrCodeValidationAmountMismatch, "invalid payment amount", nil)
		}
	}

	result, err := s.gateway.Charge(ctx, external.ChargeRequest{
		UserID:        in.UserID,
		TemplateID:    in.TemplateID,
		PaymentMethod: in.PaymentMethod,
		Amount:        in.Amount,
		Currency:      types.DefaultCurrency,
	})
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodePaymentDeclined,
			"payment was declined by the gateway",
			nil,
			map[string]any{"gateway_message": result.Message},
		)
	}

	m := FromTemplate(uuid.NewString(), user, tpl, s.now())
	m.Payment = &types.PaymentInfo{
		Method:        in.PaymentMethod,
		Amount:        in.Amount,
		Currency:      types.DefaultCurrency,
		TransactionID: result.TransactionID,
	}
	if err := s.reg.Memberships().Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("payment processed",
		slog.String("membership_id", m.ID),
		slog.String("user_id", in.UserID),
		slog.String("template_id", in.TemplateID),
		slog.String("transaction_id", result.TransactionID),
	)
	return m.Clone(), nil
}

// Suspend sets the membership to suspended regardless of its current state.
func (s *Service) Suspend(ctx context.Context, id string) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.reg.Memberships().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Status = types.MembershipStatusSuspended
	if err := s.reg.Memberships().Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Activate sets the membership to active. The expiry check runs first: an
// expired membership cannot be activated, and its status is left exactly as
// the refresh computed it (a suspended membership past expiry stays
// suspended).
func (s *Service) Activate(ctx context.Context, id string) (*types.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.reg.Memberships().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.persistIfRefreshed(ctx, m); err != nil {
		return nil, err
	}
	if now.After(m.ExpiresAt) {
		return nil, types.NewAppError(
			types.ErrCodePreconditionExpired,
			"cannot activate expired membership",
			nil,
		)
	}

	m.Status = types.MembershipStatusActive
	if err := s.reg.Memberships().Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Revoke hard-deletes a membership on behalf of an admin.
func (s *Service) Revoke(ctx context.Context, id, revokedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reg.Memberships().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("membership revoked",
		slog.String("membership_id", id),
		slog.String("revoked_by", revokedBy),
	)
	return nil
}

// userMembershipsRefreshed loads the user's memberships (verifying the user
// exists) and persists any expiry transitions the refresh surfaces.
// Caller must hold s.mu.
func (s *Service) userMembershipsRefreshed(ctx context.Context, userID string) ([]*types.Membership, error) {
	if _, err := s.reg.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.listRefreshed(ctx, func() ([]*types.Membership, error) {
		return s.reg.Memberships().ListByUser(ctx, userID)
	})
}

// listRefreshed loads memberships via fetch and persists any expiry
// transitions. Caller must hold s.mu.
func (s *Service) listRefreshed(ctx context.Context, fetch func() ([]*types.Membership, error)) ([]*types.Membership, error) {
	memberships, err := fetch()
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, m := range memberships {
		if Refresh(m, now) {
			if err := s.reg.Memberships().Update(ctx, m); err != nil {
				return nil, err
			}
		}
	}
	return memberships, nil
}

// persistIfRefreshed refreshes a single membership and writes the transition
// back if its status changed. Caller must hold s.mu.
func (s *Service) persistIfRefreshed(ctx context.Context, m *types.Membership) error {
	if Refresh(m, s.now()) {
		return s.reg.Memberships().Update(ctx, m)
	}
	return nil
}
