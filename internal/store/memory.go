package store

import (
	"context"
	"log/slog"
	"sync"

	"tutorpass/internal/types"
)

// Store is the in-memory implementation of Registry, backed by the JSON
// snapshot gateway. All three collections live under a single store-wide
// RWMutex; mutating operations rebuild and rewrite the snapshot before
// returning.
//
// Iteration order is insertion order, tracked explicitly because Go maps
// randomize range order and the eligibility search is defined over a stable
// storage iteration order.
type Store struct {
	mu sync.RWMutex

	users       map[string]*types.User
	userOrder   []string
	templates   map[string]*types.Template
	tplOrder    []string
	memberships map[string]*types.Membership
	memOrder    []string

	snapshots *SnapshotFile
	logger    *slog.Logger
}

// Open loads the snapshot at path into a new Store. A missing or corrupt
// snapshot is replaced by the fixed seed catalog, which is flushed
// immediately so the next startup finds a valid file.
func Open(path string, backups int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		users:       make(map[string]*types.User),
		templates:   make(map[string]*types.Template),
		memberships: make(map[string]*types.Membership),
		snapshots:   NewSnapshotFile(path, backups),
		logger:      logger,
	}

	snap, err := s.snapshots.Load()
	if err != nil {
		logger.Warn("snapshot unavailable, seeding default catalog",
			slog.String("path", path),
			slog.String("reason", err.Error()),
		)
		snap = Seed()
	}
	s.install(snap)

	if err != nil {
		// Persist the seed so a restart does not re-seed over later writes.
		if ferr := s.Flush(context.Background()); ferr != nil {
			return nil, ferr
		}
	}

	return s, nil
}

// install replaces in-memory state with the snapshot contents.
// Caller must hold no locks (only used during Open).
func (s *Store) install(snap *Snapshot) {
	for _, u := range snap.Users {
		s.users[u.ID] = u.Clone()
		s.userOrder = append(s.userOrder, u.ID)
	}
	for _, t := range snap.Templates {
		s.templates[t.ID] = t.Clone()
		s.tplOrder = append(s.tplOrder, t.ID)
	}
	for _, m := range snap.Memberships {
		s.memberships[m.ID] = m.Clone()
		s.memOrder = append(s.memOrder, m.ID)
	}
}

// Users returns the user repository view.
func (s *Store) Users() UserRepository { return &userRepo{s} }

// Templates returns the template repository view.
func (s *Store) Templates() TemplateRepository { return &templateRepo{s} }

// Memberships returns the membership repository view.
func (s *Store) Memberships() MembershipRepository { return &membershipRepo{s} }

// Flush rebuilds the snapshot from current state and rewrites the file.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.RLock()
	snap := s.buildSnapshotLocked()
	s.mu.RUnlock()

	if err := s.snapshots.Save(snap); err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to write snapshot", err)
	}
	return nil
}

// flushAfterMutation persists the snapshot after a mutating operation.
// Flush failures are logged, not propagated: the in-memory state is
// authoritative and the mutation has already applied. Disk may lag until the
// next successful flush.
func (s *Store) flushAfterMutation(ctx context.Context) {
	if err := s.Flush(ctx); err != nil {
		s.logger.Error("snapshot flush failed after mutation", slog.String("error", err.Error()))
	}
}

// buildSnapshotLocked assembles a Snapshot in insertion order.
// Caller must hold at least the read lock.
func (s *Store) buildSnapshotLocked() *Snapshot {
	snap := &Snapshot{}
	for _, id := range s.userOrder {
		snap.Users = append(snap.Users, s.users[id].Clone())
	}
	for _, id := range s.tplOrder {
		snap.Templates = append(snap.Templates, s.templates[id].Clone())
	}
	for _, id := range s.memOrder {
		snap.Memberships = append(snap.Memberships, s.memberships[id].Clone())
	}
	return snap
}

// Name implements core.HealthProbe.
func (s *Store) Name() string { return "store" }

// Check implements core.HealthProbe by verifying the snapshot file is writable.
func (s *Store) Check(ctx context.Context) error {
	return s.snapshots.CheckWritable()
}

// --- User repository ---

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *types.User) error {
	r.s.mu.Lock()
	if _, exists := r.s.users[user.ID]; !exists {
		r.s.userOrder = append(r.s.userOrder, user.ID)
	}
	r.s.users[user.ID] = user.Clone()
	r.s.mu.Unlock()

	r.s.flushAfterMutation(ctx)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return u.Clone(), nil
}

func (r *userRepo) List(ctx context.Context) ([]*types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*types.User, 0, len(r.s.userOrder))
	for _, id := range r.s.userOrder {
		out = append(out, r.s.users[id].Clone())
	}
	return out, nil
}

func (r *userRepo) Update(ctx context.Context, user *types.User) error {
	r.s.mu.Lock()
	if _, ok := r.s.users[user.ID]; !ok {
		r.s.mu.Unlock()
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	r.s.users[user.ID] = user.Clone()
	r.s.mu.Unlock()

	r.s.flushAfterMutation(ctx)
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	if _, ok := r.s.users[id]; !ok {
		r.s.mu.Unlock()
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	delete(r.s.users, id)
	r.s.userOrder = removeID(r.s.userOrder, id)
	r.s.mu.Unlock()

	r.s.flushAfterMutation(ctx)
	return nil
}

// --- Template repository ---

type templateRepo struct{ s *Store }

func (r *templateRepo) Create(ctx context.Context, tpl *types.Template) error {
	r.s.mu.Lock()
	if _, exists := r.s.templates[tpl.ID]; !exists {
		r.s.tplOrder = append(r.s.tplOrder, tpl.ID)
	}
	r.s.templates[tpl.ID] = tpl.Clone()
	r.s.mu.Unlock()

	r.s.flushAfterMutation(ctx)
	return nil
}

func (r *templateRepo) GetByID(ctx context.Context, id string) (*types.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.templates[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundTemplate, "template not found", nil)
	}
	return t.Clone(), nil
}

func (r *templateRepo) List(ctx context.Context, segment *types.Segment) ([]*types.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*types.Template, 0, len(r.s.tplOrder))
	for _, id := range r.s.tplOrder {
		t := r.s.templates[id]
		if segment != nil && t.Segment != *segment {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

func (r *templateRepo) Update(ctx context.Context, tpl *types.Template) error {
	r.s.mu.Lock()
	if _, ok := r.s.templates[tpl.ID]; !ok {
		r.s.mu.Unlock()
		return types.NewAppError(types.ErrCodeNotFoundTemplate, "template not found", nil)
	}
	r.s.templates[tpl.ID] = tpl.Clone()
	r.s.mu.Unlock()

	r.s.flushAfterMutation(ctx)
	return nil
}

func (r *templateRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	if _, ok := r.s.templates[id]; !ok {
		r.s.mu.Unlock()
		return types.NewAppError(types.ErrCodeNotFoundTemplate, "template not found", nil)
	}
	delete(r.s.templates, id)
	r.s.tplOrder = removeID(r.s.tplOrder, id)
	r.s.mu.Unlock()

	r.s.flushAfterMutation(ctx)
	return nil
}

// --- Membership repository ---

type membershipRepo struct{ s *Store }

func (r *membershipRepo) Create(ctx context.Context, m *types.Membership) error {
	r.s.mu.Lock()
	if _, exists := r.s.memberships[m.ID]; !exists {
		r.s.memOrder = append(r.s.memOrder, m.ID)
	}
	r.s.memberships[m.ID] = m.Clone()
	r.s.mu.Unlock()

	r.s.flushAfterMutation(ctx)
	return nil
}

func (r *membershipRepo) GetByID(ctx context.Context, id string) (*types.Membership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.memberships[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundMembership, "membership not found", nil)
	}
	return m.Clone(), nil
}

func (r *membershipRepo) List(ctx context.Context) ([]*types.Membership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*types.Membership, 0, len(r.s.memOrder))
	for _, id := range r.s.memOrder {
		out = append(out, r.s.memberships[id].Clone())
	}
	return out, nil
}

func (r *membershipRepo) ListByUser(ctx context.Context, userID string) ([]*types.Membership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*types.Membership
	for _, id := range r.s.memOrder {
		if m := r.s.memberships[id]; m.UserID == userID {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

func (r *membershipRepo) Update(ctx context.Context, m *types.Membership) error {
	r.s.mu.Lock()
	if _, ok := r.s.memberships[m.ID]; !ok {
		r.s.mu.Unlock()
		return types.NewAppError(types.ErrCodeNotFoundMembership, "membership not found", nil)
	}
	r.s.memberships[m.ID] = m.Clone()
	r.s.mu.Unlock()

	r.s.flushAfterMutation(ctx)
	return nil
}

func (r *membershipRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	if _, ok := r.s.memberships[id]; !ok {
		r.s.mu.Unlock()
		return types.NewAppError(types.ErrCodeNotFoundMembership, "membership not found", nil)
	}
	delete(r.s.memberships, id)
	r.s.memOrder = removeID(r.s.memOrder, id)
	r.s.mu.Unlock()

	r.s.flushAfterMutation(ctx)
	return nil
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// Compile-time interface assertion.
var _ Registry = (*Store)(nil)
