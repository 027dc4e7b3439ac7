package registry

import (
	"log/slog"
	"sync"
)

// Registry holds entity and relationship type specs. Kinds share one
// namespace across both tables. Safe for concurrent use: many readers, one
// writer.
type Registry struct {
	mu            sync.RWMutex
	entities      map[string]EntityTypeSpec
	relationships map[string]RelationshipTypeSpec
	entityOrder   []string
	relOrder      []string

	strict bool
	lazy   bool
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithStrict makes re-registration of an existing kind an error.
func WithStrict() Option {
	return func(r *Registry) { r.strict = true }
}

// WithLazyResolution defers the relationship endpoint check from registration
// to ResolveRelationship.
func WithLazyResolution() Option {
	return func(r *Registry) { r.lazy = true }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entities:      make(map[string]EntityTypeSpec),
		relationships: make(map[string]RelationshipTypeSpec),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strict reports whether duplicate registration is an error.
func (r *Registry) Strict() bool { return r.strict }

// RegisterEntityType adds or replaces an entity kind.
func (r *Registry) RegisterEntityType(spec EntityTypeSpec) error {
	if spec.Kind == "" {
		return &InvalidSpecError{Kind: spec.Kind, Reason: "kind is required"}
	}
	if spec.IdentityField == "" {
		return &InvalidSpecError{Kind: spec.Kind, Reason: "identity field is required"}
	}
	if spec.Label == "" {
		spec.Label = spec.Kind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.claimKind(spec.Kind, true); err != nil {
		return err
	}
	if _, exists := r.entities[spec.Kind]; !exists {
		r.entityOrder = append(r.entityOrder, spec.Kind)
	}
	r.entities[spec.Kind] = spec.clone()

	r.logger.Debug("Registered entity type", "kind", spec.Kind, "label", spec.Label, "identity_field", spec.IdentityField)
	return nil
}

// RegisterRelationshipType adds or replaces a relationship kind. Unless the
// registry resolves lazily, both endpoint kinds must already be registered
// entity kinds.
func (r *Registry) RegisterRelationshipType(spec RelationshipTypeSpec) error {
	if spec.Kind == "" {
		return &InvalidSpecError{Kind: spec.Kind, Reason: "kind is required"}
	}
	if spec.SourceKind == "" || spec.TargetKind == "" {
		return &InvalidSpecError{Kind: spec.Kind, Reason: "source and target kinds are required"}
	}
	if spec.Label == "" {
		spec.Label = spec.Kind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lazy {
		if err := r.checkEndpoints(spec); err != nil {
			return err
		}
	}
	if err := r.claimKind(spec.Kind, false); err != nil {
		return err
	}
	if _, exists := r.relationships[spec.Kind]; !exists {
		r.relOrder = append(r.relOrder, spec.Kind)
	}
	r.relationships[spec.Kind] = spec.clone()

	r.logger.Debug("Registered relationship type", "kind", spec.Kind, "label", spec.Label,
		"source", spec.SourceKind, "target", spec.TargetKind)
	return nil
}

// claimKind enforces the shared namespace. Caller must hold the write lock.
func (r *Registry) claimKind(kind string, asEntity bool) error {
	_, isEntity := r.entities[kind]
	_, isRel := r.relationships[kind]
	if !isEntity && !isRel {
		return nil
	}
	if r.strict {
		return &DuplicateKindError{Kind: kind}
	}
	r.logger.Warn("Replacing registered kind", "kind", kind)
	// a kind moving between tables leaves no stale entry behind
	if isEntity && !asEntity {
		delete(r.entities, kind)
		r.entityOrder = removeString(r.entityOrder, kind)
	}
	if isRel && asEntity {
		delete(r.relationships, kind)
		r.relOrder = removeString(r.relOrder, kind)
	}
	return nil
}

func (r *Registry) checkEndpoints(spec RelationshipTypeSpec) error {
	if _, ok := r.entities[spec.SourceKind]; !ok {
		return &UnknownReferencedKindError{Relationship: spec.Kind, Kind: spec.SourceKind, Role: "source"}
	}
	if _, ok := r.entities[spec.TargetKind]; !ok {
		return &UnknownReferencedKindError{Relationship: spec.Kind, Kind: spec.TargetKind, Role: "target"}
	}
	return nil
}

// Resolve returns the spec registered under kind, either an EntityTypeSpec or
// a RelationshipTypeSpec.
func (r *Registry) Resolve(kind string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if spec, ok := r.entities[kind]; ok {
		return spec.clone(), nil
	}
	if spec, ok := r.relationships[kind]; ok {
		return spec.clone(), nil
	}
	return nil, &NotFoundError{Kind: kind}
}

// ResolveEntity returns the entity spec registered under kind.
func (r *Registry) ResolveEntity(kind string) (EntityTypeSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.entities[kind]
	if !ok {
		return EntityTypeSpec{}, &NotFoundError{Kind: kind}
	}
	return spec.clone(), nil
}

// ResolveRelationship returns the relationship spec registered under kind.
// With lazy resolution, endpoint kinds are checked here.
func (r *Registry) ResolveRelationship(kind string) (RelationshipTypeSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.relationships[kind]
	if !ok {
		return RelationshipTypeSpec{}, &NotFoundError{Kind: kind}
	}
	if r.lazy {
		if err := r.checkEndpoints(spec); err != nil {
			return RelationshipTypeSpec{}, err
		}
	}
	return spec.clone(), nil
}

// IsEntityKind reports whether kind is a registered entity kind.
func (r *Registry) IsEntityKind(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entities[kind]
	return ok
}

// IsRelationshipKind reports whether kind is a registered relationship kind.
func (r *Registry) IsRelationshipKind(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.relationships[kind]
	return ok
}

// EntityKinds returns registered entity kinds in registration order.
func (r *Registry) EntityKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.entityOrder...)
}

// RelationshipKinds returns registered relationship kinds in registration order.
func (r *Registry) RelationshipKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.relOrder...)
}

// EntityLabel returns the node label for an entity kind.
func (r *Registry) EntityLabel(kind string) (string, error) {
	spec, err := r.ResolveEntity(kind)
	if err != nil {
		return "", err
	}
	return spec.Label, nil
}

// RelationshipLabel returns the edge label for a relationship kind.
func (r *Registry) RelationshipLabel(kind string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.relationships[kind]
	if !ok {
		return "", &NotFoundError{Kind: kind}
	}
	return spec.Label, nil
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
