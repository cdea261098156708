package capture

import (
	"context"
	"strings"

	"github.com/persistorai/auditrail/internal/models"
)

// DefaultSoftDeleteProperty is the flag property checked for soft deletes.
const DefaultSoftDeleteProperty = "IsDeleted"

// Options configures automatic capture. It is read-only once passed to NewCapturer.
type Options struct {
	EnableAutomaticLogging bool
	ExcludedEntityTypes    []string // registered entity names
	ExcludedProperties     []string
	TrackSoftDeletes       bool
	SoftDeletePropertyName string

	// UserIDResolver returns the acting user. An empty result records DefaultActor.
	UserIDResolver func(ctx context.Context) string

	// TenantIDResolver returns the tenant for the current operation, if any.
	TenantIDResolver func(ctx context.Context) (string, bool)
}

// DefaultOptions returns options with logging and soft-delete tracking enabled
// and resolvers that read WithActor and WithTenant from the context.
func DefaultOptions() Options {
	return Options{
		EnableAutomaticLogging: true,
		TrackSoftDeletes:       true,
		SoftDeletePropertyName: DefaultSoftDeleteProperty,
		UserIDResolver:         ActorFromContext,
		TenantIDResolver:       TenantFromContext,
	}
}

func (o Options) softDeleteProperty() string {
	if o.SoftDeletePropertyName == "" {
		return DefaultSoftDeleteProperty
	}

	return o.SoftDeletePropertyName
}

func (o Options) actor(ctx context.Context) string {
	if o.UserIDResolver != nil {
		if id := o.UserIDResolver(ctx); id != "" {
			return id
		}
	}

	return models.DefaultActor
}

func (o Options) tenant(ctx context.Context) *string {
	if o.TenantIDResolver == nil {
		return nil
	}

	id, ok := o.TenantIDResolver(ctx)
	if !ok || id == "" {
		return nil
	}

	return &id
}

// Exclusions holds the excluded entity names and property names as sets.
type Exclusions struct {
	entities   map[string]struct{}
	properties map[string]struct{}
}

// NewExclusions resolves the exclusion lists of opts once.
func NewExclusions(opts Options) Exclusions {
	return Exclusions{
		entities:   toSet(opts.ExcludedEntityTypes),
		properties: toSet(opts.ExcludedProperties),
	}
}

// EntityExcluded reports whether entries for the named entity are suppressed.
func (e Exclusions) EntityExcluded(name string) bool {
	_, ok := e.entities[name]
	return ok
}

// PropertyExcluded reports whether the property never appears in a diff.
func (e Exclusions) PropertyExcluded(name string) bool {
	_, ok := e.properties[name]
	return ok
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}

	return set
}

type actorKey struct{}
type tenantKey struct{}

// WithActor attaches the acting user to ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}

	return ""
}

// WithTenant attaches a tenant identifier to ctx.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFromContext returns the tenant attached by WithTenant.
func TenantFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tenantKey{}).(string)
	return v, ok && v != ""
}
