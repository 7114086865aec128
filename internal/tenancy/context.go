package tenancy

import (
	"context"
	"errors"

	"github.com/sellercentry/centry/internal/directory"
)

// State is the outcome of composing subdomain resolution, directory lookup
// and the access check for one request. The four states drive different
// user-facing messaging and retry semantics and are never collapsed.
type State int

const (
	// StateNoTenant means the host carried no resolvable tenant subdomain
	// or no directory row matches it.
	StateNoTenant State = iota
	// StateDirectoryError means a tenant subdomain was present but the
	// directory could not answer; retryable.
	StateDirectoryError
	// StateAccessDenied means the tenant resolved but the user holds no
	// membership for it.
	StateAccessDenied
	// StateAuthorized means the tenant resolved and the user may proceed.
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateNoTenant:
		return "no_tenant"
	case StateDirectoryError:
		return "directory_error"
	case StateAccessDenied:
		return "access_denied"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Context is the request-scoped composite the rest of the application
// consumes: the resolved tenant plus the access decision.
type Context struct {
	Subdomain string
	Tenant    *directory.Tenant
	State     State
	Err       error
}

// AccessChecker reports whether a user holds membership for a tenant.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID, tenantID string) (bool, error)
}

// Builder composes the resolver, directory and access verifier into
// per-request tenant contexts.
type Builder struct {
	resolver *Resolver
	dir      *directory.Directory
	access   AccessChecker
}

// NewBuilder wires the three collaborators together.
func NewBuilder(resolver *Resolver, dir *directory.Directory, access AccessChecker) (*Builder, error) {
	if resolver == nil {
		return nil, errors.New("tenancy: resolver is required")
	}
	if dir == nil {
		return nil, errors.New("tenancy: directory is required")
	}
	if access == nil {
		return nil, errors.New("tenancy: access checker is required")
	}
	return &Builder{resolver: resolver, dir: dir, access: access}, nil
}

// Build resolves the host to a tenant and, when userID is non-empty, checks
// the user's membership. Every call observes current committed state; there
// is no per-process cache of tenants or memberships.
func (b *Builder) Build(ctx context.Context, hostHeader, userID string) Context {
	sub := b.resolver.Resolve(hostHeader)
	if sub == "" {
		return Context{State: StateNoTenant}
	}

	tenant, err := b.dir.LookupBySubdomain(ctx, sub)
	if err != nil {
		if errors.Is(err, directory.ErrTenantNotFound) {
			return Context{Subdomain: sub, State: StateNoTenant, Err: err}
		}
		return Context{Subdomain: sub, State: StateDirectoryError, Err: err}
	}

	if userID == "" {
		return Context{Subdomain: sub, Tenant: tenant, State: StateAccessDenied, Err: nil}
	}

	ok, err := b.access.HasAccess(ctx, userID, tenant.TenantID)
	if err != nil {
		return Context{Subdomain: sub, Tenant: tenant, State: StateDirectoryError, Err: err}
	}
	if !ok {
		return Context{Subdomain: sub, Tenant: tenant, State: StateAccessDenied}
	}

	return Context{Subdomain: sub, Tenant: tenant, State: StateAuthorized}
}
