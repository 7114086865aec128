package tenancy

import (
	"net"
	"strings"
)

// ResolverConfig controls how development and preview hosts are handled.
type ResolverConfig struct {
	// FallbackSubdomain is returned for loopback and preview hosts so the
	// pipeline stays exercisable without real DNS.
	FallbackSubdomain string
	// PreviewSuffixes lists ephemeral-deployment domain suffixes,
	// e.g. ".vercel.app".
	PreviewSuffixes []string
}

// Resolver derives the tenant subdomain from an inbound Host header.
// It performs no I/O and is safe for concurrent use.
type Resolver struct {
	cfg ResolverConfig
}

// NewResolver builds a Resolver, defaulting the fallback subdomain to
// "example" and the preview suffixes to Vercel deployments.
func NewResolver(cfg ResolverConfig) *Resolver {
	if strings.TrimSpace(cfg.FallbackSubdomain) == "" {
		cfg.FallbackSubdomain = "example"
	}
	if cfg.PreviewSuffixes == nil {
		cfg.PreviewSuffixes = []string{".vercel.app"}
	}
	return &Resolver{cfg: cfg}
}

// Resolve extracts the tenant subdomain from a Host header value. An empty
// result means no tenant subdomain is present; callers treat that as
// "no tenant", not an error.
func (r *Resolver) Resolve(hostHeader string) string {
	host := strings.ToLower(strings.TrimSpace(hostHeader))
	if host == "" {
		return ""
	}

	if stripped, _, err := net.SplitHostPort(host); err == nil {
		host = stripped
	}
	host = strings.TrimSuffix(host, ".")

	if isLoopback(host) {
		return r.cfg.FallbackSubdomain
	}

	// acme.localhost carries a usable label even without DNS.
	if strings.HasSuffix(host, ".localhost") {
		if label := strings.TrimSuffix(host, ".localhost"); label != "" && !strings.Contains(label, ".") {
			return label
		}
		return r.cfg.FallbackSubdomain
	}

	for _, suffix := range r.cfg.PreviewSuffixes {
		if suffix != "" && strings.HasSuffix(host, suffix) {
			return r.cfg.FallbackSubdomain
		}
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}

	sub := labels[0]
	if sub == "www" {
		return ""
	}
	return sub
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
