// Package tenant resolves which organization a request is addressed to.
// Resolution is ordered: an org claim from a validated token wins, then the
// request Host subdomain. A request may carry no tenant signal at all; that
// is not an error, downstream decides whether it can proceed without one.
package tenant

import (
	"context"
	"errors"
	"net"
	"strings"

	orgdomain "taskplane/internal/organization/domain"
)

// ErrUnknownTenant means a tenant signal was present but matched no org.
var ErrUnknownTenant = errors.New("unknown tenant")

// OrgContext identifies the resolved tenant for a request.
type OrgContext struct {
	OrgID     string
	Subdomain string
}

// OrgLookup is the minimal organization repository needed by the resolver.
type OrgLookup interface {
	GetByID(ctx context.Context, id string) (*orgdomain.Org, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*orgdomain.Org, error)
}

// Resolver maps token claims and Host headers to an org.
type Resolver struct {
	orgs       OrgLookup
	baseDomain string
}

// NewResolver returns a resolver for subdomains of baseDomain (e.g. "example.local").
func NewResolver(orgs OrgLookup, baseDomain string) *Resolver {
	return &Resolver{orgs: orgs, baseDomain: strings.ToLower(strings.TrimSpace(baseDomain))}
}

// Resolve returns the org for the request. claimOrgID is the org claim of an
// already validated token, empty when the request is unauthenticated. host is
// the request Host header, port included or not.
//
// The claim is checked first; a claim naming a missing org is ErrUnknownTenant,
// never a fallthrough to the Host header. Without a claim the Host subdomain
// decides. Without either, Resolve returns (nil, nil).
func (r *Resolver) Resolve(ctx context.Context, claimOrgID, host string) (*OrgContext, error) {
	if claimOrgID != "" {
		org, err := r.orgs.GetByID(ctx, claimOrgID)
		if err != nil {
			return nil, err
		}
		if org == nil {
			return nil, ErrUnknownTenant
		}
		return &OrgContext{OrgID: org.ID, Subdomain: org.Subdomain}, nil
	}

	sub, ok := r.subdomain(host)
	if !ok {
		return nil, nil
	}
	org, err := r.orgs.GetBySubdomain(ctx, sub)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrUnknownTenant
	}
	return &OrgContext{OrgID: org.ID, Subdomain: org.Subdomain}, nil
}

// subdomain extracts the tenant label from host, reporting false when host is
// the bare base domain, an unrelated domain, or nests deeper than one label.
func (r *Resolver) subdomain(host string) (string, bool) {
	if r.baseDomain == "" || host == "" {
		return "", false
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	suffix := "." + r.baseDomain
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}
	label := strings.TrimSuffix(host, suffix)
	if label == "" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}
