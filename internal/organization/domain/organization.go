package domain

import (
	"errors"
	"regexp"
	"time"
)

// Org represents an organization/tenant. The org is the identity boundary:
// every task, membership, refresh token, and realtime channel is scoped to
// exactly one org.
type Org struct {
	ID        string
	Subdomain string
	Name      string
	CreatedAt time.Time
}

var subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if o.Name == "" {
		return errors.New("name is required")
	}
	if o.Subdomain == "" {
		return errors.New("subdomain is required")
	}
	if !subdomainRe.MatchString(o.Subdomain) {
		return errors.New("subdomain must be a valid DNS label")
	}
	return nil
}
