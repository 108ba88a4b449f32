package routing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// TransferRouter picks where a caller goes when the voice agent hands off to a person.
//
// Multi-tenancy: req.CompanyID must always be set.
type TransferRouter interface {
	RouteTransfer(ctx context.Context, req TransferRequest) (Decision, error)
}

type TransferRequest struct {
	CompanyID string
	CallID    string
	From      string
	To        string

	// Reason is the session's transfer reason (caller_request, retries_exhausted, no_capacity).
	Reason string
}

// DestinationSource lists the dispatcher numbers eligible for a company.
type DestinationSource interface {
	Destinations(ctx context.Context, companyID string) ([]WeightedDestination, error)
}

type WeightedDestination struct {
	// TargetURI is a provider-agnostic dial target.
	// Examples:
	// - +15551234567
	// - sip:dispatch@pbx.example.com
	TargetURI string

	// Weight must be > 0.
	Weight int
}

// StaticDestinations serves the same list to every company.
type StaticDestinations []WeightedDestination

func (s StaticDestinations) Destinations(context.Context, string) ([]WeightedDestination, error) {
	return s, nil
}

// ParseWeightedDestinations parses "target:weight,target" lists. A missing weight is 1.
// SIP targets keep their scheme colon; only a numeric suffix is read as a weight,
// so a SIP target with a port needs an explicit weight (sip:a@pbx:5060:1).
func ParseWeightedDestinations(raw string) ([]WeightedDestination, error) {
	var out []WeightedDestination
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		target, weight := part, 1
		if i := strings.LastIndex(part, ":"); i > 0 {
			if w, err := strconv.Atoi(strings.TrimSpace(part[i+1:])); err == nil {
				if w <= 0 {
					return nil, fmt.Errorf("routing: weight must be > 0 in %q", part)
				}
				target, weight = strings.TrimSpace(part[:i]), w
			}
		}
		if target == "" {
			return nil, fmt.Errorf("routing: empty target in %q", part)
		}
		out = append(out, WeightedDestination{TargetURI: target, Weight: weight})
	}
	return out, nil
}
