package routing

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// RoutingEngine evaluates where a transferred call goes.
//
// Priority:
//  1) Active on-call override
//  2) Weighted dispatcher selection
//  3) Callback notice
//
// Return routing decision only. No side effects beyond the override audit.
type RoutingEngine struct {
	Overrides    *AdminOverrideEngine
	Destinations DestinationSource

	mu  sync.Mutex
	RNG *rand.Rand
}

func NewRoutingEngine(overrides *AdminOverrideEngine, dests DestinationSource, rng *rand.Rand) *RoutingEngine {
	return &RoutingEngine{Overrides: overrides, Destinations: dests, RNG: rng}
}

func (e *RoutingEngine) RouteTransfer(ctx context.Context, req TransferRequest) (Decision, error) {
	if req.CompanyID == "" {
		return Decision{}, errors.New("routing: company_id required")
	}

	// 1) Silent, expiry-based overrides
	if e.Overrides != nil {
		d, applied, err := e.Overrides.Decide(ctx, req)
		if err != nil {
			return Decision{}, err
		}
		if applied {
			return d, nil
		}
	}

	// 2) Weighted destination selection
	if e.Destinations != nil {
		dests, err := e.Destinations.Destinations(ctx, req.CompanyID)
		if err != nil {
			return Decision{}, err
		}
		if dest, ok := e.pickDestination(dests); ok {
			return Decision{CompanyID: req.CompanyID, Action: ActionDial, ConnectTo: dest, Reason: "selected"}, nil
		}
	}

	// 3) Nobody to take the call
	return Decision{CompanyID: req.CompanyID, Action: ActionCallback, Reason: "no_destination"}, nil
}

func (e *RoutingEngine) pickDestination(dests []WeightedDestination) (string, bool) {
	var total int
	for _, d := range dests {
		if d.Weight <= 0 {
			continue
		}
		total += d.Weight
	}
	if total <= 0 {
		return "", false
	}

	e.mu.Lock()
	if e.RNG == nil {
		e.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	r := e.RNG.Intn(total) // 0..total-1
	e.mu.Unlock()

	var acc int
	for _, d := range dests {
		if d.Weight <= 0 {
			continue
		}
		acc += d.Weight
		if r < acc {
			return d.TargetURI, true
		}
	}
	return "", false
}
