package integrate

import (
	"errors"
	"fmt"

	"chromalyzer/internal/trace"
)

// Service resolves region variable names against a trace store and runs
// the integrator. It owns no state beyond the store reference.
type Service struct {
	store trace.Store
}

func NewService(store trace.Store) *Service {
	return &Service{store: store}
}

// Evaluate looks up the region's traces and computes metrics.
func (s *Service) Evaluate(region Region, params Params) (Metrics, error) {
	signal, err := s.store.Get(region.Variable)
	if err != nil {
		if errors.Is(err, trace.ErrNotFound) {
			return Metrics{}, fmt.Errorf("%w: %q", ErrUnknownVariable, region.Variable)
		}
		return Metrics{}, err
	}
	var baseline *trace.Trace
	if region.NetOfBaseline {
		if region.BaselineVariable == "" {
			return Metrics{}, fmt.Errorf("%w: no baseline variable selected", ErrMissingBaseline)
		}
		baseline, err = s.store.Get(region.BaselineVariable)
		if err != nil {
			if errors.Is(err, trace.ErrNotFound) {
				return Metrics{}, fmt.Errorf("%w: %q not imported", ErrMissingBaseline, region.BaselineVariable)
			}
			return Metrics{}, err
		}
	}
	return Compute(signal, baseline, region, params)
}
