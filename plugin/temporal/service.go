package temporal

import (
	"context"
	"time"
)

// Service implements TimeService with the rule-based Parser and Resolver.
type Service struct {
	parser   *Parser
	resolver *Resolver
}

var _ TimeService = (*Service)(nil)

// NewService creates a time service resolving in loc (IST when nil).
func NewService(loc *time.Location) *Service {
	return &Service{
		parser:   NewParser(),
		resolver: NewResolver(loc),
	}
}

// Location returns the civil timezone used for resolution.
func (s *Service) Location() *time.Location {
	return s.resolver.Location()
}

func (s *Service) Parse(_ context.Context, text string) (Spec, error) {
	return s.parser.Parse(text)
}

func (s *Service) Resolve(_ context.Context, spec Spec, reference time.Time) (ResolvedSchedule, error) {
	return s.resolver.Resolve(spec, reference)
}

func (s *Service) ParseAndResolve(ctx context.Context, text string, reference time.Time) (Spec, ResolvedSchedule, error) {
	spec, err := s.Parse(ctx, text)
	if err != nil {
		return nil, ResolvedSchedule{}, err
	}
	resolved, err := s.Resolve(ctx, spec, reference)
	if err != nil {
		return spec, ResolvedSchedule{}, err
	}
	return spec, resolved, nil
}
