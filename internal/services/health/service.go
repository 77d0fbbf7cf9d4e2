package health

import (
	"context"
	"sort"
	"time"
)

// Check reports a dependency failure as a non-nil error.
type Check func(ctx context.Context) error

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Check
	timeout time.Duration
}

// Status is the health payload returned by /health.
type Status struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: map[string]Check{}, timeout: 2 * time.Second}
}

// Register adds a named check. A nil check is ignored.
func (s *Service) Register(name string, check Check) {
	if check == nil {
		return
	}
	s.checks[name] = check
}

// Status runs every check and reports ok only when all pass.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{OK: true}
	if len(s.checks) == 0 {
		return st
	}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	st.Checks = make(map[string]string, len(names))
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name](cctx)
		cancel()
		if err != nil {
			st.OK = false
			st.Checks[name] = err.Error()
			continue
		}
		st.Checks[name] = "ok"
	}
	return st
}

// Staleness fails when last is zero or older than maxAge.
func Staleness(last func() time.Time, maxAge time.Duration) Check {
	return func(ctx context.Context) error {
		t := last()
		if t.IsZero() {
			return errNeverSucceeded
		}
		if age := time.Since(t); age > maxAge {
			return staleError{age: age.Round(time.Second)}
		}
		return nil
	}
}
