package narration

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultMaxAttempts = 3

// Strategy drives synthesis through a primary backend with bounded retries
// and falls back to a secondary backend once the retry budget is exhausted.
// Which backend is primary is static configuration, not a per-request choice.
type Strategy struct {
	primary   Provider
	secondary Provider
	logger    *zap.Logger

	maxAttempts int
	baseBackoff time.Duration
}

func NewStrategy(primary, secondary Provider, logger *zap.Logger) *Strategy {
	return &Strategy{
		primary:     primary,
		secondary:   secondary,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: time.Second,
	}
}

// Generate validates the input, retries the primary backend with exponential
// backoff (1s, 2s, 4s), then tries the secondary exactly once. When both
// fail, the primary's error is the one surfaced: the preferred provider's
// root cause is the actionable one. The secondary failure is only logged.
func (s *Strategy) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := s.primary.Validate(req.Text); err != nil {
		return nil, err
	}

	var primaryErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err := s.primary.Synthesize(ctx, req)
		if err == nil {
			return result, nil
		}
		primaryErr = err

		s.logger.Warn("Narration attempt failed",
			zap.String("provider", s.primary.Name()),
			zap.String("job_id", req.JobID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < s.maxAttempts {
			backoff := s.baseBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("narration cancelled: %w", ctx.Err())
			}
		}
	}

	s.logger.Warn("Primary narration backend exhausted, falling back",
		zap.String("primary", s.primary.Name()),
		zap.String("secondary", s.secondary.Name()),
		zap.String("job_id", req.JobID))

	result, err := s.secondary.Synthesize(ctx, req)
	if err != nil {
		s.logger.Error("Fallback narration backend failed",
			zap.String("provider", s.secondary.Name()),
			zap.String("job_id", req.JobID),
			zap.Error(err))
		return nil, fmt.Errorf("narration failed on %s after %d attempts: %w",
			s.primary.Name(), s.maxAttempts, primaryErr)
	}

	return result, nil
}

// EstimateCost projects primary-backend spend without generating anything
func (s *Strategy) EstimateCost(text string) float64 {
	return s.primary.EstimateCost(text)
}

// HealthCheck reports primary backend availability; the secondary is checked
// only when the primary is down
func (s *Strategy) HealthCheck(ctx context.Context) error {
	if err := s.primary.HealthCheck(ctx); err != nil {
		s.logger.Warn("Primary narration backend unhealthy",
			zap.String("provider", s.primary.Name()),
			zap.Error(err))
		return s.secondary.HealthCheck(ctx)
	}
	return nil
}
