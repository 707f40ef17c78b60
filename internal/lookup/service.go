package lookup

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/appmeta/internal/metrics"
)

// Service fans a batch of package IDs out to an Engine, one goroutine per ID.
type Service struct {
	engine Engine
	logger *zap.Logger
}

// NewService constructs a Service around engine.
func NewService(engine Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, logger: logger}
}

// ValidateBatch rejects empty batches, batches over MaxBatchSize and blank IDs.
func ValidateBatch(ids []PackageID) error {
	if len(ids) == 0 {
		return ErrEmptyBatch
	}
	if len(ids) > MaxBatchSize {
		return ErrBatchTooLarge
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return ErrEmptyID
		}
	}
	return nil
}

// Stream starts one lookup per ID and returns a channel that yields results in
// completion order. Packages that resolve to ErrNotFound are dropped. The
// channel is closed once every lookup has finished; callers that stop reading
// early should cancel ctx so the remaining lookups can release their
// connections.
func (s *Service) Stream(ctx context.Context, ids []PackageID) (<-chan Result, error) {
	if err := ValidateBatch(ids); err != nil {
		return nil, err
	}
	// Sized to the batch so producers never block on a departed consumer.
	out := make(chan Result, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id PackageID) {
			defer wg.Done()
			s.run(ctx, id, out)
		}(id)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func (s *Service) run(ctx context.Context, id PackageID, out chan<- Result) {
	md, err := s.engine.Run(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		metrics.ObserveLookup(metrics.OutcomeNotFound)
		s.logger.Debug("package not found", zap.String("package_id", id))
		return
	case err != nil:
		metrics.ObserveLookup(metrics.OutcomeError)
		if ctx.Err() == nil {
			s.logger.Warn("lookup failed", zap.String("package_id", id), zap.Error(err))
		}
		out <- Result{ID: id, Err: err}
		return
	}
	metrics.ObserveLookup(metrics.OutcomeFound)
	out <- Result{ID: id, Metatags: md}
}

// Search resolves every ID and returns the found records in completion order.
// The first failed lookup aborts the batch: its error is returned and the
// remaining lookups are canceled.
func (s *Service) Search(ctx context.Context, ids []PackageID) ([]Metatags, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := s.Stream(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make([]Metatags, 0, len(ids))
	for res := range results {
		if res.Err != nil {
			return nil, res.Err
		}
		found = append(found, res.Metatags)
	}
	return found, nil
}
