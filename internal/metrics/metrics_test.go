package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLookup(t *testing.T) {
	before := testutil.ToFloat64(lookupsTotal.WithLabelValues(OutcomeNotFound))
	ObserveLookup(OutcomeNotFound)
	ObserveLookup(OutcomeNotFound)
	if got := testutil.ToFloat64(lookupsTotal.WithLabelValues(OutcomeNotFound)); got != before+2 {
		t.Errorf("expected lookups_total{not_found} to be %f, got %f", before+2, got)
	}
}

func TestObserveCache(t *testing.T) {
	before := testutil.ToFloat64(cacheRequestsTotal.WithLabelValues(CacheHit))
	ObserveCache(CacheHit)
	if got := testutil.ToFloat64(cacheRequestsTotal.WithLabelValues(CacheHit)); got != before+1 {
		t.Errorf("expected cache_requests_total{hit} to be %f, got %f", before+1, got)
	}
}

func TestObserveUpstream(t *testing.T) {
	ObserveUpstream("cse", 200, 150*time.Millisecond)
	ObserveUpstream("cse", 0, time.Second)
	if val := testutil.CollectAndCount(upstreamRequestDurationSeconds); val < 2 {
		t.Errorf("expected at least two upstream series, got %d", val)
	}
}

func TestObserveRateLimited(t *testing.T) {
	before := testutil.ToFloat64(rateLimitedTotal)
	ObserveRateLimited()
	if got := testutil.ToFloat64(rateLimitedTotal); got != before+1 {
		t.Errorf("expected rate_limited_total to be %f, got %f", before+1, got)
	}
}
