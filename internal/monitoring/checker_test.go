package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/visibility-cli/internal/model"
)

func failingRuns() []model.Run {
	return []model.Run{
		completeRun(0.8, 0.7, 0.01, 100, time.Hour),
		{Status: model.RunStatusFailed, CreatedAt: fixedNow.Add(-2 * time.Hour)},
		{Status: model.RunStatusFailed, CreatedAt: fixedNow.Add(-3 * time.Hour)},
		{Status: model.RunStatusFailed, CreatedAt: fixedNow.Add(-4 * time.Hour)},
		{Status: model.RunStatusFailed, CreatedAt: fixedNow.Add(-5 * time.Hour)},
	}
}

func newTestChecker(t *testing.T, lister RunLister, hits *atomic.Int32) (*Checker, *time.Time) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	cfg := testMonitoringConfig(srv.URL)
	c := NewChecker(newTestCollector(lister), NewAlerter(cfg), cfg)
	clock := fixedNow
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestChecker_Check(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestChecker(t, &fakeLister{runs: failingRuns()}, &hits)

	assert.Equal(t, 1, c.Check(context.Background()))
	assert.Equal(t, int32(1), hits.Load())
}

func TestChecker_SuppressesRepeats(t *testing.T) {
	var hits atomic.Int32
	c, clock := newTestChecker(t, &fakeLister{runs: failingRuns()}, &hits)
	ctx := context.Background()

	assert.Equal(t, 1, c.Check(ctx))

	*clock = fixedNow.Add(time.Hour)
	assert.Zero(t, c.Check(ctx))

	*clock = fixedNow.Add(25 * time.Hour)
	assert.Equal(t, 1, c.Check(ctx))
	assert.Equal(t, int32(2), hits.Load())
}

func TestChecker_Healthy(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestChecker(t, &fakeLister{runs: []model.Run{
		completeRun(0.9, 0.8, 0.01, 100, time.Hour),
	}}, &hits)

	assert.Zero(t, c.Check(context.Background()))
	assert.Zero(t, hits.Load())
}

func TestChecker_CollectError(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestChecker(t, &fakeLister{listErr: errors.New("db down")}, &hits)
	assert.Zero(t, c.Check(context.Background()))
}

func TestChecker_RunStops(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestChecker(t, &fakeLister{}, &hits)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
