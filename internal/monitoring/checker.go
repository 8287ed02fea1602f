package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker evaluates the recent run history on a timer and posts alerts.
// An alert type that already fired is held back until the lookback window
// has passed, so a long failure streak produces one notification per window.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
	now       func() time.Time

	mu       sync.Mutex
	lastSent map[AlertType]time.Time
}

// NewChecker wires a collector and alerter into a periodic checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		now:       time.Now,
		lastSent:  make(map[AlertType]time.Time),
	}
}

// Run checks once per interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("alert checker running",
		zap.Duration("interval", interval),
		zap.Duration("cooldown", c.cooldown()),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check evaluates one snapshot and returns how many alerts were delivered.
func (c *Checker) Check(ctx context.Context) int {
	log := zap.L().With(zap.String("component", "monitoring.checker"))

	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: collect failed", zap.Error(err))
		return 0
	}

	due := c.due(c.alerter.Evaluate(snap))
	if len(due) == 0 {
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, due)
	if sent > 0 {
		c.mark(due)
	}
	log.Info("monitoring: alerts posted",
		zap.Int("due", len(due)),
		zap.Int("sent", sent),
		zap.Int("runs", snap.RunsTotal),
	)
	return sent
}

func (c *Checker) cooldown() time.Duration {
	hours := c.cfg.LookbackWindowHours
	if hours <= 0 {
		hours = 1
	}
	return time.Duration(hours) * time.Hour
}

// due drops alerts whose type fired within the cooldown.
func (c *Checker) due(alerts []Alert) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var out []Alert
	for _, a := range alerts {
		if last, ok := c.lastSent[a.Type]; ok && now.Sub(last) < c.cooldown() {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (c *Checker) mark(alerts []Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, a := range alerts {
		c.lastSent[a.Type] = now
	}
}
