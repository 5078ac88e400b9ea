package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	bolt "go.etcd.io/bbolt"
)

// AssetCounter reports how many assets are stored
type AssetCounter interface {
	Count(ctx context.Context) (int, error)
}

var (
	bucketMetrics = []byte("metrics")
	keyCounters   = []byte("counters")
)

// savedCounter is one persisted counter series
type savedCounter struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Collector keeps counters across restarts and refreshes system gauges
type Collector struct {
	db            *bolt.DB
	metrics       *Metrics
	assets        AssetCounter
	storagePath   string
	flushInterval time.Duration
	startTime     time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCollector creates a collector and restores persisted counters into m
func NewCollector(db *bolt.DB, m *Metrics, assets AssetCounter, storagePath string, flushInterval time.Duration) (*Collector, error) {
	if flushInterval == 0 {
		flushInterval = 10 * time.Second
	}

	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMetrics)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics bucket: %w", err)
	}

	c := &Collector{
		db:            db,
		metrics:       m,
		assets:        assets,
		storagePath:   storagePath,
		flushInterval: flushInterval,
		startTime:     time.Now(),
		stopCh:        make(chan struct{}),
	}

	if err := c.loadCounters(); err != nil {
		return nil, err
	}

	return c, nil
}

// Start begins the collector background tasks
func (c *Collector) Start(ctx context.Context) {
	c.collectSystemMetrics(ctx)

	c.wg.Add(1)
	go c.loop(ctx)
}

// Stop stops the collector and persists final values
func (c *Collector) Stop() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	return c.persistCounters()
}

// persistent lists the counters that survive a restart, keyed by metric name
func (m *Metrics) persistent() map[string]prometheus.Collector {
	return map[string]prometheus.Collector{
		"inkwell_assets_generated_total":     m.AssetsGeneratedTotal,
		"inkwell_generation_failures_total":  m.GenerationFailuresTotal,
		"inkwell_generation_fallbacks_total": m.GenerationFallbacksTotal,
		"inkwell_llm_tokens_total":           m.LLMTokensTotal,
		"inkwell_validation_failures_total":  m.ValidationFailuresTotal,
		"inkwell_sanitizations_total":        m.SanitizationsTotal,
		"inkwell_edits_total":                m.EditsTotal,
		"inkwell_exports_total":              m.ExportsTotal,
		"inkwell_proofs_sent_total":          m.ProofsSentTotal,
		"inkwell_proofs_failed_total":        m.ProofsFailedTotal,
	}
}

// loadCounters adds persisted values back onto the live counters
func (c *Collector) loadCounters() error {
	var saved []savedCounter

	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMetrics).Get(keyCounters)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &saved); err != nil {
			saved = nil // Old or corrupt snapshot, start from zero
		}
		return nil
	})
	if err != nil {
		return err
	}

	targets := c.metrics.persistent()
	for _, s := range saved {
		switch counter := targets[s.Name].(type) {
		case *prometheus.CounterVec:
			obs, err := counter.GetMetricWith(s.Labels)
			if err != nil {
				continue // Label set changed between versions
			}
			obs.Add(s.Value)
		case prometheus.Counter:
			counter.Add(s.Value)
		}
	}

	return nil
}

// snapshot gathers the current value of every persistent counter series
func (c *Collector) snapshot() ([]savedCounter, error) {
	families, err := c.metrics.Registry().Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	targets := c.metrics.persistent()
	var out []savedCounter
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		if _, ok := targets[mf.GetName()]; !ok {
			continue
		}
		for _, metric := range mf.GetMetric() {
			s := savedCounter{Name: mf.GetName(), Value: metric.GetCounter().GetValue()}
			if len(metric.GetLabel()) > 0 {
				s.Labels = make(map[string]string, len(metric.GetLabel()))
				for _, lp := range metric.GetLabel() {
					s.Labels[lp.GetName()] = lp.GetValue()
				}
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// persistCounters saves counter values to BoltDB
func (c *Collector) persistCounters() error {
	saved, err := c.snapshot()
	if err != nil {
		return err
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMetrics).Put(keyCounters, data)
	})
}

func (c *Collector) loop(ctx context.Context) {
	defer c.wg.Done()

	flush := time.NewTicker(c.flushInterval)
	defer flush.Stop()
	system := time.NewTicker(5 * time.Second)
	defer system.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-flush.C:
			c.persistCounters()
		case <-system.C:
			c.collectSystemMetrics(ctx)
		}
	}
}

// collectSystemMetrics refreshes uptime, goroutine, storage and asset gauges
func (c *Collector) collectSystemMetrics(ctx context.Context) {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.storagePath != "" {
		if info, err := os.Stat(c.storagePath); err == nil {
			c.metrics.StorageUsedBytes.Set(float64(info.Size()))
		}
	}

	if c.assets != nil {
		if n, err := c.assets.Count(ctx); err == nil {
			c.metrics.AssetsStored.Set(float64(n))
		}
	}
}
