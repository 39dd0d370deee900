package kv

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	HashMapStatsName = "xds/hashmap"
)

type hashMapStats struct {
	allocated      atomic.Int64
	entryCount     metric.Int64UpDownCounter
	rehashCount    metric.Int64Counter
	collisionCount metric.Int64Counter
	capacity       metric.Int64ObservableGauge
}

func (stats *hashMapStats) RecordEntryCount(delta int64) {
	if stats == nil || delta == 0 {
		return
	}
	stats.entryCount.Add(context.Background(), delta)
}

func (stats *hashMapStats) IncreaseRehashCount(newCap int) {
	if stats == nil {
		return
	}
	stats.rehashCount.Add(context.Background(), 1)
	stats.allocated.Store(int64(newCap))
}

func (stats *hashMapStats) IncreaseCollisionCount() {
	if stats == nil {
		return
	}
	stats.collisionCount.Add(context.Background(), 1)
}

func (stats *hashMapStats) RecordCapacity(allocated int) {
	if stats == nil {
		return
	}
	stats.allocated.Store(int64(allocated))
}

func newHashMapStats(name string) *hashMapStats {
	meterName := fmt.Sprintf("%s/%s", HashMapStatsName, name)
	stats := &hashMapStats{
		entryCount: lo.Must[metric.Int64UpDownCounter](otel.Meter(meterName).
			Int64UpDownCounter(
				"hashmap.entry.count",
				metric.WithDescription("The number of entries in the hash map."),
			),
		),
		rehashCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"hashmap.rehash.count",
				metric.WithDescription("The number of bucket index reallocations."),
			),
		),
		collisionCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"hashmap.collision.count",
				metric.WithDescription("The number of puts into a non-empty bucket."),
			),
		),
	}
	stats.capacity = lo.Must[metric.Int64ObservableGauge](otel.Meter(meterName).
		Int64ObservableGauge(
			"hashmap.capacity",
			metric.WithDescription("The number of allocated buckets."),
			metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
				ob.Observe(stats.allocated.Load())
				return nil
			}),
		),
	)
	return stats
}
