package tree

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RBTreeStatsName = "xds/rbtree"
	fixupInsert     = "insert"
	fixupRemove     = "remove"
)

type rbTreeStats struct {
	nodeCount     metric.Int64UpDownCounter
	rotationCount metric.Int64Counter
	fixupCount    metric.Int64Counter
}

func (stats *rbTreeStats) RecordNodeCount(delta int64) {
	if stats == nil {
		return
	}
	stats.nodeCount.Add(context.Background(), delta)
}

func (stats *rbTreeStats) IncreaseRotationCount(dir RBDirection) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("rbtree.rotation.direction", dir.String()),
	)
	stats.rotationCount.Add(context.Background(), 1, metric.WithAttributeSet(as))
}

func (stats *rbTreeStats) IncreaseFixupCount(op string) {
	if stats == nil {
		return
	}
	as := attribute.NewSet(
		attribute.String("rbtree.fixup.op", op),
	)
	stats.fixupCount.Add(context.Background(), 1, metric.WithAttributeSet(as))
}

func newRBTreeStats(name string) *rbTreeStats {
	meterName := fmt.Sprintf("%s/%s", RBTreeStatsName, name)
	return &rbTreeStats{
		nodeCount: lo.Must[metric.Int64UpDownCounter](otel.Meter(meterName).
			Int64UpDownCounter(
				"rbtree.node.count",
				metric.WithDescription("The number of nodes in the rbtree."),
			),
		),
		rotationCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.rotation.count",
				metric.WithDescription("The number of rotations to rebalance the rbtree."),
			),
		),
		fixupCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.fixup.count",
				metric.WithDescription("The number of insert and remove fix-ups."),
			),
		),
	}
}
