package core

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/opalchain/qbft/qbft/messages"
	"github.com/opalchain/qbft/qbft/types"
)

var meter = otel.Meter("github.com/opalchain/qbft")

// MetricsHandler records round-engine metrics. All methods are nil-safe so
// library users without a meter pipeline pay nothing.
type MetricsHandler struct {
	option metric.MeasurementOption

	height         metric.Int64Histogram
	round          metric.Int64Histogram
	sentMessages   metric.Int64Counter
	importedBlocks metric.Int64Counter
}

func NewMetricsHandler(attrs ...attribute.KeyValue) (*MetricsHandler, error) {
	mh := &MetricsHandler{option: metric.WithAttributes(attrs...)}

	var err error
	if mh.height, err = meter.Int64Histogram("height"); err != nil {
		return nil, err
	}
	if mh.round, err = meter.Int64Histogram("round"); err != nil {
		return nil, err
	}
	if mh.sentMessages, err = meter.Int64Counter("sent_messages"); err != nil {
		return nil, err
	}
	if mh.importedBlocks, err = meter.Int64Counter("imported_blocks"); err != nil {
		return nil, err
	}
	return mh, nil
}

func (mh *MetricsHandler) RecordRoundStart(ctx context.Context, rid types.RoundIdentifier) {
	if mh == nil {
		return
	}
	mh.height.Record(ctx, int64(rid.Height), mh.option)
	mh.round.Record(ctx, int64(rid.Round), mh.option)
}

func (mh *MetricsHandler) IncSentMessage(ctx context.Context, t messages.MessageType) {
	if mh == nil {
		return
	}
	mh.sentMessages.Add(ctx, 1, mh.option,
		metric.WithAttributes(attribute.String("type", t.String())))
}

func (mh *MetricsHandler) RecordImportedBlock(ctx context.Context, rid types.RoundIdentifier) {
	if mh == nil {
		return
	}
	mh.importedBlocks.Add(ctx, 1, mh.option,
		metric.WithAttributes(attribute.Int64("round", int64(rid.Round))))
}
