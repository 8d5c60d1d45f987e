package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/config"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/engine"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
)

// measurementBatch is the envelope the metering collector publishes per tick.
type measurementBatch struct {
	Measurements []models.MeasurementRecord `json:"measurements"`
}

// Consumer feeds measurement batches from Kafka into the alerting engine. The
// engine itself owns no polling; this consumer is the upstream trigger for
// evaluation cycles.
type Consumer struct {
	reader *kafka.Reader
	svc    *engine.Service
	logger *logging.Logger
}

func NewConsumer(cfg config.Config, svc *engine.Service, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		GroupID:  cfg.Kafka.GroupID,
		Topic:    cfg.Kafka.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, svc: svc, logger: logger}
}

// Start consumes until the context is cancelled. Malformed messages are
// logged and skipped; an evaluation error never stops the loop.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("kafka consumer started on topic %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Infof("kafka consumer stopped")
				return
			}
			c.logger.Errorf("read message failed: %v", err)
			continue
		}

		var batch measurementBatch
		if err := json.Unmarshal(msg.Value, &batch); err != nil {
			c.logger.Errorf("unmarshal measurement batch failed: %v", err)
			continue
		}
		if len(batch.Measurements) == 0 {
			c.logger.Warnf("empty measurement batch, skipping")
			continue
		}

		if _, err := c.svc.Evaluate(ctx, batch.Measurements); err != nil {
			c.logger.Errorf("evaluation cycle failed: %v", err)
		}
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("failed to close kafka reader: %v", err)
	}
}
