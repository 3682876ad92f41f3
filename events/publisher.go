package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"fantasy-sports-system/utils"
)

// Publisher emits settlement outcome events. A nil *KafkaPublisher is a valid
// disabled publisher; publish failures are logged and swallowed so they can
// never fail a settlement run.
type Publisher interface {
	PublishMatchSettled(ctx context.Context, e MatchSettled)
	PublishPrizeCredited(ctx context.Context, e PrizeCredited)
}

type KafkaPublisher struct {
	settled *kafka.Writer
	prizes  *kafka.Writer
}

func NewKafkaPublisher(brokers string) *KafkaPublisher {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:                   kafka.TCP(brokers),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
	}
	return &KafkaPublisher{
		settled: newWriter(TopicMatchSettled),
		prizes:  newWriter(TopicPrizeCredited),
	}
}

func (p *KafkaPublisher) PublishMatchSettled(ctx context.Context, e MatchSettled) {
	if p == nil {
		return
	}
	e.TsUnixMs = time.Now().UnixMilli()
	p.write(ctx, p.settled, e.MatchID, e)
}

func (p *KafkaPublisher) PublishPrizeCredited(ctx context.Context, e PrizeCredited) {
	if p == nil {
		return
	}
	e.TsUnixMs = time.Now().UnixMilli()
	p.write(ctx, p.prizes, e.UserID, e)
}

func (p *KafkaPublisher) write(ctx context.Context, w *kafka.Writer, key string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		utils.Log.Errorw("marshal event", "topic", w.Topic, "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  time.Now(),
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		utils.Log.Errorw("publish event", "topic", w.Topic, "error", err)
	}
}

func (p *KafkaPublisher) Close() {
	if p == nil {
		return
	}
	_ = p.settled.Close()
	_ = p.prizes.Close()
}
