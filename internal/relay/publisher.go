package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// Publisher delivers broadcasts to local members immediately and forwards
// them to the topic for the other nodes.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
	origin   string
	local    Broadcaster
	logger   *slog.Logger

	mu        sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPublisher wraps an async producer. origin identifies this node.
func NewPublisher(producer sarama.AsyncProducer, topic, origin string, local Broadcaster, logger *slog.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		origin:   origin,
		local:    local,
		logger:   logger,
	}
}

// Start launches the success and error handlers.
func (p *Publisher) Start(ctx context.Context) {
	p.wg.Add(2)
	go p.handleSuccesses(ctx)
	go p.handleErrors(ctx)
}

func (p *Publisher) handleSuccesses(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case msg, ok := <-p.producer.Successes():
			if !ok {
				return
			}
			p.logger.Debug("relay record delivered",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset))
		case <-ctx.Done():
			return
		}
	}
}

func (p *Publisher) handleErrors(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case err, ok := <-p.producer.Errors():
			if !ok {
				return
			}
			p.logger.Error("relay record failed",
				slog.String("topic", err.Msg.Topic),
				slog.Any("error", err.Err))
		case <-ctx.Done():
			return
		}
	}
}

// Broadcast delivers data to the local members of group and queues it for
// the other nodes. It returns the number of local members reached. A full
// producer buffer drops the remote copy rather than blocking.
func (p *Publisher) Broadcast(group string, data []byte) int {
	n := p.local.Broadcast(group, data)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return n
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(group),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte(originHeader), Value: []byte(p.origin)},
		},
	}
	select {
	case p.producer.Input() <- msg:
	default:
		p.logger.Warn("relay producer busy, remote copy dropped", "group", group)
	}
	return n
}

// Close flushes the producer and waits for the handlers.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		p.producer.AsyncClose()
		p.wg.Wait()
		p.logger.Info("relay producer closed")
	})
}
