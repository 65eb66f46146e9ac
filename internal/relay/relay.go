// Package relay carries WebSocket broadcasts between server nodes over
// Kafka so a user's sessions receive events no matter which node they are
// connected to.
package relay

import (
	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

const originHeader = "origin"

// Broadcaster delivers a frame to the members of a group on this node.
type Broadcaster interface {
	Broadcast(group string, data []byte) int
}

// NodeID returns a fresh identifier for this process.
func NodeID() string {
	return uuid.NewString()
}

// ProducerConfig returns the sarama configuration used by the publisher.
func ProducerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	return cfg
}

// ConsumerConfig returns the sarama configuration used by the consumer.
// Only records produced after the node starts are of interest.
func ConsumerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	return cfg
}

// GroupID returns the consumer group id for a node. Every node uses its own
// group so each one sees every record.
func GroupID(nodeID string) string {
	return "mauzenfan-relay-" + nodeID
}
