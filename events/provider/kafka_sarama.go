package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/IBM/sarama"
	"github.com/rcrowley/go-metrics"

	"github.com/telemetrydev/propdefs/prom"
	"github.com/telemetrydev/propdefs/settings"
)

type SaramaKafkaProvider struct {
	bootstrap    string
	topic        string
	group        string
	offset       string
	kafkaVersion sarama.KafkaVersion
	ctx          context.Context
}

func NewSaramaProvider(ctx context.Context, bootstrap, topic, group, offset string) (*SaramaKafkaProvider, error) {
	settings.Logger.Info().Str("bootstrap", bootstrap).Str("topic", topic).Str("group", group).Msg("new kafka provider")

	kafkaVersion, err := sarama.ParseKafkaVersion(sarama.V3_0_0_0.String())
	if err != nil {
		return nil, fmt.Errorf("error parsing kafka version: %w", err)
	}
	return &SaramaKafkaProvider{
		bootstrap:    bootstrap,
		topic:        topic,
		group:        group,
		offset:       offset,
		kafkaVersion: kafkaVersion,
		ctx:          ctx,
	}, nil
}

func (kp *SaramaKafkaProvider) CreateConsumer(name string) (ConsumerInterface, error) {
	config := sarama.NewConfig()
	config.Version = kp.kafkaVersion
	// Provides a name for this kafka connection for logging debugging and auditing.
	config.ClientID = name
	config.MetricRegistry = metrics.DefaultRegistry
	switch kp.offset {
	case "earliest":
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	case "latest":
		config.Consumer.Offsets.Initial = sarama.OffsetNewest
	default:
		return nil, fmt.Errorf("bad consumer offset %q", kp.offset)
	}

	group, err := sarama.NewConsumerGroup(strings.Split(kp.bootstrap, ","), kp.group, config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(kp.ctx)
	consumer := &saramaConsumer{
		name:      name,
		topic:     kp.topic,
		group:     group,
		groupName: kp.group,
		data:      make(chan *Message, 1),
		cancel:    cancel,
	}
	go consumer.run(ctx)

	settings.Logger.Debug().Str("name", name).Str("group", kp.group).Str("topic", kp.topic).Msg("consumer subscribed")
	return consumer, nil
}

type saramaConsumer struct {
	name      string
	topic     string
	groupName string
	group     sarama.ConsumerGroup
	data      chan *Message
	cancel    context.CancelFunc

	failOnce sync.Once
	mu       sync.Mutex
	failure  error
}

// run keeps the consumer in the group across rebalances until the session
// fails or the parent context ends.
func (c *saramaConsumer) run(ctx context.Context) {
	for {
		err := c.group.Consume(ctx, []string{c.topic}, c)
		if err != nil {
			c.fail(fmt.Errorf("kafka consume: %w", err))
			return
		}
		// Consume returns nil on rebalance; only a dead context is terminal
		if ctx.Err() != nil {
			c.fail(ctx.Err())
			return
		}
	}
}

func (c *saramaConsumer) fail(err error) {
	c.failOnce.Do(func() {
		c.mu.Lock()
		c.failure = err
		c.mu.Unlock()
		close(c.data)
	})
}

func (c *saramaConsumer) failErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure == nil {
		return fmt.Errorf("kafka consumer closed")
	}
	return c.failure
}

func (c *saramaConsumer) Recv(ctx context.Context) (*Message, error) {
	select {
	case msg, ok := <-c.data:
		if !ok {
			return nil, c.failErr()
		}
		prom.KafkaReceiveMessageBytes.WithLabelValues(c.groupName, msg.Topic).Add(float64(len(msg.Value)))
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *saramaConsumer) Close() error {
	c.cancel()
	return c.group.Close()
}

// Below here is all to be compliant with the sarama ConsumerGroupHandler interface.

// Setup is run at the beginning of a new session, before ConsumeClaim
func (c *saramaConsumer) Setup(session sarama.ConsumerGroupSession) error {
	settings.Logger.Debug().Str("name", c.name).Any("claims", session.Claims()).Msg("consumer session started")
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (c *saramaConsumer) Cleanup(session sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
// Once the Messages() channel is closed, the Handler must finish its
// processing loop and exit.
func (c *saramaConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		// Must return when `session.Context()` is done.
		// If not, will raise `ErrRebalanceInProgress` or `read tcp <ip>:<port>: i/o timeout` when kafka rebalance. see:
		// https://github.com/IBM/sarama/issues/1192
		case <-session.Context().Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			// make copy of ConsumerMessage as sarama seems to reuse the buffers
			// and we process way after we mark this message as complete
			copyKey := make([]byte, len(message.Key))
			copy(copyKey, message.Key)
			copyValue := make([]byte, len(message.Value))
			copy(copyValue, message.Value)
			copied := &Message{
				Key:       copyKey,
				Value:     copyValue,
				Topic:     strings.Clone(message.Topic),
				Partition: message.Partition,
				Offset:    message.Offset,
			}
			select {
			case c.data <- copied:
				session.MarkMessage(message, "")
			case <-session.Context().Done():
				return nil
			}
		}
	}
}
