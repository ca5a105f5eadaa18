package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
	"github.com/Jan-H2M/vidsum/pkg/utils"
)

// AMQPPublisher enqueues step messages through RabbitMQ. Delays are applied
// with a local timer before publishing, so no delayed-message plugin is
// required; a crash inside the delay window drops the message, same as the
// other transports.
type AMQPPublisher struct {
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

func NewAMQPPublisher(conn *amqp.Connection, exchange, routingKey string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true, // durable
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AMQPPublisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

func (p *AMQPPublisher) Enqueue(ctx context.Context, msg entity.StepMessage, delay time.Duration) (string, error) {
	id := dispatchID(msg)
	body, err := utils.ToRawMessage(msg)
	if err != nil {
		return "", err
	}

	publish := func() {
		err := p.channel.PublishWithContext(context.Background(),
			p.exchange,
			p.routingKey,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        body,
			},
		)
		if err != nil {
			log.Printf("failed to publish step %s for job %s: %v", msg.Step, msg.JobID, err)
		}
	}

	if delay > 0 {
		log.Printf("scheduling step %s for job %s in %s", msg.Step, msg.JobID, delay)
		time.AfterFunc(delay, publish)
		return id, nil
	}

	return id, p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// AMQPConsumer feeds received step messages to the processor.
type AMQPConsumer struct {
	channel     *amqp.Channel
	exchange    string
	routingKey  string
	queue       string
	proc        Processor
	prefetchCnt int
}

func NewAMQPConsumer(conn *amqp.Connection, exchange, routingKey, queue string, proc Processor) (*AMQPConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	consumer := &AMQPConsumer{
		channel:     ch,
		exchange:    exchange,
		routingKey:  routingKey,
		queue:       queue,
		proc:        proc,
		prefetchCnt: 1,
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return nil, err
	}
	if err := ch.Qos(consumer.prefetchCnt, 0, false); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *AMQPConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("step consumer shutting down")
			return nil
		case delivery, ok := <-msgs:
			if !ok {
				log.Println("RabbitMQ channel closed")
				return nil
			}

			var msg entity.StepMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				log.Println("failed to unmarshal step message:", err)
				delivery.Nack(false, false)
				continue
			}

			// The orchestrator owns retries, so every delivery is acked
			// after a single processing attempt.
			go func(msg entity.StepMessage, delivery amqp.Delivery) {
				c.proc.ProcessStep(ctx, msg)
				delivery.Ack(false)
			}(msg, delivery)
		}
	}
}
