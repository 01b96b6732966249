package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const deadLetterSuffix = ".dead"

type queueDeclarer interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
}

func DeadLetterQueue(queueName string) string {
	return queueName + deadLetterSuffix
}

func jobQueueArgs(queueName string) amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": DeadLetterQueue(queueName),
	}
}

// declareJobQueue declares the job queue and its dead-letter queue. Publisher
// and consumer must declare with identical arguments or the broker refuses
// the second declaration.
func declareJobQueue(ch queueDeclarer, queueName string) error {
	if _, err := ch.QueueDeclare(DeadLetterQueue(queueName), true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue for %s: %w", queueName, err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, jobQueueArgs(queueName)); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	return nil
}
