package workflow

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/utils"
	"cloud.google.com/go/pubsub"
	"github.com/sirupsen/logrus"
)

var (
	memberMutexMap = make(map[int]*sync.Mutex)
	globalMutex    = &sync.Mutex{}
)

// RunOutboxReceiver subscribes to both outbox topics and hands messages to
// the processor. Messages for the same member are serialized within this
// instance through a per-member mutex; utils.MemberLock inside the processor
// covers serialization across instances.
func RunOutboxReceiver(ctx context.Context, processor *Processor) error {
	logger := processor.Logger

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	subscriptions := []struct {
		topicEnv string
		subEnv   string
	}{
		{"PUBSUB_LEGACY_SYNC_TOPIC", "PUBSUB_LEGACY_SYNC_SUBSCRIPTION"},
		{"PUBSUB_NOTIFICATION_TOPIC", "PUBSUB_NOTIFICATION_SUBSCRIPTION"},
	}

	for _, s := range subscriptions {
		topic, err := config.CreateTopicIfNotExists(client, os.Getenv(s.topicEnv))
		if err != nil {
			return err
		}
		sub, err := config.CreateSubscriptionIfNotExists(client, os.Getenv(s.subEnv), topic)
		if err != nil {
			return err
		}
		sub.ReceiveSettings.MaxOutstandingMessages = 10

		go func(sub *pubsub.Subscription) {
			err := sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
				handleReceivedMessage(ctx, logger, processor, msg)
			})
			if err != nil {
				config.LogError(logger, "receiver.go", "RunOutboxReceiver", "Failed to receive messages", sub.ID(), err)
			}
		}(sub)
	}

	return nil
}

func handleReceivedMessage(ctx context.Context, logger *logrus.Logger, processor *Processor, msg *pubsub.Message) {
	m := config.OutboxMessage{}
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		config.LogError(logger, "receiver.go", "handleReceivedMessage", "Unmarshaling pubsub message", msg.Data, err)
		// Poison payload. Ack so it does not redeliver forever.
		msg.Ack()
		return
	}

	// Get or create the mutex for the current member
	globalMutex.Lock()
	mutex, exists := memberMutexMap[m.MemberId]
	if !exists {
		mutex = &sync.Mutex{}
		memberMutexMap[m.MemberId] = mutex
	}
	globalMutex.Unlock()

	mutex.Lock()
	defer mutex.Unlock()

	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "System")
	ctx = utils.SetCorrelationIdInContext(ctx, m.CorrelationId)

	if err := processor.ProcessMessage(ctx, m); err != nil {
		logger.WithFields(logrus.Fields{
			"field":          "OutboxReceiver",
			"topic":          m.Topic,
			"member_id":      m.MemberId,
			"reference_type": m.ReferenceType,
			"reference_id":   m.ReferenceId,
			"message_id":     msg.ID,
		}).Error("pubsub processing failed: " + err.Error())
		msg.Nack()
		return
	}
	msg.Ack()
}
