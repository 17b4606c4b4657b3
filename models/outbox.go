package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox publish statuses for OutboxMessageRecord.PublishStatus.
// Keep these as strings (DB values) for backwards compatibility.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// Outbox processing statuses for OutboxMessageRecord.ProcessingStatus.
// These represent worker-side handling state (distinct from PublishStatus).
const (
	OutboxProcessStatusPending    = "PENDING"
	OutboxProcessStatusProcessing = "PROCESSING"
	OutboxProcessStatusSucceeded  = "SUCCEEDED"
	OutboxProcessStatusFailed     = "FAILED"
	OutboxProcessStatusDead       = "DEAD"
)

type OutboxMessageRecord struct {
	ID            int                 `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	Topic         OutboxTopic         `gorm:"type:enum('LEGACY_SYNC','NOTIFICATION');not null;index" json:"topic"`
	ReferenceId   int                 `json:"reference_id"`
	ReferenceType OutboxReferenceType `gorm:"type:enum('ADDR','PHONE','EMAIL','ER')" json:"reference_type"`
	Action        OutboxAction        `gorm:"type:enum('C','U','D')" json:"action"`
	MemberId      int                 `gorm:"index;not null" json:"member_id"`
	OldObj        []byte              `gorm:"type:blob" json:"old_obj"`
	NewObj        []byte              `gorm:"type:blob" json:"new_obj"`
	IsProcessed   bool                `gorm:"index;not null" json:"is_processed"`
	// Publish metadata (publish happens after commit via dispatcher).
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	// Processing metadata (consumer/worker)
	LastProcessError *string    `gorm:"type:text" json:"last_process_error"`
	ProcessedAt      *time.Time `gorm:"index" json:"processed_at"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToOutboxMessage(record OutboxMessageRecord) config.OutboxMessage {
	return config.OutboxMessage{
		ID:            record.ID,
		Topic:         string(record.Topic),
		ReferenceId:   record.ReferenceId,
		ReferenceType: string(record.ReferenceType),
		Action:        string(record.Action),
		MemberId:      record.MemberId,
		OldObj:        record.OldObj,
		NewObj:        record.NewObj,
		CorrelationId: record.CorrelationId,
		RecordedAt:    record.CreatedAt,
	}
}

// publishOutbox implements the transactional outbox: it writes the message
// record inside the caller's DB transaction but does NOT publish to Pub/Sub.
// Publishing is performed asynchronously by the outbox dispatcher after commit.
func publishOutbox(ctx context.Context, db *gorm.DB, topic OutboxTopic, refId int, refType OutboxReferenceType, memberId int, obj interface{}, oldObj interface{}, action OutboxAction) error {

	var objInByte []byte
	var oldObjInByte []byte
	var err error

	if obj != nil {
		objInByte, err = json.Marshal(obj)
		if err != nil {
			return err
		}
	}
	if oldObj != nil {
		oldObjInByte, err = json.Marshal(oldObj)
		if err != nil {
			return err
		}
	}

	record := OutboxMessageRecord{
		Topic:         topic,
		ReferenceId:   refId,
		ReferenceType: refType,
		Action:        action,
		MemberId:      memberId,
		NewObj:        objInByte,
		OldObj:        oldObjInByte,
		IsProcessed:   false,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return db.Create(&record).Error
}

// PublishLegacySync records a contact-record change for the legacy chapter
// database mirror. Must be called with the same transaction that writes
// the primary record so the member-facing write and the sync intent commit
// or roll back together.
func PublishLegacySync(ctx context.Context, tx *gorm.DB, refId int, refType OutboxReferenceType, memberId int, obj interface{}, oldObj interface{}, action OutboxAction) error {
	return publishOutbox(ctx, tx, OutboxTopicLegacySync, refId, refType, memberId, obj, oldObj, action)
}

// PublishNotification records an email notification for a report status
// change, delivered asynchronously by the notification worker.
func PublishNotification(ctx context.Context, tx *gorm.DB, refId int, memberId int, obj interface{}) error {
	return publishOutbox(ctx, tx, OutboxTopicNotification, refId, OutboxReferenceTypeExpenseReport, memberId, obj, nil, OutboxActionCreate)
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
