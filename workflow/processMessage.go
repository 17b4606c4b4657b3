package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/legacysync"
	"bitbucket.org/tbphq/members_backend/models"
	"bitbucket.org/tbphq/members_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var moduleName = "workflow"

const outboxHandlerName = "outbox_processor"

// Processor applies published outbox messages: legacy-store mirroring and
// member notifications.
type Processor struct {
	DB     *gorm.DB
	Logger *logrus.Logger
	Syncer *legacysync.Syncer
	Mailer config.Mailer
}

func NewProcessor(db *gorm.DB, logger *logrus.Logger, syncer *legacysync.Syncer, mailer config.Mailer) *Processor {
	return &Processor{DB: db, Logger: logger, Syncer: syncer, Mailer: mailer}
}

// ProcessMessage handles one outbox message exactly once. A non-nil error
// asks the transport to redeliver; notification and legacy-store failures
// are recorded on the outbox row and never returned.
func (p *Processor) ProcessMessage(ctx context.Context, msg config.OutboxMessage) error {

	messageId := fmt.Sprint(msg.ID)

	skip, err := BeginIdempotency(p.DB.WithContext(ctx), outboxHandlerName, messageId)
	if err != nil {
		if err == ErrIdempotencyInProgress {
			return err
		}
		config.LogError(p.Logger, moduleName, "ProcessMessage", "idempotency begin failed", msg.ID, err)
		return err
	}
	if skip {
		return nil
	}

	var handleErr error
	switch msg.Topic {
	case string(models.OutboxTopicLegacySync):
		// Writes to the legacy store for one member must not interleave
		// across instances.
		lock, lockErr := utils.MemberLock(ctx, msg.MemberId, "legacy-sync", moduleName, "ProcessMessage")
		if lockErr != nil {
			_ = MarkIdempotencyFailed(p.DB.WithContext(ctx), outboxHandlerName, messageId, lockErr)
			return lockErr
		}
		handleErr = p.processLegacySync(ctx, msg)
		_ = lock.Release(ctx)
	case string(models.OutboxTopicNotification):
		handleErr = p.processNotification(ctx, msg)
	default:
		p.Logger.WithField("topic", msg.Topic).Warn("unknown outbox topic")
	}

	if err := MarkIdempotencySucceeded(p.DB.WithContext(ctx), outboxHandlerName, messageId); err != nil {
		config.LogError(p.Logger, moduleName, "ProcessMessage", "idempotency mark failed", msg.ID, err)
	}
	p.markRecordProcessed(ctx, msg.ID, handleErr)
	return nil
}

// processLegacySync mirrors one contact-record change. Failures are
// logged and counted inside the Syncer and do not propagate beyond the
// record's last_process_error: the mirror is best effort and must never
// block the pipeline.
func (p *Processor) processLegacySync(ctx context.Context, msg config.OutboxMessage) error {

	if p.Syncer == nil {
		p.Logger.WithFields(logrus.Fields{
			"field":        "processLegacySync",
			"reference_id": msg.ReferenceId,
		}).Warn("legacy store not configured; skipping sync")
		return nil
	}

	var member models.Member
	if err := p.DB.WithContext(ctx).First(&member, msg.MemberId).Error; err != nil {
		config.LogError(p.Logger, moduleName, "processLegacySync", "member not found", msg.MemberId, err)
		return nil
	}
	if !member.HasExternalRecord() {
		return nil
	}
	memberNumber := *member.MemberId

	switch msg.ReferenceType {
	case string(models.OutboxReferenceTypeAddress):
		return p.syncAddress(ctx, memberNumber, msg)
	case string(models.OutboxReferenceTypePhone):
		return p.syncPhone(ctx, memberNumber, msg)
	case string(models.OutboxReferenceTypeEmail):
		var rec legacysync.EmailRecord
		if err := json.Unmarshal(msg.NewObj, &rec); err != nil {
			config.LogError(p.Logger, moduleName, "processLegacySync", "bad email payload", msg.ID, err)
			return nil
		}
		return p.Syncer.SyncEmails(ctx, memberNumber, rec)
	default:
		p.Logger.WithField("reference_type", msg.ReferenceType).Warn("unknown legacy sync reference type")
	}
	return nil
}

func (p *Processor) syncAddress(ctx context.Context, memberNumber int, msg config.OutboxMessage) error {
	var oldRec, newRec legacysync.AddressRecord
	if len(msg.OldObj) > 0 {
		if err := json.Unmarshal(msg.OldObj, &oldRec); err != nil {
			config.LogError(p.Logger, moduleName, "syncAddress", "bad old payload", msg.ID, err)
			return nil
		}
	}
	if len(msg.NewObj) > 0 {
		if err := json.Unmarshal(msg.NewObj, &newRec); err != nil {
			config.LogError(p.Logger, moduleName, "syncAddress", "bad new payload", msg.ID, err)
			return nil
		}
	}

	switch msg.Action {
	case string(models.OutboxActionCreate):
		return p.Syncer.SyncAddressCreate(ctx, memberNumber, newRec)
	case string(models.OutboxActionUpdate):
		return p.Syncer.SyncAddressUpdate(ctx, memberNumber, oldRec, newRec)
	case string(models.OutboxActionDelete):
		return p.Syncer.SyncAddressDelete(ctx, memberNumber, oldRec)
	}
	return nil
}

func (p *Processor) syncPhone(ctx context.Context, memberNumber int, msg config.OutboxMessage) error {
	var oldRec, newRec legacysync.PhoneRecord
	if len(msg.OldObj) > 0 {
		if err := json.Unmarshal(msg.OldObj, &oldRec); err != nil {
			config.LogError(p.Logger, moduleName, "syncPhone", "bad old payload", msg.ID, err)
			return nil
		}
	}
	if len(msg.NewObj) > 0 {
		if err := json.Unmarshal(msg.NewObj, &newRec); err != nil {
			config.LogError(p.Logger, moduleName, "syncPhone", "bad new payload", msg.ID, err)
			return nil
		}
	}

	switch msg.Action {
	case string(models.OutboxActionCreate):
		return p.Syncer.SyncPhoneSet(ctx, memberNumber, newRec)
	case string(models.OutboxActionUpdate):
		// a kind change moves the number between legacy columns
		if oldRec.Kind != "" && oldRec.Kind != newRec.Kind {
			if err := p.Syncer.SyncPhoneClear(ctx, memberNumber, oldRec.Kind); err != nil {
				return err
			}
		}
		return p.Syncer.SyncPhoneSet(ctx, memberNumber, newRec)
	case string(models.OutboxActionDelete):
		return p.Syncer.SyncPhoneClear(ctx, memberNumber, oldRec.Kind)
	}
	return nil
}

func (p *Processor) markRecordProcessed(ctx context.Context, recordID int, processErr error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"is_processed": true,
		"processed_at": &now,
	}
	if processErr != nil {
		msg := processErr.Error()
		updates["last_process_error"] = &msg
	}
	if err := p.DB.WithContext(ctx).Model(&models.OutboxMessageRecord{}).
		Where("id = ?", recordID).Updates(updates).Error; err != nil {
		config.LogError(p.Logger, moduleName, "markRecordProcessed", "update failed", recordID, err)
	}
}
