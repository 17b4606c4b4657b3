package models

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/utils"
)

type PhoneNumber struct {
	ID          int       `gorm:"primary_key" json:"id"`
	MemberId    int       `gorm:"index;not null;uniqueIndex:idx_phone_member_kind,priority:1" json:"member_id" binding:"required"`
	Kind        PhoneKind `gorm:"type:enum('Mobile','Home','Work');not null;uniqueIndex:idx_phone_member_kind,priority:2" json:"kind"`
	CountryCode string    `gorm:"size:5;not null;default:'+1'" json:"country_code"`
	Number      string    `gorm:"size:20;not null" json:"number" binding:"required"`
	IsPrimary   bool      `gorm:"not null;default:false" json:"is_primary"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPhoneNumber struct {
	MemberId    int       `json:"member_id" binding:"required"`
	Kind        PhoneKind `json:"kind" binding:"required"`
	CountryCode string    `json:"country_code"`
	Number      string    `json:"number" binding:"required"`
}

func (obj PhoneNumber) GetId() int {
	return obj.ID
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validate input for both create & update. (id = 0 for create)
func (input *NewPhoneNumber) validate(ctx context.Context, id int) error {
	if !input.Kind.IsValid() {
		return errors.New("invalid phone kind")
	}
	if err := utils.ValidateResourceId[Member](ctx, input.MemberId); err != nil {
		return errors.New("member not found")
	}
	if err := utils.ValidatePhoneNumber(input.Number, utils.CountryCode); err != nil {
		return errors.New("invalid phone number")
	}

	// one phone per kind per member
	var count int64
	var err error
	if id == 0 {
		count, err = utils.ResourceCountWhere[PhoneNumber](ctx, "member_id = ? AND kind = ?", input.MemberId, input.Kind)
	} else {
		count, err = utils.ResourceCountWhere[PhoneNumber](ctx, "member_id = ? AND kind = ? AND NOT id = ?", input.MemberId, input.Kind, id)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("member already has a phone number of this kind")
	}

	return nil
}

func CreatePhoneNumber(ctx context.Context, input *NewPhoneNumber) (*PhoneNumber, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	member, err := utils.FetchModel[Member](ctx, input.MemberId)
	if err != nil {
		return nil, err
	}

	countryCode := input.CountryCode
	if countryCode == "" {
		countryCode = "+1"
	}

	// the member's first phone becomes primary
	existing, err := utils.ResourceCountWhere[PhoneNumber](ctx, "member_id = ?", input.MemberId)
	if err != nil {
		return nil, err
	}

	phone := PhoneNumber{
		MemberId:    input.MemberId,
		Kind:        input.Kind,
		CountryCode: countryCode,
		Number:      digitsOnly(input.Number),
		IsPrimary:   existing == 0,
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Create(&phone).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if member.HasExternalRecord() {
		err = PublishLegacySync(ctx, tx.WithContext(ctx), phone.ID, OutboxReferenceTypePhone, member.ID, phone, nil, OutboxActionCreate)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := SaveHistoryCreate(tx.WithContext(ctx), phone.ID, "phone_numbers", phone, "Phone number created"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &phone, nil
}

func UpdatePhoneNumber(ctx context.Context, id int, input *NewPhoneNumber) (*PhoneNumber, error) {

	beforeUpdate, err := utils.FetchModel[PhoneNumber](ctx, id)
	if err != nil {
		return nil, err
	}
	if input.MemberId != beforeUpdate.MemberId {
		return nil, errors.New("phone number cannot move between members")
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	member, err := utils.FetchModel[Member](ctx, beforeUpdate.MemberId)
	if err != nil {
		return nil, err
	}

	countryCode := input.CountryCode
	if countryCode == "" {
		countryCode = beforeUpdate.CountryCode
	}

	update := PhoneNumber{
		ID:          id,
		MemberId:    beforeUpdate.MemberId,
		Kind:        input.Kind,
		CountryCode: countryCode,
		Number:      digitsOnly(input.Number),
		IsPrimary:   beforeUpdate.IsPrimary,
	}

	db := config.GetDB()
	tx := db.Begin()

	err = tx.WithContext(ctx).Model(&PhoneNumber{ID: id}).Updates(map[string]interface{}{
		"kind":         input.Kind,
		"country_code": countryCode,
		"number":       update.Number,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if member.HasExternalRecord() {
		if beforeUpdate.Kind != update.Kind {
			// a kind change moves the value between legacy columns:
			// clear the old column, then write the new one
			err = PublishLegacySync(ctx, tx.WithContext(ctx), id, OutboxReferenceTypePhone, member.ID, nil, beforeUpdate, OutboxActionDelete)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			err = PublishLegacySync(ctx, tx.WithContext(ctx), id, OutboxReferenceTypePhone, member.ID, update, nil, OutboxActionCreate)
		} else {
			err = PublishLegacySync(ctx, tx.WithContext(ctx), id, OutboxReferenceTypePhone, member.ID, update, beforeUpdate, OutboxActionUpdate)
		}
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := SaveHistoryUpdate(tx.WithContext(ctx), id, "phone_numbers", beforeUpdate, update, "Phone number updated"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &update, nil
}

func DeletePhoneNumber(ctx context.Context, id int) error {

	phone, err := utils.FetchModel[PhoneNumber](ctx, id)
	if err != nil {
		return err
	}
	member, err := utils.FetchModel[Member](ctx, phone.MemberId)
	if err != nil {
		return err
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Delete(&PhoneNumber{}, id).Error; err != nil {
		tx.Rollback()
		return err
	}

	// deleting the primary promotes the oldest remaining phone
	if phone.IsPrimary {
		var next PhoneNumber
		err := tx.WithContext(ctx).Where("member_id = ? AND NOT id = ?", phone.MemberId, id).
			Order("created_at, id").First(&next).Error
		if err == nil {
			if err := tx.WithContext(ctx).Model(&PhoneNumber{ID: next.ID}).Update("is_primary", true).Error; err != nil {
				tx.Rollback()
				return err
			}
		}
	}

	if member.HasExternalRecord() {
		err = PublishLegacySync(ctx, tx.WithContext(ctx), id, OutboxReferenceTypePhone, member.ID, nil, phone, OutboxActionDelete)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := SaveHistoryDelete(tx.WithContext(ctx), id, "phone_numbers", phone, "Phone number deleted"); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func GetPhoneNumbersByMember(ctx context.Context, memberId int) ([]*PhoneNumber, error) {
	db := config.GetDB()
	var phones []*PhoneNumber
	if err := db.WithContext(ctx).Where("member_id = ?", memberId).Order("is_primary DESC, kind").Find(&phones).Error; err != nil {
		return nil, err
	}
	return phones, nil
}
