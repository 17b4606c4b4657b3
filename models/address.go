package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/utils"
)

type Address struct {
	ID       int         `gorm:"primary_key" json:"id"`
	MemberId int         `gorm:"index;not null;uniqueIndex:idx_address_member_kind,priority:1" json:"member_id" binding:"required"`
	Kind     AddressKind `gorm:"type:enum('Home','Work','School');not null;uniqueIndex:idx_address_member_kind,priority:2" json:"kind"`
	Line1    string      `gorm:"size:255;not null" json:"line1" binding:"required"`
	Line2    string      `gorm:"size:255" json:"line2"`
	City     string      `gorm:"size:100;not null" json:"city" binding:"required"`
	State    string      `gorm:"size:100" json:"state"`
	Zip      string      `gorm:"size:20" json:"zip"`
	Country  string      `gorm:"size:100" json:"country"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAddress struct {
	MemberId int         `json:"member_id" binding:"required"`
	Kind     AddressKind `json:"kind" binding:"required"`
	Line1    string      `json:"line1" binding:"required"`
	Line2    string      `json:"line2"`
	City     string      `json:"city" binding:"required"`
	State    string      `json:"state"`
	Zip      string      `json:"zip"`
	Country  string      `json:"country"`
}

func (obj Address) GetId() int {
	return obj.ID
}

// validate input for both create & update. (id = 0 for create)
func (input *NewAddress) validate(ctx context.Context, id int) error {
	if !input.Kind.IsValid() {
		return errors.New("invalid address kind")
	}
	if input.Line1 == "" {
		return errors.New("address line1 is required")
	}
	if input.City == "" {
		return errors.New("city is required")
	}
	if err := utils.ValidateResourceId[Member](ctx, input.MemberId); err != nil {
		return errors.New("member not found")
	}

	// one address per kind per member
	var count int64
	var err error
	if id == 0 {
		count, err = utils.ResourceCountWhere[Address](ctx, "member_id = ? AND kind = ?", input.MemberId, input.Kind)
	} else {
		count, err = utils.ResourceCountWhere[Address](ctx, "member_id = ? AND kind = ? AND NOT id = ?", input.MemberId, input.Kind, id)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("member already has an address of this kind")
	}

	return nil
}

func CreateAddress(ctx context.Context, input *NewAddress) (*Address, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	member, err := utils.FetchModel[Member](ctx, input.MemberId)
	if err != nil {
		return nil, err
	}

	address := Address{
		MemberId: input.MemberId,
		Kind:     input.Kind,
		Line1:    input.Line1,
		Line2:    input.Line2,
		City:     input.City,
		State:    input.State,
		Zip:      input.Zip,
		Country:  input.Country,
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Create(&address).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if member.HasExternalRecord() {
		err = PublishLegacySync(ctx, tx.WithContext(ctx), address.ID, OutboxReferenceTypeAddress, member.ID, address, nil, OutboxActionCreate)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := SaveHistoryCreate(tx.WithContext(ctx), address.ID, "addresses", address, "Address created"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &address, nil
}

func UpdateAddress(ctx context.Context, id int, input *NewAddress) (*Address, error) {

	beforeUpdate, err := utils.FetchModel[Address](ctx, id)
	if err != nil {
		return nil, err
	}
	if input.MemberId != beforeUpdate.MemberId {
		return nil, errors.New("address cannot move between members")
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	member, err := utils.FetchModel[Member](ctx, beforeUpdate.MemberId)
	if err != nil {
		return nil, err
	}

	update := Address{
		ID:       id,
		MemberId: beforeUpdate.MemberId,
		Kind:     input.Kind,
		Line1:    input.Line1,
		Line2:    input.Line2,
		City:     input.City,
		State:    input.State,
		Zip:      input.Zip,
		Country:  input.Country,
	}

	db := config.GetDB()
	tx := db.Begin()

	err = tx.WithContext(ctx).Model(&Address{ID: id}).Updates(map[string]interface{}{
		"kind":    input.Kind,
		"line1":   input.Line1,
		"line2":   input.Line2,
		"city":    input.City,
		"state":   input.State,
		"zip":     input.Zip,
		"country": input.Country,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if member.HasExternalRecord() {
		// old payload keeps the previous kind and line1 so the mirror can
		// locate the row by its natural key
		err = PublishLegacySync(ctx, tx.WithContext(ctx), id, OutboxReferenceTypeAddress, member.ID, update, beforeUpdate, OutboxActionUpdate)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := SaveHistoryUpdate(tx.WithContext(ctx), id, "addresses", beforeUpdate, update, "Address updated"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &update, nil
}

func DeleteAddress(ctx context.Context, id int) error {

	address, err := utils.FetchModel[Address](ctx, id)
	if err != nil {
		return err
	}
	member, err := utils.FetchModel[Member](ctx, address.MemberId)
	if err != nil {
		return err
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Delete(&Address{}, id).Error; err != nil {
		tx.Rollback()
		return err
	}
	if member.HasExternalRecord() {
		err = PublishLegacySync(ctx, tx.WithContext(ctx), id, OutboxReferenceTypeAddress, member.ID, nil, address, OutboxActionDelete)
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := SaveHistoryDelete(tx.WithContext(ctx), id, "addresses", address, "Address deleted"); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func GetAddressesByMember(ctx context.Context, memberId int) ([]*Address, error) {
	db := config.GetDB()
	var addresses []*Address
	if err := db.WithContext(ctx).Where("member_id = ?", memberId).Order("kind").Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}
