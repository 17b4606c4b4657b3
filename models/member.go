package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/utils"
)

type Member struct {
	ID         int    `gorm:"primary_key" json:"id"`
	MemberId   *int   `gorm:"uniqueIndex" json:"member_id"` // external chapter-database member number, nil until synced
	FirstName  string `gorm:"size:100;not null" json:"first_name" binding:"required"`
	MiddleName string `gorm:"size:100" json:"middle_name"`
	LastName   string `gorm:"size:100;not null" json:"last_name" binding:"required"`
	Chapter    string `gorm:"size:100" json:"chapter"`

	Addresses    []*Address     `gorm:"foreignKey:MemberId" json:"addresses"`
	PhoneNumbers []*PhoneNumber `gorm:"foreignKey:MemberId" json:"phone_numbers"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMember struct {
	MemberId   *int   `json:"member_id"`
	FirstName  string `json:"first_name" binding:"required"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Chapter    string `json:"chapter"`
}

func (obj Member) GetId() int {
	return obj.ID
}

// implements Cursor
func (m Member) GetCursor() string {
	return m.LastName
}

// HasExternalRecord reports whether the member exists in the legacy
// chapter database. Contact changes of unsynced members are not mirrored.
func (m *Member) HasExternalRecord() bool {
	return m.MemberId != nil && *m.MemberId > 0
}

func (m *Member) FullName() string {
	name := m.FirstName
	if m.MiddleName != "" {
		name += " " + m.MiddleName
	}
	return name + " " + m.LastName
}

func (input *NewMember) validate(ctx context.Context, id int) error {
	if input.FirstName == "" || input.LastName == "" {
		return errors.New("member name is required")
	}
	if input.MemberId != nil && *input.MemberId > 0 {
		if err := utils.ValidateUnique[Member](ctx, "member_id", *input.MemberId, id); err != nil {
			return errors.New("member number already in use")
		}
	}
	return nil
}

func CreateMember(ctx context.Context, input *NewMember) (*Member, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	member := Member{
		MemberId:   input.MemberId,
		FirstName:  input.FirstName,
		MiddleName: input.MiddleName,
		LastName:   input.LastName,
		Chapter:    input.Chapter,
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Create(&member).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryCreate(tx.WithContext(ctx), member.ID, "members", member, "Member created"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &member, nil
}

func UpdateMember(ctx context.Context, id int, input *NewMember) (*Member, error) {

	beforeUpdate, err := utils.FetchModel[Member](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	update := Member{
		ID:         id,
		MemberId:   input.MemberId,
		FirstName:  input.FirstName,
		MiddleName: input.MiddleName,
		LastName:   input.LastName,
		Chapter:    input.Chapter,
	}

	db := config.GetDB()
	tx := db.Begin()

	err = tx.WithContext(ctx).Model(&update).Updates(map[string]interface{}{
		"member_id":   input.MemberId,
		"first_name":  input.FirstName,
		"middle_name": input.MiddleName,
		"last_name":   input.LastName,
		"chapter":     input.Chapter,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryUpdate(tx.WithContext(ctx), id, "members", beforeUpdate, update, "Member updated"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &update, nil
}

func GetMember(ctx context.Context, id int) (*Member, error) {
	return utils.FetchModel[Member](ctx, id, "Addresses", "PhoneNumbers")
}
