package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/tbphq/members_backend/config"
	"bitbucket.org/tbphq/members_backend/utils"
)

type User struct {
	ID       int      `gorm:"primary_key" json:"id"`
	Email    string   `gorm:"size:255;uniqueIndex;not null" json:"email" binding:"required"`
	AltEmail string   `gorm:"size:255" json:"alt_email"`
	Password string   `gorm:"size:255;not null" json:"-"`
	Role     UserRole `gorm:"type:enum('NonMember','Collegiate','Alumni','Official');not null;default:'NonMember'" json:"role"`
	MemberId *int     `gorm:"index" json:"member_id"`
	Member   *Member  `json:"member"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Email    string   `json:"email" binding:"required,email"`
	AltEmail string   `json:"alt_email"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role"`
	MemberId *int     `json:"member_id"`
}

// UserEmails is the payload mirrored into the legacy chapter database
// (add_email / add_email_alt on the member's Home address row).
type UserEmails struct {
	Email    string `json:"email"`
	AltEmail string `json:"alt_email"`
}

func (obj User) GetId() int {
	return obj.ID
}

func (input *NewUser) validate(ctx context.Context, id int) error {
	if !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.AltEmail != "" && !utils.IsValidEmail(input.AltEmail) {
		return errors.New("invalid alternate email")
	}
	if err := utils.ValidateUnique[User](ctx, "email", input.Email, id); err != nil {
		return errors.New("email already in use")
	}
	if input.Role != "" && !input.Role.IsValid() {
		return errors.New("invalid role")
	}
	if input.MemberId != nil && *input.MemberId > 0 {
		if err := utils.ValidateResourceId[Member](ctx, *input.MemberId); err != nil {
			return errors.New("member not found")
		}
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleNonMember
	}

	user := User{
		Email:    input.Email,
		AltEmail: input.AltEmail,
		Password: string(hashed),
		Role:     role,
		MemberId: input.MemberId,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// UpdateUserEmails changes the account's email addresses. When the
// account belongs to a synced member, the change is mirrored to the
// legacy store via the outbox.
func UpdateUserEmails(ctx context.Context, id int, email string, altEmail string) (*User, error) {

	user, err := utils.FetchModel[User](ctx, id, "Member")
	if err != nil {
		return nil, err
	}

	if !utils.IsValidEmail(email) {
		return nil, errors.New("invalid email")
	}
	if altEmail != "" && !utils.IsValidEmail(altEmail) {
		return nil, errors.New("invalid alternate email")
	}
	if err := utils.ValidateUnique[User](ctx, "email", email, id); err != nil {
		return nil, errors.New("email already in use")
	}

	oldEmails := UserEmails{Email: user.Email, AltEmail: user.AltEmail}
	newEmails := UserEmails{Email: email, AltEmail: altEmail}

	db := config.GetDB()
	tx := db.Begin()

	err = tx.WithContext(ctx).Model(&User{ID: id}).Updates(map[string]interface{}{
		"email":     email,
		"alt_email": altEmail,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if user.Member != nil && user.Member.HasExternalRecord() {
		err = PublishLegacySync(ctx, tx.WithContext(ctx), user.ID, OutboxReferenceTypeEmail, user.Member.ID, newEmails, oldEmails, OutboxActionUpdate)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := SaveHistoryUpdate(tx.WithContext(ctx), id, "users", oldEmails, newEmails, "Account emails updated"); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	user.Email = email
	user.AltEmail = altEmail
	return user, nil
}

func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Preload("Member").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

// Login verifies credentials and issues a JWT.
func Login(ctx context.Context, email string, password string) (string, error) {
	user, err := GetUserByEmail(ctx, email)
	if err != nil {
		return "", errors.New("invalid credentials")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return "", errors.New("invalid credentials")
	}
	memberId := 0
	name := user.Email
	if user.MemberId != nil {
		memberId = *user.MemberId
	}
	if user.Member != nil {
		name = user.Member.FullName()
	}
	return utils.JwtGenerate(user.ID, memberId, string(user.Role), name)
}
