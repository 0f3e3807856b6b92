package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

type UserModel struct {
	ID              string    `gorm:"primaryKey;column:id"`
	Phone           string    `gorm:"column:phone;uniqueIndex"`
	Email           string    `gorm:"column:email;index"`
	Name            string    `gorm:"column:name"`
	HashedPassword  string    `gorm:"column:hashed_password"`
	Credits         int       `gorm:"column:credits"`
	Plan            string    `gorm:"column:plan"`
	IsDiabetic      bool      `gorm:"column:is_diabetic"`
	HasHypertension bool      `gorm:"column:has_hypertension"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (UserModel) TableName() string {
	return "users"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&UserModel{})
}

type CreateUserInput struct {
	Phone           string
	Email           string
	Name            string
	HashedPassword  string
	Credits         int
	Plan            string
	IsDiabetic      bool
	HasHypertension bool
}

func (r *Repository) Create(ctx context.Context, input CreateUserInput) (*UserModel, error) {
	now := time.Now().UTC()
	user := UserModel{
		ID:              uuid.New().String(),
		Phone:           strings.TrimSpace(input.Phone),
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
		Name:            input.Name,
		HashedPassword:  input.HashedPassword,
		Credits:         input.Credits,
		Plan:            input.Plan,
		IsDiabetic:      input.IsDiabetic,
		HasHypertension: input.HasHypertension,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*UserModel, error) {
	var user UserModel
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetByPhone(ctx context.Context, phone string) (*UserModel, error) {
	var user UserModel
	err := r.db.WithContext(ctx).First(&user, "phone = ?", strings.TrimSpace(phone)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists satisfies the report service's user directory contract.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AdjustCredits adds delta to the balance; negative deltas may not take
// the balance below zero.
func (r *Repository) AdjustCredits(ctx context.Context, id string, delta int) (int, error) {
	var balance int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user UserModel
		err := tx.First(&user, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		balance = user.Credits + delta
		if balance < 0 {
			return ErrInsufficientCredits
		}

		return tx.Model(&UserModel{}).Where("id = ?", id).Updates(map[string]interface{}{
			"credits":    balance,
			"updated_at": time.Now().UTC(),
		}).Error
	})
	return balance, err
}
