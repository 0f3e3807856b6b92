package account

import (
	"context"
	"errors"
	"time"

	"github.com/carelytic/platform/pkg/common/logger"
	"golang.org/x/crypto/bcrypt"
)

const (
	PlanPayAsYouGo = "payg"
	PlanMonthly    = "monthly"
	PlanYearly     = "yearly"

	demoUserCredits = 10
)

type userStore interface {
	Create(ctx context.Context, input CreateUserInput) (*UserModel, error)
	GetByID(ctx context.Context, id string) (*UserModel, error)
	GetByPhone(ctx context.Context, phone string) (*UserModel, error)
	AdjustCredits(ctx context.Context, id string, delta int) (int, error)
}

type Service struct {
	store  userStore
	tokens *TokenIssuer
}

func NewService(store userStore, tokens *TokenIssuer) *Service {
	return &Service{store: store, tokens: tokens}
}

// Profile is the client-facing account shape.
type Profile struct {
	ID              string `json:"id"`
	Phone           string `json:"phone"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	IsDiabetic      bool   `json:"isDiabetic"`
	HasHypertension bool   `json:"hasHypertension"`
	Plan            string `json:"subscriptionPlan"`
	Credits         int    `json:"credits"`
}

type LoginResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Token   string   `json:"token,omitempty"`
	User    *Profile `json:"user,omitempty"`
}

// Login checks the phone/password pair. Bad credentials come back as an
// unsuccessful result, not an error; errors are reserved for backend
// failures.
func (s *Service) Login(ctx context.Context, phone, password string) (LoginResult, error) {
	user, err := s.store.GetByPhone(ctx, phone)
	if errors.Is(err, ErrUserNotFound) {
		return LoginResult{Success: false, Message: "Password login is not set up for this number."}, nil
	}
	if err != nil {
		return LoginResult{}, err
	}
	if user.HashedPassword == "" {
		return LoginResult{Success: false, Message: "Password login is not set up for this number."}, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return LoginResult{Success: false, Message: "Incorrect password. Try again or switch to OTP."}, nil
	}

	token, err := s.tokens.Mint(user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Success: true, Token: token, User: toProfile(user)}, nil
}

func (s *Service) Credits(ctx context.Context, userID string) (int, time.Time, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return 0, time.Time{}, err
	}
	return user.Credits, user.UpdatedAt, nil
}

func (s *Service) AdjustCredits(ctx context.Context, userID string, delta int) (int, error) {
	return s.store.AdjustCredits(ctx, userID, delta)
}

// EnsureDemoUser seeds the demo account used by local development flows.
func (s *Service) EnsureDemoUser(ctx context.Context) error {
	const demoPhone = "+8801850700054"

	if _, err := s.store.GetByPhone(ctx, demoPhone); err == nil {
		return nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.store.Create(ctx, CreateUserInput{
		Phone:          demoPhone,
		Email:          "demo@carelytic.com",
		Name:           "Demo User",
		HashedPassword: string(hash),
		Credits:        demoUserCredits,
		Plan:           PlanPayAsYouGo,
	})
	if err != nil {
		return err
	}

	logger.Log.Info("Seeded demo user")
	return nil
}

func toProfile(user *UserModel) *Profile {
	plan := user.Plan
	if plan == "" {
		plan = PlanPayAsYouGo
	}
	return &Profile{
		ID:              user.ID,
		Phone:           user.Phone,
		Name:            user.Name,
		Email:           user.Email,
		IsDiabetic:      user.IsDiabetic,
		HasHypertension: user.HasHypertension,
		Plan:            plan,
		Credits:         user.Credits,
	}
}
