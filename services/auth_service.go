package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/bolaodoscria/bolao-backend/models"
	"github.com/bolaodoscria/bolao-backend/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL        = 24 * time.Hour
	resetCodeTTL    = 15 * time.Minute
	resetCodeDigits = 6
	// maxResetFailures wrong guesses burn the code; a new one must be requested.
	maxResetFailures = 5
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyResetCodeInput struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type ResetPasswordInput struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// AuthResult is returned after a successful sign-up or sign-in.
type AuthResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *models.Profile `json:"profile"`
}

// Mailer delivers password reset codes.
type Mailer interface {
	SendPasswordResetCode(ctx context.Context, to, name, code string) error
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Me(ctx context.Context, session *models.Session) (*models.Profile, error)
	ForgotPassword(ctx context.Context, input ForgotPasswordInput) error
	VerifyResetCode(ctx context.Context, input VerifyResetCodeInput) error
	ResetPassword(ctx context.Context, input ResetPasswordInput) error
}

type authService struct {
	profiles  repositories.ProfileRepository
	tx        repositories.TxRunner
	mailer    Mailer
	jwtSecret []byte
	now       func() time.Time
	logger    *slog.Logger
}

func NewAuthService(profiles repositories.ProfileRepository, tx repositories.TxRunner, mailer Mailer, jwtSecret string, logger *slog.Logger) AuthService {
	return &authService{
		profiles:  profiles,
		tx:        tx,
		mailer:    mailer,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
		logger:    loggerOrDefault(logger, "auth_service"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(ctx, input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &models.Profile{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repositories.ErrProfileEmailConflict) {
			return nil, ErrEmailTaken
		}
		return nil, transportError("create profile", err)
	}

	s.logger.InfoContext(ctx, "profile registered", slog.String("user_id", profile.ID))
	return s.issue(profile)
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(ctx, input); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, transportError("find profile by email", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(input.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	return s.issue(profile)
}

func (s *authService) issue(profile *models.Profile) (*AuthResult, error) {
	now := s.now()
	expiresAt := now.Add(tokenTTL)
	claims := jwt.MapClaims{
		"user_id": profile.ID,
		"name":    profile.Name,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	profile.PasswordHash = ""
	return &AuthResult{Token: token, ExpiresAt: expiresAt, Profile: profile}, nil
}

func (s *authService) Me(ctx context.Context, session *models.Session) (*models.Profile, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, transportError("get profile", err)
	}
	profile.PasswordHash = ""
	return profile, nil
}

// ForgotPassword stores a fresh reset code and mails it. Unknown emails succeed silently.
func (s *authService) ForgotPassword(ctx context.Context, input ForgotPasswordInput) error {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(ctx, input); err != nil {
		return err
	}

	profile, err := s.profiles.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return transportError("find profile by email", err)
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}

	reset := &models.PasswordReset{
		ProfileID: profile.ID,
		Code:      code,
		ExpiresAt: s.now().Add(resetCodeTTL),
	}
	if err := s.profiles.SavePasswordReset(ctx, reset); err != nil {
		return transportError("save password reset", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordResetCode(ctx, profile.Email, profile.Name, code); err != nil {
			s.logger.ErrorContext(ctx, "failed to send reset code", slog.String("user_id", profile.ID), slog.Any("error", err))
			return transportError("send reset code", err)
		}
	}
	return nil
}

func (s *authService) VerifyResetCode(ctx context.Context, input VerifyResetCodeInput) error {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(ctx, input); err != nil {
		return err
	}
	_, err := s.checkResetCode(ctx, input.Email, input.Code)
	return err
}

func (s *authService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	input.Email = normalizeEmail(input.Email)
	if err := validateInput(ctx, input); err != nil {
		return err
	}

	profile, err := s.checkResetCode(ctx, input.Email, input.Code)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	// The new hash and the spent code commit together.
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.profiles.UpdatePasswordHash(ctx, exec, profile.ID, string(hash)); err != nil {
			return transportError("update password", err)
		}
		if err := s.profiles.DeletePasswordReset(ctx, exec, profile.ID); err != nil {
			return transportError("delete reset code", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset", slog.String("user_id", profile.ID))
	return nil
}

func (s *authService) checkResetCode(ctx context.Context, email, code string) (*models.Profile, error) {
	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			return nil, ErrInvalidResetCode
		}
		return nil, transportError("find profile by email", err)
	}

	reset, matched, err := s.profiles.AttemptPasswordReset(ctx, profile.ID, code, maxResetFailures)
	if err != nil {
		if errors.Is(err, repositories.ErrPasswordResetNotFound) {
			return nil, ErrInvalidResetCode
		}
		return nil, transportError("check password reset", err)
	}

	expired := !s.now().Before(reset.ExpiresAt)
	if expired || (!matched && reset.FailedAttempts >= maxResetFailures) {
		if err := s.profiles.DeletePasswordReset(ctx, nil, profile.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to discard reset code", slog.String("user_id", profile.ID), slog.Any("error", err))
		} else {
			s.logger.InfoContext(ctx, "reset code discarded", slog.String("user_id", profile.ID),
				slog.Bool("expired", expired), slog.Int("failed_attempts", reset.FailedAttempts))
		}
	}
	if !matched || expired {
		return nil, ErrInvalidResetCode
	}
	return profile, nil
}

func generateResetCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < resetCodeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", resetCodeDigits, n.Int64()), nil
}
