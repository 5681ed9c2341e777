package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/renewhub/renewhub/internal/models"
	"github.com/renewhub/renewhub/pkg/crypto"
	apperrors "github.com/renewhub/renewhub/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrLastAdmin guards against removing or demoting the only remaining admin.
	ErrLastAdmin = apperrors.New("USER_LAST_ADMIN", "Cannot remove the last admin account", http.StatusBadRequest)
	// ErrResetCodeInvalid covers unknown, mismatched and expired reset codes.
	ErrResetCodeInvalid = apperrors.New("RESET_CODE_INVALID", "Invalid or expired reset code", http.StatusBadRequest)
)

const resetCodeTTL = 15 * time.Minute

// RegisterInput describes the fields accepted at self registration.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// CreateUserInput describes the fields accepted when an admin provisions a user.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// UpdateUserInput enumerates mutable user attributes.
type UpdateUserInput struct {
	Name     *string
	Role     *string
	Password *string
}

// UserService manages account lifecycle, authentication and password resets.
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, now: time.Now}, nil
}

// WithClock overrides the time source. Intended for tests.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register provisions a self-service account. The first account created
// becomes the admin; every later registration is a regular user.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		Role:         models.RoleUser,
		PasswordHash: hashed,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return fmt.Errorf("user service: count users: %w", err)
		}
		if count == 0 {
			user.Role = models.RoleAdmin
		}
		return tx.Create(user).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithInternal(err)
		}
		return nil, fmt.Errorf("user service: register user: %w", err)
	}

	return user, nil
}

// Create provisions a user on behalf of an admin.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, apperrors.NewBadRequest("role must be admin or user")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		Role:         role,
		PasswordHash: hashed,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithInternal(err)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies a credential pair and returns the matching account.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", normaliseEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if !crypto.VerifyPassword(user.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return &user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// List returns every account, newest first.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}
	return users, nil
}

// Update persists mutable attributes for an existing user. Demoting the last
// admin is rejected.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Role != nil {
		role := strings.TrimSpace(*input.Role)
		if role != models.RoleAdmin && role != models.RoleUser {
			return nil, apperrors.NewBadRequest("role must be admin or user")
		}
		if user.Role == models.RoleAdmin && role != models.RoleAdmin {
			last, err := s.isLastAdmin(ctx, user.ID)
			if err != nil {
				return nil, err
			}
			if last {
				return nil, ErrLastAdmin
			}
		}
		updates["role"] = role
	}
	if input.Password != nil {
		if strings.TrimSpace(*input.Password) == "" {
			return nil, apperrors.NewBadRequest("password must not be empty")
		}
		hashed, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		updates["password_hash"] = hashed
	}

	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update user: %w", err)
	}
	return &user, nil
}

// Delete removes an account. Deleting the last admin is rejected.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("user service: load user: %w", err)
	}

	if user.Role == models.RoleAdmin {
		last, err := s.isLastAdmin(ctx, user.ID)
		if err != nil {
			return err
		}
		if last {
			return ErrLastAdmin
		}
	}

	if err := s.db.WithContext(ctx).Delete(&user).Error; err != nil {
		return fmt.Errorf("user service: delete user: %w", err)
	}
	return nil
}

// BeginPasswordReset stores a fresh six digit code on the account and returns
// it together with the account so the caller can email it. Unknown emails
// return ErrUserNotFound; handlers translate that into a silent success so the
// endpoint does not leak which addresses exist.
func (s *UserService) BeginPasswordReset(ctx context.Context, email string) (string, *models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", normaliseEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrUserNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("user service: load user: %w", err)
	}

	code, err := crypto.GenerateResetCode()
	if err != nil {
		return "", nil, fmt.Errorf("user service: generate reset code: %w", err)
	}

	expires := s.now().Add(resetCodeTTL)
	updates := map[string]any{
		"reset_code":            code,
		"reset_code_expires_at": expires,
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return "", nil, fmt.Errorf("user service: store reset code: %w", err)
	}

	user.ResetCode = code
	user.ResetCodeExpiresAt = &expires
	return code, &user, nil
}

// CompletePasswordReset validates the code and replaces the password. The
// stored code is cleared on success so it cannot be replayed.
func (s *UserService) CompletePasswordReset(ctx context.Context, email, code, newPassword string) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(newPassword) == "" {
		return apperrors.NewBadRequest("password must not be empty")
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", normaliseEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResetCodeInvalid
	}
	if err != nil {
		return fmt.Errorf("user service: load user: %w", err)
	}

	code = strings.TrimSpace(code)
	if code == "" || user.ResetCode == "" || user.ResetCode != code {
		return ErrResetCodeInvalid
	}
	if user.ResetCodeExpiresAt == nil || s.now().After(*user.ResetCodeExpiresAt) {
		return ErrResetCodeInvalid
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	updates := map[string]any{
		"password_hash":         hashed,
		"reset_code":            "",
		"reset_code_expires_at": nil,
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return fmt.Errorf("user service: reset password: %w", err)
	}
	return nil
}

func (s *UserService) isLastAdmin(ctx context.Context, userID string) (bool, error) {
	var others int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND id <> ?", models.RoleAdmin, userID).
		Count(&others).Error
	if err != nil {
		return false, fmt.Errorf("user service: count admins: %w", err)
	}
	return others == 0, nil
}
