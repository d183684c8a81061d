package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/internal/models"
	"github.com/pixelarena/queue-backend/pkg/jwt"
)

// AdminAuthService handles staff/admin console authentication
type AdminAuthService struct {
	userRepo            *database.UserRepository
	jwtService          *jwt.Service
	accessTokenDuration time.Duration
}

// NewAdminAuthService creates a new admin auth service
func NewAdminAuthService(
	userRepo *database.UserRepository,
	jwtService *jwt.Service,
	accessTokenDuration time.Duration,
) *AdminAuthService {
	return &AdminAuthService{
		userRepo:            userRepo,
		jwtService:          jwtService,
		accessTokenDuration: accessTokenDuration,
	}
}

// Login authenticates a staff or admin user and returns an access token
func (s *AdminAuthService) Login(ctx context.Context, username, password string) (*models.StaffLoginResponse, error) {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	// Same message for unknown user and wrong password
	if user == nil || !user.PasswordHash.Valid {
		return nil, fmt.Errorf("invalid username or password")
	}

	if !user.HasRole("staff") && !user.HasRole("admin") {
		return nil, fmt.Errorf("account does not have console access")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid username or password")
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.UserName, user.Roles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &models.StaffLoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.accessTokenDuration.Seconds()),
		User:        user,
	}, nil
}

// HashPassword hashes a plaintext password for storage
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
