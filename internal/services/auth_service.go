package services

import (
	"errors"

	"leadforge_backend/internal/auth"
	"leadforge_backend/internal/dto"
	"leadforge_backend/internal/logger"
	"leadforge_backend/internal/models"
	"leadforge_backend/internal/repositories"
	"leadforge_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// AuthService - регистрация и выдача токенов
type AuthService interface {
	Register(db *gorm.DB, req *dto.RegisterRequest) (*models.User, error)
	Login(db *gorm.DB, req *dto.LoginRequest) (*dto.TokenResponse, error)
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Register(db *gorm.DB, req *dto.RegisterRequest) (*models.User, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CompanyName:  req.CompanyName,
		Role:         models.UserRoleMember,
		IsActive:     true,
	}

	if err := s.userRepo.Create(db, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrAlreadyExists(err)
		}
		return nil, err
	}

	logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *authService) Login(db *gorm.DB, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			// Тот же ответ, что и при неверном пароле: не раскрываем,
			// существует ли email
			return nil, apperrors.NewUnauthorizedError("Invalid email or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.NewForbiddenError("Account is deactivated")
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(auth.TokenTTL().Seconds()),
	}, nil
}
