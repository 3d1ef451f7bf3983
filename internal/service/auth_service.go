package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"linkhub-go/internal/apperrors"
	"linkhub-go/internal/dto"
	"linkhub-go/internal/jwt"
	"linkhub-go/internal/model"
	"linkhub-go/internal/repository"
)

// AuthService 登录与用户管理
type AuthService struct {
	users  repository.UserRepository
	tokens *jwt.Manager
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens *jwt.Manager, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// Login 校验用户名密码并签发访问令牌。
// 用户不存在、密码不符、账号停用一律返回相同的 401，不暴露用户名是否存在。
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Login failed, unknown user", zap.String("username", req.Username))
			return nil, apperrors.UnauthorizedError("error.bad_credentials")
		}
		s.logger.Error("Failed to query user", zap.String("username", req.Username), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	if !user.Enabled {
		s.logger.Warn("Login rejected, account disabled", zap.String("username", req.Username))
		return nil, apperrors.UnauthorizedError("error.bad_credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("Login failed, bad credentials", zap.String("username", req.Username))
		return nil, apperrors.UnauthorizedError("error.bad_credentials")
	}

	token, err := s.tokens.Generate(user.Username, user.Role)
	if err != nil {
		s.logger.Error("Failed to generate token", zap.String("username", user.Username), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	// 登录时间只是审计信息，更新失败不影响登录
	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.Warn("Failed to update last login time", zap.String("username", user.Username), zap.Error(err))
	}

	s.logger.Info("Login successful", zap.String("username", user.Username))
	return &dto.AuthResponse{
		Token:    token,
		Username: user.Username,
		Email:    user.Email,
		Roles:    []string{user.Role},
	}, nil
}

// CurrentUser /api/auth/me 的数据源，响应不含令牌
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*dto.AuthResponse, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.UnauthorizedError("error.unauthorized")
		}
		s.logger.Error("Failed to query user", zap.String("username", username), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	return &dto.AuthResponse{
		Username: user.Username,
		Email:    user.Email,
		Roles:    []string{user.Role},
	}, nil
}

// CreateUser 创建后台用户，仅供控制台命令调用，没有公开的注册入口。
// 角色大小写不敏感，小写输入统一转成存储用的大写常量。
func (s *AuthService) CreateUser(ctx context.Context, username, password, email, role string) (*model.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, apperrors.InvalidRequestError("error.role_invalid")
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		s.logger.Error("Failed to check username existence", zap.String("username", username), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	if exists {
		return nil, apperrors.InvalidRequestError("error.username_exists")
	}

	exists, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to check email existence", zap.String("email", email), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}
	if exists {
		return nil, apperrors.InvalidRequestError("error.email_exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Enabled:      true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.String("username", username), zap.Error(err))
		return nil, apperrors.SystemErrorDefault()
	}

	s.logger.Info("Created user", zap.String("username", username), zap.String("role", role))
	return user, nil
}
