package service

import (
	"context"
	"errors"
	"time"

	"github.com/tea-tech/simple-inventory/internal/config"
	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)

	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, includeInactive bool) ([]dto.UserResponse, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) error
}

type authService struct {
	users repository.UserRepository
	cfg   *config.Config
}

func NewAuthService(users repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{users: users, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	u, err := s.users.FindByUsername(ctx, req.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrValidation("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		log.Warn().Str("username", req.Username).Msg("failed login attempt")
		return nil, ErrValidation("invalid credentials")
	}
	return s.issueTokens(u)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrValidation("invalid refresh token")
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrValidation("invalid refresh token")
	}
	u, err := s.users.FindByID(ctx, uid)
	if err != nil || !u.Active {
		return nil, ErrValidation("invalid refresh token")
	}
	return s.issueTokens(u)
}

func (s *authService) issueTokens(u *model.User) (*dto.LoginResponse, error) {
	expiry := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	access, err := s.signToken(u, expiry)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(u, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(expiry.Seconds()),
		User:         toUserResponse(u),
	}, nil
}

func (s *authService) signToken(u *model.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   u.ID.String(),
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *authService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		return nil, ErrConflict("username %q is taken", req.Username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	log.Info().Str("username", u.Username).Str("role", u.Role).Msg("user created")
	resp := toUserResponse(u)
	return &resp, nil
}

func (s *authService) UpdateUser(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound("user not found")
	}
	if err != nil {
		return nil, err
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
	}
	if req.FullName != "" {
		u.FullName = req.FullName
	}
	if req.Email != nil {
		u.Email = req.Email
	}
	if req.Role != "" {
		u.Role = req.Role
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	resp := toUserResponse(u)
	return &resp, nil
}

func (s *authService) ListUsers(ctx context.Context, includeInactive bool) ([]dto.UserResponse, error) {
	var (
		users []model.User
		err   error
	)
	if includeInactive {
		users, err = s.users.ListAll(ctx)
	} else {
		users, err = s.users.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out, nil
}

func (s *authService) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.users.FindByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound("user not found")
	} else if err != nil {
		return err
	}
	return s.users.SoftDelete(ctx, id)
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
		Active:   u.Active,
	}
}
