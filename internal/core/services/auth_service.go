package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/core/domain"
	"genieq-api/internal/pkg/jwt"
	"genieq-api/internal/pkg/password"
)

// AuthService handles registration, login and stateless token refresh
type AuthService struct {
	members repositories.MemberRepository
	tokens  *jwt.Authority
}

// NewAuthService creates a new auth service
func NewAuthService(members repositories.MemberRepository, tokens *jwt.Authority) *AuthService {
	return &AuthService{
		members: members,
		tokens:  tokens,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// LoginInput represents login input
type LoginInput struct {
	Email    string
	Password string
}

// AuthResponse represents authentication response. The refresh token only
// ever leaves the server in a cookie.
type AuthResponse struct {
	Member       *models.MemberResponse `json:"member"`
	AccessToken  string                 `json:"accessToken"`
	RefreshToken string                 `json:"-"`
}

// Register creates a member with a bcrypt password hash and signs them in
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: email and name are required", domain.ErrInvalidInput)
	}
	if err := password.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	exists, err := s.members.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrMemberAlreadyExists
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	member := &models.Member{
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hashed,
		Role:         domain.RoleUser,
	}
	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			return nil, domain.ErrMemberAlreadyExists
		}
		return nil, err
	}

	log.Printf("✅ Member registered: id=%d", member.ID)
	return s.signIn(member)
}

// Login checks credentials and issues a token pair
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	member, err := s.members.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if member.IsDeleted {
		return nil, domain.ErrMemberDeleted
	}
	if !password.Verify(input.Password, member.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	log.Printf("✅ Member logged in: id=%d", member.ID)
	return s.signIn(member)
}

// Refresh trades a valid refresh token for a new access token. The refresh
// token itself is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	member, err := s.members.GetByID(ctx, claims.MemberID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}
	if member.IsDeleted {
		return nil, domain.ErrMemberDeleted
	}

	access, err := s.tokens.IssueAccessToken(member.ID, member.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Member:       member.ToResponse(),
		AccessToken:  access,
		RefreshToken: refreshToken,
	}, nil
}

// GetMember returns the member behind a principal
func (s *AuthService) GetMember(ctx context.Context, memberID uint) (*models.Member, error) {
	return s.members.GetByID(ctx, memberID)
}

func (s *AuthService) signIn(member *models.Member) (*AuthResponse, error) {
	access, err := s.tokens.IssueAccessToken(member.ID, member.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(member.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Member:       member.ToResponse(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
