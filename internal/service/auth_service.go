package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrSlugTaken            = errors.New("business slug is already taken")
	ErrInvalidSlug          = errors.New("slug may only contain lowercase letters, digits and hyphens")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// --- Service Interface ---
type AuthService interface {
	// Register provisions a business together with its owner account.
	Register(ctx context.Context, name, email, password, businessName, slug string) (*domain.User, *domain.Business, error)
	Login(ctx context.Context, email, password string) (token string, user *domain.User, err error)
}

// --- Service Implementation ---

// authService implements the AuthService interface.
type authService struct {
	userRepo      repository.UserRepository
	businessRepo  repository.BusinessRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(userRepo repository.UserRepository, businessRepo repository.BusinessRepository, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour * 1
	}
	return &authService{
		userRepo:      userRepo,
		businessRepo:  businessRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register handles signup: it creates the business (tenant) and its owner
// user in one go. The slug becomes part of every public URL and is
// immutable afterwards.
func (s *authService) Register(ctx context.Context, name, email, password, businessName, slug string) (*domain.User, *domain.Business, error) {
	if name == "" || email == "" || password == "" || businessName == "" || slug == "" {
		return nil, nil, errors.New("name, email, password, business name and slug cannot be empty")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, nil, ErrInvalidSlug
	}

	// Check if user already exists
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, ErrHashingFailed
	}

	business := &domain.Business{
		Name: businessName,
		Slug: slug,
	}
	businessID, err := s.businessRepo.Create(ctx, business)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, ErrSlugTaken
		}
		return nil, nil, err
	}
	business.ID = businessID

	user := &domain.User{
		BusinessID:   businessID,
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleOwner,
	}
	userID, err := s.userRepo.Create(ctx, user)
	if err != nil {
		// The unique index closes the GetByEmail race.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, ErrUserAlreadyExists
		}
		return nil, nil, err
	}
	user.ID = userID

	user.PasswordHash = ""
	return user, business, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (token string, user *domain.User, err error) {
	if email == "" || password == "" {
		err = errors.New("email and password cannot be empty")
		return
	}

	user, err = s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrAuthenticationFailed // User not found maps to auth failure
			return
		}
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		err = ErrAuthenticationFailed
		user = nil
		return
	}

	token, err = s.generateJWT(user)
	if err != nil {
		return "", nil, ErrTokenGeneration
	}

	user.PasswordHash = ""
	return token, user, nil
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload. The business ID claim
// is what scopes every dashboard query to the caller's tenant.
type jwtClaims struct {
	UserID     string      `json:"uid"`
	BusinessID string      `json:"bid"`
	Role       domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// generateJWT creates a new JWT token for the given user.
func (s *authService) generateJWT(user *domain.User) (string, error) {
	expirationTime := time.Now().Add(s.jwtExpiration)
	claims := &jwtClaims{
		UserID:     user.ID.Hex(),
		BusinessID: user.BusinessID.Hex(),
		Role:       user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "truetestify",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}
