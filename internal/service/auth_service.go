package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/config"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ============================================
// Auth Service
// ============================================

const minPasswordLength = 8

type SignUpInput struct {
	Title     string
	Email     string
	Password  string
	Username  string
	BirthDate *time.Time
}

type AuthResult struct {
	Family       *repository.Family
	Member       *repository.Member
	AccessToken  string
	RefreshToken string
}

// Claims is the identity carried by an access token.
type Claims struct {
	MemberID string
	FamilyID string
}

type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	PurgeExpiredTokens(ctx context.Context) (int64, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) (*AuthResult, error)
	ValidateToken(token string) (*jwt.Token, error)
	ClaimsFromToken(token *jwt.Token) (*Claims, error)
	ResolveActor(ctx context.Context, claims *Claims) (Actor, error)
}

type authService struct {
	cfg    *config.Config
	store  repository.Store
	mailer Mailer
	clock  func() time.Time
	log    *logrus.Entry
}

func NewAuthService(deps *ServiceDeps) AuthService {
	return &authService{
		cfg:    deps.Config,
		store:  deps.Store,
		mailer: deps.Mailer,
		clock:  deps.Clock,
		log:    deps.Logger.Component("Auth"),
	}
}

var signupConflicts = map[string]string{
	"email":    "An account with this email already exists",
	"username": "This username is already taken in your family",
}

func (s *authService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.Title = strings.TrimSpace(in.Title)
	in.Username = strings.TrimSpace(in.Username)
	if in.Email == "" || in.Title == "" || in.Username == "" {
		return nil, validationf("Please provide email, title and username")
	}
	if len(in.Password) < minPasswordLength {
		return nil, validationf("Password must be at least %d characters", minPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var (
		family *repository.Family
		member *repository.Member
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		existing, err := repos.MemberRepo.FindByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return &Error{Kind: ErrConflict, Message: signupConflicts["email"], Field: "email"}
		}

		family = &repository.Family{
			Title:    in.Title,
			Email:    in.Email,
			Password: string(hashedPassword),
			Active:   true,
		}
		if err := repos.FamilyRepo.Create(ctx, family); err != nil {
			return conflictFrom(err, signupConflicts)
		}

		parentType := &repository.MemberType{
			FamilyID:    family.ID,
			Name:        types.ParentTypeName,
			Role:        types.RoleParent,
			Permissions: []string{},
		}
		if err := repos.MemberTypeRepo.Create(ctx, parentType); err != nil {
			return fmt.Errorf("failed to create parent member type: %w", err)
		}

		member = &repository.Member{
			FamilyID:     family.ID,
			MemberTypeID: parentType.ID,
			Email:        in.Email,
			Username:     in.Username,
			BirthDate:    in.BirthDate,
			IsFirstLogin: false,
		}
		if err := repos.MemberRepo.Create(ctx, member); err != nil {
			return conflictFrom(err, signupConflicts)
		}
		member.TypeName = parentType.Name
		member.Role = parentType.Role

		return provisionMember(ctx, repos, member)
	})
	if err != nil {
		return nil, err
	}

	accessToken, refreshToken, err := s.generateTokens(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.log.WithFields(logrus.Fields{"family": family.ID, "member": member.ID}).Info("family account created")
	return &AuthResult{Family: family, Member: member, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	invalid := errorf(ErrInvalidCredentials, "Incorrect email or password")

	repos := s.store.Repos()
	member, err := repos.MemberRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, invalid
	}

	family, err := repos.FamilyRepo.FindByID(ctx, member.FamilyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, invalid
	}
	if !family.Active {
		return nil, forbiddenf("This family account has been deactivated")
	}

	hash := family.Password
	if member.Password != nil && *member.Password != "" {
		hash = *member.Password
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, invalid
	}

	accessToken, refreshToken, err := s.generateTokens(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return &AuthResult{Family: family, Member: member, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, string, error) {
	invalid := errorf(ErrInvalidToken, "Invalid or expired refresh token")
	repos := s.store.Repos()

	// Refresh tokens are single use.
	rt, err := repos.MemberRepo.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("failed to consume refresh token: %w", err)
	}
	if rt == nil {
		return "", "", invalid
	}
	if s.clock().After(rt.ExpiresAt) {
		return "", "", invalid
	}

	member, err := repos.MemberRepo.FindByID(ctx, rt.MemberID)
	if err != nil || member == nil {
		return "", "", invalid
	}

	accessToken, newRefreshToken, err := s.generateTokens(ctx, member)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate tokens: %w", err)
	}
	return accessToken, newRefreshToken, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	return s.store.Repos().MemberRepo.DeleteRefreshToken(ctx, refreshToken)
}

// PurgeExpiredTokens removes refresh tokens that can no longer be used.
func (s *authService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	removed, err := s.store.Repos().MemberRepo.DeleteExpiredRefreshTokens(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	return removed, nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	repos := s.store.Repos()
	family, err := repos.FamilyRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if family == nil {
		return notFoundf("There is no family account with that email address")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	hash := hashResetToken(token)
	expires := s.clock().Add(time.Duration(s.cfg.ResetTokenTTLMinutes) * time.Minute)

	family.ResetTokenHash = &hash
	family.ResetTokenExpires = &expires
	if err := repos.FamilyRepo.Update(ctx, family); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password/" + token

	var sendErr error
	if s.mailer == nil {
		sendErr = fmt.Errorf("no mailer configured")
	} else {
		sendErr = s.mailer.SendPasswordReset(ctx, family.Email, family.Title, resetURL)
	}
	if sendErr != nil {
		family.ResetTokenHash = nil
		family.ResetTokenExpires = nil
		if err := repos.FamilyRepo.Update(ctx, family); err != nil {
			s.log.WithError(err).Error("failed to clear reset token after delivery failure")
		}
		s.log.WithError(sendErr).WithField("family", family.ID).Warn("password reset email not delivered")
		return fmt.Errorf("failed to send password reset email: %w", sendErr)
	}

	s.log.WithField("family", family.ID).Info("password reset email sent")
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, password string) (*AuthResult, error) {
	if len(password) < minPasswordLength {
		return nil, validationf("Password must be at least %d characters", minPasswordLength)
	}

	repos := s.store.Repos()
	family, err := repos.FamilyRepo.FindByResetTokenHash(ctx, hashResetToken(token))
	if err != nil {
		return nil, err
	}
	if family == nil || family.ResetTokenExpires == nil || s.clock().After(*family.ResetTokenExpires) {
		return nil, validationf("Token is invalid or has expired")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	family.Password = string(hashed)
	family.ResetTokenHash = nil
	family.ResetTokenExpires = nil
	if err := repos.FamilyRepo.Update(ctx, family); err != nil {
		return nil, err
	}

	member, err := repos.MemberRepo.FindByEmail(ctx, family.Email)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, notFoundf("No member owns this family account")
	}

	accessToken, refreshToken, err := s.generateTokens(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return &AuthResult{Family: family, Member: member, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *authService) ValidateToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.clock))
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (s *authService) ClaimsFromToken(token *jwt.Token) (*Claims, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	memberID, ok := claims["sub"].(string)
	if !ok || memberID == "" {
		return nil, ErrInvalidToken
	}
	familyID, ok := claims["fam"].(string)
	if !ok || familyID == "" {
		return nil, ErrInvalidToken
	}
	return &Claims{MemberID: memberID, FamilyID: familyID}, nil
}

func (s *authService) ResolveActor(ctx context.Context, claims *Claims) (Actor, error) {
	repos := s.store.Repos()
	member, err := repos.MemberRepo.FindByID(ctx, claims.MemberID)
	if err != nil {
		return Actor{}, err
	}
	if member == nil || member.FamilyID != claims.FamilyID {
		return Actor{}, errorf(ErrUnauthorized, "The member belonging to this token no longer exists")
	}

	family, err := repos.FamilyRepo.FindByID(ctx, member.FamilyID)
	if err != nil {
		return Actor{}, err
	}
	if family == nil || !family.Active {
		return Actor{}, errorf(ErrUnauthorized, "This family account is not active")
	}

	return ActorFor(member), nil
}

func (s *authService) generateTokens(ctx context.Context, member *repository.Member) (string, string, error) {
	issued := s.clock()
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": member.ID,
		"fam": member.FamilyID,
		"exp": issued.Add(time.Hour * time.Duration(s.cfg.JWTExpiry)).Unix(),
		"iat": issued.Unix(),
	})

	accessTokenString, err := accessToken.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", "", err
	}

	rt := &repository.RefreshToken{
		Token:     uuid.New().String(),
		MemberID:  member.ID,
		ExpiresAt: issued.Add(time.Hour * 24 * time.Duration(s.cfg.RefreshExpiry)),
	}
	if err := s.store.Repos().MemberRepo.SaveRefreshToken(ctx, rt); err != nil {
		return "", "", err
	}

	return accessTokenString, rt.Token, nil
}
