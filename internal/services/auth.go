package services

import (
  "context"
  "fmt"
  "net/mail"
  "strings"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/requestdata"
  "github.com/studyforge/studyforge-backend/internal/types"
  "github.com/studyforge/studyforge-backend/internal/utils"
)

// AuthService owns registration, login, token refresh, and token
// validation. Access tokens are JWTs backed by a server-side token row, so
// logout and refresh rotation invalidate immediately.
type AuthService interface {
  Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
  Login(ctx context.Context, email, password string) (*AuthResult, error)
  Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
  Logout(ctx context.Context, accessToken string) error
  SetContextFromToken(ctx context.Context, accessToken string) (context.Context, *types.User, error)
}

type RegisterInput struct {
  Username string `json:"username"`
  Email    string `json:"email"`
  Password string `json:"password"`
}

type AuthResult struct {
  User         *types.User `json:"user"`
  AccessToken  string      `json:"access_token"`
  RefreshToken string      `json:"refresh_token"`
  ExpiresAt    time.Time   `json:"expires_at"`
}

type authService struct {
  log       *logger.Logger
  db        *gorm.DB
  userRepo  repos.UserRepo
  tokenRepo repos.UserTokenRepo

  jwtSecret  []byte
  accessTTL  time.Duration
  refreshTTL time.Duration
}

func NewAuthService(log *logger.Logger, db *gorm.DB, userRepo repos.UserRepo, tokenRepo repos.UserTokenRepo) (AuthService, error) {
  secret := utils.GetEnv("JWT_SECRET_KEY", "", log)
  if secret == "" {
    return nil, fmt.Errorf("missing JWT_SECRET_KEY")
  }
  accessTTL := time.Duration(utils.GetEnvAsInt("JWT_ACCESS_TTL_MINUTES", 60, log)) * time.Minute
  refreshTTL := time.Duration(utils.GetEnvAsInt("JWT_REFRESH_TTL_HOURS", 24*7, log)) * time.Hour

  return &authService{
    log:        log.With("service", "AuthService"),
    db:         db,
    userRepo:   userRepo,
    tokenRepo:  tokenRepo,
    jwtSecret:  []byte(secret),
    accessTTL:  accessTTL,
    refreshTTL: refreshTTL,
  }, nil
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
  username := strings.TrimSpace(input.Username)
  email := strings.ToLower(strings.TrimSpace(input.Email))
  if username == "" || email == "" || input.Password == "" {
    return nil, fmt.Errorf("username, email, and password are required")
  }
  if _, err := mail.ParseAddress(email); err != nil {
    return nil, fmt.Errorf("invalid email address")
  }
  if len(input.Password) < 8 {
    return nil, fmt.Errorf("password must be at least 8 characters")
  }

  if exists, err := s.userRepo.EmailExists(ctx, nil, email); err != nil {
    return nil, err
  } else if exists {
    return nil, fmt.Errorf("email already registered")
  }
  if exists, err := s.userRepo.UsernameExists(ctx, nil, username); err != nil {
    return nil, err
  } else if exists {
    return nil, fmt.Errorf("username already taken")
  }

  hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
  if err != nil {
    return nil, fmt.Errorf("hash password: %w", err)
  }

  user := &types.User{
    Username: username,
    Email:    email,
    Password: string(hashed),
  }

  var result *AuthResult
  err = s.db.Transaction(func(tx *gorm.DB) error {
    created, err := s.userRepo.Create(ctx, tx, []*types.User{user})
    if err != nil {
      return err
    }
    // Registration logs the new account in immediately.
    result, err = s.issueTokens(ctx, tx, created[0])
    return err
  })
  if err != nil {
    return nil, fmt.Errorf("register: %w", err)
  }
  return result, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
  email = strings.ToLower(strings.TrimSpace(email))
  if email == "" || password == "" {
    return nil, fmt.Errorf("email and password are required")
  }

  users, err := s.userRepo.GetByEmails(ctx, nil, []string{email})
  if err != nil {
    return nil, err
  }
  if len(users) == 0 {
    return nil, fmt.Errorf("invalid credentials")
  }
  user := users[0]

  if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
    return nil, fmt.Errorf("invalid credentials")
  }

  return s.issueTokens(ctx, nil, user)
}

// Refresh rotates the token pair: the presented refresh token's row is
// replaced so it can only be used once.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
  if refreshToken == "" {
    return nil, fmt.Errorf("refresh token required")
  }

  stored, err := s.tokenRepo.GetByRefreshToken(ctx, nil, refreshToken)
  if err != nil {
    return nil, err
  }
  if stored == nil {
    return nil, fmt.Errorf("invalid refresh token")
  }

  if _, err := s.parseToken(refreshToken); err != nil {
    // Expired or tampered refresh token: drop the row.
    _ = s.tokenRepo.DeleteByIDs(ctx, nil, []uuid.UUID{stored.ID})
    return nil, fmt.Errorf("invalid refresh token")
  }

  users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{stored.UserID})
  if err != nil {
    return nil, err
  }
  if len(users) == 0 {
    return nil, fmt.Errorf("user not found")
  }

  var result *AuthResult
  err = s.db.Transaction(func(tx *gorm.DB) error {
    if err := s.tokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{stored.ID}); err != nil {
      return err
    }
    result, err = s.issueTokens(ctx, tx, users[0])
    return err
  })
  if err != nil {
    return nil, fmt.Errorf("refresh: %w", err)
  }
  return result, nil
}

func (s *authService) Logout(ctx context.Context, accessToken string) error {
  if accessToken == "" {
    return nil
  }
  stored, err := s.tokenRepo.GetByAccessToken(ctx, nil, accessToken)
  if err != nil {
    return err
  }
  if stored == nil {
    return nil
  }
  return s.tokenRepo.DeleteByIDs(ctx, nil, []uuid.UUID{stored.ID})
}

// SetContextFromToken validates the access token against both the JWT
// signature and the stored token row, loads the user, and attaches request
// data to the context.
func (s *authService) SetContextFromToken(ctx context.Context, accessToken string) (context.Context, *types.User, error) {
  if accessToken == "" {
    return ctx, nil, fmt.Errorf("missing access token")
  }

  claims, err := s.parseToken(accessToken)
  if err != nil {
    return ctx, nil, fmt.Errorf("invalid token: %w", err)
  }

  stored, err := s.tokenRepo.GetByAccessToken(ctx, nil, accessToken)
  if err != nil {
    return ctx, nil, err
  }
  if stored == nil {
    return ctx, nil, fmt.Errorf("token revoked")
  }
  if time.Now().After(stored.ExpiresAt) {
    _ = s.tokenRepo.DeleteByIDs(ctx, nil, []uuid.UUID{stored.ID})
    return ctx, nil, fmt.Errorf("token expired")
  }

  sub, err := claims.GetSubject()
  if err != nil {
    return ctx, nil, fmt.Errorf("invalid token subject")
  }
  userID, err := uuid.Parse(sub)
  if err != nil || userID != stored.UserID {
    return ctx, nil, fmt.Errorf("invalid token subject")
  }

  users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
  if err != nil {
    return ctx, nil, err
  }
  if len(users) == 0 {
    return ctx, nil, fmt.Errorf("user not found")
  }
  user := users[0]

  rd := &requestdata.RequestData{
    TokenString:  accessToken,
    RefreshToken: stored.RefreshToken,
    UserID:       user.ID,
    IsPremium:    user.IsPremium(),
    IsAdmin:      user.IsAdmin,
  }
  return requestdata.WithRequestData(ctx, rd), user, nil
}

func (s *authService) issueTokens(ctx context.Context, tx *gorm.DB, user *types.User) (*AuthResult, error) {
  now := time.Now()
  accessExpiry := now.Add(s.accessTTL)

  accessToken, err := s.signToken(user.ID, now, accessExpiry)
  if err != nil {
    return nil, fmt.Errorf("sign access token: %w", err)
  }
  refreshToken, err := s.signToken(user.ID, now, now.Add(s.refreshTTL))
  if err != nil {
    return nil, fmt.Errorf("sign refresh token: %w", err)
  }

  token := &types.UserToken{
    UserID:       user.ID,
    AccessToken:  accessToken,
    RefreshToken: refreshToken,
    ExpiresAt:    accessExpiry,
  }
  if _, err := s.tokenRepo.Create(ctx, tx, []*types.UserToken{token}); err != nil {
    return nil, fmt.Errorf("persist token: %w", err)
  }

  return &AuthResult{
    User:         user,
    AccessToken:  accessToken,
    RefreshToken: refreshToken,
    ExpiresAt:    accessExpiry,
  }, nil
}

func (s *authService) signToken(userID uuid.UUID, issuedAt, expiresAt time.Time) (string, error) {
  claims := jwt.RegisteredClaims{
    Subject:   userID.String(),
    IssuedAt:  jwt.NewNumericDate(issuedAt),
    ExpiresAt: jwt.NewNumericDate(expiresAt),
    ID:        uuid.New().String(),
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  return token.SignedString(s.jwtSecret)
}

func (s *authService) parseToken(tokenString string) (*jwt.RegisteredClaims, error) {
  claims := &jwt.RegisteredClaims{}
  token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
    if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
    }
    return s.jwtSecret, nil
  })
  if err != nil {
    return nil, err
  }
  if !token.Valid {
    return nil, fmt.Errorf("token invalid")
  }
  return claims, nil
}
