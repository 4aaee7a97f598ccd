package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"cue-club-system/models"
	"cue-club-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = eris.New("invalid credentials")

// ManagerAuthService issues and verifies opaque bearer tokens for club staff.
type ManagerAuthService struct {
	DB     *gorm.DB
	TTL    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

func NewManagerAuthService(db *gorm.DB, ttl time.Duration) *ManagerAuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &ManagerAuthService{
		DB:     db,
		TTL:    ttl,
		logger: log.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}
}

// RegisterManager stores a manager with a bcrypt password hash. It backs
// seeding and tests; there is no public sign-up route.
func (s *ManagerAuthService) RegisterManager(ctx context.Context, clubID, email, password, fullName string) (*models.Manager, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, eris.Wrap(ErrInvalidInput, "email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, eris.Wrap(err, "failed to hash password")
	}
	m := &models.Manager{
		ID:           uuid.NewString(),
		ClubID:       clubID,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
	}
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return nil, eris.Wrap(err, "failed to create manager")
	}
	return m, nil
}

func (s *ManagerAuthService) Login(ctx context.Context, email, password string) (*models.ManagerSession, *models.Manager, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var m models.Manager
	if err := s.DB.WithContext(ctx).First(&m, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, eris.Wrap(err, "failed to load manager")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	token, err := utils.NewToken()
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to mint access token")
	}
	sess := &models.ManagerSession{
		Token:     token,
		ManagerID: m.ID,
		ExpiresAt: s.now().Add(s.TTL),
	}
	if err := s.DB.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, nil, eris.Wrap(err, "failed to create session")
	}
	s.logger.Info().Str("manager_id", m.ID).Msg("manager logged in")
	return sess, &m, nil
}

// VerifyToken returns the manager owning an unexpired access token.
func (s *ManagerAuthService) VerifyToken(ctx context.Context, token string) (*models.Manager, error) {
	if token == "" {
		return nil, eris.Wrap(ErrForbidden, "missing access token")
	}
	var sess models.ManagerSession
	err := s.DB.WithContext(ctx).First(&sess, "token = ? AND expires_at > ?", token, s.now()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, eris.Wrap(ErrForbidden, "invalid or expired access token")
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to load session")
	}
	var m models.Manager
	if err := s.DB.WithContext(ctx).First(&m, "id = ?", sess.ManagerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrap(ErrForbidden, "manager no longer exists")
		}
		return nil, eris.Wrap(err, "failed to load manager")
	}
	return &m, nil
}

func (s *ManagerAuthService) Logout(ctx context.Context, token string) error {
	if err := s.DB.WithContext(ctx).Delete(&models.ManagerSession{}, "token = ?", token).Error; err != nil {
		return eris.Wrap(err, "failed to delete session")
	}
	return nil
}

// --- endpoints ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *ManagerAuthService) LoginEndpoint(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing email or password"})
	}
	sess, m, err := s.Login(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{
		"accessToken": sess.Token,
		"expiresAt":   sess.ExpiresAt,
		"manager":     m,
	})
}

func (s *ManagerAuthService) LogoutEndpoint(c *fiber.Ctx) error {
	if err := s.Logout(c.UserContext(), BearerToken(c)); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
