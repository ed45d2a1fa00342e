// services/user_service.go - Accounts, settings and the credit leaderboard
package services

import (
	"context"
	"strings"
	"time"

	"gfgchapter/models"
	"gfgchapter/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=190"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	DomainID string `json:"domain_id" validate:"max=64"`
}

// UpdateProfile carries profile edits; empty fields are left unchanged.
type UpdateProfile struct {
	Name          string `json:"name" validate:"omitempty,max=120"`
	ProfilePicURL string `json:"profile_pic_url" validate:"omitempty,url,max=500"`
	DomainID      string `json:"domain_id" validate:"omitempty,max=64"`
}

type UserService struct {
	db     *gorm.DB
	cache  SettingsCache
	retry  RetryPolicy
	loads  singleflight.Group
	now    func() time.Time
	log    *logrus.Entry
	hashFn func(password []byte) ([]byte, error)
}

func NewUserService(db *gorm.DB, cache SettingsCache, retry RetryPolicy) *UserService {
	return &UserService{
		db:    db,
		cache: cache,
		retry: retry,
		now:   func() time.Time { return time.Now().UTC() },
		log:   logrus.WithField("component", "users"),
		hashFn: func(password []byte) ([]byte, error) {
			return bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
		},
	}
}

// ================== ACCOUNTS ==================

// Register creates a MEMBER account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := utils.ValidateStruct(&in); err != nil {
		return nil, Invalid("Register", err.Error())
	}

	var taken int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&taken).Error; err != nil {
		return nil, wrap("Register", err)
	}
	if taken > 0 {
		return nil, Invalid("Register", "email already registered")
	}

	hash, err := s.hashFn([]byte(in.Password))
	if err != nil {
		return nil, wrap("Register", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         models.RoleMember,
		DomainID:     in.DomainID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.retry.Do(ctx, "Register", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Create(user).Error
	})
	if err != nil {
		if KindOf(err) == KindInvalid {
			return nil, Invalid("Register", "email already registered")
		}
		return nil, wrap("Register", err)
	}

	utils.LogEvent("user_registered", map[string]interface{}{"user_id": user.ID})
	return user, nil
}

// Session is a successful sign-in. Tokens are bound to Version.
type Session struct {
	Settings *models.UserSettings
	Version  int
}

// Authenticate checks credentials, stamps the login time and caches the
// settings as logged in.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, Invalid("Authenticate", "email and password required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if KindOf(err) == KindNotFound {
			return nil, Forbidden("Authenticate", "invalid credentials")
		}
		return nil, wrap("Authenticate", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, Forbidden("Authenticate", "invalid credentials")
	}

	user.LastLogin = s.now()
	err := s.retry.Do(ctx, "Authenticate", func(ctx context.Context) error {
		return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
			Update("last_login", user.LastLogin).Error
	})
	if err != nil {
		return nil, wrap("Authenticate", err)
	}

	settings := user.Settings(true)
	s.storeSettings(ctx, settings)
	return &Session{Settings: &settings, Version: user.SessionVersion}, nil
}

// Logout ends every token issued so far and marks the cached settings as
// logged out.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.updateUser(ctx, "Logout", userID, map[string]interface{}{
		"session_version": gorm.Expr("session_version + 1"),
	}); err != nil {
		return err
	}

	settings, err := s.GetSettings(ctx, userID)
	if err != nil {
		return err
	}
	settings.IsLoggedIn = false
	s.storeSettings(ctx, *settings)
	return nil
}

// Actor resolves the caller identity from the users table.
func (s *UserService) Actor(ctx context.Context, userID string) (models.Actor, error) {
	user, err := s.findUser(ctx, "Actor", userID)
	if err != nil {
		return models.Actor{}, err
	}
	return user.Actor(), nil
}

// SessionActor is Actor for a token bound to session version.
func (s *UserService) SessionActor(ctx context.Context, userID string, version int) (models.Actor, error) {
	user, err := s.findUser(ctx, "SessionActor", userID)
	if err != nil {
		return models.Actor{}, err
	}
	if user.SessionVersion != version {
		return models.Actor{}, Forbidden("SessionActor", "session ended")
	}
	return user.Actor(), nil
}

// ================== SETTINGS ==================

// GetSettings returns the cached settings, loading them from the database on
// a miss. Concurrent misses for one user share a single load.
func (s *UserService) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	if cached, ok, err := s.cache.Get(ctx, userID); err != nil {
		s.log.WithError(err).Warn("settings cache read failed")
	} else if ok {
		return cached, nil
	}

	v, err, _ := s.loads.Do(userID, func() (interface{}, error) {
		user, err := s.findUser(ctx, "GetSettings", userID)
		if err != nil {
			return nil, err
		}
		settings := user.Settings(false)
		s.storeSettings(ctx, settings)
		return settings, nil
	})
	if err != nil {
		return nil, err
	}
	settings := v.(models.UserSettings)
	return &settings, nil
}

// UpdateProfile writes profile edits to the users table and refreshes the cache.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfile) (*models.UserSettings, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := utils.ValidateStruct(&in); err != nil {
		return nil, Invalid("UpdateProfile", err.Error())
	}

	updates := map[string]interface{}{}
	if in.Name != "" {
		updates["name"] = in.Name
	}
	if in.ProfilePicURL != "" {
		updates["profile_pic_url"] = in.ProfilePicURL
	}
	if in.DomainID != "" {
		updates["domain_id"] = in.DomainID
	}
	if len(updates) == 0 {
		return nil, Invalid("UpdateProfile", "nothing to update")
	}
	updates["updated_at"] = s.now()

	if err := s.updateUser(ctx, "UpdateProfile", userID, updates); err != nil {
		return nil, err
	}
	return s.refreshSettings(ctx, "UpdateProfile", userID)
}

// ================== ROLES & CREDITS ==================

// SetRole changes a user's role. Admins only.
func (s *UserService) SetRole(ctx context.Context, actor models.Actor, userID, role string) (*models.UserSettings, error) {
	if actor.Role != models.RoleAdmin {
		return nil, Forbidden("SetRole", "only admins can change roles")
	}
	r := models.UserRole(strings.ToUpper(strings.TrimSpace(role)))
	if !r.Valid() {
		return nil, Invalid("SetRole", "unknown role "+role)
	}

	if err := s.updateUser(ctx, "SetRole", userID, map[string]interface{}{
		"role":       r,
		"updated_at": s.now(),
	}); err != nil {
		return nil, err
	}

	utils.LogEvent("role_changed", map[string]interface{}{"user_id": userID, "role": r.String(), "by": actor.ID})
	return s.refreshSettings(ctx, "SetRole", userID)
}

// AwardCredits adds amount to a user's credits. Team leads and admins only.
func (s *UserService) AwardCredits(ctx context.Context, actor models.Actor, userID string, amount int) (*models.UserSettings, error) {
	if !actor.Role.CanModerate() {
		return nil, Forbidden("AwardCredits", "only team leads can award credits")
	}
	if amount <= 0 {
		return nil, Invalid("AwardCredits", "amount must be positive")
	}

	if err := s.updateUser(ctx, "AwardCredits", userID, map[string]interface{}{
		"total_credits": gorm.Expr("total_credits + ?", amount),
		"updated_at":    s.now(),
	}); err != nil {
		return nil, err
	}
	return s.refreshSettings(ctx, "AwardCredits", userID)
}

// Leaderboard returns the top users by credits. Backend failures are logged
// and yield an empty list.
func (s *UserService) Leaderboard(ctx context.Context, limit int) []models.LeaderboardEntry {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Select("id", "name", "profile_pic_url", "domain_id", "total_credits").
		Order("total_credits DESC").
		Order("name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		s.log.WithError(err).Warn("leaderboard query failed")
		return []models.LeaderboardEntry{}
	}

	entries := make([]models.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = models.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        u.ID,
			Name:          u.Name,
			ProfilePicURL: u.ProfilePicURL,
			DomainID:      u.DomainID,
			TotalCredits:  u.TotalCredits,
		}
	}
	return entries
}

// ================== HELPERS ==================

func (s *UserService) findUser(ctx context.Context, op, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if KindOf(err) == KindNotFound {
			// the account is gone, so is its cached projection
			if derr := s.cache.Delete(ctx, userID); derr != nil {
				s.log.WithError(derr).WithField("user_id", userID).Warn("settings cache evict failed")
			}
			return nil, NotFound(op, "user not found")
		}
		return nil, wrap(op, err)
	}
	return &user, nil
}

func (s *UserService) updateUser(ctx context.Context, op, userID string, updates map[string]interface{}) error {
	err := s.retry.Do(ctx, op, func(ctx context.Context) error {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFound(op, "user not found")
		}
		return nil
	})
	return wrap(op, err)
}

// refreshSettings reloads the user and rewrites the cache, keeping the
// cached login flag.
func (s *UserService) refreshSettings(ctx context.Context, op, userID string) (*models.UserSettings, error) {
	user, err := s.findUser(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	loggedIn := false
	if cached, ok, _ := s.cache.Get(ctx, userID); ok {
		loggedIn = cached.IsLoggedIn
	}
	settings := user.Settings(loggedIn)
	s.storeSettings(ctx, settings)
	return &settings, nil
}

func (s *UserService) storeSettings(ctx context.Context, settings models.UserSettings) {
	if err := s.cache.Set(ctx, settings); err != nil {
		s.log.WithError(err).WithField("user_id", settings.UserID).Warn("settings cache write failed")
	}
}
