package service

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/password"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	EventUserRegistered         = "user_registered"
	EventUserLoggedIn           = "user_logged_in"
	EventPasswordChanged        = "password_changed"
	EventPasswordResetRequested = "password_reset_requested"
	EventPasswordReset          = "password_reset"

	publishTimeout = 5 * time.Second
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
}

type TokenRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID, purpose string) (*models.Token, error)
	FindByValue(ctx context.Context, userID uuid.UUID, value, purpose string) (*models.Token, error)
	Create(ctx context.Context, t *models.Token) error
	Update(ctx context.Context, t *models.Token) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TokenSigner interface {
	SignAuth(userID, role string) (string, time.Time, error)
	SignReset(userID string) (string, time.Time, error)
	VerifyReset(token string) (*tokens.ResetClaims, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Config struct {
	ResetURLBase string
	EventsTopic  string
}

type AuthService struct {
	Users  UserRepository
	Tokens TokenRepository
	Signer TokenSigner
	Mailer notify.Mailer
	Events EventPublisher
	Cfg    Config

	now func() time.Time
}

func NewAuthService(users UserRepository, toks TokenRepository, signer TokenSigner, mailer notify.Mailer, events EventPublisher, cfg Config) *AuthService {
	return &AuthService{
		Users:  users,
		Tokens: toks,
		Signer: signer,
		Mailer: mailer,
		Events: events,
		Cfg:    cfg,
		now:    time.Now,
	}
}

type LoginValidation struct {
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
}

type LoginResult struct {
	User      *models.User
	AuthToken string
	ExpiresAt time.Time
}

type UserEvent struct {
	Type   string    `json:"type"`
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

func (s *AuthService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (s *AuthService) ValidateRegister(req transport.RegisterRequest) error {
	var details []string
	email := strings.TrimSpace(req.Email)
	switch {
	case email == "":
		details = append(details, "email is required")
	case !validEmail(email):
		details = append(details, "email is invalid")
	}
	if req.Password == "" {
		details = append(details, "password is required")
	} else if err := password.CheckLength(req.Password); err != nil {
		details = append(details, err.Error())
	}
	if strings.TrimSpace(req.FirstName) == "" {
		details = append(details, "firstName is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		details = append(details, "lastName is required")
	}
	if len(details) > 0 {
		return apperr.Validation("invalid registration data", details...)
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if err := s.ValidateRegister(req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "validation failed", "error", err)
		return nil, err
	}

	email := normalizeEmail(req.Email)
	_, err := s.Users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		l.Warn("register_error", "status", 403, "reason", "user already exist")
		return nil, apperr.Conflict("a user with this email already exists")
	case !errors.Is(err, repo.ErrNotFound):
		l.Error("register_error", "status", 500, "error", err)
		return nil, apperr.Internal("could not register user", err)
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	user := &models.User{
		Email:     email,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Username:  username,
		IsUser:    true,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrAlreadyExist) {
			l.Warn("register_error", "status", 403, "reason", "duplicate key")
			return nil, apperr.Conflict("a user with this email already exists")
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, apperr.Internal("could not register user", err)
	}

	l.Info("register_successful", "user_id", user.ID)
	s.publish(ctx, EventUserRegistered, user)
	return user, nil
}

// ValidateLogin checks the credentials and signs a fresh login token.
func (s *AuthService) ValidateLogin(ctx context.Context, req transport.LoginRequest) (*LoginValidation, error) {
	var details []string
	if strings.TrimSpace(req.Email) == "" {
		details = append(details, "email is required")
	}
	if req.Password == "" {
		details = append(details, "password is required")
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid login data", details...)
	}

	user, err := s.Users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.Authentication("invalid email or password")
		}
		return nil, apperr.Internal("could not load user", err)
	}
	if !user.CheckPassword(req.Password) {
		return nil, apperr.Authentication("invalid email or password")
	}

	tok, exp, err := s.Signer.SignAuth(user.ID.String(), user.Role())
	if err != nil {
		return nil, apperr.Internal("could not sign token", err)
	}
	return &LoginValidation{UserID: user.ID, Token: tok, ExpiresAt: exp}, nil
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	v, err := s.ValidateLogin(ctx, req)
	if err != nil {
		l.Warn("login_failed", "status", apperr.As(err).HTTPStatus(), "error", err)
		return nil, err
	}
	l = l.With("user_id", v.UserID)

	if err := s.storeLoginToken(ctx, v); err != nil {
		l.Error("login_failed", "status", apperr.As(err).HTTPStatus(), "reason", "cannot store token", "error", err)
		return nil, err
	}

	user, err := s.Users.FindByID(ctx, v.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 404, "reason", "user vanished")
			return nil, apperr.NotFound("user not found")
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, apperr.Internal("could not load user", err)
	}

	l.Info("login_successful")
	s.publish(ctx, EventUserLoggedIn, user)
	return &LoginResult{User: user, AuthToken: v.Token, ExpiresAt: v.ExpiresAt}, nil
}

// storeLoginToken keeps a single login token per user, overwriting the
// previous value when one exists.
func (s *AuthService) storeLoginToken(ctx context.Context, v *LoginValidation) error {
	existing, err := s.Tokens.FindByUser(ctx, v.UserID, models.PurposeLogin)
	switch {
	case err == nil:
		existing.Token = v.Token
		existing.ExpiresAt = v.ExpiresAt
		if err := s.Tokens.Update(ctx, existing); err != nil {
			return apperr.Internal("could not store token", err)
		}
		return nil
	case !errors.Is(err, repo.ErrNotFound):
		return apperr.Internal("could not load token", err)
	}

	if v.Token == "" {
		return apperr.Internal("token is empty", nil)
	}
	t := &models.Token{
		UserID:    v.UserID,
		Token:     v.Token,
		Purpose:   models.PurposeLogin,
		ExpiresAt: v.ExpiresAt,
	}
	if err := s.Tokens.Create(ctx, t); err != nil {
		return apperr.Internal("could not store token", err)
	}
	return nil
}

func (s *AuthService) resetURL(token string, userID uuid.UUID) string {
	return s.Cfg.ResetURLBase + "?token=" + url.QueryEscape(token) + "&id=" + userID.String()
}

func (s *AuthService) ForgotPassword(ctx context.Context, req transport.ForgotPasswordRequest) error {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return apperr.Validation("invalid email", "email is required")
	}
	if !validEmail(email) {
		return apperr.Validation("invalid email", "email is invalid")
	}

	user, err := s.Users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("forgot_password_failed", "status", 404, "reason", "user not found")
			return apperr.NotFound("user not found")
		}
		l.Error("forgot_password_failed", "status", 500, "error", err)
		return apperr.Internal("could not load user", err)
	}
	l = l.With("user_id", user.ID)

	tok, exp, err := s.Signer.SignReset(user.ID.String())
	if err != nil {
		l.Error("forgot_password_failed", "status", 500, "reason", "cannot sign token", "error", err)
		return apperr.Internal("could not sign reset token", err)
	}

	record := &models.Token{
		UserID:    user.ID,
		Token:     tok,
		Purpose:   models.PurposeForgotPassword,
		ExpiresAt: exp,
	}
	if err := s.Tokens.Create(ctx, record); err != nil {
		l.Error("forgot_password_failed", "status", 500, "reason", "cannot store token", "error", err)
		return apperr.Internal("could not store reset token", err)
	}

	if err := s.Mailer.SendPasswordReset(ctx, user.Email, s.resetURL(tok, user.ID)); err != nil {
		var se *notify.SendError
		if errors.As(err, &se) {
			l.Error("forgot_password_failed", "status", se.Status, "reason", "mail not sent", "error", err)
			return apperr.WithStatus(apperr.KindInternal, se.Status, se.Message, err)
		}
		l.Error("forgot_password_failed", "status", 500, "reason", "mail not sent", "error", err)
		return apperr.Internal("could not send password reset email", err)
	}

	l.Info("forgot_password_sent")
	s.publish(ctx, EventPasswordResetRequested, user)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req transport.ResetPasswordRequest) error {
	l := logging.FromContext(ctx).With("svc", "auth.reset_password")

	var details []string
	if strings.TrimSpace(req.UserID) == "" {
		details = append(details, "userId is required")
	}
	if req.Token == "" {
		details = append(details, "token is required")
	}
	if req.NewPassword == "" {
		details = append(details, "newPassword is required")
	}
	if len(details) > 0 {
		return apperr.Validation("invalid reset data", details...)
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		return apperr.Validation("invalid reset data", "userId is invalid")
	}

	claims, err := s.Signer.VerifyReset(req.Token)
	if err != nil || claims.Subject != userID.String() {
		l.Warn("reset_password_failed", "status", 400, "reason", "bad token", "error", err)
		return apperr.Authentication("invalid or expired reset token")
	}

	record, err := s.Tokens.FindByValue(ctx, userID, req.Token, models.PurposeForgotPassword)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("reset_password_failed", "status", 400, "reason", "token not stored")
			return apperr.Authentication("invalid or expired reset token")
		}
		return apperr.Internal("could not load reset token", err)
	}
	if record.Expired(s.clock()) {
		l.Warn("reset_password_failed", "status", 400, "reason", "token expired")
		return apperr.Authentication("invalid or expired reset token")
	}

	if err := password.CheckPolicy(req.NewPassword); err != nil {
		return apperr.Validation(err.Error())
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("could not load user", err)
	}
	user.Password = req.NewPassword
	if err := s.Users.Update(ctx, user); err != nil {
		l.Error("reset_password_failed", "status", 500, "error", err)
		return apperr.Internal("could not update password", err)
	}
	if err := s.Tokens.Delete(ctx, record.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		l.Warn("reset_token_not_deleted", "token_id", record.ID, "error", err)
	}

	l.Info("reset_password_successful", "user_id", user.ID)
	s.publish(ctx, EventPasswordReset, user)
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req transport.ChangePasswordRequest) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "user_id", userID)

	var details []string
	if req.OldPassword == "" {
		details = append(details, "oldPassword is required")
	}
	if req.NewPassword == "" {
		details = append(details, "newPassword is required")
	}
	if len(details) > 0 {
		return apperr.Validation("invalid password data", details...)
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("change_password_failed", "status", 404, "reason", "user not found")
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("could not load user", err)
	}
	if !user.CheckPassword(req.OldPassword) {
		l.Warn("change_password_failed", "status", 400, "reason", "old password mismatch")
		return apperr.Authentication("old password is incorrect")
	}
	if err := password.CheckPolicy(req.NewPassword); err != nil {
		l.Warn("change_password_failed", "status", 400, "reason", "policy", "error", err)
		return apperr.Validation(err.Error())
	}

	user.Password = req.NewPassword
	if err := s.Users.Update(ctx, user); err != nil {
		l.Error("change_password_failed", "status", 500, "error", err)
		return apperr.Internal("could not update password", err)
	}

	l.Info("change_password_successful")
	s.publish(ctx, EventPasswordChanged, user)
	return nil
}

// publish never fails the caller; a lost event is only logged.
func (s *AuthService) publish(ctx context.Context, typ string, u *models.User) {
	if s.Events == nil || s.Cfg.EventsTopic == "" {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ev := UserEvent{Type: typ, UserID: u.ID.String(), Email: u.Email, At: s.clock().UTC()}
	if err := s.Events.PublishEvent(pctx, s.Cfg.EventsTopic, ev.UserID, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "event", typ, "error", err)
	}
}
