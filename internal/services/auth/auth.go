package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"boltvault/internal/domain/models"
	"boltvault/internal/form"
	"boltvault/internal/lib/jwt"
	"boltvault/internal/lib/logger/sl"
	"boltvault/internal/repository"
	"boltvault/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExist          = errors.New("user already exist")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

type Auth struct {
	log      *slog.Logger
	users    repository.UserRepository
	sessions repository.SessionRepository
	secret   string
	tokenTTL time.Duration
}

func New(log *slog.Logger, users repository.UserRepository, sessions repository.SessionRepository, secret string, tokenTTL time.Duration) *Auth {
	return &Auth{
		log:      log,
		users:    users,
		sessions: sessions,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// SignUp creates an account and signs it in.
func (a *Auth) SignUp(ctx context.Context, email, password string) (models.Session, error) {
	const op = "auth.SignUp"

	email = normalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("register user")

	if err := form.ValidatePassword(password); err != nil {
		return models.Session{}, err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.users.SaveUser(ctx, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exist", sl.Err(err))

			return models.Session{}, fmt.Errorf("%s: %w", op, ErrUserExist)
		}

		log.Error("failed to save user", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered")

	return a.issue(ctx, op, models.User{ID: id, Email: email})
}

func (a *Auth) Login(ctx context.Context, email, password string) (models.Session, error) {
	const op = "auth.Login"

	email = normalizeEmail(email)

	log := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("attempting to login user")

	user, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))

			return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.Password, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	log.Info("user logged in successfully")

	return a.issue(ctx, op, user)
}

// Authenticate resolves a token into a live session.
func (a *Auth) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	const op = "auth.Authenticate"

	session, err := jwt.ParseToken(token, a.secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}

	ok, err := a.sessions.SessionExists(ctx, session.UserID, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}

	return &session, nil
}

func (a *Auth) Logout(ctx context.Context, session models.Session) error {
	const op = "auth.Logout"

	if err := a.sessions.DeleteSession(ctx, session.UserID, session.Token); err != nil {
		a.log.With(slog.String("op", op)).Error("failed to delete session", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ChangePassword sets a new password and revokes every other session of
// the user. The calling session stays valid.
func (a *Auth) ChangePassword(ctx context.Context, session models.Session, password, confirm string) error {
	const op = "auth.ChangePassword"

	log := a.log.With(
		slog.String("op", op),
		slog.String("user_id", session.UserID.String()),
	)

	if err := form.ValidatePasswordChange(password, confirm); err != nil {
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.users.UpdatePassword(ctx, session.UserID, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.DeleteAllUserSessions(ctx, session.UserID); err != nil {
		log.Error("failed to revoke sessions", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if ttl := time.Until(session.ExpiresAt); ttl > 0 {
		if err := a.sessions.SaveSession(ctx, session, ttl); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("password changed")

	return nil
}

// RevokeAll ends every session of the session's user, used after the
// account is deleted.
func (a *Auth) RevokeAll(ctx context.Context, session models.Session) error {
	const op = "auth.RevokeAll"

	if err := a.sessions.DeleteAllUserSessions(ctx, session.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *Auth) issue(ctx context.Context, op string, user models.User) (models.Session, error) {
	token, exp, err := jwt.NewToken(user, a.secret, a.tokenTTL)
	if err != nil {
		a.log.Error("failed to generate token", slog.String("op", op), sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	session := models.Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: exp,
	}

	if err := a.sessions.SaveSession(ctx, session, a.tokenTTL); err != nil {
		a.log.Error("failed to save session", slog.String("op", op), sl.Err(err))

		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
