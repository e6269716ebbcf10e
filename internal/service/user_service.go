package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/db"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

type UserService struct {
	tx db.Transactor

	users    repository.UserRepository
	families repository.FamilyRepository

	defaultTimezone string
}

func NewUserService(tx db.Transactor) *UserService {
	return &UserService{tx: tx, defaultTimezone: "Asia/Seoul"}
}

// EnsureUser creates or refreshes the user row for an authenticated session.
func (u *UserService) EnsureUser(ctx context.Context, user *model.User) *Error {
	l := logger.FromContext(ctx)

	row := &repository.User{ID: user.ID, Email: user.Email, Name: user.Name}
	if err := u.users.Upsert(ctx, row); err != nil {
		l.Error("failed to upsert user", zap.String("user_id", user.ID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to save user")
	}
	user.CreatedAt = row.CreatedAt
	return nil
}

func (u *UserService) GetMe(ctx context.Context, userID string) (*model.Me, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("getting profile", zap.String("user_id", userID))

	user, err := u.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "user not found")
	}
	if err != nil {
		l.Error("failed to get user", zap.String("user_id", userID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get user")
	}

	settings, serr := u.settings(ctx, userID)
	if serr != nil {
		return nil, serr
	}

	me := &model.Me{
		User: &model.User{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			CreatedAt: user.CreatedAt,
		},
		Settings: settings,
	}

	m, err := u.families.GetMembership(ctx, userID)
	switch {
	case err == nil:
		me.FamilyID = m.FamilyID
	case !errors.Is(err, repository.ErrNotFound):
		l.Error("failed to get membership", zap.String("user_id", userID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get family membership")
	}
	return me, nil
}

func (u *UserService) settings(ctx context.Context, userID string) (*model.UserSettings, *Error) {
	s, err := u.users.GetSettings(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.UserSettings{
			UserID:        userID,
			Timezone:      u.defaultTimezone,
			Language:      "ko",
			Notifications: true,
		}, nil
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get settings", zap.String("user_id", userID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get settings")
	}
	return &model.UserSettings{
		UserID:        s.UserID,
		Timezone:      s.Timezone,
		Language:      s.Language,
		Notifications: s.Notifications,
	}, nil
}

func (u *UserService) UpdateSettings(ctx context.Context, userID string, settings *model.UserSettings) (*model.UserSettings, *Error) {
	l := logger.FromContext(ctx)
	l.Info("updating settings", zap.String("user_id", userID), zap.Any("settings", settings))

	settings.UserID = userID
	err := u.users.UpsertSettings(ctx, &repository.UserSettings{
		UserID:        userID,
		Timezone:      settings.Timezone,
		Language:      settings.Language,
		Notifications: settings.Notifications,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "user not found")
	}
	if err != nil {
		l.Error("failed to update settings", zap.String("user_id", userID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update settings")
	}
	return settings, nil
}

// DeleteAccount removes the user and everything that cascades from it. A family
// owned by the user is handed to the oldest remaining member or deleted when empty.
func (u *UserService) DeleteAccount(ctx context.Context, userID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("deleting account", zap.String("user_id", userID))

	err := u.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		m, err := u.families.GetMembership(txCtx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			l.Error("failed to get membership", zap.String("user_id", userID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get family membership")
		}
		if m != nil {
			if serr := leaveFamily(txCtx, u.families, m); serr != nil {
				return serr
			}
		}

		err = u.users.Delete(txCtx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "user not found")
		}
		if err != nil {
			l.Error("failed to delete user", zap.String("user_id", userID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to delete user")
		}
		return nil
	})

	return txError(err)
}

func (u *UserService) WithUserRepo(r repository.UserRepository) *UserService {
	u.users = r
	return u
}

func (u *UserService) WithFamilyRepo(r repository.FamilyRepository) *UserService {
	u.families = r
	return u
}

func (u *UserService) WithDefaultTimezone(tz string) *UserService {
	u.defaultTimezone = tz
	return u
}
