package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

// txError turns the error returned by WithinTransaction back into a service error.
func txError(err error) *Error {
	if err == nil {
		return nil
	}
	var res *Error
	if errors.As(err, &res) {
		return res
	}
	return NewError(ErrorCodeUnspecified, "transaction failed")
}

// membership returns the family membership of userID. A user without a family gets ErrorCodeForbidden.
func membership(ctx context.Context, families repository.FamilyRepository, userID string) (*repository.FamilyMember, *Error) {
	l := logger.FromContext(ctx)

	m, err := families.GetMembership(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("user has no family", zap.String("user_id", userID))
		return nil, NewError(ErrorCodeForbidden, "user is not a member of any family")
	}
	if err != nil {
		l.Error("failed to get membership", zap.String("user_id", userID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get family membership")
	}
	return m, nil
}

// accessibleBaby loads a baby and checks that userID belongs to its family.
func accessibleBaby(ctx context.Context, families repository.FamilyRepository, babies repository.BabyRepository, userID, babyID string) (*repository.Baby, *Error) {
	l := logger.FromContext(ctx)

	baby, err := babies.Get(ctx, babyID)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("baby not found", zap.String("baby_id", babyID))
		return nil, NewError(ErrorCodeNotFound, "baby not found")
	}
	if err != nil {
		l.Error("failed to get baby", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get baby")
	}

	m, serr := membership(ctx, families, userID)
	if serr != nil {
		return nil, serr
	}
	if m.FamilyID != baby.FamilyID {
		l.Warn("baby belongs to another family",
			zap.String("user_id", userID),
			zap.String("baby_id", babyID))
		return nil, NewError(ErrorCodeForbidden, "baby belongs to another family")
	}
	return baby, nil
}
