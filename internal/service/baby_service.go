package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/db"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

type BabyService struct {
	tx db.Transactor

	families repository.FamilyRepository
	babies   repository.BabyRepository
}

func NewBabyService(tx db.Transactor) *BabyService {
	return &BabyService{tx: tx}
}

func toModelBaby(b *repository.Baby) *model.Baby {
	return &model.Baby{
		ID:        b.ID,
		FamilyID:  b.FamilyID,
		Name:      b.Name,
		BirthDate: b.BirthDate,
		Gender:    b.Gender,
		CreatedAt: b.CreatedAt,
	}
}

func (b *BabyService) Create(ctx context.Context, userID string, baby *model.Baby) (*model.Baby, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating baby", zap.String("user_id", userID), zap.String("name", baby.Name))

	m, serr := membership(ctx, b.families, userID)
	if serr != nil {
		return nil, serr
	}

	row := &repository.Baby{
		ID:        uuid.NewString(),
		FamilyID:  m.FamilyID,
		Name:      baby.Name,
		BirthDate: baby.BirthDate,
		Gender:    baby.Gender,
	}
	if err := b.babies.Create(ctx, row); err != nil {
		l.Error("failed to create baby", zap.String("family_id", m.FamilyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create baby")
	}

	l.Debug("baby created", zap.String("baby_id", row.ID))
	return toModelBaby(row), nil
}

// List returns the babies of the caller's family; a caller without a family has none.
func (b *BabyService) List(ctx context.Context, userID string) ([]*model.Baby, *Error) {
	l := logger.FromContext(ctx)

	m, err := b.families.GetMembership(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return []*model.Baby{}, nil
	}
	if err != nil {
		l.Error("failed to get membership", zap.String("user_id", userID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get family membership")
	}

	rows, err := b.babies.ListByFamily(ctx, m.FamilyID)
	if err != nil {
		l.Error("failed to list babies", zap.String("family_id", m.FamilyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list babies")
	}

	babies := make([]*model.Baby, 0, len(rows))
	for _, row := range rows {
		babies = append(babies, toModelBaby(row))
	}
	return babies, nil
}

func (b *BabyService) Get(ctx context.Context, userID, babyID string) (*model.Baby, *Error) {
	row, serr := accessibleBaby(ctx, b.families, b.babies, userID, babyID)
	if serr != nil {
		return nil, serr
	}
	return toModelBaby(row), nil
}

func (b *BabyService) Update(ctx context.Context, userID, babyID string, patch *model.BabyPatch) (*model.Baby, *Error) {
	l := logger.FromContext(ctx)
	l.Info("updating baby", zap.String("baby_id", babyID), zap.Any("patch", patch))

	if _, serr := accessibleBaby(ctx, b.families, b.babies, userID, babyID); serr != nil {
		return nil, serr
	}

	row, err := b.babies.Patch(ctx, &repository.BabyPatch{
		ID:        babyID,
		Name:      patch.Name,
		BirthDate: patch.BirthDate,
		Gender:    patch.Gender,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "baby not found")
	}
	if err != nil {
		l.Error("failed to update baby", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update baby")
	}
	return toModelBaby(row), nil
}

func (b *BabyService) Delete(ctx context.Context, userID, babyID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("deleting baby", zap.String("baby_id", babyID))

	if _, serr := accessibleBaby(ctx, b.families, b.babies, userID, babyID); serr != nil {
		return serr
	}

	err := b.babies.Delete(ctx, babyID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "baby not found")
	}
	if err != nil {
		l.Error("failed to delete baby", zap.String("baby_id", babyID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to delete baby")
	}
	return nil
}

func (b *BabyService) WithFamilyRepo(r repository.FamilyRepository) *BabyService {
	b.families = r
	return b
}

func (b *BabyService) WithBabyRepo(r repository.BabyRepository) *BabyService {
	b.babies = r
	return b
}
