package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/db"
	"github.com/yakoovad/babylog/internal/mail"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

const (
	inviteCodeLength   = 8
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeTTL      = 7 * 24 * time.Hour
)

func newInviteCode() (string, error) {
	buf := make([]byte, inviteCodeLength)
	base := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		buf[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

type FamilyService struct {
	tx db.Transactor

	families repository.FamilyRepository
	users    repository.UserRepository
	mailer   mail.Mailer

	now      func() time.Time
	codeFunc func() (string, error)
}

func NewFamilyService(tx db.Transactor) *FamilyService {
	return &FamilyService{
		tx:       tx,
		now:      time.Now,
		codeFunc: newInviteCode,
	}
}

func (f *FamilyService) CreateFamily(ctx context.Context, userID, name string) (*model.Family, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating family", zap.String("user_id", userID), zap.String("name", name))

	var family *repository.Family
	err := f.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		_, err := f.families.GetMembership(txCtx, userID)
		if err == nil {
			l.Warn("user already in a family", zap.String("user_id", userID))
			return NewError(ErrorCodeAlreadyInFamily, "user is already a member of a family")
		}
		if !errors.Is(err, repository.ErrNotFound) {
			l.Error("failed to get membership", zap.String("user_id", userID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get family membership")
		}

		code, err := f.codeFunc()
		if err != nil {
			l.Error("failed to generate invite code", zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to generate invite code")
		}

		family = &repository.Family{
			ID:              uuid.NewString(),
			Name:            name,
			OwnerID:         userID,
			InviteCode:      code,
			InviteExpiresAt: f.now().Add(inviteCodeTTL),
		}
		err = f.families.Create(txCtx, family)
		if errors.Is(err, repository.ErrAlreadyExists) {
			l.Warn("invite code collision", zap.String("invite_code", code))
			return NewError(ErrorCodeConflict, "invite code collision, try again")
		}
		if err != nil {
			l.Error("failed to create family", zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to create family")
		}

		if err = f.families.AddMember(txCtx, family.ID, userID, model.FamilyRoleOwner); err != nil {
			l.Error("failed to add owner", zap.String("family_id", family.ID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to add family owner")
		}
		return nil
	})
	if serr := txError(err); serr != nil {
		return nil, serr
	}

	return f.withMembers(ctx, family)
}

func (f *FamilyService) GetMyFamily(ctx context.Context, userID string) (*model.Family, *Error) {
	l := logger.FromContext(ctx)

	m, err := f.families.GetMembership(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "user has no family")
	}
	if err != nil {
		l.Error("failed to get membership", zap.String("user_id", userID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get family membership")
	}

	family, err := f.families.Get(ctx, m.FamilyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "family not found")
	}
	if err != nil {
		l.Error("failed to get family", zap.String("family_id", m.FamilyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get family")
	}

	return f.withMembers(ctx, family)
}

func (f *FamilyService) JoinFamily(ctx context.Context, userID, code string) (*model.Family, *Error) {
	l := logger.FromContext(ctx)
	l.Info("joining family", zap.String("user_id", userID))

	var family *repository.Family
	err := f.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		_, err := f.families.GetMembership(txCtx, userID)
		if err == nil {
			l.Warn("user already in a family", zap.String("user_id", userID))
			return NewError(ErrorCodeAlreadyInFamily, "user is already a member of a family")
		}
		if !errors.Is(err, repository.ErrNotFound) {
			l.Error("failed to get membership", zap.String("user_id", userID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get family membership")
		}

		family, err = f.families.GetByInviteCode(txCtx, code)
		if errors.Is(err, repository.ErrNotFound) {
			l.Warn("unknown invite code", zap.String("invite_code", code))
			return NewError(ErrorCodeNotFound, "invite code not found")
		}
		if err != nil {
			l.Error("failed to get family by invite code", zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get family")
		}
		if !f.now().Before(family.InviteExpiresAt) {
			l.Warn("invite code expired", zap.String("family_id", family.ID))
			return NewError(ErrorCodeInviteExpired, "invite code expired")
		}

		err = f.families.AddMember(txCtx, family.ID, userID, model.FamilyRoleMember)
		if errors.Is(err, repository.ErrAlreadyExists) {
			return NewError(ErrorCodeAlreadyInFamily, "user is already a member of a family")
		}
		if err != nil {
			l.Error("failed to add member", zap.String("family_id", family.ID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to join family")
		}
		return nil
	})
	if serr := txError(err); serr != nil {
		return nil, serr
	}

	return f.withMembers(ctx, family)
}

// ownedFamily returns the caller's family if the caller owns it.
func (f *FamilyService) ownedFamily(ctx context.Context, userID string) (*repository.Family, *Error) {
	l := logger.FromContext(ctx)

	m, serr := membership(ctx, f.families, userID)
	if serr != nil {
		return nil, serr
	}
	if m.Role != model.FamilyRoleOwner {
		l.Warn("caller is not the family owner", zap.String("user_id", userID))
		return nil, NewError(ErrorCodeForbidden, "only the family owner can do this")
	}

	family, err := f.families.Get(ctx, m.FamilyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "family not found")
	}
	if err != nil {
		l.Error("failed to get family", zap.String("family_id", m.FamilyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get family")
	}
	return family, nil
}

func (f *FamilyService) RegenerateInviteCode(ctx context.Context, userID string) (*model.Family, *Error) {
	l := logger.FromContext(ctx)
	l.Info("regenerating invite code", zap.String("user_id", userID))

	family, serr := f.ownedFamily(ctx, userID)
	if serr != nil {
		return nil, serr
	}
	if serr := f.rotateCode(ctx, family); serr != nil {
		return nil, serr
	}
	return f.withMembers(ctx, family)
}

func (f *FamilyService) rotateCode(ctx context.Context, family *repository.Family) *Error {
	l := logger.FromContext(ctx)

	code, err := f.codeFunc()
	if err != nil {
		l.Error("failed to generate invite code", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to generate invite code")
	}
	expiresAt := f.now().Add(inviteCodeTTL)

	err = f.families.UpdateInviteCode(ctx, family.ID, code, expiresAt)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return NewError(ErrorCodeConflict, "invite code collision, try again")
	}
	if err != nil {
		l.Error("failed to update invite code", zap.String("family_id", family.ID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to update invite code")
	}

	family.InviteCode = code
	family.InviteExpiresAt = expiresAt
	return nil
}

// SendInvite mails the family invite code, refreshing it first when it has expired.
func (f *FamilyService) SendInvite(ctx context.Context, userID, email string) *Error {
	l := logger.FromContext(ctx)
	l.Info("sending family invite", zap.String("user_id", userID), zap.String("email", email))

	family, serr := f.ownedFamily(ctx, userID)
	if serr != nil {
		return serr
	}
	if !f.now().Before(family.InviteExpiresAt) {
		if serr := f.rotateCode(ctx, family); serr != nil {
			return serr
		}
	}

	inviter := ""
	if u, err := f.users.Get(ctx, userID); err == nil {
		inviter = u.Name
	}

	err := f.mailer.SendFamilyInvite(ctx, email, mail.Invite{
		FamilyName:  family.Name,
		InviterName: inviter,
		Code:        family.InviteCode,
	})
	if err != nil {
		l.Error("failed to send invite", zap.String("family_id", family.ID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to send invite")
	}
	return nil
}

func (f *FamilyService) RemoveMember(ctx context.Context, userID, memberID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("removing family member", zap.String("user_id", userID), zap.String("member_id", memberID))

	if userID == memberID {
		return NewError(ErrorCodeInvalidBody, "owner cannot remove themself, leave the family instead")
	}

	family, serr := f.ownedFamily(ctx, userID)
	if serr != nil {
		return serr
	}

	err := f.families.RemoveMember(ctx, family.ID, memberID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "member not found")
	}
	if err != nil {
		l.Error("failed to remove member", zap.String("family_id", family.ID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to remove member")
	}
	return nil
}

func (f *FamilyService) LeaveFamily(ctx context.Context, userID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("leaving family", zap.String("user_id", userID))

	err := f.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		m, err := f.families.GetMembership(txCtx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return NewError(ErrorCodeNotFound, "user has no family")
		}
		if err != nil {
			l.Error("failed to get membership", zap.String("user_id", userID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get family membership")
		}

		if serr := leaveFamily(txCtx, f.families, m); serr != nil {
			return serr
		}
		return nil
	})

	return txError(err)
}

// leaveFamily detaches a member. An owner hands the family to the oldest other
// member; an owner who is the last member deletes the family.
func leaveFamily(ctx context.Context, families repository.FamilyRepository, m *repository.FamilyMember) *Error {
	l := logger.FromContext(ctx)

	if m.Role == model.FamilyRoleOwner {
		members, err := families.ListMembers(ctx, m.FamilyID)
		if err != nil {
			l.Error("failed to list members", zap.String("family_id", m.FamilyID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to list family members")
		}

		var heir *repository.FamilyMember
		for _, member := range members {
			if member.UserID != m.UserID {
				heir = member
				break
			}
		}

		if heir == nil {
			if err := families.Delete(ctx, m.FamilyID); err != nil {
				l.Error("failed to delete family", zap.String("family_id", m.FamilyID), zap.Error(err))
				return NewError(ErrorCodeUnspecified, "failed to delete family")
			}
			l.Info("deleted empty family", zap.String("family_id", m.FamilyID))
			return nil
		}

		if err := families.UpdateOwner(ctx, m.FamilyID, heir.UserID); err != nil {
			l.Error("failed to transfer ownership", zap.String("family_id", m.FamilyID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to transfer family ownership")
		}
		l.Info("transferred family ownership",
			zap.String("family_id", m.FamilyID),
			zap.String("new_owner_id", heir.UserID))
	}

	if err := families.RemoveMember(ctx, m.FamilyID, m.UserID); err != nil {
		l.Error("failed to remove member", zap.String("family_id", m.FamilyID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to leave family")
	}
	return nil
}

func (f *FamilyService) withMembers(ctx context.Context, family *repository.Family) (*model.Family, *Error) {
	membersRepo, err := f.families.ListMembers(ctx, family.ID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list members", zap.String("family_id", family.ID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list family members")
	}

	members := make([]*model.FamilyMember, 0, len(membersRepo))
	for _, m := range membersRepo {
		members = append(members, &model.FamilyMember{
			UserID:   m.UserID,
			Email:    m.Email,
			Name:     m.Name,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}

	return &model.Family{
		ID:              family.ID,
		Name:            family.Name,
		OwnerID:         family.OwnerID,
		InviteCode:      family.InviteCode,
		InviteExpiresAt: family.InviteExpiresAt,
		Members:         members,
		CreatedAt:       family.CreatedAt,
	}, nil
}

func (f *FamilyService) WithFamilyRepo(r repository.FamilyRepository) *FamilyService {
	f.families = r
	return f
}

func (f *FamilyService) WithUserRepo(r repository.UserRepository) *FamilyService {
	f.users = r
	return f
}

func (f *FamilyService) WithMailer(m mail.Mailer) *FamilyService {
	f.mailer = m
	return f
}
