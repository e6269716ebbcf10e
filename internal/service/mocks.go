package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yakoovad/babylog/internal/chat"
	"github.com/yakoovad/babylog/internal/mail"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Get(ctx context.Context, userID string) (*repository.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *repository.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserRepository) GetSettings(ctx context.Context, userID string) (*repository.UserSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.UserSettings), args.Error(1)
}

func (m *MockUserRepository) UpsertSettings(ctx context.Context, settings *repository.UserSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

type MockFamilyRepository struct {
	mock.Mock
}

func (m *MockFamilyRepository) Create(ctx context.Context, family *repository.Family) error {
	args := m.Called(ctx, family)
	return args.Error(0)
}

func (m *MockFamilyRepository) Get(ctx context.Context, familyID string) (*repository.Family, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Family), args.Error(1)
}

func (m *MockFamilyRepository) GetByInviteCode(ctx context.Context, code string) (*repository.Family, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Family), args.Error(1)
}

func (m *MockFamilyRepository) UpdateInviteCode(ctx context.Context, familyID, code string, expiresAt time.Time) error {
	args := m.Called(ctx, familyID, code, expiresAt)
	return args.Error(0)
}

func (m *MockFamilyRepository) UpdateOwner(ctx context.Context, familyID, ownerID string) error {
	args := m.Called(ctx, familyID, ownerID)
	return args.Error(0)
}

func (m *MockFamilyRepository) Delete(ctx context.Context, familyID string) error {
	args := m.Called(ctx, familyID)
	return args.Error(0)
}

func (m *MockFamilyRepository) AddMember(ctx context.Context, familyID, userID string, role model.FamilyRole) error {
	args := m.Called(ctx, familyID, userID, role)
	return args.Error(0)
}

func (m *MockFamilyRepository) RemoveMember(ctx context.Context, familyID, userID string) error {
	args := m.Called(ctx, familyID, userID)
	return args.Error(0)
}

func (m *MockFamilyRepository) ListMembers(ctx context.Context, familyID string) ([]*repository.FamilyMember, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.FamilyMember), args.Error(1)
}

func (m *MockFamilyRepository) GetMembership(ctx context.Context, userID string) (*repository.FamilyMember, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.FamilyMember), args.Error(1)
}

type MockBabyRepository struct {
	mock.Mock
}

func (m *MockBabyRepository) Create(ctx context.Context, baby *repository.Baby) error {
	args := m.Called(ctx, baby)
	return args.Error(0)
}

func (m *MockBabyRepository) Get(ctx context.Context, babyID string) (*repository.Baby, error) {
	args := m.Called(ctx, babyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Baby), args.Error(1)
}

func (m *MockBabyRepository) ListByFamily(ctx context.Context, familyID string) ([]*repository.Baby, error) {
	args := m.Called(ctx, familyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Baby), args.Error(1)
}

func (m *MockBabyRepository) Patch(ctx context.Context, patch *repository.BabyPatch) (*repository.Baby, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Baby), args.Error(1)
}

func (m *MockBabyRepository) Delete(ctx context.Context, babyID string) error {
	args := m.Called(ctx, babyID)
	return args.Error(0)
}

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Create(ctx context.Context, a *repository.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockActivityRepository) Get(ctx context.Context, activityID string) (*repository.Activity, error) {
	args := m.Called(ctx, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Activity), args.Error(1)
}

func (m *MockActivityRepository) List(ctx context.Context, filter repository.ActivityFilter) ([]*repository.Activity, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Activity), args.Error(1)
}

func (m *MockActivityRepository) Update(ctx context.Context, a *repository.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockActivityRepository) Delete(ctx context.Context, activityID string) error {
	args := m.Called(ctx, activityID)
	return args.Error(0)
}

type MockNoteRepository struct {
	mock.Mock
}

func (m *MockNoteRepository) Create(ctx context.Context, note *repository.Note) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockNoteRepository) Get(ctx context.Context, noteID string) (*repository.Note, error) {
	args := m.Called(ctx, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Note), args.Error(1)
}

func (m *MockNoteRepository) ListByBaby(ctx context.Context, babyID string, noteType model.NoteType) ([]*repository.Note, error) {
	args := m.Called(ctx, babyID, noteType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Note), args.Error(1)
}

func (m *MockNoteRepository) Patch(ctx context.Context, patch *repository.NotePatch) (*repository.Note, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Note), args.Error(1)
}

func (m *MockNoteRepository) Delete(ctx context.Context, noteID string) error {
	args := m.Called(ctx, noteID)
	return args.Error(0)
}

type MockGrowthRepository struct {
	mock.Mock
}

func (m *MockGrowthRepository) CreateMeasurement(ctx context.Context, ms *repository.Measurement) error {
	args := m.Called(ctx, ms)
	return args.Error(0)
}

func (m *MockGrowthRepository) ListMeasurements(ctx context.Context, babyID string, limit int) ([]*repository.Measurement, error) {
	args := m.Called(ctx, babyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Measurement), args.Error(1)
}

func (m *MockGrowthRepository) ListMilestones(ctx context.Context, babyID string) ([]*repository.Milestone, error) {
	args := m.Called(ctx, babyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Milestone), args.Error(1)
}

func (m *MockGrowthRepository) UpsertMilestone(ctx context.Context, ms *repository.Milestone) error {
	args := m.Called(ctx, ms)
	return args.Error(0)
}

func (m *MockGrowthRepository) DeleteMilestone(ctx context.Context, babyID, key string) error {
	args := m.Called(ctx, babyID, key)
	return args.Error(0)
}

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateMessage(ctx context.Context, msg *repository.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatRepository) ListRecent(ctx context.Context, babyID, userID string, limit int) ([]*repository.ChatMessage, error) {
	args := m.Called(ctx, babyID, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.ChatMessage), args.Error(1)
}

func (m *MockChatRepository) DeleteConversation(ctx context.Context, babyID, userID string) (int64, error) {
	args := m.Called(ctx, babyID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatRepository) CreateMetrics(ctx context.Context, metrics *repository.ChatMetrics) error {
	args := m.Called(ctx, metrics)
	return args.Error(0)
}

func (m *MockChatRepository) ListMetrics(ctx context.Context, from, to time.Time) ([]*repository.ChatMetrics, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.ChatMetrics), args.Error(1)
}

type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) Get(ctx context.Context, babyID, day string, days int) ([]*model.DailyStats, int64, bool, error) {
	args := m.Called(ctx, babyID, day, days)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Bool(2), args.Error(3)
	}
	return args.Get(0).([]*model.DailyStats), args.Get(1).(int64), args.Bool(2), args.Error(3)
}

func (m *MockStatsCache) Set(ctx context.Context, babyID string, version int64, day string, days int, stats []*model.DailyStats) error {
	args := m.Called(ctx, babyID, version, day, days, stats)
	return args.Error(0)
}

func (m *MockStatsCache) Invalidate(ctx context.Context, babyID string) error {
	args := m.Called(ctx, babyID)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendFamilyInvite(ctx context.Context, to string, invite mail.Invite) error {
	args := m.Called(ctx, to, invite)
	return args.Error(0)
}

type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, req chat.Request, emit func(chunk string) error) (*chat.Result, error) {
	args := m.Called(ctx, req, emit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.Result), args.Error(1)
}
