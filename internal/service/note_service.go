package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yakoovad/babylog/internal/model"
	"github.com/yakoovad/babylog/internal/repository"
	"github.com/yakoovad/babylog/pkg/logger"
	"go.uber.org/zap"
)

var noteTemplates = []model.NoteTemplate{
	{Type: model.NoteDiary, Title: "오늘의 육아 일기", Body: "오늘 아기의 기분:\n새로 한 것:\n기억하고 싶은 순간:\n"},
	{Type: model.NoteSchedule, Title: "예방접종", Body: "접종 종류:\n병원:\n준비물: 아기수첩, 여벌 옷\n"},
	{Type: model.NoteSchedule, Title: "영유아 검진", Body: "검진 차수:\n병원:\n물어볼 것:\n"},
	{Type: model.NoteTodo, Title: "외출 준비물", Body: "기저귀\n물티슈\n분유/젖병\n여벌 옷\n손수건\n"},
	{Type: model.NoteMemo, Title: "병원 상담 메모", Body: "증상:\n시작 시점:\n의사 소견:\n처방:\n"},
}

type NoteService struct {
	families repository.FamilyRepository
	babies   repository.BabyRepository
	notes    repository.NoteRepository
}

func NewNoteService() *NoteService {
	return &NoteService{}
}

func toModelNote(n *repository.Note) *model.Note {
	res := &model.Note{
		ID:        n.ID,
		BabyID:    n.BabyID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		DueAt:     n.DueAt,
		Completed: n.Completed,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if n.AuthorID != nil {
		res.AuthorID = *n.AuthorID
	}
	return res
}

// Templates returns the pre-filled note bodies offered by the note editor.
func (s *NoteService) Templates() []model.NoteTemplate {
	res := make([]model.NoteTemplate, len(noteTemplates))
	copy(res, noteTemplates)
	return res
}

func (s *NoteService) Create(ctx context.Context, userID, babyID string, note *model.Note) (*model.Note, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating note", zap.String("baby_id", babyID), zap.String("type", string(note.Type)))

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}

	row := &repository.Note{
		ID:        uuid.NewString(),
		BabyID:    babyID,
		AuthorID:  &userID,
		Type:      note.Type,
		Title:     note.Title,
		Body:      note.Body,
		DueAt:     note.DueAt,
		Completed: note.Completed,
	}
	if err := s.notes.Create(ctx, row); err != nil {
		l.Error("failed to create note", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create note")
	}
	return toModelNote(row), nil
}

func (s *NoteService) List(ctx context.Context, userID, babyID string, noteType model.NoteType) ([]*model.Note, *Error) {
	l := logger.FromContext(ctx)

	switch noteType {
	case "", model.NoteMemo, model.NoteDiary, model.NoteSchedule, model.NoteTodo:
	default:
		return nil, NewError(ErrorCodeInvalidBody, fmt.Sprintf("unknown note type %q", noteType))
	}

	if _, serr := accessibleBaby(ctx, s.families, s.babies, userID, babyID); serr != nil {
		return nil, serr
	}

	rows, err := s.notes.ListByBaby(ctx, babyID, noteType)
	if err != nil {
		l.Error("failed to list notes", zap.String("baby_id", babyID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list notes")
	}

	notes := make([]*model.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, toModelNote(row))
	}
	return notes, nil
}

func (s *NoteService) Update(ctx context.Context, userID, noteID string, patch *model.NotePatch) (*model.Note, *Error) {
	l := logger.FromContext(ctx)
	l.Info("updating note", zap.String("note_id", noteID))

	if serr := s.accessibleNote(ctx, userID, noteID); serr != nil {
		return nil, serr
	}

	row, err := s.notes.Patch(ctx, &repository.NotePatch{
		ID:        noteID,
		Title:     patch.Title,
		Body:      patch.Body,
		DueAt:     patch.DueAt,
		Completed: patch.Completed,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotFound, "note not found")
	}
	if err != nil {
		l.Error("failed to update note", zap.String("note_id", noteID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update note")
	}
	return toModelNote(row), nil
}

func (s *NoteService) Delete(ctx context.Context, userID, noteID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("deleting note", zap.String("note_id", noteID))

	if serr := s.accessibleNote(ctx, userID, noteID); serr != nil {
		return serr
	}

	err := s.notes.Delete(ctx, noteID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "note not found")
	}
	if err != nil {
		l.Error("failed to delete note", zap.String("note_id", noteID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to delete note")
	}
	return nil
}

func (s *NoteService) accessibleNote(ctx context.Context, userID, noteID string) *Error {
	note, err := s.notes.Get(ctx, noteID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewError(ErrorCodeNotFound, "note not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get note", zap.String("note_id", noteID), zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to get note")
	}

	_, serr := accessibleBaby(ctx, s.families, s.babies, userID, note.BabyID)
	return serr
}

func (s *NoteService) WithFamilyRepo(r repository.FamilyRepository) *NoteService {
	s.families = r
	return s
}

func (s *NoteService) WithBabyRepo(r repository.BabyRepository) *NoteService {
	s.babies = r
	return s
}

func (s *NoteService) WithNoteRepo(r repository.NoteRepository) *NoteService {
	s.notes = r
	return s
}
