package mocks

import (
	"context"
	"time"

	"github.com/rpggio/apontador/internal/domain/sheet"
	"github.com/rpggio/apontador/internal/domain/submission"
	"github.com/stretchr/testify/mock"
)

// SheetRepository is a mock for sheet.Repository.
type SheetRepository struct {
	mock.Mock
}

func (m *SheetRepository) Create(ctx context.Context, s *sheet.ServiceSheet) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SheetRepository) Get(ctx context.Context, id string) (*sheet.ServiceSheet, error) {
	args := m.Called(ctx, id)
	if s, ok := args.Get(0).(*sheet.ServiceSheet); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SheetRepository) List(ctx context.Context, opts sheet.ListOptions) ([]sheet.SheetSummary, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]sheet.SheetSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SheetRepository) UpdateRecord(ctx context.Context, rec *sheet.ActivityRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *SheetRepository) UpdateStatus(ctx context.Context, id string, status sheet.Status, completedAt *time.Time) error {
	args := m.Called(ctx, id, status, completedAt)
	return args.Error(0)
}

// EntryRepository is a mock for submission.EntryRepository.
type EntryRepository struct {
	mock.Mock
}

func (m *EntryRepository) Exists(ctx context.Context, fingerprint string) (bool, error) {
	args := m.Called(ctx, fingerprint)
	return args.Bool(0), args.Error(1)
}

func (m *EntryRepository) Save(ctx context.Context, e *submission.PostedEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *EntryRepository) ListBySheet(ctx context.Context, sheetID string) ([]submission.PostedEntry, error) {
	args := m.Called(ctx, sheetID)
	if list, ok := args.Get(0).([]submission.PostedEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
