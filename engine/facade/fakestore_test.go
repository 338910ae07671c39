package facade

import (
	"context"
	"time"

	"github.com/flowforge/engine/engine/persistence"
)

// fakeStore is a minimal in-memory persistence.Store for exercising the
// façade's shutdown sequencing without a real database.
type fakeStore struct {
	entries               []persistence.Entry
	clearStatusCountCalls int
	clearEntriesCalls     int
}

func (f *fakeStore) Init(context.Context) error { return nil }

func (f *fakeStore) WriteEntry(_ context.Context, entry persistence.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) ClearStatusCount(context.Context) error {
	f.clearStatusCountCalls++
	return nil
}

func (f *fakeStore) ClearEntries(context.Context) error {
	f.clearEntriesCalls++
	f.entries = nil
	return nil
}

func (f *fakeStore) GetStatusCount(context.Context) ([]persistence.StatusCount, error) {
	return nil, nil
}

func (f *fakeStore) GetEntries(context.Context, persistence.EntryFilter) ([]persistence.Entry, error) {
	return f.entries, nil
}

func (f *fakeStore) GetEntriesCount(context.Context, persistence.EntryFilter) (int64, error) {
	return int64(len(f.entries)), nil
}

func (f *fakeStore) GetHistoryEntries(context.Context, persistence.EntryFilter) ([]persistence.Entry, error) {
	return f.entries, nil
}

func (f *fakeStore) GetHistoryEntriesCount(context.Context, persistence.EntryFilter) (int64, error) {
	return int64(len(f.entries)), nil
}

func (f *fakeStore) GetEntryStatusDateMin(context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeStore) GetEntryStatusDateMax(context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeStore) InsertUser(context.Context, persistence.User) error { return nil }

func (f *fakeStore) GetUser(context.Context, string) (*persistence.User, error) {
	return nil, nil
}

func (f *fakeStore) GetPassword(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) Close(context.Context) error { return nil }

var _ persistence.Store = (*fakeStore)(nil)
