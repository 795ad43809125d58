package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sarf14/onboarding-tool-sub001/internal/storage"
	"github.com/sarf14/onboarding-tool-sub001/types"
)

// MaxDayContentBytes caps stored day content documents.
const MaxDayContentBytes = 1 << 20

// ContentStore is the object storage holding day content.
type ContentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	ReadAll(ctx context.Context, key string, limit int64) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ContentService serves the opaque per-day curriculum content.
type ContentService struct {
	store ContentStore
	days  int
}

// NewContentService constructs the service; store may be nil, in which case
// every day reports not found.
func NewContentService(store ContentStore, days int) *ContentService {
	return &ContentService{store: store, days: days}
}

func dayContentKey(day int) string {
	return fmt.Sprintf("days/%d.json", day)
}

// DayContent fetches the JSON document for a day.
func (s *ContentService) DayContent(ctx context.Context, day int) (json.RawMessage, error) {
	if day < 1 || day > s.days || s.store == nil {
		return nil, fmt.Errorf("%w: content for day %d", ErrNotFound, day)
	}

	data, err := readWithRetry(ctx, func(ctx context.Context) ([]byte, error) {
		return s.store.ReadAll(ctx, dayContentKey(day), MaxDayContentBytes)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: content for day %d", ErrNotFound, day)
		}
		return nil, err
	}
	return json.RawMessage(data), nil
}

// PutDayContent replaces the JSON document for a day.
func (s *ContentService) PutDayContent(ctx context.Context, caller types.Identity, day int, data []byte) error {
	if err := Authorize(caller, ActionManage, Resource{Kind: ResourceContent}); err != nil {
		return err
	}
	if day < 1 || day > s.days {
		return fmt.Errorf("%w: day %d", ErrNotFound, day)
	}
	if len(data) > MaxDayContentBytes {
		return fmt.Errorf("%w: %v", ErrInvalidInput, storage.ErrTooLarge)
	}
	if !json.Valid(data) {
		return fmt.Errorf("%w: content must be a JSON document", ErrInvalidInput)
	}
	if s.store == nil {
		return fmt.Errorf("%w: content storage is not configured", ErrStorageUnavailable)
	}

	err := s.store.Put(ctx, dayContentKey(day), bytes.NewReader(data), int64(len(data)), "application/json")
	return storageErr(err)
}

// DeleteDayContent removes the document of a day. Removing a missing document
// succeeds.
func (s *ContentService) DeleteDayContent(ctx context.Context, caller types.Identity, day int) error {
	if err := Authorize(caller, ActionManage, Resource{Kind: ResourceContent}); err != nil {
		return err
	}
	if day < 1 || day > s.days {
		return fmt.Errorf("%w: day %d", ErrNotFound, day)
	}
	if s.store == nil {
		return fmt.Errorf("%w: content storage is not configured", ErrStorageUnavailable)
	}

	err := s.store.Delete(ctx, dayContentKey(day))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return storageErr(err)
}
