package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-api/apiserver/internal/tier"
	"github.com/tailored-api/apiserver/types"
)

const exportContentType = "application/json"

// ObjectWriter stores export snapshots.
type ObjectWriter interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// ExportSnapshot is the document written for a data export.
type ExportSnapshot struct {
	User        types.PublicUser      `json:"user"`
	Features    []types.Feature       `json:"features"`
	Content     types.TailoredContent `json:"content"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// ExportResult describes a stored export.
type ExportResult struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportService writes tier-shaped snapshots to object storage for tiers
// that include the export feature.
type ExportService struct {
	objects ObjectWriter
	now     func() time.Time
	newID   func() string
}

func NewExportService(objects ObjectWriter) *ExportService {
	return &ExportService{
		objects: objects,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Export builds and stores a snapshot for user.
func (s *ExportService) Export(ctx context.Context, user types.User) (ExportResult, error) {
	if !tier.Allows(user.Tier, tier.FeatureExport) {
		return ExportResult{}, ErrFeatureUnavailable
	}

	createdAt := s.now().UTC()
	snapshot := ExportSnapshot{
		User:        user.Public(),
		Features:    tier.FeaturesFor(user.Tier),
		Content:     tier.ContentFor(user.Tier),
		GeneratedAt: createdAt,
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode export: %w", err)
	}

	key := path.Join("exports", user.ID, s.newID()+".json")
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return ExportResult{}, fmt.Errorf("store export: %w", err)
	}

	return ExportResult{
		Key:       key,
		Size:      int64(len(data)),
		CreatedAt: createdAt,
	}, nil
}
