package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/clipvibe/api/internal/model"
)

// GormStore implements Store on MySQL through GORM.
type GormStore struct {
	db *gorm.DB
}

// Open connects to MySQL, configures the connection pool, and migrates the
// job and clip tables.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.Job{}, &model.Clip{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &GormStore{db: db}, nil
}

// NewGormStore wraps an existing GORM handle (useful for tests).
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateJob(ctx context.Context, job *model.Job) error {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *GormStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// UpdateJob persists job state with an optimistic guard on the stored
// status: the write only lands if the stored status can still transition
// to (or already equals) the new one. Zero rows affected means the job was
// deleted out from under the worker, reported as ErrNotFound.
func (s *GormStore) UpdateJob(ctx context.Context, job *model.Job) error {
	current, err := s.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	if current.Status != job.Status && !current.Status.CanTransition(job.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, current.Status, job.Status)
	}

	job.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND status = ?", job.ID, current.Status).
		Updates(map[string]interface{}{
			"status":        job.Status,
			"output_paths":  job.OutputPaths,
			"error_message": job.ErrorMessage,
			"updated_at":    job.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateClip(ctx context.Context, clip *model.Clip) error {
	clip.CreatedAt = time.Now()
	return s.db.WithContext(ctx).Create(clip).Error
}

// GetClips returns the requested clips preserving the order of ids.
// Missing ids are skipped; the caller decides whether that matters.
func (s *GormStore) GetClips(ctx context.Context, ids []string) ([]model.Clip, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.Clip
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]model.Clip, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	out := make([]model.Clip, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *GormStore) ListClipsByUser(ctx context.Context, userID string) ([]model.Clip, error) {
	var rows []model.Clip
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) DeleteClip(ctx context.Context, id, userID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Clip{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
