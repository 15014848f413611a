package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"module-monitor/core/storage"
	"module-monitor/feature/inventory/models"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"
)

// ErrPayloadNotFound is returned when a payload reference resolves to nothing.
var ErrPayloadNotFound = errors.New("payload not found")

// PayloadStore keeps the module list of a background sync until the task
// reaches a terminal state.
type PayloadStore interface {
	// Put stores modules for taskID and returns the reference to load them by.
	Put(ctx context.Context, taskID string, modules []models.ModuleReport) (string, error)
	// Get loads the modules stored under ref.
	Get(ctx context.Context, ref string) ([]models.ModuleReport, error)
	// Delete removes ref. Deleting a missing payload is not an error.
	Delete(ctx context.Context, ref string) error
}

const dbRefPrefix = "db:"

// DatabasePayloads stores payloads in the sync_task_payloads table.
type DatabasePayloads struct {
	db *gorm.DB
}

// NewDatabasePayloads creates a database payload store.
func NewDatabasePayloads(db *gorm.DB) *DatabasePayloads {
	return &DatabasePayloads{db: db}
}

// Put implements PayloadStore.
func (s *DatabasePayloads) Put(ctx context.Context, taskID string, modules []models.ModuleReport) (string, error) {
	raw, err := json.Marshal(modules)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&models.TaskPayload{TaskID: taskID, Modules: raw}).Error; err != nil {
		return "", fmt.Errorf("store payload %s: %w", taskID, err)
	}
	return dbRefPrefix + taskID, nil
}

// Get implements PayloadStore.
func (s *DatabasePayloads) Get(ctx context.Context, ref string) ([]models.ModuleReport, error) {
	var p models.TaskPayload
	err := s.db.WithContext(ctx).Where("task_id = ?", strings.TrimPrefix(ref, dbRefPrefix)).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPayloadNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load payload %s: %w", ref, err)
	}
	return decodeModules(p.Modules)
}

// Delete implements PayloadStore.
func (s *DatabasePayloads) Delete(ctx context.Context, ref string) error {
	err := s.db.WithContext(ctx).Where("task_id = ?", strings.TrimPrefix(ref, dbRefPrefix)).Delete(&models.TaskPayload{}).Error
	if err != nil {
		return fmt.Errorf("delete payload %s: %w", ref, err)
	}
	return nil
}

// ObjectPayloads stores payloads as JSON objects in a bucket.
type ObjectPayloads struct {
	client storage.Client
	bucket string
}

// NewObjectPayloads creates an object storage payload store.
func NewObjectPayloads(client storage.Client, bucket string) *ObjectPayloads {
	return &ObjectPayloads{client: client, bucket: bucket}
}

// ObjectName returns the object key of a task payload.
func ObjectName(taskID string) string {
	return "payloads/" + taskID + ".json"
}

// Put implements PayloadStore.
func (s *ObjectPayloads) Put(ctx context.Context, taskID string, modules []models.ModuleReport) (string, error) {
	raw, err := json.Marshal(modules)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	name := ObjectName(taskID)
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("upload payload %s: %w", name, err)
	}
	return name, nil
}

// Get implements PayloadStore.
func (s *ObjectPayloads) Get(ctx context.Context, ref string) ([]models.ModuleReport, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download payload %s: %w", ref, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrPayloadNotFound, ref)
		}
		return nil, fmt.Errorf("read payload %s: %w", ref, err)
	}
	return decodeModules(raw)
}

// Delete implements PayloadStore.
func (s *ObjectPayloads) Delete(ctx context.Context, ref string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete payload %s: %w", ref, err)
	}
	return nil
}

func decodeModules(raw []byte) ([]models.ModuleReport, error) {
	var modules []models.ModuleReport
	if err := json.Unmarshal(raw, &modules); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return modules, nil
}
