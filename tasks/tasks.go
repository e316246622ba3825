package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wardrobeapi/models"
	"wardrobeapi/services"
)

const (
	TypeArchiveLook       = "archive:look"
	TypeExpirePendingLook = "looks:expire_pending"

	QueueLooks = "looks"
)

// pending looks older than this are considered lost by the worker
const pendingLookTTL = time.Hour

type ArchiveLookPayload struct {
	LookID uint   `json:"look_id"`
	UserID string `json:"user_id"`
	// Image is the composite shown when the look was saved; empty when none was rendered.
	Image models.ImageData `json:"image,omitempty"`
}

// Enqueuer is the part of *asynq.Client the api needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewClient(brokerAddress string) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: brokerAddress})
}

func NewArchiveLookTask(payload ArchiveLookPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeArchiveLook, data), nil
}

func NewExpirePendingLooksTask() *asynq.Task {
	return asynq.NewTask(TypeExpirePendingLook, []byte{})
}

// EnqueueArchiveLook schedules the upload of an already created ArchivedLook row.
func EnqueueArchiveLook(enqueuer Enqueuer, payload ArchiveLookPayload) (*asynq.TaskInfo, error) {
	task, err := NewArchiveLookTask(payload)
	if err != nil {
		return nil, err
	}
	return enqueuer.Enqueue(task, asynq.MaxRetry(3), asynq.Queue(QueueLooks), asynq.Timeout(2*time.Minute))
}

// LookObjectKey is where the composite of a look is stored in the bucket.
func LookObjectKey(userID string, mimeType string) string {
	ext := "png"
	switch mimeType {
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	}
	return fmt.Sprintf("looks/%s/%s.%s", userID, uuid.NewString(), ext)
}

func saveLookStatus(db *gorm.DB, look *models.ArchivedLook, status string) error {
	look.Status = status
	tx := db.Model(look).Select("status", "image_key").Updates(look)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Look %v] Error on saving status %s: %v", look.ID, status, tx.Error))
		return tx.Error
	}
	return nil
}

// HandleArchiveLookTask uploads the look composite to R2 and marks the row stored.
func HandleArchiveLookTask(ctx context.Context, t *asynq.Task, db *gorm.DB, awsService services.AWSServiceProvider, bucketName string, logger *logrus.Logger) error {
	var payload ArchiveLookPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := logger.WithFields(logrus.Fields{"look": payload.LookID, "user": payload.UserID})

	var look models.ArchivedLook
	res := db.WithContext(ctx).Where("id = ? AND user_id = ?", payload.LookID, payload.UserID).First(&look)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving look %v for archiving: %v", payload.LookID, res.Error))
		return res.Error
	}
	if look.Status == models.LookStored {
		log.Info("Look already stored, skipping")
		return nil
	}

	if payload.Image.IsZero() {
		log.Info("Look has no composite, storing items only")
		return saveLookStatus(db, &look, models.LookStored)
	}

	content, err := payload.Image.Bytes()
	if err != nil {
		saveLookStatus(db, &look, models.LookFailed)
		sentry.CaptureException(fmt.Errorf("[Look %v] Composite is not decodable: %v", look.ID, err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	key := LookObjectKey(payload.UserID, payload.Image.MIMEType())
	uploadURL, err := awsService.PresignLink(ctx, bucketName, key)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Look %v] Unable to create presign link for %s: %v", look.ID, key, err))
		return err
	}
	log.WithField("key", key).Debug("Uploading composite")
	_, status, err := awsService.UploadToPresignedURL(ctx, bucketName, uploadURL, content)
	if err != nil {
		log.WithError(err).WithField("status", status).Error("Composite upload failed")
		sentry.CaptureException(fmt.Errorf("[Look %v] Error on uploading composite %s: %v", look.ID, key, err))
		return err
	}

	look.ImageKey = &key
	if err := saveLookStatus(db, &look, models.LookStored); err != nil {
		return err
	}
	log.WithField("key", key).Info("Look archived")
	return nil
}

// HandleExpirePendingLooksTask fails looks whose archive task never completed.
func HandleExpirePendingLooksTask(ctx context.Context, t *asynq.Task, db *gorm.DB, logger *logrus.Logger) error {
	cutoff := time.Now().Add(-pendingLookTTL)
	res := db.WithContext(ctx).Model(&models.ArchivedLook{}).
		Where("status = ? AND created_at < ?", models.LookPending, cutoff).
		Update("status", models.LookFailed)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Looks] Error expiring pending looks: %v", res.Error))
		return res.Error
	}
	logger.WithField("expired", res.RowsAffected).Info("Expired pending looks")
	return nil
}
