package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardrobeapi/dbhelper"
	"wardrobeapi/models"
	"wardrobeapi/test"
)

func TestLookObjectKey(t *testing.T) {
	key := LookObjectKey("uid-1", "image/png")
	assert.True(t, strings.HasPrefix(key, "looks/uid-1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.True(t, strings.HasSuffix(LookObjectKey("uid-1", "image/jpeg"), ".jpg"))
	assert.NotEqual(t, key, LookObjectKey("uid-1", "image/png"))
}

func TestEnqueueArchiveLook(t *testing.T) {
	enqueuer := &test.EnqueuerMock{}
	info, err := EnqueueArchiveLook(enqueuer, ArchiveLookPayload{LookID: 7, UserID: "uid-1", Image: test.FakeImage("look")})
	require.NoError(t, err)
	assert.Equal(t, TypeArchiveLook, info.Type)

	tasks := enqueuer.Tasks()
	require.Len(t, tasks, 1)
	var payload ArchiveLookPayload
	require.NoError(t, json.Unmarshal(tasks[0].Payload(), &payload))
	assert.Equal(t, uint(7), payload.LookID)
	assert.Equal(t, test.FakeImage("look"), payload.Image)
}

func TestArchiveLookRejectsBadPayload(t *testing.T) {
	err := HandleArchiveLookTask(context.Background(), asynq.NewTask(TypeArchiveLook, []byte("{")), nil, &test.AWSProviderMock{}, "bucket", logrus.New())
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestArchiveLookTask(t *testing.T) {
	db := dbhelper.SetupTestDB(t)
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()

	look := models.ArchivedLook{
		UserID: "uid-1",
		Items:  []models.ArchivedLookItem{{ItemID: "a", Category: models.CategoryTop, Description: "white tee"}},
		Status: models.LookPending,
	}
	require.NoError(t, db.Create(&look).Error)

	aws := &test.AWSProviderMock{}
	task, err := NewArchiveLookTask(ArchiveLookPayload{LookID: look.ID, UserID: "uid-1", Image: models.ImageData(test.TinyPNG)})
	require.NoError(t, err)
	require.NoError(t, HandleArchiveLookTask(context.Background(), task, db, aws, "bucket", logrus.New()))

	var stored models.ArchivedLook
	require.NoError(t, db.First(&stored, look.ID).Error)
	assert.Equal(t, models.LookStored, stored.Status)
	require.NotNil(t, stored.ImageKey)
	assert.True(t, strings.HasPrefix(*stored.ImageKey, "looks/uid-1/"))
	assert.Len(t, aws.Uploads(), 1)

	// another user's id never matches
	task, _ = NewArchiveLookTask(ArchiveLookPayload{LookID: look.ID, UserID: "uid-2"})
	assert.Error(t, HandleArchiveLookTask(context.Background(), task, db, aws, "bucket", logrus.New()))
}

func TestArchiveLookUploadFailureRetries(t *testing.T) {
	db := dbhelper.SetupTestDB(t)
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()

	look := models.ArchivedLook{UserID: "uid-1", Status: models.LookPending}
	require.NoError(t, db.Create(&look).Error)

	aws := &test.AWSProviderMock{UploadErr: errors.New("r2 down")}
	task, _ := NewArchiveLookTask(ArchiveLookPayload{LookID: look.ID, UserID: "uid-1", Image: models.ImageData(test.TinyPNG)})
	err := HandleArchiveLookTask(context.Background(), task, db, aws, "bucket", logrus.New())
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))

	var pending models.ArchivedLook
	require.NoError(t, db.First(&pending, look.ID).Error)
	assert.Equal(t, models.LookPending, pending.Status)
}
