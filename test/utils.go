package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hibiken/asynq"
	"google.golang.org/api/idtoken"

	"wardrobeapi/models"
)

const JWTSecret = "test-secret"

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	var body string
	if param != nil {
		body = JsonString(param)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

// GenerateToken signs a token the way the api does for the given identity.
func GenerateToken(identity models.Identity) string {
	claims := jwt.MapClaims{
		"sub":   identity.UID,
		"name":  identity.Name,
		"guest": identity.IsGuest(),
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	if identity.SessionID != "" {
		claims["sid"] = identity.SessionID
	}
	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	if err != nil {
		panic(fmt.Sprintf("Error when signing token for %s: %s", identity.UID, err))
	}
	return t
}

func NewJSONAuthRequest(method string, target string, identity models.Identity, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateToken(identity)))
	return req
}

func NewJSONAuthRequestCustomAuth(method string, target string, authorizationString string, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", authorizationString)
	return req
}

func NewRefString(data string) *string {
	return &data
}

type GoogleServiceMock struct {
	Err error
}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	if gsm.Err != nil {
		return nil, gsm.Err
	}
	return &idtoken.Payload{Issuer: "Issue", Audience: audience, Expires: 119919191919, IssuedAt: 12312321321, Subject: "123googleid", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"name":    "Fake Person",
		"picture": "pictureurl",
		"sub":     "123googleid",
	}}, nil
}

type AWSProviderMock struct {
	MockUrl   string
	UploadErr error

	mu      sync.Mutex
	uploads []string
}

func (awsService *AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService *AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService *AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	if awsService.MockUrl != "" {
		return awsService.MockUrl, nil
	}
	return fmt.Sprintf("https://fakebucketurl.com/read/%s", fileKey), nil
}

func (awsService *AWSProviderMock) UploadToPresignedURL(ctx context.Context, bucketName, url string, fileContent []byte) (string, int, error) {
	if awsService.UploadErr != nil {
		return "", 500, awsService.UploadErr
	}
	awsService.mu.Lock()
	awsService.uploads = append(awsService.uploads, url)
	awsService.mu.Unlock()
	return url, 204, nil
}

func (awsService *AWSProviderMock) Uploads() []string {
	awsService.mu.Lock()
	defer awsService.mu.Unlock()
	return append([]string(nil), awsService.uploads...)
}

// EnqueuerMock records tasks instead of sending them to redis.
type EnqueuerMock struct {
	Err error

	mu    sync.Mutex
	tasks []*asynq.Task
}

func (m *EnqueuerMock) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(m.tasks)), Type: task.Type(), Payload: task.Payload()}, nil
}

func (m *EnqueuerMock) Tasks() []*asynq.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*asynq.Task(nil), m.tasks...)
}
