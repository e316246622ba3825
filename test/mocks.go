package test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wardrobeapi/models"
)

// TinyPNG is a 1x1 transparent png.
const TinyPNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func FakeImage(label string) models.ImageData {
	return models.NewImageData("image/png", []byte(label))
}

type ExtractorMock struct {
	mu    sync.Mutex
	Items []models.ExtractedItem
	Err   error
	calls int
}

func (m *ExtractorMock) ExtractClothing(ctx context.Context, image models.ImageData) ([]models.ExtractedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Items, nil
}

func (m *ExtractorMock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type CropperMock struct {
	Err error
}

// Crop encodes the box into the result so tests can tell crops apart.
func (m CropperMock) Crop(image models.ImageData, box models.BoundingBox) (models.ImageData, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return FakeImage(fmt.Sprintf("crop:%v,%v,%v,%v", box.YMin, box.XMin, box.YMax, box.XMax)), nil
}

type RenderCall struct {
	Portrait models.ImageData
	Garments []models.ImageData
	reply    chan renderReply
}

type renderReply struct {
	image models.ImageData
	err   error
}

func (c *RenderCall) Succeed(image models.ImageData) {
	c.reply <- renderReply{image: image}
}

func (c *RenderCall) Fail(err error) {
	c.reply <- renderReply{err: err}
}

// RendererMock answers immediately through Respond, or, when Respond is nil,
// hands every call to the test on Pending and blocks until it is answered.
type RendererMock struct {
	mu      sync.Mutex
	Respond func(portrait models.ImageData, garments []models.ImageData) (models.ImageData, error)
	Pending chan *RenderCall
	calls   []RenderCall
}

func NewRendererMock() *RendererMock {
	return &RendererMock{Pending: make(chan *RenderCall, 32)}
}

func (m *RendererMock) RenderTryOn(ctx context.Context, portrait models.ImageData, garments []models.ImageData) (models.ImageData, error) {
	call := &RenderCall{Portrait: portrait, Garments: garments, reply: make(chan renderReply, 1)}
	m.mu.Lock()
	m.calls = append(m.calls, *call)
	respond := m.Respond
	m.mu.Unlock()

	if respond != nil {
		return respond(portrait, garments)
	}
	m.Pending <- call
	select {
	case r := <-call.reply:
		return r.image, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *RendererMock) Calls() []RenderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RenderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Next waits for the next blocked call.
func (m *RendererMock) Next(timeout time.Duration) (*RenderCall, error) {
	select {
	case call := <-m.Pending:
		return call, nil
	case <-time.After(timeout):
		return nil, errors.New("no render call arrived")
	}
}

type RecommenderMock struct {
	mu        sync.Mutex
	Fn        func(ctx context.Context, inventory string, style string) (*models.SmartOutfitResponse, error)
	Response  *models.SmartOutfitResponse
	Err       error
	inventory []string
}

func (m *RecommenderMock) RecommendOutfit(ctx context.Context, inventory string, style string) (*models.SmartOutfitResponse, error) {
	m.mu.Lock()
	m.inventory = append(m.inventory, inventory)
	fn := m.Fn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, inventory, style)
	}
	return m.Response, m.Err
}

func (m *RecommenderMock) Inventories() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inventory...)
}

// SnapshotStoreMock keeps snapshots in memory and stamps LastUpdated on save.
type SnapshotStoreMock struct {
	mu      sync.Mutex
	docs    map[string]models.SessionSnapshot
	loads   int
	saves   int
	LoadErr error
	SaveErr error
	Saved   chan string
	// LoadGate and SaveGate, when set, hold each call until they are closed.
	LoadGate chan struct{}
	SaveGate chan struct{}
}

func NewSnapshotStoreMock() *SnapshotStoreMock {
	return &SnapshotStoreMock{docs: map[string]models.SessionSnapshot{}, Saved: make(chan string, 64)}
}

func (m *SnapshotStoreMock) Load(ctx context.Context, uid string) (*models.SessionSnapshot, error) {
	m.mu.Lock()
	m.loads++
	gate := m.LoadGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	doc, ok := m.docs[uid]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (m *SnapshotStoreMock) Save(ctx context.Context, uid string, snapshot models.SessionSnapshot) error {
	m.mu.Lock()
	m.saves++
	gate := m.SaveGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	err := m.SaveErr
	if err == nil {
		now := time.Now()
		snapshot.LastUpdated = &now
		m.docs[uid] = snapshot
	}
	m.mu.Unlock()

	select {
	case m.Saved <- uid:
	default:
	}
	return err
}

func (m *SnapshotStoreMock) Put(uid string, snapshot models.SessionSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[uid] = snapshot
}

func (m *SnapshotStoreMock) Get(uid string) (models.SessionSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[uid]
	return doc, ok
}

func (m *SnapshotStoreMock) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func (m *SnapshotStoreMock) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
