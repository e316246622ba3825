package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wardrobeapi/models"
)

var (
	ErrItemNotFound         = errors.New("wardrobe item not found")
	ErrEmptyWardrobe        = errors.New("wardrobe is empty")
	ErrUnknownStyle         = errors.New("unknown style")
	ErrRecommendationFailed = errors.New("failed to generate outfit recommendations")
	ErrExtractionFailed     = errors.New("failed to extract clothing from photo")
	ErrNoRecommendation     = errors.New("no recommendation to apply")
	ErrInvalidImage         = errors.New("invalid image")
	ErrEmptyRender          = errors.New("no image was generated in the response")
	ErrSessionClosed        = errors.New("session is closed")
)

type Extractor interface {
	ExtractClothing(ctx context.Context, image models.ImageData) ([]models.ExtractedItem, error)
}

type Renderer interface {
	RenderTryOn(ctx context.Context, portrait models.ImageData, garments []models.ImageData) (models.ImageData, error)
}

type Recommender interface {
	RecommendOutfit(ctx context.Context, inventory string, style string) (*models.SmartOutfitResponse, error)
}

type Cropper interface {
	Crop(image models.ImageData, box models.BoundingBox) (models.ImageData, error)
}

// SnapshotStore persists one snapshot per user. Load returns (nil, nil) when
// the user has none. Save merges and lets the backend stamp LastUpdated.
type SnapshotStore interface {
	Load(ctx context.Context, uid string) (*models.SessionSnapshot, error)
	Save(ctx context.Context, uid string, snapshot models.SessionSnapshot) error
}

type Collaborators struct {
	Extractor   Extractor
	Renderer    Renderer
	Recommender Recommender
	Cropper     Cropper
	Store       SnapshotStore
}

type Options struct {
	Clock          Clock
	SyncDebounce   time.Duration
	RenderDebounce time.Duration
	RenderTimeout  time.Duration
	IdleTimeout    time.Duration // how long a Manager keeps a session nobody opens
	Styles         []models.Style
	Logger         *logrus.Logger
	NewID          func() string
}

// Session is the live wardrobe, outfit and portrait of one identity.
// Every mutation and every async completion runs on its control thread.
type Session struct {
	identity models.Identity
	thread   *controlThread

	wardrobe *WardrobeStore
	outfit   *OutfitSelector
	portrait *PortraitSlot
	render   *RenderTrigger
	sync     *Synchronizer
	stylist  *Stylist

	extractor Extractor
	cropper   Cropper
	newID     func() string
	log       *logrus.Entry

	recommendationEpoch uint64
	recommendation      *models.SmartOutfitResponse
	restoring           chan struct{}
	restoreErr          error
	closed              bool
}

func New(identity models.Identity, collab Collaborators, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	if opts.SyncDebounce <= 0 {
		opts.SyncDebounce = DefaultSyncDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	log := opts.Logger.WithField("user", identity.SessionKey())

	s := &Session{
		identity:  identity,
		thread:    &controlThread{},
		wardrobe:  NewWardrobeStore(),
		outfit:    NewOutfitSelector(),
		portrait:  NewPortraitSlot(),
		stylist:   NewStylist(collab.Recommender, opts.Styles),
		extractor: collab.Extractor,
		cropper:   collab.Cropper,
		newID:     opts.NewID,
		log:       log,
	}
	s.render = newRenderTrigger(s.thread, s.outfit, s.portrait, collab.Renderer, renderOptions{
		clock:   opts.Clock,
		window:  opts.RenderDebounce,
		timeout: opts.RenderTimeout,
		log:     log,
	})
	s.sync = newSynchronizer(identity, collab.Store, NewDebouncer(opts.Clock, opts.SyncDebounce), s.Snapshot, log)

	s.outfit.OnChange(s.render.OutfitChanged)
	s.outfit.OnChange(s.sync.Changed)
	s.portrait.OnChange(s.render.PortraitChanged)
	s.portrait.OnChange(s.sync.Changed)
	s.wardrobe.OnChange(s.sync.Changed)
	return s
}

func (s *Session) Identity() models.Identity {
	return s.identity
}

// Restore seeds the session from the stored snapshot. Only the first call
// reads the store; calls made while that read is in flight wait for it and
// share its error. Seeding never schedules a write.
func (s *Session) Restore(ctx context.Context) error {
	var (
		done  chan struct{}
		first bool
	)
	s.thread.Do(func() {
		if s.restoring == nil {
			s.restoring = make(chan struct{})
			first = true
		}
		done = s.restoring
	})
	if !first {
		select {
		case <-done:
			return nil
		default:
		}
		select {
		case <-done:
			var err error
			s.thread.Do(func() { err = s.restoreErr })
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// the load is shared by every waiter, so one caller going away must not cancel it
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sync.timeout)
	defer cancel()
	err := s.restore(loadCtx)
	s.thread.Do(func() { s.restoreErr = err })
	close(done)
	return err
}

func (s *Session) restore(ctx context.Context) error {
	snapshot, err := s.sync.Load(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to load session snapshot")
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snapshot == nil {
		return nil
	}

	s.thread.Do(func() {
		if s.closed {
			return
		}
		s.wardrobe.Replace(snapshot.WardrobeItems)
		s.outfit.Restore(snapshot.Outfit)
		s.portrait.Restore(snapshot.BaseModelImage)
		s.render.evaluate()
	})
	s.log.WithField("items", len(snapshot.WardrobeItems)).Info("Session restored")
	return nil
}

// ImportPhoto extracts the garments in image, crops each one and prepends
// the accepted batch to the wardrobe.
func (s *Session) ImportPhoto(ctx context.Context, image models.ImageData) ([]models.ClothingItem, error) {
	if _, err := image.Bytes(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	extracted, err := s.extractor.ExtractClothing(ctx, image)
	if err != nil {
		s.log.WithError(err).Warn("Clothing extraction failed")
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	batch := make([]models.ClothingItem, 0, len(extracted))
	for _, e := range extracted {
		item, err := s.buildItem(image, e)
		if err != nil {
			s.log.WithError(err).WithField("category", e.Category).Warn("Skipping extracted item")
			continue
		}
		batch = append(batch, item)
	}

	var closed bool
	s.thread.Do(func() {
		if closed = s.closed; !closed {
			s.wardrobe.AddItems(batch)
		}
	})
	if closed {
		return nil, ErrSessionClosed
	}
	return batch, nil
}

func (s *Session) buildItem(source models.ImageData, e models.ExtractedItem) (models.ClothingItem, error) {
	category, err := models.ParseCategory(e.Category)
	if err != nil {
		return models.ClothingItem{}, err
	}
	if err := e.BoundingBox.Validate(); err != nil {
		return models.ClothingItem{}, err
	}
	cropped, err := s.cropper.Crop(source, e.BoundingBox)
	if err != nil {
		return models.ClothingItem{}, fmt.Errorf("crop: %w", err)
	}
	return models.ClothingItem{
		ID:            s.newID(),
		Category:      category,
		Description:   e.Description(),
		ImageBlob:     cropped,
		OriginalImage: source,
		BoundingBox:   e.BoundingBox,
	}, nil
}

func (s *Session) Wardrobe(category models.Category) []models.ClothingItem {
	var items []models.ClothingItem
	s.thread.Do(func() {
		items = s.wardrobe.Filter(category)
	})
	return items
}

func (s *Session) Item(id string) (models.ClothingItem, error) {
	var (
		item models.ClothingItem
		ok   bool
	)
	s.thread.Do(func() {
		item, ok = s.wardrobe.FindByID(id)
	})
	if !ok {
		return item, ErrItemNotFound
	}
	return item, nil
}

// RemoveItem deletes a wardrobe item and vacates the outfit slot holding it.
func (s *Session) RemoveItem(id string) error {
	var ok bool
	s.thread.Do(func() {
		if _, ok = s.wardrobe.FindByID(id); !ok {
			return
		}
		s.outfit.RemoveItem(id)
		s.wardrobe.Remove(id)
	})
	if !ok {
		return ErrItemNotFound
	}
	return nil
}

func (s *Session) SelectItem(id string) (models.Outfit, error) {
	var (
		outfit models.Outfit
		err    error
	)
	s.thread.Do(func() {
		item, ok := s.wardrobe.FindByID(id)
		if !ok {
			err = ErrItemNotFound
			return
		}
		s.outfit.Select(item)
		outfit = s.outfit.Outfit()
	})
	return outfit, err
}

func (s *Session) RemoveCategory(category models.Category) models.Outfit {
	var outfit models.Outfit
	s.thread.Do(func() {
		s.outfit.Remove(category)
		outfit = s.outfit.Outfit()
	})
	return outfit
}

func (s *Session) ClearOutfit() {
	s.thread.Do(func() {
		s.outfit.Clear()
	})
}

func (s *Session) Outfit() models.Outfit {
	var outfit models.Outfit
	s.thread.Do(func() {
		outfit = s.outfit.Outfit()
	})
	return outfit
}

func (s *Session) SetPortrait(image models.ImageData) error {
	if _, err := image.Bytes(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	s.thread.Do(func() {
		s.portrait.Set(image)
	})
	return nil
}

func (s *Session) ClearPortrait() {
	s.thread.Do(func() {
		s.portrait.Clear()
	})
}

func (s *Session) Portrait() *models.ImageData {
	var image *models.ImageData
	s.thread.Do(func() {
		image = s.portrait.Get()
	})
	return image
}

// Reset empties the canvas: outfit, portrait and any pending recommendation
// go, the wardrobe stays.
func (s *Session) Reset() {
	s.thread.Do(func() {
		s.outfit.Clear()
		s.portrait.Clear()
		s.recommendation = nil
		s.recommendationEpoch++
	})
}

func (s *Session) RenderState() models.RenderState {
	var state models.RenderState
	s.thread.Do(func() {
		state = s.render.State()
	})
	return state
}

func (s *Session) Styles() []models.Style {
	return s.stylist.Styles()
}

// Recommend asks the stylist for an outfit in style. When requests overlap
// only the last one issued becomes the pending recommendation.
func (s *Session) Recommend(ctx context.Context, style string) (*models.SmartOutfitResponse, error) {
	var (
		items []models.ClothingItem
		epoch uint64
		err   error
	)
	s.thread.Do(func() {
		if _, ok := s.stylist.FindStyle(style); !ok {
			err = fmt.Errorf("%w: %q", ErrUnknownStyle, style)
			return
		}
		if items = s.wardrobe.Items(); len(items) == 0 {
			err = ErrEmptyWardrobe
			return
		}
		s.recommendationEpoch++
		epoch = s.recommendationEpoch
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.stylist.Recommend(ctx, items, style)
	if err != nil {
		if errors.Is(err, ErrRecommendationFailed) {
			s.log.WithError(err).Warn("Outfit recommendation failed")
		}
		return nil, err
	}

	s.thread.Do(func() {
		if epoch == s.recommendationEpoch {
			s.recommendation = resp
		}
	})
	return resp, nil
}

func (s *Session) PendingRecommendation() *models.SmartOutfitResponse {
	var resp *models.SmartOutfitResponse
	s.thread.Do(func() {
		resp = s.recommendation
	})
	return resp
}

// ApplyRecommendation selects the resolvable items of the pending
// recommendation as one batch and clears it.
func (s *Session) ApplyRecommendation() (models.Outfit, error) {
	var (
		outfit models.Outfit
		err    error
	)
	s.thread.Do(func() {
		if s.recommendation == nil {
			err = ErrNoRecommendation
			return
		}
		s.outfit.SelectAll(ResolveSuggestion(s.recommendation, s.wardrobe.FindByID))
		s.recommendation = nil
		outfit = s.outfit.Outfit()
	})
	return outfit, err
}

// Snapshot copies the persisted part of the session.
func (s *Session) Snapshot() models.SessionSnapshot {
	var snapshot models.SessionSnapshot
	s.thread.Do(func() {
		snapshot = models.SessionSnapshot{
			WardrobeItems:  s.wardrobe.Items(),
			Outfit:         s.outfit.Outfit(),
			BaseModelImage: s.portrait.Get(),
		}
	})
	return snapshot
}

// Close flushes a pending write and waits for in-flight renders.
func (s *Session) Close() {
	s.thread.Do(func() {
		s.closed = true
		s.render.close()
	})
	s.sync.Flush()
	s.render.Wait()
}
