package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"wardrobeapi/models"
)

const DefaultSyncDebounce = 2000 * time.Millisecond

// Synchronizer mirrors a signed-in user's session into the snapshot store.
// Bursts of changes collapse into one write per debounce window.
type Synchronizer struct {
	identity models.Identity
	store    SnapshotStore
	debounce *Debouncer
	snapshot func() models.SessionSnapshot
	log      *logrus.Entry
	timeout  time.Duration

	saveMu sync.Mutex
}

func newSynchronizer(identity models.Identity, store SnapshotStore, debounce *Debouncer, snapshot func() models.SessionSnapshot, log *logrus.Entry) *Synchronizer {
	return &Synchronizer{
		identity: identity,
		store:    store,
		debounce: debounce,
		snapshot: snapshot,
		log:      log,
		timeout:  30 * time.Second,
	}
}

func (s *Synchronizer) enabled() bool {
	return s.store != nil && !s.identity.IsAnonymous() && !s.identity.IsGuest()
}

// Changed is registered as a listener on the wardrobe, outfit and portrait.
func (s *Synchronizer) Changed() {
	if !s.enabled() {
		return
	}
	s.debounce.Schedule(s.flush)
}

// flush takes the snapshot only once the previous save has finished, so the
// last write to land always carries the latest state.
func (s *Synchronizer) flush() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	snapshot := s.snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.store.Save(ctx, s.identity.UID, snapshot)
	if err != nil {
		s.log.WithError(err).Error("Failed to persist session snapshot")
		sentry.CaptureException(fmt.Errorf("[User %v] snapshot save: %w", s.identity.UID, err))
		return
	}
	s.log.WithField("items", len(snapshot.WardrobeItems)).Debug("Session snapshot persisted")
}

// Flush writes a pending snapshot now. It reports whether one was pending.
func (s *Synchronizer) Flush() bool {
	return s.debounce.Flush()
}

func (s *Synchronizer) Pending() bool {
	return s.debounce.Pending()
}

// Load fetches the stored snapshot once. An absent document yields nil.
func (s *Synchronizer) Load(ctx context.Context) (*models.SessionSnapshot, error) {
	if !s.enabled() {
		return nil, nil
	}
	return s.store.Load(ctx, s.identity.UID)
}
