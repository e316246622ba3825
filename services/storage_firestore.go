package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wardrobeapi/models"
)

// FirestoreSnapshotStore keeps one document per user at
// users/{uid}/data/current_session.
type FirestoreSnapshotStore struct {
	client *firestore.Client
}

func NewFirestoreSnapshotStoreWithClient(client *firestore.Client) *FirestoreSnapshotStore {
	return &FirestoreSnapshotStore{client: client}
}

func NewFirestoreSnapshotStore(ctx context.Context, app *firebase.App) (*FirestoreSnapshotStore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore client: %w", err)
	}
	return &FirestoreSnapshotStore{client: client}, nil
}

func (s *FirestoreSnapshotStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreSnapshotStore) doc(uid string) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(uid).Collection("data").Doc("current_session")
}

type sessionDocument struct {
	WardrobeItems  []models.ClothingItem          `firestore:"wardrobeItems"`
	Outfit         map[string]models.ClothingItem `firestore:"outfit"`
	BaseModelImage *string                        `firestore:"baseModelImage"`
	LastUpdated    *time.Time                     `firestore:"lastUpdated"`
}

func (d sessionDocument) snapshot() *models.SessionSnapshot {
	snapshot := &models.SessionSnapshot{
		WardrobeItems: d.WardrobeItems,
		Outfit:        models.Outfit{},
		LastUpdated:   d.LastUpdated,
	}
	for key, item := range d.Outfit {
		snapshot.Outfit[models.Category(key)] = item
	}
	if d.BaseModelImage != nil && *d.BaseModelImage != "" {
		image := models.ImageData(*d.BaseModelImage)
		snapshot.BaseModelImage = &image
	}
	return snapshot
}

// snapshotPaths are the fields a save owns. Each is replaced whole, so slots
// dropped from the outfit disappear from the document; anything else stored
// alongside is left alone.
var snapshotPaths = []firestore.FieldPath{
	{"wardrobeItems"},
	{"outfit"},
	{"baseModelImage"},
	{"lastUpdated"},
}

// snapshotFields is the save payload. lastUpdated is stamped by the server.
func snapshotFields(snapshot models.SessionSnapshot) map[string]interface{} {
	outfit := make(map[string]models.ClothingItem, len(snapshot.Outfit))
	for category, item := range snapshot.Outfit {
		outfit[string(category)] = item
	}
	items := snapshot.WardrobeItems
	if items == nil {
		items = []models.ClothingItem{}
	}
	var portrait interface{}
	if snapshot.BaseModelImage != nil {
		portrait = string(*snapshot.BaseModelImage)
	}
	return map[string]interface{}{
		"wardrobeItems":  items,
		"outfit":         outfit,
		"baseModelImage": portrait,
		"lastUpdated":    firestore.ServerTimestamp,
	}
}

func (s *FirestoreSnapshotStore) Load(ctx context.Context, uid string) (*models.SessionSnapshot, error) {
	docSnap, err := s.doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("firestore get %s: %w", uid, err)
	}
	var doc sessionDocument
	if err := docSnap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore decode %s: %w", uid, err)
	}
	return doc.snapshot(), nil
}

func (s *FirestoreSnapshotStore) Save(ctx context.Context, uid string, snapshot models.SessionSnapshot) error {
	_, err := s.doc(uid).Set(ctx, snapshotFields(snapshot), firestore.Merge(snapshotPaths...))
	if err != nil {
		return fmt.Errorf("firestore set %s: %w", uid, err)
	}
	return nil
}
