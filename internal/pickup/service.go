// server/internal/pickup/service.go
package pickup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"waste-pickup-api-server/internal/models"
)

// DefaultQueueLimit caps listAvailable results when the caller does not ask
// for a specific page size.
const DefaultQueueLimit = 50

// Store is the durable pickup record consumed by the service. MongoStore is
// the production implementation; Claim and Transition must be atomic
// conditional writes.
type Store interface {
	Insert(ctx context.Context, p *models.Pickup) (*models.Pickup, error)
	FindByID(ctx context.Context, id string) (*models.Pickup, error)
	FindAll(ctx context.Context) ([]models.Pickup, error)
	FindAvailable(ctx context.Context, origin *models.GeoPoint, radiusMeters float64, limit int64) ([]models.Pickup, error)
	Claim(ctx context.Context, id, driverID string, now time.Time) (*models.Pickup, error)
	Transition(ctx context.Context, id string, fromAny []string, to string, requireAssignee string) (*models.Pickup, error)
}

// ImageStore accepts raw image bytes and returns a durable reference.
type ImageStore interface {
	Upload(ctx context.Context, data []byte, filename string) (models.ImageRef, error)
}

// Scorer rates the contamination of a submitted waste image.
type Scorer interface {
	Score(ctx context.Context, image models.ImageRef, raw []byte, wasteType, location string) (float64, string, error)
}

// Broadcaster fans lifecycle events out to connected drivers. Delivery is
// best effort and never affects the originating request.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Service orchestrates the pickup lifecycle: ingestion (validate -> upload ->
// score -> persist), the available queue and the claim/transition operations.
type Service struct {
	Store  Store
	Images ImageStore
	Scorer Scorer
	Events Broadcaster
}

// CreateInput is the validated create payload. Lat/Lng are optional device
// GPS coordinates.
type CreateInput struct {
	WasteType         string
	EstimatedWeightKg float64
	Description       string
	Address           string
	Lat               *float64
	Lng               *float64
}

// Create runs the ingestion pipeline and returns the persisted pickup.
//
// Steps run strictly in order and each aborts the whole operation: a pickup
// with an unscored image is never persisted, and a failed scoring call never
// leaves a half-written document visible to queue readers. The uploaded blob
// is not reclaimed when a later step fails; the object key stays in the logs
// for out-of-band cleanup.
func (s *Service) Create(ctx context.Context, in CreateInput, image []byte, imageName, requesterID string) (*models.Pickup, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image file is required", ErrValidation)
	}
	wasteType := strings.ToLower(in.WasteType)
	if !models.ValidWasteType(wasteType) {
		return nil, fmt.Errorf("%w: unknown waste type %q", ErrValidation, in.WasteType)
	}
	if in.EstimatedWeightKg < 0 {
		return nil, fmt.Errorf("%w: estimatedWeightKg must not be negative", ErrValidation)
	}

	ref, err := s.Images.Upload(ctx, image, imageName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	location := resolveLocation(in)

	score, label, err := s.Scorer.Score(ctx, ref, image, wasteType, location)
	if err != nil {
		log.Printf("Scoring failed for uploaded image %s: %v", ref.PublicID, err)
		return nil, fmt.Errorf("%w: %v", ErrScoring, err)
	}

	now := time.Now().UTC()
	p := &models.Pickup{
		WasteType:          wasteType,
		EstimatedWeightKg:  in.EstimatedWeightKg,
		Description:        in.Description,
		Image:              ref,
		ContaminationScore: clamp01(score),
		ContaminationLabel: label,
		Status:             models.StatusPending,
		RequestedBy:        requesterID,
		Address:            in.Address,
		CreatedAt:          now,
		EvaluatedAt:        now,
	}
	if in.Lat != nil && in.Lng != nil {
		p.Geom = models.NewGeoPoint(*in.Lng, *in.Lat)
	}

	saved, err := s.Store.Insert(ctx, p)
	if err != nil {
		return nil, err
	}

	s.publish("pickup.created", saved)
	return saved, nil
}

// ListAvailable returns the claim queue: pending, unassigned pickups ordered
// by contamination score (desc, creation time as tie break). When both lat
// and lng are given the queue is restricted to radiusMeters around them.
func (s *Service) ListAvailable(ctx context.Context, lat, lng *float64, radiusMeters float64, limit int64) ([]models.Pickup, error) {
	var origin *models.GeoPoint
	if lat != nil && lng != nil {
		origin = models.NewGeoPoint(*lng, *lat)
	}
	if radiusMeters <= 0 {
		radiusMeters = 5000
	}
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return s.Store.FindAvailable(ctx, origin, radiusMeters, limit)
}

// Claim assigns a pending pickup to driverID; see MongoStore.Claim for the
// contention semantics.
func (s *Service) Claim(ctx context.Context, id, driverID string) (*models.Pickup, error) {
	p, err := s.Store.Claim(ctx, id, driverID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.publish("pickup.claimed", p)
	return p, nil
}

// Transition moves a pickup to the requested status through the lifecycle
// table. Drivers may only progress pickups assigned to them; the ownership
// check rides in the same conditional write as the status check. Claim is
// the only way into assigned: a bare status write would leave an assigned
// pickup without an assignee.
func (s *Service) Transition(ctx context.Context, id, to, actorID, actorRole string) (*models.Pickup, error) {
	if to == models.StatusAssigned {
		return nil, fmt.Errorf("%w: pickups become assigned through claim", ErrInvalidTransition)
	}
	fromAny := sourcesFor(to)
	if len(fromAny) == 0 {
		return nil, fmt.Errorf("%w: %q is not a reachable status", ErrInvalidTransition, to)
	}

	requireAssignee := ""
	if actorRole == models.RoleDriver && (to == models.StatusPickedUp || to == models.StatusCompleted) {
		requireAssignee = actorID
	}

	return s.Store.Transition(ctx, id, fromAny, to, requireAssignee)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Pickup, error) {
	return s.Store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Pickup, error) {
	return s.Store.FindAll(ctx)
}

// resolveLocation builds the human-readable location string passed to the
// scorer and the alert webhook: address first, then formatted coordinates,
// then "unspecified".
func resolveLocation(in CreateInput) string {
	if in.Address != "" {
		return in.Address
	}
	if in.Lat != nil && in.Lng != nil {
		return fmt.Sprintf("%.5f, %.5f", *in.Lat, *in.Lng)
	}
	return "unspecified"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (s *Service) publish(event string, p *models.Pickup) {
	if s.Events == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{"event": event, "data": p})
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}
	s.Events.Broadcast(msg)
}
