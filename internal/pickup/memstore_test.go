// server/internal/pickup/memstore_test.go
package pickup

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"waste-pickup-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore implements Store with the same conditional-update contract as
// MongoStore: every claim and transition is one atomic check-and-write under
// the store lock, never a read followed by a separate write.
type memStore struct {
	mu      sync.Mutex
	pickups map[string]*models.Pickup
}

func newMemStore() *memStore {
	return &memStore{pickups: make(map[string]*models.Pickup)}
}

func (m *memStore) Insert(ctx context.Context, p *models.Pickup) (*models.Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *p
	stored.ID = primitive.NewObjectID()
	m.pickups[stored.ID.Hex()] = &stored

	out := stored
	return &out, nil
}

func (m *memStore) FindByID(ctx context.Context, id string) (*models.Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pickups[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *memStore) FindAll(ctx context.Context) ([]models.Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]models.Pickup, 0, len(m.pickups))
	for _, p := range m.pickups {
		all = append(all, *p)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

func (m *memStore) FindAvailable(ctx context.Context, origin *models.GeoPoint, radiusMeters float64, limit int64) ([]models.Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var available []models.Pickup
	for _, p := range m.pickups {
		if p.Status != models.StatusPending || p.AssignedTo != "" {
			continue
		}
		if origin != nil {
			if p.Geom == nil || haversineMeters(origin, p.Geom) > radiusMeters {
				continue
			}
		}
		available = append(available, *p)
	}

	sort.SliceStable(available, func(i, j int) bool {
		if available[i].ContaminationScore != available[j].ContaminationScore {
			return available[i].ContaminationScore > available[j].ContaminationScore
		}
		return available[i].CreatedAt.Before(available[j].CreatedAt)
	})

	if int64(len(available)) > limit {
		available = available[:limit]
	}
	return available, nil
}

func (m *memStore) Claim(ctx context.Context, id, driverID string, now time.Time) (*models.Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pickups[id]
	if !ok || p.Status != models.StatusPending || p.AssignedTo != "" {
		return nil, ErrAlreadyClaimed
	}

	p.Status = models.StatusAssigned
	p.AssignedTo = driverID
	assignedAt := now
	p.AssignedAt = &assignedAt

	out := *p
	return &out, nil
}

func (m *memStore) Transition(ctx context.Context, id string, fromAny []string, to string, requireAssignee string) (*models.Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pickups[id]
	if !ok {
		return nil, ErrNotFound
	}

	matched := false
	for _, from := range fromAny {
		if p.Status == from {
			matched = true
			break
		}
	}
	if !matched || (requireAssignee != "" && p.AssignedTo != requireAssignee) {
		return nil, fmt.Errorf("%w: cannot move pickup %s to %s", ErrInvalidTransition, id, to)
	}

	p.Status = to
	out := *p
	return &out, nil
}

func haversineMeters(a, b *models.GeoPoint) float64 {
	const earthRadius = 6378137.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	lng1, lat1 := toRad(a.Coordinates[0]), toRad(a.Coordinates[1])
	lng2, lat2 := toRad(b.Coordinates[0]), toRad(b.Coordinates[1])

	dLat := lat2 - lat1
	dLng := lng2 - lng1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}
