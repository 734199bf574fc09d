// server/internal/models/pickup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Waste types accepted for a pickup request.
const (
	WasteOrganic = "organic"
	WastePlastic = "plastic"
	WasteMetal   = "metal"
	WastePaper   = "paper"
	WasteGlass   = "glass"
	WasteEWaste  = "e_waste"
	WasteOther   = "other"
)

// Pickup lifecycle statuses.
const (
	StatusPending   = "pending"
	StatusAssigned  = "assigned"
	StatusPickedUp  = "picked_up"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidWasteType reports whether t is one of the accepted waste types.
func ValidWasteType(t string) bool {
	switch t {
	case WasteOrganic, WastePlastic, WasteMetal, WastePaper, WasteGlass, WasteEWaste, WasteOther:
		return true
	}
	return false
}

// ImageRef points at the stored pickup photo.
type ImageRef struct {
	PublicID  string `bson:"publicId" json:"publicId"`
	SecureURL string `bson:"secureUrl" json:"secureUrl"`
}

// GeoPoint is a GeoJSON Point; Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from a lng/lat pair.
func NewGeoPoint(lng, lat float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Pickup is a single waste-collection request.
//
// AssignedTo is present exactly while the pickup is assigned, picked_up or
// completed; cancellation freezes whatever value it held. The field is omitted
// from the document when empty so the claim precondition can match on absence.
type Pickup struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WasteType          string             `bson:"wasteType" json:"wasteType"`
	EstimatedWeightKg  float64            `bson:"estimatedWeightKg" json:"estimatedWeightKg"`
	Description        string             `bson:"description,omitempty" json:"description,omitempty"`
	Image              ImageRef           `bson:"image" json:"image"`
	ContaminationScore float64            `bson:"contaminationScore" json:"contaminationScore"` // clamped to 0..1
	ContaminationLabel string             `bson:"contaminationLabel,omitempty" json:"contaminationLabel,omitempty"`
	Status             string             `bson:"status" json:"status"`
	RequestedBy        string             `bson:"requestedBy" json:"requestedBy"`
	AssignedTo         string             `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Address            string             `bson:"address,omitempty" json:"address,omitempty"`
	Geom               *GeoPoint          `bson:"geom,omitempty" json:"geom,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	EvaluatedAt        time.Time          `bson:"evaluatedAt,omitempty" json:"evaluatedAt,omitempty"`
	AssignedAt         *time.Time         `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
}
