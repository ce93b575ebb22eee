package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

type PickupStatus string

const (
	StatusPending        PickupStatus = "pending"
	StatusClaimRequested PickupStatus = "claim_requested"
	StatusClaimed        PickupStatus = "claimed"
	StatusCompleted      PickupStatus = "completed"
	StatusCancelled      PickupStatus = "cancelled"
)

func (s PickupStatus) Valid() bool {
	switch s {
	case StatusPending, StatusClaimRequested, StatusClaimed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type ClaimRequestStatus string

const (
	ClaimPending  ClaimRequestStatus = "pending"
	ClaimApproved ClaimRequestStatus = "approved"
	ClaimRejected ClaimRequestStatus = "rejected"
)

// PickupMaterial is one line item of a pickup. PriceAtPickup is frozen when
// the pickup is created.
type PickupMaterial struct {
	ID            uint    `json:"-" gorm:"primaryKey"`
	PickupID      string  `json:"-" gorm:"index;size:36;not null"`
	MaterialID    string  `json:"materialId" gorm:"index;size:36;not null"`
	Quantity      float64 `json:"quantity" gorm:"not null"`
	PriceAtPickup float64 `json:"priceAtPickup" gorm:"not null"`
}

type ClaimRequest struct {
	ID         string             `json:"id" gorm:"primaryKey;size:36"`
	PickupID   string             `json:"-" gorm:"index;size:36;not null"`
	RecyclerID string             `json:"recyclerId" gorm:"size:64;not null"`
	Status     ClaimRequestStatus `json:"status" gorm:"not null"`
	Message    string             `json:"message"`
	CreatedAt  time.Time          `json:"createdAt"`
}

var worldBound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Address   string  `json:"address"`
}

func (l Location) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

func (l Location) Validate() error {
	if !worldBound.Contains(l.Point()) {
		return fmt.Errorf("%w: coordinates (%f, %f) out of range", ErrInvalidPickup, l.Longitude, l.Latitude)
	}
	if strings.TrimSpace(l.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidPickup)
	}
	return nil
}

type Pickup struct {
	ID                  string           `json:"id" gorm:"primaryKey;size:36"`
	UserID              string           `json:"userId" gorm:"index;size:64;not null"`
	Materials           []PickupMaterial `json:"materials" gorm:"foreignKey:PickupID"`
	TotalWeight         float64          `json:"totalWeight"`
	TotalValue          float64          `json:"totalValue"`
	EnvironmentalImpact Impact           `json:"environmentalImpact" gorm:"embedded;embeddedPrefix:impact_"`
	Status              PickupStatus     `json:"status" gorm:"index;not null"`
	ClaimRequests       []ClaimRequest   `json:"claimRequests" gorm:"foreignKey:PickupID"`
	PickupDate          time.Time        `json:"pickupDate"`
	PickupTime          string           `json:"pickupTime"`
	Location            Location         `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	Notes               string           `json:"notes"`
	RecyclerID          string           `json:"recyclerId,omitempty" gorm:"size:64"`
	CompletedAt         *time.Time       `json:"completedAt,omitempty"`
	CreatedAt           time.Time        `json:"createdAt" gorm:"index"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// ComputeTotals recalculates weight, value and environmental impact from the
// line items. Materials missing from the map contribute weight and value only.
func (p *Pickup) ComputeTotals(materials map[string]*Material) {
	var weight, value float64
	var impact Impact
	for _, item := range p.Materials {
		weight += item.Quantity
		value += item.Quantity * item.PriceAtPickup
		if m, ok := materials[item.MaterialID]; ok {
			impact = impact.Add(m.EnvironmentalImpact.Scale(item.Quantity))
		}
	}
	p.TotalWeight = weight
	p.TotalValue = RoundPrice(value)
	p.EnvironmentalImpact = impact
}

// MaterialIDs returns the distinct material ids of the line items in order of
// first appearance.
func (p *Pickup) MaterialIDs() []string {
	seen := make(map[string]struct{}, len(p.Materials))
	ids := make([]string, 0, len(p.Materials))
	for _, item := range p.Materials {
		if _, ok := seen[item.MaterialID]; ok {
			continue
		}
		seen[item.MaterialID] = struct{}{}
		ids = append(ids, item.MaterialID)
	}
	return ids
}

func (p *Pickup) HasClaimFrom(recyclerID string) bool {
	for _, req := range p.ClaimRequests {
		if req.RecyclerID == recyclerID {
			return true
		}
	}
	return false
}

// RoundPrice rounds to cents.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
