package mongostore

import (
	"sort"
	"strconv"
	"time"

	"recyclehub/server/internal/models"
)

type marketFactorsDoc struct {
	SeasonalAdjustments map[string]float64 `bson:"seasonalAdjustments,omitempty"`
	SupplySensitivity   *float64           `bson:"supplySensitivity,omitempty"`
	DemandSensitivity   *float64           `bson:"demandSensitivity,omitempty"`
}

type materialDoc struct {
	ID                  string           `bson:"_id"`
	Name                string           `bson:"name"`
	Category            models.Category  `bson:"category"`
	PricePerKg          float64          `bson:"pricePerKg"`
	EnvironmentalImpact models.Impact    `bson:"environmentalImpact"`
	MarketFactors       marketFactorsDoc `bson:"marketFactors"`
	Description         string           `bson:"description"`
	Image               string           `bson:"image"`
	IsActive            bool             `bson:"isActive"`
	CreatedAt           time.Time        `bson:"createdAt"`
	UpdatedAt           time.Time        `bson:"updatedAt"`
}

type pickupMaterialDoc struct {
	MaterialID    string  `bson:"material"`
	Quantity      float64 `bson:"quantity"`
	PriceAtPickup float64 `bson:"priceAtPickup"`
}

type claimRequestDoc struct {
	ID         string                    `bson:"id"`
	RecyclerID string                    `bson:"recycler"`
	Status     models.ClaimRequestStatus `bson:"status"`
	Message    string                    `bson:"message"`
	CreatedAt  time.Time                 `bson:"createdAt"`
}

// locationDoc is a GeoJSON point with the street address alongside.
type locationDoc struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
	Address     string    `bson:"address"`
}

type pickupDoc struct {
	ID                  string              `bson:"_id"`
	UserID              string              `bson:"user"`
	Materials           []pickupMaterialDoc `bson:"materials"`
	TotalWeight         float64             `bson:"totalWeight"`
	TotalValue          float64             `bson:"totalValue"`
	EnvironmentalImpact models.Impact       `bson:"environmentalImpact"`
	Status              models.PickupStatus `bson:"status"`
	ClaimRequests       []claimRequestDoc   `bson:"claimRequests"`
	PickupDate          time.Time           `bson:"pickupDate"`
	PickupTime          string              `bson:"pickupTime"`
	Location            locationDoc         `bson:"location"`
	Notes               string              `bson:"notes"`
	RecyclerID          string              `bson:"recycler,omitempty"`
	CompletedAt         *time.Time          `bson:"completedAt,omitempty"`
	CreatedAt           time.Time           `bson:"createdAt"`
	UpdatedAt           time.Time           `bson:"updatedAt"`
}

type priceRecordDoc struct {
	ID           string              `bson:"_id"`
	MaterialID   string              `bson:"materialId"`
	BasePrice    float64             `bson:"basePrice"`
	CurrentPrice float64             `bson:"currentPrice"`
	SupplyLevel  float64             `bson:"supplyLevel"`
	DemandLevel  float64             `bson:"demandLevel"`
	PriceHistory []models.PricePoint `bson:"priceHistory"`
	LastUpdated  time.Time           `bson:"lastUpdated"`
	Version      int64               `bson:"version"`
}

// encodeSeasonal keys the table by month index as a string, "0" for January.
func encodeSeasonal(table models.SeasonalTable) map[string]float64 {
	if table == nil {
		return nil
	}
	out := make(map[string]float64, len(table))
	for month, factor := range table {
		out[strconv.Itoa(month)] = factor
	}
	return out
}

// decodeSeasonal drops keys that are not month indexes.
func decodeSeasonal(raw map[string]float64) models.SeasonalTable {
	if raw == nil {
		return nil
	}
	out := make(models.SeasonalTable, len(raw))
	for key, factor := range raw {
		month, err := strconv.Atoi(key)
		if err != nil || month < 0 || month > 11 {
			continue
		}
		out[month] = factor
	}
	return out
}

func toMaterialDoc(m *models.Material) materialDoc {
	return materialDoc{
		ID:                  m.ID,
		Name:                m.Name,
		Category:            m.Category,
		PricePerKg:          m.PricePerKg,
		EnvironmentalImpact: m.EnvironmentalImpact,
		MarketFactors: marketFactorsDoc{
			SeasonalAdjustments: encodeSeasonal(m.MarketFactors.SeasonalAdjustments),
			SupplySensitivity:   m.MarketFactors.SupplySensitivity,
			DemandSensitivity:   m.MarketFactors.DemandSensitivity,
		},
		Description: m.Description,
		Image:       m.Image,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (d materialDoc) model() *models.Material {
	return &models.Material{
		ID:                  d.ID,
		Name:                d.Name,
		Category:            d.Category,
		PricePerKg:          d.PricePerKg,
		EnvironmentalImpact: d.EnvironmentalImpact,
		MarketFactors: models.MarketFactors{
			SeasonalAdjustments: decodeSeasonal(d.MarketFactors.SeasonalAdjustments),
			SupplySensitivity:   d.MarketFactors.SupplySensitivity,
			DemandSensitivity:   d.MarketFactors.DemandSensitivity,
		},
		Description: d.Description,
		Image:       d.Image,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func toClaimRequestDoc(req *models.ClaimRequest) claimRequestDoc {
	return claimRequestDoc{
		ID:         req.ID,
		RecyclerID: req.RecyclerID,
		Status:     req.Status,
		Message:    req.Message,
		CreatedAt:  req.CreatedAt,
	}
}

func toPickupDoc(p *models.Pickup) pickupDoc {
	doc := pickupDoc{
		ID:                  p.ID,
		UserID:              p.UserID,
		Materials:           make([]pickupMaterialDoc, 0, len(p.Materials)),
		TotalWeight:         p.TotalWeight,
		TotalValue:          p.TotalValue,
		EnvironmentalImpact: p.EnvironmentalImpact,
		Status:              p.Status,
		ClaimRequests:       make([]claimRequestDoc, 0, len(p.ClaimRequests)),
		PickupDate:          p.PickupDate,
		PickupTime:          p.PickupTime,
		Location: locationDoc{
			Type:        "Point",
			Coordinates: []float64{p.Location.Longitude, p.Location.Latitude},
			Address:     p.Location.Address,
		},
		Notes:       p.Notes,
		RecyclerID:  p.RecyclerID,
		CompletedAt: p.CompletedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, item := range p.Materials {
		doc.Materials = append(doc.Materials, pickupMaterialDoc{
			MaterialID:    item.MaterialID,
			Quantity:      item.Quantity,
			PriceAtPickup: item.PriceAtPickup,
		})
	}
	for i := range p.ClaimRequests {
		doc.ClaimRequests = append(doc.ClaimRequests, toClaimRequestDoc(&p.ClaimRequests[i]))
	}
	return doc
}

func (d pickupDoc) model() *models.Pickup {
	p := &models.Pickup{
		ID:                  d.ID,
		UserID:              d.UserID,
		TotalWeight:         d.TotalWeight,
		TotalValue:          d.TotalValue,
		EnvironmentalImpact: d.EnvironmentalImpact,
		Status:              d.Status,
		PickupDate:          d.PickupDate,
		PickupTime:          d.PickupTime,
		Location:            models.Location{Address: d.Location.Address},
		Notes:               d.Notes,
		RecyclerID:          d.RecyclerID,
		CompletedAt:         d.CompletedAt,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	if len(d.Location.Coordinates) == 2 {
		p.Location.Longitude = d.Location.Coordinates[0]
		p.Location.Latitude = d.Location.Coordinates[1]
	}
	for _, item := range d.Materials {
		p.Materials = append(p.Materials, models.PickupMaterial{
			PickupID:      d.ID,
			MaterialID:    item.MaterialID,
			Quantity:      item.Quantity,
			PriceAtPickup: item.PriceAtPickup,
		})
	}
	for _, req := range d.ClaimRequests {
		p.ClaimRequests = append(p.ClaimRequests, models.ClaimRequest{
			ID:         req.ID,
			PickupID:   d.ID,
			RecyclerID: req.RecyclerID,
			Status:     req.Status,
			Message:    req.Message,
			CreatedAt:  req.CreatedAt,
		})
	}
	return p
}

// activity sums the pickup's quantity of one material. ok is false when the
// pickup has no line item for it.
func (d pickupDoc) activity(materialID string) (models.ActivitySample, bool) {
	sample := models.ActivitySample{
		PickupID:         d.ID,
		Status:           d.Status,
		HasClaimRequests: len(d.ClaimRequests) > 0,
	}
	found := false
	for _, item := range d.Materials {
		if item.MaterialID == materialID {
			sample.Quantity += item.Quantity
			found = true
		}
	}
	return sample, found
}

func toPriceRecordDoc(rec *models.MarketPriceRecord) priceRecordDoc {
	history := rec.PriceHistory
	if history == nil {
		history = []models.PricePoint{}
	}
	return priceRecordDoc{
		ID:           rec.ID,
		MaterialID:   rec.MaterialID,
		BasePrice:    rec.BasePrice,
		CurrentPrice: rec.CurrentPrice,
		SupplyLevel:  rec.SupplyLevel,
		DemandLevel:  rec.DemandLevel,
		PriceHistory: history,
		LastUpdated:  rec.LastUpdated,
		Version:      rec.Version,
	}
}

func (d priceRecordDoc) model() *models.MarketPriceRecord {
	history := d.PriceHistory
	if history == nil {
		history = []models.PricePoint{}
	}
	return &models.MarketPriceRecord{
		ID:           d.ID,
		MaterialID:   d.MaterialID,
		BasePrice:    d.BasePrice,
		CurrentPrice: d.CurrentPrice,
		SupplyLevel:  d.SupplyLevel,
		DemandLevel:  d.DemandLevel,
		PriceHistory: history,
		LastUpdated:  d.LastUpdated,
		Version:      d.Version,
	}
}

func sortSamples(samples []models.ActivitySample) {
	sort.Slice(samples, func(i, j int) bool { return samples[i].PickupID < samples[j].PickupID })
}
