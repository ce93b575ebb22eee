package models

import "time"

const (
	DefaultHistoryLimit = 30
	InitialMarketLevel  = 50.0
)

type PriceFactors struct {
	Supply   float64 `json:"supply" bson:"supply"`
	Demand   float64 `json:"demand" bson:"demand"`
	Seasonal float64 `json:"seasonal" bson:"seasonal"`
}

type PricePoint struct {
	Price   float64      `json:"price" bson:"price"`
	Date    time.Time    `json:"date" bson:"date"`
	Factors PriceFactors `json:"factors" bson:"factors"`
}

// MarketPriceRecord is the pricing state of one material. BasePrice is fixed
// at creation. Version is bumped on every committed update.
type MarketPriceRecord struct {
	ID           string       `json:"id" gorm:"primaryKey;size:36"`
	MaterialID   string       `json:"materialId" gorm:"uniqueIndex;size:36;not null"`
	BasePrice    float64      `json:"basePrice" gorm:"not null"`
	CurrentPrice float64      `json:"currentPrice" gorm:"not null"`
	SupplyLevel  float64      `json:"supplyLevel"`
	DemandLevel  float64      `json:"demandLevel"`
	PriceHistory []PricePoint `json:"priceHistory" gorm:"serializer:json"`
	LastUpdated  time.Time    `json:"lastUpdated"`
	Version      int64        `json:"-" gorm:"not null;default:0"`
}

func (MarketPriceRecord) TableName() string {
	return "market_prices"
}

func NewMarketPriceRecord(material *Material, now time.Time) *MarketPriceRecord {
	return &MarketPriceRecord{
		ID:           NewID(),
		MaterialID:   material.ID,
		BasePrice:    material.PricePerKg,
		CurrentPrice: material.PricePerKg,
		SupplyLevel:  InitialMarketLevel,
		DemandLevel:  InitialMarketLevel,
		PriceHistory: []PricePoint{},
		LastUpdated:  now,
	}
}

// AppendHistory records a committed price, evicting the oldest entries once
// the history holds more than limit points.
func (r *MarketPriceRecord) AppendHistory(point PricePoint, limit int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	history := append(r.PriceHistory, point)
	if over := len(history) - limit; over > 0 {
		history = append([]PricePoint(nil), history[over:]...)
	}
	r.PriceHistory = history
	r.CurrentPrice = point.Price
	r.LastUpdated = point.Date
}

func (r *MarketPriceRecord) Clone() *MarketPriceRecord {
	out := *r
	out.PriceHistory = append([]PricePoint(nil), r.PriceHistory...)
	return &out
}
