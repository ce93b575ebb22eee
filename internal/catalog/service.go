package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"recyclehub/server/internal/models"
)

type Store interface {
	CreateMaterial(ctx context.Context, m *models.Material) error
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	ListMaterials(ctx context.Context, activeOnly bool) ([]models.Material, error)
	UpdateMaterial(ctx context.Context, m *models.Material) error
	SoftDeleteMaterial(ctx context.Context, id string) error
	CountMaterials(ctx context.Context) (int64, error)
}

// Quoter returns the current market price of a material.
type Quoter interface {
	QuotePrice(ctx context.Context, materialID string) (float64, error)
}

// Service manages the material catalog. The price per kg is only set on
// creation; afterwards the pricing engine owns it.
type Service struct {
	store    Store
	quoter   Quoter
	seasonal models.SeasonalTable
	logger   *logrus.Logger
}

func NewService(store Store, quoter Quoter, seasonal models.SeasonalTable, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Service{
		store:    store,
		quoter:   quoter,
		seasonal: seasonal,
		logger:   logger,
	}
}

func (s *Service) applyDefaults(m *models.Material) {
	if len(m.MarketFactors.SeasonalAdjustments) == 0 {
		m.MarketFactors.SeasonalAdjustments = s.seasonal.Clone()
	}
	if m.MarketFactors.SupplySensitivity == nil {
		m.MarketFactors.SupplySensitivity = models.Float64(models.DefaultSensitivity)
	}
	if m.MarketFactors.DemandSensitivity == nil {
		m.MarketFactors.DemandSensitivity = models.Float64(models.DefaultSensitivity)
	}
}

func mergeMarketFactors(dst *models.MarketFactors, stored models.MarketFactors) {
	if len(dst.SeasonalAdjustments) == 0 {
		dst.SeasonalAdjustments = stored.SeasonalAdjustments.Clone()
	}
	if dst.SupplySensitivity == nil && stored.SupplySensitivity != nil {
		dst.SupplySensitivity = models.Float64(*stored.SupplySensitivity)
	}
	if dst.DemandSensitivity == nil && stored.DemandSensitivity != nil {
		dst.DemandSensitivity = models.Float64(*stored.DemandSensitivity)
	}
}

func (s *Service) Create(ctx context.Context, m *models.Material) error {
	s.applyDefaults(m)
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = models.NewID()
	}
	m.IsActive = true

	if err := s.store.CreateMaterial(ctx, m); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"material_id": m.ID,
		"name":        m.Name,
		"category":    m.Category,
	}).Info("Created material")
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Material, error) {
	return s.store.GetMaterial(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]models.Material, error) {
	return s.store.ListMaterials(ctx, true)
}

// Update replaces the admin-editable fields. The stored price per kg and
// active flag win over whatever the caller passed, and market factors left
// out of the request keep their stored values.
func (s *Service) Update(ctx context.Context, m *models.Material) error {
	existing, err := s.store.GetMaterial(ctx, m.ID)
	if err != nil {
		return err
	}
	m.PricePerKg = existing.PricePerKg
	m.IsActive = existing.IsActive
	mergeMarketFactors(&m.MarketFactors, existing.MarketFactors)
	s.applyDefaults(m)
	if err := m.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateMaterial(ctx, m); err != nil {
		return err
	}
	s.logger.WithField("material_id", m.ID).Info("Updated material")
	return nil
}

func (s *Service) SoftDelete(ctx context.Context, id string) error {
	if err := s.store.SoftDeleteMaterial(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("material_id", id).Info("Deactivated material")
	return nil
}

// Seed inserts the given materials when the catalog is empty and returns the
// number of materials created.
func (s *Service) Seed(ctx context.Context, materials []models.Material) (int, error) {
	n, err := s.store.CountMaterials(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.WithField("existing", n).Debug("Catalog already populated, skipping seed")
		return 0, nil
	}

	created := 0
	for i := range materials {
		m := materials[i]
		if err := s.Create(ctx, &m); err != nil {
			return created, fmt.Errorf("failed to seed material %q: %w", m.Name, err)
		}
		created++
	}
	s.logger.WithField("count", created).Info("Seeded material catalog")
	return created, nil
}

type ImpactItem struct {
	MaterialID string  `json:"materialId" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"gte=0"`
}

type ImpactSummary struct {
	Impact     models.Impact `json:"environmentalImpact"`
	TotalValue float64       `json:"totalValue"`
}

// CalculateImpact sums the environmental impact of the items and their value
// at current market prices.
func (s *Service) CalculateImpact(ctx context.Context, items []ImpactItem) (*ImpactSummary, error) {
	summary := &ImpactSummary{}
	for _, item := range items {
		if item.Quantity < 0 {
			return nil, fmt.Errorf("%w: quantity must be non-negative", models.ErrInvalidPickup)
		}
		m, err := s.store.GetMaterial(ctx, item.MaterialID)
		if err != nil {
			return nil, fmt.Errorf("failed to load material %s: %w", item.MaterialID, err)
		}
		price := m.PricePerKg
		if s.quoter != nil {
			quoted, err := s.quoter.QuotePrice(ctx, m.ID)
			switch {
			case err == nil:
				price = quoted
			case !errors.Is(err, models.ErrNotFound):
				s.logger.WithError(err).WithField("material_id", m.ID).Warn("Quote failed, using catalog price")
			}
		}
		summary.Impact = summary.Impact.Add(m.EnvironmentalImpact.Scale(item.Quantity))
		summary.TotalValue += item.Quantity * price
	}
	summary.TotalValue = models.RoundPrice(summary.TotalValue)
	return summary, nil
}
