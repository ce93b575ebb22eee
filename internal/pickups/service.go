package pickups

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"recyclehub/server/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateClaim    = errors.New("recycler already requested this pickup")
)

var transitions = map[models.PickupStatus][]models.PickupStatus{
	models.StatusPending:        {models.StatusClaimRequested, models.StatusClaimed, models.StatusCancelled},
	models.StatusClaimRequested: {models.StatusClaimed, models.StatusCancelled, models.StatusPending},
	models.StatusClaimed:        {models.StatusCompleted, models.StatusCancelled},
}

func CanTransition(from, to models.PickupStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Store interface {
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	CreatePickup(ctx context.Context, p *models.Pickup) error
	GetPickup(ctx context.Context, id string) (*models.Pickup, error)
	UpdatePickupStatus(ctx context.Context, id string, status models.PickupStatus, recyclerID string, completedAt *time.Time) error
	AddClaimRequest(ctx context.Context, req *models.ClaimRequest, status models.PickupStatus) error
}

// Pricer commits a fresh market price for a material.
type Pricer interface {
	ComputeAndCommitPrice(ctx context.Context, materialID string) (float64, error)
}

// Emitter publishes pickup lifecycle events.
type Emitter interface {
	Emit(ctx context.Context, event models.PickupEvent) error
}

type EmitterFunc func(ctx context.Context, event models.PickupEvent) error

func (f EmitterFunc) Emit(ctx context.Context, event models.PickupEvent) error {
	return f(ctx, event)
}

// Geocoder resolves an address to a longitude/latitude point.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (orb.Point, error)
}

type Service struct {
	store    Store
	pricer   Pricer
	emitter  Emitter
	geocoder Geocoder
	logger   *logrus.Logger
	now      func() time.Time
}

func NewService(store Store, pricer Pricer, emitter Emitter, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Service{
		store:   store,
		pricer:  pricer,
		emitter: emitter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type LineItem struct {
	MaterialID string  `json:"materialId" binding:"required"`
	Quantity   float64 `json:"quantity"`
}

type CreateRequest struct {
	UserID     string          `json:"userId" binding:"required"`
	Materials  []LineItem      `json:"materials" binding:"required"`
	PickupDate time.Time       `json:"pickupDate" binding:"required"`
	PickupTime string          `json:"pickupTime" binding:"required"`
	Location   models.Location `json:"location"`
	Notes      string          `json:"notes"`
}

func (r *CreateRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user id is required", models.ErrInvalidPickup)
	}
	if len(r.Materials) == 0 {
		return fmt.Errorf("%w: at least one material is required", models.ErrInvalidPickup)
	}
	for _, item := range r.Materials {
		if item.MaterialID == "" {
			return fmt.Errorf("%w: material id is required", models.ErrInvalidPickup)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("%w: quantity for material %s must be non-negative", models.ErrInvalidPickup, item.MaterialID)
		}
	}
	if _, err := time.Parse(time.TimeOnly, r.PickupTime); err != nil {
		return fmt.Errorf("%w: pickup time must be HH:MM:SS", models.ErrInvalidPickup)
	}
	return r.Location.Validate()
}

// CreatePickup freezes a freshly committed price into every line item, stores
// the pickup and emits a created event. A pricing failure falls back to the
// material's last known price instead of rejecting the pickup.
func (s *Service) CreatePickup(ctx context.Context, req CreateRequest) (*models.Pickup, error) {
	if err := s.resolveLocation(ctx, &req.Location); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	pickup := &models.Pickup{
		ID:         models.NewID(),
		UserID:     req.UserID,
		Status:     models.StatusPending,
		PickupDate: req.PickupDate.UTC(),
		PickupTime: req.PickupTime,
		Location:   req.Location,
		Notes:      req.Notes,
		CreatedAt:  s.now(),
	}

	materials := make(map[string]*models.Material, len(req.Materials))
	for _, item := range req.Materials {
		material, ok := materials[item.MaterialID]
		if !ok {
			m, err := s.store.GetMaterial(ctx, item.MaterialID)
			if err != nil {
				return nil, fmt.Errorf("failed to load material %s: %w", item.MaterialID, err)
			}
			if !m.IsActive {
				return nil, fmt.Errorf("%w: material %s is not active", models.ErrInvalidPickup, m.ID)
			}
			materials[m.ID] = m
			material = m
		}

		pickup.Materials = append(pickup.Materials, models.PickupMaterial{
			MaterialID:    material.ID,
			Quantity:      item.Quantity,
			PriceAtPickup: s.priceAtPickup(ctx, material),
		})
	}
	pickup.ComputeTotals(materials)

	if err := s.store.CreatePickup(ctx, pickup); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"pickup_id":    pickup.ID,
		"total_weight": pickup.TotalWeight,
		"total_value":  pickup.TotalValue,
	}).Info("Created pickup")

	s.emit(ctx, pickup, models.EventPickupCreated)
	return pickup, nil
}

func (s *Service) priceAtPickup(ctx context.Context, material *models.Material) float64 {
	price, err := s.pricer.ComputeAndCommitPrice(ctx, material.ID)
	if err != nil {
		s.logger.WithError(err).WithField("material_id", material.ID).
			Warn("Pricing failed at pickup creation, using last known price")
		return models.RoundPrice(material.PricePerKg)
	}
	return models.RoundPrice(price)
}

// SetGeocoder enables filling in coordinates for pickups submitted with an
// address only.
func (s *Service) SetGeocoder(g Geocoder) {
	s.geocoder = g
}

func (s *Service) resolveLocation(ctx context.Context, loc *models.Location) error {
	if s.geocoder == nil || loc.Longitude != 0 || loc.Latitude != 0 || strings.TrimSpace(loc.Address) == "" {
		return nil
	}
	point, err := s.geocoder.Geocode(ctx, loc.Address)
	if err != nil {
		s.logger.WithError(err).WithField("address", loc.Address).Warn("Failed to geocode pickup address")
		return fmt.Errorf("%w: address could not be located", models.ErrInvalidPickup)
	}
	loc.Longitude = point.Lon()
	loc.Latitude = point.Lat()
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Pickup, error) {
	return s.store.GetPickup(ctx, id)
}

// RequestClaim records a recycler's interest in a pending pickup.
func (s *Service) RequestClaim(ctx context.Context, pickupID, recyclerID, message string) (*models.Pickup, error) {
	if strings.TrimSpace(recyclerID) == "" {
		return nil, fmt.Errorf("%w: recycler id is required", models.ErrInvalidPickup)
	}
	pickup, err := s.store.GetPickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	if pickup.Status != models.StatusPending && pickup.Status != models.StatusClaimRequested {
		return nil, fmt.Errorf("%w: cannot request claim on %s pickup", ErrInvalidTransition, pickup.Status)
	}
	if pickup.HasClaimFrom(recyclerID) {
		return nil, ErrDuplicateClaim
	}

	req := &models.ClaimRequest{
		ID:         models.NewID(),
		PickupID:   pickup.ID,
		RecyclerID: recyclerID,
		Status:     models.ClaimPending,
		Message:    message,
		CreatedAt:  s.now(),
	}
	if err := s.store.AddClaimRequest(ctx, req, models.StatusClaimRequested); err != nil {
		return nil, err
	}
	pickup.Status = models.StatusClaimRequested
	pickup.ClaimRequests = append(pickup.ClaimRequests, *req)

	s.logger.WithFields(logrus.Fields{
		"pickup_id":   pickup.ID,
		"recycler_id": recyclerID,
	}).Info("Claim requested")

	s.emit(ctx, pickup, models.EventClaimRequested)
	return pickup, nil
}

// UpdateStatus moves a pickup along the lifecycle. recyclerID is recorded
// when the pickup is claimed.
func (s *Service) UpdateStatus(ctx context.Context, pickupID string, status models.PickupStatus, recyclerID string) (*models.Pickup, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidPickup, status)
	}
	pickup, err := s.store.GetPickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(pickup.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, pickup.Status, status)
	}

	var completedAt *time.Time
	if status == models.StatusCompleted {
		now := s.now()
		completedAt = &now
	}
	if status != models.StatusClaimed {
		recyclerID = ""
	}
	if err := s.store.UpdatePickupStatus(ctx, pickup.ID, status, recyclerID, completedAt); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"pickup_id": pickup.ID,
		"from":      pickup.Status,
		"to":        status,
	}).Info("Pickup status changed")

	pickup.Status = status
	if recyclerID != "" {
		pickup.RecyclerID = recyclerID
	}
	if completedAt != nil {
		pickup.CompletedAt = completedAt
	}
	s.emit(ctx, pickup, models.EventStatusChanged)
	return pickup, nil
}

// emit never fails the caller: the pickup is already stored.
func (s *Service) emit(ctx context.Context, pickup *models.Pickup, eventType models.PickupEventType) {
	if s.emitter == nil {
		return
	}
	event := models.NewPickupEvent(pickup, eventType, s.now())
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"pickup_id":  pickup.ID,
			"event_type": eventType,
		}).Error("Failed to emit pickup event")
	}
}
