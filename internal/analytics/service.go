package analytics

import (
	"context"
	"sort"
	"time"

	"sciportfolio/internal/models"
	"sciportfolio/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// AlertWindow is how far ahead document expiries are reported.
	AlertWindow = 30 * 24 * time.Hour
	// RecentActivityLimit caps the recent tenancy feed.
	RecentActivityLimit = 5
	// NoAddressLabel is reported when an alert has no property context.
	NoAddressLabel = "N/A"
)

// Counts are the entities reachable by the caller.
type Counts struct {
	Structures      int `json:"structures"`
	Properties      int `json:"properties"`
	ActiveTenancies int `json:"active_tenancies"`
	Documents       int `json:"documents"`
}

// ExpiryAlert is a reachable document expiring within the alert window.
type ExpiryAlert struct {
	DocumentID      uuid.UUID               `json:"document_id"`
	Name            string                  `json:"name"`
	Category        models.DocumentCategory `json:"category"`
	ExpiryDate      time.Time               `json:"expiry_date"`
	PropertyAddress string                  `json:"property_address"`
}

// Activity is one entry of the recent tenancy feed.
type Activity struct {
	TenancyID       uuid.UUID `json:"tenancy_id"`
	TenantName      string    `json:"tenant_name"`
	PropertyAddress string    `json:"property_address"`
	CreatedAt       time.Time `json:"created_at"`
}

// Dashboard is the per-caller aggregation snapshot.
type Dashboard struct {
	Counts         Counts        `json:"counts"`
	Alerts         []ExpiryAlert `json:"alerts"`
	MonthlyIncome  float64       `json:"monthly_income"`
	OccupancyRate  float64       `json:"occupancy_rate"`
	RecentActivity []Activity    `json:"recent_activity"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// AnalyticsService computes dashboard metrics over the entities a user can reach.
type AnalyticsService struct {
	store  repositories.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewAnalyticsService(store repositories.Store, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (a *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	a.now = now
	return a
}

func (a *AnalyticsService) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	now := a.now()
	dashboard := &Dashboard{
		Alerts:         []ExpiryAlert{},
		RecentActivity: []Activity{},
		GeneratedAt:    now.UTC(),
	}

	structures, err := a.store.Structures().ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	properties, err := a.store.Properties().ListAccessible(ctx, userID, models.PropertyFilter{})
	if err != nil {
		return nil, err
	}
	documents, err := a.store.Documents().ListAccessible(ctx, userID, models.DocumentFilter{})
	if err != nil {
		return nil, err
	}

	addresses := make(map[uuid.UUID]string, len(properties))
	propertyIDs := make([]uuid.UUID, 0, len(properties))
	for _, p := range properties {
		addresses[p.ID] = p.Address
		propertyIDs = append(propertyIDs, p.ID)
	}

	var links []*models.TenancyLink
	if len(propertyIDs) > 0 {
		links, err = a.store.Tenancies().ListByProperties(ctx, propertyIDs)
		if err != nil {
			return nil, err
		}
	}

	occupied := make(map[uuid.UUID]bool)
	activeProperty := make(map[uuid.UUID]uuid.UUID)
	for _, link := range links {
		if !link.Active {
			continue
		}
		dashboard.Counts.ActiveTenancies++
		dashboard.MonthlyIncome += link.RentAmount
		occupied[link.PropertyID] = true
		activeProperty[link.TenantID] = link.PropertyID
	}

	dashboard.Counts.Structures = len(structures)
	dashboard.Counts.Properties = len(properties)
	dashboard.Counts.Documents = len(documents)
	dashboard.OccupancyRate = OccupancyRate(len(occupied), len(properties))

	cutoff := now.Add(AlertWindow)
	for _, d := range documents {
		if d.ExpiryDate == nil || d.ExpiryDate.After(cutoff) {
			continue
		}
		dashboard.Alerts = append(dashboard.Alerts, ExpiryAlert{
			DocumentID:      d.ID,
			Name:            d.Name,
			Category:        d.Category,
			ExpiryDate:      *d.ExpiryDate,
			PropertyAddress: alertAddress(d, addresses, activeProperty),
		})
	}
	sort.Slice(dashboard.Alerts, func(i, j int) bool {
		return dashboard.Alerts[i].ExpiryDate.Before(dashboard.Alerts[j].ExpiryDate)
	})

	recent, err := a.recentActivity(ctx, links, addresses)
	if err != nil {
		return nil, err
	}
	dashboard.RecentActivity = recent

	a.logger.Debug("dashboard computed",
		zap.String("user_id", userID.String()),
		zap.Int("properties", len(properties)),
		zap.Int("alerts", len(dashboard.Alerts)),
	)
	return dashboard, nil
}

// OccupancyRate is the percentage of occupied properties, 0 when there are none.
func OccupancyRate(occupied, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(occupied) / float64(total) * 100
}

func alertAddress(d *models.Document, addresses map[uuid.UUID]string, activeProperty map[uuid.UUID]uuid.UUID) string {
	switch {
	case d.PropertyID != nil:
		if addr, ok := addresses[*d.PropertyID]; ok {
			return addr
		}
	case d.TenantID != nil:
		if pid, ok := activeProperty[*d.TenantID]; ok {
			return addresses[pid]
		}
	}
	return NoAddressLabel
}

func (a *AnalyticsService) recentActivity(ctx context.Context, links []*models.TenancyLink, addresses map[uuid.UUID]string) ([]Activity, error) {
	sorted := append([]*models.TenancyLink(nil), links...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > RecentActivityLimit {
		sorted = sorted[:RecentActivityLimit]
	}
	if len(sorted) == 0 {
		return []Activity{}, nil
	}

	tenantIDs := make([]uuid.UUID, 0, len(sorted))
	for _, link := range sorted {
		tenantIDs = append(tenantIDs, link.TenantID)
	}
	tenants, err := a.store.Tenants().GetByIDs(ctx, tenantIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(tenants))
	for _, t := range tenants {
		names[t.ID] = t.FullName()
	}

	out := make([]Activity, 0, len(sorted))
	for _, link := range sorted {
		out = append(out, Activity{
			TenancyID:       link.ID,
			TenantName:      names[link.TenantID],
			PropertyAddress: addresses[link.PropertyID],
			CreatedAt:       link.CreatedAt,
		})
	}
	return out, nil
}
