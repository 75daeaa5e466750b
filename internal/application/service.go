package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/floraxhq/florax/internal/domain"
)

// recentPerGarden bounds the alert/log panels embedded in each garden view.
// Cross-garden "recent" queries are global and not subject to this cap.
const recentPerGarden = 5

type DashboardService struct {
	repo domain.DashboardRepository
}

func NewDashboardService(repo domain.DashboardRepository) *DashboardService {
	return &DashboardService{repo: repo}
}

// resolveUser maps the verified principal email to a user row. Nothing is
// cached between requests; every call re-derives ownership from storage.
func (s *DashboardService) resolveUser(ctx context.Context, email string) (domain.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: user", domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// requireGarden loads a garden and verifies the caller owns it, before any
// child data is read.
func (s *DashboardService) requireGarden(ctx context.Context, userID, gardenID uint) (domain.Garden, error) {
	garden, err := s.repo.GetGardenByID(ctx, gardenID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Garden{}, fmt.Errorf("%w: garden", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Garden{}, err
	}
	if garden.OwnerID != userID {
		return domain.Garden{}, fmt.Errorf("%w: garden", domain.ErrForbidden)
	}
	return garden, nil
}

// requireZone verifies the full zone -> garden -> user chain.
func (s *DashboardService) requireZone(ctx context.Context, userID, zoneID uint) (domain.Zone, error) {
	zone, err := s.repo.GetZoneByID(ctx, zoneID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Zone{}, fmt.Errorf("%w: zone", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Zone{}, err
	}
	if _, err := s.requireGarden(ctx, userID, zone.GardenID); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
			return domain.Zone{}, fmt.Errorf("%w: zone", domain.ErrForbidden)
		}
		return domain.Zone{}, err
	}
	return zone, nil
}

func (s *DashboardService) requireAlert(ctx context.Context, userID, alertID uint) (domain.Alert, error) {
	alert, err := s.repo.GetAlertByID(ctx, alertID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Alert{}, fmt.Errorf("%w: alert", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Alert{}, err
	}
	if _, err := s.requireGarden(ctx, userID, alert.GardenID); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
			return domain.Alert{}, fmt.Errorf("%w: alert", domain.ErrForbidden)
		}
		return domain.Alert{}, err
	}
	return alert, nil
}

// zoneNamesByOwner flattens every owned zone into an id -> name index used to
// label alerts, logs and valves in views.
func (s *DashboardService) zoneNamesByOwner(ctx context.Context, userID uint) (map[uint]string, error) {
	gardens, err := s.repo.GardensByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string)
	for _, garden := range gardens {
		zones, err := s.repo.ZonesByGarden(ctx, garden.ID)
		if err != nil {
			return nil, err
		}
		for _, zone := range zones {
			names[zone.ID] = zone.Name
		}
	}
	return names, nil
}

func zoneNameFor(names map[uint]string, zoneID *uint) string {
	if zoneID == nil {
		return ""
	}
	return names[*zoneID]
}

func (s *DashboardService) buildZoneView(ctx context.Context, zone domain.Zone) (ZoneView, *float64, error) {
	reading, err := s.repo.LatestReadingByZone(ctx, zone.ID)
	if err != nil {
		return ZoneView{}, nil, err
	}
	var value *float64
	if reading != nil {
		v := reading.Value
		value = &v
	}
	logs, err := s.repo.RecentLogsByZone(ctx, zone.ID, 1)
	if err != nil {
		return ZoneView{}, nil, err
	}
	var lastLog *domain.IrrigationLog
	if len(logs) > 0 {
		lastLog = &logs[0]
	}
	return newZoneView(zone, value, lastLog), value, nil
}

// GetDashboard assembles the full per-user snapshot: every garden with its
// zones enriched by latest reading, derived status and last irrigation, plus
// per-garden recent alert/log panels and cross-garden running totals. Alert
// totals and today's water usage come from global ownership-scoped queries so
// they are never bounded by the per-garden panels.
func (s *DashboardService) GetDashboard(ctx context.Context, email string) (DashboardView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return DashboardView{}, err
	}
	gardens, err := s.repo.GardensByOwner(ctx, user.ID)
	if err != nil {
		return DashboardView{}, err
	}

	var (
		totalZones    int
		moistureSum   float64
		moistureCount int
	)
	gardenViews := make([]GardenView, 0, len(gardens))

	for _, garden := range gardens {
		zones, err := s.repo.ZonesByGarden(ctx, garden.ID)
		if err != nil {
			return DashboardView{}, err
		}
		names := make(map[uint]string, len(zones))
		zoneViews := make([]ZoneView, 0, len(zones))
		for _, zone := range zones {
			names[zone.ID] = zone.Name
			view, value, err := s.buildZoneView(ctx, zone)
			if err != nil {
				return DashboardView{}, err
			}
			zoneViews = append(zoneViews, view)
			if value != nil {
				moistureSum += *value
				moistureCount++
			}
		}
		totalZones += len(zones)

		alerts, err := s.repo.RecentAlertsByGarden(ctx, garden.ID, recentPerGarden)
		if err != nil {
			return DashboardView{}, err
		}
		alertViews := make([]AlertView, 0, len(alerts))
		gardenActive := 0
		for _, alert := range alerts {
			if alert.Status == domain.AlertActive {
				gardenActive++
			}
			alertViews = append(alertViews, newAlertView(alert, zoneNameFor(names, alert.ZoneID)))
		}

		logs, err := s.repo.RecentLogsByGarden(ctx, garden.ID, recentPerGarden)
		if err != nil {
			return DashboardView{}, err
		}
		logViews := make([]IrrigationLogView, 0, len(logs))
		for _, log := range logs {
			logViews = append(logViews, newLogView(log, names[log.ZoneID]))
		}

		gardenViews = append(gardenViews, GardenView{
			GardenID:          garden.ID,
			GardenName:        garden.Name,
			Location:          garden.Location,
			TotalArea:         garden.TotalArea,
			TotalZones:        len(zones),
			ActiveAlerts:      gardenActive,
			Zones:             zoneViews,
			Alerts:            alertViews,
			RecentIrrigations: logViews,
		})
	}

	activeAlerts, err := s.repo.AlertsByOwnerAndStatus(ctx, user.ID, domain.AlertActive)
	if err != nil {
		return DashboardView{}, err
	}
	todayLogs, err := s.repo.LogsByOwnerSince(ctx, user.ID, startOfDay(time.Now()))
	if err != nil {
		return DashboardView{}, err
	}

	avgMoisture := 0.0
	if moistureCount > 0 {
		avgMoisture = round1(moistureSum / float64(moistureCount))
	}

	return DashboardView{
		UserID:                user.ID,
		UserName:              user.Name,
		Email:                 user.Email,
		TotalGardens:          len(gardens),
		TotalZones:            totalZones,
		ActiveAlerts:          len(activeAlerts),
		TotalIrrigationsToday: len(todayLogs),
		AvgMoistureLevel:      avgMoisture,
		TotalWaterUsedToday:   round1(waterVolumeSum(todayLogs)),
		Gardens:               gardenViews,
	}, nil
}

// GetDashboardSummary computes the aggregated stat block from global
// ownership-scoped queries only.
func (s *DashboardService) GetDashboardSummary(ctx context.Context, email string) (DashboardSummaryView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return DashboardSummaryView{}, err
	}
	uid := user.ID

	gardens, err := s.repo.GardensByOwner(ctx, uid)
	if err != nil {
		return DashboardSummaryView{}, err
	}

	totalZones := 0
	var moistureSum float64
	moistureCount := 0
	for _, garden := range gardens {
		zones, err := s.repo.ZonesByGarden(ctx, garden.ID)
		if err != nil {
			return DashboardSummaryView{}, err
		}
		totalZones += len(zones)
		for _, zone := range zones {
			reading, err := s.repo.LatestReadingByZone(ctx, zone.ID)
			if err != nil {
				return DashboardSummaryView{}, err
			}
			if reading != nil {
				moistureSum += reading.Value
				moistureCount++
			}
		}
	}
	avgMoisture := 0.0
	if moistureCount > 0 {
		avgMoisture = round1(moistureSum / float64(moistureCount))
	}

	sensors, err := s.repo.SensorsByOwner(ctx, uid)
	if err != nil {
		return DashboardSummaryView{}, err
	}
	activeSensors, faultySensors := 0, 0
	for _, sensor := range sensors {
		switch sensor.Status {
		case domain.SensorActive:
			activeSensors++
		case domain.SensorFaulty:
			faultySensors++
		}
	}

	valves, err := s.repo.ValvesByOwner(ctx, uid)
	if err != nil {
		return DashboardSummaryView{}, err
	}
	openValves := 0
	for _, valve := range valves {
		if valve.Status == domain.ValveOpen {
			openValves++
		}
	}

	tanks, err := s.repo.TanksByOwner(ctx, uid)
	if err != nil {
		return DashboardSummaryView{}, err
	}
	tankViews := make([]WaterTankView, 0, len(tanks))
	for _, tank := range tanks {
		tankViews = append(tankViews, newTankView(tank))
	}

	now := time.Now()
	todayLogs, err := s.repo.LogsByOwnerSince(ctx, uid, startOfDay(now))
	if err != nil {
		return DashboardSummaryView{}, err
	}
	weekLogs, err := s.repo.LogsByOwnerSince(ctx, uid, startOfWeekWindow(now))
	if err != nil {
		return DashboardSummaryView{}, err
	}
	monthLogs, err := s.repo.LogsByOwnerSince(ctx, uid, startOfMonth(now))
	if err != nil {
		return DashboardSummaryView{}, err
	}

	activeAlerts, err := s.repo.AlertsByOwnerAndStatus(ctx, uid, domain.AlertActive)
	if err != nil {
		return DashboardSummaryView{}, err
	}
	byType := make(map[string]int)
	for _, alert := range activeAlerts {
		if alert.Type == "" {
			continue
		}
		byType[string(alert.Type)]++
	}

	resolvedToday, err := s.resolvedAlertsToday(ctx, uid, now)
	if err != nil {
		return DashboardSummaryView{}, err
	}

	return DashboardSummaryView{
		TotalGardens:            len(gardens),
		TotalZones:              totalZones,
		TotalSensors:            len(sensors),
		ActiveSensors:           activeSensors,
		FaultySensors:           faultySensors,
		TotalValves:             len(valves),
		OpenValves:              openValves,
		TotalWaterTanks:         len(tanks),
		AvgMoistureLevel:        avgMoisture,
		TotalWaterUsedToday:     round1(waterVolumeSum(todayLogs)),
		TotalWaterUsedThisWeek:  round1(waterVolumeSum(weekLogs)),
		TotalWaterUsedThisMonth: round1(waterVolumeSum(monthLogs)),
		TotalIrrigationsToday:   len(todayLogs),
		TotalIrrigationsWeek:    len(weekLogs),
		ActiveAlerts:            len(activeAlerts),
		ResolvedAlertsToday:     len(resolvedToday),
		AlertCountByType:        byType,
		WaterTanks:              tankViews,
	}, nil
}

// resolvedAlertsToday filters RESOLVED alerts created within [todayStart,
// todayStart+1d). The model carries no resolution timestamp, so creation time
// stands in for it.
func (s *DashboardService) resolvedAlertsToday(ctx context.Context, userID uint, now time.Time) ([]domain.Alert, error) {
	resolved, err := s.repo.AlertsByOwnerAndStatus(ctx, userID, domain.AlertResolved)
	if err != nil {
		return nil, err
	}
	todayStart := startOfDay(now)
	todayEnd := todayStart.AddDate(0, 0, 1)
	out := make([]domain.Alert, 0, len(resolved))
	for _, alert := range resolved {
		if alert.CreatedAt == nil {
			continue
		}
		if !alert.CreatedAt.Before(todayStart) && alert.CreatedAt.Before(todayEnd) {
			out = append(out, alert)
		}
	}
	return out, nil
}

func (s *DashboardService) buildGardenView(ctx context.Context, garden domain.Garden) (GardenView, error) {
	zones, err := s.repo.ZonesByGarden(ctx, garden.ID)
	if err != nil {
		return GardenView{}, err
	}
	names := make(map[uint]string, len(zones))
	zoneViews := make([]ZoneView, 0, len(zones))
	for _, zone := range zones {
		names[zone.ID] = zone.Name
		view, _, err := s.buildZoneView(ctx, zone)
		if err != nil {
			return GardenView{}, err
		}
		zoneViews = append(zoneViews, view)
	}

	alerts, err := s.repo.RecentAlertsByGarden(ctx, garden.ID, recentPerGarden)
	if err != nil {
		return GardenView{}, err
	}
	alertViews := make([]AlertView, 0, len(alerts))
	active := 0
	for _, alert := range alerts {
		if alert.Status == domain.AlertActive {
			active++
		}
		alertViews = append(alertViews, newAlertView(alert, zoneNameFor(names, alert.ZoneID)))
	}

	logs, err := s.repo.RecentLogsByGarden(ctx, garden.ID, recentPerGarden)
	if err != nil {
		return GardenView{}, err
	}
	logViews := make([]IrrigationLogView, 0, len(logs))
	for _, log := range logs {
		logViews = append(logViews, newLogView(log, names[log.ZoneID]))
	}

	return GardenView{
		GardenID:          garden.ID,
		GardenName:        garden.Name,
		Location:          garden.Location,
		TotalArea:         garden.TotalArea,
		TotalZones:        len(zones),
		ActiveAlerts:      active,
		Zones:             zoneViews,
		Alerts:            alertViews,
		RecentIrrigations: logViews,
	}, nil
}

func (s *DashboardService) ListGardens(ctx context.Context, email string) ([]GardenView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	gardens, err := s.repo.GardensByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	views := make([]GardenView, 0, len(gardens))
	for _, garden := range gardens {
		view, err := s.buildGardenView(ctx, garden)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *DashboardService) GetGarden(ctx context.Context, email string, gardenID uint) (GardenView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return GardenView{}, err
	}
	garden, err := s.requireGarden(ctx, user.ID, gardenID)
	if err != nil {
		return GardenView{}, err
	}
	return s.buildGardenView(ctx, garden)
}

func (s *DashboardService) ListZones(ctx context.Context, email string) ([]ZoneView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	gardens, err := s.repo.GardensByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	views := make([]ZoneView, 0)
	for _, garden := range gardens {
		zones, err := s.repo.ZonesByGarden(ctx, garden.ID)
		if err != nil {
			return nil, err
		}
		for _, zone := range zones {
			view, _, err := s.buildZoneView(ctx, zone)
			if err != nil {
				return nil, err
			}
			views = append(views, view)
		}
	}
	return views, nil
}

func (s *DashboardService) ZonesByGarden(ctx context.Context, email string, gardenID uint) ([]ZoneView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireGarden(ctx, user.ID, gardenID); err != nil {
		return nil, err
	}
	zones, err := s.repo.ZonesByGarden(ctx, gardenID)
	if err != nil {
		return nil, err
	}
	views := make([]ZoneView, 0, len(zones))
	for _, zone := range zones {
		view, _, err := s.buildZoneView(ctx, zone)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *DashboardService) GetZone(ctx context.Context, email string, zoneID uint) (ZoneView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return ZoneView{}, err
	}
	zone, err := s.requireZone(ctx, user.ID, zoneID)
	if err != nil {
		return ZoneView{}, err
	}
	view, _, err := s.buildZoneView(ctx, zone)
	return view, err
}

func (s *DashboardService) AlertZones(ctx context.Context, email string) ([]ZoneView, error) {
	return s.zonesWithStatus(ctx, email, ZoneStatusAlert)
}

func (s *DashboardService) ActiveZones(ctx context.Context, email string) ([]ZoneView, error) {
	return s.zonesWithStatus(ctx, email, ZoneStatusActive)
}

func (s *DashboardService) zonesWithStatus(ctx context.Context, email, status string) ([]ZoneView, error) {
	zones, err := s.ListZones(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]ZoneView, 0, len(zones))
	for _, zone := range zones {
		if zone.IrrigationStatus == status {
			out = append(out, zone)
		}
	}
	return out, nil
}

func (s *DashboardService) ListSensors(ctx context.Context, email string) ([]SensorView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	sensors, err := s.repo.SensorsByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	views := make([]SensorView, 0, len(sensors))
	for _, sensor := range sensors {
		latest, err := s.repo.LatestReadingByZone(ctx, sensor.ZoneID)
		if err != nil {
			return nil, err
		}
		views = append(views, newSensorView(sensor, latest))
	}
	return views, nil
}

func (s *DashboardService) SensorsByZone(ctx context.Context, email string, zoneID uint) ([]SensorView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireZone(ctx, user.ID, zoneID); err != nil {
		return nil, err
	}
	sensors, err := s.repo.SensorsByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	latest, err := s.repo.LatestReadingByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	views := make([]SensorView, 0, len(sensors))
	for _, sensor := range sensors {
		views = append(views, newSensorView(sensor, latest))
	}
	return views, nil
}

// FaultySensors lists sensors needing attention: FAULTY first, then INACTIVE.
func (s *DashboardService) FaultySensors(ctx context.Context, email string) ([]SensorView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	sensors, err := s.repo.SensorsByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	views := make([]SensorView, 0)
	for _, status := range []domain.SensorStatus{domain.SensorFaulty, domain.SensorInactive} {
		for _, sensor := range sensors {
			if sensor.Status == status {
				views = append(views, newSensorView(sensor, nil))
			}
		}
	}
	return views, nil
}

func (s *DashboardService) TodayLogs(ctx context.Context, email string) ([]IrrigationLogView, error) {
	return s.logsSince(ctx, email, startOfDay(time.Now()))
}

func (s *DashboardService) WeeklyLogs(ctx context.Context, email string) ([]IrrigationLogView, error) {
	return s.logsSince(ctx, email, startOfWeekWindow(time.Now()))
}

func (s *DashboardService) MonthlyLogs(ctx context.Context, email string) ([]IrrigationLogView, error) {
	return s.logsSince(ctx, email, startOfMonth(time.Now()))
}

func (s *DashboardService) logsSince(ctx context.Context, email string, since time.Time) ([]IrrigationLogView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.LogsByOwnerSince(ctx, user.ID, since)
	if err != nil {
		return nil, err
	}
	return s.logViews(ctx, user.ID, logs)
}

func (s *DashboardService) logViews(ctx context.Context, userID uint, logs []domain.IrrigationLog) ([]IrrigationLogView, error) {
	names, err := s.zoneNamesByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]IrrigationLogView, 0, len(logs))
	for _, log := range logs {
		views = append(views, newLogView(log, names[log.ZoneID]))
	}
	return views, nil
}

// RecentLogs is a single global ownership-scoped time-ordered query, so the
// result is a true top-N regardless of how many gardens contribute.
func (s *DashboardService) RecentLogs(ctx context.Context, email string, limit int) ([]IrrigationLogView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.RecentLogsByOwner(ctx, user.ID, clampLimit(limit, 10, 200))
	if err != nil {
		return nil, err
	}
	return s.logViews(ctx, user.ID, logs)
}

func (s *DashboardService) LogsByZone(ctx context.Context, email string, zoneID uint, limit int) ([]IrrigationLogView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	zone, err := s.requireZone(ctx, user.ID, zoneID)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.RecentLogsByZone(ctx, zoneID, clampLimit(limit, 10, 200))
	if err != nil {
		return nil, err
	}
	views := make([]IrrigationLogView, 0, len(logs))
	for _, log := range logs {
		views = append(views, newLogView(log, zone.Name))
	}
	return views, nil
}

func (s *DashboardService) WaterUsedToday(ctx context.Context, email string) (float64, error) {
	return s.waterUsedSince(ctx, email, startOfDay(time.Now()))
}

func (s *DashboardService) WaterUsedThisWeek(ctx context.Context, email string) (float64, error) {
	return s.waterUsedSince(ctx, email, startOfWeekWindow(time.Now()))
}

func (s *DashboardService) WaterUsedThisMonth(ctx context.Context, email string) (float64, error) {
	return s.waterUsedSince(ctx, email, startOfMonth(time.Now()))
}

func (s *DashboardService) waterUsedSince(ctx context.Context, email string, since time.Time) (float64, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return 0, err
	}
	logs, err := s.repo.LogsByOwnerSince(ctx, user.ID, since)
	if err != nil {
		return 0, err
	}
	return round1(waterVolumeSum(logs)), nil
}

func (s *DashboardService) ActiveAlerts(ctx context.Context, email string) ([]AlertView, error) {
	return s.alertsWithStatus(ctx, email, domain.AlertActive)
}

func (s *DashboardService) alertsWithStatus(ctx context.Context, email string, status domain.AlertStatus) ([]AlertView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	alerts, err := s.repo.AlertsByOwnerAndStatus(ctx, user.ID, status)
	if err != nil {
		return nil, err
	}
	return s.alertViews(ctx, user.ID, alerts)
}

func (s *DashboardService) alertViews(ctx context.Context, userID uint, alerts []domain.Alert) ([]AlertView, error) {
	names, err := s.zoneNamesByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]AlertView, 0, len(alerts))
	for _, alert := range alerts {
		views = append(views, newAlertView(alert, zoneNameFor(names, alert.ZoneID)))
	}
	return views, nil
}

func (s *DashboardService) ResolvedAlertsToday(ctx context.Context, email string) ([]AlertView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	alerts, err := s.resolvedAlertsToday(ctx, user.ID, time.Now())
	if err != nil {
		return nil, err
	}
	return s.alertViews(ctx, user.ID, alerts)
}

// RecentAlerts is a single global ownership-scoped time-ordered query; see
// RecentLogs.
func (s *DashboardService) RecentAlerts(ctx context.Context, email string, limit int) ([]AlertView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	alerts, err := s.repo.RecentAlertsByOwner(ctx, user.ID, clampLimit(limit, 10, 200))
	if err != nil {
		return nil, err
	}
	return s.alertViews(ctx, user.ID, alerts)
}

func (s *DashboardService) AlertsByGarden(ctx context.Context, email string, gardenID uint) ([]AlertView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireGarden(ctx, user.ID, gardenID); err != nil {
		return nil, err
	}
	alerts, err := s.repo.RecentAlertsByGarden(ctx, gardenID, recentPerGarden)
	if err != nil {
		return nil, err
	}
	return s.alertViews(ctx, user.ID, alerts)
}

func (s *DashboardService) AlertCountByType(ctx context.Context, email string) (map[string]int, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	alerts, err := s.repo.AlertsByOwnerAndStatus(ctx, user.ID, domain.AlertActive)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, alert := range alerts {
		if alert.Type == "" {
			continue
		}
		counts[string(alert.Type)]++
	}
	return counts, nil
}

// ResolveAlert is the only mutating operation in the core. Resolving an
// already-RESOLVED alert is accepted and converges to RESOLVED.
func (s *DashboardService) ResolveAlert(ctx context.Context, email string, alertID uint) (AlertView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return AlertView{}, err
	}
	alert, err := s.requireAlert(ctx, user.ID, alertID)
	if err != nil {
		return AlertView{}, err
	}
	updated, err := s.repo.UpdateAlertStatus(ctx, alert.ID, domain.AlertResolved)
	if err != nil {
		return AlertView{}, err
	}
	_ = s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUserID: &user.ID,
		Action:      "alert.resolve",
		TargetType:  "alert",
		TargetID:    &updated.ID,
	})
	names, err := s.zoneNamesByOwner(ctx, user.ID)
	if err != nil {
		return AlertView{}, err
	}
	return newAlertView(updated, zoneNameFor(names, updated.ZoneID)), nil
}

func (s *DashboardService) ListTanks(ctx context.Context, email string) ([]WaterTankView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	tanks, err := s.repo.TanksByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return tankViews(tanks), nil
}

func (s *DashboardService) TanksByGarden(ctx context.Context, email string, gardenID uint) ([]WaterTankView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireGarden(ctx, user.ID, gardenID); err != nil {
		return nil, err
	}
	tanks, err := s.repo.TanksByGarden(ctx, gardenID)
	if err != nil {
		return nil, err
	}
	return tankViews(tanks), nil
}

// LowTanks surfaces tanks that need refilling, worst first.
func (s *DashboardService) LowTanks(ctx context.Context, email string) ([]WaterTankView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	tanks, err := s.repo.TanksByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	views := make([]WaterTankView, 0)
	for _, status := range []domain.TankStatus{domain.TankEmpty, domain.TankCritical, domain.TankLow} {
		for _, tank := range tanks {
			if tank.Status == status {
				views = append(views, newTankView(tank))
			}
		}
	}
	return views, nil
}

func tankViews(tanks []domain.WaterTank) []WaterTankView {
	views := make([]WaterTankView, 0, len(tanks))
	for _, tank := range tanks {
		views = append(views, newTankView(tank))
	}
	return views
}

func (s *DashboardService) ListValves(ctx context.Context, email string) ([]ValveView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	valves, err := s.repo.ValvesByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.valveViews(ctx, user.ID, valves)
}

func (s *DashboardService) ValvesByZone(ctx context.Context, email string, zoneID uint) ([]ValveView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	zone, err := s.requireZone(ctx, user.ID, zoneID)
	if err != nil {
		return nil, err
	}
	valves, err := s.repo.ValvesByZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	views := make([]ValveView, 0, len(valves))
	for _, valve := range valves {
		views = append(views, newValveView(valve, zone.Name))
	}
	return views, nil
}

func (s *DashboardService) OpenValves(ctx context.Context, email string) ([]ValveView, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	valves, err := s.repo.ValvesByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	open := make([]domain.Valve, 0, len(valves))
	for _, valve := range valves {
		if valve.Status == domain.ValveOpen {
			open = append(open, valve)
		}
	}
	return s.valveViews(ctx, user.ID, open)
}

func (s *DashboardService) valveViews(ctx context.Context, userID uint, valves []domain.Valve) ([]ValveView, error) {
	names, err := s.zoneNamesByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]ValveView, 0, len(valves))
	for _, valve := range valves {
		views = append(views, newValveView(valve, names[valve.ZoneID]))
	}
	return views, nil
}

// ListAuditLogs returns only entries the caller produced. The table is shared
// across tenants, so an unscoped read would leak other users' activity.
func (s *DashboardService) ListAuditLogs(ctx context.Context, email string, limit int) ([]domain.AuditLog, error) {
	user, err := s.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.repo.AuditLogsByActor(ctx, user.ID, clampLimit(limit, 200, 2000))
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
