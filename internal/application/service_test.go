package application

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sqliteadapter "github.com/floraxhq/florax/internal/adapters/db/sqlite"
	"github.com/floraxhq/florax/internal/domain"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, *DashboardService) {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "florax_test.db")

	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db, NewDashboardService(sqliteadapter.NewDashboardRepository(db))
}

func seedUser(t *testing.T, db *gorm.DB, email string) sqliteadapter.UserModel {
	t.Helper()
	user := sqliteadapter.UserModel{Name: "Test User", Email: email, PasswordHash: "x", Role: "USER"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func mustCreate(t *testing.T, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}

func TestGetDashboardAggregates(t *testing.T) {
	ctx := context.Background()
	db, service := newTestService(t)

	user := seedUser(t, db, "owner@example.com")
	garden := sqliteadapter.GardenModel{OwnerID: user.ID, Name: "Garden", Location: "roof"}
	mustCreate(t, db, &garden)

	zoneA := sqliteadapter.ZoneModel{GardenID: garden.ID, Name: "Zone A", MoistureMin: fp(20), MoistureMax: fp(60)}
	zoneB := sqliteadapter.ZoneModel{GardenID: garden.ID, Name: "Zone B", MoistureMin: fp(20), MoistureMax: fp(60)}
	mustCreate(t, db, &zoneA)
	mustCreate(t, db, &zoneB)

	sensorA := sqliteadapter.SensorModel{ZoneID: zoneA.ID, Type: "MOISTURE", SerialNumber: "SN-1", Status: "ACTIVE"}
	sensorB := sqliteadapter.SensorModel{ZoneID: zoneB.ID, Type: "MOISTURE", SerialNumber: "SN-2", Status: "ACTIVE"}
	mustCreate(t, db, &sensorA)
	mustCreate(t, db, &sensorB)

	recorded := time.Now().Add(-10 * time.Minute)
	mustCreate(t, db, &sqliteadapter.SensorReadingModel{SensorID: sensorA.ID, Value: 40, RecordedAt: recorded})
	mustCreate(t, db, &sqliteadapter.SensorReadingModel{SensorID: sensorB.ID, Value: 50, RecordedAt: recorded})

	valve := sqliteadapter.ValveModel{ZoneID: zoneA.ID, Status: "CLOSED", PowerSource: "ELECTRIC"}
	mustCreate(t, db, &valve)

	// Three logs today; one without a measured volume still counts.
	now := time.Now()
	mustCreate(t, db, &sqliteadapter.IrrigationLogModel{ValveID: valve.ID, ZoneID: zoneA.ID, StartTime: &now, WaterVolumeUsed: fp(10.0), TriggerType: "SCHEDULED"})
	mustCreate(t, db, &sqliteadapter.IrrigationLogModel{ValveID: valve.ID, ZoneID: zoneA.ID, StartTime: &now, WaterVolumeUsed: fp(15.5), TriggerType: "MANUAL"})
	mustCreate(t, db, &sqliteadapter.IrrigationLogModel{ValveID: valve.ID, ZoneID: zoneB.ID, StartTime: &now, TriggerType: "AUTO"})

	created := now.Add(-time.Hour)
	mustCreate(t, db, &sqliteadapter.AlertModel{GardenID: garden.ID, ZoneID: &zoneA.ID, Type: "DRY_SOIL", Message: "dry", Status: "ACTIVE", CreatedAt: &created})
	mustCreate(t, db, &sqliteadapter.AlertModel{GardenID: garden.ID, Type: "LOW_WATER", Message: "old", Status: "RESOLVED", CreatedAt: &created})

	view, err := service.GetDashboard(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("get dashboard: %v", err)
	}

	if view.TotalGardens != 1 || view.TotalZones != 2 {
		t.Fatalf("unexpected totals: %+v", view)
	}
	if view.ActiveAlerts != 1 {
		t.Fatalf("got %d active alerts, want 1", view.ActiveAlerts)
	}
	if view.TotalIrrigationsToday != 3 {
		t.Fatalf("got %d irrigations today, want 3", view.TotalIrrigationsToday)
	}
	if view.TotalWaterUsedToday != 25.5 {
		t.Fatalf("got %v water used, want 25.5", view.TotalWaterUsedToday)
	}
	if view.AvgMoistureLevel != 45.0 {
		t.Fatalf("got %v avg moisture, want 45.0", view.AvgMoistureLevel)
	}
	if len(view.Gardens) != 1 {
		t.Fatalf("expected one garden view")
	}
	gv := view.Gardens[0]
	if len(gv.Zones) != 2 {
		t.Fatalf("expected two zone views, got %d", len(gv.Zones))
	}
	if gv.Zones[0].IrrigationStatus != ZoneStatusActive {
		t.Fatalf("got status %s, want ACTIVE", gv.Zones[0].IrrigationStatus)
	}
	if gv.Zones[0].LastIrrigated == "Never" {
		t.Fatalf("expected a last-irrigated label for an irrigated zone")
	}
	for _, alert := range gv.Alerts {
		if alert.Message == "dry" && alert.ZoneName != "Zone A" {
			t.Fatalf("alert not labelled with its zone: %+v", alert)
		}
	}
}

func TestOwnershipChainDistinguishesMissingFromForeign(t *testing.T) {
	ctx := context.Background()
	db, service := newTestService(t)

	alice := seedUser(t, db, "alice@example.com")
	seedUser(t, db, "bob@example.com")
	garden := sqliteadapter.GardenModel{OwnerID: alice.ID, Name: "Alice Garden"}
	mustCreate(t, db, &garden)
	zone := sqliteadapter.ZoneModel{GardenID: garden.ID, Name: "Alice Zone"}
	mustCreate(t, db, &zone)

	if _, err := service.GetGarden(ctx, "bob@example.com", garden.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign garden: got %v, want forbidden", err)
	}
	if _, err := service.GetGarden(ctx, "alice@example.com", 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing garden: got %v, want not found", err)
	}
	if _, err := service.GetZone(ctx, "bob@example.com", zone.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign zone: got %v, want forbidden", err)
	}
	if _, err := service.GetZone(ctx, "alice@example.com", 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing zone: got %v, want not found", err)
	}
	if _, err := service.GetGarden(ctx, "ghost@example.com", garden.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown principal: got %v, want not found", err)
	}
}

func TestWaterUsageWindows(t *testing.T) {
	ctx := context.Background()
	db, service := newTestService(t)

	user := seedUser(t, db, "owner@example.com")
	garden := sqliteadapter.GardenModel{OwnerID: user.ID, Name: "Garden"}
	mustCreate(t, db, &garden)
	zone := sqliteadapter.ZoneModel{GardenID: garden.ID, Name: "Zone"}
	mustCreate(t, db, &zone)
	valve := sqliteadapter.ValveModel{ZoneID: zone.ID, Status: "CLOSED", PowerSource: "ELECTRIC"}
	mustCreate(t, db, &valve)

	now := time.Now()
	threeDaysAgo := now.AddDate(0, 0, -3)
	mustCreate(t, db, &sqliteadapter.IrrigationLogModel{ValveID: valve.ID, ZoneID: zone.ID, StartTime: &now, WaterVolumeUsed: fp(10.0), TriggerType: "SCHEDULED"})
	mustCreate(t, db, &sqliteadapter.IrrigationLogModel{ValveID: valve.ID, ZoneID: zone.ID, StartTime: &threeDaysAgo, WaterVolumeUsed: fp(5.0), TriggerType: "SCHEDULED"})

	today, err := service.WaterUsedToday(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if today != 10.0 {
		t.Fatalf("got %v today, want 10.0", today)
	}

	week, err := service.WaterUsedThisWeek(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if week != 15.0 {
		t.Fatalf("got %v this week, want 15.0", week)
	}

	month, err := service.WaterUsedThisMonth(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if month < 10.0 {
		t.Fatalf("got %v this month, want at least today's usage", month)
	}
}

func TestRecentLogsMergeAcrossGardens(t *testing.T) {
	ctx := context.Background()
	db, service := newTestService(t)

	user := seedUser(t, db, "owner@example.com")
	gardenA := sqliteadapter.GardenModel{OwnerID: user.ID, Name: "Garden A"}
	gardenB := sqliteadapter.GardenModel{OwnerID: user.ID, Name: "Garden B"}
	mustCreate(t, db, &gardenA)
	mustCreate(t, db, &gardenB)
	zoneA := sqliteadapter.ZoneModel{GardenID: gardenA.ID, Name: "Zone A"}
	zoneB := sqliteadapter.ZoneModel{GardenID: gardenB.ID, Name: "Zone B"}
	mustCreate(t, db, &zoneA)
	mustCreate(t, db, &zoneB)
	valveA := sqliteadapter.ValveModel{ZoneID: zoneA.ID, Status: "CLOSED", PowerSource: "ELECTRIC"}
	valveB := sqliteadapter.ValveModel{ZoneID: zoneB.ID, Status: "CLOSED", PowerSource: "ELECTRIC"}
	mustCreate(t, db, &valveA)
	mustCreate(t, db, &valveB)

	base := time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)
	t1 := base
	t2 := base.Add(time.Hour)
	t3 := base.Add(2 * time.Hour)
	mustCreate(t, db, &sqliteadapter.IrrigationLogModel{ValveID: valveA.ID, ZoneID: zoneA.ID, StartTime: &t1, TriggerType: "SCHEDULED"})
	mustCreate(t, db, &sqliteadapter.IrrigationLogModel{ValveID: valveB.ID, ZoneID: zoneB.ID, StartTime: &t2, TriggerType: "SCHEDULED"})
	mustCreate(t, db, &sqliteadapter.IrrigationLogModel{ValveID: valveA.ID, ZoneID: zoneA.ID, StartTime: &t3, TriggerType: "SCHEDULED"})

	views, err := service.RecentLogs(ctx, "owner@example.com", 2)
	if err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d logs, want 2", len(views))
	}
	if views[0].ZoneName != "Zone A" || views[1].ZoneName != "Zone B" {
		t.Fatalf("expected newest-first merge across gardens, got %+v", views)
	}
}

func TestResolveAlertConvergesAndAudits(t *testing.T) {
	ctx := context.Background()
	db, service := newTestService(t)

	user := seedUser(t, db, "owner@example.com")
	seedUser(t, db, "other@example.com")
	garden := sqliteadapter.GardenModel{OwnerID: user.ID, Name: "Garden"}
	mustCreate(t, db, &garden)
	created := time.Now().Add(-time.Hour)
	alert := sqliteadapter.AlertModel{GardenID: garden.ID, Type: "LOW_WATER", Message: "tank low", Status: "ACTIVE", CreatedAt: &created}
	mustCreate(t, db, &alert)

	view, err := service.ResolveAlert(ctx, "owner@example.com", alert.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.Status != string(domain.AlertResolved) {
		t.Fatalf("got status %s, want RESOLVED", view.Status)
	}

	// Resolving again is accepted and converges.
	again, err := service.ResolveAlert(ctx, "owner@example.com", alert.ID)
	if err != nil {
		t.Fatalf("resolve twice: %v", err)
	}
	if again.Status != string(domain.AlertResolved) {
		t.Fatalf("got status %s after second resolve", again.Status)
	}

	if _, err := service.ResolveAlert(ctx, "other@example.com", alert.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign resolve: got %v, want forbidden", err)
	}

	logs, err := service.ListAuditLogs(ctx, "owner@example.com", 10)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	found := false
	for _, log := range logs {
		if log.Action == "alert.resolve" && log.TargetID != nil && *log.TargetID == alert.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an audit entry for the resolve")
	}
}

func TestAuditLogsAreScopedToCaller(t *testing.T) {
	ctx := context.Background()
	db, service := newTestService(t)

	alice := seedUser(t, db, "alice@example.com")
	seedUser(t, db, "mallory@example.com")
	garden := sqliteadapter.GardenModel{OwnerID: alice.ID, Name: "Alice Garden"}
	mustCreate(t, db, &garden)
	created := time.Now().Add(-time.Hour)
	alert := sqliteadapter.AlertModel{GardenID: garden.ID, Type: "DRY_SOIL", Message: "dry", Status: "ACTIVE", CreatedAt: &created}
	mustCreate(t, db, &alert)

	if _, err := service.ResolveAlert(ctx, "alice@example.com", alert.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	aliceLogs, err := service.ListAuditLogs(ctx, "alice@example.com", 10)
	if err != nil {
		t.Fatalf("alice audit logs: %v", err)
	}
	if len(aliceLogs) == 0 {
		t.Fatalf("expected alice to see her own audit entries")
	}

	malloryLogs, err := service.ListAuditLogs(ctx, "mallory@example.com", 10)
	if err != nil {
		t.Fatalf("mallory audit logs: %v", err)
	}
	for _, log := range malloryLogs {
		if log.ActorUserID != nil && *log.ActorUserID == alice.ID {
			t.Fatalf("another user's audit entry leaked: %+v", log)
		}
	}
}

func TestStatusFilteredCollections(t *testing.T) {
	ctx := context.Background()
	db, service := newTestService(t)

	user := seedUser(t, db, "owner@example.com")
	garden := sqliteadapter.GardenModel{OwnerID: user.ID, Name: "Garden"}
	mustCreate(t, db, &garden)
	zone := sqliteadapter.ZoneModel{GardenID: garden.ID, Name: "Zone", MoistureMin: fp(20), MoistureMax: fp(60)}
	mustCreate(t, db, &zone)

	sensorOK := sqliteadapter.SensorModel{ZoneID: zone.ID, Type: "MOISTURE", SerialNumber: "SN-1", Status: "ACTIVE"}
	sensorBad := sqliteadapter.SensorModel{ZoneID: zone.ID, Type: "MOISTURE", SerialNumber: "SN-2", Status: "FAULTY"}
	sensorOff := sqliteadapter.SensorModel{ZoneID: zone.ID, Type: "MOISTURE", SerialNumber: "SN-3", Status: "INACTIVE"}
	mustCreate(t, db, &sensorOK)
	mustCreate(t, db, &sensorBad)
	mustCreate(t, db, &sensorOff)

	mustCreate(t, db, &sqliteadapter.SensorReadingModel{SensorID: sensorOK.ID, Value: 10, RecordedAt: time.Now()})

	mustCreate(t, db, &sqliteadapter.ValveModel{ZoneID: zone.ID, Status: "OPEN", PowerSource: "ELECTRIC"})
	mustCreate(t, db, &sqliteadapter.ValveModel{ZoneID: zone.ID, Status: "CLOSED", PowerSource: "SOLAR"})

	mustCreate(t, db, &sqliteadapter.WaterTankModel{GardenID: garden.ID, Status: "NORMAL"})
	mustCreate(t, db, &sqliteadapter.WaterTankModel{GardenID: garden.ID, Status: "LOW"})
	mustCreate(t, db, &sqliteadapter.WaterTankModel{GardenID: garden.ID, Status: "EMPTY"})

	faulty, err := service.FaultySensors(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("faulty sensors: %v", err)
	}
	if len(faulty) != 2 || faulty[0].Status != "FAULTY" || faulty[1].Status != "INACTIVE" {
		t.Fatalf("expected faulty then inactive, got %+v", faulty)
	}

	open, err := service.OpenValves(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("open valves: %v", err)
	}
	if len(open) != 1 || open[0].ValveStatus != "OPEN" {
		t.Fatalf("expected one open valve, got %+v", open)
	}

	low, err := service.LowTanks(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("low tanks: %v", err)
	}
	if len(low) != 2 || low[0].Status != "EMPTY" || low[1].Status != "LOW" {
		t.Fatalf("expected worst-first low tanks, got %+v", low)
	}

	// Reading of 10 is below min, so the zone shows up in the alert list.
	alertZones, err := service.AlertZones(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("alert zones: %v", err)
	}
	if len(alertZones) != 1 || alertZones[0].ZoneName != "Zone" {
		t.Fatalf("expected the dry zone in alert list, got %+v", alertZones)
	}
	activeZones, err := service.ActiveZones(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("active zones: %v", err)
	}
	if len(activeZones) != 0 {
		t.Fatalf("expected no active zones, got %+v", activeZones)
	}
}
