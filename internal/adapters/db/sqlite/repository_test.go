package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/floraxhq/florax/internal/domain"
	"gorm.io/gorm"
)

func openTestRepo(t *testing.T) (*gorm.DB, *DashboardRepository) {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "florax_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db, NewDashboardRepository(db)
}

func seedGarden(t *testing.T, db *gorm.DB, ownerID uint, name string) GardenModel {
	t.Helper()
	garden := GardenModel{OwnerID: ownerID, Name: name, Location: "backyard"}
	if err := db.Create(&garden).Error; err != nil {
		t.Fatalf("seed garden: %v", err)
	}
	return garden
}

func seedZone(t *testing.T, db *gorm.DB, gardenID uint, name string) ZoneModel {
	t.Helper()
	zone := ZoneModel{GardenID: gardenID, Name: name, PlantType: "tomato"}
	if err := db.Create(&zone).Error; err != nil {
		t.Fatalf("seed zone: %v", err)
	}
	return zone
}

func TestOwnerScopedFindersIsolateUsers(t *testing.T) {
	ctx := context.Background()
	db, repo := openTestRepo(t)

	alice, err := repo.CreateUser(ctx, domain.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	bob, err := repo.CreateUser(ctx, domain.User{Name: "Bob", Email: "bob@example.com", PasswordHash: "x", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	aliceGarden := seedGarden(t, db, alice.ID, "Alice Garden")
	bobGarden := seedGarden(t, db, bob.ID, "Bob Garden")
	aliceZone := seedZone(t, db, aliceGarden.ID, "Alice Zone")
	bobZone := seedZone(t, db, bobGarden.ID, "Bob Zone")

	for _, m := range []any{
		&SensorModel{ZoneID: aliceZone.ID, Type: "MOISTURE", SerialNumber: "SN-A1", Status: "ACTIVE"},
		&SensorModel{ZoneID: bobZone.ID, Type: "MOISTURE", SerialNumber: "SN-B1", Status: "ACTIVE"},
		&ValveModel{ZoneID: aliceZone.ID, Status: "OPEN", PowerSource: "ELECTRIC"},
		&ValveModel{ZoneID: bobZone.ID, Status: "CLOSED", PowerSource: "SOLAR"},
		&WaterTankModel{GardenID: aliceGarden.ID, Status: "NORMAL"},
		&WaterTankModel{GardenID: bobGarden.ID, Status: "LOW"},
	} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	sensors, err := repo.SensorsByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("sensors by owner: %v", err)
	}
	if len(sensors) != 1 || sensors[0].SerialNumber != "SN-A1" {
		t.Fatalf("expected only alice's sensor, got %+v", sensors)
	}

	valves, err := repo.ValvesByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("valves by owner: %v", err)
	}
	if len(valves) != 1 || valves[0].ZoneID != aliceZone.ID {
		t.Fatalf("expected only alice's valve, got %+v", valves)
	}

	tanks, err := repo.TanksByOwner(ctx, bob.ID)
	if err != nil {
		t.Fatalf("tanks by owner: %v", err)
	}
	if len(tanks) != 1 || tanks[0].GardenID != bobGarden.ID {
		t.Fatalf("expected only bob's tank, got %+v", tanks)
	}

	gardens, err := repo.GardensByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("gardens by owner: %v", err)
	}
	if len(gardens) != 1 || gardens[0].ID != aliceGarden.ID {
		t.Fatalf("expected only alice's garden, got %+v", gardens)
	}
}

func TestRecentLogsOrderPutsMissingStartTimesLast(t *testing.T) {
	ctx := context.Background()
	db, repo := openTestRepo(t)

	owner, err := repo.CreateUser(ctx, domain.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	garden := seedGarden(t, db, owner.ID, "Garden")
	zone := seedZone(t, db, garden.ID, "Zone")
	valve := ValveModel{ZoneID: zone.ID, Status: "CLOSED", PowerSource: "ELECTRIC"}
	if err := db.Create(&valve).Error; err != nil {
		t.Fatalf("seed valve: %v", err)
	}

	early := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 2, 6, 0, 0, 0, time.UTC)
	logs := []IrrigationLogModel{
		{ValveID: valve.ID, ZoneID: zone.ID, StartTime: &early, TriggerType: "SCHEDULED"},
		{ValveID: valve.ID, ZoneID: zone.ID, StartTime: &late, TriggerType: "MANUAL"},
		{ValveID: valve.ID, ZoneID: zone.ID, StartTime: nil, TriggerType: "AUTO"},
		{ValveID: valve.ID, ZoneID: zone.ID, StartTime: &late, TriggerType: "AUTO"},
	}
	for i := range logs {
		if err := db.Create(&logs[i]).Error; err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}

	got, err := repo.RecentLogsByOwner(ctx, owner.ID, 10)
	if err != nil {
		t.Fatalf("recent logs: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 logs, got %d", len(got))
	}
	// Equal start times break by newest id first.
	if got[0].ID != logs[3].ID || got[1].ID != logs[1].ID {
		t.Fatalf("expected newest starts first, got %+v", got)
	}
	if got[2].ID != logs[0].ID {
		t.Fatalf("expected early start third, got %+v", got[2])
	}
	if got[3].StartTime != nil {
		t.Fatalf("expected missing start time last, got %+v", got[3])
	}

	limited, err := repo.RecentLogsByOwner(ctx, owner.ID, 2)
	if err != nil {
		t.Fatalf("recent logs limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d rows", len(limited))
	}
}

func TestLogsSinceExcludesOlderAndUnstartedRows(t *testing.T) {
	ctx := context.Background()
	db, repo := openTestRepo(t)

	owner, err := repo.CreateUser(ctx, domain.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	garden := seedGarden(t, db, owner.ID, "Garden")
	zone := seedZone(t, db, garden.ID, "Zone")
	valve := ValveModel{ZoneID: zone.ID, Status: "CLOSED", PowerSource: "ELECTRIC"}
	if err := db.Create(&valve).Error; err != nil {
		t.Fatalf("seed valve: %v", err)
	}

	before := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	after := time.Date(2026, 8, 10, 6, 0, 0, 0, time.UTC)
	volume := 12.5
	for _, log := range []IrrigationLogModel{
		{ValveID: valve.ID, ZoneID: zone.ID, StartTime: &before, TriggerType: "SCHEDULED"},
		{ValveID: valve.ID, ZoneID: zone.ID, StartTime: &after, WaterVolumeUsed: &volume, TriggerType: "MANUAL"},
		{ValveID: valve.ID, ZoneID: zone.ID, StartTime: nil, TriggerType: "AUTO"},
	} {
		if err := db.Create(&log).Error; err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}

	since := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	got, err := repo.LogsByOwnerSince(ctx, owner.ID, since)
	if err != nil {
		t.Fatalf("logs since: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one row in window, got %d", len(got))
	}
	if got[0].WaterVolumeUsed == nil || *got[0].WaterVolumeUsed != volume {
		t.Fatalf("unexpected row in window: %+v", got[0])
	}
}

func TestLatestReadingByZone(t *testing.T) {
	ctx := context.Background()
	db, repo := openTestRepo(t)

	owner, err := repo.CreateUser(ctx, domain.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	garden := seedGarden(t, db, owner.ID, "Garden")
	zone := seedZone(t, db, garden.ID, "Zone")

	reading, err := repo.LatestReadingByZone(ctx, zone.ID)
	if err != nil {
		t.Fatalf("latest reading: %v", err)
	}
	if reading != nil {
		t.Fatalf("expected nil for a silent zone, got %+v", reading)
	}

	sensorA := SensorModel{ZoneID: zone.ID, Type: "MOISTURE", SerialNumber: "SN-1", Status: "ACTIVE"}
	sensorB := SensorModel{ZoneID: zone.ID, Type: "MOISTURE", SerialNumber: "SN-2", Status: "ACTIVE"}
	if err := db.Create(&sensorA).Error; err != nil {
		t.Fatalf("seed sensor: %v", err)
	}
	if err := db.Create(&sensorB).Error; err != nil {
		t.Fatalf("seed sensor: %v", err)
	}

	older := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for _, row := range []SensorReadingModel{
		{SensorID: sensorA.ID, Value: 31.0, RecordedAt: older},
		{SensorID: sensorB.ID, Value: 44.0, RecordedAt: newer},
	} {
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed reading: %v", err)
		}
	}

	reading, err = repo.LatestReadingByZone(ctx, zone.ID)
	if err != nil {
		t.Fatalf("latest reading: %v", err)
	}
	if reading == nil || reading.Value != 44.0 {
		t.Fatalf("expected newest reading across the zone's sensors, got %+v", reading)
	}
}

func TestExpiredResetTokensAreSwept(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestRepo(t)

	user, err := repo.CreateUser(ctx, domain.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Now()
	expired, err := repo.CreatePasswordResetToken(ctx, domain.PasswordResetToken{UserID: user.ID, TokenHash: "stale", ExpiresAt: now.Add(-time.Minute)})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	live, err := repo.CreatePasswordResetToken(ctx, domain.PasswordResetToken{UserID: user.ID, TokenHash: "fresh", ExpiresAt: now.Add(30 * time.Minute)})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	if err := repo.DeleteExpiredPasswordResetTokens(ctx, now); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, err := repo.GetPasswordResetTokenByHash(ctx, expired.TokenHash); err == nil {
		t.Fatalf("expected expired token to be gone")
	}
	got, err := repo.GetPasswordResetTokenByHash(ctx, live.TokenHash)
	if err != nil {
		t.Fatalf("get live token: %v", err)
	}
	if got.ID != live.ID {
		t.Fatalf("unexpected token: %+v", got)
	}
}

func TestMissingRowsReturnNotFoundSentinel(t *testing.T) {
	ctx := context.Background()
	_, repo := openTestRepo(t)

	if _, err := repo.GetGardenByID(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing garden: got %v, want ErrNotFound", err)
	}
	if _, err := repo.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}
	if _, err := repo.GetAlertByID(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing alert: got %v, want ErrNotFound", err)
	}
}

func TestStorageFailureIsNotReportedAsMissingRow(t *testing.T) {
	ctx := context.Background()
	db, repo := openTestRepo(t)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	_, err = repo.GetGardenByID(ctx, 1)
	if err == nil {
		t.Fatalf("expected an error from a closed database")
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("storage failure surfaced as a missing row: %v", err)
	}
}

func TestUpdateAlertStatusReturnsFreshRow(t *testing.T) {
	ctx := context.Background()
	db, repo := openTestRepo(t)

	owner, err := repo.CreateUser(ctx, domain.User{Name: "Owner", Email: "owner@example.com", PasswordHash: "x", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	garden := seedGarden(t, db, owner.ID, "Garden")
	created := time.Date(2026, 8, 1, 7, 0, 0, 0, time.UTC)
	alert := AlertModel{GardenID: garden.ID, Type: "LOW_WATER", Message: "tank low", Status: "ACTIVE", CreatedAt: &created}
	if err := db.Create(&alert).Error; err != nil {
		t.Fatalf("seed alert: %v", err)
	}

	updated, err := repo.UpdateAlertStatus(ctx, alert.ID, domain.AlertResolved)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != domain.AlertResolved {
		t.Fatalf("expected resolved, got %+v", updated)
	}
	if updated.Type != domain.AlertLowWater || updated.GardenID != garden.ID {
		t.Fatalf("expected full re-read of the row, got %+v", updated)
	}
}
