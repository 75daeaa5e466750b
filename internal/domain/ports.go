package domain

import (
	"context"
	"time"
)

// DashboardRepository is the storage port the aggregation engine depends on.
// Every method is a plain finder or single-row write; consistency between
// calls is whatever the backing store provides (read-committed, per-row).
// Single-row getters return ErrNotFound for an absent row; any other storage
// failure passes through unchanged.
type DashboardRepository interface {
	CreateUser(ctx context.Context, value User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uint) (User, error)
	UpdateUserPassword(ctx context.Context, userID uint, passwordHash string) error

	CreateSession(ctx context.Context, value AuthSession) (AuthSession, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (AuthSession, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	CreateAPIToken(ctx context.Context, value APIToken) (APIToken, error)
	GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (APIToken, error)
	DeleteAPITokenByTokenHash(ctx context.Context, tokenHash string) error

	CreatePasswordResetToken(ctx context.Context, value PasswordResetToken) (PasswordResetToken, error)
	GetPasswordResetTokenByHash(ctx context.Context, tokenHash string) (PasswordResetToken, error)
	DeletePasswordResetToken(ctx context.Context, id uint) error
	DeleteExpiredPasswordResetTokens(ctx context.Context, now time.Time) error

	GardensByOwner(ctx context.Context, ownerID uint) ([]Garden, error)
	GetGardenByID(ctx context.Context, gardenID uint) (Garden, error)
	ZonesByGarden(ctx context.Context, gardenID uint) ([]Zone, error)
	GetZoneByID(ctx context.Context, zoneID uint) (Zone, error)
	SensorsByZone(ctx context.Context, zoneID uint) ([]Sensor, error)
	SensorsByOwner(ctx context.Context, ownerID uint) ([]Sensor, error)
	ValvesByZone(ctx context.Context, zoneID uint) ([]Valve, error)
	ValvesByOwner(ctx context.Context, ownerID uint) ([]Valve, error)
	TanksByGarden(ctx context.Context, gardenID uint) ([]WaterTank, error)
	TanksByOwner(ctx context.Context, ownerID uint) ([]WaterTank, error)

	// LatestReadingByZone returns nil when the zone has never reported.
	LatestReadingByZone(ctx context.Context, zoneID uint) (*SensorReading, error)

	RecentLogsByGarden(ctx context.Context, gardenID uint, limit int) ([]IrrigationLog, error)
	RecentLogsByOwner(ctx context.Context, ownerID uint, limit int) ([]IrrigationLog, error)
	LogsByGardenSince(ctx context.Context, gardenID uint, since time.Time) ([]IrrigationLog, error)
	LogsByOwnerSince(ctx context.Context, ownerID uint, since time.Time) ([]IrrigationLog, error)
	RecentLogsByZone(ctx context.Context, zoneID uint, limit int) ([]IrrigationLog, error)

	GetAlertByID(ctx context.Context, alertID uint) (Alert, error)
	RecentAlertsByGarden(ctx context.Context, gardenID uint, limit int) ([]Alert, error)
	RecentAlertsByOwner(ctx context.Context, ownerID uint, limit int) ([]Alert, error)
	AlertsByOwnerAndStatus(ctx context.Context, ownerID uint, status AlertStatus) ([]Alert, error)
	UpdateAlertStatus(ctx context.Context, alertID uint, status AlertStatus) (Alert, error)

	CreateAuditLog(ctx context.Context, value AuditLog) error
	// AuditLogsByActor returns only rows the given user produced; the audit
	// table is shared across tenants and must never be read unscoped.
	AuditLogsByActor(ctx context.Context, actorUserID uint, limit int) ([]AuditLog, error)
}
