package sqlite

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/floraxhq/florax/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

type DashboardRepository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// notFoundOr translates a missing row into the domain sentinel and leaves
// every other storage failure intact, so a transient db error never
// masquerades as a 404.
func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func (r *DashboardRepository) CreateUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{
		Name:         value.Name,
		Email:        strings.ToLower(strings.TrimSpace(value.Email)),
		PasswordHash: value.PasswordHash,
		Role:         string(value.Role),
		Phone:        value.Phone,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.User{}, err
	}
	return toUser(m), nil
}

func (r *DashboardRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&m).Error; err != nil {
		return domain.User{}, notFoundOr(err)
	}
	return toUser(m), nil
}

func (r *DashboardRepository) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return domain.User{}, notFoundOr(err)
	}
	return toUser(m), nil
}

func (r *DashboardRepository) UpdateUserPassword(ctx context.Context, userID uint, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", userID).Update("password_hash", passwordHash).Error
}

func (r *DashboardRepository) CreateSession(ctx context.Context, value domain.AuthSession) (domain.AuthSession, error) {
	m := SessionModel{UserID: value.UserID, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.AuthSession{}, err
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *DashboardRepository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.AuthSession, error) {
	var m SessionModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.AuthSession{}, notFoundOr(err)
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *DashboardRepository) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&SessionModel{}).Error
}

func (r *DashboardRepository) CreateAPIToken(ctx context.Context, value domain.APIToken) (domain.APIToken, error) {
	m := APITokenModel{UserID: value.UserID, Name: value.Name, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.APIToken{}, err
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *DashboardRepository) DeleteAPITokenByTokenHash(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&APITokenModel{}).Error
}

func (r *DashboardRepository) GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (domain.APIToken, error) {
	var m APITokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.APIToken{}, notFoundOr(err)
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *DashboardRepository) CreatePasswordResetToken(ctx context.Context, value domain.PasswordResetToken) (domain.PasswordResetToken, error) {
	m := PasswordResetTokenModel{UserID: value.UserID, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.PasswordResetToken{}, err
	}
	return domain.PasswordResetToken{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *DashboardRepository) GetPasswordResetTokenByHash(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	var m PasswordResetTokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.PasswordResetToken{}, notFoundOr(err)
	}
	return domain.PasswordResetToken{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *DashboardRepository) DeletePasswordResetToken(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&PasswordResetTokenModel{}, id).Error
}

func (r *DashboardRepository) DeleteExpiredPasswordResetTokens(ctx context.Context, now time.Time) error {
	return r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&PasswordResetTokenModel{}).Error
}

func (r *DashboardRepository) GardensByOwner(ctx context.Context, ownerID uint) ([]domain.Garden, error) {
	rows := make([]GardenModel, 0)
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Garden, 0, len(rows))
	for _, m := range rows {
		result = append(result, toGarden(m))
	}
	return result, nil
}

func (r *DashboardRepository) GetGardenByID(ctx context.Context, gardenID uint) (domain.Garden, error) {
	var m GardenModel
	if err := r.db.WithContext(ctx).First(&m, gardenID).Error; err != nil {
		return domain.Garden{}, notFoundOr(err)
	}
	return toGarden(m), nil
}

func (r *DashboardRepository) ZonesByGarden(ctx context.Context, gardenID uint) ([]domain.Zone, error) {
	rows := make([]ZoneModel, 0)
	if err := r.db.WithContext(ctx).Where("garden_id = ?", gardenID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Zone, 0, len(rows))
	for _, m := range rows {
		result = append(result, toZone(m))
	}
	return result, nil
}

func (r *DashboardRepository) GetZoneByID(ctx context.Context, zoneID uint) (domain.Zone, error) {
	var m ZoneModel
	if err := r.db.WithContext(ctx).First(&m, zoneID).Error; err != nil {
		return domain.Zone{}, notFoundOr(err)
	}
	return toZone(m), nil
}

func (r *DashboardRepository) SensorsByZone(ctx context.Context, zoneID uint) ([]domain.Sensor, error) {
	rows := make([]SensorModel, 0)
	if err := r.db.WithContext(ctx).Where("zone_id = ?", zoneID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Sensor, 0, len(rows))
	for _, m := range rows {
		result = append(result, toSensor(m))
	}
	return result, nil
}

func (r *DashboardRepository) SensorsByOwner(ctx context.Context, ownerID uint) ([]domain.Sensor, error) {
	rows := make([]SensorModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT s.*
FROM sensors s
JOIN zones z ON z.id = s.zone_id
JOIN gardens g ON g.id = z.garden_id
WHERE g.owner_id = ?
ORDER BY s.id ASC
`, ownerID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.Sensor, 0, len(rows))
	for _, m := range rows {
		result = append(result, toSensor(m))
	}
	return result, nil
}

func (r *DashboardRepository) ValvesByZone(ctx context.Context, zoneID uint) ([]domain.Valve, error) {
	rows := make([]ValveModel, 0)
	if err := r.db.WithContext(ctx).Where("zone_id = ?", zoneID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.Valve, 0, len(rows))
	for _, m := range rows {
		result = append(result, toValve(m))
	}
	return result, nil
}

func (r *DashboardRepository) ValvesByOwner(ctx context.Context, ownerID uint) ([]domain.Valve, error) {
	rows := make([]ValveModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT v.*
FROM valves v
JOIN zones z ON z.id = v.zone_id
JOIN gardens g ON g.id = z.garden_id
WHERE g.owner_id = ?
ORDER BY v.id ASC
`, ownerID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.Valve, 0, len(rows))
	for _, m := range rows {
		result = append(result, toValve(m))
	}
	return result, nil
}

func (r *DashboardRepository) TanksByGarden(ctx context.Context, gardenID uint) ([]domain.WaterTank, error) {
	rows := make([]WaterTankModel, 0)
	if err := r.db.WithContext(ctx).Where("garden_id = ?", gardenID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.WaterTank, 0, len(rows))
	for _, m := range rows {
		result = append(result, toTank(m))
	}
	return result, nil
}

func (r *DashboardRepository) TanksByOwner(ctx context.Context, ownerID uint) ([]domain.WaterTank, error) {
	rows := make([]WaterTankModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT t.*
FROM water_tanks t
JOIN gardens g ON g.id = t.garden_id
WHERE g.owner_id = ?
ORDER BY t.id ASC
`, ownerID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make([]domain.WaterTank, 0, len(rows))
	for _, m := range rows {
		result = append(result, toTank(m))
	}
	return result, nil
}

func (r *DashboardRepository) LatestReadingByZone(ctx context.Context, zoneID uint) (*domain.SensorReading, error) {
	rows := make([]SensorReadingModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT sr.*
FROM sensor_readings sr
JOIN sensors s ON s.id = sr.sensor_id
WHERE s.zone_id = ?
ORDER BY sr.recorded_at DESC, sr.id DESC
LIMIT 1
`, zoneID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	m := rows[0]
	return &domain.SensorReading{ID: m.ID, SensorID: m.SensorID, Value: m.Value, RecordedAt: m.RecordedAt}, nil
}

func (r *DashboardRepository) RecentLogsByGarden(ctx context.Context, gardenID uint, limit int) ([]domain.IrrigationLog, error) {
	rows := make([]IrrigationLogModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT l.*
FROM irrigation_logs l
JOIN zones z ON z.id = l.zone_id
WHERE z.garden_id = ?
ORDER BY l.start_time DESC, l.id DESC
LIMIT ?
`, gardenID, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toLogs(rows), nil
}

func (r *DashboardRepository) RecentLogsByOwner(ctx context.Context, ownerID uint, limit int) ([]domain.IrrigationLog, error) {
	rows := make([]IrrigationLogModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT l.*
FROM irrigation_logs l
JOIN zones z ON z.id = l.zone_id
JOIN gardens g ON g.id = z.garden_id
WHERE g.owner_id = ?
ORDER BY l.start_time DESC, l.id DESC
LIMIT ?
`, ownerID, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toLogs(rows), nil
}

func (r *DashboardRepository) LogsByGardenSince(ctx context.Context, gardenID uint, since time.Time) ([]domain.IrrigationLog, error) {
	rows := make([]IrrigationLogModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT l.*
FROM irrigation_logs l
JOIN zones z ON z.id = l.zone_id
WHERE z.garden_id = ? AND l.start_time >= ?
ORDER BY l.start_time DESC, l.id DESC
`, gardenID, since).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toLogs(rows), nil
}

func (r *DashboardRepository) LogsByOwnerSince(ctx context.Context, ownerID uint, since time.Time) ([]domain.IrrigationLog, error) {
	rows := make([]IrrigationLogModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT l.*
FROM irrigation_logs l
JOIN zones z ON z.id = l.zone_id
JOIN gardens g ON g.id = z.garden_id
WHERE g.owner_id = ? AND l.start_time >= ?
ORDER BY l.start_time DESC, l.id DESC
`, ownerID, since).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toLogs(rows), nil
}

func (r *DashboardRepository) RecentLogsByZone(ctx context.Context, zoneID uint, limit int) ([]domain.IrrigationLog, error) {
	rows := make([]IrrigationLogModel, 0)
	err := r.db.WithContext(ctx).
		Where("zone_id = ?", zoneID).
		Order("start_time DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toLogs(rows), nil
}

func (r *DashboardRepository) GetAlertByID(ctx context.Context, alertID uint) (domain.Alert, error) {
	var m AlertModel
	if err := r.db.WithContext(ctx).First(&m, alertID).Error; err != nil {
		return domain.Alert{}, notFoundOr(err)
	}
	return toAlert(m), nil
}

func (r *DashboardRepository) RecentAlertsByGarden(ctx context.Context, gardenID uint, limit int) ([]domain.Alert, error) {
	rows := make([]AlertModel, 0)
	err := r.db.WithContext(ctx).
		Where("garden_id = ?", gardenID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toAlerts(rows), nil
}

func (r *DashboardRepository) RecentAlertsByOwner(ctx context.Context, ownerID uint, limit int) ([]domain.Alert, error) {
	rows := make([]AlertModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT a.*
FROM alerts a
JOIN gardens g ON g.id = a.garden_id
WHERE g.owner_id = ?
ORDER BY a.created_at DESC, a.id DESC
LIMIT ?
`, ownerID, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toAlerts(rows), nil
}

func (r *DashboardRepository) AlertsByOwnerAndStatus(ctx context.Context, ownerID uint, status domain.AlertStatus) ([]domain.Alert, error) {
	rows := make([]AlertModel, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT a.*
FROM alerts a
JOIN gardens g ON g.id = a.garden_id
WHERE g.owner_id = ? AND a.status = ?
ORDER BY a.created_at DESC, a.id DESC
`, ownerID, string(status)).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toAlerts(rows), nil
}

func (r *DashboardRepository) UpdateAlertStatus(ctx context.Context, alertID uint, status domain.AlertStatus) (domain.Alert, error) {
	if err := r.db.WithContext(ctx).Model(&AlertModel{}).Where("id = ?", alertID).Update("status", string(status)).Error; err != nil {
		return domain.Alert{}, err
	}
	var m AlertModel
	if err := r.db.WithContext(ctx).First(&m, alertID).Error; err != nil {
		return domain.Alert{}, notFoundOr(err)
	}
	return toAlert(m), nil
}

func (r *DashboardRepository) CreateAuditLog(ctx context.Context, value domain.AuditLog) error {
	m := AuditLogModel{ActorUserID: value.ActorUserID, Action: value.Action, TargetType: value.TargetType, TargetID: value.TargetID, Metadata: value.Metadata}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *DashboardRepository) AuditLogsByActor(ctx context.Context, actorUserID uint, limit int) ([]domain.AuditLog, error) {
	rows := make([]AuditLogModel, 0)
	if err := r.db.WithContext(ctx).Where("actor_user_id = ?", actorUserID).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]domain.AuditLog, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.AuditLog{
			ID:          m.ID,
			ActorUserID: m.ActorUserID,
			Action:      m.Action,
			TargetType:  m.TargetType,
			TargetID:    m.TargetID,
			Metadata:    m.Metadata,
			CreatedAt:   m.CreatedAt,
		})
	}
	return result, nil
}

func toUser(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		Phone:        m.Phone,
		CreatedAt:    m.CreatedAt,
	}
}

func toGarden(m GardenModel) domain.Garden {
	return domain.Garden{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		Location:  m.Location,
		TotalArea: m.TotalArea,
		CreatedAt: m.CreatedAt,
	}
}

func toZone(m ZoneModel) domain.Zone {
	return domain.Zone{
		ID:          m.ID,
		GardenID:    m.GardenID,
		Name:        m.Name,
		PlantType:   m.PlantType,
		SoilType:    m.SoilType,
		MoistureMin: m.MoistureMin,
		MoistureMax: m.MoistureMax,
	}
}

func toSensor(m SensorModel) domain.Sensor {
	return domain.Sensor{
		ID:           m.ID,
		ZoneID:       m.ZoneID,
		Type:         domain.SensorType(m.Type),
		SerialNumber: m.SerialNumber,
		Status:       domain.SensorStatus(m.Status),
		InstalledOn:  m.InstalledOn,
	}
}

func toValve(m ValveModel) domain.Valve {
	return domain.Valve{
		ID:              m.ID,
		ZoneID:          m.ZoneID,
		Status:          domain.ValveStatus(m.Status),
		PowerSource:     domain.PowerSource(m.PowerSource),
		LastActivatedAt: m.LastActivatedAt,
	}
}

func toTank(m WaterTankModel) domain.WaterTank {
	return domain.WaterTank{
		ID:            m.ID,
		GardenID:      m.GardenID,
		CapacityL:     m.CapacityL,
		CurrentLevelL: m.CurrentLevelL,
		Status:        domain.TankStatus(m.Status),
	}
}

func toAlert(m AlertModel) domain.Alert {
	return domain.Alert{
		ID:        m.ID,
		GardenID:  m.GardenID,
		ZoneID:    m.ZoneID,
		Type:      domain.AlertType(m.Type),
		Message:   m.Message,
		Status:    domain.AlertStatus(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

func toLogs(rows []IrrigationLogModel) []domain.IrrigationLog {
	result := make([]domain.IrrigationLog, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.IrrigationLog{
			ID:              m.ID,
			ValveID:         m.ValveID,
			ZoneID:          m.ZoneID,
			StartTime:       m.StartTime,
			EndTime:         m.EndTime,
			WaterVolumeUsed: m.WaterVolumeUsed,
			TriggerType:     domain.TriggerType(m.TriggerType),
		})
	}
	return result
}

func toAlerts(rows []AlertModel) []domain.Alert {
	result := make([]domain.Alert, 0, len(rows))
	for _, m := range rows {
		result = append(result, toAlert(m))
	}
	return result
}
