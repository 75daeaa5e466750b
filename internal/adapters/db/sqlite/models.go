package sqlite

import "time"

type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:'USER'"`
	Phone        string
	CreatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type GardenModel struct {
	ID        uint   `gorm:"primaryKey"`
	OwnerID   uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	Location  string
	TotalArea *float64
	CreatedAt time.Time
}

func (GardenModel) TableName() string { return "gardens" }

type ZoneModel struct {
	ID          uint   `gorm:"primaryKey"`
	GardenID    uint   `gorm:"not null;index"`
	Name        string `gorm:"not null"`
	PlantType   string
	SoilType    string
	MoistureMin *float64
	MoistureMax *float64
}

func (ZoneModel) TableName() string { return "zones" }

type SensorModel struct {
	ID           uint   `gorm:"primaryKey"`
	ZoneID       uint   `gorm:"not null;index"`
	Type         string `gorm:"not null"`
	SerialNumber string `gorm:"not null;uniqueIndex"`
	Status       string `gorm:"not null;default:'ACTIVE'"`
	InstalledOn  *time.Time
}

func (SensorModel) TableName() string { return "sensors" }

type SensorReadingModel struct {
	ID         uint      `gorm:"primaryKey"`
	SensorID   uint      `gorm:"not null;index:idx_reading_sensor_time"`
	Value      float64   `gorm:"not null"`
	RecordedAt time.Time `gorm:"not null;index:idx_reading_sensor_time"`
}

func (SensorReadingModel) TableName() string { return "sensor_readings" }

type ValveModel struct {
	ID              uint   `gorm:"primaryKey"`
	ZoneID          uint   `gorm:"not null;index"`
	Status          string `gorm:"not null;default:'CLOSED'"`
	PowerSource     string `gorm:"not null;default:'ELECTRIC'"`
	LastActivatedAt *time.Time
}

func (ValveModel) TableName() string { return "valves" }

type IrrigationLogModel struct {
	ID              uint       `gorm:"primaryKey"`
	ValveID         uint       `gorm:"not null;index"`
	ZoneID          uint       `gorm:"not null;index"`
	StartTime       *time.Time `gorm:"index"`
	EndTime         *time.Time
	WaterVolumeUsed *float64
	TriggerType     string `gorm:"not null;default:'SCHEDULED'"`
}

func (IrrigationLogModel) TableName() string { return "irrigation_logs" }

type WaterTankModel struct {
	ID            uint `gorm:"primaryKey"`
	GardenID      uint `gorm:"not null;index"`
	CapacityL     *float64
	CurrentLevelL *float64
	Status        string `gorm:"not null;default:'NORMAL'"`
}

func (WaterTankModel) TableName() string { return "water_tanks" }

type AlertModel struct {
	ID        uint `gorm:"primaryKey"`
	GardenID  uint `gorm:"not null;index"`
	ZoneID    *uint
	Type      string `gorm:"not null"`
	Message   string
	Status    string `gorm:"not null;default:'ACTIVE';index"`
	CreatedAt *time.Time
}

func (AlertModel) TableName() string { return "alerts" }

type SessionModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (SessionModel) TableName() string { return "sessions" }

type APITokenModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (APITokenModel) TableName() string { return "api_tokens" }

type PasswordResetTokenModel struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	TokenHash string    `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

func (PasswordResetTokenModel) TableName() string { return "password_reset_tokens" }

type AuditLogModel struct {
	ID          uint `gorm:"primaryKey"`
	ActorUserID *uint
	Action      string `gorm:"not null;index"`
	TargetType  string `gorm:"not null;index"`
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

func (AuditLogModel) TableName() string { return "audit_logs" }
