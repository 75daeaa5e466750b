package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

type SensorType string

const (
	SensorMoisture    SensorType = "MOISTURE"
	SensorTemperature SensorType = "TEMPERATURE"
	SensorHumidity    SensorType = "HUMIDITY"
)

type SensorStatus string

const (
	SensorActive   SensorStatus = "ACTIVE"
	SensorInactive SensorStatus = "INACTIVE"
	SensorFaulty   SensorStatus = "FAULTY"
)

type ValveStatus string

const (
	ValveOpen   ValveStatus = "OPEN"
	ValveClosed ValveStatus = "CLOSED"
	ValveFaulty ValveStatus = "FAULTY"
)

type PowerSource string

const (
	PowerElectric PowerSource = "ELECTRIC"
	PowerSolar    PowerSource = "SOLAR"
	PowerManual   PowerSource = "MANUAL"
)

type TankStatus string

const (
	TankFull     TankStatus = "FULL"
	TankNormal   TankStatus = "NORMAL"
	TankLow      TankStatus = "LOW"
	TankCritical TankStatus = "CRITICAL"
	TankEmpty    TankStatus = "EMPTY"
)

type AlertType string

const (
	AlertLowWater    AlertType = "LOW_WATER"
	AlertSensorFault AlertType = "SENSOR_FAULT"
	AlertDrySoil     AlertType = "DRY_SOIL"
)

type AlertStatus string

const (
	AlertActive   AlertStatus = "ACTIVE"
	AlertResolved AlertStatus = "RESOLVED"
)

type TriggerType string

const (
	TriggerScheduled TriggerType = "SCHEDULED"
	TriggerManual    TriggerType = "MANUAL"
	TriggerAuto      TriggerType = "AUTO"
)

type User struct {
	ID           uint
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Phone        string
	CreatedAt    time.Time
}

type Garden struct {
	ID        uint
	OwnerID   uint
	Name      string
	Location  string
	TotalArea *float64
	CreatedAt time.Time
}

type Zone struct {
	ID          uint
	GardenID    uint
	Name        string
	PlantType   string
	SoilType    string
	MoistureMin *float64
	MoistureMax *float64
}

type Sensor struct {
	ID           uint
	ZoneID       uint
	Type         SensorType
	SerialNumber string
	Status       SensorStatus
	InstalledOn  *time.Time
}

// SensorReading rows are append-only; "latest" always means max RecordedAt.
type SensorReading struct {
	ID         uint
	SensorID   uint
	Value      float64
	RecordedAt time.Time
}

type Valve struct {
	ID              uint
	ZoneID          uint
	Status          ValveStatus
	PowerSource     PowerSource
	LastActivatedAt *time.Time
}

// IrrigationLog rows are append-only. A log may lack an end time (still
// running, or the valve never reported back) and may lack a measured volume.
type IrrigationLog struct {
	ID              uint
	ValveID         uint
	ZoneID          uint
	StartTime       *time.Time
	EndTime         *time.Time
	WaterVolumeUsed *float64
	TriggerType     TriggerType
}

type WaterTank struct {
	ID            uint
	GardenID      uint
	CapacityL     *float64
	CurrentLevelL *float64
	Status        TankStatus
}

type Alert struct {
	ID        uint
	GardenID  uint
	ZoneID    *uint
	Type      AlertType
	Message   string
	Status    AlertStatus
	CreatedAt *time.Time
}

type AuthSession struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type APIToken struct {
	ID        uint
	UserID    uint
	Name      string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// PasswordResetToken is single-use and hashed at rest. Expired rows are
// rejected on read and swept opportunistically when new tokens are issued.
type PasswordResetToken struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type AuditLog struct {
	ID          uint
	ActorUserID *uint
	Action      string
	TargetType  string
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

type Identity struct {
	User User
}
