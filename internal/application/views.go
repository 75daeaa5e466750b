package application

import (
	"fmt"
	"math"
	"time"

	"github.com/floraxhq/florax/internal/domain"
)

// Irrigation status of a zone, derived from its thresholds and the latest
// moisture reading. Never stored.
const (
	ZoneStatusUnknown = "UNKNOWN"
	ZoneStatusAlert   = "ALERT"
	ZoneStatusIdle    = "IDLE"
	ZoneStatusActive  = "ACTIVE"
)

const readingTimeLayout = "02 Jan 2006, 03:04 PM"

type ZoneView struct {
	ZoneID                uint     `json:"zone_id"`
	ZoneName              string   `json:"zone_name"`
	PlantType             string   `json:"plant_type"`
	SoilType              string   `json:"soil_type"`
	MoistureMin           *float64 `json:"moisture_min"`
	MoistureMax           *float64 `json:"moisture_max"`
	LatestMoistureReading *float64 `json:"latest_moisture_reading"`
	IrrigationStatus      string   `json:"irrigation_status"`
	LastIrrigated         string   `json:"last_irrigated"`
}

type AlertView struct {
	AlertID   uint       `json:"alert_id"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	Status    string     `json:"status"`
	CreatedAt *time.Time `json:"created_at"`
	ZoneName  string     `json:"zone_name"`
}

type IrrigationLogView struct {
	LogID           uint       `json:"log_id"`
	ZoneName        string     `json:"zone_name"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	WaterVolumeUsed *float64   `json:"water_volume_used"`
	TriggerType     string     `json:"trigger_type"`
	DurationMinutes *int64     `json:"duration_minutes"`
}

type SensorView struct {
	SensorID      uint       `json:"sensor_id"`
	SensorType    string     `json:"sensor_type"`
	SerialNumber  string     `json:"serial_number"`
	Status        string     `json:"status"`
	InstalledOn   *time.Time `json:"installed_on"`
	LatestReading *float64   `json:"latest_reading"`
	RecordedAt    string     `json:"recorded_at,omitempty"`
}

type WaterTankView struct {
	TankID             uint     `json:"tank_id"`
	CapacityLiters     *float64 `json:"capacity_liters"`
	CurrentLevelLiters *float64 `json:"current_level_liters"`
	FillPercentage     *float64 `json:"fill_percentage"`
	Status             string   `json:"status"`
}

type ValveView struct {
	ValveID         uint       `json:"valve_id"`
	ZoneName        string     `json:"zone_name"`
	ValveStatus     string     `json:"valve_status"`
	PowerSource     string     `json:"power_source"`
	LastActivatedAt *time.Time `json:"last_activated_at"`
}

type GardenView struct {
	GardenID          uint                `json:"garden_id"`
	GardenName        string              `json:"garden_name"`
	Location          string              `json:"location"`
	TotalArea         *float64            `json:"total_area"`
	TotalZones        int                 `json:"total_zones"`
	ActiveAlerts      int                 `json:"active_alerts"`
	Zones             []ZoneView          `json:"zones"`
	Alerts            []AlertView         `json:"alerts"`
	RecentIrrigations []IrrigationLogView `json:"recent_irrigations"`
}

type DashboardView struct {
	UserID                uint         `json:"user_id"`
	UserName              string       `json:"user_name"`
	Email                 string       `json:"email"`
	TotalGardens          int          `json:"total_gardens"`
	TotalZones            int          `json:"total_zones"`
	ActiveAlerts          int          `json:"active_alerts"`
	TotalIrrigationsToday int          `json:"total_irrigations_today"`
	AvgMoistureLevel      float64      `json:"avg_moisture_level"`
	TotalWaterUsedToday   float64      `json:"total_water_used_today"`
	Gardens               []GardenView `json:"gardens"`
}

type DashboardSummaryView struct {
	TotalGardens    int `json:"total_gardens"`
	TotalZones      int `json:"total_zones"`
	TotalSensors    int `json:"total_sensors"`
	ActiveSensors   int `json:"active_sensors"`
	FaultySensors   int `json:"faulty_sensors"`
	TotalValves     int `json:"total_valves"`
	OpenValves      int `json:"open_valves"`
	TotalWaterTanks int `json:"total_water_tanks"`

	AvgMoistureLevel float64 `json:"avg_moisture_level"`

	TotalWaterUsedToday     float64 `json:"total_water_used_today"`
	TotalWaterUsedThisWeek  float64 `json:"total_water_used_this_week"`
	TotalWaterUsedThisMonth float64 `json:"total_water_used_this_month"`
	TotalIrrigationsToday   int     `json:"total_irrigations_today"`
	TotalIrrigationsWeek    int     `json:"total_irrigations_this_week"`

	ActiveAlerts        int `json:"active_alerts"`
	ResolvedAlertsToday int `json:"resolved_alerts_today"`

	AlertCountByType map[string]int `json:"alert_count_by_type"`

	WaterTanks []WaterTankView `json:"water_tanks"`
}

// zoneStatus classifies a zone from its latest moisture reading. The min
// check runs before the max check: a reading below min is ALERT even when it
// also clears max on a misconfigured zone. Reading exactly at min is not
// ALERT; reading exactly at max is IDLE.
func zoneStatus(zone domain.Zone, reading *float64) string {
	if reading == nil {
		return ZoneStatusUnknown
	}
	if zone.MoistureMin != nil && *reading < *zone.MoistureMin {
		return ZoneStatusAlert
	}
	if zone.MoistureMax != nil && *reading >= *zone.MoistureMax {
		return ZoneStatusIdle
	}
	return ZoneStatusActive
}

func newZoneView(zone domain.Zone, reading *float64, lastLog *domain.IrrigationLog) ZoneView {
	lastIrrigated := "Never"
	if lastLog != nil {
		lastIrrigated = formatRelative(lastLog.StartTime)
	}
	return ZoneView{
		ZoneID:                zone.ID,
		ZoneName:              zone.Name,
		PlantType:             zone.PlantType,
		SoilType:              zone.SoilType,
		MoistureMin:           zone.MoistureMin,
		MoistureMax:           zone.MoistureMax,
		LatestMoistureReading: reading,
		IrrigationStatus:      zoneStatus(zone, reading),
		LastIrrigated:         lastIrrigated,
	}
}

func newAlertView(alert domain.Alert, zoneName string) AlertView {
	if zoneName == "" {
		zoneName = "N/A"
	}
	return AlertView{
		AlertID:   alert.ID,
		Type:      string(alert.Type),
		Message:   alert.Message,
		Status:    string(alert.Status),
		CreatedAt: alert.CreatedAt,
		ZoneName:  zoneName,
	}
}

func newLogView(log domain.IrrigationLog, zoneName string) IrrigationLogView {
	if zoneName == "" {
		zoneName = "N/A"
	}
	var duration *int64
	if log.StartTime != nil && log.EndTime != nil {
		minutes := int64(log.EndTime.Sub(*log.StartTime).Minutes())
		duration = &minutes
	}
	return IrrigationLogView{
		LogID:           log.ID,
		ZoneName:        zoneName,
		StartTime:       log.StartTime,
		EndTime:         log.EndTime,
		WaterVolumeUsed: log.WaterVolumeUsed,
		TriggerType:     string(log.TriggerType),
		DurationMinutes: duration,
	}
}

func newSensorView(sensor domain.Sensor, latest *domain.SensorReading) SensorView {
	view := SensorView{
		SensorID:     sensor.ID,
		SensorType:   string(sensor.Type),
		SerialNumber: sensor.SerialNumber,
		Status:       string(sensor.Status),
		InstalledOn:  sensor.InstalledOn,
	}
	if latest != nil {
		value := latest.Value
		view.LatestReading = &value
		view.RecordedAt = latest.RecordedAt.Format(readingTimeLayout)
	}
	return view
}

func newTankView(tank domain.WaterTank) WaterTankView {
	return WaterTankView{
		TankID:             tank.ID,
		CapacityLiters:     tank.CapacityL,
		CurrentLevelLiters: tank.CurrentLevelL,
		FillPercentage:     fillPercent(tank),
		Status:             string(tank.Status),
	}
}

func newValveView(valve domain.Valve, zoneName string) ValveView {
	if zoneName == "" {
		zoneName = "N/A"
	}
	return ValveView{
		ValveID:         valve.ID,
		ZoneName:        zoneName,
		ValveStatus:     string(valve.Status),
		PowerSource:     string(valve.PowerSource),
		LastActivatedAt: valve.LastActivatedAt,
	}
}

// fillPercent is defined only when capacity is known and positive.
func fillPercent(tank domain.WaterTank) *float64 {
	if tank.CapacityL == nil || tank.CurrentLevelL == nil || *tank.CapacityL <= 0 {
		return nil
	}
	pct := math.Round(*tank.CurrentLevelL / *tank.CapacityL * 1000.0) / 10.0
	return &pct
}

// round1 is the single rounding convention for every aggregate that crosses
// the boundary: one decimal, half up on the scaled value.
func round1(x float64) float64 {
	return math.Round(x*10.0) / 10.0
}

// formatRelative renders a timestamp against the wall clock, so it is a
// display concern only and not stable across calls.
func formatRelative(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	minutes := int64(time.Since(*t).Minutes())
	if minutes < 1 {
		return "Just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d hr%s ago", hours, plural(hours))
	}
	days := hours / 24
	return fmt.Sprintf("%d day%s ago", days, plural(days))
}

func plural(n int64) string {
	if n > 1 {
		return "s"
	}
	return ""
}

// startOfDay truncates to local midnight; window boundaries follow the same
// zone convention as the stored timestamps.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeekWindow is a trailing 7-day window inclusive of today.
func startOfWeekWindow(now time.Time) time.Time {
	return startOfDay(now.AddDate(0, 0, -6))
}

func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// waterVolumeSum treats missing volumes as zero; the count still includes
// those logs.
func waterVolumeSum(logs []domain.IrrigationLog) float64 {
	var sum float64
	for _, log := range logs {
		if log.WaterVolumeUsed != nil {
			sum += *log.WaterVolumeUsed
		}
	}
	return sum
}
