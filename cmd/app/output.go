package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/floraxhq/florax/internal/application"
	"github.com/floraxhq/florax/internal/domain"
)

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatMaybeFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func formatMaybeInt64(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func formatMaybeUint(v *uint) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func formatMaybeTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func printDashboard(view application.DashboardView) {
	printKV([][2]string{
		{"user", fmt.Sprintf("%s <%s>", view.UserName, view.Email)},
		{"gardens", strconv.Itoa(view.TotalGardens)},
		{"zones", strconv.Itoa(view.TotalZones)},
		{"active_alerts", strconv.Itoa(view.ActiveAlerts)},
		{"irrigations_today", strconv.Itoa(view.TotalIrrigationsToday)},
		{"avg_moisture", strconv.FormatFloat(view.AvgMoistureLevel, 'f', 1, 64)},
		{"water_used_today", strconv.FormatFloat(view.TotalWaterUsedToday, 'f', 1, 64)},
	})
	fmt.Println()
	printGardens(view.Gardens)
}

func printSummary(view application.DashboardSummaryView) {
	printKV([][2]string{
		{"gardens", strconv.Itoa(view.TotalGardens)},
		{"zones", strconv.Itoa(view.TotalZones)},
		{"sensors", fmt.Sprintf("%d (%d active, %d faulty)", view.TotalSensors, view.ActiveSensors, view.FaultySensors)},
		{"valves", fmt.Sprintf("%d (%d open)", view.TotalValves, view.OpenValves)},
		{"water_tanks", strconv.Itoa(view.TotalWaterTanks)},
		{"avg_moisture", strconv.FormatFloat(view.AvgMoistureLevel, 'f', 1, 64)},
		{"water_today", strconv.FormatFloat(view.TotalWaterUsedToday, 'f', 1, 64)},
		{"water_week", strconv.FormatFloat(view.TotalWaterUsedThisWeek, 'f', 1, 64)},
		{"water_month", strconv.FormatFloat(view.TotalWaterUsedThisMonth, 'f', 1, 64)},
		{"irrigations_today", strconv.Itoa(view.TotalIrrigationsToday)},
		{"irrigations_week", strconv.Itoa(view.TotalIrrigationsWeek)},
		{"active_alerts", strconv.Itoa(view.ActiveAlerts)},
		{"resolved_today", strconv.Itoa(view.ResolvedAlertsToday)},
	})
	fmt.Println()
	printTanks(view.WaterTanks)
}

func printGardens(items []application.GardenView) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.GardenID), 10),
			item.GardenName,
			item.Location,
			formatMaybeFloat(item.TotalArea),
			strconv.Itoa(item.TotalZones),
			strconv.Itoa(item.ActiveAlerts),
		})
	}
	printTable([]string{"ID", "NAME", "LOCATION", "AREA", "ZONES", "ACTIVE_ALERTS"}, rows)
}

func printZones(items []application.ZoneView) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ZoneID), 10),
			item.ZoneName,
			item.PlantType,
			formatMaybeFloat(item.LatestMoistureReading),
			item.IrrigationStatus,
			item.LastIrrigated,
		})
	}
	printTable([]string{"ID", "NAME", "PLANT", "MOISTURE", "STATUS", "LAST_IRRIGATED"}, rows)
}

func printAlerts(items []application.AlertView) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.AlertID), 10),
			item.Type,
			item.Status,
			item.ZoneName,
			item.Message,
			formatMaybeTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "TYPE", "STATUS", "ZONE", "MESSAGE", "CREATED_AT"}, rows)
}

func printLogs(items []application.IrrigationLogView) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.LogID), 10),
			item.ZoneName,
			formatMaybeTime(item.StartTime),
			formatMaybeInt64(item.DurationMinutes),
			formatMaybeFloat(item.WaterVolumeUsed),
			item.TriggerType,
		})
	}
	printTable([]string{"ID", "ZONE", "STARTED", "MINUTES", "VOLUME", "TRIGGER"}, rows)
}

func printSensors(items []application.SensorView) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		recorded := item.RecordedAt
		if recorded == "" {
			recorded = "-"
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.SensorID), 10),
			item.SensorType,
			item.SerialNumber,
			item.Status,
			formatMaybeFloat(item.LatestReading),
			recorded,
		})
	}
	printTable([]string{"ID", "TYPE", "SERIAL", "STATUS", "READING", "RECORDED_AT"}, rows)
}

func printTanks(items []application.WaterTankView) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.TankID), 10),
			formatMaybeFloat(item.CapacityLiters),
			formatMaybeFloat(item.CurrentLevelLiters),
			formatMaybeFloat(item.FillPercentage),
			item.Status,
		})
	}
	printTable([]string{"ID", "CAPACITY_L", "LEVEL_L", "FILL_%", "STATUS"}, rows)
}

func printValves(items []application.ValveView) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ValveID), 10),
			item.ZoneName,
			item.ValveStatus,
			item.PowerSource,
			formatMaybeTime(item.LastActivatedAt),
		})
	}
	printTable([]string{"ID", "ZONE", "STATUS", "POWER", "LAST_ACTIVATED"}, rows)
}

func printAuditLogs(items []domain.AuditLog) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(item.ID), 10),
			item.Action,
			item.TargetType,
			formatMaybeUint(item.TargetID),
			formatMaybeUint(item.ActorUserID),
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "ACTION", "TARGET_TYPE", "TARGET_ID", "ACTOR_ID", "AT"}, rows)
}

func printAlertCounts(counts map[string]int) {
	rows := make([][2]string, 0, len(counts))
	for _, key := range []string{"LOW_WATER", "SENSOR_FAULT", "DRY_SOIL"} {
		if v, ok := counts[key]; ok {
			rows = append(rows, [2]string{key, strconv.Itoa(v)})
		}
	}
	for key, v := range counts {
		switch key {
		case "LOW_WATER", "SENSOR_FAULT", "DRY_SOIL":
			continue
		}
		rows = append(rows, [2]string{key, strconv.Itoa(v)})
	}
	printKV(rows)
}
