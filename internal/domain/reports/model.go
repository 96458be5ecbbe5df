package reports

import (
	"time"

	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
)

type Totals struct {
	Patients          int `json:"pacientes"`
	ActiveEmergencies int `json:"emergencias_activas"`
	EmergenciesToday  int `json:"emergencias_hoy"`
	CriticalPatients  int `json:"pacientes_criticos"`
}

type EmergencySummary struct {
	ID          int64     `json:"id"`
	Fecha       time.Time `json:"fecha"`
	State       string    `json:"estado"`
	Unit        string    `json:"unidad"`
	PatientName string    `json:"paciente_nombre"`
}

type DayCount struct {
	Day   string `json:"dia"`
	Total int    `json:"total"`
}

// VitalAlert is a recent critical reading.
type VitalAlert struct {
	ID              int64          `json:"id"`
	PatientID       int64          `json:"paciente_id"`
	PatientName     string         `json:"paciente_nombre"`
	PatientDocument string         `json:"paciente_documento"`
	Type            vitalsign.Type `json:"tipo"`
	Value           string         `json:"valor"`
	Unit            *string        `json:"unidad"`
	Fecha           time.Time      `json:"fecha"`
}

type Dashboard struct {
	Totals            Totals              `json:"totales"`
	LatestEmergencies []*EmergencySummary `json:"ultimas_emergencias"`
	PerDay            []DayCount          `json:"emergencias_por_dia"`
	CriticalAlerts    []*VitalAlert       `json:"alertas_criticas"`
}

// Scope limits every query to one hospital when HospitalID is set.
type Scope struct {
	HospitalID *int64
}
