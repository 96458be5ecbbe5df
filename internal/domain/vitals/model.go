package vitals

import (
	"time"

	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
)

// Reading is one stored vital-sign measurement. Rows are append only.
type Reading struct {
	ID          int64          `json:"id"`
	PatientID   int64          `json:"paciente_id"`
	EmergencyID *int64         `json:"emergencia_id"`
	Fecha       time.Time      `json:"fecha"`
	Type        vitalsign.Type `json:"tipo"`
	Value       string         `json:"valor"`
	Unit        *string        `json:"unidad"`
	RecordedBy  *int64         `json:"registrado_por"`
	Notes       *string        `json:"notas,omitempty"`
	Critical    bool           `json:"critico"`
}

// Classify fills Critical from the reading's type and value.
func (r *Reading) Classify() {
	r.Critical = vitalsign.IsCritical(r.Type, r.Value)
}

// FromSnapshot expands a snapshot into one reading per present component,
// stamped with at and tagged with the emergency.
func FromSnapshot(patientID int64, emergencyID *int64, recordedBy int64, at time.Time, s vitalsign.Snapshot) []*Reading {
	var out []*Reading
	for _, sr := range s.Readings() {
		unit := sr.Type.Unit()
		by := recordedBy
		r := &Reading{
			PatientID:   patientID,
			EmergencyID: emergencyID,
			Fecha:       at,
			Type:        sr.Type,
			Value:       sr.Value,
			Unit:        &unit,
			RecordedBy:  &by,
		}
		r.Classify()
		out = append(out, r)
	}
	return out
}

// Filter narrows List. Zero values are ignored.
type Filter struct {
	PatientID   int64
	EmergencyID int64
	Type        vitalsign.Type
	Limit       int
}
