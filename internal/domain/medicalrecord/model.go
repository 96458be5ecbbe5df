// Package medicalrecord keeps the clinical history entries physicians write
// for a patient.
package medicalrecord

import (
	"encoding/json"
	"time"
)

// Record is one entry of a patient's clinical history. The patient and
// physician display fields are filled by reads that join them.
type Record struct {
	ID              int64           `json:"id"`
	PatientID       int64           `json:"paciente_id"`
	PatientName     *string         `json:"paciente_nombre,omitempty"`
	PatientDocument *string         `json:"paciente_documento,omitempty"`
	Fecha           time.Time       `json:"fecha"`
	PhysicianID     int64           `json:"medico_id"`
	PhysicianName   *string         `json:"medico_name"`
	PhysicianEmail  *string         `json:"medico_email,omitempty"`
	Diagnosis       string          `json:"diagnostico"`
	Treatment       string          `json:"tratamiento"`
	Medications     string          `json:"medicamentos"`
	Notes           string          `json:"observaciones"`
	Attachments     json.RawMessage `json:"adjuntos"`
	CreatedAt       time.Time       `json:"created_at"`

	// HospitalID is the patient's hospital, used for access checks.
	HospitalID *int64 `json:"-"`
}
