// Package directory resolves the patients, users and hospitals that the
// emergency workflow references. It is read-only.
package directory

import (
	"encoding/json"
	"time"

	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
)

type Patient struct {
	ID                 int64           `json:"id"`
	Nombre             string          `json:"nombre"`
	Documento          string          `json:"documento"`
	FechaNac           *time.Time      `json:"fecha_nac,omitempty"`
	Edad               *int            `json:"edad,omitempty"`
	TipoSangre         *string         `json:"tipo_sangre,omitempty"`
	Alergias           json.RawMessage `json:"alergias,omitempty"`
	ContactoEmergencia *string         `json:"contacto_emergencia,omitempty"`
	HospitalID         *int64          `json:"hospital_id,omitempty"`
	IsActive           bool            `json:"is_active"`
}

type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       auth.Role `json:"role_id"`
	HospitalID *int64    `json:"hospital_id,omitempty"`
	IsActive   bool      `json:"is_active"`
}

type Hospital struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}
