package emergency

import (
	"encoding/json"
	"time"

	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
	"github.com/nestorcamelo12/hospitales/internal/domain/vitals"
)

// State is the lifecycle status of an emergency. Wire values are stable.
type State string

const (
	StateEnRoute    State = "en_camino"
	StateOnScene    State = "en_escena"
	StateInTransit  State = "en_traslado"
	StateAtHospital State = "en_hospital"
	StateInCare     State = "en_atencion"
	StateStabilized State = "estabilizado"
	StateDischarged State = "dado_alta"
	StateClosed     State = "cerrado"
)

// InitialState is assigned to every new emergency.
const InitialState = StateEnRoute

// States lists every state in lifecycle order.
var States = []State{
	StateEnRoute, StateOnScene, StateInTransit, StateAtHospital,
	StateInCare, StateStabilized, StateDischarged, StateClosed,
}

// ParseState matches the exact wire value.
func ParseState(s string) (State, bool) {
	for _, st := range States {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Active reports whether the emergency is still open.
func (s State) Active() bool {
	return s != StateDischarged && s != StateClosed
}

// Emergency is one incident from dispatch to closure.
type Emergency struct {
	ID           int64              `json:"id"`
	PatientID    int64              `json:"paciente_id"`
	Fecha        time.Time          `json:"fecha"`
	Vitals       vitalsign.Snapshot `json:"signos_vitales"`
	Unit         string             `json:"unidad"`
	Description  string             `json:"descripcion"`
	Location     *string            `json:"ubicacion"`
	GeoLat       *float64           `json:"geo_lat"`
	GeoLong      *float64           `json:"geo_long"`
	State        State              `json:"estado"`
	HospitalID   *int64             `json:"hospital_destino_id"`
	RegisteredBy int64              `json:"registrado_por"`
	AttendedBy   *int64             `json:"atendido_por"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// View is an emergency joined with display names.
type View struct {
	Emergency
	PatientName      string          `json:"paciente_nombre"`
	PatientDocument  *string         `json:"paciente_documento,omitempty"`
	PatientBloodType *string         `json:"paciente_tipo_sangre,omitempty"`
	PatientAllergies json.RawMessage `json:"paciente_alergias,omitempty"`
	HospitalName     *string         `json:"hospital_nombre"`
	ParamedicName    *string         `json:"paramedico_nombre"`
	PhysicianName    *string         `json:"medico_nombre"`
	CriticalAlert    bool            `json:"alerta_critica"`
}

// Transition is one entry of the append-only state history.
type Transition struct {
	ID          int64     `json:"id"`
	EmergencyID int64     `json:"emergencia_id"`
	From        *State    `json:"estado_anterior"`
	To          State     `json:"estado_nuevo"`
	UserID      int64     `json:"usuario_id"`
	UserName    *string   `json:"usuario_nombre,omitempty"`
	Notes       *string   `json:"observaciones"`
	CreatedAt   time.Time `json:"created_at"`
}

// Detail is the full emergency document.
type Detail struct {
	View
	VitalsHistory []*vitals.Reading `json:"vitals_history"`
	History       []*Transition     `json:"historial_estados"`
}

// Patch lists the columns an update touches. Nil fields are left alone.
type Patch struct {
	State      *State
	AttendedBy *int64
	Vitals     *vitalsign.Snapshot
}

func (p Patch) Empty() bool {
	return p.State == nil && p.AttendedBy == nil && p.Vitals == nil
}

// ListFilter narrows List. Zero values are ignored.
type ListFilter struct {
	State      State
	HospitalID int64
	// ScopeHospitalID restricts results to one destination hospital
	// regardless of HospitalID.
	ScopeHospitalID int64
	Limit           int
	Offset          int
}
