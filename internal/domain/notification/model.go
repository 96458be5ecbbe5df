package notification

import "time"

// Category is the notification "tipo" column.
type Category string

const (
	CategoryEmergency         Category = "emergencia"
	CategoryEmergencyCritical Category = "emergencia_critica"
	CategoryVitalCritical     Category = "vital_critico"
)

// Entity types referenced by notifications.
const (
	EntityEmergency = "emergencia"
	EntityPatient   = "paciente"
)

type Notification struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Category   Category   `json:"tipo"`
	Title      string     `json:"titulo"`
	Message    string     `json:"mensaje"`
	EntityType *string    `json:"entity_type"`
	EntityID   *int64     `json:"entity_id"`
	Read       bool       `json:"leido"`
	ReadAt     *time.Time `json:"leido_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
