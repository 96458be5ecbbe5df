package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nestorcamelo12/hospitales/internal/domain/directory"
	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
	"github.com/nestorcamelo12/hospitales/internal/platform/metrics"
)

const (
	titleEmergency         = "Nueva Emergencia"
	titleEmergencyCritical = "🚨 EMERGENCIA CRÍTICA"
	titleVitalCritical     = "⚠️ Signo Vital Crítico"
)

// Store is the write side the dispatcher needs.
type Store interface {
	Create(ctx context.Context, n *Notification) error
}

// Directory resolves patients and recipients.
type Directory interface {
	GetPatient(ctx context.Context, id int64) (*directory.Patient, error)
	ListActiveUsersByHospital(ctx context.Context, hospitalID int64, roles ...auth.Role) ([]*directory.User, error)
}

// Publisher pushes a persisted notification to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
}

// DispatchError describes one failed step of a fan-out. UserID is zero for
// steps that are not tied to a recipient.
type DispatchError struct {
	Op     string
	UserID int64
	Err    error
}

func (e *DispatchError) Error() string {
	if e.UserID != 0 {
		return fmt.Sprintf("dispatch %s for user %d: %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("dispatch %s: %v", e.Op, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// DispatchResult summarises a fan-out. Failures are collected, never raised.
type DispatchResult struct {
	Category   Category
	Critical   bool
	Recipients int
	Sent       int
	Errors     []*DispatchError
}

// Err joins the collected failures, or returns nil.
func (r DispatchResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (r *DispatchResult) fail(op string, userID int64, err error) {
	metrics.RecordDispatchFailure(op)
	r.Errors = append(r.Errors, &DispatchError{Op: op, UserID: userID, Err: err})
}

// Dispatcher creates one notification per eligible recipient. Every insert
// is independent: a failing recipient does not stop the others.
type Dispatcher struct {
	store     Store
	directory Directory
	publisher Publisher
	logger    zerolog.Logger
}

func NewDispatcher(store Store, dir Directory, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{store: store, directory: dir, logger: logger}
}

// SetPublisher attaches an optional live publisher.
func (d *Dispatcher) SetPublisher(p Publisher) {
	d.publisher = p
}

// NotifyEmergencyCreated alerts the active physicians of hospitalID about a
// new emergency. A nil hospital or an empty roster is a logged no-op.
func (d *Dispatcher) NotifyEmergencyCreated(ctx context.Context, emergencyID int64, patientName string, hospitalID *int64, vitals vitalsign.Snapshot) DispatchResult {
	critical := vitalsign.IsAnyCritical(vitals)
	res := DispatchResult{Category: CategoryEmergency, Critical: critical}
	title := titleEmergency
	if critical {
		res.Category = CategoryEmergencyCritical
		title = titleEmergencyCritical
	}

	if hospitalID == nil {
		d.logger.Warn().Int64("emergency_id", emergencyID).Msg("emergency has no destination hospital, nobody notified")
		return res
	}

	recipients, err := d.directory.ListActiveUsersByHospital(ctx, *hospitalID, auth.RolePhysician)
	if err != nil {
		res.fail("resolve_recipients", 0, err)
		return res
	}
	if len(recipients) == 0 {
		d.logger.Warn().
			Int64("emergency_id", emergencyID).
			Int64("hospital_id", *hospitalID).
			Msg("no active physicians at hospital, nobody notified")
		return res
	}

	entityType := EntityEmergency
	template := Notification{
		Category:   res.Category,
		Title:      title,
		Message:    EmergencyMessage(patientName, critical, vitals),
		EntityType: &entityType,
		EntityID:   &emergencyID,
	}
	d.fanOut(ctx, &res, recipients, template)
	return res
}

// EmergencyMessage builds the body of an emergency notification.
func EmergencyMessage(patientName string, critical bool, vitals vitalsign.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Paciente %s en traslado.", patientName)
	if critical {
		b.WriteString(" Signos vitales críticos detectados.")
	}
	if vitals.SpO2.Present() {
		fmt.Fprintf(&b, " SpO2: %s%%", strings.TrimSpace(string(vitals.SpO2)))
	}
	if vitals.BP.Present() {
		fmt.Fprintf(&b, " PA: %s", strings.TrimSpace(string(vitals.BP)))
	}
	return b.String()
}

// NotifyVitalCritical alerts administrators and physicians of the patient's
// hospital when the reading is critical. Non-critical readings do nothing.
func (d *Dispatcher) NotifyVitalCritical(ctx context.Context, patientID int64, t vitalsign.Type, value string) DispatchResult {
	res := DispatchResult{Category: CategoryVitalCritical}
	if !vitalsign.IsCritical(t, value) {
		return res
	}
	res.Critical = true

	patient, err := d.directory.GetPatient(ctx, patientID)
	if err != nil {
		res.fail("resolve_patient", 0, err)
		return res
	}
	if patient.HospitalID == nil {
		d.logger.Warn().Int64("patient_id", patientID).Msg("patient has no hospital, critical vital not notified")
		return res
	}

	recipients, err := d.directory.ListActiveUsersByHospital(ctx, *patient.HospitalID, auth.RoleAdmin, auth.RolePhysician)
	if err != nil {
		res.fail("resolve_recipients", 0, err)
		return res
	}
	if len(recipients) == 0 {
		d.logger.Warn().
			Int64("patient_id", patientID).
			Int64("hospital_id", *patient.HospitalID).
			Msg("no active staff at hospital, critical vital not notified")
		return res
	}

	entityType := EntityPatient
	template := Notification{
		Category:   CategoryVitalCritical,
		Title:      titleVitalCritical,
		Message:    fmt.Sprintf("Paciente %s: %s", patient.Nombre, VitalMessage(t, value)),
		EntityType: &entityType,
		EntityID:   &patientID,
	}
	d.fanOut(ctx, &res, recipients, template)
	return res
}

// VitalMessage names the abnormal reading.
func VitalMessage(t vitalsign.Type, value string) string {
	switch t {
	case vitalsign.SPO2:
		return fmt.Sprintf("SpO₂ crítico: %s%%", value)
	case vitalsign.HR:
		return fmt.Sprintf("Frecuencia cardíaca anormal: %s bpm", value)
	case vitalsign.BP:
		return fmt.Sprintf("Presión arterial crítica: %s", value)
	case vitalsign.TEMP:
		return fmt.Sprintf("Temperatura anormal: %s°C", value)
	}
	return fmt.Sprintf("%s anormal: %s", t, value)
}

func (d *Dispatcher) fanOut(ctx context.Context, res *DispatchResult, recipients []*directory.User, template Notification) {
	res.Recipients = len(recipients)
	for _, u := range recipients {
		n := template
		n.UserID = u.ID
		if err := d.store.Create(ctx, &n); err != nil {
			res.fail("insert", u.ID, err)
			continue
		}
		res.Sent++

		if d.publisher != nil {
			if err := d.publisher.Publish(ctx, &n); err != nil {
				res.fail("publish", u.ID, err)
			}
		}
	}
	metrics.RecordNotificationsDispatched(string(res.Category), res.Sent)
}
