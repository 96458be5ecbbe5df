package medicalrecord

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestorcamelo12/hospitales/internal/domain/directory"
	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
	"github.com/nestorcamelo12/hospitales/pkg/pagination"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

// Directory resolves the patient and the authoring physician.
type Directory interface {
	GetPatient(ctx context.Context, id int64) (*directory.Patient, error)
	GetUser(ctx context.Context, id int64) (*directory.User, error)
}

// CreateInput is the body of a new history entry. medico_id defaults to the
// caller.
type CreateInput struct {
	Fecha       *string         `json:"fecha"`
	PhysicianID *int64          `json:"medico_id"`
	Diagnosis   string          `json:"diagnostico"`
	Treatment   string          `json:"tratamiento"`
	Medications string          `json:"medicamentos"`
	Notes       string          `json:"observaciones"`
	Attachments json.RawMessage `json:"adjuntos"`
}

type Service struct {
	repo      Repository
	directory Directory
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, dir Directory, logger zerolog.Logger) *Service {
	return &Service{repo: repo, directory: dir, logger: logger, now: time.Now}
}

// inScope reports whether actor may see data of a patient at hospitalID.
func inScope(actor auth.Principal, hospitalID *int64) bool {
	own, scoped := actor.ScopedHospital()
	if !scoped {
		return true
	}
	return hospitalID != nil && *hospitalID == own
}

func (s *Service) Create(ctx context.Context, patientID int64, in CreateInput, actor auth.Principal) (*Record, error) {
	patient, err := s.directory.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !patient.IsActive {
		return nil, apierr.NotFound("Paciente", patientID)
	}
	if !inScope(actor, patient.HospitalID) {
		return nil, apierr.Forbidden("No tienes permiso para modificar este historial")
	}

	diagnosis := strings.TrimSpace(in.Diagnosis)
	if diagnosis == "" {
		return nil, apierr.Required("diagnostico")
	}

	fecha := s.now()
	if in.Fecha != nil && strings.TrimSpace(*in.Fecha) != "" {
		t, ok := parseFecha(*in.Fecha)
		if !ok {
			return nil, apierr.Invalid("fecha", "no tiene un formato de fecha válido")
		}
		fecha = t
	}

	attachments := json.RawMessage(`[]`)
	if raw := strings.TrimSpace(string(in.Attachments)); raw != "" && raw != "null" {
		if !json.Valid(in.Attachments) {
			return nil, apierr.Invalid("adjuntos", "no es JSON válido")
		}
		attachments = in.Attachments
	}

	physicianID := actor.UserID
	if in.PhysicianID != nil {
		physicianID = *in.PhysicianID
	}
	if err := s.checkAuthor(ctx, physicianID); err != nil {
		return nil, err
	}

	rec := &Record{
		PatientID:   patientID,
		Fecha:       fecha,
		PhysicianID: physicianID,
		Diagnosis:   diagnosis,
		Treatment:   strings.TrimSpace(in.Treatment),
		Medications: strings.TrimSpace(in.Medications),
		Notes:       strings.TrimSpace(in.Notes),
		Attachments: attachments,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info().
		Int64("record_id", rec.ID).
		Int64("patient_id", patientID).
		Int64("user_id", actor.UserID).
		Msg("medical record created")

	created, err := s.repo.GetByID(ctx, rec.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("record_id", rec.ID).Msg("failed to reload medical record")
		rec.PatientName = &patient.Nombre
		return rec, nil
	}
	return created, nil
}

// checkAuthor requires an active physician or administrator.
func (s *Service) checkAuthor(ctx context.Context, userID int64) error {
	invalid := apierr.Invalid("medico_id", "debe ser un médico o administrador activo")
	u, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		var nf *apierr.NotFoundError
		if errors.As(err, &nf) {
			return invalid
		}
		return err
	}
	if !u.IsActive || (u.Role != auth.RolePhysician && u.Role != auth.RoleAdmin) {
		return invalid
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64, actor auth.Principal) (*Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inScope(actor, rec.HospitalID) {
		return nil, apierr.Forbidden("No tienes permiso para ver este registro")
	}
	return rec, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64, p pagination.Params, actor auth.Principal) ([]*Record, int, error) {
	patient, err := s.directory.GetPatient(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if !inScope(actor, patient.HospitalID) {
		return nil, 0, apierr.Forbidden("No tienes permiso para ver este historial")
	}
	items, total, err := s.repo.ListByPatient(ctx, patientID, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []*Record{}
	}
	return items, total, nil
}

var fechaLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"}

func parseFecha(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range fechaLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
