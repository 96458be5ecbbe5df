package medicalrecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const recordSelect = `
	SELECT mr.id, mr.paciente_id, p.nombre, p.documento, p.hospital_id,
	       mr.fecha, mr.medico_id, u.name, u.email,
	       mr.diagnostico, mr.tratamiento, mr.medicamentos, mr.observaciones,
	       mr.adjuntos, mr.created_at
	FROM medical_records mr
	LEFT JOIN patients p ON p.id = mr.paciente_id
	LEFT JOIN users u ON u.id = mr.medico_id`

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec         Record
		attachments []byte
	)
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.PatientName, &rec.PatientDocument, &rec.HospitalID,
		&rec.Fecha, &rec.PhysicianID, &rec.PhysicianName, &rec.PhysicianEmail,
		&rec.Diagnosis, &rec.Treatment, &rec.Medications, &rec.Notes,
		&attachments, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Attachments = attachments
	return &rec, nil
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_records (paciente_id, fecha, medico_id, diagnostico, tratamiento,
		                             medicamentos, observaciones, adjuntos)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		rec.PatientID, rec.Fecha, rec.PhysicianID, rec.Diagnosis, rec.Treatment,
		rec.Medications, rec.Notes, []byte(rec.Attachments),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert medical record for patient %d: %w", rec.PatientID, err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Record, error) {
	rec, err := scanRecord(r.conn(ctx).QueryRow(ctx, recordSelect+` WHERE mr.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apierr.NotFound("Registro médico", id)
		}
		return nil, fmt.Errorf("get medical record %d: %w", id, err)
	}
	return rec, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Record, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_records WHERE paciente_id = $1`, patientID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count medical records: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		recordSelect+` WHERE mr.paciente_id = $1 ORDER BY mr.fecha DESC, mr.id DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list medical records: %w", err)
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan medical record: %w", err)
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
