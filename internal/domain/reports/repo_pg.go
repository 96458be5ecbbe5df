package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nestorcamelo12/hospitales/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) CountActivePatients(ctx context.Context, s Scope) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM patients
		WHERE is_active = TRUE AND ($1::BIGINT IS NULL OR hospital_id = $1)`, s.HospitalID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return n, nil
}

func (r *repoPG) CountEmergencies(ctx context.Context, s Scope, since time.Time, activeOnly bool) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM emergencias
		WHERE ($1::BIGINT IS NULL OR hospital_destino_id = $1)
		  AND fecha >= $2
		  AND (NOT $3 OR estado NOT IN ('dado_alta', 'cerrado'))`,
		s.HospitalID, since, activeOnly).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count emergencies: %w", err)
	}
	return n, nil
}

func (r *repoPG) LatestEmergencies(ctx context.Context, s Scope, limit int) ([]*EmergencySummary, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT e.id, e.fecha, e.estado, e.unidad, p.nombre
		FROM emergencias e
		JOIN patients p ON p.id = e.paciente_id
		WHERE ($1::BIGINT IS NULL OR e.hospital_destino_id = $1)
		ORDER BY e.fecha DESC, e.id DESC
		LIMIT $2`, s.HospitalID, limit)
	if err != nil {
		return nil, fmt.Errorf("latest emergencies: %w", err)
	}
	defer rows.Close()

	var items []*EmergencySummary
	for rows.Next() {
		var e EmergencySummary
		if err := rows.Scan(&e.ID, &e.Fecha, &e.State, &e.Unit, &e.PatientName); err != nil {
			return nil, fmt.Errorf("scan emergency summary: %w", err)
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}

func (r *repoPG) EmergenciesPerDay(ctx context.Context, s Scope, since time.Time) ([]DayCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT TO_CHAR(DATE(fecha), 'YYYY-MM-DD') AS dia, COUNT(*)
		FROM emergencias
		WHERE ($1::BIGINT IS NULL OR hospital_destino_id = $1) AND fecha >= $2
		GROUP BY dia
		ORDER BY dia`, s.HospitalID, since)
	if err != nil {
		return nil, fmt.Errorf("emergencies per day: %w", err)
	}
	defer rows.Close()

	var out []DayCount
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Day, &d.Total); err != nil {
			return nil, fmt.Errorf("scan day count: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repoPG) VitalsSince(ctx context.Context, s Scope, since time.Time) ([]*VitalAlert, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT v.id, v.paciente_id, p.nombre, p.documento, v.tipo, v.valor, v.unidad, v.fecha
		FROM vitals v
		JOIN patients p ON p.id = v.paciente_id
		WHERE v.fecha >= $2 AND ($1::BIGINT IS NULL OR p.hospital_id = $1)
		ORDER BY v.fecha DESC, v.id DESC`, s.HospitalID, since)
	if err != nil {
		return nil, fmt.Errorf("recent vitals: %w", err)
	}
	defer rows.Close()

	var out []*VitalAlert
	for rows.Next() {
		var v VitalAlert
		if err := rows.Scan(&v.ID, &v.PatientID, &v.PatientName, &v.PatientDocument,
			&v.Type, &v.Value, &v.Unit, &v.Fecha); err != nil {
			return nil, fmt.Errorf("scan vital: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
