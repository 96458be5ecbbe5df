package vitals

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const readingCols = `id, paciente_id, emergencia_id, fecha, tipo, valor, unidad, registrado_por, notas`

func scanReading(row pgx.Row) (*Reading, error) {
	var v Reading
	err := row.Scan(&v.ID, &v.PatientID, &v.EmergencyID, &v.Fecha, &v.Type, &v.Value,
		&v.Unit, &v.RecordedBy, &v.Notes)
	if err != nil {
		return nil, err
	}
	v.Classify()
	return &v, nil
}

func (r *repoPG) Create(ctx context.Context, v *Reading) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vitals (paciente_id, emergencia_id, fecha, tipo, valor, unidad, registrado_por, notas)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		v.PatientID, v.EmergencyID, v.Fecha, v.Type, v.Value, v.Unit, v.RecordedBy, v.Notes,
	).Scan(&v.ID)
	if err != nil {
		return fmt.Errorf("insert vital %s for patient %d: %w", v.Type, v.PatientID, err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Reading, error) {
	v, err := scanReading(r.conn(ctx).QueryRow(ctx, `SELECT `+readingCols+` FROM vitals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apierr.NotFound("Signo vital", id)
		}
		return nil, fmt.Errorf("get vital %d: %w", id, err)
	}
	return v, nil
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Reading, error) {
	var (
		where []string
		args  []interface{}
		idx   = 1
	)
	if f.PatientID > 0 {
		where = append(where, fmt.Sprintf("paciente_id = $%d", idx))
		args = append(args, f.PatientID)
		idx++
	}
	if f.EmergencyID > 0 {
		where = append(where, fmt.Sprintf("emergencia_id = $%d", idx))
		args = append(args, f.EmergencyID)
		idx++
	}
	if f.Type != "" {
		where = append(where, fmt.Sprintf("tipo = $%d", idx))
		args = append(args, f.Type)
		idx++
	}

	query := `SELECT ` + readingCols + ` FROM vitals`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY fecha DESC, id DESC LIMIT $%d`, idx)
	args = append(args, f.Limit)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vitals: %w", err)
	}
	defer rows.Close()

	var items []*Reading
	for rows.Next() {
		v, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vital: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}
