package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const emergencyCols = `e.id, e.paciente_id, e.fecha, e.signos_vitales, e.unidad, e.descripcion,
	e.ubicacion, e.geo_lat, e.geo_long, e.estado, e.hospital_destino_id, e.registrado_por,
	e.atendido_por, e.created_at, e.updated_at`

const viewSelect = `SELECT ` + emergencyCols + `,
	p.nombre, p.documento, p.tipo_sangre, p.alergias, h.name, para.name, med.name
	FROM emergencias e
	JOIN patients p ON p.id = e.paciente_id
	LEFT JOIN hospitals h ON h.id = e.hospital_destino_id
	LEFT JOIN users para ON para.id = e.registrado_por
	LEFT JOIN users med ON med.id = e.atendido_por`

func emergencyDest(e *Emergency, vitalsRaw *[]byte) []interface{} {
	return []interface{}{&e.ID, &e.PatientID, &e.Fecha, vitalsRaw, &e.Unit, &e.Description,
		&e.Location, &e.GeoLat, &e.GeoLong, &e.State, &e.HospitalID, &e.RegisteredBy,
		&e.AttendedBy, &e.CreatedAt, &e.UpdatedAt}
}

func scanEmergency(row pgx.Row) (*Emergency, error) {
	var (
		e   Emergency
		raw []byte
	)
	if err := row.Scan(emergencyDest(&e, &raw)...); err != nil {
		return nil, err
	}
	e.Vitals = vitalsign.ParseSnapshot(raw)
	return &e, nil
}

func scanView(row pgx.Row) (*View, error) {
	var (
		v   View
		raw []byte
	)
	dest := append(emergencyDest(&v.Emergency, &raw),
		&v.PatientName, &v.PatientDocument, &v.PatientBloodType, &v.PatientAllergies,
		&v.HospitalName, &v.ParamedicName, &v.PhysicianName)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	v.Vitals = vitalsign.ParseSnapshot(raw)
	v.CriticalAlert = vitalsign.IsAnyCritical(v.Vitals)
	return &v, nil
}

func (r *repoPG) Create(ctx context.Context, e *Emergency) error {
	snapshot, err := json.Marshal(e.Vitals)
	if err != nil {
		return fmt.Errorf("encode vitals snapshot: %w", err)
	}
	if e.State == "" {
		e.State = InitialState
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO emergencias (paciente_id, fecha, signos_vitales, unidad, descripcion,
			ubicacion, geo_lat, geo_long, estado, hospital_destino_id, registrado_por)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		e.PatientID, e.Fecha, snapshot, e.Unit, e.Description,
		e.Location, e.GeoLat, e.GeoLong, e.State, e.HospitalID, e.RegisteredBy,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert emergency for patient %d: %w", e.PatientID, err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Emergency, error) {
	e, err := scanEmergency(r.conn(ctx).QueryRow(ctx, `SELECT `+emergencyCols+` FROM emergencias e WHERE e.id = $1`, id))
	if err != nil {
		return nil, notFound(err, id)
	}
	return e, nil
}

func (r *repoPG) GetView(ctx context.Context, id int64) (*View, error) {
	v, err := scanView(r.conn(ctx).QueryRow(ctx, viewSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, notFound(err, id)
	}
	return v, nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*View, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.State != "" {
		add("e.estado = $%d", f.State)
	}
	if f.HospitalID > 0 {
		add("e.hospital_destino_id = $%d", f.HospitalID)
	}
	if f.ScopeHospitalID > 0 {
		add("e.hospital_destino_id = $%d", f.ScopeHospitalID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	return r.listViews(ctx, clause, args, f.Limit, f.Offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*View, int, error) {
	return r.listViews(ctx, " WHERE e.paciente_id = $1", []interface{}{patientID}, limit, offset)
}

func (r *repoPG) listViews(ctx context.Context, clause string, args []interface{}, limit, offset int) ([]*View, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM emergencias e`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count emergencies: %w", err)
	}

	query := viewSelect + clause +
		fmt.Sprintf(` ORDER BY e.fecha DESC, e.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list emergencies: %w", err)
	}
	defer rows.Close()

	var items []*View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan emergency: %w", err)
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, id int64, p Patch) error {
	if p.Empty() {
		return nil
	}
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, arg interface{}) {
		args = append(args, arg)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.State != nil {
		set("estado", *p.State)
	}
	if p.AttendedBy != nil {
		set("atendido_por", *p.AttendedBy)
	}
	if p.Vitals != nil {
		snapshot, err := json.Marshal(p.Vitals)
		if err != nil {
			return fmt.Errorf("encode vitals snapshot: %w", err)
		}
		set("signos_vitales", snapshot)
	}
	args = append(args, id)
	tag, err := r.conn(ctx).Exec(ctx,
		fmt.Sprintf(`UPDATE emergencias SET %s, updated_at = NOW() WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return fmt.Errorf("update emergency %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("Emergencia", id)
	}
	return nil
}

func (r *repoPG) AppendTransition(ctx context.Context, t *Transition) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO emergencias_estados_historial (emergencia_id, estado_anterior, estado_nuevo, usuario_id, observaciones)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		t.EmergencyID, t.From, t.To, t.UserID, t.Notes,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert state transition for emergency %d: %w", t.EmergencyID, err)
	}
	return nil
}

func (r *repoPG) ListTransitions(ctx context.Context, emergencyID int64) ([]*Transition, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT h.id, h.emergencia_id, h.estado_anterior, h.estado_nuevo, h.usuario_id, u.name,
			h.observaciones, h.created_at
		FROM emergencias_estados_historial h
		LEFT JOIN users u ON u.id = h.usuario_id
		WHERE h.emergencia_id = $1
		ORDER BY h.created_at DESC, h.id DESC`, emergencyID)
	if err != nil {
		return nil, fmt.Errorf("list state history: %w", err)
	}
	defer rows.Close()

	var items []*Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.ID, &t.EmergencyID, &t.From, &t.To, &t.UserID, &t.UserName,
			&t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan state transition: %w", err)
		}
		items = append(items, &t)
	}
	return items, rows.Err()
}

func notFound(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apierr.NotFound("Emergencia", id)
	}
	return fmt.Errorf("get emergency %d: %w", id, err)
}
