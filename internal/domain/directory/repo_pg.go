package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
	"github.com/nestorcamelo12/hospitales/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, nombre, documento, fecha_nac, edad, tipo_sangre, alergias,
	contacto_emergencia, hospital_id, is_active`

func (r *repoPG) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id).
		Scan(&p.ID, &p.Nombre, &p.Documento, &p.FechaNac, &p.Edad, &p.TipoSangre, &p.Alergias,
			&p.ContactoEmergencia, &p.HospitalID, &p.IsActive)
	if err != nil {
		return nil, notFound(err, "Paciente", id)
	}
	return &p, nil
}

const userCols = `id, name, email, role_id, hospital_id, is_active`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.HospitalID, &u.IsActive)
	return &u, err
}

func (r *repoPG) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "Usuario", id)
	}
	return u, nil
}

func (r *repoPG) GetHospital(ctx context.Context, id int64) (*Hospital, error) {
	var h Hospital
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name, address, phone FROM hospitals WHERE id = $1`, id).
		Scan(&h.ID, &h.Name, &h.Address, &h.Phone)
	if err != nil {
		return nil, notFound(err, "Hospital", id)
	}
	return &h, nil
}

func (r *repoPG) ListActiveUsersByHospital(ctx context.Context, hospitalID int64, roles ...auth.Role) ([]*User, error) {
	roleIDs := make([]int32, 0, len(roles))
	for _, role := range roles {
		roleIDs = append(roleIDs, int32(role))
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+userCols+` FROM users
		WHERE hospital_id = $1 AND role_id = ANY($2) AND is_active = TRUE
		ORDER BY id`, hospitalID, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("list users of hospital %d: %w", hospitalID, err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func notFound(err error, entity string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apierr.NotFound(entity, id)
	}
	return fmt.Errorf("get %s %d: %w", entity, id, err)
}
