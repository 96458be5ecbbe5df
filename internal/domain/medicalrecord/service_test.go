package medicalrecord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestorcamelo12/hospitales/internal/domain/directory"
	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
	"github.com/nestorcamelo12/hospitales/pkg/pagination"
)

// -- Mocks --

type mockDirectory struct {
	patients map[int64]*directory.Patient
	users    map[int64]*directory.User
	err      error
}

func (m *mockDirectory) GetPatient(_ context.Context, id int64) (*directory.Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.patients[id]
	if !ok {
		return nil, apierr.NotFound("Paciente", id)
	}
	return p, nil
}

func (m *mockDirectory) GetUser(_ context.Context, id int64) (*directory.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apierr.NotFound("Usuario", id)
	}
	return u, nil
}

type mockRepo struct {
	dir    *mockDirectory
	items  []*Record
	nextID int64
	err    error
}

func (m *mockRepo) Create(_ context.Context, r *Record) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now()
	cp := *r
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockRepo) joined(r *Record) *Record {
	cp := *r
	if p, ok := m.dir.patients[r.PatientID]; ok {
		cp.PatientName = &p.Nombre
		cp.HospitalID = p.HospitalID
	}
	if u, ok := m.dir.users[r.PhysicianID]; ok {
		cp.PhysicianName = &u.Name
	}
	return &cp
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Record, error) {
	for _, r := range m.items {
		if r.ID == id {
			return m.joined(r), nil
		}
	}
	return nil, apierr.NotFound("Registro médico", id)
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID int64, limit, offset int) ([]*Record, int, error) {
	var all []*Record
	for _, r := range m.items {
		if r.PatientID == patientID {
			all = append(all, m.joined(r))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Fecha.After(all[j].Fecha) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func int64Ptr(v int64) *int64 { return &v }

var (
	admin     = auth.Principal{UserID: 1, Role: auth.RoleAdmin}
	doctor    = auth.Principal{UserID: 20, Role: auth.RolePhysician, HospitalID: int64Ptr(4)}
	outsider  = auth.Principal{UserID: 25, Role: auth.RolePhysician, HospitalID: int64Ptr(9)}
	paramedic = auth.Principal{UserID: 30, Role: auth.RoleParamedic, HospitalID: int64Ptr(4)}
)

func newTestService() (*Service, *mockRepo, *mockDirectory) {
	dir := &mockDirectory{
		patients: map[int64]*directory.Patient{
			1: {ID: 1, Nombre: "Ana Pérez", HospitalID: int64Ptr(4), IsActive: true},
			2: {ID: 2, Nombre: "Inactivo", HospitalID: int64Ptr(4), IsActive: false},
		},
		users: map[int64]*directory.User{
			1:  {ID: 1, Name: "Admin", Role: auth.RoleAdmin, IsActive: true},
			20: {ID: 20, Name: "Dra. Ruiz", Role: auth.RolePhysician, IsActive: true},
			22: {ID: 22, Name: "Dr. Baja", Role: auth.RolePhysician, IsActive: false},
			25: {ID: 25, Name: "Dr. Lejos", Role: auth.RolePhysician, IsActive: true},
			30: {ID: 30, Name: "Paramédico", Role: auth.RoleParamedic, IsActive: true},
		},
	}
	repo := &mockRepo{dir: dir}
	svc := NewService(repo, dir, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return svc, repo, dir
}

// -- Service Tests --

func TestService_Create(t *testing.T) {
	svc, repo, _ := newTestService()

	rec, err := svc.Create(context.Background(), 1, CreateInput{
		Diagnosis: "  Neumonía  ",
		Treatment: "Amoxicilina",
	}, doctor)
	require.NoError(t, err)

	assert.Equal(t, "Neumonía", rec.Diagnosis)
	assert.Equal(t, int64(20), rec.PhysicianID)
	require.NotNil(t, rec.PhysicianName)
	assert.Equal(t, "Dra. Ruiz", *rec.PhysicianName)
	assert.JSONEq(t, `[]`, string(rec.Attachments))
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), rec.Fecha)
	assert.Len(t, repo.items, 1)
}

func TestService_Create_ExplicitAuthorAndAttachments(t *testing.T) {
	svc, _, _ := newTestService()

	fecha := "2024-04-30 08:15:00"
	rec, err := svc.Create(context.Background(), 1, CreateInput{
		Fecha:       &fecha,
		PhysicianID: int64Ptr(20),
		Diagnosis:   "Control",
		Attachments: json.RawMessage(`["rx.png"]`),
	}, admin)
	require.NoError(t, err)

	assert.Equal(t, int64(20), rec.PhysicianID)
	assert.JSONEq(t, `["rx.png"]`, string(rec.Attachments))
	assert.Equal(t, 30, rec.Fecha.Day())
}

func TestService_Create_Validation(t *testing.T) {
	bad := "ayer"
	tests := []struct {
		name      string
		patientID int64
		in        CreateInput
		actor     auth.Principal
		check     func(t *testing.T, err error)
	}{
		{"unknown patient", 99, CreateInput{Diagnosis: "x"}, doctor, isNotFound},
		{"inactive patient", 2, CreateInput{Diagnosis: "x"}, doctor, isNotFound},
		{"other hospital", 1, CreateInput{Diagnosis: "x"}, outsider, isForbidden},
		{"missing diagnosis", 1, CreateInput{Diagnosis: "  "}, doctor, isField("diagnostico")},
		{"bad fecha", 1, CreateInput{Diagnosis: "x", Fecha: &bad}, doctor, isField("fecha")},
		{"bad attachments", 1, CreateInput{Diagnosis: "x", Attachments: json.RawMessage(`{`)}, doctor, isField("adjuntos")},
		{"author is paramedic", 1, CreateInput{Diagnosis: "x", PhysicianID: int64Ptr(30)}, admin, isField("medico_id")},
		{"author inactive", 1, CreateInput{Diagnosis: "x", PhysicianID: int64Ptr(22)}, admin, isField("medico_id")},
		{"author unknown", 1, CreateInput{Diagnosis: "x", PhysicianID: int64Ptr(404)}, admin, isField("medico_id")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService()
			_, err := svc.Create(context.Background(), tt.patientID, tt.in, tt.actor)
			require.Error(t, err)
			tt.check(t, err)
			assert.Empty(t, repo.items)
		})
	}
}

func TestService_Create_DirectoryFailurePropagates(t *testing.T) {
	svc, _, dir := newTestService()
	dir.err = errors.New("connection refused")
	_, err := svc.Create(context.Background(), 1, CreateInput{Diagnosis: "x"}, doctor)
	assert.EqualError(t, err, "connection refused")
}

func TestService_GetAndScope(t *testing.T) {
	svc, _, _ := newTestService()
	rec, err := svc.Create(context.Background(), 1, CreateInput{Diagnosis: "x"}, doctor)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), rec.ID, paramedic)
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", *got.PatientName)

	_, err = svc.Get(context.Background(), rec.ID, admin)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), rec.ID, outsider)
	isForbidden(t, err)

	_, err = svc.Get(context.Background(), 404, admin)
	isNotFound(t, err)
}

func TestService_ListByPatient(t *testing.T) {
	svc, _, _ := newTestService()
	for _, day := range []string{"2024-01-01", "2024-03-01", "2024-02-01"} {
		d := day
		_, err := svc.Create(context.Background(), 1, CreateInput{Diagnosis: "d " + d, Fecha: &d}, doctor)
		require.NoError(t, err)
	}

	items, total, err := svc.ListByPatient(context.Background(), 1, pagination.Params{Page: 1, PerPage: 2}, doctor)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "d 2024-03-01", items[0].Diagnosis)

	_, _, err = svc.ListByPatient(context.Background(), 1, pagination.Params{Page: 1, PerPage: 2}, outsider)
	isForbidden(t, err)

	_, _, err = svc.ListByPatient(context.Background(), 99, pagination.Params{Page: 1, PerPage: 2}, admin)
	isNotFound(t, err)

	items, total, err = svc.ListByPatient(context.Background(), 2, pagination.Params{Page: 1, PerPage: 10}, admin)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, items)
}

func isNotFound(t *testing.T, err error) {
	t.Helper()
	var nf *apierr.NotFoundError
	assert.True(t, errors.As(err, &nf), "want NotFoundError, got %v", err)
}

func isForbidden(t *testing.T, err error) {
	t.Helper()
	assert.Equal(t, http.StatusForbidden, apierr.Status(err), "got %v", err)
}

func isField(field string) func(t *testing.T, err error) {
	return func(t *testing.T, err error) {
		t.Helper()
		var ve *apierr.ValidationError
		require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
		assert.Equal(t, field, ve.Field)
	}
}

// -- Handler Tests --

func serve(t *testing.T, svc *Service, method, target, body string, p *auth.Principal) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = apierr.HTTPErrorHandler(zerolog.Nop())
	NewHandler(svc).RegisterRoutes(e.Group("/api"))

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateAndRead(t *testing.T) {
	svc, _, _ := newTestService()

	rec := serve(t, svc, http.MethodPost, "/api/patients/1/medical-records", `{"diagnostico":"Asma","adjuntos":["a.pdf"]}`, &doctor)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Registro médico creado exitosamente")
	assert.Contains(t, rec.Body.String(), `"adjuntos":["a.pdf"]`)
	assert.NotContains(t, rec.Body.String(), "hospital")

	rec = serve(t, svc, http.MethodGet, "/api/medical-records/1", "", &doctor)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, svc, http.MethodGet, "/api/patients/1/medical-records?per_page=500", "", &doctor)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Record       `json:"data"`
		Meta pagination.Meta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, MaxPerPage, body.Meta.PerPage)
}

func TestHandler_ParamedicCannotCreate(t *testing.T) {
	svc, repo, _ := newTestService()
	rec := serve(t, svc, http.MethodPost, "/api/patients/1/medical-records", `{"diagnostico":"x"}`, &paramedic)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, repo.items)
}

func TestHandler_Errors(t *testing.T) {
	svc, _, _ := newTestService()

	rec := serve(t, svc, http.MethodGet, "/api/medical-records/abc", "", &doctor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, svc, http.MethodGet, "/api/medical-records/7", "", &doctor)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registro médico no encontrado")

	rec = serve(t, svc, http.MethodGet, "/api/patients/1/medical-records", "", &outsider)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)

	rec = serve(t, svc, http.MethodGet, "/api/patients/1/medical-records", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
