package vitals

import (
	"context"
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
	"github.com/nestorcamelo12/hospitales/internal/domain/notification"
	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
	"github.com/nestorcamelo12/hospitales/internal/platform/apierr"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	items  []*Reading
	nextID int64
	err    error
}

func (m *mockRepo) Create(_ context.Context, r *Reading) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	r.ID = m.nextID
	m.items = append(m.items, r)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Reading, error) {
	for _, r := range m.items {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, apierr.NotFound("Signo vital", id)
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]*Reading, error) {
	var out []*Reading
	for _, r := range m.items {
		if f.PatientID > 0 && r.PatientID != f.PatientID {
			continue
		}
		if f.EmergencyID > 0 && (r.EmergencyID == nil || *r.EmergencyID != f.EmergencyID) {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type mockPatients map[int64]*directory.Patient

func (m mockPatients) GetPatient(_ context.Context, id int64) (*directory.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, apierr.NotFound("Paciente", id)
	}
	return p, nil
}

type notifyCall struct {
	patientID int64
	t         vitalsign.Type
	value     string
}

type mockNotifier struct {
	calls []notifyCall
	err   error
}

func (m *mockNotifier) NotifyVitalCritical(_ context.Context, patientID int64, t vitalsign.Type, value string) notification.DispatchResult {
	m.calls = append(m.calls, notifyCall{patientID, t, value})
	res := notification.DispatchResult{Category: notification.CategoryVitalCritical, Critical: true}
	if m.err != nil {
		res.Errors = append(res.Errors, &notification.DispatchError{Op: "insert", UserID: 1, Err: m.err})
	}
	return res
}

func newTestService() (*Service, *mockRepo, *mockNotifier) {
	repo := &mockRepo{}
	notifier := &mockNotifier{}
	patients := mockPatients{
		1: {ID: 1, Nombre: "Ana", IsActive: true},
		2: {ID: 2, Nombre: "Baja", IsActive: false},
	}
	svc := NewService(repo, patients, notifier, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return svc, repo, notifier
}

var paramedic = auth.Principal{UserID: 7, Role: auth.RoleParamedic}

func TestRecord_Validation(t *testing.T) {
	svc, repo, _ := newTestService()

	tests := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"missing patient", CreateInput{Type: "HR", Value: "80"}, "paciente_id"},
		{"missing type", CreateInput{PatientID: 1, Value: "80"}, "tipo"},
		{"missing value", CreateInput{PatientID: 1, Type: "HR"}, "valor"},
		{"unknown type", CreateInput{PatientID: 1, Type: "GLU", Value: "80"}, "tipo"},
		{"malformed bp", CreateInput{PatientID: 1, Type: "BP", Value: "120"}, "valor"},
		{"non numeric", CreateInput{PatientID: 1, Type: "SPO2", Value: "abc"}, "valor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tt.in, paramedic)
			var ve *apierr.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Empty(t, repo.items)
}

func TestRecord_PatientMustBeActive(t *testing.T) {
	svc, _, _ := newTestService()
	for _, id := range []int64{2, 404} {
		_, err := svc.Record(context.Background(), CreateInput{PatientID: id, Type: "HR", Value: "80"}, paramedic)
		var nf *apierr.NotFoundError
		assert.True(t, errors.As(err, &nf))
	}
}

func TestRecord_NormalReadingDoesNotNotify(t *testing.T) {
	svc, repo, notifier := newTestService()
	r, err := svc.Record(context.Background(), CreateInput{PatientID: 1, Type: "hr", Value: "80"}, paramedic)
	require.NoError(t, err)

	assert.Equal(t, vitalsign.HR, r.Type)
	assert.Equal(t, "bpm", *r.Unit)
	assert.Equal(t, int64(7), *r.RecordedBy)
	assert.False(t, r.Critical)
	assert.Len(t, repo.items, 1)
	assert.Empty(t, notifier.calls)
}

func TestRecord_CriticalReadingNotifies(t *testing.T) {
	svc, _, notifier := newTestService()
	unit := "% sat"
	r, err := svc.Record(context.Background(), CreateInput{PatientID: 1, Type: "SPO2", Value: "85", Unit: &unit}, paramedic)
	require.NoError(t, err)

	assert.True(t, r.Critical)
	assert.Equal(t, "% sat", *r.Unit)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, notifyCall{1, vitalsign.SPO2, "85"}, notifier.calls[0])
}

func TestRecord_NotificationFailureIsSwallowed(t *testing.T) {
	svc, repo, notifier := newTestService()
	notifier.err = errors.New("insert failed")

	r, err := svc.Record(context.Background(), CreateInput{PatientID: 1, Type: "TEMP", Value: "40.5"}, paramedic)
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Len(t, repo.items, 1)
}

func TestRecord_StoreFailure(t *testing.T) {
	svc, repo, notifier := newTestService()
	repo.err = errors.New("db down")
	_, err := svc.Record(context.Background(), CreateInput{PatientID: 1, Type: "SPO2", Value: "80"}, paramedic)
	assert.Error(t, err)
	assert.Empty(t, notifier.calls)
}

func TestList_DefaultsAndFilters(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for _, v := range []string{"80", "90", "100"} {
		_, err := svc.Record(ctx, CreateInput{PatientID: 1, Type: "HR", Value: vitalsign.Value(v)}, paramedic)
		require.NoError(t, err)
	}
	_, err := svc.Record(ctx, CreateInput{PatientID: 1, Type: "SPO2", Value: "97"}, paramedic)
	require.NoError(t, err)

	items, err := svc.List(ctx, Filter{Type: vitalsign.HR})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, "100", items[0].Value, "newest first")

	items, err = svc.ListByPatient(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.ListByPatient(ctx, 404, 0)
	assert.Error(t, err)

	items, err = svc.List(ctx, Filter{PatientID: 99})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFromSnapshot(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	emergencyID := int64(12)
	got := FromSnapshot(3, &emergencyID, 7, at, vitalsign.Snapshot{SpO2: "85", Pulse: "70"})

	require.Len(t, got, 2)
	assert.Equal(t, vitalsign.HR, got[0].Type)
	assert.Equal(t, "70", got[0].Value)
	assert.Equal(t, "bpm", *got[0].Unit)
	assert.False(t, got[0].Critical)
	assert.Equal(t, vitalsign.SPO2, got[1].Type)
	assert.Equal(t, "85", got[1].Value)
	assert.True(t, got[1].Critical)
	for _, r := range got {
		assert.Equal(t, int64(3), r.PatientID)
		assert.Equal(t, emergencyID, *r.EmergencyID)
		assert.Equal(t, at, r.Fecha)
	}
	assert.Empty(t, FromSnapshot(3, nil, 7, at, vitalsign.Snapshot{}))
}

// -- Handler --

func TestHandler_Create(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/vitals", strings.NewReader(`{"paciente_id":1,"tipo":"SPO2","valor":85}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithPrincipal(req.Context(), paramedic))
	rec := httptest.NewRecorder()

	require.NoError(t, h.Create(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valor":"85"`)
	assert.Contains(t, rec.Body.String(), `"critico":true`)
}

func TestHandler_Create_Unauthenticated(t *testing.T) {
	svc, _, _ := newTestService()
	req := httptest.NewRequest(http.MethodPost, "/api/vitals", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := NewHandler(svc).Create(echo.New().NewContext(req, httptest.NewRecorder()))

	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestHandler_List_InvalidType(t *testing.T) {
	svc, _, _ := newTestService()
	req := httptest.NewRequest(http.MethodGet, "/api/vitals?tipo=XYZ", nil)
	err := NewHandler(svc).List(echo.New().NewContext(req, httptest.NewRecorder()))
	assert.Equal(t, http.StatusBadRequest, apierr.Status(err))
}

func TestHandler_Get_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("42")
	err := NewHandler(svc).Get(c)
	assert.Equal(t, http.StatusNotFound, apierr.Status(err))
	assert.Equal(t, "Signo vital no encontrado", err.Error())
}
