package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/bloodlink/internal/adapters/memory"
	"github.com/zatekoja/bloodlink/internal/api/handlers"
	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/entities"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

type testEnv struct {
	ctx   context.Context
	store *memory.Store

	donors        *handlers.DonorHandler
	recipients    *handlers.RecipientHandler
	hospitals     *handlers.HospitalHandler
	referrals     *handlers.ReferralHandler
	matching      *handlers.MatchingHandler
	appointments  *handlers.AppointmentHandler
	notifications *handlers.NotificationHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	matching := services.NewMatchingService(store, nil, 0)
	return &testEnv{
		ctx:           context.Background(),
		store:         store,
		donors:        handlers.NewDonorHandler(services.NewDonorService(store), matching),
		recipients:    handlers.NewRecipientHandler(services.NewRecipientService(store)),
		hospitals:     handlers.NewHospitalHandler(services.NewHospitalService(store.Hospitals())),
		referrals:     handlers.NewReferralHandler(services.NewReferralService(store)),
		matching:      handlers.NewMatchingHandler(matching),
		appointments:  handlers.NewAppointmentHandler(services.NewAppointmentService(store)),
		notifications: handlers.NewNotificationHandler(services.NewNotificationService(store.Notifications())),
	}
}

func (e *testEnv) user(t *testing.T, id string, role entities.UserRole) {
	t.Helper()
	require.NoError(t, e.store.Users().Create(e.ctx, &entities.User{ID: id, Email: id + "@example.com", Name: id, Role: role}))
}

func (e *testEnv) donor(t *testing.T, name string, bt entities.BloodType) *entities.Donor {
	t.Helper()
	e.user(t, "user-"+name, entities.RoleDonor)
	d := &entities.Donor{UserID: "user-" + name, Name: name, Age: 30, BloodType: bt, IsAvailable: true}
	require.NoError(t, e.store.Donors().Create(e.ctx, d))
	return d
}

func (e *testEnv) recipient(t *testing.T, name string, bt entities.BloodType, urgency entities.Urgency) *entities.Recipient {
	t.Helper()
	e.user(t, "user-"+name, entities.RoleRecipient)
	r := &entities.Recipient{UserID: "user-" + name, Name: name, BloodType: bt, Urgency: urgency}
	require.NoError(t, e.store.Recipients().Create(e.ctx, r))
	return r
}

func (e *testEnv) hospital(t *testing.T, name string) *entities.Hospital {
	t.Helper()
	h := &entities.Hospital{Name: name, BloodTypes: entities.AllBloodTypes}
	require.NoError(t, e.store.Hospitals().Create(e.ctx, h))
	return h
}

func do(handler http.HandlerFunc, method, target, body string, pathValues ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestStatusFor(t *testing.T) {
	cases := map[apperrors.ErrorType]int{
		apperrors.ErrorTypeNotFound:          http.StatusNotFound,
		apperrors.ErrorTypeValidation:        http.StatusBadRequest,
		apperrors.ErrorTypeIncompatible:      http.StatusUnprocessableEntity,
		apperrors.ErrorTypeInvalidTransition: http.StatusConflict,
		apperrors.ErrorTypeConflict:          http.StatusConflict,
		apperrors.ErrorTypeDuplicateProfile:  http.StatusConflict,
		apperrors.ErrorTypeInternal:          http.StatusInternalServerError,
		apperrors.ErrorType("UNAUTHORIZED"):  http.StatusInternalServerError,
	}
	for errType, status := range cases {
		assert.Equal(t, status, handlers.StatusFor(errType), errType)
	}
}

func TestDonorHandler_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "u1", entities.RoleDonor)

	w := do(env.donors.CreateDonor, "POST", "/api/donors",
		`{"user_id":"u1","name":"Ada","age":30,"blood_type":"o-","email":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[entities.Donor](t, w)
	assert.Equal(t, entities.BloodTypeONegative, created.BloodType)
	assert.True(t, created.IsAvailable)

	w = do(env.donors.GetDonor, "GET", "/api/donors/"+created.ID, "", "id", created.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", decode[entities.Donor](t, w).Name)

	w = do(env.donors.CreateDonor, "POST", "/api/donors",
		`{"user_id":"u1","name":"Ada","age":30,"blood_type":"O-"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_PROFILE", decode[errorBody](t, w).Code)
}

func TestDonorHandler_Errors(t *testing.T) {
	env := newTestEnv(t)

	w := do(env.donors.CreateDonor, "POST", "/api/donors", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.user(t, "u2", entities.RoleDonor)
	w = do(env.donors.CreateDonor, "POST", "/api/donors",
		`{"user_id":"u2","name":"Kid","age":16,"blood_type":"A+"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION", decode[errorBody](t, w).Code)

	w = do(env.donors.GetDonor, "GET", "/api/donors/missing", "", "id", "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(env.donors.ListDonors, "GET", "/api/donors?blood_type=Q", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDonorHandler_UpdateWithIfMatch(t *testing.T) {
	env := newTestEnv(t)
	d := env.donor(t, "Ada", entities.BloodTypeAPositive)

	req := httptest.NewRequest("PATCH", "/api/donors/"+d.ID, strings.NewReader(`{"phone":"555"}`))
	req.SetPathValue("id", d.ID)
	req.Header.Set("If-Match", `"7"`)
	w := httptest.NewRecorder()
	env.donors.UpdateDonor(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	req = httptest.NewRequest("PATCH", "/api/donors/"+d.ID, strings.NewReader(`{"phone":"555"}`))
	req.SetPathValue("id", d.ID)
	req.Header.Set("If-Match", `"1"`)
	w = httptest.NewRecorder()
	env.donors.UpdateDonor(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "555", decode[entities.Donor](t, w).Phone)

	w = do(env.donors.UpdateDonor, "PATCH", "/api/donors/"+d.ID, `{"blood_type":"B+"}`, "id", d.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDonorHandler_ListAndCompatibleRecipients(t *testing.T) {
	env := newTestEnv(t)
	d := env.donor(t, "Ada", entities.BloodTypeONegative)
	env.donor(t, "Ben", entities.BloodTypeABPositive)
	env.recipient(t, "Rae", entities.BloodTypeABPositive, entities.UrgencyCritical)
	env.recipient(t, "Sam", entities.BloodTypeANegative, entities.UrgencyLow)

	w := do(env.donors.ListDonors, "GET", "/api/donors?blood_type=O-", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Donors []*entities.Donor `json:"donors"`
		Count  int               `json:"count"`
	}](t, w)
	assert.Equal(t, 1, list.Count)

	w = do(env.donors.GetCompatibleRecipients, "GET", "/api/donors/"+d.ID+"/compatible-recipients", "", "id", d.ID)
	require.Equal(t, http.StatusOK, w.Code)
	matches := decode[struct {
		Matches []*entities.MatchCandidate `json:"matches"`
	}](t, w)
	require.Len(t, matches.Matches, 2)
	assert.Equal(t, "Rae", matches.Matches[0].Recipient.Name)

	w = do(env.donors.RefreshAvailability, "POST", "/api/donors/"+d.ID+"/availability/refresh", "", "id", d.ID)
	require.Equal(t, http.StatusOK, w.Code)
	refreshed := decode[struct {
		Changed bool `json:"changed"`
	}](t, w)
	assert.False(t, refreshed.Changed)
}

func TestRecipientHandler(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "r1", entities.RoleRecipient)

	w := do(env.recipients.CreateRecipient, "POST", "/api/recipients",
		`{"user_id":"r1","name":"Rae","blood_type":"AB+","urgency":"critical"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[entities.Recipient](t, w)

	w = do(env.recipients.ListRecipients, "GET", "/api/recipients?blood_type=AB%2B,O-&urgency=critical", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Count int `json:"count"`
	}](t, w)
	assert.Equal(t, 1, list.Count)

	w = do(env.recipients.ListRecipients, "GET", "/api/recipients?urgency=whenever", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(env.recipients.UpdateRecipient, "PATCH", "/api/recipients/"+created.ID,
		`{"urgency":"low"}`, "id", created.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entities.UrgencyLow, decode[entities.Recipient](t, w).Urgency)
}

func TestHospitalHandler(t *testing.T) {
	env := newTestEnv(t)

	w := do(env.hospitals.CreateHospital, "POST", "/api/hospitals",
		`{"name":"General","location":"Lagos","blood_types":["O-","o-","A+"]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	h := decode[entities.Hospital](t, w)
	assert.Len(t, h.BloodTypes, 2)

	w = do(env.hospitals.CreateHospital, "POST", "/api/hospitals", `{"name":"Bad","blood_types":["Z"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(env.hospitals.UpdateHospital, "PATCH", "/api/hospitals/"+h.ID, `{"phone":"0800"}`, "id", h.ID)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(env.hospitals.ListHospitals, "GET", "/api/hospitals", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, w).Count)
}

func TestReferralHandler_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	d := env.donor(t, "Ada", entities.BloodTypeONegative)
	r := env.recipient(t, "Rae", entities.BloodTypeABPositive, entities.UrgencyHigh)
	h := env.hospital(t, "General")

	body := `{"donor_id":"` + d.ID + `","recipient_id":"` + r.ID + `","hospital_id":"` + h.ID + `"}`
	w := do(env.referrals.CreateReferral, "POST", "/api/referrals", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, `"1"`, w.Header().Get("ETag"))
	referral := decode[entities.Referral](t, w)
	assert.Equal(t, entities.ReferralStatusPending, referral.Status)

	req := httptest.NewRequest("PATCH", "/api/referrals/"+referral.ID+"/status", strings.NewReader(`{"status":"matched"}`))
	req.SetPathValue("id", referral.ID)
	req.Header.Set("If-Match", `"1"`)
	w = httptest.NewRecorder()
	env.referrals.UpdateReferralStatus(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"2"`, w.Header().Get("ETag"))

	// stale version
	w = do(env.referrals.UpdateReferralStatus, "PATCH", "/api/referrals/x/status",
		`{"status":"scheduled","version":1}`, "id", referral.ID)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode[errorBody](t, w).Code)

	date := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	w = do(env.referrals.ScheduleTransfusion, "POST", "/api/referrals/x/schedule",
		`{"scheduled_date":"`+date+`","time_slot":"09:00-10:00"}`, "id", referral.ID)
	require.Equal(t, http.StatusOK, w.Code)
	scheduled := decode[entities.Referral](t, w)
	assert.Equal(t, entities.ReferralStatusScheduled, scheduled.Status)
	require.NotNil(t, scheduled.TransfusionDetails)

	w = do(env.referrals.UpdateReferralStatus, "PATCH", "/api/referrals/x/status",
		`{"status":"COMPLETED"}`, "id", referral.ID)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(env.referrals.UpdateReferralStatus, "PATCH", "/api/referrals/x/status",
		`{"status":"pending"}`, "id", referral.ID)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[errorBody](t, w).Code)

	w = do(env.donors.GetDonor, "GET", "/api/donors/"+d.ID, "", "id", d.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[entities.Donor](t, w).IsAvailable)

	w = do(env.referrals.ListReferrals, "GET", "/api/referrals?status=completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, w).Count)

	w = do(env.referrals.ListReferrals, "GET", "/api/referrals?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReferralHandler_Incompatible(t *testing.T) {
	env := newTestEnv(t)
	d := env.donor(t, "Ben", entities.BloodTypeABPositive)
	r := env.recipient(t, "Sam", entities.BloodTypeONegative, entities.UrgencyLow)
	h := env.hospital(t, "General")

	body := `{"donor_id":"` + d.ID + `","recipient_id":"` + r.ID + `","hospital_id":"` + h.ID + `"}`
	w := do(env.referrals.CreateReferral, "POST", "/api/referrals", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INCOMPATIBLE", decode[errorBody](t, w).Code)

	req := httptest.NewRequest("PATCH", "/api/referrals/x/status", strings.NewReader(`{"status":"matched"}`))
	req.SetPathValue("id", "x")
	req.Header.Set("If-Match", "abc")
	w = httptest.NewRecorder()
	env.referrals.UpdateReferralStatus(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchingHandler(t *testing.T) {
	env := newTestEnv(t)
	env.donor(t, "Ada", entities.BloodTypeONegative)
	env.recipient(t, "Rae", entities.BloodTypeABPositive, entities.UrgencyCritical)

	w := do(env.matching.GetAllMatches, "GET", "/api/matches", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, w).Count)

	w = do(env.matching.GetCompatibleRecipients, "GET", "/api/compatible-recipients?blood_type=O-", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(env.matching.GetCompatibleRecipients, "GET", "/api/compatible-recipients", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// an unescaped "+" arrives as a space
	w = do(env.matching.CheckCompatibility, "GET", "/api/compatibility?donor=O-&recipient=AB+", "")
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[struct {
		Recipient  string `json:"recipient"`
		Compatible bool   `json:"compatible"`
	}](t, w)
	assert.Equal(t, "AB+", result.Recipient)
	assert.True(t, result.Compatible)

	w = do(env.matching.CheckCompatibility, "GET", "/api/compatibility?donor=AB%2B&recipient=O-", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[struct {
		Compatible bool `json:"compatible"`
	}](t, w).Compatible)

	w = do(env.matching.CheckCompatibility, "GET", "/api/compatibility?donor=O-", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentAndNotificationHandlers(t *testing.T) {
	env := newTestEnv(t)
	d := env.donor(t, "Ada", entities.BloodTypeONegative)
	h := env.hospital(t, "General")
	date := time.Now().AddDate(0, 0, 5).Format("2006-01-02")

	body := `{"user_id":"` + d.UserID + `","hospital_id":"` + h.ID + `","date":"` + date + `","time_slot":"10:00"}`
	w := do(env.appointments.BookAppointment, "POST", "/api/appointments", body)
	require.Equal(t, http.StatusCreated, w.Code)
	appointment := decode[entities.Appointment](t, w)

	w = do(env.appointments.BookAppointment, "POST", "/api/appointments", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(env.appointments.ListUserAppointments, "GET", "/api/users/x/appointments?from=bad", "", "id", d.UserID)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(env.appointments.ListUserAppointments, "GET", "/api/users/x/appointments?status=scheduled", "", "id", d.UserID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, w).Count)

	w = do(env.appointments.CompleteAppointment, "POST", "/api/appointments/x/complete", "", "id", appointment.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entities.AppointmentStatusCompleted, decode[entities.Appointment](t, w).Status)

	w = do(env.appointments.CancelAppointment, "POST", "/api/appointments/x/cancel", "", "id", appointment.ID)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(env.notifications.ListUserNotifications, "GET", "/api/users/x/notifications", "", "id", d.UserID)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Notifications []*entities.Notification `json:"notifications"`
		Unread        int                      `json:"unread"`
	}](t, w)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, 1, list.Unread)
	id := list.Notifications[0].ID

	w = do(env.notifications.MarkRead, "POST", "/api/notifications/x/read", `{"user_id":"someone-else"}`, "id", id)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(env.notifications.MarkRead, "POST", "/api/notifications/x/read", `{}`, "id", id)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(env.notifications.MarkRead, "POST", "/api/notifications/x/read", `{"user_id":"`+d.UserID+`"}`, "id", id)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(env.notifications.ListUserNotifications, "GET", "/api/users/x/notifications?unread=true", "", "id", d.UserID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[struct {
		Unread int `json:"unread"`
	}](t, w).Unread)
}
