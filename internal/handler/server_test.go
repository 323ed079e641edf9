package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraje-tours/reservas/backend/internal/domain"
	"github.com/paraje-tours/reservas/backend/internal/handler"
	"github.com/paraje-tours/reservas/backend/internal/service"
)

// mockBookings is a function-field test double for handler.BookingServicer.
type mockBookings struct {
	create             func(ctx context.Context, in service.CreateReservationInput) (domain.Reservation, error)
	confirmPayment     func(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error)
	cancel             func(ctx context.Context, id uuid.UUID) error
	recordCheckin      func(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	lookupCode         func(ctx context.Context, code string) (domain.ReservationDetail, error)
	lookupByIDAndPhone func(ctx context.Context, id uuid.UUID, phoneSuffix string) (domain.ReservationDetail, error)
	list               func(ctx context.Context, page domain.PaginationParams) ([]domain.ReservationDetail, int64, error)
	getDetail          func(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error)
}

func (m *mockBookings) Create(ctx context.Context, in service.CreateReservationInput) (domain.Reservation, error) {
	return m.create(ctx, in)
}
func (m *mockBookings) ConfirmPayment(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error) {
	return m.confirmPayment(ctx, id)
}
func (m *mockBookings) Cancel(ctx context.Context, id uuid.UUID) error {
	return m.cancel(ctx, id)
}
func (m *mockBookings) RecordCheckin(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	return m.recordCheckin(ctx, id)
}
func (m *mockBookings) LookupCode(ctx context.Context, code string) (domain.ReservationDetail, error) {
	return m.lookupCode(ctx, code)
}
func (m *mockBookings) LookupByIDAndPhone(ctx context.Context, id uuid.UUID, phoneSuffix string) (domain.ReservationDetail, error) {
	return m.lookupByIDAndPhone(ctx, id, phoneSuffix)
}
func (m *mockBookings) List(ctx context.Context, page domain.PaginationParams) ([]domain.ReservationDetail, int64, error) {
	return m.list(ctx, page)
}
func (m *mockBookings) GetDetail(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error) {
	return m.getDetail(ctx, id)
}

var _ handler.BookingServicer = (*mockBookings)(nil)

// mockCatalog is a function-field test double for handler.CatalogServicer.
type mockCatalog struct {
	createActivity func(ctx context.Context, act domain.Activity) (domain.Activity, error)
	listActivities func(ctx context.Context) ([]domain.Activity, error)
	getActivity    func(ctx context.Context, id uuid.UUID) (domain.Activity, error)
	deleteActivity func(ctx context.Context, id uuid.UUID) error
	createSlot     func(ctx context.Context, slot domain.ScheduleSlot) (domain.ScheduleSlot, error)
	listSlots      func(ctx context.Context, activityID uuid.UUID, publishedOnly bool) ([]domain.ScheduleSlot, error)
	deleteSlot     func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCatalog) CreateActivity(ctx context.Context, act domain.Activity) (domain.Activity, error) {
	return m.createActivity(ctx, act)
}
func (m *mockCatalog) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	return m.listActivities(ctx)
}
func (m *mockCatalog) GetActivity(ctx context.Context, id uuid.UUID) (domain.Activity, error) {
	return m.getActivity(ctx, id)
}
func (m *mockCatalog) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	return m.deleteActivity(ctx, id)
}
func (m *mockCatalog) CreateSlot(ctx context.Context, slot domain.ScheduleSlot) (domain.ScheduleSlot, error) {
	return m.createSlot(ctx, slot)
}
func (m *mockCatalog) ListSlots(ctx context.Context, activityID uuid.UUID, publishedOnly bool) ([]domain.ScheduleSlot, error) {
	return m.listSlots(ctx, activityID, publishedOnly)
}
func (m *mockCatalog) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	return m.deleteSlot(ctx, id)
}

var _ handler.CatalogServicer = (*mockCatalog)(nil)

// mockVisits is a function-field test double for handler.VisitServicer.
type mockVisits struct {
	list         func(ctx context.Context, page domain.PaginationParams) ([]domain.VisitRecord, int64, error)
	appendManual func(ctx context.Context, in service.ManualVisitInput) (domain.VisitRecord, error)
	delete       func(ctx context.Context, id uuid.UUID) error
	export       func(ctx context.Context) ([]service.ExportRow, error)
}

func (m *mockVisits) List(ctx context.Context, page domain.PaginationParams) ([]domain.VisitRecord, int64, error) {
	return m.list(ctx, page)
}
func (m *mockVisits) AppendManual(ctx context.Context, in service.ManualVisitInput) (domain.VisitRecord, error) {
	return m.appendManual(ctx, in)
}
func (m *mockVisits) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockVisits) Export(ctx context.Context) ([]service.ExportRow, error) {
	return m.export(ctx)
}

var _ handler.VisitServicer = (*mockVisits)(nil)

// passThrough is an admin guard that lets everything in; auth behaviour is
// covered by the middleware package's own tests.
func passThrough(next http.Handler) http.Handler { return next }

// newTestServer mounts the routes with pass-through admin auth. Nil mocks are
// replaced with empty doubles so a test only has to stub what it touches.
func newTestServer(b *mockBookings, c *mockCatalog, v *mockVisits) http.Handler {
	if b == nil {
		b = &mockBookings{}
	}
	if c == nil {
		c = &mockCatalog{}
	}
	if v == nil {
		v = &mockVisits{}
	}
	return handler.NewServer(b, c, v).Routes(passThrough)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---- health -----------------------------------------------------------------

func TestGetHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil), http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// ---- bookings ---------------------------------------------------------------

func bookingBody(slotID uuid.UUID) string {
	return `{
		"slot_id": "` + slotID.String() + `",
		"holder_name": "María González",
		"phone": "961-555-0147",
		"email": "maria@example.com",
		"email_confirm": "maria@example.com",
		"party_size": 2,
		"companions": [
			{"first_name":"María","last_name_p":"González","last_name_m":"Pérez","age_range":"adult"},
			{"first_name":"Luis","last_name_p":"González","last_name_m":"Pérez","age_range":"child"}
		]
	}`
}

func TestCreateBooking_Created(t *testing.T) {
	slotID := uuid.New()
	code := "ABCD-2345"

	bookings := &mockBookings{
		create: func(_ context.Context, in service.CreateReservationInput) (domain.Reservation, error) {
			require.Equal(t, slotID, in.SlotID)
			require.Equal(t, 2, in.PartySize)
			require.Len(t, in.Companions, 2)
			return domain.Reservation{
				ID:          uuid.New(),
				SlotID:      in.SlotID,
				HolderName:  in.HolderName,
				PartySize:   in.PartySize,
				AmountCents: 90000,
				PayMethod:   "deposit",
				Status:      domain.StatusPending,
				CheckinCode: &code, // leaked by mistake? response must drop it
				CreatedAt:   time.Now(),
			}, nil
		},
	}

	rec := doJSON(t, newTestServer(bookings, nil, nil), http.MethodPost, "/bookings", bookingBody(slotID))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp["status"])
	assert.EqualValues(t, 90000, resp["amount_cents"])
	assert.NotContains(t, rec.Body.String(), code, "check-in codes never leave through the public surface")
}

func TestCreateBooking_MalformedJSON(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil), http.MethodPost, "/bookings", "{not json")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateBooking_MissingFields(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil), http.MethodPost, "/bookings", `{"party_size": 0}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestCreateBooking_InsufficientCapacity(t *testing.T) {
	bookings := &mockBookings{
		create: func(_ context.Context, _ service.CreateReservationInput) (domain.Reservation, error) {
			return domain.Reservation{}, domain.ErrInsufficientCapacity
		},
	}

	rec := doJSON(t, newTestServer(bookings, nil, nil), http.MethodPost, "/bookings", bookingBody(uuid.New()))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_capacity")
}

func TestLookupReservation(t *testing.T) {
	id := uuid.New()
	bookings := &mockBookings{
		lookupByIDAndPhone: func(_ context.Context, gotID uuid.UUID, suffix string) (domain.ReservationDetail, error) {
			require.Equal(t, id, gotID)
			require.Equal(t, "47", suffix)
			return domain.ReservationDetail{
				Reservation:  domain.Reservation{ID: id, Status: domain.StatusPaid},
				ActivityName: "Cañón del Sumidero",
			}, nil
		},
	}

	body := `{"reservation_id":"` + id.String() + `","phone_suffix":"47"}`
	rec := doJSON(t, newTestServer(bookings, nil, nil), http.MethodPost, "/reservations/lookup", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cañón del Sumidero")
}

func TestLookupReservation_BadSuffix(t *testing.T) {
	body := `{"reservation_id":"` + uuid.NewString() + `","phone_suffix":"4"}`
	rec := doJSON(t, newTestServer(nil, nil, nil), http.MethodPost, "/reservations/lookup", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- public catalog ---------------------------------------------------------

func TestListPublicSlots_HidesRawCounters(t *testing.T) {
	actID := uuid.New()
	catalog := &mockCatalog{
		listSlots: func(_ context.Context, id uuid.UUID, publishedOnly bool) ([]domain.ScheduleSlot, error) {
			require.Equal(t, actID, id)
			require.True(t, publishedOnly, "public listing sees published slots only")
			return []domain.ScheduleSlot{{
				ID:               uuid.New(),
				ActivityID:       actID,
				CapacityTotal:    10,
				CapacityReserved: 7,
				PriceCents:       45000,
				Published:        true,
			}}, nil
		},
	}

	rec := doJSON(t, newTestServer(nil, catalog, nil), http.MethodGet, "/activities/"+actID.String()+"/slots", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Slots []map[string]any `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Slots, 1)
	assert.EqualValues(t, 3, resp.Slots[0]["available"])
	assert.NotContains(t, resp.Slots[0], "capacity_reserved")
}

func TestGetActivity_MalformedID(t *testing.T) {
	rec := doJSON(t, newTestServer(nil, nil, nil), http.MethodGet, "/activities/not-a-uuid", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- admin ------------------------------------------------------------------

func TestConfirmReservation(t *testing.T) {
	id := uuid.New()
	code := "ABCD-2345"
	bookings := &mockBookings{
		confirmPayment: func(_ context.Context, gotID uuid.UUID) (domain.ReservationDetail, error) {
			require.Equal(t, id, gotID)
			return domain.ReservationDetail{
				Reservation: domain.Reservation{ID: id, Status: domain.StatusPaid, CheckinCode: &code},
			}, nil
		},
	}

	rec := doJSON(t, newTestServer(bookings, nil, nil), http.MethodPost, "/admin/reservations/"+id.String()+"/confirm", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), code, "admin confirm response carries the code")
}

func TestCheckinReservation_NotPaid(t *testing.T) {
	bookings := &mockBookings{
		recordCheckin: func(_ context.Context, _ uuid.UUID) (domain.Reservation, error) {
			return domain.Reservation{}, domain.ErrInvalidState
		},
	}

	rec := doJSON(t, newTestServer(bookings, nil, nil), http.MethodPost, "/admin/reservations/"+uuid.NewString()+"/checkin", "")

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_state")
}

func TestCheckinLookup_EmptyCode(t *testing.T) {
	bookings := &mockBookings{
		lookupCode: func(_ context.Context, _ string) (domain.ReservationDetail, error) {
			return domain.ReservationDetail{}, domain.ErrValidation
		},
	}

	rec := doJSON(t, newTestServer(bookings, nil, nil), http.MethodGet, "/admin/checkin", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListReservations_PassesPagination(t *testing.T) {
	bookings := &mockBookings{
		list: func(_ context.Context, page domain.PaginationParams) ([]domain.ReservationDetail, int64, error) {
			require.Equal(t, 2, page.Page)
			require.Equal(t, 5, page.Limit)
			return []domain.ReservationDetail{}, 11, nil
		},
	}

	rec := doJSON(t, newTestServer(bookings, nil, nil), http.MethodGet, "/admin/reservations?page=2&limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 11, resp["total"])
	assert.EqualValues(t, 2, resp["page"])
}

func TestCancelReservation(t *testing.T) {
	canceled := false
	bookings := &mockBookings{
		cancel: func(_ context.Context, _ uuid.UUID) error {
			canceled = true
			return nil
		},
	}

	rec := doJSON(t, newTestServer(bookings, nil, nil), http.MethodPost, "/admin/reservations/"+uuid.NewString()+"/cancel", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, canceled)
}

// ---- visits -----------------------------------------------------------------

func TestAddVisit(t *testing.T) {
	visits := &mockVisits{
		appendManual: func(_ context.Context, in service.ManualVisitInput) (domain.VisitRecord, error) {
			require.Equal(t, "Walk-in tour", in.ActivityName)
			require.Equal(t, "Ana y Leo", in.AttendeesText)
			return domain.VisitRecord{ID: uuid.New(), ActivityName: in.ActivityName}, nil
		},
	}

	body := `{"activity_name":"Walk-in tour","attendees":"Ana y Leo","amount_cents":30000}`
	rec := doJSON(t, newTestServer(nil, nil, visits), http.MethodPost, "/admin/visits", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestExportVisits_CSV(t *testing.T) {
	visits := &mockVisits{
		export: func(_ context.Context) ([]service.ExportRow, error) {
			return []service.ExportRow{{
				RecordAt:     "2026-07-03T18:30:00Z",
				ActivityName: "Cañón del Sumidero",
				Attendees:    "Ana Ruiz (adult); Leo Ruiz",
				AmountCents:  90000,
			}}, nil
		},
	}

	rec := doJSON(t, newTestServer(nil, nil, visits), http.MethodGet, "/admin/visits/export?format=csv", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "record_at")
	assert.Contains(t, lines[1], "Ana Ruiz (adult); Leo Ruiz")
}

func TestExportVisits_JSONDefault(t *testing.T) {
	visits := &mockVisits{
		export: func(_ context.Context) ([]service.ExportRow, error) {
			return []service.ExportRow{}, nil
		},
	}

	rec := doJSON(t, newTestServer(nil, nil, visits), http.MethodGet, "/admin/visits/export", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}
