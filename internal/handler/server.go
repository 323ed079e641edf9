// Package handler implements the HTTP handlers for the booking backend.
// All handlers are methods on Server. Methods are split into feature files
// (booking.go, catalog.go, admin.go, visit.go) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/paraje-tours/reservas/backend/internal/domain"
	"github.com/paraje-tours/reservas/backend/internal/service"
)

// BookingServicer defines the reservation operations the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type BookingServicer interface {
	Create(ctx context.Context, in service.CreateReservationInput) (domain.Reservation, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	RecordCheckin(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	LookupCode(ctx context.Context, code string) (domain.ReservationDetail, error)
	LookupByIDAndPhone(ctx context.Context, id uuid.UUID, phoneSuffix string) (domain.ReservationDetail, error)
	List(ctx context.Context, page domain.PaginationParams) ([]domain.ReservationDetail, int64, error)
	GetDetail(ctx context.Context, id uuid.UUID) (domain.ReservationDetail, error)
}

// CatalogServicer defines the catalog operations the handlers depend on.
type CatalogServicer interface {
	CreateActivity(ctx context.Context, act domain.Activity) (domain.Activity, error)
	ListActivities(ctx context.Context) ([]domain.Activity, error)
	GetActivity(ctx context.Context, id uuid.UUID) (domain.Activity, error)
	DeleteActivity(ctx context.Context, id uuid.UUID) error
	CreateSlot(ctx context.Context, slot domain.ScheduleSlot) (domain.ScheduleSlot, error)
	ListSlots(ctx context.Context, activityID uuid.UUID, publishedOnly bool) ([]domain.ScheduleSlot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
}

// VisitServicer defines the visit-history operations the handlers depend on.
type VisitServicer interface {
	List(ctx context.Context, page domain.PaginationParams) ([]domain.VisitRecord, int64, error)
	AppendManual(ctx context.Context, in service.ManualVisitInput) (domain.VisitRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Export(ctx context.Context) ([]service.ExportRow, error)
}

// Server holds the dependencies shared by all HTTP handlers.
type Server struct {
	bookings BookingServicer
	catalog  CatalogServicer
	visits   VisitServicer
	validate *validator.Validate
}

// NewServer constructs the Server with all its dependencies.
func NewServer(bookings BookingServicer, catalog CatalogServicer, visits VisitServicer) *Server {
	return &Server{
		bookings: bookings,
		catalog:  catalog,
		visits:   visits,
		validate: validator.New(),
	}
}

// Routes mounts every endpoint on a fresh chi router. adminGuard wraps the
// /admin subtree; pass middleware.RequireAdmin in production and a pass-through
// in tests that are not about auth.
func (s *Server) Routes(adminGuard func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.getHealth)

	// Public surface: catalog browsing, checkout, guest self-lookup.
	r.Get("/activities", s.listActivities)
	r.Get("/activities/{id}", s.getActivity)
	r.Get("/activities/{id}/slots", s.listPublicSlots)
	r.Post("/bookings", s.createBooking)
	r.Post("/reservations/lookup", s.lookupReservation)

	// Admin surface: reservation management, check-in desk, catalog and
	// history administration.
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminGuard)

		r.Get("/reservations", s.listReservations)
		r.Get("/reservations/{id}", s.getReservation)
		r.Post("/reservations/{id}/confirm", s.confirmReservation)
		r.Post("/reservations/{id}/cancel", s.cancelReservation)
		r.Post("/reservations/{id}/checkin", s.checkinReservation)
		r.Get("/checkin", s.checkinLookup)

		r.Get("/visits", s.listVisits)
		r.Post("/visits", s.addVisit)
		r.Delete("/visits/{id}", s.deleteVisit)
		r.Get("/visits/export", s.exportVisits)

		r.Post("/activities", s.createActivity)
		r.Delete("/activities/{id}", s.deleteActivity)
		r.Get("/activities/{id}/slots", s.listAdminSlots)
		r.Post("/activities/{id}/slots", s.createSlot)
		r.Delete("/slots/{id}", s.deleteSlot)
	})

	return r
}

// getHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running.
func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// urlID parses the {id} path parameter as a UUID, writing a 404 on failure.
// A malformed ID cannot match any resource, so 404 mirrors the lookup miss.
func (s *Server) urlID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
		return uuid.Nil, false
	}
	return id, true
}
