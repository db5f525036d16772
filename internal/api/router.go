package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/standby-scheduling/pkg/logging"
)

type RouterConfig struct {
	Slots       SlotService
	Preferences PreferenceService
	Redeemer    Redeemer
	Health      *HealthHandler
	Gatherer    prometheus.Gatherer // defaults to the global registry
	Logger      *logging.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	h := &handlers{
		slots:    cfg.Slots,
		prefs:    cfg.Preferences,
		redeemer: cfg.Redeemer,
		logger:   cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Get("/slots", h.listOpenSlots)

	r.Route("/clinics/{clinicID}/slots", func(r chi.Router) {
		r.Get("/", h.listClinicSlots)
		r.Post("/", h.createSlot)
		r.Post("/{slotID}/reopen", h.reopenSlot)
		r.Delete("/{slotID}", h.cancelSlot)
	})
	r.Get("/clinics/{clinicID}/bookings", h.listClinicBookings)

	r.Route("/patients/{patientID}", func(r chi.Router) {
		r.Get("/bookings", h.listPatientBookings)
		r.Post("/slots/{slotID}/book", h.bookSlot)
		r.Delete("/bookings/{bookingID}", h.cancelBooking)
		r.Get("/standby", h.getStandby)
		r.Put("/standby", h.putStandby)
		r.Get("/dnd", h.getDND)
		r.Put("/dnd", h.putDND)
	})

	r.Get("/confirm", h.confirmQuery)
	r.Post("/confirm/{token}", h.confirmPath)

	return r
}
