package server

import (
	intakemw "github.com/MrEthical07/goIntake/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const validateScope = "credential_validate"

func (s *Server) registerRoutes() {
	engine := s.opts.Engine

	s.router.Get("/healthz", s.health)
	if s.opts.Gatherer != nil {
		s.router.Method("GET", "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/credentials", s.issueCredential)
		// admission runs before the body is read
		r.With(intakemw.RateLimit(engine, validateScope)).Post("/credentials/validate", s.validateCredential)

		r.Post("/reports", s.finalizeReport)
		r.Get("/reports", s.listReports)
		r.Delete("/reports", s.deleteReport)
		r.Get("/reports/{id}", s.getReport)
		r.Delete("/reports/{id}", s.deleteReport)

		r.With(intakemw.SessionGuard(engine)).Post("/chat", s.chat)
	})
}
