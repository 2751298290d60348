package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/wahlkreis/internal/middleware"
)

func (d *Dashboard) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", d.Page)
	r.Get("/charts/national", d.NationalChart)
	r.Get("/charts/districts/{number}", d.DistrictChart)

	r.Route("/api", func(r chi.Router) {
		r.Get("/national", d.GetNational)
		r.Get("/districts", d.ListDistricts)
		r.Get("/districts/{key}", d.GetDistrict)
		r.Get("/map", d.GetMap)
		r.Get("/snapshot", d.GetSnapshot)
		r.Get("/snapshots", d.ListSnapshots)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ReloadAuth(d.ReloadTokenHash))
			r.Post("/admin/reload", d.Reload)
		})
	})

	return r
}
