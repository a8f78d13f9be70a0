package bot

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api/clients/{clientId}", func(r chi.Router) {
		r.Post("/conversations/{peer}/takeover", h.Takeover)
		r.Post("/conversations/{peer}/release", h.Release)
		r.Get("/conversations", h.Conversations)
		r.Post("/send", h.Send)

		r.Get("/catalog", h.GetCatalog)
		r.Put("/catalog", h.PutCatalog)

		r.Get("/leads", h.ListOrders)
		r.Get("/leads/stats", h.OrderStats)
		r.Get("/leads/{orderId}", h.GetOrder)
		r.Put("/leads/{orderId}", h.UpdateOrder)
		r.Delete("/leads/{orderId}", h.DeleteOrder)
	})
}
