package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the marketplace API. Shared between cmd/api and the
// handler tests.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/accounts", h.CreateAccountHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{addr}", h.GetAccountHandler).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{addr}/deposit", h.DepositHandler).Methods(http.MethodPost)
	v1.HandleFunc("/accounts/{addr}/entries", h.GetAccountEntriesHandler).Methods(http.MethodGet)

	v1.HandleFunc("/assets", h.MintAssetHandler).Methods(http.MethodPost)
	v1.HandleFunc("/assets/{id}", h.GetAssetHandler).Methods(http.MethodGet)
	v1.HandleFunc("/assets/{id}", h.BurnAssetHandler).Methods(http.MethodDelete)

	v1.HandleFunc("/listings", h.ListItemHandler).Methods(http.MethodPost)
	v1.HandleFunc("/listings", h.GetAllItemsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/listings/{tokenId}", h.GetListedItemHandler).Methods(http.MethodGet)
	v1.HandleFunc("/listings/{tokenId}/buy", h.BuyItemHandler).Methods(http.MethodPost)
	v1.HandleFunc("/listings/{tokenId}/cancel", h.CancelListedItemHandler).Methods(http.MethodPost)
	v1.HandleFunc("/sellers/{addr}/listings", h.GetItemsOfHandler).Methods(http.MethodGet)

	v1.HandleFunc("/offers", h.MakeOfferHandler).Methods(http.MethodPost)
	v1.HandleFunc("/offers/{tokenId}/accept", h.AcceptOfferHandler).Methods(http.MethodPost)

	v1.HandleFunc("/fee", h.GetListingFeeHandler).Methods(http.MethodGet)
	v1.HandleFunc("/fee", h.UpdateListingFeeHandler).Methods(http.MethodPut)

	return r
}
