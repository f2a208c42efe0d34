package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/punchamoorthee/marketledger/internal/domain"
	"github.com/punchamoorthee/marketledger/internal/market"
	"github.com/punchamoorthee/marketledger/internal/registry"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "market_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	ledger *market.Ledger
	assets *registry.Service
}

func NewHandler(l *market.Ledger, assets *registry.Service) *Handler {
	return &Handler{ledger: l, assets: assets}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// caller extracts the authenticated caller identity supplied by the
// execution environment. The ledger trusts it without further checks.
func caller(r *http.Request) domain.Address {
	return domain.Address(r.Header.Get("X-Caller-Account"))
}

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address domain.Address `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/accounts")
		return
	}

	acc, err := h.ledger.CreateAccount(r.Context(), req.Address)
	if err != nil {
		h.respondLedgerError(w, err, "POST", "/accounts")
		return
	}
	h.respondJSON(w, http.StatusCreated, acc, "POST", "/accounts")
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(mux.Vars(r)["addr"])
	acc, err := h.ledger.AccountOf(r.Context(), addr)
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/accounts/{addr}")
		return
	}
	h.respondJSON(w, http.StatusOK, acc, "GET", "/accounts/{addr}")
}

func (h *Handler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(mux.Vars(r)["addr"])
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/accounts/{addr}/deposit")
		return
	}

	if err := h.ledger.Deposit(r.Context(), addr, req.Amount); err != nil {
		h.respondLedgerError(w, err, "POST", "/accounts/{addr}/deposit")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deposited"}, "POST", "/accounts/{addr}/deposit")
}

func (h *Handler) GetAccountEntriesHandler(w http.ResponseWriter, r *http.Request) {
	addr := domain.Address(mux.Vars(r)["addr"])
	entries, err := h.ledger.EntriesOf(r.Context(), addr)
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/accounts/{addr}/entries")
		return
	}
	h.respondJSON(w, http.StatusOK, entries, "GET", "/accounts/{addr}/entries")
}

func (h *Handler) MintAssetHandler(w http.ResponseWriter, r *http.Request) {
	from := caller(r)
	if from == "" {
		h.respondError(w, http.StatusBadRequest, "Missing X-Caller-Account header", "POST", "/assets")
		return
	}
	var req struct {
		MetadataURI string `json:"metadata_uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/assets")
		return
	}

	id, err := h.assets.Mint(r.Context(), from, req.MetadataURI)
	if err != nil {
		h.respondLedgerError(w, err, "POST", "/assets")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]int64{"asset_id": id}, "POST", "/assets")
}

func (h *Handler) GetAssetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid asset id", "GET", "/assets/{id}")
		return
	}

	asset, err := h.assets.Asset(r.Context(), id)
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/assets/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, asset, "GET", "/assets/{id}")
}

func (h *Handler) BurnAssetHandler(w http.ResponseWriter, r *http.Request) {
	from := caller(r)
	if from == "" {
		h.respondError(w, http.StatusBadRequest, "Missing X-Caller-Account header", "DELETE", "/assets/{id}")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid asset id", "DELETE", "/assets/{id}")
		return
	}

	if err := h.assets.Burn(r.Context(), from, id); err != nil {
		h.respondLedgerError(w, err, "DELETE", "/assets/{id}")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "burned"}, "DELETE", "/assets/{id}")
}

func (h *Handler) ListItemHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/listings"))
	defer timer.ObserveDuration()

	from := caller(r)
	if from == "" {
		h.respondError(w, http.StatusBadRequest, "Missing X-Caller-Account header", "POST", "/listings")
		return
	}
	var req struct {
		TokenID int64 `json:"token_id"`
		Price   int64 `json:"price"`
		PaidFee int64 `json:"paid_fee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/listings")
		return
	}

	id, err := h.ledger.ListItem(r.Context(), from, req.TokenID, req.Price, req.PaidFee)
	if err != nil {
		h.respondLedgerError(w, err, "POST", "/listings")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]int64{"listing_id": id}, "POST", "/listings")
}

func (h *Handler) BuyItemHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/listings/{tokenId}/buy"))
	defer timer.ObserveDuration()

	from := caller(r)
	if from == "" {
		h.respondError(w, http.StatusBadRequest, "Missing X-Caller-Account header", "POST", "/listings/{tokenId}/buy")
		return
	}
	tokenID, err := pathID(r, "tokenId")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid token id", "POST", "/listings/{tokenId}/buy")
		return
	}
	var req struct {
		Payment int64 `json:"payment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/listings/{tokenId}/buy")
		return
	}

	if err := h.ledger.BuyItem(r.Context(), from, tokenID, req.Payment); err != nil {
		h.respondLedgerError(w, err, "POST", "/listings/{tokenId}/buy")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "sold"}, "POST", "/listings/{tokenId}/buy")
}

func (h *Handler) CancelListedItemHandler(w http.ResponseWriter, r *http.Request) {
	from := caller(r)
	if from == "" {
		h.respondError(w, http.StatusBadRequest, "Missing X-Caller-Account header", "POST", "/listings/{tokenId}/cancel")
		return
	}
	tokenID, err := pathID(r, "tokenId")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid token id", "POST", "/listings/{tokenId}/cancel")
		return
	}

	if err := h.ledger.CancelListedItem(r.Context(), from, tokenID); err != nil {
		h.respondLedgerError(w, err, "POST", "/listings/{tokenId}/cancel")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"}, "POST", "/listings/{tokenId}/cancel")
}

func (h *Handler) GetListedItemHandler(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathID(r, "tokenId")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid token id", "GET", "/listings/{tokenId}")
		return
	}

	listing, err := h.ledger.GetListedItem(r.Context(), tokenID)
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/listings/{tokenId}")
		return
	}
	h.respondJSON(w, http.StatusOK, listing, "GET", "/listings/{tokenId}")
}

func (h *Handler) GetAllItemsHandler(w http.ResponseWriter, r *http.Request) {
	listings, err := h.ledger.AllItems(r.Context())
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/listings")
		return
	}
	h.respondJSON(w, http.StatusOK, listings, "GET", "/listings")
}

func (h *Handler) GetItemsOfHandler(w http.ResponseWriter, r *http.Request) {
	seller := domain.Address(mux.Vars(r)["addr"])
	listings, err := h.ledger.ItemsOf(r.Context(), seller)
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/sellers/{addr}/listings")
		return
	}
	h.respondJSON(w, http.StatusOK, listings, "GET", "/sellers/{addr}/listings")
}

func (h *Handler) MakeOfferHandler(w http.ResponseWriter, r *http.Request) {
	from := caller(r)
	if from == "" {
		h.respondError(w, http.StatusBadRequest, "Missing X-Caller-Account header", "POST", "/offers")
		return
	}
	var req struct {
		TokenID int64 `json:"token_id"`
		Amount  int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/offers")
		return
	}

	if err := h.ledger.MakeOffer(r.Context(), from, req.TokenID, req.Amount); err != nil {
		h.respondLedgerError(w, err, "POST", "/offers")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]string{"status": "open"}, "POST", "/offers")
}

func (h *Handler) AcceptOfferHandler(w http.ResponseWriter, r *http.Request) {
	from := caller(r)
	if from == "" {
		h.respondError(w, http.StatusBadRequest, "Missing X-Caller-Account header", "POST", "/offers/{tokenId}/accept")
		return
	}
	tokenID, err := pathID(r, "tokenId")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid token id", "POST", "/offers/{tokenId}/accept")
		return
	}
	var req struct {
		PaidFee int64 `json:"paid_fee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/offers/{tokenId}/accept")
		return
	}

	if err := h.ledger.AcceptOffer(r.Context(), from, tokenID, req.PaidFee); err != nil {
		h.respondLedgerError(w, err, "POST", "/offers/{tokenId}/accept")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "accepted"}, "POST", "/offers/{tokenId}/accept")
}

func (h *Handler) GetListingFeeHandler(w http.ResponseWriter, r *http.Request) {
	fee, err := h.ledger.ListingFee(r.Context())
	if err != nil {
		h.respondLedgerError(w, err, "GET", "/fee")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int64{"listing_fee": fee}, "GET", "/fee")
}

func (h *Handler) UpdateListingFeeHandler(w http.ResponseWriter, r *http.Request) {
	from := caller(r)
	if from == "" {
		h.respondError(w, http.StatusBadRequest, "Missing X-Caller-Account header", "PUT", "/fee")
		return
	}
	var req struct {
		ListingFee int64 `json:"listing_fee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", "/fee")
		return
	}

	if err := h.ledger.UpdateListingFee(r.Context(), from, req.ListingFee); err != nil {
		h.respondLedgerError(w, err, "PUT", "/fee")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int64{"listing_fee": req.ListingFee}, "PUT", "/fee")
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[key], 10, 64)
}

// respondLedgerError maps the ledger's failure taxonomy onto HTTP codes.
func (h *Handler) respondLedgerError(w http.ResponseWriter, err error, method, endpoint string) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidURI),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientFee),
		errors.Is(err, domain.ErrSellerCannotBuy),
		errors.Is(err, domain.ErrCannotOfferOwnItem):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotAuthorized),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotSeller):
		code = http.StatusForbidden
	case errors.Is(err, domain.ErrUnknownAsset),
		errors.Is(err, domain.ErrUnknownAccount),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoSuchOffer):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrListingNotActive),
		errors.Is(err, domain.ErrItemIsListed),
		errors.Is(err, domain.ErrAccountExists):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		h.respondError(w, code, "Internal Server Error", method, endpoint)
		return
	}
	h.respondError(w, code, err.Error(), method, endpoint)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, message, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": message}, method, endpoint)
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
