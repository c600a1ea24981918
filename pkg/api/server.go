package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/dkim-labs/tickhook/pkg/amm"
	"github.com/dkim-labs/tickhook/pkg/custody"
	"github.com/dkim-labs/tickhook/pkg/hook"
)

// Server exposes the order hook and the devnet pool over REST, plus a
// WebSocket stream of fill events.
type Server struct {
	hook   *hook.Hook
	pools  *amm.Manager
	vault  *custody.Vault
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer wires routes and subscribes the hub to the hook's fill events.
func NewServer(h *hook.Hook, pools *amm.Manager, vault *custody.Vault, log *zap.SugaredLogger) *Server {
	s := &Server{
		hook:   h,
		pools:  pools,
		vault:  vault,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.setupRoutes()

	h.SetFillListener(func(ev hook.FillEvent) {
		s.hub.BroadcastToChannel("fills", map[string]interface{}{
			"orderId":   ev.OrderID,
			"pool":      ev.PoolID.Hex(),
			"owner":     ev.Owner.Hex(),
			"direction": directionString(ev.Direction),
			"tick":      ev.Tick,
			"consumed":  ev.Consumed.String(),
			"netOut":    ev.NetOut.String(),
			"fee":       ev.Fee.String(),
			"status":    ev.Status.String(),
		})
	})
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order lifecycle
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/claim", s.handleClaimOrder).Methods("POST")
	api.HandleFunc("/ticks/cleanup", s.handleCleanup).Methods("POST")

	// Read-only queries
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/claimable", s.handleGetClaimable).Methods("GET")
	api.HandleFunc("/orders/{id}/fillable", s.handleGetFillable).Methods("GET")
	api.HandleFunc("/accounts/{address}/orders", s.handleGetUserOrders).Methods("GET")
	api.HandleFunc("/pools", s.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/{id}", s.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{id}/ticks/{tick}/orders", s.handleGetTickOrders).Methods("GET")
	api.HandleFunc("/pools/{id}/ticks/{tick}/count", s.handleGetTickOrderCount).Methods("GET")

	// Devnet surface: drive the pool and fund accounts
	api.HandleFunc("/pools/{id}/swap", s.handleSwap).Methods("POST")
	api.HandleFunc("/pools/{id}/liquidity", s.handleSetLiquidity).Methods("POST")
	api.HandleFunc("/faucet", s.handleFaucet).Methods("POST")

	s.router.HandleFunc("/ws", s.hub.ServeWS)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves HTTP until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// REST handlers
// ==============================

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dir, err := parseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	minOut, err := parseAmount(req.AmountOutMinimum)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.hook.PlaceOrder(owner, common.HexToHash(req.Pool), dir, req.TargetTick, amountIn, minOut, req.Deadline)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, PlaceOrderResponse{OrderID: id})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.hook.CancelOrder(owner, id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClaimOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req ClaimOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.hook.ClaimOrder(owner, id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	removed, err := s.hook.CleanupTickOrders(common.HexToHash(req.Pool), req.Tick)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, CleanupResponse{Removed: removed})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	o, err := s.hook.GetOrder(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, orderInfo(o))
}

func (s *Server) handleGetClaimable(w http.ResponseWriter, r *http.Request) {
	id, err := pathOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.hook.GetClaimable(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ClaimableInfo{
		AmountA: c.AmountA.String(),
		AmountB: c.AmountB.String(),
	})
}

func (s *Server) handleGetFillable(w http.ResponseWriter, r *http.Request) {
	id, err := pathOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ok, err := s.hook.IsFillable(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, FillableInfo{Fillable: ok})
}

func (s *Server) handleGetUserOrders(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	orders := s.hook.GetUserOrders(addr)
	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = orderInfo(o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools := s.pools.ListPools()
	out := make([]PoolInfo, len(pools))
	for i, p := range pools {
		out[i] = poolInfo(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	p, err := s.pools.GetPool(common.HexToHash(mux.Vars(r)["id"]))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, poolInfo(p))
}

func (s *Server) handleGetTickOrders(w http.ResponseWriter, r *http.Request) {
	pool, tick, err := pathPoolTick(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	orders := s.hook.GetTickOrders(pool, tick)
	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = orderInfo(o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTickOrderCount(w http.ResponseWriter, r *http.Request) {
	pool, tick, err := pathPoolTick(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, TickOrderCountInfo{Count: s.hook.GetTickOrderCount(pool, tick)})
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dir, err := parseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	consumed, produced, err := s.pools.Swap(common.HexToHash(mux.Vars(r)["id"]), dir, amountIn)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, SwapResponse{
		Consumed: consumed.String(),
		Produced: produced.String(),
	})
}

func (s *Server) handleSetLiquidity(w http.ResponseWriter, r *http.Request) {
	var req SetLiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	l, err := parseAmount(req.Liquidity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.pools.SetLiquidity(common.HexToHash(mux.Vars(r)["id"]), l); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req FaucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	holder, err := parseAddress(req.Holder)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.vault.Mint(common.HexToAddress(req.Asset), holder, amount); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// helpers
// ==============================

func poolInfo(p *amm.Pool) PoolInfo {
	b := p.Binding()
	info := PoolInfo{
		ID:          p.ID.Hex(),
		AssetA:      b.AssetA.Hex(),
		AssetB:      b.AssetB.Hex(),
		FeeTierBps:  b.FeeTierBps,
		TickSpacing: b.TickSpacing,
		Initialized: p.Initialized(),
		Liquidity:   p.Liquidity().String(),
	}
	if p.Initialized() {
		st := p.State()
		info.SqrtPriceX96 = st.SqrtPriceX96.String()
		info.Tick = st.Tick
	}
	return info
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func pathOrderID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
}

func pathPoolTick(r *http.Request) (common.Hash, int32, error) {
	vars := mux.Vars(r)
	tick, err := strconv.ParseInt(vars["tick"], 10, 32)
	if err != nil {
		return common.Hash{}, 0, fmt.Errorf("invalid tick: %w", err)
	}
	return common.HexToHash(vars["id"]), int32(tick), nil
}

// statusFor maps hook errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, hook.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, hook.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, hook.ErrPoolNotInitialized),
		errors.Is(err, hook.ErrInvalidAmount),
		errors.Is(err, hook.ErrInvalidTick),
		errors.Is(err, hook.ErrInvalidDirection):
		return http.StatusBadRequest
	case errors.Is(err, hook.ErrTickCapacityExceeded),
		errors.Is(err, hook.ErrAlreadyFilled),
		errors.Is(err, hook.ErrAlreadyCancelled),
		errors.Is(err, hook.ErrNothingToClaim):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
