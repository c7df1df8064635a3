package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/mintedexchange/pkg/app/core/book"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/errs"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/app/exchange"
	"github.com/uhyunpark/mintedexchange/pkg/app/node"
	"github.com/uhyunpark/mintedexchange/pkg/crypto"
	"github.com/uhyunpark/mintedexchange/pkg/metrics"
	"github.com/uhyunpark/mintedexchange/pkg/util"
)

const (
	maxBodyBytes    = 1 << 20
	defaultPageSize = 50
	maxPageSize     = 500
	requestIDHeader = "X-Request-ID"
)

// OrderPublisher relays booked orders to peers.
type OrderPublisher interface {
	Publish(ctx context.Context, o *order.MakerOrder) error
}

type Config struct {
	AllowedOrigins []string
	RateLimit      float64 // submissions per second per client, 0 = unlimited
	RateBurst      int
}

// Server handles REST API and WebSocket connections.
type Server struct {
	app       *node.App
	exchange  *exchange.Exchange
	book      *book.Book
	metrics   *metrics.Collector
	publisher OrderPublisher // optional
	clock     util.Clock
	cfg       Config

	router  *mux.Router
	hub     *Hub
	limiter *RateLimiter
	log     *zap.SugaredLogger
}

// NewServer wires the routes and subscribes the WebSocket hub to the
// exchange event log and the order book.
func NewServer(cfg Config, app *node.App, b *book.Book, m *metrics.Collector, clock util.Clock, log *zap.SugaredLogger) *Server {
	log = util.OrNop(log)
	if clock == nil {
		clock = util.RealClock{}
	}
	s := &Server{
		app:      app,
		exchange: app.Exchange(),
		book:     b,
		metrics:  m,
		clock:    clock,
		cfg:      cfg,
		router:   mux.NewRouter(),
		hub:      NewHub(log),
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateBurst, log),
		log:      log,
	}

	s.exchange.Events().Subscribe(s.hub)
	b.OnAdd(s.hub.OnOrder)

	s.setupRoutes()
	return s
}

// SetPublisher enables gossip of orders accepted through the API.
func (s *Server) SetPublisher(p OrderPublisher) { s.publisher = p }

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Transactions
	api.Handle("/txs", s.limiter.Handler(http.HandlerFunc(s.handleSubmitTx))).Methods("POST")
	api.HandleFunc("/txs/{hash}", s.handleGetTx).Methods("GET")

	// Order book
	api.Handle("/orders", s.limiter.Handler(http.HandlerFunc(s.handleSubmitOrder))).Methods("POST")
	api.HandleFunc("/orders/{hash}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/collections/{address}/orders", s.handleGetCollectionOrders).Methods("GET")
	api.HandleFunc("/collections/{address}/depth", s.handleGetDepth).Methods("GET")

	// Nonces
	api.HandleFunc("/accounts/{address}/nonce", s.handleGetMinNonce).Methods("GET")
	api.HandleFunc("/accounts/{address}/nonces/{nonce}", s.handleGetNonce).Methods("GET")

	// Whitelists and royalties
	api.HandleFunc("/currencies", s.handleGetCurrencies).Methods("GET")
	api.HandleFunc("/strategies", s.handleGetStrategies).Methods("GET")
	api.HandleFunc("/royalty/{collection}", s.handleGetRoyalty).Methods("GET")

	// Exchange
	api.HandleFunc("/exchange", s.handleGetExchange).Methods("GET")
	api.HandleFunc("/events", s.handleGetEvents).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

// Handler returns the router behind CORS and request ids.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
	})
	return c.Handler(s.withRequestID(s.router))
}

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)
	go s.limiter.RunCleanup(ctx, time.Minute)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infow("api_started", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		s.log.Debugw("http_request", "request_id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Height:   s.app.Height(),
		Mempool:  s.app.MempoolSize(),
		Orders:   s.book.Len(),
		WSClient: s.hub.Clients(),
	})
}

func (s *Server) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error())
		return
	}

	hash, err := s.app.Submit(raw, util.UnixNow(s.clock))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, SubmitTxResponse{TxHash: hash.Hex(), Status: "pending"})
}

func (s *Server) handleGetTx(w http.ResponseWriter, r *http.Request) {
	hash, ok := parseHash(w, mux.Vars(r)["hash"])
	if !ok {
		return
	}

	receipt, found, err := s.app.Receipt(hash)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if found {
		respondJSON(w, http.StatusOK, receipt)
		return
	}
	if s.app.Pending(hash) {
		respondJSON(w, http.StatusAccepted, TxStatusResponse{TxHash: hash.Hex(), Status: "pending"})
		return
	}
	respondError(w, http.StatusNotFound, "not_found", "unknown transaction")
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var p order.MakerOrderPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	o, err := p.ToMakerOrder()
	if err != nil {
		respondDomainError(w, err)
		return
	}

	hash, added, err := s.book.Put(o)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
		if s.publisher != nil {
			if err := s.publisher.Publish(r.Context(), o); err != nil {
				s.log.Warnw("order_publish_failed", "hash", hash.Hex(), "err", err)
			}
		}
	}
	respondJSON(w, status, SubmitOrderResponse{Hash: hash.Hex(), Added: added})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	hash, ok := parseHash(w, mux.Vars(r)["hash"])
	if !ok {
		return
	}
	o, found := s.book.Get(hash)
	if !found {
		respondError(w, http.StatusNotFound, "not_found", "order not in book")
		return
	}
	respondJSON(w, http.StatusOK, orderResponse(hash, o))
}

func (s *Server) handleGetCollectionOrders(w http.ResponseWriter, r *http.Request) {
	collection, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}
	asks, ok := parseSide(w, r)
	if !ok {
		return
	}

	orders := s.book.ListByCollection(collection, asks)
	resp := OrderListResponse{
		Collection: collection.Hex(),
		Side:       side(asks),
		Orders:     make([]OrderResponse, 0, len(orders)),
	}
	for _, o := range orders {
		hash, err := o.Hash()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal", err.Error())
			return
		}
		resp.Orders = append(resp.Orders, orderResponse(hash, o))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDepth(w http.ResponseWriter, r *http.Request) {
	collection, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}
	asks, ok := parseSide(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, DepthResponse{
		Collection: collection.Hex(),
		Side:       side(asks),
		Levels:     s.book.Levels(collection, asks),
	})
}

func (s *Server) handleGetMinNonce(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}
	minNonce, err := s.exchange.UserMinOrderNonce(addr)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, NonceResponse{Address: addr.Hex(), MinNonce: minNonce})
}

func (s *Server) handleGetNonce(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addr, ok := parseAddress(w, vars["address"])
	if !ok {
		return
	}
	n, err := strconv.ParseUint(vars["nonce"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_nonce", "nonce must be an unsigned integer")
		return
	}

	used, err := s.exchange.IsUserOrderNonceExecutedOrCancelled(addr, n)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	minNonce, err := s.exchange.UserMinOrderNonce(addr)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, NonceStatusResponse{
		Address:             addr.Hex(),
		Nonce:               n,
		ExecutedOrCancelled: used,
		BelowMinNonce:       n < minNonce,
		Usable:              !used && n >= minNonce,
	})
}

func (s *Server) handleGetCurrencies(w http.ResponseWriter, r *http.Request) {
	cursor, size, ok := parsePage(w, r)
	if !ok {
		return
	}
	cm := s.exchange.CurrencyManager()
	page, next := cm.ViewWhitelistedCurrencies(cursor, size)
	items := make([]string, len(page))
	for i, a := range page {
		items[i] = a.Hex()
	}
	respondJSON(w, http.StatusOK, PageResponse{Items: items, Cursor: next, Total: cm.WhitelistedCurrencyCount()})
}

func (s *Server) handleGetStrategies(w http.ResponseWriter, r *http.Request) {
	cursor, size, ok := parsePage(w, r)
	if !ok {
		return
	}
	em := s.exchange.ExecutionManager()
	page, next := em.ViewWhitelistedStrategies(cursor, size)
	items := make([]StrategyInfo, 0, len(page))
	for _, a := range page {
		info := StrategyInfo{Address: a.Hex()}
		if impl, ok := em.Lookup(a); ok {
			info.Name = impl.Name()
			info.ProtocolFee = impl.ProtocolFee()
		}
		items = append(items, info)
	}
	respondJSON(w, http.StatusOK, StrategyPageResponse{Items: items, Cursor: next, Total: em.WhitelistedStrategyCount()})
}

func (s *Server) handleGetRoyalty(w http.ResponseWriter, r *http.Request) {
	collection, ok := parseAddress(w, mux.Vars(r)["collection"])
	if !ok {
		return
	}

	registry := s.exchange.RoyaltyFeeManager().Registry()
	info := registry.RoyaltyFeeInfoCollection(collection)
	_, kind := s.exchange.RoyaltyFeeSetter().CheckForCollectionSetter(collection)
	resp := RoyaltyResponse{
		Collection: collection.Hex(),
		Setter:     info.Setter.Hex(),
		Receiver:   info.Receiver.Hex(),
		Fee:        info.Fee,
		FeeLimit:   registry.FeeLimit(),
		SetterKind: kind.String(),
	}

	q := r.URL.Query()
	if q.Get("price") != "" {
		price, ok := new(big.Int).SetString(q.Get("price"), 10)
		if !ok || price.Sign() < 0 {
			respondError(w, http.StatusBadRequest, "invalid_price", "price must be a non-negative integer")
			return
		}
		tokenID := new(big.Int)
		if q.Get("tokenId") != "" {
			if _, ok := tokenID.SetString(q.Get("tokenId"), 10); !ok {
				respondError(w, http.StatusBadRequest, "invalid_token_id", "tokenId must be an integer")
				return
			}
		}
		receiver, amount := s.exchange.RoyaltyFor(collection, tokenID, price)
		resp.QuoteReceiver = receiver.Hex()
		resp.QuoteAmount = amount.String()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	domain := s.exchange.Verifier().Domain()
	respondJSON(w, http.StatusOK, ExchangeInfo{
		Name:                 domain.Name,
		Version:              domain.Version,
		ChainID:              domain.ChainID.String(),
		Address:              s.exchange.Address().Hex(),
		DomainSeparator:      s.exchange.DomainSeparator().Hex(),
		WETH:                 s.exchange.WETH().Hex(),
		ProtocolFeeRecipient: s.exchange.ProtocolFeeRecipient().Hex(),
		MakerMatchOpenBeta:   s.exchange.MakerMatchOpenBeta(),
		Managers:             s.exchange.ManagerAddresses(),
		Height:               s.app.Height(),
	})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after, err := parseUintParam(q.Get("after"), 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_after", err.Error())
		return
	}
	limit, err := parseUintParam(q.Get("limit"), defaultPageSize)
	if err != nil || limit == 0 || limit > maxPageSize {
		respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
		return
	}

	events, err := s.exchange.Events().Since(after, int(limit))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	resp := EventsResponse{Events: events, Last: after}
	if events == nil {
		resp.Events = []exchange.Event{}
	}
	if n := len(events); n > 0 {
		resp.Last = events[n-1].Seq
	}
	respondJSON(w, http.StatusOK, resp)
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code string, message string) {
	respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// respondDomainError maps the error class to an HTTP status.
func respondDomainError(w http.ResponseWriter, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch e.Class {
	case errs.Structural:
		status = http.StatusBadRequest
	case errs.Authorization:
		status = http.StatusForbidden
	case errs.Staleness:
		status = http.StatusConflict
	case errs.Ineligible, errs.Configuration:
		status = http.StatusUnprocessableEntity
	}
	if errors.Is(err, node.ErrMempoolFull) {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, ErrorResponse{Error: e.Reason, Message: err.Error(), Class: e.Class.String()})
}

func parseAddress(w http.ResponseWriter, s string) (common.Address, bool) {
	addr, err := crypto.ParseAddress(s)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_address", err.Error())
		return common.Address{}, false
	}
	return addr, true
}

func parseHash(w http.ResponseWriter, s string) (common.Hash, bool) {
	raw, err := hexutil.Decode(s)
	if err != nil || len(raw) != common.HashLength {
		respondError(w, http.StatusBadRequest, "invalid_hash", "hash must be 0x followed by 64 hex characters")
		return common.Hash{}, false
	}
	return common.BytesToHash(raw), true
}

func parseSide(w http.ResponseWriter, r *http.Request) (asks bool, ok bool) {
	switch r.URL.Query().Get("side") {
	case "", "ask":
		return true, true
	case "bid":
		return false, true
	default:
		respondError(w, http.StatusBadRequest, "invalid_side", "side must be ask or bid")
		return false, false
	}
}

func parsePage(w http.ResponseWriter, r *http.Request) (cursor, size int, ok bool) {
	q := r.URL.Query()
	c, err := parseUintParam(q.Get("cursor"), 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_cursor", err.Error())
		return 0, 0, false
	}
	n, err := parseUintParam(q.Get("size"), defaultPageSize)
	if err != nil || n > maxPageSize {
		respondError(w, http.StatusBadRequest, "invalid_size", "size must be between 0 and 500")
		return 0, 0, false
	}
	return int(c), int(n), true
}

func parseUintParam(s string, def uint64) (uint64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func side(asks bool) string {
	if asks {
		return "ask"
	}
	return "bid"
}

func orderResponse(hash common.Hash, o *order.MakerOrder) OrderResponse {
	return OrderResponse{
		Hash:      hash.Hex(),
		Side:      side(o.IsOrderAsk),
		PriceUnit: FormatUnits(o.Price, 18),
		Order:     order.FromMakerOrder(o),
	}
}

// FormatUnits renders an integer amount with the given number of decimals,
// e.g. 1500000000000000000 with 18 decimals is "1.5".
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return ""
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}
