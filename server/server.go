/*
Package server exposes the token registry and the marketplace over a JSON
HTTP API and mirrors committed events into sqlite. It is the surface the
presentation layer talks to; the contracts themselves live in the
registry and market packages.
*/
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/mux"

	"github.com/dappmarket-org/dappmarket-go-base/cbor"
	"github.com/dappmarket-org/dappmarket-go-base/ledger"
	"github.com/dappmarket-org/dappmarket-go-base/market"
	"github.com/dappmarket-org/dappmarket-go-base/registry"
	"github.com/dappmarket-org/dappmarket-go-base/types"
)

type Server struct {
	cfg      Config
	log      *slog.Logger
	led      *ledger.Ledger
	nft      *registry.Registry
	mkt      *market.Marketplace
	store    *EventStore
	deployer types.Address
}

// New deploys a fresh ledger with one registry and one marketplace and
// wires committed events into the sqlite store. The deployer account is
// generated at startup and becomes the marketplace fee account.
func New(cfg Config, log *slog.Logger) (*Server, error) {
	store, err := OpenEventStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("generating deployer key: %w", err)
	}
	deployer := crypto.PubkeyToAddress(key.PublicKey)

	led := ledger.New()
	if err := led.CreateAccount(deployer, cfg.DeployerBalance); err != nil {
		store.Close()
		return nil, err
	}
	nft := registry.New(led, cfg.NFTName, cfg.NFTSymbol)
	mkt, err := market.New(led, deployer, cfg.FeePercent)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("deploying marketplace: %w", err)
	}

	led.OnCommit(func(recs []ledger.Record) {
		if err := store.Append(recs); err != nil {
			log.Error("persisting event records", "error", err)
		}
	})

	log.Info("contracts deployed",
		"registry", nft.Address(),
		"marketplace", mkt.Address(),
		"fee_account", deployer,
		"fee_percent", cfg.FeePercent,
	)

	return &Server{
		cfg:      cfg,
		log:      log,
		led:      led,
		nft:      nft,
		mkt:      mkt,
		store:    store,
		deployer: deployer,
	}, nil
}

func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(s.log))

	r.HandleFunc("/health", s.healthHandler).Methods("GET")

	r.HandleFunc("/accounts", s.createAccountHandler).Methods("POST")
	r.HandleFunc("/accounts/{address}", s.getAccountHandler).Methods("GET")

	r.HandleFunc("/tokens", s.mintHandler).Methods("POST")
	r.HandleFunc("/tokens/{id}", s.getTokenHandler).Methods("GET")
	r.HandleFunc("/approvals", s.approvalHandler).Methods("POST")

	r.HandleFunc("/items", s.makeItemHandler).Methods("POST")
	r.HandleFunc("/items/{id}", s.getItemHandler).Methods("GET")
	r.HandleFunc("/items/{id}/total-price", s.totalPriceHandler).Methods("GET")
	r.HandleFunc("/items/{id}/purchase", s.purchaseHandler).Methods("POST")

	r.HandleFunc("/events", s.eventsHandler).Methods("GET")

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"registry":    s.nft.Address(),
		"marketplace": s.mkt.Address(),
		"feeAccount":  s.mkt.FeeAccount(),
		"feePercent":  s.mkt.FeePercent(),
		"itemCount":   s.mkt.ItemCount(),
		"tokenCount":  s.nft.TokenCount(),
	})
}

func (s *Server) createAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
		Balance uint64 `json:"balance"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	addr, ok := parseAddress(w, req.Address)
	if !ok {
		return
	}
	if err := s.led.CreateAccount(addr, req.Balance); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"address": addr, "balance": req.Balance})
}

func (s *Server) getAccountHandler(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr, "balance": s.led.BalanceOf(addr)})
}

func (s *Server) mintHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller string `json:"caller"`
		URI    string `json:"uri"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	caller, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}
	id, err := s.nft.Mint(caller, req.URI)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tokenId": id})
}

func (s *Server) getTokenHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	tok, err := s.nft.Token(types.TokenID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (s *Server) approvalHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller   string `json:"caller"`
		Operator string `json:"operator"`
		Approved bool   `json:"approved"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	caller, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}
	operator, ok := parseAddress(w, req.Operator)
	if !ok {
		return
	}
	if err := s.nft.SetApprovalForAll(caller, operator, req.Approved); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":    caller,
		"operator": operator,
		"approved": req.Approved,
	})
}

func (s *Server) makeItemHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller  string `json:"caller"`
		TokenID uint64 `json:"tokenId"`
		Price   uint64 `json:"price"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	caller, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}
	id, err := s.mkt.MakeItem(caller, s.nft, types.TokenID(req.TokenID), req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"itemId": id})
}

func (s *Server) getItemHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	item, err := s.mkt.Item(types.ItemID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) totalPriceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	total, err := s.mkt.GetTotalPrice(types.ItemID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"itemId": id, "totalPrice": total})
}

func (s *Server) purchaseHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, mux.Vars(r)["id"])
	if !ok {
		return
	}
	var req struct {
		Caller  string `json:"caller"`
		Payment uint64 `json:"payment"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	buyer, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}
	if err := s.mkt.PurchaseItem(buyer, types.ItemID(id), req.Payment); err != nil {
		writeDomainError(w, err)
		return
	}
	item, err := s.mkt.Item(types.ItemID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	q := EventQuery{
		Name:     r.URL.Query().Get("name"),
		Contract: r.URL.Query().Get("contract"),
		Topic:    r.URL.Query().Get("topic"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		q.Limit = limit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid offset %q", v))
			return
		}
		q.Offset = offset
	}

	recs, err := s.store.Query(q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	type eventJSON struct {
		StoredRecord
		Payload any `json:"payload"`
	}
	res := make([]eventJSON, 0, len(recs))
	for _, rec := range recs {
		payload, err := decodePayload(rec.Name, rec.Data)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("decoding record %d: %w", rec.Seq, err))
			return
		}
		res = append(res, eventJSON{StoredRecord: rec, Payload: payload})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": res})
}

// decodePayload maps an event name to its payload type and decodes it.
func decodePayload(name string, data []byte) (any, error) {
	var v any
	switch name {
	case registry.EventTransfer:
		v = &registry.TransferEvent{}
	case registry.EventApproval:
		v = &registry.ApprovalEvent{}
	case registry.EventApprovalForAll:
		v = &registry.ApprovalForAllEvent{}
	case market.EventOffered:
		v = &market.OfferedEvent{}
	case market.EventBought:
		v = &market.BoughtEvent{}
	default:
		return nil, fmt.Errorf("unknown event type %q", name)
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func parseAddress(w http.ResponseWriter, s string) (types.Address, bool) {
	if !common.IsHexAddress(s) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid address %q", s))
		return types.Address{}, false
	}
	return common.HexToAddress(s), true
}

func parseID(w http.ResponseWriter, s string) (uint64, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id %q", s))
		return 0, false
	}
	return id, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFromCode(types.ErrorCode(err)), err)
}

// statusFromCode maps the domain error taxonomy to HTTP status codes.
func statusFromCode(code types.Code) int {
	switch code {
	case types.CodeInvalidArgument:
		return http.StatusBadRequest
	case types.CodeAuthorization:
		return http.StatusForbidden
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case types.CodeAlreadySold:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error": err.Error(),
		"code":  types.ErrorCode(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
