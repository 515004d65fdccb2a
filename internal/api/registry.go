package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"solana-security-token/internal/domain"
)

func (s *Server) registerRegistryRoutes(r chi.Router) {
	r.Route("/registries/{mint}", func(r chi.Router) {
		r.Post("/", s.handleInitializeRegistry)
		r.Get("/", s.handleGetRegistry)
		r.Put("/paused", s.handleSetPaused)
		r.Put("/holder-max", s.handleSetHolderMax)
		r.Put("/lockup-escrow", s.handleSetLockupEscrow)
		r.Get("/events", s.handleListEvents)

		r.Post("/groups", s.handleInitializeGroup)
		r.Get("/groups", s.handleListGroups)
		r.Get("/groups/{group}", s.handleGetGroup)
		r.Put("/groups/{group}/holder-max", s.handleSetGroupHolderMax)

		r.Post("/holders", s.handleCreateHolder)
		r.Get("/holders/{holder}", s.handleGetHolder)
		r.Delete("/holders/{holder}", s.handleRevokeHolder)
		r.Post("/holders/{holder}/groups", s.handleCreateHolderGroup)
		r.Get("/holders/{holder}/groups/{group}", s.handleGetHolderGroup)
		r.Delete("/holders/{holder}/groups/{group}", s.handleRevokeHolderGroup)

		r.Post("/wallets", s.handleBindWallet)
		r.Get("/wallets/{wallet}", s.handleGetWallet)
		r.Delete("/wallets/{wallet}", s.handleUnbindWallet)
		r.Put("/wallets/{wallet}/group", s.handleMoveWallet)

		r.Post("/rules", s.handleInitializeRule)
		r.Get("/rules/{from}/{to}", s.handleGetRule)
		r.Put("/rules/{from}/{to}", s.handleSetRuleLockedUntil)

		r.Post("/enforce", s.handleEnforce)

		r.Post("/mint", s.handleMint)
		r.Post("/transfers", s.handleTransfer)
		r.Post("/forced-transfers", s.handleForceTransfer)
		r.Get("/balances/{wallet}", s.handleBalance)
	})
}

// mutate runs the common prelude of a mutating route: caller, then body.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, body any) (string, bool) {
	c, err := caller(r)
	if err == nil && body != nil {
		err = decode(r, body)
	}
	if err != nil {
		s.writeError(w, r, err)
		return "", false
	}
	return c, true
}

func (s *Server) handleInitializeRegistry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxHolders uint64 `json:"max_holders"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	reg, err := s.compliance.InitializeRegistry(r.Context(), c, chi.URLParam(r, "mint"), req.MaxHolders)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRegistryView(reg))
}

func (s *Server) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	reg, err := s.compliance.Registry(r.Context(), chi.URLParam(r, "mint"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRegistryView(reg))
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused bool `json:"paused"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.compliance.SetPaused(r.Context(), c, chi.URLParam(r, "mint"), req.Paused); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetHolderMax(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxHolders uint64 `json:"max_holders"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.compliance.SetHolderMax(r.Context(), c, chi.URLParam(r, "mint"), req.MaxHolders); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetLockupEscrow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Escrow string `json:"escrow"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.compliance.SetLockupEscrow(r.Context(), c, chi.URLParam(r, "mint"), req.Escrow); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		http.NotFound(w, r)
		return
	}
	limit, err := uintQuery(r, "limit", 100)
	if err == nil && limit > 10000 {
		err = badRequest("limit must not exceed 10000")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	events, err := s.events.ListByMint(r.Context(), chi.URLParam(r, "mint"), int(limit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{
			ID:         e.ID,
			Scope:      e.Scope,
			Operation:  e.Operation,
			Caller:     e.Caller,
			Outcome:    e.Outcome,
			Code:       e.Code,
			Attributes: e.Attributes,
			Timestamp:  e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInitializeGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID         uint64 `json:"id"`
		MaxHolders uint64 `json:"max_holders"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.compliance.InitializeGroup(r.Context(), c, chi.URLParam(r, "mint"), req.ID, req.MaxHolders); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.compliance.Groups(r.Context(), chi.URLParam(r, "mint"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]groupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, newGroupView(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "group")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.compliance.Group(r.Context(), chi.URLParam(r, "mint"), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGroupView(g))
}

func (s *Server) handleSetGroupHolderMax(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxHolders uint64 `json:"max_holders"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	id, err := uintParam(r, "group")
	if err == nil {
		err = s.compliance.SetHolderGroupMax(r.Context(), c, chi.URLParam(r, "mint"), id, req.MaxHolders)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateHolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID uint64 `json:"id"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.compliance.CreateHolder(r.Context(), c, chi.URLParam(r, "mint"), req.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleGetHolder(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "holder")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	h, err := s.compliance.Holder(r.Context(), chi.URLParam(r, "mint"), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holderView{
		ID:                      h.ID,
		Active:                  h.Active,
		CurrentWalletsCount:     h.CurrentWalletsCount,
		CurrentHolderGroupCount: h.CurrentHolderGroupCount,
	})
}

func (s *Server) handleRevokeHolder(w http.ResponseWriter, r *http.Request) {
	c, ok := s.mutate(w, r, nil)
	if !ok {
		return
	}
	id, err := uintParam(r, "holder")
	if err == nil {
		err = s.compliance.RevokeHolder(r.Context(), c, chi.URLParam(r, "mint"), id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateHolderGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Group uint64 `json:"group"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	holderID, err := uintParam(r, "holder")
	if err == nil {
		err = s.compliance.CreateHolderGroup(r.Context(), c, chi.URLParam(r, "mint"), holderID, req.Group)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) holderGroupParams(r *http.Request) (holderID, groupID uint64, err error) {
	if holderID, err = uintParam(r, "holder"); err != nil {
		return 0, 0, err
	}
	if groupID, err = uintParam(r, "group"); err != nil {
		return 0, 0, err
	}
	return holderID, groupID, nil
}

func (s *Server) handleGetHolderGroup(w http.ResponseWriter, r *http.Request) {
	holderID, groupID, err := s.holderGroupParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hg, err := s.compliance.HolderGroup(r.Context(), chi.URLParam(r, "mint"), holderID, groupID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holderGroupView{Group: hg.Group, Holder: hg.Holder, CurrentWalletsCount: hg.CurrentWalletsCount})
}

func (s *Server) handleRevokeHolderGroup(w http.ResponseWriter, r *http.Request) {
	c, ok := s.mutate(w, r, nil)
	if !ok {
		return
	}
	holderID, groupID, err := s.holderGroupParams(r)
	if err == nil {
		err = s.compliance.RevokeHolderGroup(r.Context(), c, chi.URLParam(r, "mint"), holderID, groupID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBindWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet string  `json:"wallet"`
		Group  uint64  `json:"group"`
		Holder *uint64 `json:"holder"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	b, err := s.compliance.BindWallet(r.Context(), c, chi.URLParam(r, "mint"), req.Wallet, req.Group, req.Holder)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newWalletView(b))
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	b, err := s.compliance.WalletBinding(r.Context(), chi.URLParam(r, "mint"), chi.URLParam(r, "wallet"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newWalletView(b))
}

func (s *Server) handleUnbindWallet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.mutate(w, r, nil)
	if !ok {
		return
	}
	if err := s.compliance.UnbindWallet(r.Context(), c, chi.URLParam(r, "mint"), chi.URLParam(r, "wallet")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Group uint64 `json:"group"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.compliance.MoveWallet(r.Context(), c, chi.URLParam(r, "mint"), chi.URLParam(r, "wallet"), req.Group); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInitializeRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From        uint64 `json:"from"`
		To          uint64 `json:"to"`
		LockedUntil uint64 `json:"locked_until"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.compliance.InitializeTransferRule(r.Context(), c, chi.URLParam(r, "mint"), req.From, req.To, req.LockedUntil); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) ruleParams(r *http.Request) (from, to uint64, err error) {
	if from, err = uintParam(r, "from"); err != nil {
		return 0, 0, err
	}
	if to, err = uintParam(r, "to"); err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.ruleParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rule, err := s.compliance.TransferRule(r.Context(), chi.URLParam(r, "mint"), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ruleView{From: rule.GroupFrom, To: rule.GroupTo, LockedUntil: rule.LockedUntil})
}

func (s *Server) handleSetRuleLockedUntil(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LockedUntil uint64 `json:"locked_until"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	from, to, err := s.ruleParams(r)
	if err == nil {
		err = s.compliance.SetTransferRuleLockedUntil(r.Context(), c, chi.URLParam(r, "mint"), from, to, req.LockedUntil)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEnforce answers the transfer hook: 200 with the decision, denials
// included. Only infrastructure failures produce an error status.
func (s *Server) handleEnforce(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
		Amount      uint64 `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.hook.Decide(r.Context(), domain.MovementRequest{
		Mint:   chi.URLParam(r, "mint"),
		From:   req.Source,
		To:     req.Destination,
		Amount: req.Amount,
		Kind:   domain.MovementTransfer,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := map[string]any{"allowed": d.Allowed}
	if !d.Allowed {
		resp["code"] = string(domain.CodeOf(d.Reason))
		resp["message"] = d.Reason.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet string `json:"wallet"`
		Amount uint64 `json:"amount"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.token.Mint(r.Context(), c, chi.URLParam(r, "mint"), req.Wallet, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To     string `json:"to"`
		Amount uint64 `json:"amount"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.token.Transfer(r.Context(), c, chi.URLParam(r, "mint"), req.To, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleForceTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string `json:"from"`
		To     string `json:"to"`
		Amount uint64 `json:"amount"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.token.ForceTransfer(r.Context(), c, chi.URLParam(r, "mint"), req.From, req.To, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	bal, err := s.token.BalanceOf(r.Context(), chi.URLParam(r, "mint"), wallet)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallet": wallet, "amount": bal})
}
