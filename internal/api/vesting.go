package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"solana-security-token/internal/reporting"
	"solana-security-token/internal/vesting"
)

func (s *Server) registerVestingRoutes(r chi.Router) {
	r.Post("/deployments", s.handleInitializeDeployment)
	r.Route("/deployments/{deployment}", func(r chi.Router) {
		r.Get("/", s.handleGetDeployment)

		r.Post("/schedules", s.handleCreateSchedule)
		r.Get("/schedules", s.handleListSchedules)
		r.Get("/schedules/{schedule}", s.handleGetSchedule)
		r.Get("/schedules/{schedule}/timeline", s.handleTimeline)

		r.Post("/timelocks", s.handleMintTimelock)
		r.Get("/timelocks/{recipient}", s.handleListTimelocks)
		r.Get("/timelocks/{recipient}/{timelock}/balance", s.handleTimelockBalance)

		r.Post("/withdrawals", s.handleWithdraw)
		r.Post("/transfers", s.handleTransferUnlocked)
		r.Post("/cancellations", s.handleCancel)
	})
}

func (s *Server) handleInitializeDeployment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mint              string `json:"mint"`
		Nonce             uint64 `json:"nonce"`
		MaxReleaseDelay   uint64 `json:"max_release_delay"`
		MinTimelockAmount uint64 `json:"min_timelock_amount"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	d, err := s.vesting.InitializeDeployment(r.Context(), c, req.Mint, req.Nonce, req.MaxReleaseDelay, req.MinTimelockAmount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newDeploymentView(d))
}

func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	d, err := s.vesting.Deployment(r.Context(), chi.URLParam(r, "deployment"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeploymentView(d))
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReleaseCount                  uint64 `json:"release_count"`
		DelayUntilFirstReleaseSeconds uint64 `json:"delay_until_first_release_seconds"`
		InitialReleaseBips            uint64 `json:"initial_release_bips"`
		PeriodBetweenReleasesSeconds  uint64 `json:"period_between_releases_seconds"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	id, err := s.vesting.CreateSchedule(r.Context(), c, chi.URLParam(r, "deployment"), vesting.ScheduleParams{
		ReleaseCount:                  req.ReleaseCount,
		DelayUntilFirstReleaseSeconds: req.DelayUntilFirstReleaseSeconds,
		InitialReleaseBips:            req.InitialReleaseBips,
		PeriodBetweenReleasesSeconds:  req.PeriodBetweenReleasesSeconds,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	scheds, err := s.vesting.Schedules(r.Context(), chi.URLParam(r, "deployment"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]scheduleView, 0, len(scheds))
	for _, sc := range scheds {
		out = append(out, newScheduleView(sc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "schedule")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sc, err := s.vesting.Schedule(r.Context(), chi.URLParam(r, "deployment"), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScheduleView(sc))
}

type timelineView struct {
	Deployment    string                 `json:"deployment"`
	ScheduleID    uint64                 `json:"schedule_id"`
	Commencement  uint64                 `json:"commencement"`
	Amount        uint64                 `json:"amount"`
	FullyVestedAt uint64                 `json:"fully_vested_at"`
	Truncated     bool                   `json:"truncated"`
	Points        []vesting.ReleasePoint `json:"points"`
}

// handleTimeline renders the unlock timeline of a grant under the schedule.
// format selects json (default), csv or markdown.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "schedule")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	commencement, err := uintQuery(r, "commencement", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := uintQuery(r, "amount", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	switch format {
	case "", "json", "csv", "markdown":
	default:
		s.writeError(w, r, badRequest("unknown format %q", format))
		return
	}

	rep, err := s.reports.Generate(r.Context(), chi.URLParam(r, "deployment"), id, commencement, amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(reporting.RenderCSV(rep.Points)))
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(reporting.RenderMarkdown(rep)))
	default:
		points := rep.Points
		if points == nil {
			points = []vesting.ReleasePoint{}
		}
		writeJSON(w, http.StatusOK, timelineView{
			Deployment:    rep.Deployment,
			ScheduleID:    id,
			Commencement:  rep.Commencement,
			Amount:        rep.Amount,
			FullyVestedAt: rep.FullyVestedAt,
			Truncated:     rep.Truncated,
			Points:        points,
		})
	}
}

func (s *Server) handleMintTimelock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipient    string   `json:"recipient"`
		Amount       uint64   `json:"amount"`
		Commencement uint64   `json:"commencement"`
		ScheduleID   uint64   `json:"schedule_id"`
		CancelableBy []string `json:"cancelable_by"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	id, err := s.vesting.MintTimelock(r.Context(), c, chi.URLParam(r, "deployment"), vesting.MintParams{
		Recipient:    req.Recipient,
		Amount:       req.Amount,
		Commencement: req.Commencement,
		ScheduleID:   req.ScheduleID,
		CancelableBy: req.CancelableBy,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

// handleListTimelocks returns every timelock of the recipient with its
// current balances, plus their sum.
func (s *Server) handleListTimelocks(w http.ResponseWriter, r *http.Request) {
	deployment, recipient := chi.URLParam(r, "deployment"), chi.URLParam(r, "recipient")
	locks, err := s.vesting.Timelocks(r.Context(), deployment, recipient)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]timelockView, 0, len(locks))
	for _, t := range locks {
		bal, err := s.vesting.TimelockBalance(r.Context(), deployment, recipient, t.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		cancelers := t.CancelableBy
		if cancelers == nil {
			cancelers = []string{}
		}
		out = append(out, timelockView{
			ID:                    t.ID,
			ScheduleID:            t.ScheduleID,
			TotalAmount:           t.TotalAmount,
			CommencementTimestamp: t.CommencementTimestamp,
			TokensTransferred:     t.TokensTransferred,
			CancelableBy:          cancelers,
			Balance:               bal,
		})
	}
	total, err := s.vesting.RecipientBalance(r.Context(), deployment, recipient)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timelocks": out, "balance": total})
}

func (s *Server) handleTimelockBalance(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "timelock")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bal, err := s.vesting.TimelockBalance(r.Context(), chi.URLParam(r, "deployment"), chi.URLParam(r, "recipient"), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Timelock uint64 `json:"timelock"`
		Amount   uint64 `json:"amount"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.vesting.Withdraw(r.Context(), c, chi.URLParam(r, "deployment"), req.Timelock, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransferUnlocked(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount uint64 `json:"amount"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	if err := s.vesting.TransferUnlocked(r.Context(), c, chi.URLParam(r, "deployment"), req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipient string `json:"recipient"`
		Timelock  uint64 `json:"timelock"`
		ReclaimTo string `json:"reclaim_to"`
	}
	c, ok := s.mutate(w, r, &req)
	if !ok {
		return
	}
	res, err := s.vesting.Cancel(r.Context(), c, chi.URLParam(r, "deployment"), req.Recipient, req.Timelock, req.ReclaimTo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"paid_out": res.PaidOut, "reclaimed": res.Reclaimed})
}
