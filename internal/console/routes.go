package console

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/contentops/driftgate/internal/auth"
	"github.com/contentops/driftgate/internal/drift"
	"github.com/contentops/driftgate/internal/events"
	"github.com/contentops/driftgate/internal/govern"
	"github.com/contentops/driftgate/internal/guard"
	"github.com/contentops/driftgate/internal/ledger"
	"github.com/contentops/driftgate/internal/observability"
	"github.com/contentops/driftgate/internal/rehearsal"
	"github.com/contentops/driftgate/internal/remedy"
)

func (s *Service) registerRoutes() {
	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	guarded := s.router.Group("/", auth.Middleware(auth.SharedSecret{Secret: s.cfg.SharedSecret}))
	guarded.POST("/governance", s.handleGovernance)
	guarded.POST("/fallbacks", s.handleRemediate)
	guarded.POST("/fallbacks/simulate", s.handleSimulate)
	guarded.GET("/fallbacks/rehearsals/:id", s.handleRehearsal)
	guarded.POST("/manifests", s.handlePersistManifest)
	guarded.GET("/manifests/history", s.handleHistory)
	guarded.GET("/manifests/:id/guard", s.handleGuard)
}

func (s *Service) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.started).String(),
		"node":    s.cfg.NodeID,
		"version": "0.1.0",
	})
}

func (s *Service) handleGovernance(c *gin.Context) {
	var req governanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in := govern.Input{
		ManifestID: req.ManifestID,
		ActionKind: req.ActionKind,
		ActorID:    req.ActorID,
		Metadata:   req.Metadata,
		ID:         req.ID,
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}

	rec, matched, err := s.govern.Record(in)
	if err != nil {
		if errors.Is(err, govern.ErrInvalidAction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !matched {
		log.Debug().
			Str("manifest_id", rec.ManifestID).
			Str("action_kind", rec.ActionKind).
			Msg("governance action matched no retained manifest")
	}

	c.JSON(http.StatusCreated, gin.H{"action": rec})
}

func (s *Service) handleSimulate(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var req simulateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ExpectedDeltas == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expectedDeltas is required"})
		return
	}

	// An omitted target timestamp rehearses against the newest capture;
	// an empty ledger falls through to the manifest-missing path.
	var target time.Time
	if req.ManifestGeneratedAt != nil {
		target = *req.ManifestGeneratedAt
	} else {
		latest, ok, err := s.ledger.LatestEntry()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if ok {
			target = latest.GeneratedAt
		}
	}

	scenario := rehearsal.Scenario{
		ManifestGeneratedAt: target,
		Fingerprint:         req.ScenarioFingerprint,
		ExpectedDeltas:      *req.ExpectedDeltas,
		OperatorID:          req.OperatorID,
		Payload:             raw,
	}
	if err := scenario.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	live, err := s.ledger.LiveSummary(target)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	eval := rehearsal.Evaluate(scenario.ExpectedDeltas, live)
	rec := s.builder.BuildRecord(scenario, eval)

	anchored, err := s.ledger.AppendRehearsal(rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	observability.RecordRehearsalVerdict(string(rec.Verdict), anchored)
	s.emitter.Emit(events.NewRehearsalEvent(rec, anchored))

	c.JSON(http.StatusCreated, gin.H{
		"rehearsal": maskRehearsal(rec),
		"evaluation": evaluationView{
			Verdict:        eval.Verdict,
			Diff:           eval.Diff,
			ActualDeltas:   eval.ActualDeltas,
			FailureReasons: eval.FailureReasons,
			Comparison:     eval.Comparison,
		},
	})
}

func (s *Service) handleRehearsal(c *gin.Context) {
	rec, outcome, found, err := s.ledger.FindRehearsal(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "rehearsal not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rehearsal":    maskRehearsal(rec),
		"liveOutcomes": outcome,
	})
}

func (s *Service) handleRemediate(c *gin.Context) {
	var req remediateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if s.cfg.GuardEnforced {
		if blocked := s.enforceGuard(c, req.Mode); blocked {
			return
		}
	}

	rec, counters, err := s.remedy.Record(remedy.Input{
		Route:       req.Route,
		Action:      req.Action,
		Fingerprint: req.Fingerprint,
		Mode:        req.Mode,
	})
	if err != nil {
		if errors.Is(err, remedy.ErrInvalidRemediation) || errors.Is(err, ledger.ErrNoManifest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"remediation": rec,
		"counters":    counters,
	})
}

// enforceGuard consults the guard against the newest manifest before a
// live remediation. Reports whether it wrote a response. Invalid modes
// and an empty ledger fall through to the recorder's own validation.
func (s *Service) enforceGuard(c *gin.Context, rawMode string) bool {
	mode, err := drift.ParseRecordMode(rawMode)
	if err != nil || mode != drift.ModeLive {
		return false
	}

	latest, ok, err := s.ledger.LatestEntry()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return true
	}
	if !ok {
		return false
	}

	decision := guard.Evaluate(latest.Rehearsals, latest.GeneratedAt)
	observability.RecordGuardDecision(string(decision.State), decision.Allowed)
	if decision.Allowed {
		return false
	}

	c.JSON(http.StatusConflict, gin.H{"error": strings.Join(decision.Reasons, "; ")})
	return true
}

func (s *Service) handlePersistManifest(c *gin.Context) {
	var req persistManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m := drift.Manifest{
		ID:          req.Manifest.ID,
		GeneratedAt: req.Manifest.GeneratedAt,
		Snapshots:   req.Manifest.Snapshots,
	}
	res, err := s.ledger.PersistManifest(m, req.RouteSummaries, s.cfg.Retention)
	if err != nil {
		switch {
		case errors.Is(err, drift.ErrInvalidManifest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ledger.ErrGeneratedAtConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	observability.SetLedgerRetained(res.Retained)
	if res.Evicted > 0 {
		observability.AddLedgerEvictions(res.Evicted)
	}

	c.JSON(http.StatusCreated, gin.H{
		"manifestId": m.ID,
		"retained":   res.Retained,
	})
}

func (s *Service) handleHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	mode, err := drift.ParseActionMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := s.ledger.QueryHistory(limit, mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": viewHistory(entries)})
}

func (s *Service) handleGuard(c *gin.Context) {
	entry, ok, err := s.ledger.Entry(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "manifest not found"})
		return
	}

	decision := guard.Evaluate(entry.Rehearsals, entry.GeneratedAt)
	observability.RecordGuardDecision(string(decision.State), decision.Allowed)
	c.JSON(http.StatusOK, decision)
}
