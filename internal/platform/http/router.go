package http

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trustmark-cpa/nexus-monitor/internal/business/ingest"
	"github.com/trustmark-cpa/nexus-monitor/internal/business/nexus"
	"github.com/trustmark-cpa/nexus-monitor/internal/repository"
	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// Router wires HTTP handlers.
type Router struct {
	records *repository.RecordRepository
	runs    *repository.RunRepository
	stats   *repository.StatsRepository
	alerts  *repository.AlertRepository
	ingest  *ingest.Service
	origins string
}

func NewRouter(records *repository.RecordRepository, runs *repository.RunRepository, stats *repository.StatsRepository, alerts *repository.AlertRepository, ingestSvc *ingest.Service, allowedOrigins string) *gin.Engine {
	r := &Router{
		records: records,
		runs:    runs,
		stats:   stats,
		alerts:  alerts,
		ingest:  ingestSvc,
		origins: allowedOrigins,
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), r.corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/records", r.listRecords)
		api.GET("/records/export", r.exportRecords)
		api.GET("/states", r.listStates)
		api.GET("/clients", r.listClients)
		api.GET("/clients/:clientId/memo", r.clientMemo)
		api.GET("/stats", r.getStats)
		api.POST("/stats/refresh", r.refreshStats)
		api.POST("/ingest/run", r.startIngest)
		api.POST("/ingest/reprocess", r.reprocessRecords)
		api.POST("/ingest/cancel", r.cancelIngest)
		api.GET("/ingest/status", r.getIngestStatus)
		api.GET("/ingest/runs", r.listIngestRuns)
		api.GET("/alerts", r.listAlerts)
		api.PATCH("/alerts/:id/ack", r.ackAlert)
		api.PATCH("/alerts/:id/resolve", r.resolveAlert)
	}

	return router
}

func (r *Router) corsMiddleware() gin.HandlerFunc {
	origins := strings.Split(r.origins, ",")
	trimmed := make([]string, 0, len(origins))
	for _, o := range origins {
		if t := strings.TrimSpace(o); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := "*"
		for _, o := range trimmed {
			if o == "*" || o == origin {
				allowed = origin
				break
			}
		}
		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

// recordView decorates a stored record with its derived classification so the
// frontend never recomputes tiers.
type recordView struct {
	model.ClientStateRecord
	Status      model.StatusTier `json:"status"`
	ProgressPct int              `json:"progressPct"`
	ColorToken  string           `json:"colorToken"`
}

func toRecordView(rec model.ClientStateRecord) recordView {
	threshold := nexus.EffectiveThreshold(rec.ThresholdAmount)
	tier := nexus.Classify(rec.CurrentAmount, threshold)
	return recordView{
		ClientStateRecord: rec,
		Status:            tier,
		ProgressPct:       nexus.ProgressPct(rec.CurrentAmount, threshold),
		ColorToken:        nexus.Project(tier).ColorToken,
	}
}

func (r *Router) listRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	activeParam := c.Query("active")
	var activePtr *bool
	if activeParam != "" {
		val := activeParam == "true"
		activePtr = &val
	}

	items, total, err := r.records.List(c.Request.Context(), repository.RecordQuery{
		StateCode: c.Query("state"),
		ClientID:  c.Query("clientId"),
		Active:    activePtr,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Classification is derived, so the status filter applies after the read.
	statusFilter := c.Query("status")
	views := make([]recordView, 0, len(items))
	for _, rec := range items {
		view := toRecordView(rec)
		if statusFilter != "" && string(view.Status) != statusFilter {
			continue
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"items": views,
		"total": total,
		"page":  page,
	})
}

func (r *Router) exportRecords(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=nexus_records.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write([]string{"clientId", "clientName", "stateCode", "currentAmount", "thresholdAmount", "status", "progressPct"}); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	err := r.records.StreamAll(c.Request.Context(), true, func(rec model.ClientStateRecord) error {
		view := toRecordView(rec)
		row := []string{
			rec.ClientID,
			rec.ClientName,
			rec.StateCode,
			fmt.Sprintf("%.2f", rec.CurrentAmount),
			fmt.Sprintf("%.2f", nexus.EffectiveThreshold(rec.ThresholdAmount)),
			string(view.Status),
			strconv.Itoa(view.ProgressPct),
		}
		return writer.Write(row)
	})
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}

// activeRecordsAndAlerts loads the inputs every aggregate endpoint shares.
func (r *Router) activeRecordsAndAlerts(c *gin.Context) ([]model.ClientStateRecord, []model.Alert, bool) {
	ctx := c.Request.Context()
	all, err := r.records.FetchAllMap(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch records: " + err.Error()})
		return nil, nil, false
	}
	// Sorted before filtering: the aggregate folds are order-sensitive and
	// must not inherit map iteration order.
	records := make([]model.ClientStateRecord, 0, len(all))
	for _, rec := range ingest.SortedRecords(all) {
		if rec.Active {
			records = append(records, rec)
		}
	}

	alerts, err := r.alerts.ListAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts: " + err.Error()})
		return nil, nil, false
	}
	return records, alerts, true
}

type stateView struct {
	model.StateAggregate
	ColorToken string `json:"colorToken"`
	Label      string `json:"label"`
}

func (r *Router) listStates(c *gin.Context) {
	records, alerts, ok := r.activeRecordsAndAlerts(c)
	if !ok {
		return
	}

	byState, order := nexus.AggregateByState(records, alerts)
	items := make([]stateView, 0, len(order))
	for _, code := range order {
		agg := byState[code]
		pres := nexus.Project(agg.Status)
		items = append(items, stateView{
			StateAggregate: agg,
			ColorToken:     pres.ColorToken,
			Label:          pres.Label,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

type clientView struct {
	model.ClientAggregate
	ColorToken string `json:"colorToken"`
	Label      string `json:"label"`
}

func (r *Router) listClients(c *gin.Context) {
	records, alerts, ok := r.activeRecordsAndAlerts(c)
	if !ok {
		return
	}

	byClient, order := nexus.AggregateByClient(records, alerts)
	items := make([]clientView, 0, len(order))
	for _, id := range order {
		agg := byClient[id]
		pres := nexus.Project(agg.Status)
		items = append(items, clientView{
			ClientAggregate: agg,
			ColorToken:      pres.ColorToken,
			Label:           pres.Label,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (r *Router) clientMemo(c *gin.Context) {
	clientID := c.Param("clientId")
	records, alerts, ok := r.activeRecordsAndAlerts(c)
	if !ok {
		return
	}

	byClient, _ := nexus.AggregateByClient(records, alerts)
	agg, found := byClient[clientID]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found: " + clientID})
		return
	}

	memo, err := ingest.RenderMemo(agg, records, alerts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(memo))
}

func (r *Router) getStats(c *gin.Context) {
	stats, err := r.stats.GetSystemStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (r *Router) refreshStats(c *gin.Context) {
	stats, err := r.ingest.RefreshStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type startIngestReq struct {
	CSV string `json:"csv"`
}

func (r *Router) startIngest(c *gin.Context) {
	var req startIngestReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	runID, err := r.ingest.StartUpload(c.Request.Context(), req.CSV)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runId":   runID,
		"message": "Ingest started. Check status with GET /api/ingest/status?runId=" + runID,
	})
}

type reprocessReq struct {
	TargetVersion string `json:"targetVersion"` // Optional: ruleset version to update to (defaults to current)
	OnlyOutdated  bool   `json:"onlyOutdated"`  // Optional: only reprocess records parsed under a different ruleset
	ForceRescan   bool   `json:"forceRescan"`   // Optional: force PII re-scan even if data unchanged (for mock->real API switch)
}

func (r *Router) reprocessRecords(c *gin.Context) {
	var req reprocessReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	opts := ingest.ReprocessOptions{
		TargetVersion: req.TargetVersion,
		OnlyOutdated:  req.OnlyOutdated,
		ForceRescan:   req.ForceRescan,
	}

	runID, err := r.ingest.Reprocess(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runId":   runID,
		"message": "Reprocessing started. Check status with GET /api/ingest/status?runId=" + runID,
	})
}

type cancelReq struct {
	RunID string `json:"runId"`
}

func (r *Router) cancelIngest(c *gin.Context) {
	var req cancelReq
	if err := c.BindJSON(&req); err != nil || req.RunID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "runId is required"})
		return
	}
	if !r.ingest.Cancel(req.RunID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running job with runId " + req.RunID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runId": req.RunID, "message": "cancellation requested"})
}

func (r *Router) getIngestStatus(c *gin.Context) {
	runID := c.Query("runId")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "runId is required"})
		return
	}
	run, err := r.runs.GetRun(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (r *Router) listIngestRuns(c *gin.Context) {
	runs, err := r.runs.ListRuns(c.Request.Context(), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

func (r *Router) listAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	alerts, err := r.alerts.List(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": alerts})
}

func (r *Router) ackAlert(c *gin.Context) {
	r.updateAlertStatus(c, "acknowledged")
}

func (r *Router) resolveAlert(c *gin.Context) {
	r.updateAlertStatus(c, "resolved")
}

func (r *Router) updateAlertStatus(c *gin.Context, newStatus string) {
	id := c.Param("id")
	err := r.alerts.UpdateStatus(c.Request.Context(), id, newStatus)
	if errors.Is(err, repository.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found: " + id})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": newStatus})
}
