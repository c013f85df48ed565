package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"trivehive/internal/accounts"
	"trivehive/internal/audit"
	"trivehive/internal/auth"
	"trivehive/internal/calls"
	"trivehive/internal/reporting"
	"trivehive/pkg/logger"
	"trivehive/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal modules, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Calls    calls.Store
	Accounts accounts.Store
	Reports  *reporting.Service
	Audit    *audit.Service

	// DB is used for the reattach transaction; nil in handler tests that
	// run against memory stores.
	DB *sql.DB
}

// --- Auth ---

type loginRequest struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: credential validation is delegated to the external auth provider;
// this endpoint exchanges an already-verified identity for API tokens.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AccountID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account_id and role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.AccountID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Calls ---

// callView decorates a stored record with the status bucket the dashboard
// renders, so clients do not re-implement the mapping.
type callView struct {
	calls.Record
	DisplayStatus calls.DisplayStatus `json:"display_status"`
}

func viewOf(rec calls.Record) callView {
	return callView{Record: rec, DisplayStatus: calls.Display(rec.Status)}
}

func (h Handlers) ListCalls(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	accountID, err := auth.AccountID(c.Request.Context())
	if err != nil || accountID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
		return
	}

	q := calls.ListQuery{
		Search: c.Query("search"),
		Limit:  intQuery(c, "limit"),
		Offset: intQuery(c, "offset"),
	}
	recs, err := h.Calls.ListByAccount(c.Request.Context(), accountID, q)
	if err != nil {
		logger.FromGin(c).Error("call list failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call list failed"})
		return
	}

	views := make([]callView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, viewOf(rec))
	}
	c.JSON(http.StatusOK, gin.H{"calls": views})
}

func (h Handlers) GetCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	accountID, err := auth.AccountID(c.Request.Context())
	if err != nil || accountID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
		return
	}
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	rec, err := h.Calls.GetByAccount(c.Request.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		logger.FromGin(c).Error("call fetch failed", "id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call fetch failed"})
		return
	}
	c.JSON(http.StatusOK, viewOf(rec))
}

// --- Reporting ---

func (h Handlers) CallsSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	accountID, err := auth.AccountID(c.Request.Context())
	if err != nil || accountID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
		return
	}

	// Default window: the overview page shows the last 30 days.
	now := time.Now().UTC()
	rng := reporting.TimeRange{From: now.AddDate(0, 0, -30), To: now}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		rng.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		rng.To = t
	}

	summary, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		AccountID: accountID,
		Range:     rng,
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		logger.FromGin(c).Error("calls summary failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// --- Settings ---

func (h Handlers) GetSettings(c *gin.Context) {
	if h.Accounts == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "accounts not configured"})
		return
	}
	accountID, err := auth.AccountID(c.Request.Context())
	if err != nil || accountID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
		return
	}

	s, err := h.Accounts.GetByAccount(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			// A fresh account has no settings row yet; return an empty one
			// instead of making the dashboard special-case 404.
			c.JSON(http.StatusOK, accounts.Settings{AccountID: accountID})
			return
		}
		logger.FromGin(c).Error("settings fetch failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "settings fetch failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

type updateProfileRequest struct {
	FullName     *string `json:"full_name"`
	BusinessName *string `json:"business_name"`
}

func (h Handlers) UpdateProfile(c *gin.Context) {
	if h.Accounts == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "accounts not configured"})
		return
	}
	accountID, err := auth.AccountID(c.Request.Context())
	if err != nil || accountID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.FullName == nil && req.BusinessName == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	if err := h.Accounts.UpdateProfile(c.Request.Context(), accountID, req.FullName, req.BusinessName); err != nil {
		logger.FromGin(c).Error("profile update failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type updateAssistantRequest struct {
	AssistantID string `json:"assistant_id"`
}

func (h Handlers) UpdateAssistant(c *gin.Context) {
	if h.Accounts == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "accounts not configured"})
		return
	}
	accountID, err := auth.AccountID(c.Request.Context())
	if err != nil || accountID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
		return
	}
	var req updateAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AssistantID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "assistant_id required"})
		return
	}
	if err := h.Accounts.UpsertAssistantID(c.Request.Context(), accountID, req.AssistantID); err != nil {
		logger.FromGin(c).Error("assistant binding update failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "assistant update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- Admin ---

func (h Handlers) ListOrphanCalls(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	recs, err := h.Calls.ListOrphans(c.Request.Context(), intQuery(c, "limit"))
	if err != nil {
		logger.FromGin(c).Error("orphan list failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "orphan list failed"})
		return
	}
	views := make([]callView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, viewOf(rec))
	}
	c.JSON(http.StatusOK, gin.H{"calls": views})
}

type reattachRequest struct {
	AccountID string `json:"account_id"`
}

// ReattachCall assigns an orphan call to an account. This is the out-of-band
// attribution repair path: ingestion never blocks on a failed lookup, it
// stores the orphan and an operator fixes ownership here.
func (h Handlers) ReattachCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	vapiCallID := c.Param("vapi_call_id")
	if vapiCallID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "vapi_call_id required"})
		return
	}
	var req reattachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AccountID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "account_id required"})
		return
	}

	if err := h.reattach(c.Request.Context(), vapiCallID, req.AccountID); err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no orphan call with that id"})
			return
		}
		logger.FromGin(c).Error("reattach failed", "vapi_call_id", vapiCallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reattach failed"})
		return
	}

	if h.Audit != nil {
		actorID, _ := auth.AccountID(c.Request.Context())
		actorRole, _ := auth.Role(c.Request.Context())
		if err := h.Audit.LogReattach(c.Request.Context(), actorID, actorRole, c.ClientIP(), vapiCallID, req.AccountID); err != nil {
			// Best-effort only.
			logger.FromGin(c).Warn("reattach audit failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "vapi_call_id": vapiCallID, "account_id": req.AccountID})
}

func (h Handlers) reattach(ctx context.Context, vapiCallID, accountID string) error {
	if h.DB == nil {
		return h.Calls.Reattach(ctx, nil, vapiCallID, accountID)
	}
	return utils.WithTx(ctx, h.DB, nil, func(ctx context.Context, tx *sql.Tx) error {
		return h.Calls.Reattach(ctx, tx, vapiCallID, accountID)
	})
}

func intQuery(c *gin.Context, key string) int {
	v := c.Query(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
