package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/reviewpilot/platform/pkg/common/logger"
	"github.com/reviewpilot/platform/pkg/common/models"
	"github.com/reviewpilot/platform/pkg/connections"
	"github.com/reviewpilot/platform/pkg/dispatch"
	"github.com/reviewpilot/platform/pkg/ingest"
	"github.com/reviewpilot/platform/pkg/ledger"
	"github.com/reviewpilot/platform/pkg/platform"
	"github.com/reviewpilot/platform/pkg/replies"
	"github.com/reviewpilot/platform/pkg/stores"
	"github.com/reviewpilot/platform/pkg/templates"
)

// Tab names as the operator UI shows them. They map onto workflow states;
// "ALL" is no restriction.
const (
	TabAll          = "ALL"
	TabPending      = "등록대기"
	TabUnregistered = "미등록"
	TabRegistered   = "완료"
)

func tabToState(tab string) (*models.WorkflowState, error) {
	switch tab {
	case "", TabAll:
		return nil, nil
	case TabPending:
		s := models.StatePendingRegistration
		return &s, nil
	case TabUnregistered:
		s := models.StateUnregistered
		return &s, nil
	case TabRegistered:
		s := models.StateRegistered
		return &s, nil
	default:
		return nil, fmt.Errorf("unknown tab %q", tab)
	}
}

type Handler struct {
	stores    *stores.Repository
	templates *templates.Repository
	conns     *connections.Service
	ledger    *ledger.Repository
	pipeline  *ingest.Pipeline
	engine    *dispatch.Engine
	replies   *replies.Repository
	registry  *platform.Registry
	maxBody   int64
}

func NewHandler(
	storeRepo *stores.Repository,
	templateRepo *templates.Repository,
	connSvc *connections.Service,
	ledgerRepo *ledger.Repository,
	pipeline *ingest.Pipeline,
	engine *dispatch.Engine,
	replyRepo *replies.Repository,
	registry *platform.Registry,
	maxBody int64,
) *Handler {
	return &Handler{
		stores:    storeRepo,
		templates: templateRepo,
		conns:     connSvc,
		ledger:    ledgerRepo,
		pipeline:  pipeline,
		engine:    engine,
		replies:   replyRepo,
		registry:  registry,
		maxBody:   maxBody,
	}
}

func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/stores", h.handleListStores).Methods(http.MethodGet)
	router.HandleFunc("/stores", h.handleCreateStore).Methods(http.MethodPost)
	router.HandleFunc("/templates", h.handleListTemplates).Methods(http.MethodGet)
	router.HandleFunc("/templates", h.handleCreateTemplate).Methods(http.MethodPost)
	router.HandleFunc("/connections", h.handleListConnections).Methods(http.MethodGet)
	router.HandleFunc("/connections", h.handleCreateConnection).Methods(http.MethodPost)
	router.HandleFunc("/connections/{storeID}/{platform}", h.handleDeleteConnection).Methods(http.MethodDelete)
	router.HandleFunc("/reviews", h.handleListReviews).Methods(http.MethodGet)
	router.HandleFunc("/reviews/sync", h.handleSync).Methods(http.MethodPost)
	router.HandleFunc("/replies/bulk", h.handleBulkReplies).Methods(http.MethodPost)
	router.HandleFunc("/replies", h.handleListReplies).Methods(http.MethodGet)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func internalError(w http.ResponseWriter, err error, msg string) {
	logger.Log.WithError(err).Error(msg)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (h *Handler) handleListStores(w http.ResponseWriter, r *http.Request) {
	out, err := h.stores.List(r.Context())
	if err != nil {
		internalError(w, err, "failed to list stores")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := h.decode(w, r, &req); err != nil || req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	store, err := h.stores.Create(r.Context(), req.Name)
	if err != nil {
		internalError(w, err, "failed to create store")
		return
	}
	writeJSON(w, http.StatusCreated, store)
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	out, err := h.templates.List(r.Context())
	if err != nil {
		internalError(w, err, "failed to list templates")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Body string `json:"body"`
	}
	if err := h.decode(w, r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tmpl, err := h.templates.Create(r.Context(), req.Name, req.Body)
	if err != nil {
		if errors.Is(err, templates.ErrEmptyTemplate) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		internalError(w, err, "failed to create template")
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) handleListConnections(w http.ResponseWriter, r *http.Request) {
	out, err := h.conns.List(r.Context())
	if err != nil {
		internalError(w, err, "failed to list connections")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StoreID  int64  `json:"store_id"`
		Platform string `json:"platform"`
		LoginID  string `json:"login_id"`
		Password string `json:"password"`
	}
	if err := h.decode(w, r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.StoreID == 0 || req.LoginID == "" || req.Password == "" {
		http.Error(w, "store_id, login_id and password required", http.StatusBadRequest)
		return
	}

	p := models.Platform(req.Platform)
	if _, err := h.registry.Resolve(p); err != nil {
		http.Error(w, fmt.Sprintf("unsupported platform %q", req.Platform), http.StatusBadRequest)
		return
	}
	if _, err := h.stores.Get(r.Context(), req.StoreID); err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			http.Error(w, "store not found", http.StatusBadRequest)
			return
		}
		internalError(w, err, "failed to resolve store")
		return
	}

	conn, err := h.conns.Upsert(r.Context(), req.StoreID, p, req.LoginID, req.Password)
	if err != nil {
		internalError(w, err, "failed to save connection")
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

func (h *Handler) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	storeID, err := strconv.ParseInt(vars["storeID"], 10, 64)
	if err != nil {
		http.Error(w, "invalid store id", http.StatusBadRequest)
		return
	}

	if err := h.conns.Delete(r.Context(), storeID, models.Platform(vars["platform"])); err != nil {
		if errors.Is(err, connections.ErrNotFound) {
			http.Error(w, "connection not found", http.StatusNotFound)
			return
		}
		internalError(w, err, "failed to delete connection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reviewBounds resolves tab/from/to/range query params into ledger filters.
func (h *Handler) reviewBounds(r *http.Request) (ledger.Filter, error) {
	var f ledger.Filter

	state, err := tabToState(r.URL.Query().Get("tab"))
	if err != nil {
		return f, err
	}
	f.State = state

	if quick := r.URL.Query().Get("range"); quick != "" {
		rng, err := resolveQuickRange(quick, time.Now())
		if err != nil {
			return f, err
		}
		f.From = &rng.From
		f.To = &rng.To
		return f, nil
	}

	if raw := r.URL.Query().Get("from"); raw != "" {
		t, dateOnly, err := parseDate(raw)
		if err != nil {
			return f, err
		}
		if dateOnly {
			t = startOfDay(t)
		}
		f.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, dateOnly, err := parseDate(raw)
		if err != nil {
			return f, err
		}
		if dateOnly {
			t = endOfDay(t)
		}
		f.To = &t
	}
	return f, nil
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	filter, err := h.reviewBounds(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items, err := h.ledger.Query(r.Context(), filter)
	if err != nil {
		internalError(w, err, "failed to query reviews")
		return
	}

	// Counts always cover all four buckets regardless of the active tab.
	counts, total, err := h.ledger.Counts(r.Context(), filter.From, filter.To)
	if err != nil {
		internalError(w, err, "failed to count reviews")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"counts": map[string]int64{
			TabAll:          total,
			TabPending:      counts[models.StatePendingRegistration],
			TabUnregistered: counts[models.StateUnregistered],
			TabRegistered:   counts[models.StateRegistered],
		},
	})
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StoreID int64  `json:"store_id"`
		Range   string `json:"range"`
		From    string `json:"from"`
		To      string `json:"to"`
	}
	// Body is optional; an empty trigger syncs every store over the last week.
	if err := h.decode(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rng, err := h.syncRange(req.Range, req.From, req.To)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.StoreID != 0 {
		report, err := h.pipeline.Sync(r.Context(), req.StoreID, rng)
		if err != nil {
			if errors.Is(err, ingest.ErrSyncInProgress) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			internalError(w, err, "sync failed")
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	reports, err := h.pipeline.SyncAll(r.Context(), rng)
	if err != nil {
		internalError(w, err, "sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

func (h *Handler) syncRange(quick, from, to string) (models.DateRange, error) {
	if quick != "" {
		return resolveQuickRange(quick, time.Now())
	}
	if from == "" && to == "" {
		return resolveQuickRange(RangeLastWeek, time.Now())
	}

	var rng models.DateRange
	t, dateOnly, err := parseDate(from)
	if err != nil {
		return rng, err
	}
	if dateOnly {
		t = startOfDay(t)
	}
	rng.From = t

	t, dateOnly, err = parseDate(to)
	if err != nil {
		return rng, err
	}
	if dateOnly {
		t = endOfDay(t)
	}
	rng.To = t

	if rng.To.Before(rng.From) {
		return rng, fmt.Errorf("to must not precede from")
	}
	return rng, nil
}

func (h *Handler) handleBulkReplies(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReviewIDs  []int64 `json:"review_ids"`
		TemplateID int64   `json:"template_id"`
	}
	if err := h.decode(w, r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.ReviewIDs) == 0 {
		http.Error(w, "review_ids required", http.StatusBadRequest)
		return
	}
	if req.TemplateID == 0 {
		http.Error(w, "template_id required", http.StatusBadRequest)
		return
	}

	result, err := h.engine.Dispatch(r.Context(), req.ReviewIDs, req.TemplateID)
	if err != nil {
		if errors.Is(err, templates.ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		internalError(w, err, "bulk dispatch failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListReplies(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	out, err := h.replies.List(r.Context(), limit)
	if err != nil {
		internalError(w, err, "failed to list replies")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
