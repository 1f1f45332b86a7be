package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/neuralcode/insight/internal/application/analysis"
	appinsight "github.com/neuralcode/insight/internal/application/insight"
	analysisdomain "github.com/neuralcode/insight/internal/domain/analysis"
	domai "github.com/neuralcode/insight/internal/domain/ai"
	clonedomain "github.com/neuralcode/insight/internal/domain/clone"
	"github.com/neuralcode/insight/internal/middleware"
)

type Router struct {
	analysisSvc *appanalysis.Service
	insightSvc  *appinsight.Service // nil when no insight store is configured
}

// NewRouter exposes the analysis API. insightSvc may be nil; the insight
// endpoints then answer 503.
func NewRouter(analysisSvc *appanalysis.Service, insightSvc *appinsight.Service) http.Handler {
	rt := &Router{analysisSvc: analysisSvc, insightSvc: insightSvc}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Route("/api/analysis/v1", func(r chi.Router) {
		r.Post("/repository", rt.wrap(rt.handleStartAnalysis))
		r.Get("/id/{id}", rt.wrap(rt.handleGetByID))
		r.Get("/id/{id}/faults", rt.wrap(rt.handleFaults))
		r.Get("/url", rt.wrap(rt.handleListByURL))
		r.Post("/insight", rt.wrap(rt.handleInsight))
		r.Get("/insight", rt.wrap(rt.handleInsightList))
	})

	mux.Route("/debug", func(r chi.Router) {
		r.Get("/analyses", rt.wrap(rt.handleLatest))
		r.Get("/analyses/count", rt.wrap(rt.handleCount))
	})

	return mux
}

// ErrorResponse is the error envelope returned on every failure path.
type ErrorResponse struct {
	ErrorCode string    `json:"error_code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// apiError carries boundary validation failures straight to the response.
type apiError struct {
	status  int
	code    string
	message string
	details string
}

func (e *apiError) Error() string { return e.message }

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (rt *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			rt.writeError(w, err)
		}
	}
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	var (
		ae *apiError
		ce *clonedomain.Error
		ue *analysisdomain.UploadError
	)
	switch {
	case errors.As(err, &ae):
		writeJSON(w, ae.status, ErrorResponse{
			ErrorCode: ae.code,
			Message:   ae.message,
			Details:   ae.details,
			Timestamp: time.Now(),
		})
	case errors.Is(err, analysisdomain.ErrNotFound):
		// hasil lookup kosong itu wajar, jangan dicatat sebagai error
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			ErrorCode: "ANALYSIS_NOT_FOUND",
			Message:   "No analysis found for the provided identifier.",
			Timestamp: time.Now(),
		})
	case errors.As(err, &ce):
		if ce.Reason == clonedomain.ReasonInvalidURL {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				ErrorCode: "INVALID_ANALYSIS_REQUEST",
				Message:   "Please provide valid analysis parameters.",
				Details:   ce.Message,
				Timestamp: time.Now(),
			})
			return
		}
		log.Printf("repository clone failed: %v", ce)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			ErrorCode: "REPOSITORY_CLONE_FAILED",
			Message:   "Failed to clone the provided repository.",
			Details:   fmt.Sprintf("Repository URL: %s, Analysis Id: %s", ce.RepositoryURL, ce.AnalysisID),
			Timestamp: time.Now(),
		})
	case errors.As(err, &ue):
		log.Printf("artifact upload failed: %v", ue)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			ErrorCode: "UPLOAD_FAILED",
			Message:   "Failed to upload the repository to remote storage.",
			Details:   "The local checkout is kept. Please try again or contact support.",
			Timestamp: time.Now(),
		})
	case errors.Is(err, domai.ErrQuotaExceeded):
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
			ErrorCode: "AI_QUOTA_EXCEEDED",
			Message:   "AI quota exceeded, please retry later.",
			Timestamp: time.Now(),
		})
	default:
		log.Printf("unexpected error: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			ErrorCode: "INTERNAL_ERROR",
			Message:   "An unexpected error occurred. Please contact support.",
			Details:   fmt.Sprintf("Error type: %T", err),
			Timestamp: time.Now(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// POST /api/analysis/v1/repository
// Body: {"repository_url": "...", "branch_name": "..."}
// The clone runs synchronously: the record in the response is already terminal.
func (rt *Router) handleStartAnalysis(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		RepositoryURL string `json:"repository_url"`
		BranchName    string `json:"branch_name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &apiError{
			status:  http.StatusBadRequest,
			code:    "INVALID_REQUEST_BODY",
			message: "Request body is required and must be valid JSON.",
			details: "Provide repository_url and branch_name fields.",
		}
	}

	if err := middleware.ValidateRepositoryURL(body.RepositoryURL); err != nil {
		return &apiError{
			status:  http.StatusBadRequest,
			code:    "VALIDATION_FAILED",
			message: "Request validation failed.",
			details: "repository_url: " + err.Error(),
		}
	}
	if err := middleware.ValidateBranchName(body.BranchName); err != nil {
		return &apiError{
			status:  http.StatusBadRequest,
			code:    "VALIDATION_FAILED",
			message: "Request validation failed.",
			details: "branch_name: " + err.Error(),
		}
	}

	middleware.IncrementClones()
	middleware.IncrementClonesRunning()
	defer middleware.DecrementClonesRunning()

	// pakai context.Background() biar clone jalan sampai selesai walau
	// client putus; deadline internal orchestrator yang membatasi
	rec, err := rt.analysisSvc.StartAnalysis(context.Background(), appanalysis.StartAnalysisCommand{
		RepositoryURL: body.RepositoryURL,
		BranchName:    body.BranchName,
	})
	if err != nil {
		middleware.IncrementClonesFailed()
		var ue *analysisdomain.UploadError
		if errors.As(err, &ue) {
			middleware.IncrementUploadsFailed()
		}
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(rec)
}

// GET /api/analysis/v1/id/{id}
func (rt *Router) handleGetByID(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return &apiError{
			status:  http.StatusBadRequest,
			code:    "INVALID_ANALYSIS_REQUEST",
			message: "Please provide a valid analysis ID.",
			details: err.Error(),
		}
	}

	rec, err := rt.analysisSvc.Get(req.Context(), analysisdomain.AnalysisID(id))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(rec)
}

// GET /api/analysis/v1/id/{id}/faults?limit=20
func (rt *Router) handleFaults(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return &apiError{
			status:  http.StatusBadRequest,
			code:    "INVALID_ANALYSIS_REQUEST",
			message: "Please provide a valid analysis ID.",
			details: err.Error(),
		}
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := rt.analysisSvc.ListFaults(req.Context(), id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /api/analysis/v1/url?repository_url=...
func (rt *Router) handleListByURL(w http.ResponseWriter, req *http.Request) error {
	repositoryURL := req.URL.Query().Get("repository_url")
	if err := middleware.ValidateRepositoryURL(repositoryURL); err != nil {
		return &apiError{
			status:  http.StatusBadRequest,
			code:    "INVALID_ANALYSIS_REQUEST",
			message: "Please provide a valid repository URL.",
			details: err.Error(),
		}
	}

	list, err := rt.analysisSvc.ListByRepositoryURL(req.Context(), repositoryURL)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// POST /api/analysis/v1/insight
// Body: {"analysis_id": "<id>"}
// The server builds a manifest of the stored checkout and summarizes it.
func (rt *Router) handleInsight(w http.ResponseWriter, req *http.Request) error {
	if rt.insightSvc == nil {
		return &apiError{
			status:  http.StatusServiceUnavailable,
			code:    "INSIGHT_UNAVAILABLE",
			message: "Insight storage is not configured on this deployment.",
		}
	}

	var body struct {
		AnalysisID string `json:"analysis_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &apiError{
			status:  http.StatusBadRequest,
			code:    "INVALID_REQUEST_BODY",
			message: "Request body is required and must be valid JSON.",
		}
	}
	if err := middleware.ValidateAnalysisID(body.AnalysisID); err != nil {
		return &apiError{
			status:  http.StatusBadRequest,
			code:    "INVALID_ANALYSIS_REQUEST",
			message: "Please provide a valid analysis ID.",
			details: err.Error(),
		}
	}

	ins, err := rt.insightSvc.AnalyzeAndStore(req.Context(), body.AnalysisID)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(ins)
}

// GET /api/analysis/v1/insight?page=&page_size=
func (rt *Router) handleInsightList(w http.ResponseWriter, req *http.Request) error {
	if rt.insightSvc == nil {
		return &apiError{
			status:  http.StatusServiceUnavailable,
			code:    "INSIGHT_UNAVAILABLE",
			message: "Insight storage is not configured on this deployment.",
		}
	}

	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := rt.insightSvc.ListInsights(req.Context(), page, size)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /debug/analyses?limit=20
func (rt *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := rt.analysisSvc.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /debug/analyses/count
func (rt *Router) handleCount(w http.ResponseWriter, req *http.Request) error {
	n, err := rt.analysisSvc.Count(req.Context())
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]int64{"count": n})
}
