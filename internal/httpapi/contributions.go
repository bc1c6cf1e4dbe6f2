package httpapi

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/contribution"
	"github.com/lingocrowd/contribution_control/internal/correction"
	"github.com/lingocrowd/contribution_control/internal/dto"
	"github.com/lingocrowd/contribution_control/internal/lifecycle"
	"github.com/lingocrowd/contribution_control/internal/store"
)

type contributionRoutes struct {
	store       store.Store
	coordinator lifecycle.Coordinator
	corrections correction.Router
	verifier    *Verifier
	logger      zerolog.Logger
}

func newContributionRoutes(deps Dependencies) *contributionRoutes {
	return &contributionRoutes{
		store:       deps.Store,
		coordinator: deps.Coordinator,
		corrections: deps.Corrections,
		verifier:    deps.Verifier,
		logger:      deps.Logger,
	}
}

func (rt *contributionRoutes) register(mux *http.ServeMux) {
	v := rt.verifier
	mux.HandleFunc("POST /tasks/{id}/contributions", v.authorize(rt.handleSubmit))
	mux.HandleFunc("GET /contributions", v.authorize(rt.handleListOwn))
	mux.HandleFunc("POST /contributions/{id}/review", v.authorize(rt.handleReview, RoleAdmin, RoleReviewer))
	mux.HandleFunc("GET /contributions/{id}/validations", v.authorize(rt.handleValidations))
	mux.HandleFunc("GET /contributions/{id}/correction", v.authorize(rt.handleLoadCorrection))
	mux.HandleFunc("PUT /contributions/{id}", v.authorize(rt.handleResubmit))
	mux.HandleFunc("GET /corrections", v.authorize(rt.handleListCorrections))
}

func (rt *contributionRoutes) handleSubmit(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	taskID, err := pathID(r, "id")
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}

	var req dto.SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, rt.logger, err)
		return
	}

	created, err := rt.coordinator.Submit(r.Context(), taskID, claims.UserID, req.Payload)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *contributionRoutes) handleListOwn(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())

	var filter contribution.Filter
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s := contribution.Status(strings.TrimSpace(part))
			if !s.Valid() {
				handleError(w, rt.logger, apperr.Schema("unknown status: %q", s))
				return
			}
			filter.Statuses = append(filter.Statuses, s)
		}
	}

	contributions, err := rt.store.Repositories().Contributions.ListByWorker(r.Context(), claims.UserID, filter)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contributions)
}

func (rt *contributionRoutes) handleReview(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}

	var req dto.ReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, rt.logger, err)
		return
	}

	outcome, err := rt.coordinator.Review(r.Context(), lifecycle.ReviewInput{
		ContributionID: id,
		ReviewerID:     claims.UserID,
		Approved:       *req.IsApproved,
		Comment:        req.Comment,
	})
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *contributionRoutes) handleValidations(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}

	repos := rt.store.Repositories()
	c, err := repos.Contributions.Get(r.Context(), id)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	// workers only see the history of their own contributions
	if claims.Role == RoleWorker && c.WorkerID != claims.UserID {
		handleError(w, rt.logger, apperr.NotFound("contribution %s not found", id))
		return
	}

	history, err := repos.Validations.ListFor(r.Context(), c.ID)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (rt *contributionRoutes) handleListCorrections(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	q := r.URL.Query()

	views, err := rt.corrections.ListCorrections(r.Context(), claims.UserID, correction.Filters{
		Language:       q.Get("language"),
		SourceLanguage: q.Get("source_language"),
	})
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (rt *contributionRoutes) handleLoadCorrection(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}

	resubmission, err := rt.corrections.LoadForResubmission(r.Context(), id, claims.UserID)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resubmission)
}

func (rt *contributionRoutes) handleResubmit(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}

	var req dto.SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, rt.logger, err)
		return
	}

	updated, err := rt.corrections.Resubmit(r.Context(), id, claims.UserID, req.Payload)
	if err != nil {
		handleError(w, rt.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
