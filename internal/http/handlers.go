package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"spendmate/internal/aggregate"
	"spendmate/internal/auth"
	"spendmate/internal/chart"
	"spendmate/internal/core"
	"spendmate/internal/log"
	"spendmate/internal/services"
)

type (
	sessionRequest struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}

	sessionResponse struct {
		SignedIn bool   `json:"signedIn"`
		UserID   string `json:"userId,omitempty"`
		Email    string `json:"email,omitempty"`
	}

	transactionResponse struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Amount    string `json:"amount"`
		Display   string `json:"display"`
		Type      string `json:"type"`
		Category  string `json:"category"`
		Icon      string `json:"icon"`
		Date      string `json:"date"`
		Countable bool   `json:"countable"`
	}

	categoryResponse struct {
		Category string `json:"category"`
		Icon     string `json:"icon"`
		Total    string `json:"total"`
		Display  string `json:"display"`
	}

	ledgerResponse struct {
		UserID           string                `json:"userId"`
		Status           string                `json:"status"`
		Version          uint64                `json:"version"`
		Type             string                `json:"type"`
		Period           string                `json:"period"`
		Category         string                `json:"category,omitempty"`
		Income           string                `json:"income"`
		Expense          string                `json:"expense"`
		Net              string                `json:"net"`
		Summary          string                `json:"summary"`
		Transactions     []transactionResponse `json:"transactions"`
		CategorySpending []categoryResponse    `json:"categorySpending"`
		Line             chart.Series          `json:"line"`
		Bar              chart.Series          `json:"bar"`
	}

	profileResponse struct {
		UserID       string `json:"userId"`
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		DisplayName  string `json:"displayName"`
		Email        string `json:"email"`
		ProfileImage string `json:"profileImage,omitempty"`
	}

	createdResponse struct {
		ID string `json:"id"`
	}
)

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := services.ErrorKind(err)
	logger := log.FromContext(r.Context())
	switch {
	case errors.Is(err, errBadRequest),
		kind == services.KindValidation,
		kind == services.KindUnauthenticated,
		kind == services.KindNotFound:
		logger.DebugContext(r.Context(), "Request rejected", log.FieldOperation, op, log.FieldError, err)
	default:
		logger.ErrorContext(r.Context(), "Request failed", log.FieldOperation, op, log.FieldError, err)
	}
	ErrorResponse(err).Write(w)
}

func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

func sessionJSON(id auth.Identity) sessionResponse {
	return sessionResponse{SignedIn: id.SignedIn(), UserID: id.UserID, Email: id.Email}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(sessionJSON(s.auth.Current())).Write(w)
}

// handleSignIn switches the process-wide identity to the requested user id.
// It stands in for the external auth provider and performs no credential
// check, so it belongs behind a trusted front end only; every client of the
// process then sees that user's ledger.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	userID := sanitizeInput(req.UserID)
	if userID == "" || strings.ContainsAny(userID, "/.#$[]") {
		NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Data(errorBody{Error: services.KindValidation.String(), Message: services.KindValidation.Describe(), Detail: "userId must be a non-empty path segment"}).
			Write(w)
		return
	}
	s.auth.SignIn(userID, sanitizeInput(req.Email))
	log.FromContext(r.Context()).InfoContext(r.Context(), "Signed in", log.FieldUserID, userID)
	NewJSONResponse().Data(sessionJSON(s.auth.Current())).Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.auth.SignOut()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := services.ParseSelection(q.Get("type"), q.Get("period"), q.Get("category"))
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}

	ctx, cancel := s.withTimeout(r)
	defer cancel()
	view, err := s.svc.GetLedgerView(ctx, sel)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(s.ledgerJSON(view)).Write(w)
}

func (s *Server) ledgerJSON(view services.View) ledgerResponse {
	resp := ledgerResponse{
		UserID:           view.UserID,
		Status:           view.Status.String(),
		Version:          view.Version,
		Type:             string(view.Selection.Type),
		Period:           string(view.Selection.Period),
		Category:         view.Selection.Category,
		Income:           core.FormatDecimal(view.Income),
		Expense:          core.FormatDecimal(view.Expense),
		Net:              core.FormatDecimal(view.Net),
		Summary:          core.FormatAmount(view.Net, s.currency),
		Transactions:     make([]transactionResponse, 0, len(view.Transactions)),
		CategorySpending: make([]categoryResponse, 0, len(view.CategorySpending)),
		Line:             view.Line,
		Bar:              view.Bar,
	}
	if resp.Type == "" {
		resp.Type = "all"
	}
	if resp.Period == "" {
		resp.Period = "all"
	}
	for _, tx := range view.Transactions {
		resp.Transactions = append(resp.Transactions, transactionJSON(tx, s.currency))
	}
	for _, c := range view.CategorySpending {
		resp.CategorySpending = append(resp.CategorySpending, categoryJSON(c, s.currency))
	}
	return resp
}

func categoryJSON(c aggregate.CategoryTotal, currency string) categoryResponse {
	return categoryResponse{
		Category: c.Category,
		Icon:     core.IconFor(c.Category),
		Total:    core.FormatDecimal(c.Total),
		Display:  core.FormatAmount(c.Total, currency),
	}
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	if err := s.svc.RetrySubscription(ctx); err != nil {
		s.fail(w, r, log.OpSubscribe, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req services.TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	id, err := s.svc.AddTransaction(ctx, sanitizeTransaction(req))
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+id).
		Data(createdResponse{ID: id}).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req services.TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	if err := s.svc.EditTransaction(ctx, r.PathValue("id"), sanitizeTransaction(req)); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	if err := s.svc.RemoveTransaction(ctx, r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func profileJSON(p core.UserProfile) profileResponse {
	return profileResponse{
		UserID:       p.ID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		DisplayName:  p.DisplayName(),
		Email:        p.Email,
		ProfileImage: p.ProfileImage,
	}
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	p, err := s.svc.Profile(ctx)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(profileJSON(p)).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	p, err := s.svc.UpdateProfile(ctx, sanitizeProfile(req))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(profileJSON(p)).Write(w)
}
