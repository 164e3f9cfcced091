package handler

import (
	"net/http"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"go.uber.org/zap"
)

// TenderHandler serves tenders with their bids and evaluations
type TenderHandler struct {
	tenderService     *service.TenderService
	bidService        *service.BidService
	evaluationService *service.EvaluationService
	logger            *zap.Logger
}

func NewTenderHandler(
	tenderService *service.TenderService,
	bidService *service.BidService,
	evaluationService *service.EvaluationService,
	logger *zap.Logger,
) *TenderHandler {
	return &TenderHandler{
		tenderService:     tenderService,
		bidService:        bidService,
		evaluationService: evaluationService,
		logger:            logger,
	}
}

// List godoc
// @Summary List tenders
// @Tags Tenders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(draft, open, closed, awarded, cancelled)
// @Param issueId query string false "Filter by source issue" format(uuid)
// @Param departmentId query string false "Filter by department" format(uuid)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.TenderDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /tenders [get]
func (h *TenderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	issueID, err := queryID(r, "issueId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	departmentID, err := queryID(r, "departmentId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.tenderService.List(r.Context(), page, pageSize, repository.TenderFilters{
		Status:       queryString[domain.TenderStatus](r, "status"),
		IssueID:      issueID,
		DepartmentID: departmentID,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "list tenders")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create tender
// @Description Department admins and administrators publish work for contractors. Set open=true to accept bids immediately.
// @Tags Tenders
// @Accept json
// @Produce json
// @Param request body domain.CreateTenderRequest true "Tender"
// @Success 201 {object} domain.TenderDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Issue or department not found"
// @Security BearerAuth
// @Router /tenders [post]
func (h *TenderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTenderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tender, err := h.tenderService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create tender")
		return
	}
	w.Header().Set("Location", "/api/v1/tenders/"+tender.ID.String())
	respondJSON(w, http.StatusCreated, tender)
}

// GetByID godoc
// @Summary Get tender
// @Tags Tenders
// @Produce json
// @Param id path string true "Tender ID" format(uuid)
// @Success 200 {object} domain.TenderDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tenders/{id} [get]
func (h *TenderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tender, err := h.tenderService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get tender")
		return
	}
	respondJSON(w, http.StatusOK, tender)
}

// UpdateStatus godoc
// @Summary Change tender status
// @Description Moving to awarded requires awardedTo and assigns the source issue to that contractor. Re-saving an awarded tender changes nothing.
// @Tags Tenders
// @Accept json
// @Produce json
// @Param id path string true "Tender ID" format(uuid)
// @Param request body domain.UpdateTenderStatusRequest true "Status"
// @Success 200 {object} domain.TenderDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Transition not allowed"
// @Security BearerAuth
// @Router /tenders/{id}/status [put]
func (h *TenderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateTenderStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tender, err := h.tenderService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update tender status")
		return
	}
	respondJSON(w, http.StatusOK, tender)
}

// Award godoc
// @Summary Award tender to a bid
// @Tags Tenders
// @Accept json
// @Produce json
// @Param id path string true "Tender ID" format(uuid)
// @Param request body domain.AwardTenderRequest true "Winning bid"
// @Success 200 {object} domain.TenderDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Tender cannot be awarded"
// @Security BearerAuth
// @Router /tenders/{id}/award [post]
func (h *TenderHandler) Award(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.AwardTenderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tender, err := h.tenderService.Award(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "award tender")
		return
	}
	respondJSON(w, http.StatusOK, tender)
}

// ListBids godoc
// @Summary List bids on a tender
// @Description Tender managers see every bid; contractors see only their own.
// @Tags Tenders
// @Produce json
// @Param id path string true "Tender ID" format(uuid)
// @Success 200 {array} domain.BidDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tenders/{id}/bids [get]
func (h *TenderHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	bids, err := h.bidService.ListByTender(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "list bids")
		return
	}
	respondJSON(w, http.StatusOK, bids)
}

// CreateBid godoc
// @Summary Bid on a tender
// @Tags Tenders
// @Accept json
// @Produce json
// @Param id path string true "Tender ID" format(uuid)
// @Param request body domain.CreateBidRequest true "Bid"
// @Success 201 {object} domain.BidDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Already bid or tender closed"
// @Security BearerAuth
// @Router /tenders/{id}/bids [post]
func (h *TenderHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CreateBidRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	bid, err := h.bidService.Create(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "submit bid")
		return
	}
	respondJSON(w, http.StatusCreated, bid)
}

// GetBid godoc
// @Summary Get bid
// @Tags Tenders
// @Produce json
// @Param bidId path string true "Bid ID" format(uuid)
// @Success 200 {object} domain.BidDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /bids/{bidId} [get]
func (h *TenderHandler) GetBid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}
	bid, err := h.bidService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get bid")
		return
	}
	respondJSON(w, http.StatusOK, bid)
}

// ListEvaluations godoc
// @Summary List evaluations on a tender
// @Tags Tenders
// @Produce json
// @Param id path string true "Tender ID" format(uuid)
// @Success 200 {array} domain.EvaluationDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tenders/{id}/evaluations [get]
func (h *TenderHandler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	evals, err := h.evaluationService.ListByTender(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "list evaluations")
		return
	}
	respondJSON(w, http.StatusOK, evals)
}

// CreateEvaluation godoc
// @Summary Evaluate a bid
// @Description Scores are percentages; the total is weighted. One evaluation per evaluator per bid.
// @Tags Tenders
// @Accept json
// @Produce json
// @Param id path string true "Tender ID" format(uuid)
// @Param request body domain.CreateEvaluationRequest true "Evaluation"
// @Success 201 {object} domain.EvaluationDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Already evaluated"
// @Security BearerAuth
// @Router /tenders/{id}/evaluations [post]
func (h *TenderHandler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CreateEvaluationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	eval, err := h.evaluationService.Create(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create evaluation")
		return
	}
	respondJSON(w, http.StatusCreated, eval)
}

// GetEvaluation godoc
// @Summary Get evaluation
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID" format(uuid)
// @Success 200 {object} domain.EvaluationDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /evaluations/{id} [get]
func (h *TenderHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	eval, err := h.evaluationService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get evaluation")
		return
	}
	respondJSON(w, http.StatusOK, eval)
}

// UpdateEvaluation godoc
// @Summary Update evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID" format(uuid)
// @Param request body domain.UpdateEvaluationRequest true "Evaluation"
// @Success 200 {object} domain.EvaluationDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /evaluations/{id} [put]
func (h *TenderHandler) UpdateEvaluation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateEvaluationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	eval, err := h.evaluationService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "update evaluation")
		return
	}
	respondJSON(w, http.StatusOK, eval)
}
