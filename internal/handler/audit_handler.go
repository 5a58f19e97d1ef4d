package handler

import (
	"net/http"
	"strconv"
	"strings"

	"finance-auth/internal/model"
	"finance-auth/internal/service"
	"finance-auth/pkg/apierror"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, err := service.ParseAuditTime(query.Get("from"))
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid 'from' datetime format", query.Get("from"), http.StatusBadRequest))
		return
	}

	to, err := service.ParseAuditTime(query.Get("to"))
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid 'to' datetime format", query.Get("to"), http.StatusBadRequest))
		return
	}

	filter := model.AuthEventQuery{
		Action: strings.TrimSpace(query.Get("action")),
		Status: strings.TrimSpace(query.Get("status")),
		From:   from,
		To:     to,
		Page:   parseIntOrDefault(query.Get("page"), 1),
		Limit:  parseIntOrDefault(query.Get("limit"), 50),
	}

	if raw := strings.TrimSpace(query.Get("member_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, apierror.New("BAD_REQUEST", "member_id must be a positive integer", raw, http.StatusBadRequest))
			return
		}
		filter.MemberID = &id
	}

	items, meta, err := h.service.Query(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuthEventList{Items: items}, &meta)
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}
