package httppresentation

import (
	"encoding/json"
	"errors"
	"net/http"

	domcatalog "github.com/refurbly/storefront/internal/domain/catalog"
	domorder "github.com/refurbly/storefront/internal/domain/order"
	dompayment "github.com/refurbly/storefront/internal/domain/payment"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondDomainError maps sentinel errors onto the HTTP surface. Business
// rejections keep their specific reason; provider and storage faults stay generic.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domorder.ErrNotFound), errors.Is(err, domcatalog.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domorder.ErrAccessDenied):
		respondError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domcatalog.ErrUnavailable),
		errors.Is(err, domcatalog.ErrInsufficientStock),
		errors.Is(err, domorder.ErrNoItems),
		errors.Is(err, domorder.ErrInvalidQuantity),
		errors.Is(err, domorder.ErrInvalidStatus),
		errors.Is(err, dompayment.ErrAmountTooSmall):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dompayment.ErrIncomplete):
		respondError(w, http.StatusBadRequest, "payment not completed")
	case errors.Is(err, dompayment.ErrSignatureInvalid):
		respondError(w, http.StatusBadRequest, "invalid signature")
	case errors.Is(err, dompayment.ErrProvider):
		respondError(w, http.StatusBadGateway, "payment provider error")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
