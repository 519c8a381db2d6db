package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/domain"
)

// fail converte erros de domínio no par (status, corpo) padrão da API.
func fail(c *fiber.Ctx, err error) error {
	var code string
	var status int

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrUserNotFound):
		status, code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrJobNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrEmailAlreadyExists), errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrDraftNotEditable),
		errors.Is(err, domain.ErrEmitterMismatch),
		errors.Is(err, domain.ErrTaskNotCancelable):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrMissingTaxRate):
		status, code = fiber.StatusUnprocessableEntity, "MISSING_TAX_RATE"
	case errors.Is(err, domain.ErrUnresolvedClient):
		status, code = fiber.StatusUnprocessableEntity, "UNRESOLVED_CLIENT"
	default:
		status, code = fiber.StatusInternalServerError, "INTERNAL"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}
