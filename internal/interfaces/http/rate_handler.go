package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/application/usecase"
)

// RateHandler registro de alíquotas mensais por emissor (protegido).
type RateHandler struct {
	uc *usecase.RateUseCase
}

// NewRateHandler constrói o handler.
func NewRateHandler(uc *usecase.RateUseCase) *RateHandler {
	return &RateHandler{uc: uc}
}

// Upsert godoc
// @Summary      Registrar alíquota do mês
// @Description  Cria ou substitui a alíquota do (emissor, ano, mês). Percentuais são normalizados para fração.
// @Tags         aliquotas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TaxRateRequest  true  "emitter_id, ano, mes, aliquota"
// @Success      200   {object}  dto.TaxRateResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/aliquotas [post]
func (h *RateHandler) Upsert(c *fiber.Ctx) error {
	var in dto.TaxRateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	out, err := h.uc.Upsert(GetUserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// ListByEmitter godoc
// @Summary      Listar alíquotas do emissor
// @Tags         aliquotas
// @Security     Bearer
// @Produce      json
// @Param        emitter_id  path  string  true  "ID do emissor"
// @Success      200  {array}  dto.TaxRateResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/aliquotas/emitter/{emitter_id} [get]
func (h *RateHandler) ListByEmitter(c *fiber.Ctx) error {
	out, err := h.uc.ListByEmitter(GetUserID(c), c.Params("emitter_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Current godoc
// @Summary      Alíquota vigente do emissor
// @Tags         aliquotas
// @Security     Bearer
// @Produce      json
// @Param        emitter_id  path  string  true  "ID do emissor"
// @Success      200  {object}  dto.TaxRateResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/aliquotas/emitter/{emitter_id}/vigente [get]
func (h *RateHandler) Current(c *fiber.Ctx) error {
	out, err := h.uc.Current(GetUserID(c), c.Params("emitter_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Remover alíquota
// @Tags         aliquotas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID do registro de alíquota"
// @Success      200  {object}  dto.MessageResponse
// @Router       /api/aliquotas/{id} [delete]
func (h *RateHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(GetUserID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Alíquota removida"})
}
