package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/application/usecase"
)

// EmitterHandler CRUD de emissores (protegido).
type EmitterHandler struct {
	uc *usecase.EmitterUseCase
}

// NewEmitterHandler constrói o handler.
func NewEmitterHandler(uc *usecase.EmitterUseCase) *EmitterHandler {
	return &EmitterHandler{uc: uc}
}

// Create godoc
// @Summary      Cadastrar emissor
// @Tags         emitters
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmitterRequest  true  "Dados do emissor"
// @Success      201   {object}  dto.EmitterResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/emitters [post]
func (h *EmitterHandler) Create(c *fiber.Ctx) error {
	var in dto.EmitterRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	out, err := h.uc.Create(GetUserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar emissores
// @Tags         emitters
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.EmitterResponse
// @Router       /api/emitters [get]
func (h *EmitterHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obter emissor
// @Tags         emitters
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID do emissor"
// @Success      200  {object}  dto.EmitterResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/emitters/{id} [get]
func (h *EmitterHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(GetUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Atualizar emissor
// @Tags         emitters
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID do emissor"
// @Param        body  body  dto.EmitterRequest  true  "Campos a alterar"
// @Success      200   {object}  dto.EmitterResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/emitters/{id} [put]
func (h *EmitterHandler) Update(c *fiber.Ctx) error {
	var in dto.EmitterRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	out, err := h.uc.Update(GetUserID(c), c.Params("id"), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Remover emissor
// @Tags         emitters
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID do emissor"
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/emitters/{id} [delete]
func (h *EmitterHandler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(GetUserID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Emissor removido"})
}
