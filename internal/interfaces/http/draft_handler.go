package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/application/staging"
	"github.com/notafacil/nfse-api/internal/domain/repository"
)

// DraftHandler CRUD de rascunhos, import em lote e confirmação (protegido).
type DraftHandler struct {
	draftUC   *staging.DraftUseCase
	confirmUC *staging.ConfirmUseCase
}

// NewDraftHandler constrói o handler.
func NewDraftHandler(draftUC *staging.DraftUseCase, confirmUC *staging.ConfirmUseCase) *DraftHandler {
	return &DraftHandler{draftUC: draftUC, confirmUC: confirmUC}
}

// List godoc
// @Summary      Listar rascunhos do emissor
// @Tags         notas
// @Security     Bearer
// @Produce      json
// @Param        emitterId  query  string  true   "ID do emissor"
// @Param        clientId   query  string  false  "Filtra por cliente"
// @Param        status     query  string  false  "active (padrão, inclui invalid) ou confirmed"
// @Success      200  {array}  dto.DraftResponse
// @Router       /api/notas/drafts [get]
func (h *DraftHandler) List(c *fiber.Ctx) error {
	filter := repository.DraftFilter{
		EmitterID: c.Query("emitterId"),
		ClientID:  c.Query("clientId"),
		Status:    c.Query("status"),
	}
	out, err := h.draftUC.List(GetUserID(c), filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Import godoc
// @Summary      Importar rascunhos em lote
// @Description  Upsert por grupo (emissor, cliente, mês); com force_new cria sempre um novo rascunho com seq incrementado.
// @Tags         notas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DraftImportRequest  true  "Itens a importar"
// @Success      200   {object}  dto.DraftImportResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/notas/drafts/import [post]
func (h *DraftHandler) Import(c *fiber.Ctx) error {
	var in dto.DraftImportRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	out, err := h.draftUC.ImportDrafts(GetUserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obter rascunho
// @Tags         notas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID do rascunho"
// @Success      200  {object}  dto.DraftResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/notas/drafts/{id} [get]
func (h *DraftHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.draftUC.Get(GetUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Editar rascunho ativo
// @Tags         notas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID do rascunho"
// @Param        body  body  dto.DraftUpdateRequest  true  "Campos a alterar"
// @Success      200   {object}  dto.MessageResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/notas/drafts/{id} [patch]
func (h *DraftHandler) Update(c *fiber.Ctx) error {
	var in dto.DraftUpdateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	if err := h.draftUC.Update(GetUserID(c), c.Params("id"), in); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Rascunho atualizado"})
}

// Delete godoc
// @Summary      Remover rascunho
// @Tags         notas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID do rascunho"
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/notas/drafts/{id} [delete]
func (h *DraftHandler) Delete(c *fiber.Ctx) error {
	if err := h.draftUC.Delete(GetUserID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Rascunho removido"})
}

// Duplicate godoc
// @Summary      Duplicar rascunho
// @Description  Cria uma cópia do rascunho com o próximo seq do grupo de duplicidade.
// @Tags         notas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID do rascunho"
// @Success      201  {object}  map[string]string
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/notas/drafts/{id}/duplicate [post]
func (h *DraftHandler) Duplicate(c *fiber.Ctx) error {
	id, err := h.draftUC.Duplicate(GetUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// Confirm godoc
// @Summary      Confirmar rascunhos para emissão
// @Description  Para cada rascunho ativo reserva o próximo número de DPS e cria a task de emissão. Falha parcial é esperada: task_ids e erros podem vir ambos preenchidos.
// @Tags         notas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConfirmRequest  true  "Emissor + rascunhos selecionados"
// @Success      200   {object}  dto.ConfirmResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/notas/confirmar-from-drafts [post]
func (h *DraftHandler) Confirm(c *fiber.Ctx) error {
	var in dto.ConfirmRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	out, err := h.confirmUC.ConfirmFromDrafts(GetUserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}
