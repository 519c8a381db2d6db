package http

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/application/imports"
	"github.com/notafacil/nfse-api/internal/application/usecase"
	"github.com/notafacil/nfse-api/internal/domain/repository"
)

// ClientHandler CRUD de clientes + importação em massa (protegido).
type ClientHandler struct {
	uc       *usecase.ClientUseCase
	importUC *imports.ImportUseCase
}

// NewClientHandler constrói o handler.
func NewClientHandler(uc *usecase.ClientUseCase, importUC *imports.ImportUseCase) *ClientHandler {
	return &ClientHandler{uc: uc, importUC: importUC}
}

// Create godoc
// @Summary      Cadastrar cliente
// @Tags         clients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ClientRequest  true  "Dados do cliente"
// @Success      201   {object}  dto.ClientResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/clients [post]
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	var in dto.ClientRequest
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
// @Summary      Listar clientes
// @Tags         clients
// @Security     Bearer
// @Produce      json
// @Param        emitterId         query  string  false  "Filtra por emissor vinculado"
// @Param        search            query  string  false  "Busca parcial por nome ou documento"
// @Param        incluir_inativos  query  bool    false  "Inclui clientes desativados"
// @Param        limit             query  int     false  "Limite"  default(20)
// @Param        offset            query  int     false  "Offset"  default(0)
// @Success      200  {array}  dto.ClientResponse
// @Router       /api/clients [get]
func (h *ClientHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	page.Limit = c.QueryInt("limit", 20)
	page.Offset = c.QueryInt("offset", 0)
	page.DefaultPage()

	filter := repository.ClientFilter{
		EmitterID:  c.Query("emitterId"),
		Search:     c.Query("search"),
		OnlyActive: !c.QueryBool("incluir_inativos", false),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	out, total, err := h.uc.List(GetUserID(c), filter)
	if err != nil {
		return fail(c, err)
	}
	c.Set("X-Total-Count", strconv.Itoa(total))
	return c.JSON(out)
}

// Stats godoc
// @Summary      Contagem de clientes
// @Tags         clients
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ClientStatsResponse
// @Router       /api/clients/stats [get]
func (h *ClientHandler) Stats(c *fiber.Ctx) error {
	out, err := h.uc.Stats(GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obter cliente
// @Tags         clients
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID do cliente"
// @Success      200  {object}  dto.ClientResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/clients/{id} [get]
func (h *ClientHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(GetUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Atualizar cliente
// @Tags         clients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID do cliente"
// @Param        body  body  dto.ClientRequest  true  "Campos a alterar"
// @Success      200   {object}  dto.ClientResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/clients/{id} [put]
func (h *ClientHandler) Update(c *fiber.Ctx) error {
	var in dto.ClientRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	out, err := h.uc.Update(GetUserID(c), c.Params("id"), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Deactivate godoc
// @Summary      Desativar cliente (soft delete)
// @Tags         clients
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID do cliente"
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/clients/{id} [delete]
func (h *ClientHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.uc.Deactivate(GetUserID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Cliente desativado"})
}

// Reactivate godoc
// @Summary      Reativar cliente
// @Tags         clients
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID do cliente"
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/clients/{id}/reativar [put]
func (h *ClientHandler) Reactivate(c *fiber.Ctx) error {
	if err := h.uc.Reactivate(GetUserID(c), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Cliente reativado"})
}

// SubmitImport godoc
// @Summary      Importar clientes por planilha (assíncrono)
// @Tags         clients
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Planilha .xlsx ou .csv"
// @Success      202   {object}  dto.ImportSubmitResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/clients/import [post]
func (h *ClientHandler) SubmitImport(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_FILE", Message: "arquivo é obrigatório (campo file)"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_FILE", Message: "não foi possível ler o arquivo"})
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_FILE", Message: "não foi possível ler o arquivo"})
	}

	job, err := h.importUC.Submit(GetUserID(c), fh.Filename, content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.ImportSubmitResponse{
		JobID:   job.ID,
		Message: "Importação iniciada",
	})
}

// ImportStatus godoc
// @Summary      Progresso do job de importação
// @Tags         clients
// @Security     Bearer
// @Produce      json
// @Param        job_id  path  string  true  "ID do job"
// @Success      200     {object}  dto.ImportStatusResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/clients/import/status/{job_id} [get]
func (h *ClientHandler) ImportStatus(c *fiber.Ctx) error {
	job, err := h.importUC.Status(GetUserID(c), c.Params("job_id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ImportStatusFromEntity(job))
}
