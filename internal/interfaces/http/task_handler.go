package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/application/tasks"
	"github.com/notafacil/nfse-api/internal/domain/repository"
)

// TaskHandler consulta e acompanhamento das tasks de emissão (protegido).
type TaskHandler struct {
	uc *tasks.TaskUseCase
}

// NewTaskHandler constrói o handler.
func NewTaskHandler(uc *tasks.TaskUseCase) *TaskHandler {
	return &TaskHandler{uc: uc}
}

// taskFilterFromQuery monta o filtro de listagem; mes/ano viram o intervalo
// de competência do mês.
func taskFilterFromQuery(c *fiber.Ctx) (repository.TaskFilter, error) {
	filter := repository.TaskFilter{
		EmitterID: c.Query("emitterId"),
		ClientID:  c.Query("clientId"),
		Status:    c.Query("status"),
		Limit:     c.QueryInt("limit", 0),
		Offset:    c.QueryInt("offset", 0),
	}
	month := c.QueryInt("mes", 0)
	year := c.QueryInt("ano", 0)
	if month != 0 || year != 0 {
		from, to, err := tasks.MonthRange(year, month)
		if err != nil {
			return filter, err
		}
		filter.From = from
		filter.To = to
	}
	return filter, nil
}

// List godoc
// @Summary      Listar tasks de emissão
// @Tags         tasks
// @Security     Bearer
// @Produce      json
// @Param        emitterId  query  string  false  "Filtra por emissor"
// @Param        clientId   query  string  false  "Filtra por cliente"
// @Param        status     query  string  false  "pending, accepted, error, cancel_requested ou canceled"
// @Param        mes        query  int     false  "Mês de competência (1-12, junto com ano)"
// @Param        ano        query  int     false  "Ano de competência"
// @Success      200  {array}  dto.TaskResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/tasks [get]
func (h *TaskHandler) List(c *fiber.Ctx) error {
	filter, err := taskFilterFromQuery(c)
	if err != nil {
		return fail(c, err)
	}
	out, err := h.uc.List(GetUserID(c), filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Summary godoc
// @Summary      Resumo de tasks por status
// @Tags         tasks
// @Security     Bearer
// @Produce      json
// @Param        emitterId  query  string  true  "ID do emissor"
// @Success      200  {array}  dto.TaskSummaryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/tasks/resumo [get]
func (h *TaskHandler) Summary(c *fiber.Ctx) error {
	out, err := h.uc.Summary(GetUserID(c), c.Query("emitterId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Export godoc
// @Summary      Relatório mensal em XLSX
// @Description  Gera uma planilha com uma aba por emissor contendo as notas da competência.
// @Tags         tasks
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        mes        query  int     true   "Mês de competência (1-12)"
// @Param        ano        query  int     true   "Ano de competência"
// @Param        emitterId  query  string  false  "Restringe a um emissor"
// @Success      200  {file}  file
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/tasks/export [get]
func (h *TaskHandler) Export(c *fiber.Ctx) error {
	content, filename, err := h.uc.ExportXLSX(GetUserID(c),
		c.QueryInt("ano", 0), c.QueryInt("mes", 0), c.Query("emitterId"))
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(content)
}

// GetByID godoc
// @Summary      Obter task
// @Tags         tasks
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID da task"
// @Success      200  {object}  dto.TaskResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.Get(GetUserID(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// RequestCancel godoc
// @Summary      Solicitar cancelamento de NFS-e
// @Description  Marca uma task aceita como cancel_requested; o motor de cancelamento consome a marcação.
// @Tags         tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID da task"
// @Param        body  body  dto.TaskCancelRequest  false  "Justificativa do cancelamento"
// @Success      200   {object}  dto.MessageResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/tasks/{id}/cancel [post]
func (h *TaskHandler) RequestCancel(c *fiber.Ctx) error {
	var in dto.TaskCancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
		}
	}
	if err := h.uc.RequestCancel(GetUserID(c), c.Params("id"), in.Justification); err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Cancelamento solicitado"})
}
