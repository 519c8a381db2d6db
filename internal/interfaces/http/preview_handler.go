package http

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/application/staging"
)

// PreviewHandler prévia de emissão por planilha ou entrada manual, detecção
// de duplicidade e reconciliação (protegido).
type PreviewHandler struct {
	previewUC   *staging.PreviewUseCase
	reconcileUC *staging.ReconcileUseCase
}

// NewPreviewHandler constrói o handler.
func NewPreviewHandler(previewUC *staging.PreviewUseCase, reconcileUC *staging.ReconcileUseCase) *PreviewHandler {
	return &PreviewHandler{previewUC: previewUC, reconcileUC: reconcileUC}
}

// previewUploadResult junta a prévia com os grupos de duplicidade detectados.
type previewUploadResult struct {
	dto.PreviewResponse
	DuplicateGroups []dto.DuplicateGroupDTO `json:"grupos_duplicados"`
}

// Upload godoc
// @Summary      Prévia de planilha de emissão
// @Description  Valida a planilha linha a linha. Com persist=true cada linha com cliente resolvido vira rascunho marcado com o lote da prévia.
// @Tags         notas
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        emitterId    formData  string  true   "ID do emissor"
// @Param        competencia  formData  string  false  "Competência padrão para linhas sem data"
// @Param        persist      formData  bool    false  "Persistir como rascunhos"  default(false)
// @Param        file         formData  file    true   "Planilha .xlsx ou .csv"
// @Success      200  {object}  previewUploadResult
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/notas/preview [post]
func (h *PreviewHandler) Upload(c *fiber.Ctx) error {
	emitterID := c.FormValue("emitterId")
	if emitterID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "emitterId é obrigatório"})
	}
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

	persist := c.FormValue("persist") == "true" || c.FormValue("persist") == "1"
	resp, err := h.previewUC.PreviewUpload(GetUserID(c), emitterID, fh.Filename, content,
		c.FormValue("competencia"), persist)
	if err != nil {
		return fail(c, err)
	}

	groups, err := staging.FindDuplicateGroups(emitterID, resp.Lines)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(previewUploadResult{PreviewResponse: *resp, DuplicateGroups: groups})
}

// Manual godoc
// @Summary      Prévia de nota avulsa
// @Tags         notas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        emitterId  query  string  true  "ID do emissor"
// @Param        body       body   dto.PreviewManualEntry  true  "Entrada manual"
// @Success      200  {object}  dto.PreviewResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/notas/preview/manual [post]
func (h *PreviewHandler) Manual(c *fiber.Ctx) error {
	emitterID := c.Query("emitterId")
	if emitterID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "emitterId é obrigatório"})
	}
	var in dto.PreviewManualEntry
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	resp, err := h.previewUC.PreviewManual(GetUserID(c), emitterID, in, false)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}

// Reconcile godoc
// @Summary      Reconciliar grupos duplicados do lote
// @Description  Dentro dos grupos informados mantém apenas keep_indices, apagando o restante e renumerando as mantidas.
// @Tags         notas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReconcileRequest  true  "Decisão de reconciliação"
// @Success      200   {object}  dto.ReconcileResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/notas/drafts/reconcile [post]
func (h *PreviewHandler) Reconcile(c *fiber.Ctx) error {
	var in dto.ReconcileRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	resp, err := h.reconcileUC.Reconcile(c.Context(), GetUserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(resp)
}
