package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/notafacil/nfse-api/internal/application/auth"
	"github.com/notafacil/nfse-api/internal/application/imports"
	"github.com/notafacil/nfse-api/internal/application/staging"
	"github.com/notafacil/nfse-api/internal/application/tasks"
	"github.com/notafacil/nfse-api/internal/application/usecase"
)

// RouterDeps dependências para o router.
type RouterDeps struct {
	AuthUC      *auth.AuthUseCase
	EmitterUC   *usecase.EmitterUseCase
	ClientUC    *usecase.ClientUseCase
	RateUC      *usecase.RateUseCase
	PreviewUC   *staging.PreviewUseCase
	DraftUC     *staging.DraftUseCase
	ConfirmUC   *staging.ConfirmUseCase
	ReconcileUC *staging.ReconcileUseCase
	ImportUC    *imports.ImportUseCase
	TaskUC      *tasks.TaskUseCase
	JWTSecret   string
}

// Router registra as rotas da API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rotas protegidas (exigem Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Emitters (protegido)
	emitters := protected.Group("/emitters")
	emitterHandler := NewEmitterHandler(deps.EmitterUC)
	emitters.Post("/", emitterHandler.Create)
	emitters.Get("/", emitterHandler.List)
	emitters.Get("/:id", emitterHandler.GetByID)
	emitters.Put("/:id", emitterHandler.Update)
	emitters.Delete("/:id", emitterHandler.Delete)

	// Clients (protegido)
	clients := protected.Group("/clients")
	clientHandler := NewClientHandler(deps.ClientUC, deps.ImportUC)
	clients.Post("/", clientHandler.Create)
	clients.Get("/", clientHandler.List)
	clients.Get("/stats", clientHandler.Stats)
	clients.Post("/import", clientHandler.SubmitImport)
	clients.Get("/import/status/:job_id", clientHandler.ImportStatus)
	clients.Get("/:id", clientHandler.GetByID)
	clients.Put("/:id", clientHandler.Update)
	clients.Delete("/:id", clientHandler.Deactivate)
	clients.Put("/:id/reativar", clientHandler.Reactivate)

	// Alíquotas (protegido)
	rates := protected.Group("/aliquotas")
	rateHandler := NewRateHandler(deps.RateUC)
	rates.Post("/", rateHandler.Upsert)
	rates.Get("/emitter/:emitter_id", rateHandler.ListByEmitter)
	rates.Get("/emitter/:emitter_id/vigente", rateHandler.Current)
	rates.Delete("/:id", rateHandler.Delete)

	// Notas: prévia, rascunhos e confirmação (protegido)
	notas := protected.Group("/notas")
	previewHandler := NewPreviewHandler(deps.PreviewUC, deps.ReconcileUC)
	draftHandler := NewDraftHandler(deps.DraftUC, deps.ConfirmUC)
	notas.Post("/preview", previewHandler.Upload)
	notas.Post("/preview/manual", previewHandler.Manual)
	notas.Get("/drafts", draftHandler.List)
	notas.Post("/drafts/import", draftHandler.Import)
	notas.Post("/drafts/reconcile", previewHandler.Reconcile)
	notas.Get("/drafts/:id", draftHandler.GetByID)
	notas.Patch("/drafts/:id", draftHandler.Update)
	notas.Delete("/drafts/:id", draftHandler.Delete)
	notas.Post("/drafts/:id/duplicate", draftHandler.Duplicate)
	notas.Post("/confirmar-from-drafts", draftHandler.Confirm)

	// Tasks de emissão (protegido)
	taskGroup := protected.Group("/tasks")
	taskHandler := NewTaskHandler(deps.TaskUC)
	taskGroup.Get("/", taskHandler.List)
	taskGroup.Get("/resumo", taskHandler.Summary)
	taskGroup.Get("/export", taskHandler.Export)
	taskGroup.Get("/:id", taskHandler.GetByID)
	taskGroup.Post("/:id/cancel", taskHandler.RequestCancel)
}
