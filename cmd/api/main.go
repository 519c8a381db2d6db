package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/notafacil/nfse-api/internal/application/auth"
	"github.com/notafacil/nfse-api/internal/application/imports"
	"github.com/notafacil/nfse-api/internal/application/staging"
	"github.com/notafacil/nfse-api/internal/application/tasks"
	"github.com/notafacil/nfse-api/internal/application/usecase"
	"github.com/notafacil/nfse-api/internal/infrastructure/postgres"
	"github.com/notafacil/nfse-api/internal/infrastructure/spreadsheet"
	"github.com/notafacil/nfse-api/internal/infrastructure/viacep"
	httpRouter "github.com/notafacil/nfse-api/internal/interfaces/http"
	"github.com/notafacil/nfse-api/pkg/config"
	"github.com/notafacil/nfse-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuração: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicação")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexão com PostgreSQL")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	emitterRepo := postgres.NewEmitterRepository(pool)
	clientRepo := postgres.NewClientRepository(pool)
	rateRepo := postgres.NewTaxRateRepository(pool)
	draftRepo := postgres.NewDraftRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	counterRepo := postgres.NewDPSCounterRepository(pool)
	jobRepo := postgres.NewImportJobRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	reader := spreadsheet.NewReader()
	cepLookup := viacep.NewClient("")

	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	emitterUC := usecase.NewEmitterUseCase(emitterRepo, clientRepo)
	clientUC := usecase.NewClientUseCase(clientRepo)
	rateUC := usecase.NewRateUseCase(rateRepo, emitterRepo)

	previewUC := staging.NewPreviewUseCase(emitterRepo, clientRepo, draftRepo, rateRepo, reader, log)
	draftUC := staging.NewDraftUseCase(emitterRepo, clientRepo, draftRepo, rateRepo, log)
	confirmUC := staging.NewConfirmUseCase(emitterRepo, clientRepo, draftRepo, taskRepo, counterRepo, log)
	reconcileUC := staging.NewReconcileUseCase(emitterRepo, txRunner, log)

	importUC := imports.NewImportUseCase(jobRepo, clientRepo, emitterRepo, reader, cepLookup, imports.Options{
		RowThrottle:   cfg.Import.RowThrottle,
		LookupTimeout: cfg.Import.LookupTimeout,
	}, log)
	taskUC := tasks.NewTaskUseCase(taskRepo, emitterRepo, clientRepo, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI em local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "NotaFácil NFS-e API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		EmitterUC:   emitterUC,
		ClientUC:    clientUC,
		RateUC:      rateUC,
		PreviewUC:   previewUC,
		DraftUC:     draftUC,
		ConfirmUC:   confirmUC,
		ReconcileUC: reconcileUC,
		ImportUC:    importUC,
		TaskUC:      taskUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("sinal de desligamento recebido, encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("desligamento do servidor")
	}

	log.Info().Msg("aplicação encerrada")
}
