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

	"github.com/jhoicas/recepcion-despacho/docs"
	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	infrapdf "github.com/jhoicas/recepcion-despacho/internal/infrastructure/pdf"
	"github.com/jhoicas/recepcion-despacho/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/recepcion-despacho/internal/interfaces/http"
	"github.com/jhoicas/recepcion-despacho/pkg/config"
	"github.com/jhoicas/recepcion-despacho/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Un motor por flujo; cada uno con su propia caché de cantidades registradas.
	opts := fulfillment.Options{BackendTimeout: cfg.Engine.BackendTimeout}
	engines := make(map[entity.Flow]*fulfillment.Engine, 2)
	for _, flow := range []entity.Flow{entity.FlowInbound, entity.FlowOutbound} {
		deps, err := postgres.NewFlowDeps(pool, flow)
		if err != nil {
			log.Fatal().Err(err).Str("flow", string(flow)).Msg("dependencias del flujo")
		}
		engines[flow] = fulfillment.NewEngine(flow, deps, nil, log, opts)
	}

	sessions := fulfillment.NewSessionManager(log, engines[entity.FlowInbound], engines[entity.FlowOutbound])
	go sessions.RunSweeper(ctx, cfg.Engine.SessionIdle/4, cfg.Engine.SessionIdle)

	slipGenerator := infrapdf.NewMarotoSlipGenerator(cfg.App.Name)
	slips := map[entity.Flow]*fulfillment.SlipUseCase{
		entity.FlowInbound:  fulfillment.NewSlipUseCase(engines[entity.FlowInbound], slipGenerator),
		entity.FlowOutbound: fulfillment.NewSlipUseCase(engines[entity.FlowOutbound], slipGenerator),
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Engine.BackendTimeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: cfg.Swagger.FilePath,
		Path:     "docs",
		Title:    docs.SwaggerInfo.Title,
	}))
	// Documento registrado en swag, para clientes que generan código desde la API.
	app.Get("/swagger/doc.json", func(c *fiber.Ctx) error {
		c.Type("json")
		return c.SendString(docs.SwaggerInfo.ReadDoc())
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Sessions:  sessions,
		Slips:     slips,
		Log:       log,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
