package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scale-station/internal/auth"
	"scale-station/internal/config"
	"scale-station/internal/database"
	"scale-station/internal/erp"
	"scale-station/internal/handlers"
	"scale-station/internal/logging"
	"scale-station/internal/middleware"
	"scale-station/internal/scale"
	"scale-station/internal/syncgate"
	"scale-station/internal/ticket"
	"scale-station/internal/utils"
	"scale-station/internal/weighing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Fine without a .env on deployed stations, everything has env defaults
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New()
	auth.SetSecret(cfg.JWTSecret)

	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		log.Fatal("database connect failed: " + err.Error())
	}

	// --- Scale device ---
	var scaleDev weighing.Scale
	stopScale := func() {}
	if cfg.ScaleSimulator {
		log.Warn("scale simulator is ON, readings are fake")
		scaleDev = scale.NewSimulator(time.Now().UnixNano())
	} else {
		reader := scale.NewReader(cfg.ScalePort, cfg.ScaleBaudRate, log)
		reader.Start()
		stopScale = reader.Stop
		scaleDev = reader
	}

	// --- ERP sync ---
	erpClient := erp.NewClient(cfg.ERPBaseURL, cfg.ERPAPIKey, cfg.ERPTimeout, log)
	gate := syncgate.NewGate()
	worker := syncgate.NewWorker(db, erpClient, log, cfg.ERPUTCOffsetHours)
	worker.Interval = cfg.SyncInterval
	worker.BatchSize = cfg.SyncBatchSize
	worker.LockTTL = cfg.SyncLockTTL
	worker.MaxAttempts = cfg.SyncMaxRetry

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	refdata := syncgate.NewRefdataSyncer(db, erpClient, log)

	// --- Services ---
	weighingService := weighing.NewService(db, scaleDev, gate, log, cfg.SimulatorTareOffset)
	tickets := ticket.NewRenderer(cfg.PrinterDevice, cfg.PDFOutputDir, cfg.CompanyName, cfg.CompanyAddr, log)

	authHandler := &handlers.AuthHandler{DB: db}
	weighingHandler := &handlers.WeighingHandler{DB: db, Service: weighingService, Scale: scaleDev, Tickets: tickets}
	catalogHandler := &handlers.CatalogHandler{DB: db}
	reportHandler := &handlers.ReportHandler{DB: db}
	systemHandler := &handlers.SystemHandler{DB: db, Scale: scaleDev, ERP: erpClient, Refdata: refdata, Worker: worker, Gate: gate}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "online", "station": utils.GetStationID()}) })
	r.POST("/login", authHandler.Login)

	// --- FEATURE FLAG: Admin Registration ---
	// Only opens if we explicitly allow it in .env
	if cfg.AllowRegistration {
		r.POST("/register", authHandler.Register)
		log.Warn("registration route is OPEN, disable this in production")
	} else {
		log.Info("registration route is disabled")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		// OPERATOR & ADMIN
		api.GET("/scale/weight", weighingHandler.GetCurrentWeight)
		api.GET("/weighings/next-folio", weighingHandler.GetNextFolio)
		api.POST("/weighings/entry", weighingHandler.RegisterEntry)
		api.POST("/weighings/exit", weighingHandler.RegisterExit)
		api.POST("/weighings/exit-with-weight", weighingHandler.RegisterExitWithWeight)
		api.POST("/weighings/:id/close", weighingHandler.Close)
		api.POST("/weighings/:id/close-automatic", weighingHandler.CloseAutomatic)
		api.POST("/weighings/:id/reprint", weighingHandler.ReprintTicket)
		api.GET("/weighings/pending", weighingHandler.GetPending)
		api.GET("/weighings/closed", weighingHandler.GetClosed)
		api.GET("/weighings/:id", weighingHandler.GetDetail)

		api.GET("/catalog/customers", catalogHandler.GetCustomers)
		api.GET("/catalog/vehicles", catalogHandler.GetVehicles)
		api.GET("/catalog/trailers", catalogHandler.GetTrailers)
		api.GET("/catalog/drivers", catalogHandler.GetDrivers)
		api.GET("/catalog/materials", catalogHandler.GetMaterials)

		api.GET("/system/status", systemHandler.GetSystemStatus)

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.POST("/weighings/manual", weighingHandler.RegisterManual)
			admin.PUT("/weighings/:id/weights", weighingHandler.EditWeights)

			admin.GET("/reports/summary", reportHandler.GetSummary)
			admin.GET("/reports/materials", reportHandler.GetMaterialTotals)
			admin.GET("/reports/customers", reportHandler.GetCustomerTotals)

			admin.POST("/system/refdata/sync", systemHandler.SyncRefdata)
			admin.POST("/system/sync/reconcile", systemHandler.Reconcile)
			admin.GET("/system/erp/ping", systemHandler.PingERP)
		}
	}

	// Stop the sync worker and the scale reader on SIGINT/SIGTERM,
	// then let the process go down.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		cancel()
		stopScale()
		os.Exit(0)
	}()

	log.Info("station server starting on " + cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal("server failed to start: " + err.Error())
	}
}
