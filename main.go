package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fernandosena/bot-whatsapp/api"
	"github.com/fernandosena/bot-whatsapp/config"
	"github.com/fernandosena/bot-whatsapp/database"
	"github.com/fernandosena/bot-whatsapp/media"
	"github.com/fernandosena/bot-whatsapp/server"
	"github.com/fernandosena/bot-whatsapp/utils"
	"github.com/fernandosena/bot-whatsapp/whatsapp"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	utils.Init(cfg.LogLevel)

	// Optional MSSQL reporting mirror; the service runs fine without it
	var gormDB *database.GormDB
	if cfg.ReportingEnabled {
		var err error
		gormDB, err = database.NewGormDB(cfg.MSSQLServer, cfg.MSSQLDatabase, cfg.MSSQLUsername, cfg.MSSQLPassword)
		if err != nil {
			utils.Logger.Warn("Reporting database unavailable, continuing without mirror", "error", err)
			gormDB = nil
		} else {
			defer gormDB.Close()
		}
	}

	// Local delivery log
	db, err := database.NewDatabase(cfg.DatabasePath, gormDB)
	if err != nil {
		log.Fatalf("Failed to initialize delivery log: %v", err)
	}
	defer db.Close()

	// Session manager: startup connection failure is fatal, everything
	// after that is handled by the reconnect policy
	manager := whatsapp.NewManager(cfg.AuthDir, time.Duration(cfg.ReconnectDelaySec)*time.Second)
	if err := manager.Start(context.Background()); err != nil {
		log.Fatalf("Failed to connect to WhatsApp: %v", err)
	}

	transcoder := media.NewTranscoder(cfg.FFmpegPath)
	gateway := whatsapp.NewGateway(manager.State(), manager.Client(), transcoder)

	handler := api.NewHandler(manager.State(), gateway, manager, db, cfg.UploadDir, cfg.MaxUploadMB)
	apiServer := server.NewServer(handler)
	go func() {
		if err := apiServer.Start(cfg.APIPort); err != nil {
			utils.Logger.Error("API server failed", "error", err)
		}
	}()

	utils.Logger.Info("WhatsApp PTT service started", "port", cfg.APIPort)
	utils.Logger.Info("Status endpoint", "url", "http://localhost:"+cfg.APIPort+"/status")
	utils.Logger.Info("QR endpoint", "url", "http://localhost:"+cfg.APIPort+"/qr")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	utils.Logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		utils.Logger.Warn("API server shutdown error", "error", err)
	}
	manager.Shutdown()
}
