package main

import (
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"ProductionReport/Config"
	"ProductionReport/Controllers"
	"ProductionReport/CronJobs"
	"ProductionReport/Exporter"
	"ProductionReport/FiberConfig"
	"ProductionReport/Logger"
	"ProductionReport/ModQueue"
	"ProductionReport/Models"
	"ProductionReport/Reports"
	"ProductionReport/Share"
)

func main() {
	cfg, err := Config.NewConfig()
	if err != nil {
		logrus.Fatalf("loading config: %v", err)
	}
	log := Logger.New(cfg)

	if alreadyRunning(cfg.Address) {
		log.WithField("address", cfg.Address).Info("another instance is already serving, exiting")
		return
	}

	db, err := Models.Connect(cfg)
	if err != nil {
		Logger.LogError(log, "main", "main", "opening report database", cfg.DBHost, err)
		os.Exit(1)
	}

	manager := ModQueue.NewManager(ModQueue.ManagerConfig{
		Dir:      cfg.ExportDir,
		Renderer: Exporter.ExcelRenderer{},
		Uploader: Share.NewUploader(Share.FolderShare{Root: cfg.SharePath}, cfg.ShareProbeTimeout, log),
		Log:      log,
	})

	var app *fiber.App
	shutdown := func() {
		if err := app.Shutdown(); err != nil {
			log.Errorf("shutting down: %v", err)
		}
	}
	idle := CronJobs.NewIdleMonitor(cfg.IdleCheckSpec, cfg.IdleTimeout, shutdown, log)

	app = FiberConfig.NewApp(cfg, log, FiberConfig.Handlers{
		Queue:  Controllers.NewQueueController(manager, log),
		Report: Controllers.NewReportController(Reports.NewGormSource(db, cfg.DBSchema), log),
		System: Controllers.NewSystemController(idle, shutdown, log),
	})

	if err := idle.Start(); err != nil {
		log.Fatalf("starting idle monitor: %v", err)
	}
	defer idle.Stop()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		shutdown()
	}()

	log.WithFields(logrus.Fields{
		"address":    cfg.Address,
		"export_dir": cfg.ExportDir,
		"share":      cfg.SharePath,
	}).Info("Server Up...")
	if err := app.Listen(cfg.Address); err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Info("server stopped")
}

// alreadyRunning asks the health endpoint on address whether an instance of
// this service already answers there.
func alreadyRunning(address string) bool {
	client := http.Client{Timeout: time.Second}
	resp, err := client.Get("http://" + address + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16))
	if err != nil {
		return false
	}
	return resp.StatusCode == http.StatusOK && strings.TrimSpace(string(body)) == "ok"
}
