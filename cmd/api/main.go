package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	// Application Layer
	appService "medremind/internal/application/service"

	// Infrastructure Layer
	backendClient "medremind/internal/infrastructure/backend"
	"medremind/internal/infrastructure/database/sqlite"
	lineClient "medremind/internal/infrastructure/line"
	"medremind/internal/infrastructure/notify"
	"medremind/internal/infrastructure/scheduler"

	// Interfaces Layer
	"medremind/internal/interfaces/api/handler"
	"medremind/internal/interfaces/api/router"
	"medremind/internal/interfaces/page"

	// Packages
	appLogger "medremind/internal/pkg/logger"

	_ "github.com/joho/godotenv/autoload" // Automatically load .env file
)

const reminderPage = "reminders"

func gracefulShutdown(apiServer *http.Server, pages *page.Registry, cronScheduler *scheduler.Scheduler, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	// Deactivate the reminder page first: clears in-process timers but
	// leaves native registrations armed.
	log.Println("Deactivating reminder page...")
	pages.Deactivate(reminderPage)

	if cronScheduler != nil {
		log.Println("Stopping scheduler...")
		cronScheduler.Stop()
		log.Println("Scheduler stopped.")
	}

	// Close database connection
	log.Println("Closing database connection...")
	if err := sqlite.CloseDB(); err != nil {
		log.Printf("Error closing database: %v", err)
	} else {
		log.Println("Database connection closed.")
	}

	// Shutdown HTTP server
	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// --- Initialization ---
	appLog := appLogger.New()
	appLog.Info("Logger initialized.")

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080" // Default port
		appLog.Warn("PORT environment variable not set, defaulting to 8080")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		appLog.Error("Invalid PORT environment variable", err)
		os.Exit(1)
	}
	// Other env vars (DB path, backend URL, LINE secrets) are loaded by
	// their respective modules.

	// --- Infrastructure ---
	db := sqlite.NewDB()
	store := sqlite.NewReminderStore(db, appLog)
	appLog.Info("Database and reminder store initialized.")

	recordStore := backendClient.NewClient(appLog)
	content := appService.NewContentBuilder(recordStore, appLog)

	// Backend selection happens once here: the native scheduler path
	// needs a configured LINE channel, otherwise everything runs on
	// in-process timers.
	line := lineClient.NewClient(appLog)
	timerBackend := notify.NewTimerBackend(appLog)
	var cronScheduler *scheduler.Scheduler
	primaryBackend := timerBackend
	if line != nil {
		cronScheduler = scheduler.NewScheduler(appLog)
		primaryBackend = notify.NewNativeBackend(cronScheduler, line, appLog)
	}

	// --- Application Services ---
	dispatcherSvc := appService.NewDispatcherService(primaryBackend, timerBackend, content, appLog)
	reminderSvc := appService.NewReminderService(store, dispatcherSvc, content, appLog)
	appLog.Info("Application services initialized.")

	// --- Page Registry ---
	pages := page.NewRegistry()
	pages.Register(reminderPage, reminderSvc)
	if err := pages.Activate(context.Background(), reminderPage); err != nil {
		// Log the error but continue starting the server
		appLog.Error("Failed to activate reminder page on startup", err)
	} else {
		appLog.Info("Reminder page activated.")
	}
	if cronScheduler != nil {
		appLog.Debug(fmt.Sprintf("Active cron entries after startup: %d", len(cronScheduler.GetEntries())))
	}

	// --- API Handlers ---
	reminderHandler := handler.NewReminderHandler(reminderSvc, appLog)
	var lineHandler *handler.LineHandler
	if line != nil {
		lineHandler = handler.NewLineHandler(line, dispatcherSvc, appLog)
	}
	appLog.Info("API handlers initialized.")

	// --- Router ---
	routerCfg := &router.Config{
		ReminderHandler: reminderHandler,
		LineHandler:     lineHandler,
		Logger:          appLog,
	}
	echoRouter := router.NewRouter(routerCfg)

	// --- HTTP Server ---
	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      echoRouter,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// --- Start Server & Shutdown Handling ---
	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, pages, cronScheduler, done)

	appLog.Info(fmt.Sprintf("Server starting on port %d", port))
	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		appLog.Error("HTTP server ListenAndServe error", err)
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for graceful shutdown signal
	<-done
	appLog.Info("Graceful shutdown complete.")
}
