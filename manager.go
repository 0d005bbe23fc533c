package schoolpayManager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/siherrmann/schoolpayManager/database"
	"github.com/siherrmann/schoolpayManager/handler"
	"github.com/siherrmann/schoolpayManager/helper"
	"github.com/siherrmann/schoolpayManager/model"
	"github.com/siherrmann/schoolpayManager/upload"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	qh "github.com/siherrmann/queuer/helper"
)

// ManagerServer initializes the manager handler, sets up routes, and starts the Echo server.
// It stops gracefully on SIGINT or SIGTERM.
func ManagerServer(port string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mh, err := InitManagerHandler()
	if err != nil {
		log.Fatalf("Failed to initialize manager handler: %v", err)
	}

	e := echo.New()
	SetupRoutes(e, mh)

	go func() {
		err := e.Start(":" + port)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down manager server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}
}

// InitManagerHandler creates and configures the manager handler, including setting up the filesystem,
// the record store and loading records from a JSON file if specified.
// It returns the initialized manager handler or an error if initialization fails.
func InitManagerHandler() (*handler.ManagerHandler, error) {
	// Optional .env file, the environment wins
	_ = godotenv.Load()

	// Create filesystem from environment variables
	filesystem, err := upload.CreateFilesystemFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem: %w", err)
	}

	// Logger
	opts := qh.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(qh.NewPrettyHandler(os.Stdout, opts))

	// Initialize record database handler
	recordDB, err := newRecordStore(helper.GetEnvOrDefault("SCHOOLPAY_MANAGER_DB_MODE", "memory"), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create record database handler: %w", err)
	}

	// Load records from JSON file if path is provided
	recordJSONPath := helper.GetEnvOrDefault("SCHOOLPAY_MANAGER_RECORD_JSON", "")
	if recordJSONPath != "" {
		err := loadRecordsFromJSON(recordJSONPath, recordDB, logger)
		if err != nil {
			log.Printf("Failed to load records from JSON file: %v", err)
		}
	}

	// Create and configure manager handler
	pageSize := helper.GetEnvIntOrDefault("SCHOOLPAY_MANAGER_DEFAULT_PAGE_SIZE", 10)
	mh := handler.NewManagerHandler(filesystem, recordDB, logger, pageSize)

	return mh, nil
}

func newRecordStore(mode string, logger *slog.Logger) (database.RecordDBHandlerFunctions, error) {
	switch strings.ToLower(mode) {
	case "memory":
		logger.Info("Using in-memory record store")
		return database.NewRecordMemoryHandler(), nil
	case "postgres":
		db, err := helper.ConnectDatabase("record", helper.NewDatabaseConfigFromEnv(), logger)
		if err != nil {
			return nil, err
		}
		return database.NewRecordDBHandler(db, false)
	default:
		return nil, fmt.Errorf("unsupported database mode: %s (supported: memory, postgres)", mode)
	}
}

// loadRecordsFromJSON inserts the records of a JSON array. Collections that
// already hold records are skipped so a restart does not seed twice.
func loadRecordsFromJSON(filePath string, recordDB database.RecordDBHandlerFunctions, logger *slog.Logger) error {
	// #nosec G304 -- Accepting file path from env variable is intentional and controlled.
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	var records []*model.Record
	err = json.Unmarshal(data, &records)
	if err != nil {
		return err
	}

	seeded := map[string]bool{}
	inserted := 0
	for _, record := range records {
		if _, ok := seeded[record.Collection]; !ok {
			count, err := recordDB.CountRecords(record.Collection)
			if err != nil {
				return err
			}
			seeded[record.Collection] = count > 0
			if count > 0 {
				logger.Info("Collection already has records, skipping seed", "collection", record.Collection, "count", count)
			}
		}
		if seeded[record.Collection] {
			continue
		}

		insertedRecord, err := recordDB.InsertRecord(record)
		if err != nil {
			logger.Warn("Failed to insert record", "collection", record.Collection, "error", err)
			continue
		}
		inserted++
		logger.Debug("Record loaded from JSON", "collection", insertedRecord.Collection, "rid", insertedRecord.RID)
	}

	logger.Info("Finished loading records from JSON", "file", filePath, "total", len(records), "inserted", inserted)
	return nil
}
