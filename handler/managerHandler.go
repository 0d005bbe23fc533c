package handler

import (
	"log/slog"
	"net/http"

	"github.com/siherrmann/schoolpayManager/database"
	"github.com/siherrmann/schoolpayManager/upload"

	"github.com/labstack/echo/v4"
	"github.com/siherrmann/validator"
)

type ManagerHandler struct {
	filesystem upload.Filesystem
	validator  *validator.Validator
	recordDB   database.RecordDBHandlerFunctions
	logger     *slog.Logger
	sessions   *SessionRegistry
}

// NewManagerHandler creates the handler. A defaultPageSize <= 0 uses the
// page size of the grid package.
func NewManagerHandler(filesystem upload.Filesystem, recordDB database.RecordDBHandlerFunctions, logger *slog.Logger, defaultPageSize int) *ManagerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManagerHandler{
		filesystem: filesystem,
		validator:  validator.NewValidator(),
		recordDB:   recordDB,
		logger:     logger,
		sessions:   NewSessionRegistry(logger, defaultPageSize),
	}
}

// Health check handler
func (m *ManagerHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "schoolpay-manager",
	})
}
