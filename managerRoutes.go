package schoolpayManager

import (
	"net/http"

	"github.com/siherrmann/schoolpayManager/handler"
	mw "github.com/siherrmann/schoolpayManager/middleware"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes for the manager service
func SetupRoutes(e *echo.Echo, h *handler.ManagerHandler) {
	e.HTTPErrorHandler = handler.HandleErrorView

	// Middleware
	// e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	// Custom Middleware
	m := mw.NewMiddleware()
	e.Use(m.MetricsMiddleware)
	e.Use(m.RequestContextMiddleware)

	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// View routes
	e.GET("/", h.IndexView, m.CsrfMiddleware())
	e.GET("/grid/:collection", h.GridView, m.CsrfMiddleware())
	e.GET("/exports", h.ExportsView, m.CsrfMiddleware())

	// API routes
	api := e.Group("/api", m.CsrfMiddleware())

	grids := api.Group("/grid/:collection")
	grids.GET("", h.GetGrid)
	grids.POST("/search", h.Search)
	grids.POST("/filters", h.SetFilters)
	grids.POST("/filter", h.SetFilter)
	grids.POST("/sort/:key", h.Sort)
	grids.POST("/page", h.Page)
	grids.POST("/select/:key", h.Select)
	grids.POST("/selectAll", h.SelectAll)
	grids.POST("/clearSelection", h.ClearSelection)
	grids.POST("/columns", h.Columns)
	grids.GET("/export", h.Export)

	records := api.Group("/record")
	records.POST("/:collection/addRecord", h.AddRecord)
	records.POST("/updateRecord", h.UpdateRecord)
	records.POST("/deleteRecords", h.DeleteRecords)
	records.GET("/getRecord/:rid", h.GetRecord)

	files := api.Group("/file")
	files.GET("/getExports", h.GetExports)
	files.GET("/download/:filename", h.DownloadExport)
	files.POST("/deleteExports", h.DeleteExports)

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	e.Static("/static/", "./view/static")
}
