package handler

import (
	"fmt"
	"net/http"
	"path"

	"github.com/siherrmann/schoolpayManager/helper"
	"github.com/siherrmann/schoolpayManager/upload"
	"github.com/siherrmann/schoolpayManager/view/screens"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
)

// GetExports lists the stored export artifacts
func (m *ManagerHandler) GetExports(c echo.Context) error {
	files, err := upload.ListExports(m.filesystem)
	if err != nil {
		return renderPopupOrJson(c, http.StatusInternalServerError, fmt.Sprintf("Failed to list exports: %v", err))
	}
	return c.JSON(http.StatusOK, files)
}

// DownloadExport sends a stored export artifact
func (m *ManagerHandler) DownloadExport(c echo.Context) error {
	exportPath, err := upload.ExportPath(pathParam(c, "filename"))
	if err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, err.Error())
	}

	reader, err := m.filesystem.Open(exportPath)
	if err != nil {
		return renderPopupOrJson(c, http.StatusNotFound, fmt.Sprintf("Export %s not found", path.Base(exportPath)))
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", path.Base(exportPath)))
	return c.Stream(http.StatusOK, helper.GetMimeType(exportPath), reader)
}

// DeleteExports deletes every export given as ?name=
func (m *ManagerHandler) DeleteExports(c echo.Context) error {
	names := c.QueryParams()["name"]
	if len(names) == 0 {
		return renderPopupOrJson(c, http.StatusBadRequest, "No file names provided")
	}

	var deletedFiles []string
	var errors []string

	for _, name := range names {
		exportPath, err := upload.ExportPath(name)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}

		err = m.filesystem.Delete(exportPath)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
		} else {
			deletedFiles = append(deletedFiles, name)
		}
	}

	c.Response().Header().Add("HX-Trigger-After-Settle", "reloadExports")

	if len(errors) > 0 {
		return renderPopupOrJson(c, http.StatusInternalServerError, fmt.Sprintf("Deleted %d file(s), but %d failed: %v", len(deletedFiles), len(errors), errors))
	}

	return renderPopupOrJson(c, http.StatusOK, fmt.Sprintf("%d file(s) deleted successfully", len(deletedFiles)))
}

// ExportsView renders the export list
func (m *ManagerHandler) ExportsView(c echo.Context) error {
	files, err := upload.ListExports(m.filesystem)
	if err != nil {
		return renderPopupOrJson(c, http.StatusInternalServerError, fmt.Sprintf("Failed to list exports: %v", err))
	}

	if isHtmx(c) {
		c.Response().Header().Add("HX-Push-Url", "/exports")
		c.Response().Header().Add("HX-Retarget", "#body")
		return render(c, screens.Exports(files))
	}
	return render(c, screens.Layout("Exports", csrf.Token(c.Request()), screens.Exports(files)))
}
