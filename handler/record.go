package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/siherrmann/schoolpayManager/catalog"
	"github.com/siherrmann/schoolpayManager/model"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// =======API Handlers=======

// AddRecord adds a record to a collection. The body is a JSON object or a
// form, empty form values are dropped and column values are validated and
// converted to the column types.
func (m *ManagerHandler) AddRecord(c echo.Context) error {
	collection, err := catalog.Lookup(c.Param("collection"))
	if err != nil {
		return renderPopupOrJson(c, http.StatusNotFound, err.Error())
	}

	data, err := m.recordData(c, collection)
	if err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid record data: %v", err))
	}

	insertedRecord, err := m.recordDB.InsertRecord(&model.Record{
		Collection: collection.Name,
		Data:       data,
	})
	if err != nil {
		return renderPopupOrJson(c, http.StatusInternalServerError, fmt.Sprintf("Failed to add record: %v", err))
	}
	m.sessions.Invalidate(collection.Name)

	c.Response().Header().Add("HX-Trigger-After-Settle", "reloadGrid")

	return renderPopupOrJson(c, http.StatusCreated, fmt.Sprintf("Record %s added successfully", insertedRecord.RID), insertedRecord)
}

// UpdateRecord replaces the data of the record ?rid=
func (m *ManagerHandler) UpdateRecord(c echo.Context) error {
	rid, err := uuid.Parse(c.QueryParam("rid"))
	if err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid record ID: %v", err))
	}

	record, err := m.recordDB.SelectRecord(rid)
	if err != nil {
		return renderPopupOrJson(c, http.StatusNotFound, fmt.Sprintf("Record %s not found", rid))
	}

	// Records of collections outside the catalog are stored as sent.
	collection, err := catalog.Lookup(record.Collection)
	if err != nil {
		collection = catalog.Collection{Name: record.Collection}
	}

	data, err := m.recordData(c, collection)
	if err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid record data: %v", err))
	}

	record.Data = data
	updatedRecord, err := m.recordDB.UpdateRecord(record)
	if err != nil {
		return renderPopupOrJson(c, http.StatusInternalServerError, fmt.Sprintf("Failed to update record: %v", err))
	}
	m.sessions.Invalidate(updatedRecord.Collection)

	c.Response().Header().Add("HX-Trigger-After-Settle", "reloadGrid")

	return renderPopupOrJson(c, http.StatusOK, fmt.Sprintf("Record %s updated successfully", rid), updatedRecord)
}

// DeleteRecords deletes every record given as ?rid=
func (m *ManagerHandler) DeleteRecords(c echo.Context) error {
	rids := c.QueryParams()["rid"]
	if len(rids) == 0 {
		return renderPopupOrJson(c, http.StatusBadRequest, "No record IDs provided")
	}

	var deletedRecords []string
	var errors []string

	for _, ridStr := range rids {
		rid, err := uuid.Parse(ridStr)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: invalid record ID", ridStr))
			continue
		}

		record, err := m.recordDB.SelectRecord(rid)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: not found", ridStr))
			continue
		}

		err = m.recordDB.DeleteRecord(rid)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", ridStr, err))
			continue
		}
		m.sessions.Invalidate(record.Collection)
		deletedRecords = append(deletedRecords, ridStr)
	}

	c.Response().Header().Add("HX-Trigger-After-Settle", "reloadGrid")

	if len(errors) > 0 {
		return renderPopupOrJson(c, http.StatusInternalServerError, fmt.Sprintf("Deleted %d record(s), but %d failed: %v", len(deletedRecords), len(errors), errors))
	}

	return renderPopupOrJson(c, http.StatusOK, fmt.Sprintf("%d record(s) deleted successfully", len(deletedRecords)))
}

// GetRecord returns one record by its ID
func (m *ManagerHandler) GetRecord(c echo.Context) error {
	rid, err := uuid.Parse(c.Param("rid"))
	if err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid record ID: %v", err))
	}

	record, err := m.recordDB.SelectRecord(rid)
	if err != nil {
		return renderPopupOrJson(c, http.StatusNotFound, fmt.Sprintf("Record %s not found", rid))
	}

	return c.JSON(http.StatusOK, record)
}

// recordData reads the record data of a JSON or form request. The validator
// checks the column values, values it converted from form text replace the
// raw text.
func (m *ManagerHandler) recordData(c echo.Context, collection catalog.Collection) (model.DataMap, error) {
	request := c.Request()
	body, err := io.ReadAll(request.Body)
	if err != nil {
		return nil, err
	}

	parameters := map[string]any{}
	request.Body = io.NopCloser(bytes.NewReader(body))
	err = m.validator.UnmapOrUnmarshalValidateAndUpdateWithValidation(request, &parameters, collection.Validations())
	if err != nil {
		return nil, fmt.Errorf("validation error: %v", err)
	}
	request.Body = io.NopCloser(bytes.NewReader(body))

	data, err := rawRecordData(c, body)
	if err != nil {
		return nil, err
	}
	for key, value := range parameters {
		if _, isText := data[key].(string); isText && value != nil && value != "" {
			data[key] = value
		}
	}

	return collection.Typed(data)
}

func rawRecordData(c echo.Context, body []byte) (model.DataMap, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		data := model.DataMap{}
		if err := data.Unmarshal(body); err != nil {
			return nil, err
		}
		return data, nil
	}

	form, err := c.FormParams()
	if err != nil {
		return nil, err
	}
	data := model.DataMap{}
	for key, values := range form {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}
	return data.StripEmpty(), nil
}
