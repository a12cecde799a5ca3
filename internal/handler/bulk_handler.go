package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-systems/welfare-canteen-api/internal/service"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
	"github.com/custodia-systems/welfare-canteen-api/pkg/response"
)

// maxImportFileSize caps uploaded CSV files at 8 MiB.
const maxImportFileSize = 8 << 20

// BulkHandler accepts CSV uploads for bulk inmate registration.
type BulkHandler struct {
	bulk *service.BulkService
}

// NewBulkHandler constructs BulkHandler.
func NewBulkHandler(bulk *service.BulkService) *BulkHandler {
	return &BulkHandler{bulk: bulk}
}

// Template godoc
// @Summary Download the CSV template for bulk inmate import
// @Tags Bulk
// @Produce text/csv
// @Success 200 {string} string "CSV template"
// @Router /inmates/import/template [get]
func (h *BulkHandler) Template(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="inmate-import-template.csv"`)
	c.Data(http.StatusOK, "text/csv", h.bulk.TemplateCSV())
}

// ImportInmates godoc
// @Summary Bulk import inmates from CSV
// @Description Upload a CSV file; rows are partitioned into created, existing and failed
// @Tags Bulk
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Param location_id formData string false "Location stamped on created inmates"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /inmates/import [post]
func (h *BulkHandler) ImportInmates(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "csv file required"))
		return
	}
	if fileHeader.Size > maxImportFileSize {
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "file exceeds maximum size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file"))
		return
	}
	defer file.Close()

	claims, _ := currentClaims(c)
	result, err := h.bulk.ImportInmates(c.Request.Context(), file, c.PostForm("location_id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}
