package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/service"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
	"github.com/custodia-systems/welfare-canteen-api/pkg/export"
	"github.com/custodia-systems/welfare-canteen-api/pkg/response"
)

// ReportHandler renders operational reports in json, csv, excel or pdf.
// The excel format is CSV served with an Excel content type so spreadsheet
// clients open it directly.
type ReportHandler struct {
	reports *service.ReportService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
	}
}

func reportRangeFrom(c *gin.Context) models.ReportRange {
	var rng models.ReportRange
	if raw := c.Query("startDate"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			rng.StartDate = &t
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			rng.EndDate = &t
		}
	}
	return rng
}

// InmateBalances godoc
// @Summary Inmate balance report
// @Tags Reports
// @Produce json
// @Param format query string false "json, csv, excel or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/inmate-balances [get]
func (h *ReportHandler) InmateBalances(c *gin.Context) {
	h.render(c, func(ctx context.Context) (*service.Report, error) {
		return h.reports.InmateBalances(ctx)
	})
}

// TransactionSummary godoc
// @Summary Daily transaction summary report
// @Tags Reports
// @Produce json
// @Param format query string false "json, csv, excel or pdf"
// @Param startDate query string false "On or after (YYYY-MM-DD)"
// @Param endDate query string false "On or before (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/transaction-summary [get]
func (h *ReportHandler) TransactionSummary(c *gin.Context) {
	rng := reportRangeFrom(c)
	h.render(c, func(ctx context.Context) (*service.Report, error) {
		return h.reports.TransactionSummary(ctx, rng)
	})
}

// TuckshopSales godoc
// @Summary Tuck-shop sales by item report
// @Tags Reports
// @Produce json
// @Param format query string false "json, csv, excel or pdf"
// @Param startDate query string false "On or after (YYYY-MM-DD)"
// @Param endDate query string false "On or before (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/tuckshop-sales [get]
func (h *ReportHandler) TuckshopSales(c *gin.Context) {
	rng := reportRangeFrom(c)
	h.render(c, func(ctx context.Context) (*service.Report, error) {
		return h.reports.TuckshopSales(ctx, rng)
	})
}

// Inventory godoc
// @Summary Inventory stock report
// @Tags Reports
// @Produce json
// @Param format query string false "json, csv, excel or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/inventory [get]
func (h *ReportHandler) Inventory(c *gin.Context) {
	h.render(c, func(ctx context.Context) (*service.Report, error) {
		return h.reports.Inventory(ctx)
	})
}

func (h *ReportHandler) render(c *gin.Context, build func(context.Context) (*service.Report, error)) {
	report, err := build(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "json"))
	switch format {
	case "json", "":
		response.JSON(c, http.StatusOK, report, nil)
	case "csv", "excel":
		body, err := h.csv.Render(report.Dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to render report"))
			return
		}
		contentType := "text/csv"
		ext := "csv"
		if format == "excel" {
			contentType = "application/vnd.ms-excel"
			ext = "xls"
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", reportFilename(report.Title), ext))
		c.Data(http.StatusOK, contentType, body)
	case "pdf":
		body, err := h.pdf.Render(report.Dataset, report.Title)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to render report"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", reportFilename(report.Title)))
		c.Data(http.StatusOK, "application/pdf", body)
	default:
		response.Error(c, appErrors.New(appErrors.ErrValidation.Code, http.StatusBadRequest, "unsupported report format"))
	}
}

func reportFilename(title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	name = strings.ReplaceAll(name, " ", "-")
	if name == "" {
		name = "report"
	}
	return name + "-" + time.Now().Format("20060102")
}
