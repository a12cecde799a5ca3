package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/repository"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

// BulkFailure names a rejected row and why it was rejected.
type BulkFailure struct {
	InmateID string `json:"inmateId"`
	Row      int    `json:"row"`
	Reason   string `json:"reason"`
}

// BulkResults buckets every row of an import into exactly one outcome.
type BulkResults struct {
	Created       []string      `json:"created"`
	AlreadyExists []string      `json:"alreadyExists"`
	Failed        []BulkFailure `json:"failed"`
}

// BulkImportResponse wraps the outcome buckets.
type BulkImportResponse struct {
	Results BulkResults `json:"results"`
}

type bulkInmateRepository interface {
	ExistsByInmateID(ctx context.Context, inmateID, excludeID string) (bool, error)
	Create(ctx context.Context, inmate *models.Inmate) error
}

// BulkService imports inmates from CSV. Rows are processed independently: a
// bad row lands in failed and the rest continue.
type BulkService struct {
	repo    bulkInmateRepository
	cache   userCache
	audit   auditRecorder
	logger  *zap.Logger
	maxRows int
}

// NewBulkService constructs a BulkService.
func NewBulkService(repo bulkInmateRepository, cache userCache, audit auditRecorder, logger *zap.Logger, maxRows int) *BulkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &BulkService{repo: repo, cache: cache, audit: audit, logger: logger, maxRows: maxRows}
}

// bulkHeader is the required CSV column order.
var bulkHeader = []string{"inmateId", "firstName", "lastName", "custodyType", "status", "phone", "cellNumber", "dateOfBirth", "admissionDate"}

// TemplateCSV returns a downloadable CSV holding the required header row and
// one example entry.
func (s *BulkService) TemplateCSV() []byte {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	_ = w.Write(bulkHeader)
	_ = w.Write([]string{"INM-0001", "John", "Doe", string(models.CustodyRemandPrison), models.InmateStatusActive, "", "B-12", "1990-01-15", "2024-06-01"})
	w.Flush()
	return []byte(buf.String())
}

// ImportInmates parses the CSV stream and registers each row. A non-empty
// locationID is stamped onto every created inmate.
func (s *BulkService) ImportInmates(ctx context.Context, r io.Reader, locationID string, claims *models.JWTClaims) (*BulkImportResponse, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty or not a CSV")
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	resp := &BulkImportResponse{Results: BulkResults{Created: []string{}, AlreadyExists: []string{}, Failed: []BulkFailure{}}}
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			resp.Results.Failed = append(resp.Results.Failed, BulkFailure{Row: row, Reason: "malformed CSV row"})
			continue
		}
		if row-1 > s.maxRows {
			// Rows already processed keep their outcome; overflow rows are
			// reported rather than discarding the whole import.
			resp.Results.Failed = append(resp.Results.Failed, BulkFailure{
				InmateID: value(record, columns, "inmateId"),
				Row:      row,
				Reason:   fmt.Sprintf("exceeds the %d row limit", s.maxRows),
			})
			continue
		}

		inmate, reason := s.parseRow(record, columns)
		if reason != "" {
			resp.Results.Failed = append(resp.Results.Failed, BulkFailure{InmateID: value(record, columns, "inmateId"), Row: row, Reason: reason})
			continue
		}
		if locationID != "" {
			inmate.LocationID = &locationID
		}

		exists, err := s.repo.ExistsByInmateID(ctx, inmate.InmateID, "")
		if err != nil {
			resp.Results.Failed = append(resp.Results.Failed, BulkFailure{InmateID: inmate.InmateID, Row: row, Reason: "lookup failed"})
			continue
		}
		if exists {
			resp.Results.AlreadyExists = append(resp.Results.AlreadyExists, inmate.InmateID)
			continue
		}

		if err := s.repo.Create(ctx, inmate); err != nil {
			s.logger.Warn("bulk import row failed", zap.String("inmateId", inmate.InmateID), zap.Error(err))
			resp.Results.Failed = append(resp.Results.Failed, BulkFailure{InmateID: inmate.InmateID, Row: row, Reason: "database write failed"})
			continue
		}
		resp.Results.Created = append(resp.Results.Created, inmate.InmateID)
	}

	if s.cache != nil && len(resp.Results.Created) > 0 {
		s.cache.InvalidateGroups(ctx, repository.CacheGroupInmates, repository.CacheGroupDashboard)
	}
	if s.audit != nil && claims != nil {
		s.audit.Record(ctx, &models.AuditLog{
			UserID:   &claims.UserID,
			Action:   models.AuditActionBulkImport,
			Resource: "inmate",
			NewValues: []byte(fmt.Sprintf(`{"created":%d,"alreadyExists":%d,"failed":%d}`,
				len(resp.Results.Created), len(resp.Results.AlreadyExists), len(resp.Results.Failed))),
		})
	}

	return resp, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"inmateId", "firstName", "lastName", "custodyType"} {
		if _, ok := columns[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required column %q", required))
		}
	}
	return columns, nil
}

func value(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (s *BulkService) parseRow(record []string, columns map[string]int) (*models.Inmate, string) {
	inmateID := value(record, columns, "inmateId")
	if inmateID == "" {
		return nil, "inmateId is required"
	}
	firstName := value(record, columns, "firstName")
	lastName := value(record, columns, "lastName")
	if firstName == "" || lastName == "" {
		return nil, "firstName and lastName are required"
	}

	custody := models.CustodyType(strings.ToUpper(strings.ReplaceAll(value(record, columns, "custodyType"), " ", "_")))
	if _, ok := custody.LimitIndex(); !ok {
		return nil, fmt.Sprintf("unknown custody type %q", value(record, columns, "custodyType"))
	}

	status := value(record, columns, "status")
	if status == "" {
		status = models.InmateStatusActive
	}

	inmate := &models.Inmate{
		InmateID:    strings.ToUpper(inmateID),
		FirstName:   firstName,
		LastName:    lastName,
		Status:      status,
		CustodyType: custody,
		Phone:       value(record, columns, "phone"),
		CellNumber:  value(record, columns, "cellNumber"),
	}

	if raw := value(record, columns, "dateOfBirth"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, "dateOfBirth must be YYYY-MM-DD"
		}
		inmate.DateOfBirth = &ts
	}
	if raw := value(record, columns, "admissionDate"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, "admissionDate must be YYYY-MM-DD"
		}
		inmate.AdmissionDate = &ts
	}

	return inmate, ""
}
