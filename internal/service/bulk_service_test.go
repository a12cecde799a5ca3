package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type mockBulkRepo struct {
	existing map[string]bool
	created  []*models.Inmate
	failOn   map[string]bool
}

func (m *mockBulkRepo) ExistsByInmateID(ctx context.Context, inmateID, excludeID string) (bool, error) {
	return m.existing[inmateID], nil
}

func (m *mockBulkRepo) Create(ctx context.Context, inmate *models.Inmate) error {
	if m.failOn[inmate.InmateID] {
		return assert.AnError
	}
	m.created = append(m.created, inmate)
	return nil
}

const bulkCSV = `inmateId,firstName,lastName,custodyType,status,phone,cellNumber,dateOfBirth,admissionDate
INM-001,John,Doe,REMAND_PRISON,active,123,B-1,1990-01-01,2024-03-01
INM-002,Jane,Doe,UNDER_TRIAL,,,,,
INM-003,Sam,Poe,CONTEMPT_OF_COURT,active,,,not-a-date,
INM-004,Max,Roe,BAD_CUSTODY,active,,,,
INM-005,Ann,Loe,REMAND_PRISON,active,,,,
`

func TestBulkImportBucketsEveryRow(t *testing.T) {
	repo := &mockBulkRepo{
		existing: map[string]bool{"INM-002": true},
		failOn:   map[string]bool{"INM-005": true},
	}
	svc := NewBulkService(repo, &mockCartCache{}, &mockAudit{}, zap.NewNop(), 100)

	resp, err := svc.ImportInmates(context.Background(), strings.NewReader(bulkCSV), "", &models.JWTClaims{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"INM-001"}, resp.Results.Created)
	assert.Equal(t, []string{"INM-002"}, resp.Results.AlreadyExists)
	require.Len(t, resp.Results.Failed, 3)

	// every input row lands in exactly one bucket
	total := len(resp.Results.Created) + len(resp.Results.AlreadyExists) + len(resp.Results.Failed)
	assert.Equal(t, 5, total)

	require.Len(t, repo.created, 1)
	assert.Equal(t, models.CustodyRemandPrison, repo.created[0].CustodyType)
	require.NotNil(t, repo.created[0].DateOfBirth)
}

func TestBulkImportRejectsMissingColumns(t *testing.T) {
	svc := NewBulkService(&mockBulkRepo{}, nil, nil, zap.NewNop(), 100)

	_, err := svc.ImportInmates(context.Background(), strings.NewReader("firstName,lastName\nJohn,Doe\n"), "", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBulkImportBucketsOverflowRows(t *testing.T) {
	repo := &mockBulkRepo{existing: map[string]bool{}}
	svc := NewBulkService(repo, nil, nil, zap.NewNop(), 2)

	csv := "inmateId,firstName,lastName,custodyType\n" +
		"INM-001,A,B,REMAND_PRISON\n" +
		"INM-002,C,D,REMAND_PRISON\n" +
		"INM-003,E,F,REMAND_PRISON\n" +
		"INM-004,G,H,REMAND_PRISON\n"
	resp, err := svc.ImportInmates(context.Background(), strings.NewReader(csv), "", nil)
	require.NoError(t, err)

	// rows within the limit keep their outcome
	assert.Equal(t, []string{"INM-001", "INM-002"}, resp.Results.Created)
	require.Len(t, repo.created, 2)

	// overflow rows are reported, not silently dropped
	require.Len(t, resp.Results.Failed, 2)
	assert.Equal(t, "INM-003", resp.Results.Failed[0].InmateID)
	assert.Equal(t, 4, resp.Results.Failed[0].Row)
	assert.Contains(t, resp.Results.Failed[0].Reason, "row limit")
	assert.Equal(t, "INM-004", resp.Results.Failed[1].InmateID)
}

func TestBulkImportStampsLocation(t *testing.T) {
	repo := &mockBulkRepo{existing: map[string]bool{}}
	svc := NewBulkService(repo, nil, nil, zap.NewNop(), 100)

	csv := "inmateId,firstName,lastName,custodyType\nINM-020,Eve,Noe,REMAND_PRISON\n"
	_, err := svc.ImportInmates(context.Background(), strings.NewReader(csv), "loc-1", nil)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	require.NotNil(t, repo.created[0].LocationID)
	assert.Equal(t, "loc-1", *repo.created[0].LocationID)
}

func TestBulkTemplateLeadsWithHeader(t *testing.T) {
	svc := NewBulkService(&mockBulkRepo{}, nil, nil, zap.NewNop(), 100)

	lines := strings.Split(strings.TrimSpace(string(svc.TemplateCSV())), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(bulkHeader, ","), lines[0])
}

func TestBulkImportNormalizesCustodySpelling(t *testing.T) {
	repo := &mockBulkRepo{existing: map[string]bool{}}
	svc := NewBulkService(repo, nil, nil, zap.NewNop(), 100)

	csv := "inmateId,firstName,lastName,custodyType\ninm-010,Ada,Low,under trial\n"
	resp, err := svc.ImportInmates(context.Background(), strings.NewReader(csv), "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"INM-010"}, resp.Results.Created)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.CustodyUnderTrial, repo.created[0].CustodyType)
}
