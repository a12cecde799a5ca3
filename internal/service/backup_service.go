package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
	"github.com/custodia-systems/welfare-canteen-api/pkg/jobs"
	"github.com/custodia-systems/welfare-canteen-api/pkg/storage"
)

type backupInmateSource interface {
	List(ctx context.Context, filter models.InmateFilter) ([]models.Inmate, int, error)
}

type backupLedgerSource interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error)
}

type backupCatalogSource interface {
	ListCanteen(ctx context.Context, filter models.InventoryFilter) ([]models.CanteenItem, int, error)
}

// BackupConfig controls the scheduled snapshot.
type BackupConfig struct {
	Enabled  bool
	Schedule string
}

// snapshot is the serialized backup document.
type snapshot struct {
	TakenAt      time.Time            `json:"taken_at"`
	Inmates      []models.Inmate      `json:"inmates"`
	Transactions []models.Transaction `json:"transactions"`
	Catalog      []models.CanteenItem `json:"catalog"`
}

// BackupService writes JSON snapshots of the core tables, on a cron schedule
// and on demand through a worker queue.
type BackupService struct {
	inmates      backupInmateSource
	transactions backupLedgerSource
	catalog      backupCatalogSource
	store        *storage.LocalStorage
	queue        *jobs.Queue
	cron         *cron.Cron
	logger       *zap.Logger
	config       BackupConfig
}

// NewBackupService constructs a BackupService.
func NewBackupService(inmates backupInmateSource, transactions backupLedgerSource, catalog backupCatalogSource, store *storage.LocalStorage, logger *zap.Logger, config BackupConfig) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &BackupService{
		inmates:      inmates,
		transactions: transactions,
		catalog:      catalog,
		store:        store,
		logger:       logger,
		config:       config,
	}
	s.queue = jobs.NewQueue("backup", s.handleJob, jobs.QueueConfig{Workers: 1, Logger: logger})
	return s
}

// Start launches the worker queue and, when enabled, the cron schedule.
func (s *BackupService) Start(ctx context.Context) error {
	s.queue.Start(ctx)
	if !s.config.Enabled {
		return nil
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.config.Schedule, func() {
		if err := s.Enqueue(""); err != nil {
			s.logger.Warn("failed to enqueue scheduled backup", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule backup: %w", err)
	}
	s.cron.Start()
	s.logger.Info("backup schedule active", zap.String("schedule", s.config.Schedule))
	return nil
}

// Stop halts the schedule and the queue.
func (s *BackupService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.queue.Stop()
}

// Enqueue requests a snapshot. An empty path writes to the storage root;
// otherwise the file lands under the given relative directory.
func (s *BackupService) Enqueue(path string) error {
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobs.JobSnapshot, Payload: path}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue backup")
	}
	return nil
}

// QueueDepth reports how many snapshot jobs are waiting.
func (s *BackupService) QueueDepth() int {
	return s.queue.Depth()
}

// snapshotPageSize is the batch size used to drain each table. Repositories
// clamp larger requests, so draining walks pages until one comes back short.
const snapshotPageSize = 100

// Run takes a snapshot synchronously and returns the stored filename.
// Every table is drained completely, page by page.
func (s *BackupService) Run(ctx context.Context, path string) (string, error) {
	doc := snapshot{TakenAt: time.Now().UTC()}

	for page := 1; ; page++ {
		batch, _, err := s.inmates.List(ctx, models.InmateFilter{Page: page, PageSize: snapshotPageSize})
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot inmates")
		}
		doc.Inmates = append(doc.Inmates, batch...)
		if len(batch) < snapshotPageSize {
			break
		}
	}

	for page := 1; ; page++ {
		batch, _, err := s.transactions.List(ctx, models.TransactionFilter{Page: page, PageSize: snapshotPageSize})
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot transactions")
		}
		doc.Transactions = append(doc.Transactions, batch...)
		if len(batch) < snapshotPageSize {
			break
		}
	}

	for page := 1; ; page++ {
		batch, _, err := s.catalog.ListCanteen(ctx, models.InventoryFilter{Page: page, PageSize: snapshotPageSize})
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot catalog")
		}
		doc.Catalog = append(doc.Catalog, batch...)
		if len(batch) < snapshotPageSize {
			break
		}
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize snapshot")
	}

	filename := fmt.Sprintf("backup-%s.json", doc.TakenAt.Format("20060102-150405"))
	if path != "" {
		filename = path + "/" + filename
	}
	stored, err := s.store.Save(filename, payload)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write snapshot")
	}

	s.logger.Info("backup written",
		zap.String("file", stored),
		zap.Int("inmates", len(doc.Inmates)),
		zap.Int("transactions", len(doc.Transactions)),
		zap.Int("catalog", len(doc.Catalog)))
	return stored, nil
}

func (s *BackupService) handleJob(ctx context.Context, job jobs.Job) error {
	path, _ := job.Payload.(string)
	_, err := s.Run(ctx, path)
	return err
}
