package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
	"github.com/custodia-systems/welfare-canteen-api/pkg/export"
)

type reportInmateRepository interface {
	BalanceReport(ctx context.Context) ([]models.InmateBalanceRow, error)
}

type reportTransactionRepository interface {
	Summary(ctx context.Context, rng models.ReportRange) ([]models.TransactionSummaryRow, error)
	CompletedPurchases(ctx context.Context, rng models.ReportRange) ([]models.Transaction, error)
}

type reportInventoryRepository interface {
	ListCanteen(ctx context.Context, filter models.InventoryFilter) ([]models.CanteenItem, int, error)
}

// Report is a rendered dataset plus its display title.
type Report struct {
	Title   string
	Dataset export.Dataset
}

// ReportService builds the four tabular reports. Rendering to a wire format
// happens at the handler with the shared exporters.
type ReportService struct {
	inmates      reportInmateRepository
	transactions reportTransactionRepository
	inventory    reportInventoryRepository
	logger       *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(inmates reportInmateRepository, transactions reportTransactionRepository, inventory reportInventoryRepository, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{inmates: inmates, transactions: transactions, inventory: inventory, logger: logger}
}

// InmateBalances reports every inmate's wallet balance.
func (s *ReportService) InmateBalances(ctx context.Context) (*Report, error) {
	rows, err := s.inmates.BalanceReport(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build balance report")
	}

	dataset := export.Dataset{Headers: []string{"Inmate ID", "First Name", "Last Name", "Custody", "Status", "Balance"}}
	var totalBalance float64
	for _, row := range rows {
		totalBalance += row.Balance
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Inmate ID":  row.InmateID,
			"First Name": row.FirstName,
			"Last Name":  row.LastName,
			"Custody":    row.CustodyType,
			"Status":     row.Status,
			"Balance":    fmt.Sprintf("%.2f", row.Balance),
		})
	}
	dataset.Totals = map[string]string{"Inmate ID": "TOTAL", "Balance": fmt.Sprintf("%.2f", totalBalance)}
	return &Report{Title: "Inmate Balance Report", Dataset: dataset}, nil
}

// TransactionSummary reports daily totals per transaction type.
func (s *ReportService) TransactionSummary(ctx context.Context, rng models.ReportRange) (*Report, error) {
	rows, err := s.transactions.Summary(ctx, rng)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build transaction summary")
	}

	dataset := export.Dataset{Headers: []string{"Day", "Type", "Count", "Amount"}}
	var totalCount int
	var totalAmount float64
	for _, row := range rows {
		totalCount += row.Count
		totalAmount += row.Amount
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":    row.Day.Format("2006-01-02"),
			"Type":   row.Type,
			"Count":  strconv.Itoa(row.Count),
			"Amount": fmt.Sprintf("%.2f", row.Amount),
		})
	}
	dataset.Totals = map[string]string{"Day": "TOTAL", "Count": strconv.Itoa(totalCount), "Amount": fmt.Sprintf("%.2f", totalAmount)}
	return &Report{Title: "Transaction Summary Report", Dataset: dataset}, nil
}

// TuckshopSales aggregates completed purchase lines per catalog item.
func (s *ReportService) TuckshopSales(ctx context.Context, rng models.ReportRange) (*Report, error) {
	txns, err := s.transactions.CompletedPurchases(ctx, rng)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build sales report")
	}

	byItem := map[string]*models.SalesByItemRow{}
	for _, txn := range txns {
		for _, line := range txn.Products {
			row, ok := byItem[line.ProductID]
			if !ok {
				row = &models.SalesByItemRow{ProductID: line.ProductID, ItemName: line.ItemName}
				byItem[line.ProductID] = row
			}
			row.Quantity += line.Quantity
			row.Amount += line.Price * float64(line.Quantity)
		}
	}

	rows := make([]*models.SalesByItemRow, 0, len(byItem))
	for _, row := range byItem {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Amount > rows[j].Amount })

	dataset := export.Dataset{Headers: []string{"Item", "Quantity Sold", "Revenue"}}
	var totalQuantity int
	var totalRevenue float64
	for _, row := range rows {
		totalQuantity += row.Quantity
		totalRevenue += row.Amount
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Item":          row.ItemName,
			"Quantity Sold": strconv.Itoa(row.Quantity),
			"Revenue":       fmt.Sprintf("%.2f", row.Amount),
		})
	}
	dataset.Totals = map[string]string{"Item": "TOTAL", "Quantity Sold": strconv.Itoa(totalQuantity), "Revenue": fmt.Sprintf("%.2f", totalRevenue)}
	return &Report{Title: "Tuck Shop Sales Report", Dataset: dataset}, nil
}

// Inventory reports current canteen stock levels.
func (s *ReportService) Inventory(ctx context.Context) (*Report, error) {
	var items []models.CanteenItem
	for page := 1; ; page++ {
		batch, _, err := s.inventory.ListCanteen(ctx, models.InventoryFilter{Page: page, PageSize: 100})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build inventory report")
		}
		items = append(items, batch...)
		if len(batch) < 100 {
			break
		}
	}

	dataset := export.Dataset{Headers: []string{"Item No", "Item", "Category", "Price", "Stock", "Status"}}
	for _, item := range items {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Item No":  item.ItemNo,
			"Item":     item.ItemName,
			"Category": item.Category,
			"Price":    fmt.Sprintf("%.2f", item.Price),
			"Stock":    strconv.Itoa(item.StockQuantity),
			"Status":   item.Status,
		})
	}
	return &Report{Title: "Inventory Report", Dataset: dataset}, nil
}
