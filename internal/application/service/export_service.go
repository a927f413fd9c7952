package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/procurement-workflow/internal/domain/entity"
)

const ordersSheet = "Orders"

var orderColumns = []interface{}{
	"Request #", "Product", "URL", "Quantity", "Estimated Price", "Currency",
	"Urgency", "Status", "Requester ID", "Approved At", "Amazon", "In Cart",
	"Cart Error", "Purchased At", "Purchase Notes",
}

// OrderExport is a generated workbook ready for download
type OrderExport struct {
	Filename string
	Content  []byte
	Rows     int
}

// ExportService renders approved orders as an xlsx workbook
type ExportService interface {
	ExportOrders(ctx context.Context, role entity.Role, filter string) (*OrderExport, error)
}

type exportServiceImpl struct {
	requests RequestService
	logger   Logger
	now      func() time.Time
}

// NewExportService creates a new ExportService on top of the order queries
func NewExportService(requests RequestService, logger Logger) ExportService {
	return &exportServiceImpl{
		requests: requests,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *exportServiceImpl) ExportOrders(ctx context.Context, role entity.Role, filter string) (*OrderExport, error) {
	filter, err := NormalizeOrderFilter(filter)
	if err != nil {
		return nil, err
	}
	orders, err := s.requests.ListOrders(ctx, role, filter)
	if err != nil {
		return nil, err
	}

	content, err := BuildOrdersWorkbook(orders)
	if err != nil {
		s.logger.Error("Failed to build orders workbook", "error", err, "filter", filter)
		return nil, err
	}

	filename := fmt.Sprintf("orders-%s-%s.xlsx", filter, s.now().Format("20060102"))
	s.logger.Info("Orders exported", "filter", filter, "rows", len(orders), "filename", filename)

	return &OrderExport{
		Filename: filename,
		Content:  content,
		Rows:     len(orders),
	}, nil
}

// BuildOrdersWorkbook writes one header row plus one row per request
func BuildOrdersWorkbook(orders []*entity.PurchaseRequest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetSheetRow(ordersSheet, "A1", &orderColumns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(orderColumns))
	if err := f.SetCellStyle(ordersSheet, "A1", lastCol+"1", header); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(ordersSheet, "B", "C", 40); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, o := range orders {
		row := orderRow(o)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(ordersSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func orderRow(o *entity.PurchaseRequest) []interface{} {
	price := ""
	if o.EstimatedPrice.Valid {
		price = o.EstimatedPrice.Decimal.StringFixed(2)
	}
	cartError := ""
	if o.CartError != nil {
		cartError = *o.CartError
	}
	notes := ""
	if o.PurchaseNotes != nil {
		notes = *o.PurchaseNotes
	}
	return []interface{}{
		o.RequestNumber,
		o.ProductTitle,
		o.URL,
		o.Quantity,
		price,
		o.Currency,
		string(o.Urgency),
		string(o.Status),
		o.RequesterID,
		formatTime(o.ApprovedAt),
		yesNo(o.IsAmazonURL),
		yesNo(o.AddedToCart),
		cartError,
		formatTime(o.PurchasedAt),
		notes,
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
