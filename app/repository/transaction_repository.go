package repository

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kmathenge/powervend/app/models"
)

// transactionRepository implements the read/report side of the transactions
// table. All writes go through the vending engine.
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// GetByID retrieves a transaction with its rate preloaded
func (r *transactionRepository) GetByID(id uint) (*models.Transaction, error) {
	var trx models.Transaction
	err := r.db.Preload("Rate").First(&trx, id).Error
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// GetByReference retrieves a transaction by its unique reference string
func (r *transactionRepository) GetByReference(ref string) (*models.Transaction, error) {
	var trx models.Transaction
	err := r.db.Preload("Rate").Where("transaction_reference = ?", ref).First(&trx).Error
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// ListByUser retrieves a user's transactions newest first, optionally
// filtered by status
func (r *transactionRepository) ListByUser(userID uint, offset, limit int, status string) ([]models.Transaction, error) {
	q := r.db.Preload("Rate").Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var trxs []models.Transaction
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&trxs).Error
	return trxs, err
}

// List retrieves all transactions matching the filter, newest first
func (r *transactionRepository) List(filter TransactionFilter, offset, limit int) ([]models.Transaction, error) {
	var trxs []models.Transaction
	err := applyFilter(r.db.Preload("Rate"), filter).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&trxs).Error
	return trxs, err
}

// LastCompletedForDevice returns the most recent completed purchase credited
// to the device, or gorm.ErrRecordNotFound.
func (r *transactionRepository) LastCompletedForDevice(deviceID string) (*models.Transaction, error) {
	var trx models.Transaction
	err := r.db.Where("device_id = ? AND status = ?", deviceID, models.TransactionCompleted).
		Order("created_at DESC").First(&trx).Error
	if err != nil {
		return nil, err
	}
	return &trx, nil
}

// Count returns the total number of transactions
func (r *transactionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).Count(&count).Error
	return count, err
}

// Summary aggregates totals over the filtered transaction set
func (r *transactionRepository) Summary(filter TransactionFilter) (*TransactionSummary, error) {
	summary := &TransactionSummary{}

	base := applyFilter(r.db.Model(&models.Transaction{}), filter)
	if err := base.Count(&summary.TotalCount).Error; err != nil {
		return nil, err
	}

	type totals struct {
		Amount string
		Units  string
	}
	var agg totals
	err := applyFilter(r.db.Model(&models.Transaction{}), filter).
		Select("COALESCE(SUM(amount), 0) AS amount, COALESCE(SUM(units_purchased), 0) AS units").
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	if summary.TotalAmount, err = parseDecimal(agg.Amount); err != nil {
		return nil, err
	}
	if summary.TotalUnits, err = parseDecimal(agg.Units); err != nil {
		return nil, err
	}

	type statusCount struct {
		Status string
		N      int64
	}
	var counts []statusCount
	err = applyFilter(r.db.Model(&models.Transaction{}), filter).
		Select("status, COUNT(*) AS n").Group("status").Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		switch c.Status {
		case models.TransactionCompleted:
			summary.Completed = c.N
		case models.TransactionPending:
			summary.Pending = c.N
		case models.TransactionFailed:
			summary.Failed = c.N
		}
	}

	return summary, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func applyFilter(q *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PaymentMethod != "" {
		q = q.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.StartDate != nil {
		q = q.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("created_at <= ?", *filter.EndDate)
	}
	return q
}
