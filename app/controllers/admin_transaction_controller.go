package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/app/repository"
	"github.com/kmathenge/powervend/internal/pkg/export"
)

// transactionFilterFromQuery reads the shared admin listing filters:
// status, payment_method, start_date and end_date (RFC 3339 or YYYY-MM-DD).
func transactionFilterFromQuery(c *fiber.Ctx) (repository.TransactionFilter, error) {
	filter := repository.TransactionFilter{
		Status:        c.Query("status"),
		PaymentMethod: c.Query("payment_method"),
	}
	if filter.Status != "" && !models.ValidTransactionStatus(filter.Status) {
		return filter, fiber.NewError(fiber.StatusBadRequest, "Unknown transaction status")
	}

	if raw := c.Query("start_date"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "Invalid start_date")
		}
		filter.StartDate = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "Invalid end_date")
		}
		filter.EndDate = &t
	}
	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// HandleAdminListTransactions lists transactions with filters, newest first.
func HandleAdminListTransactions(c *fiber.Ctx) error {
	filter, err := transactionFilterFromQuery(c)
	if err != nil {
		return err
	}
	offset, limit := pagination(c)

	transactions, err := repository.GetGlobalFactory().GetTransactionRepository().List(filter, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transactions)
}

// HandleAdminGetTransaction returns one transaction by numeric id.
func HandleAdminGetTransaction(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid transaction id"})
	}
	trx, err := repository.GetGlobalFactory().GetTransactionRepository().GetByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(trx)
}

// HandleAdminGetTransactionByReference looks a transaction up by its
// TR-... reference.
func HandleAdminGetTransactionByReference(c *fiber.Ctx) error {
	trx, err := repository.GetGlobalFactory().GetTransactionRepository().GetByReference(c.Params("reference"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(trx)
}

// HandleAdminTransactionSummary aggregates totals over the filtered set.
func HandleAdminTransactionSummary(c *fiber.Ctx) error {
	filter, err := transactionFilterFromQuery(c)
	if err != nil {
		return err
	}

	summary, err := repository.GetGlobalFactory().GetTransactionRepository().Summary(filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// HandleAdminExportTransactionsCSV streams the filtered transactions as a
// CSV download.
func HandleAdminExportTransactionsCSV(c *fiber.Ctx) error {
	filter, err := transactionFilterFromQuery(c)
	if err != nil {
		return err
	}

	// Limit -1 disables pagination for the export.
	transactions, err := repository.GetGlobalFactory().GetTransactionRepository().List(filter, 0, -1)
	if err != nil {
		return respondError(c, err)
	}

	data, err := export.TransactionsCSV(transactions)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	return c.Send(data)
}
