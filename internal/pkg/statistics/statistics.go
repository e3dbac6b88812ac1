package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kmathenge/powervend/app/models"
	"github.com/kmathenge/powervend/internal/pkg/cache"
	"github.com/kmathenge/powervend/internal/pkg/database"
)

const (
	CacheKeyUsersTotal        = "statistics:users:total"
	CacheKeyDevicesTotal      = "statistics:devices:total"
	CacheKeyDevicesOnline     = "statistics:devices:online"
	CacheKeyTransactionsTotal = "statistics:transactions:total"
	CacheKeyRevenueTotal      = "statistics:revenue:total"
	CacheKeyUnitsSold         = "statistics:units:sold"
	CacheExpiration           = 30 * time.Minute
)

// DashboardData holds the counters shown on the admin dashboard.
type DashboardData struct {
	TotalUsers        int64           `json:"total_users"`
	TotalDevices      int64           `json:"total_devices"`
	OnlineDevices     int64           `json:"online_devices"`
	TotalTransactions int64           `json:"total_transactions"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalUnitsSold    decimal.Decimal `json:"total_units_sold"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached counters are stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cached counters when the interval has
// passed.
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next UpdateCacheIfNeeded to refresh.
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache recomputes all dashboard counters and writes them to
// the cache.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return fmt.Errorf("counting users: %w", err)
	}

	var totalDevices int64
	if err := db.Model(&models.Device{}).Count(&totalDevices).Error; err != nil {
		return fmt.Errorf("counting devices: %w", err)
	}

	var onlineDevices int64
	if err := db.Model(&models.Device{}).Where("is_online = ?", true).Count(&onlineDevices).Error; err != nil {
		return fmt.Errorf("counting online devices: %w", err)
	}

	var totalTransactions int64
	if err := db.Model(&models.Transaction{}).Count(&totalTransactions).Error; err != nil {
		return fmt.Errorf("counting transactions: %w", err)
	}

	var totals struct {
		Revenue string
		Units   string
	}
	err := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS revenue, COALESCE(SUM(units_purchased), 0) AS units").
		Where("status = ?", models.TransactionCompleted).
		Scan(&totals).Error
	if err != nil {
		return fmt.Errorf("summing completed transactions: %w", err)
	}

	values := map[string]string{
		CacheKeyUsersTotal:        strconv.FormatInt(totalUsers, 10),
		CacheKeyDevicesTotal:      strconv.FormatInt(totalDevices, 10),
		CacheKeyDevicesOnline:     strconv.FormatInt(onlineDevices, 10),
		CacheKeyTransactionsTotal: strconv.FormatInt(totalTransactions, 10),
		CacheKeyRevenueTotal:      totals.Revenue,
		CacheKeyUnitsSold:         totals.Units,
	}
	for key, value := range values {
		if err := cache.Set(key, value, CacheExpiration); err != nil {
			return fmt.Errorf("caching %s: %w", key, err)
		}
	}
	return nil
}

// GetDashboardData returns the dashboard counters, preferring the cache and
// falling back to a recomputation when a key is missing.
func GetDashboardData() (*DashboardData, error) {
	data := &DashboardData{
		TotalRevenue:   decimal.Zero,
		TotalUnitsSold: decimal.Zero,
	}

	raw, err := cache.Get(CacheKeyUsersTotal)
	if err != nil || raw == "" {
		if err := UpdateStatisticsCache(); err != nil {
			return nil, err
		}
	}

	data.TotalUsers = cachedCount(CacheKeyUsersTotal)
	data.TotalDevices = cachedCount(CacheKeyDevicesTotal)
	data.OnlineDevices = cachedCount(CacheKeyDevicesOnline)
	data.TotalTransactions = cachedCount(CacheKeyTransactionsTotal)
	data.TotalRevenue = cachedDecimal(CacheKeyRevenueTotal)
	data.TotalUnitsSold = cachedDecimal(CacheKeyUnitsSold)
	return data, nil
}

func cachedCount(key string) int64 {
	raw, err := cache.Get(key)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func cachedDecimal(key string) decimal.Decimal {
	raw, err := cache.Get(key)
	if err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
