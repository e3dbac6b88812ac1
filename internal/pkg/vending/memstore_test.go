package vending

import (
	"context"
	"errors"

	"github.com/kmathenge/powervend/app/models"
)

// memStore is an in-memory Store for engine tests. WithinTx snapshots all
// state up front and restores it when fn fails, mirroring the all-or-nothing
// commit of the GORM store.
type memStore struct {
	users        map[uint]*models.User
	devices      map[string]*models.Device
	rates        map[uint]*models.RatePlan
	transactions map[uint]*models.Transaction
	nextTxID     uint

	failSaveTransaction bool
}

var errStoreDown = errors.New("storage unavailable")

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[uint]*models.User),
		devices:      make(map[string]*models.Device),
		rates:        make(map[uint]*models.RatePlan),
		transactions: make(map[uint]*models.Transaction),
		nextTxID:     1,
	}
}

func (m *memStore) snapshot() *memStore {
	cp := newMemStore()
	cp.nextTxID = m.nextTxID
	for id, u := range m.users {
		c := *u
		cp.users[id] = &c
	}
	for id, d := range m.devices {
		c := *d
		cp.devices[id] = &c
	}
	for id, r := range m.rates {
		c := *r
		cp.rates[id] = &c
	}
	for id, t := range m.transactions {
		c := *t
		cp.transactions[id] = &c
	}
	return cp
}

func (m *memStore) restore(from *memStore) {
	m.users = from.users
	m.devices = from.devices
	m.rates = from.rates
	m.transactions = from.transactions
	m.nextTxID = from.nextTxID
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx Store) error) error {
	before := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(before)
		return err
	}
	return nil
}

func (m *memStore) UserForUpdate(id uint) (*models.User, error) {
	return m.users[id], nil
}

func (m *memStore) DeviceForUpdate(deviceID string) (*models.Device, error) {
	return m.devices[deviceID], nil
}

func (m *memStore) PrimaryDeviceForUpdate(userID uint) (*models.Device, error) {
	for _, d := range m.devices {
		if d.BelongsTo(userID) && d.IsPrimary {
			return d, nil
		}
	}
	return nil, nil
}

func (m *memStore) ActiveRate() (*models.RatePlan, error) {
	for _, r := range m.rates {
		if r.IsActive {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memStore) TransactionForUpdate(id uint) (*models.Transaction, error) {
	return m.transactions[id], nil
}

func (m *memStore) ReferenceExists(ref string) (bool, error) {
	for _, t := range m.transactions {
		if t.Reference == ref {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateTransaction(t *models.Transaction) error {
	t.ID = m.nextTxID
	m.nextTxID++
	m.transactions[t.ID] = t
	return nil
}

func (m *memStore) SaveUser(u *models.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memStore) SaveDevice(d *models.Device) error {
	m.devices[d.DeviceID] = d
	return nil
}

func (m *memStore) SaveTransaction(t *models.Transaction) error {
	if m.failSaveTransaction {
		return errStoreDown
	}
	m.transactions[t.ID] = t
	return nil
}
