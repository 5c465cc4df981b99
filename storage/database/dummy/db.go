package dummydb

import (
	"sync"

	"github.com/funnelseye/backoffice/core/coach"
	"github.com/funnelseye/backoffice/core/ledger"
	"github.com/funnelseye/backoffice/core/settlement"
)

type (
	DB struct {
		coach      *coachTable
		payment    *paymentTable
		settlement *settlementTables
	}

	coachTable struct {
		sync.RWMutex
		table map[int]*coach.Coach
	}

	paymentTable struct {
		sync.RWMutex
		table []ledger.Payment
	}

	settlementTables struct {
		sync.RWMutex
		earnings    map[string]*settlement.EarningsRecord
		commissions map[string]*settlement.CommissionLedgerEntry
		items       map[string]*settlement.PayoutBatchItem // keyed by idempotency key
		audit       []settlement.AuditEntry
		runs        map[string]*settlement.Run
	}
)

func Open() (*DB, error) {
	db := &DB{
		coach:   &coachTable{table: make(map[int]*coach.Coach)},
		payment: &paymentTable{},
		settlement: &settlementTables{
			earnings:    make(map[string]*settlement.EarningsRecord),
			commissions: make(map[string]*settlement.CommissionLedgerEntry),
			items:       make(map[string]*settlement.PayoutBatchItem),
			runs:        make(map[string]*settlement.Run),
		},
	}
	return db, nil
}
