package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ecovalue/internal/valuation/models"
	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

// InMemory keeps the whole registry in process memory.
//
// RunInTx holds the write lock for the duration of the callback, so mutations
// are serialized and readers only ever see committed state. Writes made inside
// a transaction are journaled and undone if the callback fails.
type InMemory struct {
	mu      sync.RWMutex
	timeout time.Duration

	counters     map[models.Sequence]int64
	services     map[models.ServiceID]*models.Service
	programs     map[models.PaymentID]*models.PaymentProgram
	programIDs   map[models.ServiceID][]models.PaymentID
	measurements map[models.ServiceID][]*models.Measurement
	issuances    map[models.ServiceID][]*models.CreditIssuance
	totalValue   decimal.Decimal
}

type MemoryOption func(*InMemory)

// WithTxTimeout bounds transactions whose context carries no deadline.
func WithTxTimeout(d time.Duration) MemoryOption {
	return func(s *InMemory) { s.timeout = d }
}

func NewInMemory(opts ...MemoryOption) *InMemory {
	s := &InMemory{
		timeout:      defaultTxTimeout,
		counters:     make(map[models.Sequence]int64),
		services:     make(map[models.ServiceID]*models.Service),
		programs:     make(map[models.PaymentID]*models.PaymentProgram),
		programIDs:   make(map[models.ServiceID][]models.PaymentID),
		measurements: make(map[models.ServiceID][]*models.Measurement),
		issuances:    make(map[models.ServiceID][]*models.CreditIssuance),
		totalValue:   decimal.Zero,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type memTxKey struct{}

type memTx struct {
	owner *InMemory
	undo  []func()
}

func (s *InMemory) txFrom(ctx context.Context) *memTx {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok && tx.owner == s {
		return tx
	}
	return nil
}

// RunInTx runs fn with the registry locked. fn must use the context it is given.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	tx := &memTx{owner: s}
	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

// read acquires the read lock unless ctx already holds the transaction lock.
func (s *InMemory) read(ctx context.Context) func() {
	if s.txFrom(ctx) != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// write acquires the write lock unless ctx already holds it.
func (s *InMemory) write(ctx context.Context) func() {
	if s.txFrom(ctx) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// journal registers undo for a completed write inside a transaction.
func (s *InMemory) journal(ctx context.Context, undo func()) {
	if tx := s.txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

func (s *InMemory) NextID(ctx context.Context, seq models.Sequence) (int64, error) {
	unlock := s.write(ctx)
	defer unlock()
	prev := s.counters[seq]
	s.counters[seq] = prev + 1
	s.journal(ctx, func() { s.counters[seq] = prev })
	return prev + 1, nil
}

func (s *InMemory) SaveService(ctx context.Context, svc *models.Service) error {
	unlock := s.write(ctx)
	defer unlock()
	if _, exists := s.services[svc.ID]; exists {
		return fmt.Errorf("service %d: %w", svc.ID, sentinel.ErrConflict)
	}
	cp := *svc
	s.services[svc.ID] = &cp
	s.totalValue = s.totalValue.Add(svc.AnnualValue)
	s.journal(ctx, func() {
		delete(s.services, svc.ID)
		s.totalValue = s.totalValue.Sub(cp.AnnualValue)
	})
	return nil
}

func (s *InMemory) FindService(ctx context.Context, id models.ServiceID) (*models.Service, error) {
	unlock := s.read(ctx)
	defer unlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (s *InMemory) ListServices(ctx context.Context) ([]*models.Service, error) {
	unlock := s.read(ctx)
	defer unlock()
	out := make([]*models.Service, 0, len(s.services))
	for _, svc := range s.services {
		cp := *svc
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Service) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *InMemory) SavePaymentProgram(ctx context.Context, p *models.PaymentProgram) error {
	unlock := s.write(ctx)
	defer unlock()
	if _, exists := s.programs[p.ID]; exists {
		return fmt.Errorf("payment program %d: %w", p.ID, sentinel.ErrConflict)
	}
	id, serviceID := p.ID, p.ServiceID
	s.programs[id] = clonePayment(p)
	s.programIDs[serviceID] = append(s.programIDs[serviceID], id)
	s.journal(ctx, func() {
		delete(s.programs, id)
		ids := s.programIDs[serviceID]
		s.programIDs[serviceID] = ids[:len(ids)-1]
	})
	return nil
}

func (s *InMemory) FindPaymentProgram(ctx context.Context, id models.PaymentID) (*models.PaymentProgram, error) {
	unlock := s.read(ctx)
	defer unlock()
	p, ok := s.programs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *InMemory) ListPaymentPrograms(ctx context.Context, serviceID models.ServiceID) ([]*models.PaymentProgram, error) {
	unlock := s.read(ctx)
	defer unlock()
	ids := s.programIDs[serviceID]
	out := make([]*models.PaymentProgram, 0, len(ids))
	for _, id := range ids {
		out = append(out, clonePayment(s.programs[id]))
	}
	return out, nil
}

func (s *InMemory) AppendMeasurement(ctx context.Context, m *models.Measurement) error {
	unlock := s.write(ctx)
	defer unlock()
	cp := *m
	s.measurements[cp.ServiceID] = append(s.measurements[cp.ServiceID], &cp)
	s.journal(ctx, func() {
		list := s.measurements[cp.ServiceID]
		s.measurements[cp.ServiceID] = list[:len(list)-1]
	})
	return nil
}

func (s *InMemory) ListMeasurements(ctx context.Context, serviceID models.ServiceID) ([]*models.Measurement, error) {
	unlock := s.read(ctx)
	defer unlock()
	list := s.measurements[serviceID]
	out := make([]*models.Measurement, 0, len(list))
	for _, m := range list {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) SaveIssuance(ctx context.Context, c *models.CreditIssuance) error {
	unlock := s.write(ctx)
	defer unlock()
	cp := *c
	s.issuances[cp.ServiceID] = append(s.issuances[cp.ServiceID], &cp)
	s.journal(ctx, func() {
		list := s.issuances[cp.ServiceID]
		s.issuances[cp.ServiceID] = list[:len(list)-1]
	})
	return nil
}

func (s *InMemory) ListIssuances(ctx context.Context, serviceID models.ServiceID) ([]*models.CreditIssuance, error) {
	unlock := s.read(ctx)
	defer unlock()
	list := s.issuances[serviceID]
	out := make([]*models.CreditIssuance, 0, len(list))
	for _, c := range list {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// Totals reads all three aggregates under one lock.
func (s *InMemory) Totals(ctx context.Context) (*models.Totals, error) {
	unlock := s.read(ctx)
	defer unlock()
	return &models.Totals{
		TotalValueTracked: s.totalValue,
		TotalServices:     int64(len(s.services)),
		TotalPayments:     int64(len(s.programs)),
	}, nil
}

func clonePayment(p *models.PaymentProgram) *models.PaymentProgram {
	cp := *p
	cp.PerformanceMetrics = slices.Clone(p.PerformanceMetrics)
	return &cp
}
