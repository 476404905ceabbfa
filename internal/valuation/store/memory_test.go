package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"ecovalue/internal/valuation/models"
	dErrors "ecovalue/pkg/domain-errors"
	"ecovalue/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) newService(id models.ServiceID, annualValue int64) *models.Service {
	return &models.Service{
		ID:                  id,
		Name:                "Wetland",
		AreaKm2:             decimal.NewFromInt(10),
		AnnualValue:         decimal.NewFromInt(annualValue),
		CarbonSequestration: decimal.NewFromInt(5),
		BiodiversityIndex:   40,
		CreatedAt:           time.Now(),
	}
}

func (s *InMemoryStoreSuite) TestSequences() {
	s.Run("starts at one and increments per sequence", func() {
		id, err := s.store.NextID(s.ctx, models.SequenceService)
		s.Require().NoError(err)
		s.Equal(int64(1), id)

		id, err = s.store.NextID(s.ctx, models.SequenceService)
		s.Require().NoError(err)
		s.Equal(int64(2), id)

		id, err = s.store.NextID(s.ctx, models.SequencePayment)
		s.Require().NoError(err)
		s.Equal(int64(1), id)
	})
}

func (s *InMemoryStoreSuite) TestServices() {
	s.Require().NoError(s.store.SaveService(s.ctx, s.newService(2, 300)))
	s.Require().NoError(s.store.SaveService(s.ctx, s.newService(1, 100)))

	s.Run("find returns a copy", func() {
		found, err := s.store.FindService(s.ctx, 1)
		s.Require().NoError(err)
		found.Name = "mutated"

		again, err := s.store.FindService(s.ctx, 1)
		s.Require().NoError(err)
		s.Equal("Wetland", again.Name)
	})

	s.Run("unknown id is ErrNotFound", func() {
		_, err := s.store.FindService(s.ctx, 99)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("duplicate id conflicts", func() {
		err := s.store.SaveService(s.ctx, s.newService(1, 1))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("list is ordered by id", func() {
		list, err := s.store.ListServices(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal(models.ServiceID(1), list[0].ID)
		s.Equal(models.ServiceID(2), list[1].ID)
	})

	s.Run("totals sum annual value", func() {
		totals, err := s.store.Totals(s.ctx)
		s.Require().NoError(err)
		s.True(totals.TotalValueTracked.Equal(decimal.NewFromInt(400)))
		s.Equal(int64(2), totals.TotalServices)
		s.Zero(totals.TotalPayments)
	})
}

func (s *InMemoryStoreSuite) TestAppendOnlyHistories() {
	s.Require().NoError(s.store.SaveService(s.ctx, s.newService(1, 100)))

	for i := int64(1); i <= 3; i++ {
		s.Require().NoError(s.store.AppendMeasurement(s.ctx, &models.Measurement{ServiceID: 1, SpeciesCount: i}))
		s.Require().NoError(s.store.SaveIssuance(s.ctx, &models.CreditIssuance{ID: models.IssuanceID(i), ServiceID: 1}))
	}
	s.Require().NoError(s.store.SavePaymentProgram(s.ctx, &models.PaymentProgram{ID: 1, ServiceID: 1, PerformanceMetrics: []int64{1, 2}}))

	measurements, err := s.store.ListMeasurements(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(measurements, 3)
	s.Equal(int64(1), measurements[0].SpeciesCount)
	s.Equal(int64(3), measurements[2].SpeciesCount)

	issuances, err := s.store.ListIssuances(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(issuances, 3)

	programs, err := s.store.ListPaymentPrograms(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(programs, 1)
	programs[0].PerformanceMetrics[0] = 42

	stored, err := s.store.FindPaymentProgram(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal([]int64{1, 2}, stored.PerformanceMetrics)

	empty, err := s.store.ListMeasurements(s.ctx, 2)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *InMemoryStoreSuite) TestRunInTx() {
	s.Run("commit keeps writes", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			id, err := s.store.NextID(ctx, models.SequenceService)
			if err != nil {
				return err
			}
			return s.store.SaveService(ctx, s.newService(models.ServiceID(id), 50))
		})
		s.Require().NoError(err)

		_, err = s.store.FindService(s.ctx, 1)
		s.NoError(err)
	})

	s.Run("failure rolls back ids and records", func() {
		boom := errors.New("audit unavailable")
		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			id, err := s.store.NextID(ctx, models.SequenceService)
			if err != nil {
				return err
			}
			if err := s.store.SaveService(ctx, s.newService(models.ServiceID(id), 70)); err != nil {
				return err
			}
			if err := s.store.SavePaymentProgram(ctx, &models.PaymentProgram{ID: 1, ServiceID: models.ServiceID(id)}); err != nil {
				return err
			}
			if err := s.store.AppendMeasurement(ctx, &models.Measurement{ServiceID: models.ServiceID(id)}); err != nil {
				return err
			}
			return boom
		})
		s.Require().ErrorIs(err, boom)

		_, err = s.store.FindService(s.ctx, 2)
		s.ErrorIs(err, sentinel.ErrNotFound)
		programs, err := s.store.ListPaymentPrograms(s.ctx, 2)
		s.Require().NoError(err)
		s.Empty(programs)

		totals, err := s.store.Totals(s.ctx)
		s.Require().NoError(err)
		s.Equal(int64(1), totals.TotalServices)
		s.True(totals.TotalValueTracked.Equal(decimal.NewFromInt(50)))

		id, err := s.store.NextID(s.ctx, models.SequenceService)
		s.Require().NoError(err)
		s.Equal(int64(2), id, "rolled back id is reissued")
	})

	s.Run("cancelled context is a timeout", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		err := s.store.RunInTx(ctx, func(context.Context) error { return nil })
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})

	s.Run("nested call joins the outer transaction", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context) error {
			return s.store.RunInTx(ctx, func(inner context.Context) error {
				_, err := s.store.FindService(inner, 1)
				return err
			})
		})
		s.NoError(err)
	})
}

func (s *InMemoryStoreSuite) TestConcurrentAllocation() {
	const workers = 50
	var wg sync.WaitGroup
	ids := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.RunInTx(s.ctx, func(ctx context.Context) error {
				id, err := s.store.NextID(ctx, models.SequenceIssuance)
				if err == nil {
					ids <- id
				}
				return err
			})
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		s.False(seen[id], "id %d allocated twice", id)
		seen[id] = true
	}
	s.Len(seen, workers)
	for i := int64(1); i <= workers; i++ {
		s.True(seen[i])
	}
}

func TestInMemoryROICache(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryROICache(time.Minute)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	if _, err := cache.Get(ctx, "1:0"); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected miss, got %v", err)
	}

	roi := &models.ROI{ServiceID: 1, ValuePerKm2: decimal.NewFromInt(5000)}
	if err := cache.Set(ctx, "1:0", roi); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := cache.Get(ctx, "1:0")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ValuePerKm2.Equal(roi.ValuePerKm2) {
		t.Fatalf("unexpected value %s", got.ValuePerKm2)
	}
	if _, err := cache.Get(ctx, "1:1"); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("other registration of id 1 must miss, got %v", err)
	}

	clock = clock.Add(2 * time.Minute)
	if _, err := cache.Get(ctx, "1:0"); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestInMemoryROICacheKeepsEntryRefreshedDuringEviction(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryROICache(time.Minute)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var refresh func()
	cache.now = func() time.Time {
		if refresh != nil {
			r := refresh
			refresh = nil
			r()
		}
		return clock
	}

	stale := &models.ROI{ServiceID: 1, ValuePerKm2: decimal.NewFromInt(1)}
	if err := cache.Set(ctx, "1:0", stale); err != nil {
		t.Fatalf("set: %v", err)
	}
	clock = clock.Add(2 * time.Minute)

	// A concurrent Set lands between Get's read and its eviction.
	fresh := &models.ROI{ServiceID: 1, ValuePerKm2: decimal.NewFromInt(2)}
	refresh = func() {
		if err := cache.Set(ctx, "1:0", fresh); err != nil {
			t.Errorf("set: %v", err)
		}
	}
	if _, err := cache.Get(ctx, "1:0"); !errors.Is(err, sentinel.ErrNotFound) {
		t.Fatalf("expected the expired read to miss, got %v", err)
	}

	got, err := cache.Get(ctx, "1:0")
	if err != nil {
		t.Fatalf("refreshed entry was evicted: %v", err)
	}
	if !got.ValuePerKm2.Equal(fresh.ValuePerKm2) {
		t.Fatalf("unexpected value %s", got.ValuePerKm2)
	}
}
