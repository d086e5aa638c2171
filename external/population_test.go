package external

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRetriever[T any] struct {
	mock.Mock
}

func (m *mockRetriever[T]) Retrieve(ctx context.Context) ([]T, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]T)
	return items, args.Error(1)
}

type recordingObserver struct {
	mu      sync.Mutex
	sources map[string]error
}

func (o *recordingObserver) ObserveRetrievalLatency(source string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sources == nil {
		o.sources = make(map[string]error)
	}
	o.sources[source] = err
}

type retrievers struct {
	lars          *mockRetriever[LARSLearningDelivery]
	frameworks    *mockRetriever[Framework]
	ulns          *mockRetriever[int64]
	postcodes     *mockRetriever[Postcode]
	organisations *mockRetriever[Organisation]
}

func newRetrievers() retrievers {
	return retrievers{
		lars:          &mockRetriever[LARSLearningDelivery]{},
		frameworks:    &mockRetriever[Framework]{},
		ulns:          &mockRetriever[int64]{},
		postcodes:     &mockRetriever[Postcode]{},
		organisations: &mockRetriever[Organisation]{},
	}
}

func (r retrievers) sources() Sources {
	return Sources{
		LearningDeliveries: r.lars,
		Frameworks:         r.frameworks,
		ULNs:               r.ulns,
		Postcodes:          r.postcodes,
		Organisations:      r.organisations,
	}
}

func (r retrievers) succeedAll() {
	r.lars.On("Retrieve", mock.Anything).Return([]LARSLearningDelivery{{LearnAimRef: "ZPROG001", LearnAimRefType: "1"}}, nil).Maybe()
	r.frameworks.On("Retrieve", mock.Anything).Return([]Framework{{FworkCode: 420, ProgType: 2, PwayCode: 1}}, nil).Maybe()
	r.ulns.On("Retrieve", mock.Anything).Return([]int64{1000000004}, nil).Maybe()
	r.postcodes.On("Retrieve", mock.Anything).Return([]Postcode{{Postcode: "CV1 2WT"}}, nil).Maybe()
	r.organisations.On("Retrieve", mock.Anything).Return([]Organisation{{UKPRN: 10006341, PartnerUKPRN: true}}, nil).Maybe()
}

func TestPopulateAllSourcesSucceed(t *testing.T) {
	r := newRetrievers()
	r.succeedAll()
	observer := &recordingObserver{}

	cache, err := NewPopulationService(r.sources(), nil, observer).Populate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cache)

	_, ok := cache.LearningDelivery("zprog001")
	assert.True(t, ok)
	assert.True(t, cache.HasULN(1000000004))
	assert.True(t, cache.HasPostcode("cv12wt"))
	org, ok := cache.Organisation(10006341)
	require.True(t, ok)
	assert.True(t, org.PartnerUKPRN)
	_, ok = cache.Framework(2, 420, 1)
	assert.True(t, ok)
	assert.Len(t, observer.sources, 5)
}

func TestPopulateIsAllOrNothing(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name   string
		source string
		fail   func(r retrievers)
	}{
		{"learning deliveries", SourceLearningDeliveries, func(r retrievers) {
			r.lars.ExpectedCalls = nil
			r.lars.On("Retrieve", mock.Anything).Return(nil, boom)
		}},
		{"frameworks", SourceFrameworks, func(r retrievers) {
			r.frameworks.ExpectedCalls = nil
			r.frameworks.On("Retrieve", mock.Anything).Return(nil, boom)
		}},
		{"ulns", SourceULNs, func(r retrievers) {
			r.ulns.ExpectedCalls = nil
			r.ulns.On("Retrieve", mock.Anything).Return(nil, boom)
		}},
		{"postcodes", SourcePostcodes, func(r retrievers) {
			r.postcodes.ExpectedCalls = nil
			r.postcodes.On("Retrieve", mock.Anything).Return(nil, boom)
		}},
		{"organisations", SourceOrganisations, func(r retrievers) {
			r.organisations.ExpectedCalls = nil
			r.organisations.On("Retrieve", mock.Anything).Return(nil, boom)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRetrievers()
			r.succeedAll()
			tt.fail(r)

			cache, err := NewPopulationService(r.sources(), nil, nil).Populate(context.Background())

			assert.Nil(t, cache, "no partially populated cache may be exposed")
			require.ErrorIs(t, err, boom)
			var re *RetrievalError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.source, re.Source)
		})
	}
}

func TestPopulateCancelsSiblingsOnFailure(t *testing.T) {
	boom := errors.New("timeout")
	slow := RetrieverFunc[int64](func(ctx context.Context) ([]int64, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return []int64{1}, nil
		}
	})
	sources := StaticSources(Data{})
	sources.ULNs = slow
	sources.Postcodes = RetrieverFunc[Postcode](func(context.Context) ([]Postcode, error) {
		return nil, boom
	})

	start := time.Now()
	cache, err := NewPopulationService(sources, nil, nil).Populate(context.Background())

	assert.Nil(t, cache)
	assert.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPopulateMissingSource(t *testing.T) {
	sources := StaticSources(Data{})
	sources.Organisations = nil

	cache, err := NewPopulationService(sources, nil, nil).Populate(context.Background())

	assert.Nil(t, cache)
	require.ErrorIs(t, err, ErrMissingSource)
	var re *RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, SourceOrganisations, re.Source)
}

func TestPopulateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cache, err := NewPopulationService(StaticSources(Data{}), nil, nil).Populate(ctx)

	assert.Nil(t, cache)
	assert.ErrorIs(t, err, context.Canceled)
}
