package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/filecache"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/rules"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testBundle(t *testing.T, learners []*model.Learner) *Bundle {
	t.Helper()
	cache, err := lookup.NewInternalProvider().Cache()
	require.NoError(t, err)

	ext := external.NewCache(external.Data{
		LearningDeliveries: []external.LARSLearningDelivery{
			{LearnAimRef: "60133533", LearnAimRefType: "0001", EffectiveFrom: date(2013, 8, 1)},
		},
	})
	file := filecache.FromData(filecache.Data{UKPRN: 10006341, FilePreparationDate: date(2017, 10, 1)})

	b, err := NewBundle("run-1", "1718", cache, ext, file)
	require.NoError(t, err)
	return b.WithLearners(learners)
}

// testLearner raises LearnAimRef_01 only when aimRef is not in LARS
func testLearner(ref, aimRef string) *model.Learner {
	dob := date(1990, 1, 1)
	return &model.Learner{
		LearnRefNumber: ref,
		ULN:            9999999999,
		DateOfBirth:    &dob,
		LearningDeliveries: []*model.LearningDelivery{{
			AimSeqNumber:     1,
			AimType:          4,
			LearnAimRef:      aimRef,
			FundModel:        35,
			CompStatus:       1,
			LearnStartDate:   date(2017, 9, 1),
			LearnPlanEndDate: date(2018, 6, 30),
		}},
	}
}

func population(n int) []*model.Learner {
	out := make([]*model.Learner, n)
	for i := range out {
		aim := "60133533"
		if i%3 == 0 {
			aim = fmt.Sprintf("BAD%04d", i)
		}
		out[i] = testLearner(fmt.Sprintf("L%04d", i), aim)
	}
	return out
}

func newLocal(t *testing.T) *LocalWorker {
	t.Helper()
	w, err := NewLocalWorker(nil, rules.EngineConfig{MaxConcurrency: 4})
	require.NoError(t, err)
	return w
}

// workerHandler serves a LocalWorker the way the server's worker endpoint does
func workerHandler(w Worker) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var b Bundle
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		errs, err := w.Validate(r.Context(), &b)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(rw).Encode(ErrorResponse{Error: "validation failed", Details: err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(Response{Errors: errs})
	})
}

func TestChunk(t *testing.T) {
	learners := population(7)

	tests := []struct {
		size  int
		sizes []int
	}{
		{1, []int{1, 1, 1, 1, 1, 1, 1}},
		{3, []int{3, 3, 1}},
		{7, []int{7}},
		{100, []int{7}},
		{0, []int{1, 1, 1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("size %d", tt.size), func(t *testing.T) {
			chunks := Chunk(learners, tt.size)
			var got []int
			var flat []*model.Learner
			for _, c := range chunks {
				got = append(got, len(c))
				flat = append(flat, c...)
			}
			assert.Equal(t, tt.sizes, got)
			assert.Equal(t, learners, flat)
		})
	}

	assert.Empty(t, Chunk(nil, 10))
}

func TestLocalWorkerValidate(t *testing.T) {
	errs, err := newLocal(t).Validate(context.Background(), testBundle(t, population(9)))
	require.NoError(t, err)

	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, "LearnAimRef_01", e.RuleName)
		require.NotNil(t, e.AimSequenceNumber)
		assert.Equal(t, 1, *e.AimSequenceNumber)
	}
	assert.Equal(t, "L0000", errs[0].LearnRefNumber)
	assert.Equal(t, "L0003", errs[1].LearnRefNumber)
	assert.Equal(t, "L0006", errs[2].LearnRefNumber)
}

func TestLocalWorkerRejectsBundleWithoutVersion(t *testing.T) {
	b := testBundle(t, population(1))
	b.CatalogVersion = ""

	_, err := newLocal(t).Validate(context.Background(), b)
	assert.ErrorIs(t, err, ErrEmptyBundle)
}

func TestLocalWorkerRejectsIncompleteLookups(t *testing.T) {
	b := testBundle(t, population(1))
	b.Lookups = lookup.Snapshot{}

	_, err := newLocal(t).Validate(context.Background(), b)
	assert.True(t, lookup.IsConfigurationError(err), "got %v", err)
}

func TestHTTPWorkerMatchesLocal(t *testing.T) {
	local := newLocal(t)
	srv := httptest.NewServer(workerHandler(local))
	defer srv.Close()

	b := testBundle(t, population(20))
	want, err := local.Validate(context.Background(), b)
	require.NoError(t, err)

	got, err := NewHTTPWorker(srv.URL+"/", 5*time.Second).Validate(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHTTPWorkerSendsCorrelationID(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get(CorrelationHeader))
		assert.Equal(t, ValidatePath, r.URL.Path)
		_ = json.NewEncoder(rw).Encode(Response{})
	}))
	defer srv.Close()

	_, err := NewHTTPWorker(srv.URL, time.Second).Validate(context.Background(), testBundle(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "run-1", seen.Load())
}

func TestHTTPWorkerRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(rw).Encode(ErrorResponse{Error: "validation failed", Details: "lookups missing"})
	}))
	defer srv.Close()

	_, err := NewHTTPWorker(srv.URL, time.Second).Validate(context.Background(), testBundle(t, population(1)))
	require.Error(t, err)
	assert.True(t, IsRemoteError(err))

	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.Equal(t, "validation failed: lookups missing", re.Message)
}

func TestDispatchMatchesSingleRun(t *testing.T) {
	local := newLocal(t)
	b := testBundle(t, population(50))
	want, err := local.Validate(context.Background(), b)
	require.NoError(t, err)

	for _, size := range []int{1, 7, 50, 500} {
		t.Run(fmt.Sprintf("chunk %d", size), func(t *testing.T) {
			d, err := NewDispatcher([]Worker{local, local}, DispatchConfig{ChunkSize: size, MaxInFlight: 3}, nil)
			require.NoError(t, err)

			got, err := d.Dispatch(context.Background(), b)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDispatchAcrossHTTPWorkers(t *testing.T) {
	local := newLocal(t)
	srvA := httptest.NewServer(workerHandler(local))
	defer srvA.Close()
	srvB := httptest.NewServer(workerHandler(local))
	defer srvB.Close()

	b := testBundle(t, population(30))
	want, err := local.Validate(context.Background(), b)
	require.NoError(t, err)

	d, err := NewDispatcher([]Worker{
		NewHTTPWorker(srvA.URL, 5*time.Second),
		NewHTTPWorker(srvB.URL, 5*time.Second),
	}, DispatchConfig{ChunkSize: 4, MaxInFlight: 2}, nil)
	require.NoError(t, err)

	got, err := d.Dispatch(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDispatchIsAllOrNothing(t *testing.T) {
	local := newLocal(t)
	var calls atomic.Int32
	failing := WorkerFunc(func(ctx context.Context, b *Bundle) ([]rules.ValidationError, error) {
		if calls.Add(1) == 2 {
			return nil, errors.New("worker lost")
		}
		return local.Validate(ctx, b)
	})

	d, err := NewDispatcher([]Worker{failing}, DispatchConfig{ChunkSize: 5, MaxInFlight: 1}, nil)
	require.NoError(t, err)

	got, err := d.Dispatch(context.Background(), testBundle(t, population(20)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker lost")
	assert.Nil(t, got)
}

func TestDispatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := NewDispatcher([]Worker{newLocal(t)}, DispatchConfig{ChunkSize: 5, MaxInFlight: 1}, nil)
	require.NoError(t, err)

	got, err := d.Dispatch(ctx, testBundle(t, population(20)))
	assert.ErrorIs(t, err, rules.ErrRunCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, got)
}

func TestNewDispatcherValidation(t *testing.T) {
	_, err := NewDispatcher(nil, DispatchConfig{ChunkSize: 1, MaxInFlight: 1}, nil)
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewDispatcher([]Worker{newLocal(t)}, DispatchConfig{ChunkSize: 0, MaxInFlight: 1}, nil)
	assert.Error(t, err)

	_, err = NewDispatcher([]Worker{newLocal(t)}, DispatchConfig{ChunkSize: 1, MaxInFlight: 0}, nil)
	assert.Error(t, err)
}
