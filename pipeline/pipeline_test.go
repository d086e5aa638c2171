package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/filecache"
	"github.com/liamcoop/ilrvalidation/lookup"
	"github.com/liamcoop/ilrvalidation/model"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/worker"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testSources() external.Sources {
	return external.StaticSources(external.Data{
		LearningDeliveries: []external.LARSLearningDelivery{
			{LearnAimRef: "60133533", LearnAimRefType: "0001", EffectiveFrom: date(2013, 8, 1)},
		},
	})
}

func testMessage() *model.Message {
	learner := func(ref, aimRef string, actEnd *time.Time) *model.Learner {
		return &model.Learner{
			LearnRefNumber: ref,
			ULN:            9999999999,
			LearningDeliveries: []*model.LearningDelivery{{
				AimSeqNumber:     1,
				AimType:          4,
				LearnAimRef:      aimRef,
				FundModel:        35,
				CompStatus:       1,
				LearnStartDate:   date(2017, 9, 1),
				LearnPlanEndDate: date(2018, 6, 30),
				LearnActEndDate:  actEnd,
			}},
		}
	}
	late := date(2017, 10, 2)
	return &model.Message{
		Header: model.Header{UKPRN: 10006341, FilePreparationDate: date(2017, 10, 1)},
		Learners: []*model.Learner{
			learner("B", "60133533", &late),
			learner("A", "NOTINLARS", nil),
			learner("C", "60133533", nil),
		},
	}
}

func newPipeline(t *testing.T, sources external.Sources, opts ...Option) *Pipeline {
	t.Helper()
	local, err := worker.NewLocalWorker(nil, rules.EngineConfig{MaxConcurrency: 2})
	require.NoError(t, err)
	p, err := New(lookup.NewInternalProvider(), external.NewPopulationService(sources, nil, nil), local, opts...)
	require.NoError(t, err)
	return p
}

func request() Request {
	return Request{
		Run:            rules.NewRunContext("ILR-10006341-1718-20171001-120000-01.json", ""),
		CatalogVersion: "1718",
		FileName:       "ILR-10006341-1718-20171001-120000-01.json",
		Message:        testMessage(),
	}
}

func TestValidate(t *testing.T) {
	errs, err := newPipeline(t, testSources()).Validate(context.Background(), request())
	require.NoError(t, err)

	require.Len(t, errs, 2)
	assert.Equal(t, "A", errs[0].LearnRefNumber)
	assert.Equal(t, "LearnAimRef_01", errs[0].RuleName)
	assert.Equal(t, "B", errs[1].LearnRefNumber)
	assert.Equal(t, "LearnActEndDate_04", errs[1].RuleName)
	assert.Equal(t, "LearnActEndDate=02/10/2017", rules.JoinParameters(errs[1].Parameters))
}

func TestValidateThroughDispatcher(t *testing.T) {
	want, err := newPipeline(t, testSources()).Validate(context.Background(), request())
	require.NoError(t, err)

	local, err := worker.NewLocalWorker(nil, rules.EngineConfig{MaxConcurrency: 1})
	require.NoError(t, err)
	d, err := worker.NewDispatcher([]worker.Worker{local}, worker.DispatchConfig{ChunkSize: 1, MaxInFlight: 2}, nil)
	require.NoError(t, err)

	got, err := newPipeline(t, testSources(), WithDispatcher(d)).Validate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidateRejectsMismatchedFileName(t *testing.T) {
	req := request()
	req.FileName = "ILR-10000000-1718-20171001-120000-01.json"

	errs, err := newPipeline(t, testSources()).Validate(context.Background(), req)
	assert.ErrorIs(t, err, filecache.ErrUKPRNMismatch)
	assert.Nil(t, errs)
}

func TestValidateFailsWhenPopulationFails(t *testing.T) {
	sources := testSources()
	sources.ULNs = external.RetrieverFunc[int64](func(context.Context) ([]int64, error) {
		return nil, errors.New("uln store offline")
	})

	errs, err := newPipeline(t, sources).Validate(context.Background(), request())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uln store offline")
	assert.Nil(t, errs)
}

func TestValidateFailsOnBrokenLookups(t *testing.T) {
	local, err := worker.NewLocalWorker(nil, rules.EngineConfig{MaxConcurrency: 1})
	require.NoError(t, err)
	p, err := New(lookup.NewProviderFromCache(lookup.NewCache()), external.NewPopulationService(testSources(), nil, nil), local)
	require.NoError(t, err)

	_, err = p.Validate(context.Background(), request())
	assert.True(t, lookup.IsConfigurationError(err), "got %v", err)
}

func TestValidateRequiresMessage(t *testing.T) {
	req := request()
	req.Message = nil
	_, err := newPipeline(t, testSources()).Validate(context.Background(), req)
	assert.Error(t, err)
}
