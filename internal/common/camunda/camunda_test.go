package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/observability"
	"mangastream-workers/internal/common/validation"
	"mangastream-workers/pkg/registry"
)

// ==========================
// Retry
// ==========================

func fastRetry(max int) *RetryConfig {
	return &RetryConfig{MaxRetries: max, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryWithBackoff(t *testing.T) {
	log := logger.NewTestLogger(t)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), fastRetry(5), log, "postgres connection", func(context.Context) error {
			calls++
			if calls < 3 {
				return stderrors.New("dial tcp: connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), fastRetry(5), log, "postgres connection", func(context.Context) error {
			calls++
			return stderrors.New("password authentication failed")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), fastRetry(3), log, "redis connection", func(context.Context) error {
			calls++
			return stderrors.New("i/o timeout")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "redis connection failed after 3 attempts")
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
		err := RetryWithBackoff(ctx, cfg, log, "zeebe connection", func(context.Context) error {
			return stderrors.New("unavailable")
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(stderrors.New("rpc error: code = Unavailable")))
	assert.True(t, IsRetryableError(stderrors.New("context deadline exceeded")))
	assert.False(t, IsRetryableError(stderrors.New("permission denied")))
}

// ==========================
// Job pre-check
// ==========================

func newJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "record-payment", Variables: variables}}
}

func newDeps(t *testing.T) Dependencies {
	reg, err := registry.Default()
	require.NoError(t, err)
	return Dependencies{
		Validator: validation.NewValidator(reg),
		Logger:    logger.NewTestLogger(t),
	}
}

func TestPrecheck(t *testing.T) {
	deps := newDeps(t)

	t.Run("valid variables", func(t *testing.T) {
		err := deps.precheck("record-payment", newJob(`{"contentId":"m1","amount":500,"status":"completed"}`))
		assert.NoError(t, err)
	})

	t.Run("schema violation", func(t *testing.T) {
		err := deps.precheck("record-payment", newJob(`{"amount":500,"status":"completed"}`))
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.Normalize(err).Code)
		assert.Contains(t, errors.Normalize(err).Details, "contentId")
	})

	t.Run("anonymous or content-less access checks reach the handler", func(t *testing.T) {
		for _, vars := range []string{
			`{"viewerId":null,"contentId":"m1"}`,
			`{"contentId":""}`,
			`{"viewerId":null,"contentId":null,"accessToken":null}`,
			`{}`,
		} {
			assert.NoError(t, deps.precheck("evaluate-access", newJob(vars)), vars)
		}
	})

	t.Run("access check with wrongly typed viewer id", func(t *testing.T) {
		err := deps.precheck("evaluate-access", newJob(`{"viewerId":42,"contentId":"m1"}`))
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInputValidationFailed, errors.Normalize(err).Code)
	})

	t.Run("unparseable variables", func(t *testing.T) {
		err := deps.precheck("record-payment", newJob(`{not json`))
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeParseError, errors.Normalize(err).Code)
	})

	t.Run("no validator", func(t *testing.T) {
		err := Dependencies{}.precheck("record-payment", newJob(`{not json`))
		assert.NoError(t, err)
	})
}

// ==========================
// Outcome tracking
// ==========================

type nopJobClient struct{}

func (nopJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 { return nil }
func (nopJobClient) NewFailJobCommand() commands.FailJobCommandStep1         { return nil }
func (nopJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1   { return nil }

func TestOutcomeClient(t *testing.T) {
	c := &outcomeClient{JobClient: nopJobClient{}, outcome: OutcomeNone}
	c.NewCompleteJobCommand()
	assert.Equal(t, OutcomeCompleted, c.outcome)
	c.NewThrowErrorCommand()
	assert.Equal(t, OutcomeThrown, c.outcome)
	c.NewFailJobCommand()
	assert.Equal(t, OutcomeFailed, c.outcome)
}

func TestInstrument_RunsHandlerWhenValid(t *testing.T) {
	deps := newDeps(t)
	called := false
	var seen string

	wrapped := Instrument("record-payment", func(client worker.JobClient, job entities.Job) {
		called = true
		client.NewCompleteJobCommand()
		seen = client.(*outcomeClient).outcome
	}, deps)

	wrapped(nopJobClient{}, newJob(`{"contentId":"m1","amount":500,"status":"completed"}`))
	assert.True(t, called)
	assert.Equal(t, OutcomeCompleted, seen)
}

func TestInstrument_RecordsJobSpan(t *testing.T) {
	obs := observability.New("camunda-test", otelprom.WithRegisterer(prometheus.NewRegistry()))
	defer obs.Shutdown()
	recorder := tracetest.NewSpanRecorder()
	obs.RegisterSpanProcessor(recorder)

	deps := newDeps(t)
	deps.Observability = obs

	wrapped := Instrument("record-payment", func(client worker.JobClient, job entities.Job) {
		client.NewThrowErrorCommand()
	}, deps)
	wrapped(nopJobClient{}, newJob(`{"contentId":"m1","amount":500,"status":"completed"}`))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "record-payment", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, OutcomeThrown, attrs["outcome"])
	assert.Equal(t, "42", attrs["job_key"])
}
