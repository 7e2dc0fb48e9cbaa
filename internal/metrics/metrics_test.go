package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordParseItem(t *testing.T) {
	c := parseItemsCounter.With(prometheus.Labels{"media_kind": "movie", "outcome": ParseQueued})
	before := testutil.ToFloat64(c)

	Get().RecordParseItem("movie", ParseQueued)
	Get().RecordParseItem("movie", ParseQueued)

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestRecordGenerationAndLock(t *testing.T) {
	c := generationCounter.With(prometheus.Labels{"outcome": GenerationFailed})
	before := testutil.ToFloat64(c)
	lockBefore := testutil.ToFloat64(lockContentionCounter)

	Get().RecordGeneration(GenerationFailed)
	Get().RecordLockLost()

	assert.Equal(t, before+1, testutil.ToFloat64(c))
	assert.Equal(t, lockBefore+1, testutil.ToFloat64(lockContentionCounter))
}

func TestGauges(t *testing.T) {
	Get().SetRemainingQuota(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(remainingQuotaGauge))

	Get().SetCandidateCounts(map[string]int64{"queued": 7, "failed": 1})
	assert.Equal(t, 7.0, testutil.ToFloat64(candidatesGauge.With(prometheus.Labels{"status": "queued"})))
	assert.Equal(t, 1.0, testutil.ToFloat64(candidatesGauge.With(prometheus.Labels{"status": "failed"})))
}

func TestRecordParseRun(t *testing.T) {
	assert.NotPanics(t, func() { Get().RecordParseRun(3 * time.Second) })
}
