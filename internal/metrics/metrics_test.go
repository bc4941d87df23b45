package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEvaluation(t *testing.T) {
	successBefore := testutil.ToFloat64(evaluationsTotal.WithLabelValues("test", "success"))
	errorBefore := testutil.ToFloat64(evaluationsTotal.WithLabelValues("test", "error"))
	remissionBefore := testutil.ToFloat64(potentialRemissionTotal)

	RecordEvaluation("test", 12, 5*time.Millisecond, true, nil)
	RecordEvaluation("test", 0, time.Millisecond, true, errors.New("bad entry"))

	assert.Equal(t, successBefore+1, testutil.ToFloat64(evaluationsTotal.WithLabelValues("test", "success")))
	assert.Equal(t, errorBefore+1, testutil.ToFloat64(evaluationsTotal.WithLabelValues("test", "error")))
	assert.Equal(t, remissionBefore+1, testutil.ToFloat64(potentialRemissionTotal), "failed evaluations do not count remission")
}

func TestRecordCounters(t *testing.T) {
	before := testutil.ToFloat64(summaryJobsTotal.WithLabelValues("completed"))
	RecordJobTransition("completed")
	assert.Equal(t, before+1, testutil.ToFloat64(summaryJobsTotal.WithLabelValues("completed")))

	before = testutil.ToFloat64(computedEvidenceTotal.WithLabelValues("DURATION_COMPUTED_2W"))
	RecordComputedEvidence("DURATION_COMPUTED_2W")
	assert.Equal(t, before+1, testutil.ToFloat64(computedEvidenceTotal.WithLabelValues("DURATION_COMPUTED_2W")))

	before = testutil.ToFloat64(reviewStoreErrors.WithLabelValues("list_overrides"))
	RecordStoreError("list_overrides")
	assert.Equal(t, before+1, testutil.ToFloat64(reviewStoreErrors.WithLabelValues("list_overrides")))
}
