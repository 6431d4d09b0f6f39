package reporter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/pkg/log"
)

func TestReporter(t *testing.T) {
	var hooked []domain.ErrorCode
	r := New(log.NewNoopLogger(), func(c domain.ErrorCode) { hooked = append(hooked, c) })

	r.Report(domain.CodeSensorRead)
	r.Report(domain.CodeSensorRead)
	r.Report(domain.CodeTransportSend)

	if got := r.Count(domain.CodeSensorRead); got != 2 {
		t.Errorf("Count(SensorRead) = %d, want 2", got)
	}
	want := map[domain.ErrorCode]uint64{
		domain.CodeSensorRead:    2,
		domain.CodeTransportSend: 1,
	}
	if diff := cmp.Diff(want, r.Counts()); diff != "" {
		t.Errorf("Counts() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]domain.ErrorCode{domain.CodeSensorRead, domain.CodeSensorRead, domain.CodeTransportSend}, hooked); diff != "" {
		t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
	}
}
