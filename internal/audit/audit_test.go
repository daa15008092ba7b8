package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/teller/pkg/teller"
	"go.uber.org/zap"
)

func frozenClock() func() time.Time {
	at := time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)
	return func() time.Time { return at }
}

func recordSampleTrail(test *testing.T) *Recorder {
	test.Helper()
	recorder := NewRecorder(zap.NewNop(), WithClock(frozenClock()))
	ctx := context.Background()
	recorder.LogOperation(ctx, teller.OperationLog{
		Operation:   "deposit",
		AccountID:   "4321",
		AmountCents: 2550,
		Status:      "ok",
	})
	recorder.LogOperation(ctx, teller.OperationLog{
		Operation:      "transfer",
		AccountID:      "4321",
		CounterpartyID: "1111",
		AmountCents:    1000,
		Status:         "ok",
	})
	recorder.LogOperation(ctx, teller.OperationLog{
		Operation:   "withdraw",
		AccountID:   "4321",
		AmountCents: 99999,
		Status:      "error",
		Error:       errors.New("insufficient funds"),
	})
	return recorder
}

func TestTrailChainsFromGenesis(test *testing.T) {
	test.Parallel()
	trail := recordSampleTrail(test).Trail()
	if len(trail) != 3 {
		test.Fatalf("expected three events, got %d", len(trail))
	}
	if trail[0].PreviousHash != genesisHash {
		test.Fatalf("first event must chain from the genesis hash, got %q", trail[0].PreviousHash)
	}
	for index := 1; index < len(trail); index++ {
		if trail[index].PreviousHash != trail[index-1].Hash {
			test.Fatalf("event %d does not chain from its predecessor", index)
		}
	}
	if err := VerifyTrail(trail); err != nil {
		test.Fatalf("intact trail failed verification: %v", err)
	}
}

func TestTrailRecordsFailureDetail(test *testing.T) {
	test.Parallel()
	trail := recordSampleTrail(test).Trail()
	last := trail[len(trail)-1]
	if last.Status != "error" || last.Detail != "insufficient funds" {
		test.Fatalf("unexpected failure event: %+v", last)
	}
	if last.EventID == "" {
		test.Fatalf("every event needs an id")
	}
}

func TestVerifyTrailDetectsTampering(test *testing.T) {
	test.Parallel()
	cases := []struct {
		name   string
		tamper func(trail []Event)
	}{
		{
			name:   "amount rewritten",
			tamper: func(trail []Event) { trail[1].AmountCents = 1 },
		},
		{
			name:   "status rewritten",
			tamper: func(trail []Event) { trail[2].Status = "ok" },
		},
		{
			name:   "link rewritten",
			tamper: func(trail []Event) { trail[2].PreviousHash = genesisHash },
		},
	}
	for _, tc := range cases {
		tc := tc
		test.Run(tc.name, func(test *testing.T) {
			test.Parallel()
			trail := recordSampleTrail(test).Trail()
			tc.tamper(trail)
			if err := VerifyTrail(trail); err == nil {
				test.Fatalf("expected tampering to break verification")
			}
		})
	}
}

func TestVerifyTrailDetectsDroppedEvent(test *testing.T) {
	test.Parallel()
	trail := recordSampleTrail(test).Trail()
	truncated := append([]Event{trail[0]}, trail[2])
	if err := VerifyTrail(truncated); err == nil {
		test.Fatalf("expected a dropped event to break verification")
	}
}

func TestVerifyTrailAcceptsEmptyTrail(test *testing.T) {
	test.Parallel()
	if err := VerifyTrail(nil); err != nil {
		test.Fatalf("empty trail must verify: %v", err)
	}
}

func TestTrailReturnsACopy(test *testing.T) {
	test.Parallel()
	recorder := recordSampleTrail(test)
	first := recorder.Trail()
	first[0].Hash = "mangled"
	if err := VerifyTrail(recorder.Trail()); err != nil {
		test.Fatalf("mutating a returned trail must not corrupt the recorder: %v", err)
	}
}
