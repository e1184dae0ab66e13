package app

import (
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	tests := []struct {
		name   string
		opName string
		now    time.Time
		wantID string
	}{
		{
			name:   "utc time",
			opName: "serve",
			now:    time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			wantID: "20240115T103000Z",
		},
		{
			name:   "local time is converted",
			opName: "versions list",
			now:    time.Date(2024, 1, 15, 12, 30, 0, 0, time.FixedZone("CEST", 2*3600)),
			wantID: "20240115T103000Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.opName, tt.now)

			if op.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", op.ID, tt.wantID)
			}
			if op.Name != tt.opName {
				t.Errorf("Name = %q, want %q", op.Name, tt.opName)
			}
			if op.Status != StatusSuccess {
				t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
			}
		})
	}
}

func TestOperation_Elapsed(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	op := NewOperation("serve", start)

	got := op.Elapsed(start.Add(1500*time.Millisecond + 300*time.Microsecond))
	if want := 1500 * time.Millisecond; got != want {
		t.Errorf("Elapsed() = %v, want %v", got, want)
	}
}
