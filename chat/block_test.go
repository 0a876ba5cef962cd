package chat

import (
	"context"
	"testing"
)

func TestStatusBetween(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name         string
		viewerBlocks bool
		blockedBy    bool
		want         BlockStatus
	}{
		{"unblocked", false, false, Unblocked},
		{"viewer blocks counterpart", true, false, ViewerBlocksCounterpart},
		{"viewer blocked by counterpart", false, true, ViewerBlockedByCounterpart},
		{"mutual", true, true, MutualBlock},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := newFakeBlocks()
			if tc.viewerBlocks {
				reg.SetBlocked(ctx, u1, u2, true)
			}
			if tc.blockedBy {
				reg.SetBlocked(ctx, u2, u1, true)
			}

			status, err := StatusBetween(ctx, reg, u1, u2)
			if err != nil {
				t.Fatalf("StatusBetween: %v", err)
			}
			if status != tc.want {
				t.Fatalf("status = %v, want %v", status, tc.want)
			}
			if got, want := status.SendDisabled(), tc.want != Unblocked; got != want {
				t.Fatalf("SendDisabled = %v, want %v", got, want)
			}
		})
	}
}

func TestBlockToggleRestoresState(t *testing.T) {
	ctx := context.Background()
	reg := newFakeBlocks()

	// Unrelated relationship that must survive the toggle.
	reg.SetBlocked(ctx, u1, "u3", true)

	reg.SetBlocked(ctx, u1, u2, true)
	reg.SetBlocked(ctx, u1, u2, false)

	if blocked, _ := reg.IsBlocked(ctx, u1, u2); blocked {
		t.Fatal("IsBlocked(u1, u2) = true after unblock")
	}
	if blocked, _ := reg.IsBlocked(ctx, u1, "u3"); !blocked {
		t.Fatal("unrelated block relationship was touched")
	}

	status, err := StatusBetween(ctx, reg, u1, u2)
	if err != nil {
		t.Fatalf("StatusBetween: %v", err)
	}
	if status != Unblocked {
		t.Fatalf("status = %v, want Unblocked", status)
	}
}
