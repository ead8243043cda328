package rank

import (
	"context"
	"testing"
	"time"

	"starsref-bot/internal/ledger"
)

func seedCounts(t *testing.T, store *ledger.MemoryStore, counts map[int64]int64) {
	t.Helper()
	ctx := context.Background()
	// Registration order fixes tie-breaking.
	for _, id := range []int64{1, 2, 3, 4} {
		if count, ok := counts[id]; ok {
			if err := store.Register(ctx, id, nil); err != nil {
				t.Fatal(err)
			}
			store.SetReferralsCount(id, count)
		}
	}
}

func TestRankOf(t *testing.T) {
	store := ledger.NewMemoryStore()
	seedCounts(t, store, map[int64]int64{1: 10, 2: 10, 3: 5, 4: 0})
	svc := NewService(store)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		want   int64
	}{
		{"top tied first", 1, 1},
		{"top tied second", 2, 1},
		{"middle", 3, 3},
		{"bottom", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.RankOf(ctx, tt.userID)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("rank = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTopNStableTies(t *testing.T) {
	store := ledger.NewMemoryStore()
	seedCounts(t, store, map[int64]int64{1: 10, 2: 10, 3: 5, 4: 0})
	svc := NewService(store)

	top, err := svc.TopN(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{1, 2, 3}
	if len(top) != len(want) {
		t.Fatalf("len = %d, want %d", len(top), len(want))
	}
	for i, entry := range top {
		if entry.UserID != want[i] {
			t.Fatalf("top[%d] = %d, want %d", i, entry.UserID, want[i])
		}
	}
}

func TestMaybeWeeklyResetGating(t *testing.T) {
	store := ledger.NewMemoryStore()
	seedCounts(t, store, map[int64]int64{1: 10, 2: 10, 3: 5, 4: 0})
	svc := NewService(store)
	ctx := context.Background()

	t0 := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t0 }

	performed, err := svc.MaybeWeeklyReset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !performed {
		t.Fatal("first reset did not run")
	}

	user, err := store.GetUser(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if user.ReferralsCount != 0 {
		t.Fatalf("referrals count = %d after reset, want 0", user.ReferralsCount)
	}

	// Same 24-hour window: no second reset.
	svc.now = func() time.Time { return t0.Add(23 * time.Hour) }
	performed, err = svc.MaybeWeeklyReset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if performed {
		t.Fatal("reset ran twice within the same day")
	}

	// 8 days later: exactly one reset, watermark advances.
	store.SetReferralsCount(1, 4)
	svc.now = func() time.Time { return t0.Add(8 * 24 * time.Hour) }
	performed, err = svc.MaybeWeeklyReset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !performed {
		t.Fatal("reset did not run after 8 days")
	}
	performed, err = svc.MaybeWeeklyReset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if performed {
		t.Fatal("watermark did not advance")
	}

	user, err = store.GetUser(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if user.ReferralsCount != 0 {
		t.Fatalf("referrals count = %d after second reset, want 0", user.ReferralsCount)
	}
}
