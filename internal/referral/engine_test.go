package referral

import (
	"context"
	"sync"
	"testing"

	"starsref-bot/internal/ledger"
)

type recordingNotifier struct {
	mu      sync.Mutex
	credits []int64 // referrer ids, in delivery order
}

func (r *recordingNotifier) ReferralCredited(_ context.Context, referrerID, _, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credits = append(r.credits, referrerID)
}

func newEngine() (*Engine, *ledger.MemoryStore, *recordingNotifier) {
	store := ledger.NewMemoryStore()
	notifier := &recordingNotifier{}
	return NewEngine(store, notifier, 3), store, notifier
}

func ref(id int64) *int64 { return &id }

func TestRegisterFirstWriteWins(t *testing.T) {
	engine, store, _ := newEngine()
	ctx := context.Background()

	if err := engine.Register(ctx, 1, nil); err != nil {
		t.Fatal(err)
	}
	if err := engine.Register(ctx, 2, ref(1)); err != nil {
		t.Fatal(err)
	}
	// Re-registration with a different referrer must not re-attribute.
	if err := engine.Register(ctx, 2, ref(99)); err != nil {
		t.Fatal(err)
	}

	user, err := store.GetUser(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if user.ReferrerID == nil || *user.ReferrerID != 1 {
		t.Fatalf("referrer = %v, want 1", user.ReferrerID)
	}
}

func TestRegisterRejectsSelfReferral(t *testing.T) {
	engine, store, _ := newEngine()
	ctx := context.Background()

	if err := engine.Register(ctx, 5, ref(5)); err != nil {
		t.Fatal(err)
	}

	user, err := store.GetUser(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if user.ReferrerID != nil {
		t.Fatalf("referrer = %d, want nil", *user.ReferrerID)
	}
}

func TestCreditIfDueAtMostOnce(t *testing.T) {
	engine, store, notifier := newEngine()
	ctx := context.Background()

	if err := engine.Register(ctx, 1, nil); err != nil {
		t.Fatal(err)
	}
	if err := engine.Register(ctx, 2, ref(1)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := engine.CreditIfDue(ctx, 2); err != nil {
			t.Fatal(err)
		}
	}

	referrer, err := store.GetUser(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if referrer.Balance != 3 {
		t.Fatalf("referrer balance = %d, want 3", referrer.Balance)
	}
	if referrer.ReferralsCount != 1 {
		t.Fatalf("referrals count = %d, want 1", referrer.ReferralsCount)
	}

	referred, err := store.GetUser(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !referred.ReferralRewardGiven {
		t.Fatal("reward-given latch not set")
	}
	if len(notifier.credits) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.credits))
	}
}

func TestCreditIfDueConcurrent(t *testing.T) {
	engine, store, _ := newEngine()
	ctx := context.Background()

	if err := engine.Register(ctx, 1, nil); err != nil {
		t.Fatal(err)
	}
	if err := engine.Register(ctx, 2, ref(1)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = engine.CreditIfDue(ctx, 2)
		}()
	}
	wg.Wait()

	referrer, err := store.GetUser(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if referrer.Balance != 3 || referrer.ReferralsCount != 1 {
		t.Fatalf("balance=%d count=%d, want 3 and 1", referrer.Balance, referrer.ReferralsCount)
	}
}

func TestCreditIfDueWithoutReferrer(t *testing.T) {
	engine, store, notifier := newEngine()
	ctx := context.Background()

	if err := engine.Register(ctx, 7, nil); err != nil {
		t.Fatal(err)
	}
	if err := engine.CreditIfDue(ctx, 7); err != nil {
		t.Fatal(err)
	}

	user, err := store.GetUser(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if user.ReferralRewardGiven {
		t.Fatal("latch set for user without referrer")
	}
	if len(notifier.credits) != 0 {
		t.Fatalf("notifications = %d, want 0", len(notifier.credits))
	}
}
