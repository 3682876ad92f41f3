package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fantasy-sports-system/models"
)

func TestApplyTransactionCreditAndDebit(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)
	user := createTestUser(t, db, 0)
	ctx := context.Background()

	credit, err := svc.ApplyTransaction(ctx, TransactionInput{
		UserID:   user.ID,
		Type:     models.WalletTransactionCredit,
		Source:   models.SourceSystemAdjustment,
		Amount:   200,
		Title:    "Adjustment",
		EventKey: "adj:1",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if !credit.Created {
		t.Fatal("expected credit to be created")
	}
	if got := walletBalance(t, db, user.ID); got != 200 {
		t.Fatalf("balance = %d, want 200", got)
	}

	debit, err := svc.ApplyTransaction(ctx, TransactionInput{
		UserID:   user.ID,
		Type:     models.WalletTransactionDebit,
		Source:   models.SourceContestJoin,
		Amount:   50,
		Title:    "Join",
		EventKey: "adj:2",
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !debit.Created {
		t.Fatal("expected debit to be created")
	}
	if got := walletBalance(t, db, user.ID); got != 150 {
		t.Fatalf("balance = %d, want 150", got)
	}
	if got := ledgerCount(t, db, user.ID); got != 2 {
		t.Fatalf("ledger rows = %d, want 2", got)
	}
}

func TestApplyTransactionIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)
	user := createTestUser(t, db, 0)
	ctx := context.Background()

	input := TransactionInput{
		UserID:   user.ID,
		Type:     models.WalletTransactionCredit,
		Source:   models.SourceWelcomeBonus,
		Amount:   500,
		Title:    "Welcome Bonus",
		EventKey: "welcome_bonus:" + user.ID,
	}

	first, err := svc.ApplyTransaction(ctx, input)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	second, err := svc.ApplyTransaction(ctx, input)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if !first.Created || second.Created {
		t.Fatalf("created flags = %v/%v, want true/false", first.Created, second.Created)
	}
	if got := walletBalance(t, db, user.ID); got != 500 {
		t.Fatalf("balance = %d, want 500 (applied once)", got)
	}
	if got := ledgerCount(t, db, user.ID); got != 1 {
		t.Fatalf("ledger rows = %d, want 1", got)
	}
}

func TestApplyTransactionSameEventKeyRace(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)
	user := createTestUser(t, db, 0)

	const racers = 8
	var wg sync.WaitGroup
	created := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.ApplyWelcomeBonus(context.Background(), user.ID)
			if err != nil {
				t.Errorf("apply: %v", err)
				return
			}
			created <- result.Created
		}()
	}
	wg.Wait()
	close(created)

	winners := 0
	for ok := range created {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
	if got := walletBalance(t, db, user.ID); got != WelcomeBonusAmount {
		t.Fatalf("balance = %d, want %d", got, WelcomeBonusAmount)
	}
}

func TestDebitGuardRejectsOverdraft(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)
	user := createTestUser(t, db, 30)

	_, err := svc.ApplyContestJoinDebit(context.Background(), user.ID, "m1")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := walletBalance(t, db, user.ID); got != 30 {
		t.Fatalf("balance = %d, want untouched 30", got)
	}
	if got := ledgerCount(t, db, user.ID); got != 0 {
		t.Fatalf("ledger rows = %d, want 0 after rollback", got)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)
	// Enough for exactly one join fee; two matches race for it.
	user := createTestUser(t, db, ContestJoinFee)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, matchID := range []string{"m1", "m2"} {
		wg.Add(1)
		go func(matchID string) {
			defer wg.Done()
			_, err := svc.ApplyContestJoinDebit(context.Background(), user.ID, matchID)
			results <- err
		}(matchID)
	}
	wg.Wait()
	close(results)

	var failures int
	for err := range results {
		if err != nil {
			if !errors.Is(err, ErrInsufficientBalance) {
				t.Fatalf("unexpected error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("failures = %d, want exactly 1", failures)
	}
	if got := walletBalance(t, db, user.ID); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}

func TestApplyTransactionInvalidAmount(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)
	user := createTestUser(t, db, 100)

	for _, amount := range []int64{0, -10} {
		_, err := svc.ApplyTransaction(context.Background(), TransactionInput{
			UserID:   user.ID,
			Type:     models.WalletTransactionCredit,
			Source:   models.SourceSystemAdjustment,
			Amount:   amount,
			EventKey: "bad",
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestApplyTransactionUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)

	_, err := svc.ApplyWelcomeBonus(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWelcomeThenJoinScenario(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)
	user := createTestUser(t, db, 0)
	ctx := context.Background()

	if _, err := svc.ApplyWelcomeBonus(ctx, user.ID); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if _, err := svc.ApplyContestJoinDebit(ctx, user.ID, "m1"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if got := walletBalance(t, db, user.ID); got != 450 {
		t.Fatalf("balance = %d, want 450", got)
	}
	if got := ledgerCount(t, db, user.ID); got != 2 {
		t.Fatalf("ledger rows = %d, want 2", got)
	}
}

func TestDailyLoginBonusOncePerUTCDay(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)
	user := createTestUser(t, db, 0)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	svc.Now = func() time.Time { return day1 }

	first, err := svc.ClaimDailyLoginBonus(ctx, user.ID)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	repeat, err := svc.ClaimDailyLoginBonus(ctx, user.ID)
	if err != nil {
		t.Fatalf("repeat claim: %v", err)
	}
	if !first.Created || repeat.Created {
		t.Fatalf("created flags = %v/%v, want true/false", first.Created, repeat.Created)
	}

	// Two minutes later it is a new UTC day.
	svc.Now = func() time.Time { return day1.Add(2 * time.Minute) }
	nextDay, err := svc.ClaimDailyLoginBonus(ctx, user.ID)
	if err != nil {
		t.Fatalf("next day claim: %v", err)
	}
	if !nextDay.Created {
		t.Fatal("expected next-day claim to credit")
	}
	if got := walletBalance(t, db, user.ID); got != 2*DailyLoginBonusAmount {
		t.Fatalf("balance = %d, want %d", got, 2*DailyLoginBonusAmount)
	}
}

func TestGetSummaryAndListTransactions(t *testing.T) {
	db := newTestDB(t)
	svc := NewWalletService(db)
	user := createTestUser(t, db, 0)
	ctx := context.Background()

	if _, err := svc.ApplyWelcomeBonus(ctx, user.ID); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if _, err := svc.ApplyContestJoinDebit(ctx, user.ID, "m1"); err != nil {
		t.Fatalf("join: %v", err)
	}

	summary, err := svc.GetSummary(ctx, user.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Balance != 450 || summary.TotalCredit != 500 || summary.TotalDebit != 50 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.TransactionCount != 2 {
		t.Fatalf("tx count = %d, want 2", summary.TransactionCount)
	}

	page, err := svc.ListTransactions(ctx, user.ID, 0, 1000)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Page != 1 || page.Size != 100 {
		t.Fatalf("pagination not clamped: page=%d size=%d", page.Page, page.Size)
	}
	if page.Total != 2 || len(page.Rows) != 2 {
		t.Fatalf("total=%d rows=%d, want 2/2", page.Total, len(page.Rows))
	}
}
