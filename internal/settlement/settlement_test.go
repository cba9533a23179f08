package settlement

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexpos/engine/internal/enum"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestManualDiscountFlatCapped(t *testing.T) {
	got, err := ManualDiscount(DiscountInput{Type: enum.DiscountTypeFlat, Value: d(500)}, d(263))
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if !got.Equal(d(263)) {
		t.Errorf("flat 500 on 263 bill = %s, want 263", got)
	}
}

func TestManualDiscountPercentCapped(t *testing.T) {
	got, err := ManualDiscount(DiscountInput{Type: enum.DiscountTypePercent, Value: d(150)}, d(263))
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if !got.Equal(d(263)) {
		t.Errorf("150%% on 263 = %s, want 263", got)
	}
	// 10% of 263 = 26.3, rounds to 26.
	got, _ = ManualDiscount(DiscountInput{Type: enum.DiscountTypePercent, Value: d(10)}, d(263))
	if !got.Equal(d(26)) {
		t.Errorf("10%% of 263 = %s, want 26", got)
	}
}

func TestManualDiscountValidation(t *testing.T) {
	if _, err := ManualDiscount(DiscountInput{Type: "BOGO", Value: d(1)}, d(100)); !errors.Is(err, ErrInvalidDiscountType) {
		t.Errorf("bad type err = %v", err)
	}
	if _, err := ManualDiscount(DiscountInput{Type: enum.DiscountTypeFlat, Value: d(-5)}, d(100)); !errors.Is(err, ErrNegativeDiscount) {
		t.Errorf("negative value err = %v", err)
	}
	got, err := ManualDiscount(DiscountInput{}, d(100))
	if err != nil || !got.IsZero() {
		t.Errorf("empty input = %s, %v", got, err)
	}
}

func TestCapTotalDiscount(t *testing.T) {
	manual, loyal := CapTotalDiscount(d(200), d(100), d(250))
	if !manual.Equal(d(150)) || !loyal.Equal(d(100)) {
		t.Errorf("got %s/%s, want manual squeezed to 150", manual, loyal)
	}
	manual, loyal = CapTotalDiscount(d(50), d(400), d(250))
	if !manual.IsZero() || !loyal.Equal(d(250)) {
		t.Errorf("got %s/%s, want loyalty clamped to bill", manual, loyal)
	}
}

func TestSessionExactSettle(t *testing.T) {
	// 250 subtotal + 13 tax − 20 flat + 105 append round: the worked
	// bill here is 348 payable in one cash tender.
	s := NewSession(d(348))
	if err := s.Tender(enum.PaymentMethodCash, d(348), time.Now()); err != nil {
		t.Fatalf("tender: %v", err)
	}
	if !s.Settled() {
		t.Error("session should be settled")
	}
	if !s.Change().IsZero() {
		t.Errorf("change = %s, want 0", s.Change())
	}
	if err := s.Tender(enum.PaymentMethodCash, d(1), time.Now()); !errors.Is(err, ErrClosed) {
		t.Errorf("tender after close err = %v", err)
	}
}

func TestSessionPartialThenChange(t *testing.T) {
	s := NewSession(d(500))
	if err := s.Tender(enum.PaymentMethodCard, d(200), time.Now()); err != nil {
		t.Fatalf("partial: %v", err)
	}
	if s.Settled() || !s.Remaining().Equal(d(300)) {
		t.Fatalf("remaining = %s, settled = %v", s.Remaining(), s.Settled())
	}
	if err := s.Tender(enum.PaymentMethodCash, d(350), time.Now()); err != nil {
		t.Fatalf("closing: %v", err)
	}
	if !s.Settled() || !s.Change().Equal(d(50)) {
		t.Errorf("change = %s, want 50", s.Change())
	}
	pays := s.Payments()
	if len(pays) != 2 || !pays[1].Amount.Equal(d(300)) {
		t.Errorf("closing payment recorded %s, want capped 300", pays[1].Amount)
	}
	if !s.Paid().Equal(d(500)) {
		t.Errorf("paid = %s, want 500", s.Paid())
	}
}

func TestSessionRejectsBadTenders(t *testing.T) {
	s := NewSession(d(100))
	if err := s.Tender("CHEQUE", d(10), time.Now()); !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Errorf("bad method err = %v", err)
	}
	if err := s.Tender(enum.PaymentMethodUPI, decimal.Zero, time.Now()); !errors.Is(err, ErrNonPositiveTender) {
		t.Errorf("zero amount err = %v", err)
	}
}

func TestSessionZeroPayable(t *testing.T) {
	s := NewSession(decimal.Zero)
	if !s.Settled() {
		t.Error("zero payable should be settled immediately")
	}
}
