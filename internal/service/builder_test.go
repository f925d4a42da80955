package service

import (
	"errors"
	"testing"

	"feepay-engine/internal/domain"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testBalances() []domain.FeeCategoryBalance {
	return domain.DeriveBalances([]domain.RawCategoryAmount{
		{Category: domain.CategoryBook, Total: dec("500"), Paid: dec("0")},
		{Category: domain.CategoryAdmission, Total: dec("1000"), Paid: dec("1000")},
		{Category: domain.CategoryTuition, TermNumber: 1, Total: dec("1500"), Paid: dec("300")},
	})
}

func TestBuildPaymentRequest_SelectedCategories(t *testing.T) {
	balances := testBalances()

	sel := domain.NewPaymentSelection()
	for _, b := range balances {
		sel.ToggleCategory(b.Key(), true)
	}

	req, err := BuildPaymentRequest("STU-42", sel, balances, domain.MethodCash, BuildOptions{Remarks: "term 1"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// The settled admission line must be dropped; everything else pays
	// its outstanding in full, in balance order.
	if len(req.Details) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(req.Details), req.Details)
	}

	book := req.Details[0]
	if book.Purpose != domain.CategoryBook || !book.PaidAmount.Equal(dec("500")) || book.TermNumber != nil {
		t.Errorf("unexpected book line: %+v", book)
	}

	tuition := req.Details[1]
	if tuition.Purpose != domain.CategoryTuition || !tuition.PaidAmount.Equal(dec("1200")) {
		t.Errorf("unexpected tuition line: %+v", tuition)
	}
	if tuition.TermNumber == nil || *tuition.TermNumber != 1 {
		t.Errorf("tuition line must carry term 1, got %v", tuition.TermNumber)
	}

	if !req.Total().Equal(dec("1700")) {
		t.Errorf("total = %s, want 1700", req.Total())
	}
	if req.StudentIdentifier != "STU-42" || req.Remarks != "term 1" {
		t.Errorf("unexpected request header: %+v", req)
	}
}

func TestBuildPaymentRequest_CustomAmount(t *testing.T) {
	sel := domain.NewPaymentSelection()
	sel.SetCustomAmount(dec("750"))

	req, err := BuildPaymentRequest("STU-42", sel, testBalances(), domain.MethodOnline, BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(req.Details) != 1 {
		t.Fatalf("custom amount must yield exactly one line, got %d", len(req.Details))
	}
	line := req.Details[0]
	if line.Purpose != domain.CategoryOther || !line.PaidAmount.Equal(dec("750")) {
		t.Errorf("unexpected custom line: %+v", line)
	}
	if line.TermNumber != nil {
		t.Error("custom line must not carry a term")
	}
}

func TestBuildPaymentRequest_CustomPurposeOverride(t *testing.T) {
	sel := domain.NewPaymentSelection()
	sel.SetCustomAmount(dec("200"))

	req, err := BuildPaymentRequest("STU-42", sel, nil, domain.MethodCash, BuildOptions{CustomPurpose: domain.CategoryBook})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.Details[0].Purpose != domain.CategoryBook {
		t.Errorf("purpose = %s, want BOOK", req.Details[0].Purpose)
	}

	_, err = BuildPaymentRequest("STU-42", sel, nil, domain.MethodCash, BuildOptions{CustomPurpose: domain.FeeCategory("BOGUS")})
	assertValidationError(t, err, "custom_purpose")
}

func TestBuildPaymentRequest_Rejections(t *testing.T) {
	balances := testBalances()
	valid := domain.NewPaymentSelection()
	valid.ToggleCategory(balances[0].Key(), true)

	t.Run("missing student identifier", func(t *testing.T) {
		_, err := BuildPaymentRequest("", valid, balances, domain.MethodCash, BuildOptions{})
		assertValidationError(t, err, "student_identifier")
	})

	t.Run("nil selection", func(t *testing.T) {
		_, err := BuildPaymentRequest("STU-42", nil, balances, domain.MethodCash, BuildOptions{})
		assertValidationError(t, err, "selection")
	})

	t.Run("empty selection", func(t *testing.T) {
		_, err := BuildPaymentRequest("STU-42", domain.NewPaymentSelection(), balances, domain.MethodCash, BuildOptions{})
		assertValidationError(t, err, "selection")
	})

	t.Run("invalid method", func(t *testing.T) {
		_, err := BuildPaymentRequest("STU-42", valid, balances, domain.PaymentMethod("IOU"), BuildOptions{})
		assertValidationError(t, err, "payment_method")
	})

	t.Run("only settled categories selected", func(t *testing.T) {
		sel := domain.NewPaymentSelection()
		sel.ToggleCategory(balances[1].Key(), true) // admission, fully paid
		_, err := BuildPaymentRequest("STU-42", sel, balances, domain.MethodCash, BuildOptions{})
		assertValidationError(t, err, "selection")
	})
}

func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *domain.ValidationError, got %T: %v", err, err)
	}
	if ve.Field != field {
		t.Errorf("validation field = %q, want %q", ve.Field, field)
	}
}
