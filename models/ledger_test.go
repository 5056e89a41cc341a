package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/propertybooks/accounting_backend/models"
	"github.com/propertybooks/accounting_backend/utils"
)

func openBalancedHeader(t *testing.T, f *fixture, amount string) *models.LedgerHeader {
	t.Helper()
	header, err := models.OpenLedgerHeader(f.ctx, &models.NewLedgerHeader{
		FiscalDate:  date(2026, time.March, 10),
		Module:      models.LedgerModuleGeneral,
		Description: "rent accrual",
		Lines: []models.NewLedgerLine{
			{AccountId: f.bank, Debit: dec(amount)},
			{AccountId: f.income, Credit: dec(amount)},
		},
	})
	if err != nil {
		t.Fatalf("open header: %v", err)
	}
	return header
}

func TestPostLedgerHeaderBalanced(t *testing.T) {
	f := setupFixture(t)

	header := openBalancedHeader(t, f, "100")
	if header.TransactionNumber != "GL-2026-1" {
		t.Fatalf("transaction number = %s, want GL-2026-1", header.TransactionNumber)
	}

	posted, err := models.PostLedgerHeader(f.ctx, header.ID)
	if err != nil {
		t.Fatalf("post header: %v", err)
	}
	if posted.IsPosted == nil || !*posted.IsPosted {
		t.Fatalf("header not marked posted")
	}
	if posted.TotalDebit.String() != "100" || !posted.TotalDebit.Equal(posted.TotalCredit) {
		t.Fatalf("totals = %s / %s, want equal 100", posted.TotalDebit, posted.TotalCredit)
	}
}

func TestPostLedgerHeaderUnbalanced(t *testing.T) {
	f := setupFixture(t)

	header, err := models.OpenLedgerHeader(f.ctx, &models.NewLedgerHeader{
		FiscalDate: date(2026, time.March, 10),
		Module:     models.LedgerModuleGeneral,
		Lines: []models.NewLedgerLine{
			{AccountId: f.bank, Debit: dec("100")},
			{AccountId: f.income, Credit: dec("90")},
		},
	})
	if err != nil {
		t.Fatalf("open header: %v", err)
	}
	if _, err := models.PostLedgerHeader(f.ctx, header.ID); !errors.Is(err, utils.ErrorUnbalanced) {
		t.Fatalf("post unbalanced: got %v, want ErrorUnbalanced", err)
	}
}

func TestPostIncludesLinesAddedAfterOpen(t *testing.T) {
	f := setupFixture(t)

	header := openBalancedHeader(t, f, "100")
	if _, err := models.AddLedgerLine(f.ctx, header.ID, &models.NewLedgerLine{
		AccountId: f.bank, Debit: dec("50"),
	}); err != nil {
		t.Fatalf("add debit line: %v", err)
	}
	if _, err := models.AddLedgerLine(f.ctx, header.ID, &models.NewLedgerLine{
		AccountId: f.income, Credit: dec("50"),
	}); err != nil {
		t.Fatalf("add credit line: %v", err)
	}

	posted, err := models.PostLedgerHeader(f.ctx, header.ID)
	if err != nil {
		t.Fatalf("post header: %v", err)
	}
	if posted.TotalDebit.String() != "150" || !posted.TotalDebit.Equal(posted.TotalCredit) {
		t.Fatalf("totals = %s / %s, want equal 150", posted.TotalDebit, posted.TotalCredit)
	}
	if len(posted.Lines) != 4 {
		t.Fatalf("line count = %d, want 4", len(posted.Lines))
	}
}

func TestLedgerLineRequiresExactlyOneSide(t *testing.T) {
	f := setupFixture(t)

	cases := []models.NewLedgerLine{
		{AccountId: f.bank},
		{AccountId: f.bank, Debit: dec("10"), Credit: dec("10")},
		{AccountId: f.bank, Debit: dec("-10")},
	}
	for i, line := range cases {
		_, err := models.OpenLedgerHeader(f.ctx, &models.NewLedgerHeader{
			FiscalDate: date(2026, time.March, 10),
			Module:     models.LedgerModuleGeneral,
			Lines:      []models.NewLedgerLine{line},
		})
		if err == nil {
			t.Errorf("case %d: line accepted, want rejection", i)
		}
	}
}

func TestOpenLedgerHeaderOutsideAnyPeriod(t *testing.T) {
	f := setupFixture(t)

	_, err := models.OpenLedgerHeader(f.ctx, &models.NewLedgerHeader{
		FiscalDate: date(2031, time.March, 10),
		Module:     models.LedgerModuleGeneral,
	})
	if !errors.Is(err, utils.ErrorPeriodClosed) {
		t.Fatalf("no covering period: got %v, want ErrorPeriodClosed", err)
	}
}

func TestPostLedgerHeaderPeriodClosedBetweenOpenAndPost(t *testing.T) {
	f := setupFixture(t)

	header := openBalancedHeader(t, f, "100")

	var period models.FiscalPeriod
	if err := f.db.Where("tenant_id = ? AND name = ?", f.tenant.ID, "FY2026").First(&period).Error; err != nil {
		t.Fatalf("find period: %v", err)
	}
	if _, err := models.SetFiscalPeriodFlag(f.ctx, period.ID, models.LedgerModuleGeneral, false); err != nil {
		t.Fatalf("close period: %v", err)
	}

	if _, err := models.PostLedgerHeader(f.ctx, header.ID); !errors.Is(err, utils.ErrorPeriodClosed) {
		t.Fatalf("post into closed period: got %v, want ErrorPeriodClosed", err)
	}

	// The same date stays open for other modules.
	if err := models.ValidatePeriodOpen(f.ctx, f.tenant.ID, date(2026, time.March, 10), models.LedgerModuleReceivables); err != nil {
		t.Fatalf("receivables should still be open: %v", err)
	}
}

func TestPostedHeaderIsImmutable(t *testing.T) {
	f := setupFixture(t)

	header := openBalancedHeader(t, f, "100")
	if _, err := models.PostLedgerHeader(f.ctx, header.ID); err != nil {
		t.Fatalf("post header: %v", err)
	}

	_, err := models.AddLedgerLine(f.ctx, header.ID, &models.NewLedgerLine{AccountId: f.bank, Debit: dec("5")})
	if !errors.Is(err, utils.ErrorImmutablePosting) {
		t.Fatalf("add line to posted: got %v, want ErrorImmutablePosting", err)
	}
	if err := models.RemoveLedgerLine(f.ctx, header.ID, header.Lines[0].ID); !errors.Is(err, utils.ErrorImmutablePosting) {
		t.Fatalf("remove line from posted: got %v, want ErrorImmutablePosting", err)
	}
}

func TestVoidLedgerHeaderSwapsSides(t *testing.T) {
	f := setupFixture(t)

	header := openBalancedHeader(t, f, "250")
	if _, err := models.PostLedgerHeader(f.ctx, header.ID); err != nil {
		t.Fatalf("post header: %v", err)
	}

	voiding, err := models.VoidLedgerHeader(f.ctx, header.ID, time.Time{})
	if err != nil {
		t.Fatalf("void header: %v", err)
	}
	if voiding.IsPosted == nil || !*voiding.IsPosted {
		t.Fatalf("voiding header not posted")
	}
	if voiding.ReversesHeaderId != header.ID {
		t.Fatalf("reverses_header_id = %d, want %d", voiding.ReversesHeaderId, header.ID)
	}

	original, err := models.GetLedgerHeader(f.ctx, header.ID)
	if err != nil {
		t.Fatalf("reload original: %v", err)
	}
	if original.IsReversed == nil || !*original.IsReversed {
		t.Fatalf("original not marked reversed")
	}

	voided, err := models.GetLedgerHeader(f.ctx, voiding.ID)
	if err != nil {
		t.Fatalf("reload voiding: %v", err)
	}
	byAccount := map[int][2]string{}
	for _, line := range original.Lines {
		byAccount[line.AccountId] = [2]string{line.Debit.String(), line.Credit.String()}
	}
	for _, line := range voided.Lines {
		orig := byAccount[line.AccountId]
		if line.Debit.String() != orig[1] || line.Credit.String() != orig[0] {
			t.Fatalf("account %d: voiding lines not swapped (%s/%s vs %s/%s)",
				line.AccountId, line.Debit, line.Credit, orig[0], orig[1])
		}
	}

	if _, err := models.VoidLedgerHeader(f.ctx, header.ID, time.Time{}); !errors.Is(err, utils.ErrorImmutablePosting) {
		t.Fatalf("second void: got %v, want ErrorImmutablePosting", err)
	}
}

func TestVoidDraftHeaderRejected(t *testing.T) {
	f := setupFixture(t)

	header := openBalancedHeader(t, f, "10")
	if _, err := models.VoidLedgerHeader(f.ctx, header.ID, time.Time{}); !errors.Is(err, utils.ErrorImmutablePosting) {
		t.Fatalf("void draft: got %v, want ErrorImmutablePosting", err)
	}
}
