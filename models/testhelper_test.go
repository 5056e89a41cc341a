package models_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/propertybooks/accounting_backend/appctx"
	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter int64

// fixture is a migrated in-memory database with one tenant, a minimal chart
// of accounts and an open fiscal year covering 2026.
type fixture struct {
	ctx    context.Context
	db     *gorm.DB
	tenant *models.Tenant

	bank              int
	receivable        int
	payable           int
	salesTax          int
	purchaseTax       int
	unappliedReceipts int
	unappliedPayments int
	income            int
	expense           int
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	// The shared-cache connection must stay open or the in-memory schema is
	// dropped between requests.
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.MigrateDatabase(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	config.SetDB(db)

	f := &fixture{db: db}

	tenant := models.Tenant{
		ID:                   "t1",
		Name:                 "Test Property Co",
		FiscalYearStartMonth: 1,
	}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}

	f.bank = f.seedAccount(t, "1000", "Operating Bank", models.AccountMainTypeAsset)
	f.receivable = f.seedAccount(t, "1200", "Accounts Receivable", models.AccountMainTypeAsset)
	f.payable = f.seedAccount(t, "2000", "Accounts Payable", models.AccountMainTypeLiability)
	f.salesTax = f.seedAccount(t, "2200", "Sales Tax Payable", models.AccountMainTypeLiability)
	f.purchaseTax = f.seedAccount(t, "1400", "Purchase Tax Receivable", models.AccountMainTypeAsset)
	f.unappliedReceipts = f.seedAccount(t, "2100", "Unapplied Receipts", models.AccountMainTypeLiability)
	f.unappliedPayments = f.seedAccount(t, "1300", "Unapplied Payments", models.AccountMainTypeAsset)
	f.income = f.seedAccount(t, "4000", "Rental Income", models.AccountMainTypeIncome)
	f.expense = f.seedAccount(t, "5000", "Property Expenses", models.AccountMainTypeExpense)

	tenant.ReceivableAccountId = f.receivable
	tenant.PayableAccountId = f.payable
	tenant.SalesTaxAccountId = f.salesTax
	tenant.PurchaseTaxAccountId = f.purchaseTax
	tenant.UnappliedReceiptsAccountId = f.unappliedReceipts
	tenant.UnappliedPaymentsAccountId = f.unappliedPayments
	if err := db.Save(&tenant).Error; err != nil {
		t.Fatalf("configure tenant accounts: %v", err)
	}
	f.tenant = &tenant

	open := true
	period := models.FiscalPeriod{
		TenantId:  tenant.ID,
		Name:      "FY2026",
		StartDate: date(2026, time.January, 1),
		EndDate:   date(2026, time.December, 31),
		GlOpen:    &open,
		ArOpen:    &open,
		ApOpen:    &open,
		BankOpen:  &open,
	}
	if err := db.Create(&period).Error; err != nil {
		t.Fatalf("seed fiscal period: %v", err)
	}

	f.ctx = appctx.Set(context.Background(), appctx.ContextKeyTenantId, tenant.ID)
	return f
}

func (f *fixture) seedAccount(t *testing.T, code, name string, mainType models.AccountMainType) int {
	t.Helper()
	account := models.Account{
		TenantId: "t1",
		Code:     code,
		Name:     name,
		MainType: mainType,
	}
	if err := f.db.Create(&account).Error; err != nil {
		t.Fatalf("seed account %s: %v", code, err)
	}
	return account.ID
}

func (f *fixture) seedCustomer(t *testing.T, name string) int {
	t.Helper()
	customer, err := models.CreateCustomer(f.ctx, &models.NewCustomer{Name: name})
	if err != nil {
		t.Fatalf("seed customer %s: %v", name, err)
	}
	return customer.ID
}

func (f *fixture) seedVendor(t *testing.T, name string) int {
	t.Helper()
	vendor, err := models.CreateVendor(f.ctx, &models.NewVendor{Name: name})
	if err != nil {
		t.Fatalf("seed vendor %s: %v", name, err)
	}
	return vendor.ID
}

// seedTaxGroup creates one active tax at the given percentage rate and wraps
// it in a group.
func (f *fixture) seedTaxGroup(t *testing.T, name string, rate string) int {
	t.Helper()
	tax, err := models.CreateTax(f.ctx, &models.NewTax{
		Name: name,
		Rate: dec(rate),
	})
	if err != nil {
		t.Fatalf("seed tax %s: %v", name, err)
	}
	group, err := models.CreateTaxGroup(f.ctx, &models.NewTaxGroup{
		Name:   name + " group",
		TaxIds: []int{tax.ID},
	})
	if err != nil {
		t.Fatalf("seed tax group %s: %v", name, err)
	}
	return group.ID
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
