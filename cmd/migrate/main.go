package main

import (
	"flag"
	"time"

	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/models"
	"gorm.io/gorm"
)

func main() {
	seed := flag.Bool("seed", false, "seed a demo tenant with a basic chart of accounts")
	flag.Parse()

	logger := config.GetLogger()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()

	if err := models.MigrateDatabase(db); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}
	logger.Info("schema migrated")

	if *seed {
		if err := seedDemoTenant(db); err != nil {
			logger.WithError(err).Fatal("seeding failed")
		}
		logger.Info("demo tenant seeded")
	}
}

type seedAccount struct {
	code     string
	name     string
	mainType models.AccountMainType
}

var demoChart = []seedAccount{
	{"1000", "Operating Bank", models.AccountMainTypeAsset},
	{"1200", "Accounts Receivable", models.AccountMainTypeAsset},
	{"2000", "Accounts Payable", models.AccountMainTypeLiability},
	{"2200", "Sales Tax Payable", models.AccountMainTypeLiability},
	{"1400", "Purchase Tax Receivable", models.AccountMainTypeAsset},
	{"2100", "Unapplied Receipts", models.AccountMainTypeLiability},
	{"1300", "Unapplied Payments", models.AccountMainTypeAsset},
	{"4000", "Rental Income", models.AccountMainTypeIncome},
	{"5000", "Property Expenses", models.AccountMainTypeExpense},
}

func seedDemoTenant(db *gorm.DB) error {
	tenant := models.Tenant{
		ID:                   "demo",
		Name:                 "Demo Property Management",
		FiscalYearStartMonth: 1,
	}
	if err := db.FirstOrCreate(&tenant, models.Tenant{ID: "demo"}).Error; err != nil {
		return err
	}

	accounts := make(map[string]int, len(demoChart))
	for _, entry := range demoChart {
		account := models.Account{
			TenantId: tenant.ID,
			Code:     entry.code,
			Name:     entry.name,
			MainType: entry.mainType,
		}
		if err := db.Where(models.Account{TenantId: tenant.ID, Code: entry.code}).
			FirstOrCreate(&account).Error; err != nil {
			return err
		}
		accounts[entry.code] = account.ID
	}

	tenant.ReceivableAccountId = accounts["1200"]
	tenant.PayableAccountId = accounts["2000"]
	tenant.SalesTaxAccountId = accounts["2200"]
	tenant.PurchaseTaxAccountId = accounts["1400"]
	tenant.UnappliedReceiptsAccountId = accounts["2100"]
	tenant.UnappliedPaymentsAccountId = accounts["1300"]
	if err := db.Save(&tenant).Error; err != nil {
		return err
	}

	// One open period covering the current calendar year.
	year := time.Now().Year()
	open := true
	period := models.FiscalPeriod{
		TenantId:  tenant.ID,
		Name:      "FY" + time.Now().Format("2006"),
		StartDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		GlOpen:    &open,
		ArOpen:    &open,
		ApOpen:    &open,
		BankOpen:  &open,
	}
	return db.Where(models.FiscalPeriod{TenantId: tenant.ID, Name: period.Name}).
		FirstOrCreate(&period).Error
}
