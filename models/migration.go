package models

import "gorm.io/gorm"

// MigrateDatabase creates or updates the schema for every entity.
func MigrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tenant{},
		&Account{},
		&SegmentPosition{},
		&SegmentValue{},
		&Tax{},
		&TaxGroup{},
		&FiscalPeriod{},
		&Sequence{},
		&Customer{},
		&Vendor{},
		&Property{},
		&Product{},
		&LedgerHeader{},
		&LedgerLine{},
		&Invoice{},
		&InvoiceLine{},
		&Bill{},
		&BillLine{},
		&CustomerPayment{},
		&VendorPayment{},
		&DocumentApply{},
	)
}
