package models

// LedgerModule selects which open/closed flag of a fiscal period gates a
// posting.
type LedgerModule string

const (
	LedgerModuleGeneral     LedgerModule = "GL"
	LedgerModuleReceivables LedgerModule = "AR"
	LedgerModulePayables    LedgerModule = "AP"
	LedgerModuleBank        LedgerModule = "BANK"
)

func (m LedgerModule) IsValid() bool {
	switch m {
	case LedgerModuleGeneral, LedgerModuleReceivables, LedgerModulePayables, LedgerModuleBank:
		return true
	}
	return false
}

func (m LedgerModule) String() string { return string(m) }

type AccountMainType string

const (
	AccountMainTypeAsset     AccountMainType = "Asset"
	AccountMainTypeLiability AccountMainType = "Liability"
	AccountMainTypeEquity    AccountMainType = "Equity"
	AccountMainTypeIncome    AccountMainType = "Income"
	AccountMainTypeExpense   AccountMainType = "Expense"
)

func (t AccountMainType) IsValid() bool {
	switch t {
	case AccountMainTypeAsset, AccountMainTypeLiability, AccountMainTypeEquity,
		AccountMainTypeIncome, AccountMainTypeExpense:
		return true
	}
	return false
}

// DocumentKind distinguishes normal documents from credit/reimbursement
// documents, which net against the counterparty balance instead of being paid.
type DocumentKind string

const (
	DocumentKindStandard DocumentKind = "Standard"
	DocumentKindCredit   DocumentKind = "Credit"
)

func (k DocumentKind) IsValid() bool {
	return k == DocumentKindStandard || k == DocumentKindCredit
}

type DocumentStatus string

const (
	DocumentStatusDraft       DocumentStatus = "Draft"
	DocumentStatusApproved    DocumentStatus = "Approved"
	DocumentStatusPartialPaid DocumentStatus = "PartialPaid"
	DocumentStatusPaid        DocumentStatus = "Paid"
)

// ApplySourceKind is the closed set of settlement sources. Dispatch goes
// through applySourceKinds in settlement.go, never runtime type lookup.
type ApplySourceKind string

const (
	ApplySourceCustomerPayment ApplySourceKind = "CustomerPayment"
	ApplySourceVendorPayment   ApplySourceKind = "VendorPayment"
	ApplySourceCreditInvoice   ApplySourceKind = "CreditInvoice"
	ApplySourceCreditBill      ApplySourceKind = "CreditBill"
)

type ApplyTargetKind string

const (
	ApplyTargetInvoice ApplyTargetKind = "Invoice"
	ApplyTargetBill    ApplyTargetKind = "Bill"
)

type PaymentTerms string

const (
	PaymentTermsDueOnReceipt      PaymentTerms = "DueOnReceipt"
	PaymentTermsNet15             PaymentTerms = "Net15"
	PaymentTermsNet30             PaymentTerms = "Net30"
	PaymentTermsNet45             PaymentTerms = "Net45"
	PaymentTermsNet60             PaymentTerms = "Net60"
	PaymentTermsDueEndOfMonth     PaymentTerms = "DueEndOfMonth"
	PaymentTermsDueEndOfNextMonth PaymentTerms = "DueEndOfNextMonth"
	PaymentTermsCustom            PaymentTerms = "Custom"
)

// Sequence document types. Scope keys are deliberately narrow
// (tenant + type + fiscal year) to keep lock contention local.
const (
	SequenceTypeLedger          = "GL_TRANSACTION"
	SequenceTypeInvoice         = "INVOICE"
	SequenceTypeBill            = "BILL"
	SequenceTypeCustomerPayment = "CUSTOMER_PAYMENT"
	SequenceTypeVendorPayment   = "VENDOR_PAYMENT"
)

// transactionPrefixes maps a sequence document type to the human-readable
// number prefix.
var transactionPrefixes = map[string]string{
	SequenceTypeLedger:          "GL-",
	SequenceTypeInvoice:         "INV-",
	SequenceTypeBill:            "BILL-",
	SequenceTypeCustomerPayment: "RCT-",
	SequenceTypeVendorPayment:   "PMT-",
}
