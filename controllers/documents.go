package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/propertybooks/accounting_backend/models"
)

func CreateInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		invoice, err := models.CreateInvoice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "documents.go", "CreateInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func AddInvoiceLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.DocumentLineInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		invoice, err := models.AddInvoiceLine(c.Request.Context(), invoiceId, &input)
		if err != nil {
			respondError(c, "documents.go", "AddInvoiceLineHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func RemoveInvoiceLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceId, ok := pathId(c, "id")
		if !ok {
			return
		}
		lineId, ok := pathId(c, "lineId")
		if !ok {
			return
		}
		invoice, err := models.RemoveInvoiceLine(c.Request.Context(), invoiceId, lineId)
		if err != nil {
			respondError(c, "documents.go", "RemoveInvoiceLineHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func ApproveInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceId, ok := pathId(c, "id")
		if !ok {
			return
		}
		invoice, err := models.ApproveInvoice(c.Request.Context(), invoiceId)
		if err != nil {
			respondError(c, "documents.go", "ApproveInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func UpdateInvoiceNotesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req notesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		invoice, err := models.UpdateInvoiceNotes(c.Request.Context(), invoiceId, req.Notes)
		if err != nil {
			respondError(c, "documents.go", "UpdateInvoiceNotesHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func GetInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceId, ok := pathId(c, "id")
		if !ok {
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), invoiceId)
		if err != nil {
			respondError(c, "documents.go", "GetInvoiceHandler", err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func CreateBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBill
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		bill, err := models.CreateBill(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "documents.go", "CreateBillHandler", err)
			return
		}
		c.JSON(http.StatusCreated, bill)
	}
}

func AddBillLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		billId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.DocumentLineInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		bill, err := models.AddBillLine(c.Request.Context(), billId, &input)
		if err != nil {
			respondError(c, "documents.go", "AddBillLineHandler", err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func RemoveBillLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		billId, ok := pathId(c, "id")
		if !ok {
			return
		}
		lineId, ok := pathId(c, "lineId")
		if !ok {
			return
		}
		bill, err := models.RemoveBillLine(c.Request.Context(), billId, lineId)
		if err != nil {
			respondError(c, "documents.go", "RemoveBillLineHandler", err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func ApproveBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		billId, ok := pathId(c, "id")
		if !ok {
			return
		}
		bill, err := models.ApproveBill(c.Request.Context(), billId)
		if err != nil {
			respondError(c, "documents.go", "ApproveBillHandler", err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func UpdateBillNotesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		billId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req notesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		bill, err := models.UpdateBillNotes(c.Request.Context(), billId, req.Notes)
		if err != nil {
			respondError(c, "documents.go", "UpdateBillNotesHandler", err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func GetBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		billId, ok := pathId(c, "id")
		if !ok {
			return
		}
		bill, err := models.GetBill(c.Request.Context(), billId)
		if err != nil {
			respondError(c, "documents.go", "GetBillHandler", err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}
