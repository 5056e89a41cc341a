package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/propertybooks/accounting_backend/models"
)

func CreateCustomerPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCustomerPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		payment, err := models.CreateCustomerPayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "settlements.go", "CreateCustomerPaymentHandler", err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

func GetCustomerPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		payment, err := models.GetCustomerPayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, "settlements.go", "GetCustomerPaymentHandler", err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func CreateVendorPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewVendorPayment
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		payment, err := models.CreateVendorPayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "settlements.go", "CreateVendorPaymentHandler", err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

func GetVendorPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		payment, err := models.GetVendorPayment(c.Request.Context(), id)
		if err != nil {
			respondError(c, "settlements.go", "GetVendorPaymentHandler", err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func ApplyPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewApply
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		apply, err := models.ApplyPayment(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "settlements.go", "ApplyPaymentHandler", err)
			return
		}
		c.JSON(http.StatusCreated, apply)
	}
}

type batchApplyRequest struct {
	SourceKind  models.ApplySourceKind   `json:"source_kind" binding:"required"`
	SourceId    int                      `json:"source_id" binding:"required"`
	ApplyDate   time.Time                `json:"apply_date" binding:"required"`
	Allocations []models.ApplyAllocation `json:"allocations" binding:"required"`
}

func ApplyAcrossMultipleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchApplyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		applies, err := models.ApplyAcrossMultiple(c.Request.Context(), req.SourceKind, req.SourceId, req.Allocations, req.ApplyDate)
		if err != nil {
			respondError(c, "settlements.go", "ApplyAcrossMultipleHandler", err)
			return
		}
		c.JSON(http.StatusCreated, applies)
	}
}

func UnapplySettlementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		apply, err := models.UnapplySettlement(c.Request.Context(), id)
		if err != nil {
			respondError(c, "settlements.go", "UnapplySettlementHandler", err)
			return
		}
		c.JSON(http.StatusOK, apply)
	}
}

func ListAppliesForTargetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		kind := models.ApplyTargetKind(c.Param("kind"))
		if kind != models.ApplyTargetInvoice && kind != models.ApplyTargetBill {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target kind"})
			return
		}
		applies, err := models.AppliesForTarget(c.Request.Context(), kind, id)
		if err != nil {
			respondError(c, "settlements.go", "ListAppliesForTargetHandler", err)
			return
		}
		c.JSON(http.StatusOK, applies)
	}
}
