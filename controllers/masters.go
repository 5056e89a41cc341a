package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/propertybooks/accounting_backend/models"
)

func CreateTaxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTax
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		tax, err := models.CreateTax(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreateTaxHandler", err)
			return
		}
		c.JSON(http.StatusCreated, tax)
	}
}

func UpdateTaxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewTax
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		tax, err := models.UpdateTax(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, "masters.go", "UpdateTaxHandler", err)
			return
		}
		c.JSON(http.StatusOK, tax)
	}
}

func DeactivateTaxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		tax, err := models.DeactivateTax(c.Request.Context(), id)
		if err != nil {
			respondError(c, "masters.go", "DeactivateTaxHandler", err)
			return
		}
		c.JSON(http.StatusOK, tax)
	}
}

func CreateTaxGroupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTaxGroup
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		group, err := models.CreateTaxGroup(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreateTaxGroupHandler", err)
			return
		}
		c.JSON(http.StatusCreated, group)
	}
}

func ResolveTaxesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		asOf := time.Now()
		if raw := c.Query("as_of"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "as_of must be YYYY-MM-DD"})
				return
			}
			asOf = parsed
		}
		taxes, err := models.ResolveTaxes(c.Request.Context(), id, asOf)
		if err != nil {
			respondError(c, "masters.go", "ResolveTaxesHandler", err)
			return
		}
		c.JSON(http.StatusOK, taxes)
	}
}

func CreateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		account, err := models.CreateAccount(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreateAccountHandler", err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func GetAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		account, err := models.GetAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, "masters.go", "GetAccountHandler", err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func CreateSegmentPositionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSegmentPosition
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		position, err := models.CreateSegmentPosition(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreateSegmentPositionHandler", err)
			return
		}
		c.JSON(http.StatusCreated, position)
	}
}

func CreateSegmentValueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSegmentValue
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		value, err := models.CreateSegmentValue(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreateSegmentValueHandler", err)
			return
		}
		c.JSON(http.StatusCreated, value)
	}
}

func ResolveAccountSegmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.ResolveAccountInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		account, err := models.ResolveAccountSegments(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "ResolveAccountSegmentsHandler", err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func CreateFiscalPeriodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFiscalPeriod
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		period, err := models.CreateFiscalPeriod(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreateFiscalPeriodHandler", err)
			return
		}
		c.JSON(http.StatusCreated, period)
	}
}

type periodFlagRequest struct {
	Module models.LedgerModule `json:"module" binding:"required"`
	Open   *bool               `json:"open" binding:"required"`
}

func SetFiscalPeriodFlagHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req periodFlagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		period, err := models.SetFiscalPeriodFlag(c.Request.Context(), id, req.Module, *req.Open)
		if err != nil {
			respondError(c, "masters.go", "SetFiscalPeriodFlagHandler", err)
			return
		}
		c.JSON(http.StatusOK, period)
	}
}

func CreateCustomerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCustomer
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		customer, err := models.CreateCustomer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreateCustomerHandler", err)
			return
		}
		c.JSON(http.StatusCreated, customer)
	}
}

func CreateVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewVendor
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		vendor, err := models.CreateVendor(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreateVendorHandler", err)
			return
		}
		c.JSON(http.StatusCreated, vendor)
	}
}

func CreatePropertyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProperty
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		property, err := models.CreateProperty(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreatePropertyHandler", err)
			return
		}
		c.JSON(http.StatusCreated, property)
	}
}

func CreateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "masters.go", "CreateProductHandler", err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}
