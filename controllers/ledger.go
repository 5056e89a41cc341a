package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/propertybooks/accounting_backend/models"
)

func OpenLedgerHeaderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewLedgerHeader
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		header, err := models.OpenLedgerHeader(c.Request.Context(), &input)
		if err != nil {
			respondError(c, "ledger.go", "OpenLedgerHeaderHandler", err)
			return
		}
		c.JSON(http.StatusCreated, header)
	}
}

func AddLedgerLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		headerId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewLedgerLine
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err)
			return
		}
		line, err := models.AddLedgerLine(c.Request.Context(), headerId, &input)
		if err != nil {
			respondError(c, "ledger.go", "AddLedgerLineHandler", err)
			return
		}
		c.JSON(http.StatusCreated, line)
	}
}

func RemoveLedgerLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		headerId, ok := pathId(c, "id")
		if !ok {
			return
		}
		lineId, ok := pathId(c, "lineId")
		if !ok {
			return
		}
		if err := models.RemoveLedgerLine(c.Request.Context(), headerId, lineId); err != nil {
			respondError(c, "ledger.go", "RemoveLedgerLineHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func PostLedgerHeaderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		headerId, ok := pathId(c, "id")
		if !ok {
			return
		}
		header, err := models.PostLedgerHeader(c.Request.Context(), headerId)
		if err != nil {
			respondError(c, "ledger.go", "PostLedgerHeaderHandler", err)
			return
		}
		c.JSON(http.StatusOK, header)
	}
}

type voidRequest struct {
	VoidDate time.Time `json:"void_date"`
}

func VoidLedgerHeaderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		headerId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req voidRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
		}
		voiding, err := models.VoidLedgerHeader(c.Request.Context(), headerId, req.VoidDate)
		if err != nil {
			respondError(c, "ledger.go", "VoidLedgerHeaderHandler", err)
			return
		}
		c.JSON(http.StatusOK, voiding)
	}
}

func GetLedgerHeaderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		headerId, ok := pathId(c, "id")
		if !ok {
			return
		}
		header, err := models.GetLedgerHeader(c.Request.Context(), headerId)
		if err != nil {
			respondError(c, "ledger.go", "GetLedgerHeaderHandler", err)
			return
		}
		c.JSON(http.StatusOK, header)
	}
}
