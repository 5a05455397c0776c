package handlers

import (
	"net/http"

	"github.com/fatflowers/magazine/internal/app/service/billing"
	"github.com/fatflowers/magazine/internal/app/service/statistics"
	"github.com/fatflowers/magazine/pkg/response"

	"github.com/gin-gonic/gin"
)

// @Summary      Scan payment ledger
// @Description  Filtered, paginated listing of ledger rows for back-office use.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.ScanPaymentsRequest true "Scan request"
// @Success      200  {object}  billing.ScanPaymentsResponse
// @Router       /api/v1/admin/payments/scan [post]
func ApiScanPayments(svc *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req billing.ScanPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(err.Error()))
			return
		}
		res, err := svc.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Revenue summary
// @Description  Daily charge counts, gross volume and active subscriber count derived from the ledger.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.RevenueSummaryRequest true "Summary request"
// @Success      200  {object}  statistics.RevenueSummaryResponse
// @Router       /api/v1/admin/statistics [post]
func ApiRevenueSummary(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.RevenueSummaryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(err.Error()))
			return
		}
		res, err := stats.RevenueSummary(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.Error(err.Error()))
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func RegisterAdminRoutes(r gin.IRouter, svc *billing.Service, stats *statistics.Service) {
	r.POST("/payments/scan", ApiScanPayments(svc))
	r.POST("/statistics", ApiRevenueSummary(stats))
}
