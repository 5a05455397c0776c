package handlers

import (
	"errors"
	"net/http"

	mw "github.com/fatflowers/magazine/internal/app/api/middleware"
	"github.com/fatflowers/magazine/internal/app/service/billing"
	subsvc "github.com/fatflowers/magazine/internal/app/service/subscription"
	"github.com/fatflowers/magazine/internal/platform/portone"
	"github.com/fatflowers/magazine/pkg/logctx"
	"github.com/fatflowers/magazine/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeGatewayError mirrors a gateway failure to the caller: the gateway's
// HTTP status with its raw body under details. Anything that is not a gateway
// error is a local failure and maps to 500.
func writeGatewayError(c *gin.Context, err error, msg string) {
	var apiErr *portone.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, response.ErrorDetails(msg, apiErr.Details()))
		return
	}
	c.JSON(http.StatusInternalServerError, response.Error(msg))
}

// @Summary      Initiate subscription charge
// @Description  Charges the caller's billing key for one subscription period. The ledger row is created when the gateway delivers the settlement webhook.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.InitiateChargeRequest true "Charge request"
// @Success      200  {object}  response.APIResponse
// @Failure      400  {object}  response.APIResponse
// @Failure      401  {object}  response.APIResponse
// @Router       /api/v1/payments [post]
func ApiInitiateCharge(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mw.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, response.Error("authentication required"))
			return
		}

		var req billing.InitiateChargeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error("missing required fields"))
			return
		}
		req.CustomerID = userID

		paymentID, err := svc.InitiateCharge(c.Request.Context(), &req)
		if err != nil {
			logctx.FromGin(c, log).Errorw("initiate_charge_failed", "error", err.Error())
			writeGatewayError(c, err, "failed to process charge")
			return
		}
		logctx.FromGin(c, log).Infow("initiate_charge_accepted", "payment_id", paymentID)
		c.JSON(http.StatusOK, response.OK())
	}
}

type cancelChargeRequest struct {
	TransactionKey string `json:"transactionKey" binding:"required"`
}

// @Summary      Cancel subscription
// @Description  Reverses the charge at the gateway, appends the reversal ledger row and revokes the pending renewal schedule.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body cancelChargeRequest true "Cancel request"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse
// @Failure      404  {object}  response.APIResponse
// @Router       /api/v1/payments/cancel [post]
func ApiCancelCharge(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mw.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, response.Error("authentication required"))
			return
		}

		var req cancelChargeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error("transactionKey is required"))
			return
		}

		err := svc.Cancel(c.Request.Context(), userID, req.TransactionKey)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, response.OK())
		case errors.Is(err, billing.ErrNotOwner):
			c.JSON(http.StatusForbidden, response.Error("transaction does not belong to caller"))
		case errors.Is(err, billing.ErrPaidRecordNotFound):
			c.JSON(http.StatusNotFound, response.Error("no active paid record for transaction"))
		default:
			logctx.FromGin(c, log).Errorw("cancel_charge_failed", "transaction_key", req.TransactionKey, "error", err.Error())
			writeGatewayError(c, err, "failed to cancel subscription")
		}
	}
}

// @Summary      Subscription status
// @Description  Derives the caller's subscription state from the ledger.
// @Tags         Payment
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  subscription.Status
// @Failure      401  {object}  response.APIResponse
// @Router       /api/v1/subscription [get]
func ApiSubscriptionStatus(sub *subsvc.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := mw.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, response.Error("authentication required"))
			return
		}

		st, err := sub.Status(c.Request.Context(), userID)
		if err != nil {
			logctx.FromGin(c, log).Errorw("subscription_status_failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.Error("failed to query subscription status"))
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func RegisterPaymentRoutes(r gin.IRouter, svc *billing.Service, sub *subsvc.Service, log *zap.SugaredLogger) {
	r.POST("/payments", ApiInitiateCharge(svc, log))
	r.POST("/payments/cancel", ApiCancelCharge(svc, log))
	r.GET("/subscription", ApiSubscriptionStatus(sub, log))
}
