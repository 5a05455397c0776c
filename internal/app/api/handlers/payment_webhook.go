package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fatflowers/magazine/internal/app/service/billing"
	notificationlog "github.com/fatflowers/magazine/internal/app/service/notification_log"
	"github.com/fatflowers/magazine/internal/models"
	"github.com/fatflowers/magazine/pkg/logctx"
	"github.com/fatflowers/magazine/pkg/response"
	"github.com/fatflowers/magazine/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// webhookRequest is the gateway's notification body. The payment identifier
// arrives under payment_id or paymentId depending on the notification
// channel; payment_id wins when both are present.
type webhookRequest struct {
	PaymentID      string              `json:"payment_id"`
	PaymentIDAlias string              `json:"paymentId"`
	Status         types.WebhookStatus `json:"status"`
}

func (r *webhookRequest) paymentID() string {
	if r.PaymentID != "" {
		return r.PaymentID
	}
	return r.PaymentIDAlias
}

// @Summary      Payment gateway webhook
// @Description  Handles settlement and cancellation notifications from the gateway. Deliveries are at-least-once; replays are safe.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        request body webhookRequest true "Webhook payload"
// @Success      200  {object}  response.APIResponse
// @Failure      400  {object}  response.APIResponse
// @Router       /api/v1/webhooks/portone [post]
func ApiPortOneWebhook(svc *billing.Service, notifSvc *notificationlog.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logctx.FromGin(c, log)

		var req webhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error("payment_id and status are required"))
			return
		}
		paymentID := req.paymentID()
		if paymentID == "" || req.Status == "" {
			c.JSON(http.StatusBadRequest, response.Error("payment_id and status are required"))
			return
		}
		if !req.Status.Valid() {
			c.JSON(http.StatusBadRequest, response.Error("status must be 'Paid' or 'Cancelled'"))
			return
		}

		var traceID string
		if v, ok := c.Get("traceID"); ok {
			traceID, _ = v.(string)
		}
		dataBytes, _ := json.Marshal(req)
		saveLog(c, notifSvc, traceID, paymentID, dataBytes, nil, models.PaymentNotificationLogStatusReceived)

		reqLog.Infow("webhook_received", "payment_id", paymentID, "status", req.Status)

		var err error
		switch req.Status {
		case types.WebhookStatusPaid:
			err = svc.ProcessPaid(c.Request.Context(), paymentID)
		case types.WebhookStatusCancelled:
			err = svc.ProcessCancelled(c.Request.Context(), paymentID)
		}

		if err != nil {
			reqLog.Errorw("webhook_handle_error", "payment_id", paymentID, "status", req.Status, "error", err.Error())
			saveLog(c, notifSvc, traceID, paymentID, dataBytes, err, models.PaymentNotificationLogStatusHandleFailed)
			switch {
			case errors.Is(err, billing.ErrIncompletePayment):
				c.JSON(http.StatusBadRequest, response.Error("payment record is missing required fields"))
			case errors.Is(err, billing.ErrPaidRecordNotFound):
				c.JSON(http.StatusNotFound, response.Error("no active paid record for transaction"))
			default:
				writeGatewayError(c, err, "failed to process notification")
			}
			return
		}

		saveLog(c, notifSvc, traceID, paymentID, dataBytes, nil, models.PaymentNotificationLogStatusHandled)
		reqLog.Infow("webhook_handled", "payment_id", paymentID, "status", req.Status)
		c.JSON(http.StatusOK, response.OK())
	}
}

func saveLog(c *gin.Context, notifSvc *notificationlog.Service, traceID, paymentID string, data []byte, handleErr error, status models.PaymentNotificationLogStatus) {
	entry := &models.PaymentNotificationLog{
		ProviderID:       string(types.PaymentProviderPortOne),
		TraceID:          traceID,
		PaymentID:        paymentID,
		NotificationTime: time.Now(),
		Data:             data,
		Status:           status,
	}
	if handleErr != nil {
		resBytes, _ := json.Marshal(map[string]any{"error": handleErr.Error()})
		res := datatypes.JSON(resBytes)
		entry.Result = &res
	}
	notifSvc.Save(c.Request.Context(), entry)
}

func RegisterWebhookRoutes(r gin.IRouter, svc *billing.Service, notifSvc *notificationlog.Service, log *zap.SugaredLogger) {
	r.POST("/portone", ApiPortOneWebhook(svc, notifSvc, log))
}
