package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edurotich/smartplanner/domain"
)

// PaymentHandlers handles M-PESA top-up HTTP requests
type PaymentHandlers struct {
	paymentSvc domain.PaymentService
}

// NewPaymentHandlers creates new payment handlers
func NewPaymentHandlers(paymentSvc domain.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{paymentSvc: paymentSvc}
}

// STKPushRequest represents a top-up initiation request
type STKPushRequest struct {
	Phone  string `json:"phone" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
}

// stkCallbackEnvelope mirrors the Daraja STK push result payload.
type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// STKPush initiates an M-PESA STK push for the authenticated user
func (h *PaymentHandlers) STKPush(c *gin.Context) {
	var req STKPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := CurrentUserID(c)
	result, err := h.paymentSvc.InitiateTopUp(c.Request.Context(), userID, req.Phone, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number. Must be a valid Kenyan number."})
		case errors.Is(err, domain.ErrGatewayRejected):
			c.JSON(http.StatusBadGateway, gin.H{"error": "M-PESA rejected the payment request. Please try again."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate payment"})
		}
		return
	}

	message := result.CustomerMessage
	if message == "" {
		message = "STK push sent. Enter your M-PESA PIN on your phone to complete payment."
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":             message,
			"payment_id":          result.PaymentID,
			"checkout_request_id": result.CheckoutRequestID,
		},
	})
}

// Callback receives the asynchronous Daraja payment result. It always
// acknowledges with 200 so Safaricom does not retry indefinitely.
func (h *PaymentHandlers) Callback(c *gin.Context) {
	var envelope stkCallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		log.Printf("M-PESA callback: unreadable payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
		return
	}

	cb := envelope.Body.StkCallback
	notification := &domain.PaymentNotification{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				notification.Amount = v
			}
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				notification.MpesaReceipt = v
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case float64:
				notification.Phone = fmt.Sprintf("%.0f", v)
			case string:
				notification.Phone = v
			}
		}
	}

	if err := h.paymentSvc.HandleCallback(c.Request.Context(), notification); err != nil {
		// Logged so a failed credit can be replayed; the gateway still gets its ack.
		log.Printf("M-PESA callback: processing failed for %s: %v", cb.CheckoutRequestID, err)
	}

	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// Status reports the state of a previously initiated top-up
func (h *PaymentHandlers) Status(c *gin.Context) {
	checkoutID := c.Param("id")
	payment, err := h.paymentSvc.Status(c.Request.Context(), checkoutID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get payment status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"checkout_request_id": payment.CheckoutRequestID,
			"status":              payment.Status,
			"amount":              payment.Amount,
			"tokens_added":        payment.TokensAdded,
			"mpesa_receipt":       payment.MpesaReceipt,
			"created_at":          payment.CreatedAt,
		},
	})
}
