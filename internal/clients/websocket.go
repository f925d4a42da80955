package clients

import (
	"context"
	"fmt"

	ws "feepay-engine/internal/transport/websocket"
)

// WebSocketClient routes payment lifecycle events to the hub as discrete
// notifications. Outcomes that arrive after the payment dialog is gone
// still land here, so nothing is silently dropped.
type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

func (c *WebSocketClient) NotifyPaymentSucceeded(ctx context.Context, userID int64, sessionID, transactionRef string) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_of_payment_result#%d", userID)
	message := &ws.Message{
		Type:    "payment_succeeded",
		Channel: channel,
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"transaction_ref": transactionRef,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}

func (c *WebSocketClient) NotifyPaymentFailed(ctx context.Context, userID int64, sessionID, errMsg string, unknownOutcome bool) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_of_payment_result#%d", userID)
	message := &ws.Message{
		Type:    "payment_failed",
		Channel: channel,
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"message":         errMsg,
			"unknown_outcome": unknownOutcome,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}

// NotifyPaymentWarning reports a secondary failure (receipt or refresh)
// after an already-committed payment.
func (c *WebSocketClient) NotifyPaymentWarning(ctx context.Context, userID int64, sessionID, warning string) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_of_payment_warning#%d", userID)
	message := &ws.Message{
		Type:    "payment_warning",
		Channel: channel,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"message":    warning,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}

func (c *WebSocketClient) NotifyReceiptReady(ctx context.Context, userID int64, sessionID, transactionRef, url, filename string) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_user_when_receipt_ready#%d", userID)
	message := &ws.Message{
		Type:    "receipt_ready",
		Channel: channel,
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"transaction_ref": transactionRef,
			"url":             url,
			"filename":        filename,
		},
	}

	c.hub.Broadcast(userID, message)
	return nil
}
