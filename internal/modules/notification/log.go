package notification

import (
	"context"

	"courseledger/internal/modules/reconcile"

	"go.uber.org/zap"
)

// LogNotifier stands in when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyPaymentConfirmed(ctx context.Context, c reconcile.Confirmation) error {
	n.logger.Info("payment confirmation (no broker configured)",
		zap.String("email", c.Email),
		zap.String("course", c.Course),
		zap.String("amount", c.Amount),
		zap.String("currency", c.Currency),
		zap.String("gateway_payment_id", c.GatewayPaymentID),
	)
	return nil
}
