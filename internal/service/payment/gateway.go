package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// MercadoPagoGateway — заглушка интеграции с Mercado Pago.
// Возвращает платёж pending с данными для оплаты по QR; итог приходит через webhook.
type MercadoPagoGateway struct {
	// NotificationURL передаётся провайдеру как адрес webhook.
	NotificationURL string
}

func NewMercadoPagoGateway(notificationURL string) *MercadoPagoGateway {
	return &MercadoPagoGateway{NotificationURL: notificationURL}
}

func (g *MercadoPagoGateway) Process(ctx context.Context, order domain.Order) (domain.Payment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Payment{}, err
	}
	details := map[string]string{
		"gateway":            "MercadoPago",
		"external_reference": order.UUID.String(),
		"amount_minor":       strconv.FormatInt(order.TotalMinor, 10),
		"qr_data":            fmt.Sprintf("mp://pay/%s?amount=%d", order.UUID, order.TotalMinor),
	}
	if g.NotificationURL != "" {
		details["notification_url"] = g.NotificationURL
	}
	return domain.NewPayment(order, details)
}

var _ domain.PaymentGateway = (*MercadoPagoGateway)(nil)
