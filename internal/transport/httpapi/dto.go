package httpapi

import (
	"math"
	"time"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// Деньги в API передаются десятичными числами, внутри хранятся целые минорные единицы.
func toMinor(amount float64) int64 { return int64(math.Round(amount * 100)) }

func fromMinor(minor int64) float64 { return float64(minor) / 100 }

type CustomerIn struct {
	Name  string `json:"name"`
	CPF   string `json:"cpf"`
	Email string `json:"email"`
}

type CustomerOut struct {
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	CPF       string    `json:"cpf"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func customerOut(c domain.Customer) CustomerOut {
	return CustomerOut{
		UUID:      c.UUID.String(),
		Name:      c.Name,
		CPF:       c.CPF.String(),
		Email:     c.Email.String(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type ProductIn struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

type ProductOut struct {
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func productOut(p domain.Product) ProductOut {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return ProductOut{
		UUID:        p.UUID.String(),
		Name:        p.Name,
		Category:    string(p.Category),
		Price:       fromMinor(p.PriceMinor),
		Description: p.Description,
		Images:      images,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type CheckoutItemIn struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutIn struct {
	CustomerID string           `json:"customer_id"`
	Items      []CheckoutItemIn `json:"items"`
}

type OrderCustomerOut struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	CPF   string `json:"cpf"`
}

type OrderItemOut struct {
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type OrderOut struct {
	UUID       string           `json:"uuid"`
	Customer   OrderCustomerOut `json:"customer"`
	Items      []OrderItemOut   `json:"items"`
	Status     string           `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	TotalValue float64          `json:"total_value"`
}

func orderOut(o domain.Order) OrderOut {
	items := make([]OrderItemOut, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemOut{
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   fromMinor(item.UnitPriceMinor),
		})
	}
	return OrderOut{
		UUID: o.UUID.String(),
		Customer: OrderCustomerOut{
			Name:  o.Customer.Name,
			Email: o.Customer.Email.String(),
			CPF:   o.Customer.CPF.String(),
		},
		Items:      items,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
		TotalValue: fromMinor(o.TotalMinor),
	}
}

func ordersOut(orders []domain.Order) []OrderOut {
	out := make([]OrderOut, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderOut(o))
	}
	return out
}

type TimelineEventOut struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason"`
	Occurred time.Time `json:"occurred_at"`
}

func timelineOut(events []domain.TimelineEvent) []TimelineEventOut {
	out := make([]TimelineEventOut, 0, len(events))
	for _, e := range events {
		out = append(out, TimelineEventOut{Type: e.Type, Reason: e.Reason, Occurred: e.Occurred})
	}
	return out
}

type StatusIn struct {
	Status string `json:"status"`
}

// PaymentStatusOut — ответ статуса платежа и webhook.
type PaymentStatusOut struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

func paymentStatusOut(p domain.Payment) PaymentStatusOut {
	return PaymentStatusOut{UUID: p.UUID.String(), Status: string(p.Status)}
}
