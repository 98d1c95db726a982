package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

func TestNewCustomer(t *testing.T) {
	cpf := domain.MustCPF("52998224725")
	email := domain.MustEmail("john@x.com")

	customer, err := domain.NewCustomer("  John Doe ", cpf, email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if customer.Name != "John Doe" {
		t.Fatalf("expected trimmed name, got %q", customer.Name)
	}
	if customer.CreatedAt.IsZero() || customer.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps")
	}

	cases := []struct {
		name  string
		cname string
		cpf   domain.CPF
		email domain.Email
	}{
		{name: "empty name", cname: "  ", cpf: cpf, email: email},
		{name: "missing cpf", cname: "John", email: email},
		{name: "missing email", cname: "John", cpf: cpf},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.NewCustomer(tc.cname, tc.cpf, tc.email)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNewProduct_Validation(t *testing.T) {
	valid := domain.ProductAttributes{
		Name:        "X-Burger",
		Category:    domain.CategoryLanche,
		PriceMinor:  2590,
		Description: "Pão, carne e queijo",
		Images:      []string{"https://cdn.example.com/x.png"},
	}

	if _, err := domain.NewProduct(valid); err != nil {
		t.Fatalf("expected valid product: %v", err)
	}

	cases := []struct {
		name string
		mut  func(a *domain.ProductAttributes)
		msg  string
	}{
		{name: "empty name", mut: func(a *domain.ProductAttributes) { a.Name = "" }, msg: "Product name is required."},
		{name: "zero price", mut: func(a *domain.ProductAttributes) { a.PriceMinor = 0 }, msg: "Product price must be greater than zero."},
		{name: "bad category", mut: func(a *domain.ProductAttributes) { a.Category = "pizza" }, msg: "Product category is invalid."},
		{name: "no description", mut: func(a *domain.ProductAttributes) { a.Description = " " }, msg: "Product description is required."},
		{name: "no images", mut: func(a *domain.ProductAttributes) { a.Images = nil }, msg: "Product must have at least one image."},
		{name: "blank image", mut: func(a *domain.ProductAttributes) { a.Images = []string{""} }, msg: "Product image must not be empty."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attrs := valid
			attrs.Images = append([]string(nil), valid.Images...)
			tc.mut(&attrs)

			_, err := domain.NewProduct(attrs)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, err.Error())
			}
		})
	}
}

func TestProductUpdate_KeepsStateOnError(t *testing.T) {
	product := makeProduct(t, "nuggets", 1200)
	before := product

	err := product.Update(domain.ProductAttributes{Name: "", Category: domain.CategoryLanche, PriceMinor: 1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if product.Name != before.Name || product.PriceMinor != before.PriceMinor {
		t.Fatal("product must not change on failed update")
	}
}

func TestPayment_Lifecycle(t *testing.T) {
	order := makeOrder(t)

	payment, err := domain.NewPayment(order, map[string]string{"gateway": "MercadoPago"})
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	if payment.Status != domain.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", payment.Status)
	}
	if payment.OrderUUID != order.UUID {
		t.Fatal("payment must reference order")
	}

	if err := payment.TransitionTo(domain.PaymentStatusApproved); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("pending -> approved must fail, got %v", err)
	}
	if err := payment.TransitionTo(domain.PaymentStatusProcessing); err != nil {
		t.Fatalf("pending -> processing: %v", err)
	}
	if err := payment.TransitionTo(domain.PaymentStatusFailed); err != nil {
		t.Fatalf("processing -> failed: %v", err)
	}
	if err := payment.TransitionTo(domain.PaymentStatusProcessing); err != nil {
		t.Fatalf("failed -> processing retry: %v", err)
	}
	if err := payment.TransitionTo(domain.PaymentStatusApproved); err != nil {
		t.Fatalf("processing -> approved: %v", err)
	}
	if err := payment.TransitionTo(domain.PaymentStatusRejected); err == nil {
		t.Fatal("approved is terminal")
	}
}

func TestNewPayment_RequiresDetails(t *testing.T) {
	order := makeOrder(t)
	_, err := domain.NewPayment(order, nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	id := domain.MustCPF("52998224725")

	notFound := domain.CustomerNotFound("cpf", id.String())
	if !errors.Is(notFound, domain.ErrNotFound) || notFound.Params["cpf"] != "52998224725" {
		t.Fatalf("unexpected not found error: %+v", notFound)
	}
	if !errors.Is(domain.ErrCustomerExists, domain.ErrConflict) {
		t.Fatal("customer exists must be a conflict")
	}

	order := makeOrder(t)
	missing := &domain.MissingProductsError{IDs: []uuid.UUID{order.UUID, order.Customer.UUID}}
	if !errors.Is(missing, domain.ErrMissingProducts) {
		t.Fatal("missing products kind")
	}
	want := "Order creation failed due to missing products: " + order.UUID.String() + ", " + order.Customer.UUID.String()
	if missing.Error() != want {
		t.Fatalf("expected %q, got %q", want, missing.Error())
	}

	if domain.IsClientError(errors.New("boom")) {
		t.Fatal("plain error is not a client error")
	}
	if !domain.IsClientError(domain.OrderNotFound(order.UUID)) {
		t.Fatal("not found is a client error")
	}
}
