package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiClient вызывает HTTP API и записывает каждый шаг в collector.
type apiClient struct {
	base    string
	http    *http.Client
	timeout time.Duration
	col     *collector
}

type customerIn struct {
	Name  string `json:"name"`
	CPF   string `json:"cpf"`
	Email string `json:"email"`
}

type productIn struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

type checkoutItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutIn struct {
	CustomerID string         `json:"customer_id"`
	Items      []checkoutItem `json:"items"`
}

type statusIn struct {
	Status string `json:"status"`
}

type entityOut struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

type fixture struct {
	customerID string
	productID  string
}

func (c *apiClient) call(ctx context.Context, step, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", step, err)
		}
		body = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", step, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.col.record(step, time.Since(start), 0, false)
		return fmt.Errorf("%s: %w", step, err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == want
	c.col.record(step, time.Since(start), resp.StatusCode, ok)
	if !ok {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		return fmt.Errorf("%s: unexpected status %d: %s", step, resp.StatusCode, detail.Detail)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", step, err)
	}
	return nil
}

// setup создаёт клиента и товар, общие для всех сценариев прогона.
func (c *apiClient) setup(ctx context.Context, runID string, seed uint64, priceMinor int64) (fixture, error) {
	var customer entityOut
	err := c.call(ctx, "setup_customer", http.MethodPost, "/customer", customerIn{
		Name:  "Load " + runID,
		CPF:   generateCPF(seed),
		Email: fmt.Sprintf("load-%s@loadtest.local", runID),
	}, http.StatusCreated, &customer)
	if err != nil {
		return fixture{}, err
	}

	var product entityOut
	err = c.call(ctx, "setup_product", http.MethodPost, "/products", productIn{
		Name:        "Load Burger " + runID,
		Category:    "lanche",
		Price:       float64(priceMinor) / 100,
		Description: "load test product",
		Images:      []string{"https://img.loadtest.local/burger.png"},
	}, http.StatusCreated, &product)
	if err != nil {
		return fixture{}, err
	}
	return fixture{customerID: customer.UUID, productID: product.UUID}, nil
}

func (c *apiClient) runScenario(ctx context.Context, mode loadMode, fx fixture, quantity int) (err error) {
	start := time.Now()
	defer func() {
		code := http.StatusOK
		if err != nil {
			code = http.StatusInternalServerError
		}
		c.col.record(scenarioStep, time.Since(start), code, err == nil)
	}()

	var order entityOut
	if err := c.call(ctx, "checkout", http.MethodPost, "/orders/checkout", checkoutIn{
		CustomerID: fx.customerID,
		Items:      []checkoutItem{{ProductID: fx.productID, Quantity: quantity}},
	}, http.StatusCreated, &order); err != nil {
		return err
	}
	if mode == modeCheckout {
		return nil
	}

	var payment entityOut
	if err := c.call(ctx, "payment_status", http.MethodGet, "/payment/"+order.UUID+"/status", nil, http.StatusOK, &payment); err != nil {
		return err
	}
	if err := c.call(ctx, "payment_webhook", http.MethodPost, "/payment/"+payment.UUID+"/result",
		statusIn{Status: "approved"}, http.StatusOK, nil); err != nil {
		return err
	}
	if mode == modeCheckoutPay {
		return nil
	}

	for _, next := range []string{"processing", "ready", "completed"} {
		if err := c.call(ctx, "order_status", http.MethodPut, "/orders/"+order.UUID+"/status",
			statusIn{Status: next}, http.StatusOK, nil); err != nil {
			return err
		}
	}
	return nil
}

// generateCPF строит валидный CPF из seed: девять цифр и две контрольные.
func generateCPF(seed uint64) string {
	base := []byte(fmt.Sprintf("%09d", seed%1_000_000_000))
	same := true
	for _, d := range base[1:] {
		if d != base[0] {
			same = false
			break
		}
	}
	if same {
		base[8] = '0' + (base[8]-'0'+1)%10
	}
	digits := append(base, cpfCheckDigit(base))
	digits = append(digits, cpfCheckDigit(digits))
	return string(digits)
}

func cpfCheckDigit(base []byte) byte {
	weight := len(base) + 1
	sum := 0
	for i, d := range base {
		sum += int(d-'0') * (weight - i)
	}
	rem := sum % 11
	if rem < 2 {
		return '0'
	}
	return byte('0' + 11 - rem)
}
