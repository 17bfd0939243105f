// Package payment talks to the hosted payment provider. Checkouts are Xendit
// invoices: the invoice URL is where the payer is redirected, and the
// invoice's external ID carries the inscription ID back to the webhook.
package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xendit/xendit-go/v6"
	"github.com/xendit/xendit-go/v6/invoice"
)

type CheckoutRequest struct {
	ExternalReference string
	Description       string
	Amount            decimal.Decimal
	Currency          string
	PayerEmail        string
	SuccessURL        string
	FailureURL        string
}

type Checkout struct {
	ID          string
	RedirectURL string
}

type Payment struct {
	ID                string
	ExternalReference string
	Status            string
}

const (
	StatusPaid    = "PAID"
	StatusSettled = "SETTLED"
)

// Approved reports whether the provider considers the payment complete.
func (p *Payment) Approved() bool {
	return p.Status == StatusPaid || p.Status == StatusSettled
}

type Gateway struct {
	client *xendit.APIClient
}

func NewGateway(client *xendit.APIClient) *Gateway {
	return &Gateway{client: client}
}

func (g *Gateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	amount, _ := req.Amount.Float64()
	body := invoice.NewCreateInvoiceRequest(req.ExternalReference, amount)
	if req.Description != "" {
		body.SetDescription(req.Description)
	}
	if req.Currency != "" {
		body.SetCurrency(req.Currency)
	}
	if req.PayerEmail != "" {
		body.SetPayerEmail(req.PayerEmail)
	}
	if req.SuccessURL != "" {
		body.SetSuccessRedirectUrl(req.SuccessURL)
	}
	if req.FailureURL != "" {
		body.SetFailureRedirectUrl(req.FailureURL)
	}

	inv, _, xerr := g.client.InvoiceApi.CreateInvoice(ctx).
		CreateInvoiceRequest(*body).
		Execute()
	if xerr != nil {
		return nil, fmt.Errorf("create invoice for %s: %s", req.ExternalReference, xerr.Error())
	}

	return &Checkout{
		ID:          inv.GetId(),
		RedirectURL: inv.GetInvoiceUrl(),
	}, nil
}

func (g *Gateway) GetPayment(ctx context.Context, id string) (*Payment, error) {
	inv, _, xerr := g.client.InvoiceApi.GetInvoiceById(ctx, id).Execute()
	if xerr != nil {
		return nil, fmt.Errorf("get invoice %s: %s", id, xerr.Error())
	}

	return &Payment{
		ID:                inv.GetId(),
		ExternalReference: inv.GetExternalId(),
		Status:            string(inv.GetStatus()),
	}, nil
}
