package square

import (
	"strconv"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

// PaymentLinkLine is one priced line of the hosted checkout session.
type PaymentLinkLine struct {
	Name   string
	Qty    int
	Amount int64
}

// PaymentLinkParams groups the inputs for a hosted checkout session.
// Metadata is attached verbatim to the provider order and echoed back on
// the completion webhook.
type PaymentLinkParams struct {
	ReferenceID    string
	Lines          []PaymentLinkLine
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentLinkSession is the handle the caller redirects the customer to.
type PaymentLinkSession struct {
	ID      string
	URL     string
	OrderID string
}

func (p PaymentLinkParams) toSquareRequest(idempotencyKey, locationID, currency, redirectURL string) *sqcheckout.CreatePaymentLinkRequest {
	order := &sq.Order{
		LocationID: locationID,
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		order.ReferenceID = ptrString(trimmed)
	}
	if len(p.Metadata) > 0 {
		metadata := make(map[string]*string, len(p.Metadata))
		for k, v := range p.Metadata {
			metadata[k] = ptrString(v)
		}
		order.Metadata = metadata
	}
	lineItems := make([]*sq.OrderLineItem, 0, len(p.Lines))
	for _, line := range p.Lines {
		lineItems = append(lineItems, &sq.OrderLineItem{
			Name:           ptrString(line.Name),
			Quantity:       strconv.Itoa(line.Qty),
			BasePriceMoney: moneyPtr(line.Amount, currency),
		})
	}
	order.LineItems = lineItems

	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		Order:          order,
	}
	if trimmed := strings.TrimSpace(redirectURL); trimmed != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{RedirectURL: ptrString(trimmed)}
	}
	return req
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
