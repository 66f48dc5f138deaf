// Package templates renders the transactional emails.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification"
)

//go:embed files/*
var files embed.FS

var funcs = map[string]any{"money": money}

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.New("").Funcs(funcs).ParseFS(files, "files/*.html"))
	textTemplates = texttemplate.Must(texttemplate.New("").Funcs(funcs).ParseFS(files, "files/*.txt"))
)

// money formats minor units as a decimal amount.
func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

type orderView struct {
	ID       string
	Shipping domain.ShippingInfo
	Items    []domain.OrderItem
	Total    int64
}

// OrderConfirmation builds the email sent to the order's shipping address.
func OrderConfirmation(o *domain.Order) (*notification.Message, error) {
	view := orderView{
		ID:       o.ID,
		Shipping: o.ShippingInfo,
		Items:    o.Items,
		Total:    o.TotalPriceAfterDiscount,
	}
	return render(o.ShippingInfo.Email, "Your order "+o.ID, "order_confirmation", view)
}

type resetView struct {
	URL      string
	ValidFor string
}

// PasswordReset builds the email carrying a reset link. baseURL is suffixed
// with the raw token.
func PasswordReset(to, baseURL, token string, validFor time.Duration) (*notification.Message, error) {
	view := resetView{
		URL:      baseURL + token,
		ValidFor: validFor.String(),
	}
	return render(to, "Reset your password", "password_reset", view)
}

func render(to, subject, name string, data any) (*notification.Message, error) {
	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return nil, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", data); err != nil {
		return nil, fmt.Errorf("render %s html: %w", name, err)
	}
	return &notification.Message{
		To:      to,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
