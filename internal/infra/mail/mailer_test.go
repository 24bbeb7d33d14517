package mail

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

type captureSender struct {
	msgs []*gomail.Msg
	err  error
}

func (s *captureSender) DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error {
	s.msgs = append(s.msgs, messages...)
	return s.err
}

func sampleOrder() model.Order {
	return model.Order{
		ID:            12,
		PaymentMethod: model.PaymentCOD,
		ShippingAddress: model.ShippingAddress{
			FullName: "Sita <Sharma>",
			Address:  "Baneshwor",
			City:     "Kathmandu",
			Region:   model.RegionKathmanduValley,
		},
		Items:          []model.OrderItem{{Name: "Shirt", Size: "M", Color: "Blue", Quantity: 2, Price: model.NewMoney(1000)}},
		ItemsPrice:     model.NewMoney(2000),
		ShippingPrice:  model.NewMoney(100),
		DiscountAmount: model.NewMoney(200),
		CouponCode:     "SAVE10",
		TotalPrice:     model.NewMoney(1900),
		Status:         model.OrderStatusShipped,
	}
}

func TestRender_OrderConfirmation(t *testing.T) {
	body, err := render("order_confirmation.html", orderView{Order: sampleOrder()})
	require.NoError(t, err)
	assert.Contains(t, body, "#12")
	assert.Contains(t, body, "Rs. 1900.00")
	assert.Contains(t, body, "Discount (SAVE10)")
	// HTML はエスケープされる
	assert.Contains(t, body, "Sita &lt;Sharma&gt;")
}

func TestRender_ShippingUpdate(t *testing.T) {
	o := sampleOrder()
	o.TrackingNumber = "NCM-12"
	o.Carrier = "Nepal Can Move"

	body, err := render("shipping_update.html", orderView{Order: o})
	require.NoError(t, err)
	assert.Contains(t, body, "NCM-12")
	assert.Contains(t, body, "Nepal Can Move")
}

func TestMailer_OrderConfirmation(t *testing.T) {
	s := &captureSender{}
	m := &Mailer{client: s, from: "shop@example.com"}

	require.NoError(t, m.OrderConfirmation(context.Background(), "buyer@example.com", sampleOrder()))
	require.Len(t, s.msgs, 1)
	assert.Equal(t, []string{"Order #12 confirmed"}, s.msgs[0].GetGenHeader(gomail.HeaderSubject))

	rcpts, err := s.msgs[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"buyer@example.com"}, rcpts)
}

func TestMailer_SendErrors(t *testing.T) {
	s := &captureSender{err: errors.New("smtp down")}
	m := &Mailer{client: s, from: "shop@example.com"}

	assert.Error(t, m.ShippingUpdate(context.Background(), "buyer@example.com", sampleOrder()))
	assert.Error(t, m.ShippingUpdate(context.Background(), "not an address", sampleOrder()))
}
