package shipping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"
)

// 追跡番号を採番し、ラベル（テキスト）をオブジェクトストレージに置く
type Labeler struct {
	carrier string
	storage usecase.ObjectStorage
	ids     usecase.IDGenerator
	clock   usecase.Clock
}

var _ usecase.ShippingLabeler = (*Labeler)(nil)

// storage が nil ならラベルは作らず追跡番号だけ返す
func NewLabeler(carrier string, storage usecase.ObjectStorage, ids usecase.IDGenerator, clock usecase.Clock) *Labeler {
	return &Labeler{carrier: carrier, storage: storage, ids: ids, clock: clock}
}

func (l *Labeler) CreateLabel(ctx context.Context, order model.Order) (usecase.ShippingLabel, error) {
	out := usecase.ShippingLabel{
		TrackingNumber: l.trackingNumber(order),
		Carrier:        l.carrier,
	}
	if l.storage == nil {
		return out, nil
	}

	body := renderLabel(order, out, l.clock.Now())
	key := fmt.Sprintf("labels/%d/%s.txt", order.ID, out.TrackingNumber)
	url, err := l.storage.Put(ctx, key, "text/plain; charset=utf-8", strings.NewReader(body), int64(len(body)))
	if err != nil {
		return usecase.ShippingLabel{}, fmt.Errorf("store label: %w", err)
	}
	out.LabelURL = url
	return out, nil
}

// <CARRIER頭文字>-<注文ID>-<ランダム8桁>
func (l *Labeler) trackingNumber(order model.Order) string {
	prefix := "SF"
	if words := strings.Fields(l.carrier); len(words) > 0 {
		var b strings.Builder
		for _, w := range words {
			b.WriteString(strings.ToUpper(string([]rune(w)[:1])))
		}
		prefix = b.String()
	}
	suffix := strings.ToUpper(strings.ReplaceAll(l.ids.NewID(), "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s-%d-%s", prefix, order.ID, suffix)
}

func renderLabel(order model.Order, label usecase.ShippingLabel, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", label.Carrier)
	fmt.Fprintf(&b, "Tracking: %s\n", label.TrackingNumber)
	fmt.Fprintf(&b, "Order: #%d\n", order.ID)
	fmt.Fprintf(&b, "Printed: %s\n\n", now.UTC().Format(time.RFC3339))

	a := order.ShippingAddress
	fmt.Fprintf(&b, "TO:\n%s\n%s\n%s (%s)\nTel: %s\n\n", a.FullName, a.Address, a.City, a.Region, a.Phone)

	for _, it := range order.Items {
		fmt.Fprintf(&b, "%d x %s (%s/%s)\n", it.Quantity, it.Name, it.Size, it.Color)
	}
	if order.PaymentMethod == model.PaymentCOD && !order.IsPaid {
		fmt.Fprintf(&b, "\nCOLLECT: Rs. %s\n", order.TotalPrice.StringFixed(2))
	}
	return b.String()
}
