package http

import (
	"time"

	"github.com/vladislavdragonenkov/photokiosk/internal/domain"
	"github.com/vladislavdragonenkov/photokiosk/internal/service/workflow"
)

type sessionView struct {
	ID        string `json:"id"`
	DeviceID  string `json:"device_id,omitempty"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
}

func newSessionView(s domain.Session) sessionView {
	return sessionView{
		ID:        s.ID,
		DeviceID:  s.DeviceID,
		Status:    string(s.Status),
		StartedAt: s.StartedAt.Format(time.RFC3339),
	}
}

type photoView struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	BlurLevel int    `json:"blur_level"`
	Status    string `json:"status"`
	URL       string `json:"url"`
}

func (s *Server) newPhotoView(p domain.Photo) photoView {
	return photoView{
		ID:        p.ID,
		Type:      string(p.Type),
		BlurLevel: p.BlurLevel,
		Status:    string(p.Status),
		URL:       s.files.URL(p.Path),
	}
}

type collageView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	PriceMinor int64  `json:"price_minor"`
}

func newCollageView(c domain.Collage) collageView {
	return collageView{
		ID:         c.ID,
		Title:      c.Title,
		PriceMinor: c.PriceMinor,
	}
}

type orderView struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	SessionID     string `json:"session_id"`
	CollageID     string `json:"collage_id"`
	Status        string `json:"status"`
	PriceMinor    int64  `json:"price_minor"`
	FailureReason string `json:"failure_reason,omitempty"`
	PaidAt        string `json:"paid_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func newOrderView(o domain.Order) orderView {
	view := orderView{
		ID:            o.ID,
		Code:          o.Code,
		SessionID:     o.SessionID,
		CollageID:     o.CollageID,
		Status:        string(o.Status),
		PriceMinor:    o.PriceMinor,
		FailureReason: o.FailureReason,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
	if o.PaidAt != nil {
		view.PaidAt = o.PaidAt.Format(time.RFC3339)
	}
	return view
}

type deliveryView struct {
	ID      string            `json:"id"`
	Channel string            `json:"channel"`
	Status  string            `json:"status"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func newDeliveryView(d domain.Delivery) deliveryView {
	return deliveryView{
		ID:      d.ID,
		Channel: string(d.Channel),
		Status:  string(d.Status),
		Meta:    d.Meta,
	}
}

// orderStatusView — агрегированный ответ для киоска: заказ, тизер
// и (после оплаты) разблокированный результат.
type orderStatusView struct {
	Order      orderView      `json:"order"`
	Teaser     *photoView     `json:"teaser,omitempty"`
	Result     *photoView     `json:"result,omitempty"`
	Deliveries []deliveryView `json:"deliveries,omitempty"`
}

func (s *Server) newOrderStatusView(status workflow.OrderStatus) orderStatusView {
	view := orderStatusView{Order: newOrderView(status.Order)}
	if status.Teaser != nil {
		teaser := s.newPhotoView(*status.Teaser)
		view.Teaser = &teaser
	}
	if status.Result != nil {
		result := s.newPhotoView(*status.Result)
		view.Result = &result
	}
	for _, d := range status.Deliveries {
		view.Deliveries = append(view.Deliveries, newDeliveryView(d))
	}
	return view
}

type paymentView struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	Provider   string `json:"provider"`
	Method     string `json:"method"`
	Status     string `json:"status"`
	PaymentURL string `json:"payment_url,omitempty"`
	QRCodeURL  string `json:"qr_code_url,omitempty"`
}

func newPaymentView(p domain.Payment, charge domain.PaymentCharge) paymentView {
	return paymentView{
		ID:         p.ID,
		OrderID:    p.OrderID,
		Provider:   p.Provider,
		Method:     string(p.Method),
		Status:     string(p.Status),
		PaymentURL: charge.PaymentURL,
		QRCodeURL:  charge.QRCodeURL,
	}
}

type timelineEventView struct {
	Type     string `json:"type"`
	Reason   string `json:"reason,omitempty"`
	Occurred string `json:"occurred_at"`
}

func newTimelineView(events []domain.TimelineEvent) []timelineEventView {
	result := make([]timelineEventView, 0, len(events))
	for _, e := range events {
		result = append(result, timelineEventView{
			Type:     e.Type,
			Reason:   e.Reason,
			Occurred: e.Occurred.Format(time.RFC3339),
		})
	}
	return result
}
