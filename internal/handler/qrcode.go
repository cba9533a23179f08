package handler

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// QRService renders UPI payment deep links as QR codes.
type QRService struct {
	vpa   string
	payee string
	size  int
	level qrcode.RecoveryLevel
}

// NewQRService builds a QR renderer for the restaurant's UPI account.
// Error correction accepts L/M/Q/H; anything else falls back to M.
func NewQRService(vpa, payee string, size int, errorCorrectionLevel string) *QRService {
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}
	return &QRService{vpa: vpa, payee: payee, size: size, level: level}
}

// PaymentURI builds the upi://pay deep link for an amount.
func (s *QRService) PaymentURI(amount decimal.Decimal, note string) string {
	q := url.Values{}
	q.Set("pa", s.vpa)
	q.Set("pn", s.payee)
	q.Set("am", amount.StringFixed(2))
	q.Set("cu", "INR")
	if note != "" {
		q.Set("tn", note)
	}
	return "upi://pay?" + q.Encode()
}

// PaymentPNG renders the deep link as a PNG QR code.
func (s *QRService) PaymentPNG(amount decimal.Decimal, note string) ([]byte, error) {
	code, err := qrcode.New(s.PaymentURI(amount, note), s.level)
	if err != nil {
		return nil, fmt.Errorf("create QR code: %w", err)
	}
	png, err := code.PNG(s.size)
	if err != nil {
		return nil, fmt.Errorf("render QR PNG: %w", err)
	}
	return png, nil
}
