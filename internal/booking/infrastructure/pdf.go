package infrastructure

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/boombuler/barcode/qr"
	"github.com/phpdave11/gofpdf"
	"github.com/phpdave11/gofpdf/contrib/barcode"

	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
)

// RenderTicketPDF lays out a one-page ticket with the boarding QR code.
func RenderTicketPDF(ticket domain.Ticket) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("TogoBus ticket "+ticket.Reference, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "TOGOBUS E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, ticket.Reference)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Passenger : " + orDash(ticket.PassengerName),
		"Phone     : " + orDash(ticket.PassengerPhone),
		"Company   : " + orDash(ticket.CompanyName),
		fmt.Sprintf("Route     : %s -> %s", orDash(ticket.DepartureCity), orDash(ticket.ArrivalCity)),
		"Date      : " + orDash(ticket.TravelDate),
		fmt.Sprintf("Departure : %s   Arrival: %s", orDash(ticket.DepartureTime), orDash(ticket.ArrivalTime)),
		"Seat      : " + strconv.Itoa(ticket.SeatNumber),
		fmt.Sprintf("Price     : %s FCFA", strconv.FormatFloat(ticket.Price, 'f', 0, 64)),
		"Payment   : " + orDash(ticket.PaymentMethod),
		"Txn       : " + orDash(ticket.TransactionID),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	key := barcode.RegisterQR(pdf, ticket.QRPayload, qr.M, qr.Unicode)
	barcode.Barcode(pdf, key, 140, 30, 50, 50, false)

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Valid for one passenger and one seat. Show this ticket at boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
