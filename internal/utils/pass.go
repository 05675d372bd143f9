package utils

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// PassData carries everything the printable session pass needs.  The QR
// payload is the check-in code scanned at the door; it identifies the
// registration and nothing else, the desk validates against the database.
type PassData struct {
	CheckInCode  string
	SessionTitle string
	StartsAt     time.Time
	MemberEmail  string
	Seats        uint32
}

// CheckInQRPNG renders the check-in code as a PNG of the given pixel size.
func CheckInQRPNG(code string, size int) ([]byte, error) {
	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("generating check-in code: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("encoding check-in code: %w", err)
	}
	return png, nil
}

// SessionPassPDF renders an A4 pass with the QR code on top and the
// session details below, ready to print or show on a phone.
func SessionPassPDF(data PassData) ([]byte, error) {
	png, err := CheckInQRPNG(data.CheckInCode, 500)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	imgName := "qr_" + data.CheckInCode
	pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(png))
	qrX := (210.0 - 100.0) / 2
	pdf.ImageOptions(imgName, qrX, 20, 100, 100, false, opts, 0, "")
	pdf.SetY(126)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, data.SessionTitle, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 8, data.StartsAt.Format("Monday, January 2, 2006 at 3:04 PM"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, data.MemberEmail, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Admits %d", data.Seats), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "I", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, fmt.Sprintf("Check-in code: %s", data.CheckInCode), "", 1, "C", false, 0, "")
	pdf.MultiCell(0, 6, "Show this pass at the desk.\nThe code admits the member and every confirmed guest on the registration.", "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering session pass: %w", err)
	}
	return buf.Bytes(), nil
}
