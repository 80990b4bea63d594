package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PermitWorker is one roster entry rendered into the permit document.
type PermitWorker struct {
	Name           string
	HSSEPassNumber string
}

// PermitDocument carries every field printed on a SIMLOK sheet.
type PermitDocument struct {
	PermitNumber   string
	PermitDate     time.Time
	VendorName     string
	OfficerName    string
	BasedOn        string
	JobDescription string
	WorkLocation   string
	Implementation string
	WorkingHours   string
	Content        string
	OtherNotes     string
	SignerPosition string
	SignerName     string
	CityLabel      string
	Tembusan       []string
	Workers        []PermitWorker
}

// PermitRenderer projects an approved submission into a printable PDF.
type PermitRenderer struct{}

// NewPermitRenderer constructs a renderer.
func NewPermitRenderer() *PermitRenderer {
	return &PermitRenderer{}
}

// Render produces the permit PDF as a byte stream.
func (r *PermitRenderer) Render(doc PermitDocument) ([]byte, error) {
	if doc.PermitNumber == "" {
		return nil, fmt.Errorf("permit number required")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "SURAT IZIN MASUK LOKASI", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Nomor: %s", doc.PermitNumber), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	if doc.BasedOn != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, fmt.Sprintf("Berdasarkan %s, dengan ini diberikan izin masuk lokasi kepada:", doc.BasedOn), "", "L", false)
		pdf.Ln(2)
	}

	rows := [][2]string{
		{"Nama Perusahaan", doc.VendorName},
		{"Nama Petugas", doc.OfficerName},
		{"Pekerjaan", doc.JobDescription},
		{"Lokasi Kerja", doc.WorkLocation},
		{"Pelaksanaan", doc.Implementation},
		{"Jam Kerja", doc.WorkingHours},
		{"Lain-lain", doc.OtherNotes},
	}
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.CellFormat(45, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(5, 6, ":", "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 6, row[1], "", "L", false)
	}

	if doc.Content != "" {
		pdf.Ln(4)
		pdf.MultiCell(0, 5, doc.Content, "", "L", false)
	}

	if len(doc.Workers) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Daftar Pekerja", "", 1, "L", false, 0, "")
		pdf.CellFormat(10, 7, "No", "1", 0, "C", false, 0, "")
		pdf.CellFormat(100, 7, "Nama", "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 7, "No. HSSE Pass", "1", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for i, worker := range doc.Workers {
			pdf.CellFormat(10, 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
			pdf.CellFormat(100, 7, worker.Name, "1", 0, "", false, 0, "")
			pdf.CellFormat(60, 7, worker.HSSEPassNumber, "1", 1, "", false, 0, "")
		}
	}

	pdf.Ln(10)
	city := doc.CityLabel
	if city == "" {
		city = "Jakarta"
	}
	pdf.CellFormat(110, 6, "", "", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%s, %s", city, doc.PermitDate.Format("02 January 2006")), "", 1, "L", false, 0, "")
	if doc.SignerPosition != "" {
		pdf.CellFormat(110, 6, "", "", 0, "", false, 0, "")
		pdf.CellFormat(0, 6, doc.SignerPosition, "", 1, "L", false, 0, "")
	}
	pdf.Ln(20)
	pdf.SetFont("Arial", "BU", 10)
	pdf.CellFormat(110, 6, "", "", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, doc.SignerName, "", 1, "L", false, 0, "")

	if len(doc.Tembusan) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, "Tembusan:", "", 1, "L", false, 0, "")
		for i, cc := range doc.Tembusan {
			cc = strings.TrimSpace(cc)
			if cc == "" {
				continue
			}
			pdf.CellFormat(0, 5, fmt.Sprintf("%d. %s", i+1, cc), "", 1, "L", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render permit pdf: %w", err)
	}
	return buf.Bytes(), nil
}
