package ticket

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"

	"scale-station/internal/database"
	"scale-station/internal/models"
)

// Renderer turns a weighing into a printed ticket. It writes raw
// ESC/POS bytes to the thermal printer device; when the device is
// missing or fails it falls back to a PDF in the output directory so
// the operator always gets something to hand the driver.
type Renderer struct {
	PrinterDevice string
	PDFOutputDir  string
	CompanyName   string
	CompanyAddr   string
	Log           *logrus.Logger
}

func NewRenderer(printerDevice, pdfDir, companyName, companyAddr string, log *logrus.Logger) *Renderer {
	return &Renderer{
		PrinterDevice: printerDevice,
		PDFOutputDir:  pdfDir,
		CompanyName:   companyName,
		CompanyAddr:   companyAddr,
		Log:           log,
	}
}

// Result reports how the ticket was produced.
type Result struct {
	Printed bool   `json:"printed"`
	PDFPath string `json:"pdf_path,omitempty"`
}

// Render prints the ticket, falling back to PDF on printer failure.
func (r *Renderer) Render(d *database.WeighingDetail) (Result, error) {
	if err := r.printEscpos(d); err == nil {
		return Result{Printed: true}, nil
	} else {
		r.Log.WithField("folio", d.Folio).Warn("thermal print failed, writing pdf: " + err.Error())
	}

	path, err := r.writePDF(d)
	if err != nil {
		return Result{}, fmt.Errorf("ticket render failed for folio %s: %w", d.Folio, err)
	}
	return Result{PDFPath: path}, nil
}

// ESC/POS control sequences for a 58mm thermal printer.
var (
	escInit       = []byte{0x1b, 0x40}
	escCenter     = []byte{0x1b, 0x61, 0x01}
	escLeft       = []byte{0x1b, 0x61, 0x00}
	escBoldOn     = []byte{0x1b, 0x45, 0x01}
	escBoldOff    = []byte{0x1b, 0x45, 0x00}
	escDoubleOn   = []byte{0x1d, 0x21, 0x11}
	escDoubleOff  = []byte{0x1d, 0x21, 0x00}
	escFeedAndCut = []byte{0x1b, 0x64, 0x04, 0x1d, 0x56, 0x00}
)

func (r *Renderer) printEscpos(d *database.WeighingDetail) error {
	f, err := os.OpenFile(r.PrinterDevice, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf []byte
	line := func(chunks ...[]byte) {
		for _, c := range chunks {
			buf = append(buf, c...)
		}
	}
	text := func(s string) { buf = append(buf, []byte(s+"\n")...) }

	line(escInit, escCenter, escBoldOn)
	text(r.CompanyName)
	line(escBoldOff)
	text(r.CompanyAddr)
	text("")
	line(escDoubleOn)
	text("FOLIO " + d.Folio)
	line(escDoubleOff, escLeft)
	text(dividerLine)

	for _, row := range ticketRows(d) {
		text(fmt.Sprintf("%-12s %s", row.label+":", row.value))
	}

	text(dividerLine)
	line(escCenter)
	text(time.Now().Format("2006-01-02 15:04"))
	line(escFeedAndCut)

	_, err = f.Write(buf)
	return err
}

const dividerLine = "--------------------------------"

type ticketRow struct {
	label string
	value string
}

func ticketRows(d *database.WeighingDetail) []ticketRow {
	rows := []ticketRow{
		{"Tipo", d.WeighingType},
		{"Cliente", d.CustomerName},
		{"Vehiculo", d.VehicleName},
		{"Remolque", d.TrailerName},
		{"Chofer", d.DriverName},
		{"Material", d.MaterialName},
		{"Entrada", d.DateStart.Format("2006-01-02 15:04")},
	}
	if d.DateEnd != nil {
		rows = append(rows, ticketRow{"Salida", d.DateEnd.Format("2006-01-02 15:04")})
	}
	rows = append(rows,
		ticketRow{"Bruto", fmt.Sprintf("%d kg", d.GrossWeight)},
		ticketRow{"Tara", fmt.Sprintf("%d kg", d.TareWeight)},
		ticketRow{"Neto", fmt.Sprintf("%d kg", d.NetWeight)},
	)
	if d.FolioALM2 != "" {
		rows = append(rows, ticketRow{"Folio ALM2", d.FolioALM2})
	}
	if d.Status == models.StatusPending {
		rows = append(rows, ticketRow{"Estado", "PENDIENTE"})
	}
	return rows
}

func (r *Renderer) writePDF(d *database.WeighingDetail) (string, error) {
	if err := os.MkdirAll(r.PDFOutputDir, 0o755); err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A6", "")
	pdf.SetMargins(8, 8, 8)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 6, r.CompanyName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 4, r.CompanyAddr, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "FOLIO "+d.Folio, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range ticketRows(d) {
		pdf.CellFormat(30, 5, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, row.value, "", 1, "L", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(0, 4, time.Now().Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")

	path := filepath.Join(r.PDFOutputDir, fmt.Sprintf("folio_%s.pdf", d.Folio))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", err
	}
	return path, nil
}
