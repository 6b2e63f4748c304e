/*
receipt.go - Printable sale receipt

PURPOSE:
  Renders an A4 PDF receipt for a single sale: company header, client
  identity, contract details, financial status, and the paid portion of
  the receivables schedule.

SEE ALSO:
  - finance/aggregate.go: SaleTotals, the financial snapshot printed here
*/
package receipt

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/woodbahia/finance-engine/finance"
)

// Company identifies the issuing business on the receipt header.
type Company struct {
	Name    string
	TaxID   string
	Address string
	Phone   string
	Email   string
}

// DefaultCompany is the issuer printed when no other identity is
// configured.
var DefaultCompany = Company{
	Name:    "WOODBAHIA",
	TaxID:   "CNPJ 00.000.000/0001-00",
	Address: "Salvador, BA",
	Phone:   "(71) 0000-0000",
	Email:   "contato@woodbahia.com.br",
}

const dateLayout = "02/01/2006"

// Render writes the receipt PDF for one sale to w.
func Render(w io.Writer, company Company, totals finance.SaleTotals, schedule []finance.ReceivableEntry) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Receipt - Sale #%d", totals.Sale.ID), false)
	pdf.SetAutoPageBreak(true, 20)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		footer := fmt.Sprintf("Issued %s   |   Page %d",
			time.Now().Format("02/01/2006 15:04"), pdf.PageNo())
		pdf.CellFormat(0, 10, footer, "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	// Company header.
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(40, 54, 24)
	pdf.CellFormat(0, 10, company.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	for _, line := range []string{company.TaxID, company.Address,
		strings.TrimSpace(company.Phone + "  " + company.Email)} {
		if line != "" {
			pdf.CellFormat(0, 5, line, "", 1, "C", false, 0, "")
		}
	}
	pdf.Ln(4)
	pdf.SetDrawColor(40, 54, 24)
	pdf.SetLineWidth(0.5)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, fmt.Sprintf("PAYMENT RECEIPT - SALE #%d", totals.Sale.ID),
		"", 1, "C", false, 0, "")
	pdf.Ln(4)

	sale := totals.Sale
	sectionTitle(pdf, "Client")
	fieldRow(pdf, "Name", sale.Client)
	if sale.Phone != "" {
		fieldRow(pdf, "Phone", sale.Phone)
	}
	if sale.Email != "" {
		fieldRow(pdf, "Email", sale.Email)
	}
	pdf.Ln(3)

	sectionTitle(pdf, "Contract")
	fieldRow(pdf, "Product", sale.Product)
	fieldRow(pdf, "Sale date", sale.Date.Format(dateLayout))
	fieldRow(pdf, "Sale price", FormatBRL(sale.SalePrice))
	if !sale.FreightPrice.IsZero() {
		fieldRow(pdf, "Freight", FormatBRL(sale.FreightPrice))
	}
	pdf.Ln(3)

	sectionTitle(pdf, "Financial status")
	fieldRow(pdf, "Total received", FormatBRL(totals.TotalReceived))
	fieldRow(pdf, "Outstanding", FormatBRL(totals.ReceivableBalance))
	pdf.Ln(3)

	paid := paidEntries(schedule)
	if len(paid) > 0 {
		sectionTitle(pdf, "Payments received")

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(40, 54, 24)
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(70, 7, "Milestone", "1", 0, "L", true, 0, "")
		pdf.CellFormat(30, 7, "Date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(30, 7, "Method", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Amount", "1", 1, "R", true, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		fill := false
		for _, e := range paid {
			pdf.SetFillColor(245, 245, 240)
			date := ""
			if e.PaidDate != nil {
				date = e.PaidDate.Format(dateLayout)
			}
			amount := decimal.Zero
			if e.PaidAmount != nil {
				amount = *e.PaidAmount
			}
			pdf.CellFormat(70, 7, e.Description, "1", 0, "L", fill, 0, "")
			pdf.CellFormat(30, 7, date, "1", 0, "C", fill, 0, "")
			pdf.CellFormat(30, 7, e.Method, "1", 0, "C", fill, 0, "")
			pdf.CellFormat(40, 7, FormatBRL(amount), "1", 1, "R", fill, 0, "")
			fill = !fill
		}

		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(130, 7, "Total", "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, FormatBRL(totals.TotalReceived), "1", 1, "R", false, 0, "")
	}

	return pdf.Output(w)
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(40, 54, 24)
	pdf.CellFormat(0, 7, strings.ToUpper(title), "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func fieldRow(pdf *fpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(40, 6, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

func paidEntries(schedule []finance.ReceivableEntry) []finance.ReceivableEntry {
	out := make([]finance.ReceivableEntry, 0, len(schedule))
	for _, e := range schedule {
		if e.Status == finance.ReceivablePaid {
			out = append(out, e)
		}
	}
	return out
}

// FormatBRL formats an amount as Brazilian currency, e.g. "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	s := d.StringFixed(2)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.SplitN(s, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, b.String(), fracPart)
}
