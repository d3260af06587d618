// Package pdf genera el comprobante de retiro de stock.
//
// Layout de la página A5:
//
//	┌──────────────────────────────────────────────┐
//	│  COMPROBANTE DE RETIRO  │  bill_ref + fecha  │
//	│  ──────────────────────────────────────────  │
//	│  PRODUCTO | CANT. | P.UNIT | TOTAL           │
//	│  Ubicación / Responsable / Descripción       │
//	│  ──────────────────────────────────────────  │
//	│  QR con bill_ref                             │
//	└──────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var _ inventory.WithdrawalSlipGenerator = (*WithdrawalSlipGenerator)(nil)

// WithdrawalSlipGenerator genera el comprobante de un retiro con Maroto v2.
type WithdrawalSlipGenerator struct {
	issuer string
}

// NewWithdrawalSlipGenerator construye el generador. issuer aparece como autor del PDF.
func NewWithdrawalSlipGenerator(issuer string) *WithdrawalSlipGenerator {
	return &WithdrawalSlipGenerator{issuer: issuer}
}

// GenerateWithdrawalSlip genera el PDF y devuelve sus bytes.
func (g *WithdrawalSlipGenerator) GenerateWithdrawalSlip(_ context.Context, mov dto.MovementResponse) ([]byte, error) {
	if mov.BillRef == "" {
		return nil, fmt.Errorf("pdf: el movimiento %s no es un retiro", mov.ID)
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A5).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Comprobante de retiro "+mov.BillRef, true).
		WithAuthor(g.issuer, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(mov))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	m.AddRows(detailRow(mov))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(infoRows(mov)...)
	m.AddRows(line.NewRow(3))
	m.AddRows(qrRow(mov))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(mov dto.MovementResponse) core.Row {
	return row.New(18).Add(
		col.New(6).Add(
			text.New("COMPROBANTE DE RETIRO", props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(6).Add(
			text.New(mov.BillRef, props.Text{
				Style: fontstyle.Bold, Size: 7, Align: align.Right, Top: 2,
			}),
			text.New("Fecha: "+mov.CreatedAt.UTC().Format("02/01/2006 15:04:05")+" UTC", props.Text{
				Size: 7, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Producto", 5, align.Left),
		h("Cant.", 2, align.Center),
		h("Precio Unit.", 2, align.Right),
		h("Total", 3, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// detailRow usa el total congelado al retirar; el precio unitario se deriva de él.
func detailRow(mov dto.MovementResponse) core.Row {
	total := decimal.Zero
	if mov.Total != nil {
		total = *mov.Total
	}
	unit := decimal.Zero
	if mov.Quantity > 0 {
		unit = total.Div(decimal.NewFromInt(mov.Quantity))
	}
	return row.New(8).Add(
		col.New(5).Add(text.New(mov.ProductName, props.Text{Size: 8, Top: 2, Left: 1})),
		col.New(2).Add(text.New(fmt.Sprintf("%d", mov.Quantity), props.Text{Size: 8, Align: align.Center, Top: 2})),
		col.New(2).Add(text.New("$"+formatMoney(unit), props.Text{Size: 8, Align: align.Right, Top: 2, Right: 1})),
		col.New(3).Add(text.New("$"+formatMoney(total), props.Text{
			Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 2, Right: 1,
		})),
	)
}

func infoRows(mov dto.MovementResponse) []core.Row {
	label := func(l, v string) core.Row {
		return row.New(6).Add(
			col.New(3).Add(text.New(l, props.Text{Style: fontstyle.Bold, Size: 8, Top: 1})),
			col.New(9).Add(text.New(nonEmpty(v, "—"), props.Text{Size: 8, Top: 1, Color: colorGray})),
		)
	}
	return []core.Row{
		label("Ubicación:", mov.Location),
		label("Responsable:", responsible(mov)),
		label("Descripción:", mov.Description),
		label("Producto ID:", mov.ProductID),
	}
}

func qrRow(mov dto.MovementResponse) core.Row {
	return row.New(40).Add(
		col.New(4).Add(code.NewQr(mov.BillRef, props.Rect{Percent: 95, Center: true})),
		col.New(8).Add(
			text.New("Conserve este comprobante como soporte del retiro.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("El total corresponde al precio vigente al momento del retiro.", props.Text{
				Size: 7, Top: 14, Left: 3, Color: colorGray,
			}),
		),
	)
}

func responsible(mov dto.MovementResponse) string {
	if mov.UserDisplayName != "" && mov.UserDisplayName != mov.Username {
		return fmt.Sprintf("%s (%s)", mov.UserDisplayName, mov.Username)
	}
	return mov.Username
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

// formatMoney formatea con puntos de miles y coma decimal (2 decimales).
// Ej: 1500 → "1.500,00", 1234567.5 → "1.234.567,50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "," + frac
}
