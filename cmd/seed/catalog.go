package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

// catalogRow fila del CSV de catálogo.
type catalogRow struct {
	Name         string `csv:"name"`
	Description  string `csv:"description"`
	Price        string `csv:"price"`
	InitialStock int64  `csv:"initial_stock"`
}

// readCatalog decodifica el CSV (UTF-8 o ISO-8859-1) en requests de creación.
// Acepta precio con coma decimal ("1250,50").
func readCatalog(r io.Reader, latin1 bool, userID string) ([]dto.CreateProductRequest, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("leer CSV: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var rows []*catalogRow
	if err := gocsv.UnmarshalBytes(raw, &rows); err != nil {
		return nil, fmt.Errorf("decodificar CSV: %w", err)
	}

	out := make([]dto.CreateProductRequest, 0, len(rows))
	for i, row := range rows {
		line := i + 2 // encabezado en la línea 1
		name := strings.TrimSpace(row.Name)
		if name == "" {
			return nil, fmt.Errorf("línea %d: name vacío", line)
		}
		price, err := parsePrice(row.Price)
		if err != nil {
			return nil, fmt.Errorf("línea %d: price inválido %q", line, row.Price)
		}
		if row.InitialStock < 0 {
			return nil, fmt.Errorf("línea %d: initial_stock negativo", line)
		}
		out = append(out, dto.CreateProductRequest{
			Name:         name,
			Description:  strings.TrimSpace(row.Description),
			Price:        &price,
			InitialStock: row.InitialStock,
			UserID:       userID,
		})
	}
	return out, nil
}

// parsePrice acepta "1250.50", "1250,50" y "1.250,50". Con coma, la coma es el separador decimal
// y los puntos son de miles. Sin coma, un solo punto es decimal; varios ("1.250.000") son de miles.
func parsePrice(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return decimal.NewFromString(s)
}
