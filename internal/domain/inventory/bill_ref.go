package inventory

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BillRefPrefix prefijo de toda referencia de factura de retiro.
const BillRefPrefix = "BILL"

// billRefTimeLayout timestamp UTC compacto (sin separadores) con milisegundos.
const billRefTimeLayout = "20060102150405.000"

// BillRefGenerator emite referencias únicas para retiros que no traen una.
type BillRefGenerator interface {
	Next(now time.Time) (string, error)
}

// BillRefFunc adapta una función a BillRefGenerator.
type BillRefFunc func(now time.Time) (string, error)

// Next implementa BillRefGenerator.
func (f BillRefFunc) Next(now time.Time) (string, error) { return f(now) }

// DefaultBillRefs generador por defecto basado en NewBillRef.
var DefaultBillRefs BillRefGenerator = BillRefFunc(NewBillRef)

// NewBillRef construye BILL-<yyyyMMddHHmmssSSS UTC>-<12 hex aleatorios>.
// El sufijo sale de los 6 primeros bytes de un UUID v4 (crypto/rand), que no
// llevan bits de versión ni de variante; no hay estado compartido.
func NewBillRef(now time.Time) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("bill ref: entropía: %w", err)
	}
	ts := strings.Replace(now.UTC().Format(billRefTimeLayout), ".", "", 1)
	suffix := strings.ToUpper(hex.EncodeToString(id[:6]))
	return BillRefPrefix + "-" + ts + "-" + suffix, nil
}
