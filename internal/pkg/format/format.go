// Package format concentra a formatação de exibição em pt-BR (moeda e telefone).
package format

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// BRL formata um valor em reais, ex.: 1234.5 -> "R$ 1.234,50".
func BRL(v float64) string {
	if v < 0 {
		return "-" + BRL(-v)
	}
	return "R$ " + brPrinter.Sprintf("%.2f", v)
}

// Digits remove tudo o que não for dígito.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneMask aplica a máscara (DD) NNNNN-NNNN à medida que os dígitos chegam.
// Dígitos além do 11º são descartados.
func PhoneMask(input string) string {
	d := Digits(input)
	if len(d) > 11 {
		d = d[:11]
	}
	switch {
	case len(d) == 0:
		return ""
	case len(d) <= 2:
		return "(" + d
	case len(d) <= 7:
		return fmt.Sprintf("(%s) %s", d[:2], d[2:])
	default:
		return fmt.Sprintf("(%s) %s-%s", d[:2], d[2:7], d[7:])
	}
}
