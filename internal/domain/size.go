package domain

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CanonicalSizes é a ordem de exibição dos tamanhos conhecidos.
var CanonicalSizes = []string{"PP", "P", "M", "G", "GG", "XG"}

// SingleSize é o rótulo de produtos de tamanho único (boné, meia, relógio).
const SingleSize = "U"

var sizeRanks = func() map[string]int {
	m := make(map[string]int, len(CanonicalSizes))
	for i, s := range CanonicalSizes {
		m[s] = i
	}
	return m
}()

// SizeRank retorna a posição canônica do rótulo. Rótulos desconhecidos ficam
// depois de todos os canônicos.
func SizeRank(label string) int {
	if r, ok := sizeRanks[label]; ok {
		return r
	}
	return len(CanonicalSizes)
}

// SortSizes devolve uma cópia ordenada; empates entre desconhecidos são lexicográficos.
func SortSizes(labels []string) []string {
	out := append([]string(nil), labels...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := SizeRank(out[i]), SizeRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

// NormalizeCategory deixa a categoria em minúsculas e sem acentos ("Relógio" -> "relogio").
func NormalizeCategory(category string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.TrimSpace(category))
	if err != nil {
		s = strings.TrimSpace(category)
	}
	return strings.ToLower(s)
}

// IsSingleSizeCategory informa se a categoria só admite o tamanho único.
func IsSingleSizeCategory(category string) bool {
	switch NormalizeCategory(category) {
	case "bone", "meia", "relogio":
		return true
	}
	return false
}

// DefaultSizesForCategory sugere a grade de tamanhos a partir da categoria.
// Retorna nil quando a categoria não tem grade padrão.
func DefaultSizesForCategory(category string) []string {
	if IsSingleSizeCategory(category) {
		return []string{SingleSize}
	}
	switch NormalizeCategory(category) {
	case "camisa", "casaco", "regata":
		return append([]string(nil), CanonicalSizes...)
	default:
		return nil
	}
}
