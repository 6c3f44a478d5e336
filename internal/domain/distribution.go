package domain

import (
	apperror "gostore/internal/errors"
)

// ValidateDistribution confere se a soma da alocação por tamanho é exatamente o total declarado.
// Não há aceitação parcial: o cadastro fica bloqueado até o operador fechar a conta.
func ValidateDistribution(declaredTotal int, allocation map[string]int) error {
	if declaredTotal < 0 {
		return apperror.NewInvalidQuantityError(declaredTotal)
	}
	allocated := 0
	for _, q := range allocation {
		if q < 0 {
			return apperror.NewInvalidQuantityError(q)
		}
		allocated += q
	}
	if allocated != declaredTotal {
		return apperror.NewMismatchError(declaredTotal, allocated)
	}
	return nil
}
