package domain

import (
	"context"
	"time"
)

// RegistryKind identifica um registro de rótulos (categorias ou tamanhos).
type RegistryKind string

const (
	RegistryCategory RegistryKind = "category"
	RegistrySize     RegistryKind = "size"
)

// IsValid verifica se o tipo de registro é conhecido.
func (k RegistryKind) IsValid() bool {
	return k == RegistryCategory || k == RegistrySize
}

// RegistryEntry é um rótulo cadastrado pela equipe.
type RegistryEntry struct {
	ID        string       `json:"id"`
	Kind      RegistryKind `json:"kind"`
	Label     string       `json:"label"`
	CreatedAt time.Time    `json:"created_at"`
}

// RegistryRepository é o contrato de persistência dos registros.
type RegistryRepository interface {
	CreateEntry(ctx context.Context, entry RegistryEntry) (RegistryEntry, error)
	ListEntries(ctx context.Context, kind RegistryKind) ([]RegistryEntry, error)
	DeleteEntry(ctx context.Context, kind RegistryKind, label string) error
}

// Registry é um snapshot imutável de rótulos, passado explicitamente aos validadores.
// Um registro vazio aceita qualquer rótulo.
type Registry struct {
	labels map[string]struct{}
}

// NewRegistry monta o snapshot a partir dos rótulos.
func NewRegistry(labels ...string) Registry {
	m := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		m[l] = struct{}{}
	}
	return Registry{labels: m}
}

// IsEmpty informa se nenhum rótulo foi cadastrado.
func (r Registry) IsEmpty() bool {
	return len(r.labels) == 0
}

// Allows verifica se o rótulo é aceito pelo registro.
func (r Registry) Allows(label string) bool {
	if r.IsEmpty() {
		return true
	}
	_, ok := r.labels[label]
	return ok
}
