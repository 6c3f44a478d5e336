package registryservice

import (
	"context"
	"fmt"
	"strings"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/logger"
)

// Service administra os registros de categorias e tamanhos e entrega snapshots
// para a validação de produtos.
type Service struct {
	repo   domain.RegistryRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Registros.
func NewService(repo domain.RegistryRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Normalize aplica a forma canônica do rótulo: categorias sem acento e em
// minúsculas, tamanhos em maiúsculas.
func Normalize(kind domain.RegistryKind, label string) string {
	if kind == domain.RegistryCategory {
		return domain.NormalizeCategory(label)
	}
	return strings.ToUpper(strings.TrimSpace(label))
}

// Add cadastra um rótulo.
func (s *Service) Add(ctx context.Context, kind domain.RegistryKind, label string) (domain.RegistryEntry, error) {
	if !kind.IsValid() {
		return domain.RegistryEntry{}, apperror.NewValidationError(fmt.Sprintf("Tipo de registro inválido: %s", kind))
	}
	label = Normalize(kind, label)
	if label == "" {
		return domain.RegistryEntry{}, apperror.NewValidationError("O rótulo não pode ser vazio.")
	}
	if len(label) > 50 {
		return domain.RegistryEntry{}, apperror.NewValidationError("O rótulo deve ter no máximo 50 caracteres.")
	}

	entry, err := s.repo.CreateEntry(ctx, domain.RegistryEntry{Kind: kind, Label: label})
	if err != nil {
		s.logger.Warn("Falha ao cadastrar rótulo.", map[string]interface{}{"kind": kind, "label": label, "error": err.Error()})
		return domain.RegistryEntry{}, err
	}
	return entry, nil
}

// Remove descadastra um rótulo.
func (s *Service) Remove(ctx context.Context, kind domain.RegistryKind, label string) error {
	if !kind.IsValid() {
		return apperror.NewValidationError(fmt.Sprintf("Tipo de registro inválido: %s", kind))
	}
	return s.repo.DeleteEntry(ctx, kind, Normalize(kind, label))
}

// List devolve os rótulos cadastrados. Tamanhos vêm na ordem de exibição.
func (s *Service) List(ctx context.Context, kind domain.RegistryKind) ([]domain.RegistryEntry, error) {
	if !kind.IsValid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Tipo de registro inválido: %s", kind))
	}
	entries, err := s.repo.ListEntries(ctx, kind)
	if err != nil {
		return nil, err
	}
	if kind == domain.RegistrySize {
		entries = sortEntriesBySize(entries)
	}
	return entries, nil
}

// Snapshot monta o registro imutável usado pelos validadores.
func (s *Service) Snapshot(ctx context.Context, kind domain.RegistryKind) (domain.Registry, error) {
	entries, err := s.repo.ListEntries(ctx, kind)
	if err != nil {
		return domain.Registry{}, err
	}
	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		labels = append(labels, e.Label)
	}
	return domain.NewRegistry(labels...), nil
}

func sortEntriesBySize(entries []domain.RegistryEntry) []domain.RegistryEntry {
	byLabel := make(map[string]domain.RegistryEntry, len(entries))
	labels := make([]string, 0, len(entries))
	for _, e := range entries {
		byLabel[e.Label] = e
		labels = append(labels, e.Label)
	}
	out := make([]domain.RegistryEntry, 0, len(entries))
	for _, l := range domain.SortSizes(labels) {
		out = append(out, byLabel[l])
	}
	return out
}
