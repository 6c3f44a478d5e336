package errors

import (
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do GoStore.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION", "NOT_FOUND", "INTERNAL")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Genéricos ---

// ValidationError representa falhas de validação de dados de entrada.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound }
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito de escrita (OCC) ou recurso duplicado.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict }
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito (usado em OCC).
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// UnauthorizedError representa falha de autenticação ou autorização.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized }
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um erro 401.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// --- Erros do Domínio de Estoque e Pedidos ---

// InvalidQuantityError indica uma quantidade negativa (ou não positiva, quando exigido).
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("Quantidade inválida: %d", e.Quantity)
}
func (e *InvalidQuantityError) Category() string { return "INVALID_QUANTITY" }
func (e *InvalidQuantityError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *InvalidQuantityError) Unwrap() error    { return nil }

func NewInvalidQuantityError(qty int) AppError {
	return &InvalidQuantityError{Quantity: qty}
}

// DuplicateSizeError indica que o tamanho já pertence ao produto.
type DuplicateSizeError struct {
	Size string
}

func (e *DuplicateSizeError) Error() string {
	return fmt.Sprintf("Tamanho %q já cadastrado no produto.", e.Size)
}
func (e *DuplicateSizeError) Category() string { return "DUPLICATE_SIZE" }
func (e *DuplicateSizeError) HTTPStatus() int  { return http.StatusConflict }
func (e *DuplicateSizeError) Unwrap() error    { return nil }

func NewDuplicateSizeError(size string) AppError {
	return &DuplicateSizeError{Size: size}
}

// UnknownSizeError indica um tamanho que não pertence ao produto (ou ao registro de tamanhos).
type UnknownSizeError struct {
	Size string
}

func (e *UnknownSizeError) Error() string {
	return fmt.Sprintf("Tamanho %q não existe para este produto.", e.Size)
}
func (e *UnknownSizeError) Category() string { return "UNKNOWN_SIZE" }
func (e *UnknownSizeError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *UnknownSizeError) Unwrap() error    { return nil }

func NewUnknownSizeError(size string) AppError {
	return &UnknownSizeError{Size: size}
}

// InsufficientStockError indica que a quantidade pedida excede o estoque disponível.
// Line é o índice (base 0) da linha ofensora quando o erro vem de um lote; -1 caso contrário.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Size        string
	Requested   int
	Available   int
	Line        int
}

func (e *InsufficientStockError) Error() string {
	prefix := ""
	if e.Line >= 0 {
		prefix = fmt.Sprintf("linha %d: ", e.Line+1)
	}
	return fmt.Sprintf("Estoque insuficiente: %s%s (tamanho %s) disponível %d, solicitado %d",
		prefix, e.ProductName, e.Size, e.Available, e.Requested)
}
func (e *InsufficientStockError) Category() string { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) HTTPStatus() int  { return http.StatusConflict }
func (e *InsufficientStockError) Unwrap() error    { return nil }

func NewInsufficientStockError(productID, productName, size string, requested, available int) *InsufficientStockError {
	return &InsufficientStockError{
		ProductID:   productID,
		ProductName: productName,
		Size:        size,
		Requested:   requested,
		Available:   available,
		Line:        -1,
	}
}

// MismatchError indica que a distribuição por tamanho não fecha com o total declarado.
type MismatchError struct {
	Declared  int
	Allocated int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Distribuição de estoque não confere. Total: %d, Alocado: %d, Restante: %d",
		e.Declared, e.Allocated, e.Declared-e.Allocated)
}
func (e *MismatchError) Category() string { return "STOCK_MISMATCH" }
func (e *MismatchError) HTTPStatus() int  { return http.StatusUnprocessableEntity }
func (e *MismatchError) Unwrap() error    { return nil }

func NewMismatchError(declared, allocated int) AppError {
	return &MismatchError{Declared: declared, Allocated: allocated}
}

// MissingCustomerInfoError indica checkout sem nome ou telefone.
type MissingCustomerInfoError struct{}

func (e *MissingCustomerInfoError) Error() string {
	return "Preencha nome e telefone para finalizar."
}
func (e *MissingCustomerInfoError) Category() string { return "MISSING_CUSTOMER_INFO" }
func (e *MissingCustomerInfoError) HTTPStatus() int  { return http.StatusBadRequest }
func (e *MissingCustomerInfoError) Unwrap() error    { return nil }

func NewMissingCustomerInfoError() AppError {
	return &MissingCustomerInfoError{}
}

// InvalidTransitionError indica uma transição de status de pedido não permitida.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Transição de pedido inválida: %s -> %s", e.From, e.To)
}
func (e *InvalidTransitionError) Category() string { return "INVALID_TRANSITION" }
func (e *InvalidTransitionError) HTTPStatus() int  { return http.StatusConflict }
func (e *InvalidTransitionError) Unwrap() error    { return nil }

func NewInvalidTransitionError(from, to string) AppError {
	return &InvalidTransitionError{From: from, To: to}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Erro Interno: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("Erro Interno: %s", e.Msg)
}
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError }
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB)", msg), err)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
// Erros encapsulados com %w também são reconhecidos.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := asAppError(err); ok {
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			// Não expõe a causa raiz (SQL, rede) para o cliente.
			return appErr.HTTPStatus(), appErr.Category(), "Ocorreu um erro interno."
		}
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}

func asAppError(err error) (AppError, bool) {
	for err != nil {
		if appErr, ok := err.(AppError); ok {
			return appErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
