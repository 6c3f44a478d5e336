// Package response padroniza a escrita de respostas e erros dos handlers HTTP.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperror "gostore/internal/errors"
	"gostore/internal/pkg/logger"
)

// Writer traduz o resultado do serviço em resposta HTTP.
type Writer struct {
	Logger logger.Logger
}

// New cria o Writer com o logger da aplicação.
func New(log logger.Logger) *Writer {
	return &Writer{Logger: log}
}

// Handle envia data com successStatus quando err é nil; caso contrário
// mapeia o erro para o status e o corpo padronizados.
func (rw *Writer) Handle(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		rw.JSON(w, successStatus, data)
		rw.Logger.Debug("Requisição concluída com sucesso", map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": successStatus,
		})
		return
	}
	rw.Error(w, r, err)
}

// JSON escreve o corpo como JSON. data nil envia apenas o status.
func (rw *Writer) JSON(w http.ResponseWriter, status int, data interface{}) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rw.Logger.Error("Falha ao codificar JSON de resposta", err)
	}
}

// Error mapeia o erro de serviço para HTTP. Erros 5xx são logados com a causa
// e chegam ao cliente com mensagem genérica.
func (rw *Writer) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= http.StatusInternalServerError {
		rw.Logger.Error(fmt.Sprintf("Erro de Servidor: %s %s", r.Method, r.URL.Path), err)
	} else {
		rw.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	body := map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}

	var stockErr *apperror.InsufficientStockError
	if errors.As(err, &stockErr) {
		body["details"] = map[string]interface{}{
			"product_id":   stockErr.ProductID,
			"product_name": stockErr.ProductName,
			"size":         stockErr.Size,
			"requested":    stockErr.Requested,
			"available":    stockErr.Available,
			"line":         stockErr.Line,
		}
	}

	rw.JSON(w, status, body)
}

// Decode lê o corpo JSON da requisição em dst.
func Decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.NewValidationError("Payload JSON inválido.")
	}
	return nil
}
