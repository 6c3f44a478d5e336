package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code     int    `json:"code" example:"409"`
	Category string `json:"category" example:"INSUFFICIENT_STOCK"`
	Message  string `json:"message" example:"Estoque insuficiente: Flamengo Home 2024 (tamanho M) disponível 1, solicitado 2"`
	// Details só aparece em INSUFFICIENT_STOCK (product_id, size, requested, available, line).
	Details map[string]interface{} `json:"details,omitempty"`
}
