package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
)

// DefaultIssuer é usado quando a configuração não informa JWT_ISSUER.
const DefaultIssuer = "gostore"

// Claims é o conteúdo do token da equipe. O ID do usuário vai no Subject.
type Claims struct {
	Role  domain.UserRole `json:"role"`
	Email string          `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID devolve o ID do membro da equipe dono do token.
func (c *Claims) UserID() string {
	return c.Subject
}

// Options configura a emissão e a validação dos tokens.
type Options struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Service emite e valida tokens HS256 da equipe da loja.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewService cria o serviço de tokens.
func NewService(opts Options) *Service {
	if opts.Issuer == "" {
		opts.Issuer = DefaultIssuer
	}
	return &Service{
		secret: []byte(opts.Secret),
		issuer: opts.Issuer,
		ttl:    opts.TTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(opts.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
		now: time.Now,
	}
}

// Issue gera o token de sessão do usuário. Só papéis conhecidos recebem token.
func (s *Service) Issue(user domain.User) (string, error) {
	if user.ID == "" {
		return "", apperror.NewValidationError("Usuário sem ID não pode receber token.")
	}
	if !user.Role.IsValid() {
		return "", apperror.NewValidationError(fmt.Sprintf("Papel desconhecido: %q", user.Role))
	}

	now := s.now()
	claims := Claims{
		Role:  user.Role,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", apperror.NewInternalError("Falha ao assinar o token.", err)
	}
	return signed, nil
}

// Validate confere assinatura, emissor, validade e papel. Toda falha vira UnauthorizedError.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperror.NewUnauthorizedError("Token expirado.")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return nil, apperror.NewUnauthorizedError("Token emitido por outra origem.")
	case err != nil:
		return nil, apperror.NewUnauthorizedError("Token inválido.")
	}

	if claims.UserID() == "" {
		return nil, apperror.NewUnauthorizedError("Token sem usuário.")
	}
	if !claims.Role.IsValid() {
		return nil, apperror.NewUnauthorizedError(fmt.Sprintf("Papel desconhecido no token: %q", claims.Role))
	}
	return claims, nil
}
