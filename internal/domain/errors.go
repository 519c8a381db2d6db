package domain

import "errors"

// Erros de domínio (sem dependências externas).
var (
	ErrNotFound           = errors.New("recurso não encontrado")
	ErrUserNotFound       = errors.New("usuário não encontrado")
	ErrEmailAlreadyExists = errors.New("o email já está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("não autorizado")
	ErrForbidden          = errors.New("acesso negado")
	ErrConflict           = errors.New("conflito com o estado atual")

	// Fluxo de rascunhos e emissão.
	ErrUnresolvedClient  = errors.New("cliente não encontrado ou está inativo")
	ErrMissingTaxRate    = errors.New("alíquota não encontrada para a competência")
	ErrDraftNotEditable  = errors.New("apenas rascunhos ativos podem ser alterados")
	ErrEmitterMismatch   = errors.New("rascunho não pertence ao emissor informado")
	ErrTaskNotCancelable = errors.New("apenas notas aceitas podem ser canceladas")

	// Núcleo de sessão (cliente).
	ErrOperationInFlight = errors.New("operação já em andamento")
	ErrJobNotFound       = errors.New("job de importação não encontrado")
)
