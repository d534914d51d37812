package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/cycle"
)

var (
	errBadRequestBody    = errors.New("Formato de requisição inválido.")
	errInvalidChurchID   = errors.New("Identificador de igreja inválido.")
	errInvalidCycle      = errors.New("Número de ciclo inválido.")
	errInvalidIndex      = errors.New("Posição do ciclo inválida.")
	errInvalidDate       = errors.New("Data inválida. Use o formato AAAA-MM-DD.")
	errInvalidScheduleID = errors.New("Identificador de escala inválido.")
	errMissingFile       = errors.New("Envie o arquivo CSV no corpo da requisição.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr   *application.ValidationError
		dupErr *cycle.DuplicateMusicianError
		idxErr *cycle.IndexOutOfRangeError
	)
	switch {
	case errors.Is(err, application.ErrNotFound), errors.Is(err, cycle.ErrUnknownCycle):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrConcurrencyConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "CONCURRENT_OPERATION",
			Message:   "Outra operação está alterando as escalas desta igreja. Tente novamente em instantes.",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "O registro informado já existe."})
	case errors.As(err, &dupErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "DUPLICATE_MUSICIAN",
			Message:   "A organista já faz parte deste ciclo.",
		})
	case errors.As(err, &idxErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INDEX_OUT_OF_RANGE",
			Message:   "A posição informada não existe no ciclo.",
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:  localizeValidationErrors(vErr),
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "A requisição não está correta."
	case http.StatusNotFound:
		return "O recurso solicitado não foi encontrado."
	case http.StatusConflict:
		return "A requisição conflita com o estado atual do recurso."
	case http.StatusUnprocessableEntity:
		return "Há erros nos dados informados."
	default:
		return "Ocorreu um erro interno no servidor."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "church not found":
		return "Igreja não encontrada."
	case "cycle not found":
		return "Ciclo não encontrado."
	case "musician not found":
		return "Organista não encontrada."
	case "musician belongs to another church":
		return "A organista pertence a outra igreja."
	case "musician is not part of the cycle":
		return "A organista não faz parte do ciclo."
	case "starting cycle is required with a starting musician":
		return "Informe o ciclo inicial ao escolher a organista inicial."
	case "end date must not be before start date":
		return "A data final não pode ser anterior à data inicial."
	case "no saved schedule covers the date":
		return "Nenhuma escala salva cobre a data informada."
	case "items are required":
		return "Os itens da escala são obrigatórios."
	case "unexpected header":
		return "O cabeçalho do arquivo não é o esperado."
	case "file could not be read":
		return "Não foi possível ler o arquivo."
	case "file has no rows":
		return "O arquivo não possui linhas."
	case "no service matches the date and time":
		return "Nenhum culto corresponde à data e ao horário."
	case "youth services have no prelude":
		return "Reuniões de jovens não têm meia hora."
	case "role is invalid":
		return "Função inválida."
	case "service id is required":
		return "O culto é obrigatório."
	case "value violates a constraint":
		return "O valor viola uma restrição."
	case "related records are missing":
		return "Registros relacionados não existem."
	}

	switch {
	case strings.HasPrefix(message, "items dated outside the schedule period:"):
		return "Há itens fora do período da escala: " + strings.TrimSpace(strings.TrimPrefix(message, "items dated outside the schedule period:"))
	case strings.HasPrefix(message, "period must not exceed"), strings.HasPrefix(message, "period months must be at most"):
		return "O período excede o limite de geração."
	case strings.HasPrefix(message, "column ") && strings.HasSuffix(message, " is invalid"):
		return "Coluna inválida: " + strings.TrimSuffix(strings.TrimPrefix(message, "column "), " is invalid")
	case strings.HasSuffix(message, " is required"):
		return "Campo obrigatório: " + strings.TrimSuffix(message, " is required")
	}
	return message
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
