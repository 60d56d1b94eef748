// internal/handler/command_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"terminal-bridge/internal/dispatcher"
	"terminal-bridge/internal/model"
	"terminal-bridge/internal/repository"
	"terminal-bridge/internal/service"
	"terminal-bridge/internal/utils"
)

// CommandDispatcher runs bridge commands
type CommandDispatcher interface {
	Dispatch(ctx context.Context, source model.CommandSource, method string, args json.RawMessage) (any, error)
}

// Bridge is the dispatcher surface used by the HTTP handlers
type Bridge interface {
	CommandDispatcher
	Methods() []string
	Readers() []*model.Reader
	Status() dispatcher.Status
}

// CommandHandler exposes the dispatcher and its journal over HTTP
type CommandHandler struct {
	bridge  Bridge
	journal repository.CommandRepository
	logger  *utils.ServiceLogger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(bridge Bridge, journal repository.CommandRepository, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{
		bridge:  bridge,
		journal: journal,
		logger:  utils.NewServiceLogger(logger, "command-handler"),
	}
}

// ExecuteCommand runs one bridge command
// @Summary Execute a bridge command
// @Description Runs a command exactly as the method channel would. Names containing '#' must be URL encoded (%23).
// @Tags Commands
// @Accept json
// @Produce json
// @Param method path string true "Command name" example(connectionStatus)
// @Param arguments body object false "Command arguments"
// @Success 200 {object} utils.APIResponse "Command result"
// @Failure 400 {object} utils.APIResponse "Invalid arguments"
// @Failure 404 {object} utils.APIResponse "Unknown command or reader"
// @Failure 409 {object} utils.APIResponse "Bridge state does not allow the command"
// @Failure 502 {object} utils.APIResponse "Reader SDK failure"
// @Router /api/v1/commands/{method} [post]
func (h *CommandHandler) ExecuteCommand(c *gin.Context) {
	method := c.Param("method")

	body, err := c.GetRawData()
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Unable to read request body", err)
		return
	}

	var args json.RawMessage
	if len(body) > 0 {
		args = json.RawMessage(body)
	}

	result, err := h.bridge.Dispatch(c.Request.Context(), model.CommandSourceHTTP, method, args)
	if err != nil {
		terminalErr := service.AsTerminalError(err, service.CodeInvalidRequest)
		utils.CodedErrorResponse(c, StatusForKind(terminalErr.Kind), &utils.APIError{
			Code:    terminalErr.Code,
			Message: terminalErr.Message,
			Details: terminalErr.Details,
		})
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command executed", result)
}

// ListCommands lists journaled commands, newest first
// @Summary List journaled commands
// @Tags Commands
// @Produce json
// @Param method query string false "Filter by command name"
// @Param status query string false "Filter by status" Enums(PENDING, SUCCEEDED, FAILED)
// @Param source query string false "Filter by source" Enums(CHANNEL, HTTP)
// @Param limit query int false "Maximum entries" default(50)
// @Success 200 {object} utils.APIResponse{data=[]model.CommandRecord} "Journal entries"
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Router /api/v1/commands [get]
func (h *CommandHandler) ListCommands(c *gin.Context) {
	filter := &repository.CommandFilter{}
	validationErrors := make(map[string]string)

	if method := c.Query("method"); method != "" {
		filter.Method = &method
	}
	if status := c.Query("status"); status != "" {
		s := model.CommandStatus(status)
		switch s {
		case model.CommandStatusPending, model.CommandStatusSucceeded, model.CommandStatusFailed:
			filter.Status = &s
		default:
			validationErrors["status"] = "must be one of PENDING, SUCCEEDED, FAILED"
		}
	}
	if source := c.Query("source"); source != "" {
		s := model.CommandSource(source)
		switch s {
		case model.CommandSourceChannel, model.CommandSourceHTTP:
			filter.Source = &s
		default:
			validationErrors["source"] = "must be one of CHANNEL, HTTP"
		}
	}
	if limit := c.Query("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil || l <= 0 {
			validationErrors["limit"] = "must be a positive integer"
		} else {
			filter.Limit = l
		}
	}

	if len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	records, err := h.journal.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list commands", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list commands", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Commands retrieved successfully", records)
}

// GetCommand returns one journal entry
// @Summary Get a journaled command
// @Tags Commands
// @Produce json
// @Param id path string true "Command ID"
// @Success 200 {object} utils.APIResponse{data=model.CommandRecord} "Journal entry"
// @Failure 400 {object} utils.APIResponse "Invalid ID"
// @Failure 404 {object} utils.APIResponse "Not found"
// @Router /api/v1/commands/{id} [get]
func (h *CommandHandler) GetCommand(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid command ID", err)
		return
	}

	record, err := h.journal.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrCommandNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Command not found", err)
			return
		}
		h.logger.Error("Failed to get command", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get command", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command retrieved successfully", record)
}

// ListMethods lists the supported command names
// @Summary Supported commands
// @Tags Commands
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]string} "Command names"
// @Router /api/v1/methods [get]
func (h *CommandHandler) ListMethods(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Supported commands", h.bridge.Methods())
}

// ListReaders returns the latest discovery batch
// @Summary Discovered readers
// @Tags Readers
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.Reader} "Readers from the latest discovery batch"
// @Router /api/v1/readers [get]
func (h *CommandHandler) ListReaders(c *gin.Context) {
	readers := h.bridge.Readers()
	if readers == nil {
		readers = []*model.Reader{}
	}
	utils.SuccessResponse(c, http.StatusOK, "Readers retrieved successfully", readers)
}

// GetStatus returns the bridge state
// @Summary Bridge status
// @Tags Readers
// @Produce json
// @Success 200 {object} utils.APIResponse{data=dispatcher.Status} "Bridge status"
// @Router /api/v1/status [get]
func (h *CommandHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Bridge status", h.bridge.Status())
}

// StatusForKind maps an error kind to its HTTP status
func StatusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindStateGuard:
		return http.StatusConflict
	case service.KindLookup, service.KindUnsupported:
		return http.StatusNotFound
	case service.KindOperation:
		return http.StatusBadGateway
	case service.KindCapability:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
