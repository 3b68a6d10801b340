// Package web provides HTTP handlers and REST API endpoints for projects, their
// workflows and the conversations that run them.
package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/services"
	"github.com/dukex/chatflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	projectService      *services.Project
	conversationService *services.Conversation
	delegate            workflow.Delegate
	validator           *validator.Validate
	origins             OriginPolicy
}

// NewAPIHandlers wires the handlers. delegate answers the turn endpoint (/chat); it is
// usually the in-process backend runner.
func NewAPIHandlers(
	projectService *services.Project,
	conversationService *services.Conversation,
	delegate workflow.Delegate,
	validator *validator.Validate,
	origins OriginPolicy,
) *APIHandlers {
	return &APIHandlers{
		projectService:      projectService,
		conversationService: conversationService,
		delegate:            delegate,
		validator:           validator,
		origins:             origins,
	}
}

// Register mounts every route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	p := router.Group("/projects")
	p.Get("/", h.GetProjects)
	p.Post("/", h.CreateProject)
	p.Get("/:id", h.GetProject)
	p.Patch("/:id", h.UpdateProject)
	p.Delete("/:id", h.DeleteProject)

	p.Put("/:id/workflow", h.UpdateWorkflow)
	p.Post("/:id/workflow/validate", h.ValidateWorkflow)

	p.Post("/:id/sessions", h.StartSession)
	p.Post("/:id/sessions/:sessionId/messages", h.SendMessage)
	p.Get("/:id/sessions/:sessionId", h.GetSession)
	p.Delete("/:id/sessions/:sessionId", h.DeleteSession)

	router.Post("/chat", h.Chat)
	router.Get("/node-types", h.GetNodeTypes)
	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetProjects(c fiber.Ctx) error {
	req, err := h.parseListProjectsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.projectService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"projects":      result.Projects,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListProjectsRequest parses query parameters for listing projects.
func (h *APIHandlers) parseListProjectsRequest(c fiber.Ctx) (*services.ListProjectsRequest, error) {
	req := &services.ListProjectsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.OwnerID = c.Query("owner_id")
	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetProject(c fiber.Ctx) error {
	project, err := h.projectService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(project)
}

func (h *APIHandlers) CreateProject(c fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.projectService.Create(c.Context(), req.Project())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateProject(c fiber.Ctx) error {
	var req UpdateProjectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.projectService.Update(c.Context(), c.Params("id"), req.Patch())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteProject(c fiber.Ctx) error {
	if err := h.projectService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateWorkflow replaces the project's workflow. Invalid graphs are saved as drafts;
// the validation report tells the editor what is wrong.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var definition models.WorkflowDefinition
	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "Invalid workflow document: "+err.Error())
	}

	project, report, err := h.projectService.UpdateWorkflow(c.Context(), c.Params("id"), &definition)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(WorkflowResponse{Project: project, Validation: report})
}

// ValidateWorkflow validates the posted definition without saving it, or the stored one
// when the body is empty.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		report, err := h.projectService.Validate(c.Context(), c.Params("id"))
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(report)
	}

	if _, err := h.projectService.FetchByID(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	var definition models.WorkflowDefinition
	if err := c.Bind().JSON(&definition); err != nil {
		return badRequest(c, "Invalid workflow document: "+err.Error())
	}

	return c.JSON(workflow.Validate(&definition))
}

// authorizeOrigin checks the request origin against the project's website.
func (h *APIHandlers) authorizeOrigin(c fiber.Ctx, projectID string) error {
	project, err := h.projectService.FetchByID(c.Context(), projectID)
	if err != nil {
		return err
	}

	if !h.origins.Allowed(c.Get(fiber.HeaderOrigin), project.WebsiteURL) {
		return ErrOriginNotAllowed
	}

	return nil
}

func (h *APIHandlers) StartSession(c fiber.Ctx) error {
	projectID := c.Params("id")

	var req StartSessionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	if err := h.authorizeOrigin(c, projectID); err != nil {
		return handleServiceError(c, err)
	}

	result, err := h.conversationService.Start(c.Context(), projectID, req.SessionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) SendMessage(c fiber.Ctx) error {
	projectID := c.Params("id")

	var req SendMessageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.authorizeOrigin(c, projectID); err != nil {
		return handleServiceError(c, err)
	}

	result, err := h.conversationService.Send(c.Context(), projectID, c.Params("sessionId"), req.Message)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	projectID := c.Params("id")

	if err := h.authorizeOrigin(c, projectID); err != nil {
		return handleServiceError(c, err)
	}

	view, err := h.conversationService.State(c.Context(), projectID, c.Params("sessionId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) DeleteSession(c fiber.Ctx) error {
	projectID := c.Params("id")

	if err := h.authorizeOrigin(c, projectID); err != nil {
		return handleServiceError(c, err)
	}

	if err := h.conversationService.Reset(c.Context(), projectID, c.Params("sessionId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Chat is the turn endpoint. With a workflow state it executes that delegated node;
// without one it answers the query as a plain chat turn.
func (h *APIHandlers) Chat(c fiber.Ctx) error {
	var req models.TurnRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.WorkflowState == nil && strings.TrimSpace(req.Query) == "" {
		return badRequest(c, "Missing query or project_id")
	}

	if err := h.authorizeOrigin(c, req.ProjectID); err != nil {
		return handleServiceError(c, err)
	}

	response, err := h.delegate.RunBackendStep(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(response)
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(models.NodeTypeCatalog())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.projectService.HealthCheck(c.Context())
	sessionCheck, sesOk := h.conversationService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Chatflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk && sesOk {
		status = "healthy"
		message = "Chatflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"sessions":   sessionCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
