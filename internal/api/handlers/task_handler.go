package handlers

import (
	"net/http"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ============================================
// Task Handler
// ============================================

type TaskHandler struct {
	taskService service.TaskService
	log         *logrus.Entry
}

func (h *TaskHandler) Create(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.CreateTaskRequest
	if !bind(c, &req) {
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), a, service.CreateTaskInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		IsMandatory: req.IsMandatory,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	created(c, "Task created successfully", toTaskResponse(task))
}

func (h *TaskHandler) List(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), a)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	response := make([]models.TaskResponse, len(tasks))
	for i, t := range tasks {
		response[i] = toTaskResponse(t)
	}
	ok(c, response)
}

func (h *TaskHandler) Get(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toTaskResponse(task))
}

func (h *TaskHandler) Update(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.UpdateTaskRequest
	if !bind(c, &req) {
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), a, c.Param("id"), service.UpdateTaskInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		IsMandatory: req.IsMandatory,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	ok(c, toTaskResponse(task))
}

func (h *TaskHandler) Delete(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), a, c.Param("id")); err != nil {
		handleError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ============================================
// Assignments
// ============================================

func (h *TaskHandler) Assign(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.AssignTaskRequest
	if !bind(c, &req) {
		return
	}

	var deadline time.Time
	if req.Deadline != nil {
		deadline = *req.Deadline
	}

	assignment, err := h.taskService.AssignTask(c.Request.Context(), a, service.AssignTaskInput{
		TaskID:         req.TaskID,
		MemberEmail:    req.MemberEmail,
		AssignedPoints: req.AssignedPoints,
		PenaltyPoints:  req.PenaltyPoints,
		Deadline:       deadline,
		Priority:       req.Priority,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	message := "Task assigned and waiting for parent approval"
	if assignment.AssignmentApproved {
		message = "Task assigned successfully"
	}
	created(c, message, toAssignmentResponse(assignment))
}

func (h *TaskHandler) ReviewAssignment(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.ApprovalRequest
	if !bind(c, &req) {
		return
	}

	assignment, err := h.taskService.ReviewAssignment(c.Request.Context(), a, c.Param("id"), *req.Approved)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	if assignment == nil {
		respond(c, http.StatusOK, "Task assignment rejected and removed", nil)
		return
	}
	respond(c, http.StatusOK, "Task assignment approved", toAssignmentResponse(assignment))
}

func (h *TaskHandler) Complete(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.CompleteRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}

	assignment, err := h.taskService.CompleteAssignment(c.Request.Context(), a, c.Param("id"), req.Notes)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Task marked as completed and waiting for approval", toAssignmentResponse(assignment))
}

func (h *TaskHandler) ApproveCompletion(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.ApprovalRequest
	if !bind(c, &req) {
		return
	}

	assignment, err := h.taskService.ReviewCompletion(c.Request.Context(), a, c.Param("id"), *req.Approved, req.Notes)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	message := "Task completion rejected"
	if *req.Approved {
		message = "Task approved and points awarded"
	}
	respond(c, http.StatusOK, message, toAssignmentResponse(assignment))
}

func (h *TaskHandler) Penalty(c *gin.Context) {
	a, found := actor(c)
	if !found {
		return
	}

	var req models.PenaltyRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}

	res, err := h.taskService.ApplyPenalty(c.Request.Context(), a, c.Param("id"), req.PenaltyPoints, req.Notes)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	respond(c, http.StatusOK, "Penalty applied", models.PenaltyResponse{
		Assignment:    toAssignmentResponse(res.Assignment),
		PenaltyPoints: res.Points,
		PointsApplied: res.Applied,
	})
}

func (h *TaskHandler) listing(fetch func(*gin.Context, service.Actor) ([]*repository.TaskAssignment, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, found := actor(c)
		if !found {
			return
		}
		list, err := fetch(c, a)
		if err != nil {
			handleError(c, h.log, err)
			return
		}
		ok(c, toAssignmentList(list))
	}
}

func (h *TaskHandler) Pending() gin.HandlerFunc {
	return h.listing(func(c *gin.Context, a service.Actor) ([]*repository.TaskAssignment, error) {
		return h.taskService.PendingApprovals(c.Request.Context(), a)
	})
}

func (h *TaskHandler) Mine() gin.HandlerFunc {
	return h.listing(func(c *gin.Context, a service.Actor) ([]*repository.TaskAssignment, error) {
		return h.taskService.MyAssignments(c.Request.Context(), a)
	})
}

func (h *TaskHandler) Approved() gin.HandlerFunc {
	return h.listing(func(c *gin.Context, a service.Actor) ([]*repository.TaskAssignment, error) {
		return h.taskService.ApprovedAssignments(c.Request.Context(), a)
	})
}

func (h *TaskHandler) AwaitingReview() gin.HandlerFunc {
	return h.listing(func(c *gin.Context, a service.Actor) ([]*repository.TaskAssignment, error) {
		return h.taskService.AwaitingReview(c.Request.Context(), a)
	})
}
