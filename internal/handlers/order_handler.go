package handler

import (
	"net/http"

	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"
	"workshop-billing-backend/internal/services/auth"
	"workshop-billing-backend/internal/services/orders"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service OrderService
}

func NewOrderHandler(service OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

type createOrderRequest struct {
	ClientID   uint          `json:"client_id" binding:"required"`
	VehicleID  *uint         `json:"vehicle_id"`
	MechanicID *uint         `json:"mechanic_id"`
	Notes      string        `json:"notes"`
	Lines      []lineRequest `json:"lines" binding:"omitempty,dive"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.service.Create(c.Request.Context(), orders.CreateInput{
		ClientID:   req.ClientID,
		VehicleID:  req.VehicleID,
		MechanicID: req.MechanicID,
		Notes:      req.Notes,
		Lines:      lineItems(req.Lines),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "order created", "order": order})
}

// List answers mechanics with their own orders only.
func (h *OrderHandler) List(c *gin.Context) {
	var (
		list []models.Order
		err  error
	)
	if claims, ok := auth.CurrentClaims(c); ok && claims.Role == models.RoleMechanic {
		if claims.MechanicID == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "user is not linked to a mechanic"})
			return
		}
		list, err = h.service.ListByMechanic(c.Request.Context(), *claims.MechanicID)
	} else {
		filter := repository.OrderFilter{State: models.OrderState(c.Query("state"))}
		if filter.ClientID, err = queryUint(c, "client_id"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if filter.MechanicID, err = queryUint(c, "mechanic_id"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		list, err = h.service.List(c.Request.Context(), filter)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	order, err := h.service.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !canSee(c, order) {
		return
	}
	c.JSON(http.StatusOK, order)
}

// canSee answers 403 when a mechanic asks for an order assigned to someone
// else. Other roles see every order.
func canSee(c *gin.Context, order *models.Order) bool {
	claims, ok := auth.CurrentClaims(c)
	if !ok || claims.Role != models.RoleMechanic {
		return true
	}
	if claims.MechanicID == nil || order.MechanicID == nil || *order.MechanicID != *claims.MechanicID {
		c.JSON(http.StatusForbidden, gin.H{"error": "order is not assigned to you"})
		return false
	}
	return true
}

func (h *OrderHandler) AddLine(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req lineRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.service.AddLine(c.Request.Context(), id, req.item())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "line added", "order": order})
}

type linesRequest struct {
	Lines []lineRequest `json:"lines" binding:"required,min=1,dive"`
}

func (h *OrderHandler) ReplaceLines(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req linesRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.service.ReplaceLines(c.Request.Context(), id, lineItems(req.Lines))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "lines replaced", "order": order})
}

func (h *OrderHandler) ReplaceLinesAsMechanic(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	claims, ok := auth.CurrentClaims(c)
	if !ok || claims.MechanicID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "user is not linked to a mechanic"})
		return
	}
	var req linesRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.service.ReplaceLinesAsMechanic(c.Request.Context(), id, *claims.MechanicID, lineItems(req.Lines))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "lines replaced", "order": order})
}

func (h *OrderHandler) ClearLines(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	order, err := h.service.ClearLines(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "lines cleared", "order": order})
}

func (h *OrderHandler) UpdateNotes(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.service.UpdateNotes(c.Request.Context(), id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notes updated", "order": order})
}

type transitionRequest struct {
	State models.OrderState `json:"state" binding:"required,oneof=RECEIVED IN_PROGRESS DONE INVOICED"`
}

func (h *OrderHandler) Transition(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req transitionRequest
	if !bindJSON(c, &req) {
		return
	}
	if claims, ok := auth.CurrentClaims(c); ok && claims.Role == models.RoleMechanic {
		current, err := h.service.FindOne(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !canSee(c, current) {
			return
		}
	}
	order, err := h.service.Transition(c.Request.Context(), id, req.State)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order state updated", "order": order})
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}

func (h *OrderHandler) DeleteSecured(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req passwordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.DeleteSecured(c.Request.Context(), id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}
