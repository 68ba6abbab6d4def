package handler

import (
	"mime"
	"net/http"
	"time"

	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"
	"workshop-billing-backend/internal/services/billing"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	service InvoiceService
}

func NewInvoiceHandler(service InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

type createInvoiceRequest struct {
	OrderID       uint                 `json:"order_id" binding:"required"`
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required,oneof=CASH CREDIT_CARD DEBIT_CARD TRANSFER CHECK OTHER"`
	PaymentState  models.PaymentState  `json:"payment_state" binding:"omitempty,oneof=PAID UNPAID"`
	Notes         string               `json:"notes"`
	MechanicID    *uint                `json:"mechanic_id"`
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var req createInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.service.Create(c.Request.Context(), billing.CreateInput{
		OrderID:       req.OrderID,
		PaymentMethod: req.PaymentMethod,
		PaymentState:  req.PaymentState,
		Notes:         req.Notes,
		MechanicID:    req.MechanicID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "invoice created", "invoice": inv})
}

type newClientRequest struct {
	Name           string `json:"name" binding:"required"`
	Identification string `json:"identification" binding:"required"`
	Phone          string `json:"phone"`
	Email          string `json:"email" binding:"omitempty,email"`
	Address        string `json:"address"`
	City           string `json:"city"`
}

type newVehicleRequest struct {
	Plate        string `json:"plate" binding:"required"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Displacement int    `json:"displacement"`
	Color        string `json:"color"`
	Mileage      int    `json:"mileage"`
}

type independentInvoiceRequest struct {
	ClientID      *uint                `json:"client_id"`
	Client        *newClientRequest    `json:"client"`
	VehicleID     *uint                `json:"vehicle_id"`
	Vehicle       *newVehicleRequest   `json:"vehicle"`
	MechanicID    *uint                `json:"mechanic_id"`
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required,oneof=CASH CREDIT_CARD DEBIT_CARD TRANSFER CHECK OTHER"`
	PaymentState  models.PaymentState  `json:"payment_state" binding:"omitempty,oneof=PAID UNPAID"`
	Notes         string               `json:"notes"`
	Lines         []lineRequest        `json:"lines" binding:"required,min=1,dive"`
}

func (h *InvoiceHandler) CreateIndependent(c *gin.Context) {
	var req independentInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	in := billing.IndependentInput{
		ClientID:      req.ClientID,
		VehicleID:     req.VehicleID,
		MechanicID:    req.MechanicID,
		PaymentMethod: req.PaymentMethod,
		PaymentState:  req.PaymentState,
		Notes:         req.Notes,
		Lines:         lineItems(req.Lines),
	}
	if req.Client != nil {
		in.NewClient = &billing.NewClient{
			Name:           req.Client.Name,
			Identification: req.Client.Identification,
			Phone:          req.Client.Phone,
			Email:          req.Client.Email,
			Address:        req.Client.Address,
			City:           req.Client.City,
		}
	}
	if req.Vehicle != nil {
		in.NewVehicle = &billing.NewVehicle{
			Plate:        req.Vehicle.Plate,
			Brand:        req.Vehicle.Brand,
			Model:        req.Vehicle.Model,
			Year:         req.Vehicle.Year,
			Displacement: req.Vehicle.Displacement,
			Color:        req.Vehicle.Color,
			Mileage:      req.Vehicle.Mileage,
		}
	}

	inv, err := h.service.CreateIndependent(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "invoice created", "invoice": inv})
}

func (h *InvoiceHandler) List(c *gin.Context) {
	filter := repository.InvoiceFilter{State: models.PaymentState(c.Query("state"))}
	if filter.State != "" && !filter.State.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}

	var err error
	if filter.ClientID, err = queryUint(c, "client_id"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.MechanicID, err = queryUint(c, "mechanic_id"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.From, err = queryDate(c, "from"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.To != nil {
		end := filter.To.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	invoices, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (h *InvoiceHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *InvoiceHandler) LaborReport(c *gin.Context) {
	q := billing.LaborQuery{ServiceName: c.Query("service")}

	var err error
	if q.MechanicID, err = queryUint(c, "mechanic_id"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from, err := queryDate(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if from != nil {
		q.From = *from
	}
	if to != nil {
		q.To = *to
	}

	report, err := h.service.LaborReport(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	inv, err := h.service.FindOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

type editInvoiceRequest struct {
	PaymentMethod *models.PaymentMethod `json:"payment_method" binding:"omitempty,oneof=CASH CREDIT_CARD DEBIT_CARD TRANSFER CHECK OTHER"`
	Notes         *string               `json:"notes"`
	MechanicID    *uint                 `json:"mechanic_id"`
	Lines         []lineRequest         `json:"lines" binding:"omitempty,dive"`
}

// Edit patches an invoice. Sending "lines" replaces the whole line set.
func (h *InvoiceHandler) Edit(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req editInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.service.Edit(c.Request.Context(), id, billing.EditInput{
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		MechanicID:    req.MechanicID,
		ReplaceLines:  req.Lines != nil,
		Lines:         lineItems(req.Lines),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice updated", "invoice": inv})
}

type paymentStateRequest struct {
	State  models.PaymentState `json:"payment_state" binding:"required,oneof=PAID UNPAID"`
	PaidAt *time.Time          `json:"paid_at"`
}

func (h *InvoiceHandler) SetPaymentState(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req paymentStateRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.service.SetPaymentState(c.Request.Context(), id, req.State, req.PaidAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment state updated", "invoice": inv})
}

func (h *InvoiceHandler) Pay(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		PaidAt *time.Time `json:"paid_at"`
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	inv, err := h.service.Pay(c.Request.Context(), id, req.PaidAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice paid", "invoice": inv})
}

func (h *InvoiceHandler) Unpay(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	inv, err := h.service.Unpay(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice unpaid", "invoice": inv})
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice deleted"})
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *InvoiceHandler) DeleteSecured(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req passwordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.SoftDeleteSecured(c.Request.Context(), id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice deleted"})
}

func (h *InvoiceHandler) Restore(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	inv, err := h.service.Restore(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice restored", "invoice": inv})
}

func (h *InvoiceHandler) Editable(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res, err := h.service.VerifyEditable(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type validatePasswordRequest struct {
	Password string         `json:"password"`
	Action   billing.Action `json:"action" binding:"required"`
}

func (h *InvoiceHandler) ValidatePassword(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req validatePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.ValidatePasswordForAction(c.Request.Context(), id, req.Password, req.Action); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *InvoiceHandler) PDF(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	data, filename, err := h.service.RenderPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, "application/pdf", data)
}

type emailRequest struct {
	To        string `json:"to" binding:"required"`
	CC        string `json:"cc"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	PDFBase64 string `json:"pdf_base64"`
}

func (h *InvoiceHandler) SendEmail(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}

	delivery, err := h.service.SendByEmail(c.Request.Context(), id, billing.EmailInput{
		To:        req.To,
		CC:        req.CC,
		Subject:   req.Subject,
		Message:   req.Message,
		PDFBase64: req.PDFBase64,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice sent", "delivery": delivery})
}
