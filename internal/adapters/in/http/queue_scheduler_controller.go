package http

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/in"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

type QueueSchedulerController struct {
	useCase in.QueueSchedulerUseCase
	cfg     *config.Config
	logger  out.LoggerPort
}

func NewQueueSchedulerController(useCase in.QueueSchedulerUseCase, cfg *config.Config, logger out.LoggerPort) *QueueSchedulerController {
	return &QueueSchedulerController{
		useCase: useCase,
		cfg:     cfg,
		logger:  logger,
	}
}

func (c *QueueSchedulerController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	api.Use(c.basicAuth())
	{
		api.POST("/appointments", c.createAppointment)
		api.POST("/appointments/:appointmentId/cancel", c.cancelAppointment)
		api.POST("/appointments/:appointmentId/reschedule", c.rescheduleAppointment)
		api.POST("/appointments/:appointmentId/skip", c.skipPatient)
		api.POST("/appointments/:appointmentId/start", c.startConsultation)
		api.POST("/appointments/:appointmentId/complete", c.completeAppointment)

		api.GET("/queues", c.listQueueSessions)
		api.POST("/queues/:doctorId/:date/start", c.startQueue)
		api.POST("/queues/:doctorId/:date/pause", c.pauseQueue)
		api.POST("/queues/:doctorId/:date/resume", c.resumeQueue)
		api.POST("/queues/:doctorId/:date/stop", c.stopQueue)
		api.GET("/queues/:doctorId/:date/status", c.queueStatus)
		api.GET("/queues/:doctorId/:date/wait-time", c.estimatedWaitTime)
		api.POST("/queues/:doctorId/:date/reorder", c.reorderQueue)
		api.POST("/queues/:doctorId/:date/apply-rules", c.applyQueueRules)
		api.POST("/queues/:doctorId/:date/walk-in", c.addWalkIn)
		api.POST("/queues/:doctorId/:date/call-next", c.callNextPatient)
	}
}

// Единый конверт ответа API
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusOK, apiResponse{Success: true, Message: message, Data: data})
}

func respondCreated(ctx *gin.Context, message string, data interface{}) {
	ctx.JSON(http.StatusCreated, apiResponse{Success: true, Message: message, Data: data})
}

func respondBadRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: message})
}

func (c *QueueSchedulerController) respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch domain.ErrorKindOf(err) {
	case domain.ErrorKindValidation:
		status = http.StatusBadRequest
	case domain.ErrorKindConflict:
		status = http.StatusConflict
	case domain.ErrorKindNotFound:
		status = http.StatusNotFound
	case domain.ErrorKindExternal:
		// Детали внешнего сбоя наружу не отдаём
		c.logger.Error("http.request.external_failure", out.LogFields{
			"path":  ctx.FullPath(),
			"error": err.Error(),
		})
		ctx.JSON(status, apiResponse{Success: false, Message: "internal error"})
		return
	}

	ctx.JSON(status, apiResponse{Success: false, Message: err.Error()})
}

type createAppointmentRequest struct {
	PatientID      uuid.UUID `json:"patientId" binding:"required"`
	DoctorID       uuid.UUID `json:"doctorId" binding:"required"`
	Date           string    `json:"date" binding:"required"`
	Time           string    `json:"time" binding:"required"`
	Type           string    `json:"type"`
	PatientName    string    `json:"patientName"`
	PatientContact string    `json:"patientContact"`
	DoctorName     string    `json:"doctorName"`
	Notes          string    `json:"notes"`
	IsUrgent       bool      `json:"isUrgent"`
	IsVip          bool      `json:"isVip"`
}

func (c *QueueSchedulerController) createAppointment(ctx *gin.Context) {
	var req createAppointmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}

	appointment, err := c.useCase.CreateAppointment(ctx.Request.Context(), in.BookingRequest{
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		Date:           req.Date,
		Time:           req.Time,
		Type:           domain.AppointmentType(req.Type),
		PatientName:    req.PatientName,
		PatientContact: req.PatientContact,
		DoctorName:     req.DoctorName,
		Notes:          req.Notes,
		IsUrgent:       req.IsUrgent,
		IsVip:          req.IsVip,
	})
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondCreated(ctx, "Appointment created", appointment)
}

type cancelAppointmentRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

func (c *QueueSchedulerController) cancelAppointment(ctx *gin.Context) {
	appointmentID, err := uuid.Parse(ctx.Param("appointmentId"))
	if err != nil {
		respondBadRequest(ctx, "Invalid appointment ID format")
		return
	}

	// Тело запроса необязательно: отмена без причины допустима
	var req cancelAppointmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondBadRequest(ctx, err.Error())
		return
	}

	appointment, err := c.useCase.CancelAppointment(ctx.Request.Context(), appointmentID, req.Reason, req.Actor)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Appointment cancelled", appointment)
}

type rescheduleAppointmentRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

func (c *QueueSchedulerController) rescheduleAppointment(ctx *gin.Context) {
	appointmentID, err := uuid.Parse(ctx.Param("appointmentId"))
	if err != nil {
		respondBadRequest(ctx, "Invalid appointment ID format")
		return
	}

	var req rescheduleAppointmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}

	appointment, err := c.useCase.RescheduleAppointment(ctx.Request.Context(), appointmentID, req.Date, req.Time)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Appointment rescheduled", appointment)
}

type skipPatientRequest struct {
	Reason string `json:"reason"`
}

func (c *QueueSchedulerController) skipPatient(ctx *gin.Context) {
	appointmentID, err := uuid.Parse(ctx.Param("appointmentId"))
	if err != nil {
		respondBadRequest(ctx, "Invalid appointment ID format")
		return
	}

	var req skipPatientRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondBadRequest(ctx, err.Error())
		return
	}

	appointment, err := c.useCase.SkipPatient(ctx.Request.Context(), appointmentID, req.Reason)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Patient moved to the back of the queue", appointment)
}

func (c *QueueSchedulerController) startConsultation(ctx *gin.Context) {
	appointmentID, err := uuid.Parse(ctx.Param("appointmentId"))
	if err != nil {
		respondBadRequest(ctx, "Invalid appointment ID format")
		return
	}

	appointment, err := c.useCase.StartConsultation(ctx.Request.Context(), appointmentID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Consultation started", appointment)
}

func (c *QueueSchedulerController) completeAppointment(ctx *gin.Context) {
	appointmentID, err := uuid.Parse(ctx.Param("appointmentId"))
	if err != nil {
		respondBadRequest(ctx, "Invalid appointment ID format")
		return
	}

	appointment, err := c.useCase.CompleteAppointment(ctx.Request.Context(), appointmentID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Appointment completed", appointment)
}

func (c *QueueSchedulerController) listQueueSessions(ctx *gin.Context) {
	date := ctx.Query("date")
	if date == "" {
		respondBadRequest(ctx, "Query parameter 'date' is required")
		return
	}

	statuses, err := c.useCase.ListQueueSessions(ctx.Request.Context(), date)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Queue sessions fetched", statuses)
}

// parseQueueKey разбирает пару (врач, день) из пути
func parseQueueKey(ctx *gin.Context) (uuid.UUID, string, bool) {
	doctorID, err := uuid.Parse(ctx.Param("doctorId"))
	if err != nil {
		respondBadRequest(ctx, "Invalid doctor ID format")
		return uuid.Nil, "", false
	}

	date := ctx.Param("date")
	if date == "" {
		respondBadRequest(ctx, "Date is required")
		return uuid.Nil, "", false
	}

	return doctorID, date, true
}

func (c *QueueSchedulerController) startQueue(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	session, err := c.useCase.StartQueue(ctx.Request.Context(), doctorID, date)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Queue started", session)
}

type pauseQueueRequest struct {
	Reason string `json:"reason"`
}

func (c *QueueSchedulerController) pauseQueue(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	var req pauseQueueRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondBadRequest(ctx, err.Error())
		return
	}

	session, err := c.useCase.PauseQueue(ctx.Request.Context(), doctorID, date, req.Reason)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Queue paused", session)
}

func (c *QueueSchedulerController) resumeQueue(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	session, err := c.useCase.ResumeQueue(ctx.Request.Context(), doctorID, date)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Queue resumed", session)
}

func (c *QueueSchedulerController) stopQueue(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	session, err := c.useCase.StopQueue(ctx.Request.Context(), doctorID, date)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Queue stopped", session)
}

func (c *QueueSchedulerController) queueStatus(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	status, err := c.useCase.GetQueueStatus(ctx.Request.Context(), doctorID, date)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Queue status fetched", status)
}

func (c *QueueSchedulerController) estimatedWaitTime(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	queueNumber, err := strconv.Atoi(ctx.Query("queueNumber"))
	if err != nil {
		respondBadRequest(ctx, "Query parameter 'queueNumber' must be an integer")
		return
	}

	minutes, err := c.useCase.GetEstimatedWaitTime(ctx.Request.Context(), doctorID, date, queueNumber)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Estimated wait time", gin.H{
		"queueNumber":          queueNumber,
		"estimatedWaitMinutes": minutes,
	})
}

type reorderQueueRequest struct {
	Requests []in.ReorderRequest `json:"requests" binding:"required,min=1"`
}

func (c *QueueSchedulerController) reorderQueue(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	var req reorderQueueRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}

	if err := c.useCase.ReorderQueue(ctx.Request.Context(), doctorID, date, req.Requests); err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Queue reordered", nil)
}

type applyQueueRulesRequest struct {
	Rules []domain.QueueRule `json:"rules"`
}

func (c *QueueSchedulerController) applyQueueRules(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	// Пустое тело допустимо: применяются правила по умолчанию
	var req applyQueueRulesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondBadRequest(ctx, err.Error())
		return
	}

	if err := c.useCase.ApplyQueueRules(ctx.Request.Context(), doctorID, date, req.Rules); err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Queue rules applied", nil)
}

type walkInRequest struct {
	PatientID      uuid.UUID `json:"patientId" binding:"required"`
	Type           string    `json:"type"`
	PatientName    string    `json:"patientName"`
	PatientContact string    `json:"patientContact"`
	DoctorName     string    `json:"doctorName"`
	Notes          string    `json:"notes"`
	IsUrgent       bool      `json:"isUrgent"`
	IsVip          bool      `json:"isVip"`
}

func (c *QueueSchedulerController) addWalkIn(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	var req walkInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}

	appointment, err := c.useCase.AddWalkInPatient(ctx.Request.Context(), in.WalkInRequest{
		PatientID:      req.PatientID,
		DoctorID:       doctorID,
		Date:           date,
		Type:           domain.AppointmentType(req.Type),
		PatientName:    req.PatientName,
		PatientContact: req.PatientContact,
		DoctorName:     req.DoctorName,
		Notes:          req.Notes,
		IsUrgent:       req.IsUrgent,
		IsVip:          req.IsVip,
	})
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondCreated(ctx, "Walk-in patient added", appointment)
}

func (c *QueueSchedulerController) callNextPatient(ctx *gin.Context) {
	doctorID, date, ok := parseQueueKey(ctx)
	if !ok {
		return
	}

	appointment, err := c.useCase.CallNextPatient(ctx.Request.Context(), doctorID, date)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	respondOK(ctx, "Patient called", appointment)
}

func (c *QueueSchedulerController) basicAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		username, password, hasAuth := ctx.Request.BasicAuth()
		if !hasAuth {
			ctx.Header("WWW-Authenticate", "Basic realm=Authorization Required")
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		for _, client := range c.cfg.Auth.BasicClients {
			if subtle.ConstantTimeCompare([]byte(username), []byte(client.Username)) == 1 &&
				subtle.ConstantTimeCompare([]byte(password), []byte(client.Password)) == 1 {
				ctx.Next()
				return
			}
		}

		ctx.Header("WWW-Authenticate", "Basic realm=Authorization Required")
		ctx.AbortWithStatus(http.StatusUnauthorized)
	}
}
