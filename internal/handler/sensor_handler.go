// internal/handler/sensor_handler.go
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sqm-service/internal/discovery"
	"sqm-service/internal/service"
	"sqm-service/internal/utils"
)

// SensorHandler handles sensor requests
type SensorHandler struct {
	sensorService *service.SensorService
	logger        *utils.ServiceLogger
}

// NewSensorHandler creates a new sensor handler
func NewSensorHandler(sensorService *service.SensorService, logger *zap.Logger) *SensorHandler {
	return &SensorHandler{
		sensorService: sensorService,
		logger:        utils.NewServiceLogger(logger, "sensor-handler"),
	}
}

func (h *SensorHandler) requestLogger(c *gin.Context) *zap.Logger {
	return utils.LoggerWithRequestID(h.logger.Logger, c.GetString("request_id"))
}

// errorResponse reports rejected requests as 400 and sensor errors by kind
func (h *SensorHandler) errorResponse(c *gin.Context, message string, err error) {
	if errors.Is(err, service.ErrInvalidRequest) {
		utils.ErrorResponse(c, http.StatusBadRequest, message, err)
		return
	}
	utils.SensorErrorResponse(c, message, err)
}

// ConnectSensor opens the sensor connection
// @Summary Connect sensor
// @Description Open the configured address, searching for the device if it does not answer
// @Tags Sensor
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.SensorStatus} "Sensor connected"
// @Failure 404 {object} utils.APIResponse "Device not found"
// @Router /api/v1/sensor/connect [post]
func (h *SensorHandler) ConnectSensor(c *gin.Context) {
	if err := h.sensorService.Connect(c.Request.Context()); err != nil {
		h.requestLogger(c).Error("Failed to connect sensor", zap.Error(err))
		utils.SensorErrorResponse(c, "Failed to connect sensor", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sensor connected", h.sensorService.Status())
}

// SendCommand sends a command and returns the sensor's reply
// @Summary Send command
// @Description Send a command and wait for the reply, reconnecting on failed reads
// @Tags Sensor
// @Accept json
// @Produce json
// @Param request body service.CommandRequest true "Command"
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Command completed"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Sensor not connected"
// @Failure 504 {object} utils.APIResponse "Retries exhausted"
// @Router /api/v1/sensor/commands [post]
func (h *SensorHandler) SendCommand(c *gin.Context) {
	var req service.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.sensorService.SendCommand(c.Request.Context(), &req)
	if err != nil {
		h.requestLogger(c).Error("Command failed", zap.String("command", req.Command), zap.Error(err))
		h.errorResponse(c, "Command failed", err)
		return
	}

	message := "Command completed"
	if result.Response == "" {
		message = "No response from sensor"
	}
	utils.SuccessResponse(c, http.StatusOK, message, result)
}

// SendRaw writes a command without waiting for a reply
// @Summary Send without reply
// @Description Write a command; any reply is collected by continuous read
// @Tags Sensor
// @Accept json
// @Produce json
// @Param request body service.SendRequest true "Command"
// @Success 202 {object} utils.APIResponse "Command sent"
// @Router /api/v1/sensor/send [post]
func (h *SensorHandler) SendRaw(c *gin.Context) {
	var req service.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.sensorService.Send(c.Request.Context(), req.Command); err != nil {
		h.errorResponse(c, "Failed to send command", err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Command sent", gin.H{"command": req.Command})
}

// ResetSensor reconnects at the known address
// @Summary Reset connection
// @Tags Sensor
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.SensorStatus} "Sensor reset"
// @Router /api/v1/sensor/reset [post]
func (h *SensorHandler) ResetSensor(c *gin.Context) {
	if err := h.sensorService.Reset(c.Request.Context()); err != nil {
		utils.SensorErrorResponse(c, "Failed to reset sensor", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sensor reset", h.sensorService.Status())
}

// ClearBuffer discards one pending read
// @Summary Clear input
// @Tags Sensor
// @Produce json
// @Success 200 {object} utils.APIResponse "Input cleared"
// @Router /api/v1/sensor/clear [post]
func (h *SensorHandler) ClearBuffer(c *gin.Context) {
	discarded, err := h.sensorService.ClearBuffer(c.Request.Context())
	if err != nil {
		utils.SensorErrorResponse(c, "Failed to clear input", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Input cleared", gin.H{"discarded": discarded})
}

// StartListening starts continuous read
// @Summary Start continuous read
// @Tags Sensor
// @Produce json
// @Success 200 {object} utils.APIResponse "Listening"
// @Failure 409 {object} utils.APIResponse "Not connected or already listening"
// @Router /api/v1/sensor/listen/start [post]
func (h *SensorHandler) StartListening(c *gin.Context) {
	if err := h.sensorService.StartListening(); err != nil {
		utils.SensorErrorResponse(c, "Failed to start listening", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Listening", h.sensorService.Status())
}

// StopListening stops continuous read
// @Summary Stop continuous read
// @Tags Sensor
// @Produce json
// @Success 200 {object} utils.APIResponse "Stopped listening"
// @Router /api/v1/sensor/listen/stop [post]
func (h *SensorHandler) StopListening(c *gin.Context) {
	h.sensorService.StopListening()
	utils.SuccessResponse(c, http.StatusOK, "Stopped listening", h.sensorService.Status())
}

// GetReadings drains collected readings
// @Summary Collect readings
// @Description Return every reading collected since the previous call
// @Tags Sensor
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.ReadingsBatch} "Readings collected"
// @Router /api/v1/sensor/readings [get]
func (h *SensorHandler) GetReadings(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Readings collected", h.sensorService.Readings())
}

// GetStatus returns the session status
// @Summary Sensor status
// @Tags Sensor
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.SensorStatus} "Sensor status"
// @Router /api/v1/sensor/status [get]
func (h *SensorHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Sensor status", h.sensorService.Status())
}

// ListPorts lists serial ports on the host
// @Summary List serial ports
// @Tags Sensor
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{ports_found=int,ports=[]discovery.PortInfo}} "Serial ports"
// @Router /api/v1/sensor/ports [get]
func (h *SensorHandler) ListPorts(c *gin.Context) {
	ports, err := discovery.ListPorts()
	if err != nil {
		h.logger.Error("Failed to list serial ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list serial ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Serial ports", gin.H{
		"ports_found": len(ports),
		"ports":       ports,
	})
}
