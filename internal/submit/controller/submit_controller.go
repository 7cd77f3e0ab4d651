package controller

import (
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mlgrader/internal/submit/service"
	"mlgrader/pkg/utils/logger"
	"mlgrader/pkg/utils/response"
)

// SubmitController exposes the chat surface over HTTP. The chat transport
// (bot adapter, test client) delivers student messages and archives here and
// relays the reply text back to the student.
type SubmitController struct {
	registration *service.RegistrationService
	intake       *service.IntakeService
	status       *service.StatusService
	maxBodyBytes int64
}

func NewSubmitController(
	registration *service.RegistrationService,
	intake *service.IntakeService,
	status *service.StatusService,
	maxBodyBytes int64,
) *SubmitController {
	return &SubmitController{
		registration: registration,
		intake:       intake,
		status:       status,
		maxBodyBytes: maxBodyBytes,
	}
}

// RegisterRoutes mounts the chat endpoints under /api/v1.
func (ctl *SubmitController) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/v1")
	api.POST("/messages", ctl.HandleMessage)
	api.POST("/submissions", ctl.HandleSubmission)
	api.GET("/status/:identity", ctl.HandleStatus)
}

type messageRequest struct {
	Identity int64  `json:"identity" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// HandleMessage processes one text message from a student.
func (ctl *SubmitController) HandleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "identity and text are required")
		return
	}

	var reply string
	var err error
	if strings.TrimSpace(req.Text) == "/status" {
		reply, err = ctl.status.Report(c.Request.Context(), req.Identity)
	} else {
		reply, err = ctl.registration.HandleMessage(c.Request.Context(), req.Identity, req.Text)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"reply": reply})
}

// HandleSubmission accepts a solution archive as a multipart upload.
func (ctl *SubmitController) HandleSubmission(c *gin.Context) {
	identity, err := strconv.ParseInt(c.PostForm("identity"), 10, 64)
	if err != nil || identity <= 0 {
		response.BadRequest(c, "identity must be a positive integer")
		return
	}

	fileHeader, err := c.FormFile("archive")
	if err != nil {
		response.BadRequest(c, "archive file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "archive file could not be read")
		return
	}
	defer file.Close()

	archive, err := io.ReadAll(io.LimitReader(file, ctl.maxBodyBytes))
	if err != nil {
		logger.Error(c.Request.Context(), "read archive upload failed", zap.Error(err))
		response.InternalServerError(c, err)
		return
	}

	reply, err := ctl.intake.Submit(c.Request.Context(), identity, archive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"reply": reply})
}

// HandleStatus returns the status report without going through the dialogue.
func (ctl *SubmitController) HandleStatus(c *gin.Context) {
	identity, err := strconv.ParseInt(c.Param("identity"), 10, 64)
	if err != nil || identity <= 0 {
		response.BadRequest(c, "identity must be a positive integer")
		return
	}
	report, err := ctl.status.Report(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"report": report})
}
