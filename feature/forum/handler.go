package forum

import (
	"bytes"
	"errors"
	"strings"

	"forum-importer/core/logger"
	"forum-importer/core/reconcile"
	"forum-importer/core/utils"
	"forum-importer/feature/forum/records"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ConfirmHeader must be "yes" for an import that purges existing data.
const ConfirmHeader = "X-Confirm-Purge"

// Handler handles HTTP requests for forum imports.
type Handler struct {
	service *Service
	limiter fiber.Handler
}

// NewHandler creates a new HTTP handler. limiter may be nil.
func NewHandler(service *Service, limiter fiber.Handler) *Handler {
	return &Handler{service: service, limiter: limiter}
}

// RegisterRoutes registers the import routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/import")
	if h.limiter != nil {
		group.Use(h.limiter)
	}
	group.Post("/", h.HandleImport)
	group.Post("/object", h.HandleImportObject)
	group.Post("/preview", h.HandlePreview)
	group.Post("/recount", h.HandleRecount)
}

// HandleImport imports the record set in the request body.
// @Summary Import Records
// @Description Reconciles the posted record set (JSON or YAML) against the forum database. Purging requires the X-Confirm-Purge: yes header.
// @Tags import
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param clear query boolean false "Purge existing forum data first"
// @Param report query boolean false "Upload the result JSON to the bucket"
// @Param X-Confirm-Purge header string false "Must be yes when clear=true"
// @Success 200 {object} map[string]interface{} "Import Result"
// @Failure 400 {object} map[string]string "Malformed record set"
// @Failure 428 {object} map[string]string "Purge not confirmed"
// @Failure 500 {object} map[string]interface{} "Import aborted"
// @Router /import [post]
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	req, ok := importRequest(c)
	if !ok {
		return purgeNotConfirmed(c)
	}

	set, err := records.Decode(bytes.NewReader(c.Body()), bodyFormat(c))
	if err != nil {
		l.Warn("Rejected record set", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	l.Info("Import requested", zap.Int("records", set.Len()), zap.Bool("clear", req.ClearExisting))
	resp, err := h.service.Import(c.UserContext(), set, req)
	return h.respond(c, l, resp, err)
}

// HandleImportObject imports a record set stored in the bucket.
// @Summary Import Records From Storage
// @Description Loads a record set object from the configured bucket and imports it.
// @Tags import
// @Security ApiKeyAuth
// @Produce json
// @Param key query string true "Object key"
// @Param format query string false "json or yaml (default: from key extension)"
// @Param clear query boolean false "Purge existing forum data first"
// @Param report query boolean false "Upload the result JSON to the bucket"
// @Success 200 {object} map[string]interface{} "Import Result"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]interface{} "Import aborted"
// @Router /import/object [post]
func (h *Handler) HandleImportObject(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	key := c.Query("key")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Object key is required"})
	}

	var format records.Format
	if f := c.Query("format"); f != "" {
		parsed, err := records.ParseFormat(f)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		format = parsed
	}

	req, ok := importRequest(c)
	if !ok {
		return purgeNotConfirmed(c)
	}

	l.Info("Import from storage requested", zap.String("key", key), zap.Bool("clear", req.ClearExisting))
	resp, err := h.service.ImportObject(c.UserContext(), key, format, req)
	return h.respond(c, l, resp, err)
}

// HandlePreview reports what an import would do.
// @Summary Preview Import
// @Description Compares natural keys of the posted record set with the database without writing.
// @Tags import
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param clear query boolean false "Preview a purging import"
// @Success 200 {object} map[string]interface{} "Preview Report"
// @Failure 400 {object} map[string]string "Malformed record set"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /import/preview [post]
func (h *Handler) HandlePreview(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	set, err := records.Decode(bytes.NewReader(c.Body()), bodyFormat(c))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	report, err := h.service.Preview(c.UserContext(), set, utils.ToBool(c.Query("clear")))
	if err != nil {
		l.Error("Preview failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

// HandleRecount recalculates denormalized counters.
// @Summary Recount Statistics
// @Description Recomputes posts.comment_count and tags.post_count from the relational data.
// @Tags import
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} map[string]interface{} "Recount Stats"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /import/recount [post]
func (h *Handler) HandleRecount(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	stats, err := h.service.Recount(c.UserContext())
	if err != nil {
		l.Error("Recount failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "recounted", "stats": stats})
}

// importRequest reads the shared query options. ok is false when a purge
// was requested without confirmation.
func importRequest(c *fiber.Ctx) (ImportRequest, bool) {
	req := ImportRequest{
		ClearExisting: utils.ToBool(c.Query("clear")),
		UploadReport:  utils.ToBool(c.Query("report")),
	}
	if req.ClearExisting && !strings.EqualFold(c.Get(ConfirmHeader), "yes") {
		return req, false
	}
	return req, true
}

func purgeNotConfirmed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusPreconditionRequired).JSON(fiber.Map{
		"error": "Purging existing data requires the " + ConfirmHeader + ": yes header",
	})
}

func (h *Handler) respond(c *fiber.Ctx, l *zap.Logger, resp *ImportResponse, err error) error {
	if err == nil {
		return c.JSON(resp)
	}

	switch {
	case errors.Is(err, ErrNoDatabase), errors.Is(err, ErrNoStorage):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case resp == nil:
		l.Warn("Import rejected", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	l.Error("Import aborted", zap.Error(err), zap.Bool("store_failure", reconcile.IsStoreFailure(err)))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":  err.Error(),
		"result": resp,
	})
}

// bodyFormat picks the decoder from the Content-Type header.
func bodyFormat(c *fiber.Ctx) records.Format {
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	if strings.Contains(ct, "yaml") {
		return records.FormatYAML
	}
	return records.FormatJSON
}
