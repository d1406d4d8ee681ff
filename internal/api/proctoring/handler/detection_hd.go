package proctoringHandler

import (
	"ProctorGolang/internal/api/proctoring"
	"ProctorGolang/internal/entity"
	contextPkg "ProctorGolang/pkg/context"
	"ProctorGolang/pkg/handlerUtil"
	"ProctorGolang/pkg/log"
	"ProctorGolang/pkg/utils"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// DetectFace accepts a multipart "image" file or a JSON body with a base64
// (or data URL) "image" and returns the frame analysis.
func (h *ProctoringHandler) DetectFace(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing face detection request")

	var frame *entity.Frame

	file, err := ctx.FormFile("image")
	if err == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		data, err := h.utils.ReadImageFile(file)
		if err != nil {
			return errHandler.Handle(ctx, requestID, imageError(err), ctx.Path(), "read_image_file")
		}

		frame, err = h.utils.DecodeImage(data)
		if err != nil {
			return errHandler.Handle(ctx, requestID, imageError(err), ctx.Path(), "decode_image")
		}
	} else {
		var req proctoring.DetectFaceRequest
		if len(ctx.Body()) == 0 {
			return errHandler.Handle(ctx, requestID, proctoring.ErrMissingImage, ctx.Path(), "parse_request_body")
		}
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, proctoring.ErrInvalidImage, ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.Handle(ctx, requestID, proctoring.ErrMissingImage, ctx.Path(), "validate_request")
		}

		frame, err = h.utils.DecodeBase64Image(req.Image)
		if err != nil {
			return errHandler.Handle(ctx, requestID, imageError(err), ctx.Path(), "decode_image")
		}
	}

	analysis, err := h.proctoringService.Analyze(c, frame)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_frame")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"status":     analysis.Status,
			"face_count": analysis.FaceCount,
			"gaze":       analysis.Gaze,
			"risk_score": analysis.RiskScore,
		}).Info("Face detection successful")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, proctoring.DetectFaceResponse{
			Status:    string(analysis.Status),
			FaceCount: analysis.FaceCount,
			Gaze:      string(analysis.Gaze),
			Objects:   analysis.Objects,
			RiskScore: analysis.RiskScore,
		})
	}
}

// imageError maps image decoding failures to client errors.
func imageError(err error) error {
	switch {
	case errors.Is(err, utils.ErrEmptyImage):
		return proctoring.ErrMissingImage
	case errors.Is(err, utils.ErrInvalidBase64),
		errors.Is(err, utils.ErrUndecodableImage),
		errors.Is(err, utils.ErrNotAnImage),
		errors.Is(err, utils.ErrFileTooLarge):
		return proctoring.ErrInvalidImage
	default:
		return err
	}
}
