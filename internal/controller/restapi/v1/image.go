package v1

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/imgvault/imgvault/pkg/types/errs"
)

// uploadImage ingests a multipart original. Validation failures carry
// no side effects; a blob store fault maps to 502 so callers know to
// retry, a metadata fault to 500.
func (r *V1) uploadImage(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "file is required")
	}

	contentType := file.Header.Get("Content-Type")

	fileReader, err := file.Open()
	if err != nil {
		r.logger.Error(err, "restapi - v1 - uploadImage - file.Open")

		return errorResponse(ctx, http.StatusInternalServerError, "problems with opening the file")
	}
	defer fileReader.Close()

	data, err := io.ReadAll(fileReader)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - uploadImage - io.ReadAll")

		return errorResponse(ctx, http.StatusInternalServerError, "problems with reading the file")
	}

	image, err := r.img.Upload(ctx.UserContext(), file.Filename, contentType, data)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnsupportedMediaType):
			return errorResponse(ctx, http.StatusUnsupportedMediaType,
				fmt.Sprintf("unsupported content type: %s", contentType))
		case errors.Is(err, errs.ErrEmptyPayload):
			return errorResponse(ctx, http.StatusBadRequest, "uploaded file is empty")
		case errors.Is(err, errs.ErrStorageUnavailable):
			r.logger.Error(err, "restapi - v1 - uploadImage")

			return errorResponse(ctx, http.StatusBadGateway, "failed to store image")
		default:
			r.logger.Error(err, "restapi - v1 - uploadImage")

			return errorResponse(ctx, http.StatusInternalServerError, "failed to save image metadata")
		}
	}

	return ctx.Status(http.StatusCreated).JSON(image)
}

func (r *V1) getImage(ctx *fiber.Ctx) error {
	id, err := parseID(ctx)
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	image, err := r.img.GetRecord(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "image not found")
		}
		r.logger.Error(err, "restapi - v1 - getImage")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.JSON(image)
}

func (r *V1) downloadImage(ctx *fiber.Ctx) error {
	id, err := parseID(ctx)
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	body, image, err := r.img.StreamOriginal(ctx.UserContext(), id)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrRecordNotFound), errors.Is(err, errs.ErrObjectNotFound):
			return errorResponse(ctx, http.StatusNotFound, "image not found")
		default:
			r.logger.Error(err, "restapi - v1 - downloadImage")

			return errorResponse(ctx, http.StatusBadGateway, "failed to fetch image from storage")
		}
	}

	filename := image.OriginalFilename
	if filename == "" {
		filename = image.ID.String()
	}

	ctx.Set(fiber.HeaderContentType, image.ContentType)
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", filename))

	// fasthttp closes the stream on every exit path
	return ctx.SendStream(body, int(image.SizeBytes))
}

func (r *V1) downloadPreview(ctx *fiber.Ctx) error {
	id, err := parseID(ctx)
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	size, err := strconv.Atoi(ctx.Params("size"))
	if err != nil || size <= 0 {
		return errorResponse(ctx, http.StatusBadRequest, "invalid size")
	}

	body, image, err := r.img.StreamPreview(ctx.UserContext(), id, size)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrRecordNotFound):
			return errorResponse(ctx, http.StatusNotFound, "image not found")
		case errors.Is(err, errs.ErrObjectNotFound):
			// never generated (or generation failed); distinct from a
			// backend fault
			return errorResponse(ctx, http.StatusNotFound, "preview not found")
		default:
			r.logger.Error(err, "restapi - v1 - downloadPreview")

			return errorResponse(ctx, http.StatusBadGateway, "failed to fetch preview from storage")
		}
	}

	ctx.Set(fiber.HeaderContentType, image.ContentType)

	return ctx.SendStream(body)
}

func parseID(ctx *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(ctx.Params("id"))
}
