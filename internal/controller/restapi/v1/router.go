package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/imgvault/imgvault/internal/usecase"
	"github.com/imgvault/imgvault/pkg/logger"
)

func NewImageRoutes(apiV1Group fiber.Router, img usecase.ImageUseCase, l logger.Interface) {
	r := &V1{img: img, logger: l}

	{
		apiV1Group.Post("/images", r.uploadImage)
		apiV1Group.Get("/images/:id", r.getImage)
		apiV1Group.Get("/images/:id/file", r.downloadImage)
		apiV1Group.Get("/images/:id/preview/:size", r.downloadPreview)
	}
}
