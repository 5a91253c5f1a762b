package restapi

import (
	"github.com/gofiber/fiber/v2"

	v1 "github.com/imgvault/imgvault/internal/controller/restapi/v1"
	"github.com/imgvault/imgvault/internal/usecase"
	"github.com/imgvault/imgvault/pkg/logger"
)

func NewRouter(app *fiber.App, img usecase.ImageUseCase, l logger.Interface) {
	apiV1Group := app.Group("/v1")
	{
		v1.NewImageRoutes(apiV1Group, img, l)
	}
}
