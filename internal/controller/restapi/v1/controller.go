package v1

import (
	"github.com/imgvault/imgvault/internal/usecase"
	"github.com/imgvault/imgvault/pkg/logger"
)

type V1 struct {
	img    usecase.ImageUseCase
	logger logger.Interface
}
