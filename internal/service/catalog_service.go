package service

import (
	"context"

	"github.com/prohmpiriya/queueme/internal/domain"
	"github.com/prohmpiriya/queueme/internal/repository"
	"github.com/prohmpiriya/queueme/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CatalogService serves the read-only service catalog
type CatalogService interface {
	ListServices(ctx context.Context) ([]*domain.Service, error)
}

type catalogService struct {
	services repository.ServiceRepository
}

// NewCatalogService creates a catalog service over services, which may be
// a cached repository
func NewCatalogService(services repository.ServiceRepository) CatalogService {
	return &catalogService{services: services}
}

// ListServices returns the catalog sorted by name
func (s *catalogService) ListServices(ctx context.Context) ([]*domain.Service, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.catalog.list")
	defer span.End()

	services, err := s.services.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if services == nil {
		services = []*domain.Service{}
	}

	span.SetAttributes(attribute.Int("count", len(services)))
	span.SetStatus(codes.Ok, "")
	return services, nil
}
