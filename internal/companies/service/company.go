package service

import (
	"context"
	"errors"

	companieserrors "jobfair/internal/companies/errors"
	"jobfair/internal/companies/repository"
	"jobfair/internal/companies/validator"
	"jobfair/pkg/config"
	apperrors "jobfair/pkg/errors"
	"jobfair/pkg/model"
	"jobfair/pkg/sanitizer"

	"golang.org/x/sync/errgroup"
)

type CompanyService interface {
	Create(ctx context.Context, company *model.Company) error
	GetByID(ctx context.Context, id string) (*model.Company, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Company, int64, error)
}

type companyService struct {
	repo      repository.CompanyRepository
	validator *validator.CompanyValidator
	cfg       *config.Config
}

func NewCompanyService(repo repository.CompanyRepository, validator *validator.CompanyValidator, cfg *config.Config) CompanyService {
	return &companyService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *companyService) Create(ctx context.Context, company *model.Company) error {
	company.ID = ""
	s.sanitize(company)

	if err := s.validator.Validate(company); err != nil {
		s.cfg.Log.Warn("Company validation failed", "error", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.InvalidInput("Invalid company input").WithDetails(map[string]any{"errors": verrs})
		}
		return apperrors.InvalidInput(err.Error())
	}

	if err := s.repo.Create(ctx, company); err != nil {
		s.cfg.Log.Error("Failed to create company", "name", company.Name, "error", err)
		return apperrors.StorageFailure("Failed to create company", err)
	}

	s.cfg.Log.Info("Company created successfully", "id", company.ID, "name", company.Name)
	return nil
}

func (s *companyService) GetByID(ctx context.Context, id string) (*model.Company, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Company ID cannot be empty")
	}

	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, companieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Company", id)
		}
		if errors.Is(err, companieserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid company ID format")
		}
		s.cfg.Log.Error("Failed to retrieve company", "id", id, "error", err)
		return nil, apperrors.StorageFailure("Failed to retrieve company", err)
	}

	return company, nil
}

func (s *companyService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Company, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		count     int64
		companies []*model.Company
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		count, err = s.repo.Count(gctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count companies", "error", err)
			return apperrors.StorageFailure("Failed to count companies", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		companies, err = s.repo.FindAll(gctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list companies", "limit", limit, "offset", offset, "error", err)
			return apperrors.StorageFailure("Failed to retrieve companies", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return companies, count, nil
}

func (s *companyService) sanitize(c *model.Company) {
	c.Name = sanitizer.TrimAndNormalize(c.Name)
	c.Address = sanitizer.TrimAndNormalize(c.Address)
	c.Website = sanitizer.SanitizeURL(c.Website)
	c.Description = sanitizer.TrimMultiline(c.Description)
	c.Tel = sanitizer.SanitizePhone(c.Tel)
}
