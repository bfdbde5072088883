package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/models"
	"gorm.io/gorm"
)

// OrganizationRepository persists the company records employees belong to.
type OrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository constructs a new repository instance.
func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// EnsureOrganization finds an organization by domain, then by name, and
// creates it when neither matches.
func (r *OrganizationRepository) EnsureOrganization(ctx context.Context, name, description, domain string) (*models.Organization, error) {
	cleanName := strings.TrimSpace(name)
	if cleanName == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	cleanDomain := strings.TrimSpace(domain)
	db := r.db.WithContext(ctx)

	var org models.Organization
	if cleanDomain != "" {
		if err := db.Where("domain = ?", cleanDomain).First(&org).Error; err == nil {
			return r.refresh(ctx, &org, description, cleanDomain)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if err := db.Where("name = ?", cleanName).First(&org).Error; err == nil {
		return r.refresh(ctx, &org, description, cleanDomain)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	org = models.Organization{
		Name:        cleanName,
		Description: strings.TrimSpace(description),
		Domain:      cleanDomain,
		IsActive:    true,
	}
	if err := db.Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *OrganizationRepository) refresh(ctx context.Context, org *models.Organization, description, domain string) (*models.Organization, error) {
	updates := map[string]any{"is_active": true}
	if d := strings.TrimSpace(description); d != "" && org.Description != d {
		updates["description"] = d
	}
	if domain != "" && org.Domain != domain {
		updates["domain"] = domain
	}
	db := r.db.WithContext(ctx)
	if err := db.Model(org).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.First(org, "id = ?", org.ID).Error; err != nil {
		return nil, err
	}
	return org, nil
}

// GetByID fetches an organization.
func (r *OrganizationRepository) GetByID(ctx context.Context, id uint64) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

// Default returns the oldest active organization, the one imported rows fall under.
func (r *OrganizationRepository) Default(ctx context.Context) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").First(&org).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func init() {
	coreServer.RegisterRepository(constants.ComponentKey.OrganizationRepository, func(app *coreServer.HTTPApp) (interface{}, error) {
		if app.DB == nil {
			return nil, fmt.Errorf("database not initialised")
		}
		return NewOrganizationRepository(app.DB), nil
	})
}
