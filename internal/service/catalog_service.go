package service

import (
	"context"
	"fmt"
	"strings"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/shopspring/decimal"
)

type SKURequest struct {
	Code        string          `json:"code" binding:"required,max=100"`
	Barcode     string          `json:"barcode" binding:"max=100"`
	Name        string          `json:"name" binding:"required,max=255"`
	Description string          `json:"description"`
	CategoryID  *string         `json:"category_id"`
	Unit        string          `json:"unit" binding:"max=20"`
	MinStock    int             `json:"min_stock" binding:"min=0"`
	Cost        decimal.Decimal `json:"cost"`
	IsActive    *bool           `json:"is_active"`
}

type CatalogService interface {
	ListSKUs(ctx context.Context, filter repository.SKUFilter, page, limit int) ([]model.SKU, int64, error)
	GetSKU(ctx context.Context, id string) (*model.SKU, error)
	LookupSKU(ctx context.Context, code string) (*model.SKU, error)
	CreateSKU(ctx context.Context, actor *Actor, req SKURequest) (*model.SKU, error)
	UpdateSKU(ctx context.Context, actor *Actor, id string, req SKURequest) (*model.SKU, error)
	DeleteSKU(ctx context.Context, actor *Actor, id string) error
}

type catalogService struct {
	skuRepo      repository.SKURepository
	categoryRepo repository.ReferenceRepository[model.Category]
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewCatalogService(
	skuRepo repository.SKURepository,
	categoryRepo repository.ReferenceRepository[model.Category],
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) CatalogService {
	return &catalogService{skuRepo: skuRepo, categoryRepo: categoryRepo, auditRepo: auditRepo, txManager: txManager}
}

func (s *catalogService) ListSKUs(ctx context.Context, filter repository.SKUFilter, page, limit int) ([]model.SKU, int64, error) {
	page, limit = pageArgs(page, limit)
	skus, total, err := s.skuRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list skus: %w", err)
	}
	return skus, total, nil
}

func (s *catalogService) GetSKU(ctx context.Context, id string) (*model.SKU, error) {
	skuID, err := parseID(id, "sku")
	if err != nil {
		return nil, err
	}
	sku, err := s.skuRepo.FindByID(ctx, skuID)
	if err != nil {
		return nil, lookupError(err, "sku")
	}
	return sku, nil
}

// LookupSKU resolves a scanned code, matching either the SKU code or its barcode
func (s *catalogService) LookupSKU(ctx context.Context, code string) (*model.SKU, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationf("code is required")
	}
	sku, err := s.skuRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, lookupError(err, "sku")
	}
	return sku, nil
}

func (s *catalogService) CreateSKU(ctx context.Context, actor *Actor, req SKURequest) (*model.SKU, error) {
	sku := &model.SKU{IsActive: true}
	if err := s.apply(ctx, sku, req); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.skuRepo.Create(txCtx, sku); err != nil {
			return writeError(err, "create", "sku with this code or barcode")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionCreate, "sku", sku.ID.String(), sku.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSKU(ctx, sku.ID.String())
}

func (s *catalogService) UpdateSKU(ctx context.Context, actor *Actor, id string, req SKURequest) (*model.SKU, error) {
	sku, err := s.GetSKU(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, sku, req); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.skuRepo.Update(txCtx, sku); err != nil {
			return writeError(err, "update", "sku with this code or barcode")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "sku", sku.ID.String(), sku.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSKU(ctx, id)
}

func (s *catalogService) DeleteSKU(ctx context.Context, actor *Actor, id string) error {
	sku, err := s.GetSKU(ctx, id)
	if err != nil {
		return err
	}

	used, err := s.skuRepo.CountMovements(ctx, sku.ID)
	if err != nil {
		return fmt.Errorf("failed to count sku movements: %w", err)
	}
	if used > 0 {
		return conflictf("sku has %d movement(s); deactivate it instead", used)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.skuRepo.Delete(txCtx, sku.ID); err != nil {
			return writeError(err, "delete", "sku")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionDelete, "sku", sku.ID.String(), sku.Code, nil)
	})
}

func (s *catalogService) apply(ctx context.Context, sku *model.SKU, req SKURequest) error {
	if req.Cost.IsNegative() {
		return validationf("cost cannot be negative")
	}

	categoryID, err := parseOptionalID(req.CategoryID, "category")
	if err != nil {
		return err
	}
	if categoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *categoryID); err != nil {
			if repository.IsNotFound(err) {
				return validationf("category does not exist")
			}
			return fmt.Errorf("failed to fetch category: %w", err)
		}
	}

	sku.Code = strings.TrimSpace(req.Code)
	sku.Name = strings.TrimSpace(req.Name)
	sku.Description = req.Description
	sku.CategoryID = categoryID
	sku.Category = nil
	sku.MinStock = req.MinStock
	sku.Cost = req.Cost
	sku.Unit = strings.ToUpper(strings.TrimSpace(req.Unit))
	if sku.Unit == "" {
		sku.Unit = "UN"
	}
	sku.Barcode = nil
	if b := strings.TrimSpace(req.Barcode); b != "" {
		sku.Barcode = &b
	}
	if req.IsActive != nil {
		sku.IsActive = *req.IsActive
	}
	return nil
}
