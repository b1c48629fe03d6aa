package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zyllen/internal/model"
	"zyllen/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AssetRequest struct {
	// Generated as PAT-000001 when empty
	Tag          string          `json:"tag" binding:"max=50"`
	Name         string          `json:"name" binding:"required,max=255"`
	Description  string          `json:"description"`
	SKUID        *string         `json:"sku_id"`
	LocationID   *string         `json:"location_id"`
	CompanyID    *string         `json:"company_id"`
	SerialNumber string          `json:"serial_number" binding:"max=100"`
	Status       string          `json:"status" binding:"omitempty,oneof=ACTIVE IN_MAINTENANCE LOANED RETIRED"`
	AcquiredAt   *time.Time      `json:"acquired_at"`
	Value        decimal.Decimal `json:"value"`
}

type TransferAssetRequest struct {
	LocationID string  `json:"location_id" binding:"required,uuid"`
	CompanyID  *string `json:"company_id"`
	Note       string  `json:"note"`
}

type AssetService interface {
	ListAssets(ctx context.Context, filter repository.AssetFilter, page, limit int) ([]model.Asset, int64, error)
	GetAsset(ctx context.Context, id string) (*model.Asset, error)
	CreateAsset(ctx context.Context, actor *Actor, req AssetRequest) (*model.Asset, error)
	UpdateAsset(ctx context.Context, actor *Actor, id string, req AssetRequest) (*model.Asset, error)
	DeleteAsset(ctx context.Context, actor *Actor, id string) error
	TransferAsset(ctx context.Context, actor *Actor, id string, req TransferAssetRequest) (*model.Asset, error)
}

type assetService struct {
	assetRepo    repository.AssetRepository
	skuRepo      repository.SKURepository
	locationRepo repository.ReferenceRepository[model.Location]
	companyRepo  repository.ReferenceRepository[model.Company]
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewAssetService(
	assetRepo repository.AssetRepository,
	skuRepo repository.SKURepository,
	locationRepo repository.ReferenceRepository[model.Location],
	companyRepo repository.ReferenceRepository[model.Company],
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) AssetService {
	return &assetService{
		assetRepo:    assetRepo,
		skuRepo:      skuRepo,
		locationRepo: locationRepo,
		companyRepo:  companyRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

func (s *assetService) ListAssets(ctx context.Context, filter repository.AssetFilter, page, limit int) ([]model.Asset, int64, error) {
	page, limit = pageArgs(page, limit)
	assets, total, err := s.assetRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, total, nil
}

func (s *assetService) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	assetID, err := parseID(id, "asset")
	if err != nil {
		return nil, err
	}
	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		return nil, lookupError(err, "asset")
	}
	return asset, nil
}

func (s *assetService) CreateAsset(ctx context.Context, actor *Actor, req AssetRequest) (*model.Asset, error) {
	asset := &model.Asset{Status: model.AssetActive}
	if err := s.apply(ctx, asset, req); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if asset.Tag == "" {
			tag, err := s.assetRepo.NextTag(txCtx)
			if err != nil {
				return fmt.Errorf("failed to generate asset tag: %w", err)
			}
			asset.Tag = tag
		}
		if err := s.assetRepo.Create(txCtx, asset); err != nil {
			return writeError(err, "create", "asset with this tag")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionCreate, "asset", asset.ID.String(), asset.Tag, req)
	})
	if err != nil {
		return nil, err
	}
	return s.GetAsset(ctx, asset.ID.String())
}

func (s *assetService) UpdateAsset(ctx context.Context, actor *Actor, id string, req AssetRequest) (*model.Asset, error) {
	asset, err := s.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Tag == "" {
		req.Tag = asset.Tag
	}
	if err := s.apply(ctx, asset, req); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.assetRepo.Update(txCtx, asset); err != nil {
			return writeError(err, "update", "asset with this tag")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "asset", asset.ID.String(), asset.Tag, req)
	})
	if err != nil {
		return nil, err
	}
	return s.GetAsset(ctx, id)
}

func (s *assetService) DeleteAsset(ctx context.Context, actor *Actor, id string) error {
	asset, err := s.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if asset.Status == model.AssetInMaintenance {
		return conflictf("asset %s is in maintenance", asset.Tag)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.assetRepo.Delete(txCtx, asset.ID); err != nil {
			return writeError(err, "delete", "asset")
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionDelete, "asset", asset.ID.String(), asset.Tag, nil)
	})
}

func (s *assetService) TransferAsset(ctx context.Context, actor *Actor, id string, req TransferAssetRequest) (*model.Asset, error) {
	assetID, err := parseID(id, "asset")
	if err != nil {
		return nil, err
	}
	locationID, err := s.requireLocation(ctx, &req.LocationID)
	if err != nil {
		return nil, err
	}
	companyID, err := s.requireCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		asset, err := s.assetRepo.FindByIDForUpdate(txCtx, assetID)
		if err != nil {
			return lookupError(err, "asset")
		}
		if asset.Status == model.AssetRetired {
			return fmt.Errorf("%w: retired asset %s cannot be transferred", ErrInvalidTransition, asset.Tag)
		}
		if asset.Status == model.AssetInMaintenance {
			return fmt.Errorf("%w: asset %s is in maintenance", ErrInvalidTransition, asset.Tag)
		}

		from := asset.LocationID
		asset.LocationID = locationID
		if req.CompanyID != nil {
			asset.CompanyID = companyID
		}
		if err := s.assetRepo.Update(txCtx, asset); err != nil {
			return fmt.Errorf("failed to transfer asset: %w", err)
		}
		return audit(txCtx, s.auditRepo, actor, model.ActionUpdate, "asset", asset.ID.String(), asset.Tag, map[string]interface{}{
			"transfer_from": from,
			"transfer_to":   locationID,
			"company_id":    asset.CompanyID,
			"note":          req.Note,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetAsset(ctx, id)
}

func (s *assetService) apply(ctx context.Context, asset *model.Asset, req AssetRequest) error {
	if req.Value.IsNegative() {
		return validationf("value cannot be negative")
	}

	skuID, err := parseOptionalID(req.SKUID, "sku")
	if err != nil {
		return err
	}
	if skuID != nil {
		if _, err := s.skuRepo.FindByID(ctx, *skuID); err != nil {
			if repository.IsNotFound(err) {
				return validationf("sku does not exist")
			}
			return fmt.Errorf("failed to fetch sku: %w", err)
		}
	}
	locationID, err := s.requireLocation(ctx, req.LocationID)
	if err != nil {
		return err
	}
	companyID, err := s.requireCompany(ctx, req.CompanyID)
	if err != nil {
		return err
	}

	if req.Status != "" {
		status := strings.ToUpper(req.Status)
		if !model.ValidAssetStatus(status) {
			return validationf("unknown asset status '%s'", req.Status)
		}
		asset.Status = status
	}

	asset.Tag = strings.ToUpper(strings.TrimSpace(req.Tag))
	asset.Name = strings.TrimSpace(req.Name)
	asset.Description = req.Description
	asset.SKUID, asset.SKU = skuID, nil
	asset.LocationID, asset.Location = locationID, nil
	asset.CompanyID, asset.Company = companyID, nil
	asset.SerialNumber = strings.TrimSpace(req.SerialNumber)
	asset.AcquiredAt = req.AcquiredAt
	asset.Value = req.Value
	return nil
}

func (s *assetService) requireLocation(ctx context.Context, raw *string) (*uuid.UUID, error) {
	id, err := parseOptionalID(raw, "location")
	if err != nil || id == nil {
		return id, err
	}
	if _, err := s.locationRepo.FindByID(ctx, *id); err != nil {
		if repository.IsNotFound(err) {
			return nil, validationf("location does not exist")
		}
		return nil, fmt.Errorf("failed to fetch location: %w", err)
	}
	return id, nil
}

func (s *assetService) requireCompany(ctx context.Context, raw *string) (*uuid.UUID, error) {
	id, err := parseOptionalID(raw, "company")
	if err != nil || id == nil {
		return id, err
	}
	if _, err := s.companyRepo.FindByID(ctx, *id); err != nil {
		if repository.IsNotFound(err) {
			return nil, validationf("company does not exist")
		}
		return nil, fmt.Errorf("failed to fetch company: %w", err)
	}
	return id, nil
}
