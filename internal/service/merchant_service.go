package service

import (
	"context"
	"fmt"
	"time"

	"digital-wallet/internal/core/domain"
	"digital-wallet/internal/core/ports"
	"digital-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MerchantServiceImpl implements ports.MerchantService.
type MerchantServiceImpl struct {
	merchantRepo ports.MerchantRepository
	idGen        ports.IdentifierGenerator
	log          zerolog.Logger
}

func NewMerchantService(merchantRepo ports.MerchantRepository, idGen ports.IdentifierGenerator, log zerolog.Logger) *MerchantServiceImpl {
	return &MerchantServiceImpl{
		merchantRepo: merchantRepo,
		idGen:        idGen,
		log:          log,
	}
}

// RegisterMerchant adds a merchant to the directory with a freshly minted
// merchant code.
func (s *MerchantServiceImpl) RegisterMerchant(ctx context.Context, req ports.RegisterMerchantRequest) (*domain.Merchant, error) {
	if req.MerchantName == "" {
		return nil, apperror.Validation("merchant name is required")
	}
	if req.Email == "" {
		return nil, apperror.Validation("email is required")
	}

	now := time.Now().UTC()
	merchant := &domain.Merchant{
		ID:           uuid.New(),
		MerchantCode: s.idGen.MerchantCode(),
		MerchantName: req.MerchantName,
		Email:        req.Email,
		Category:     req.Category,
		Status:       domain.MerchantStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create merchant: %w", err))
	}

	s.log.Info().
		Str("merchant_id", merchant.ID.String()).
		Str("merchant_code", merchant.MerchantCode).
		Msg("merchant registered")

	return merchant, nil
}

// GetMerchantByCode fetches a merchant by its code.
func (s *MerchantServiceImpl) GetMerchantByCode(ctx context.Context, code string) (*domain.Merchant, error) {
	merchant, err := s.merchantRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get merchant: %w", err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	return merchant, nil
}
