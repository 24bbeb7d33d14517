package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

type AddressDTO struct {
	ID        int64              `json:"id"`
	UserID    int64              `json:"user_id"`
	Label     model.AddressLabel `json:"label"`
	FullName  string             `json:"full_name"`
	Address   string             `json:"address"`
	City      string             `json:"city"`
	Phone     string             `json:"phone"`
	Region    model.Region       `json:"region"`
	IsDefault bool               `json:"is_default"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt *string            `json:"updated_at,omitempty"`
}

// 作成・更新で共通
type AddressRequest struct {
	Label    model.AddressLabel `json:"label"`
	FullName string             `json:"full_name"`
	Address  string             `json:"address"`
	City     string             `json:"city"`
	Phone    string             `json:"phone"`
	Region   model.Region       `json:"region"`
}

type AddressUsecase struct {
	addresses repository.AddressRepository
	clock     Clock
}

func NewAddressUsecase(addresses repository.AddressRepository, clock Clock) *AddressUsecase {
	return &AddressUsecase{addresses: addresses, clock: clock}
}

// 宛名・住所・市・電話は必須
func validateAddressFields(fullName, address, city, phone string, region model.Region) error {
	if fullName == "" || address == "" || city == "" || phone == "" {
		return badRequest("full_name, address, city and phone are required")
	}
	if !region.IsValid() {
		return badRequest("invalid region")
	}
	return nil
}

func (req AddressRequest) normalize() (AddressRequest, error) {
	out := AddressRequest{
		Label:    req.Label,
		FullName: strings.TrimSpace(req.FullName),
		Address:  strings.TrimSpace(req.Address),
		City:     strings.TrimSpace(req.City),
		Phone:    strings.TrimSpace(req.Phone),
		Region:   req.Region,
	}
	if out.Label == "" {
		out.Label = model.AddressLabelHome
	}
	if !out.Label.IsValid() {
		return AddressRequest{}, badRequest("invalid label")
	}
	if err := validateAddressFields(out.FullName, out.Address, out.City, out.Phone, out.Region); err != nil {
		return AddressRequest{}, err
	}
	return out, nil
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, ErrInternal
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

// 最初の住所はデフォルトになる
func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, ErrUnauthorized
	}
	req, err := req.normalize()
	if err != nil {
		return AddressDTO{}, err
	}

	n, err := u.addresses.CountByUserID(ctx, userID)
	if err != nil {
		return AddressDTO{}, ErrInternal
	}

	now := u.clock.Now()
	created, err := u.addresses.Create(ctx, model.Address{
		UserID:    userID,
		Label:     req.Label,
		FullName:  req.FullName,
		Address:   req.Address,
		City:      req.City,
		Phone:     req.Phone,
		Region:    req.Region,
		IsDefault: n == 0,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return AddressDTO{}, ErrInternal
	}

	return toAddressDTO(&created), nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, ErrUnauthorized
	}
	req, err := req.normalize()
	if err != nil {
		return AddressDTO{}, err
	}

	current, err := u.findOwned(ctx, userID, addressID)
	if err != nil {
		return AddressDTO{}, err
	}

	current.Label = req.Label
	current.FullName = req.FullName
	current.Address = req.Address
	current.City = req.City
	current.Phone = req.Phone
	current.Region = req.Region
	current.UpdatedAt = u.clock.Now()

	if err := u.addresses.Update(ctx, current); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AddressDTO{}, ErrNotFound
		}
		return AddressDTO{}, ErrInternal
	}

	return toAddressDTO(&current), nil
}

// デフォルトを消したら残りの先頭をデフォルトにする
func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}

	current, err := u.findOwned(ctx, userID, addressID)
	if err != nil {
		return err
	}

	if err := u.addresses.Delete(ctx, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	if !current.IsDefault {
		return nil
	}
	rest, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return ErrInternal
	}
	if len(rest) == 0 {
		return nil
	}
	if err := u.addresses.SetDefault(ctx, userID, rest[0].ID); err != nil {
		return ErrInternal
	}
	return nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}

	if _, err := u.findOwned(ctx, userID, addressID); err != nil {
		return err
	}

	//user内でdefaultは1つ
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}

	return nil
}

// 存在しなければ404、他人の住所なら403
func (u *AddressUsecase) findOwned(ctx context.Context, userID, addressID int64) (model.Address, error) {
	if addressID <= 0 {
		return model.Address{}, ErrValidation
	}
	a, err := u.addresses.FindByID(ctx, addressID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Address{}, ErrNotFound
	}
	if err != nil {
		return model.Address{}, ErrInternal
	}
	if a.UserID != userID {
		return model.Address{}, ErrForbidden
	}
	return a, nil
}

func toAddressDTO(a *model.Address) AddressDTO {
	dto := AddressDTO{
		ID:        a.ID,
		UserID:    a.UserID,
		Label:     a.Label,
		FullName:  a.FullName,
		Address:   a.Address,
		City:      a.City,
		Phone:     a.Phone,
		Region:    a.Region,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	t := a.UpdatedAt.Format(time.RFC3339)
	dto.UpdatedAt = &t
	return dto
}
