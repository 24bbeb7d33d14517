package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressReq(label model.AddressLabel) usecase.AddressRequest {
	return usecase.AddressRequest{
		Label:    label,
		FullName: " Sita Sharma ",
		Address:  "Baneshwor 10",
		City:     "Kathmandu",
		Phone:    "9800000000",
		Region:   model.RegionKathmanduValley,
	}
}

func TestAddressUsecase_Create_FirstBecomesDefault(t *testing.T) {
	uc := usecase.NewAddressUsecase(newMemAddresses(), fixedClock{testNow})

	first, err := uc.Create(context.Background(), 1, addressReq(""))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, model.AddressLabelHome, first.Label)
	assert.Equal(t, "Sita Sharma", first.FullName)

	second, err := uc.Create(context.Background(), 1, addressReq(model.AddressLabelWork))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)
}

func TestAddressUsecase_Create_Validation(t *testing.T) {
	uc := usecase.NewAddressUsecase(newMemAddresses(), fixedClock{testNow})

	bad := addressReq("")
	bad.Phone = "  "
	_, err := uc.Create(context.Background(), 1, bad)
	assertHTTPError(t, err, http.StatusBadRequest, "full_name, address, city and phone are required")

	bad = addressReq("Villa")
	_, err = uc.Create(context.Background(), 1, bad)
	assertHTTPError(t, err, http.StatusBadRequest, "invalid label")

	bad = addressReq("")
	bad.Region = "Mars"
	_, err = uc.Create(context.Background(), 1, bad)
	assertHTTPError(t, err, http.StatusBadRequest, "invalid region")

	_, err = uc.Create(context.Background(), 0, addressReq(""))
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)
}

func TestAddressUsecase_Delete_PromotesNext(t *testing.T) {
	addrs := newMemAddresses()
	uc := usecase.NewAddressUsecase(addrs, fixedClock{testNow})

	first, err := uc.Create(context.Background(), 1, addressReq(""))
	require.NoError(t, err)
	second, err := uc.Create(context.Background(), 1, addressReq(model.AddressLabelWork))
	require.NoError(t, err)

	require.NoError(t, uc.Delete(context.Background(), 1, first.ID))

	list, err := uc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
}

func TestAddressUsecase_OwnerChecks(t *testing.T) {
	uc := usecase.NewAddressUsecase(newMemAddresses(), fixedClock{testNow})
	a, err := uc.Create(context.Background(), 1, addressReq(""))
	require.NoError(t, err)

	// 他人の住所は 403、存在しなければ 404
	_, err = uc.Update(context.Background(), 2, a.ID, addressReq(model.AddressLabelOther))
	assert.ErrorIs(t, err, usecase.ErrForbidden)
	assert.ErrorIs(t, uc.Delete(context.Background(), 2, a.ID), usecase.ErrForbidden)
	assert.ErrorIs(t, uc.SetDefault(context.Background(), 1, 999), usecase.ErrNotFound)
}

func TestAddressUsecase_SetDefault(t *testing.T) {
	uc := usecase.NewAddressUsecase(newMemAddresses(), fixedClock{testNow})
	_, err := uc.Create(context.Background(), 1, addressReq(""))
	require.NoError(t, err)
	b, err := uc.Create(context.Background(), 1, addressReq(model.AddressLabelWork))
	require.NoError(t, err)

	require.NoError(t, uc.SetDefault(context.Background(), 1, b.ID))

	list, err := uc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)
}

func TestAddressUsecase_Update(t *testing.T) {
	uc := usecase.NewAddressUsecase(newMemAddresses(), fixedClock{testNow})
	a, err := uc.Create(context.Background(), 1, addressReq(""))
	require.NoError(t, err)

	req := addressReq(model.AddressLabelOther)
	req.City = "Pokhara"
	req.Region = model.RegionOutsideValley
	out, err := uc.Update(context.Background(), 1, a.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Pokhara", out.City)
	assert.Equal(t, model.RegionOutsideValley, out.Region)
	assert.True(t, out.IsDefault)
}
