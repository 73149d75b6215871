package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Freeeeeet/academy_portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageErr(t *testing.T) {
	assert.NoError(t, storageErr("op", nil))

	err := storageErr("get slot", errBoom)
	require.ErrorIs(t, err, ErrStorageFailure)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, ErrStorageFailure, Kind(err))

	// уже классифицированная ошибка не переоборачивается
	nf := fmt.Errorf("slot: %w", ErrNotFound)
	assert.Same(t, nf, storageErr("get slot", nf))
}

func TestKind(t *testing.T) {
	assert.Nil(t, Kind(errors.New("plain")))
	assert.Equal(t, ErrTokenExpired, Kind(fmt.Errorf("redeem: %w", ErrTokenExpired)))
	assert.Equal(t, ErrValidationFailed, Kind(invalid("bad %s", "input")))
}

func TestValidator_FieldErrors(t *testing.T) {
	v := NewValidator()

	err := v.Struct(model.ConsultationRequest{Email: "nope"})
	require.ErrorIs(t, err, ErrValidationFailed)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "is required", fields["selectedSlotId"])
	assert.Equal(t, "must be a valid email", fields["email"])
	assert.Contains(t, fields, "parentName")
}
