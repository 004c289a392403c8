package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

type donorPayload struct {
	Name      string `json:"name" validate:"required"`
	Age       int    `json:"age" validate:"gte=18,lte=65"`
	BloodType string `json:"blood_type" validate:"required,bloodtype"`
	Urgency   string `json:"urgency,omitempty" validate:"omitempty,urgency"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(donorPayload{Name: "Ada", Age: 30, BloodType: "O-", Urgency: "urgent"})
	assert.NoError(t, err)
}

func TestStruct_ReportsEveryField(t *testing.T) {
	err := Struct(donorPayload{Age: 70, BloodType: "C+", Urgency: "whenever"})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "name failed on required")
	assert.Contains(t, err.Error(), "age failed on lte=65")
	assert.Contains(t, err.Error(), "blood_type failed on bloodtype")
	assert.Contains(t, err.Error(), "urgency failed on urgency")
}

func TestStruct_AgeLowerBound(t *testing.T) {
	err := Struct(donorPayload{Name: "Kid", Age: 17, BloodType: "A+"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "age failed on gte=18")
}
