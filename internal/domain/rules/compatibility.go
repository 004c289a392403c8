// Package rules holds the pure, dependency-free blood donation rules:
// ABO/Rh compatibility, candidate scoring and donor cooldown.
package rules

import "github.com/zatekoja/bloodlink/internal/domain/entities"

// recipientsByDonor is the ABO/Rh red cell compatibility table, keyed by donor type
var recipientsByDonor = map[entities.BloodType][]entities.BloodType{
	entities.BloodTypeONegative: entities.AllBloodTypes,
	entities.BloodTypeOPositive: {
		entities.BloodTypeOPositive, entities.BloodTypeAPositive,
		entities.BloodTypeBPositive, entities.BloodTypeABPositive,
	},
	entities.BloodTypeANegative: {
		entities.BloodTypeANegative, entities.BloodTypeAPositive,
		entities.BloodTypeABNegative, entities.BloodTypeABPositive,
	},
	entities.BloodTypeAPositive: {
		entities.BloodTypeAPositive, entities.BloodTypeABPositive,
	},
	entities.BloodTypeBNegative: {
		entities.BloodTypeBNegative, entities.BloodTypeBPositive,
		entities.BloodTypeABNegative, entities.BloodTypeABPositive,
	},
	entities.BloodTypeBPositive: {
		entities.BloodTypeBPositive, entities.BloodTypeABPositive,
	},
	entities.BloodTypeABNegative: {
		entities.BloodTypeABNegative, entities.BloodTypeABPositive,
	},
	entities.BloodTypeABPositive: {
		entities.BloodTypeABPositive,
	},
}

// IsCompatible reports whether blood of donorType can be given to recipientType.
// The relation is directional; unknown types are never compatible.
func IsCompatible(donorType, recipientType entities.BloodType) bool {
	for _, t := range recipientsByDonor[donorType] {
		if t == recipientType {
			return true
		}
	}
	return false
}

// CompatibleRecipientTypes returns the recipient types a donor type can give to
func CompatibleRecipientTypes(donorType entities.BloodType) []entities.BloodType {
	types := recipientsByDonor[donorType]
	out := make([]entities.BloodType, len(types))
	copy(out, types)
	return out
}
