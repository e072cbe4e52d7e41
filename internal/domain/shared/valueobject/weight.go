package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// WeightUnit represents a mass unit for precious metals
type WeightUnit string

const (
	Gram WeightUnit = "GRAM"
)

// WeightPlaces is the number of decimal places kept for metal weights.
// Jewellery scales report milligram precision.
const WeightPlaces int32 = 3

// Weight is a value object representing a precious-metal mass.
// It is immutable - all operations return new Weight instances.
// Weight and Money are deliberately distinct types: an installment ledger
// must never add grams to lira.
type Weight struct {
	value decimal.Decimal
	unit  WeightUnit
}

// NewWeight creates a new Weight in the given unit
func NewWeight(value decimal.Decimal, unit WeightUnit) (Weight, error) {
	if unit == "" {
		return Weight{}, errors.New("weight unit cannot be empty")
	}
	return Weight{value: value, unit: unit}, nil
}

// NewWeightGrams creates a Weight in grams
func NewWeightGrams(value decimal.Decimal) Weight {
	return Weight{value: value, unit: Gram}
}

// NewWeightGramsFromFloat creates a Weight in grams from float64
func NewWeightGramsFromFloat(value float64) Weight {
	return Weight{value: decimal.NewFromFloat(value), unit: Gram}
}

// ZeroGrams returns a zero Weight in grams
func ZeroGrams() Weight {
	return Weight{value: decimal.Zero, unit: Gram}
}

// Amount returns the decimal mass value
func (w Weight) Amount() decimal.Decimal {
	return w.value
}

// Unit returns the mass unit
func (w Weight) Unit() WeightUnit {
	return w.unit
}

// IsZero returns true if the weight is zero
func (w Weight) IsZero() bool {
	return w.value.IsZero()
}

// IsPositive returns true if the weight is positive
func (w Weight) IsPositive() bool {
	return w.value.IsPositive()
}

// Add returns a new Weight with the sum of both values.
// Returns error if units don't match.
func (w Weight) Add(other Weight) (Weight, error) {
	if w.unit != other.unit {
		return Weight{}, fmt.Errorf("cannot add weights with different units: %s and %s", w.unit, other.unit)
	}
	return Weight{value: w.value.Add(other.value), unit: w.unit}, nil
}

// Subtract returns a new Weight with the difference.
// Returns error if units don't match.
func (w Weight) Subtract(other Weight) (Weight, error) {
	if w.unit != other.unit {
		return Weight{}, fmt.Errorf("cannot subtract weights with different units: %s and %s", w.unit, other.unit)
	}
	return Weight{value: w.value.Sub(other.value), unit: w.unit}, nil
}

// ValueAt prices the weight at the given per-unit price, producing Money.
func (w Weight) ValueAt(pricePerUnit Money) Money {
	return pricePerUnit.Multiply(w.value)
}

// Equals returns true if both weights are equal (same value and unit)
func (w Weight) Equals(other Weight) bool {
	return w.unit == other.unit && w.value.Equal(other.value)
}

// SplitEven divides the weight into n shares truncated to WeightPlaces,
// with the final share absorbing the rounding remainder.
func (w Weight) SplitEven(parts int) ([]Weight, error) {
	if parts <= 0 {
		return nil, errors.New("parts must be positive")
	}
	if parts == 1 {
		return []Weight{w}, nil
	}

	base := w.value.Div(decimal.NewFromInt(int64(parts))).Truncate(WeightPlaces)
	result := make([]Weight, parts)
	running := decimal.Zero
	for i := 0; i < parts-1; i++ {
		result[i] = Weight{value: base, unit: w.unit}
		running = running.Add(base)
	}
	result[parts-1] = Weight{value: w.value.Sub(running), unit: w.unit}
	return result, nil
}

// String returns a string representation of the Weight
func (w Weight) String() string {
	return fmt.Sprintf("%s %s", w.value.StringFixed(WeightPlaces), w.unit)
}

// MarshalJSON implements json.Marshaler
func (w Weight) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value string     `json:"value"`
		Unit  WeightUnit `json:"unit"`
	}{
		Value: w.value.String(),
		Unit:  w.unit,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (w *Weight) UnmarshalJSON(data []byte) error {
	var v struct {
		Value string     `json:"value"`
		Unit  WeightUnit `json:"unit"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	value, err := decimal.NewFromString(v.Value)
	if err != nil {
		return fmt.Errorf("invalid weight: %w", err)
	}
	w.value = value
	w.unit = v.Unit
	return nil
}

// Value implements driver.Valuer for database storage
func (w Weight) Value() (driver.Value, error) {
	return w.value.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (w *Weight) Scan(value any) error {
	if value == nil {
		w.value = decimal.Zero
		w.unit = Gram
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Weight", value)
	}

	val, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	w.value = val
	if w.unit == "" {
		w.unit = Gram
	}
	return nil
}
