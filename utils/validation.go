package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the validator tags declared on s and returns the
// first violation as a plain error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("field %s failed %q validation", fe.Field(), fe.Tag())
	}
	return err
}

// ValidateChainID checks a destination chain identifier: non-empty and
// within the 64-byte bound the record format reserves.
func ValidateChainID(chainID string) error {
	if chainID == "" {
		return fmt.Errorf("chain id cannot be empty")
	}
	if len(chainID) > 64 {
		return fmt.Errorf("chain id exceeds 64 bytes")
	}
	return nil
}
