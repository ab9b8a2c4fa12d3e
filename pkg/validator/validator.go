package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var keyIDRegex = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// appStoreStates are the appStoreState values a version can report.
var appStoreStates = map[string]struct{}{
	"ACCEPTED":                      {},
	"DEVELOPER_REMOVED_FROM_SALE":   {},
	"DEVELOPER_REJECTED":            {},
	"IN_REVIEW":                     {},
	"INVALID_BINARY":                {},
	"METADATA_REJECTED":             {},
	"PENDING_APPLE_RELEASE":         {},
	"PENDING_CONTRACT":              {},
	"PENDING_DEVELOPER_RELEASE":     {},
	"PREPARE_FOR_SUBMISSION":        {},
	"PREORDER_READY_FOR_SALE":       {},
	"PROCESSING_FOR_APP_STORE":      {},
	"READY_FOR_REVIEW":              {},
	"READY_FOR_SALE":                {},
	"REJECTED":                      {},
	"REMOVED_FROM_SALE":             {},
	"WAITING_FOR_EXPORT_COMPLIANCE": {},
	"WAITING_FOR_REVIEW":            {},
	"REPLACED_WITH_NEW_VERSION":     {},
	"NOT_APPLICABLE":                {},
}

// isKeyID checks the ten character App Store Connect API key identifier.
func isKeyID(fl validator.FieldLevel) bool {
	return keyIDRegex.MatchString(fl.Field().String())
}

func isAppStoreState(fl validator.FieldLevel) bool {
	_, ok := appStoreStates[fl.Field().String()]
	return ok
}

// RegisterCustomValidators registers custom validation functions with the validator.
func RegisterCustomValidators(validate *validator.Validate) error {
	if err := validate.RegisterValidation("asc_key_id", isKeyID); err != nil {
		return err
	}
	return validate.RegisterValidation("asc_state", isAppStoreState)
}
