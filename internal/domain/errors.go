package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrUnknownRecordKind     = errors.New("unknown record kind")
	ErrUnsupportedYear       = errors.New("unsupported year")
	ErrSchemaNotFound        = errors.New("schema descriptor not found")
	ErrInvalidSchema         = errors.New("invalid schema")
	ErrUnknownField          = errors.New("unknown field")
	ErrConflictingPatch      = errors.New("conflicting schema patches")
	ErrUnsupportedDescriptor = errors.New("unsupported schema descriptor format")
	ErrInvalidGroup          = errors.New("invalid duplicate group")
	ErrEmptyInput            = errors.New("empty input")
	ErrLedgerDisabled        = errors.New("run ledger is not configured")
)

// IsConfigurationError reports whether err stems from a schema-authoring or
// patch-rule mistake. These are fatal; data-quality problems never produce them.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidSchema) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrConflictingPatch) ||
		errors.Is(err, ErrUnsupportedDescriptor)
}
