package lending

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers that map failures onto transport codes.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindBusinessRule
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindPersistence:
		return "persistence"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by Service and Archiver. Two Errors match
// under errors.Is when their Codes are equal, so the package-level sentinels
// keep matching after a cause or a more specific message is attached.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidBarcodeFormat = &Error{Kind: KindValidation, Code: "InvalidBarcodeFormat", Message: "loan barcode must look like LENT-YYYYMMDD-NNN"}
	ErrEmptySerial          = &Error{Kind: KindValidation, Code: "EmptySerial", Message: "serial number is required"}
	ErrInvalidAsset         = &Error{Kind: KindValidation, Code: "InvalidAsset", Message: "invalid asset"}
	ErrInvalidBorrower      = &Error{Kind: KindValidation, Code: "InvalidBorrower", Message: "borrower must be a registered user or a named guest"}
	ErrInvalidStatus        = &Error{Kind: KindValidation, Code: "InvalidStatus", Message: "unknown loan status"}
	ErrInvalidReservation   = &Error{Kind: KindValidation, Code: "InvalidReservation", Message: "reservation deadline must be in the future"}
	ErrInvalidID            = &Error{Kind: KindValidation, Code: "InvalidID", Message: "id must be a UUID"}

	ErrDuplicateSerial    = &Error{Kind: KindConflict, Code: "DuplicateSerial", Message: "an asset with this serial number already exists"}
	ErrActiveLoanExists   = &Error{Kind: KindConflict, Code: "ActiveLoanExists", Message: "asset already has an active loan"}
	ErrInvalidTransition  = &Error{Kind: KindConflict, Code: "InvalidTransition", Message: "loan status transition not allowed"}
	ErrAlreadyLive        = &Error{Kind: KindConflict, Code: "AlreadyLive", Message: "a live record with the same identity already exists"}
	ErrSequenceExhausted  = &Error{Kind: KindConflict, Code: "SequenceExhausted", Message: "daily loan barcode sequence exhausted"}
	ErrAssetHasActiveLoan = &Error{Kind: KindConflict, Code: "AssetHasActiveLoan", Message: "asset cannot be archived while it has an active loan"}
	ErrBarcodeInUse       = &Error{Kind: KindConflict, Code: "BarcodeInUse", Message: "loan barcode is already held by a live loan"}

	ErrAssetNotFound   = &Error{Kind: KindNotFound, Code: "AssetNotFound", Message: "asset not found"}
	ErrLoanNotFound    = &Error{Kind: KindNotFound, Code: "LoanNotFound", Message: "loan record not found"}
	ErrUserNotFound    = &Error{Kind: KindNotFound, Code: "UserNotFound", Message: "user not found"}
	ErrArchiveNotFound = &Error{Kind: KindNotFound, Code: "ArchiveNotFound", Message: "archived record not found"}

	ErrDefectiveCondition = &Error{Kind: KindBusinessRule, Code: "DefectiveCondition", Message: "defective items cannot be lent"}
	ErrAlreadyUnavailable = &Error{Kind: KindBusinessRule, Code: "AlreadyUnavailable", Message: "item is not available"}
	ErrSelfArchive        = &Error{Kind: KindBusinessRule, Code: "SelfArchive", Message: "Cannot archive your own account."}
	ErrSuperAdminArchive  = &Error{Kind: KindBusinessRule, Code: "SuperAdminArchive", Message: "Cannot archive a SuperAdmin account."}
	ErrOnlineUserArchive  = &Error{Kind: KindBusinessRule, Code: "OnlineUserArchive", Message: "Cannot archive a user who is currently online."}
	ErrHideActiveLoan     = &Error{Kind: KindBusinessRule, Code: "HideActiveLoan", Message: "only returned or cancelled loans can be hidden"}
	ErrUnknownRole        = &Error{Kind: KindBusinessRule, Code: "UnknownRole", Message: "unknown user role"}

	ErrPersistence            = &Error{Kind: KindPersistence, Code: "PersistenceFailure", Message: "storage operation failed"}
	ErrArchiveOperationFailed = &Error{Kind: KindPersistence, Code: "ArchiveOperationFailed", Message: "archive operation failed"}
	ErrRestoreOperationFailed = &Error{Kind: KindPersistence, Code: "RestoreOperationFailed", Message: "restore operation failed"}
)

func wrap(base *Error, err error) error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: base.Message, Err: err}
}

func withMessage(base *Error, format string, args ...any) error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err. Errors that did not originate in this
// package are treated as persistence failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// persistence leaves package errors untouched and wraps everything else.
func persistence(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return wrap(ErrPersistence, err)
}
