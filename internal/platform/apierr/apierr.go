// Package apierr は各ドメインパッケージ共通のエラーモデル。
// 以前は assets/lends/disposals ごとに同型の定義を持っていたものを集約した。
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	mysql "github.com/go-sql-driver/mysql"
)

type Code string

const (
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeInvalidReason         Code = "INVALID_REASON"
	CodeInvariantViolation    Code = "INVARIANT_VIOLATION"
	CodeInsufficientStock     Code = "INSUFFICIENT_STOCK"
	CodeInvalidEwasteQuantity Code = "INVALID_EWASTE_QUANTITY"
	CodeQuantityOverReturn    Code = "QUANTITY_OVER_RETURN"
	CodeAlreadyExists         Code = "ALREADY_EXISTS"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInvalidState          Code = "INVALID_STATE"
	CodeConflict              Code = "CONFLICT" // 同時更新の検出
	CodeInternal              Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrValidation(msg string) *APIError { return &APIError{Code: CodeValidation, Message: msg} }
func ErrInvalidReason(reason string) *APIError {
	return &APIError{Code: CodeInvalidReason, Message: fmt.Sprintf("invalid adjustment reason %q", reason)}
}
func ErrInvariant(msg string) *APIError  { return &APIError{Code: CodeInvariantViolation, Message: msg} }
func ErrNotFound(msg string) *APIError   { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrInvalidState(msg string) *APIError {
	return &APIError{Code: CodeInvalidState, Message: msg}
}
func ErrAlreadyExists(msg string) *APIError { return &APIError{Code: CodeAlreadyExists, Message: msg} }
func ErrConflict(msg string) *APIError      { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError      { return &APIError{Code: CodeInternal, Message: msg} }

func ErrInsufficientStock(available, requested int) *APIError {
	return &APIError{
		Code:    CodeInsufficientStock,
		Message: fmt.Sprintf("insufficient stock: available %d, requested %d", available, requested),
	}
}

func ErrInvalidEwasteQuantity(ewaste, issued int) *APIError {
	return &APIError{
		Code:    CodeInvalidEwasteQuantity,
		Message: fmt.Sprintf("e-waste quantity %d exceeds issued quantity %d", ewaste, issued),
	}
}

func ErrQuantityOverReturn() *APIError {
	return &APIError{Code: CodeQuantityOverReturn, Message: "return quantity exceeds outstanding issued quantity"}
}

// Is は err が指定コードの APIError かどうか。
func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeValidation, CodeInvalidReason, CodeInvariantViolation, CodeInsufficientStock,
			CodeInvalidEwasteQuantity, CodeQuantityOverReturn, CodeAlreadyExists:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeInvalidState, CodeConflict:
			return http.StatusConflict
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// FromMySQL は既知のドライバエラー番号を APIError に読み替える。該当しなければ err をそのまま返す。
func FromMySQL(err error, duplicateMsg string) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1062: // duplicate key
			return ErrAlreadyExists(duplicateMsg)
		case 1452: // foreign key constraint fails
			return ErrValidation("referenced record does not exist")
		}
	}
	return err
}
