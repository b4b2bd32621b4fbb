package engine

import (
	"errors"
	"fmt"
	"strings"
)

// QueryError represents a query rejected before evaluation.
//
// Query errors include:
//   - Unknown column: a filter, range or sort names a missing column
//   - Invalid sort direction: order is not asc or desc
//   - Invalid range operator: operator outside the fixed set
//
// QueryError includes structured fields so the HTTP layer can build an
// error envelope without parsing messages.
type QueryError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Clause is the part of the query at fault: "filters", "ranges" or "sort".
	Clause string

	// Column is the offending column, if any.
	Column string

	// Value is the offending direction or operator, if any.
	Value string

	// Valid lists the accepted alternatives (columns, directions, operators).
	Valid []string
}

// ErrorCode categorizes query errors and warnings.
type ErrorCode string

const (
	// ErrCodeUnknownColumn indicates a reference to a column the table lacks.
	ErrCodeUnknownColumn ErrorCode = "UNKNOWN_COLUMN"

	// ErrCodeInvalidSortDirection indicates a sort order other than asc/desc.
	ErrCodeInvalidSortDirection ErrorCode = "INVALID_SORT_DIRECTION"

	// ErrCodeInvalidRangeOperator indicates an operator outside the fixed set.
	ErrCodeInvalidRangeOperator ErrorCode = "INVALID_RANGE_OPERATOR"
)

// Warning codes. Warnings never fail a query.
const (
	// WarnDateParseFailure indicates a date bound or filter value that could
	// not be parsed.
	WarnDateParseFailure ErrorCode = "DATE_PARSE_FAILURE"

	// WarnInvalidBound indicates a non-date bound that could not be converted
	// to the column type.
	WarnInvalidBound ErrorCode = "INVALID_BOUND"

	// WarnInvalidFilterValue indicates a filter value that cannot match the
	// column type (e.g. text against a number column).
	WarnInvalidFilterValue ErrorCode = "INVALID_FILTER_VALUE"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s (column=%s)", e.Code, e.Message, e.Column)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Details returns the structured fields for error envelopes.
func (e *QueryError) Details() map[string]any {
	d := map[string]any{}
	if e.Clause != "" {
		d["clause"] = e.Clause
	}
	if e.Column != "" {
		d["column"] = e.Column
	}
	if e.Value != "" {
		d["value"] = e.Value
	}
	if len(e.Valid) > 0 {
		d["valid"] = e.Valid
	}
	return d
}

// NewUnknownColumnError creates a QueryError for a missing column.
func NewUnknownColumnError(clause, column string, valid []string) *QueryError {
	return &QueryError{
		Code:    ErrCodeUnknownColumn,
		Message: fmt.Sprintf("unknown column %q in %s", column, clause),
		Clause:  clause,
		Column:  column,
		Valid:   valid,
	}
}

// NewInvalidSortDirectionError creates a QueryError for a bad sort order.
func NewInvalidSortDirectionError(column, order string, valid []string) *QueryError {
	return &QueryError{
		Code:    ErrCodeInvalidSortDirection,
		Message: fmt.Sprintf("invalid sort direction %q (valid: %s)", order, strings.Join(valid, ", ")),
		Clause:  "sort",
		Column:  column,
		Value:   order,
		Valid:   valid,
	}
}

// NewInvalidRangeOperatorError creates a QueryError for an unknown operator.
func NewInvalidRangeOperatorError(column, op string, valid []string) *QueryError {
	return &QueryError{
		Code:    ErrCodeInvalidRangeOperator,
		Message: fmt.Sprintf("invalid range operator %q (valid: %s)", op, strings.Join(valid, ", ")),
		Clause:  "ranges",
		Column:  column,
		Value:   op,
		Valid:   valid,
	}
}

// CodeOf returns the ErrorCode of a QueryError, or "" for other errors.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsUnknownColumn returns true if err is an unknown column error.
func IsUnknownColumn(err error) bool {
	return CodeOf(err) == ErrCodeUnknownColumn
}

// IsInvalidSortDirection returns true if err is an invalid sort direction error.
func IsInvalidSortDirection(err error) bool {
	return CodeOf(err) == ErrCodeInvalidSortDirection
}

// IsInvalidRangeOperator returns true if err is an invalid range operator error.
func IsInvalidRangeOperator(err error) bool {
	return CodeOf(err) == ErrCodeInvalidRangeOperator
}

// Warning records a recoverable problem found during evaluation.
type Warning struct {
	Code    ErrorCode `json:"code"`
	Column  string    `json:"column,omitempty"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message"`
}

// String renders the warning for logs and text output.
func (w Warning) String() string {
	if w.Op != "" {
		return fmt.Sprintf("%s: %s (column=%s, op=%s)", w.Code, w.Message, w.Column, w.Op)
	}
	if w.Column != "" {
		return fmt.Sprintf("%s: %s (column=%s)", w.Code, w.Message, w.Column)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}
