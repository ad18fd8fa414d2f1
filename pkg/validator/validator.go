// Package validator enforces that queries sent to the building databases
// are read-only. It is a lexical denylist, not a parser: it trades recall
// for cheap enforcement before a query ever reaches a live backend.
package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect identifies the query language being validated
type Dialect string

const (
	DialectCypher Dialect = "cypher"
	DialectSQL    Dialect = "sql"
)

// Reason categorizes why a query was rejected
type Reason string

const (
	ReasonEmptyQuery        Reason = "EMPTY_QUERY"
	ReasonWriteOperation    Reason = "WRITE_OPERATION"
	ReasonMissingReadAnchor Reason = "MISSING_READ_ANCHOR"
)

// ValidationError is returned when a query fails a read-only check
type ValidationError struct {
	Dialect Dialect
	Reason  Reason
	Keyword string // the matched write keyword, when Reason is ReasonWriteOperation
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Cypher keywords that indicate write operations. DETACH DELETE is listed
// before DELETE so the compound form is reported as matched.
var cypherWriteKeywords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bCREATE\b`),
	regexp.MustCompile(`(?i)\bMERGE\b`),
	regexp.MustCompile(`(?i)\bDETACH\s+DELETE\b`),
	regexp.MustCompile(`(?i)\bDELETE\b`),
	regexp.MustCompile(`(?i)\bREMOVE\b`),
	regexp.MustCompile(`(?i)\bSET\b`),
	regexp.MustCompile(`(?i)\bFOREACH\b`),
	regexp.MustCompile(`(?i)\bCALL\s*\{`), // CALL with subquery can modify
}

// SQL keywords that indicate write operations
var sqlWriteKeywords = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bINSERT\b`),
	regexp.MustCompile(`(?i)\bUPDATE\b`),
	regexp.MustCompile(`(?i)\bDELETE\b`),
	regexp.MustCompile(`(?i)\bDROP\b`),
	regexp.MustCompile(`(?i)\bALTER\b`),
	regexp.MustCompile(`(?i)\bTRUNCATE\b`),
	regexp.MustCompile(`(?i)\bCREATE\b`),
	regexp.MustCompile(`(?i)\bGRANT\b`),
	regexp.MustCompile(`(?i)\bREVOKE\b`),
}

var cypherReadAnchor = regexp.MustCompile(`(?i)\bMATCH\b|\bRETURN\b`)

// ValidateCypher checks that a Cypher query is read-only. It returns nil
// when the query is acceptable and a *ValidationError otherwise. The check
// order is fixed: empty query, then write keywords, then read anchor.
func ValidateCypher(query string) error {
	if strings.TrimSpace(query) == "" {
		return &ValidationError{
			Dialect: DialectCypher,
			Reason:  ReasonEmptyQuery,
			Message: "Query cannot be empty",
		}
	}

	for _, pattern := range cypherWriteKeywords {
		if match := pattern.FindString(query); match != "" {
			keyword := strings.ToUpper(match)
			return &ValidationError{
				Dialect: DialectCypher,
				Reason:  ReasonWriteOperation,
				Keyword: keyword,
				Message: fmt.Sprintf("Write operation '%s' is not allowed. Only read queries (MATCH/RETURN) are permitted.", keyword),
			}
		}
	}

	if !cypherReadAnchor.MatchString(query) {
		return &ValidationError{
			Dialect: DialectCypher,
			Reason:  ReasonMissingReadAnchor,
			Message: "Query must contain MATCH or RETURN clause.",
		}
	}

	return nil
}

// ValidateSQL checks that a SQL query is read-only. The write-keyword scan
// runs before the SELECT-prefix check, so "update ..." is rejected as a
// write operation rather than as a non-SELECT statement.
func ValidateSQL(query string) error {
	if strings.TrimSpace(query) == "" {
		return &ValidationError{
			Dialect: DialectSQL,
			Reason:  ReasonEmptyQuery,
			Message: "Query cannot be empty",
		}
	}

	for _, pattern := range sqlWriteKeywords {
		if match := pattern.FindString(query); match != "" {
			keyword := strings.ToUpper(match)
			return &ValidationError{
				Dialect: DialectSQL,
				Reason:  ReasonWriteOperation,
				Keyword: keyword,
				Message: fmt.Sprintf("Write operation '%s' is not allowed. Only SELECT queries are permitted.", keyword),
			}
		}
	}

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT") {
		return &ValidationError{
			Dialect: DialectSQL,
			Reason:  ReasonMissingReadAnchor,
			Message: "Query must be a SELECT statement.",
		}
	}

	return nil
}
