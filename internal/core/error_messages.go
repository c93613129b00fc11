// Package core provides the table model and transformation operators for the
// medallion pipeline.
//
// # Error Codes Reference
//
// This file defines the error taxonomy of a pipeline run. Every fatal error
// carries a code so an operator can find the cause quickly in the run log.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Missing source: an expected raw extract file is absent
//	         Action: Restore the file or point RAW_DIR at the right directory
//
//	SRC002 - Malformed source: a raw file is not a readable CSV
//	         Action: Check the header row and that every row has the same width
//
// # Artifact Errors (ART001-ART099)
//
//	ART001 - Missing artifact: an upstream layer artifact was not found
//	         Action: Run the upstream stage first
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Missing column: a declared, join or group column is absent
//	         Action: Compare the extract header with the table schema
//
// # Join Errors (JOIN001-JOIN099)
//
//	JOIN001 - Cardinality violation: a join matched more rows than its contract
//	          Action: Inspect the right-hand table for duplicate keys
//
// # Write Errors (WRT001-WRT099)
//
//	WRT001 - Write failed: no encoding could write the artifact
//	         Action: Check permissions and free space in the destination
//
// # Default Error (ERR000)
//
// Fallback when the error carries no code and no pattern matches.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes.
const (
	CodeMissingSource   = "SRC001"
	CodeMalformedSource = "SRC002"
	CodeMissingArtifact = "ART001"
	CodeMissingColumn   = "COL001"
	CodeCardinality     = "JOIN001"
	CodeWrite           = "WRT001"
)

// Sentinel errors for errors.Is checks.
var (
	ErrMissingSource   = errors.New("missing source file")
	ErrMalformedSource = errors.New("malformed source file")
	ErrMissingArtifact = errors.New("missing layer artifact")
	ErrMissingColumn   = errors.New("missing column")
	ErrCardinality     = errors.New("join cardinality violation")
	ErrWrite           = errors.New("artifact write failed")
)

// PipelineError is a fatal, coded error tied to a table and optionally a path.
type PipelineError struct {
	Code   string
	Table  string
	Path   string
	Detail string
	Err    error
}

func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	if e.Table != "" {
		fmt.Fprintf(&b, " table=%s", e.Table)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " path=%s", e.Path)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *PipelineError) Unwrap() error { return e.Err }

// UserMessage provides operator-friendly error information with guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for reference
}

var codeMessages = map[string]UserMessage{
	CodeMissingSource: {
		Message: "An expected raw extract file is missing",
		Action:  "Restore the file or point RAW_DIR at the right directory",
		Code:    CodeMissingSource,
	},
	CodeMalformedSource: {
		Message: "A raw extract file is not a readable CSV",
		Action:  "Check the header row and that every row has the same width",
		Code:    CodeMalformedSource,
	},
	CodeMissingArtifact: {
		Message: "An upstream layer artifact was not found",
		Action:  "Run the upstream stage first",
		Code:    CodeMissingArtifact,
	},
	CodeMissingColumn: {
		Message: "A required column is missing",
		Action:  "Compare the extract header with the table schema",
		Code:    CodeMissingColumn,
	},
	CodeCardinality: {
		Message: "A join matched more rows than its contract allows",
		Action:  "Inspect the right-hand table for duplicate keys",
		Code:    CodeCardinality,
	},
	CodeWrite: {
		Message: "An artifact could not be written",
		Action:  "Check permissions and free space in the destination",
		Code:    CodeWrite,
	},
}

// errorPattern maps uncoded technical errors (case-insensitive substring)
// to a message. The first matching pattern wins.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "Permission denied",
			Action:  "Check file system permissions for the data directories",
			Code:    "FS001",
		},
	},
	{
		pattern: "no space left",
		msg: UserMessage{
			Message: "Destination disk is full",
			Action:  "Free space in the destination directory",
			Code:    "FS002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DATABASE_URL or unset it to skip the export",
			Code:    "DB004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Run was cancelled",
			Action:  "Start a new run when ready",
			Code:    "RUN001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the run log for the original error",
	Code:    "ERR000",
}

// MapError converts an error to an operator-friendly message. Coded
// PipelineErrors map by code; other errors by pattern.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var pe *PipelineError
	if errors.As(err, &pe) {
		if msg, ok := codeMessages[pe.Code]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
