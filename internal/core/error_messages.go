package core

// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. When users encounter errors, they can quote the code to support
// staff for faster diagnosis.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Empty file: The file has no header or no data rows
//	          Patterns: "empty file"
//	FILE002 - File too large: File exceeds the maximum upload size
//	          Patterns: "file too large"
//	FILE003 - Unsupported format: Only CSV, VCF, XML and JSON are accepted
//	          Patterns: "unsupported file format"
//	FILE004 - Invalid XML
//	          Patterns: "invalid xml"
//	FILE005 - Invalid JSON
//	          Patterns: "invalid json"
//	FILE006 - No file: No file was selected
//	          Patterns: "no file provided"
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Unknown field: A column is mapped to a field the entity lacks
//	         Patterns: "mapping targets unknown field"
//	MAP002 - Nothing mapped: Every column is ignored
//	         Patterns: "no column is mapped"
//	MAP003 - Unreadable mapping or template body
//	         Patterns: "invalid mapping", "invalid template"
//	MAP004 - Template not found   Patterns: "mapping template not found"
//	MAP005 - Template name taken  Patterns: "mapping template already exists"
//	MAP006 - Template unnamed     Patterns: "mapping template name is required"
//	MAP007 - Templates disabled   Patterns: "mapping templates are not supported"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Nothing to import: Every row was rejected or already exists
//	         Patterns: "nothing to import"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Session expired: The import run is unknown or expired
//	         Patterns: "import run not found"
//	RUN002 - Wrong step: The action is not allowed at this point of the import
//	         Patterns: "invalid import step"
//	RUN003 - System busy: Too many imports are being saved
//	         Patterns: "too many concurrent commits"
//	RUN004 - Unknown entity: The entity type is not configured
//	         Patterns: "unknown schema"
//	RUN005 - Request cancelled
//	         Patterns: "context canceled"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key        Patterns: "duplicate key"
//	DB002 - Unique constraint    Patterns: "unique constraint", "violates unique"
//	DB003 - Connection refused   Patterns: "connection refused"
//	DB004 - Connection reset     Patterns: "connection reset"
//	DB005 - Timeout              Patterns: "deadline exceeded", "timeout"
//	DB006 - Deadlock             Patterns: "deadlock"
//
// # Classifier Errors (AI001-AI099)
//
//	AI001 - Classifier unavailable   Patterns: "classifier"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited   Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check the
// application logs for the original technical error.
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so more specific patterns are defined first.

import (
	"fmt"
	"strings"
)

// UserMessage is what a person sees for an error: what went wrong, what to
// do next, and a code to quote to support.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	patterns []string
	msg      UserMessage
}

func on(code, message, action string, patterns ...string) errorPattern {
	return errorPattern{patterns: patterns, msg: UserMessage{Message: message, Action: action, Code: code}}
}

// Order matters: "unreadable file" wraps parser errors, so the format
// specific patterns come first.
var errorPatterns = []errorPattern{
	// File
	on("FILE001", "The file has no data rows",
		"Check that the file has a header line and at least one record",
		"empty file"),
	on("FILE002", "File exceeds the maximum upload size",
		"Split the file into smaller files",
		"file too large"),
	on("FILE003", "This file format is not supported",
		"Upload a CSV, VCF, XML or JSON file",
		"unsupported file format"),
	on("FILE004", "The XML file could not be read",
		"Check that the file is a complete, well-formed XML export",
		"invalid xml"),
	on("FILE005", "The JSON file could not be read",
		"Upload an array of objects or an object with a properties list",
		"invalid json"),
	on("FILE006", "No file was selected",
		"Please select a file to import",
		"no file provided"),
	on("FILE007", "The file could not be read",
		"Export the file again and check it opens in a text editor",
		"unreadable file"),

	// Mapping and validation
	on("MAP001", "A column is mapped to an unknown field",
		"Choose one of the listed fields or ignore the column",
		"mapping targets unknown field"),
	on("MAP002", "No column is mapped to a field",
		"Map at least one column before continuing",
		"no column is mapped"),
	on("MAP003", "The column mapping could not be read",
		"Send a JSON object of source header to field name",
		"invalid mapping", "invalid template"),
	on("MAP004", "The saved mapping no longer exists",
		"Refresh the list of saved mappings",
		"mapping template not found"),
	on("MAP005", "A saved mapping with this name already exists",
		"Choose another name or update the existing mapping",
		"mapping template already exists"),
	on("MAP006", "The saved mapping needs a name",
		"Enter a name before saving",
		"mapping template name is required"),
	on("MAP007", "Saved mappings are not available",
		"Map the columns by hand for this import",
		"mapping templates are not supported"),
	on("VAL001", "Nothing to import",
		"Every row was rejected or already exists; review the validation report",
		"nothing to import"),

	// Runs
	on("RUN001", "Import session not found",
		"The import may have expired. Please start a new import",
		"import run not found"),
	on("RUN002", "This step is not available right now",
		"Reload the import to see its current state",
		"invalid import step"),
	on("RUN003", "Too many imports are being saved",
		"Please wait a moment and try again",
		"too many concurrent commits"),
	on("RUN004", "This entity type is not configured",
		"Choose contacts or properties",
		"unknown schema"),
	on("RUN005", "The request was cancelled",
		"Start the step again",
		"context canceled"),

	// Store
	on("DB001", "A record with this key already exists",
		"Remove the duplicate rows and import again",
		"duplicate key"),
	on("DB002", "A value that must be unique is already stored",
		"Check the file for repeated entries",
		"unique constraint", "violates unique"),
	on("DB003", "The record store is unreachable",
		"Try again in a few moments",
		"connection refused"),
	on("DB004", "The connection to the record store dropped",
		"Try again",
		"connection reset"),
	on("DB005", "The operation took too long",
		"Try a smaller file or try again later",
		"deadline exceeded", "timeout"),
	on("DB006", "The record store was busy with conflicting writes",
		"Try again",
		"deadlock"),

	// Classifier and rate limiting
	on("AI001", "Automatic classification is unavailable",
		"Map the type columns manually or try again later",
		"classifier"),
	on("RATE001", "Too many requests",
		"Wait a moment before trying again",
		"rate limit"),
}

var defaultMessage = UserMessage{
	Message: "Something went wrong during the import",
	Action:  "Try again; if it keeps failing, contact support with code ERR000",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or ERR000 when nothing matches.
//
// Example:
//
//	msg := MapError(fmt.Errorf("parse: %w", ErrEmptyFile))
//	// msg.Code == "FILE001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	text := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		for _, p := range ep.patterns {
			if strings.Contains(text, p) {
				return ep.msg
			}
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

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
