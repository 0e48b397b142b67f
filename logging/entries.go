package logging

import (
	"formparse/form"
)

// MetaData identifies the deployment that writes the results log.
type MetaData struct {
	ResourceID string
	InstanceID string
}

func newFormParsedEntry(md MetaData, request form.ResultsLoggerRequest, result *form.Result) *formLogEntry {
	return &formLogEntry{
		ResourceID:    md.ResourceID,
		OperationName: operationName,
		Category:      category,
		Properties: formLogEntryProperty{
			InstanceID:  md.InstanceID,
			RequestURI:  request.URI(),
			ContentType: request.ContentType(),
			Message:     "Request body parsed",
			Outcome:     outcomeParsed,
			Details: formLogDetailsEntry{
				Fields:   result.Fields.Len(),
				Files:    result.Files.Len(),
				Warnings: result.Warnings,
			},
			TransactionID: request.TransactionID(),
		},
	}
}

func newBodyParseErrorEntry(md MetaData, request form.ResultsLoggerRequest, err error) *formLogEntry {
	return &formLogEntry{
		ResourceID:    md.ResourceID,
		OperationName: operationName,
		Category:      category,
		Properties: formLogEntryProperty{
			InstanceID:  md.InstanceID,
			RequestURI:  request.URI(),
			ContentType: request.ContentType(),
			Message:     "Request body parsing error",
			Outcome:     outcomeRejected,
			Details: formLogDetailsEntry{
				Message: err.Error(),
			},
			TransactionID: request.TransactionID(),
		},
	}
}

func newSizeLimitExceededEntry(md MetaData, request form.ResultsLoggerRequest, limits form.Limits, err error) *formLimitExceededLogEntry {
	return &formLimitExceededLogEntry{
		ResourceID:    md.ResourceID,
		OperationName: operationName,
		Category:      category,
		Properties: formLimitExceededLogEntryProperty{
			InstanceID:        md.InstanceID,
			RequestURI:        request.URI(),
			ContentType:       request.ContentType(),
			Message:           err.Error(),
			Outcome:           outcomeRejected,
			MaxContentLength:  limits.MaxContentLength,
			MaxFormMemorySize: limits.MaxFormMemorySize,
			TransactionID:     request.TransactionID(),
		},
	}
}
