package logging

const (
	operationName = "FormDataParser"
	category      = "FormDataParserLog"
)

// Outcomes written to the results log.
const (
	outcomeParsed   = "Parsed"
	outcomeRejected = "Rejected"
)

type formLogEntry struct {
	ResourceID    string               `json:"resourceId"`
	OperationName string               `json:"operationName"`
	Category      string               `json:"category"`
	Properties    formLogEntryProperty `json:"properties"`
}

type formLogEntryProperty struct {
	InstanceID    string              `json:"instanceId"`
	RequestURI    string              `json:"requestUri"`
	ContentType   string              `json:"contentType"`
	Message       string              `json:"message"`
	Outcome       string              `json:"outcome"`
	Details       formLogDetailsEntry `json:"details"`
	TransactionID string              `json:"transactionId"`
}

type formLogDetailsEntry struct {
	Message  string   `json:"message"`
	Fields   int      `json:"fields"`
	Files    int      `json:"files"`
	Warnings []string `json:"warnings,omitempty"`
}

type formLimitExceededLogEntry struct {
	ResourceID    string                            `json:"resourceId"`
	OperationName string                            `json:"operationName"`
	Category      string                            `json:"category"`
	Properties    formLimitExceededLogEntryProperty `json:"properties"`
}

type formLimitExceededLogEntryProperty struct {
	InstanceID        string `json:"instanceId"`
	RequestURI        string `json:"requestUri"`
	ContentType       string `json:"contentType"`
	Message           string `json:"message"`
	Outcome           string `json:"outcome"`
	MaxContentLength  int64  `json:"maxContentLength"`
	MaxFormMemorySize int64  `json:"maxFormMemorySize"`
	TransactionID     string `json:"transactionId"`
}
