package revenium

// UsageRecord matches the AICompletionMetadataResource schema from the
// Revenium metering API. It is the canonical transmission payload for one
// logical request.
type UsageRecord struct {
	// Required fields
	CostType            string `json:"costType"`
	Model               string `json:"model"`
	RequestTime         string `json:"requestTime"`
	CompletionStartTime string `json:"completionStartTime"`
	ResponseTime        string `json:"responseTime"`
	RequestDuration     int64  `json:"requestDuration"`
	Provider            string `json:"provider"`
	ModelSource         string `json:"modelSource"`
	InputTokenCount     int    `json:"inputTokenCount"`
	OutputTokenCount    int    `json:"outputTokenCount"`
	TotalTokenCount     int    `json:"totalTokenCount"`
	TransactionID       string `json:"transactionId"`
	OperationType       string `json:"operationType"`
	StopReason          string `json:"stopReason"`
	IsStreamed          bool   `json:"isStreamed"`
	MiddlewareSource    string `json:"middlewareSource"`

	// Optional token detail
	ReasoningTokenCount     *int  `json:"reasoningTokenCount,omitempty"`
	CacheCreationTokenCount *int  `json:"cacheCreationTokenCount,omitempty"`
	CacheReadTokenCount     *int  `json:"cacheReadTokenCount,omitempty"`
	TimeToFirstToken        int64 `json:"timeToFirstToken,omitempty"`

	// Metering context
	OrganizationName     string              `json:"organizationName,omitempty"`
	ProductName          string              `json:"productName,omitempty"`
	SubscriptionID       string              `json:"subscriptionId,omitempty"`
	Subscriber           *SubscriberResource `json:"subscriber,omitempty"`
	TaskType             string              `json:"taskType,omitempty"`
	Agent                string              `json:"agent,omitempty"`
	ResponseQualityScore *float64            `json:"responseQualityScore,omitempty"`

	// Trace visualization fields
	TraceID             string `json:"traceId,omitempty"`
	Environment         string `json:"environment,omitempty"`
	Region              string `json:"region,omitempty"`
	CredentialAlias     string `json:"credentialAlias,omitempty"`
	TraceType           string `json:"traceType,omitempty"`
	TraceName           string `json:"traceName,omitempty"`
	ParentTransactionID string `json:"parentTransactionId,omitempty"`
	TransactionName     string `json:"transactionName,omitempty"`
	RetryNumber         *int   `json:"retryNumber,omitempty"`
	OperationSubtype    string `json:"operationSubtype,omitempty"`

	// Cost fields, copied verbatim from the provider when reported.
	// Left unset otherwise so Revenium computes cost server-side.
	InputTokenCost  *float64 `json:"inputTokenCost,omitempty"`
	OutputTokenCost *float64 `json:"outputTokenCost,omitempty"`
	TotalCost       *float64 `json:"totalCost,omitempty"`

	// Prompt capture fields, present only when capture is enabled.
	SystemPrompt     string `json:"systemPrompt,omitempty"`
	InputMessages    string `json:"inputMessages,omitempty"`
	OutputResponse   string `json:"outputResponse,omitempty"`
	PromptsTruncated bool   `json:"promptsTruncated,omitempty"`
}

// Allowed stopReason values per the Revenium API.
const (
	StopReasonEnd             = "END"
	StopReasonEndSequence     = "END_SEQUENCE"
	StopReasonTimeout         = "TIMEOUT"
	StopReasonTokenLimit      = "TOKEN_LIMIT"
	StopReasonCostLimit       = "COST_LIMIT"
	StopReasonCompletionLimit = "COMPLETION_LIMIT"
	StopReasonError           = "ERROR"
	StopReasonCancelled       = "CANCELLED"
)
