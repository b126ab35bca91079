package log

import "fintrack/internal/core"

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldClientIP        = "client_ip"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldQuery           = "query"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldUserAgent       = "user_agent"
	FieldSuccess         = "success"
	FieldError           = "error"
	FieldOperation       = "operation"
	FieldMonth           = "month"
	FieldTransactionID   = "transaction_id"
	FieldTransactionType = "transaction_type"
	FieldBudgetID        = "budget_id"
	FieldCategory        = "category"
	FieldAmount          = "amount"
	FieldAutoCategorized = "auto_categorized"
	FieldEventKind       = "event_kind"
	FieldConsistencyRisk = "consistency_risk"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLedger     = "ledger"
	ComponentReconcile  = "reconcile"
	ComponentAnalytics  = "analytics"
	ComponentCategories = "categories"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentRateLimit  = "rate_limit"
	ComponentBackend    = "backend"
	ComponentCache      = "cache"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpReconcile = "reconcile"
	OpPublish   = "publish"
	OpMirror    = "mirror"
	OpSeed      = "seed"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds the identifying fields of a transaction.
func (f LogFields) WithTransaction(t core.Transaction) LogFields {
	f[FieldTransactionID] = t.ID
	f[FieldTransactionType] = string(t.Type)
	f[FieldCategory] = t.Category
	f[FieldAmount] = t.Amount.String()
	f[FieldAutoCategorized] = t.AutoCategorized
	return f
}

// WithBudget adds the identifying fields of a budget.
func (f LogFields) WithBudget(b core.Budget) LogFields {
	f[FieldBudgetID] = b.ID
	f[FieldCategory] = b.Category
	f[FieldMonth] = string(b.Month)
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
