package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Registration module errors
// 12000-12999: Submission & Intake module errors
// 13000-13999: Queue & Evaluation module errors
// 14000-14999: Leaderboard & Publish module errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10004
	Timeout             ErrorCode = 10005

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	RecordNotFound    ErrorCode = 10101
	TransactionFailed ErrorCode = 10102

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	RequiredFieldEmpty ErrorCode = 10302

	// ========== Registration Module Errors (11000-11999) ==========

	StudentNotFound      ErrorCode = 11000
	NotRegistered        ErrorCode = 11001
	InvalidFullName      ErrorCode = 11002
	InvalidStudentNumber ErrorCode = 11003
	SessionNotFound      ErrorCode = 11004
	SessionStoreFailed   ErrorCode = 11005

	// ========== Submission & Intake Module Errors (12000-12999) ==========

	BadArchive          ErrorCode = 12000
	MissingRequiredFile ErrorCode = 12001
	ArchiveTooLarge     ErrorCode = 12002
	MaterializeFailed   ErrorCode = 12003
	UnsafeArchivePath   ErrorCode = 12004
	EnqueueFailed       ErrorCode = 12005

	// ========== Queue & Evaluation Module Errors (13000-13999) ==========

	JobNotFound        ErrorCode = 13000
	ClaimFailed        ErrorCode = 13001
	CompleteConflict   ErrorCode = 13002
	EvaluationError    ErrorCode = 13100
	EvaluationTimeout  ErrorCode = 13101
	WorkspaceError     ErrorCode = 13102
	HarnessStageFailed ErrorCode = 13103

	// ========== Leaderboard & Publish Module Errors (14000-14999) ==========

	LeaderboardQueryFailed ErrorCode = 14000
	RenderFailed           ErrorCode = 14001
	PublishFailed          ErrorCode = 14100
	NotifyFailed           ErrorCode = 14200
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found in database",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	RequiredFieldEmpty: "Required field is empty",

	// Registration
	StudentNotFound:      "Student not found",
	NotRegistered:        "Registration is not complete",
	InvalidFullName:      "Invalid full name",
	InvalidStudentNumber: "Invalid student number",
	SessionNotFound:      "Registration session not found",
	SessionStoreFailed:   "Failed to store registration session",

	// Submission & Intake
	BadArchive:          "File is not a valid zip archive",
	MissingRequiredFile: "Required file is missing from the archive",
	ArchiveTooLarge:     "Archive exceeds the maximum allowed size",
	MaterializeFailed:   "Failed to materialize submission",
	UnsafeArchivePath:   "Archive contains an unsafe path",
	EnqueueFailed:       "Failed to enqueue submission",

	// Queue & Evaluation
	JobNotFound:        "Job not found",
	ClaimFailed:        "Failed to claim queued job",
	CompleteConflict:   "No running job to complete",
	EvaluationError:    "Evaluation failed",
	EvaluationTimeout:  "Evaluation exceeded the time limit",
	WorkspaceError:     "Evaluation workspace error",
	HarnessStageFailed: "Failed to stage the evaluation harness",

	// Leaderboard & Publish
	LeaderboardQueryFailed: "Failed to query leaderboard",
	RenderFailed:           "Failed to render leaderboard",
	PublishFailed:          "Failed to publish leaderboard",
	NotifyFailed:           "Failed to notify student",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RecordNotFound, c == StudentNotFound, c == JobNotFound:
		return 404
	case c == NotRegistered:
		return 403
	case c == ArchiveTooLarge:
		return 413
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == BadArchive, c == MissingRequiredFile,
		c == UnsafeArchivePath, c == InvalidFullName, c == InvalidStudentNumber:
		return 400
	default:
		return 500
	}
}
