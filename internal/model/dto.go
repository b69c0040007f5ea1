package model

// RephraseRequest - тело POST /rephrase. Неизвестные поля отклоняются декодером.
type RephraseRequest struct {
	Text           string `json:"text" binding:"required,min=3,max=2000"`
	StyleID        string `json:"style_id" binding:"required,uuid"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,uuid"`
}

// RephraseResponse - успешный ответ (201 новый, 200 повтор).
type RephraseResponse struct {
	Rephrased string `json:"rephrased"`
}

// ValidationIssue - одна ошибка валидации, path - имя JSON поля.
type ValidationIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ErrorReasonResponse - ответ 400 и 422.
type ErrorReasonResponse struct {
	Reason string            `json:"reason"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// Непрозрачные сообщения, отдаются JSON строкой.
const (
	MsgUnauthorized          = "Unauthorized"
	MsgMethodNotAllowed      = "Method not allowed"
	MsgBalanceTooLow         = "Balance too low"
	MsgStyleNotFound         = "Style not found"
	MsgInternalServerError   = "Internal server error"
	MsgUnexpectedError       = "An unexpected error occurred"
	MsgUserDataInconsistency = "Data inconsistency, authed user data not found"
	MsgInvalidRequestBody    = "Invalid request body"

	// MsgInputViolatesAgreement - единственная причина UserFailure, видимая пользователю.
	MsgInputViolatesAgreement = "your input violates agreement"
	// MsgServerError пишется в error_message строк FAILED.
	MsgServerError = "Server error"
)

// ResultKind - вид ответа, который вернул сценарий перефразирования.
type ResultKind int

const (
	ResultRephrased ResultKind = iota + 1
	ResultReplayed
	ResultRejectedByGenerator
	ResultGenerationFailed
)

// RephraseResult - то, что сценарий отдаёт хендлеру.
// Отказы до генерации (402, 404) возвращаются ошибками, а не результатом.
type RephraseResult struct {
	Kind      ResultKind
	Rephrased string
	Reason    string
}
