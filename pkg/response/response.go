package response

// APIResponseCode is the business status carried in every envelope.
type APIResponseCode int

const (
	APIResponseCodeOK                  APIResponseCode = 0
	APIResponseCodeBadRequest          APIResponseCode = 40000
	APIResponseCodeUnauthorized        APIResponseCode = 40100
	APIResponseCodeForbidden           APIResponseCode = 40300
	APIResponseCodeNotFound            APIResponseCode = 40400
	APIResponseCodeSpinInProgress      APIResponseCode = 40900
	APIResponseCodeTooManyRequests     APIResponseCode = 42900
	APIResponseCodeNotEligible         APIResponseCode = 46001
	APIResponseCodeNoRewardsConfigured APIResponseCode = 46002
	APIResponseCodeRewardsExhausted    APIResponseCode = 46003
	APIResponseCodeError               APIResponseCode = 50000
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:                  "ok",
	APIResponseCodeBadRequest:          "bad request",
	APIResponseCodeUnauthorized:        "please login",
	APIResponseCodeForbidden:           "forbidden",
	APIResponseCodeNotFound:            "not found",
	APIResponseCodeSpinInProgress:      "spin in progress",
	APIResponseCodeTooManyRequests:     "too many requests",
	APIResponseCodeNotEligible:         "not eligible",
	APIResponseCodeNoRewardsConfigured: "no rewards available",
	APIResponseCodeRewardsExhausted:    "all rewards exhausted",
	APIResponseCodeError:               "unexpected error",
}

// Message returns the default text for code.
func (c APIResponseCode) Message() string {
	if m, ok := codeToMsg[c]; ok {
		return m
	}
	return codeToMsg[APIResponseCodeError]
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: APIResponseCodeOK.Message(), Data: data}
}

// ErrorT returns an error response with the default message for code.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: code.Message(), Data: data}
}

// ErrorMsgT is ErrorT with a caller supplied message.
func ErrorMsgT[T any](code APIResponseCode, msg string, data T) *APIResponse[T] {
	if msg == "" {
		msg = code.Message()
	}
	return &APIResponse[T]{Code: code, Message: msg, Data: data}
}
