package server

import (
	"errors"
	"net/http"

	"github.com/John-Robertt/imdbscraper/internal/provider"
)

// ErrorDetails 是所有失败响应的 body。
type ErrorDetails struct {
	ErrorCode    string `json:"errorCode"`
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
}

// 错误码对外稳定，不随内部分类调整而变化。
const (
	CodeNotATVSeries      = "000001"
	CodeConnection        = "000002"
	CodeBuilding          = "000003"
	CodeInvalidIMDbID     = "000004"
	CodeTVSeriesNotFound  = "000005"
	CodeMissingParameters = "000006"
	CodeNoResults         = "000007"
	CodeUnexpected        = "111111"
)

// Describe 把抓取错误映射为 HTTP 状态与 ErrorDetails。
func Describe(err error) (int, ErrorDetails) {
	msg := err.Error()
	switch provider.KindOf(err) {
	case provider.KindTitleTypeMismatch:
		return http.StatusBadRequest, ErrorDetails{CodeNotATVSeries, "NOT_A_TV_SERIES", msg}
	case provider.KindConnection:
		return http.StatusBadGateway, ErrorDetails{CodeConnection, "CONNECTION", msg}
	case provider.KindExtraction, provider.KindDataIntegrity:
		return http.StatusServiceUnavailable, ErrorDetails{CodeBuilding, "BUILDING", msg}
	case provider.KindInvalidInput:
		var pe *provider.Error
		if asProviderError(err, &pe) && pe.Field == "id" {
			return http.StatusBadRequest, ErrorDetails{CodeInvalidIMDbID, "INVALID_IMDB_ID", msg}
		}
		return http.StatusBadRequest, ErrorDetails{CodeMissingParameters, "MISSING_PARAMETERS", msg}
	case provider.KindNotFound:
		return http.StatusNotFound, ErrorDetails{CodeTVSeriesNotFound, "TV_SERIES_NOT_FOUND", msg}
	case provider.KindNoResults:
		return http.StatusNotFound, ErrorDetails{CodeNoResults, "NO_RESULTS", msg}
	default:
		return http.StatusInternalServerError, ErrorDetails{CodeUnexpected, "UNEXPECTED", msg}
	}
}

func asProviderError(err error, target **provider.Error) bool {
	return errors.As(err, target)
}
