package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/storage"
	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Status  int    // HTTP 상태 코드
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 에러를 파싱하여 사용자 친화적인 메시지와 코드로 변환
// 저장소 내부 정보(키, 버킷, DSN)는 노출하지 않음
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "서버 오류가 발생했습니다",
		}
	}

	// 1. 저장소 sentinel 에러
	switch {
	case errors.Is(err, storage.ErrQuotaExceeded):
		return ErrorInfo{
			Status:  http.StatusInsufficientStorage,
			Code:    StorageQuotaExceeded,
			Message: "저장 공간이 부족하여 장바구니를 저장하지 못했습니다",
		}
	case errors.Is(err, storage.ErrUnavailable):
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    StorageUnavailable,
			Message: "일시적으로 저장소를 사용할 수 없습니다. 잠시 후 다시 시도해주세요",
		}
	case errors.Is(err, model.ErrMalformedSnapshot):
		return ErrorInfo{
			Status:  http.StatusUnprocessableEntity,
			Code:    CartSnapshotMalformed,
			Message: "저장된 장바구니 데이터가 손상되었습니다",
		}
	}

	// 2. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    InternalDatabaseError,
			Message: "요청한 데이터를 찾을 수 없습니다",
		}
	}

	// 3. 네트워크/연결 에러
	errStrLower := strings.ToLower(err.Error())
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") ||
		strings.Contains(errStrLower, "deadline exceeded") {
		return ErrorInfo{
			Status:  http.StatusServiceUnavailable,
			Code:    InternalExternalAPI,
			Message: "외부 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요",
		}
	}

	// 4. 기본 내부 서버 오류
	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "export") || strings.Contains(contextLower, "내보내기") {
		return "장바구니 내보내기 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "logout") || strings.Contains(contextLower, "로그아웃") {
		return "로그아웃 처리 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}
	if strings.Contains(contextLower, "delete") || strings.Contains(contextLower, "삭제") {
		return "삭제 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
	}

	return "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요"
}

// ParseAndRespond 에러를 파싱하여 응답 반환 (헬퍼 함수)
// controller에서 간편하게 사용할 수 있도록
func ParseAndRespond(c interface{ JSON(int, interface{}) }, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(errorInfo.Status, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
