package pipeline

// =============================================================================
// Input messages
// =============================================================================

const (
	MsgNoInput         = "HTML을 붙여넣거나 캡처 이미지를 선택해주세요."
	MsgHTMLTooShort    = "내용이 너무 짧습니다. 페이지 전체를 복사해주세요."
	MsgImagesRequired  = "업체 정보 분석에는 캡처 이미지가 필요합니다. 이미지를 선택해주세요."
	MsgTooManyImages   = "이미지는 최대 %d장까지 올릴 수 있습니다."
	MsgInvalidRequest  = "잘못된 요청입니다: %s"
	MsgRequestTooLarge = "요청이 너무 큽니다. 이미지 수나 크기를 줄여주세요."
)

// =============================================================================
// Live URL messages
// =============================================================================

const (
	MsgURLRequired    = "상품 URL을 입력해주세요."
	MsgUnsupportedURL = "지원하지 않는 URL입니다. 허용된 쇼핑몰의 상품 페이지 주소를 입력해주세요."
	MsgFetchFailed    = "페이지를 가져오지 못했습니다: %s"
)

// =============================================================================
// Extraction and generation messages
// =============================================================================

const (
	MsgProductNotFound  = "상품 정보를 찾을 수 없습니다."
	MsgGenerationFailed = "AI 분석 실패: %s"
	MsgUnexpectedErr    = "예상치 못한 오류: %s"
)
