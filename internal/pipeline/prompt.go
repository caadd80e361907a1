package pipeline

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/listing-digest/internal/extract"
)

// BulletFormat controls how feature bullets are requested.
type BulletFormat int

const (
	// BulletKeyword asks for "keyword — elaboration" bullets.
	BulletKeyword BulletFormat = iota
	// BulletPlain asks for plain one-line bullets.
	BulletPlain
)

// ParseBulletFormat parses "keyword" or "plain".
func ParseBulletFormat(s string) (BulletFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "keyword":
		return BulletKeyword, nil
	case "plain":
		return BulletPlain, nil
	}
	return BulletKeyword, fmt.Errorf("unknown bullet format %q", s)
}

func (f BulletFormat) String() string {
	if f == BulletPlain {
		return "plain"
	}
	return "keyword"
}

// PromptOptions are the tunable parts of the prompt templates.
type PromptOptions struct {
	Bullets BulletFormat
	// HTMLEmbedLimit caps the embedded HTML prefix, in runes.
	HTMLEmbedLimit int
	MinFeatures    int
	MaxFeatures    int
}

// Prompt is the instruction plus the attachments sent with it.
type Prompt struct {
	Text        string
	Attachments [][]byte
}

const htmlOnlyPrompt = `
	다음은 쇼핑몰 상품 페이지의 HTML입니다. 블로그 글에 쓸 수 있도록 메인 상품의 정보를 정리해줘.
	%s
	[HTML 시작]
	%s
	[HTML 끝]

	출력 형식:
	상품명: (상품명)
	가격: (가격)
	특징:
	%s`

const imagesOnlyPrompt = `
	%s
	- 첫 번째 이미지 맨 위에 나오는 메인 상품 하나만 분석해줘.
	- 페이지 아래쪽의 "추천 상품", "함께 본 상품", "연관 상품" 같은 다른 상품과 리뷰 영역은 무시해줘.

	출력 형식:
	상품명: (상품명)
	가격: (가격)
	특징:
	%s

	이미지 텍스트:
	(이미지에 보이는 메인 상품 관련 텍스트를 그대로 옮겨 적기)`

const htmlAndImagesPrompt = `
	아래 HTML과 첨부한 이미지 %d장은 같은 상품 페이지입니다. 이미지는 페이지를 위에서 아래로 순서대로 캡처한 것입니다.
	- 상품명과 가격은 HTML을 기준으로 해줘.
	- 기능, 사양, 상세 정보는 이미지를 기준으로 해줘.
	- 메인 상품 하나만 분석하고 "추천 상품", "연관 상품" 같은 다른 상품과 리뷰 영역은 무시해줘.
	%s
	[HTML 시작]
	%s
	[HTML 끝]

	출력 형식:
	상품명: (HTML 기준 상품명)
	가격: (HTML 기준 가격)
	특징:
	%s

	이미지 텍스트:
	(이미지에 보이는 메인 상품 관련 텍스트를 그대로 옮겨 적기)

	HTML 텍스트:
	(HTML에 있는 메인 상품 관련 텍스트를 그대로 옮겨 적기)`

const localBusinessPrompt = `
	%s
	- 첫 번째 이미지 맨 위에 나오는 메인 업체 하나만 분석해줘.
	- 페이지 아래쪽의 "주변 추천 장소", "비슷한 장소" 같은 다른 업체와 리뷰 영역은 무시해줘.

	출력 형식:
	업체명: (업체명)
	주소: (주소)
	전화번호: (전화번호)
	영업시간: (영업시간)
	주요 서비스/메뉴: (서비스 또는 메뉴)
	특징:
	%s

	이미지 텍스트:
	(이미지에 보이는 메인 업체 관련 텍스트를 그대로 옮겨 적기)`

const (
	keywordBulletRule = `- %d~%d개의 특징을 "- 키워드 — 설명" 형식으로 한 줄씩 작성
(예: - 방수 — IPX7 등급으로 샤워 중에도 사용 가능)`
	plainBulletRule = `- %d~%d개의 특징을 "- "로 시작하는 한 줄씩 작성
(예: - IPX7 등급 방수 지원)`
)

// BuildPrompt renders the instruction for a classified request. The same
// request, signals and options always produce the same text; images are
// attached unmodified and in order.
func BuildPrompt(req Request, sig extract.Signals, opts PromptOptions) Prompt {
	bullets := bulletRule(opts)

	var text string
	switch req.Variant {
	case VariantImagesOnly:
		text = formatPrompt(imagesOnlyPrompt, captureIntro("상품 페이지", len(req.Images)), bullets)
	case VariantHTMLAndImages:
		text = formatPrompt(htmlAndImagesPrompt,
			len(req.Images), hintsSection(sig), truncateRunes(req.HTML, opts.HTMLEmbedLimit), bullets)
	case VariantLocalBusinessImages:
		text = formatPrompt(localBusinessPrompt, captureIntro("업체 정보 페이지", len(req.Images)), bullets)
	default:
		text = formatPrompt(htmlOnlyPrompt,
			hintsSection(sig), truncateRunes(req.HTML, opts.HTMLEmbedLimit), bullets)
	}

	var attachments [][]byte
	if req.Variant != VariantHTMLOnly {
		attachments = req.Images
	}
	return Prompt{Text: text, Attachments: attachments}
}

func formatPrompt(template string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(template)), a...)
}

func bulletRule(opts PromptOptions) string {
	minFeatures, maxFeatures := opts.MinFeatures, opts.MaxFeatures
	if minFeatures <= 0 || maxFeatures < minFeatures {
		minFeatures, maxFeatures = 7, 15
	}
	if opts.Bullets == BulletPlain {
		return fmt.Sprintf(plainBulletRule, minFeatures, maxFeatures)
	}
	return fmt.Sprintf(keywordBulletRule, minFeatures, maxFeatures)
}

func captureIntro(page string, count int) string {
	if count == 1 {
		return fmt.Sprintf("첨부한 이미지는 하나의 %s를 캡처한 것입니다.", page)
	}
	return fmt.Sprintf("첨부한 이미지 %d장은 하나의 %s를 위에서 아래로 순서대로 캡처한 것입니다.", count, page)
}

// hintsSection lists the signals already extracted from the markup so the
// model can cross-check them. It is empty when nothing was found.
func hintsSection(sig extract.Signals) string {
	if sig.Name == "" && sig.Price == "" && len(sig.Descriptions) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n페이지에서 추출한 참고 정보:\n")
	if sig.Name != "" {
		fmt.Fprintf(&b, "상품명: %s\n", sig.Name)
	}
	if sig.Price != "" {
		fmt.Fprintf(&b, "가격: %s\n", sig.Price)
	}
	if len(sig.Descriptions) > 0 {
		b.WriteString("설명:\n")
		for _, d := range sig.Descriptions {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}
	return b.String()
}

// truncateRunes returns at most limit runes of s. A non-positive limit
// leaves s untouched.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
