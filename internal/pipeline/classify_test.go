package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = Limits{MinHTMLLength: 1000, MaxImages: 3}

func longHTML() string {
	return "<html>" + strings.Repeat("x", 1200) + "</html>"
}

func TestClassify(t *testing.T) {
	img := []byte{1, 2, 3}

	tests := []struct {
		name        string
		payload     Payload
		wantVariant Variant
		wantErr     error
	}{
		{
			name:    "nothing",
			payload: Payload{},
			wantErr: ErrNoInput,
		},
		{
			name:    "whitespace html and empty image blobs",
			payload: Payload{HTML: "  \n\t ", Images: [][]byte{{}, nil}},
			wantErr: ErrNoInput,
		},
		{
			name:    "short html alone",
			payload: Payload{HTML: "<html>short</html>"},
			wantErr: ErrHTMLTooShort,
		},
		{
			name:        "short html with images is dropped",
			payload:     Payload{HTML: "<html>short</html>", Images: [][]byte{img}},
			wantVariant: VariantImagesOnly,
		},
		{
			name:        "long html",
			payload:     Payload{HTML: longHTML()},
			wantVariant: VariantHTMLOnly,
		},
		{
			name:        "images only",
			payload:     Payload{Images: [][]byte{img, img}},
			wantVariant: VariantImagesOnly,
		},
		{
			name:        "html and images",
			payload:     Payload{HTML: longHTML(), Images: [][]byte{img}},
			wantVariant: VariantHTMLAndImages,
		},
		{
			name:        "local business with images ignores html",
			payload:     Payload{HTML: longHTML(), Images: [][]byte{img}, Type: ListingLocalBusiness},
			wantVariant: VariantLocalBusinessImages,
		},
		{
			name:    "local business without images",
			payload: Payload{HTML: longHTML(), Type: ListingLocalBusiness},
			wantErr: ErrImagesRequired,
		},
		{
			name:    "local business with short html only",
			payload: Payload{HTML: "<p>cafe</p>", Type: ListingLocalBusiness},
			wantErr: ErrHTMLTooShort,
		},
		{
			name:        "local business with short html and images",
			payload:     Payload{HTML: "<p>cafe</p>", Images: [][]byte{img}, Type: ListingLocalBusiness},
			wantVariant: VariantLocalBusinessImages,
		},
		{
			name:    "too many images",
			payload: Payload{Images: [][]byte{img, img, img, img}},
			wantErr: ErrTooManyImages,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Classify(tt.payload, testLimits)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVariant, req.Variant)
		})
	}
}

func TestClassify_Normalizes(t *testing.T) {
	html := "   " + longHTML() + "\n"
	a, b := []byte{1}, []byte{2}

	req, err := Classify(Payload{HTML: html, Images: [][]byte{a, {}, b}}, testLimits)
	require.NoError(t, err)

	assert.Equal(t, longHTML(), req.HTML)
	assert.Equal(t, [][]byte{a, b}, req.Images)
}

func TestClassify_LocalBusinessDropsHTML(t *testing.T) {
	req, err := Classify(Payload{HTML: longHTML(), Images: [][]byte{{1}}, Type: ListingLocalBusiness}, testLimits)
	require.NoError(t, err)

	assert.Empty(t, req.HTML)
	assert.False(t, req.Variant.UsesHTML())
}

func TestClassify_MinLengthCountsRunes(t *testing.T) {
	// 500 Hangul syllables are 1500 bytes but only 500 runes.
	html := strings.Repeat("가", 500)

	_, err := Classify(Payload{HTML: html}, testLimits)
	assert.ErrorIs(t, err, ErrHTMLTooShort)
}

func TestClassify_Deterministic(t *testing.T) {
	p := Payload{HTML: longHTML(), Images: [][]byte{{1}, {2}}}
	first, err := Classify(p, testLimits)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Classify(p, testLimits)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestParseListingType(t *testing.T) {
	assert.Equal(t, ListingProduct, ParseListingType(""))
	assert.Equal(t, ListingProduct, ParseListingType("product"))
	assert.Equal(t, ListingProduct, ParseListingType("something-else"))
	assert.Equal(t, ListingLocalBusiness, ParseListingType("place"))
	assert.Equal(t, ListingLocalBusiness, ParseListingType(" Local-Business-Listing "))
}
