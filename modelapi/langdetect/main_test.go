package langdetect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocabtextdev/textutil"
)

func TestDetectEmptySample(t *testing.T) {
	_, err := New().Detect(context.Background(), "   ")
	require.Error(t, err)
}

func TestDetectFeedsDetectLanguage(t *testing.T) {
	ctx := context.Background()
	d := New()

	en := textutil.DetectLanguage(ctx, d, []string{"The children were playing happily in the garden behind the old house"})
	assert.Equal(t, textutil.English, en)

	es := textutil.DetectLanguage(ctx, d, []string{"Los niños estaban jugando felizmente en el jardín detrás de la casa vieja"})
	assert.Equal(t, textutil.Spanish, es)

	zh := textutil.DetectLanguage(ctx, d, []string{"孩子们在老房子后面的花园里快乐地玩耍"})
	assert.Equal(t, textutil.Chinese, zh)
}
