package ocr

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tsvRunner answers the plain pass with recognized text and the tsv
// pass with a canned word table.
type tsvRunner struct {
	text string
	tsv  string
}

func (r tsvRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	if args[len(args)-1] == "tsv" {
		return []byte(r.tsv), nil, nil
	}
	return []byte(r.text), nil, nil
}

func tsvLine(conf, text string) string {
	return strings.Join([]string{"5", "1", "1", "1", "1", "1", "10", "10", "50", "20", conf, text}, "\t")
}

func TestRecognizeMeanConfidenceUsesConfColumn(t *testing.T) {
	header := strings.Join([]string{
		"level", "page_num", "block_num", "par_num", "line_num", "word_num",
		"left", "top", "width", "height", "conf", "text",
	}, "\t")
	tsv := strings.Join([]string{
		header,
		// numeric recognized text must never be mistaken for a confidence
		tsvLine("96", "sugar"),
		tsvLine("50", "180"),
		tsvLine("-1", ""), // block rows carry the -1 sentinel
		"",
	}, "\n")

	engine := NewTesseractEngine(TesseractConfig{TSVConfidence: true}, tsvRunner{
		text: "sugar 180",
		tsv:  tsv,
	}, nil)

	rec, err := engine.Recognize(context.Background(), []byte("img"), "eng")
	require.NoError(t, err)
	assert.Equal(t, "sugar 180", rec.Text)
	assert.InDelta(t, 0.73, rec.MeanConfidence, 0.0001)
	assert.LessOrEqual(t, rec.MeanConfidence, float32(1.0))
}

func TestRecognizeMeanConfidenceZeroWhenNoWords(t *testing.T) {
	engine := NewTesseractEngine(TesseractConfig{TSVConfidence: true}, tsvRunner{
		text: "",
		tsv:  "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n",
	}, nil)

	rec, err := engine.Recognize(context.Background(), []byte("img"), "eng")
	require.NoError(t, err)
	assert.Zero(t, rec.MeanConfidence)
}
