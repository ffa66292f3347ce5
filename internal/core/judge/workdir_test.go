package judge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bookscan/constants"
	"github.com/joseph-ayodele/bookscan/internal/core/aggregate"
	"github.com/joseph-ayodele/bookscan/internal/core/extract"
	"github.com/joseph-ayodele/bookscan/internal/entity"
	"github.com/joseph-ayodele/bookscan/internal/llm"
	"github.com/joseph-ayodele/bookscan/internal/sidecar"
)

const judgeReply = `{"text_accuracy": 3, "page_number_accuracy": 3, "title_accuracy": null, "rationale": "ok"}`

func replyingClient() llm.Client {
	return llm.ClientFunc(func(_ context.Context, req llm.Request) ([]byte, error) {
		if req.Name == llm.JudgmentSchemaName {
			return []byte(judgeReply), nil
		}
		return []byte(`{"page_number": 1, "text": "t", "life_stage_flag": "both"}`), nil
	})
}

// Extraction with a relative root in one directory, judging by absolute root from another.
func TestJudge_FromAnotherWorkingDirectory(t *testing.T) {
	base := t.TempDir()
	t.Chdir(base)
	writePageImage(t, filepath.Join(base, "corpus", "MyBook_JaneDoe", "p1.png"))

	ex := extract.NewExtractor(extract.Config{Root: "corpus"}, replyingClient(), nil, nil)
	stats, err := ex.ExtractAll(context.Background(), "corpus")
	require.NoError(t, err)
	require.Equal(t, 1, stats.Processed)

	t.Chdir(t.TempDir())
	res, err := aggregate.New(0, nil).Aggregate(context.Background(), filepath.Join(base, "corpus"))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.True(t, filepath.IsAbs(res.Records[0].Reference), "stored reference %q", res.Records[0].Reference)

	results, jstats := New(Config{RetryDelay: time.Millisecond}, replyingClient(), nil, nil).Judge(context.Background(), res.Records)
	assert.Equal(t, 1, jstats.Judged)
	assert.Equal(t, 0, jstats.Errored)
	assert.Empty(t, results[0].Error)
}

// Sidecars written with a relative reference still resolve through their own location.
func TestJudge_RelativeReferenceResolvedFromSidecar(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "Book_Author", "p.png")
	writePageImage(t, img)
	_, err := sidecar.Write(img, entity.PageRecord{
		Text:          "t",
		LifeStageFlag: constants.LifeStageBoth,
		SourceFile:    "p.png",
		Reference:     "somewhere/else/Book_Author/p.png",
	})
	require.NoError(t, err)

	rec, err := sidecar.Read(sidecar.PathFor(img))
	require.NoError(t, err)
	assert.Equal(t, img, ImagePath(rec))

	_, jstats := New(Config{}, replyingClient(), nil, nil).Judge(context.Background(), []entity.PageRecord{rec})
	assert.Equal(t, 1, jstats.Judged)
}

func TestImagePath_FallsBackToReference(t *testing.T) {
	assert.Equal(t, "/x/a.jpg", ImagePath(entity.PageRecord{Reference: "/x/a.jpg"}))
}

func writePageImage(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	writePNG(t, path)
}
