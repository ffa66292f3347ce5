package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bookscan/constants"
	"github.com/joseph-ayodele/bookscan/internal/common"
	"github.com/joseph-ayodele/bookscan/internal/entity"
	"github.com/joseph-ayodele/bookscan/internal/llm"
	"github.com/joseph-ayodele/bookscan/internal/sidecar"
)

func records(names ...string) []entity.PageRecord {
	out := make([]entity.PageRecord, len(names))
	for i, n := range names {
		out[i] = entity.PageRecord{SourceFile: n, Reference: "/x/" + n, LifeStageFlag: constants.LifeStageUnclear}
	}
	return out
}

func sourceFiles(recs []entity.PageRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.SourceFile
	}
	return out
}

func TestSample(t *testing.T) {
	recs := records("a", "b", "c", "d", "e", "f")

	assert.Equal(t, []string{"a", "b", "c"}, sourceFiles(Sample(recs, 3, 0)))
	assert.Len(t, Sample(recs, 10, 0), 6)
	assert.Empty(t, Sample(recs, 0, 7))

	first := Sample(recs, 3, 42)
	second := Sample(recs, 3, 42)
	assert.Equal(t, first, second, "same seed, same sample")
	assert.Len(t, first, 3)
}

func TestSelectFiles(t *testing.T) {
	recs := records("a", "b", "c")
	sel, missing := SelectFiles(recs, []string{"c", "a", "zzz"})
	assert.Equal(t, []string{"a", "c"}, sourceFiles(sel))
	assert.Equal(t, []string{"zzz"}, missing)
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 30, 30))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writePage(t *testing.T, dir, name string) entity.PageRecord {
	t.Helper()
	path := filepath.Join(dir, name)
	writePNG(t, path)

	page := 9
	rec := entity.PageRecord{
		BookName:      entity.StrPtr("Book"),
		PageNumber:    &page,
		Text:          "some text",
		LifeStageFlag: constants.LifeStageAdulthood,
		SourceFile:    name,
		Reference:     path,
	}
	_, err := sidecar.Write(path, rec)
	require.NoError(t, err)
	return rec
}

func TestJudge_PartialFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writePage(t, dir, "good.png")
	missing := entity.PageRecord{SourceFile: "gone.png", Reference: filepath.Join(dir, "gone.png")}
	before, err := os.ReadFile(sidecar.PathFor(good.Reference))
	require.NoError(t, err)

	var calls atomic.Int32
	client := llm.ClientFunc(func(_ context.Context, req llm.Request) ([]byte, error) {
		calls.Add(1)
		assert.Equal(t, llm.JudgmentSchemaName, req.Name)
		assert.Contains(t, req.Context, `"page_number": 9`)
		assert.NotContains(t, req.Context, dir)
		return []byte(`{"text_accuracy": 3, "page_number_accuracy": 2, "title_accuracy": null, "rationale": "fine"}`), nil
	})

	j := New(Config{Workers: 2, RetryDelay: time.Millisecond}, client, nil, nil)
	results, stats := j.Judge(context.Background(), []entity.PageRecord{good, missing})

	require.Len(t, results, 2)
	assert.Equal(t, 1, stats.Judged)
	assert.Equal(t, 1, stats.Errored)
	require.Len(t, stats.Errors, 1)
	assert.ErrorIs(t, stats.Errors[0], common.ErrJudgment)
	var jerr *common.JudgmentError
	require.ErrorAs(t, stats.Errors[0], &jerr)
	assert.Equal(t, "gone.png", jerr.SourceFile)
	assert.Equal(t, int32(1), calls.Load())

	assert.Equal(t, "good.png", results[0].SourceFile)
	assert.Equal(t, 3, *results[0].TextAccuracy)
	assert.Equal(t, 2, *results[0].PageNumberAccuracy)
	assert.Nil(t, results[0].TitleAccuracy)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, "gone.png", results[1].SourceFile)
	assert.NotEmpty(t, results[1].Error)
	assert.Nil(t, results[1].TextAccuracy)

	after, err := os.ReadFile(sidecar.PathFor(good.Reference))
	require.NoError(t, err)
	assert.Equal(t, before, after, "judging never rewrites a sidecar")
}

func TestJudge_SchemaViolationRetriedThenRecorded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := writePage(t, dir, "p.png")

	var calls atomic.Int32
	client := llm.ClientFunc(func(context.Context, llm.Request) ([]byte, error) {
		calls.Add(1)
		return []byte(`{"text_accuracy": 5, "page_number_accuracy": null, "title_accuracy": null, "rationale": ""}`), nil
	})
	results, stats := New(Config{RetryDelay: time.Millisecond}, client, nil, nil).Judge(context.Background(), []entity.PageRecord{rec})

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, stats.Judged)
	assert.Equal(t, 1, stats.Errored)
	require.Len(t, stats.Errors, 1)
	assert.ErrorIs(t, stats.Errors[0], common.ErrJudgment)
	assert.ErrorIs(t, stats.Errors[0], common.ErrSchemaViolation)
	assert.Contains(t, results[0].Error, llm.JudgmentSchemaName)
}

func TestJudge_TransportError(t *testing.T) {
	t.Parallel()

	rec := writePage(t, t.TempDir(), "p.png")
	client := llm.ClientFunc(func(context.Context, llm.Request) ([]byte, error) {
		return nil, errors.New("dial tcp: refused")
	})
	results, stats := New(Config{}, client, nil, nil).Judge(context.Background(), []entity.PageRecord{rec})
	assert.Equal(t, 1, stats.Errored)
	assert.True(t, strings.Contains(results[0].Error, "refused"))
}

func TestWriteResults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "judge_results.json")
	score := 3
	in := []entity.JudgmentResult{
		{SourceFile: "a.jpg", Reference: "/x/a.jpg", TextAccuracy: &score, Rationale: "ok"},
		{SourceFile: "b.jpg", Reference: "/x/b.jpg", Error: "judge b.jpg: boom"},
	}
	require.NoError(t, WriteResults(path, in))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	require.Len(t, got, 2)
	assert.Nil(t, got[0]["title_accuracy"])
	assert.Contains(t, got[0], "page_number_accuracy")
	assert.NotContains(t, got[0], "error")
	assert.Equal(t, "judge b.jpg: boom", got[1]["error"])

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, WriteResults(empty, nil))
	b, err = os.ReadFile(empty)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(b))
}
