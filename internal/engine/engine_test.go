package engine

import (
	"context"
	"testing"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importBatch() []*model.Record {
	return []*model.Record{
		imported("美团-村上一屋 (导入)", model.FlowExpense, "20"),
		imported("北京鸿笙科技-标准洗 (导入)", model.FlowExpense, "2.25"),
		imported("美团-麦当劳 (导入)", model.FlowExpense, "30"),
		imported("公司-十月工资 (导入)", model.FlowIncome, "8000"),
	}
}

func importLabels() map[string]model.Suggestion {
	return map[string]model.Suggestion{
		"美团|支出":     {Label: "餐饮 - 三餐", Fallback: "餐饮"},
		"北京鸿笙科技|支出": {Label: "洗衣", IsNew: true, Fallback: "日常"},
		"公司|收入":     {Label: "工资", Fallback: "工资"},
	}
}

func TestEngine_Import(t *testing.T) {
	existing := testutil.Record("old-1", 1, "12.00", "交通", "地铁")
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{Records: []model.Record{existing}})
	prompter := NewMockPrompter(false)
	e := New(db.Storage, &fakeClassifier{labels: importLabels()}, db.Taxonomy, prompter, nil)

	records := importBatch()
	var progress []Progress
	summary, err := e.Import(context.Background(), records, ImportOptions{
		OnProgress: func(p Progress) { progress = append(progress, p) },
	})
	require.NoError(t, err)

	assert.True(t, summary.Saved)
	assert.Equal(t, 3, summary.Groups)
	assert.Equal(t, map[Source]int{SourceSuggestion: 3, SourceFallback: 1}, summary.BySource)
	require.Len(t, progress, 1)
	assert.Equal(t, 3, progress[0].Completed)

	require.Len(t, prompter.Calls(), 1)
	review := prompter.Calls()[0]
	require.Len(t, review, 3)
	assert.Equal(t, "美团", review[0].Description)
	assert.Equal(t, 2, review[0].Count)
	assert.Equal(t, "50", review[0].Total.String())
	assert.False(t, review[0].Novel)
	assert.True(t, review[1].Novel)

	stored := db.MustLoadRecords()
	require.Len(t, stored, 5)
	byNote := make(map[string]model.Record)
	for _, r := range stored {
		byNote[r.Note] = r
	}
	assert.Equal(t, "交通", byNote["地铁"].Category)
	assert.Equal(t, "餐饮", byNote["美团-麦当劳 (导入)"].Category)
	assert.Equal(t, "三餐", byNote["美团-麦当劳 (导入)"].SubCategoryName())
	assert.Equal(t, "日常", byNote["北京鸿笙科技-标准洗 (导入)"].Category)
	assert.Equal(t, "工资", byNote["公司-十月工资 (导入)"].Category)
	assert.False(t, db.Taxonomy.Exists("洗衣"))

	for _, r := range stored {
		assert.True(t, db.Taxonomy.Exists(r.Category), r.Category)
	}
}

func TestEngine_ImportApprovesThroughReview(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := New(db.Storage, &fakeClassifier{labels: importLabels()}, db.Taxonomy, NewMockPrompter(true), nil)

	records := importBatch()
	_, err := e.Import(context.Background(), records, ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, "洗衣", records[1].Category)
	assert.True(t, db.Taxonomy.IsUserDefined("洗衣"))
}

func TestEngine_ImportDryRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := New(db.Storage, &fakeClassifier{labels: importLabels()}, db.Taxonomy, nil, nil)

	records := importBatch()
	summary, err := e.Import(context.Background(), records, ImportOptions{DryRun: true})
	require.NoError(t, err)

	assert.False(t, summary.Saved)
	assert.Equal(t, "餐饮", records[0].Category)
	assert.Empty(t, db.MustLoadRecords())
}

func TestEngine_ImportFailure(t *testing.T) {
	records := make([]*model.Record, 0, 7)
	for _, note := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		records = append(records, imported(note+"-x (导入)", model.FlowExpense, "1"))
	}
	labels := map[string]model.Suggestion{}
	for _, r := range records {
		labels[GroupKey(r)] = model.Suggestion{Label: "购物"}
	}

	t.Run("aborts by default", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		e := New(db.Storage, &fakeClassifier{labels: labels, failOn: 2}, db.Taxonomy, nil, nil)

		summary, err := e.Import(context.Background(), records, ImportOptions{})
		require.ErrorIs(t, err, ErrAborted)
		assert.False(t, summary.Saved)
		assert.Len(t, summary.Run.Suggestions, 5)
		assert.Empty(t, db.MustLoadRecords())
	})

	t.Run("continues with partial result", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		e := New(db.Storage, &fakeClassifier{labels: labels, failOn: 2}, db.Taxonomy, nil, nil)

		var failed *RunResult
		summary, err := e.Import(context.Background(), records, ImportOptions{
			OnFailure: func(r *RunResult) bool {
				failed = r
				return true
			},
		})
		require.NoError(t, err)
		require.NotNil(t, failed)
		assert.True(t, summary.Saved)
		assert.Equal(t, map[Source]int{SourceSuggestion: 5, SourceCatchAll: 2}, summary.BySource)
		assert.Len(t, db.MustLoadRecords(), 7)
	})
}

func TestEngine_ImportReviewError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	prompter := NewMockPrompter(false)
	prompter.FailNext()
	e := New(db.Storage, &fakeClassifier{labels: importLabels()}, db.Taxonomy, prompter, nil)

	_, err := e.Import(context.Background(), importBatch(), ImportOptions{})
	require.ErrorIs(t, err, ErrReviewCanceled)
	assert.Empty(t, db.MustLoadRecords())
}

func TestEngine_ImportNothing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	classifier := &fakeClassifier{}
	e := New(db.Storage, classifier, db.Taxonomy, nil, nil)

	summary, err := e.Import(context.Background(), nil, ImportOptions{})
	require.NoError(t, err)
	assert.False(t, summary.Saved)
	assert.Empty(t, classifier.requests)
}
