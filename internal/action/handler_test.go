package action

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/astkeeper/internal/astree"
	"github.com/dgallion1/astkeeper/internal/config"
	"github.com/dgallion1/astkeeper/internal/store"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		StorePath:        filepath.Join(t.TempDir(), "ast_state.json"),
		TokenTTL:         time.Minute,
		MaxPendingTokens: 64,
		FindMaxResults:   20,
		MaxImportBytes:   1 << 20,
	}
	st := store.New(cfg.StorePath, store.Options{
		TokenTTL:         cfg.TokenTTL,
		MaxPendingTokens: cfg.MaxPendingTokens,
		Logger:           log,
	})
	return NewHandler(st, cfg, log)
}

func requireOK(t *testing.T, res Result) Result {
	t.Helper()
	require.True(t, res.OK, "expected success, got error: %+v", res.Error)
	return res
}

func requireCode(t *testing.T, res Result, code Code) {
	t.Helper()
	require.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, code, res.Error.Code)
}

func mintToken(t *testing.T, h *Handler, req Request) string {
	t.Helper()
	req.Action = ActionLoadMeta
	res := requireOK(t, h.Handle(req))
	require.NotEmpty(t, res.EditToken)
	return res.EditToken
}

func TestHandle_ScenarioChain(t *testing.T) {
	h := newTestHandler(t)

	// 1. init -> load yields root with empty children.
	requireOK(t, h.Handle(Request{
		Action:      ActionInit,
		FileName:    "doc.txt",
		RootSummary: "Document root",
	}))
	res := requireOK(t, h.Handle(Request{Action: ActionLoad}))
	require.NotNil(t, res.Document)
	assert.Equal(t, "doc.txt", res.Document.FileName)
	assert.Equal(t, "Document root", res.Document.Root.ContentSummary)
	assert.Empty(t, res.Document.Root.Children)

	// 2. load_meta -> append_child at root -> [0].
	t1 := mintToken(t, h, Request{Purpose: "append_child"})
	res = requireOK(t, h.Handle(Request{
		Action:         ActionAppendChild,
		SectionTitle:   "Chapter 1",
		ContentSummary: "overview",
		EditToken:      t1,
	}))
	assert.Equal(t, []int{0}, res.NewNodePath)

	res = requireOK(t, h.Handle(Request{Action: ActionListChildren}))
	require.Len(t, res.Children, 1)
	assert.Equal(t, astree.ChildEntry{Index: 0, Title: "Chapter 1"}, res.Children[0])

	// 3. Reusing t1 fails missing_token.
	requireCode(t, h.Handle(Request{
		Action:         ActionAppendChild,
		SectionTitle:   "Chapter 2",
		ContentSummary: "",
		EditToken:      t1,
	}), CodeMissingToken)

	// 4. Title-path append under Chapter 1 -> [0,0]; resolve_path agrees.
	t2 := mintToken(t, h, Request{
		NodeTitles: []string{"Chapter 1"},
		Purpose:    "append_child",
	})
	res = requireOK(t, h.Handle(Request{
		Action:         ActionAppendChildByTitles,
		ParentTitles:   []string{"Chapter 1"},
		SectionTitle:   "1.1 Section",
		ContentSummary: "...",
		EditToken:      t2,
	}))
	assert.Equal(t, []int{0, 0}, res.NewNodePath)

	res = requireOK(t, h.Handle(Request{
		Action:     ActionResolvePath,
		NodeTitles: []string{"Chapter 1", "1.1 Section"},
	}))
	assert.Equal(t, []int{0, 0}, res.NodePath)

	// 5. upsert_child on an existing title merges instead of duplicating.
	t3 := mintToken(t, h, Request{Purpose: "upsert_child"})
	res = requireOK(t, h.Handle(Request{
		Action:         ActionUpsertChild,
		SectionTitle:   "Chapter 1",
		ContentSummary: "more",
		EditToken:      t3,
	}))
	assert.Equal(t, []int{0}, res.NodePath)
	assert.Equal(t, "appended", res.Op)

	res = requireOK(t, h.Handle(Request{Action: ActionLoadSubtree, NodePath: []int{0}}))
	assert.Equal(t, "overview\nmore", res.Node.ContentSummary)

	// 6. find_by_title in pre-order.
	res = requireOK(t, h.Handle(Request{
		Action:        ActionFindByTitle,
		TitleQuery:    "Chapter",
		CaseSensitive: true,
	}))
	require.Len(t, res.Matches, 1)
	assert.Equal(t, []int{0}, res.Matches[0].Path)
}

func TestHandle_UnknownAction(t *testing.T) {
	h := newTestHandler(t)
	requireCode(t, h.Handle(Request{Action: "drop_table"}), CodeBadRequest)
}

func TestHandle_InitRequiresFileName(t *testing.T) {
	h := newTestHandler(t)
	requireCode(t, h.Handle(Request{Action: ActionInit}), CodeBadRequest)
}

func TestHandle_LoadBeforeInit(t *testing.T) {
	h := newTestHandler(t)
	requireCode(t, h.Handle(Request{Action: ActionLoad}), CodeDocumentNotFound)
}

func TestHandle_CorruptStore(t *testing.T) {
	h := newTestHandler(t)
	require.NoError(t, os.WriteFile(h.cfg.StorePath, []byte("{"), 0o644))
	requireCode(t, h.Handle(Request{Action: ActionLoad}), CodeDocumentCorrupt)
}

func TestHandle_LoadSubtreePathNotFound(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))
	requireCode(t, h.Handle(Request{Action: ActionLoadSubtree, NodePath: []int{4}}), CodePathNotFound)
}

func TestHandle_LoadMetaValidation(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))

	requireCode(t, h.Handle(Request{Action: ActionLoadMeta, Purpose: "delete_node"}), CodeBadRequest)
	requireCode(t, h.Handle(Request{
		Action:     ActionLoadMeta,
		Purpose:    "append_child",
		NodeTitles: []string{"missing"},
	}), CodePathNotFound)
}

func TestHandle_LoadMetaReturnsChildrenSummary(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))

	tok := mintToken(t, h, Request{Purpose: "append_child"})
	requireOK(t, h.Handle(Request{
		Action:       ActionAppendChild,
		SectionTitle: "Chapter 1",
		EditToken:    tok,
	}))

	res := requireOK(t, h.Handle(Request{Action: ActionLoadMeta, Purpose: "upsert_child"}))
	assert.Equal(t, "root", res.NodeTitle)
	require.Len(t, res.Children, 1)
	assert.Equal(t, "Chapter 1", res.Children[0].Title)
}

func TestHandle_TokenErrorCodes(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))

	// Never-minted token.
	requireCode(t, h.Handle(Request{
		Action:       ActionAppendChild,
		SectionTitle: "x",
		EditToken:    "bogus",
	}), CodeMissingToken)

	// Purpose mismatch.
	tok := mintToken(t, h, Request{Purpose: "update_node"})
	requireCode(t, h.Handle(Request{
		Action:       ActionAppendChild,
		SectionTitle: "x",
		EditToken:    tok,
	}), CodeInvalidToken)

	// Stale: root fingerprint changes between mint and presentation.
	stale := mintToken(t, h, Request{Purpose: "append_child"})
	fresh := mintToken(t, h, Request{Purpose: "append_child"})
	requireOK(t, h.Handle(Request{
		Action:       ActionAppendChild,
		SectionTitle: "Chapter 1",
		EditToken:    fresh,
	}))
	requireCode(t, h.Handle(Request{
		Action:       ActionAppendChild,
		SectionTitle: "Chapter 2",
		EditToken:    stale,
	}), CodeStaleToken)
}

func TestHandle_ByTitlesVariantsRequireTitles(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))

	requireCode(t, h.Handle(Request{
		Action:       ActionAppendChildByTitles,
		SectionTitle: "x",
		EditToken:    "tok",
	}), CodeBadRequest)
	requireCode(t, h.Handle(Request{
		Action:    ActionUpdateNodeByTitles,
		EditToken: "tok",
	}), CodeBadRequest)
	requireCode(t, h.Handle(Request{Action: ActionResolvePath}), CodeBadRequest)
}

func TestHandle_UpdateNodeByTitles(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))

	tok := mintToken(t, h, Request{Purpose: "append_child"})
	requireOK(t, h.Handle(Request{
		Action:         ActionAppendChild,
		SectionTitle:   "Chapter 1",
		ContentSummary: "old",
		EditToken:      tok,
	}))

	newSummary := "revised"
	tok = mintToken(t, h, Request{
		NodeTitles: []string{"Chapter 1"},
		Purpose:    "update_node",
	})
	requireOK(t, h.Handle(Request{
		Action:     ActionUpdateNodeByTitles,
		NodeTitles: []string{"Chapter 1"},
		NewSummary: &newSummary,
		EditToken:  tok,
	}))

	res := requireOK(t, h.Handle(Request{Action: ActionLoadSubtree, NodePath: []int{0}}))
	assert.Equal(t, "Chapter 1", res.Node.Title)
	assert.Equal(t, "revised", res.Node.ContentSummary)
}

func TestHandle_TitleFrontDoors(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))

	tok := mintToken(t, h, Request{Purpose: "append_child"})
	requireOK(t, h.Handle(Request{
		Action:         ActionAppendChild,
		SectionTitle:   "Chapter 1",
		ContentSummary: "overview",
		EditToken:      tok,
	}))

	// upsert_child_by_titles merges under the title-addressed parent.
	tok = mintToken(t, h, Request{NodeTitles: []string{"Chapter 1"}, Purpose: "upsert_child"})
	res := requireOK(t, h.Handle(Request{
		Action:         ActionUpsertChildByTitles,
		ParentTitles:   []string{"Chapter 1"},
		SectionTitle:   "1.1 Section",
		ContentSummary: "first",
		EditToken:      tok,
	}))
	assert.Equal(t, []int{0, 0}, res.NodePath)
	assert.Equal(t, "created", res.Op)

	// append_to_summary_by_titles targets the node by title path.
	tok = mintToken(t, h, Request{
		NodeTitles: []string{"Chapter 1", "1.1 Section"},
		Purpose:    "append_to_summary",
	})
	requireOK(t, h.Handle(Request{
		Action:     ActionAppendToSummaryByTitles,
		NodeTitles: []string{"Chapter 1", "1.1 Section"},
		AppendText: "second",
		EditToken:  tok,
	}))

	res = requireOK(t, h.Handle(Request{Action: ActionLoadSubtree, NodePath: []int{0, 0}}))
	assert.Equal(t, "first\nsecond", res.Node.ContentSummary)

	// list_children accepts the title form too.
	res = requireOK(t, h.Handle(Request{
		Action:     ActionListChildren,
		NodeTitles: []string{"Chapter 1"},
	}))
	require.Len(t, res.Children, 1)
	assert.Equal(t, "1.1 Section", res.Children[0].Title)
}

func TestHandle_AppendToSummaryRequiresText(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))
	requireCode(t, h.Handle(Request{
		Action:    ActionAppendToSummary,
		EditToken: "tok",
	}), CodeBadRequest)
}

func TestHandle_FindByTitleOptions(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))

	for _, title := range []string{"Alpha", "alpha notes", "Beta"} {
		tok := mintToken(t, h, Request{Purpose: "append_child"})
		requireOK(t, h.Handle(Request{
			Action:       ActionAppendChild,
			SectionTitle: title,
			EditToken:    tok,
		}))
	}

	// Case-insensitive by default at the boundary.
	res := requireOK(t, h.Handle(Request{Action: ActionFindByTitle, TitleQuery: "alpha"}))
	assert.Len(t, res.Matches, 2)

	res = requireOK(t, h.Handle(Request{
		Action:        ActionFindByTitle,
		TitleQuery:    "alpha",
		CaseSensitive: true,
	}))
	assert.Len(t, res.Matches, 1)

	res = requireOK(t, h.Handle(Request{
		Action:     ActionFindByTitle,
		TitleQuery: "alpha",
		MaxResults: 1,
	}))
	assert.Len(t, res.Matches, 1)

	// section_title works as the query field too.
	res = requireOK(t, h.Handle(Request{Action: ActionFindByTitle, SectionTitle: "Beta"}))
	assert.Len(t, res.Matches, 1)

	// No matches is an empty result, not an error.
	res = requireOK(t, h.Handle(Request{Action: ActionFindByTitle, TitleQuery: "Gamma"}))
	assert.Empty(t, res.Matches)
}

func TestHandle_ImportOutlineMarkdown(t *testing.T) {
	h := newTestHandler(t)

	src := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, os.WriteFile(src, []byte(`# Report

Intro paragraph.

## Findings

Details here.
`), 0o644))

	res := requireOK(t, h.Handle(Request{
		Action:     ActionImportOutline,
		SourcePath: src,
	}))
	assert.Equal(t, "report.md", res.FileName)
	require.Len(t, res.Children, 1)
	assert.Equal(t, "Report", res.Children[0].Title)

	res = requireOK(t, h.Handle(Request{
		Action:     ActionResolvePath,
		NodeTitles: []string{"Report", "Findings"},
	}))
	assert.Equal(t, []int{0, 0}, res.NodePath)
}

func TestHandle_ImportOutlineErrors(t *testing.T) {
	h := newTestHandler(t)

	requireCode(t, h.Handle(Request{Action: ActionImportOutline}), CodeBadRequest)
	requireCode(t, h.Handle(Request{
		Action:     ActionImportOutline,
		SourcePath: "notes.xyz",
	}), CodeUnsupportedFile)
	requireCode(t, h.Handle(Request{
		Action:     ActionImportOutline,
		SourcePath: filepath.Join(t.TempDir(), "missing.md"),
	}), CodeIO)
}

func TestHandle_ImportInvalidatesTokens(t *testing.T) {
	h := newTestHandler(t)
	requireOK(t, h.Handle(Request{Action: ActionInit, FileName: "doc.txt"}))
	tok := mintToken(t, h, Request{Purpose: "append_child"})

	src := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(src, []byte("# T\n\nbody\n"), 0o644))
	requireOK(t, h.Handle(Request{Action: ActionImportOutline, SourcePath: src}))

	requireCode(t, h.Handle(Request{
		Action:       ActionAppendChild,
		SectionTitle: "x",
		EditToken:    tok,
	}), CodeMissingToken)
}
