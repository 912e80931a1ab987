package action

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/astkeeper/internal/astree"
	"github.com/dgallion1/astkeeper/internal/config"
	"github.com/dgallion1/astkeeper/internal/outline"
	"github.com/dgallion1/astkeeper/internal/store"
	"github.com/dgallion1/astkeeper/internal/token"
)

// Handler executes one Request at a time against a store and always returns
// a structured Result, error cases included.
type Handler struct {
	store *store.Store
	cfg   config.Config
	log   *slog.Logger
}

func NewHandler(st *store.Store, cfg config.Config, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: st, cfg: cfg, log: log}
}

// Handle dispatches the request. Panics are converted into internal error
// results; the boundary contract is a serializable result, always.
func (h *Handler) Handle(req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic in action handler", "action", string(req.Action), "panic", r)
			res = errResult(req.Action, CodeInternal, fmt.Sprintf("internal error: %v", r))
		}
	}()

	switch req.Action {
	case ActionInit:
		return h.handleInit(req)
	case ActionImportOutline:
		return h.handleImportOutline(req)
	case ActionLoad:
		return h.handleLoad(req)
	case ActionLoadSubtree:
		return h.handleLoadSubtree(req)
	case ActionLoadMeta:
		return h.handleLoadMeta(req)
	case ActionListChildren:
		return h.handleListChildren(req)
	case ActionResolvePath:
		return h.handleResolvePath(req)
	case ActionFindByTitle:
		return h.handleFindByTitle(req)
	case ActionAppendChild, ActionAppendChildByTitles:
		return h.handleAppendChild(req, req.Action == ActionAppendChildByTitles)
	case ActionUpsertChild, ActionUpsertChildByTitles:
		return h.handleUpsertChild(req, req.Action == ActionUpsertChildByTitles)
	case ActionUpdateNode, ActionUpdateNodeByTitles:
		return h.handleUpdateNode(req, req.Action == ActionUpdateNodeByTitles)
	case ActionAppendToSummary, ActionAppendToSummaryByTitles:
		return h.handleAppendToSummary(req, req.Action == ActionAppendToSummaryByTitles)
	default:
		return errResult(req.Action, CodeBadRequest, fmt.Sprintf("unknown action %q", req.Action))
	}
}

func (h *Handler) handleInit(req Request) Result {
	if req.FileName == "" {
		return errResult(req.Action, CodeBadRequest, "file_name is required for action=init")
	}
	if err := h.store.Init(req.FileName, req.RootTitle, req.RootSummary); err != nil {
		return mapError(req.Action, err)
	}
	return Result{OK: true, Action: req.Action, FileName: req.FileName, UpdatedAt: now()}
}

func (h *Handler) handleImportOutline(req Request) Result {
	if req.SourcePath == "" {
		return errResult(req.Action, CodeBadRequest, "source_path is required for action=import_outline")
	}

	imp, err := outline.ForFile(req.SourcePath)
	if err != nil {
		return mapError(req.Action, err)
	}
	if pdfImp, ok := imp.(*outline.PDFImporter); ok {
		pdfImp.FallbackPdftotext = h.cfg.PDFFallbackPdftotext
	}

	f, err := os.Open(req.SourcePath)
	if err != nil {
		return mapError(req.Action, fmt.Errorf("open source: %w", err))
	}
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxImportBytes+1))
	f.Close()
	if err != nil {
		return mapError(req.Action, fmt.Errorf("read source: %w", err))
	}
	if int64(len(data)) > h.cfg.MaxImportBytes {
		return errResult(req.Action, CodeBadRequest,
			fmt.Sprintf("source exceeds max size (%d bytes)", h.cfg.MaxImportBytes))
	}

	root, err := imp.Import(bytes.NewReader(data), filepath.Base(req.SourcePath))
	if err != nil {
		return errResult(req.Action, CodeParseFailed, err.Error())
	}
	if req.RootTitle != "" {
		root.Title = req.RootTitle
	}
	if req.RootSummary != "" {
		root.ContentSummary = astree.JoinSummary(req.RootSummary, root.ContentSummary)
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = filepath.Base(req.SourcePath)
	}
	if err := h.store.ImportOutline(fileName, root); err != nil {
		return mapError(req.Action, err)
	}
	return Result{
		OK:        true,
		Action:    req.Action,
		FileName:  fileName,
		Children:  root.ListChildren(),
		UpdatedAt: now(),
	}
}

func (h *Handler) handleLoad(req Request) Result {
	doc, err := h.store.Load()
	if err != nil {
		return mapError(req.Action, err)
	}
	return Result{OK: true, Action: req.Action, FileName: doc.FileName, Document: doc}
}

func (h *Handler) handleLoadSubtree(req Request) Result {
	path := req.NodePath
	if path == nil {
		path = []int{}
	}
	node, err := h.store.LoadSubtree(path)
	if err != nil {
		return mapError(req.Action, err)
	}
	return Result{OK: true, Action: req.Action, NodePath: path, Node: node}
}

func (h *Handler) handleLoadMeta(req Request) Result {
	purpose := token.Purpose(req.Purpose)
	if !purpose.Valid() {
		return errResult(req.Action, CodeBadRequest, fmt.Sprintf("unknown purpose %q", req.Purpose))
	}
	meta, err := h.store.LoadMeta(h.nodeAddr(req), purpose)
	if err != nil {
		return mapError(req.Action, err)
	}
	return Result{
		OK:        true,
		Action:    req.Action,
		EditToken: meta.Token,
		NodePath:  meta.Path,
		NodeTitle: meta.Title,
		Children:  meta.Children,
	}
}

func (h *Handler) handleListChildren(req Request) Result {
	children, err := h.store.ListChildren(h.nodeAddr(req))
	if err != nil {
		return mapError(req.Action, err)
	}
	return Result{OK: true, Action: req.Action, Children: children}
}

func (h *Handler) handleResolvePath(req Request) Result {
	if req.NodeTitles == nil {
		return errResult(req.Action, CodeBadRequest, "node_titles is required for action=resolve_path")
	}
	path, err := h.store.ResolvePath(req.NodeTitles)
	if err != nil {
		return mapError(req.Action, err)
	}
	return Result{OK: true, Action: req.Action, NodePath: path}
}

func (h *Handler) handleFindByTitle(req Request) Result {
	query := req.TitleQuery
	if query == "" {
		query = req.SectionTitle
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = h.cfg.FindMaxResults
	}
	matches, err := h.store.FindByTitle(query, maxResults, req.CaseSensitive)
	if err != nil {
		return mapError(req.Action, err)
	}
	return Result{OK: true, Action: req.Action, Matches: matches}
}

func (h *Handler) handleAppendChild(req Request, byTitles bool) Result {
	if req.SectionTitle == "" {
		return errResult(req.Action, CodeBadRequest, "section_title is required")
	}
	addr, res, ok := h.parentAddr(req, byTitles)
	if !ok {
		return res
	}
	newPath, err := h.store.AppendChild(addr, req.EditToken, req.SectionTitle, req.ContentSummary)
	if err != nil {
		return mapError(req.Action, err)
	}
	return Result{OK: true, Action: req.Action, NewNodePath: newPath, UpdatedAt: now()}
}

func (h *Handler) handleUpsertChild(req Request, byTitles bool) Result {
	if req.SectionTitle == "" {
		return errResult(req.Action, CodeBadRequest, "section_title is required")
	}
	addr, res, ok := h.parentAddr(req, byTitles)
	if !ok {
		return res
	}
	path, created, err := h.store.UpsertChild(addr, req.EditToken, req.SectionTitle, req.ContentSummary)
	if err != nil {
		return mapError(req.Action, err)
	}
	op := "appended"
	if created {
		op = "created"
	}
	return Result{OK: true, Action: req.Action, NodePath: path, Op: op, UpdatedAt: now()}
}

func (h *Handler) handleUpdateNode(req Request, byTitles bool) Result {
	addr, res, ok := h.targetAddr(req, byTitles)
	if !ok {
		return res
	}
	if err := h.store.UpdateNode(addr, req.EditToken, req.NewTitle, req.NewSummary); err != nil {
		return mapError(req.Action, err)
	}
	return Result{OK: true, Action: req.Action, NodePath: req.NodePath, UpdatedAt: now()}
}

func (h *Handler) handleAppendToSummary(req Request, byTitles bool) Result {
	if req.AppendText == "" {
		return errResult(req.Action, CodeBadRequest, "append_text is required")
	}
	addr, res, ok := h.targetAddr(req, byTitles)
	if !ok {
		return res
	}
	if err := h.store.AppendToSummary(addr, req.EditToken, req.AppendText); err != nil {
		return mapError(req.Action, err)
	}
	return Result{OK: true, Action: req.Action, NodePath: req.NodePath, UpdatedAt: now()}
}

// nodeAddr picks the node address for actions that accept either form: a
// title path when node_titles is present, the index path otherwise.
func (h *Handler) nodeAddr(req Request) store.Address {
	if req.NodeTitles != nil {
		return store.ByTitles(req.NodeTitles)
	}
	return store.ByPath(req.NodePath)
}

// parentAddr resolves the parent address for append/upsert. The _by_titles
// variants require parent_titles; the index variants default to root.
func (h *Handler) parentAddr(req Request, byTitles bool) (store.Address, Result, bool) {
	if byTitles {
		if req.ParentTitles == nil {
			return store.Address{}, errResult(req.Action, CodeBadRequest, "parent_titles is required"), false
		}
		return store.ByTitles(req.ParentTitles), Result{}, true
	}
	return store.ByPath(req.ParentPath), Result{}, true
}

// targetAddr resolves the target address for update/append-to-summary.
func (h *Handler) targetAddr(req Request, byTitles bool) (store.Address, Result, bool) {
	if byTitles {
		if req.NodeTitles == nil {
			return store.Address{}, errResult(req.Action, CodeBadRequest, "node_titles is required"), false
		}
		return store.ByTitles(req.NodeTitles), Result{}, true
	}
	return store.ByPath(req.NodePath), Result{}, true
}

func errResult(a Action, code Code, msg string) Result {
	return Result{
		Action: a,
		Error:  &ErrorInfo{Code: code, Message: msg},
	}
}

func mapError(a Action, err error) Result {
	code := CodeIO
	switch {
	case errors.Is(err, store.ErrDocumentNotFound):
		code = CodeDocumentNotFound
	case errors.Is(err, store.ErrDocumentCorrupt):
		code = CodeDocumentCorrupt
	case errors.Is(err, astree.ErrPathNotFound):
		code = CodePathNotFound
	case errors.Is(err, store.ErrMissingToken):
		code = CodeMissingToken
	case errors.Is(err, store.ErrInvalidToken):
		code = CodeInvalidToken
	case errors.Is(err, store.ErrStaleToken):
		code = CodeStaleToken
	case errors.Is(err, outline.ErrUnsupported):
		code = CodeUnsupportedFile
	}
	return errResult(a, code, err.Error())
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
