package action

import "github.com/dgallion1/astkeeper/internal/astree"

// Action discriminates the one operation a Request performs. The _by_titles
// names are front doors onto the same operations with title addressing.
type Action string

const (
	ActionInit          Action = "init"
	ActionImportOutline Action = "import_outline"
	ActionLoad          Action = "load"
	ActionLoadSubtree   Action = "load_subtree"
	ActionLoadMeta      Action = "load_meta"
	ActionListChildren  Action = "list_children"
	ActionResolvePath   Action = "resolve_path"
	ActionFindByTitle   Action = "find_by_title"

	ActionAppendChild             Action = "append_child"
	ActionAppendChildByTitles     Action = "append_child_by_titles"
	ActionUpsertChild             Action = "upsert_child"
	ActionUpsertChildByTitles     Action = "upsert_child_by_titles"
	ActionUpdateNode              Action = "update_node"
	ActionUpdateNodeByTitles      Action = "update_node_by_titles"
	ActionAppendToSummary         Action = "append_to_summary"
	ActionAppendToSummaryByTitles Action = "append_to_summary_by_titles"
)

// Request is one discriminated call against the store. Which fields matter
// depends on Action; the rest are ignored.
//
// Addressing: node_path/parent_path are index paths ([] is root, omitted
// means root for index-form actions); node_titles/parent_titles are title
// paths and must be present (possibly empty, meaning root) for the _by_titles
// variants.
type Request struct {
	Action Action `json:"action"`

	// init / import_outline
	FileName    string `json:"file_name,omitempty"`
	RootTitle   string `json:"root_title,omitempty"`
	RootSummary string `json:"root_summary,omitempty"`
	SourcePath  string `json:"source_path,omitempty"`

	// addressing
	NodePath     []int    `json:"node_path,omitempty"`
	ParentPath   []int    `json:"parent_path,omitempty"`
	NodeTitles   []string `json:"node_titles,omitempty"`
	ParentTitles []string `json:"parent_titles,omitempty"`

	// node data
	SectionTitle   string  `json:"section_title,omitempty"`
	ContentSummary string  `json:"content_summary,omitempty"`
	NewTitle       *string `json:"new_title,omitempty"`
	NewSummary     *string `json:"new_summary,omitempty"`
	AppendText     string  `json:"append_text,omitempty"`

	// edit token protocol
	Purpose   string `json:"purpose,omitempty"`
	EditToken string `json:"edit_token,omitempty"`

	// find options
	TitleQuery    string `json:"title_query,omitempty"`
	MaxResults    int    `json:"max_results,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

// Code classifies a structured error result.
type Code string

const (
	CodeBadRequest       Code = "bad_request"
	CodeDocumentNotFound Code = "document_not_found"
	CodeDocumentCorrupt  Code = "document_corrupt"
	CodePathNotFound     Code = "path_not_found"
	CodeMissingToken     Code = "missing_token"
	CodeInvalidToken     Code = "invalid_token"
	CodeStaleToken       Code = "stale_token"
	CodeUnsupportedFile  Code = "unsupported_file"
	CodeParseFailed      Code = "parse_failed"
	CodeIO               Code = "io_error"
	CodeInternal         Code = "internal"
)

// ErrorInfo is the tagged error variant of a Result.
type ErrorInfo struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Result is the structured outcome of a Request: either OK with a payload or
// an ErrorInfo. It is always serializable; errors never surface as panics.
type Result struct {
	OK     bool       `json:"ok"`
	Action Action     `json:"action"`
	Error  *ErrorInfo `json:"error,omitempty"`

	FileName    string              `json:"file_name,omitempty"`
	Document    *astree.Document    `json:"document,omitempty"`
	Node        *astree.Node        `json:"node,omitempty"`
	NodePath    []int               `json:"node_path,omitempty"`
	NewNodePath []int               `json:"new_node_path,omitempty"`
	Children    []astree.ChildEntry `json:"children,omitempty"`
	Matches     []astree.Match      `json:"matches,omitempty"`
	EditToken   string              `json:"edit_token,omitempty"`
	NodeTitle   string              `json:"node_title,omitempty"`
	Op          string              `json:"op,omitempty"`
	UpdatedAt   string              `json:"updated_at,omitempty"`
}
