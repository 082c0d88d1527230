package code_analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/meysamhadeli/codedoc/code_analyzer/models"
	"github.com/meysamhadeli/codedoc/embed_data"
	"github.com/meysamhadeli/codedoc/logger"
	sitter "github.com/smacker/go-tree-sitter"
)

// ErrNoQuery is returned when a language has no compiled capture query.
var ErrNoQuery = errors.New("no compiled query for language")

// Capture tags understood by the extractor.
const (
	tagClass      = "definition.class"
	tagFunction   = "definition.function"
	tagMethod     = "definition.method"
	tagAssignment = "definition.assignment"
)

// callableTypes are the value nodes an assignment-style definition can bind.
var callableTypes = map[string]struct{}{
	"arrow_function":              {},
	"function_expression":         {},
	"function":                    {},
	"generator_function":          {},
	"lambda":                      {},
	"lambda_expression":           {},
	"func_literal":                {},
	"anonymous_method_expression": {},
}

// valueWrapperTypes may sit between an assignment and its callable value.
var valueWrapperTypes = map[string]struct{}{
	"expression_list":          {},
	"parenthesized_expression": {},
	"equals_value_clause":      {},
}

// bindingNameFields maps nodes that bind a value to the fields that may hold the bound name.
var bindingNameFields = map[string][]string{
	"variable_declarator":     {"name"},
	"var_spec":                {"name"},
	"const_spec":              {"name"},
	"pair":                    {"key"},
	"field_definition":        {"property"},
	"public_field_definition": {"name", "property"},
	"assignment":              {"left"},
	"assignment_expression":   {"left"},
	"augmented_assignment":    {"left"},
	"short_var_declaration":   {"left"},
	"assignment_statement":    {"left"},
}

// scopeBoundaryTypes stop name resolution from borrowing an unrelated outer name.
var scopeBoundaryTypes = map[string]struct{}{
	"program":          {},
	"module":           {},
	"source_file":      {},
	"compilation_unit": {},
	"statement_block":  {},
	"block":            {},
	"class_body":       {},
	"object":           {},
	"arguments":        {},
	"argument_list":    {},
}

type nodeKey struct {
	start uint32
	end   uint32
	kind  string
}

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{start: n.StartByte(), end: n.EndByte(), kind: n.Type()}
}

type compiledQuery struct {
	tag   string
	query *sitter.Query
}

type extractedItem struct {
	node     *sitter.Node
	item     models.CodeItem
	children []*extractedItem
}

// StructureExtractor reduces capture query matches into a two-level item hierarchy.
type StructureExtractor struct {
	mutex    sync.Mutex
	compiled map[string][]compiledQuery
	logger   *slog.Logger
}

// NewStructureExtractor creates an extractor with an empty query cache.
func NewStructureExtractor(log *slog.Logger) *StructureExtractor {
	return &StructureExtractor{
		compiled: make(map[string][]compiledQuery),
		logger:   logger.OrDiscard(log).With("component", "extractor"),
	}
}

// queriesFor compiles the scheme's patterns once per scheme.
// Patterns that do not compile against the grammar are skipped.
func (e *StructureExtractor) queriesFor(scheme string, grammar *sitter.Language) ([]compiledQuery, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if queries, ok := e.compiled[scheme]; ok {
		if len(queries) == 0 {
			return nil, fmt.Errorf("%s: %w", scheme, ErrNoQuery)
		}
		return queries, nil
	}

	var queries []compiledQuery
	defer func() { e.compiled[scheme] = queries }()

	data, err := embed_data.QueryScheme(scheme)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scheme, ErrNoQuery)
	}

	patterns := make(map[string][]string)
	if err := json.Unmarshal(data, &patterns); err != nil {
		e.logger.Error("invalid query scheme", "scheme", scheme, "error", err)
		return nil, fmt.Errorf("%s: %w", scheme, ErrNoQuery)
	}

	tags := make([]string, 0, len(patterns))
	for tag := range patterns {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		for _, pattern := range patterns[tag] {
			query, err := sitter.NewQuery([]byte(pattern), grammar)
			if err != nil {
				e.logger.Debug("skipping query pattern", "scheme", scheme, "pattern", pattern, "error", err)
				continue
			}
			queries = append(queries, compiledQuery{tag: tag, query: query})
		}
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("%s: %w", scheme, ErrNoQuery)
	}
	return queries, nil
}

// Extract runs the language's capture queries over a parsed file and returns its structure.
func (e *StructureExtractor) Extract(parsed *ParsedFile, contentHash string) (*models.FileStructure, error) {
	queries, err := e.queriesFor(parsed.Scheme, parsed.Grammar)
	if err != nil {
		return nil, err
	}

	root := parsed.Tree.RootNode()
	byNode := make(map[nodeKey]*extractedItem)
	var created []*extractedItem

	// Pass 1: one item per definition node.
	for _, cq := range queries {
		cursor := sitter.NewQueryCursor()
		cursor.Exec(cq.query, root)

		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			for _, capture := range match.Captures {
				tag := cq.query.CaptureNameForId(capture.Index)
				item := newItem(tag, capture.Node, parsed.Source)
				if item == nil {
					continue
				}
				key := keyOf(item.node)
				if _, seen := byNode[key]; seen {
					continue
				}
				byNode[key] = item
				created = append(created, item)
			}
		}
	}

	// Pass 2: attach items to their nearest enclosing class.
	var topLevel []*extractedItem
	for _, item := range created {
		parent := nearestClass(item.node, byNode)
		if parent == nil {
			topLevel = append(topLevel, item)
			continue
		}
		if item.item.Kind != models.KindClass {
			item.item.Kind = models.KindMethod
		}
		parent.children = append(parent.children, item)
	}

	return &models.FileStructure{
		Path:        parsed.Path,
		Items:       flatten(topLevel),
		ContentHash: contentHash,
	}, nil
}

// newItem creates an item for a definition capture, or nil when the capture defines nothing.
func newItem(tag string, captured *sitter.Node, source []byte) *extractedItem {
	var kind models.ItemKind
	node := captured

	switch tag {
	case tagClass:
		kind = models.KindClass
	case tagFunction:
		kind = models.KindFunction
	case tagMethod:
		kind = models.KindMethod
	case tagAssignment:
		kind = models.KindFunction
		node = resolveCallable(captured)
		if node == nil {
			return nil
		}
	default:
		return nil
	}

	return &extractedItem{
		node: node,
		item: models.CodeItem{
			Kind:      kind,
			Name:      resolveName(node, captured, source),
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
		},
	}
}

// resolveCallable finds the function value bound by an assignment-style capture.
func resolveCallable(captured *sitter.Node) *sitter.Node {
	for _, field := range []string{"value", "right"} {
		if value := captured.ChildByFieldName(field); value != nil {
			if fn := unwrapCallable(value); fn != nil {
				return fn
			}
		}
	}
	return nil
}

func unwrapCallable(n *sitter.Node) *sitter.Node {
	if _, ok := callableTypes[n.Type()]; ok {
		return n
	}
	if _, ok := valueWrapperTypes[n.Type()]; !ok {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if fn := unwrapCallable(n.NamedChild(i)); fn != nil {
			return fn
		}
	}
	return nil
}

// resolveName tries the definition's own name, the name bound by the captured node and
// finally the nearest binding ancestor within the same scope.
func resolveName(node *sitter.Node, captured *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return name.Content(source)
	}
	if captured != node {
		if name, ok := boundName(captured, source); ok {
			return name
		}
	}

	for cur := node.Parent(); cur != nil && !isScopeBoundary(cur); cur = cur.Parent() {
		if name, ok := boundName(cur, source); ok {
			return name
		}
	}
	return "anonymous"
}

func boundName(n *sitter.Node, source []byte) (string, bool) {
	for _, field := range bindingNameFields[n.Type()] {
		if target := n.ChildByFieldName(field); target != nil {
			if name := strings.Trim(strings.TrimSpace(target.Content(source)), `"'`); name != "" {
				return name, true
			}
		}
	}
	return "", false
}

func isScopeBoundary(n *sitter.Node) bool {
	_, ok := scopeBoundaryTypes[n.Type()]
	return ok
}

// nearestClass walks ancestors until one of them is a created class item.
func nearestClass(n *sitter.Node, byNode map[nodeKey]*extractedItem) *extractedItem {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if item, ok := byNode[keyOf(cur)]; ok && item.item.Kind == models.KindClass {
			return item
		}
	}
	return nil
}

// flatten converts extracted items to values ordered by source position.
func flatten(items []*extractedItem) []models.CodeItem {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].node, items[j].node
		if a.StartByte() != b.StartByte() {
			return a.StartByte() < b.StartByte()
		}
		return a.EndByte() > b.EndByte()
	})

	result := make([]models.CodeItem, 0, len(items))
	for _, item := range items {
		value := item.item
		if len(item.children) > 0 {
			value.Children = flatten(item.children)
		}
		result = append(result, value)
	}
	return result
}
