// Package mutation applies add, remove and replace requests to an in-progress order.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/dialog"
	"github.com/Veraticus/tableside/internal/model"
)

// ErrNoChanges is returned when the utterance names no edit at all.
var ErrNoChanges = errors.New("no changes requested")

// ChangeParser reads edits out of an utterance.
type ChangeParser interface {
	ParseChanges(ctx context.Context, utterance string, current []model.ResolvedLineItem) ([]model.ExtractedChange, error)
}

// Matcher resolves item names against the catalog or a subset of it.
type Matcher interface {
	Match(ctx context.Context, name string) (model.MatchResult, error)
	MatchAmong(ctx context.Context, name string, ids []string) (model.MatchResult, error)
}

// Result is a modified order and a sentence describing what changed.
type Result struct {
	Explanation string
	Items       []model.ResolvedLineItem
	Changes     []model.ExtractedChange
}

// Engine applies modification utterances.
type Engine struct {
	parser        ChangeParser
	matcher       Matcher
	logger        *slog.Logger
	highThreshold float64
}

// NewEngine creates an engine. highThreshold is the similarity at which a name is
// trusted to mean a catalog item even if that item is not in the order.
func NewEngine(parser ChangeParser, matcher Matcher, highThreshold float64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		parser:        parser,
		matcher:       matcher,
		highThreshold: highThreshold,
		logger:        logger,
	}
}

// Apply reads the edits in utterance and applies them to current. Either every edit
// applies or none does: current is never modified, and on error no Result is
// returned. Naming an item that is not in the order fails with
// common.ErrItemNotInOrder.
func (e *Engine) Apply(ctx context.Context, current []model.ResolvedLineItem, utterance string, menu dialog.Menu) (Result, error) {
	changes, err := e.parser.ParseChanges(ctx, utterance, current)
	if err != nil {
		return Result{}, err
	}
	if len(changes) == 0 {
		return Result{}, ErrNoChanges
	}

	work := model.CloneLines(current)
	parts := make([]string, 0, len(changes))

	for _, change := range changes {
		var part string
		switch change.Action {
		case model.ActionAdd:
			work, part, err = e.add(ctx, work, change, menu)
		case model.ActionRemove:
			work, part, err = e.remove(ctx, work, change, menu)
		case model.ActionReplace:
			work, part, err = e.replace(ctx, work, change, menu)
		default:
			err = fmt.Errorf("unsupported change action %q", change.Action)
		}
		if err != nil {
			e.logger.Debug("modification rejected",
				"action", change.Action,
				"target", change.Target(),
				"error", err)
			return Result{}, err
		}
		parts = append(parts, part)
	}

	return Result{
		Items:       work,
		Changes:     changes,
		Explanation: "I've " + joinAnd(parts) + ".",
	}, nil
}

func (e *Engine) add(ctx context.Context, work []model.ResolvedLineItem, change model.ExtractedChange, menu dialog.Menu) ([]model.ResolvedLineItem, string, error) {
	match, err := e.matcher.Match(ctx, change.ItemName)
	if err != nil {
		return nil, "", err
	}

	line := menu.Resolve(match, model.ExtractedLineItem{
		RawName:  change.ItemName,
		Quantity: change.Quantity,
		Options:  change.Options,
	})

	merged := false
	for i := range work {
		if work[i].SameSelection(line) {
			work[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		work = append(work, line)
	}

	return work, "added " + line.Describe(), nil
}

func (e *Engine) remove(ctx context.Context, work []model.ResolvedLineItem, change model.ExtractedChange, menu dialog.Menu) ([]model.ResolvedLineItem, string, error) {
	targets, err := e.locate(ctx, work, change.ItemName, menu)
	if err != nil {
		return nil, "", err
	}

	name := work[targets[0]].DisplayName
	kept := work[:0:0]
	for i, line := range work {
		if !slices.Contains(targets, i) {
			kept = append(kept, line)
		}
	}

	return kept, "removed the " + name, nil
}

func (e *Engine) replace(ctx context.Context, work []model.ResolvedLineItem, change model.ExtractedChange, menu dialog.Menu) ([]model.ResolvedLineItem, string, error) {
	targets, err := e.locate(ctx, work, change.FromItem, menu)
	if err != nil {
		return nil, "", err
	}

	match, err := e.matcher.Match(ctx, change.ToItem)
	if err != nil {
		return nil, "", err
	}

	quantity := 0
	for _, i := range targets {
		quantity += work[i].Quantity
	}
	oldName := work[targets[0]].DisplayName

	line := menu.Resolve(match, model.ExtractedLineItem{
		RawName:  change.ToItem,
		Quantity: quantity,
		Options:  change.Options,
	})

	out := make([]model.ResolvedLineItem, 0, len(work))
	for i, existing := range work {
		switch {
		case i == targets[0]:
			out = append(out, line)
		case slices.Contains(targets, i):
		default:
			out = append(out, existing)
		}
	}

	return out, fmt.Sprintf("swapped the %s for %s", oldName, line.DisplayName), nil
}

// locate returns the indexes of the order lines name refers to. A name that
// confidently means a catalog item absent from the order is ItemNotInOrder rather
// than a loose match against whatever is there. When several lines hold the same
// item with different options, options spoken in the name pick between them.
func (e *Engine) locate(ctx context.Context, work []model.ResolvedLineItem, name string, menu dialog.Menu) ([]int, error) {
	notInOrder := &common.ItemNotInOrderError{ItemName: name}

	var ids []string
	for _, line := range work {
		if !slices.Contains(ids, line.CatalogItemID) {
			ids = append(ids, line.CatalogItemID)
		}
	}
	if len(ids) == 0 {
		return nil, notInOrder
	}

	targetID := ""
	match, err := e.matcher.Match(ctx, name)
	switch {
	case err == nil && slices.Contains(ids, match.CatalogItemID):
		targetID = match.CatalogItemID
	case err == nil && (match.Exact || match.Confidence >= e.highThreshold):
		return nil, notInOrder
	case err != nil && !errors.Is(err, common.ErrNoMatchFound):
		return nil, err
	}

	if targetID == "" {
		match, err = e.matcher.MatchAmong(ctx, name, ids)
		if errors.Is(err, common.ErrNoMatchFound) {
			return nil, notInOrder
		}
		if err != nil {
			return nil, err
		}
		targetID = match.CatalogItemID
	}

	var candidates []int
	for i, line := range work {
		if line.CatalogItemID == targetID {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) <= 1 || sameSelections(work, candidates) {
		return candidates, nil
	}

	detected := menu[targetID].DetectOptions(name)
	var picked []int
	for _, i := range candidates {
		if selects(work[i], detected) {
			picked = append(picked, i)
		}
	}
	switch {
	case len(picked) == 0:
		return nil, notInOrder
	case len(detected) == 0 || !sameSelections(work, picked):
		return nil, &common.MatchError{
			Err:        common.ErrAmbiguousMatch,
			Query:      name,
			Candidate:  work[candidates[0]].DisplayName,
			Similarity: match.Confidence,
		}
	default:
		return picked, nil
	}
}

func sameSelections(work []model.ResolvedLineItem, idx []int) bool {
	for _, i := range idx[1:] {
		if !work[i].SameSelection(work[idx[0]]) {
			return false
		}
	}
	return true
}

func selects(line model.ResolvedLineItem, options map[string]string) bool {
	for group, choice := range options {
		if line.SelectedOptions[group] != choice {
			return false
		}
	}
	return true
}

func joinAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return "made no changes"
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}
