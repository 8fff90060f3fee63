// Package ingest turns raw discovery candidates into catalog entries. It
// owns the title policy (user-meaningful shortcut aliases overwrite,
// auto-derived filenames never do) and the alias cache that lets
// process-start events reuse names learned from shortcuts.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adalundhe/curio/core/catalog"
	"github.com/adalundhe/curio/core/classify"
	"github.com/adalundhe/curio/core/events"
	"github.com/adalundhe/curio/core/shortcut"
)

// aliasCacheSize bounds the canonical-path → alias map.
const aliasCacheSize = 512

// =============================================================================
// Catalog contract
// =============================================================================

// Catalog is the slice of the store the pipeline needs.
type Catalog interface {
	Upsert(params catalog.UpsertParams, policy catalog.ConflictPolicy) (*catalog.Resource, error)
	IsIgnored(path string) (bool, error)
	CreateTag(name string) (catalog.Tag, error)
	TagResource(resourceID string, tagID int64, source string) error
}

// =============================================================================
// Candidate
// =============================================================================

// Candidate is a path observed by a watcher, not yet classified or
// persisted.
type Candidate struct {
	// Path is the observed path; may be a shortcut file.
	Path string

	// Target is the already-resolved canonical path, when the source knows
	// it (process events do). Empty means resolve from Path.
	Target string

	// DisplayName is a shortcut display-name hint, when the source has
	// one.
	DisplayName string
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline applies classification, blocklists and the ignore list to a
// candidate, then performs the conditional upsert. All state (the alias
// cache) is instance-owned so tests construct fresh pipelines per case.
type Pipeline struct {
	store    Catalog
	resolver shortcut.Resolver
	bus      *events.Bus
	logger   *slog.Logger

	aliases *lru.Cache[string, string]
}

// NewPipeline creates an ingestion pipeline. The bus may be nil when no
// outward notifications are wanted.
func NewPipeline(store Catalog, resolver shortcut.Resolver, bus *events.Bus, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	aliases, _ := lru.New[string, string](aliasCacheSize)
	return &Pipeline{
		store:    store,
		resolver: resolver,
		bus:      bus,
		logger:   logger,
		aliases:  aliases,
	}
}

// Ingest processes one candidate. Returns the created or retitled resource,
// or nil when the candidate was rejected or the store reported no change;
// no discovery notification fires in either case. Errors are transient I/O
// (shortcut resolution, store failure); a rejected candidate is not an
// error.
func (p *Pipeline) Ingest(ctx context.Context, c Candidate) (*catalog.Resource, error) {
	target, displayName, err := p.resolveTarget(ctx, c)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, nil
	}

	category, ok := classify.Classify(target)
	if !ok {
		// Normal negative outcome, silently dropped.
		return nil, nil
	}

	ignored, err := p.store.IsIgnored(target)
	if err != nil {
		return nil, fmt.Errorf("ignore check: %w", err)
	}
	if ignored {
		return nil, nil
	}

	title, policy := p.titleFor(target, displayName)

	params := catalog.UpsertParams{
		Type:  string(category),
		Title: title,
		Path:  target,
	}

	// Executables under a Steam library are games: the manifest carries the
	// official name and a local cover.
	var autoTag string
	if category == classify.CategoryApp {
		if game, ok := DetectSteamGame(target); ok {
			params.Type = string(classify.CategoryGame)
			params.Title = game.Name
			params.CoverPath = game.CoverPath
			params.Meta = fmt.Sprintf(`{"steam_appid":%q}`, game.AppID)
			policy = catalog.PolicyOverwriteTitle
			autoTag = "steam"
		}
	}

	resource, err := p.store.Upsert(params, policy)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", target, err)
	}
	if resource == nil {
		return nil, nil
	}

	if autoTag != "" {
		p.applyAutoTag(resource, autoTag)
	}

	if p.bus != nil {
		p.bus.PublishDiscovered(resource)
	}
	p.logger.Debug("resource ingested",
		"path", resource.Path, "type", resource.Type, "title", resource.Title)
	return resource, nil
}

// resolveTarget determines the canonical target path and display-name hint
// for a candidate.
func (p *Pipeline) resolveTarget(ctx context.Context, c Candidate) (string, string, error) {
	if c.Target != "" {
		return c.Target, c.DisplayName, nil
	}

	if shortcut.IsShortcut(c.Path) {
		if p.resolver == nil {
			return "", "", shortcut.ErrUnsupported
		}
		link, err := p.resolver.Resolve(ctx, c.Path)
		if err != nil {
			return "", "", fmt.Errorf("resolve %s: %w", c.Path, err)
		}
		displayName := c.DisplayName
		if displayName == "" {
			displayName = link.DisplayName
		}
		return link.TargetPath, displayName, nil
	}

	return c.Path, c.DisplayName, nil
}

// titleFor applies the title policy: a display name differing
// (case-insensitively) from the target's bare filename is a user-meaningful
// alias and overwrites; otherwise the filename is used and existing titles
// are preserved. Candidates without a display name consult the alias cache
// so process-start discoveries pick up names learned from shortcuts.
func (p *Pipeline) titleFor(target, displayName string) (string, catalog.ConflictPolicy) {
	filename := baseName(target)

	if displayName == "" {
		if alias, ok := p.aliases.Get(aliasKey(target)); ok {
			return alias, catalog.PolicyOverwriteTitle
		}
		return filename, catalog.PolicySkip
	}

	if strings.EqualFold(displayName, filename) {
		return filename, catalog.PolicySkip
	}

	p.aliases.Add(aliasKey(target), displayName)
	return displayName, catalog.PolicyOverwriteTitle
}

// applyAutoTag records a derived tag association. Best effort: a tagging
// failure never fails the ingest.
func (p *Pipeline) applyAutoTag(resource *catalog.Resource, name string) {
	tag, err := p.store.CreateTag(name)
	if err == nil {
		err = p.store.TagResource(resource.ID, tag.ID, catalog.TagSourceAuto)
	}
	if err != nil {
		p.logger.Debug("auto tag failed", "path", resource.Path, "tag", name, "error", err)
	}
}

// Alias returns the cached alias for a canonical path, if one was learned.
func (p *Pipeline) Alias(target string) (string, bool) {
	return p.aliases.Get(aliasKey(target))
}

func aliasKey(target string) string {
	return strings.ToLower(target)
}

// baseName extracts the bare file name from a path with either separator;
// candidates carry Windows paths even when tests run elsewhere.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}
