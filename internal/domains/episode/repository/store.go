package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"podcast-backend/internal/domains/episode/model"
)

// legacyListFile is the historical single-file episode list, kept as the
// last fallback layer for data written before per-id files existed.
const legacyListFile = "episodes.json"

// Store is the metadata store with a layered fallback lookup order:
// cache projection, then the per-id JSON file, then a scan of the legacy
// full-list file. Successful fallback lookups repopulate the cache.
//
// A miss is model.ErrEpisodeNotFound; I/O failures are returned as-is so
// callers can tell "does not exist" from "storage is broken".
type Store struct {
	proj *Projection
	dir  string
}

func NewStore(proj *Projection, dir string) *Store {
	return &Store{proj: proj, dir: dir}
}

// Find returns the episode with the given id.
func (s *Store) Find(ctx context.Context, id int) (model.Episode, error) {
	if ep, found, err := s.proj.ReadOne(ctx, id); err == nil && found {
		return ep, nil
	} else if err != nil {
		log.Warn().Err(err).Int("episode_id", id).Msg("Cache lookup failed, falling back to disk")
	}

	ep, err := s.readEpisodeFile(id)
	if err == nil {
		s.repopulate(ctx, ep)
		return ep, nil
	}
	if !errors.Is(err, model.ErrEpisodeNotFound) {
		return model.Episode{}, err
	}

	episodes, err := s.readLegacyList()
	if err != nil {
		return model.Episode{}, err
	}
	for _, ep := range episodes {
		if ep.ID == id {
			s.repopulate(ctx, ep)
			return ep, nil
		}
	}
	return model.Episode{}, model.ErrEpisodeNotFound
}

// FindByFilename matches on the basename of the stored filename so
// path-shaped lookups cannot slip past the comparison.
func (s *Store) FindByFilename(ctx context.Context, filename string) (model.Episode, error) {
	base := model.SanitizeFilename(filename)

	cached, err := s.proj.ReadAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Cache list lookup failed, falling back to disk")
	}
	for _, ep := range cached {
		if model.SanitizeFilename(ep.Filename) == base {
			return ep, nil
		}
	}

	episodes, err := s.All(ctx)
	if err != nil {
		return model.Episode{}, err
	}
	for _, ep := range episodes {
		if model.SanitizeFilename(ep.Filename) == base {
			return ep, nil
		}
	}
	return model.Episode{}, model.ErrEpisodeNotFound
}

// All returns every known episode, sorted ascending by id. Per-id files
// win over entries in the legacy list with the same id.
func (s *Store) All(ctx context.Context) ([]model.Episode, error) {
	byID := make(map[int]model.Episode)

	legacy, err := s.readLegacyList()
	if err != nil {
		return nil, err
	}
	for _, ep := range legacy {
		byID[ep.ID] = ep
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read episodes dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == legacyListFile {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ep, err := s.readEpisodeFile(id)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Skipping unreadable episode file")
			continue
		}
		byID[ep.ID] = ep
	}

	episodes := make([]model.Episode, 0, len(byID))
	for _, ep := range byID {
		episodes = append(episodes, ep)
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].ID < episodes[j].ID })
	return episodes, nil
}

// Add persists a new episode. A zero id gets max(existing)+1 assigned.
// The read-modify-write on the id is not guarded; see NextID.
func (s *Store) Add(ctx context.Context, ep model.Episode) (model.Episode, error) {
	if ep.ID == 0 {
		id, err := s.NextID(ctx)
		if err != nil {
			return model.Episode{}, err
		}
		ep.ID = id
	}
	if ep.CreatedAt == "" {
		ep.CreatedAt = time.Now().Format(model.TimeLayout)
	}
	if ep.UpdatedAt == "" {
		ep.UpdatedAt = ep.CreatedAt
	}

	if err := s.writeEpisodeFile(ep); err != nil {
		return model.Episode{}, err
	}
	s.refreshCache(ctx, ep)
	return ep, nil
}

// Update merges the partial fields into the stored record. The merge is
// field-level, never a replace.
func (s *Store) Update(ctx context.Context, id int, upd model.EpisodeUpdate) (model.Episode, error) {
	ep, err := s.Find(ctx, id)
	if err != nil {
		return model.Episode{}, err
	}

	upd.ApplyTo(&ep)
	if err := s.writeEpisodeFile(ep); err != nil {
		return model.Episode{}, err
	}
	s.refreshCache(ctx, ep)
	return ep, nil
}

// Delete removes the local file, the legacy-list entry and the cache
// entries for an episode. Every fallback layer is scrubbed; otherwise
// the next Find or resync resurrects the record from whichever layer
// still holds it.
func (s *Store) Delete(ctx context.Context, id int) error {
	existed := true
	if _, err := s.Find(ctx, id); errors.Is(err, model.ErrEpisodeNotFound) {
		existed = false
	} else if err != nil {
		return err
	}

	if err := os.Remove(s.episodePath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove episode file %d: %w", id, err)
	}

	if err := s.removeFromLegacyList(id); err != nil {
		return err
	}

	if err := s.proj.Remove(ctx, id); err != nil {
		log.Warn().Err(err).Int("episode_id", id).Msg("Failed to drop episode from cache")
	}

	if !existed {
		return model.ErrEpisodeNotFound
	}
	return nil
}

// removeFromLegacyList rewrites the legacy full-list file without the
// given id. A list that never contained the id is left untouched.
func (s *Store) removeFromLegacyList(id int) error {
	episodes, err := s.readLegacyList()
	if err != nil {
		return err
	}

	kept := episodes[:0]
	for _, ep := range episodes {
		if ep.ID != id {
			kept = append(kept, ep)
		}
	}
	if len(kept) == len(episodes) {
		return nil
	}

	raw, err := marshalPretty(kept)
	if err != nil {
		return fmt.Errorf("encode legacy episode list: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, legacyListFile), raw, 0o644); err != nil {
		return fmt.Errorf("rewrite legacy episode list: %w", err)
	}
	return nil
}

// NextID computes max(existing ids)+1 against the cache snapshot, the
// same way ids have always been assigned here. Two concurrent creates
// can observe the same snapshot and collide; the single episodes queue
// serializes the append jobs, which keeps the window narrow but not
// closed.
func (s *Store) NextID(ctx context.Context) (int, error) {
	episodes, err := s.proj.ReadAll(ctx)
	if err != nil || len(episodes) == 0 {
		episodes, err = s.All(ctx)
		if err != nil {
			return 0, err
		}
	}

	maxID := 0
	for _, ep := range episodes {
		if ep.ID > maxID {
			maxID = ep.ID
		}
	}
	return maxID + 1, nil
}

func (s *Store) repopulate(ctx context.Context, ep model.Episode) {
	if err := s.proj.StoreOne(ctx, ep); err != nil {
		log.Warn().Err(err).Int("episode_id", ep.ID).Msg("Failed to repopulate cache")
	}
}

// refreshCache updates both the per-id entry and the full list entry.
func (s *Store) refreshCache(ctx context.Context, ep model.Episode) {
	s.repopulate(ctx, ep)

	episodes, err := s.proj.ReadAll(ctx)
	if err != nil {
		return
	}
	replaced := false
	for i := range episodes {
		if episodes[i].ID == ep.ID {
			episodes[i] = ep
			replaced = true
			break
		}
	}
	if !replaced {
		episodes = append(episodes, ep)
	}
	if err := s.proj.StoreList(ctx, episodes); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh cached episode list")
	}
}

func (s *Store) episodePath(id int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d.json", id))
}

func (s *Store) readEpisodeFile(id int) (model.Episode, error) {
	raw, err := os.ReadFile(s.episodePath(id))
	if os.IsNotExist(err) {
		return model.Episode{}, model.ErrEpisodeNotFound
	}
	if err != nil {
		return model.Episode{}, fmt.Errorf("read episode file %d: %w", id, err)
	}

	var ep model.Episode
	if err := json.Unmarshal(raw, &ep); err != nil {
		return model.Episode{}, fmt.Errorf("parse episode file %d: %w", id, err)
	}
	return ep, nil
}

func (s *Store) writeEpisodeFile(ep model.Episode) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create episodes dir: %w", err)
	}

	raw, err := marshalPretty(ep)
	if err != nil {
		return fmt.Errorf("encode episode %d: %w", ep.ID, err)
	}
	if err := os.WriteFile(s.episodePath(ep.ID), raw, 0o644); err != nil {
		return fmt.Errorf("write episode file %d: %w", ep.ID, err)
	}
	return nil
}

// readLegacyList loads the historical full-list file. Both the bare
// array form and the {"episodes": [...]} wrapper exist in the wild.
func (s *Store) readLegacyList() ([]model.Episode, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, legacyListFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read legacy episode list: %w", err)
	}

	var episodes []model.Episode
	if err := json.Unmarshal(raw, &episodes); err == nil {
		return episodes, nil
	}

	var wrapped struct {
		Episodes []model.Episode `json:"episodes"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parse legacy episode list: %w", err)
	}
	return wrapped.Episodes, nil
}

// marshalPretty renders pretty-printed JSON with unescaped slashes, the
// format shared with the canonical remote store.
func marshalPretty(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
