package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"podcast-backend/internal/config"
	"podcast-backend/internal/domains/episode/model"
)

const defaultAPIBase = "https://api.github.com"

// Client talks to the version-controlled episode store via the GitHub
// contents API. One JSON file per episode, keyed by id, with optimistic
// concurrency through the content sha.
//
// A nil *Client is a valid disabled client: construction returns nil
// when credentials are missing and operations degrade to no-ops.
type Client struct {
	token     string
	owner     string
	repo      string
	branch    string
	envFolder string

	apiBase string
	http    *http.Client
}

// NewFromConfig builds a client, or returns nil when any of token,
// owner or repo is missing. Nil means local-only mode.
func NewFromConfig(cfg config.GitHubConfig) *Client {
	if cfg.Token == "" || cfg.Owner == "" || cfg.Repo == "" {
		return nil
	}

	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}

	return &Client{
		token:     cfg.Token,
		owner:     strings.TrimSpace(cfg.Owner),
		repo:      strings.TrimSpace(cfg.Repo),
		branch:    branch,
		envFolder: cfg.EnvFolder,
		apiBase:   defaultAPIBase,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether remote persistence is configured.
func (c *Client) Enabled() bool {
	return c != nil
}

// SetAPIBase overrides the API endpoint. Test hook.
func (c *Client) SetAPIBase(base string) {
	c.apiBase = strings.TrimRight(base, "/")
}

// ContentItem is one entry of a contents-API directory listing.
type ContentItem struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
}

// contentPayload is the contents-API file response.
type contentPayload struct {
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

// UpsertEpisodeFile creates or updates the per-episode JSON file. The
// current sha is fetched first; present means update, absent means
// create. Failures are logged with status and body; no retries here,
// the job queue owns retry policy.
func (c *Client) UpsertEpisodeFile(ctx context.Context, episodeID int, ep model.Episode) error {
	if c == nil {
		log.Warn().Int("episode_id", episodeID).Msg("GitHub upsert skipped: client not configured")
		return nil
	}

	path := c.episodePath(episodeID)
	sha, err := c.getFileSHA(ctx, path)
	if err != nil {
		return err
	}

	content, err := marshalEpisode(ep)
	if err != nil {
		return fmt.Errorf("encode episode %d: %w", episodeID, err)
	}

	body := map[string]interface{}{
		"message": fmt.Sprintf("Upsert episode %d", episodeID),
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.branch,
	}
	if sha != "" {
		body["sha"] = sha
	}

	resp, respBody, err := c.do(ctx, http.MethodPut, c.contentsURL(path), body)
	if err != nil {
		return fmt.Errorf("upsert episode %d: %w", episodeID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error().
			Int("episode_id", episodeID).
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("Failed to upsert episode file on GitHub")
		return fmt.Errorf("upsert episode %d: status %d", episodeID, resp.StatusCode)
	}

	return nil
}

// DeleteEpisodeFile removes the per-episode file. An absent file counts
// as success: there is nothing to delete.
func (c *Client) DeleteEpisodeFile(ctx context.Context, episodeID int) error {
	if c == nil {
		log.Warn().Int("episode_id", episodeID).Msg("GitHub delete skipped: client not configured")
		return nil
	}

	path := c.episodePath(episodeID)
	sha, err := c.getFileSHA(ctx, path)
	if err != nil {
		return err
	}
	if sha == "" {
		return nil
	}

	body := map[string]interface{}{
		"message": fmt.Sprintf("Delete episode %d", episodeID),
		"sha":     sha,
		"branch":  c.branch,
	}

	resp, respBody, err := c.do(ctx, http.MethodDelete, c.contentsURL(path), body)
	if err != nil {
		return fmt.Errorf("delete episode %d: %w", episodeID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error().
			Int("episode_id", episodeID).
			Int("status", resp.StatusCode).
			Str("body", string(respBody)).
			Msg("Failed to delete episode file on GitHub")
		return fmt.Errorf("delete episode %d: status %d", episodeID, resp.StatusCode)
	}

	return nil
}

// ListEpisodeFiles lists the episode directory. Used by the bulk resync
// job, not the per-write path.
func (c *Client) ListEpisodeFiles(ctx context.Context) ([]ContentItem, error) {
	if c == nil {
		return nil, nil
	}

	resp, body, err := c.do(ctx, http.MethodGet, c.contentsURL(c.episodeDir())+"?ref="+url.QueryEscape(c.branch), nil)
	if err != nil {
		return nil, fmt.Errorf("list episode files: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list episode files: status %d", resp.StatusCode)
	}

	var items []ContentItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode directory listing: %w", err)
	}

	var files []ContentItem
	for _, item := range items {
		if item.Type == "file" && strings.HasSuffix(item.Name, ".json") {
			files = append(files, item)
		}
	}
	return files, nil
}

// FetchEpisode downloads and decodes one per-episode file.
func (c *Client) FetchEpisode(ctx context.Context, path string) (model.Episode, error) {
	var ep model.Episode
	if c == nil {
		return ep, fmt.Errorf("github client not configured")
	}

	resp, body, err := c.do(ctx, http.MethodGet, c.contentsURL(path)+"?ref="+url.QueryEscape(c.branch), nil)
	if err != nil {
		return ep, fmt.Errorf("fetch %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return ep, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}

	var payload contentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ep, fmt.Errorf("decode %s: %w", path, err)
	}

	// The contents API wraps base64 at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return ep, fmt.Errorf("decode content of %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &ep); err != nil {
		return ep, fmt.Errorf("parse episode %s: %w", path, err)
	}
	return ep, nil
}

func (c *Client) getFileSHA(ctx context.Context, path string) (string, error) {
	resp, body, err := c.do(ctx, http.MethodGet, c.contentsURL(path)+"?ref="+url.QueryEscape(c.branch), nil)
	if err != nil {
		return "", fmt.Errorf("get sha of %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var payload contentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode sha response for %s: %w", path, err)
	}
	return payload.SHA, nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body interface{}) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, respBody, nil
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.apiBase, url.PathEscape(c.owner), url.PathEscape(c.repo), path)
}

func (c *Client) episodeDir() string {
	return strings.Trim(c.envFolder, "/") + "/episodes"
}

func (c *Client) episodePath(episodeID int) string {
	return fmt.Sprintf("%s/%d.json", c.episodeDir(), episodeID)
}

// marshalEpisode renders the wire format of the canonical store:
// pretty-printed JSON with slashes left unescaped.
func marshalEpisode(ep model.Episode) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(ep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
