// Package catalog はSpotify Web APIによるアーティストカタログ検索を提供する。
// client credentialsフローのアクセストークン取得、アーティスト検索・取得、
// および読み取り結果のキャッシュを含む。
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teamrhythm/setlist/internal/metrics"
)

// ArtistInfo はカタログAPIから取得したアーティスト情報。
type ArtistInfo struct {
	SpotifyArtistID string
	Name            string
	Genres          []string
	Popularity      int
	ImageURL        string
}

// Client はSpotify Web APIのクライアント。
// トークンはリクエストごとに取得し、結果のキャッシュで呼び出し回数を抑える。
type Client struct {
	httpClient   *http.Client
	logger       *slog.Logger
	collector    metrics.MetricsCollector
	cache        *Cache
	clientID     string
	clientSecret string
	searchLimit  int

	// テスト用にエンドポイントを差し替え可能
	tokenURL string
	baseURL  string
}

// ClientConfig はClientの生成パラメータ。
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	SearchLimit  int
}

// NewClient はClientの新しいインスタンスを生成する。
// cacheには検索結果・アーティスト情報の両方を保持する。
func NewClient(httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector, cache *Cache, cfg ClientConfig) *Client {
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = 20
	}
	return &Client{
		httpClient:   httpClient,
		logger:       logger,
		collector:    collector,
		cache:        cache,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     cfg.TokenURL,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		searchLimit:  limit,
	}
}

// tokenResponse はclient credentialsフローのトークンレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// fetchToken はclient credentialsフローでアクセストークンを取得する。
// トークンは保持せず、呼び出しごとに取得する。
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("トークンリクエストの作成に失敗しました: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.collector.RecordTokenFailure()
		return "", fmt.Errorf("トークンエンドポイントの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.collector.RecordTokenFailure()
		c.logger.Error("トークンエンドポイントがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("トークンエンドポイントがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.collector.RecordTokenFailure()
		return "", fmt.Errorf("トークンレスポンスの読み取りに失敗しました: %w", err)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		c.collector.RecordTokenFailure()
		return "", fmt.Errorf("トークンレスポンスのパースに失敗しました: %w", err)
	}
	if token.AccessToken == "" {
		c.collector.RecordTokenFailure()
		return "", fmt.Errorf("トークンレスポンスにaccess_tokenが含まれていません")
	}

	return token.AccessToken, nil
}

// spotifyImage はアーティスト画像のAPIレスポンス表現。
type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// spotifyArtist はアーティストのAPIレスポンス表現。
type spotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Popularity int            `json:"popularity"`
	Images     []spotifyImage `json:"images"`
}

type searchResponse struct {
	Artists struct {
		Items []spotifyArtist `json:"items"`
	} `json:"artists"`
}

// toArtistInfo はAPIレスポンスをArtistInfoに変換する。
// 画像は先頭（最大サイズ）のURLを使用し、画像がない場合は空文字列。
func toArtistInfo(a spotifyArtist) ArtistInfo {
	info := ArtistInfo{
		SpotifyArtistID: a.ID,
		Name:            a.Name,
		Genres:          a.Genres,
		Popularity:      a.Popularity,
	}
	if len(a.Images) > 0 {
		info.ImageURL = a.Images[0].URL
	}
	return info
}

// SearchArtists はアーティスト名で検索し、結果のリストを返す。
// 結果は検索クエリ（入力のまま）をキーにキャッシュされ、
// TTL内の同一クエリでは上流APIを呼び出さない。
func (c *Client) SearchArtists(ctx context.Context, query string) ([]ArtistInfo, error) {
	c.collector.RecordSearch()

	cacheKey := "search:" + query
	if cached, ok := c.cache.Get(cacheKey); ok {
		c.collector.RecordCacheHit("search")
		return cached.([]ArtistInfo), nil
	}
	c.collector.RecordCacheMiss("search")

	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := c.baseURL + "/search?q=" + url.QueryEscape(query) +
		"&type=artist&limit=" + strconv.Itoa(c.searchLimit)
	body, err := c.doGet(ctx, reqURL, token)
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.collector.RecordCatalogFailure("parse")
		c.logger.Error("検索レスポンスのパースに失敗しました",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("検索レスポンスのパースに失敗しました: %w", err)
	}

	artists := make([]ArtistInfo, 0, len(result.Artists.Items))
	for _, item := range result.Artists.Items {
		artists = append(artists, toArtistInfo(item))
	}

	c.cache.Set(cacheKey, artists)
	return artists, nil
}

// GetArtist は指定SpotifyアーティストIDの情報を取得する。
// 見つからない場合はnilを返す。
// 結果はIDをキーにキャッシュされる。
func (c *Client) GetArtist(ctx context.Context, spotifyArtistID string) (*ArtistInfo, error) {
	cacheKey := "artist:" + spotifyArtistID
	if cached, ok := c.cache.Get(cacheKey); ok {
		c.collector.RecordCacheHit("artist")
		return cached.(*ArtistInfo), nil
	}
	c.collector.RecordCacheMiss("artist")

	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := c.baseURL + "/artists/" + url.PathEscape(spotifyArtistID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.collector.RecordCatalogLatency(time.Since(start))
	if err != nil {
		c.collector.RecordCatalogFailure("network")
		return nil, fmt.Errorf("カタログAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()
	c.collector.RecordCatalogHTTPStatus(resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		c.collector.RecordCatalogFailure("status")
		c.logger.Error("カタログAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("spotify_artist_id", spotifyArtistID),
		)
		return nil, fmt.Errorf("カタログAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.collector.RecordCatalogFailure("read")
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var artist spotifyArtist
	if err := json.Unmarshal(body, &artist); err != nil {
		c.collector.RecordCatalogFailure("parse")
		return nil, fmt.Errorf("アーティストレスポンスのパースに失敗しました: %w", err)
	}

	info := toArtistInfo(artist)
	c.cache.Set(cacheKey, &info)
	return &info, nil
}

// doGet はBearerトークン付きのGETリクエストを実行し、200のボディを返す。
func (c *Client) doGet(ctx context.Context, reqURL, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.collector.RecordCatalogLatency(time.Since(start))
	if err != nil {
		c.collector.RecordCatalogFailure("network")
		c.logger.Error("カタログAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("カタログAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()
	c.collector.RecordCatalogHTTPStatus(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		c.collector.RecordCatalogFailure("status")
		c.logger.Error("カタログAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("カタログAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.collector.RecordCatalogFailure("read")
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	return body, nil
}
