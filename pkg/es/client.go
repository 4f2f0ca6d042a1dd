// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"mood-diary-go/internal/config"
	"mood-diary-go/internal/model"
	"mood-diary-go/pkg/log"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// moodMapping 是情绪记录索引的映射。answers 使用默认 standard 分词器，兼容多语言回答。
const moodMapping = `{
	"mappings": {
		"properties": {
			"doc_id": { "type": "keyword" },
			"entry_id": { "type": "long" },
			"user_id": { "type": "long" },
			"session_id": { "type": "keyword" },
			"mood": {
				"type": "text",
				"fields": { "raw": { "type": "keyword" } }
			},
			"score": { "type": "integer" },
			"answers": { "type": "text" },
			"recorded_at": { "type": "date" }
		}
	}
}`

// NewClient 创建 Elasticsearch 客户端并确保索引存在。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := createIndexIfNotExists(client, esCfg.IndexName); err != nil {
		return nil, err
	}
	return client, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(client *elasticsearch.Client, indexName string) error {
	res, err := client.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = client.Indices.Create(
		indexName,
		client.Indices.Create.WithBody(strings.NewReader(moodMapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexDocument 将单条情绪记录索引到 Elasticsearch。DocID 相同的文档会被覆盖。
func IndexDocument(ctx context.Context, client *elasticsearch.Client, indexName string, doc model.EsMoodDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: doc.DocID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index document")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64              `json:"_score"`
			Source model.EsMoodDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchMoods 在指定用户的记录中按关键词检索回答和情绪标签。
func SearchMoods(ctx context.Context, client *elasticsearch.Client, indexName string, userID uint, query string, topK int) ([]model.MoodSearchHit, error) {
	body := map[string]interface{}{
		"size": topK,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"answers", "mood^2"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"user_id": userID},
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(indexName),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("Elasticsearch 检索出错: %s", res.String())
		return nil, errors.New("elasticsearch search failed")
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("解析检索结果失败: %w", err)
	}

	hits := make([]model.MoodSearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, model.MoodSearchHit{
			EntryID:    h.Source.EntryID,
			Mood:       h.Source.Mood,
			Score:      h.Source.Score,
			Answers:    h.Source.Answers,
			RecordedAt: model.LocalTime(h.Source.RecordedAt),
			HitScore:   h.Score,
		})
	}
	return hits, nil
}

// Store 绑定一个客户端和索引名，供索引流程和检索服务使用。
type Store struct {
	client    *elasticsearch.Client
	indexName string
}

// NewStore 创建一个新的 Store。
func NewStore(client *elasticsearch.Client, indexName string) *Store {
	return &Store{client: client, indexName: indexName}
}

// Index 索引一条情绪记录文档。
func (s *Store) Index(ctx context.Context, doc model.EsMoodDocument) error {
	return IndexDocument(ctx, s.client, s.indexName, doc)
}

// Search 检索某个用户的情绪记录。
func (s *Store) Search(ctx context.Context, userID uint, query string, topK int) ([]model.MoodSearchHit, error) {
	return SearchMoods(ctx, s.client, s.indexName, userID, query, topK)
}
