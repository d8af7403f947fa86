// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"voice-tutor-go/internal/config"
	"voice-tutor-go/internal/model"
	"voice-tutor-go/pkg/log"
)

// ErrNotConfigured 表示未配置 elasticsearch.addresses。
var ErrNotConfigured = errors.New("search index not configured: set elasticsearch.addresses")

// RoadmapIndex 封装了路线索引的写入与查询。
type RoadmapIndex struct {
	client    *elasticsearch.Client
	indexName string
}

const roadmapMapping = `{
	"mappings": {
		"properties": {
			"roadmap_id":  { "type": "keyword" },
			"topic":       { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"description": { "type": "text" },
			"summary":     { "type": "text" },
			"day_titles":  { "type": "text" },
			"lessons":     { "type": "text" },
			"day_count":   { "type": "integer" },
			"created_at":  { "type": "date", "format": "strict_date_hour_minute_second||epoch_millis" }
		}
	}
}`

// NewRoadmapIndex 初始化 Elasticsearch 客户端并确保索引存在。
func NewRoadmapIndex(esCfg config.ElasticsearchConfig) (*RoadmapIndex, error) {
	if esCfg.Addresses == "" {
		return nil, ErrNotConfigured
	}
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
	idx := &RoadmapIndex{client: client, indexName: esCfg.IndexName}
	if err := idx.createIndexIfNotExists(); err != nil {
		return nil, err
	}
	return idx, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (i *RoadmapIndex) createIndexIfNotExists() error {
	res, err := i.client.Indices.Exists([]string{i.indexName})
	if err != nil {
		return fmt.Errorf("检查索引是否存在时出错: %w", err)
	}
	defer res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("[ES] 索引 '%s' 已存在", i.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(strings.NewReader(roadmapMapping)),
	)
	if err != nil {
		return fmt.Errorf("创建索引 '%s' 失败: %w", i.indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[ES] 创建索引 '%s' 时 Elasticsearch 返回错误: %s", i.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("[ES] 索引 '%s' 创建成功", i.indexName)
	return nil
}

// IndexRoadmap 将单个路线文档写入索引，文档 ID 为 roadmap_id。
func (i *RoadmapIndex) IndexRoadmap(ctx context.Context, doc model.RoadmapIndexDoc) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.indexName,
		DocumentID: doc.RoadmapID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("[ES] 索引路线到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index roadmap")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64               `json:"_score"`
			Source model.RoadmapIndexDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchRoadmaps 在主题、摘要和课程内容上做全文检索。
func (i *RoadmapIndex) SearchRoadmaps(ctx context.Context, query string, size int) ([]model.SearchResult, error) {
	if size <= 0 {
		size = 10
	}
	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"topic^3", "summary^2", "description", "day_titles", "lessons"},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.indexName),
		i.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned error: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	results := make([]model.SearchResult, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		results = append(results, model.SearchResult{
			RoadmapID: hit.Source.RoadmapID,
			Topic:     hit.Source.Topic,
			Summary:   hit.Source.Summary,
			DayCount:  hit.Source.DayCount,
			Score:     hit.Score,
		})
	}
	return results, nil
}
