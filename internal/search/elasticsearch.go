// Package search indexes room types in Elasticsearch for free-text lookup on the storefront.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"hotelsuite/internal/catalog"
	"hotelsuite/internal/logger"
	"hotelsuite/pkg/config"
)

type Client struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(cfg config.ElasticsearchConfig) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es, index: cfg.Index}, nil
}

// document is the indexed shape of a room type.
type document struct {
	ID           string `json:"id"`
	PropertyID   string `json:"property_id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	TotalRooms   int    `json:"total_rooms"`
	MaxOccupancy int    `json:"max_occupancy"`
}

func toDocument(rt catalog.RoomType) document {
	return document{
		ID:           rt.ID,
		PropertyID:   rt.PropertyID,
		Code:         rt.Code,
		Name:         rt.Name,
		Description:  rt.Description,
		TotalRooms:   rt.TotalRooms,
		MaxOccupancy: rt.MaxOccupancy,
	}
}

func (d document) roomType() catalog.RoomType {
	return catalog.RoomType{
		ID:           d.ID,
		PropertyID:   d.PropertyID,
		Code:         d.Code,
		Name:         d.Name,
		Description:  d.Description,
		TotalRooms:   d.TotalRooms,
		MaxOccupancy: d.MaxOccupancy,
	}
}

var indexMapping = map[string]any{
	"settings": map[string]any{
		"number_of_shards":   1,
		"number_of_replicas": 0,
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"property_id": map[string]any{"type": "keyword"},
			"code": map[string]any{
				"type":   "text",
				"fields": map[string]any{"keyword": map[string]any{"type": "keyword"}},
			},
			"name": map[string]any{
				"type":   "text",
				"fields": map[string]any{"keyword": map[string]any{"type": "keyword", "ignore_above": 256}},
			},
			"description":   map[string]any{"type": "text"},
			"total_rooms":   map[string]any{"type": "integer"},
			"max_occupancy": map[string]any{"type": "integer"},
		},
	},
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{c.index}}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	body, err := json.Marshal(indexMapping)
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{Index: c.index, Body: bytes.NewReader(body)}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index: %s", res.String())
	}
	logger.FromContext(ctx).Info("elasticsearch index created", "index", c.index)
	return nil
}

// Reindex writes every room type of the catalog to the index in one bulk request.
func (c *Client) Reindex(ctx context.Context, store catalog.Store) (int, error) {
	if err := c.EnsureIndex(ctx); err != nil {
		return 0, err
	}
	all, err := store.ListAllRoomTypes(ctx)
	if err != nil {
		return 0, err
	}
	if len(all) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rt := range all {
		meta := map[string]any{"index": map[string]any{"_index": c.index, "_id": rt.ID}}
		if err := enc.Encode(meta); err != nil {
			return 0, err
		}
		if err := enc.Encode(toDocument(rt)); err != nil {
			return 0, err
		}
	}

	res, err := esapi.BulkRequest{Body: &buf, Refresh: "wait_for"}.Do(ctx, c.es)
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk index: %s", res.String())
	}

	var out struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	if out.Errors {
		return 0, fmt.Errorf("bulk index reported item errors")
	}
	return len(all), nil
}

func buildQuery(propertyID, query string, limit int) map[string]any {
	filter := []map[string]any{
		{"term": map[string]any{"property_id": propertyID}},
	}
	q := map[string]any{"bool": map[string]any{"filter": filter}}
	sort := []map[string]any{{"name.keyword": map[string]any{"order": "asc"}}}

	if query = strings.TrimSpace(query); query != "" {
		q = map[string]any{"bool": map[string]any{
			"filter": filter,
			"must": []map[string]any{{
				"multi_match": map[string]any{
					"query":     query,
					"fields":    []string{"name^3", "code^2", "description"},
					"fuzziness": "AUTO",
				},
			}},
		}}
		sort = []map[string]any{
			{"_score": map[string]any{"order": "desc"}},
			{"name.keyword": map[string]any{"order": "asc"}},
		}
	}
	return map[string]any{"query": q, "sort": sort, "size": limit}
}

func (c *Client) SearchRoomTypes(ctx context.Context, propertyID, query string, limit int) ([]catalog.RoomType, error) {
	if limit <= 0 {
		limit = 20
	}
	body, err := json.Marshal(buildQuery(propertyID, query, limit))
	if err != nil {
		return nil, err
	}
	res, err := esapi.SearchRequest{Index: []string{c.index}, Body: bytes.NewReader(body)}.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]catalog.RoomType, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		out = append(out, hit.Source.roomType())
	}
	return out, nil
}

// Fallback serves from Primary and answers from Secondary when Primary fails.
type Fallback struct {
	Primary   catalog.Searcher
	Secondary catalog.Searcher
}

func (f Fallback) SearchRoomTypes(ctx context.Context, propertyID, query string, limit int) ([]catalog.RoomType, error) {
	out, err := f.Primary.SearchRoomTypes(ctx, propertyID, query, limit)
	if err == nil {
		return out, nil
	}
	logger.FromContext(ctx).Warn("room type search failed, using catalog scan", "error", err)
	return f.Secondary.SearchRoomTypes(ctx, propertyID, query, limit)
}
